package ast

// Visitor is called once per node during Walk. Returning false stops descent
// into that node's children (the node itself is still visited).
type Visitor func(n Node) (descend bool)

// Walk performs a generic pre-order traversal over n's children, handling
// the boilerplate of dispatching on concrete node kind so callers only
// write the match arms they care about (spec §9, "generic traversal helper
// handles the boilerplate").
func Walk(n Node, visit Visitor) {
	if n == nil || isNilNode(n) {
		return
	}
	if !visit(n) {
		return
	}
	for _, child := range Children(n) {
		Walk(child, visit)
	}
}

// Children returns the direct Node children of n, in source order, omitting
// nil slots. It is the single place that knows every node's shape, so new
// node kinds only need a case added here for traversal to reach them.
func Children(n Node) []Node {
	var out []Node
	add := func(c Node) {
		if c != nil && !isNilNode(c) {
			out = append(out, c)
		}
	}
	addAll := func(cs []Node) {
		for _, c := range cs {
			add(c)
		}
	}

	switch v := n.(type) {
	case *Root:
		addAll(v.Statements)
	case *Fold:
		add(v.Expr)
		add(v.Block)
		for _, e := range v.Elifs {
			add(e.Expr)
			add(e.Block)
		}
		add(v.Else)
	case *Enum:
		for _, m := range v.Members {
			add(m.Expr)
		}
	case *StructDefinition:
		for i := range v.Members {
			add(&v.Members[i])
		}
	case *StructMember:
		add(v.Default)
	case *Contract:
		add(v.Body)
	case *ObjectBlock:
		add(v.Code)
		for _, o := range v.Objects {
			add(o)
		}
	case *CodeBlock:
		add(v.Body)
	case *Block:
		addAll(v.Statements)
	case *MacroConstant:
		add(v.Expr)
	case *MacroDefinition:
		add(v.Body)
	case *FunctionDef:
		add(v.Body)
	case *VariableDeclaration:
		add(v.Init)
	case *ConstDeclaration:
		add(v.Expr)
	case *Assignment:
		add(v.Value)
	case *MemberAssignment:
		add(v.Target)
		add(v.Value)
	case *If:
		add(v.Condition)
		add(v.Body)
	case *Case:
		add(v.Value)
		add(v.Body)
	case *Switch:
		add(v.Expr)
		for _, c := range v.Cases {
			add(c)
		}
		add(v.Default)
	case *ForLoop:
		add(v.Init)
		add(v.Condition)
		add(v.Post)
		add(v.Body)
	case *While:
		add(v.Condition)
		add(v.Body)
	case *DoWhile:
		add(v.Body)
		add(v.Condition)
	case *Emit:
		add(v.Offset)
		addAll(v.Args)
	case *Throw:
		addAll(v.Args)
	case *StructInitializer:
		addAll(v.Args)
	case *InterfaceCallExpr:
		addAll(v.Args)
	case *FunctionCall:
		addAll(v.Args)
	case *ConstructorDef:
		add(v.Body)
	case *MethodDef:
		add(v.Body)
	}
	return out
}

// isNilNode detects a typed-nil Node interface value (e.g. a (*Block)(nil)
// stored in a Node field), which is not equal to the untyped nil but must
// still be skipped by traversal.
func isNilNode(n Node) bool {
	switch v := n.(type) {
	case *Block:
		return v == nil
	case *CodeBlock:
		return v == nil
	case *Case:
		return v == nil
	case *Literal:
		return v == nil
	}
	return false
}
