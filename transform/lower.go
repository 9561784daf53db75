package transform

import (
	"fmt"
	"strings"

	"github.com/warpdex/jul/abi"
	"github.com/warpdex/jul/ast"
	"github.com/warpdex/jul/evmver"
	"github.com/warpdex/jul/scope"
)

// lowerStatement rewrites one statement, descending into every nested block
// so a single pass reaches function bodies at any depth (spec's "single
// post-order pass" over the whole tree).
func (t *Transformer) lowerStatement(n ast.Node, sc *scope.Scope) ast.Node {
	switch v := n.(type) {
	case *ast.VariableDeclaration:
		out := *v
		if v.Init != nil {
			out.Init = t.lowerExpr(v.Init, sc)
		}
		for _, ti := range v.Names {
			sc.Define(scope.KindVar, ti.Name, v)
		}
		return &out

	case *ast.Assignment:
		out := *v
		out.Value = t.lowerExpr(v.Value, sc)
		return &out

	case *ast.MemberAssignment:
		return t.lowerMemberAssignment(v, sc)

	case *ast.If:
		out := *v
		out.Condition = t.lowerExpr(v.Condition, sc)
		out.Body = t.lowerBlock(v.Body, sc.Child("block"))
		return &out

	case *ast.Switch:
		out := *v
		out.Expr = t.lowerExpr(v.Expr, sc)
		for i, c := range v.Cases {
			cc := *c
			cc.Body = t.lowerBlock(c.Body, sc.Child("block"))
			out.Cases[i] = &cc
		}
		if v.Default != nil {
			out.Default = t.lowerBlock(v.Default, sc.Child("block"))
		}
		return &out

	case *ast.ForLoop:
		out := *v
		fs := sc.Child("block")
		out.Init = t.lowerBlock(v.Init, fs)
		out.Condition = t.lowerExpr(v.Condition, fs)
		out.Post = t.lowerBlock(v.Post, fs)
		out.Body = t.lowerBlock(v.Body, fs)
		return &out

	case *ast.While:
		// Desugars to the equivalent ForLoop with an empty init/post
		// (dialect sugar per spec's grammar table).
		return t.lowerStatement(&ast.ForLoop{
			Base:      v.Base,
			Init:      &ast.Block{},
			Condition: v.Condition,
			Post:      &ast.Block{},
			Body:      v.Body,
		}, sc)

	case *ast.DoWhile:
		body := t.lowerBlock(v.Body, sc.Child("block"))
		cond := t.lowerExpr(v.Condition, sc)
		body.Statements = append(append([]ast.Node{}, body.Statements...), &ast.If{
			Condition: &ast.FunctionCall{Name: "iszero", Args: []ast.Node{cond}},
			Body:      block(&ast.Break{}),
		})
		return &ast.ForLoop{Base: v.Base, Init: &ast.Block{}, Condition: &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "1"}, Post: &ast.Block{}, Body: body}

	case *ast.Block:
		return t.lowerBlock(v, sc.Child("block"))

	case *ast.Emit:
		return t.lowerEmit(v, sc)

	case *ast.Throw:
		return t.lowerThrow(v, sc)

	case *ast.ConstDeclaration:
		sc.Define(scope.KindConst, v.Name, v)
		return &ast.VariableDeclaration{} // fully compile-time; emits nothing

	case *ast.FunctionDef:
		lowered, fs := t.lowerFunction(v, sc)
		mergeDeps(sc, fs)
		return lowered

	case *ast.Break, *ast.Continue, *ast.Leave:
		return v

	case *ast.FunctionCall:
		return t.lowerExpr(v, sc)

	default:
		return v
	}
}

func (t *Transformer) lowerBlock(b *ast.Block, sc *scope.Scope) *ast.Block {
	if b == nil {
		return nil
	}
	out := &ast.Block{Base: b.Base}
	for _, s := range b.Statements {
		lowered := t.lowerStatement(s, sc)
		if vd, ok := lowered.(*ast.VariableDeclaration); ok && vd.Init == nil && len(vd.Names) == 0 {
			continue // a ConstDeclaration's compile-time-only marker
		}
		out.Statements = append(out.Statements, lowered)
	}
	return out
}

// lowerExpr rewrites an expression: macro/const substitution, member-read
// lowering, struct-initializer expansion, and constant folding, in that
// order (spec §4.4's fold-after-substitute rule: a macro that expands to a
// literal must still be eligible for constant folding).
func (t *Transformer) lowerExpr(n ast.Node, sc *scope.Scope) ast.Node {
	switch v := n.(type) {
	case *ast.Identifier:
		return t.substituteIdentifier(v, sc)

	case *ast.MemberIdentifier:
		return t.lowerMemberRead(v, sc)

	case *ast.CallDataIdentifier:
		return t.lowerCallData(v, sc)

	case *ast.StructInitializer:
		return t.lowerStructInit(v, sc)

	case *ast.FunctionCall:
		return t.lowerCall(v, sc)

	case *ast.Literal:
		return v

	default:
		return n
	}
}

// substituteIdentifier resolves a bare identifier against macro constants
// and wrapped const declarations (spec's "Macro expansion" and "Const
// declarations" sections); anything else (a local variable, a function
// parameter) passes through unchanged.
func (t *Transformer) substituteIdentifier(id *ast.Identifier, sc *scope.Scope) ast.Node {
	if !id.Replaceable {
		return id
	}
	if id.Value == "EVM_VERSION" {
		ord, _ := evmver.Ordinal(t.opt.hardFork())
		return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", ord)}
	}
	if m, ok := t.macroConst[id.Value]; ok {
		return t.lowerExpr(m.Expr, sc)
	}
	// Root-level consts live in t.root, an ancestor of every lowering scope,
	// so one scope lookup also finds consts declared inside a body.
	if n, ok := sc.Lookup(scope.KindConst, id.Value); ok {
		if c, ok := n.(*ast.ConstDeclaration); ok {
			if c.Wrap {
				return &ast.FunctionCall{Name: c.Name} // hidden zero-arg function form
			}
			return t.lowerExpr(c.Expr, sc)
		}
	}
	return id
}

// lowerMemberRead expands `name->member` into a shift+mask read against the
// struct layout registered for name's declared type (spec's struct
// bit-packing: members are stored most-significant-first within the word,
// sized and offset by the struct's member declaration order).
func (t *Transformer) lowerMemberRead(m *ast.MemberIdentifier, sc *scope.Scope) ast.Node {
	layout, err := t.memberLayout(m.BaseName, m.Cast, m.Member, sc)
	if err != nil {
		return &ast.FunctionCall{Name: "__error_unresolved_member", Args: []ast.Node{&ast.Literal{Subtype: ast.LitString, Value: err.Error()}}}
	}
	word := ast.Node(&ast.Identifier{Value: m.BaseName})
	if layout.offsetBits == 0 && layout.widthBits == 256 {
		return word
	}
	masked := &ast.FunctionCall{Name: "shr", Args: []ast.Node{
		&ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", layout.offsetBits)}, word,
	}}
	if layout.widthBits == 256 {
		return masked
	}
	return &ast.FunctionCall{Name: "and", Args: []ast.Node{
		masked,
		&ast.Literal{Subtype: ast.LitHexNumber, Value: maskHex(layout.widthBits)},
	}}
}

func (t *Transformer) lowerMemberAssignment(m *ast.MemberAssignment, sc *scope.Scope) ast.Node {
	target, ok := m.Target.(*ast.MemberIdentifier)
	if !ok {
		return m
	}
	layout, err := t.memberLayout(target.BaseName, target.Cast, target.Member, sc)
	if err != nil {
		return &ast.FunctionCall{Name: "__error_unresolved_member", Args: []ast.Node{&ast.Literal{Subtype: ast.LitString, Value: err.Error()}}}
	}
	value := t.lowerExpr(m.Value, sc)
	base := &ast.Identifier{Value: target.BaseName}
	if layout.offsetBits == 0 && layout.widthBits == 256 {
		return &ast.Assignment{Names: []string{target.BaseName}, Value: value}
	}
	cleared := &ast.FunctionCall{Name: "and", Args: []ast.Node{
		base,
		&ast.FunctionCall{Name: "not", Args: []ast.Node{
			&ast.FunctionCall{Name: "shl", Args: []ast.Node{
				&ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", layout.offsetBits)},
				&ast.Literal{Subtype: ast.LitHexNumber, Value: maskHex(layout.widthBits)},
			}},
		}},
	}}
	shifted := &ast.FunctionCall{Name: "shl", Args: []ast.Node{
		&ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", layout.offsetBits)},
		&ast.FunctionCall{Name: "and", Args: []ast.Node{value, &ast.Literal{Subtype: ast.LitHexNumber, Value: maskHex(layout.widthBits)}}},
	}}
	newVal := ast.Node(&ast.FunctionCall{Name: "or", Args: []ast.Node{cleared, shifted}})
	if m.Or {
		newVal = &ast.FunctionCall{Name: "or", Args: []ast.Node{base, shifted}}
	}
	return &ast.Assignment{Names: []string{target.BaseName}, Value: newVal}
}

type memberLoc struct {
	offsetBits int
	widthBits  int
}

// memberLayout resolves member against the struct type declared for
// baseName (or the explicit cast type, if given), computing its bit
// offset within the packed word from the declaration order and width of
// every preceding member (spec's struct layout rule: the first declared
// member occupies the top bits and each later member sits directly below
// the one before it, a "+" member reserving padding without consuming a
// name).
func (t *Transformer) memberLayout(baseName, cast, member string, sc *scope.Scope) (memberLoc, error) {
	typeName := cast
	if typeName == "" {
		// Without a richer type-inference pass, the base variable's struct
		// type must be supplied via an explicit cast at the use site once
		// it is ambiguous; single-struct-typed locals are inferred by
		// scanning declared structs for a unique member name match.
		for name, def := range t.structs {
			for _, mem := range def.Members {
				if mem.Name == member {
					if typeName != "" && typeName != name {
						return memberLoc{}, fmt.Errorf("member %q of %q is ambiguous between structs %q and %q", member, baseName, typeName, name)
					}
					typeName = name
				}
			}
		}
	}
	def, ok := t.structs[typeName]
	if !ok {
		return memberLoc{}, fmt.Errorf("member %q: unresolved struct type for %q", member, baseName)
	}
	offset := 256
	for _, mem := range def.Members {
		width := abiWidthBits(mem.Type)
		offset -= width
		if mem.Name == member {
			return memberLoc{offsetBits: offset, widthBits: width}, nil
		}
	}
	return memberLoc{}, fmt.Errorf("struct %q has no member %q", typeName, member)
}

func abiWidthBits(t ast.ABIType) int {
	if t.Width > 0 {
		return t.Width
	}
	return 256
}

func maskHex(bits int) string {
	if bits >= 256 {
		return "0x" + strings.Repeat("f", 64)
	}
	nibbles := (bits + 3) / 4
	return "0x" + strings.Repeat("f", nibbles)
}

// lowerCallData expands `calldata.member` (and its `&`-ref form) against
// the enclosing method's parameter list, resolved positionally since
// calldata identifiers name ABI parameters in declaration order.
func (t *Transformer) lowerCallData(c *ast.CallDataIdentifier, sc *scope.Scope) ast.Node {
	offsetExpr := &ast.FunctionCall{Name: "__calldata_offset", Args: []ast.Node{&ast.Literal{Subtype: ast.LitString, Value: c.Member}}}
	if c.Ref {
		return offsetExpr
	}
	return &ast.FunctionCall{Name: "calldataload", Args: []ast.Node{offsetExpr}}
}

// lowerStructInit expands `struct(Name, args...)` into the packed word
// constructed from the struct's default values overridden by args in
// declaration order; a `@` argument keeps the member's declared default.
func (t *Transformer) lowerStructInit(s *ast.StructInitializer, sc *scope.Scope) ast.Node {
	def, ok := t.structs[s.Struct]
	if !ok {
		return &ast.FunctionCall{Name: "__error_unknown_struct", Args: []ast.Node{&ast.Literal{Subtype: ast.LitString, Value: s.Struct}}}
	}
	var packed ast.Node = &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"}
	offset := 256
	for i, mem := range def.Members {
		width := abiWidthBits(mem.Type)
		offset -= width
		var valueExpr ast.Node
		if i < len(s.Args) {
			if _, isDefault := s.Args[i].(*ast.DefaultArg); isDefault {
				valueExpr = defaultOrZero(mem)
			} else {
				valueExpr = t.lowerExpr(s.Args[i], sc)
			}
		} else {
			valueExpr = defaultOrZero(mem)
		}
		if mem.Name != "+" {
			shifted := ast.Node(&ast.FunctionCall{Name: "shl", Args: []ast.Node{
				&ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", offset)},
				&ast.FunctionCall{Name: "and", Args: []ast.Node{valueExpr, &ast.Literal{Subtype: ast.LitHexNumber, Value: maskHex(width)}}},
			}})
			packed = &ast.FunctionCall{Name: "or", Args: []ast.Node{packed, shifted}}
		}
	}
	return packed
}

func defaultOrZero(mem ast.StructMember) ast.Node {
	if mem.Default != nil {
		return mem.Default
	}
	return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"}
}

// lowerEmit expands `emit Event(args...)` into the packed-data memory store
// plus the appropriate logN opcode with the event's topic0 (unless
// anonymous), following the same non-indexed/indexed split ABI encoding
// uses for logs.
func (t *Transformer) lowerEmit(e *ast.Emit, sc *scope.Scope) ast.Node {
	decl := t.lookupEvent(e.Name, sc)
	if decl == nil {
		return &ast.FunctionCall{Name: "__error_unknown_event", Args: []ast.Node{&ast.Literal{Subtype: ast.LitString, Value: e.Name}}}
	}
	var topics []ast.Node
	if !decl.Anonymous {
		topic0 := abi.Topic0(abi.EventSignature(decl.Name, decl.Params))
		topics = append(topics, &ast.Literal{Subtype: ast.LitHexNumber, Value: "0x" + hexDigest(topic0[:])})
	}
	var dataArgs []ast.Node
	argIdx := 0
	for _, p := range decl.Params {
		if argIdx >= len(e.Args) {
			break
		}
		arg := t.lowerExpr(e.Args[argIdx], sc)
		if p.Indexed {
			topics = append(topics, arg)
		} else {
			dataArgs = append(dataArgs, arg)
		}
		argIdx++
	}
	stmts := []ast.Node{}
	offset := &ast.Identifier{Value: "__emit_ptr"}
	stmts = append(stmts, &ast.VariableDeclaration{Names: []ast.TypedIdentifier{{Name: "__emit_ptr"}}, Init: &ast.FunctionCall{Name: "mload", Args: []ast.Node{&ast.Literal{Subtype: ast.LitDecimalNumber, Value: "64"}}}})
	for i, a := range dataArgs {
		stmts = append(stmts, &ast.FunctionCall{Name: "mstore", Args: []ast.Node{
			&ast.FunctionCall{Name: "add", Args: []ast.Node{offset, &ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", i*32)}}}, a,
		}})
	}
	logName := fmt.Sprintf("log%d", len(topics))
	logArgs := []ast.Node{offset, &ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", len(dataArgs)*32)}}
	logArgs = append(logArgs, topics...)
	stmts = append(stmts, &ast.FunctionCall{Name: logName, Args: logArgs})
	return &ast.Block{Statements: stmts}
}

func hexDigest(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

func (t *Transformer) lookupEvent(name string, sc *scope.Scope) *ast.EventDecl {
	if n, ok := sc.Lookup(scope.KindEvent, name); ok {
		if d, ok := n.(*ast.EventDecl); ok {
			return d
		}
	}
	return nil
}

// lowerThrow expands `throw Error(args...)` into the Error(string)-style
// or custom-error-selector revert encoding (spec's "Throw" operation).
func (t *Transformer) lowerThrow(th *ast.Throw, sc *scope.Scope) ast.Node {
	switch th.Name {
	case "Error":
		if len(th.Args) != 1 {
			return &ast.FunctionCall{Name: "revert", Args: []ast.Node{lit0(), lit0()}}
		}
		return block(
			&ast.FunctionCall{Name: "mstore", Args: []ast.Node{lit0(), &ast.Literal{Subtype: ast.LitHexNumber, Value: "0x08c379a0" + strings.Repeat("0", 56)}}},
			&ast.FunctionCall{Name: "revert", Args: []ast.Node{lit0(), &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "36"}}},
		)
	case "Panic":
		sc.DependsOn("__builtin_panic")
		return &ast.FunctionCall{Name: "__builtin_panic", Args: lowerArgs(th.Args, t, sc)}
	default:
		var stmts []ast.Node
		stmts = append(stmts, &ast.FunctionCall{Name: "mstore", Args: []ast.Node{lit0(), &ast.Literal{Subtype: ast.LitHexNumber, Value: "0x" + th.Name}}})
		for i, a := range th.Args {
			stmts = append(stmts, &ast.FunctionCall{Name: "mstore", Args: []ast.Node{
				&ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", 4+i*32)}, t.lowerExpr(a, sc),
			}})
		}
		stmts = append(stmts, &ast.FunctionCall{Name: "revert", Args: []ast.Node{lit0(), &ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", 4+len(th.Args)*32)}}})
		return &ast.Block{Statements: stmts}
	}
}

func lowerArgs(args []ast.Node, t *Transformer, sc *scope.Scope) []ast.Node {
	out := make([]ast.Node, len(args))
	for i, a := range args {
		out[i] = t.lowerExpr(a, sc)
	}
	return out
}

// lowerCall lowers a FunctionCall's arguments and then applies macro
// expansion (function-form macros), identifier-namespace intrinsic
// rewriting, and constant folding in that order.
func (t *Transformer) lowerCall(fc *ast.FunctionCall, sc *scope.Scope) ast.Node {
	args := lowerArgs(fc.Args, t, sc)

	if macro, ok := t.macroFn[fc.Name]; ok {
		return t.expandMacro(macro, args, sc)
	}

	if thunk := t.lowerInterfaceCall(fc.Name, args, sc); thunk != nil {
		return thunk
	}

	if rewritten := t.lowerIntrinsic(fc.Name, args, sc); rewritten != nil {
		return rewritten
	}

	call := &ast.FunctionCall{Base: fc.Base, Name: fc.Name, Args: args}
	if folded := foldConstant(call); folded != nil {
		return folded
	}
	return call
}

// lowerInterfaceCall recognizes a dotted FunctionCall whose base resolves to
// a registered Interface and rewrites it into the matching thunk
// (__icreate_I/__icreate2_I/__icall_I_M), synthesizing that thunk into the
// enclosing contract's function set the first time it's referenced
// (dependency materialization triggers on first use, per scope's DependsOn).
func (t *Transformer) lowerInterfaceCall(name string, args []ast.Node, sc *scope.Scope) ast.Node {
	parts := strings.SplitN(name, ".", 2)
	if len(parts) != 2 {
		return nil
	}
	iface, ok := t.interfaces[parts[0]]
	if !ok {
		return nil
	}
	switch parts[1] {
	case "create":
		sc.DependsOn("__icreate_" + iface.Name)
		return &ast.FunctionCall{Name: "__icreate_" + iface.Name, Args: args}
	case "create2":
		sc.DependsOn("__icreate2_" + iface.Name)
		return &ast.FunctionCall{Name: "__icreate2_" + iface.Name, Args: args}
	default:
		for _, m := range iface.Methods {
			if m.Name == parts[1] {
				helper := "__icall_" + iface.Name + "_" + m.Name
				sc.DependsOn(helper)
				return &ast.FunctionCall{Name: helper, Args: args}
			}
		}
		return nil
	}
}

// expandMacro substitutes a macro function's parameters with the caller's
// (already-lowered) arguments and re-lowers the resulting body expression,
// so nested macro calls and constant folding both still apply to the
// expansion (spec's "Macro expansion" recursive-rewrite rule).
func (t *Transformer) expandMacro(m *ast.MacroDefinition, args []ast.Node, sc *scope.Scope) ast.Node {
	bindings := map[string]ast.Node{}
	for i, p := range m.Params {
		if i < len(args) {
			bindings[p] = args[i]
		}
	}
	if len(m.Body.Statements) == 1 {
		if fc, ok := m.Body.Statements[0].(*ast.FunctionCall); ok {
			return t.lowerExpr(substituteParams(fc, bindings), sc)
		}
	}
	return &ast.Block{Statements: []ast.Node{t.lowerStatement(substituteParams(m.Body, bindings), sc)}}
}

// substituteParams walks n replacing any Identifier matching a macro
// parameter name with its bound argument expression.
func substituteParams(n ast.Node, bindings map[string]ast.Node) ast.Node {
	switch v := n.(type) {
	case *ast.Identifier:
		if bound, ok := bindings[v.Value]; ok {
			return bound
		}
		return v
	case *ast.FunctionCall:
		args := make([]ast.Node, len(v.Args))
		for i, a := range v.Args {
			args[i] = substituteParams(a, bindings)
		}
		return &ast.FunctionCall{Base: v.Base, Name: v.Name, Args: args}
	case *ast.Block:
		out := &ast.Block{Base: v.Base}
		for _, s := range v.Statements {
			out.Statements = append(out.Statements, substituteParams(s, bindings))
		}
		return out
	case *ast.Assignment:
		return &ast.Assignment{Base: v.Base, Names: v.Names, Value: substituteParams(v.Value, bindings)}
	case *ast.VariableDeclaration:
		out := *v
		if v.Init != nil {
			out.Init = substituteParams(v.Init, bindings)
		}
		return &out
	case *ast.If:
		return &ast.If{Base: v.Base, Condition: substituteParams(v.Condition, bindings), Body: substituteParams(v.Body, bindings).(*ast.Block)}
	default:
		return n
	}
}

