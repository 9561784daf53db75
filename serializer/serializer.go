// Package serializer renders a transformed AST back to canonical plain Yul
// text (spec §5's "canonical Yul serializer"): 2-space indentation, one
// statement per line, deterministic child ordering. Structured the way the
// teacher's CodeGenerator dispatches per node kind (code_generator.go),
// generalized from bytecode emission to text emission.
package serializer

import (
	"fmt"
	"strings"

	"github.com/warpdex/jul/ast"
)

const indentUnit = "  "

// wrapWidth is the 77-column width exposed through WrapWidth. No renderer
// reads it: neither this package's Yul output nor the abi package's
// HumanReadableSignatures/InterfaceStub text wraps lines.
const wrapWidth = 77

// Print renders n (expected to be a *ast.Root after a full transform pass)
// as canonical Yul source text.
func Print(n ast.Node) string {
	p := &printer{}
	p.node(n, 0)
	return p.b.String()
}

type printer struct {
	b strings.Builder
}

func (p *printer) indent(depth int) {
	p.b.WriteString(strings.Repeat(indentUnit, depth))
}

func (p *printer) line(depth int, format string, args ...interface{}) {
	p.indent(depth)
	fmt.Fprintf(&p.b, format, args...)
	p.b.WriteByte('\n')
}

func (p *printer) node(n ast.Node, depth int) {
	switch v := n.(type) {
	case *ast.Root:
		for i, s := range v.Statements {
			if i > 0 {
				p.b.WriteByte('\n')
			}
			p.node(s, depth)
		}
	case *ast.ObjectBlock:
		p.indent(depth)
		fmt.Fprintf(&p.b, "object %q {\n", v.Name)
		if v.Code != nil {
			p.node(v.Code, depth+1)
		}
		for _, d := range v.Data {
			p.dataValue(d, depth+1)
		}
		for _, o := range v.Objects {
			p.node(o, depth+1)
		}
		p.line(depth, "}")
	case *ast.CodeBlock:
		p.line(depth, "code {")
		p.blockStatements(v.Body, depth+1)
		p.line(depth, "}")
	case *ast.Block:
		p.line(depth, "{")
		p.blockStatements(v, depth+1)
		p.line(depth, "}")
	case *ast.FunctionDef:
		p.functionDef(v, depth)
	case *ast.VariableDeclaration:
		p.variableDecl(v, depth)
	case *ast.Assignment:
		p.assignment(v, depth)
	case *ast.If:
		p.ifStmt(v, depth)
	case *ast.Switch:
		p.switchStmt(v, depth)
	case *ast.ForLoop:
		p.forLoop(v, depth)
	case *ast.Break:
		p.line(depth, "break")
	case *ast.Continue:
		p.line(depth, "continue")
	case *ast.Leave:
		p.line(depth, "leave")
	case *ast.FunctionCall:
		p.indent(depth)
		p.expr(v)
		p.b.WriteByte('\n')
	default:
		p.indent(depth)
		p.expr(n)
		p.b.WriteByte('\n')
	}
}

func (p *printer) dataValue(d ast.DataValue, depth int) {
	if d.IsHex {
		p.line(depth, "data %s hex\"%s\"", d.Name, d.Value)
	} else {
		p.line(depth, "data %s %q", d.Name, d.Value)
	}
}

func (p *printer) blockStatements(b *ast.Block, depth int) {
	if b == nil {
		return
	}
	for _, s := range b.Statements {
		p.node(s, depth)
	}
}

func (p *printer) functionDef(f *ast.FunctionDef, depth int) {
	p.indent(depth)
	fmt.Fprintf(&p.b, "function %s(%s)", f.Name, strings.Join(f.Params, ", "))
	if len(f.Returns) > 0 {
		fmt.Fprintf(&p.b, " -> %s", strings.Join(f.Returns, ", "))
	}
	p.b.WriteString(" {\n")
	p.blockStatements(f.Body, depth+1)
	p.line(depth, "}")
}

func (p *printer) variableDecl(v *ast.VariableDeclaration, depth int) {
	p.indent(depth)
	p.b.WriteString("let ")
	names := make([]string, len(v.Names))
	for i, ti := range v.Names {
		names[i] = ti.Name
	}
	p.b.WriteString(strings.Join(names, ", "))
	if v.Init != nil {
		p.b.WriteString(" := ")
		p.expr(v.Init)
	}
	p.b.WriteByte('\n')
}

func (p *printer) assignment(a *ast.Assignment, depth int) {
	p.indent(depth)
	p.b.WriteString(strings.Join(a.Names, ", "))
	p.b.WriteString(" := ")
	p.expr(a.Value)
	p.b.WriteByte('\n')
}

func (p *printer) ifStmt(v *ast.If, depth int) {
	p.indent(depth)
	p.b.WriteString("if ")
	p.expr(v.Condition)
	p.b.WriteString(" {\n")
	p.blockStatements(v.Body, depth+1)
	p.line(depth, "}")
}

func (p *printer) switchStmt(v *ast.Switch, depth int) {
	p.indent(depth)
	p.b.WriteString("switch ")
	p.expr(v.Expr)
	p.b.WriteByte('\n')
	for _, c := range v.Cases {
		p.indent(depth)
		p.b.WriteString("case ")
		p.expr(c.Value)
		p.b.WriteString(" {\n")
		p.blockStatements(c.Body, depth+1)
		p.line(depth, "}")
	}
	if v.Default != nil {
		p.line(depth, "default {")
		p.blockStatements(v.Default, depth+1)
		p.line(depth, "}")
	}
}

func (p *printer) forLoop(v *ast.ForLoop, depth int) {
	p.indent(depth)
	p.b.WriteString("for {\n")
	p.blockStatements(v.Init, depth+1)
	p.indent(depth)
	p.b.WriteString("} ")
	p.expr(v.Condition)
	p.b.WriteString(" {\n")
	p.blockStatements(v.Post, depth+1)
	p.indent(depth)
	p.b.WriteString("} {\n")
	p.blockStatements(v.Body, depth+1)
	p.line(depth, "}")
}

// expr renders an expression node inline (no trailing newline/indent).
func (p *printer) expr(n ast.Node) {
	switch v := n.(type) {
	case *ast.FunctionCall:
		p.b.WriteString(v.Name)
		p.b.WriteByte('(')
		for i, a := range v.Args {
			if i > 0 {
				p.b.WriteString(", ")
			}
			p.expr(a)
		}
		p.b.WriteByte(')')
	case *ast.Literal:
		p.literal(v)
	case *ast.Identifier:
		p.b.WriteString(v.Value)
	case *ast.MemberIdentifier:
		// Should not survive a full transform pass (lowered to shift+mask
		// reads); render the source shape defensively if it does.
		p.b.WriteString(v.BaseName)
		p.b.WriteString("->")
		p.b.WriteString(v.Member)
	case *ast.CallDataIdentifier:
		p.b.WriteString("calldata.")
		p.b.WriteString(v.Member)
	default:
		p.b.WriteString(fmt.Sprintf("/* unsupported node %T */", n))
	}
}

func (p *printer) literal(l *ast.Literal) {
	switch l.Subtype {
	case ast.LitString:
		fmt.Fprintf(&p.b, "%q", l.Value)
	case ast.LitHex:
		fmt.Fprintf(&p.b, "hex\"%s\"", l.Value)
	default:
		p.b.WriteString(l.Value)
		if l.Unit != "" {
			p.b.WriteByte(' ')
			p.b.WriteString(l.Unit)
		}
	}
}

// WrapWidth returns wrapWidth (77). ABI human-readable signatures are
// rendered one per line at full length; nothing wraps them at this width.
func WrapWidth() int { return wrapWidth }
