package serializer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpdex/jul/ast"
)

func block(stmts ...ast.Node) *ast.Block {
	return &ast.Block{Statements: stmts}
}

func TestPrintFunctionDef(t *testing.T) {
	fn := &ast.FunctionDef{
		Name:    "add",
		Params:  []string{"a", "b"},
		Returns: []string{"r"},
		Body: block(
			&ast.Assignment{Names: []string{"r"}, Value: &ast.FunctionCall{Name: "add", Args: []ast.Node{
				&ast.Identifier{Value: "a"}, &ast.Identifier{Value: "b"},
			}}},
		),
	}
	out := Print(fn)
	require.Equal(t, "function add(a, b) -> r {\n  r := add(a, b)\n}\n", out)
}

func TestPrintIfAndSwitch(t *testing.T) {
	ifStmt := &ast.If{
		Condition: &ast.FunctionCall{Name: "iszero", Args: []ast.Node{&ast.Identifier{Value: "x"}}},
		Body:      block(&ast.Leave{}),
	}
	out := Print(ifStmt)
	require.Equal(t, "if iszero(x) {\n  leave\n}\n", out)

	sw := &ast.Switch{
		Expr: &ast.Identifier{Value: "x"},
		Cases: []*ast.Case{
			{Value: &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"}, Body: block(&ast.Break{})},
		},
		Default: block(&ast.Continue{}),
	}
	out = Print(sw)
	require.True(t, strings.HasPrefix(out, "switch x\n"))
	require.Contains(t, out, "case 0 {\n  break\n}\n")
	require.Contains(t, out, "default {\n  continue\n}\n")
}

func TestPrintObjectBlockAndData(t *testing.T) {
	obj := &ast.ObjectBlock{
		Name: "Contract",
		Code: &ast.CodeBlock{Body: block(&ast.FunctionCall{Name: "return", Args: []ast.Node{
			&ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"},
			&ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"},
		}})},
		Data: []ast.DataValue{{Name: "Runtime", Value: "deadbeef", IsHex: true}},
	}
	out := Print(obj)
	require.Equal(t, "object \"Contract\" {\n  code {\n    return(0, 0)\n  }\n  data Runtime hex\"deadbeef\"\n}\n", out)
}

func TestPrintStringAndHexLiterals(t *testing.T) {
	call := &ast.FunctionCall{Name: "sstore", Args: []ast.Node{
		&ast.Literal{Subtype: ast.LitString, Value: "key"},
		&ast.Literal{Subtype: ast.LitHex, Value: "ff"},
	}}
	out := Print(call)
	require.Equal(t, "sstore(\"key\", hex\"ff\")\n", out)
}

func TestPrintForLoop(t *testing.T) {
	fl := &ast.ForLoop{
		Init:      block(&ast.VariableDeclaration{Names: []ast.TypedIdentifier{{Name: "i"}}, Init: &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"}}),
		Condition: &ast.FunctionCall{Name: "lt", Args: []ast.Node{&ast.Identifier{Value: "i"}, &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "10"}}},
		Post:      block(&ast.Assignment{Names: []string{"i"}, Value: &ast.FunctionCall{Name: "add", Args: []ast.Node{&ast.Identifier{Value: "i"}, &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "1"}}}}),
		Body:      block(&ast.Break{}),
	}
	out := Print(fl)
	require.Equal(t, "for {\n  let i := 0\n} lt(i, 10) {\n  i := add(i, 1)\n} {\n  break\n}\n", out)
}
