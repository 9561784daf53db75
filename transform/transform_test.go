package transform

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpdex/jul/ast"
	"github.com/warpdex/jul/builtin"
	"github.com/warpdex/jul/serializer"
)

func ident(v string) *ast.Identifier { return &ast.Identifier{Value: v} }
func dec(v string) *ast.Literal      { return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: v} }

func TestFoldConstantArithmeticIdentities(t *testing.T) {
	add := &ast.FunctionCall{Name: "add", Args: []ast.Node{ident("x"), dec("0")}}
	require.Equal(t, ident("x"), foldConstant(add))

	mulOne := &ast.FunctionCall{Name: "mul", Args: []ast.Node{dec("1"), ident("x")}}
	require.Equal(t, ident("x"), foldConstant(mulOne))

	mulZero := &ast.FunctionCall{Name: "mul", Args: []ast.Node{dec("0"), ident("x")}}
	require.Equal(t, "0", foldConstant(mulZero).(*ast.Literal).Value)
}

func TestFoldConstantLiteralArithmetic(t *testing.T) {
	call := &ast.FunctionCall{Name: "add", Args: []ast.Node{dec("2"), dec("3")}}
	out := foldConstant(call)
	require.Equal(t, "5", out.(*ast.Literal).Value)
}

func TestFoldConstantIszeroIszeroCollapses(t *testing.T) {
	inner := &ast.FunctionCall{Name: "iszero", Args: []ast.Node{ident("x")}}
	outer := &ast.FunctionCall{Name: "iszero", Args: []ast.Node{inner}}
	require.Equal(t, ident("x"), foldConstant(outer))
}

func TestDeclareRegistersStructAndDetectsDuplicate(t *testing.T) {
	tr := New(Options{})
	root := &ast.Root{Statements: []ast.Node{
		&ast.StructDefinition{Name: "Point", Members: []ast.StructMember{
			{Type: ast.ABIType{Base: ast.ABIUint, Width: 128}, Name: "x"},
			{Type: ast.ABIType{Base: ast.ABIUint, Width: 128}, Name: "y"},
		}},
	}}
	require.NoError(t, tr.Declare(root))
	require.Contains(t, tr.structs, "Point")

	dup := &ast.Root{Statements: []ast.Node{&ast.StructDefinition{Name: "Point"}}}
	require.Error(t, tr.Declare(dup))
}

func TestResolveFoldPicksMatchingBranch(t *testing.T) {
	tr := New(Options{HardFork: "cancun"})
	f := &ast.Fold{
		Expr:  &ast.FunctionCall{Name: "gte", Args: []ast.Node{ident("EVM_VERSION"), ident("shanghai")}},
		Block: &ast.Block{Statements: []ast.Node{dec("1")}},
		Else:  &ast.Block{Statements: []ast.Node{dec("2")}},
	}
	branch, err := tr.resolveFold(f)
	require.NoError(t, err)
	require.Equal(t, "1", branch.Statements[0].(*ast.Literal).Value)
}

func TestLowerContractBuildsDispatcherAndRuntime(t *testing.T) {
	tr := New(Options{})
	contract := &ast.Contract{
		Name: "Counter",
		Body: &ast.Block{Statements: []ast.Node{
			&ast.MethodDef{
				Name:       "get",
				Visibility: ast.VisibilityExternal,
				Mutability: ast.MutabilityView,
				Returns:    []ast.ABIType{{Base: ast.ABIUint, Width: 256}},
				Body: &ast.Block{Statements: []ast.Node{
					&ast.Assignment{Names: []string{"r"}, Value: dec("1")},
				}},
			},
		}},
	}
	res, err := tr.LowerContract(contract)
	require.NoError(t, err)
	require.Equal(t, "Counter", res.Name)
	require.Len(t, res.Object.Objects, 1)
	require.Equal(t, "CounterRuntime", res.Object.Objects[0].Name)
	require.Len(t, res.Metadata.Methods, 1)
	require.Equal(t, "get", res.Metadata.Methods[0].Name)

	out := serializer.Print(res.Object)
	require.Contains(t, out, "object \"Counter\"")
	require.Contains(t, out, "__calldata_selector")
}

func TestLowerContractEmptyConstructorStillReturnsRuntime(t *testing.T) {
	tr := New(Options{BuiltinLevel: builtin.LevelMinimal})
	contract := &ast.Contract{Name: "Empty", Body: &ast.Block{}}
	res, err := tr.LowerContract(contract)
	require.NoError(t, err)
	require.NotNil(t, res.Object.Code)
}

// TestStructMemberLoweringPacksAndUnpacks exercises the btc_output{value,
// prefix, hash} scenario (widths 64/24/160): packing is big-endian within
// the word, so the first declared member lands at the top (shift 192) and
// later members follow it down (168, then 8).
func TestStructMemberLoweringPacksAndUnpacks(t *testing.T) {
	tr := New(Options{})
	root := &ast.Root{Statements: []ast.Node{
		&ast.StructDefinition{Name: "BtcOutput", Members: []ast.StructMember{
			{Type: ast.ABIType{Base: ast.ABIUint, Width: 64}, Name: "value"},
			{Type: ast.ABIType{Base: ast.ABIUint, Width: 24}, Name: "prefix"},
			{Type: ast.ABIType{Base: ast.ABIBytes, Width: 160}, Name: "hash"},
		}},
	}}
	require.NoError(t, tr.Declare(root))

	sc := tr.root.Child("function")
	shiftOf := func(member string) int {
		read := tr.lowerMemberRead(&ast.MemberIdentifier{BaseName: "packed", Cast: "BtcOutput", Member: member}, sc)
		fc, ok := read.(*ast.FunctionCall)
		require.True(t, ok)
		require.Equal(t, "and", fc.Name)
		shr, ok := fc.Args[0].(*ast.FunctionCall)
		require.True(t, ok)
		require.Equal(t, "shr", shr.Name)
		lit, ok := shr.Args[0].(*ast.Literal)
		require.True(t, ok)
		n, err := strconv.Atoi(lit.Value)
		require.NoError(t, err)
		return n
	}
	require.Equal(t, 192, shiftOf("value"))
	require.Equal(t, 168, shiftOf("prefix"))
	require.Equal(t, 8, shiftOf("hash"))
}
