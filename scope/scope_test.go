package scope

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpdex/jul/ast"
)

func ident(name string) *ast.Identifier {
	return &ast.Identifier{Value: name}
}

func TestDefineAndLookup(t *testing.T) {
	root := New()
	require.NoError(t, root.Define(KindConst, "FOO", ident("FOO")))

	n, ok := root.Lookup(KindConst, "FOO")
	require.True(t, ok)
	require.Equal(t, "FOO", n.(*ast.Identifier).Value)
}

func TestRedefinitionInSameScopeErrors(t *testing.T) {
	root := New()
	require.NoError(t, root.Define(KindMacro, "M", ident("M")))
	err := root.Define(KindMacro, "M", ident("M"))
	require.Error(t, err)
}

func TestChildScopeShadowsParent(t *testing.T) {
	root := New()
	require.NoError(t, root.Define(KindVar, "x", ident("outer")))

	child := root.Child("block")
	require.NoError(t, child.Define(KindVar, "x", ident("inner")))

	n, ok := child.Lookup(KindVar, "x")
	require.True(t, ok)
	require.Equal(t, "inner", n.(*ast.Identifier).Value)

	n, ok = root.Lookup(KindVar, "x")
	require.True(t, ok)
	require.Equal(t, "outer", n.(*ast.Identifier).Value)
}

func TestLookupMissesPropagateToNil(t *testing.T) {
	root := New()
	_, ok := root.Lookup(KindFunc, "nope")
	require.False(t, ok)
}

func TestCalldataContextInheritsToChildren(t *testing.T) {
	root := New()
	require.False(t, root.InCalldataContext())

	fn := root.EnterCalldataContext()
	require.True(t, fn.InCalldataContext())

	block := fn.Child("block")
	require.True(t, block.InCalldataContext())
}

func TestDependencyAccumulatorsFlushToFunctionScope(t *testing.T) {
	root := New()
	fn := root.Child("function")
	block := fn.Child("block")

	block.DependsOn("helper")
	block.TouchesData("Runtime")
	block.ReadsImmutable("OWNER")

	funcs, data, immutables := fn.Dependencies()
	require.ElementsMatch(t, []string{"helper"}, funcs)
	require.ElementsMatch(t, []string{"Runtime"}, data)
	require.ElementsMatch(t, []string{"OWNER"}, immutables)

	rootFuncs, _, _ := root.Dependencies()
	require.Empty(t, rootFuncs)
}

func TestFindObjectAndContractScope(t *testing.T) {
	root := New()
	obj := root.Child("object")
	contract := obj.Child("contract")
	fn := contract.Child("function")

	require.Equal(t, obj, fn.FindObjectScope())
	require.Equal(t, contract, fn.FindContractScope())
	require.Nil(t, root.FindObjectScope())
}

func TestLookupAnyPrecedenceVarBeforeFunc(t *testing.T) {
	root := New()
	require.NoError(t, root.Define(KindFunc, "n", ident("fn")))
	require.NoError(t, root.Define(KindVar, "n", ident("var")))

	kind, _, ok := root.LookupAny("n")
	require.True(t, ok)
	require.Equal(t, KindVar, kind)
}
