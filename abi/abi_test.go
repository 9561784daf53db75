package abi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/warpdex/jul/ast"
)

func TestTypeNameCollapsesBareUintInt(t *testing.T) {
	require.Equal(t, "uint256", TypeName(ast.ABIType{Base: ast.ABIUint}))
	require.Equal(t, "int256", TypeName(ast.ABIType{Base: ast.ABIInt}))
	require.Equal(t, "uint64", TypeName(ast.ABIType{Base: ast.ABIUint, Width: 64}))
	require.Equal(t, "bytes20", TypeName(ast.ABIType{Base: ast.ABIBytes, Width: 160}))
	require.Equal(t, "bytes", TypeName(ast.ABIType{Base: ast.ABIBytes}))
	require.Equal(t, "address[]", TypeName(ast.ABIType{Base: ast.ABIAddress, Array: true}))
}

func TestSignatureMatchesERC20TransferSelector(t *testing.T) {
	sig := Signature("transfer", []ast.Param{
		{Type: ast.ABIType{Base: ast.ABIAddress}},
		{Type: ast.ABIType{Base: ast.ABIUint}},
	})
	require.Equal(t, "transfer(address,uint256)", sig)
	sel := Selector(sig)
	require.Equal(t, "0xa9059cbb", hex4(sel))
}

func TestTopic0MatchesWellKnownTransferEvent(t *testing.T) {
	sig := EventSignature("Transfer", []ast.EventParam{
		{Type: ast.ABIType{Base: ast.ABIAddress}, Indexed: true},
		{Type: ast.ABIType{Base: ast.ABIAddress}, Indexed: true},
		{Type: ast.ABIType{Base: ast.ABIUint}},
	})
	require.Equal(t, "Transfer(address,address,uint256)", sig)
	topic := Topic0(sig)
	require.Equal(t, "0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef", hex32(topic))
}

func TestCollectorRejectsDuplicateMethodName(t *testing.T) {
	c := NewCollector("Token")
	_, err := c.AddMethod(&ast.MethodDecl{Name: "transfer", Params: []ast.Param{{Type: ast.ABIType{Base: ast.ABIAddress}}}})
	require.NoError(t, err)
	_, err = c.AddMethod(&ast.MethodDecl{Name: "transfer", Params: []ast.Param{{Type: ast.ABIType{Base: ast.ABIAddress}}}})
	require.Error(t, err)
}

func TestCollectorRejectsSelectorCollision(t *testing.T) {
	c := NewCollector("Contract")
	_, err := c.AddMethod(&ast.MethodDecl{Name: "burn", Params: []ast.Param{
		{Type: ast.ABIType{Base: ast.ABIUint}},
	}})
	require.NoError(t, err)
	// burn(uint256) and collate_propagate_storage(bytes16) are a known
	// real-world pair with the same 4-byte selector (0x42966c68), so the
	// second add reaches the selector check rather than the name check.
	_, err = c.AddMethod(&ast.MethodDecl{Name: "collate_propagate_storage", Params: []ast.Param{
		{Type: ast.ABIType{Base: ast.ABIBytes, Width: 128}},
	}})
	require.Error(t, err)
}

func TestFinishSortsByNameAndComputesDigest(t *testing.T) {
	c := NewCollector("Token")
	_, err := c.AddMethod(&ast.MethodDecl{Name: "totalSupply"})
	require.NoError(t, err)
	_, err = c.AddMethod(&ast.MethodDecl{Name: "balanceOf", Params: []ast.Param{{Type: ast.ABIType{Base: ast.ABIAddress}}}})
	require.NoError(t, err)

	meta := c.Finish([]SourceFile{{Name: "token.jul", Contents: "contract Token {}"}})
	require.Len(t, meta.Methods, 2)
	require.Equal(t, "balanceOf", meta.Methods[0].Name)
	require.Equal(t, "totalSupply", meta.Methods[1].Name)
	require.NotEmpty(t, meta.Digest)
}

func TestHumanReadableSignaturesAndInterfaceStub(t *testing.T) {
	c := NewCollector("Token")
	_, err := c.AddMethod(&ast.MethodDecl{
		Name:       "balanceOf",
		Params:     []ast.Param{{Type: ast.ABIType{Base: ast.ABIAddress}, Name: "who"}},
		Returns:    []ast.ABIType{{Base: ast.ABIUint}},
		Mutability: ast.MutabilityView,
	})
	require.NoError(t, err)
	meta := c.Finish(nil)

	sigs := meta.HumanReadableSignatures()
	require.Contains(t, sigs[0], "function balanceOf(address who) external view returns (uint256)")

	stub := meta.InterfaceStub()
	require.Contains(t, stub, "interface IToken {")
	require.Contains(t, stub, "function balanceOf(address who) external view returns (uint256);")
}
