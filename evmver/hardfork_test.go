package evmver

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOrdinalUnknownFork(t *testing.T) {
	_, err := Ordinal("nonexistent")
	require.Error(t, err)
}

func TestAtLeastOrdering(t *testing.T) {
	ok, err := AtLeast("cancun", "shanghai")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = AtLeast("byzantium", "london")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCheckPragmaSatisfied(t *testing.T) {
	require.NoError(t, CheckPragma("solc", ">=0.8.0 <0.9.0", "0.8.19"))
}

func TestCheckPragmaUnsatisfied(t *testing.T) {
	err := CheckPragma("solc", ">=0.8.0 <0.9.0", "0.7.6")
	require.Error(t, err)
}

func TestCheckPragmaBadConstraint(t *testing.T) {
	err := CheckPragma("yulc", "not-a-range", "1.0.0")
	require.Error(t, err)
}
