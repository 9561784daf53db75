package builtin

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSourceLevelsAreCumulative(t *testing.T) {
	minimal := Source(LevelMinimal)
	standard := Source(LevelStandard)
	full := Source(LevelFull)

	require.Contains(t, minimal, "__builtin_panic")
	require.NotContains(t, minimal, "__builtin_add_checked")

	require.Contains(t, standard, "__builtin_add_checked")
	require.NotContains(t, standard, "__builtin_fp_mul")

	require.Contains(t, full, "__builtin_fp_mul")
}

func TestParseProducesFunctionDefs(t *testing.T) {
	defs, err := Parse(LevelStandard)
	require.NoError(t, err)
	require.NotEmpty(t, defs)

	names := map[string]bool{}
	for _, d := range defs {
		names[d.Name] = true
		require.True(t, d.Builtin)
		require.True(t, d.NoInline)
	}
	require.True(t, names["__builtin_panic"])
	require.True(t, names["__builtin_add_checked"])
	require.False(t, names["__builtin_fp_mul"])
}

func TestParseFullLevelIncludesEverything(t *testing.T) {
	defs, err := Parse(LevelFull)
	require.NoError(t, err)

	var found bool
	for _, d := range defs {
		if d.Name == "__builtin_fp_div" {
			found = true
		}
	}
	require.True(t, found)
}
