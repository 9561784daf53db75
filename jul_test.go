package jul

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const counterSource = `pragma solc ">=0.8.0"

contract Counter {
    method get() external view returns (uint256) {
        mstore(0, 42)
        return(0, 32)
    }
}
`

func TestCompileProducesYulAndMetadata(t *testing.T) {
	p := NewPipeline(Config{})
	outs, err := p.Compile([]Source{{Name: "counter.jul", Text: counterSource}})
	require.NoError(t, err)
	require.Len(t, outs, 1)

	out := outs[0]
	require.Equal(t, "Counter", out.Name)
	require.Contains(t, out.Yul, "object \"Counter\"")
	require.Contains(t, out.Yul, "__method_get")
	require.Len(t, out.Metadata.Methods, 1)
	require.Equal(t, "get", out.Metadata.Methods[0].Name)
}

func TestCompileRejectsUnparseableSource(t *testing.T) {
	p := NewPipeline(Config{})
	_, err := p.Compile([]Source{{Name: "bad.jul", Text: "contract {"}})
	require.Error(t, err)
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
}

func TestCompileRejectsNoContracts(t *testing.T) {
	p := NewPipeline(Config{})
	_, err := p.Compile([]Source{{Name: "empty.jul", Text: "pragma license \"MIT\"\n"}})
	require.Error(t, err)
	var rerr *ResolutionError
	require.ErrorAs(t, err, &rerr)
}

func TestCompileWithMetadataDigestIsStable(t *testing.T) {
	cfg := Config{EmitMetadataDigest: true}
	p := NewPipeline(cfg)
	sources := []Source{{Name: "counter.jul", Text: counterSource}}

	out1, err := p.Compile(sources)
	require.NoError(t, err)
	out2, err := p.Compile(sources)
	require.NoError(t, err)
	require.NotEmpty(t, out1[0].Metadata.Digest)
	require.Equal(t, out1[0].Metadata.Digest, out2[0].Metadata.Digest)
}
