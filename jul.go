// Package jul is the compiler's library surface: it wires the
// lexer/parser/scope/transform/serializer/abi packages into a single
// Compile call, the way the teacher's Compiler type orchestrates its own
// phased pipeline (compiler.go) -- generalized from one bytecode-emitting
// pipeline into one text-to-text lowering pipeline with no backend.
package jul

import (
	"fmt"
	"io"
	"log"

	"github.com/warpdex/jul/abi"
	"github.com/warpdex/jul/ast"
	"github.com/warpdex/jul/builtin"
	"github.com/warpdex/jul/parser"
	"github.com/warpdex/jul/serializer"
	"github.com/warpdex/jul/transform"
)

// Config configures one compilation run (spec §6).
type Config struct {
	// HardFork names the EVM_VERSION macro's value; defaults to "cancun".
	HardFork string
	// BuiltinLevel selects how much of the gas-annotated builtin library is
	// preloaded ahead of user source.
	BuiltinLevel builtin.Level
	// SolcVersion/YulcVersion are this compiler's own advertised
	// solc/yulc-compatible versions, checked against `pragma solc "..."`/
	// `pragma yulc "..."` constraints in source.
	SolcVersion string
	YulcVersion string
	// EmitMetadataDigest, when true, includes a source-digest field in the
	// collected ABI metadata (spec's "metadata-digest" pragma flag).
	EmitMetadataDigest bool
	// Logger receives structured progress/diagnostic lines; defaults to a
	// discarding logger so library callers opt in explicitly.
	Logger *log.Logger
}

func (c Config) logger() *log.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return log.New(io.Discard, "", 0)
}

// Source is one named input file, in the order it should be parsed; a
// compilation unit's structs/interfaces/macros/enums/consts are shared
// across every Source the same Pipeline run processes.
type Source struct {
	Name string
	Text string
}

// Output is one contract's compiled result.
type Output struct {
	Name     string
	Yul      string
	Metadata abi.Metadata
}

// Pipeline runs one compilation: Lex/Parse -> Declare -> LowerContract ->
// Serialize, for every contract found across the given sources.
type Pipeline struct {
	cfg Config
}

// NewPipeline constructs a Pipeline for cfg.
func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{cfg: cfg}
}

// Compile parses and lowers every source file, returning one Output per
// contract declared anywhere in the unit (spec §4's end-to-end pipeline).
func (p *Pipeline) Compile(sources []Source) ([]Output, error) {
	logger := p.cfg.logger()

	roots := make([]*ast.Root, 0, len(sources)+1)
	if defs, err := builtin.Parse(p.cfg.BuiltinLevel); err != nil {
		return nil, &ParseError{File: "<builtin>", Err: err}
	} else {
		stmts := make([]ast.Node, len(defs))
		for i, d := range defs {
			stmts[i] = d
		}
		roots = append(roots, &ast.Root{Statements: stmts})
	}

	for _, src := range sources {
		logger.Printf("parsing %s", src.Name)
		root, err := parser.Parse(src.Name, src.Text)
		if err != nil {
			return nil, &ParseError{File: src.Name, Err: err}
		}
		roots = append(roots, root)
	}

	tr := transform.New(transform.Options{
		HardFork:     p.cfg.HardFork,
		BuiltinLevel: p.cfg.BuiltinLevel,
		SolcVersion:  p.cfg.SolcVersion,
		YulcVersion:  p.cfg.YulcVersion,
	})

	var contracts []*ast.Contract
	for _, root := range roots {
		for _, stmt := range root.Statements {
			if c, ok := stmt.(*ast.Contract); ok {
				contracts = append(contracts, c)
				continue
			}
		}
		if err := tr.Declare(root); err != nil {
			return nil, &ResolutionError{Err: err}
		}
	}

	if len(contracts) == 0 {
		return nil, &ResolutionError{Err: fmt.Errorf("no contract declarations found across %d source file(s)", len(sources))}
	}

	var digest string
	if p.cfg.EmitMetadataDigest {
		files := make([]abi.SourceFile, len(sources))
		for i, s := range sources {
			files[i] = abi.SourceFile{Name: s.Name, Contents: s.Text}
		}
		digest = abi.Digest(files)
	}

	var outputs []Output
	for _, c := range contracts {
		logger.Printf("lowering contract %s", c.Name)
		res, err := tr.LowerContract(c)
		if err != nil {
			return nil, &ResolutionError{Err: fmt.Errorf("contract %s: %w", c.Name, err)}
		}
		if digest != "" {
			res.Metadata.Digest = digest
		}
		outputs = append(outputs, Output{
			Name:     res.Name,
			Yul:      serializer.Print(res.Object),
			Metadata: res.Metadata,
		})
	}
	return outputs, nil
}
