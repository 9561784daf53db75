// Package builtin holds the gas-annotated helper library the compiler
// preloads ahead of user source (spec §9), plain Yul written in this
// dialect's own extended syntax so it goes through the same lexer/parser/
// transform pipeline as everything else, never hand-emitted as raw text.
package builtin

import (
	"fmt"

	"github.com/warpdex/jul/ast"
	"github.com/warpdex/jul/parser"
)

// Level selects how much of the preload library is pulled in; spec §9 keeps
// this configurable so a contract that never uses e.g. fixed-point math
// does not pay for parsing and potential dependency materialization of that
// section.
type Level int

const (
	// LevelMinimal preloads only the helpers the transformer itself
	// synthesizes calls to unconditionally (revert/require plumbing).
	LevelMinimal Level = iota
	// LevelStandard additionally preloads safe-math and bit-packing helpers.
	LevelStandard
	// LevelFull preloads the entire library, including the rarely used
	// fixed-point helpers kept mainly for parity with the reference
	// implementation's bundled library.
	LevelFull
)

// source holds one named snippet of the preload library at the level it
// first becomes available.
type source struct {
	name  string
	level Level
	text  string
}

var sources = []source{
	{"panic", LevelMinimal, `
function __builtin_panic(code) noinline {
    mstore(0, 0x4e487b7100000000000000000000000000000000000000000000000000000000)
    mstore(4, code)
    revert(0, 0x24)
}
`},
	{"require", LevelMinimal, `
function __builtin_require(cond) noinline {
    if iszero(cond) { revert(0, 0) }
}
`},
	{"safemath", LevelStandard, `
function __builtin_add_checked(a, b) noinline -> result {
    result := add(a, b)
    if lt(result, a) { __builtin_panic(0x11) }
}

function __builtin_sub_checked(a, b) noinline -> result {
    if lt(a, b) { __builtin_panic(0x11) }
    result := sub(a, b)
}

function __builtin_mul_checked(a, b) noinline -> result {
    result := mul(a, b)
    if and(iszero(iszero(a)), iszero(eq(div(result, a), b))) { __builtin_panic(0x11) }
}
`},
	{"bitpack", LevelStandard, `
function __builtin_mask(bits) noinline -> m {
    m := sub(shl(bits, 1), 1)
}

function __builtin_extract(word, offsetBits, widthBits) noinline -> value {
    value := and(shr(offsetBits, word), __builtin_mask(widthBits))
}

function __builtin_pack(word, offsetBits, widthBits, value) noinline -> result {
    let cleared := and(word, not(shl(offsetBits, __builtin_mask(widthBits))))
    result := or(cleared, shl(offsetBits, and(value, __builtin_mask(widthBits))))
}
`},
	{"abi_decode", LevelStandard, `
function __builtin_calldata_uint(offset) noinline -> value {
    value := calldataload(offset)
}

function __builtin_calldata_address(offset) noinline -> value {
    value := and(calldataload(offset), 0xffffffffffffffffffffffffffffffffffffffff)
}

function __builtin_calldata_bool(offset) noinline -> value {
    value := iszero(iszero(calldataload(offset)))
}
`},
	{"fixedpoint", LevelFull, `
function __builtin_fp_mul(a, b, scale) noinline -> result {
    result := div(__builtin_mul_checked(a, b), scale)
}

function __builtin_fp_div(a, b, scale) noinline -> result {
    result := div(__builtin_mul_checked(a, scale), b)
}
`},
}

// Source concatenates every snippet available at or below level, in
// declaration order, as a single compilation unit ready for the parser.
func Source(level Level) string {
	var out string
	for _, s := range sources {
		if s.level <= level {
			out += s.text
		}
	}
	return out
}

// Parse preloads and parses the builtin library at level, returning its
// function definitions ready to be merged into the root scope ahead of
// user source.
func Parse(level Level) ([]*ast.FunctionDef, error) {
	root, err := parser.Parse("<builtin>", Source(level))
	if err != nil {
		return nil, fmt.Errorf("parsing builtin library: %w", err)
	}
	var defs []*ast.FunctionDef
	for _, stmt := range root.Statements {
		if fn, ok := stmt.(*ast.FunctionDef); ok {
			fn.Builtin = true
			defs = append(defs, fn)
		}
	}
	return defs, nil
}
