package transform

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/warpdex/jul/ast"
	"github.com/warpdex/jul/scope"
)

// lowerIntrinsic recognizes the dialect's dotted/bare builtin-namespace
// calls that aren't plain Yul opcodes -- sizeof/bitsof/offsetof against a
// registered struct, defined/undefined against macro/const declarations,
// the boolean-logic helpers, and the compile-time hash intrinsics -- and
// rewrites each to its plain-Yul expansion. Returns nil when name isn't one
// of these, letting the caller fall through to ordinary constant folding.
func (t *Transformer) lowerIntrinsic(name string, args []ast.Node, sc *scope.Scope) ast.Node {
	switch name {
	case "sizeof":
		return t.structIntConst(args, func(width int) int { return width / 8 })
	case "bitsof":
		return t.structIntConst(args, func(width int) int { return width })
	case "offsetof":
		return t.offsetOfConst(args)
	case "defined":
		return boolLit(t.isDefined(args))
	case "undefined":
		return boolLit(!t.isDefined(args))
	case "andl":
		return logicalFold(args, true)
	case "orl":
		return logicalFold(args, false)
	case "notl":
		if len(args) != 1 {
			return nil
		}
		return &ast.FunctionCall{Name: "iszero", Args: args}
	case "bool":
		if len(args) != 1 {
			return nil
		}
		return &ast.FunctionCall{Name: "iszero", Args: []ast.Node{&ast.FunctionCall{Name: "iszero", Args: args}}}
	case "require.nonzero":
		return requireGuard(args, "__builtin_panic", sc)
	case "assert":
		return requireGuard(args, "__builtin_panic", sc)
	case "hash.keccak256":
		return t.foldHash(args)
	default:
		return nil
	}
}

func boolLit(v bool) *ast.Literal {
	if v {
		return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "1"}
	}
	return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"}
}

func (t *Transformer) isDefined(args []ast.Node) bool {
	if len(args) != 1 {
		return false
	}
	id, ok := args[0].(*ast.Identifier)
	if !ok {
		return false
	}
	if id.Value == "EVM_VERSION" {
		return true
	}
	if _, ok := t.macroConst[id.Value]; ok {
		return true
	}
	if _, ok := t.consts[id.Value]; ok {
		return true
	}
	return false
}

func (t *Transformer) structName(args []ast.Node) (string, bool) {
	if len(args) == 0 {
		return "", false
	}
	id, ok := args[0].(*ast.Identifier)
	if !ok {
		return "", false
	}
	return id.Value, true
}

func (t *Transformer) structIntConst(args []ast.Node, f func(int) int) ast.Node {
	typeName, ok := t.structName(args)
	if !ok {
		return nil
	}
	def, ok := t.structs[typeName]
	if !ok {
		return nil
	}
	total := 0
	for _, mem := range def.Members {
		total += abiWidthBits(mem.Type)
	}
	return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", f(total))}
}

func (t *Transformer) offsetOfConst(args []ast.Node) ast.Node {
	if len(args) != 2 {
		return nil
	}
	typeName, ok := t.structName(args)
	if !ok {
		return nil
	}
	memberID, ok := args[1].(*ast.Identifier)
	if !ok {
		return nil
	}
	def, ok := t.structs[typeName]
	if !ok {
		return nil
	}
	offset := 0
	for _, mem := range def.Members {
		if mem.Name == memberID.Value {
			return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: fmt.Sprintf("%d", offset)}
		}
		offset += abiWidthBits(mem.Type)
	}
	return nil
}

// logicalFold short-circuits andl/orl when every argument is a literal
// (spec's constant-folding rule applies equally to the boolean-logic
// intrinsics); otherwise builds the nested-iszero encoding the dialect
// compiles these down to.
func logicalFold(args []ast.Node, and bool) ast.Node {
	if len(args) == 0 {
		return boolLit(and)
	}
	allLit := true
	for _, a := range args {
		if _, ok := a.(*ast.Literal); !ok {
			allLit = false
			break
		}
	}
	if allLit {
		result := and
		for _, a := range args {
			truthy := a.(*ast.Literal).Value != "0"
			if and {
				result = result && truthy
			} else {
				result = result || truthy
			}
		}
		return boolLit(result)
	}
	opName := "or"
	if and {
		opName = "and"
	}
	bools := make([]ast.Node, len(args))
	for i, a := range args {
		bools[i] = &ast.FunctionCall{Name: "iszero", Args: []ast.Node{&ast.FunctionCall{Name: "iszero", Args: []ast.Node{a}}}}
	}
	acc := bools[0]
	for _, b := range bools[1:] {
		acc = &ast.FunctionCall{Name: opName, Args: []ast.Node{acc, b}}
	}
	return acc
}

// requireGuard expands `require.nonzero(cond, code)`/`assert(cond)` into an
// `if iszero(cond) { <panic> }` guard, registering panicFn as a dependency
// so it gets materialized into the enclosing contract's function set
// (spec's "Built-in intrinsics"/"Dependency materialisation"). panicFn
// always takes exactly one panic-code argument, matching the standard
// Solidity Panic(uint256) encoding; a bare `assert(cond)` supplies the
// generic assertion-failure code (0x01) when the caller gave no explicit
// one.
func requireGuard(args []ast.Node, panicFn string, sc *scope.Scope) ast.Node {
	if len(args) == 0 {
		return nil
	}
	cond := args[0]
	code := ast.Node(&ast.Literal{Subtype: ast.LitHexNumber, Value: "0x01"})
	if len(args) > 1 {
		code = args[1]
	}
	sc.DependsOn(panicFn)
	return &ast.If{
		Condition: &ast.FunctionCall{Name: "iszero", Args: []ast.Node{cond}},
		Body:      block(&ast.FunctionCall{Name: panicFn, Args: []ast.Node{code}}),
	}
}

// foldHash computes keccak256 at compile time when the call's only argument
// is a string literal (spec's compile-time hash folding). Any other call,
// including one over a hex literal, is not folded: foldHash returns nil and
// the call passes through unchanged under its own `hash.keccak256` name; it
// is not rewritten to the `keccak256` opcode.
func (t *Transformer) foldHash(args []ast.Node) ast.Node {
	if len(args) != 1 {
		return nil
	}
	lit, ok := args[0].(*ast.Literal)
	if !ok || lit.Subtype != ast.LitString {
		return nil
	}
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lit.Value))
	return &ast.Literal{Subtype: ast.LitHexNumber, Value: "0x" + hexEncode(h.Sum(nil))}
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	var sb strings.Builder
	for _, c := range b {
		sb.WriteByte(digits[c>>4])
		sb.WriteByte(digits[c&0xf])
	}
	return sb.String()
}
