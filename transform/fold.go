package transform

import (
	"github.com/holiman/uint256"

	"github.com/warpdex/jul/ast"
)

// foldConstant applies the dialect's constant-folding rules to an
// already-argument-lowered plain Yul opcode call: the full 256-bit-EVM
// opcode set literal evaluation, the `iszero(lt/gt(x,L))` comparison
// rewrites, and arithmetic identity laws that hold even with a
// non-literal operand. Returns nil when call isn't foldable, leaving it
// for the serializer to render as-is.
func foldConstant(call *ast.FunctionCall) ast.Node {
	lits := asLiterals(call.Args)

	switch call.Name {
	case "add", "sub", "mul", "div", "sdiv", "mod", "smod",
		"and", "or", "xor", "exp", "shl", "shr", "sar", "signextend", "byte":
		if lits != nil && len(lits) == 2 {
			if v, ok := evalBinary(call.Name, lits[0], lits[1]); ok {
				return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: v.Dec()}
			}
		}
	case "addmod", "mulmod":
		if lits != nil && len(lits) == 3 {
			if v, ok := evalTernary(call.Name, lits[0], lits[1], lits[2]); ok {
				return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: v.Dec()}
			}
		}
	case "lt", "gt", "eq", "slt", "sgt":
		if lits != nil && len(lits) == 2 {
			if v, ok := evalCompare(call.Name, lits[0], lits[1]); ok {
				return boolLit(v)
			}
		}
	case "not":
		if lits != nil && len(lits) == 1 {
			out := new(uint256.Int).Not(lits[0])
			return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: out.Dec()}
		}
	case "iszero":
		if inner, ok := call.Args[0].(*ast.FunctionCall); ok && len(inner.Args) == 1 && inner.Name == "iszero" {
			return inner.Args[0] // iszero(iszero(x)) -> bool(x), kept as x for a condition context
		}
		if rewritten := rewriteIszeroComparison(call.Args[0]); rewritten != nil {
			return rewritten
		}
		if lits != nil && len(lits) == 1 {
			return boolLit(lits[0].Sign() == 0)
		}
	}

	// Identity laws that apply even with one non-literal operand.
	switch call.Name {
	case "add":
		if isZeroLit(call.Args[0]) {
			return call.Args[1]
		}
		if isZeroLit(call.Args[1]) {
			return call.Args[0]
		}
	case "mul":
		if isOneLit(call.Args[0]) {
			return call.Args[1]
		}
		if isOneLit(call.Args[1]) {
			return call.Args[0]
		}
		if isZeroLit(call.Args[0]) || isZeroLit(call.Args[1]) {
			return &ast.Literal{Subtype: ast.LitDecimalNumber, Value: "0"}
		}
	case "sub":
		if isZeroLit(call.Args[1]) {
			return call.Args[0]
		}
	case "or":
		if isZeroLit(call.Args[0]) {
			return call.Args[1]
		}
		if isZeroLit(call.Args[1]) {
			return call.Args[0]
		}
	case "shl", "shr", "sar":
		if isZeroLit(call.Args[0]) {
			return call.Args[1]
		}
	}

	return nil
}

// rewriteIszeroComparison implements `iszero(lt(x,L)) -> gt(x, L-1)` and its
// gt mirror `iszero(gt(x,L)) -> lt(x, L+1)`, skipping the rewrite when the
// replacement bound would wrap around 256-bit arithmetic.
func rewriteIszeroComparison(n ast.Node) ast.Node {
	fc, ok := n.(*ast.FunctionCall)
	if !ok || len(fc.Args) != 2 {
		return nil
	}
	lit, ok := fc.Args[1].(*ast.Literal)
	if !ok {
		return nil
	}
	v, err := parseLiteralUint(lit)
	if err != nil {
		return nil
	}
	switch fc.Name {
	case "lt":
		if v.IsZero() {
			return nil // L-1 would underflow
		}
		bound := new(uint256.Int).Sub(v, uint256.NewInt(1))
		return &ast.FunctionCall{Name: "gt", Args: []ast.Node{fc.Args[0], &ast.Literal{Subtype: ast.LitDecimalNumber, Value: bound.Dec()}}}
	case "gt":
		sum := new(uint256.Int)
		if _, overflow := sum.AddOverflow(v, uint256.NewInt(1)); overflow {
			return nil // L+1 would overflow
		}
		return &ast.FunctionCall{Name: "lt", Args: []ast.Node{fc.Args[0], &ast.Literal{Subtype: ast.LitDecimalNumber, Value: sum.Dec()}}}
	default:
		return nil
	}
}

func isZeroLit(n ast.Node) bool {
	l, ok := n.(*ast.Literal)
	return ok && l.Subtype == ast.LitDecimalNumber && l.Value == "0"
}

func isOneLit(n ast.Node) bool {
	l, ok := n.(*ast.Literal)
	return ok && l.Subtype == ast.LitDecimalNumber && l.Value == "1"
}

// asLiterals returns the decoded uint256 value of every arg when all of
// them are plain decimal/hex number literals, or nil otherwise.
func asLiterals(args []ast.Node) []*uint256.Int {
	out := make([]*uint256.Int, len(args))
	for i, a := range args {
		l, ok := a.(*ast.Literal)
		if !ok || (l.Subtype != ast.LitDecimalNumber && l.Subtype != ast.LitHexNumber) {
			return nil
		}
		v, err := parseLiteralUint(l)
		if err != nil {
			return nil
		}
		out[i] = v
	}
	return out
}

func parseLiteralUint(l *ast.Literal) (*uint256.Int, error) {
	v := new(uint256.Int)
	if l.Subtype == ast.LitHexNumber {
		err := v.SetFromHex(l.Value)
		return v, err
	}
	err := v.SetFromDecimal(l.Value)
	return v, err
}

func evalBinary(op string, a, b *uint256.Int) (*uint256.Int, bool) {
	out := new(uint256.Int)
	switch op {
	case "add":
		out.Add(a, b)
	case "sub":
		out.Sub(a, b)
	case "mul":
		out.Mul(a, b)
	case "div":
		if b.IsZero() {
			return nil, false
		}
		out.Div(a, b)
	case "sdiv":
		if b.IsZero() {
			return nil, false
		}
		out.SDiv(a, b)
	case "mod":
		if b.IsZero() {
			return nil, false
		}
		out.Mod(a, b)
	case "smod":
		if b.IsZero() {
			return nil, false
		}
		out.SMod(a, b)
	case "and":
		out.And(a, b)
	case "or":
		out.Or(a, b)
	case "xor":
		out.Xor(a, b)
	case "exp":
		out.Exp(a, b)
	case "shl":
		if !a.IsUint64() || a.Uint64() > 256 {
			return nil, false
		}
		out.Lsh(b, uint(a.Uint64()))
	case "shr":
		if !a.IsUint64() || a.Uint64() > 256 {
			return nil, false
		}
		out.Rsh(b, uint(a.Uint64()))
	case "sar":
		if !a.IsUint64() || a.Uint64() > 256 {
			return nil, false
		}
		out.SRsh(b, uint(a.Uint64()))
	case "signextend":
		out.ExtendSign(b, a)
	case "byte":
		out.Byte(a, b)
	default:
		return nil, false
	}
	return out, true
}

func evalTernary(op string, a, b, n *uint256.Int) (*uint256.Int, bool) {
	if n.IsZero() {
		return nil, false
	}
	out := new(uint256.Int)
	switch op {
	case "addmod":
		out.AddMod(a, b, n)
	case "mulmod":
		out.MulMod(a, b, n)
	default:
		return nil, false
	}
	return out, true
}

func evalCompare(op string, a, b *uint256.Int) (bool, bool) {
	switch op {
	case "lt":
		return a.Lt(b), true
	case "gt":
		return a.Gt(b), true
	case "eq":
		return a.Eq(b), true
	case "slt":
		return a.Slt(b), true
	case "sgt":
		return a.Sgt(b), true
	default:
		return false, false
	}
}
