// Package abi computes ABI selectors, event topics, and the JSON interface
// document the compiler emits alongside the transformed Yul (spec §5). Shapes
// are grounded on the teacher's ContractMethod/ContractEvent/ContractMetadata
// (neovm_types.go); selector/topic hashing follows the keccak usage shown in
// the tronlib and coreth example files (golang.org/x/crypto/sha3).
package abi

import (
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/crypto/sha3"

	"github.com/warpdex/jul/ast"
)

// TypeName renders an ABIType in its canonical ABI form, collapsing the
// bare "uint"/"int" aliases to their 256-bit spelling.
func TypeName(t ast.ABIType) string {
	var base string
	switch t.Base {
	case ast.ABIUint:
		base = fmt.Sprintf("uint%d", orDefault(t.Width, 256))
	case ast.ABIInt:
		base = fmt.Sprintf("int%d", orDefault(t.Width, 256))
	case ast.ABIAddress:
		base = "address"
	case ast.ABIBool:
		base = "bool"
	case ast.ABIString:
		base = "string"
	case ast.ABIBytes:
		if t.Width > 0 {
			base = fmt.Sprintf("bytes%d", t.Width/8)
		} else {
			base = "bytes"
		}
	case ast.ABIFunction:
		base = "function"
	default:
		base = string(t.Base)
	}
	if t.Array {
		base += "[]"
	}
	return base
}

func orDefault(n, def int) int {
	if n == 0 {
		return def
	}
	return n
}

// Signature renders `name(type1,type2)`, the preimage for selector/topic
// hashing (no parameter names, no spaces -- the canonical ABI form).
func Signature(name string, params []ast.Param) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = TypeName(p.Type)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(types, ","))
}

// EventSignature is the Signature equivalent for event parameters, which
// carry an Indexed flag that does not affect the signature text.
func EventSignature(name string, params []ast.EventParam) string {
	types := make([]string, len(params))
	for i, p := range params {
		types[i] = TypeName(p.Type)
	}
	return fmt.Sprintf("%s(%s)", name, strings.Join(types, ","))
}

// Keccak256 is the single place this module touches a cryptographic
// primitive, and only as an opaque digest: callers never depend on its
// internals, only on its fixed 32-byte output.
func Keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Selector is the first 4 bytes of keccak256(signature) -- a method's
// dispatch selector.
func Selector(signature string) [4]byte {
	d := Keccak256([]byte(signature))
	var sel [4]byte
	copy(sel[:], d[:4])
	return sel
}

// Topic0 is the full 32-byte keccak256(signature) used as an event's first
// (non-anonymous) log topic.
func Topic0(signature string) [32]byte {
	return Keccak256([]byte(signature))
}

// Method mirrors the teacher's ContractMethod, generalized to plain-Yul
// dispatch (no bytecode offset; Selector is the 4-byte method ID the
// generated `method.select()` switch compares against).
type Method struct {
	Type        string  `json:"type"` // "function", "constructor", "receive", or "fallback"
	Name        string  `json:"name,omitempty"`
	Selector    [4]byte `json:"-"`
	SelectorHex string  `json:"selector,omitempty"`
	Inputs      []Param `json:"inputs,omitempty"`
	Outputs     []Param `json:"outputs,omitempty"`
	Visibility  string  `json:"stateMutability"`
	Payable     bool    `json:"-"`
}

// Param mirrors MethodParameter/EventParameter, unified since both only
// differ by the optional Indexed flag.
type Param struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Indexed bool   `json:"indexed,omitempty"`
}

// Event mirrors the teacher's ContractEvent.
type Event struct {
	Type      string  `json:"type"` // always "event"
	Name      string  `json:"name"`
	Signature string  `json:"signature"`
	Topic0Hex string  `json:"topic0,omitempty"`
	Inputs    []Param `json:"inputs"`
	Anonymous bool    `json:"anonymous"`
}

// Error is a custom Solidity-style error declaration.
type Error struct {
	Type        string  `json:"type"` // always "error"
	Name        string  `json:"name"`
	SelectorHex string  `json:"selector"`
	Inputs      []Param `json:"inputs"`
}

// Metadata is the JSON document collected per contract (spec §5's
// "ABI metadata collector"), shaped after the teacher's ContractMetadata.
// Constructor/Receive/Fallback are nil when the contract declares none,
// keeping the document's "type" discriminator meaningful the way the
// standard Solidity ABI JSON array does.
type Metadata struct {
	Contract    string   `json:"contract"`
	License     string   `json:"license,omitempty"`
	Methods     []Method `json:"methods"`
	Events      []Event  `json:"events"`
	Errors      []Error  `json:"errors"`
	Constructor *Method  `json:"constructor,omitempty"`
	Receive     *Method  `json:"receive,omitempty"`
	Fallback    *Method  `json:"fallback,omitempty"`
	Digest      string   `json:"digest,omitempty"`
}

// ToJSON renders the metadata document with 2-space indentation, matching
// the Serializer's own canonical pretty-printing convention.
func (m Metadata) ToJSON() ([]byte, error) {
	return json.MarshalIndent(m, "", "  ")
}

// HumanReadableSignatures renders every method/event/error as a Solidity-ish
// one-liner (`function transfer(address to, uint256 amount) external nonpayable returns ()`) --
// a supplemented feature for quick interface review without a full ABI
// JSON parse.
func (m Metadata) HumanReadableSignatures() []string {
	var out []string
	for _, meth := range m.Methods {
		out = append(out, fmt.Sprintf("function %s(%s) external %s returns (%s)",
			meth.Name, joinParams(meth.Inputs), meth.Visibility, joinParams(meth.Outputs)))
	}
	for _, ev := range m.Events {
		out = append(out, fmt.Sprintf("event %s(%s)", ev.Name, joinParams(ev.Inputs)))
	}
	for _, er := range m.Errors {
		out = append(out, fmt.Sprintf("error %s(%s)", er.Name, joinParams(er.Inputs)))
	}
	return out
}

func joinParams(params []Param) string {
	parts := make([]string, len(params))
	for i, p := range params {
		if p.Indexed {
			parts[i] = fmt.Sprintf("%s indexed %s", p.Type, p.Name)
		} else if p.Name != "" {
			parts[i] = fmt.Sprintf("%s %s", p.Type, p.Name)
		} else {
			parts[i] = p.Type
		}
	}
	return strings.Join(parts, ", ")
}

// InterfaceStub renders a minimal Solidity `interface` block exposing this
// contract's external surface -- a supplemented feature useful for wiring
// the output into an external Solidity toolchain without hand-transcribing
// the ABI JSON.
func (m Metadata) InterfaceStub() string {
	var b strings.Builder
	fmt.Fprintf(&b, "interface I%s {\n", m.Contract)
	for _, ev := range m.Events {
		fmt.Fprintf(&b, "    event %s(%s);\n", ev.Name, joinParams(ev.Inputs))
	}
	for _, er := range m.Errors {
		fmt.Fprintf(&b, "    error %s(%s);\n", er.Name, joinParams(er.Inputs))
	}
	for _, meth := range m.Methods {
		fmt.Fprintf(&b, "    function %s(%s) external %s returns (%s);\n",
			meth.Name, joinParams(meth.Inputs), meth.Visibility, joinParams(meth.Outputs))
	}
	b.WriteString("}\n")
	return b.String()
}

func hex4(b [4]byte) string {
	return "0x" + fmt.Sprintf("%02x%02x%02x%02x", b[0], b[1], b[2], b[3])
}

func hex32(b [32]byte) string {
	var sb strings.Builder
	sb.WriteString("0x")
	for _, c := range b {
		fmt.Fprintf(&sb, "%02x", c)
	}
	return sb.String()
}
