package abi

import (
	"crypto/sha256"
	"fmt"
	"sort"

	"github.com/warpdex/jul/ast"
)

// Collector accumulates a contract's ABI surface while the transformer
// walks its Interface/Contract declarations, rejecting name and selector
// collisions as it goes (spec §5's "per-contract uniqueness checks").
type Collector struct {
	contract    string
	license     string
	methods     []Method
	events      []Event
	errors      []Error
	constructor *Method
	receive     *Method
	fallback    *Method

	names     map[string]bool // "method:Name", "event:Name", "error:Name"
	selectors map[string]bool // "method:0xaabbccdd", "error:0xaabbccdd", "event:0x<topic0>"
}

// NewCollector starts a fresh ABI collection for one contract.
func NewCollector(contract string) *Collector {
	return &Collector{
		contract:  contract,
		names:     make(map[string]bool),
		selectors: make(map[string]bool),
	}
}

func toParams(ps []ast.Param) []Param {
	out := make([]Param, len(ps))
	for i, p := range ps {
		out[i] = Param{Name: p.Name, Type: TypeName(p.Type)}
	}
	return out
}

// AddMethod registers a method declaration, returning an error if its name
// or computed 4-byte selector collides with a method already collected.
func (c *Collector) AddMethod(decl *ast.MethodDecl) (Method, error) {
	if c.names["method:"+decl.Name] {
		return Method{}, fmt.Errorf("duplicate method name %q", decl.Name)
	}
	sel := Selector(Signature(decl.Name, decl.Params))
	selKey := fmt.Sprintf("method:%s", hex4(sel))
	if c.selectors[selKey] {
		return Method{}, fmt.Errorf("method %q selector %s collides with a previously declared method", decl.Name, hex4(sel))
	}
	outputs := make([]Param, len(decl.Returns))
	for i, t := range decl.Returns {
		outputs[i] = Param{Type: TypeName(t)}
	}
	m := Method{
		Type:        "function",
		Name:        decl.Name,
		Selector:    sel,
		SelectorHex: hex4(sel),
		Inputs:      toParams(decl.Params),
		Outputs:     outputs,
		Visibility:  string(decl.Mutability),
		Payable:     decl.Mutability == ast.MutabilityPayable,
	}
	c.names["method:"+decl.Name] = true
	c.selectors[selKey] = true
	c.methods = append(c.methods, m)
	return m, nil
}

// AddEvent registers an event declaration. Event names are not selector
// namespaced against methods, but topic0 values (derived from the full
// 32-byte keccak digest) still must not collide within the contract.
func (c *Collector) AddEvent(decl *ast.EventDecl) (Event, error) {
	if c.names["event:"+decl.Name] {
		return Event{}, fmt.Errorf("duplicate event name %q", decl.Name)
	}
	sig := EventSignature(decl.Name, decl.Params)
	inputs := make([]Param, len(decl.Params))
	for i, p := range decl.Params {
		inputs[i] = Param{Name: p.Name, Type: TypeName(p.Type), Indexed: p.Indexed}
	}
	e := Event{Type: "event", Name: decl.Name, Signature: sig, Inputs: inputs, Anonymous: decl.Anonymous}
	if !decl.Anonymous {
		e.Topic0Hex = hex32(Topic0(sig))
		if c.selectors["event:"+e.Topic0Hex] {
			return Event{}, fmt.Errorf("event %q topic0 %s collides with a previously declared event", decl.Name, e.Topic0Hex)
		}
		c.selectors["event:"+e.Topic0Hex] = true
	}
	c.names["event:"+decl.Name] = true
	c.events = append(c.events, e)
	return e, nil
}

// AddError registers a custom error declaration, rejecting a duplicate name
// or a 4-byte selector that collides with a previously collected error.
// Error selectors are not checked against method selectors.
func (c *Collector) AddError(decl *ast.ErrorDecl) (Error, error) {
	if c.names["error:"+decl.Name] {
		return Error{}, fmt.Errorf("duplicate error name %q", decl.Name)
	}
	sel := Selector(Signature(decl.Name, decl.Params))
	selKey := fmt.Sprintf("error:%s", hex4(sel))
	if c.selectors[selKey] {
		return Error{}, fmt.Errorf("error %q selector %s collides with a previously declared error", decl.Name, hex4(sel))
	}
	e := Error{Type: "error", Name: decl.Name, SelectorHex: hex4(sel), Inputs: toParams(decl.Params)}
	c.names["error:"+decl.Name] = true
	c.selectors[selKey] = true
	c.errors = append(c.errors, e)
	return e, nil
}

// SetLicense records the `pragma license` value (spec §6), root-scope only.
func (c *Collector) SetLicense(license string) { c.license = license }

// SetConstructor registers the contract's constructor as a type:"constructor"
// ABI entry (no name, no selector -- constructors aren't selector-dispatched).
func (c *Collector) SetConstructor(params []ast.Param, payable bool) {
	mutability := "nonpayable"
	if payable {
		mutability = "payable"
	}
	c.constructor = &Method{Type: "constructor", Inputs: toParams(params), Visibility: mutability, Payable: payable}
}

// SetReceive registers a `receive()` method as a type:"receive" ABI entry.
func (c *Collector) SetReceive() {
	c.receive = &Method{Type: "receive", Visibility: "payable", Payable: true}
}

// SetFallback registers a `fallback()` method as a type:"fallback" ABI entry.
func (c *Collector) SetFallback(payable bool) {
	mutability := "nonpayable"
	if payable {
		mutability = "payable"
	}
	c.fallback = &Method{Type: "fallback", Visibility: mutability, Payable: payable}
}

// Finish produces the Metadata document, sorted by name for determinism,
// and -- if sourceFiles is non-empty -- a digest of the given
// filename/contents pairs (spec §6 "metadata-digest" pragma flag),
// computed by Digest over "filename\0contents\0" for each file in order.
func (c *Collector) Finish(sourceFiles []SourceFile) Metadata {
	sort.Slice(c.methods, func(i, j int) bool { return c.methods[i].Name < c.methods[j].Name })
	sort.Slice(c.events, func(i, j int) bool { return c.events[i].Name < c.events[j].Name })
	sort.Slice(c.errors, func(i, j int) bool { return c.errors[i].Name < c.errors[j].Name })

	m := Metadata{
		Contract:    c.contract,
		License:     c.license,
		Methods:     c.methods,
		Events:      c.events,
		Errors:      c.errors,
		Constructor: c.constructor,
		Receive:     c.receive,
		Fallback:    c.fallback,
	}
	if len(sourceFiles) > 0 {
		m.Digest = Digest(sourceFiles)
	}
	return m
}

// Digest hashes an ordered list of (filename, contents) pairs into the
// hex-encoded digest used for the "metadata-digest" pragma flag (spec §6):
// sha256 over "filename\0contents\0" for each file, in the given order.
func Digest(sourceFiles []SourceFile) string {
	h := sha256.New()
	for _, f := range sourceFiles {
		h.Write([]byte(f.Name))
		h.Write([]byte{0})
		h.Write([]byte(f.Contents))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("0x%x", h.Sum(nil))
}

// SourceFile is one file's worth of digest input, in include order.
type SourceFile struct {
	Name     string
	Contents string
}
