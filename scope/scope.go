// Package scope implements the lexically-nested symbol table the transformer
// resolves every identifier, macro, struct, interface, method, event and
// error name through, grounded on the teacher's SymbolTable/ErrorCollector
// pair (supporting_types.go) generalized from one flat symbol kind to the
// nine kinds this dialect needs.
package scope

import (
	"fmt"

	"github.com/warpdex/jul/ast"
)

// Kind names one of the symbol tables a Scope carries.
type Kind string

const (
	KindConst     Kind = "const"
	KindStruct    Kind = "struct"
	KindMacro     Kind = "macro"
	KindFunc      Kind = "func"
	KindInterface Kind = "interface"
	KindMethod    Kind = "method"
	KindEvent     Kind = "event"
	KindError     Kind = "error"
	KindVar       Kind = "var"
)

// Scope is one lexical level: a block, a function body, an object's code
// block, or the root. Lookups walk the parent chain; definitions always
// land in the innermost scope.
type Scope struct {
	parent *Scope
	kind   string // "root", "object", "contract", "function", "block"

	symbols map[Kind]map[string]ast.Node

	// accumulators that flush to the owning function/code scope when a
	// nested scope exits (spec §4.3/§4.4): functions reached transitively,
	// data objects referenced, and immutables read. Kept as order-preserving
	// slices (plus a dedup set) rather than bare maps so materialization can
	// walk them in first-reference order (spec §5's ordering guarantee).
	depends       []string
	dependSeen    map[string]bool
	data          []string
	dataSeen      map[string]bool
	immutable     []string
	immutableSeen map[string]bool

	calldata bool // true inside a method/constructor body where calldata.* resolves
}

// New creates a root scope with no parent.
func New() *Scope {
	return newScope(nil, "root")
}

func newScope(parent *Scope, kind string) *Scope {
	s := &Scope{parent: parent, kind: kind, symbols: make(map[Kind]map[string]ast.Node)}
	for _, k := range []Kind{KindConst, KindStruct, KindMacro, KindFunc, KindInterface, KindMethod, KindEvent, KindError, KindVar} {
		s.symbols[k] = make(map[string]ast.Node)
	}
	s.dependSeen = make(map[string]bool)
	s.dataSeen = make(map[string]bool)
	s.immutableSeen = make(map[string]bool)
	if parent != nil {
		s.calldata = parent.calldata
	}
	return s
}

// Child opens a nested scope of the given kind (e.g. "block", "function").
func (s *Scope) Child(kind string) *Scope { return newScope(s, kind) }

// Parent returns the enclosing scope, or nil at the root.
func (s *Scope) Parent() *Scope { return s.parent }

// EnterCalldataContext returns a child scope where calldata identifiers
// resolve; used when entering a method or constructor body.
func (s *Scope) EnterCalldataContext() *Scope {
	c := s.Child("function")
	c.calldata = true
	return c
}

// InCalldataContext reports whether calldata.* identifiers are valid here.
func (s *Scope) InCalldataContext() bool { return s.calldata }

// Define adds name to this scope's table for kind, returning an error if the
// name is already defined in this exact scope (shadowing an outer scope is
// allowed; redefining within the same scope is not).
func (s *Scope) Define(kind Kind, name string, node ast.Node) error {
	if existing, ok := s.symbols[kind][name]; ok {
		return fmt.Errorf("%s: %s %q already defined at %s", posString(node), kind, name, posString(existing))
	}
	s.symbols[kind][name] = node
	return nil
}

// Lookup walks the parent chain for name under kind, returning the nearest
// definition.
func (s *Scope) Lookup(kind Kind, name string) (ast.Node, bool) {
	for sc := s; sc != nil; sc = sc.parent {
		if n, ok := sc.symbols[kind][name]; ok {
			return n, true
		}
	}
	return nil, false
}

// LookupAny reports which kind name resolves to, checking kinds in a fixed
// precedence order (vars shadow everything else, then funcs, then the
// declarative kinds) -- used when a bare identifier's role is ambiguous
// until resolved against scope.
func (s *Scope) LookupAny(name string) (Kind, ast.Node, bool) {
	order := []Kind{KindVar, KindFunc, KindMacro, KindConst, KindInterface, KindStruct, KindMethod, KindEvent, KindError}
	for _, k := range order {
		if n, ok := s.Lookup(k, name); ok {
			return k, n, true
		}
	}
	return "", nil, false
}

// DependsOn records that the enclosing function transitively calls fnName,
// in first-reference order; materialization (spec dependency tracking)
// reads this from the nearest function scope once its body finishes
// resolving.
func (s *Scope) DependsOn(fnName string) {
	fs := s.findFunctionScope()
	if !fs.dependSeen[fnName] {
		fs.dependSeen[fnName] = true
		fs.depends = append(fs.depends, fnName)
	}
}

// TouchesData records a reference to a named data object (datasize/dataoffset/datacopy).
func (s *Scope) TouchesData(name string) {
	fs := s.findFunctionScope()
	if !fs.dataSeen[name] {
		fs.dataSeen[name] = true
		fs.data = append(fs.data, name)
	}
}

// ReadsImmutable records a loadimmutable/storeimmutable reference.
func (s *Scope) ReadsImmutable(name string) {
	fs := s.findFunctionScope()
	if !fs.immutableSeen[name] {
		fs.immutableSeen[name] = true
		fs.immutable = append(fs.immutable, name)
	}
}

// Dependencies returns the three accumulator sets collected in this scope's
// own function-level node (not inherited from children beyond what they
// flushed via DependsOn/TouchesData/ReadsImmutable, which always bubble to
// findFunctionScope()), each in first-reference order.
func (s *Scope) Dependencies() (funcs, data, immutables []string) {
	return append([]string{}, s.depends...), append([]string{}, s.data...), append([]string{}, s.immutable...)
}

func (s *Scope) findFunctionScope() *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.kind == "function" || sc.kind == "root" {
			return sc
		}
	}
	return s
}

// FindObjectScope returns the nearest enclosing "object" scope, used to
// resolve datasize/dataoffset targets against the innermost object's own
// data/sub-object namespace.
func (s *Scope) FindObjectScope() *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.kind == "object" {
			return sc
		}
	}
	return nil
}

// FindContractScope returns the nearest enclosing "contract" scope, used to
// resolve method/event/error declarations against the contract that owns
// the code currently being transformed.
func (s *Scope) FindContractScope() *Scope {
	for sc := s; sc != nil; sc = sc.parent {
		if sc.kind == "contract" {
			return sc
		}
	}
	return nil
}

func posString(n ast.Node) string {
	if n == nil {
		return "<builtin>"
	}
	p := n.Pos()
	return fmt.Sprintf("%s:%d:%d", p.File, p.Line, p.Column)
}
