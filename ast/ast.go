// Package ast defines the tagged AST node set produced by the parser and
// rewritten by the transformer: every node carries only the fields listed
// for its kind, and generic traversal is done purely through the Node
// interface (see Walk in walk.go).
package ast

// Position locates a node in its originating source file.
type Position struct {
	File   string
	Line   int
	Column int
}

// Kind tags every node with its variant.
type Kind string

const (
	KindRoot              Kind = "Root"
	KindPragma            Kind = "Pragma"
	KindFold              Kind = "Fold"
	KindIncludeCall       Kind = "IncludeCall"
	KindEnum              Kind = "Enum"
	KindStructDefinition  Kind = "StructDefinition"
	KindStructMember      Kind = "StructMember"
	KindInterface         Kind = "Interface"
	KindContract          Kind = "Contract"
	KindObjectBlock       Kind = "ObjectBlock"
	KindCodeBlock         Kind = "CodeBlock"
	KindConstructorDecl   Kind = "ConstructorDecl"
	KindConstructorDef    Kind = "ConstructorDef"
	KindMethodDecl        Kind = "MethodDecl"
	KindMethodDef         Kind = "MethodDef"
	KindMethodParams      Kind = "MethodParams"
	KindEventDecl         Kind = "EventDecl"
	KindErrorDecl         Kind = "ErrorDecl"
	KindABIType           Kind = "ABIType"
	KindDataValue         Kind = "DataValue"
	KindBlock             Kind = "Block"
	KindMacroConstant     Kind = "MacroConstant"
	KindMacroDefinition   Kind = "MacroDefinition"
	KindFunctionDef       Kind = "FunctionDef"
	KindVariableDecl      Kind = "VariableDeclaration"
	KindConstDecl         Kind = "ConstDeclaration"
	KindTypedIdentList    Kind = "TypedIdentifierList"
	KindIdentifierList    Kind = "IdentifierList"
	KindAssignment        Kind = "Assignment"
	KindMemberAssignment  Kind = "MemberAssignment"
	KindIf                Kind = "If"
	KindSwitch            Kind = "Switch"
	KindCase              Kind = "Case"
	KindDefault           Kind = "Default"
	KindForLoop           Kind = "ForLoop"
	KindWhile             Kind = "While"
	KindDoWhile           Kind = "DoWhile"
	KindBreak             Kind = "Break"
	KindContinue          Kind = "Continue"
	KindLeave             Kind = "Leave"
	KindEmit              Kind = "Emit"
	KindThrow             Kind = "Throw"
	KindStructInitializer Kind = "StructInitializer"
	KindInterfaceCall     Kind = "InterfaceCall"
	KindFunctionCall      Kind = "FunctionCall"
	KindLiteral           Kind = "Literal"
	KindMemberIdentifier  Kind = "MemberIdentifier"
	KindCallDataIdent     Kind = "CallDataIdentifier"
	KindIdentifier        Kind = "Identifier"
)

// Node is implemented by every AST variant.
type Node interface {
	Kind() Kind
	Pos() Position
}

type Base struct {
	Position Position
}

func (b Base) Pos() Position { return b.Position }

// ---- top level ----------------------------------------------------------

type Root struct {
	Base
	Statements []Node
}

func (*Root) Kind() Kind { return KindRoot }

// PragmaName enumerates the accepted pragma names (spec §6).
type PragmaName string

const (
	PragmaLicense    PragmaName = "license"
	PragmaSolc       PragmaName = "solc"
	PragmaYulc       PragmaName = "yulc"
	PragmaEVM        PragmaName = "evm"
	PragmaOptimize   PragmaName = "optimize"
	PragmaDeoptimize PragmaName = "deoptimize"
	PragmaLock       PragmaName = "lock"
)

type Pragma struct {
	Base
	Name  PragmaName
	Value string
}

func (*Pragma) Kind() Kind { return KindPragma }

// Fold is the `@if/elif/else` preprocessor conditional (spec §4.4).
type Fold struct {
	Base
	Expr    Node
	Block   *Block
	Elifs   []FoldBranch
	Else    *Block
}

type FoldBranch struct {
	Expr  Node
	Block *Block
}

func (*Fold) Kind() Kind { return KindFold }

type IncludeCall struct {
	Base
	BaseDir  string
	Filename string
}

func (*IncludeCall) Kind() Kind { return KindIncludeCall }

type EnumMember struct {
	Name string
	Expr Node // nil if implicit (previous+1)
}

type Enum struct {
	Base
	Prefix  string // optional, "" if unnamed
	Members []EnumMember
}

func (*Enum) Kind() Kind { return KindEnum }

// ---- structs --------------------------------------------------------------

type StructMember struct {
	Base
	Type    ABIType
	Name    string // "+" means padding
	Default Node   // optional literal
}

func (*StructMember) Kind() Kind { return KindStructMember }

type StructDefinition struct {
	Base
	Name    string
	Members []StructMember
}

func (*StructDefinition) Kind() Kind { return KindStructDefinition }

// ---- ABI type grammar ------------------------------------------------------

type ABIBase string

const (
	ABIUint     ABIBase = "uint"
	ABIInt      ABIBase = "int"
	ABIAddress  ABIBase = "address"
	ABIBool     ABIBase = "bool"
	ABIBytes    ABIBase = "bytes"
	ABIString   ABIBase = "string"
	ABIFunction ABIBase = "function"
)

// ABIType is a value type (not a Node) embedded by nodes that need a
// parameter/member type; Width is in bits (0 for dynamic bytes/string),
// Array marks a single-dimension dynamic array suffix ("[]").
type ABIType struct {
	Base  ABIBase
	Width int
	Array bool
}

func (ABIType) Kind() Kind { return KindABIType }

// ---- interfaces, contracts, methods ----------------------------------------

type Param struct {
	Type ABIType
	Name string
}

type ConstructorDecl struct {
	Base
	Params   []Param
	Payable  bool
}

func (*ConstructorDecl) Kind() Kind { return KindConstructorDecl }

type ConstructorDef struct {
	Base
	Params    []Param
	Payable   bool
	Unchecked bool
	Body      *Block
}

func (*ConstructorDef) Kind() Kind { return KindConstructorDef }

type Visibility string

const (
	VisibilityExternal Visibility = "external"
	VisibilityPublic   Visibility = "public"
)

type Mutability string

const (
	MutabilityNonpayable Mutability = "nonpayable"
	MutabilityPayable    Mutability = "payable"
	MutabilityView       Mutability = "view"
	MutabilityPure       Mutability = "pure"
)

type MethodDecl struct {
	Base
	Name       string
	Params     []Param
	Visibility Visibility
	Mutability Mutability
	Returns    []ABIType
}

func (*MethodDecl) Kind() Kind { return KindMethodDecl }

type MethodDef struct {
	Base
	Name       string
	Params     []Param
	Visibility Visibility
	Mutability Mutability
	Locked     bool
	Returns    []ABIType
	Body       *Block
}

func (*MethodDef) Kind() Kind { return KindMethodDef }

type Interface struct {
	Base
	Name        string
	Constructor *ConstructorDecl
	Methods     []MethodDecl
}

func (*Interface) Kind() Kind { return KindInterface }

type EventParam struct {
	Type    ABIType
	Name    string
	Indexed bool
}

type EventDecl struct {
	Base
	Name      string
	Params    []EventParam
	Anonymous bool
	Packed    bool
	NoInline  bool
}

func (*EventDecl) Kind() Kind { return KindEventDecl }

type ErrorDecl struct {
	Base
	Name   string
	Params []Param
}

func (*ErrorDecl) Kind() Kind { return KindErrorDecl }

// ---- contract / object structure -------------------------------------------

type Contract struct {
	Base
	Name  string
	Body  *Block
}

func (*Contract) Kind() Kind { return KindContract }

type ObjectBlock struct {
	Base
	Name    string
	Code    *CodeBlock
	Objects []*ObjectBlock
	Data    []DataValue
}

func (*ObjectBlock) Kind() Kind { return KindObjectBlock }

type CodeBlock struct {
	Base
	Body *Block
}

func (*CodeBlock) Kind() Kind { return KindCodeBlock }

type DataValue struct {
	Base
	Name  string
	Value string // hex or string literal, as written
	IsHex bool
}

func (*DataValue) Kind() Kind { return KindDataValue }

// ---- generic block / statements --------------------------------------------

type Block struct {
	Base
	Statements []Node
}

func (*Block) Kind() Kind { return KindBlock }

type MacroConstant struct {
	Base
	Name string
	Expr Node
}

func (*MacroConstant) Kind() Kind { return KindMacroConstant }

type MacroDefinition struct {
	Base
	Name   string
	Params []string
	Body   *Block
}

func (*MacroDefinition) Kind() Kind { return KindMacroDefinition }

type FunctionDef struct {
	Base
	Name     string
	Params   []string
	NoInline bool
	Returns  []string
	Body     *Block
	Builtin  bool
}

func (*FunctionDef) Kind() Kind { return KindFunctionDef }

type TypedIdentifier struct {
	Name string
	Type string // "" if untyped (plain Yul uint256 default)
}

type VariableDeclaration struct {
	Base
	Names []TypedIdentifier
	Init  Node // optional
}

func (*VariableDeclaration) Kind() Kind { return KindVariableDecl }

type ConstDeclaration struct {
	Base
	Name string
	Expr Node
	Wrap bool // `const name() := expr` hidden zero-arg function form
}

func (*ConstDeclaration) Kind() Kind { return KindConstDecl }

type Assignment struct {
	Base
	Names []string
	Value Node
}

func (*Assignment) Kind() Kind { return KindAssignment }

type MemberAssignment struct {
	Base
	Target Node // *MemberIdentifier
	Value  Node
	Or     bool // |= rather than :=
}

func (*MemberAssignment) Kind() Kind { return KindMemberAssignment }

type If struct {
	Base
	Condition Node
	Body      *Block
}

func (*If) Kind() Kind { return KindIf }

type Case struct {
	Base
	Value *Literal
	Body  *Block
}

func (*Case) Kind() Kind { return KindCase }

type Switch struct {
	Base
	Expr    Node
	Cases   []*Case
	Default *Block
}

func (*Switch) Kind() Kind { return KindSwitch }

type ForLoop struct {
	Base
	Init      *Block
	Condition Node
	Post      *Block
	Body      *Block
}

func (*ForLoop) Kind() Kind { return KindForLoop }

// While and DoWhile are dialect sugar lowered to ForLoop during transform;
// kept as distinct parse nodes so the transformer can recognize the source
// shape (spec's grammar table §3 lists them alongside ForLoop).
type While struct {
	Base
	Condition Node
	Body      *Block
}

func (*While) Kind() Kind { return KindWhile }

type DoWhile struct {
	Base
	Body      *Block
	Condition Node
}

func (*DoWhile) Kind() Kind { return KindDoWhile }

type Break struct{ Base }

func (*Break) Kind() Kind { return KindBreak }

type Continue struct{ Base }

func (*Continue) Kind() Kind { return KindContinue }

type Leave struct{ Base }

func (*Leave) Kind() Kind { return KindLeave }

type Emit struct {
	Base
	Name   string
	Offset Node
	Args   []Node
}

func (*Emit) Kind() Kind { return KindEmit }

type Throw struct {
	Base
	Name string
	Args []Node
}

func (*Throw) Kind() Kind { return KindThrow }

type StructInitializer struct {
	Base
	Struct string
	Args   []Node // Node(nil-sentinel) represented by *DefaultArg for '@'
}

func (*StructInitializer) Kind() Kind { return KindStructInitializer }

// DefaultArg is the '@' sentinel inside a StructInitializer argument list.
type DefaultArg struct{ Base }

func (*DefaultArg) Kind() Kind { return KindStructInitializer }

type InterfaceCallKind string

const (
	InterfaceCreate  InterfaceCallKind = "create"
	InterfaceCreate2 InterfaceCallKind = "create2"
	InterfaceCall    InterfaceCallKind = "call"
)

type InterfaceCallExpr struct {
	Base
	CallKind InterfaceCallKind
	Attempt  bool // "try" form: returns ok flag
	Name     string
	Method   string // "" for create/create2
	Args     []Node
}

func (*InterfaceCallExpr) Kind() Kind { return KindInterfaceCall }

type FunctionCall struct {
	Base
	Name string
	Args []Node
}

func (*FunctionCall) Kind() Kind { return KindFunctionCall }

type LiteralKind string

const (
	LitHexNumber     LiteralKind = "HexNumber"
	LitDecimalNumber LiteralKind = "DecimalNumber"
	LitString        LiteralKind = "StringLiteral"
	LitHex           LiteralKind = "HexLiteral"
	LitBool          LiteralKind = "BoolLiteral"
)

type Literal struct {
	Base
	Subtype LiteralKind
	Unit    string // optional unit suffix (wei/gwei/ether style), "" if none
	Value   string
}

func (*Literal) Kind() Kind { return KindLiteral }

type MemberIdentifier struct {
	Base
	BaseName string
	Cast     string // optional cast type name, "" if none
	Member   string
}

func (*MemberIdentifier) Kind() Kind { return KindMemberIdentifier }

type CallDataIdentifier struct {
	Base
	Member string
	Ref    bool // '&' prefix: want offset, not decoded value
}

func (*CallDataIdentifier) Kind() Kind { return KindCallDataIdent }

type Identifier struct {
	Base
	Value       string
	Replaceable bool // macro/const substitution candidate
}

func (*Identifier) Kind() Kind { return KindIdentifier }

// NewBase is used by the parser to stamp position information on a node
// before wrapping it in its concrete type literal.
func NewBase(pos Position) Base { return Base{Position: pos} }
