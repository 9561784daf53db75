// Package parser implements the recursive-descent parser (spec §4.2): fixed
// precedence (preprocessor fold, include, type/interface/contract blocks,
// then statement/expression forms), backtracking only at the two
// disambiguation points the grammar calls for.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/warpdex/jul/ast"
	"github.com/warpdex/jul/lexer"
)

// Parser holds the token cursor and enough of the source to render
// caret diagnostics.
type Parser struct {
	file   string
	lines  []string
	toks   []lexer.Token
	pos    int
}

// Parse lexes and parses a complete source file into a Root node.
func Parse(file, source string) (*ast.Root, error) {
	stripped, _, err := lexer.StripComments(source)
	if err != nil {
		return nil, &Error{File: file, Message: err.Error()}
	}
	lx, err := lexer.New(file, stripped)
	if err != nil {
		return nil, &Error{File: file, Message: err.Error()}
	}
	p := &Parser{file: file, lines: strings.Split(source, "\n"), toks: lx.Tokens()}
	return p.parseRoot()
}

// ---- token cursor -----------------------------------------------------

func (p *Parser) cur() lexer.Token  { return p.toks[p.pos] }
func (p *Parser) atEnd() bool       { return p.cur().Type == lexer.EOF }
func (p *Parser) check(t lexer.Type) bool {
	return p.cur().Type == t
}
func (p *Parser) checkAt(off int, t lexer.Type) bool {
	idx := p.pos + off
	if idx >= len(p.toks) {
		idx = len(p.toks) - 1
	}
	return p.toks[idx].Type == t
}
func (p *Parser) advance() lexer.Token {
	t := p.toks[p.pos]
	if !p.atEnd() {
		p.pos++
	}
	return t
}
func (p *Parser) match(t lexer.Type) bool {
	if p.check(t) {
		p.advance()
		return true
	}
	return false
}
func (p *Parser) expect(t lexer.Type, what string) (lexer.Token, error) {
	if !p.check(t) {
		return lexer.Token{}, p.errf(p.cur(), "expected %s, got %q", what, p.cur().Lexeme)
	}
	return p.advance(), nil
}

func (p *Parser) errf(tok lexer.Token, format string, args ...interface{}) error {
	var src string
	if tok.Line-1 >= 0 && tok.Line-1 < len(p.lines) {
		src = p.lines[tok.Line-1]
	}
	return &Error{File: p.file, Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...), Source: src}
}

func (p *Parser) posOf(tok lexer.Token) ast.Position {
	return ast.Position{File: p.file, Line: tok.Line, Column: tok.Column}
}

func (p *Parser) snapshot() int    { return p.pos }
func (p *Parser) restore(mark int) { p.pos = mark }

// ---- top level ----------------------------------------------------------

func (p *Parser) parseRoot() (*ast.Root, error) {
	start := p.cur()
	root := &ast.Root{}
	for !p.atEnd() {
		stmt, err := p.parseTopLevel()
		if err != nil {
			return nil, err
		}
		root.Statements = append(root.Statements, stmt)
	}
	root.Position = p.posOf(start)
	return root, nil
}

func (p *Parser) parseTopLevel() (ast.Node, error) {
	switch p.cur().Type {
	case "pragma":
		return p.parsePragma()
	case lexer.At:
		return p.parseFold()
	case "include":
		return p.parseInclude()
	case "enum":
		return p.parseEnum()
	case "struct":
		return p.parseStructDef()
	case "interface":
		return p.parseInterface()
	case "contract":
		return p.parseContract()
	case "object":
		return p.parseObjectBlock()
	case "function":
		return p.parseFunctionDef()
	case "macro":
		return p.parseMacroDef()
	case "const":
		return p.parseConstDecl()
	default:
		return nil, p.errf(p.cur(), "unexpected top-level token %q", p.cur().Lexeme)
	}
}

// ---- pragma (spec §6) -----------------------------------------------------

var pragmaNames = map[string]ast.PragmaName{
	"license": ast.PragmaLicense, "solc": ast.PragmaSolc, "yulc": ast.PragmaYulc,
	"evm": ast.PragmaEVM, "optimize": ast.PragmaOptimize, "deoptimize": ast.PragmaDeoptimize,
	"lock": ast.PragmaLock,
}

func (p *Parser) parsePragma() (*ast.Pragma, error) {
	start := p.advance() // 'pragma'
	nameTok, err := p.expect(lexer.Ident, "pragma name")
	if err != nil {
		return nil, err
	}
	name, ok := pragmaNames[nameTok.Lexeme]
	if !ok {
		return nil, p.errf(nameTok, "unknown pragma %q", nameTok.Lexeme)
	}
	valTok, err := p.expect(lexer.String, "pragma value")
	if err != nil {
		return nil, err
	}
	return &ast.Pragma{Base: ast.NewBase(p.posOf(start)), Name: name, Value: valTok.Lexeme}, nil
}

// ---- preprocessor fold (spec §4.4 "Preprocessor Fold") --------------------

func (p *Parser) parseFold() (*ast.Fold, error) {
	start := p.advance() // '@'
	if _, err := p.expect("if", "'if'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	f := &ast.Fold{Base: ast.NewBase(p.posOf(start)), Expr: cond, Block: body}

	for p.check(lexer.At) && p.checkAt(1, "elif") {
		p.advance() // '@'
		p.advance() // 'elif'
		econd, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		ebody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		f.Elifs = append(f.Elifs, ast.FoldBranch{Expr: econd, Block: ebody})
	}
	if p.check(lexer.At) && p.checkAt(1, "else") {
		p.advance()
		p.advance()
		ebody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		f.Else = ebody
	}
	return f, nil
}

// ---- include (spec §4.4 "Include") -----------------------------------------

func (p *Parser) parseInclude() (*ast.IncludeCall, error) {
	start := p.advance() // 'include'
	nameTok, err := p.expect(lexer.String, "include path")
	if err != nil {
		return nil, err
	}
	return &ast.IncludeCall{Base: ast.NewBase(p.posOf(start)), Filename: nameTok.Lexeme}, nil
}

// ---- enum ------------------------------------------------------------------

func (p *Parser) parseEnum() (*ast.Enum, error) {
	start := p.advance() // 'enum'
	e := &ast.Enum{Base: ast.NewBase(p.posOf(start))}
	if p.check(lexer.Ident) {
		e.Prefix = p.advance().Lexeme
	}
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	for !p.check(lexer.RBrace) {
		nameTok, err := p.expect(lexer.Ident, "enum member name")
		if err != nil {
			return nil, err
		}
		m := ast.EnumMember{Name: nameTok.Lexeme}
		if p.match(lexer.ColonEq) {
			v, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			m.Expr = v
		}
		e.Members = append(e.Members, m)
		if !p.match(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return e, nil
}

// ---- ABI type grammar (spec §3 "ABIType") ----------------------------------

func parseABIType(text string) (ast.ABIType, bool) {
	arr := false
	if strings.HasSuffix(text, "[]") {
		arr = true
		text = text[:len(text)-2]
	}
	splitDigits := func(prefix string) (int, bool) {
		if text == prefix {
			return 256, true
		}
		if !strings.HasPrefix(text, prefix) {
			return 0, false
		}
		n, err := strconv.Atoi(text[len(prefix):])
		if err != nil {
			return 0, false
		}
		return n, true
	}
	switch {
	case text == "address":
		return ast.ABIType{Base: ast.ABIAddress, Width: 160, Array: arr}, true
	case text == "bool":
		return ast.ABIType{Base: ast.ABIBool, Width: 8, Array: arr}, true
	case text == "string":
		return ast.ABIType{Base: ast.ABIString, Array: arr}, true
	case text == "bytes":
		return ast.ABIType{Base: ast.ABIBytes, Array: arr}, true
	case text == "function":
		return ast.ABIType{Base: ast.ABIFunction, Width: 192, Array: arr}, true
	case strings.HasPrefix(text, "uint"):
		if n, ok := splitDigits("uint"); ok {
			return ast.ABIType{Base: ast.ABIUint, Width: n, Array: arr}, true
		}
	case strings.HasPrefix(text, "int"):
		if n, ok := splitDigits("int"); ok {
			return ast.ABIType{Base: ast.ABIInt, Width: n, Array: arr}, true
		}
	case strings.HasPrefix(text, "bytes"):
		if n, ok := splitDigits("bytes"); ok {
			return ast.ABIType{Base: ast.ABIBytes, Width: n * 8, Array: arr}, true
		}
	}
	return ast.ABIType{}, false
}

func (p *Parser) parseABITypeToken() (ast.ABIType, error) {
	tok, err := p.expect(lexer.Ident, "ABI type")
	if err != nil {
		return ast.ABIType{}, err
	}
	text := tok.Lexeme
	if p.match(lexer.LBracket) {
		if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
			return ast.ABIType{}, err
		}
		text += "[]"
	}
	t, ok := parseABIType(text)
	if !ok {
		return ast.ABIType{}, p.errf(tok, "invalid ABI type %q", text)
	}
	return t, nil
}

// ---- struct definition (spec §3, §4.4 "StructDefinition") ------------------

func (p *Parser) parseStructDef() (*ast.StructDefinition, error) {
	start := p.advance() // 'struct'
	nameTok, err := p.expect(lexer.Ident, "struct name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	s := &ast.StructDefinition{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme}
	for !p.check(lexer.RBrace) {
		mstart := p.cur()
		typ, err := p.parseABITypeToken()
		if err != nil {
			return nil, err
		}
		var name string
		switch {
		case p.check(lexer.Ident):
			name = p.advance().Lexeme
		case p.check(lexer.Plus):
			p.advance()
			name = "+"
		default:
			return nil, p.errf(p.cur(), "expected struct member name or '+'")
		}
		m := ast.StructMember{Base: ast.NewBase(p.posOf(mstart)), Type: typ, Name: name}
		if name != "+" && p.match(lexer.ColonEq) {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			m.Default = lit
		}
		s.Members = append(s.Members, m)
		for p.check(lexer.Comma) {
			p.advance()
		}
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return s, nil
}

// ---- interface (spec §4.4 "Interface") -------------------------------------

func (p *Parser) parseInterface() (*ast.Interface, error) {
	start := p.advance() // 'interface'
	nameTok, err := p.expect(lexer.Ident, "interface name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	iface := &ast.Interface{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme}
	for !p.check(lexer.RBrace) {
		switch {
		case p.check("constructor"):
			c, err := p.parseConstructorDecl()
			if err != nil {
				return nil, err
			}
			iface.Constructor = c
		case p.check("method"):
			m, err := p.parseMethodDecl()
			if err != nil {
				return nil, err
			}
			iface.Methods = append(iface.Methods, *m)
		default:
			return nil, p.errf(p.cur(), "expected 'constructor' or 'method' in interface body")
		}
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return iface, nil
}

func (p *Parser) parseParamList() ([]ast.Param, error) {
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var params []ast.Param
	for !p.check(lexer.RParen) {
		typ, err := p.parseABITypeToken()
		if err != nil {
			return nil, err
		}
		name := ""
		if p.check(lexer.Ident) {
			name = p.advance().Lexeme
		}
		params = append(params, ast.Param{Type: typ, Name: name})
		if !p.match(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return params, nil
}

func (p *Parser) parseReturnsList() ([]ast.ABIType, error) {
	if !p.match("returns") {
		return nil, nil
	}
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var out []ast.ABIType
	for !p.check(lexer.RParen) {
		t, err := p.parseABITypeToken()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
		if !p.match(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Parser) parseConstructorDecl() (*ast.ConstructorDecl, error) {
	start := p.advance() // 'constructor'
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	payable := p.match("payable")
	return &ast.ConstructorDecl{Base: ast.NewBase(p.posOf(start)), Params: params, Payable: payable}, nil
}

func (p *Parser) parseMethodDecl() (*ast.MethodDecl, error) {
	start := p.advance() // 'method'
	nameTok, err := p.expect(lexer.Ident, "method name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	vis := ast.VisibilityExternal
	mut := ast.MutabilityNonpayable
	for {
		switch {
		case p.match("external"):
			vis = ast.VisibilityExternal
		case p.match("public"):
			vis = ast.VisibilityPublic
		case p.match("view"):
			mut = ast.MutabilityView
		case p.match("pure"):
			mut = ast.MutabilityPure
		case p.match("payable"):
			mut = ast.MutabilityPayable
		default:
			goto done
		}
	}
done:
	returns, err := p.parseReturnsList()
	if err != nil {
		return nil, err
	}
	return &ast.MethodDecl{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Params: params, Visibility: vis, Mutability: mut, Returns: returns}, nil
}

// ---- contract / object blocks (spec §4.4 "Contract") -----------------------

func (p *Parser) parseContract() (*ast.Contract, error) {
	start := p.advance() // 'contract'
	nameTok, err := p.expect(lexer.Ident, "contract name")
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Contract{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Body: body}, nil
}

func (p *Parser) parseObjectBlock() (*ast.ObjectBlock, error) {
	start := p.advance() // 'object'
	nameTok, err := p.expect(lexer.String, "object name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace, "'{'"); err != nil {
		return nil, err
	}
	obj := &ast.ObjectBlock{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme}
	for !p.check(lexer.RBrace) {
		switch {
		case p.check("code"):
			p.advance()
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			obj.Code = &ast.CodeBlock{Base: ast.NewBase(p.posOf(start)), Body: body}
		case p.check("data"):
			p.advance()
			nTok, err := p.expect(lexer.Ident, "data name")
			if err != nil {
				return nil, err
			}
			var val string
			isHex := false
			if p.check(lexer.HexLiteral) {
				val = p.advance().Lexeme
				isHex = true
			} else {
				vTok, err := p.expect(lexer.String, "data value")
				if err != nil {
					return nil, err
				}
				val = vTok.Lexeme
			}
			obj.Data = append(obj.Data, ast.DataValue{Base: ast.NewBase(p.posOf(nTok)), Name: nTok.Lexeme, Value: val, IsHex: isHex})
		case p.check("object"):
			nested, err := p.parseObjectBlock()
			if err != nil {
				return nil, err
			}
			obj.Objects = append(obj.Objects, nested)
		default:
			return nil, p.errf(p.cur(), "unexpected token in object body: %q", p.cur().Lexeme)
		}
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return obj, nil
}

// ---- blocks and statements --------------------------------------------------

func (p *Parser) parseBlock() (*ast.Block, error) {
	start, err := p.expect(lexer.LBrace, "'{'")
	if err != nil {
		return nil, err
	}
	b := &ast.Block{Base: ast.NewBase(p.posOf(start))}
	for !p.check(lexer.RBrace) && !p.atEnd() {
		stmt, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		b.Statements = append(b.Statements, stmt)
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return b, nil
}

func (p *Parser) parseStatement() (ast.Node, error) {
	switch p.cur().Type {
	case "let":
		return p.parseVarDecl()
	case "if":
		return p.parseIf()
	case "switch":
		return p.parseSwitch()
	case "for":
		return p.parseFor()
	case "while":
		return p.parseWhile()
	case "do":
		return p.parseDoWhile()
	case "function":
		return p.parseFunctionDef()
	case "macro":
		return p.parseMacroDef()
	case "const":
		return p.parseConstDecl()
	case "struct":
		return p.parseStructDef()
	case "enum":
		return p.parseEnum()
	case "event":
		return p.parseEventDecl()
	case "error":
		return p.parseErrorDecl()
	case "method":
		return p.parseMethodDeclOrDef()
	case "constructor":
		return p.parseConstructorDeclOrDef()
	case "break":
		t := p.advance()
		return &ast.Break{Base: ast.NewBase(p.posOf(t))}, nil
	case "continue":
		t := p.advance()
		return &ast.Continue{Base: ast.NewBase(p.posOf(t))}, nil
	case "leave":
		t := p.advance()
		return &ast.Leave{Base: ast.NewBase(p.posOf(t))}, nil
	case "emit":
		return p.parseEmit()
	case "throw":
		return p.parseThrow()
	case lexer.At:
		return p.parseFold()
	case lexer.LBrace:
		return p.parseBlock()
	default:
		return p.parseExpressionOrAssignment()
	}
}

func (p *Parser) parseVarDecl() (*ast.VariableDeclaration, error) {
	start := p.advance() // 'let'
	v := &ast.VariableDeclaration{Base: ast.NewBase(p.posOf(start))}
	for {
		nameTok, err := p.expect(lexer.Ident, "variable name")
		if err != nil {
			return nil, err
		}
		ti := ast.TypedIdentifier{Name: nameTok.Lexeme}
		if p.match(lexer.Colon) {
			typTok, err := p.expect(lexer.Ident, "variable type")
			if err != nil {
				return nil, err
			}
			ti.Type = typTok.Lexeme
		}
		v.Names = append(v.Names, ti)
		if !p.match(lexer.Comma) {
			break
		}
	}
	if p.match(lexer.ColonEq) {
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		v.Init = val
	}
	return v, nil
}

func (p *Parser) parseIf() (*ast.If, error) {
	start := p.advance() // 'if'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.If{Base: ast.NewBase(p.posOf(start)), Condition: cond, Body: body}, nil
}

func (p *Parser) parseSwitch() (*ast.Switch, error) {
	start := p.advance() // 'switch'
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	sw := &ast.Switch{Base: ast.NewBase(p.posOf(start)), Expr: expr}
	for p.check("case") || p.check("default") {
		if p.match("case") {
			lit, err := p.parseLiteral()
			if err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			sw.Cases = append(sw.Cases, &ast.Case{Value: lit, Body: body})
		} else {
			p.advance() // 'default'
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			sw.Default = body
		}
	}
	return sw, nil
}

func (p *Parser) parseFor() (*ast.ForLoop, error) {
	start := p.advance() // 'for'
	init, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	post, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.ForLoop{Base: ast.NewBase(p.posOf(start)), Init: init, Condition: cond, Post: post, Body: body}, nil
}

func (p *Parser) parseWhile() (*ast.While, error) {
	start := p.advance() // 'while'
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.While{Base: ast.NewBase(p.posOf(start)), Condition: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (*ast.DoWhile, error) {
	start := p.advance() // 'do'
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect("while", "'while'"); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.DoWhile{Base: ast.NewBase(p.posOf(start)), Body: body, Condition: cond}, nil
}

func (p *Parser) parseFunctionDef() (*ast.FunctionDef, error) {
	start := p.advance() // 'function'
	nameTok, err := p.expect(lexer.Ident, "function name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var params []string
	for !p.check(lexer.RParen) {
		t, err := p.expect(lexer.Ident, "parameter name")
		if err != nil {
			return nil, err
		}
		params = append(params, t.Lexeme)
		if !p.match(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	noinline := p.match("noinline")
	var returns []string
	if p.match(lexer.Arrow) {
		for {
			t, err := p.expect(lexer.Ident, "return variable name")
			if err != nil {
				return nil, err
			}
			returns = append(returns, t.Lexeme)
			if !p.match(lexer.Comma) {
				break
			}
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDef{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Params: params, NoInline: noinline, Returns: returns, Body: body}, nil
}

func (p *Parser) parseMacroDef() (ast.Node, error) {
	start := p.advance() // 'macro'
	nameTok, err := p.expect(lexer.Ident, "macro name")
	if err != nil {
		return nil, err
	}
	if p.match(lexer.LParen) {
		var params []string
		for !p.check(lexer.RParen) {
			t, err := p.expect(lexer.Ident, "macro parameter")
			if err != nil {
				return nil, err
			}
			params = append(params, t.Lexeme)
			if !p.match(lexer.Comma) {
				break
			}
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.MacroDefinition{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Params: params, Body: body}, nil
	}
	if _, err := p.expect(lexer.ColonEq, "':='"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.MacroConstant{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Expr: expr}, nil
}

func (p *Parser) parseConstDecl() (*ast.ConstDeclaration, error) {
	start := p.advance() // 'const'
	nameTok, err := p.expect(lexer.Ident, "const name")
	if err != nil {
		return nil, err
	}
	wrap := false
	if p.match(lexer.LParen) {
		wrap = true
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.ColonEq, "':='"); err != nil {
		return nil, err
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	return &ast.ConstDeclaration{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Expr: expr, Wrap: wrap}, nil
}

func (p *Parser) parseEventDecl() (*ast.EventDecl, error) {
	start := p.advance() // 'event'
	noinline := false
	inline := false
	packed := false
	anon := false
	for {
		switch {
		case p.match("noinline"):
			noinline = true
		case p.match("inline"):
			inline = true
		case p.match("packed"):
			packed = true
		case p.match("anonymous"):
			anon = true
		default:
			goto done
		}
	}
done:
	nameTok, err := p.expect(lexer.Ident, "event name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	var params []ast.EventParam
	for !p.check(lexer.RParen) {
		typ, err := p.parseABITypeToken()
		if err != nil {
			return nil, err
		}
		indexed := p.match("indexed")
		name := ""
		if p.check(lexer.Ident) {
			name = p.advance().Lexeme
		}
		params = append(params, ast.EventParam{Type: typ, Name: name, Indexed: indexed})
		if !p.match(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return &ast.EventDecl{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Params: params, Anonymous: anon, Packed: packed, NoInline: noinline && !inline}, nil
}

func (p *Parser) parseErrorDecl() (*ast.ErrorDecl, error) {
	start := p.advance() // 'error'
	nameTok, err := p.expect(lexer.Ident, "error name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	return &ast.ErrorDecl{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Params: params}, nil
}

func (p *Parser) parseMethodDeclOrDef() (ast.Node, error) {
	start := p.advance() // 'method'
	nameTok, err := p.expect(lexer.Ident, "method name")
	if err != nil {
		return nil, err
	}
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	vis := ast.VisibilityExternal
	mut := ast.MutabilityNonpayable
	locked := false
	for {
		switch {
		case p.match("external"):
			vis = ast.VisibilityExternal
		case p.match("public"):
			vis = ast.VisibilityPublic
		case p.match("view"):
			mut = ast.MutabilityView
		case p.match("pure"):
			mut = ast.MutabilityPure
		case p.match("payable"):
			mut = ast.MutabilityPayable
		case p.match("locked"):
			locked = true
		default:
			goto done
		}
	}
done:
	returns, err := p.parseReturnsList()
	if err != nil {
		return nil, err
	}
	if p.check(lexer.LBrace) {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.MethodDef{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Params: params, Visibility: vis, Mutability: mut, Locked: locked, Returns: returns, Body: body}, nil
	}
	return &ast.MethodDecl{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme, Params: params, Visibility: vis, Mutability: mut, Returns: returns}, nil
}

func (p *Parser) parseConstructorDeclOrDef() (ast.Node, error) {
	start := p.advance() // 'constructor'
	params, err := p.parseParamList()
	if err != nil {
		return nil, err
	}
	payable := p.match("payable")
	unchecked := p.match("unchecked")
	if p.check(lexer.LBrace) {
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		return &ast.ConstructorDef{Base: ast.NewBase(p.posOf(start)), Params: params, Payable: payable, Unchecked: unchecked, Body: body}, nil
	}
	return &ast.ConstructorDecl{Base: ast.NewBase(p.posOf(start)), Params: params, Payable: payable}, nil
}

func (p *Parser) parseEmit() (*ast.Emit, error) {
	start := p.advance() // 'emit'
	nameTok, err := p.expect(lexer.Ident, "event name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	e := &ast.Emit{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme}
	if !p.check(lexer.RParen) {
		off, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		e.Offset = off
		for p.match(lexer.Comma) {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			e.Args = append(e.Args, arg)
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return e, nil
}

func (p *Parser) parseThrow() (*ast.Throw, error) {
	start := p.advance() // 'throw'
	nameTok, err := p.expect(lexer.Ident, "error name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LParen, "'('"); err != nil {
		return nil, err
	}
	t := &ast.Throw{Base: ast.NewBase(p.posOf(start)), Name: nameTok.Lexeme}
	for !p.check(lexer.RParen) {
		arg, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		t.Args = append(t.Args, arg)
		if !p.match(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return t, nil
}

// ---- expression-or-assignment (the first of the two backtrack points) -----

func (p *Parser) parseExpressionOrAssignment() (ast.Node, error) {
	start := p.cur()

	if p.check(lexer.Ident) {
		mark := p.snapshot()

		// `name1, name2 := expr`
		var names []string
		names = append(names, p.advance().Lexeme)
		for p.match(lexer.Comma) {
			if !p.check(lexer.Ident) {
				break
			}
			names = append(names, p.advance().Lexeme)
		}
		if p.match(lexer.ColonEq) {
			val, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			return &ast.Assignment{Base: ast.NewBase(p.posOf(start)), Names: names, Value: val}, nil
		}
		p.restore(mark)

		// `name[@Cast]->member := expr` / `|= expr`
		if mem, ok := p.tryParseMemberIdentifier(); ok {
			if p.check(lexer.ColonEq) || p.check(lexer.PipeEq) {
				or := p.check(lexer.PipeEq)
				p.advance()
				val, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				return &ast.MemberAssignment{Base: ast.NewBase(p.posOf(start)), Target: mem, Value: val, Or: or}, nil
			}
			p.restore(mark)
		}
	}

	return p.parseExpression()
}

// tryParseMemberIdentifier attempts `name['@'Cast]'->'member`, restoring the
// cursor and reporting false if the shape does not match.
func (p *Parser) tryParseMemberIdentifier() (*ast.MemberIdentifier, bool) {
	mark := p.snapshot()
	if !p.check(lexer.Ident) {
		return nil, false
	}
	start := p.cur()
	base := p.advance().Lexeme
	cast := ""
	if p.match(lexer.At) {
		if !p.check(lexer.Ident) {
			p.restore(mark)
			return nil, false
		}
		cast = p.advance().Lexeme
	}
	if !p.match(lexer.Arrow) {
		p.restore(mark)
		return nil, false
	}
	if !p.check(lexer.Ident) {
		p.restore(mark)
		return nil, false
	}
	member := p.advance().Lexeme
	return &ast.MemberIdentifier{Base: ast.NewBase(p.posOf(start)), BaseName: base, Cast: cast, Member: member}, true
}

// ---- expressions (spec §4.2 precedence: struct-init, interface-call,
// function-call, literal, identifier) -----------------------------------

// exprKeywords holds reserved words that parseExpression still hands to
// parseIdentOrCall, so in expression position they are read as an
// identifier or call name instead of erroring out. Dotted names such as
// "method.select()" lex as a single Ident and never consult this table.
var exprKeywords = map[lexer.Type]bool{
	"method": true, "event": true, "error": true, "returns": true,
	"const": true, "struct": true, "data": true,
}

func (p *Parser) parseExpression() (ast.Node, error) {
	switch p.cur().Type {
	case lexer.Number, lexer.HexNumber, lexer.String, lexer.HexLiteral, "true", "false":
		return p.parseLiteral()
	case lexer.Amp:
		return p.parseCallDataRef()
	case lexer.Ident:
		return p.parseIdentOrCall()
	default:
		if exprKeywords[p.cur().Type] {
			return p.parseIdentOrCall()
		}
		return nil, p.errf(p.cur(), "unexpected token %q in expression", p.cur().Lexeme)
	}
}

func (p *Parser) parseCallDataRef() (ast.Node, error) {
	start := p.advance() // '&'
	baseTok, err := p.expect(lexer.Ident, "identifier")
	if err != nil {
		return nil, err
	}
	// The lexer keeps '.' inside identifiers, so `calldata.member` arrives
	// as one Ident token.
	if member := strings.TrimPrefix(baseTok.Lexeme, "calldata."); member != baseTok.Lexeme && member != "" {
		return &ast.CallDataIdentifier{Base: ast.NewBase(p.posOf(start)), Member: member, Ref: true}, nil
	}
	return nil, p.errf(baseTok, "'&' is only valid before calldata.<member>")
}

func (p *Parser) parseIdentOrCall() (ast.Node, error) {
	start := p.cur()
	if mem, ok := p.tryParseMemberIdentifier(); ok {
		return mem, nil
	}

	name := p.advance().Lexeme
	if member := strings.TrimPrefix(name, "calldata."); member != name && member != "" {
		return &ast.CallDataIdentifier{Base: ast.NewBase(p.posOf(start)), Member: member}, nil
	}

	// dotted namespaced call: `a.b.c(...)`
	for p.check(lexer.Dot) {
		save := p.snapshot()
		p.advance()
		if !p.check(lexer.Ident) {
			p.restore(save)
			break
		}
		name += "." + p.advance().Lexeme
	}

	if !p.match(lexer.LParen) {
		return &ast.Identifier{Base: ast.NewBase(p.posOf(start)), Value: name, Replaceable: true}, nil
	}

	var args []ast.Node
	for !p.check(lexer.RParen) {
		if name == "struct" && p.check(lexer.At) {
			at := p.advance()
			args = append(args, &ast.DefaultArg{Base: ast.NewBase(p.posOf(at))})
		} else {
			arg, err := p.parseExpression()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}
		if !p.match(lexer.Comma) {
			break
		}
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}

	if name == "struct" {
		if len(args) == 0 {
			return nil, p.errf(start, "struct() requires a struct name argument")
		}
		ident, ok := args[0].(*ast.Identifier)
		if !ok {
			return nil, p.errf(start, "struct() first argument must be a struct name")
		}
		return &ast.StructInitializer{Base: ast.NewBase(p.posOf(start)), Struct: ident.Value, Args: args[1:]}, nil
	}

	return &ast.FunctionCall{Base: ast.NewBase(p.posOf(start)), Name: name, Args: args}, nil
}

func (p *Parser) parseLiteral() (*ast.Literal, error) {
	start := p.cur()
	switch start.Type {
	case lexer.Number:
		p.advance()
		unit := ""
		if p.check(lexer.Ident) {
			unit = p.advance().Lexeme
		}
		return &ast.Literal{Base: ast.NewBase(p.posOf(start)), Subtype: ast.LitDecimalNumber, Value: start.Lexeme, Unit: unit}, nil
	case lexer.HexNumber:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.posOf(start)), Subtype: ast.LitHexNumber, Value: start.Lexeme}, nil
	case lexer.String:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.posOf(start)), Subtype: ast.LitString, Value: start.Lexeme}, nil
	case lexer.HexLiteral:
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.posOf(start)), Subtype: ast.LitHex, Value: start.Lexeme}, nil
	case "true", "false":
		p.advance()
		return &ast.Literal{Base: ast.NewBase(p.posOf(start)), Subtype: ast.LitBool, Value: start.Lexeme}, nil
	default:
		return nil, p.errf(start, "expected literal, got %q", start.Lexeme)
	}
}
