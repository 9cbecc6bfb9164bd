package frontend

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/derekxu16/dishsoap/internal/common"
	"github.com/derekxu16/dishsoap/internal/ir"
	"github.com/derekxu16/dishsoap/internal/token"
)

var untyped = ir.Untyped{}

// ParseFile parses src into an untyped tree. All syntax errors are collected
// and returned as a *common.ErrorList.
func ParseFile(filename string, src []byte) (*ir.SourceFile[ir.Untyped], error) {
	p := newParser(src, filename)
	file := p.parseFile()
	if p.errors.IsError() {
		p.errors.Sort()
		return file, p.errors
	}
	return file, nil
}

type parseError int

type parser struct {
	lexer  lexer
	errors *common.ErrorList

	token   token.Token
	pos     token.Position
	literal string

	funcNames  map[string]bool
	classNames map[string]bool
}

func newParser(src []byte, filename string) *parser {
	p := &parser{}
	p.errors = &common.ErrorList{}
	p.funcNames = make(map[string]bool)
	p.classNames = make(map[string]bool)
	p.lexer.init(src, filename, p.errors)
	p.next()
	return p
}

func (p *parser) next() {
	for {
		p.token, p.pos, p.literal = p.lexer.lex()
		if !p.token.OneOf(token.Comment, token.MultiComment) {
			break
		}
	}
}

func (p *parser) error(pos token.Position, format string, args ...interface{}) {
	p.errors.Add(pos, format, args...)
}

// sync skips to the start of the next top-level declaration.
func (p *parser) sync() {
	p.next()
	for !p.token.OneOf(token.Func, token.Class, token.EOF) {
		p.next()
	}
}

func (p *parser) expect3(expected token.Token, alts []token.Token, sync bool) bool {
	if !p.token.Is(expected) {
		var buf bytes.Buffer
		buf.WriteString(fmt.Sprintf("'%s'", expected))

		for i, alt := range alts {
			if (i + 1) < len(alts) {
				buf.WriteString(fmt.Sprintf(", '%s'", alt))
			} else {
				buf.WriteString(fmt.Sprintf(" or '%s'", alt))
			}
		}

		p.error(p.pos, "expected %s, got '%s'", buf.String(), p.literal)

		if sync {
			panic(parseError(0))
		}

		return false
	}
	p.next()
	return true
}

func (p *parser) expect(id token.Token, alts ...token.Token) bool {
	return p.expect3(id, alts, true)
}

func (p *parser) parseFile() *ir.SourceFile[ir.Untyped] {
	file := ir.NewSourceFile(untyped, p.lexer.filename, nil, nil)
	file.SetPos(p.pos)

	for !p.token.Is(token.EOF) {
		p.parseTopDecl(file)
	}

	return file
}

func (p *parser) parseTopDecl(file *ir.SourceFile[ir.Untyped]) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(parseError); ok {
				p.sync()
			} else {
				panic(r)
			}
		}
	}()

	switch p.token {
	case token.Func:
		decl := p.parseFuncDecl()
		if p.funcNames[decl.Name.Name] {
			p.error(decl.Name.Pos, "redeclaration of function %s", decl.Name.Name)
		}
		p.funcNames[decl.Name.Name] = true
		file.Decls = append(file.Decls, decl)
	case token.Class:
		class := p.parseClassDecl()
		if p.classNames[class.Name.Name] {
			p.error(class.Name.Pos, "redeclaration of class %s", class.Name.Name)
		}
		p.classNames[class.Name.Name] = true
		file.Classes = append(file.Classes, class)
	default:
		p.error(p.pos, "expected '%s' or '%s', got '%s'", token.Func, token.Class, p.literal)
		panic(parseError(0))
	}
}

func (p *parser) parseIdent() *ir.Ident {
	pos := p.pos
	name := p.literal
	p.expect(token.Ident)
	return ir.NewIdent(pos, name)
}

func (p *parser) parseClassDecl() *ir.ClassDecl {
	pos := p.pos
	p.expect(token.Class)
	name := p.parseIdent()

	var typeParams []*ir.Ident
	if p.token.Is(token.Lt) {
		p.next()
		for {
			param := p.parseIdent()
			for _, prev := range typeParams {
				if prev.Name == param.Name {
					p.error(param.Pos, "duplicate type parameter %s", param.Name)
				}
			}
			typeParams = append(typeParams, param)
			if !p.token.Is(token.Comma) {
				break
			}
			p.next()
		}
		p.expect(token.Gt, token.Comma)
	}

	fields := make(map[string]ir.Type)
	p.expect(token.Lbrace)
	for !p.token.OneOf(token.Rbrace, token.EOF) {
		field := p.parseIdent()
		p.expect(token.Colon)
		t := p.parseType()
		if _, ok := fields[field.Name]; ok {
			p.error(field.Pos, "duplicate field %s", field.Name)
		}
		fields[field.Name] = t
		if !p.token.Is(token.Comma) {
			break
		}
		p.next()
	}
	p.expect(token.Rbrace, token.Comma)

	return ir.NewClassDecl(pos, name, typeParams, fields)
}

func (p *parser) parseFuncDecl() *ir.FuncDecl[ir.Untyped] {
	pos := p.pos
	p.expect(token.Func)
	name := p.parseIdent()
	params, ret := p.parseFuncSignature()
	body := p.parseBlock()
	decl := ir.NewFuncDecl(untyped, name, params, ret, body)
	decl.SetPos(pos)
	return decl
}

func (p *parser) parseFuncSignature() ([]*ir.Param[ir.Untyped], ir.Type) {
	var params []*ir.Param[ir.Untyped]
	p.expect(token.Lparen)
	for !p.token.OneOf(token.Rparen, token.EOF) {
		declarator := p.parseVarDeclarator()
		param := ir.NewParam(untyped, declarator)
		param.SetPos(declarator.Pos())
		for _, prev := range params {
			if prev.Decl.Name.Name == declarator.Name.Name {
				p.error(declarator.Pos(), "duplicate parameter %s", declarator.Name.Name)
			}
		}
		params = append(params, param)
		if !p.token.Is(token.Comma) {
			break
		}
		p.next()
	}
	p.expect(token.Rparen, token.Comma)

	ret := ir.TBuiltinUnit
	if p.token.Is(token.Arrow) {
		p.next()
		ret = p.parseType()
	}
	return params, ret
}

func (p *parser) parseVarDeclarator() *ir.VarDeclarator[ir.Untyped] {
	name := p.parseIdent()
	p.expect(token.Colon)
	t := p.parseType()
	decl := ir.NewVarDeclarator(untyped, name, t)
	decl.SetPos(name.Pos)
	return decl
}

func (p *parser) parseType() ir.Type {
	name := p.parseIdent()
	if p.token.Is(token.Lt) {
		return ir.NewReferenceType(name.Name, p.parseTypeArgs()...)
	}
	switch name.Name {
	case ir.TUnit.String():
		return ir.TBuiltinUnit
	case ir.TBool.String():
		return ir.TBuiltinBool
	case ir.TInt64.String():
		return ir.TBuiltinInt64
	}
	return ir.NewReferenceType(name.Name)
}

func (p *parser) parseTypeArgs() []ir.Type {
	var args []ir.Type
	p.expect(token.Lt)
	for {
		args = append(args, p.parseType())
		if !p.token.Is(token.Comma) {
			break
		}
		p.next()
	}
	p.expect(token.Gt, token.Comma)
	return args
}

// tryParseObjectTypeArgs parses the type arguments of an object literal. The
// parser is restored if the tokens turn out to be a comparison.
func (p *parser) tryParseObjectTypeArgs() (args []ir.Type, ok bool) {
	saved := *p
	count := p.errors.Count()

	defer func() {
		if r := recover(); r != nil {
			if _, isParseError := r.(parseError); !isParseError {
				panic(r)
			}
			*p = saved
			p.errors.Truncate(count)
			args, ok = nil, false
		}
	}()

	args = p.parseTypeArgs()
	if !p.token.Is(token.Lbrace) {
		panic(parseError(0))
	}
	return args, true
}

func (p *parser) parseBlock() *ir.Block[ir.Untyped] {
	pos := p.pos
	var stmts []ir.Stmt[ir.Untyped]
	var final ir.Expr[ir.Untyped]

	p.expect(token.Lbrace)
	for !p.token.OneOf(token.Rbrace, token.EOF) {
		if p.token.Is(token.Let) {
			stmts = append(stmts, p.parseVarDecl())
		} else if p.token.Is(token.Return) {
			stmts = append(stmts, p.parseReturnStmt())
		} else {
			final = p.parseExpr()
			break
		}
	}
	p.expect(token.Rbrace)

	block := ir.NewBlock(untyped, stmts, final)
	block.SetPos(pos)
	return block
}

func (p *parser) parseVarDecl() *ir.VarDecl[ir.Untyped] {
	pos := p.pos
	p.expect(token.Let)
	declarator := p.parseVarDeclarator()
	p.expect(token.Assign)
	init := p.parseExpr()
	p.expect(token.Semicolon)
	decl := ir.NewVarDecl(untyped, declarator, init)
	decl.SetPos(pos)
	return decl
}

func (p *parser) parseReturnStmt() *ir.ReturnStmt[ir.Untyped] {
	pos := p.pos
	p.expect(token.Return)
	x := p.parseExpr()
	p.expect(token.Semicolon)
	stmt := ir.NewReturnStmt(untyped, x)
	stmt.SetPos(pos)
	return stmt
}

func (p *parser) parseExpr() ir.Expr[ir.Untyped] {
	return p.parseBinaryExpr(ir.LowestPrec)
}

func (p *parser) parseBinaryExpr(prec int) ir.Expr[ir.Untyped] {
	expr := p.parseUnaryExpr()

	for p.token.IsBinaryOp() {
		op := p.token
		opPrec := ir.BinaryPrec(op)
		if prec < opPrec {
			break
		}
		p.next()
		right := p.parseBinaryExpr(opPrec - 1)
		bin := ir.NewBinaryExpr(untyped, expr, op, right)
		bin.SetPos(expr.Pos())
		expr = bin
	}

	return expr
}

func (p *parser) parseUnaryExpr() ir.Expr[ir.Untyped] {
	if p.token.OneOf(token.Sub, token.Lnot) {
		pos := p.pos
		op := p.token
		p.next()
		x := p.parseUnaryExpr()
		expr := ir.NewPrefixExpr(untyped, op, x)
		expr.SetPos(pos)
		return expr
	}
	return p.parseOperand()
}

func (p *parser) parseOperand() ir.Expr[ir.Untyped] {
	var expr ir.Expr[ir.Untyped]
	pos := p.pos

	switch p.token {
	case token.Lparen:
		p.next()
		if p.token.Is(token.Rparen) {
			expr = ir.NewUnitLit(untyped)
			expr.SetPos(pos)
		} else {
			expr = p.parseExpr()
		}
		p.expect(token.Rparen)
	case token.Integer:
		value, err := strconv.ParseInt(strings.ReplaceAll(p.literal, "_", ""), 10, 64)
		if err != nil {
			p.error(pos, "integer literal %s overflows I64", p.literal)
		}
		expr = ir.NewIntLit(untyped, value)
		expr.SetPos(pos)
		p.next()
	case token.True, token.False:
		expr = ir.NewBoolLit(untyped, p.token.Is(token.True))
		expr.SetPos(pos)
		p.next()
	case token.If:
		expr = p.parseIfExpr()
	case token.Ident:
		name := p.parseIdent()
		if p.token.Is(token.Lparen) {
			expr = p.parseFuncCall(name)
		} else if p.token.Is(token.Lbrace) {
			expr = p.parseObjectLit(name, nil)
		} else if p.token.Is(token.Lt) {
			if args, ok := p.tryParseObjectTypeArgs(); ok {
				expr = p.parseObjectLit(name, args)
			}
		}
		if expr == nil {
			expr = ir.NewVarRef(untyped, name)
			expr.SetPos(pos)
		}
	default:
		p.error(pos, "expected expression, got '%s'", p.literal)
		panic(parseError(0))
	}

	return p.parsePrimary(expr)
}

func (p *parser) parsePrimary(expr ir.Expr[ir.Untyped]) ir.Expr[ir.Untyped] {
	for p.token.Is(token.Dot) {
		p.next()
		field := p.parseIdent()
		dot := ir.NewFieldAccess(untyped, expr, field)
		dot.SetPos(expr.Pos())
		expr = dot
	}
	return expr
}

func (p *parser) parseIfExpr() ir.Expr[ir.Untyped] {
	pos := p.pos
	p.expect(token.If)
	p.expect(token.Lparen)
	cond := p.parseExpr()
	p.expect(token.Rparen)
	then := p.parseBlock()
	p.expect(token.Else)
	els := p.parseBlock()
	expr := ir.NewIfExpr(untyped, cond, then, els)
	expr.SetPos(pos)
	return expr
}

func (p *parser) parseFuncCall(name *ir.Ident) ir.Expr[ir.Untyped] {
	var args []ir.Expr[ir.Untyped]
	p.expect(token.Lparen)
	for !p.token.OneOf(token.Rparen, token.EOF) {
		args = append(args, p.parseExpr())
		if !p.token.Is(token.Comma) {
			break
		}
		p.next()
	}
	p.expect(token.Rparen, token.Comma)
	call := ir.NewFuncCall(untyped, name, args)
	call.SetPos(name.Pos)
	return call
}

func (p *parser) parseObjectLit(name *ir.Ident, typeArgs []ir.Type) ir.Expr[ir.Untyped] {
	fields := make(map[string]ir.Expr[ir.Untyped])
	p.expect(token.Lbrace)
	for !p.token.OneOf(token.Rbrace, token.EOF) {
		field := p.parseIdent()
		p.expect(token.Colon)
		value := p.parseExpr()
		if _, ok := fields[field.Name]; ok {
			p.error(field.Pos, "duplicate field %s", field.Name)
		}
		fields[field.Name] = value
		if !p.token.Is(token.Comma) {
			break
		}
		p.next()
	}
	p.expect(token.Rbrace, token.Comma)
	lit := ir.NewObjectLit(untyped, name, typeArgs, fields)
	lit.SetPos(name.Pos)
	return lit
}
