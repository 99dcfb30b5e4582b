// Package parser builds the normalized AST from the token stream with a
// recursive-descent / Pratt expression parser. Statements are terminated by
// newlines; blocks are closed by the `job` keyword.
package parser

import (
	"strconv"

	"github.com/pasalang/pasa/internal/ast"
	"github.com/pasalang/pasa/internal/diagnostics"
	"github.com/pasalang/pasa/internal/pipeline"
	"github.com/pasalang/pasa/internal/token"
)

// Operator precedence levels, lowest binds loosest.
const (
	_ int = iota
	LOWEST
	ASSIGNP // =
	TERNARY // ?:
	ORP     // ||
	ANDP    // &&
	BITOR   // |
	BITXOR  // ^
	BITAND  // &
	EQUALS  // == !=
	COMPARE // < <= > >=
	SHIFT   // << >>
	SUM     // + -
	PRODUCT // * / %
	POWERP  // **
	PREFIX  // ! - ~
	CALL    // () . []
)

var precedences = map[token.TokenType]int{
	token.ASSIGN:   ASSIGNP,
	token.QUESTION: TERNARY,
	token.OR:       ORP,
	token.AND:      ANDP,
	token.PIPE:     BITOR,
	token.CARET:    BITXOR,
	token.AMP:      BITAND,
	token.EQ:       EQUALS,
	token.NOT_EQ:   EQUALS,
	token.LT:       COMPARE,
	token.LE:       COMPARE,
	token.GT:       COMPARE,
	token.GE:       COMPARE,
	token.LSHIFT:   SHIFT,
	token.RSHIFT:   SHIFT,
	token.PLUS:     SUM,
	token.MINUS:    SUM,
	token.ASTERISK: PRODUCT,
	token.SLASH:    PRODUCT,
	token.PERCENT:  PRODUCT,
	token.POWER:    POWERP,
	token.LPAREN:   CALL,
	token.DOT:      CALL,
	token.LBRACKET: CALL,
}

type Parser struct {
	tokens []token.Token
	pos    int
	diags  *diagnostics.List
}

func New(tokens []token.Token, diags *diagnostics.List) *Parser {
	return &Parser{tokens: tokens, diags: diags}
}

// ParseProgram parses the whole token stream. A failed statement records a
// diagnostic and parsing resumes at the next line.
func (p *Parser) ParseProgram() *ast.Program {
	program := &ast.Program{}
	p.skipNewlines()
	for !p.curIs(token.EOF) {
		stmt := p.parseStatement()
		if stmt != nil {
			program.Statements = append(program.Statements, stmt)
		} else {
			p.synchronize()
		}
		p.skipNewlines()
	}
	return program
}

// --- cursor helpers ---

func (p *Parser) cur() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek() token.Token {
	if p.pos+1 >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos+1]
}

func (p *Parser) curIs(t token.TokenType) bool  { return p.cur().Type == t }
func (p *Parser) peekIs(t token.TokenType) bool { return p.peek().Type == t }

func (p *Parser) advance() token.Token {
	tok := p.cur()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(t token.TokenType) (token.Token, bool) {
	if p.curIs(t) {
		return p.advance(), true
	}
	p.error("expected %s, got %s", t, p.cur().Type)
	return p.cur(), false
}

func (p *Parser) error(format string, args ...interface{}) {
	p.diags.Add(diagnostics.StageParse, p.cur().Line, format, args...)
}

func (p *Parser) skipNewlines() {
	for p.curIs(token.NEWLINE) {
		p.advance()
	}
}

// synchronize skips to the start of the next line after a parse error.
func (p *Parser) synchronize() {
	for !p.curIs(token.NEWLINE) && !p.curIs(token.EOF) {
		p.advance()
	}
}

// endStatement consumes the statement terminator. Block-closing keywords
// terminate a statement without being consumed, so one-line forms like
// `karani 1: da "one"` parse naturally.
func (p *Parser) endStatement() {
	switch p.cur().Type {
	case token.NEWLINE:
		p.advance()
	case token.EOF, token.JOB, token.UEN, token.KARANI, token.POKATI, token.JAP:
		// left for the enclosing block
	default:
		p.error("unexpected %s after statement", p.cur().Type)
		p.synchronize()
	}
}

// --- statements ---

func (p *Parser) parseStatement() ast.Statement {
	before := len(p.diags.Items())
	var stmt ast.Statement

	switch p.cur().Type {
	case token.AO:
		stmt = p.parseVarStatement()
	case token.DA:
		stmt = p.parsePrintStatement()
	case token.THA:
		stmt = p.parseIfStatement()
	case token.WONN:
		stmt = p.parseWhileStatement()
	case token.SAMRAP:
		stmt = p.parseForStatement()
	case token.KIAN:
		if p.peekIs(token.IDENT) {
			stmt = p.parseFunctionStatement(false)
		} else {
			stmt = p.parseExpressionStatement()
		}
	case token.PROM:
		if p.peekIs(token.KIAN) {
			p.advance()
			stmt = p.parseFunctionStatement(true)
		} else {
			p.error("expected kian after prom")
			return nil
		}
	case token.KUUN:
		stmt = p.parseReturnStatement()
	case token.KLUM:
		stmt = p.parseClassStatement()
	case token.YUT:
		tok := p.advance()
		stmt = &ast.BreakStatement{Token: tok}
		p.endStatement()
	case token.TOR:
		tok := p.advance()
		stmt = &ast.ContinueStatement{Token: tok}
		p.endStatement()
	case token.CHEEK:
		stmt = p.parseSwitchStatement()
	case token.LONG:
		stmt = p.parseTryStatement()
	default:
		stmt = p.parseExpressionStatement()
	}

	if len(p.diags.Items()) > before {
		return nil
	}
	return stmt
}

func (p *Parser) parseVarStatement() ast.Statement {
	tok := p.advance() // ao
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	stmt := &ast.VarStatement{
		Token: tok,
		Name:  &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
	}
	if p.curIs(token.ASSIGN) {
		p.advance()
		stmt.Value = p.parseExpression(LOWEST)
	}
	p.endStatement()
	return stmt
}

func (p *Parser) parsePrintStatement() ast.Statement {
	tok := p.advance() // da
	stmt := &ast.PrintStatement{Token: tok}
	stmt.Values = append(stmt.Values, p.parseExpression(LOWEST))
	for p.curIs(token.COMMA) {
		p.advance()
		stmt.Values = append(stmt.Values, p.parseExpression(LOWEST))
	}
	p.endStatement()
	return stmt
}

// parseBlockUntil collects statements until one of the stop tokens. The
// stop token itself is left for the caller.
func (p *Parser) parseBlockUntil(stops ...token.TokenType) *ast.BlockStatement {
	block := &ast.BlockStatement{Token: p.cur()}
	p.skipNewlines()
	for {
		if p.curIs(token.EOF) {
			p.error("unexpected end of input, expected job")
			return block
		}
		for _, s := range stops {
			if p.curIs(s) {
				return block
			}
		}
		stmt := p.parseStatement()
		if stmt != nil {
			block.Statements = append(block.Statements, stmt)
		} else {
			p.synchronize()
		}
		p.skipNewlines()
	}
}

func (p *Parser) parseIfStatement() ast.Statement {
	stmt := p.parseIfCore()
	p.expect(token.JOB)
	p.endStatement()
	return stmt
}

// parseIfCore parses a tha...uen chain; the shared trailing job is consumed
// by parseIfStatement.
func (p *Parser) parseIfCore() *ast.IfStatement {
	tok := p.advance() // tha
	stmt := &ast.IfStatement{Token: tok}
	stmt.Condition = p.parseExpression(LOWEST)
	stmt.Consequence = p.parseBlockUntil(token.UEN, token.JOB)
	if p.curIs(token.UEN) {
		p.advance()
		if p.curIs(token.THA) {
			stmt.Alternative = p.parseIfCore()
		} else {
			stmt.Alternative = p.parseBlockUntil(token.JOB)
		}
	}
	return stmt
}

func (p *Parser) parseWhileStatement() ast.Statement {
	tok := p.advance() // wonn
	stmt := &ast.WhileStatement{Token: tok}
	stmt.Condition = p.parseExpression(LOWEST)
	stmt.Body = p.parseBlockUntil(token.JOB)
	p.expect(token.JOB)
	p.endStatement()
	return stmt
}

func (p *Parser) parseForStatement() ast.Statement {
	tok := p.advance() // samrap
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	stmt := &ast.ForStatement{
		Token: tok,
		Name:  &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
	}
	if _, ok := p.expect(token.ASSIGN); !ok {
		return nil
	}
	stmt.Start = p.parseExpression(LOWEST)
	if _, ok := p.expect(token.THUENG); !ok {
		return nil
	}
	stmt.End = p.parseExpression(LOWEST)
	if p.curIs(token.KHAN) {
		p.advance()
		stmt.Step = p.parseExpression(LOWEST)
	}
	stmt.Body = p.parseBlockUntil(token.JOB)
	p.expect(token.JOB)
	p.endStatement()
	return stmt
}

func (p *Parser) parseFunctionStatement(isAsync bool) ast.Statement {
	tok := p.advance() // kian
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	stmt := &ast.FunctionStatement{
		Token:   tok,
		Name:    &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
		IsAsync: isAsync,
	}
	stmt.Parameters = p.parseParameters()
	stmt.Body = p.parseBlockUntil(token.JOB)
	p.expect(token.JOB)
	p.endStatement()
	return stmt
}

func (p *Parser) parseParameters() []*ast.Identifier {
	var params []*ast.Identifier
	if _, ok := p.expect(token.LPAREN); !ok {
		return params
	}
	if p.curIs(token.RPAREN) {
		p.advance()
		return params
	}
	for {
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			return params
		}
		params = append(params, &ast.Identifier{Token: nameTok, Value: nameTok.Literal})
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
	}
	p.expect(token.RPAREN)
	return params
}

func (p *Parser) parseReturnStatement() ast.Statement {
	tok := p.advance() // kuun
	stmt := &ast.ReturnStatement{Token: tok}
	switch p.cur().Type {
	case token.NEWLINE, token.EOF, token.JOB, token.UEN, token.KARANI, token.POKATI, token.JAP:
	default:
		stmt.Value = p.parseExpression(LOWEST)
	}
	p.endStatement()
	return stmt
}

func (p *Parser) parseClassStatement() ast.Statement {
	tok := p.advance() // klum
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	stmt := &ast.ClassStatement{
		Token: tok,
		Name:  &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
	}
	p.skipNewlines()
	for p.curIs(token.KIAN) || (p.curIs(token.PROM) && p.peekIs(token.KIAN)) {
		isAsync := false
		if p.curIs(token.PROM) {
			p.advance()
			isAsync = true
		}
		method := p.parseFunctionStatement(isAsync)
		if fs, ok := method.(*ast.FunctionStatement); ok {
			stmt.Methods = append(stmt.Methods, fs)
		}
		p.skipNewlines()
	}
	p.expect(token.JOB)
	p.endStatement()
	return stmt
}

func (p *Parser) parseSwitchStatement() ast.Statement {
	tok := p.advance() // cheek
	stmt := &ast.SwitchStatement{Token: tok}
	stmt.Subject = p.parseExpression(LOWEST)
	p.skipNewlines()
	for p.curIs(token.KARANI) {
		caseTok := p.advance()
		c := &ast.SwitchCase{Token: caseTok}
		c.Value = p.parseExpression(LOWEST)
		p.expect(token.COLON)
		body := p.parseBlockUntil(token.KARANI, token.POKATI, token.JOB)
		c.Body = body.Statements
		stmt.Cases = append(stmt.Cases, c)
	}
	if p.curIs(token.POKATI) {
		p.advance()
		p.expect(token.COLON)
		body := p.parseBlockUntil(token.JOB)
		stmt.Default = body.Statements
	}
	p.expect(token.JOB)
	p.endStatement()
	return stmt
}

func (p *Parser) parseTryStatement() ast.Statement {
	tok := p.advance() // long
	stmt := &ast.TryStatement{Token: tok}
	stmt.Body = p.parseBlockUntil(token.JAP)
	p.expect(token.JAP)
	if p.curIs(token.IDENT) {
		nameTok := p.advance()
		stmt.CatchName = &ast.Identifier{Token: nameTok, Value: nameTok.Literal}
	}
	stmt.Catch = p.parseBlockUntil(token.JOB)
	p.expect(token.JOB)
	p.endStatement()
	return stmt
}

func (p *Parser) parseExpressionStatement() ast.Statement {
	tok := p.cur()
	expr := p.parseExpression(LOWEST)
	if expr == nil {
		return nil
	}
	p.endStatement()
	return &ast.ExpressionStatement{Token: tok, Expression: expr}
}

// --- expressions (Pratt) ---

func (p *Parser) curPrecedence() int {
	if prec, ok := precedences[p.cur().Type]; ok {
		return prec
	}
	return LOWEST
}

func (p *Parser) parseExpression(precedence int) ast.Expression {
	left := p.parsePrefix()
	if left == nil {
		return nil
	}
	for precedence < p.curPrecedence() {
		left = p.parseInfix(left)
		if left == nil {
			return nil
		}
	}
	return left
}

func (p *Parser) parsePrefix() ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case token.NUMBER:
		p.advance()
		value, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.error("invalid number literal %q", tok.Literal)
			return nil
		}
		return &ast.NumberLiteral{Token: tok, Value: value}
	case token.STRING:
		p.advance()
		return &ast.StringLiteral{Token: tok, Value: tok.Literal}
	case token.JING:
		p.advance()
		return &ast.BooleanLiteral{Token: tok, Value: true}
	case token.TEJ:
		p.advance()
		return &ast.BooleanLiteral{Token: tok, Value: false}
	case token.WANG:
		p.advance()
		return &ast.NilLiteral{Token: tok}
	case token.IDENT:
		p.advance()
		return &ast.Identifier{Token: tok, Value: tok.Literal}
	case token.NI:
		p.advance()
		return &ast.ThisExpression{Token: tok}
	case token.BANG, token.MINUS, token.TILDE:
		p.advance()
		right := p.parseExpression(PREFIX)
		if right == nil {
			return nil
		}
		return &ast.PrefixExpression{Token: tok, Operator: tok.Literal, Right: right}
	case token.LPAREN:
		p.advance()
		p.skipNewlines()
		expr := p.parseExpression(LOWEST)
		p.skipNewlines()
		p.expect(token.RPAREN)
		return expr
	case token.LBRACKET:
		return p.parseArrayLiteral()
	case token.LBRACE:
		return p.parseObjectLiteral()
	case token.KIAN:
		return p.parseFunctionLiteral(false)
	case token.PROM:
		if p.peekIs(token.KIAN) {
			p.advance()
			return p.parseFunctionLiteral(true)
		}
	case token.MAI:
		return p.parseNewExpression()
	case token.RO:
		p.advance()
		value := p.parseExpression(PREFIX)
		if value == nil {
			return nil
		}
		return &ast.AwaitExpression{Token: tok, Value: value}
	case token.SPREAD:
		p.advance()
		value := p.parseExpression(PREFIX)
		if value == nil {
			return nil
		}
		return &ast.SpreadExpression{Token: tok, Value: value}
	}
	p.error("unexpected token %s in expression", tok.Type)
	p.advance()
	return nil
}

func (p *Parser) parseInfix(left ast.Expression) ast.Expression {
	tok := p.cur()
	switch tok.Type {
	case token.PLUS, token.MINUS, token.ASTERISK, token.SLASH, token.PERCENT,
		token.EQ, token.NOT_EQ, token.LT, token.LE, token.GT, token.GE,
		token.AMP, token.PIPE, token.CARET, token.LSHIFT, token.RSHIFT:
		prec := p.curPrecedence()
		p.advance()
		right := p.parseExpression(prec)
		if right == nil {
			return nil
		}
		return &ast.InfixExpression{Token: tok, Operator: tok.Literal, Left: left, Right: right}
	case token.POWER:
		// Right-associative.
		p.advance()
		right := p.parseExpression(POWERP - 1)
		if right == nil {
			return nil
		}
		return &ast.InfixExpression{Token: tok, Operator: tok.Literal, Left: left, Right: right}
	case token.AND, token.OR:
		prec := p.curPrecedence()
		p.advance()
		right := p.parseExpression(prec)
		if right == nil {
			return nil
		}
		return &ast.LogicalExpression{Token: tok, Operator: tok.Literal, Left: left, Right: right}
	case token.QUESTION:
		p.advance()
		thenExpr := p.parseExpression(LOWEST)
		if _, ok := p.expect(token.COLON); !ok {
			return nil
		}
		elseExpr := p.parseExpression(TERNARY - 1)
		if thenExpr == nil || elseExpr == nil {
			return nil
		}
		return &ast.TernaryExpression{Token: tok, Condition: left, Then: thenExpr, Else: elseExpr}
	case token.ASSIGN:
		switch left.(type) {
		case *ast.Identifier, *ast.MemberExpression, *ast.IndexExpression:
		default:
			p.error("invalid assignment target")
			return nil
		}
		p.advance()
		value := p.parseExpression(ASSIGNP - 1)
		if value == nil {
			return nil
		}
		return &ast.AssignExpression{Token: tok, Target: left, Value: value}
	case token.LPAREN:
		p.advance()
		args := p.parseArguments()
		return &ast.CallExpression{Token: tok, Callee: left, Arguments: args}
	case token.DOT:
		p.advance()
		nameTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		return &ast.MemberExpression{
			Token:    tok,
			Object:   left,
			Property: &ast.Identifier{Token: nameTok, Value: nameTok.Literal},
		}
	case token.LBRACKET:
		p.advance()
		index := p.parseExpression(LOWEST)
		p.expect(token.RBRACKET)
		if index == nil {
			return nil
		}
		return &ast.IndexExpression{Token: tok, Object: left, Index: index}
	}
	p.error("unexpected infix token %s", tok.Type)
	return nil
}

// parseArguments parses a call argument list after the opening paren.
func (p *Parser) parseArguments() []ast.Expression {
	var args []ast.Expression
	p.skipNewlines()
	if p.curIs(token.RPAREN) {
		p.advance()
		return args
	}
	for {
		arg := p.parseExpression(LOWEST)
		if arg == nil {
			return args
		}
		args = append(args, arg)
		p.skipNewlines()
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}
	p.expect(token.RPAREN)
	return args
}

func (p *Parser) parseArrayLiteral() ast.Expression {
	tok := p.advance() // [
	lit := &ast.ArrayLiteral{Token: tok}
	p.skipNewlines()
	if p.curIs(token.RBRACKET) {
		p.advance()
		return lit
	}
	for {
		elem := p.parseExpression(LOWEST)
		if elem == nil {
			return lit
		}
		lit.Elements = append(lit.Elements, elem)
		p.skipNewlines()
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}
	p.expect(token.RBRACKET)
	return lit
}

func (p *Parser) parseObjectLiteral() ast.Expression {
	tok := p.advance() // {
	lit := &ast.ObjectLiteral{Token: tok}
	p.skipNewlines()
	if p.curIs(token.RBRACE) {
		p.advance()
		return lit
	}
	for {
		var key ast.Expression
		switch p.cur().Type {
		case token.IDENT:
			keyTok := p.advance()
			key = &ast.StringLiteral{Token: keyTok, Value: keyTok.Literal}
		case token.STRING:
			keyTok := p.advance()
			key = &ast.StringLiteral{Token: keyTok, Value: keyTok.Literal}
		case token.NUMBER:
			keyTok := p.advance()
			value, err := strconv.ParseFloat(keyTok.Literal, 64)
			if err != nil {
				p.error("invalid number literal %q", keyTok.Literal)
				return lit
			}
			key = &ast.NumberLiteral{Token: keyTok, Value: value}
		case token.LBRACKET:
			p.advance()
			key = p.parseExpression(LOWEST)
			p.expect(token.RBRACKET)
		default:
			p.error("invalid object key %s", p.cur().Type)
			return lit
		}
		if _, ok := p.expect(token.COLON); !ok {
			return lit
		}
		value := p.parseExpression(LOWEST)
		if key == nil || value == nil {
			return lit
		}
		lit.Entries = append(lit.Entries, ast.ObjectEntry{Key: key, Value: value})
		p.skipNewlines()
		if !p.curIs(token.COMMA) {
			break
		}
		p.advance()
		p.skipNewlines()
	}
	p.expect(token.RBRACE)
	return lit
}

func (p *Parser) parseFunctionLiteral(isAsync bool) ast.Expression {
	tok := p.advance() // kian
	lit := &ast.FunctionLiteral{Token: tok, IsAsync: isAsync}
	lit.Parameters = p.parseParameters()
	lit.Body = p.parseBlockUntil(token.JOB)
	p.expect(token.JOB)
	return lit
}

func (p *Parser) parseNewExpression() ast.Expression {
	tok := p.advance() // mai
	nameTok, ok := p.expect(token.IDENT)
	if !ok {
		return nil
	}
	var callee ast.Expression = &ast.Identifier{Token: nameTok, Value: nameTok.Literal}
	for p.curIs(token.DOT) {
		dotTok := p.advance()
		propTok, ok := p.expect(token.IDENT)
		if !ok {
			return nil
		}
		callee = &ast.MemberExpression{
			Token:    dotTok,
			Object:   callee,
			Property: &ast.Identifier{Token: propTok, Value: propTok.Literal},
		}
	}
	if _, ok := p.expect(token.LPAREN); !ok {
		return nil
	}
	args := p.parseArguments()
	return &ast.NewExpression{Token: tok, Callee: callee, Arguments: args}
}

// ParserProcessor adapts the parser to the pipeline.
type ParserProcessor struct{}

func (ParserProcessor) Process(ctx *pipeline.PipelineContext) *pipeline.PipelineContext {
	p := New(ctx.Tokens, ctx.Diags)
	ctx.AstRoot = p.ParseProgram()
	return ctx
}
