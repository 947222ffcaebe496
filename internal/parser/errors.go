package parser

import (
	"github.com/lhaig/tmplc/internal/diagnostic"
	"github.com/lhaig/tmplc/internal/lexer"
)

// Parser holds parser state over a pre-lexed token stream.
//
// Unlike a parser for a general-purpose language, this one never
// synchronizes past an error and keeps parsing: spec §7 is explicit that
// lexer/parser errors mean no partial output, so the first diagnostic ends
// the parse. There is deliberately no syncTokens table here.
type Parser struct {
	tokens []lexer.Token
	pos    int
	diags  *diagnostic.Diagnostics
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

// peekAt looks ahead offset tokens without consuming any.
func (p *Parser) peekAt(offset int) lexer.Token {
	i := p.pos + offset
	if i >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[i]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

// expect consumes the current token if it matches tt, otherwise reports an
// error and leaves the cursor in place.
func (p *Parser) expect(tt lexer.TokenType) lexer.Token {
	tok := p.current()
	if tok.Type != tt {
		p.diags.Errorf(tok.Line, tok.Column, "expected %s, got %s", tt, tok.Type)
		return tok
	}
	return p.advance()
}

func (p *Parser) check(tt lexer.TokenType) bool {
	return p.current().Type == tt
}
