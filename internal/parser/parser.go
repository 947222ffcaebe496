// Package parser turns a template's token stream into an ast.File via
// recursive descent.
package parser

import (
	"github.com/lhaig/tmplc/internal/ast"
	"github.com/lhaig/tmplc/internal/diagnostic"
	"github.com/lhaig/tmplc/internal/lexer"
)

// New lexes source and wraps the resulting token stream in a Parser.
func New(source string) *Parser {
	tokens := lexer.New(source).Tokenize()
	return &Parser{tokens: tokens, diags: diagnostic.New()}
}

// Diagnostics returns the diagnostics collected during parsing.
func (p *Parser) Diagnostics() *diagnostic.Diagnostics {
	return p.diags
}

// Parse consumes the full token stream and returns the IR tree. On any
// diagnostic it returns an empty File — per spec §7, there is no partial
// output.
func (p *Parser) Parse() *ast.File {
	if p.check(lexer.ILLEGAL) {
		tok := p.current()
		p.diags.Errorf(tok.Line, tok.Column, "%s", tok.Literal)
		return &ast.File{}
	}

	nodes := p.parseSequence(false)
	if p.diags.HasErrors() {
		return &ast.File{}
	}
	return &ast.File{Nodes: nodes}
}

// parseSequence parses a run of Text/Parameter/Conditional nodes. When
// inConditional is true it stops (without consuming) at a "{% endif %}"
// that closes the enclosing conditional, leaving it for the caller.
func (p *Parser) parseSequence(inConditional bool) []ast.Node {
	var nodes []ast.Node
	for {
		tok := p.current()
		switch tok.Type {
		case lexer.EOF:
			if inConditional {
				p.diags.Errorf(tok.Line, tok.Column, `unexpected end of file, expected "{%% endif %%}"`)
			}
			return nodes

		case lexer.ILLEGAL:
			p.diags.Errorf(tok.Line, tok.Column, "%s", tok.Literal)
			return nodes

		case lexer.CommandStart:
			if p.peekAt(1).Type == lexer.EndIf {
				if !inConditional {
					p.diags.Errorf(tok.Line, tok.Column, `unexpected "{%% endif %%}" without a matching "{%% if %%}"`)
				}
				return nodes
			}
			nodes = append(nodes, p.parseConditional())

		case lexer.ParamStart:
			nodes = append(nodes, p.parseParameter())

		case lexer.Text:
			t := p.advance()
			nodes = append(nodes, &ast.TextNode{
				Index: t.TextIndex,
				Bytes: []byte(t.Literal),
				Span:  ast.Span{Offset: t.Offset, Length: len(t.Literal)},
			})

		default:
			p.diags.Errorf(tok.Line, tok.Column, "unexpected token %s", tok.Type)
			return nodes
		}

		if p.diags.HasErrors() {
			return nodes
		}
	}
}

func (p *Parser) parseConditional() ast.Node {
	startTok := p.advance() // CommandStart
	p.expect(lexer.If)
	condTok := p.expect(lexer.Identifier)
	p.expect(lexer.CommandEnd)
	if p.diags.HasErrors() {
		return &ast.ConditionalNode{CondName: condTok.Literal}
	}

	body := p.parseSequence(true)
	if p.diags.HasErrors() {
		return &ast.ConditionalNode{CondName: condTok.Literal, Body: body}
	}

	p.expect(lexer.CommandStart)
	p.expect(lexer.EndIf)
	p.expect(lexer.CommandEnd)

	return &ast.ConditionalNode{
		CondName: condTok.Literal,
		Body:     body,
		Span:     ast.Span{Offset: startTok.Offset},
	}
}

func (p *Parser) parseParameter() ast.Node {
	startTok := p.advance() // ParamStart
	nameTok := p.expect(lexer.Identifier)
	p.expect(lexer.ParamEnd)
	return &ast.ParameterNode{
		Name: nameTok.Literal,
		Span: ast.Span{Offset: startTok.Offset},
	}
}
