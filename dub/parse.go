package dub

import (
	"fmt"
	"strconv"
)

type Node interface {
	isNode()
}

func (Identifier) isNode() {}
func (Int) isNode()        {}
func (Float) isNode()      {}
func (String) isNode()     {}
func (StepExpr) isNode()   {}

// Command is one parsed instruction: a name and its arguments.
type Command struct {
	Name Identifier
	Args []Node
}

type Identifier string
type Int int
type Float float64
type String string

// Parse parses a line into commands. Semicolons separate commands.
func Parse(input string) ([]Command, error) {
	tokens, err := lex(input)
	if err != nil {
		return nil, err
	}
	p := parser{tokens: tokens}
	return p.parse()
}

type parser struct {
	pos    int
	tokens []token
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	p.pos++
	return t
}

func (p *parser) peek() token {
	t := p.next()
	p.pos--
	return t
}

func (p *parser) backup() {
	p.pos--
}

func (p *parser) parse() ([]Command, error) {
	var cmds []Command
	for {
		for p.peek().typ == typeSemicolon {
			p.next()
		}
		if p.peek().typ == typeEOF {
			return cmds, nil
		}
		cmd, err := p.parseCommand()
		if err != nil {
			return cmds, err
		}
		cmds = append(cmds, cmd)
	}
}

func (p *parser) parseCommand() (Command, error) {
	var cmd Command
	token := p.next()
	if token.typ != typeIdentifier {
		return cmd, unexpected(token)
	}
	cmd.Name = Identifier(token.text)
	for {
		token := p.next()
		if token.typ == typeEOF || token.typ == typeSemicolon {
			p.backup()
			return cmd, nil
		}
		var arg Node
		switch token.typ {
		case typeIdentifier:
			arg = Identifier(token.text)
		case typeString:
			arg = String(token.text[1 : len(token.text)-1])
		case typeFloat:
			f, err := strconv.ParseFloat(token.text, 64)
			if err != nil {
				return cmd, err
			}
			arg = Float(f)
		case typeInt:
			n, err := strconv.Atoi(token.text)
			if err != nil {
				return cmd, err
			}
			arg = Int(n)
		case typeQuote:
			expr, err := p.stepExpr()
			if err != nil {
				return cmd, err
			}
			arg = expr
		default:
			return cmd, unexpected(token)
		}
		cmd.Args = append(cmd.Args, arg)
	}
}

// stepExpr parses the selector after a quote: a star, a single step, a
// list (1,3,5) or a range (1:4), optionally followed by /N to keep
// every Nth matched step.
func (p *parser) stepExpr() (StepExpr, error) {
	var expr StepExpr

	switch token := p.next(); token.typ {
	case typeAsterisk:
		expr.matcher = matchAll
	case typeInt:
		first, err := strconv.Atoi(token.text)
		if err != nil {
			return expr, err
		}
		switch p.peek().typ {
		case typeColon:
			p.next()
			t := p.next()
			if t.typ != typeInt {
				return expr, unexpected(t)
			}
			end, err := strconv.Atoi(t.text)
			if err != nil {
				return expr, err
			}
			expr.matcher = rangeMatch{start: first, end: end}
		case typeComma:
			list := listMatch{first}
			for p.peek().typ == typeComma {
				p.next()
				t := p.next()
				if t.typ != typeInt {
					return expr, unexpected(t)
				}
				n, err := strconv.Atoi(t.text)
				if err != nil {
					return expr, err
				}
				list = append(list, n)
			}
			expr.matcher = list
		default:
			expr.matcher = listMatch{first}
		}
	default:
		return expr, unexpected(token)
	}

	if p.peek().typ == typeSlash {
		p.next()
		t := p.next()
		if t.typ != typeInt {
			return expr, unexpected(t)
		}
		n, err := strconv.Atoi(t.text)
		if err != nil {
			return expr, err
		}
		if n < 1 {
			return expr, fmt.Errorf("stride must be positive, got %d", n)
		}
		expr.stride = n
	}
	return expr, nil
}

func unexpected(t token) error {
	return fmt.Errorf("unexpected token %q at position %d", t.text, t.pos)
}
