package preprocess

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/sartorproj/goanalyze/dataset"
)

// The row filter grammar, evaluated per row with column names as free
// variables:
//
//	expr       = andExpr { ("or" | "||") andExpr }
//	andExpr    = unary { ("and" | "&&") unary }
//	unary      = ("not" | "!") unary | comparison
//	comparison = operand [ (">" | ">=" | "<" | "<=" | "==" | "!=") operand ]
//	operand    = "(" expr ")" | ident | number | string | "true" | "false"
//
// A comparison that touches a missing value is false.

type filterNode interface {
	eval(ds *dataset.Dataset, row int) (bool, error)
}

type operandNode interface {
	value(ds *dataset.Dataset, row int) (any, bool, error)
}

type columnRef struct {
	name string
}

func (c columnRef) value(ds *dataset.Dataset, row int) (any, bool, error) {
	col, err := ds.Column(c.name)
	if err != nil {
		return nil, false, err
	}
	v, ok := col.Value(row)
	return v, ok, nil
}

type literal struct {
	v any
}

func (l literal) value(*dataset.Dataset, int) (any, bool, error) {
	return l.v, true, nil
}

// truthNode treats a bare operand (boolean column or literal) as a
// condition.
type truthNode struct {
	operand operandNode
}

func (t truthNode) eval(ds *dataset.Dataset, row int) (bool, error) {
	v, ok, err := t.operand.value(ds, row)
	if err != nil || !ok {
		return false, err
	}
	b, isBool := v.(bool)
	if !isBool {
		return false, fmt.Errorf("filter: %v is not a condition", v)
	}
	return b, nil
}

type comparison struct {
	op          string
	left, right operandNode
}

func (c comparison) eval(ds *dataset.Dataset, row int) (bool, error) {
	lv, lok, err := c.left.value(ds, row)
	if err != nil {
		return false, err
	}
	rv, rok, err := c.right.value(ds, row)
	if err != nil {
		return false, err
	}
	if !lok || !rok {
		return false, nil
	}
	return compareValues(c.op, lv, rv)
}

func compareValues(op string, lv, rv any) (bool, error) {
	if lf, lok := asFloat(lv); lok {
		rf, rok := asFloat(rv)
		if !rok {
			return false, fmt.Errorf("filter: cannot compare %v with %v", lv, rv)
		}
		switch op {
		case ">":
			return lf > rf, nil
		case ">=":
			return lf >= rf, nil
		case "<":
			return lf < rf, nil
		case "<=":
			return lf <= rf, nil
		case "==":
			return lf == rf, nil
		case "!=":
			return lf != rf, nil
		}
	}

	if ls, lok := lv.(string); lok {
		rs, rok := rv.(string)
		if !rok {
			return false, fmt.Errorf("filter: cannot compare %q with %v", ls, rv)
		}
		switch op {
		case ">":
			return ls > rs, nil
		case ">=":
			return ls >= rs, nil
		case "<":
			return ls < rs, nil
		case "<=":
			return ls <= rs, nil
		case "==":
			return ls == rs, nil
		case "!=":
			return ls != rs, nil
		}
	}

	if lb, lok := lv.(bool); lok {
		rb, rok := rv.(bool)
		if !rok {
			return false, fmt.Errorf("filter: cannot compare %v with %v", lb, rv)
		}
		switch op {
		case "==":
			return lb == rb, nil
		case "!=":
			return lb != rb, nil
		}
		return false, fmt.Errorf("filter: operator %q not defined for booleans", op)
	}

	if lt, lok := lv.(time.Time); lok {
		rt, rok := rv.(time.Time)
		if !rok {
			return false, fmt.Errorf("filter: cannot compare %v with %v", lt, rv)
		}
		switch op {
		case ">":
			return lt.After(rt), nil
		case ">=":
			return !lt.Before(rt), nil
		case "<":
			return lt.Before(rt), nil
		case "<=":
			return !lt.After(rt), nil
		case "==":
			return lt.Equal(rt), nil
		case "!=":
			return !lt.Equal(rt), nil
		}
	}

	return false, fmt.Errorf("filter: cannot compare %T values", lv)
}

type logicalNode struct {
	op          string // "and" or "or"
	left, right filterNode
}

func (l logicalNode) eval(ds *dataset.Dataset, row int) (bool, error) {
	lv, err := l.left.eval(ds, row)
	if err != nil {
		return false, err
	}
	if l.op == "and" && !lv {
		return false, nil
	}
	if l.op == "or" && lv {
		return true, nil
	}
	return l.right.eval(ds, row)
}

type notNode struct {
	inner filterNode
}

func (n notNode) eval(ds *dataset.Dataset, row int) (bool, error) {
	v, err := n.inner.eval(ds, row)
	return !v, err
}

type token struct {
	kind string // ident, number, string, op, lparen, rparen
	text string
}

func tokenize(expr string) ([]token, error) {
	var tokens []token
	i := 0
	for i < len(expr) {
		ch := expr[i]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n':
			i++
		case ch == '(':
			tokens = append(tokens, token{"lparen", "("})
			i++
		case ch == ')':
			tokens = append(tokens, token{"rparen", ")"})
			i++
		case ch == '>' || ch == '<':
			op := string(ch)
			i++
			if i < len(expr) && expr[i] == '=' {
				op += "="
				i++
			}
			tokens = append(tokens, token{"op", op})
		case ch == '=' || ch == '!':
			if i+1 < len(expr) && expr[i+1] == '=' {
				tokens = append(tokens, token{"op", string(ch) + "="})
				i += 2
			} else if ch == '!' {
				tokens = append(tokens, token{"op", "not"})
				i++
			} else {
				return nil, fmt.Errorf("filter: unexpected %q at %d", ch, i)
			}
		case ch == '&' || ch == '|':
			if i+1 >= len(expr) || expr[i+1] != ch {
				return nil, fmt.Errorf("filter: unexpected %q at %d", ch, i)
			}
			if ch == '&' {
				tokens = append(tokens, token{"op", "and"})
			} else {
				tokens = append(tokens, token{"op", "or"})
			}
			i += 2
		case ch == '\'' || ch == '"':
			quote := ch
			j := i + 1
			for j < len(expr) && expr[j] != quote {
				j++
			}
			if j >= len(expr) {
				return nil, fmt.Errorf("filter: unterminated string at %d", i)
			}
			tokens = append(tokens, token{"string", expr[i+1 : j]})
			i = j + 1
		case ch >= '0' && ch <= '9' || ch == '.' || ch == '-':
			j := i
			if ch == '-' {
				j++
			}
			for j < len(expr) && (expr[j] >= '0' && expr[j] <= '9' || expr[j] == '.' || expr[j] == 'e' || expr[j] == 'E') {
				j++
			}
			if j == i || (ch == '-' && j == i+1) {
				return nil, fmt.Errorf("filter: unexpected %q at %d", ch, i)
			}
			tokens = append(tokens, token{"number", expr[i:j]})
			i = j
		case isIdentStart(ch):
			j := i
			for j < len(expr) && isIdentPart(expr[j]) {
				j++
			}
			word := expr[i:j]
			switch strings.ToLower(word) {
			case "and", "or", "not":
				tokens = append(tokens, token{"op", strings.ToLower(word)})
			default:
				tokens = append(tokens, token{"ident", word})
			}
			i = j
		default:
			return nil, fmt.Errorf("filter: unexpected %q at %d", ch, i)
		}
	}
	return tokens, nil
}

func isIdentStart(ch byte) bool {
	return ch >= 'a' && ch <= 'z' || ch >= 'A' && ch <= 'Z' || ch == '_'
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || ch >= '0' && ch <= '9'
}

type parser struct {
	tokens []token
	pos    int
}

func parseFilter(expr string) (filterNode, error) {
	if strings.TrimSpace(expr) == "" {
		return nil, fmt.Errorf("filter: empty expression")
	}
	tokens, err := tokenize(expr)
	if err != nil {
		return nil, err
	}
	p := &parser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		return nil, fmt.Errorf("filter: unexpected token %q", p.tokens[p.pos].text)
	}
	return node, nil
}

func (p *parser) peek() *token {
	if p.pos >= len(p.tokens) {
		return nil
	}
	return &p.tokens[p.pos]
}

func (p *parser) parseOr() (filterNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t != nil && t.kind == "op" && t.text == "or"; t = p.peek() {
		p.pos++
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: "or", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseAnd() (filterNode, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for t := p.peek(); t != nil && t.kind == "op" && t.text == "and"; t = p.peek() {
		p.pos++
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		left = logicalNode{op: "and", left: left, right: right}
	}
	return left, nil
}

func (p *parser) parseUnary() (filterNode, error) {
	if t := p.peek(); t != nil && t.kind == "op" && t.text == "not" {
		p.pos++
		inner, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return notNode{inner: inner}, nil
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (filterNode, error) {
	// A parenthesized group may be a nested condition rather than an
	// operand; try the condition first.
	if t := p.peek(); t != nil && t.kind == "lparen" {
		saved := p.pos
		p.pos++
		node, err := p.parseOr()
		if err == nil {
			if t := p.peek(); t != nil && t.kind == "rparen" {
				p.pos++
				// A comparison operator after the group means the group
				// was an operand; fall back.
				if next := p.peek(); next == nil || next.kind != "op" || isLogical(next.text) {
					return node, nil
				}
			}
		}
		p.pos = saved
	}

	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	t := p.peek()
	if t == nil || t.kind != "op" || isLogical(t.text) {
		return truthNode{operand: left}, nil
	}
	op := t.text
	p.pos++

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}
	return comparison{op: op, left: left, right: right}, nil
}

func isLogical(op string) bool {
	return op == "and" || op == "or" || op == "not"
}

func (p *parser) parseOperand() (operandNode, error) {
	t := p.peek()
	if t == nil {
		return nil, fmt.Errorf("filter: unexpected end of expression")
	}
	switch t.kind {
	case "number":
		f, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, fmt.Errorf("filter: bad number %q", t.text)
		}
		p.pos++
		return literal{v: f}, nil
	case "string":
		p.pos++
		return literal{v: t.text}, nil
	case "ident":
		p.pos++
		switch strings.ToLower(t.text) {
		case "true":
			return literal{v: true}, nil
		case "false":
			return literal{v: false}, nil
		}
		return columnRef{name: t.text}, nil
	case "lparen":
		p.pos++
		// Parenthesized operands must reduce to a single operand.
		inner, err := p.parseOperand()
		if err != nil {
			return nil, err
		}
		if t := p.peek(); t == nil || t.kind != "rparen" {
			return nil, fmt.Errorf("filter: missing closing parenthesis")
		}
		p.pos++
		return inner, nil
	}
	return nil, fmt.Errorf("filter: unexpected token %q", t.text)
}
