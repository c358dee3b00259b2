package samplemeta

import (
	"fmt"
	"strconv"
	"strings"
)

// The where filter accepts a small SQL-style predicate grammar, evaluated
// directly against each metadata row rather than being handed to a
// database. Supported forms:
//
//	[column] = 'value'          bare_column != 3.5
//	"column" < 7                column IN ('a', 'b')
//	column NOT IN (1, 2)        column IS NULL
//	column IS NOT NULL          NOT (x = 'a' OR y = 'b')
//
// Column names may be written bare, in [brackets], or in "double quotes".
// String constants use 'single quotes' with '' escaping an embedded quote.
// When both sides of a comparison parse as numbers, the comparison is
// numeric; otherwise it is a string comparison. Comparisons against a
// missing cell follow SQL three-valued logic, so a row whose predicate
// comes out unknown is excluded just as a false row is.

// truth is a three-valued boolean.
type truth uint8

const (
	truthFalse truth = iota
	truthTrue
	truthUnknown
)

func kleeneNot(t truth) truth {
	switch t {
	case truthTrue:
		return truthFalse
	case truthFalse:
		return truthTrue
	}
	return truthUnknown
}

func kleeneAnd(a, b truth) truth {
	if a == truthFalse || b == truthFalse {
		return truthFalse
	}
	if a == truthUnknown || b == truthUnknown {
		return truthUnknown
	}
	return truthTrue
}

func kleeneOr(a, b truth) truth {
	if a == truthTrue || b == truthTrue {
		return truthTrue
	}
	if a == truthUnknown || b == truthUnknown {
		return truthUnknown
	}
	return truthFalse
}

// Predicate is a compiled where expression.
type Predicate struct {
	root    node
	columns []string
}

// Compile parses a where expression into a Predicate. The set of column
// names the expression references is available from Columns so callers can
// verify them against the table before evaluating anything.
func Compile(expr string) (*Predicate, error) {
	toks, err := lex(expr)
	if err != nil {
		return nil, err
	}

	p := &parser{tokens: toks}
	root, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if tok := p.peek(); tok.kind != tokenEOF {
		return nil, fmt.Errorf("Unexpected %s after the end of the where expression (position %d)", tok.describe(), tok.pos)
	}

	return &Predicate{root: root, columns: p.columns}, nil
}

// Match reports whether the row satisfies the predicate. Rows that
// evaluate to unknown (because of missing cells) do not match.
func (p *Predicate) Match(r Row) bool {
	return p.root.eval(r) == truthTrue
}

// Columns lists the metadata columns the expression references, in order
// of first appearance.
func (p *Predicate) Columns() []string {
	out := make([]string, len(p.columns))
	copy(out, p.columns)

	return out
}

// Lexer

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenColumn
	tokenBare
	tokenString
	tokenNumber
	tokenOp
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	kind tokenKind
	text string
	pos  int
}

func (t token) describe() string {
	switch t.kind {
	case tokenEOF:
		return "end of expression"
	case tokenColumn:
		return fmt.Sprintf("column %q", t.text)
	case tokenString:
		return fmt.Sprintf("string '%s'", t.text)
	case tokenNumber:
		return fmt.Sprintf("number %s", t.text)
	case tokenLParen:
		return "'('"
	case tokenRParen:
		return "')'"
	case tokenComma:
		return "','"
	}
	return fmt.Sprintf("%q", t.text)
}

func lex(expr string) ([]token, error) {
	var out []token

	i := 0
	for i < len(expr) {
		c := expr[i]
		switch {
		case c == ' ' || c == '\t' || c == '\n' || c == '\r':
			i++

		case c == '(':
			out = append(out, token{kind: tokenLParen, text: "(", pos: i})
			i++

		case c == ')':
			out = append(out, token{kind: tokenRParen, text: ")", pos: i})
			i++

		case c == ',':
			out = append(out, token{kind: tokenComma, text: ",", pos: i})
			i++

		case c == '[':
			end := strings.IndexByte(expr[i+1:], ']')
			if end < 0 {
				return nil, fmt.Errorf("Unterminated bracketed column name in the where expression (position %d)", i)
			}
			out = append(out, token{kind: tokenColumn, text: expr[i+1 : i+1+end], pos: i})
			i += end + 2

		case c == '"':
			text, width, err := lexQuoted(expr[i:], '"')
			if err != nil {
				return nil, fmt.Errorf("Unterminated quoted column name in the where expression (position %d)", i)
			}
			out = append(out, token{kind: tokenColumn, text: text, pos: i})
			i += width

		case c == '\'':
			text, width, err := lexQuoted(expr[i:], '\'')
			if err != nil {
				return nil, fmt.Errorf("Unterminated string constant in the where expression (position %d)", i)
			}
			out = append(out, token{kind: tokenString, text: text, pos: i})
			i += width

		case c == '=':
			out = append(out, token{kind: tokenOp, text: "=", pos: i})
			i++

		case c == '!':
			if i+1 >= len(expr) || expr[i+1] != '=' {
				return nil, fmt.Errorf("Unexpected character '!' in the where expression (position %d)", i)
			}
			out = append(out, token{kind: tokenOp, text: "!=", pos: i})
			i += 2

		case c == '<':
			if i+1 < len(expr) && expr[i+1] == '=' {
				out = append(out, token{kind: tokenOp, text: "<=", pos: i})
				i += 2
			} else if i+1 < len(expr) && expr[i+1] == '>' {
				out = append(out, token{kind: tokenOp, text: "!=", pos: i})
				i += 2
			} else {
				out = append(out, token{kind: tokenOp, text: "<", pos: i})
				i++
			}

		case c == '>':
			if i+1 < len(expr) && expr[i+1] == '=' {
				out = append(out, token{kind: tokenOp, text: ">=", pos: i})
				i += 2
			} else {
				out = append(out, token{kind: tokenOp, text: ">", pos: i})
				i++
			}

		case c == '-' || c == '+' || c == '.' || (c >= '0' && c <= '9'):
			j := i + 1
			for j < len(expr) && isNumberByte(expr[j]) {
				j++
			}
			text := expr[i:j]
			if _, err := strconv.ParseFloat(text, 64); err != nil {
				return nil, fmt.Errorf("Invalid number %q in the where expression (position %d)", text, i)
			}
			out = append(out, token{kind: tokenNumber, text: text, pos: i})
			i = j

		case isBareByte(c):
			j := i + 1
			for j < len(expr) && (isBareByte(expr[j]) || (expr[j] >= '0' && expr[j] <= '9')) {
				j++
			}
			out = append(out, token{kind: tokenBare, text: expr[i:j], pos: i})
			i = j

		default:
			return nil, fmt.Errorf("Unexpected character %q in the where expression (position %d)", string(c), i)
		}
	}

	out = append(out, token{kind: tokenEOF, pos: len(expr)})

	return out, nil
}

// lexQuoted consumes a quoted token starting at s[0]==quote, where a
// doubled quote escapes itself. It returns the unescaped text and the
// number of bytes consumed.
func lexQuoted(s string, quote byte) (string, int, error) {
	var sb strings.Builder
	i := 1
	for i < len(s) {
		if s[i] != quote {
			sb.WriteByte(s[i])
			i++
			continue
		}
		if i+1 < len(s) && s[i+1] == quote {
			sb.WriteByte(quote)
			i += 2
			continue
		}
		return sb.String(), i + 1, nil
	}

	return "", 0, fmt.Errorf("unterminated quote")
}

func isNumberByte(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == 'e' || c == 'E' || c == '+' || c == '-'
}

func isBareByte(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '_'
}

// Parser

type parser struct {
	tokens  []token
	pos     int
	columns []string
}

func (p *parser) peek() token {
	return p.tokens[p.pos]
}

func (p *parser) next() token {
	t := p.tokens[p.pos]
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	return t
}

// keyword reports whether the upcoming token is the given bare keyword,
// compared case-insensitively.
func (p *parser) keyword(word string) bool {
	t := p.peek()
	return t.kind == tokenBare && strings.EqualFold(t.text, word)
}

func (p *parser) recordColumn(name string) {
	for _, c := range p.columns {
		if c == name {
			return
		}
	}
	p.columns = append(p.columns, name)
}

func (p *parser) parseOr() (node, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}

	for p.keyword("OR") {
		p.next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = nodeOr{left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseAnd() (node, error) {
	left, err := p.parseNot()
	if err != nil {
		return nil, err
	}

	for p.keyword("AND") {
		p.next()
		right, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		left = nodeAnd{left: left, right: right}
	}

	return left, nil
}

func (p *parser) parseNot() (node, error) {
	if p.keyword("NOT") {
		p.next()
		inner, err := p.parseNot()
		if err != nil {
			return nil, err
		}
		return nodeNot{inner: inner}, nil
	}

	return p.parsePrimary()
}

func (p *parser) parsePrimary() (node, error) {
	if p.peek().kind == tokenLParen {
		p.next()
		inner, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if tok := p.next(); tok.kind != tokenRParen {
			return nil, fmt.Errorf("Expected ')' but found %s in the where expression (position %d)", tok.describe(), tok.pos)
		}
		return inner, nil
	}

	return p.parseComparison()
}

func (p *parser) parseComparison() (node, error) {
	left, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	switch {
	case p.keyword("IS"):
		p.next()
		negate := false
		if p.keyword("NOT") {
			p.next()
			negate = true
		}
		if !p.keyword("NULL") {
			tok := p.peek()
			return nil, fmt.Errorf("Expected NULL but found %s in the where expression (position %d)", tok.describe(), tok.pos)
		}
		p.next()
		return nodeIsNull{operand: left, negate: negate}, nil

	case p.keyword("IN"):
		p.next()
		items, err := p.parseInList()
		if err != nil {
			return nil, err
		}
		return nodeIn{operand: left, items: items}, nil

	case p.keyword("NOT"):
		p.next()
		if !p.keyword("IN") {
			tok := p.peek()
			return nil, fmt.Errorf("Expected IN but found %s in the where expression (position %d)", tok.describe(), tok.pos)
		}
		p.next()
		items, err := p.parseInList()
		if err != nil {
			return nil, err
		}
		return nodeIn{operand: left, items: items, negate: true}, nil
	}

	tok := p.next()
	if tok.kind != tokenOp {
		return nil, fmt.Errorf("Expected a comparison operator but found %s in the where expression (position %d)", tok.describe(), tok.pos)
	}

	right, err := p.parseOperand()
	if err != nil {
		return nil, err
	}

	return nodeCompare{left: left, op: tok.text, right: right}, nil
}

func (p *parser) parseInList() ([]operand, error) {
	if tok := p.next(); tok.kind != tokenLParen {
		return nil, fmt.Errorf("Expected '(' but found %s in the where expression (position %d)", tok.describe(), tok.pos)
	}

	var items []operand
	for {
		tok := p.next()
		switch tok.kind {
		case tokenString, tokenNumber:
			items = append(items, constOperand{text: tok.text})
		default:
			return nil, fmt.Errorf("Expected a string or number but found %s in the where expression (position %d)", tok.describe(), tok.pos)
		}

		tok = p.next()
		if tok.kind == tokenComma {
			continue
		}
		if tok.kind == tokenRParen {
			return items, nil
		}
		return nil, fmt.Errorf("Expected ',' or ')' but found %s in the where expression (position %d)", tok.describe(), tok.pos)
	}
}

func (p *parser) parseOperand() (operand, error) {
	tok := p.next()
	switch tok.kind {
	case tokenColumn:
		p.recordColumn(tok.text)
		return columnOperand{name: tok.text}, nil

	case tokenBare:
		if strings.EqualFold(tok.text, "NULL") {
			return nullOperand{}, nil
		}
		for _, kw := range []string{"AND", "OR", "NOT", "IN", "IS"} {
			if strings.EqualFold(tok.text, kw) {
				return nil, fmt.Errorf("Expected a column or constant but found %q in the where expression (position %d)", tok.text, tok.pos)
			}
		}
		p.recordColumn(tok.text)
		return columnOperand{name: tok.text}, nil

	case tokenString, tokenNumber:
		return constOperand{text: tok.text}, nil
	}

	return nil, fmt.Errorf("Expected a column or constant but found %s in the where expression (position %d)", tok.describe(), tok.pos)
}

// Evaluation

type node interface {
	eval(r Row) truth
}

type nodeAnd struct{ left, right node }

func (n nodeAnd) eval(r Row) truth { return kleeneAnd(n.left.eval(r), n.right.eval(r)) }

type nodeOr struct{ left, right node }

func (n nodeOr) eval(r Row) truth { return kleeneOr(n.left.eval(r), n.right.eval(r)) }

type nodeNot struct{ inner node }

func (n nodeNot) eval(r Row) truth { return kleeneNot(n.inner.eval(r)) }

type nodeIsNull struct {
	operand operand
	negate  bool
}

func (n nodeIsNull) eval(r Row) truth {
	_, isNull := n.operand.value(r)

	if isNull != n.negate {
		return truthTrue
	}
	return truthFalse
}

type nodeIn struct {
	operand operand
	items   []operand
	negate  bool
}

func (n nodeIn) eval(r Row) truth {
	v, isNull := n.operand.value(r)
	if isNull {
		return truthUnknown
	}

	out := truthFalse
	for _, item := range n.items {
		iv, _ := item.value(r)
		if valuesEqual(v, iv) {
			out = truthTrue
			break
		}
	}

	if n.negate {
		return kleeneNot(out)
	}
	return out
}

type nodeCompare struct {
	left  operand
	op    string
	right operand
}

func (n nodeCompare) eval(r Row) truth {
	lv, lnull := n.left.value(r)
	rv, rnull := n.right.value(r)
	if lnull || rnull {
		return truthUnknown
	}

	var cmp int

	lf, lerr := strconv.ParseFloat(lv, 64)
	rf, rerr := strconv.ParseFloat(rv, 64)
	if lerr == nil && rerr == nil {
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		}
	} else {
		cmp = strings.Compare(lv, rv)
	}

	var match bool
	switch n.op {
	case "=":
		match = cmp == 0
	case "!=":
		match = cmp != 0
	case "<":
		match = cmp < 0
	case "<=":
		match = cmp <= 0
	case ">":
		match = cmp > 0
	case ">=":
		match = cmp >= 0
	}

	if match {
		return truthTrue
	}
	return truthFalse
}

type operand interface {
	value(r Row) (text string, isNull bool)
}

type columnOperand struct{ name string }

func (o columnOperand) value(r Row) (string, bool) {
	cell := r.Cell(o.name)
	if !cell.Valid {
		return "", true
	}
	return cell.String, false
}

type constOperand struct{ text string }

func (o constOperand) value(Row) (string, bool) { return o.text, false }

type nullOperand struct{}

func (o nullOperand) value(Row) (string, bool) { return "", true }

func valuesEqual(a, b string) bool {
	af, aerr := strconv.ParseFloat(a, 64)
	bf, berr := strconv.ParseFloat(b, 64)
	if aerr == nil && berr == nil {
		return af == bf
	}

	return a == b
}
