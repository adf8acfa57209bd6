package domain

import (
	"strings"
	"unicode"

	"github.com/Masterminds/semver/v3"
	"go.trai.ch/zerr"
)

// Marker is a boolean expression over environment bindings, attached to a
// requirement to scope it to a subset of target environments. The zero value
// is the always-true marker.
//
// Grammar:
//
//	expr       = term { "or" term }
//	term       = factor { "and" factor }
//	factor     = "(" expr ")" | comparison
//	comparison = value op value
//	op         = "==" | "!=" | "<" | "<=" | ">" | ">=" | "in" | "not" "in"
//	value      = variable | quoted string
type Marker struct {
	raw  string
	expr markerNode
}

// ParseMarker parses a marker expression. An empty string yields the
// always-true marker.
func ParseMarker(raw string) (Marker, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Marker{}, nil
	}
	p := &markerParser{input: raw}
	expr, err := p.parseOr()
	if err != nil {
		return Marker{}, err
	}
	p.skipSpace()
	if p.pos != len(p.input) {
		return Marker{}, zerr.With(ErrMarkerParse, "marker", raw)
	}
	return Marker{raw: raw, expr: expr}, nil
}

// IsZero reports whether the marker is the always-true marker.
func (m Marker) IsZero() bool {
	return m.expr == nil
}

// String returns the original expression text, empty for the always-true
// marker.
func (m Marker) String() string {
	return m.raw
}

// Eval evaluates the marker against a set of variable bindings. Unbound
// variables evaluate as the empty string.
func (m Marker) Eval(bindings map[string]string) bool {
	if m.expr == nil {
		return true
	}
	return m.expr.eval(bindings)
}

// MarshalText implements encoding.TextMarshaler.
func (m Marker) MarshalText() ([]byte, error) {
	return []byte(m.raw), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Marker) UnmarshalText(text []byte) error {
	parsed, err := ParseMarker(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

type markerNode interface {
	eval(bindings map[string]string) bool
}

type markerOr struct{ left, right markerNode }

func (n markerOr) eval(b map[string]string) bool { return n.left.eval(b) || n.right.eval(b) }

type markerAnd struct{ left, right markerNode }

func (n markerAnd) eval(b map[string]string) bool { return n.left.eval(b) && n.right.eval(b) }

type markerValue struct {
	text    string
	literal bool // quoted string rather than variable reference
}

func (v markerValue) resolve(b map[string]string) string {
	if v.literal {
		return v.text
	}
	return b[v.text]
}

type markerCmp struct {
	left, right markerValue
	op          string
}

func (n markerCmp) eval(b map[string]string) bool {
	l := n.left.resolve(b)
	r := n.right.resolve(b)

	switch n.op {
	case "in":
		return strings.Contains(r, l)
	case "not in":
		return !strings.Contains(r, l)
	case "==":
		if c, ok := compareVersions(l, r); ok {
			return c == 0
		}
		return l == r
	case "!=":
		if c, ok := compareVersions(l, r); ok {
			return c != 0
		}
		return l != r
	}

	c, ok := compareVersions(l, r)
	if !ok {
		c = strings.Compare(l, r)
	}
	switch n.op {
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

// compareVersions compares two operands as versions when both parse as such,
// so "3.9" < "3.10" holds despite the lexicographic order.
func compareVersions(l, r string) (int, bool) {
	lv, err := semver.NewVersion(l)
	if err != nil {
		return 0, false
	}
	rv, err := semver.NewVersion(r)
	if err != nil {
		return 0, false
	}
	return lv.Compare(rv), true
}

type markerParser struct {
	input string
	pos   int
}

func (p *markerParser) skipSpace() {
	for p.pos < len(p.input) && unicode.IsSpace(rune(p.input[p.pos])) {
		p.pos++
	}
}

func (p *markerParser) peekWord() string {
	p.skipSpace()
	end := p.pos
	for end < len(p.input) && (isIdentRune(rune(p.input[end]))) {
		end++
	}
	return p.input[p.pos:end]
}

func isIdentRune(r rune) bool {
	return r == '_' || r == '.' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func (p *markerParser) parseOr() (markerNode, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	for p.peekWord() == "or" {
		p.pos += len("or")
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		left = markerOr{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseAnd() (markerNode, error) {
	left, err := p.parseFactor()
	if err != nil {
		return nil, err
	}
	for p.peekWord() == "and" {
		p.pos += len("and")
		right, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		left = markerAnd{left: left, right: right}
	}
	return left, nil
}

func (p *markerParser) parseFactor() (markerNode, error) {
	p.skipSpace()
	if p.pos < len(p.input) && p.input[p.pos] == '(' {
		p.pos++
		expr, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		p.skipSpace()
		if p.pos >= len(p.input) || p.input[p.pos] != ')' {
			return nil, zerr.With(ErrMarkerParse, "reason", "unbalanced parenthesis")
		}
		p.pos++
		return expr, nil
	}
	return p.parseComparison()
}

func (p *markerParser) parseComparison() (markerNode, error) {
	left, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOperator()
	if err != nil {
		return nil, err
	}
	right, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return markerCmp{left: left, right: right, op: op}, nil
}

func (p *markerParser) parseOperator() (string, error) {
	p.skipSpace()
	rest := p.input[p.pos:]
	for _, op := range []string{"==", "!=", "<=", ">=", "<", ">"} {
		if strings.HasPrefix(rest, op) {
			p.pos += len(op)
			return op, nil
		}
	}
	switch word := p.peekWord(); word {
	case "in":
		p.pos += len("in")
		return "in", nil
	case "not":
		p.pos += len("not")
		if p.peekWord() != "in" {
			return "", zerr.With(ErrMarkerParse, "reason", "expected 'in' after 'not'")
		}
		p.pos += len("in")
		return "not in", nil
	}
	return "", zerr.With(ErrMarkerParse, "reason", "expected comparison operator")
}

func (p *markerParser) parseValue() (markerValue, error) {
	p.skipSpace()
	if p.pos >= len(p.input) {
		return markerValue{}, zerr.With(ErrMarkerParse, "reason", "unexpected end of expression")
	}
	if q := p.input[p.pos]; q == '\'' || q == '"' {
		end := strings.IndexByte(p.input[p.pos+1:], q)
		if end < 0 {
			return markerValue{}, zerr.With(ErrMarkerParse, "reason", "unterminated string")
		}
		v := markerValue{text: p.input[p.pos+1 : p.pos+1+end], literal: true}
		p.pos += end + 2
		return v, nil
	}
	word := p.peekWord()
	if word == "" || word == "and" || word == "or" || word == "in" || word == "not" {
		return markerValue{}, zerr.With(ErrMarkerParse, "reason", "expected variable or string")
	}
	p.pos += len(word)
	return markerValue{text: word}, nil
}
