// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/pkg/errors"
)

// An Environment is the set of marker variables a requirement's Marker is
// evaluated against, e.g. {"python_version": "3.11", "sys_platform": "linux"}.
type Environment map[string]string

// A Marker is a boolean expression over Environment variables that decides
// whether a requirement applies at all.
type Marker interface {
	fmt.Stringer
	// Evaluate reports whether the marker holds in the given environment.
	Evaluate(env Environment) bool
	_marker()
}

func (markerAnd) _marker()     {}
func (markerOr) _marker()      {}
func (markerCompare) _marker() {}

// variables whose values are compared as versions rather than strings
var versionVars = map[string]bool{
	"python_version":         true,
	"python_full_version":    true,
	"implementation_version": true,
}

type markerAnd []Marker

func (m markerAnd) String() string {
	return joinMarkers(m, " and ")
}

func (m markerAnd) Evaluate(env Environment) bool {
	for _, sub := range m {
		if !sub.Evaluate(env) {
			return false
		}
	}
	return true
}

type markerOr []Marker

func (m markerOr) String() string {
	return joinMarkers(m, " or ")
}

func (m markerOr) Evaluate(env Environment) bool {
	for _, sub := range m {
		if sub.Evaluate(env) {
			return true
		}
	}
	return false
}

func joinMarkers(ms []Marker, sep string) string {
	parts := make([]string, len(ms))
	for k, sub := range ms {
		switch sub.(type) {
		case markerAnd, markerOr:
			parts[k] = "(" + sub.String() + ")"
		default:
			parts[k] = sub.String()
		}
	}
	return strings.Join(parts, sep)
}

type markerValue struct {
	variable bool
	text     string
}

func (v markerValue) String() string {
	if v.variable {
		return v.text
	}
	return `"` + v.text + `"`
}

func (v markerValue) resolve(env Environment) string {
	if v.variable {
		return env[v.text]
	}
	return v.text
}

type markerCompare struct {
	lhs, rhs markerValue
	op       string
}

func (m markerCompare) String() string {
	return m.lhs.String() + " " + m.op + " " + m.rhs.String()
}

func (m markerCompare) Evaluate(env Environment) bool {
	l, r := m.lhs.resolve(env), m.rhs.resolve(env)

	switch m.op {
	case "in":
		return strings.Contains(r, l)
	case "not in":
		return !strings.Contains(r, l)
	}

	if (m.lhs.variable && versionVars[m.lhs.text]) || (m.rhs.variable && versionVars[m.rhs.text]) {
		if ok, matched := compareMarkerVersions(l, m.op, r); ok {
			return matched
		}
	}

	switch m.op {
	case "==", "===":
		return l == r
	case "!=":
		return l != r
	case "<":
		return l < r
	case "<=":
		return l <= r
	case ">":
		return l > r
	case ">=":
		return l >= r
	}
	return false
}

// compareMarkerVersions evaluates "l op r" as a version specifier. ok is
// false if either side doesn't parse as a version.
func compareMarkerVersions(l, op, r string) (ok, matched bool) {
	lv, err := NewVersion(l)
	if err != nil {
		return false, false
	}
	s, err := parseSpecifier(op + r)
	if err != nil {
		return false, false
	}
	return true, s.Matches(lv)
}

// ParseMarker parses an environment marker expression such as
// `python_version >= "3.8" and (sys_platform == "linux" or os_name == "nt")`.
func ParseMarker(body string) (Marker, error) {
	toks, err := lexMarker(body)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid marker %q", body)
	}
	p := &markerParser{toks: toks}
	m, err := p.parseOr()
	if err != nil {
		return nil, errors.Wrapf(err, "invalid marker %q", body)
	}
	if p.pos != len(p.toks) {
		return nil, errors.Errorf("invalid marker %q: unexpected %q", body, p.toks[p.pos].text)
	}
	return m, nil
}

type markerTokKind uint8

const (
	tokWord markerTokKind = iota
	tokString
	tokOp
	tokLParen
	tokRParen
)

type markerTok struct {
	kind markerTokKind
	text string
}

func lexMarker(s string) ([]markerTok, error) {
	var toks []markerTok
	for i := 0; i < len(s); {
		c := s[i]
		switch {
		case c == ' ' || c == '\t':
			i++
		case c == '(':
			toks = append(toks, markerTok{kind: tokLParen, text: "("})
			i++
		case c == ')':
			toks = append(toks, markerTok{kind: tokRParen, text: ")"})
			i++
		case c == '"' || c == '\'':
			end := strings.IndexByte(s[i+1:], c)
			if end < 0 {
				return nil, errors.New("unterminated string")
			}
			toks = append(toks, markerTok{kind: tokString, text: s[i+1 : i+1+end]})
			i += end + 2
		case strings.ContainsRune("=!<>~", rune(c)):
			j := i
			for j < len(s) && strings.ContainsRune("=!<>~", rune(s[j])) {
				j++
			}
			toks = append(toks, markerTok{kind: tokOp, text: s[i:j]})
			i = j
		case unicode.IsLetter(rune(c)) || c == '_':
			j := i
			for j < len(s) && (unicode.IsLetter(rune(s[j])) || unicode.IsDigit(rune(s[j])) || s[j] == '_' || s[j] == '.') {
				j++
			}
			toks = append(toks, markerTok{kind: tokWord, text: s[i:j]})
			i = j
		default:
			return nil, errors.Errorf("unexpected character %q", c)
		}
	}
	return toks, nil
}

type markerParser struct {
	toks []markerTok
	pos  int
}

func (p *markerParser) peek() (markerTok, bool) {
	if p.pos >= len(p.toks) {
		return markerTok{}, false
	}
	return p.toks[p.pos], true
}

func (p *markerParser) peekWord(w string) bool {
	t, ok := p.peek()
	return ok && t.kind == tokWord && t.text == w
}

func (p *markerParser) parseOr() (Marker, error) {
	first, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	ms := markerOr{first}
	for p.peekWord("or") {
		p.pos++
		next, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		ms = append(ms, next)
	}
	if len(ms) == 1 {
		return first, nil
	}
	return ms, nil
}

func (p *markerParser) parseAnd() (Marker, error) {
	first, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	ms := markerAnd{first}
	for p.peekWord("and") {
		p.pos++
		next, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		ms = append(ms, next)
	}
	if len(ms) == 1 {
		return first, nil
	}
	return ms, nil
}

func (p *markerParser) parseAtom() (Marker, error) {
	t, ok := p.peek()
	if !ok {
		return nil, errors.New("unexpected end of marker")
	}
	if t.kind == tokLParen {
		p.pos++
		m, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if t, ok := p.peek(); !ok || t.kind != tokRParen {
			return nil, errors.New("missing closing parenthesis")
		}
		p.pos++
		return m, nil
	}

	lhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	op, err := p.parseOp()
	if err != nil {
		return nil, err
	}
	rhs, err := p.parseValue()
	if err != nil {
		return nil, err
	}
	return markerCompare{lhs: lhs, op: op, rhs: rhs}, nil
}

func (p *markerParser) parseValue() (markerValue, error) {
	t, ok := p.peek()
	if !ok {
		return markerValue{}, errors.New("expected a value")
	}
	switch t.kind {
	case tokString:
		p.pos++
		return markerValue{text: t.text}, nil
	case tokWord:
		if t.text == "and" || t.text == "or" || t.text == "in" || t.text == "not" {
			return markerValue{}, errors.Errorf("expected a value, got %q", t.text)
		}
		p.pos++
		return markerValue{variable: true, text: strings.Replace(t.text, ".", "_", -1)}, nil
	}
	return markerValue{}, errors.Errorf("expected a value, got %q", t.text)
}

func (p *markerParser) parseOp() (string, error) {
	t, ok := p.peek()
	if !ok {
		return "", errors.New("expected an operator")
	}
	switch {
	case t.kind == tokOp:
		switch t.text {
		case "==", "!=", "<", "<=", ">", ">=", "~=", "===":
			p.pos++
			return t.text, nil
		}
	case t.kind == tokWord && t.text == "in":
		p.pos++
		return "in", nil
	case t.kind == tokWord && t.text == "not":
		p.pos++
		if !p.peekWord("in") {
			return "", errors.New(`expected "in" after "not"`)
		}
		p.pos++
		return "not in", nil
	}
	return "", errors.Errorf("expected an operator, got %q", t.text)
}
