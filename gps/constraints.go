// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

var (
	none     = noneConstraint{}
	anything = anyConstraint{}
)

// A Constraint provides structured limitations on the versions that are
// admissible for a given identifier.
//
// As with Version, it has a private method because the gps's internal
// implementation of the problem is complete, and the system relies on type
// magic to operate.
type Constraint interface {
	fmt.Stringer
	// Matches indicates if the provided Version is allowed by the Constraint.
	Matches(Version) bool
	// Intersect computes the intersection of the Constraint with the provided
	// Constraint. The result matches exactly those versions matched by both.
	Intersect(Constraint) Constraint
	// namesPrerelease indicates whether any part of the constraint was
	// written against a pre-release version, which opts the requirement in
	// to pre-release candidates.
	namesPrerelease() bool
	_private()
}

func (anyConstraint) _private()  {}
func (noneConstraint) _private() {}
func (specifier) _private()      {}
func (intersection) _private()   {}

// Any returns a constraint that will match anything.
func Any() Constraint {
	return anything
}

// None returns a constraint that matches nothing.
func None() Constraint {
	return none
}

// IsAny indicates if the provided constraint is the wildcard "Any" constraint.
func IsAny(c Constraint) bool {
	_, ok := c.(anyConstraint)
	return ok
}

// IsNone indicates if the provided constraint is the empty set.
func IsNone(c Constraint) bool {
	_, ok := c.(noneConstraint)
	return ok
}

// anyConstraint is an unbounded constraint - it matches all versions,
// including the zero Version carried by unversioned direct references.
type anyConstraint struct{}

func (anyConstraint) String() string {
	return "*"
}

func (anyConstraint) Matches(Version) bool {
	return true
}

func (anyConstraint) Intersect(c Constraint) Constraint {
	return c
}

func (anyConstraint) namesPrerelease() bool {
	return false
}

// noneConstraint is the empty set - it matches no versions.
type noneConstraint struct{}

func (noneConstraint) String() string {
	return "<none>"
}

func (noneConstraint) Matches(Version) bool {
	return false
}

func (noneConstraint) Intersect(Constraint) Constraint {
	return none
}

func (noneConstraint) namesPrerelease() bool {
	return false
}

type specOp uint8

const (
	opEqual specOp = iota
	opNotEqual
	opLess
	opLessEqual
	opGreater
	opGreaterEqual
	opCompatible
	opArbitrary
)

var opStrings = [...]string{
	opEqual:        "==",
	opNotEqual:     "!=",
	opLess:         "<",
	opLessEqual:    "<=",
	opGreater:      ">",
	opGreaterEqual: ">=",
	opCompatible:   "~=",
	opArbitrary:    "===",
}

// specifier is a single clause of a version specifier set, like ">=1.0" or
// "==2.*".
type specifier struct {
	op       specOp
	v        Version
	wildcard bool
	raw      string // version text as written; used by === and String()
}

func (s specifier) String() string {
	if s.wildcard {
		return opStrings[s.op] + s.raw + ".*"
	}
	return opStrings[s.op] + s.raw
}

func (s specifier) Matches(v Version) bool {
	if v.IsZero() {
		return false
	}
	if s.op == opArbitrary {
		return strings.EqualFold(v.String(), s.raw)
	}
	// local labels only count when the specifier names one
	if s.v.local == "" {
		v = v.public()
	}

	switch s.op {
	case opEqual:
		if s.wildcard {
			return prefixMatch(v, s.v, s.v.segs())
		}
		return v.Equal(s.v)
	case opNotEqual:
		if s.wildcard {
			return !prefixMatch(v, s.v, s.v.segs())
		}
		return !v.Equal(s.v)
	case opLess:
		// <V doesn't admit pre-releases of V itself, unless V is one
		if !s.v.IsPrerelease() && v.IsPrerelease() && v.base().Equal(s.v.base()) {
			return false
		}
		return v.Less(s.v)
	case opLessEqual:
		return v.Compare(s.v) <= 0
	case opGreater:
		// >V doesn't admit post-releases of V itself, unless V is one
		if !s.v.IsPostrelease() && v.IsPostrelease() && v.base().Equal(s.v.base()) {
			return false
		}
		return s.v.Less(v)
	case opGreaterEqual:
		return v.Compare(s.v) >= 0
	case opCompatible:
		return v.Compare(s.v) >= 0 && prefixMatch(v, s.v, s.v.segs()-1)
	}

	panic(fmt.Sprintf("canary - unknown specifier op %d", s.op))
}

func (s specifier) Intersect(c Constraint) Constraint {
	return intersect(s, c)
}

func (s specifier) namesPrerelease() bool {
	return s.op != opNotEqual && s.v.IsPrerelease()
}

// prefixMatch reports whether v and p share an epoch and their first n
// release segments.
func prefixMatch(v, p Version, n int) bool {
	if v.epoch != p.epoch {
		return false
	}
	for i := 0; i < n; i++ {
		if v.segment(i) != p.segment(i) {
			return false
		}
	}
	return true
}

// intersection is the logical AND of two or more specifiers. It is kept
// flat and in the order the clauses were introduced.
type intersection []specifier

func (c intersection) String() string {
	parts := make([]string, len(c))
	for k, s := range c {
		parts[k] = s.String()
	}
	return strings.Join(parts, ",")
}

func (c intersection) Matches(v Version) bool {
	for _, s := range c {
		if !s.Matches(v) {
			return false
		}
	}
	return true
}

func (c intersection) Intersect(c2 Constraint) Constraint {
	return intersect(c, c2)
}

func (c intersection) namesPrerelease() bool {
	for _, s := range c {
		if s.namesPrerelease() {
			return true
		}
	}
	return false
}

func intersect(c1, c2 Constraint) Constraint {
	switch c2.(type) {
	case anyConstraint:
		return c1
	case noneConstraint:
		return none
	}

	var out intersection
	seen := make(map[string]bool)
	add := func(c Constraint) {
		switch tc := c.(type) {
		case specifier:
			if !seen[tc.String()] {
				seen[tc.String()] = true
				out = append(out, tc)
			}
		case intersection:
			for _, s := range tc {
				if !seen[s.String()] {
					seen[s.String()] = true
					out = append(out, s)
				}
			}
		}
	}
	add(c1)
	add(c2)

	if len(out) == 1 {
		return out[0]
	}
	return out
}

var specRe = regexp.MustCompile(`^(~=|===|==|!=|<=|>=|<|>|=)?\s*(\S+)$`)

// ParseConstraint parses a comma-separated version specifier set, such as
// ">=1.0,<2.0,!=1.5.*". An empty body or "*" yields Any().
func ParseConstraint(body string) (Constraint, error) {
	body = strings.TrimSpace(body)
	if body == "" || body == "*" {
		return anything, nil
	}

	var c Constraint = anything
	for _, part := range strings.Split(body, ",") {
		s, err := parseSpecifier(strings.TrimSpace(part))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid constraint %q", body)
		}
		c = c.Intersect(s)
	}
	return c, nil
}

func parseSpecifier(part string) (specifier, error) {
	m := specRe.FindStringSubmatch(part)
	if m == nil {
		return specifier{}, errors.Errorf("malformed specifier %q", part)
	}

	var op specOp
	switch m[1] {
	case "", "=", "==":
		op = opEqual
	case "!=":
		op = opNotEqual
	case "<":
		op = opLess
	case "<=":
		op = opLessEqual
	case ">":
		op = opGreater
	case ">=":
		op = opGreaterEqual
	case "~=":
		op = opCompatible
	case "===":
		// arbitrary equality is a plain string comparison; no parsing
		return specifier{op: opArbitrary, raw: m[2]}, nil
	}

	raw := m[2]
	wildcard := strings.HasSuffix(raw, ".*")
	if wildcard {
		if op != opEqual && op != opNotEqual {
			return specifier{}, errors.Errorf("wildcard only allowed with == and !=: %q", part)
		}
		raw = strings.TrimSuffix(raw, ".*")
	}

	v, err := NewVersion(raw)
	if err != nil {
		return specifier{}, err
	}
	if op == opCompatible && v.segs() < 2 {
		return specifier{}, errors.Errorf("~= requires at least two release segments: %q", part)
	}
	if wildcard && (v.IsPrerelease() || v.IsPostrelease() || v.local != "") {
		return specifier{}, errors.Errorf("wildcard only allowed on a release: %q", part)
	}

	return specifier{op: op, v: v, wildcard: wildcard, raw: raw}, nil
}

// Exactly returns a constraint matching only versions equal to v.
func Exactly(v Version) Constraint {
	if v.IsZero() {
		return none
	}
	return specifier{op: opEqual, v: v, raw: v.String()}
}

// isExact reports whether c pins a single version with == or ===.
func isExact(c Constraint) bool {
	switch tc := c.(type) {
	case specifier:
		return (tc.op == opEqual && !tc.wildcard) || tc.op == opArbitrary
	case intersection:
		for _, s := range tc {
			if (s.op == opEqual && !s.wildcard) || s.op == opArbitrary {
				return true
			}
		}
	}
	return false
}
