// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"regexp"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// An Identifier names a single resolvable unit.
//
// Ordinarily that's a package name, but an extra of a package ("a[b]") is a
// distinct Identifier. It depends on its base package at an exact pinned
// version, so the solver treats the two as separate nodes that happen to be
// bound together by a dependency.
//
// Identifiers are comparable and may be used as map keys. Construct them
// with NewIdentifier or ParseIdentifier so that the name is normalized.
type Identifier struct {
	// Name is the normalized package name.
	Name string
	// Extra is the normalized extra name, or empty for the base package.
	// Several extras requested together ("a[x,y]") are stored sorted and
	// comma-joined, and form a single identifier.
	Extra string
}

var (
	nameRunRe   = regexp.MustCompile(`[-_.]+`)
	validNameRe = regexp.MustCompile(`^([a-z0-9]|[a-z0-9][a-z0-9._-]*[a-z0-9])$`)
)

// NormalizeName returns the canonical form of a package or extra name:
// lowercased, with runs of '-', '_' and '.' collapsed to a single '-'.
func NormalizeName(name string) string {
	return nameRunRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "-")
}

// NewIdentifier returns the Identifier for the named package, or for one of
// its extras if extra is non-empty.
func NewIdentifier(name, extra string) Identifier {
	return Identifier{
		Name:  NormalizeName(name),
		Extra: normalizeExtras(extra),
	}
}

func normalizeExtras(extra string) string {
	if strings.TrimSpace(extra) == "" {
		return ""
	}

	seen := make(map[string]bool)
	var names []string
	for _, e := range strings.Split(extra, ",") {
		e = NormalizeName(e)
		if e == "" || seen[e] {
			continue
		}
		seen[e] = true
		names = append(names, e)
	}
	sort.Strings(names)
	return strings.Join(names, ",")
}

// ParseIdentifier parses "name" or "name[extra]".
func ParseIdentifier(s string) (Identifier, error) {
	s = strings.TrimSpace(s)
	name, extra := s, ""
	if i := strings.IndexByte(s, '['); i >= 0 {
		if !strings.HasSuffix(s, "]") {
			return Identifier{}, errors.Errorf("unterminated extra in identifier %q", s)
		}
		name, extra = s[:i], s[i+1:len(s)-1]
		if strings.ContainsAny(extra, "[]") || strings.TrimSpace(extra) == "" {
			return Identifier{}, errors.Errorf("invalid extra in identifier %q", s)
		}
	}

	if !validNameRe.MatchString(strings.ToLower(strings.TrimSpace(name))) {
		return Identifier{}, errors.Errorf("invalid package name %q", name)
	}
	return NewIdentifier(name, extra), nil
}

// IsExtra reports whether the Identifier names an extra of a package.
func (id Identifier) IsExtra() bool {
	return id.Extra != ""
}

// Base returns the Identifier of the package without any extra.
func (id Identifier) Base() Identifier {
	return Identifier{Name: id.Name}
}

// WithExtra returns the Identifier naming the given extra of this package.
func (id Identifier) WithExtra(extra string) Identifier {
	return Identifier{Name: id.Name, Extra: normalizeExtras(extra)}
}

// Extras returns the individual extra names carried by the Identifier.
func (id Identifier) Extras() []string {
	if id.Extra == "" {
		return nil
	}
	return strings.Split(id.Extra, ",")
}

func (id Identifier) String() string {
	if id.Extra == "" {
		return id.Name
	}
	return id.Name + "[" + id.Extra + "]"
}

// Less orders Identifiers by name, then extra. The base package sorts before
// any of its extras.
func (id Identifier) Less(o Identifier) bool {
	if id.Name != o.Name {
		return id.Name < o.Name
	}
	return id.Extra < o.Extra
}
