// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// A Requirement is an immutable statement that some version of an
// Identifier must be selected, and which ones are acceptable.
type Requirement struct {
	ID Identifier
	// Constraint limits the acceptable versions. A nil Constraint is
	// treated as Any.
	Constraint Constraint
	// Prereleases opts in to pre-release candidates.
	Prereleases bool
	// Yanked opts in to yanked candidates.
	Yanked bool
	// Ref, if set, requires the candidate to be exactly this direct
	// reference.
	Ref Source
	// Marker, if set, restricts the environments the requirement applies in.
	Marker Marker
}

// NewRequirement is a convenience constructor for a plain versioned
// requirement.
func NewRequirement(id Identifier, c Constraint) Requirement {
	return Requirement{ID: id, Constraint: c}
}

// constraint returns the requirement's constraint, never nil.
func (r Requirement) constraint() Constraint {
	if r.Constraint == nil {
		return anything
	}
	return r.Constraint
}

// AppliesTo reports whether the requirement's marker holds in env. A
// requirement without a marker, or a nil env, always applies.
func (r Requirement) AppliesTo(env Environment) bool {
	if r.Marker == nil || env == nil {
		return true
	}
	return r.Marker.Evaluate(env)
}

func (r Requirement) String() string {
	var buf strings.Builder
	buf.WriteString(r.ID.String())

	c := r.constraint()
	switch {
	case r.Ref != nil:
		buf.WriteString(" @ ")
		buf.WriteString(directSource(r.Ref).String())
	case IsAny(c):
	default:
		buf.WriteString(c.String())
	}
	if r.Marker != nil {
		// a URL may contain ';' itself, so it needs to be set off
		if r.Ref != nil {
			buf.WriteString(" ")
		}
		buf.WriteString("; ")
		buf.WriteString(r.Marker.String())
	}
	return buf.String()
}

// ConstraintString renders just the version part of the requirement, as
// used in conflict reports: "*", ">=1.0,<2" or "@ url".
func (r Requirement) ConstraintString() string {
	if r.Ref != nil {
		return "@ " + directSource(r.Ref).String()
	}
	return r.constraint().String()
}

var reqHeadRe = regexp.MustCompile(`^\s*([A-Za-z0-9](?:[A-Za-z0-9._-]*[A-Za-z0-9])?)\s*(?:\[([^\]]+)\])?\s*(.*)$`)

// ParseRequirement parses a requirement line of the forms
//
//	name
//	name[extra1,extra2]>=1.0,<2.0
//	name (>=1.0)
//	name @ https://host/name-1.0.tar.gz
//	name>=1.0; python_version >= "3.8"
func ParseRequirement(line string) (Requirement, error) {
	line = strings.TrimSpace(line)
	m := reqHeadRe.FindStringSubmatch(line)
	if m == nil {
		return Requirement{}, errors.Errorf("invalid requirement %q", line)
	}

	r := Requirement{ID: NewIdentifier(m[1], m[2])}

	rest := strings.TrimSpace(m[3])
	var markerText string
	if strings.HasPrefix(rest, "@") {
		// a URL may itself contain ';', so the marker must be set off by
		// whitespace
		target := strings.TrimSpace(rest[1:])
		if i := strings.Index(target, " ;"); i >= 0 {
			target, markerText = target[:i], target[i+2:]
		}
		src, err := ParseSource(target)
		if err != nil {
			return Requirement{}, errors.Wrapf(err, "invalid requirement %q", line)
		}
		r.Ref = src
		r.Constraint = anything
	} else {
		spec := rest
		if i := strings.IndexByte(rest, ';'); i >= 0 {
			spec, markerText = rest[:i], rest[i+1:]
		}
		spec = strings.TrimSpace(spec)
		if strings.HasPrefix(spec, "(") && strings.HasSuffix(spec, ")") {
			spec = spec[1 : len(spec)-1]
		}
		c, err := ParseConstraint(spec)
		if err != nil {
			return Requirement{}, errors.Wrapf(err, "invalid requirement %q", line)
		}
		r.Constraint = c
	}

	if markerText = strings.TrimSpace(markerText); markerText != "" {
		mk, err := ParseMarker(markerText)
		if err != nil {
			return Requirement{}, errors.Wrapf(err, "invalid requirement %q", line)
		}
		r.Marker = mk
	}
	return r, nil
}

// MustParseRequirement is like ParseRequirement but panics on error. It is
// intended for fixtures and static tables.
func MustParseRequirement(line string) Requirement {
	r, err := ParseRequirement(line)
	if err != nil {
		panic(err)
	}
	return r
}

// mergeRequirements computes the logical AND of a set of requirements on the
// same identifier. Constraints are intersected and opt-in flags are OR'd.
// Conflicting direct references yield an unsatisfiable None constraint.
// Markers are not carried; by the time requirements are merged they have
// already been found to apply.
func mergeRequirements(id Identifier, reqs []Requirement) Requirement {
	merged := Requirement{ID: id, Constraint: anything}
	for _, r := range reqs {
		merged.Constraint = merged.Constraint.Intersect(r.constraint())
		merged.Prereleases = merged.Prereleases || r.Prereleases
		merged.Yanked = merged.Yanked || r.Yanked

		if r.Ref != nil {
			switch {
			case merged.Ref == nil:
				merged.Ref = r.Ref
			case merged.Ref.Fingerprint() != r.Ref.Fingerprint():
				merged.Constraint = none
			}
		}
	}
	return merged
}
