// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import "context"

// A Provider is the solver's sole window onto the world: it knows which
// candidates exist for a requirement and what each candidate depends on.
//
// The solver treats the order of candidates returned from FindCandidates as
// the provider's preference and never re-sorts them; the provider owns the
// ranking policy. Implementations may do whatever I/O they need, in parallel
// if they like, but each call must present a complete, ordered result.
type Provider interface {
	// FindCandidates returns every candidate the provider knows for the
	// requirement's identifier that it is willing to offer, most preferred
	// first. Each call starts from scratch.
	FindCandidates(ctx context.Context, req Requirement) ([]Candidate, error)
	// IsSatisfiedBy reports whether the candidate is acceptable for the
	// (possibly merged) requirement.
	IsSatisfiedBy(req Requirement, c Candidate) bool
	// GetDependencies returns the candidate's own requirements. Markers are
	// left on the returned requirements; the solver evaluates them.
	GetDependencies(ctx context.Context, c Candidate) ([]Requirement, error)
	// Identify returns the identifier a candidate resolves.
	Identify(c Candidate) Identifier
}

// DefaultIsSatisfiedBy implements the standard acceptance policy, and is
// suitable for a Provider's IsSatisfiedBy:
//
//   - the candidate must be for the requirement's identifier
//   - if the requirement names a direct reference, the candidate's source
//     must have the same fingerprint
//   - otherwise the candidate's version must match the constraint
//   - pre-releases are accepted only if the requirement opts in, or one of
//     its specifiers names a pre-release
//   - yanked releases are accepted only if the requirement opts in, or pins
//     an exact version with == or ===
func DefaultIsSatisfiedBy(req Requirement, c Candidate) bool {
	if req.ID != c.ID {
		return false
	}

	con := req.constraint()
	if req.Ref != nil {
		if fingerprint(c.Source) != req.Ref.Fingerprint() {
			return false
		}
		// an unversioned direct reference only matches Any
		return con.Matches(c.Version)
	}

	if !con.Matches(c.Version) {
		return false
	}
	if c.Version.IsPrerelease() && !req.Prereleases && !con.namesPrerelease() {
		return false
	}
	if IsYanked(c.Source) && !req.Yanked && !isExact(con) {
		return false
	}
	return true
}
