// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import "context"

// check determines whether c can be selected for id: the provider must
// identify it as id, its dependencies must be fetchable, and none of them may
// exclude a candidate that's already selected.
func (s *solver) check(ctx context.Context, id Identifier, c Candidate) error {
	if got := s.p.Identify(c); got != id {
		return &identityFailure{c: c, want: id, got: got}
	}

	deps, err := s.b.getDependencies(ctx, c)
	if err != nil {
		if ctx.Err() != nil {
			return &CancelledError{Err: ctx.Err()}
		}
		return &CandidateFetchError{Candidate: c, Err: err}
	}

	for _, group := range groupByID(s.applicable(deps)) {
		if err := s.checkDepDisallowsSelected(id, c, group); err != nil {
			return err
		}
	}
	return nil
}

// checkDepDisallowsSelected ensures that a group of requirements on one
// identifier, all introduced by c (which resolves self), does not exclude the
// candidate already selected for that identifier. A requirement of c on its
// own identifier is checked against c itself.
func (s *solver) checkDepDisallowsSelected(self Identifier, c Candidate, group []Requirement) error {
	id := group[0].ID

	target, has := s.sel.selected(id)
	if id == self {
		target, has = c, true
	}
	if !has {
		return nil
	}

	would := s.crit.MergedWith(id, group...)
	if !s.p.IsSatisfiedBy(would, target) {
		return &conflictFailure{
			parent: c,
			deps:   group,
			pinned: target,
			merged: would,
		}
	}
	return nil
}

// applicable filters out requirements whose markers don't hold.
func (s *solver) applicable(reqs []Requirement) []Requirement {
	var out []Requirement
	for _, r := range reqs {
		if r.AppliesTo(s.params.Environment) {
			out = append(out, r)
		}
	}
	return out
}

// groupByID groups requirements by identifier, preserving the order in which
// each identifier first appears.
func groupByID(reqs []Requirement) [][]Requirement {
	idx := make(map[Identifier]int)
	var groups [][]Requirement
	for _, r := range reqs {
		k, has := idx[r.ID]
		if !has {
			k = len(groups)
			idx[r.ID] = k
			groups = append(groups, nil)
		}
		groups[k] = append(groups[k], r)
	}
	return groups
}
