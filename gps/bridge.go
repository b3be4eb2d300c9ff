// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"context"
	"strconv"
)

// bridge is an adapter around a Provider. It provides localized caching
// that's tailored to the requirements of a single solve run: candidate lists
// are fetched once per distinct requirement, and a candidate's dependencies
// are fetched at most once, whether the fetch succeeded or not.
type bridge struct {
	p Provider

	// Candidate lists, keyed by requirement. These are the provider's raw
	// lists, in its preference order, prior to any filtering.
	clists map[string]candResult

	// Dependency lists, keyed by Candidate.Key().
	deps map[string]depResult

	// Number of calls actually made through to the provider.
	calls int
}

type candResult struct {
	cl  []Candidate
	err error
}

type depResult struct {
	reqs []Requirement
	err  error
}

func newBridge(p Provider) *bridge {
	return &bridge{
		p:      p,
		clists: make(map[string]candResult),
		deps:   make(map[string]depResult),
	}
}

func reqKey(req Requirement) string {
	return req.ID.String() + "|" + req.ConstraintString() + "|" +
		strconv.FormatBool(req.Prereleases) + strconv.FormatBool(req.Yanked)
}

// findCandidates returns the provider's candidates for req. As with
// dependencies, failures other than cancellation are remembered.
func (b *bridge) findCandidates(ctx context.Context, req Requirement) ([]Candidate, error) {
	key := reqKey(req)
	if cr, has := b.clists[key]; has {
		return cr.cl, cr.err
	}

	b.calls++
	cl, err := b.p.FindCandidates(ctx, req)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	b.clists[key] = candResult{cl: cl, err: err}
	return cl, err
}

// matching returns the provider's candidates for req that satisfy it, in
// provider order.
func (b *bridge) matching(ctx context.Context, req Requirement) ([]Candidate, error) {
	cl, err := b.findCandidates(ctx, req)
	if err != nil {
		return nil, err
	}

	var out []Candidate
	for _, c := range cl {
		if b.p.IsSatisfiedBy(req, c) {
			out = append(out, c)
		}
	}
	return out, nil
}

// getDependencies returns the requirements of c. Failures are remembered, so
// a candidate that could not be fetched is never fetched again in this run.
// Cancellation is the exception; it is not the candidate's fault.
func (b *bridge) getDependencies(ctx context.Context, c Candidate) ([]Requirement, error) {
	key := c.Key()
	if dr, has := b.deps[key]; has {
		return dr.reqs, dr.err
	}

	b.calls++
	reqs, err := b.p.GetDependencies(ctx, c)
	if err != nil && ctx.Err() != nil {
		return nil, ctx.Err()
	}
	b.deps[key] = depResult{reqs: reqs, err: err}
	return reqs, err
}
