// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"context"
	"io/ioutil"
	"log"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultMaxRounds is the round budget used when SolveParameters.MaxRounds
// is zero.
const DefaultMaxRounds = 200000

// SolveParameters hold all arguments to a solver run.
//
// Only RootRequirements is absolutely required. A nil Environment means that
// markers are not evaluated and every requirement applies.
type SolveParameters struct {
	// RootRequirements are the requirements the solution must satisfy. Their
	// order is significant: it decides which identifier wins a tie in the
	// selection heuristic, and so must be preserved by callers that want
	// reproducible results.
	RootRequirements []Requirement

	// Environment is the set of marker variables requirement markers are
	// evaluated against. Requirements whose marker doesn't hold are ignored.
	Environment Environment

	// MaxRounds bounds the work a solve may do. Every selection attempt and
	// every backtracking step costs a round. Zero means DefaultMaxRounds.
	MaxRounds int

	// Timeout, if positive, bounds the wall-clock time a solve may take.
	Timeout time.Duration

	// Trace controls whether the solver will generate informative trace
	// output as it moves through the solving process.
	Trace bool

	// TraceLogger is the logger to use for generating trace output. If Trace
	// is true but no logger is provided, solving will result in an error.
	TraceLogger *log.Logger

	// Logger receives structured diagnostics. If nil, diagnostics are
	// discarded.
	Logger *logrus.Logger
}

// A Solver is the main workhorse of gps: given a set of root requirements
// and a Provider, it computes a consistent set of pinned candidates.
//
// A Solver may be used for any number of sequential solves, each of which
// starts from scratch. It must not be used concurrently; use one Solver per
// goroutine instead.
type Solver interface {
	// Solve initiates a solving run. It will either abort due to a canceled
	// context, exhausted budget or unresolvable inputs, or successfully
	// return a Solution.
	Solve(ctx context.Context) (Solution, error)

	// HashInputs hashes the root requirements and environment, producing a
	// digest that changes whenever the inputs to a solve would change.
	HashInputs() []byte
}

// solver is a backtracking-style dependency solver.
type solver struct {
	params SolveParameters

	// Logger used exclusively for trace output, or nil to suppress.
	tl *log.Logger

	// Logger for structured diagnostics.
	l *logrus.Logger

	// The provider, the only source of candidates and dependencies.
	p Provider

	// The per-solve memo in front of the provider.
	b *bridge

	// All active requirements, by identifier.
	crit *Criteria

	// The stack of pinned candidates.
	sel *selection

	// Identifiers with requirements but no pin, in introduction order.
	unsel *unselected

	// A stack of the version queues of pinned candidates; vqs[k] holds the
	// alternatives for sel.pins[k].
	vqs []*versionQueue

	// Number of rounds spent in the current solve.
	rounds int

	// Effective round budget.
	maxRounds int

	// The most recent dead end the search ran into.
	lastErr error
}

// Prepare readies a Solver for use.
//
// This function reads and validates the provided SolveParameters. If a
// problem with the inputs is detected, an error is returned. Otherwise, a
// Solver is returned, ready to solve.
func Prepare(params SolveParameters, p Provider) (Solver, error) {
	if p == nil {
		return nil, BadOptsFailure("must provide non-nil Provider")
	}
	if params.Trace && params.TraceLogger == nil {
		return nil, BadOptsFailure("trace requested, but no logger provided")
	}
	if params.MaxRounds < 0 {
		return nil, BadOptsFailure("MaxRounds must not be negative")
	}
	if params.Timeout < 0 {
		return nil, BadOptsFailure("Timeout must not be negative")
	}
	for _, req := range params.RootRequirements {
		if req.ID.Name == "" {
			return nil, BadOptsFailure("root requirement with empty identifier")
		}
	}

	s := &solver{
		params:    params,
		p:         p,
		l:         params.Logger,
		maxRounds: params.MaxRounds,
	}
	if params.Trace {
		s.tl = params.TraceLogger
	}
	if s.l == nil {
		s.l = logrus.New()
		s.l.Out = ioutil.Discard
	}
	if s.maxRounds == 0 {
		s.maxRounds = DefaultMaxRounds
	}

	return s, nil
}

// Solve attempts to find a set of candidates that satisfies the root
// requirements and every requirement they transitively pull in.
//
// On failure the error is one of *NoCandidatesError, *VersionConflictError,
// *RoundLimitError or *CancelledError.
func (s *solver) Solve(ctx context.Context) (Solution, error) {
	if s.params.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.params.Timeout)
		defer cancel()
	}

	s.b = newBridge(s.p)
	s.crit = NewCriteria(s.p.IsSatisfiedBy)
	s.sel = newSelection()
	s.unsel = newUnselected(s.crit.Seq)
	s.vqs = nil
	s.rounds = 0
	s.lastErr = nil
	// Partial state is never exposed; drop it all on the way out.
	defer func() {
		s.b, s.crit, s.sel, s.unsel, s.vqs, s.lastErr = nil, nil, nil, nil, nil, nil
	}()

	s.seedRoot()

	var soln solution
	err := s.solve(ctx)
	if err == nil {
		soln = s.buildSolution()
	}

	s.traceFinish(soln, err)
	if s.l.Level >= logrus.InfoLevel {
		fields := logrus.Fields{
			"rounds": s.rounds,
			"calls":  s.b.calls,
		}
		if err != nil {
			s.l.WithFields(fields).WithError(err).Info("Solving failed")
		} else {
			fields["selected"] = len(soln.order)
			s.l.WithFields(fields).Info("Solving succeeded")
		}
	}

	if err != nil {
		return nil, err
	}
	return soln, nil
}

func (s *solver) seedRoot() {
	var applied int
	for _, req := range s.params.RootRequirements {
		if !req.AppliesTo(s.params.Environment) {
			if s.l.Level >= logrus.DebugLevel {
				s.l.WithFields(logrus.Fields{
					"requirement": req.String(),
				}).Debug("Skipping root requirement; marker does not apply")
			}
			continue
		}
		s.crit.AddRequirement(req, nil)
		s.unsel.add(req.ID)
		applied++
	}
	s.traceSelectRoot(applied)
}

func (s *solver) solve(ctx context.Context) error {
	for {
		if err := s.nextRound(ctx); err != nil {
			return err
		}

		id, has, err := s.nextUnselected(ctx)
		if err != nil {
			return err
		}
		if !has {
			// no more identifiers to select - we're done.
			return nil
		}

		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"rounds":   s.rounds,
				"name":     id.String(),
				"selcount": s.sel.len(),
			}).Debug("Beginning step in solve loop")
		}

		q, err := s.createVersionQueue(ctx, id)
		if err != nil {
			if isTerminal(err) {
				return err
			}

			// Err means a failure somewhere down the line; try backtracking.
			s.lastErr = err
			s.traceStartBacktrack(id, err)
			if err := s.backtrack(ctx); err != nil {
				return err
			}
			continue
		}

		c, has := q.current()
		if !has {
			panic("canary - queue is empty, but flow indicates success")
		}

		if s.l.Level >= logrus.InfoLevel {
			s.l.WithFields(logrus.Fields{
				"name":    c.ID.String(),
				"version": c.Version.String(),
			}).Info("Accepted candidate")
		}

		s.selectCandidate(q, c)
	}
}

// nextRound charges one round against the budget, checking for cancellation
// first.
func (s *solver) nextRound(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return &CancelledError{Err: err}
	}
	s.rounds++
	if s.rounds > s.maxRounds {
		return &RoundLimitError{Limit: s.maxRounds, Last: s.lastErr}
	}
	return nil
}

// nextUnselected picks the next identifier to work on: the unpinned
// identifier with the fewest candidates satisfying its merged requirement.
// Ties go to the identifier that was introduced first.
func (s *solver) nextUnselected(ctx context.Context) (Identifier, bool, error) {
	var (
		best      Identifier
		bestCount int
		found     bool
	)

	for _, id := range s.unsel.sl {
		cands, err := s.b.matching(ctx, s.crit.Merged(id))
		if err != nil && ctx.Err() != nil {
			return Identifier{}, false, &CancelledError{Err: ctx.Err()}
		}
		// a provider failure counts as zero candidates, which surfaces it
		// right away
		n := len(cands)
		if !found || n < bestCount {
			best, bestCount, found = id, n, true
		}
		if n == 0 {
			break
		}
	}

	return best, found, nil
}

func (s *solver) createVersionQueue(ctx context.Context, id Identifier) (*versionQueue, error) {
	merged := s.crit.Merged(id)
	cands, err := s.b.matching(ctx, merged)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancelledError{Err: ctx.Err()}
		}
		if s.l.Level >= logrus.WarnLevel {
			s.l.WithFields(logrus.Fields{
				"name": id.String(),
				"err":  err,
			}).Warn("Failed to list candidates")
		}
		return nil, &NoCandidatesError{
			ID:          id,
			Requirement: merged,
			Causes:      s.causesFor(id),
			Err:         err,
		}
	}
	if len(cands) == 0 {
		return nil, s.noMatchFailure(ctx, id, merged)
	}

	q := newVersionQueue(id, cands)
	if s.l.Level >= logrus.DebugLevel {
		s.l.WithFields(logrus.Fields{
			"name":  id.String(),
			"queue": q.String(),
		}).Debug("Created versionQueue")
	}
	s.traceCheckQueue(q, false)

	return q, s.findValidVersion(ctx, q)
}

// noMatchFailure works out whether an identifier with no acceptable
// candidates has no candidates at all, or only none that fit.
func (s *solver) noMatchFailure(ctx context.Context, id Identifier, merged Requirement) error {
	all, err := s.b.findCandidates(ctx, Requirement{
		ID:          id,
		Constraint:  anything,
		Prereleases: true,
		Yanked:      true,
	})
	if err != nil && ctx.Err() != nil {
		return &CancelledError{Err: ctx.Err()}
	}
	if err != nil || len(all) == 0 {
		return &NoCandidatesError{
			ID:          id,
			Requirement: merged,
			Causes:      s.causesFor(id),
			Err:         err,
		}
	}
	return &VersionConflictError{
		ID:          id,
		Requirement: merged,
		Causes:      s.causesFor(id),
	}
}

// findValidVersion walks through a versionQueue until it finds a candidate
// that is compatible with every current selection.
func (s *solver) findValidVersion(ctx context.Context, q *versionQueue) error {
	for {
		c, has := q.current()
		if !has {
			break
		}
		if err := ctx.Err(); err != nil {
			return &CancelledError{Err: err}
		}

		err := s.check(ctx, q.id, c)
		if err == nil {
			return nil
		}
		if isTerminal(err) {
			return err
		}

		s.traceInfo(err)
		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"name":    c.ID.String(),
				"version": c.Version.String(),
				"err":     err,
			}).Debug("Candidate rejected")
		}
		q.advance(err)
	}

	return s.deadEnd(q)
}

// deadEnd builds the error for a version queue that ran out of candidates.
func (s *solver) deadEnd(q *versionQueue) error {
	merged := s.crit.Merged(q.id)

	if q.onlyFetchFailures() {
		e := &NoCandidatesError{
			ID:          q.id,
			Requirement: merged,
			Causes:      s.causesFor(q.id),
		}
		for _, f := range q.fails {
			e.FetchErrors = append(e.FetchErrors, f.f.(*CandidateFetchError))
		}
		return e
	}

	e := &VersionConflictError{
		ID:          q.id,
		Requirement: merged,
		Causes:      s.causesFor(q.id),
	}
	for _, f := range q.fails {
		e.Tried = append(e.Tried, f.c)

		cf, ok := f.f.(*conflictFailure)
		if !ok {
			continue
		}
		parent := cf.parent
		for _, dep := range cf.deps {
			e.Causes = append(e.Causes, Cause{
				Provenance: Provenance{Requirement: dep, Parent: &parent},
				Via:        s.crit.Provenance(s.p.Identify(parent)),
			})
		}
		if pid := s.p.Identify(cf.pinned); pid != q.id {
			e.Causes = append(e.Causes, s.causesFor(pid)...)
		}
	}
	return e
}

// causesFor snapshots the requirements on id, along with the requirements
// that put each requirement's parent in place.
func (s *solver) causesFor(id Identifier) []Cause {
	prov := s.crit.Provenance(id)
	causes := make([]Cause, 0, len(prov))
	for _, p := range prov {
		c := Cause{Provenance: p}
		if p.Parent != nil {
			c.Via = s.crit.Provenance(s.p.Identify(*p.Parent))
		}
		causes = append(causes, c)
	}
	return causes
}

// backtrack undoes selections, most recent first, until it finds one that
// has an untried alternative compatible with the remaining selections. It
// returns nil if the search can continue, or the error that ends it.
func (s *solver) backtrack(ctx context.Context) error {
	for len(s.vqs) > 0 {
		if err := s.nextRound(ctx); err != nil {
			return err
		}

		q := s.vqs[len(s.vqs)-1]
		p := s.unselectLast()
		s.traceBacktrack(p.c)

		if s.l.Level >= logrus.DebugLevel {
			s.l.WithFields(logrus.Fields{
				"name":    p.c.ID.String(),
				"version": p.c.Version.String(),
			}).Debug("Backtracking; unselected candidate")
		}

		q.advance(&deadEndFailure{c: p.c, cause: s.lastErr})
		if q.isExhausted() {
			continue
		}

		s.traceCheckQueue(q, true)
		err := s.findValidVersion(ctx, q)
		if err == nil {
			c, _ := q.current()
			if s.l.Level >= logrus.InfoLevel {
				s.l.WithFields(logrus.Fields{
					"name":    c.ID.String(),
					"version": c.Version.String(),
				}).Info("Backtracking found valid candidate")
			}
			s.selectCandidate(q, c)
			return nil
		}
		if isTerminal(err) {
			return err
		}
		s.lastErr = err
	}

	// Nothing left to try: the most recent dead end is the answer.
	return s.lastErr
}

// selectCandidate pins c, whose queue is q, and records its dependencies as
// requirements.
func (s *solver) selectCandidate(q *versionQueue, c Candidate) {
	// deps were fetched, successfully, during check
	deps, _ := s.b.getDependencies(context.Background(), c)
	deps = s.applicable(deps)

	s.sel.push(q.id, c, deps)
	s.unsel.remove(q.id)
	s.vqs = append(s.vqs, q)
	for _, dep := range deps {
		s.crit.AddRequirement(dep, &c)
		if _, has := s.sel.selected(dep.ID); !has {
			s.unsel.add(dep.ID)
		}
	}
	s.traceSelect(c, len(deps))
}

// unselectLast pops the most recent selection and its version queue, and
// withdraws the requirements it introduced.
func (s *solver) unselectLast() pin {
	s.vqs = s.vqs[:len(s.vqs)-1]
	p := s.sel.pop()

	for _, group := range groupByID(p.deps) {
		id := group[0].ID
		s.crit.RemoveProvenance(id, p.c)
		if !s.crit.Has(id) {
			s.unsel.remove(id)
		}
	}
	if s.crit.Has(p.id) {
		s.unsel.add(p.id)
	}
	return p
}
