// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"bytes"
	"fmt"
)

type traceError interface {
	traceString() string
}

// BadOptsFailure is returned from Prepare when the SolveParameters are
// unusable.
type BadOptsFailure string

func (e BadOptsFailure) Error() string {
	return string(e)
}

// A Cause is one requirement that contributed to a failure, snapshotted at
// the moment the failure was recorded.
type Cause struct {
	Provenance
	// Via holds the requirements that were in force on the parent's
	// identifier, i.e. the reasons the parent was selected. Empty for root
	// requirements.
	Via []Provenance
}

// NoCandidatesError indicates that there was nothing at all to try for an
// identifier: the provider knows of no candidates, or the dependencies of
// every candidate that would have been acceptable could not be fetched.
type NoCandidatesError struct {
	ID Identifier
	// Requirement is the merged requirement that was being satisfied.
	Requirement Requirement
	Causes      []Cause
	// FetchErrors holds one error for every candidate whose dependencies
	// could not be fetched.
	FetchErrors []*CandidateFetchError
	// Err is the provider's error, if it failed to list candidates at all.
	Err error
}

func (e *NoCandidatesError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("could not list candidates for %s: %s", e.ID, e.Err)
	case len(e.FetchErrors) == 0:
		return fmt.Sprintf("no candidates found for %s", e.ID)
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "no candidates for %s could be used, as fetching their dependencies failed:", e.ID)
	for _, fe := range e.FetchErrors {
		fmt.Fprintf(&buf, "\n\t%s: %s", fe.Candidate, fe.Err)
	}
	return buf.String()
}

func (e *NoCandidatesError) Unwrap() error {
	return e.Err
}

func (e *NoCandidatesError) traceString() string {
	if len(e.FetchErrors) == 0 {
		return fmt.Sprintf("no candidates for %s", e.ID)
	}
	return fmt.Sprintf("no fetchable candidates for %s (%v failed)", e.ID, len(e.FetchErrors))
}

// VersionConflictError indicates that candidates exist for an identifier,
// but none of them could be selected alongside the requirements and pins in
// force when the search ran out of alternatives.
type VersionConflictError struct {
	ID Identifier
	// Requirement is the merged requirement that was being satisfied.
	Requirement Requirement
	// Causes are the requirements on ID, plus any requirements from tried
	// candidates that clashed with existing selections, and the
	// requirements behind those selections.
	Causes []Cause
	// Tried lists the candidates that were tried and rejected, in order.
	Tried []Candidate
}

func (e *VersionConflictError) Error() string {
	if len(e.Tried) == 0 {
		return fmt.Sprintf("no version of %s satisfies %s", e.ID, e.Requirement.ConstraintString())
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "no version of %s satisfies all requirements; tried:", e.ID)
	for _, c := range e.Tried {
		fmt.Fprintf(&buf, "\n\t%s", c)
	}
	return buf.String()
}

func (e *VersionConflictError) traceString() string {
	return fmt.Sprintf("no version of %s satisfies %s", e.ID, e.Requirement.ConstraintString())
}

// RoundLimitError indicates that the search did not finish within its
// round budget.
type RoundLimitError struct {
	Limit int
	// Last is the most recent dead end the search hit before giving up, if
	// any. It is informational; RoundLimitError does not unwrap to it.
	Last error
}

func (e *RoundLimitError) Error() string {
	return fmt.Sprintf("resolution did not complete within %d rounds", e.Limit)
}

// CandidateFetchError indicates that a candidate's dependencies could not be
// fetched from the provider. The candidate is skipped in favor of the next
// one.
type CandidateFetchError struct {
	Candidate Candidate
	Err       error
}

func (e *CandidateFetchError) Error() string {
	return fmt.Sprintf("could not fetch dependencies of %s: %s", e.Candidate, e.Err)
}

func (e *CandidateFetchError) Unwrap() error {
	return e.Err
}

func (e *CandidateFetchError) traceString() string {
	return fmt.Sprintf("%s: fetch failed: %s", e.Candidate, e.Err)
}

// CancelledError indicates that the solve was abandoned because its context
// was cancelled or its deadline passed. It unwraps to context.Canceled or
// context.DeadlineExceeded.
type CancelledError struct {
	Err error
}

func (e *CancelledError) Error() string {
	return fmt.Sprintf("resolution cancelled: %s", e.Err)
}

func (e *CancelledError) Unwrap() error {
	return e.Err
}

// conflictFailure indicates that a candidate could not be introduced because
// one of its dependencies does not admit a version that's already selected.
type conflictFailure struct {
	parent Candidate
	deps   []Requirement
	pinned Candidate
	merged Requirement
}

func (e *conflictFailure) Error() string {
	str := "Could not introduce %s, as it has a dependency on %s, which does not allow the currently selected %s"
	return fmt.Sprintf(str, e.parent, describeReqs(e.deps), e.pinned)
}

func (e *conflictFailure) traceString() string {
	str := "%s depends on %s, but %s is already selected"
	return fmt.Sprintf(str, e.parent, describeReqs(e.deps), e.pinned.Version)
}

// identityFailure indicates that the provider resolved a candidate to an
// identifier other than the one it was offered for.
type identityFailure struct {
	c         Candidate
	want, got Identifier
}

func (e *identityFailure) Error() string {
	return fmt.Sprintf("%s was offered for %s, but resolves %s", e.c, e.want, e.got)
}

func (e *identityFailure) traceString() string {
	return fmt.Sprintf("%s resolves %s, not %s", e.c, e.got, e.want)
}

// deadEndFailure marks a candidate that was accepted, but under which the
// search later ran out of options.
type deadEndFailure struct {
	c     Candidate
	cause error
}

func (e *deadEndFailure) Error() string {
	return fmt.Sprintf("no solution with %s: %s", e.c, e.cause)
}

func isTerminal(err error) bool {
	switch err.(type) {
	case *CancelledError, *RoundLimitError:
		return true
	}
	return false
}
