// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"fmt"
	"strings"
)

type failedCandidate struct {
	c Candidate
	f error
}

// versionQueue is the ordered list of candidates still to be tried for one
// identifier. The head of the list is the current candidate; advancing pops
// it and records why it failed. Because the list is materialized up front,
// backtracking resumes from where the queue left off without asking the
// provider again.
type versionQueue struct {
	id    Identifier
	pi    []Candidate
	fails []failedCandidate
}

func newVersionQueue(id Identifier, cands []Candidate) *versionQueue {
	return &versionQueue{
		id: id,
		pi: cands,
	}
}

func (vq *versionQueue) current() (Candidate, bool) {
	if len(vq.pi) > 0 {
		return vq.pi[0], true
	}
	return Candidate{}, false
}

// advance moves the versionQueue forward to the next available candidate,
// recording the failure that eliminated the current one.
func (vq *versionQueue) advance(fail error) {
	// Nothing in the queue means...nothing in the queue, nicely enough
	if len(vq.pi) == 0 {
		return
	}

	vq.fails = append(vq.fails, failedCandidate{
		c: vq.pi[0],
		f: fail,
	})
	vq.pi = vq.pi[1:]
}

// isExhausted indicates whether there are no more candidates to try.
func (vq *versionQueue) isExhausted() bool {
	return len(vq.pi) == 0
}

// onlyFetchFailures reports whether every candidate that was tried failed
// because its dependencies could not be fetched.
func (vq *versionQueue) onlyFetchFailures() bool {
	if len(vq.fails) == 0 {
		return false
	}
	for _, f := range vq.fails {
		if _, ok := f.f.(*CandidateFetchError); !ok {
			return false
		}
	}
	return true
}

func (vq *versionQueue) String() string {
	var vs []string

	for _, c := range vq.pi {
		if c.Version.IsZero() {
			vs = append(vs, directSource(c.Source).String())
		} else {
			vs = append(vs, c.Version.String())
		}
	}
	return fmt.Sprintf("[%s]", strings.Join(vs, ", "))
}
