// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// A Statement is one line of a conflict explanation: who required what, and
// why they were there to require it.
type Statement struct {
	// Parent is the candidate that made the requirement, or nil for the root.
	Parent      *Candidate
	Requirement Requirement
	// Because lists the requirements that caused Parent to be selected.
	Because []Provenance
}

// IsRoot reports whether the statement is about a root requirement.
func (st Statement) IsRoot() bool {
	return st.Parent == nil
}

func (st Statement) String() string {
	str := fmt.Sprintf("%s requires %s", who(st.Parent), describeReq(st.Requirement))
	if len(st.Because) == 0 {
		return str
	}

	why := make([]string, len(st.Because))
	for k, p := range st.Because {
		why[k] = fmt.Sprintf("%s required %s", who(p.Parent), describeReq(p.Requirement))
	}
	return str + " (because " + strings.Join(why, ", ") + ")"
}

func who(c *Candidate) string {
	if c == nil {
		return "root"
	}
	return c.String()
}

// describeReq renders a requirement without its marker, which by now has
// already been found to apply.
func describeReq(r Requirement) string {
	if r.Ref == nil && IsAny(r.constraint()) {
		return r.ID.String()
	}
	if r.Ref != nil {
		return r.ID.String() + " " + r.ConstraintString()
	}
	return r.ID.String() + r.ConstraintString()
}

func describeReqs(rs []Requirement) string {
	parts := make([]string, len(rs))
	for k, r := range rs {
		parts[k] = describeReq(r)
	}
	return strings.Join(parts, ", ")
}

// ExplainConflict turns a solve failure into an ordered, deduplicated list
// of statements. Root requirements come first; the rest are ordered by the
// identifier they constrain, then by who made them, then by constraint. The
// order never depends on map iteration, so the same failure always produces
// the same explanation.
//
// Errors that carry no provenance yield nil.
func ExplainConflict(err error) []Statement {
	var causes []Cause

	var vce *VersionConflictError
	var nce *NoCandidatesError
	var rle *RoundLimitError
	switch {
	case errors.As(err, &rle):
		if rle.Last == nil {
			return nil
		}
		return ExplainConflict(rle.Last)
	case errors.As(err, &vce):
		causes = vce.Causes
	case errors.As(err, &nce):
		causes = nce.Causes
	default:
		return nil
	}

	seen := make(map[string]bool)
	var stmts []Statement
	for _, c := range causes {
		st := Statement{
			Parent:      c.Parent,
			Requirement: c.Requirement,
		}
		if c.Parent != nil {
			st.Because = sortedProvenance(c.Via)
		}
		key := st.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		stmts = append(stmts, st)
	}

	sort.SliceStable(stmts, func(i, j int) bool {
		si, sj := stmts[i], stmts[j]
		if si.IsRoot() != sj.IsRoot() {
			return si.IsRoot()
		}
		if si.Requirement.ID != sj.Requirement.ID {
			return si.Requirement.ID.Less(sj.Requirement.ID)
		}
		if wi, wj := who(si.Parent), who(sj.Parent); wi != wj {
			return wi < wj
		}
		return si.String() < sj.String()
	})
	return stmts
}

func sortedProvenance(ps []Provenance) []Provenance {
	out := append([]Provenance(nil), ps...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsRoot() != out[j].IsRoot() {
			return out[i].IsRoot()
		}
		if wi, wj := who(out[i].Parent), who(out[j].Parent); wi != wj {
			return wi < wj
		}
		return describeReq(out[i].Requirement) < describeReq(out[j].Requirement)
	})

	// drop exact repeats
	var k int
	for i, p := range out {
		if i > 0 && who(p.Parent) == who(out[k-1].Parent) && describeReq(p.Requirement) == describeReq(out[k-1].Requirement) {
			continue
		}
		out[k] = p
		k++
	}
	return out[:k]
}

// FormatFailure renders a solve error for humans. Conflicts are explained
// statement by statement; other errors are rendered plainly.
func FormatFailure(err error) string {
	if err == nil {
		return ""
	}

	var buf bytes.Buffer
	var vce *VersionConflictError
	var nce *NoCandidatesError
	var rle *RoundLimitError
	var ce *CancelledError

	switch {
	case errors.As(err, &ce):
		fmt.Fprintf(&buf, "Resolution was cancelled: %s\n", ce.Err)
		return buf.String()
	case errors.As(err, &rle):
		fmt.Fprintf(&buf, "Resolution did not complete within %d rounds.\n", rle.Limit)
		if stmts := ExplainConflict(rle); len(stmts) > 0 {
			fmt.Fprintln(&buf, "The most recent conflict was:")
			writeStatements(&buf, stmts)
		}
		return buf.String()
	case errors.As(err, &vce):
		fmt.Fprintln(&buf, "Could not resolve a consistent set of packages.")
		fmt.Fprintf(&buf, "No version of %s satisfies all of:\n", vce.ID)
		writeStatements(&buf, ExplainConflict(vce))
		return buf.String()
	case errors.As(err, &nce):
		fmt.Fprintln(&buf, "Could not resolve a consistent set of packages.")
		switch {
		case nce.Err != nil:
			fmt.Fprintf(&buf, "Could not list candidates for %s: %s\n", nce.ID, nce.Err)
		case len(nce.FetchErrors) > 0:
			fmt.Fprintf(&buf, "No usable candidates for %s; fetching dependencies failed for:\n", nce.ID)
			for _, fe := range nce.FetchErrors {
				fmt.Fprintf(&buf, "  %s: %s\n", fe.Candidate, fe.Err)
			}
		default:
			fmt.Fprintf(&buf, "No candidates found for %s.\n", nce.ID)
		}
		if stmts := ExplainConflict(nce); len(stmts) > 0 {
			fmt.Fprintln(&buf, "It was required by:")
			writeStatements(&buf, stmts)
		}
		return buf.String()
	}

	fmt.Fprintln(&buf, err.Error())
	return buf.String()
}

func writeStatements(buf *bytes.Buffer, stmts []Statement) {
	for _, st := range stmts {
		fmt.Fprintf(buf, "  %s\n", st)
	}
}
