// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	successChar   = "✓"
	successCharSp = successChar + " "
	failChar      = "✗"
	failCharSp    = failChar + " "
	backChar      = "←"
)

// traceSelectRoot is called just once, after the root requirements are in
func (s *solver) traceSelectRoot(applied int) {
	if s.tl == nil {
		return
	}

	s.tl.Printf("Root has %v requirements (%v apply)", len(s.params.RootRequirements), applied)
	s.tl.Printf(successCharSp + "select (root)")
}

func (s *solver) traceCheckQueue(q *versionQueue, cont bool) {
	if s.tl == nil {
		return
	}

	prefix := strings.Repeat("| ", len(s.vqs)+1)
	vlen := strconv.Itoa(len(q.pi))

	var verb string
	if cont {
		verb = "continue"
		vlen = vlen + " more"
	} else {
		verb = "attempt"
	}

	s.tl.Printf("%s\n", tracePrefix(fmt.Sprintf("? %s %s with %s candidates to try", verb, q.id, vlen), prefix, prefix))
}

// traceStartBacktrack is called with the identifier that first failed, thus
// initiating backtracking
func (s *solver) traceStartBacktrack(id Identifier, err error) {
	if s.tl == nil {
		return
	}

	msg := fmt.Sprintf("%s no more candidates of %s to try; begin backtrack", backChar, id)
	if te, ok := err.(traceError); ok {
		msg += "\n" + te.traceString()
	}

	prefix := strings.Repeat("| ", s.sel.len())
	s.tl.Printf("%s\n", tracePrefix(msg, prefix, prefix))
}

// traceBacktrack is called when a candidate is popped off during
// backtracking
func (s *solver) traceBacktrack(c Candidate) {
	if s.tl == nil {
		return
	}

	msg := fmt.Sprintf("%s backtrack: unselect %s", backChar, c)
	prefix := strings.Repeat("| ", s.sel.len())
	s.tl.Printf("%s\n", tracePrefix(msg, prefix, prefix))
}

// Called just once after solving has finished, whether success or not
func (s *solver) traceFinish(sol solution, err error) {
	if s.tl == nil {
		return
	}

	if err == nil {
		s.tl.Printf("%s found solution with %v candidates in %v rounds", successChar, len(sol.order), s.rounds)
	} else {
		s.tl.Printf("%s solving failed after %v rounds", failChar, s.rounds)
	}
}

// traceSelect is called when a candidate is successfully selected
func (s *solver) traceSelect(c Candidate, ndeps int) {
	if s.tl == nil {
		return
	}

	msg := fmt.Sprintf("%s select %s w/%v deps", successChar, c, ndeps)
	prefix := strings.Repeat("| ", s.sel.len()-1)
	s.tl.Printf("%s\n", tracePrefix(msg, prefix, prefix))
}

func (s *solver) traceInfo(args ...interface{}) {
	if s.tl == nil {
		return
	}

	if len(args) == 0 {
		panic("must pass at least one param to traceInfo")
	}

	preflen := s.sel.len()
	var msg string
	switch data := args[0].(type) {
	case string:
		msg = tracePrefix(fmt.Sprintf(data, args[1:]...), "| ", "| ")
	case traceError:
		preflen++
		// We got a special traceError, use its custom method
		msg = tracePrefix(data.traceString(), "| ", failCharSp)
	case error:
		// Regular error; still use the x leader but default Error() string
		msg = tracePrefix(data.Error(), "| ", failCharSp)
	default:
		// panic here because this can *only* mean a stupid internal bug
		panic(fmt.Sprintf("canary - unknown type passed as first param to traceInfo %T", data))
	}

	prefix := strings.Repeat("| ", preflen)
	s.tl.Printf("%s\n", tracePrefix(msg, prefix, prefix))
}

func tracePrefix(msg, sep, fsep string) string {
	parts := strings.Split(strings.TrimSuffix(msg, "\n"), "\n")
	for k, str := range parts {
		if k == 0 {
			parts[k] = fsep + str
		} else {
			parts[k] = sep + str
		}
	}

	return strings.Join(parts, "\n")
}
