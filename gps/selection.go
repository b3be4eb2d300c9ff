// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import "sort"

// selection is the stack of candidates pinned so far, in the order they were
// pinned, along with the requirements each one brought in.
type selection struct {
	pins []pin
	byID map[Identifier]int
}

type pin struct {
	// id is the identifier the provider resolved c to.
	id Identifier
	c  Candidate
	// deps are the candidate's dependencies that apply in the target
	// environment.
	deps []Requirement
}

func newSelection() *selection {
	return &selection{
		byID: make(map[Identifier]int),
	}
}

func (s *selection) push(id Identifier, c Candidate, deps []Requirement) {
	s.byID[id] = len(s.pins)
	s.pins = append(s.pins, pin{id: id, c: c, deps: deps})
}

func (s *selection) pop() pin {
	p := s.pins[len(s.pins)-1]
	s.pins = s.pins[:len(s.pins)-1]
	delete(s.byID, p.id)
	return p
}

func (s *selection) selected(id Identifier) (Candidate, bool) {
	if k, has := s.byID[id]; has {
		return s.pins[k].c, true
	}
	return Candidate{}, false
}

func (s *selection) len() int {
	return len(s.pins)
}

// unselected holds the identifiers that have requirements in force but no
// pin, kept in first-introduction order.
type unselected struct {
	sl  []Identifier
	in  map[Identifier]bool
	seq func(Identifier) int
}

func newUnselected(seq func(Identifier) int) *unselected {
	return &unselected{
		in:  make(map[Identifier]bool),
		seq: seq,
	}
}

// search returns the position id has, or would have, in the list.
func (u *unselected) search(id Identifier) int {
	n := u.seq(id)
	return sort.Search(len(u.sl), func(i int) bool {
		return u.seq(u.sl[i]) >= n
	})
}

func (u *unselected) add(id Identifier) {
	if u.in[id] {
		return
	}
	k := u.search(id)
	u.sl = append(u.sl, Identifier{})
	copy(u.sl[k+1:], u.sl[k:])
	u.sl[k] = id
	u.in[id] = true
}

func (u *unselected) remove(id Identifier) {
	if !u.in[id] {
		return
	}
	k := u.search(id)
	copy(u.sl[k:], u.sl[k+1:])
	u.sl[len(u.sl)-1] = Identifier{}
	u.sl = u.sl[:len(u.sl)-1]
	delete(u.in, id)
}

func (u *unselected) len() int {
	return len(u.sl)
}
