// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"container/heap"
	"sort"
)

// A Solution is returned by a successful solver run. It holds the selected
// candidates, the order in which to install them, and some information
// about the solve run itself.
type Solution interface {
	// Candidates returns the selected candidates in install order.
	Candidates() []Candidate
	// Get returns the candidate selected for id.
	Get(id Identifier) (Candidate, bool)
	// Order returns identifiers in install order: dependencies come before
	// their dependents, except where a dependency cycle makes that
	// impossible.
	Order() []Identifier
	// DependenciesOf returns the identifiers the candidate selected for id
	// depends on, in the order its dependencies were declared.
	DependenciesOf(id Identifier) []Identifier
	// Rounds reports how many rounds the solve took.
	Rounds() int
	// InputHash is the digest of the solve's inputs; see Solver.HashInputs.
	InputHash() []byte
}

type solution struct {
	// Selected candidates, by identifier.
	pins map[Identifier]Candidate

	// Dependency edges, by identifier.
	deps map[Identifier][]Identifier

	// Install order.
	order []Identifier

	// The number of rounds the solve took
	rounds int

	// The hash digest of the input opts
	hd []byte
}

func (r solution) Candidates() []Candidate {
	out := make([]Candidate, len(r.order))
	for k, id := range r.order {
		out[k] = r.pins[id]
	}
	return out
}

func (r solution) Get(id Identifier) (Candidate, bool) {
	c, has := r.pins[id]
	return c, has
}

func (r solution) Order() []Identifier {
	return append([]Identifier(nil), r.order...)
}

func (r solution) DependenciesOf(id Identifier) []Identifier {
	return append([]Identifier(nil), r.deps[id]...)
}

func (r solution) Rounds() int {
	return r.rounds
}

func (r solution) InputHash() []byte {
	return r.hd
}

func (s *solver) buildSolution() solution {
	soln := solution{
		pins:   make(map[Identifier]Candidate, s.sel.len()),
		deps:   make(map[Identifier][]Identifier, s.sel.len()),
		rounds: s.rounds,
		hd:     s.HashInputs(),
	}

	for _, p := range s.sel.pins {
		soln.pins[p.id] = p.c
		for _, group := range groupByID(p.deps) {
			if dep := group[0].ID; dep != p.id {
				soln.deps[p.id] = append(soln.deps[p.id], dep)
			}
		}
	}

	soln.order = installOrder(soln.pins, soln.deps, s.crit.Seq)
	return soln
}

// installOrder sorts the selected identifiers topologically, dependencies
// first. Among identifiers that are ready at the same time, the one
// introduced first goes first. If only cycles remain, the earliest
// introduced identifier that sits on a cycle is emitted to break it.
func installOrder(pins map[Identifier]Candidate, deps map[Identifier][]Identifier, seq func(Identifier) int) []Identifier {
	less := func(a, b Identifier) bool {
		if sa, sb := seq(a), seq(b); sa != sb {
			return sa < sb
		}
		return a.Less(b)
	}

	// remaining counts each identifier's unemitted dependencies
	remaining := make(map[Identifier]int, len(pins))
	dependents := make(map[Identifier][]Identifier)
	byseq := make([]Identifier, 0, len(pins))
	for id := range pins {
		remaining[id] = 0
		byseq = append(byseq, id)
	}
	sort.Slice(byseq, func(i, j int) bool {
		return less(byseq[i], byseq[j])
	})
	for _, id := range byseq {
		for _, dep := range deps[id] {
			if _, has := pins[dep]; !has {
				continue
			}
			remaining[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	ready := &readyQueue{less: less}
	for _, id := range byseq {
		if remaining[id] == 0 {
			ready.sl = append(ready.sl, id)
		}
	}
	heap.Init(ready)

	order := make([]Identifier, 0, len(pins))
	// cycle break candidates are looked for from here on in byseq
	var cur int
	for len(remaining) > 0 {
		var next Identifier
		if ready.Len() > 0 {
			next = heap.Pop(ready).(Identifier)
		} else {
			for ; cur < len(byseq); cur++ {
				id := byseq[cur]
				if _, has := remaining[id]; has && onCycle(id, deps, remaining) {
					next = id
					break
				}
			}
		}

		order = append(order, next)
		delete(remaining, next)
		for _, d := range dependents[next] {
			n, has := remaining[d]
			if !has {
				continue
			}
			remaining[d] = n - 1
			if n == 1 {
				heap.Push(ready, d)
			}
		}
	}
	return order
}

// readyQueue is a heap of identifiers whose dependencies have all been
// emitted.
type readyQueue struct {
	sl   []Identifier
	less func(a, b Identifier) bool
}

func (q readyQueue) Len() int {
	return len(q.sl)
}

func (q readyQueue) Less(i, j int) bool {
	return q.less(q.sl[i], q.sl[j])
}

func (q readyQueue) Swap(i, j int) {
	q.sl[i], q.sl[j] = q.sl[j], q.sl[i]
}

func (q *readyQueue) Push(x interface{}) {
	q.sl = append(q.sl, x.(Identifier))
}

func (q *readyQueue) Pop() (v interface{}) {
	v, q.sl = q.sl[len(q.sl)-1], q.sl[:len(q.sl)-1]
	return v
}

// onCycle reports whether id can reach itself through identifiers that are
// still in remaining.
func onCycle(id Identifier, deps map[Identifier][]Identifier, remaining map[Identifier]int) bool {
	seen := make(map[Identifier]bool)
	stack := append([]Identifier(nil), deps[id]...)
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if cur == id {
			return true
		}
		if _, has := remaining[cur]; !has || seen[cur] {
			continue
		}
		seen[cur] = true
		stack = append(stack, deps[cur]...)
	}
	return false
}
