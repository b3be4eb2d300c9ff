// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

// Provenance records a single requirement on an identifier, along with the
// candidate whose dependencies introduced it. A nil Parent means the
// requirement was one of the root requirements.
type Provenance struct {
	Requirement Requirement
	Parent      *Candidate
}

// IsRoot reports whether the requirement came from the root.
func (p Provenance) IsRoot() bool {
	return p.Parent == nil
}

func (p Provenance) fromParent(c Candidate) bool {
	return p.Parent != nil && p.Parent.Equal(c)
}

// criterion aggregates every active requirement on one identifier.
type criterion struct {
	entries []Provenance
	merged  Requirement
	// stale indicates that entries changed since merged was last derived.
	stale bool
}

// Criteria holds, per identifier, the requirements currently in force and
// who introduced them.
//
// The merged requirement for an identifier is derived lazily, on read,
// from whatever provenance entries remain. It is never patched in place on
// removal, so adding and then removing a parent's requirements always
// leaves the identifier exactly as if that parent had never been seen.
type Criteria struct {
	sat func(Requirement, Candidate) bool
	m   map[Identifier]*criterion
	// intro records the order in which identifiers were first seen, and
	// order lists them in that order. Entries outlive their criterion so
	// ordering stays stable across backtracking.
	intro map[Identifier]int
	order []Identifier
}

// NewCriteria returns an empty Criteria that uses sat to decide whether a
// candidate meets a merged requirement. A nil sat uses DefaultIsSatisfiedBy.
func NewCriteria(sat func(Requirement, Candidate) bool) *Criteria {
	if sat == nil {
		sat = DefaultIsSatisfiedBy
	}
	return &Criteria{
		sat:   sat,
		m:     make(map[Identifier]*criterion),
		intro: make(map[Identifier]int),
	}
}

// AddRequirement records req as introduced by parent, or by the root if
// parent is nil.
func (c *Criteria) AddRequirement(req Requirement, parent *Candidate) {
	cr, has := c.m[req.ID]
	if !has {
		cr = &criterion{}
		c.m[req.ID] = cr
	}
	if _, seen := c.intro[req.ID]; !seen {
		c.intro[req.ID] = len(c.order)
		c.order = append(c.order, req.ID)
	}

	var p *Candidate
	if parent != nil {
		pc := *parent
		p = &pc
	}
	cr.entries = append(cr.entries, Provenance{Requirement: req, Parent: p})
	cr.stale = true
}

// RemoveProvenance drops every requirement on id that was introduced by
// parent. Once no requirements on id remain, the identifier is forgotten
// entirely. It returns whether anything was removed.
func (c *Criteria) RemoveProvenance(id Identifier, parent Candidate) bool {
	cr, has := c.m[id]
	if !has {
		return false
	}

	kept := cr.entries[:0]
	for _, p := range cr.entries {
		if !p.fromParent(parent) {
			kept = append(kept, p)
		}
	}
	if len(kept) == len(cr.entries) {
		return false
	}
	// zero the tail so dropped entries can be collected
	for k := len(kept); k < len(cr.entries); k++ {
		cr.entries[k] = Provenance{}
	}
	cr.entries = kept

	if len(cr.entries) == 0 {
		delete(c.m, id)
		return true
	}
	cr.stale = true
	return true
}

// Has reports whether there are any requirements on id.
func (c *Criteria) Has(id Identifier) bool {
	_, has := c.m[id]
	return has
}

// Merged returns the logical AND of all requirements on id. An identifier
// with no requirements yields an unconstrained requirement.
func (c *Criteria) Merged(id Identifier) Requirement {
	cr, has := c.m[id]
	if !has {
		return Requirement{ID: id, Constraint: anything}
	}
	if cr.stale {
		cr.merged = mergeRequirements(id, requirementsOf(cr.entries))
		cr.stale = false
	}
	return cr.merged
}

// MergedWith returns what the merged requirement on id would be if the
// provided requirements were added, without modifying the Criteria.
func (c *Criteria) MergedWith(id Identifier, extra ...Requirement) Requirement {
	if len(extra) == 0 {
		return c.Merged(id)
	}

	var reqs []Requirement
	if cr, has := c.m[id]; has {
		reqs = requirementsOf(cr.entries)
	}
	return mergeRequirements(id, append(reqs, extra...))
}

// IsSatisfied reports whether cand meets every requirement on id.
func (c *Criteria) IsSatisfied(id Identifier, cand Candidate) bool {
	if !c.Has(id) {
		return true
	}
	return c.sat(c.Merged(id), cand)
}

// Provenance returns a copy of the requirements on id, in the order they
// were added.
func (c *Criteria) Provenance(id Identifier) []Provenance {
	cr, has := c.m[id]
	if !has {
		return nil
	}
	return append([]Provenance(nil), cr.entries...)
}

// Identifiers returns all identifiers with active requirements, in the
// order they were first introduced.
func (c *Criteria) Identifiers() []Identifier {
	ids := make([]Identifier, 0, len(c.m))
	for _, id := range c.order {
		if _, has := c.m[id]; has {
			ids = append(ids, id)
		}
	}
	return ids
}

// Seq returns the first-introduction rank of id. Identifiers that were
// never introduced sort after all others.
func (c *Criteria) Seq(id Identifier) int {
	if n, has := c.intro[id]; has {
		return n
	}
	return len(c.order)
}

// Len returns the number of identifiers with active requirements.
func (c *Criteria) Len() int {
	return len(c.m)
}

func requirementsOf(entries []Provenance) []Requirement {
	reqs := make([]Requirement, len(entries))
	for k, p := range entries {
		reqs[k] = p.Requirement
	}
	return reqs
}
