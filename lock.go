// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wheeldep

import (
	"bytes"
	"encoding/hex"
	"io"
	"sort"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/wheeldep/wheeldep/gps"
)

// LockName is the lock file name used by wheeldep.
const LockName = "wheeldep.lock"

// Lock holds lock file data: the pinned candidates of a solution, in install
// order, and a digest of the inputs that produced it.
type Lock struct {
	// Memo is the digest of the solve inputs, as from gps.Solver.HashInputs.
	Memo []byte
	// Rounds is the number of solver rounds the solution took.
	Rounds int
	P      []LockedPackage
}

// LockedPackage is one pinned candidate in a Lock.
type LockedPackage struct {
	Candidate gps.Candidate
	// Dependencies are the identifiers the candidate's requirements resolved
	// to, sorted.
	Dependencies []gps.Identifier
}

type rawLock struct {
	SolveMeta rawSolveMeta     `toml:"solve-meta"`
	Packages  []rawLockedEntry `toml:"package"`
}

type rawSolveMeta struct {
	InputsDigest string `toml:"inputs-digest"`
	Rounds       int    `toml:"rounds"`
}

type rawLockedEntry struct {
	Name         string   `toml:"name"`
	Version      string   `toml:"version,omitempty"`
	Index        string   `toml:"index,omitempty"`
	Yanked       bool     `toml:"yanked,omitempty"`
	Source       string   `toml:"source,omitempty"`
	Dependencies []string `toml:"dependencies,omitempty"`
}

func readLock(r io.Reader) (*Lock, error) {
	buf := &bytes.Buffer{}
	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to read byte stream")
	}

	raw := rawLock{}
	err = toml.Unmarshal(buf.Bytes(), &raw)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse the lock as TOML")
	}

	return fromRawLock(raw)
}

func fromRawLock(raw rawLock) (*Lock, error) {
	var err error
	l := &Lock{
		Rounds: raw.SolveMeta.Rounds,
		P:      make([]LockedPackage, len(raw.Packages)),
	}

	l.Memo, err = hex.DecodeString(raw.SolveMeta.InputsDigest)
	if err != nil {
		return nil, errors.Errorf("invalid hash digest in lock's memo field")
	}

	seen := make(map[gps.Identifier]bool, len(raw.Packages))
	for i, ld := range raw.Packages {
		id, err := gps.ParseIdentifier(ld.Name)
		if err != nil {
			return nil, errors.Wrap(err, "invalid package name in lock")
		}
		if seen[id] {
			return nil, errors.Errorf("lock file has multiple entries for %s", id)
		}
		seen[id] = true

		var v gps.Version
		if ld.Version != "" {
			if v, err = gps.NewVersion(ld.Version); err != nil {
				return nil, errors.Wrapf(err, "lock file has a bad version for %s", id)
			}
		}

		var src gps.Source
		if ld.Source != "" {
			if ld.Index != "" {
				return nil, errors.Errorf("lock file specified both an index (%s) and a source (%s) for %s", ld.Index, ld.Source, id)
			}
			if src, err = gps.ParseSource(ld.Source); err != nil {
				return nil, errors.Wrapf(err, "lock file has a bad source for %s", id)
			}
		} else {
			if v.IsZero() {
				return nil, errors.Errorf("lock file has entry for %s, but specifies no version", id)
			}
			src = gps.IndexSource{Index: ld.Index, Yanked: ld.Yanked}
		}
		if id.IsExtra() {
			src = gps.ExtrasSource{Base: src}
		}

		lp := LockedPackage{
			Candidate: gps.Candidate{ID: id, Version: v, Source: src},
		}
		for _, dep := range ld.Dependencies {
			did, err := gps.ParseIdentifier(dep)
			if err != nil {
				return nil, errors.Wrapf(err, "lock file has a bad dependency for %s", id)
			}
			lp.Dependencies = append(lp.Dependencies, did)
		}
		l.P[i] = lp
	}

	return l, nil
}

// LockFromSolution converts a gps.Solution to a Lock.
func LockFromSolution(soln gps.Solution) *Lock {
	l := &Lock{
		Memo:   soln.InputHash(),
		Rounds: soln.Rounds(),
	}
	for _, id := range soln.Order() {
		c, _ := soln.Get(id)
		deps := append([]gps.Identifier(nil), soln.DependenciesOf(id)...)
		sort.Slice(deps, func(i, j int) bool { return deps[i].Less(deps[j]) })
		l.P = append(l.P, LockedPackage{Candidate: c, Dependencies: deps})
	}
	return l
}

// DirectSource returns the direct reference the package is locked to, or
// the empty string for an indexed release.
func (lp LockedPackage) DirectSource() string {
	if !gps.IsDirect(lp.Candidate.Source) {
		return ""
	}
	return lockedSource(lp.Candidate)
}

// InputHash returns the digest of the inputs the lock was solved from.
func (l *Lock) InputHash() []byte {
	return l.Memo
}

// IsCurrent reports whether the lock was solved from inputs with the given
// digest; if not, it is stale and the project needs to be solved again.
func (l *Lock) IsCurrent(digest []byte) bool {
	return l != nil && len(l.Memo) > 0 && bytes.Equal(l.Memo, digest)
}

// Get returns the locked candidate for id, if there is one.
func (l *Lock) Get(id gps.Identifier) (gps.Candidate, bool) {
	for _, lp := range l.P {
		if lp.Candidate.ID == id {
			return lp.Candidate, true
		}
	}
	return gps.Candidate{}, false
}

// toRaw converts the lock into a representation suitable to write to the
// lock file.
func (l *Lock) toRaw() rawLock {
	raw := rawLock{
		SolveMeta: rawSolveMeta{
			InputsDigest: hex.EncodeToString(l.Memo),
			Rounds:       l.Rounds,
		},
		Packages: make([]rawLockedEntry, len(l.P)),
	}

	for k, lp := range l.P {
		c := lp.Candidate
		ld := rawLockedEntry{
			Name:    c.ID.String(),
			Version: c.Version.String(),
		}
		src := c.Source
		if es, ok := src.(gps.ExtrasSource); ok {
			src = es.Base
		}
		switch s := src.(type) {
		case gps.IndexSource:
			ld.Index = s.Index
			ld.Yanked = s.Yanked
		case nil:
		default:
			ld.Source = s.String()
		}
		for _, dep := range lp.Dependencies {
			ld.Dependencies = append(ld.Dependencies, dep.String())
		}
		raw.Packages[k] = ld
	}

	return raw
}

// MarshalTOML serializes this lock into TOML via an intermediate raw form.
func (l *Lock) MarshalTOML() ([]byte, error) {
	raw := l.toRaw()
	result, err := toml.Marshal(raw)
	return result, errors.Wrap(err, "Unable to marshal lock to TOML string")
}
