// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wheeldep

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/wheeldep/wheeldep/gps"
	"github.com/wheeldep/wheeldep/internal/fs"
)

// SafeWriter transactionalizes writes of manifest and lock, both
// individually and in combination, into a pseudo-atomic action with
// transactional rollback.
//
// It is not impervious to errors (writing to disk is hard), but it should
// guard against non-arcane failure conditions.
type SafeWriter struct {
	Payload *SafeWriterPayload
}

// SafeWriterPayload represents the actions SafeWriter will execute when
// SafeWriter.Write is called.
type SafeWriterPayload struct {
	Manifest *Manifest
	Lock     *Lock
	LockDiff *LockDiff
}

// HasLock reports whether the payload includes a lock to write.
func (payload *SafeWriterPayload) HasLock() bool {
	return payload.Lock != nil
}

// HasManifest reports whether the payload includes a manifest to write.
func (payload *SafeWriterPayload) HasManifest() bool {
	return payload.Manifest != nil
}

// LockDiff is the set of differences between an existing lock file and an
// updated lock file. Fields are only populated when there is a difference,
// otherwise they are empty.
type LockDiff struct {
	HashDiff *StringDiff
	Add      []LockedPackageDiff
	Remove   []gps.Identifier
	Modify   []LockedPackageDiff
}

// LockedPackageDiff contains the before and after snapshot of a locked
// package. Fields are only populated when there is a difference, otherwise
// they are empty.
type LockedPackageDiff struct {
	ID           gps.Identifier
	Version      *StringDiff
	Source       *StringDiff
	Dependencies []StringDiff
}

// StringDiff is a before and after pair of a single value.
type StringDiff struct {
	Previous string
	Current  string
}

func (diff StringDiff) String() string {
	if diff.Previous == "" && diff.Current != "" {
		return fmt.Sprintf("+ %s", diff.Current)
	} else if diff.Previous != "" && diff.Current == "" {
		return fmt.Sprintf("- %s", diff.Previous)
	} else if diff.Previous != diff.Current {
		return fmt.Sprintf("%s -> %s", diff.Previous, diff.Current)
	}
	return diff.Current
}

// Format renders the diff for humans, one package per line.
func (diff *LockDiff) Format() string {
	if diff == nil {
		return ""
	}

	var buf bytes.Buffer
	if diff.HashDiff != nil {
		fmt.Fprintf(&buf, "Inputs digest: %s\n", diff.HashDiff)
	}
	for _, add := range diff.Add {
		fmt.Fprintf(&buf, "Add: %s\n", add.describe())
	}
	for _, id := range diff.Remove {
		fmt.Fprintf(&buf, "Remove: %s\n", id)
	}
	for _, mod := range diff.Modify {
		fmt.Fprintf(&buf, "Modify: %s\n", mod.describe())
	}
	return buf.String()
}

func (diff LockedPackageDiff) describe() string {
	var buf bytes.Buffer
	buf.WriteString(diff.ID.String())
	if diff.Version != nil {
		fmt.Fprintf(&buf, " version(%s)", diff.Version)
	}
	if diff.Source != nil {
		fmt.Fprintf(&buf, " source(%s)", diff.Source)
	}
	if len(diff.Dependencies) > 0 {
		buf.WriteString(" dependencies(")
		for k, d := range diff.Dependencies {
			if k > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(d.String())
		}
		buf.WriteString(")")
	}
	return buf.String()
}

// Prepare to write a set of manifest and lock.
//
//   - If manifest is provided, it will be written to the standard manifest
//     file name beneath root.
//   - If newLock is provided and lock is not, newLock will be written to the
//     standard lock file name in the root dir.
//   - If lock and newLock are both provided and are equivalent, the lock will
//     not be written.
//   - If lock and newLock are both provided and are not equivalent, newLock
//     is written and the payload records the diff.
func (sw *SafeWriter) Prepare(manifest *Manifest, lock *Lock, newLock *Lock) {
	sw.Payload = &SafeWriterPayload{
		Manifest: manifest,
	}

	if newLock != nil {
		if lock == nil {
			sw.Payload.Lock = newLock
		} else {
			diff := diffLocks(lock, newLock)
			if diff != nil {
				sw.Payload.Lock = newLock
				sw.Payload.LockDiff = diff
			}
		}
	}
}

func (payload SafeWriterPayload) validate(root string) error {
	if root == "" {
		return errors.New("root path must be non-empty")
	}
	if is, err := fs.IsDir(root); !is {
		if err != nil && !os.IsNotExist(err) {
			return err
		}
		return errors.Errorf("root path %q does not exist", root)
	}
	return nil
}

// Write saves some combination of manifest and lock. root is the absolute
// path of root dir in which to write.
//
// Both files are serialized before anything on disk is touched, and each is
// moved into place atomically. If moving in the lock fails after the
// manifest was replaced, the old manifest is restored.
func (sw *SafeWriter) Write(root string) error {
	if sw.Payload == nil {
		return errors.New("Cannot call SafeWriter.Write before SafeWriter.Prepare")
	}

	err := sw.Payload.validate(root)
	if err != nil {
		return err
	}

	if !sw.Payload.HasManifest() && !sw.Payload.HasLock() {
		// nothing to do
		return nil
	}

	mpath := filepath.Join(root, ManifestName)
	lpath := filepath.Join(root, LockName)

	var mb, lb []byte
	if sw.Payload.HasManifest() {
		if mb, err = sw.Payload.Manifest.MarshalTOML(); err != nil {
			return errors.Wrap(err, "failed to serialize manifest")
		}
	}
	if sw.Payload.HasLock() {
		if lb, err = sw.Payload.Lock.MarshalTOML(); err != nil {
			return errors.Wrap(err, "failed to serialize lock")
		}
	}

	var origManifest []byte
	var hadManifest bool
	if sw.Payload.HasManifest() {
		if origManifest, err = os.ReadFile(mpath); err == nil {
			hadManifest = true
		} else if !os.IsNotExist(err) {
			return errors.Wrap(err, "failed to read existing manifest")
		}

		if err := fs.WriteFile(mpath, mb, 0644); err != nil {
			return errors.Wrap(err, "failed to write manifest file")
		}
	}

	if sw.Payload.HasLock() {
		if err := fs.WriteFile(lpath, lb, 0644); err != nil {
			// Nothing we can do on err here, as we're already in recovery mode.
			if sw.Payload.HasManifest() {
				if hadManifest {
					fs.WriteFile(mpath, origManifest, 0644)
				} else {
					os.Remove(mpath)
				}
			}
			return errors.Wrap(err, "failed to write lock file")
		}
	}

	return nil
}

// PrintPreparedActions reports what Write would do through out, for dry
// runs.
func (sw *SafeWriter) PrintPreparedActions(out func(format string, args ...interface{})) error {
	if sw.Payload.HasManifest() {
		out("Would have written the following %s:\n", ManifestName)
		m, err := sw.Payload.Manifest.MarshalTOML()
		if err != nil {
			return errors.Wrap(err, "dry run cannot serialize manifest")
		}
		out("%s\n", m)
	}

	if sw.Payload.HasLock() {
		if sw.Payload.LockDiff == nil {
			out("Would have written the following %s:\n", LockName)
			l, err := sw.Payload.Lock.MarshalTOML()
			if err != nil {
				return errors.Wrap(err, "dry run cannot serialize lock")
			}
			out("%s\n", l)
		} else {
			out("Would have written the following changes to %s:\n", LockName)
			out("%s", sw.Payload.LockDiff.Format())
		}
	}

	return nil
}

// diffLocks compares two locks and identifies the differences between them.
// Returns nil if there are no differences.
func diffLocks(l1, l2 *Lock) *LockDiff {
	// Default nil locks to empty locks, so that we can still generate a diff
	if l1 == nil {
		l1 = &Lock{}
	}
	if l2 == nil {
		l2 = &Lock{}
	}

	p1, p2 := sortedPackages(l1.P), sortedPackages(l2.P)

	diff := LockDiff{}

	h1 := hex.EncodeToString(l1.Memo)
	h2 := hex.EncodeToString(l2.Memo)
	if h1 != h2 {
		diff.HashDiff = &StringDiff{Previous: h1, Current: h2}
	}

	var i1, i2 int
	for i1 < len(p1) || i2 < len(p2) {
		switch {
		case i2 == len(p2) || (i1 < len(p1) && p1[i1].Candidate.ID.Less(p2[i2].Candidate.ID)):
			diff.Remove = append(diff.Remove, p1[i1].Candidate.ID)
			i1++
		case i1 == len(p1) || p2[i2].Candidate.ID.Less(p1[i1].Candidate.ID):
			diff.Add = append(diff.Add, buildAddPackage(p2[i2]))
			i2++
		default:
			if pdiff := diffPackages(p1[i1], p2[i2]); pdiff != nil {
				diff.Modify = append(diff.Modify, *pdiff)
			}
			i1++
			i2++
		}
	}

	if diff.HashDiff == nil && len(diff.Add) == 0 && len(diff.Remove) == 0 && len(diff.Modify) == 0 {
		return nil // The locks are the equivalent
	}
	return &diff
}

func sortedPackages(pl []LockedPackage) []LockedPackage {
	sorted := make([]LockedPackage, len(pl))
	copy(sorted, pl)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Candidate.ID.Less(sorted[j].Candidate.ID)
	})
	return sorted
}

func lockedSource(c gps.Candidate) string {
	src := c.Source
	if es, ok := src.(gps.ExtrasSource); ok {
		src = es.Base
	}
	if src == nil {
		return ""
	}
	return src.String()
}

func buildAddPackage(lp LockedPackage) LockedPackageDiff {
	v, s := lp.Candidate.Version.String(), lockedSource(lp.Candidate)
	add := LockedPackageDiff{ID: lp.Candidate.ID}
	if v != "" {
		add.Version = &StringDiff{Previous: v, Current: v}
	}
	if s != "" {
		add.Source = &StringDiff{Previous: s, Current: s}
	}
	for _, dep := range lp.Dependencies {
		add.Dependencies = append(add.Dependencies, StringDiff{Previous: dep.String(), Current: dep.String()})
	}
	return add
}

// diffPackages compares two locked packages and identifies the differences
// between them. Returns nil if there are no differences.
func diffPackages(lp1, lp2 LockedPackage) *LockedPackageDiff {
	diff := LockedPackageDiff{ID: lp1.Candidate.ID}

	if v1, v2 := lp1.Candidate.Version.String(), lp2.Candidate.Version.String(); v1 != v2 {
		diff.Version = &StringDiff{Previous: v1, Current: v2}
	}
	if s1, s2 := lockedSource(lp1.Candidate), lockedSource(lp2.Candidate); s1 != s2 {
		diff.Source = &StringDiff{Previous: s1, Current: s2}
	}

	d1 := make(map[gps.Identifier]bool, len(lp1.Dependencies))
	for _, id := range lp1.Dependencies {
		d1[id] = true
	}
	d2 := make(map[gps.Identifier]bool, len(lp2.Dependencies))
	for _, id := range lp2.Dependencies {
		d2[id] = true
		if !d1[id] {
			diff.Dependencies = append(diff.Dependencies, StringDiff{Current: id.String()})
		}
	}
	for _, id := range lp1.Dependencies {
		if !d2[id] {
			diff.Dependencies = append(diff.Dependencies, StringDiff{Previous: id.String()})
		}
	}
	sort.Slice(diff.Dependencies, func(i, j int) bool {
		return diff.Dependencies[i].Previous+diff.Dependencies[i].Current <
			diff.Dependencies[j].Previous+diff.Dependencies[j].Current
	})

	if diff.Version == nil && diff.Source == nil && len(diff.Dependencies) == 0 {
		return nil // The packages are equivalent
	}
	return &diff
}
