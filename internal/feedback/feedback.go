// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feedback

import (
	"fmt"
	"log"

	"github.com/wheeldep/wheeldep/gps"
)

// DepTypeDirect represents a direct dependency
const DepTypeDirect = "direct dep"

// DepTypeTransitive represents a transitive dependency,
// or a dependency of a dependency
const DepTypeTransitive = "transitive dep"

// ConstraintFeedback holds package constraint feedback data
type ConstraintFeedback struct {
	Constraint, LockedVersion, Source, DependencyType, Name string
}

// NewConstraintFeedback builds a feedback entry for a root requirement.
func NewConstraintFeedback(req gps.Requirement, depType string) *ConstraintFeedback {
	return &ConstraintFeedback{
		Constraint:     req.ConstraintString(),
		DependencyType: depType,
		Name:           req.ID.String(),
	}
}

// NewLockedPackageFeedback builds a feedback entry for a locked candidate.
func NewLockedPackageFeedback(c gps.Candidate, depType string) *ConstraintFeedback {
	cf := &ConstraintFeedback{
		LockedVersion:  c.Version.String(),
		DependencyType: depType,
		Name:           c.ID.String(),
	}
	if cf.LockedVersion == "" {
		cf.LockedVersion = "*"
	}

	src := c.Source
	if es, ok := src.(gps.ExtrasSource); ok {
		src = es.Base
	}
	if src != nil {
		cf.Source = src.String()
	}
	if gps.IsYanked(src) {
		cf.Source += ", yanked"
	}
	return cf
}

// LogFeedback logs the feedback
func (cf ConstraintFeedback) LogFeedback(logger *log.Logger) {
	if cf.Constraint != "" {
		logger.Printf("  %v", GetUsingFeedback(cf.Constraint, cf.DependencyType, cf.Name))
	}
	if cf.LockedVersion != "" {
		logger.Printf("  %v", GetLockingFeedback(cf.LockedVersion, cf.Source, cf.DependencyType, cf.Name))
	}
}

// GetUsingFeedback returns dependency using feedback string.
// Example:
// Using >=2.28 as constraint for direct dep requests
func GetUsingFeedback(constraint, depType, name string) string {
	return fmt.Sprintf("Using %s as constraint for %s %s", constraint, depType, name)
}

// GetLockingFeedback returns dependency locking feedback string.
// Example:
// Locking in 2.31.0 (index pypi) for direct dep requests
// Locking in 0.1.0 (git+https://example.com/mylib@v1) for transitive dep mylib
func GetLockingFeedback(version, source, depType, name string) string {
	if source == "" {
		return fmt.Sprintf("Locking in %s for %s %s", version, depType, name)
	}
	return fmt.Sprintf("Locking in %s (%s) for %s %s", version, source, depType, name)
}
