// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package wheeldep ties the gps solver to a project on disk: a wheeldep.toml
// manifest holding root requirements and solver settings, and a
// wheeldep.lock recording the last solution along with a digest of the
// inputs that produced it.
package wheeldep

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/wheeldep/wheeldep/gps"
)

var errProjectNotFound = fmt.Errorf("could not find project %s, use wheeldep init to create one", ManifestName)

// findProjectRoot searches from the starting directory upwards looking for a
// manifest file until we get to the root of the filesystem.
func findProjectRoot(from string) (string, error) {
	for {
		mp := filepath.Join(from, ManifestName)

		_, err := os.Stat(mp)
		if err == nil {
			return from, nil
		}
		if !os.IsNotExist(err) {
			// Some err other than non-existence - return that out
			return "", err
		}

		parent := filepath.Dir(from)
		if parent == from {
			return "", errProjectNotFound
		}
		from = parent
	}
}

// A Project holds a Manifest and optional Lock for a project.
type Project struct {
	// AbsRoot is the absolute path to the root directory of the project.
	AbsRoot  string
	Manifest *Manifest
	Lock     *Lock
}

// MakeParams is a simple helper to create a gps.SolveParameters without setting
// any nils incorrectly.
func (p *Project) MakeParams(l *logrus.Logger) gps.SolveParameters {
	var params gps.SolveParameters
	if p.Manifest != nil {
		params = p.Manifest.SolveParameters()
	}
	params.Logger = l
	return params
}

// absPath resolves a manifest path against the project root.
func (p *Project) absPath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(p.AbsRoot, path)
}
