// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/wheeldep/wheeldep"
	"github.com/wheeldep/wheeldep/gps"
)

var (
	initIndex string
	initCache string
)

var initCmd = &cobra.Command{
	Use:   "init [requirement...]",
	Short: "Set up a new wheeldep project",
	Long: `Initialize the project in the current directory by writing a
wheeldep.toml holding the given root requirements and index settings.

Requirements use the usual form, e.g. "requests[socks]>=2.28" or
"mylib @ git+https://example.com/mylib@v1".`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initIndex, "index", "index", "index file or directory, relative to the project root")
	initCmd.Flags().StringVar(&initCache, "cache", "", "metadata cache file, relative to the project root (default: no cache)")
}

func runInit(cmd *cobra.Command, args []string) error {
	ctx, err := newCtx(cmd)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(ctx.WorkingDir)
	if err != nil {
		return errors.Wrap(err, "determining project root")
	}
	mf := filepath.Join(root, wheeldep.ManifestName)
	if _, err := os.Stat(mf); err == nil {
		return errors.Errorf("manifest already exists: %s", mf)
	} else if !os.IsNotExist(err) {
		return errors.Wrapf(err, "checking for %s", mf)
	}

	m := &wheeldep.Manifest{
		IndexPath:   initIndex,
		CachePath:   initCache,
		CacheMaxAge: wheeldep.DefaultCacheMaxAge,
	}
	seen := make(map[string]bool, len(args))
	for _, arg := range args {
		req, err := gps.ParseRequirement(arg)
		if err != nil {
			return errors.Wrapf(err, "invalid requirement %q", arg)
		}
		if seen[req.String()] {
			continue
		}
		seen[req.String()] = true
		m.Requires = append(m.Requires, req)
	}

	var sw wheeldep.SafeWriter
	sw.Prepare(m, nil, nil)
	if err := sw.Write(root); err != nil {
		return errors.Wrap(err, "init failed")
	}

	ctx.Logger.WithField("requirements", len(m.Requires)).Debugf("Wrote %s", mf)
	return nil
}
