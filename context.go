// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wheeldep

import (
	"context"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wheeldep/wheeldep/internal/fs"
	"github.com/wheeldep/wheeldep/internal/index"
)

// Ctx defines the supporting context of wheeldep.
//
// A properly initialized Ctx has a WorkingDir and both loggers set.
type Ctx struct {
	WorkingDir string         // Where to execute.
	Out, Err   *log.Logger    // Required loggers.
	Logger     *logrus.Logger // Structured diagnostics; nil discards them.
	Verbose    bool           // Enables more verbose logging.
}

func (c *Ctx) logger() *logrus.Logger {
	if c.Logger == nil {
		c.Logger = logrus.New()
		c.Logger.Out = ioutil.Discard
	}
	return c.Logger
}

// LoadProject starts from the current working directory and searches up the
// directory tree for a project root. The search stops when a file with the
// name ManifestName (wheeldep.toml) is located.
//
// The Project contains the parsed manifest as well as a parsed lock file, if
// present.
func (c *Ctx) LoadProject() (*Project, error) {
	root, err := findProjectRoot(c.WorkingDir)
	if err != nil {
		return nil, err
	}

	p := &Project{AbsRoot: root}

	mp := filepath.Join(p.AbsRoot, ManifestName)
	mf, err := os.Open(mp)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", mp)
	}
	defer mf.Close()

	var warns []error
	p.Manifest, warns, err = readManifest(mf)
	for _, warn := range warns {
		c.logger().WithField("manifest", mp).Warn(warn.Error())
	}
	if err != nil {
		return nil, errors.Wrapf(err, "error while parsing %s", mp)
	}

	lp := filepath.Join(p.AbsRoot, LockName)
	if is, err := fs.IsRegular(lp); err != nil {
		return nil, errors.Wrapf(err, "could not check %s", lp)
	} else if !is {
		return p, nil
	}

	lf, err := os.Open(lp)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open %s", lp)
	}
	defer lf.Close()

	p.Lock, err = readLock(lf)
	if err != nil {
		return nil, errors.Wrapf(err, "error while parsing %s", lp)
	}

	return p, nil
}

// Index loads the package index the project's manifest names. A directory
// is opened lazily; a file is read whole.
func (c *Ctx) Index(p *Project) (*index.Index, error) {
	if p.Manifest.IndexPath == "" {
		return nil, errNoIndex
	}
	path := p.absPath(p.Manifest.IndexPath)

	fi, err := os.Stat(path)
	if err != nil {
		return nil, errors.Wrap(err, "could not open index")
	}
	if fi.IsDir() {
		return index.OpenDir(path)
	}
	return index.LoadFile(path)
}

// Provider returns a candidate provider over the project's index, backed by
// the manifest's metadata cache if one is configured. The returned func
// releases everything the provider holds, and must be called when done.
func (c *Ctx) Provider(ctx context.Context, p *Project) (*index.Provider, func(), error) {
	idx, err := c.Index(p)
	if err != nil {
		return nil, nil, err
	}

	var cache *index.Cache
	if p.Manifest.CachePath != "" {
		epoch := time.Now().Add(-p.Manifest.CacheMaxAge).Unix()
		cache, err = index.OpenCache(p.absPath(p.Manifest.CachePath), epoch, c.logger())
		if err != nil {
			return nil, nil, err
		}
	}

	prov := index.NewProvider(ctx, idx, index.ProviderOptions{
		Cache:  cache,
		Logger: c.logger(),
	})

	release := func() {
		prov.Close()
		if cache != nil {
			if err := cache.Close(); err != nil {
				c.logger().WithError(err).Warn("Failed to close cache")
			}
		}
	}
	return prov, release, nil
}
