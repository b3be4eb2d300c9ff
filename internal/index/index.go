// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package index implements a package index and the default gps.Provider on
// top of it.
//
// An index is either loaded whole from a single YAML file, or opened over a
// directory holding one YAML file per project, in which case projects are
// read lazily the first time they are asked for.
package index

import (
	"io"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/wheeldep/wheeldep/gps"
	"gopkg.in/yaml.v3"
)

// An Index is a collection of projects, keyed by normalized name.
//
// Lookups are safe for concurrent use. AddRelease and AddDirect are meant
// for building an index up front, and must not be called concurrently with
// anything else.
type Index struct {
	name string
	mu   sync.RWMutex
	t    projectTrie
}

// entry is one project slot in the trie. Projects of a directory index are
// read from path on first use.
type entry struct {
	once sync.Once
	name string
	path string
	p    *Project
	err  error
}

func (e *entry) load() (*Project, error) {
	e.once.Do(func() {
		if e.path == "" {
			return
		}
		e.p, e.err = loadProjectFile(e.name, e.path)
	})
	return e.p, e.err
}

// New returns an empty in-memory index.
func New(name string) *Index {
	return &Index{
		name: name,
		t:    newProjectTrie(),
	}
}

// Load reads a whole index from a single YAML document.
func Load(r io.Reader) (*Index, error) {
	var raw rawIndex
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil {
		return nil, errors.Wrap(err, "unable to parse index")
	}

	idx := New(raw.Name)
	for name, rp := range raw.Projects {
		norm := gps.NormalizeName(name)
		p, err := rp.toProject(norm)
		if err != nil {
			return nil, err
		}
		idx.t.Insert(norm, &entry{name: norm, p: p})
	}
	return idx, nil
}

// LoadFile reads a whole index from the named YAML file.
func LoadFile(path string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open index")
	}
	defer f.Close()

	idx, err := Load(f)
	if err != nil {
		return nil, errors.Wrapf(err, "in %s", path)
	}
	if idx.name == "" {
		idx.name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return idx, nil
}

// OpenDir opens a directory index. Each "<name>.yaml" file in dir describes
// one project; files are only read when the project is first looked up.
func OpenDir(dir string) (*Index, error) {
	fis, err := ioutil.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open index directory")
	}

	idx := New(filepath.Base(dir))
	for _, fi := range fis {
		ext := filepath.Ext(fi.Name())
		if fi.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		norm := gps.NormalizeName(strings.TrimSuffix(fi.Name(), ext))
		idx.t.Insert(norm, &entry{
			name: norm,
			path: filepath.Join(dir, fi.Name()),
		})
	}
	return idx, nil
}

func loadProjectFile(name, path string) (*Project, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to read project %s", name)
	}
	defer f.Close()

	var rp rawProject
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&rp); err != nil && err != io.EOF {
		return nil, errors.Wrapf(err, "unable to parse %s", path)
	}
	return rp.toProject(name)
}

// Name returns the name of the index, as recorded on the candidates it
// serves.
func (idx *Index) Name() string {
	return idx.name
}

// Len returns the number of projects in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.t.Len()
}

// Project returns the named project, reading it from disk if necessary. An
// unknown name yields a nil Project and no error.
func (idx *Index) Project(name string) (*Project, error) {
	idx.mu.RLock()
	e, has := idx.t.Get(gps.NormalizeName(name))
	idx.mu.RUnlock()
	if !has {
		return nil, nil
	}
	return e.load()
}

// AddRelease adds a release to the named project, creating the project if
// needed. A release with the same version replaces the existing one.
func (idx *Index) AddRelease(name string, r Release) error {
	p, err := idx.mutable(name)
	if err != nil {
		return err
	}
	p.addRelease(r)
	return nil
}

// AddDirect adds a direct-reference artifact to the named project,
// creating the project if needed.
func (idx *Index) AddDirect(name string, d Direct) error {
	if d.Source == nil || !gps.IsDirect(d.Source) {
		return errors.Errorf("%s: %v is not a direct reference", name, d.Source)
	}
	p, err := idx.mutable(name)
	if err != nil {
		return err
	}
	p.addDirect(d)
	return nil
}

func (idx *Index) mutable(name string) (*Project, error) {
	norm := gps.NormalizeName(name)

	idx.mu.Lock()
	e, has := idx.t.Get(norm)
	if !has {
		e = &entry{name: norm, p: newProject(norm)}
		idx.t.Insert(norm, e)
	}
	idx.mu.Unlock()

	return e.load()
}

// Names returns the names of all projects in the index, sorted.
func (idx *Index) Names() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.t.Keys()
}

// WithPrefix returns the sorted names of all projects whose normalized name
// starts with prefix.
func (idx *Index) WithPrefix(prefix string) []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.t.KeysWithPrefix(gps.NormalizeName(prefix))
}
