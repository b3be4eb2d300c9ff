// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wheeldep

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"github.com/wheeldep/wheeldep/gps"
)

// ManifestName is the manifest file name used by wheeldep.
const ManifestName = "wheeldep.toml"

// DefaultCacheMaxAge bounds the age of cached dependency metadata when the
// manifest doesn't say otherwise.
const DefaultCacheMaxAge = 24 * time.Hour

// Manifest holds manifest file data and the solver settings of a project.
type Manifest struct {
	// Requires are the root requirements, in the order written.
	Requires []gps.Requirement
	// Environment holds the marker variables requirements are evaluated
	// against. A nil Environment disables marker evaluation.
	Environment gps.Environment

	MaxRounds int
	Timeout   time.Duration

	// IndexPath is the index file or directory, relative to the project
	// root unless absolute.
	IndexPath string
	// CachePath is the dependency metadata cache, relative to the project
	// root unless absolute. Empty disables caching.
	CachePath   string
	CacheMaxAge time.Duration
}

type rawManifest struct {
	Requires    []string          `toml:"requires"`
	Environment map[string]string `toml:"environment,omitempty"`
	Solver      rawSolver         `toml:"solver,omitempty"`
	Index       rawIndex          `toml:"index,omitempty"`
}

type rawSolver struct {
	MaxRounds int    `toml:"max-rounds,omitempty"`
	Timeout   string `toml:"timeout,omitempty"`
}

type rawIndex struct {
	Path        string `toml:"path"`
	Cache       string `toml:"cache,omitempty"`
	CacheMaxAge string `toml:"cache-max-age,omitempty"`
}

var errNoIndex = errors.New("manifest names no index: set path under [index]")

// readManifest returns a Manifest read from r and a slice of validation
// warnings.
func readManifest(r io.Reader) (*Manifest, []error, error) {
	buf := &bytes.Buffer{}
	_, err := buf.ReadFrom(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Unable to read byte stream")
	}

	warns, err := validateManifest(buf.Bytes())
	if err != nil {
		return nil, nil, err
	}

	raw := rawManifest{}
	err = toml.Unmarshal(buf.Bytes(), &raw)
	if err != nil {
		return nil, nil, errors.Wrap(err, "Unable to parse the manifest as TOML")
	}

	m, err := fromRawManifest(raw)
	return m, warns, err
}

var validManifestKeys = map[string]map[string]bool{
	"requires":    nil,
	"environment": nil,
	"solver":      {"max-rounds": true, "timeout": true},
	"index":       {"path": true, "cache": true, "cache-max-age": true},
}

// validateManifest flags keys wheeldep does not understand. Unknown keys are
// not fatal, since a newer wheeldep may have written them.
func validateManifest(b []byte) ([]error, error) {
	tree, err := toml.LoadBytes(b)
	if err != nil {
		return nil, errors.Wrap(err, "Unable to parse the manifest as TOML")
	}

	var warns []error
	keys := tree.Keys()
	sort.Strings(keys)
	for _, key := range keys {
		sub, known := validManifestKeys[key]
		if !known {
			warns = append(warns, fmt.Errorf("unknown field in manifest: %v", key))
			continue
		}
		if sub == nil {
			continue
		}
		st, ok := tree.Get(key).(*toml.Tree)
		if !ok {
			return nil, errors.Errorf("%s should be a TOML table", key)
		}
		skeys := st.Keys()
		sort.Strings(skeys)
		for _, skey := range skeys {
			if !sub[skey] {
				warns = append(warns, fmt.Errorf("unknown field in manifest: %s.%s", key, skey))
			}
		}
	}
	return warns, nil
}

func fromRawManifest(raw rawManifest) (*Manifest, error) {
	m := &Manifest{
		MaxRounds: raw.Solver.MaxRounds,
		IndexPath: raw.Index.Path,
		CachePath: raw.Index.Cache,
	}

	seen := make(map[string]bool, len(raw.Requires))
	for _, line := range raw.Requires {
		req, err := gps.ParseRequirement(line)
		if err != nil {
			return nil, errors.Wrap(err, "bad manifest requirement")
		}
		if seen[req.String()] {
			return nil, errors.Errorf("multiple requirements %q in manifest", line)
		}
		seen[req.String()] = true
		m.Requires = append(m.Requires, req)
	}

	if raw.Environment != nil {
		m.Environment = make(gps.Environment, len(raw.Environment))
		for k, v := range raw.Environment {
			m.Environment[k] = v
		}
	}

	if m.MaxRounds < 0 {
		return nil, errors.Errorf("max-rounds must not be negative, got %d", m.MaxRounds)
	}
	var err error
	if m.Timeout, err = parseDuration("solver.timeout", raw.Solver.Timeout); err != nil {
		return nil, err
	}
	if m.CacheMaxAge, err = parseDuration("index.cache-max-age", raw.Index.CacheMaxAge); err != nil {
		return nil, err
	}
	if m.CacheMaxAge == 0 {
		m.CacheMaxAge = DefaultCacheMaxAge
	}

	return m, nil
}

func parseDuration(key, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrapf(err, "invalid %s", key)
	}
	if d < 0 {
		return 0, errors.Errorf("%s must not be negative, got %s", key, s)
	}
	return d, nil
}

// toRaw converts the manifest into a representation suitable to write to the
// manifest file.
func (m *Manifest) toRaw() rawManifest {
	raw := rawManifest{
		Requires:    make([]string, len(m.Requires)),
		Environment: m.Environment,
		Solver: rawSolver{
			MaxRounds: m.MaxRounds,
		},
		Index: rawIndex{
			Path:  m.IndexPath,
			Cache: m.CachePath,
		},
	}
	for k, req := range m.Requires {
		raw.Requires[k] = req.String()
	}
	if m.Timeout > 0 {
		raw.Solver.Timeout = m.Timeout.String()
	}
	if m.CacheMaxAge > 0 && m.CacheMaxAge != DefaultCacheMaxAge {
		raw.Index.CacheMaxAge = m.CacheMaxAge.String()
	}
	return raw
}

// MarshalTOML serializes this manifest into TOML via an intermediate raw form.
func (m *Manifest) MarshalTOML() ([]byte, error) {
	raw := m.toRaw()
	result, err := toml.Marshal(raw)
	return result, errors.Wrap(err, "Unable to marshal the manifest to TOML")
}

// SolveParameters returns the solver inputs described by the manifest.
func (m *Manifest) SolveParameters() gps.SolveParameters {
	return gps.SolveParameters{
		RootRequirements: m.Requires,
		Environment:      m.Environment,
		MaxRounds:        m.MaxRounds,
		Timeout:          m.Timeout,
	}
}
