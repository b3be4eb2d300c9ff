// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import (
	"encoding/hex"
	"sort"

	"github.com/pkg/errors"
	"github.com/wheeldep/wheeldep/gps"
	"lukechampine.com/blake3"
)

// A Release is one published version of a project.
type Release struct {
	Version  gps.Version
	Requires []gps.Requirement
	// Extras maps a normalized extra name to the additional requirements
	// it brings in.
	Extras       map[string][]gps.Requirement
	Yanked       bool
	YankedReason string
}

// A Direct is an artifact of a project that can only be reached by direct
// reference: an archive URL, a VCS revision or a local path.
type Direct struct {
	Source gps.Source
	// Version is the version the artifact declares, if known.
	Version  gps.Version
	Requires []gps.Requirement
	Extras   map[string][]gps.Requirement
}

// A Project holds everything an Index knows about one package name.
//
// Projects handed out by an Index must be treated as read-only.
type Project struct {
	Name string
	// Releases are kept sorted newest first.
	Releases []Release
	// Direct holds direct-reference artifacts, by source fingerprint.
	Direct map[string]Direct
}

// Digest summarizes the release's metadata. It changes whenever the
// requirements, extras or yanked status change.
func (r Release) Digest() string {
	h := blake3.New(16, nil)
	writeMetadata(h, r.Requires, r.Extras)
	if r.Yanked {
		h.Write([]byte("yanked"))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Digest summarizes the artifact's metadata, as Release.Digest does.
func (d Direct) Digest() string {
	h := blake3.New(16, nil)
	h.Write([]byte(d.Version.String()))
	h.Write([]byte{0})
	writeMetadata(h, d.Requires, d.Extras)
	return hex.EncodeToString(h.Sum(nil))
}

func writeMetadata(h *blake3.Hasher, requires []gps.Requirement, extras map[string][]gps.Requirement) {
	h.Write([]byte("-REQS-"))
	for _, r := range requires {
		h.Write([]byte(r.String()))
		h.Write([]byte{0})
	}

	names := make([]string, 0, len(extras))
	for name := range extras {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		h.Write([]byte("-EXTRA-" + name))
		h.Write([]byte{0})
		for _, r := range extras[name] {
			h.Write([]byte(r.String()))
			h.Write([]byte{0})
		}
	}
}

func newProject(name string) *Project {
	return &Project{
		Name:   name,
		Direct: make(map[string]Direct),
	}
}

func (p *Project) addRelease(r Release) {
	// replace an existing release of the same version
	for k, have := range p.Releases {
		if have.Version.Equal(r.Version) {
			p.Releases[k] = r
			return
		}
	}
	p.Releases = append(p.Releases, r)
	sort.SliceStable(p.Releases, func(i, j int) bool {
		return p.Releases[j].Version.Less(p.Releases[i].Version)
	})
}

func (p *Project) addDirect(d Direct) {
	p.Direct[d.Source.Fingerprint()] = d
}

// Release returns the release with the given version.
func (p *Project) Release(v gps.Version) (Release, bool) {
	for _, r := range p.Releases {
		if r.Version.Equal(v) {
			return r, true
		}
	}
	return Release{}, false
}

// The raw types mirror the YAML layout of index files:
//
//	name: main
//	projects:
//	  requests:
//	    releases:
//	      - version: "2.31.0"
//	        requires: ["urllib3>=1.21.1,<3", "idna>=2.5,<4"]
//	        extras:
//	          socks: ["pysocks>=1.5.6,!=1.5.7"]
//	      - version: "2.30.0"
//	        yanked: true
//	        yanked_reason: "broken wheel"
//	    direct:
//	      - source: "git+https://github.com/psf/requests@main"
//	        version: "2.32.0.dev0"
//	        requires: ["urllib3"]
//
// A directory index holds one file per project, laid out like a single
// entry under "projects".

type rawIndex struct {
	Name     string                `yaml:"name"`
	Projects map[string]rawProject `yaml:"projects"`
}

type rawProject struct {
	Releases []rawRelease `yaml:"releases"`
	Direct   []rawDirect  `yaml:"direct,omitempty"`
}

type rawRelease struct {
	Version      string              `yaml:"version"`
	Requires     []string            `yaml:"requires,omitempty"`
	Extras       map[string][]string `yaml:"extras,omitempty"`
	Yanked       bool                `yaml:"yanked,omitempty"`
	YankedReason string              `yaml:"yanked_reason,omitempty"`
}

type rawDirect struct {
	Source   string              `yaml:"source"`
	Version  string              `yaml:"version,omitempty"`
	Requires []string            `yaml:"requires,omitempty"`
	Extras   map[string][]string `yaml:"extras,omitempty"`
}

func (rp rawProject) toProject(name string) (*Project, error) {
	p := newProject(name)

	for _, rr := range rp.Releases {
		v, err := gps.NewVersion(rr.Version)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: bad release version", name)
		}
		reqs, err := parseRequirements(rr.Requires)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s", name, rr.Version)
		}
		extras, err := parseExtras(rr.Extras)
		if err != nil {
			return nil, errors.Wrapf(err, "%s %s", name, rr.Version)
		}
		p.addRelease(Release{
			Version:      v,
			Requires:     reqs,
			Extras:       extras,
			Yanked:       rr.Yanked,
			YankedReason: rr.YankedReason,
		})
	}

	for _, rd := range rp.Direct {
		src, err := gps.ParseSource(rd.Source)
		if err != nil {
			return nil, errors.Wrapf(err, "%s: bad direct reference", name)
		}
		var v gps.Version
		if rd.Version != "" {
			if v, err = gps.NewVersion(rd.Version); err != nil {
				return nil, errors.Wrapf(err, "%s @ %s", name, rd.Source)
			}
		}
		reqs, err := parseRequirements(rd.Requires)
		if err != nil {
			return nil, errors.Wrapf(err, "%s @ %s", name, rd.Source)
		}
		extras, err := parseExtras(rd.Extras)
		if err != nil {
			return nil, errors.Wrapf(err, "%s @ %s", name, rd.Source)
		}
		p.addDirect(Direct{
			Source:   src,
			Version:  v,
			Requires: reqs,
			Extras:   extras,
		})
	}

	return p, nil
}

func parseRequirements(lines []string) ([]gps.Requirement, error) {
	if len(lines) == 0 {
		return nil, nil
	}
	reqs := make([]gps.Requirement, 0, len(lines))
	for _, line := range lines {
		r, err := gps.ParseRequirement(line)
		if err != nil {
			return nil, err
		}
		reqs = append(reqs, r)
	}
	return reqs, nil
}

func parseExtras(raw map[string][]string) (map[string][]gps.Requirement, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	extras := make(map[string][]gps.Requirement, len(raw))
	for name, lines := range raw {
		reqs, err := parseRequirements(lines)
		if err != nil {
			return nil, errors.Wrapf(err, "extra %q", name)
		}
		extras[gps.NormalizeName(name)] = append(extras[gps.NormalizeName(name)], reqs...)
	}
	return extras, nil
}
