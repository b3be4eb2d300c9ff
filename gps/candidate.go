// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SourceKind enumerates the closed set of places a Candidate can come from.
type SourceKind uint8

const (
	// KindIndex is a release published to a package index.
	KindIndex SourceKind = iota
	// KindURL is a direct reference to an archive URL.
	KindURL
	// KindVCS is a direct reference to a revision in a version control repo.
	KindVCS
	// KindPath is a direct reference to a local path.
	KindPath
	// KindExtras is an overlay that exposes the extras of a base candidate.
	KindExtras
)

func (k SourceKind) String() string {
	switch k {
	case KindIndex:
		return "index"
	case KindURL:
		return "url"
	case KindVCS:
		return "vcs"
	case KindPath:
		return "path"
	case KindExtras:
		return "extras"
	}
	panic(fmt.Sprintf("canary - unknown source kind %d", k))
}

// A Source describes where a Candidate's artifacts come from. The set of
// implementations is closed: IndexSource, URLSource, VCSSource, PathSource
// and ExtrasSource.
type Source interface {
	fmt.Stringer
	Kind() SourceKind
	// Fingerprint identifies a direct reference. Two direct references with
	// the same fingerprint are the same artifact. Indexed releases have an
	// empty fingerprint; their version is their identity.
	Fingerprint() string
	_source()
}

func (IndexSource) _source()  {}
func (URLSource) _source()    {}
func (VCSSource) _source()    {}
func (PathSource) _source()   {}
func (ExtrasSource) _source() {}

// IndexSource is a release published to a package index.
type IndexSource struct {
	// Index names the index the release was found in.
	Index string
	// Yanked is set if the release was withdrawn by its publisher.
	Yanked bool
	// YankedReason is the publisher's explanation, if any.
	YankedReason string
}

func (s IndexSource) Kind() SourceKind    { return KindIndex }
func (s IndexSource) Fingerprint() string { return "" }
func (s IndexSource) String() string {
	if s.Index == "" {
		return "index"
	}
	return "index " + s.Index
}

// URLSource is a direct reference to an archive.
type URLSource struct {
	URL string
	// Hash is an optional "algo=hexdigest" content hash from the URL fragment.
	Hash string
}

func (s URLSource) Kind() SourceKind { return KindURL }
func (s URLSource) Fingerprint() string {
	if s.Hash != "" {
		return "url:" + s.URL + "#" + s.Hash
	}
	return "url:" + s.URL
}
func (s URLSource) String() string {
	if s.Hash != "" {
		return s.URL + "#" + s.Hash
	}
	return s.URL
}

// VCSSource is a direct reference to a revision of a version control repo.
type VCSSource struct {
	// VCS is the version control system, e.g. "git" or "hg".
	VCS  string
	Repo string
	// Rev is a branch, tag or commit. Empty means the default branch.
	Rev string
}

func (s VCSSource) Kind() SourceKind { return KindVCS }
func (s VCSSource) Fingerprint() string {
	return "vcs:" + s.String()
}
func (s VCSSource) String() string {
	str := s.VCS + "+" + s.Repo
	if s.Rev != "" {
		str += "@" + s.Rev
	}
	return str
}

// PathSource is a direct reference to a local file or directory.
type PathSource struct {
	Path string
}

func (s PathSource) Kind() SourceKind    { return KindPath }
func (s PathSource) Fingerprint() string { return "path:" + filepath.Clean(s.Path) }
func (s PathSource) String() string      { return s.Path }

// ExtrasSource wraps the Source of a base candidate for an extras
// identifier. It shares the base's fingerprint, so "a[x] @ url" and
// "a @ url" refer to the same artifact.
type ExtrasSource struct {
	Base Source
}

func (s ExtrasSource) Kind() SourceKind { return KindExtras }
func (s ExtrasSource) Fingerprint() string {
	if s.Base == nil {
		return ""
	}
	return s.Base.Fingerprint()
}
func (s ExtrasSource) String() string {
	if s.Base == nil {
		return "extras"
	}
	return "extras of " + s.Base.String()
}

// IsDirect reports whether the source is a direct reference rather than an
// indexed release.
func IsDirect(s Source) bool {
	if s == nil {
		return false
	}
	switch s.Kind() {
	case KindIndex:
		return false
	case KindURL, KindVCS, KindPath:
		return true
	case KindExtras:
		return IsDirect(s.(ExtrasSource).Base)
	}
	panic(fmt.Sprintf("canary - unknown source kind %d", s.Kind()))
}

// IsYanked reports whether the source is a yanked indexed release.
func IsYanked(s Source) bool {
	if s == nil {
		return false
	}
	switch s.Kind() {
	case KindIndex:
		return s.(IndexSource).Yanked
	case KindURL, KindVCS, KindPath:
		return false
	case KindExtras:
		return IsYanked(s.(ExtrasSource).Base)
	}
	panic(fmt.Sprintf("canary - unknown source kind %d", s.Kind()))
}

var vcsSchemes = []string{"git", "hg", "svn", "bzr"}

// ParseSource parses the target of a direct reference ("name @ target").
// "git+https://host/repo@rev" style targets become a VCSSource, file: URLs
// and bare paths become a PathSource, and everything else a URLSource.
func ParseSource(target string) (Source, error) {
	target = strings.TrimSpace(target)
	if target == "" {
		return nil, errors.New("empty direct reference")
	}

	for _, vcs := range vcsSchemes {
		if !strings.HasPrefix(target, vcs+"+") {
			continue
		}
		repo := strings.TrimPrefix(target, vcs+"+")
		if i := strings.IndexByte(repo, '#'); i >= 0 {
			repo = repo[:i]
		}
		var rev string
		// the revision follows the last '@' after the host part
		if i := strings.LastIndexByte(repo, '@'); i > strings.Index(repo, "://")+2 && i > strings.LastIndexByte(repo, '/') {
			repo, rev = repo[:i], repo[i+1:]
		}
		if _, err := url.Parse(repo); err != nil {
			return nil, errors.Wrapf(err, "invalid %s reference %q", vcs, target)
		}
		return VCSSource{VCS: vcs, Repo: repo, Rev: rev}, nil
	}

	if strings.HasPrefix(target, "file:") {
		u, err := url.Parse(target)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid file reference %q", target)
		}
		return PathSource{Path: u.Path}, nil
	}
	if strings.HasPrefix(target, "/") || strings.HasPrefix(target, "./") || strings.HasPrefix(target, "../") {
		return PathSource{Path: target}, nil
	}

	u, err := url.Parse(target)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("invalid direct reference %q", target)
	}
	var hash string
	if u.Fragment != "" {
		hash = u.Fragment
		u.Fragment = ""
	}
	return URLSource{URL: u.String(), Hash: hash}, nil
}

// A Candidate is one concrete, installable version or direct reference for
// an Identifier.
//
// Candidates are immutable values. Two candidates are the same iff their
// identifier, version and source fingerprint match; use Key or Equal rather
// than ==, as Source implementations need not be comparable.
type Candidate struct {
	ID      Identifier
	Version Version
	Source  Source
}

// Key returns a string that uniquely identifies the candidate. Candidates
// that are Equal have the same Key.
func (c Candidate) Key() string {
	return c.ID.String() + "|" + c.Version.canonical() + "|" + fingerprint(c.Source)
}

// Equal reports whether c and o are the same candidate.
func (c Candidate) Equal(o Candidate) bool {
	return c.ID == o.ID && c.Version.Equal(o.Version) && fingerprint(c.Source) == fingerprint(o.Source)
}

func fingerprint(s Source) string {
	if s == nil {
		return ""
	}
	return s.Fingerprint()
}

func (c Candidate) String() string {
	if IsDirect(c.Source) {
		if c.Version.IsZero() {
			return fmt.Sprintf("%s @ %s", c.ID, directSource(c.Source))
		}
		return fmt.Sprintf("%s %s @ %s", c.ID, c.Version, directSource(c.Source))
	}
	return fmt.Sprintf("%s %s", c.ID, c.Version)
}

func directSource(s Source) Source {
	if es, ok := s.(ExtrasSource); ok {
		return directSource(es.Base)
	}
	return s
}
