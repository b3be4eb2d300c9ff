// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// mkID parses an identifier, panicking on bad test data.
func mkID(s string) Identifier {
	id, err := ParseIdentifier(s)
	if err != nil {
		panic(err)
	}
	return id
}

// mkV parses a version, panicking on bad test data.
func mkV(s string) Version {
	v, err := NewVersion(s)
	if err != nil {
		panic(fmt.Sprintf("Error when converting '%s' into a version: %s", s, err))
	}
	return v
}

// mkCandidate splits the input string on spaces, using the first two
// elements as the identifier and version, respectively.
//
// The remainder may contain, in order:
//
//	@ <target>  make this a direct reference instead of an indexed release
//	yanked      mark the indexed release as yanked
//
// A version of "-" yields the zero Version, which is only sensible for
// direct references.
func mkCandidate(info string) Candidate {
	s := strings.Fields(info)
	if len(s) < 2 {
		panic(fmt.Sprintf("Malformed name/version info string '%s'", info))
	}

	c := Candidate{ID: mkID(s[0])}
	if s[1] != "-" {
		c.Version = mkV(s[1])
	}

	src := IndexSource{}
	var direct Source
	for k := 2; k < len(s); k++ {
		switch s[k] {
		case "@":
			k++
			ds, err := ParseSource(s[k])
			if err != nil {
				panic(err)
			}
			direct = ds
		case "yanked":
			src.Yanked = true
		default:
			panic(fmt.Sprintf("unknown candidate flag %q in '%s'", s[k], info))
		}
	}

	if direct != nil {
		c.Source = direct
	} else {
		c.Source = src
	}
	return c
}

// depspec describes one candidate available from the fixture provider,
// along with its dependencies.
type depspec struct {
	c    Candidate
	deps []Requirement
	// extras maps an extra name to its additional requirements.
	extras map[string][]Requirement
	// fetchErr, if set, is returned from GetDependencies.
	fetchErr error
}

// mkDepspec creates a depspec by processing a series of strings. The first
// is the candidate; see mkCandidate. Each subsequent string is a
// requirement of that candidate. A requirement prefixed with "[x] " belongs
// to the candidate's extra x instead.
func mkDepspec(ci string, deps ...string) depspec {
	ds := depspec{
		c:      mkCandidate(ci),
		extras: make(map[string][]Requirement),
	}

	for _, dep := range deps {
		if strings.HasPrefix(dep, "[") {
			end := strings.IndexByte(dep, ']')
			extra := NormalizeName(dep[1:end])
			ds.extras[extra] = append(ds.extras[extra], MustParseRequirement(dep[end+1:]))
			continue
		}
		ds.deps = append(ds.deps, MustParseRequirement(dep))
	}

	return ds
}

// mkReqs parses a list of requirement strings.
func mkReqs(reqs ...string) []Requirement {
	out := make([]Requirement, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, MustParseRequirement(r))
	}
	return out
}

// basicFixtures are the core set of solver tests. Each fixture describes a
// universe of candidates, a set of root requirements, and the expected
// result.
type basicFixture struct {
	// name of this fixture datum
	n string
	// root requirements
	root []string
	// depspecs; the universe of available candidates
	ds []depspec
	// expected results, as candidate strings
	r []string
	// expected install order, if the fixture cares
	order []string
	// environment for marker evaluation
	env Environment
	// round budget; 0 means the default
	maxRounds int
	// solve failure expected, if any
	fail error
}

// mksolution makes a result set from candidate strings.
func mksolution(cands ...string) []string {
	return cands
}

// A table of basicFixtures, used in the basic solving test set.
var basicFixtures = map[string]basicFixture{
	"no dependencies": {
		root: nil,
		r:    mksolution(),
	},
	"single root, newest wins": {
		root: []string{"a"},
		ds: []depspec{
			mkDepspec("a 2.0.0"),
			mkDepspec("a 1.0.0"),
		},
		r: mksolution("a 2.0.0"),
	},
	"simple dependency tree": {
		root: []string{"a ==1.0.0", "b ==1.0.0"},
		ds: []depspec{
			mkDepspec("a 1.0.0", "aa ==1.0.0", "ab ==1.0.0"),
			mkDepspec("aa 1.0.0"),
			mkDepspec("ab 1.0.0"),
			mkDepspec("b 1.0.0", "ba ==1.0.0", "bb ==1.0.0"),
			mkDepspec("ba 1.0.0"),
			mkDepspec("bb 1.0.0"),
		},
		r: mksolution(
			"a 1.0.0",
			"aa 1.0.0",
			"ab 1.0.0",
			"b 1.0.0",
			"ba 1.0.0",
			"bb 1.0.0",
		),
		order: []string{"aa", "ab", "a", "ba", "bb", "b"},
	},
	"shared dependency with overlapping constraints": {
		root: []string{"a ==1.0.0", "b ==1.0.0"},
		ds: []depspec{
			mkDepspec("a 1.0.0", "shared >=2.0.0, <4.0.0"),
			mkDepspec("b 1.0.0", "shared >=3.0.0, <5.0.0"),
			mkDepspec("shared 2.0.0"),
			mkDepspec("shared 3.0.0"),
			mkDepspec("shared 3.6.9"),
			mkDepspec("shared 4.0.0"),
			mkDepspec("shared 5.0.0"),
		},
		r: mksolution(
			"a 1.0.0",
			"b 1.0.0",
			"shared 3.6.9",
		),
	},
	"shared dependency where dependent's version affects other dependencies": {
		root: []string{"foo <=1.0.2", "bar <=1.0.1"},
		ds: []depspec{
			mkDepspec("foo 1.0.0"),
			mkDepspec("foo 1.0.1", "bang ==1.0.0"),
			mkDepspec("foo 1.0.2", "whoop ==1.0.0"),
			mkDepspec("foo 1.0.3", "zoop ==1.0.0"),
			mkDepspec("bar 1.0.0", "foo <=1.0.1"),
			mkDepspec("bang 1.0.0"),
			mkDepspec("whoop 1.0.0"),
			mkDepspec("zoop 1.0.0"),
		},
		r: mksolution(
			"foo 1.0.1",
			"bar 1.0.0",
			"bang 1.0.0",
		),
	},
	"circular dependency": {
		root: []string{"foo ==1.0.0"},
		ds: []depspec{
			mkDepspec("foo 1.0.0", "bar ==1.0.0"),
			mkDepspec("bar 1.0.0", "foo ==1.0.0"),
		},
		r: mksolution(
			"foo 1.0.0",
			"bar 1.0.0",
		),
		order: []string{"foo", "bar"},
	},
	"root/transitive conflict": {
		root: []string{"a >=1.0", "b"},
		ds: []depspec{
			mkDepspec("a 1.0"),
			mkDepspec("a 0.5"),
			mkDepspec("b 1.0", "a <1.0"),
		},
		fail: &VersionConflictError{ID: mkID("b")},
	},
	"backtrack to older version": {
		root: []string{"a"},
		ds: []depspec{
			mkDepspec("a 2.0", "b ==1.0"),
			mkDepspec("a 1.0", "b <=2.0"),
			mkDepspec("b 2.0"),
		},
		r: mksolution(
			"a 1.0",
			"b 2.0",
		),
		order: []string{"b", "a"},
	},
	"extras are distinct identifiers": {
		root: []string{"a[extra1]"},
		ds: []depspec{
			mkDepspec("a 2.0", "b", "[extra1] c >=1.0"),
			mkDepspec("a 1.0"),
			mkDepspec("b 1.0"),
			mkDepspec("c 1.5"),
		},
		r: mksolution(
			"a 2.0",
			"a[extra1] 2.0",
			"b 1.0",
			"c 1.5",
		),
	},
	"extras pin their base": {
		root: []string{"a <2.0", "x"},
		ds: []depspec{
			mkDepspec("a 2.0", "[fast] speedup"),
			mkDepspec("a 1.0", "[fast] speedup"),
			mkDepspec("x 1.0", "a[fast]"),
			mkDepspec("speedup 1.0"),
		},
		r: mksolution(
			"a 1.0",
			"a[fast] 1.0",
			"x 1.0",
			"speedup 1.0",
		),
	},
	"no candidates at all": {
		root: []string{"a"},
		ds: []depspec{
			mkDepspec("b 1.0"),
		},
		fail: &NoCandidatesError{ID: mkID("a")},
	},
	"missing transitive dependency": {
		root: []string{"a"},
		ds: []depspec{
			mkDepspec("a 1.0", "nope"),
		},
		fail: &NoCandidatesError{ID: mkID("nope")},
	},
	"fetch failure skips candidate": {
		root: []string{"a"},
		ds: []depspec{
			{c: mkCandidate("a 2.0"), fetchErr: errors.New("metadata unavailable")},
			mkDepspec("a 1.0"),
		},
		r: mksolution("a 1.0"),
	},
	"fetch failure everywhere escalates": {
		root: []string{"a"},
		ds: []depspec{
			{c: mkCandidate("a 2.0"), fetchErr: errors.New("metadata unavailable")},
			{c: mkCandidate("a 1.0"), fetchErr: errors.New("metadata unavailable")},
		},
		fail: &NoCandidatesError{ID: mkID("a")},
	},
	"prereleases excluded by default": {
		root: []string{"a"},
		ds: []depspec{
			mkDepspec("a 2.0rc1"),
			mkDepspec("a 1.0"),
		},
		r: mksolution("a 1.0"),
	},
	"prereleases allowed when named": {
		root: []string{"a >=2.0rc1"},
		ds: []depspec{
			mkDepspec("a 2.0rc1"),
			mkDepspec("a 1.0"),
		},
		r: mksolution("a 2.0rc1"),
	},
	"yanked excluded unless pinned": {
		root: []string{"a", "b ==1.5"},
		ds: []depspec{
			mkDepspec("a 2.0 yanked"),
			mkDepspec("a 1.0"),
			mkDepspec("b 1.5 yanked"),
			mkDepspec("b 1.0"),
		},
		r: mksolution("a 1.0", "b 1.5"),
	},
	"direct reference preferred and matched by fingerprint": {
		root: []string{"a @ https://example.com/a-3.0.tar.gz", "b"},
		ds: []depspec{
			mkDepspec("a 3.0 @ https://example.com/a-3.0.tar.gz"),
			mkDepspec("a 4.0"),
			mkDepspec("b 1.0", "a >=2.0"),
		},
		r: mksolution("a 3.0 @ https://example.com/a-3.0.tar.gz", "b 1.0"),
	},
	"conflicting direct references": {
		root: []string{"a @ https://example.com/a-1.tar.gz", "b"},
		ds: []depspec{
			mkDepspec("a 1.0 @ https://example.com/a-1.tar.gz"),
			mkDepspec("a 2.0 @ https://example.com/a-2.tar.gz"),
			mkDepspec("b 1.0", "a @ https://example.com/a-2.tar.gz"),
		},
		fail: &VersionConflictError{ID: mkID("b")},
	},
	"markers filter requirements": {
		root: []string{`a`, `win ; sys_platform == "win32"`},
		env:  Environment{"sys_platform": "linux", "python_version": "3.11"},
		ds: []depspec{
			mkDepspec("a 1.0", `old ; python_version < "3.8"`, `new ; python_version >= "3.8"`),
			mkDepspec("new 1.0"),
		},
		r: mksolution("a 1.0", "new 1.0"),
	},
	"round limit": {
		root:      []string{"foo", "bar"},
		ds:        fooBarBaz(),
		maxRounds: 10,
		fail:      &RoundLimitError{Limit: 10},
	},
}

// fooBarBaz sets up a hundred versions of foo and bar, 0.0.0 through 9.9.0.
// Each version of foo depends on a baz with the same major version. Each
// version of bar depends on a baz with the same minor version. There is only
// one version of baz, 0.0.0, so only older versions of foo and bar will
// satisfy it.
func fooBarBaz() []depspec {
	ds := []depspec{mkDepspec("baz 0.0.0")}
	for i := 9; i >= 0; i-- {
		for j := 9; j >= 0; j-- {
			ds = append(ds, mkDepspec(fmt.Sprintf("foo %v.%v.0", i, j), fmt.Sprintf("baz ==%v.0.0", i)))
			ds = append(ds, mkDepspec(fmt.Sprintf("bar %v.%v.0", i, j), fmt.Sprintf("baz ==0.%v.0", j)))
		}
	}
	return ds
}

func init() {
	basicFixtures["complex backtrack"] = basicFixture{
		root: []string{"foo", "bar"},
		ds:   fooBarBaz(),
		r: mksolution(
			"foo 0.9.0",
			"bar 9.0.0",
			"baz 0.0.0",
		),
	}

	for k, fix := range basicFixtures {
		// Assign the name into the fixture itself
		fix.n = k
		basicFixtures[k] = fix
	}
}

// depspecProvider is a Provider backed by a fixed universe of depspecs.
//
// Candidates are offered newest first, direct references ahead of indexed
// releases. Extras are synthesized from the base package's depspecs: the
// candidate for a[x] at v depends on a==v (or on the same direct reference)
// plus the requirements listed for extra x.
type depspecProvider struct {
	specs []depspec

	// calls counts provider invocations, by method.
	calls map[string]int
}

var _ Provider = &depspecProvider{}

func newdepspecProvider(ds []depspec) *depspecProvider {
	return &depspecProvider{
		specs: ds,
		calls: make(map[string]int),
	}
}

func (p *depspecProvider) FindCandidates(ctx context.Context, req Requirement) ([]Candidate, error) {
	p.calls["FindCandidates"]++

	var direct, indexed []Candidate
	for _, ds := range p.specs {
		if ds.c.ID != req.ID.Base() {
			continue
		}

		c := ds.c
		if req.ID.IsExtra() {
			c = Candidate{ID: req.ID, Version: ds.c.Version, Source: ExtrasSource{Base: ds.c.Source}}
		}
		if IsDirect(c.Source) {
			direct = append(direct, c)
		} else {
			indexed = append(indexed, c)
		}
	}

	sortCandidatesForUpgrade(indexed)
	return append(direct, indexed...), nil
}

func sortCandidatesForUpgrade(cl []Candidate) {
	vl := make([]Version, len(cl))
	idx := make(map[string][]Candidate)
	for k, c := range cl {
		vl[k] = c.Version
		idx[c.Version.String()] = append(idx[c.Version.String()], c)
	}
	SortForUpgrade(vl)

	var k int
	for _, v := range vl {
		bucket := idx[v.String()]
		if len(bucket) == 0 {
			continue
		}
		cl[k], idx[v.String()] = bucket[0], bucket[1:]
		k++
	}
}

func (p *depspecProvider) IsSatisfiedBy(req Requirement, c Candidate) bool {
	return DefaultIsSatisfiedBy(req, c)
}

func (p *depspecProvider) GetDependencies(ctx context.Context, c Candidate) ([]Requirement, error) {
	p.calls["GetDependencies"]++

	base := c.ID.Base()
	for _, ds := range p.specs {
		if ds.c.ID != base || !ds.c.Version.Equal(c.Version) || fingerprint(ds.c.Source) != fingerprint(c.Source) {
			continue
		}
		if ds.fetchErr != nil {
			return nil, ds.fetchErr
		}
		if !c.ID.IsExtra() {
			return ds.deps, nil
		}

		req := Requirement{ID: base, Constraint: Exactly(c.Version)}
		if IsDirect(ds.c.Source) {
			req = Requirement{ID: base, Constraint: Any(), Ref: ds.c.Source}
		}
		reqs := []Requirement{req}
		for _, extra := range c.ID.Extras() {
			reqs = append(reqs, ds.extras[extra]...)
		}
		return reqs, nil
	}

	return nil, errors.Errorf("no such candidate %s", c)
}

func (p *depspecProvider) Identify(c Candidate) Identifier {
	return c.ID
}
