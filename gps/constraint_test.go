// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import "testing"

func mkC(body string) Constraint {
	c, err := ParseConstraint(body)
	if err != nil {
		panic(err)
	}
	return c
}

func TestConstraintMatches(t *testing.T) {
	table := []struct {
		c       string
		match   []string
		nomatch []string
	}{
		{
			c:     "*",
			match: []string{"0.0.1", "1.0", "2.0rc1"},
		},
		{
			c:       "==1.0",
			match:   []string{"1.0", "1.0.0", "1.0+local"},
			nomatch: []string{"1.0.1", "0.9"},
		},
		{
			c:       "!=1.5",
			match:   []string{"1.4", "1.6"},
			nomatch: []string{"1.5.0"},
		},
		{
			c:       ">=1.0,<2.0",
			match:   []string{"1.0", "1.9.9"},
			nomatch: []string{"0.9", "2.0", "2.0rc1"},
		},
		{
			c:       "<2.0rc2",
			match:   []string{"2.0rc1", "1.0"},
			nomatch: []string{"2.0rc2", "2.0"},
		},
		{
			c:       ">1.0",
			match:   []string{"1.0.1"},
			nomatch: []string{"1.0", "0.1"},
		},
		{
			c:       "<=1.0",
			match:   []string{"1.0", "0.5"},
			nomatch: []string{"1.0.1"},
		},
		{
			c:       "~=1.4.2",
			match:   []string{"1.4.2", "1.4.9"},
			nomatch: []string{"1.5.0", "1.4.1"},
		},
		{
			c:       "~=1.4",
			match:   []string{"1.4", "1.9"},
			nomatch: []string{"2.0", "1.3"},
		},
		{
			c:       "==1.4.*",
			match:   []string{"1.4", "1.4.7"},
			nomatch: []string{"1.5", "1.40"},
		},
		{
			c:       "!=1.4.*",
			match:   []string{"1.5", "1.3.9"},
			nomatch: []string{"1.4.0", "1.4.2"},
		},
		{
			c:       "===1.0.local",
			nomatch: []string{"1.0"},
		},
		{
			c:       "==1.0+ubuntu.1",
			match:   []string{"1.0+ubuntu.1"},
			nomatch: []string{"1.0", "1.0+ubuntu.2"},
		},
		{
			c:       ">1.7",
			match:   []string{"1.7.1", "1.8.post1"},
			nomatch: []string{"1.7.post2", "1.7+local", "1.7"},
		},
		{
			c:       ">1.7.post2",
			match:   []string{"1.7.post3", "1.8"},
			nomatch: []string{"1.7.post2", "1.7.post1"},
		},
		{
			c:       "<1.7",
			match:   []string{"1.6.9", "1.6.post1"},
			nomatch: []string{"1.7rc1", "1.7.dev0", "1.7"},
		},
		{
			c:       ">=2.0",
			match:   []string{"1!0.1", "2.0.0.1", "2023.10.1.1"},
			nomatch: []string{"1.9.9.9"},
		},
		{
			c:       "==2023.10.*",
			match:   []string{"2023.10.1.1", "2023.10"},
			nomatch: []string{"1!2023.10.1", "2023.11.0"},
		},
	}

	for _, fix := range table {
		c := mkC(fix.c)
		for _, v := range fix.match {
			if !c.Matches(mkV(v)) {
				t.Errorf("%s should match %s", c, v)
			}
		}
		for _, v := range fix.nomatch {
			if c.Matches(mkV(v)) {
				t.Errorf("%s should not match %s", c, v)
			}
		}
	}
}

func TestArbitraryEquality(t *testing.T) {
	c := mkC("===1.0")
	if !c.Matches(mkV("1.0")) {
		t.Error("=== should match the identical string")
	}
	if c.Matches(mkV("1.0.0")) {
		t.Error("=== should not match an equivalent but differently spelled version")
	}
	if !isExact(c) {
		t.Error("=== should count as an exact pin")
	}
}

func TestAnyNoneOps(t *testing.T) {
	c := mkC(">=1.0")

	if !IsAny(Any()) || IsAny(c) {
		t.Error("IsAny misidentified a constraint")
	}
	if !IsNone(None()) || IsNone(c) {
		t.Error("IsNone misidentified a constraint")
	}

	if Any().Intersect(c).String() != c.String() {
		t.Errorf("Intersecting with any should return the other constraint, got %s", Any().Intersect(c))
	}
	if c.Intersect(Any()).String() != c.String() {
		t.Errorf("Intersecting with any should return the other constraint, got %s", c.Intersect(Any()))
	}
	if !IsNone(c.Intersect(None())) || !IsNone(None().Intersect(c)) {
		t.Error("Intersecting with none should always yield none")
	}

	if !Any().Matches(Version{}) {
		t.Error("Any should match the zero version")
	}
	if c.Matches(Version{}) {
		t.Error("A specifier should never match the zero version")
	}
	if None().Matches(mkV("1.0")) {
		t.Error("None should match nothing")
	}
}

func TestIntersectionFlattensAndDedupes(t *testing.T) {
	a := mkC(">=1.0,<3.0")
	b := mkC("<3.0,!=2.0")

	i := a.Intersect(b)
	if i.String() != ">=1.0,<3.0,!=2.0" {
		t.Errorf("unexpected intersection string %q", i.String())
	}

	for v, want := range map[string]bool{
		"0.9": false,
		"1.0": true,
		"2.0": false,
		"2.5": true,
		"3.0": false,
	} {
		if got := i.Matches(mkV(v)); got != want {
			t.Errorf("%s matching %s: expected %v, got %v", i, v, want, got)
		}
	}

	// a specifier intersected with itself stays a single specifier
	s := mkC(">=1.0")
	if s.Intersect(s).String() != ">=1.0" {
		t.Errorf("self-intersection should not duplicate clauses, got %s", s.Intersect(s))
	}
}

func TestParseConstraintErrors(t *testing.T) {
	bad := []string{
		">=",
		"~=1",
		">=1.*",
		"==1.0rc1.*",
		">=1.0,,<2",
		"=>1.0",
	}
	for _, body := range bad {
		if _, err := ParseConstraint(body); err == nil {
			t.Errorf("expected an error parsing %q", body)
		}
	}
}

func TestNamesPrerelease(t *testing.T) {
	if mkC(">=1.0").namesPrerelease() {
		t.Error(">=1.0 doesn't name a pre-release")
	}
	if !mkC(">=1.0rc1").namesPrerelease() {
		t.Error(">=1.0rc1 names a pre-release")
	}
	if mkC("!=1.0rc1").namesPrerelease() {
		t.Error("excluding a pre-release should not opt in to pre-releases")
	}
	if !mkC(">=0.5,<1.0b1").namesPrerelease() {
		t.Error("any clause naming a pre-release should opt in")
	}
}

func TestExactly(t *testing.T) {
	c := Exactly(mkV("1.2"))
	if !c.Matches(mkV("1.2.0")) || c.Matches(mkV("1.2.1")) {
		t.Errorf("Exactly(1.2) matched wrongly")
	}
	if !isExact(c) {
		t.Error("Exactly should produce an exact pin")
	}
	if !IsNone(Exactly(Version{})) {
		t.Error("Exactly on the zero version should be none")
	}
}
