// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import "testing"

func TestParseRequirement(t *testing.T) {
	table := []struct {
		in     string
		id     string
		cons   string
		str    string
		ref    bool
		marker bool
	}{
		{in: "a", id: "a", cons: "*", str: "a"},
		{in: "A_b >= 1.0", id: "a-b", cons: ">=1.0", str: "a-b>=1.0"},
		{in: "a[x,y]>=1.0,<2", id: "a[x,y]", cons: ">=1.0,<2", str: "a[x,y]>=1.0,<2"},
		{in: "a (>=1.0)", id: "a", cons: ">=1.0", str: "a>=1.0"},
		{in: "a==1.0.*", id: "a", cons: "==1.0.*", str: "a==1.0.*"},
		{
			in:     `a>=1.0; python_version >= "3.8"`,
			id:     "a",
			cons:   ">=1.0",
			str:    `a>=1.0; python_version >= "3.8"`,
			marker: true,
		},
		{
			in:   "a @ https://example.com/a.tar.gz",
			id:   "a",
			cons: "@ https://example.com/a.tar.gz",
			str:  "a @ https://example.com/a.tar.gz",
			ref:  true,
		},
		{
			in:     `a @ https://example.com/a.tar.gz?x=1;y=2 ; os_name == "posix"`,
			id:     "a",
			cons:   "@ https://example.com/a.tar.gz?x=1;y=2",
			str:    `a @ https://example.com/a.tar.gz?x=1;y=2 ; os_name == "posix"`,
			ref:    true,
			marker: true,
		},
	}

	for _, fix := range table {
		r, err := ParseRequirement(fix.in)
		if err != nil {
			t.Errorf("%q: unexpected error: %s", fix.in, err)
			continue
		}
		if r.ID != mkID(fix.id) {
			t.Errorf("%q: expected id %s, got %s", fix.in, fix.id, r.ID)
		}
		if r.ConstraintString() != fix.cons {
			t.Errorf("%q: expected constraint %q, got %q", fix.in, fix.cons, r.ConstraintString())
		}
		if r.String() != fix.str {
			t.Errorf("%q: expected String() %q, got %q", fix.in, fix.str, r.String())
		}
		if (r.Ref != nil) != fix.ref {
			t.Errorf("%q: expected direct reference %v", fix.in, fix.ref)
		}
		if (r.Marker != nil) != fix.marker {
			t.Errorf("%q: expected marker %v", fix.in, fix.marker)
		}

		// String() output must parse back to an equivalent requirement
		again, err := ParseRequirement(r.String())
		if err != nil {
			t.Errorf("%q: String() output %q did not parse back: %s", fix.in, r.String(), err)
		} else if again.String() != r.String() {
			t.Errorf("%q: round trip changed %q to %q", fix.in, r.String(), again.String())
		}
	}

	for _, bad := range []string{"", ">=1.0", "a >=", "a @", "a[x", "a>=1.0; python_version >="} {
		if _, err := ParseRequirement(bad); err == nil {
			t.Errorf("expected an error parsing %q", bad)
		}
	}
}

func TestRequirementAppliesTo(t *testing.T) {
	r := MustParseRequirement(`a; sys_platform == "win32"`)

	if !r.AppliesTo(nil) {
		t.Error("a nil environment should apply every requirement")
	}
	if r.AppliesTo(Environment{"sys_platform": "linux"}) {
		t.Error("marker should exclude linux")
	}
	if !r.AppliesTo(Environment{"sys_platform": "win32"}) {
		t.Error("marker should include win32")
	}
	if !MustParseRequirement("a").AppliesTo(Environment{}) {
		t.Error("a requirement without a marker always applies")
	}
}

func TestMergeRequirements(t *testing.T) {
	id := mkID("a")

	m := mergeRequirements(id, mkReqs("a>=1.0", "a<2.0", "a!=1.5"))
	if m.ConstraintString() != ">=1.0,<2.0,!=1.5" {
		t.Errorf("unexpected merged constraint %q", m.ConstraintString())
	}
	if m.Prereleases || m.Yanked {
		t.Error("flags should stay off unless some requirement sets them")
	}

	pre := MustParseRequirement("a")
	pre.Prereleases = true
	m = mergeRequirements(id, []Requirement{MustParseRequirement("a>=1.0"), pre})
	if !m.Prereleases {
		t.Error("opt-in flags should be OR'd")
	}

	m = mergeRequirements(id, mkReqs("a @ https://example.com/a.tar.gz", "a @ https://example.com/a.tar.gz"))
	if m.Ref == nil || IsNone(m.constraint()) {
		t.Error("identical direct references should merge cleanly")
	}

	m = mergeRequirements(id, mkReqs("a @ https://example.com/a.tar.gz", "a @ https://example.com/other.tar.gz"))
	if !IsNone(m.constraint()) {
		t.Errorf("conflicting direct references should merge to none, got %s", m.constraint())
	}

	m = mergeRequirements(id, nil)
	if !IsAny(m.constraint()) {
		t.Errorf("merging nothing should yield any, got %s", m.constraint())
	}
}
