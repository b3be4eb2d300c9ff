// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import "testing"

func TestMarkerEvaluate(t *testing.T) {
	env := Environment{
		"python_version":   "3.11",
		"sys_platform":     "linux",
		"os_name":          "posix",
		"platform_machine": "x86_64",
	}

	table := []struct {
		body string
		want bool
	}{
		{`python_version >= "3.8"`, true},
		{`python_version < "3.9"`, false},
		{`"3.10" <= python_version`, true},
		{`python_version == "3.11.*"`, true},
		{`sys_platform == "linux"`, true},
		{`sys_platform != 'linux'`, false},
		{`os_name == "nt" or sys_platform == "linux"`, true},
		{`os_name == "nt" and sys_platform == "linux"`, false},
		{`"linux" in sys_platform`, true},
		{`"win" not in sys_platform`, true},
		{`platform.machine == "x86_64"`, true},
		{`(os_name == "nt" or os_name == "posix") and python_version > "3"`, true},
		{`implementation_name == "cpython"`, false},
	}

	for _, fix := range table {
		m, err := ParseMarker(fix.body)
		if err != nil {
			t.Errorf("%q: unexpected error: %s", fix.body, err)
			continue
		}
		if got := m.Evaluate(env); got != fix.want {
			t.Errorf("%q: expected %v, got %v", fix.body, fix.want, got)
		}
	}
}

func TestMarkerString(t *testing.T) {
	table := map[string]string{
		`python_version>='3.8'`:               `python_version >= "3.8"`,
		`a == "1" and (b == "2" or c == "3")`: `a == "1" and (b == "2" or c == "3")`,
		`(a == "1")`:                          `a == "1"`,
		`"x" not in extra`:                    `"x" not in extra`,
	}

	for in, want := range table {
		m, err := ParseMarker(in)
		if err != nil {
			t.Errorf("%q: unexpected error: %s", in, err)
			continue
		}
		if m.String() != want {
			t.Errorf("%q: expected String() %q, got %q", in, want, m.String())
		}
	}
}

func TestParseMarkerErrors(t *testing.T) {
	bad := []string{
		``,
		`python_version >=`,
		`python_version = "3"`,
		`(os_name == "nt"`,
		`os_name == "nt")`,
		`os_name == "nt`,
		`os_name not "nt"`,
		`os_name == "nt" and`,
		`os_name == "nt" xor a == "b"`,
		`os_name == "nt" # comment`,
	}
	for _, body := range bad {
		if _, err := ParseMarker(body); err == nil {
			t.Errorf("expected an error parsing %q", body)
		}
	}
}
