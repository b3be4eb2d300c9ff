// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package feedback

import (
	"bytes"
	log2 "log"
	"strings"
	"testing"

	"github.com/wheeldep/wheeldep/gps"
)

func TestFeedback_Constraint(t *testing.T) {
	cases := []struct {
		feedback *ConstraintFeedback
		want     string
	}{
		{
			feedback: NewConstraintFeedback(gps.MustParseRequirement("requests>=2.28"), DepTypeDirect),
			want:     "Using >=2.28 as constraint for direct dep requests",
		},
		{
			feedback: NewConstraintFeedback(gps.MustParseRequirement("requests[socks]"), DepTypeDirect),
			want:     "Using * as constraint for direct dep requests[socks]",
		},
		{
			feedback: NewConstraintFeedback(gps.MustParseRequirement("mylib @ ./vendor/mylib"), DepTypeDirect),
			want:     "Using @ ./vendor/mylib as constraint for direct dep mylib",
		},
	}

	for _, c := range cases {
		buf := &bytes.Buffer{}
		log := log2.New(buf, "", 0)
		c.feedback.LogFeedback(log)
		got := strings.TrimSpace(buf.String())
		if c.want != got {
			t.Errorf("Feedbacks are not expected: \n\t(GOT) '%s'\n\t(WNT) '%s'", got, c.want)
		}
	}
}

func TestFeedback_LockedPackage(t *testing.T) {
	v, _ := gps.NewVersion("2.31.0")
	id := gps.NewIdentifier("requests", "")

	cases := []struct {
		feedback *ConstraintFeedback
		want     string
	}{
		{
			feedback: NewLockedPackageFeedback(gps.Candidate{ID: id, Version: v, Source: gps.IndexSource{Index: "pypi"}}, DepTypeDirect),
			want:     "Locking in 2.31.0 (index pypi) for direct dep requests",
		},
		{
			feedback: NewLockedPackageFeedback(gps.Candidate{ID: id, Version: v, Source: gps.IndexSource{Index: "pypi", Yanked: true}}, DepTypeTransitive),
			want:     "Locking in 2.31.0 (index pypi, yanked) for transitive dep requests",
		},
		{
			feedback: NewLockedPackageFeedback(gps.Candidate{
				ID:     gps.NewIdentifier("requests", "socks"),
				Source: gps.ExtrasSource{Base: gps.VCSSource{VCS: "git", Repo: "https://github.com/psf/requests", Rev: "main"}},
			}, DepTypeTransitive),
			want: "Locking in * (git+https://github.com/psf/requests@main) for transitive dep requests[socks]",
		},
		{
			feedback: NewLockedPackageFeedback(gps.Candidate{ID: id, Version: v}, DepTypeTransitive),
			want:     "Locking in 2.31.0 for transitive dep requests",
		},
	}

	for _, c := range cases {
		buf := &bytes.Buffer{}
		log := log2.New(buf, "", 0)
		c.feedback.LogFeedback(log)
		got := strings.TrimSpace(buf.String())
		if c.want != got {
			t.Errorf("Feedbacks are not expected: \n\t(GOT) '%s'\n\t(WNT) '%s'", got, c.want)
		}
	}
}
