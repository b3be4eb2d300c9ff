// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package wheeldep

import (
	"bytes"
	"context"
	"log"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/wheeldep/wheeldep/gps"
	"github.com/wheeldep/wheeldep/internal/test"
)

const contextTestManifest = `
requires = ["requests"]

[index]
path = "index"
cache = ".wheeldep/cache.db"
`

const contextTestLock = `
[solve-meta]
  inputs-digest = "abcd"
  rounds = 2

[[package]]
  name = "requests"
  version = "2.31.0"
  index = "index"
`

func newTestCtx(wd string) (*Ctx, *bytes.Buffer) {
	var buf bytes.Buffer
	l := logrus.New()
	l.Out = &buf
	l.Formatter = &logrus.TextFormatter{DisableTimestamp: true, DisableColors: true}
	return &Ctx{
		WorkingDir: wd,
		Out:        log.New(&buf, "", 0),
		Err:        log.New(&buf, "", 0),
		Logger:     l,
	}, &buf
}

func TestLoadProject(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	h.TempFile("proj/"+ManifestName, contextTestManifest)
	h.TempFile("proj/"+LockName, contextTestLock)
	h.TempDir("proj/src/deep")

	for _, wd := range []string{"proj", "proj/src/deep"} {
		t.Run(wd, func(t *testing.T) {
			ctx, _ := newTestCtx(h.Path(wd))
			p, err := ctx.LoadProject()
			if err != nil {
				t.Fatalf("%+v", err)
			}

			if p.AbsRoot != h.Path("proj") {
				t.Errorf("expected project root %s, got %s", h.Path("proj"), p.AbsRoot)
			}
			if p.Manifest == nil || len(p.Manifest.Requires) != 1 {
				t.Fatalf("expected a manifest with one requirement, got %+v", p.Manifest)
			}
			if p.Lock == nil {
				t.Fatal("expected the lock to be loaded")
			}
			if _, has := p.Lock.Get(gps.NewIdentifier("requests", "")); !has {
				t.Error("expected requests in the loaded lock")
			}

			params := p.MakeParams(ctx.Logger)
			if params.Logger != ctx.Logger || len(params.RootRequirements) != 1 {
				t.Errorf("unexpected solve parameters: %+v", params)
			}
		})
	}
}

func TestLoadProjectWithoutLock(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	h.TempFile("proj/"+ManifestName, contextTestManifest+"\nfuture = true\n")
	ctx, buf := newTestCtx(h.Path("proj"))

	p, err := ctx.LoadProject()
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if p.Lock != nil {
		t.Errorf("did not expect a lock, got %+v", p.Lock)
	}
	if !strings.Contains(buf.String(), "unknown field in manifest: future") {
		t.Errorf("expected a warning about the unknown field, got:\n%s", buf.String())
	}
}

func TestLoadProjectErrors(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	h.TempDir("empty")
	h.TempFile("badmanifest/"+ManifestName, "requires = [")
	h.TempFile("badlock/"+ManifestName, contextTestManifest)
	h.TempFile("badlock/"+LockName, "[[package]]\nname = \"a\"\n")

	ctx, _ := newTestCtx(h.Path("empty"))
	if _, err := ctx.LoadProject(); errors.Cause(err) != errProjectNotFound {
		t.Errorf("expected errProjectNotFound, got %v", err)
	}

	for _, dir := range []string{"badmanifest", "badlock"} {
		ctx, _ := newTestCtx(h.Path(dir))
		if _, err := ctx.LoadProject(); err == nil {
			t.Errorf("expected an error loading %s", dir)
		}
	}
}

func TestCtxIndex(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	h.TempFile("proj/index/requests.yaml", "releases:\n  - version: \"2.31.0\"\n")
	h.TempFile("proj/pypi.yaml", "projects:\n  idna:\n    releases:\n      - version: \"3.6\"\n")
	ctx, _ := newTestCtx(h.Path("proj"))

	p := &Project{AbsRoot: h.Path("proj"), Manifest: &Manifest{IndexPath: "index"}}
	idx, err := ctx.Index(p)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if idx.Name() != "index" || len(idx.Names()) != 1 {
		t.Errorf("unexpected directory index %s: %v", idx.Name(), idx.Names())
	}

	p.Manifest.IndexPath = filepath.Join(h.Path("proj"), "pypi.yaml")
	idx, err = ctx.Index(p)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	if idx.Name() != "pypi" || len(idx.Names()) != 1 {
		t.Errorf("unexpected file index %s: %v", idx.Name(), idx.Names())
	}

	p.Manifest.IndexPath = ""
	if _, err := ctx.Index(p); err != errNoIndex {
		t.Errorf("expected errNoIndex, got %v", err)
	}
	p.Manifest.IndexPath = "missing"
	if _, err := ctx.Index(p); err == nil {
		t.Error("expected an error for a missing index")
	}
}

func TestCtxProvider(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	h.TempFile("proj/"+ManifestName, contextTestManifest)
	h.TempFile("proj/index/requests.yaml", `
releases:
  - version: "2.31.0"
    requires: ["idna"]
`)
	h.TempFile("proj/index/idna.yaml", "releases:\n  - version: \"3.6\"\n")

	ctx, _ := newTestCtx(h.Path("proj"))
	p, err := ctx.LoadProject()
	h.Must(err)

	for i := 0; i < 2; i++ {
		prov, release, err := ctx.Provider(context.Background(), p)
		if err != nil {
			t.Fatalf("%+v", err)
		}

		s, err := gps.Prepare(p.MakeParams(ctx.Logger), prov)
		h.Must(err)
		soln, err := s.Solve(context.Background())
		if err != nil {
			release()
			t.Fatalf("solve %d failed: %s", i, gps.FormatFailure(err))
		}
		release()

		if len(soln.Candidates()) != 2 {
			t.Errorf("solve %d: expected two candidates, got %v", i, soln.Candidates())
		}
	}
	h.MustExist(h.Path("proj/.wheeldep/cache.db"))
}
