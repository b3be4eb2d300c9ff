// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/wheeldep/wheeldep"
	"github.com/wheeldep/wheeldep/internal/test"
)

// execute runs the wheeldep command line in dir, resetting flag state left
// over from earlier runs.
func execute(dir string, args ...string) (stdout, stderr string, err error) {
	verbose, workDir = false, ""
	initIndex, initCache = "index", ""
	resolveUpdate, resolveDryRun, resolveTrace = false, false, false
	graphSolve, searchAll = false, false

	var out, errb bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errb)
	rootCmd.SetArgs(append(args, "--dir", dir))
	err = rootCmd.Execute()
	return out.String(), errb.String(), err
}

func TestRootCommand(t *testing.T) {
	if rootCmd.Use != "wheeldep" {
		t.Errorf("expected Use 'wheeldep', got %q", rootCmd.Use)
	}
	for _, name := range []string{"init", "resolve", "graph", "hash-inputs", "search", "version"} {
		cmd, _, err := rootCmd.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Errorf("expected a %s subcommand, got %v", name, err)
		}
		if cmd.RunE == nil && cmd.Run == nil {
			t.Errorf("%s should be runnable", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	out, _, err := execute(".", "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "wheeldep "+Version+" ") {
		t.Errorf("unexpected version output %q", out)
	}
}

func setupIndex(h *test.Helper) {
	h.TempFile("proj/index/requests.yaml", `
releases:
  - version: "2.31.0"
    requires: ["urllib3>=1.21.1,<3", "idna>=2.5,<4"]
  - version: "2.30.0"
    yanked: true
    yanked_reason: broken wheel
`)
	h.TempFile("proj/index/urllib3.yaml", `
releases:
  - version: "2.0.7"
`)
	h.TempFile("proj/index/idna.yaml", `
releases:
  - version: "3.6"
`)
}

func TestWorkflow(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	setupIndex(h)
	root := h.Path("proj")
	lockPath := filepath.Join(root, wheeldep.LockName)

	if _, _, err := execute(root, "init", "--cache", ".cache/meta.db", "requests"); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	h.MustExist(filepath.Join(root, wheeldep.ManifestName))
	if _, _, err := execute(root, "init"); err == nil {
		t.Error("expected init to refuse to overwrite the manifest")
	}

	out, _, err := execute(root, "resolve", "--dry-run")
	if err != nil {
		t.Fatalf("dry run failed: %+v", err)
	}
	if !strings.Contains(out, "Would have written the following wheeldep.lock:") {
		t.Errorf("unexpected dry run output:\n%s", out)
	}
	h.MustNotExist(lockPath)

	out, _, err = execute(root, "resolve")
	if err != nil {
		t.Fatalf("resolve failed: %+v", err)
	}
	if out != "Locked 3 packages\n" {
		t.Errorf("unexpected resolve output %q", out)
	}
	h.MustExist(lockPath)
	h.MustExist(filepath.Join(root, ".cache", "meta.db"))

	_, errOut, err := execute(root, "resolve", "-v")
	if err != nil {
		t.Fatalf("resolve failed: %+v", err)
	}
	if !strings.Contains(errOut, "wheeldep.lock is up to date") {
		t.Errorf("expected the lock to be up to date, got:\n%s", errOut)
	}

	// a new release is only picked up when asked for
	h.TempFile("proj/index/urllib3.yaml", `
releases:
  - version: "2.0.7"
  - version: "2.1.0"
`)
	if out, _, err = execute(root, "resolve"); err != nil || out != "" {
		t.Errorf("expected a no-op resolve, got %q, %v", out, err)
	}
	out, _, err = execute(root, "resolve", "--update")
	if err != nil {
		t.Fatalf("resolve --update failed: %+v", err)
	}
	if want := "Modify: urllib3 version(2.0.7 -> 2.1.0)\n"; out != want {
		t.Errorf("unexpected update output:\n\t(GOT): %q\n\t(WNT): %q", out, want)
	}

	_, errOut, err = execute(root, "resolve", "--update", "--dry-run", "-v")
	if err != nil {
		t.Fatalf("resolve --update --dry-run failed: %+v", err)
	}
	for _, want := range []string{
		"Using * as constraint for direct dep requests",
		"Locking in 2.31.0 (index index) for direct dep requests",
		"Locking in 2.1.0 (index index) for transitive dep urllib3",
	} {
		if !strings.Contains(errOut, want) {
			t.Errorf("expected feedback %q, got:\n%s", want, errOut)
		}
	}

	out, _, err = execute(root, "hash-inputs")
	if err != nil {
		t.Fatalf("hash-inputs failed: %+v", err)
	}
	digest := strings.TrimSpace(out)
	if len(digest) == 0 || !strings.Contains(h.ReadFile("proj/"+wheeldep.LockName), `inputs-digest = "`+digest+`"`) {
		t.Errorf("digest %q doesn't match the lock:\n%s", digest, h.ReadFile("proj/"+wheeldep.LockName))
	}

	out, _, err = execute(root, "graph")
	if err != nil {
		t.Fatalf("graph failed: %+v", err)
	}
	if !strings.HasPrefix(out, "digraph { node [shape=box]; ") || !strings.Contains(out, "urllib3\n2.1.0") {
		t.Errorf("unexpected graph output:\n%s", out)
	}

	out, _, err = execute(root, "search", "Req", "--all")
	if err != nil {
		t.Fatalf("search failed: %+v", err)
	}
	if want := "requests  2.31.0\nrequests  2.30.0  yanked: broken wheel\n"; out != want {
		t.Errorf("unexpected search output:\n\t(GOT): %q\n\t(WNT): %q", out, want)
	}
}

func TestResolveFailure(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	setupIndex(h)
	root := h.Path("proj")

	if _, _, err := execute(root, "init", "requests", "idna>=9"); err != nil {
		t.Fatalf("init failed: %+v", err)
	}
	_, errOut, err := execute(root, "resolve")
	if err != errResolveFailed {
		t.Fatalf("expected resolution to fail, got %v", err)
	}
	if !strings.Contains(errOut, "idna") {
		t.Errorf("expected the failure to name idna, got:\n%s", errOut)
	}
	h.MustNotExist(filepath.Join(root, wheeldep.LockName))
}

func TestCommandsNeedProject(t *testing.T) {
	h := test.NewHelper(t)
	defer h.Cleanup()

	h.TempDir("empty")
	for _, name := range []string{"resolve", "graph", "hash-inputs"} {
		if _, _, err := execute(h.Path("empty"), name); err == nil {
			t.Errorf("expected %s to fail outside a project", name)
		}
	}
}
