// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/wheeldep/wheeldep"
)

var graphSolve bool

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Print the resolved dependency graph in graphviz format",
	Long: `Graph prints the dependency graph of the project in the DOT language, for
use with graphviz:

  wheeldep graph | dot -T png -o deps.png

The graph is read from wheeldep.lock when the lock is up to date, and solved
from scratch otherwise. Nothing is written.`,
	Args: cobra.NoArgs,
	RunE: runGraph,
}

func init() {
	graphCmd.Flags().BoolVar(&graphSolve, "solve", false, "solve even if the lock is up to date")
}

func runGraph(cmd *cobra.Command, args []string) error {
	ctx, err := newCtx(cmd)
	if err != nil {
		return err
	}

	p, err := ctx.LoadProject()
	if err != nil {
		return err
	}

	l := p.Lock
	soln, err := solveProject(cmd.Context(), ctx, p, !graphSolve, false)
	if err != nil {
		return err
	}
	if soln != nil {
		l = wheeldep.LockFromSolution(soln)
	}

	g := new(graphviz).New()
	g.addLock(filepath.Base(p.AbsRoot), p.Manifest, l)
	out := g.output()
	fmt.Fprintln(cmd.OutOrStdout(), out.String())
	return nil
}
