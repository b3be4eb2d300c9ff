// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"log"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/wheeldep/wheeldep"
	"github.com/wheeldep/wheeldep/gps"
	"github.com/wheeldep/wheeldep/internal/feedback"
)

var (
	resolveUpdate bool
	resolveDryRun bool
	resolveTrace  bool
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Resolve the project's requirements and write the lock",
	Long: `Resolve finds a set of package versions satisfying the requirements in
wheeldep.toml and writes them to wheeldep.lock, in install order.

If the lock was produced from the current requirements and environment, it is
left alone; pass --update to solve again anyway, for example to pick up new
releases in the index.`,
	Args: cobra.NoArgs,
	RunE: runResolve,
}

func init() {
	resolveCmd.Flags().BoolVar(&resolveUpdate, "update", false, "solve even if the lock is up to date")
	resolveCmd.Flags().BoolVarP(&resolveDryRun, "dry-run", "n", false, "only report the changes that would be made")
	resolveCmd.Flags().BoolVar(&resolveTrace, "trace", false, "print the solver's progress to stderr")
}

var errResolveFailed = errors.New("resolution failed")

// solveProject runs the solver over the project's requirements. A nil
// Solution and nil error mean the lock is current and skip was set.
func solveProject(ctx context.Context, wctx *wheeldep.Ctx, p *wheeldep.Project, skipCurrent, trace bool) (gps.Solution, error) {
	prov, release, err := wctx.Provider(ctx, p)
	if err != nil {
		return nil, err
	}
	defer release()

	params := p.MakeParams(wctx.Logger)
	if trace {
		params.Trace = true
		params.TraceLogger = wctx.Err
	}

	s, err := gps.Prepare(params, prov)
	if err != nil {
		return nil, errors.Wrap(err, "prepare solver")
	}

	if skipCurrent && p.Lock.IsCurrent(s.HashInputs()) {
		return nil, nil
	}

	var names []string
	for _, req := range params.RootRequirements {
		names = append(names, req.ID.Name)
	}
	if err := prov.Prefetch(ctx, names); err != nil {
		wctx.Logger.WithError(err).Debug("Prefetch failed, continuing")
	}

	soln, err := s.Solve(ctx)
	if err != nil {
		wctx.Err.Print(gps.FormatFailure(err))
		return nil, errResolveFailed
	}
	return soln, nil
}

func runResolve(cmd *cobra.Command, args []string) error {
	ctx, err := newCtx(cmd)
	if err != nil {
		return err
	}

	p, err := ctx.LoadProject()
	if err != nil {
		return err
	}

	soln, err := solveProject(cmd.Context(), ctx, p, !resolveUpdate, resolveTrace)
	if err != nil {
		return err
	}
	if soln == nil {
		if ctx.Verbose {
			ctx.Err.Printf("%s is up to date\n", wheeldep.LockName)
		}
		return nil
	}
	ctx.Logger.WithField("rounds", soln.Rounds()).Debug("Solved")

	newLock := wheeldep.LockFromSolution(soln)
	if ctx.Verbose {
		logFeedback(ctx.Err, p.Manifest, newLock)
	}

	var sw wheeldep.SafeWriter
	sw.Prepare(nil, p.Lock, newLock)

	if resolveDryRun {
		return sw.PrintPreparedActions(ctx.Out.Printf)
	}

	if err := sw.Write(p.AbsRoot); err != nil {
		return errors.Wrap(err, "resolve failed")
	}
	if sw.Payload.LockDiff != nil {
		ctx.Out.Print(sw.Payload.LockDiff.Format())
	} else if sw.Payload.HasLock() {
		ctx.Out.Printf("Locked %d packages\n", len(sw.Payload.Lock.P))
	}
	return nil
}

// logFeedback reports the constraints used for the root requirements and the
// version each package was locked to.
func logFeedback(logger *log.Logger, m *wheeldep.Manifest, l *wheeldep.Lock) {
	direct := make(map[gps.Identifier]bool, len(m.Requires))
	for _, req := range m.Requires {
		direct[req.ID] = true
		feedback.NewConstraintFeedback(req, feedback.DepTypeDirect).LogFeedback(logger)
	}
	for _, lp := range l.P {
		depType := feedback.DepTypeTransitive
		if direct[lp.Candidate.ID] {
			depType = feedback.DepTypeDirect
		}
		feedback.NewLockedPackageFeedback(lp.Candidate, depType).LogFeedback(logger)
	}
}
