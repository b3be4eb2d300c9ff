// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command wheeldep resolves the requirements of a project against a package
// index and records the result in a lock file.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/wheeldep/wheeldep"
)

// Version is the current wheeldep version.
var Version = "0.1.0"

var (
	verbose bool
	workDir string
)

var rootCmd = &cobra.Command{
	Use:   "wheeldep",
	Short: "wheeldep resolves package requirements into a lock file",
	Long: `wheeldep is a tool for resolving the dependencies of a project.

It reads root requirements from wheeldep.toml, finds a consistent set of
package versions in the configured index, and writes them to wheeldep.lock.`,
	Example: `  wheeldep init --index ./index requests flask
  wheeldep resolve
  wheeldep resolve --update --dry-run
  wheeldep graph | dot -T png -o deps.png`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&workDir, "dir", "C", "", "run as if started in this directory")

	rootCmd.AddCommand(initCmd, resolveCmd, graphCmd, hashCmd, searchCmd, versionCmd)
}

// newCtx sets up the wheeldep context for a command run, logging to the
// command's output streams.
func newCtx(cmd *cobra.Command) (*wheeldep.Ctx, error) {
	wd := workDir
	if wd == "" {
		var err error
		if wd, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %v", err)
		}
	}

	l := logrus.New()
	l.Out = cmd.ErrOrStderr()
	l.Formatter = &logrus.TextFormatter{DisableTimestamp: true}
	l.SetLevel(logrus.WarnLevel)
	if verbose {
		l.SetLevel(logrus.DebugLevel)
	}

	return &wheeldep.Ctx{
		WorkingDir: wd,
		Out:        log.New(cmd.OutOrStdout(), "", 0),
		Err:        log.New(cmd.ErrOrStderr(), "", 0),
		Logger:     l,
		Verbose:    verbose,
	}, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
