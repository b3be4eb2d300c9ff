// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var searchAll bool

var searchCmd = &cobra.Command{
	Use:   "search <prefix>",
	Short: "List the index's projects starting with a prefix",
	Long: `Search lists the projects in the project's index whose normalized name
starts with prefix, along with their newest release.`,
	Args: cobra.ExactArgs(1),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().BoolVarP(&searchAll, "all", "a", false, "list every release, not only the newest")
}

func runSearch(cmd *cobra.Command, args []string) error {
	ctx, err := newCtx(cmd)
	if err != nil {
		return err
	}

	p, err := ctx.LoadProject()
	if err != nil {
		return err
	}
	idx, err := ctx.Index(p)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	for _, name := range idx.WithPrefix(args[0]) {
		proj, err := idx.Project(name)
		if err != nil {
			return errors.Wrapf(err, "reading %s", name)
		}

		if len(proj.Releases) == 0 {
			fmt.Fprintf(w, "%s\t(direct only)\n", name)
			continue
		}
		for k, r := range proj.Releases {
			if k > 0 && !searchAll {
				break
			}
			fmt.Fprintf(w, "%s\t%s", name, r.Version)
			if r.Yanked {
				fmt.Fprint(w, "\tyanked")
				if r.YankedReason != "" {
					fmt.Fprintf(w, ": %s", r.YankedReason)
				}
			}
			fmt.Fprintln(w)
		}
	}
	return w.Flush()
}
