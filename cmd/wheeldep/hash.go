// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"encoding/hex"
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/wheeldep/wheeldep/gps"
	"github.com/wheeldep/wheeldep/internal/index"
)

var hashCmd = &cobra.Command{
	Use:     "hash-inputs",
	Aliases: []string{"hash"},
	Short:   "Print the digest of the solve inputs",
	Hidden:  true,
	Args:    cobra.NoArgs,
	RunE:    runHash,
}

func runHash(cmd *cobra.Command, args []string) error {
	ctx, err := newCtx(cmd)
	if err != nil {
		return err
	}

	p, err := ctx.LoadProject()
	if err != nil {
		return err
	}

	// The digest depends only on the manifest, so no index is needed.
	prov := index.NewProvider(cmd.Context(), index.New(""), index.ProviderOptions{Logger: ctx.Logger})
	defer prov.Close()

	s, err := gps.Prepare(p.MakeParams(ctx.Logger), prov)
	if err != nil {
		return errors.Wrap(err, "prepare solver")
	}

	fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(s.HashInputs()))
	return nil
}
