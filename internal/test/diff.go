// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package test

import (
	"github.com/d4l3k/messagediff"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff compares a and b. Strings are compared as text, and the diff
// highlights the changed runs; anything else is compared field by field.
func Diff(a, b interface{}) (diff string, ok bool) {
	as, aok := a.(string)
	bs, bok := b.(string)
	if aok && bok {
		dmp := diffmatchpatch.New()
		diff := dmp.DiffMain(as, bs, false)
		return dmp.DiffPrettyText(diff), as == bs
	}
	return messagediff.PrettyDiff(a, b)
}
