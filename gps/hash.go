// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package gps

import (
	"sort"

	"lukechampine.com/blake3"
)

// HashInputs computes a digest of all inputs to a Solve() run.
//
// The digest returned from this function is the same as the digest that
// would be included with a Solve() result. When stored alongside a lock, it
// can be compared against a fresh digest: if the digests match, the lock is
// in sync with its inputs and there's no need to Solve().
//
// Root requirements are hashed in order, as order affects the result.
func (s *solver) HashInputs() []byte {
	h := blake3.New(32, nil)

	h.Write([]byte("-REQS-"))
	for _, req := range s.params.RootRequirements {
		h.Write([]byte(req.String()))
		if req.Prereleases {
			h.Write([]byte("+pre"))
		}
		if req.Yanked {
			h.Write([]byte("+yanked"))
		}
		h.Write([]byte{0})
	}

	h.Write([]byte("-ENV-"))
	keys := make([]string, 0, len(s.params.Environment))
	for k := range s.params.Environment {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte{'='})
		h.Write([]byte(s.params.Environment[k]))
		h.Write([]byte{0})
	}

	return h.Sum(nil)
}
