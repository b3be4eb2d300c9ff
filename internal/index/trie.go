// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package index

import "github.com/armon/go-radix"

// Typed implementation of a radix tree. This is just a simple wrapper that
// lets us avoid having to type assert anywhere else.
//
// Walks come back in lexical key order, which is what gives Names and
// WithPrefix their stable output.

type projectTrie struct {
	t *radix.Tree
}

func newProjectTrie() projectTrie {
	return projectTrie{
		t: radix.New(),
	}
}

// Get is used to lookup a specific key, returning the value and if it was found
func (t projectTrie) Get(s string) (*entry, bool) {
	if v, has := t.t.Get(s); has {
		return v.(*entry), has
	}
	return nil, false
}

// Insert is used to add a newentry or update an existing entry. Returns if updated.
func (t projectTrie) Insert(s string, v *entry) (*entry, bool) {
	if v2, had := t.t.Insert(s, v); had {
		return v2.(*entry), had
	}
	return nil, false
}

// Len is used to return the number of elements in the tree
func (t projectTrie) Len() int {
	return t.t.Len()
}

// Keys returns every key in the tree, in lexical order.
func (t projectTrie) Keys() []string {
	keys := make([]string, 0, t.t.Len())
	t.t.Walk(func(s string, _ interface{}) bool {
		keys = append(keys, s)
		return false
	})
	return keys
}

// KeysWithPrefix returns every key that starts with prefix, in lexical order.
func (t projectTrie) KeysWithPrefix(prefix string) []string {
	var keys []string
	t.t.WalkPrefix(prefix, func(s string, _ interface{}) bool {
		keys = append(keys, s)
		return false
	})
	return keys
}
