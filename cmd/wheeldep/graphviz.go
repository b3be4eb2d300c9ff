// Copyright 2017 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"fmt"
	"hash/fnv"
	"strings"

	"github.com/wheeldep/wheeldep"
)

type graphviz struct {
	ps []*gvnode
	b  bytes.Buffer
	h  map[string]uint32
}

type gvnode struct {
	project  string
	version  string
	source   string
	children []string
}

func (g graphviz) New() *graphviz {
	ga := &graphviz{
		ps: []*gvnode{},
		h:  make(map[string]uint32),
	}
	return ga
}

func (g graphviz) output() bytes.Buffer {
	g.b.WriteString("digraph { node [shape=box]; ")

	for _, gvp := range g.ps {
		g.h[gvp.project] = gvp.hash()

		// Create node string
		g.b.WriteString(fmt.Sprintf("%d [label=\"%s\"];", gvp.hash(), gvp.label()))
	}

	// Store relations to avoid duplication
	rels := make(map[string]bool)

	// Create relations. Children that aren't nodes, like root requirements
	// whose markers excluded them, get no edge.
	for _, dp := range g.ps {
		for _, child := range dp.children {
			hsh, has := g.h[child]
			if !has {
				continue
			}
			r := fmt.Sprintf("%d -> %d", g.h[dp.project], hsh)
			if !rels[r] {
				g.b.WriteString(r + "; ")
				rels[r] = true
			}
		}
	}

	g.b.WriteString("}")

	return g.b
}

func (g *graphviz) createNode(p, v, src string, c []string) {
	pr := &gvnode{
		project:  p,
		version:  v,
		source:   src,
		children: c,
	}

	g.ps = append(g.ps, pr)
}

// addLock adds the project root, pointing at its requirements, and a node
// per locked package.
func (g *graphviz) addLock(root string, m *wheeldep.Manifest, l *wheeldep.Lock) {
	var rc []string
	for _, req := range m.Requires {
		rc = append(rc, req.ID.String())
	}
	g.createNode(root, "", "", rc)

	for _, lp := range l.P {
		var deps []string
		for _, d := range lp.Dependencies {
			deps = append(deps, d.String())
		}
		g.createNode(lp.Candidate.ID.String(), lp.Candidate.Version.String(), lp.DirectSource(), deps)
	}
}

func (dp gvnode) hash() uint32 {
	h := fnv.New32a()
	h.Write([]byte(dp.project))
	return h.Sum32()
}

func (dp gvnode) label() string {
	label := []string{dp.project}

	if dp.version != "" {
		label = append(label, dp.version)
	}
	if dp.source != "" {
		label = append(label, dp.source)
	}

	return strings.Join(label, "\n")
}
