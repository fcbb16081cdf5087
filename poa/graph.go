// cafe: consensus and phasing of long sequencing reads.
// Copyright (c) 2020 imec vzw.

// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as
// published by the Free Software Foundation, either version 3 of the
// License, or (at your option) any later version, and Additional Terms
// (see below).

// This program is distributed in the hope that it will be useful, but
// WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Affero General Public License for more details.

// You should have received a copy of the GNU Affero General Public
// License and Additional Terms along with this program. If not, see
// <https://github.com/ExaScience/elprep/blob/master/LICENSE.txt>.

package poa

import (
	log "github.com/sirupsen/logrus"
)

// A ReadPointer records that position Pos of read Read threads through a
// vertex.
type ReadPointer struct {
	Read, Pos int
}

// A Vertex is one base in the partial order graph.
type Vertex struct {
	Base      byte
	Reads     []ReadPointer
	Coverage  int
	DoNotCall bool
	in, out   []int
}

// Support is the number of read pointers on the vertex.
func (v *Vertex) Support() int {
	return len(v.Reads)
}

// In returns the indices of the predecessors of the vertex.
func (v *Vertex) In() []int {
	return v.in
}

// Out returns the indices of the successors of the vertex.
func (v *Vertex) Out() []int {
	return v.out
}

// A Graph is a directed acyclic graph of bases. Vertices are stored in
// an index-addressed arena; edges are index pairs.
type Graph struct {
	vertices    []*Vertex
	readLengths []int
	version     int

	order        []int
	orderVersion int
}

// NewGraph returns an empty graph.
func NewGraph() *Graph {
	return &Graph{orderVersion: -1}
}

// NumReads is the number of reads added to the graph, including reads
// added as disconnected paths.
func (g *Graph) NumReads() int {
	return len(g.readLengths)
}

// ReadLengths returns the lengths of all added reads in order.
func (g *Graph) ReadLengths() []int {
	return g.readLengths
}

// NumVertices returns the number of vertices in the graph.
func (g *Graph) NumVertices() int {
	return len(g.vertices)
}

// Vertex returns the vertex at the given index.
func (g *Graph) Vertex(index int) *Vertex {
	return g.vertices[index]
}

func (g *Graph) addVertex(base byte, read, pos int) int {
	index := len(g.vertices)
	g.vertices = append(g.vertices, &Vertex{
		Base:  base,
		Reads: []ReadPointer{{Read: read, Pos: pos}},
	})
	g.version++
	return index
}

func (g *Graph) addEdge(from, to int) {
	src := g.vertices[from]
	for _, o := range src.out {
		if o == to {
			return
		}
	}
	src.out = append(src.out, to)
	dst := g.vertices[to]
	dst.in = append(dst.in, from)
	g.version++
}

func (g *Graph) addPath(seq string, read int, doNotCall bool) {
	prev := -1
	for i := 0; i < len(seq); i++ {
		v := g.addVertex(seq[i], read, i)
		g.vertices[v].DoNotCall = doNotCall
		if prev >= 0 {
			g.addEdge(prev, v)
		}
		prev = v
	}
	g.readLengths = append(g.readLengths, len(seq))
}

// AddFirstRead seeds an empty graph with a simple path. When doNotCall
// is set, the vertices can carry alignments but are never called in a
// consensus.
func (g *Graph) AddFirstRead(seq string, doNotCall bool) {
	if len(g.vertices) > 0 {
		log.Panic("AddFirstRead called on a non-empty graph")
	}
	g.addPath(seq, g.NumReads(), doNotCall)
}

// AddDisconnectedRead adds a read as a simple path that shares no
// vertices with the rest of the graph.
func (g *Graph) AddDisconnectedRead(seq string) {
	g.addPath(seq, g.NumReads(), false)
}

// AddRead aligns the read to the graph and splices it in. Reads that do
// not reach MinAcceptScore are added as disconnected paths instead.
// It returns whether the read was aligned into the graph.
func (g *Graph) AddRead(seq string) bool {
	if len(g.vertices) == 0 {
		g.AddFirstRead(seq, false)
		return true
	}
	p := g.Propose(seq)
	if p.Score < MinAcceptScore {
		p.Discard()
		g.AddDisconnectedRead(seq)
		return false
	}
	p.Commit()
	return true
}

// TopologicalOrder returns the vertex indices in a topological order.
// The result is cached until the graph changes and must not be
// modified.
func (g *Graph) TopologicalOrder() []int {
	if g.orderVersion == g.version {
		return g.order
	}
	n := len(g.vertices)
	indegree := make([]int, n)
	for i, v := range g.vertices {
		indegree[i] = len(v.in)
	}
	order := g.order[:0]
	for i, d := range indegree {
		if d == 0 {
			order = append(order, i)
		}
	}
	for head := 0; head < len(order); head++ {
		for _, w := range g.vertices[order[head]].out {
			indegree[w]--
			if indegree[w] == 0 {
				order = append(order, w)
			}
		}
	}
	if len(order) != n {
		log.Panic("cycle detected in partial order graph")
	}
	g.order, g.orderVersion = order, g.version
	return order
}

func (g *Graph) isSink(index int) bool {
	return len(g.vertices[index].out) == 0
}

// removeVertices deletes the marked vertices together with their edges
// and compacts the remaining indices.
func (g *Graph) removeVertices(remove []bool) int {
	newIndex := make([]int, len(g.vertices))
	kept := g.vertices[:0]
	for i, v := range g.vertices {
		if remove[i] {
			newIndex[i] = -1
			continue
		}
		newIndex[i] = len(kept)
		kept = append(kept, v)
	}
	removed := len(g.vertices) - len(kept)
	if removed == 0 {
		return 0
	}
	remap := func(edges []int) []int {
		result := edges[:0]
		for _, e := range edges {
			if n := newIndex[e]; n >= 0 {
				result = append(result, n)
			}
		}
		return result
	}
	for _, v := range kept {
		v.in = remap(v.in)
		v.out = remap(v.out)
	}
	for i := len(kept); i < len(g.vertices); i++ {
		g.vertices[i] = nil
	}
	g.vertices = kept
	g.version++
	return removed
}
