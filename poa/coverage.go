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
	"github.com/bits-and-blooms/bitset"
)

// sweepReads propagates read sets along the given order. A read enters
// the sweep at the first vertex in that order carrying a pointer for it.
func (g *Graph) sweepReads(order []int, neighbours func(*Vertex) []int) []*bitset.BitSet {
	numReads := uint(g.NumReads())
	seen := bitset.New(numReads)
	sets := make([]*bitset.BitSet, len(g.vertices))
	for _, index := range order {
		v := g.vertices[index]
		set := bitset.New(numReads)
		for _, p := range v.Reads {
			r := uint(p.Read)
			if !seen.Test(r) {
				seen.Set(r)
				set.Set(r)
			}
		}
		for _, n := range neighbours(v) {
			set.InPlaceUnion(sets[n])
		}
		sets[index] = set
	}
	return sets
}

// ComputeCoverage sets the Coverage of every vertex to the number of reads
// that genuinely pass through it: reads reaching the vertex from their
// first vertex and reaching their last vertex from it.
func (g *Graph) ComputeCoverage() {
	order := g.TopologicalOrder()
	forward := g.sweepReads(order, (*Vertex).In)
	reversed := make([]int, len(order))
	for i, index := range order {
		reversed[len(order)-1-i] = index
	}
	backward := g.sweepReads(reversed, (*Vertex).Out)
	for index, v := range g.vertices {
		v.Coverage = int(forward[index].IntersectionCardinality(backward[index]))
	}
}
