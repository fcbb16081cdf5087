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
	"math"

	"github.com/evolvedmicrobe/cafe-quality-sub001/align"
)

const (
	// BandWidth is the half width of a band seeded by a sparse alignment hit.
	BandWidth = 30
	// BandKmer is the k-mer length of the sparse alignment used for banding.
	BandKmer = 6
)

// An interval is an inclusive range of read rows.
type interval struct {
	start, stop int
}

var emptyInterval = interval{math.MaxInt32 / 2, math.MinInt32 / 2}

func (r interval) union(other interval) interval {
	return interval{min(r.start, other.start), max(r.stop, other.stop)}
}

func (r interval) next(n int) interval {
	if r == emptyInterval {
		return r
	}
	return interval{min(r.start+2, n), min(r.stop, n)}
}

func (r interval) prev() interval {
	if r == emptyInterval {
		return r
	}
	return interval{max(0, r.start), max(0, r.stop-2)}
}

// bands returns the read rows each vertex is aligned over. Vertices on
// the banding consensus that start a chained k-mer hit get a direct
// band; the others inherit bands from their neighbours in a forward and
// a backward sweep.
func (g *Graph) bands(read string) []interval {
	n := len(read)
	result := make([]interval, len(g.vertices))
	path, consensus := g.bandingConsensus()
	direct := make(map[int]interval)
	for _, f := range align.SparseAlign(read, consensus, BandKmer) {
		direct[path[f.Y]] = interval{max(0, f.X-BandWidth), min(n, f.X+BandWidth)}
	}
	if len(direct) == 0 {
		for i := range result {
			result[i] = interval{0, n}
		}
		return result
	}
	order := g.TopologicalOrder()
	forward := make([]interval, len(g.vertices))
	for _, index := range order {
		if r, ok := direct[index]; ok {
			forward[index] = r
			continue
		}
		r := emptyInterval
		for _, p := range g.vertices[index].in {
			r = r.union(forward[p].next(n))
		}
		forward[index] = r
	}
	backward := make([]interval, len(g.vertices))
	for i := len(order) - 1; i >= 0; i-- {
		index := order[i]
		if r, ok := direct[index]; ok {
			backward[index] = r
			continue
		}
		r := emptyInterval
		for _, s := range g.vertices[index].out {
			r = r.union(backward[s].prev())
		}
		backward[index] = r
	}
	for i := range result {
		result[i] = forward[i].union(backward[i])
	}
	return result
}
