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
)

// maxPath returns the path of maximum summed weight. A path may start
// at any vertex. Ties keep the first maximum in topological order.
func (g *Graph) maxPath(weight func(*Vertex) float64) []int {
	order := g.TopologicalOrder()
	if len(order) == 0 {
		return nil
	}
	scores := make([]float64, len(g.vertices))
	prev := make([]int, len(g.vertices))
	best := -1
	for _, index := range order {
		v := g.vertices[index]
		w := weight(v)
		score, from := w, -1
		for _, p := range v.in {
			if s := scores[p] + w; s > score {
				score, from = s, p
			}
		}
		scores[index], prev[index] = score, from
		if best < 0 || score > scores[best] {
			best = index
		}
	}
	if math.IsInf(scores[best], -1) {
		return nil
	}
	var path []int
	for index := best; index >= 0; index = prev[index] {
		path = append(path, index)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path
}

func (g *Graph) pathSequence(path []int) string {
	seq := make([]byte, len(path))
	for i, index := range path {
		seq[i] = g.vertices[index].Base
	}
	return string(seq)
}

// bandingConsensus is the heaviest path used to band read alignments.
func (g *Graph) bandingConsensus() ([]int, string) {
	path := g.maxPath(func(v *Vertex) float64 {
		if v.DoNotCall || v.Coverage < 1 {
			return math.Inf(-1)
		}
		return float64(2*v.Support()-v.Coverage) - 0.1
	})
	return path, g.pathSequence(path)
}

// An ExtentPosition pairs a read coordinate with a consensus
// coordinate.
type ExtentPosition struct {
	Read, Template int
}

// An Extent is the first and last consensus vertex a read threads
// through.
type Extent struct {
	Start, End ExtentPosition
}

// FindConsensusAndAlignments computes coverage and returns the maximum
// weight path as the consensus sequence, the mean normalized support
// along that path as its score, and the extent of every read that
// touches the path.
func (g *Graph) FindConsensusAndAlignments(minCoverage int) (extents map[int]Extent, score float64, sequence string) {
	g.ComputeCoverage()
	floor := g.NumReads() - 3
	path := g.maxPath(func(v *Vertex) float64 {
		if v.DoNotCall || v.Coverage < minCoverage {
			return math.Inf(-1)
		}
		return float64(2*v.Support()-max(floor, v.Coverage)) - 0.1
	})
	extents = make(map[int]Extent)
	for i, index := range path {
		v := g.vertices[index]
		if v.Coverage > 0 {
			score += float64(2*v.Support()-v.Coverage) / float64(v.Coverage)
		}
		for _, p := range v.Reads {
			pos := ExtentPosition{Read: p.Pos, Template: i}
			if e, ok := extents[p.Read]; ok {
				e.End = pos
				extents[p.Read] = e
			} else {
				extents[p.Read] = Extent{Start: pos, End: pos}
			}
		}
	}
	if len(path) > 0 {
		score /= float64(len(path))
	}
	return extents, score, g.pathSequence(path)
}

// Prune removes vertices with a coverage of one, and vertices with a
// single supporting read whose coverage exceeds minCoverage. It returns
// the number of vertices removed.
func (g *Graph) Prune(minCoverage int) int {
	g.ComputeCoverage()
	remove := make([]bool, len(g.vertices))
	for i, v := range g.vertices {
		remove[i] = v.Coverage == 1 || (v.Support() == 1 && v.Coverage > minCoverage)
	}
	return g.removeVertices(remove)
}

// PruneSingletons removes vertices with a coverage of one.
func (g *Graph) PruneSingletons() int {
	g.ComputeCoverage()
	remove := make([]bool, len(g.vertices))
	for i, v := range g.vertices {
		remove[i] = v.Coverage == 1
	}
	return g.removeVertices(remove)
}
