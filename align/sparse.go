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

// Package align holds the pairwise aligners used to band the POA and to
// map reads onto a template: an exact k-mer chainer and a local
// Smith-Waterman.
package align

import (
	"sort"
)

// Fragment is an exact k-mer hit: X is the position in the query, Y the
// position in the reference.
type Fragment struct {
	X, Y int
}

// MaxKmerOccurrences bounds the reference hits considered per k-mer, so
// low-complexity sequence does not blow up the chainer.
const MaxKmerOccurrences = 64

func kmerCode(s string, k int) (code uint32, ok bool) {
	for i := 0; i < k; i++ {
		var b uint32
		switch s[i] {
		case 'A':
			b = 0
		case 'C':
			b = 1
		case 'G':
			b = 2
		case 'T':
			b = 3
		default:
			return 0, false
		}
		code = code<<2 | b
	}
	return code, true
}

func kmerIndex(ref string, k int) map[uint32][]int {
	index := make(map[uint32][]int)
	for y := 0; y+k <= len(ref); y++ {
		if code, ok := kmerCode(ref[y:], k); ok {
			index[code] = append(index[code], y)
		}
	}
	return index
}

// Hits returns all exact k-mer matches between query and ref.
func Hits(query, ref string, k int) (hits []Fragment) {
	if len(query) < k || len(ref) < k {
		return nil
	}
	index := kmerIndex(ref, k)
	for x := 0; x+k <= len(query); x++ {
		code, ok := kmerCode(query[x:], k)
		if !ok {
			continue
		}
		ys := index[code]
		if len(ys) > MaxKmerOccurrences {
			continue
		}
		for _, y := range ys {
			hits = append(hits, Fragment{X: x, Y: y})
		}
	}
	return hits
}

// SparseAlign returns the longest chain of k-mer hits that increases in
// both query and reference coordinates, in order.
func SparseAlign(query, ref string, k int) []Fragment {
	return Chain(Hits(query, ref, k))
}

// Chain computes the longest chain of hits strictly increasing in X and
// Y. Hits are ordered by X ascending and Y descending, so a longest
// strictly increasing subsequence over Y never uses two hits with the
// same X.
func Chain(hits []Fragment) []Fragment {
	if len(hits) == 0 {
		return nil
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].X != hits[j].X {
			return hits[i].X < hits[j].X
		}
		return hits[i].Y > hits[j].Y
	})
	tails := make([]int, 0, len(hits))
	prev := make([]int, len(hits))
	for i, h := range hits {
		pos := sort.Search(len(tails), func(t int) bool {
			return hits[tails[t]].Y >= h.Y
		})
		if pos > 0 {
			prev[i] = tails[pos-1]
		} else {
			prev[i] = -1
		}
		if pos == len(tails) {
			tails = append(tails, i)
		} else {
			tails[pos] = i
		}
	}
	result := make([]Fragment, len(tails))
	for i, t := len(tails)-1, tails[len(tails)-1]; i >= 0; i, t = i-1, prev[t] {
		result[i] = hits[t]
	}
	return result
}
