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

package mutation

import "sort"

// BestItems returns the subset of items with the highest total score
// whose positions are pairwise more than minSpacing apart, in position
// order. Among predecessors with equal scores the nearest one wins, and
// the traceback starts from the first maximum.
func BestItems[T any](items []T, position func(T) int, score func(T) float64, minSpacing int) []T {
	if len(items) == 0 {
		return nil
	}
	sorted := make([]T, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool {
		return position(sorted[i]) < position(sorted[j])
	})

	n := len(sorted)
	pos := make([]int, n)
	total := make([]float64, n)
	prev := make([]int, n)
	for i, item := range sorted {
		pos[i] = position(item)
	}
	for i := range sorted {
		best, bestJ := 0.0, -1
		for j := i - 1; j >= 0; j-- {
			if pos[i]-pos[j] > minSpacing && total[j] > best {
				best, bestJ = total[j], j
			}
		}
		total[i] = score(sorted[i]) + best
		prev[i] = bestJ
	}

	bestIdx := 0
	for i := 1; i < n; i++ {
		if total[i] > total[bestIdx] {
			bestIdx = i
		}
	}
	var result []T
	for i := bestIdx; i >= 0; i = prev[i] {
		result = append(result, sorted[i])
	}
	for l, r := 0, len(result)-1; l < r; l, r = l+1, r-1 {
		result[l], result[r] = result[r], result[l]
	}
	return result
}

// Scored pairs a mutation with its score.
type Scored struct {
	Mutation
	Score float64
}

// BestMutations is BestItems over scored mutations.
func BestMutations(scored []Scored, minSpacing int) []Scored {
	return BestItems(scored,
		func(s Scored) int { return s.Position },
		func(s Scored) float64 { return s.Score },
		minSpacing)
}
