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

package internal

import (
	"math/rand"

	"golang.org/x/exp/slices"
)

type Rand = rand.Rand

// NewRand returns a Go-style random number generator.
func NewRand(seed int64) *Rand {
	return rand.New(rand.NewSource(seed))
}

// Reservoir returns k indices sampled uniformly from [0, n) in
// increasing order. If n <= k, all indices are returned.
func Reservoir(r *Rand, n, k int) []int {
	if n <= k {
		result := make([]int, n)
		for i := range result {
			result[i] = i
		}
		return result
	}
	result := make([]int, k)
	for i := range result {
		result[i] = i
	}
	for i := k; i < n; i++ {
		if j := r.Intn(i + 1); j < k {
			result[j] = i
		}
	}
	slices.Sort(result)
	return result
}
