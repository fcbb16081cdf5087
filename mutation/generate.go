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

import (
	"sort"

	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"golang.org/x/exp/slices"
)

// DefaultHomopolymerLength is the shortest G/C run targeted by
// GenerateLongHomopolymerMutations.
const DefaultHomopolymerLength = 4

func mutableRange(tpl TrialTemplate) (start, end int) {
	return max(1, tpl.StartAdapterBases), tpl.Length() - max(1, tpl.EndAdapterBases)
}

// GenerateUniqueMutations enumerates the candidate edits of tpl that
// produce distinct templates. Inside a homopolymer run only the first
// base gets a deletion and a matching insertion. Insertions are allowed
// up to and including the first base of the end adapter; nothing else
// touches the flanks.
func GenerateUniqueMutations(tpl TrialTemplate, generateSubstitutions bool) (result []Mutation) {
	seq := tpl.Sequence
	start, end := mutableRange(tpl)
	for i := start; i <= end; i++ {
		cur, prev := seq[i], seq[i-1]
		hpStart := !(i > 2 && prev == cur && i > start)
		for j := 0; j < len(dna.Bases); j++ {
			b := dna.Bases[j]
			if (b != cur && b != prev) || (hpStart && b != prev) {
				result = append(result, Mutation{Position: i, Kind: Insertion, Base: b})
			}
			if generateSubstitutions && i < end && b != cur && b != prev {
				result = append(result, Mutation{Position: i, Kind: Substitution, Base: b})
			}
		}
		if hpStart && i < end {
			result = append(result, Mutation{Position: i, Kind: Deletion, Base: cur})
		}
	}
	return result
}

// GenerateLongHomopolymerMutations proposes lengthening and shortening
// every G/C homopolymer of at least minLength bases inside the flanks.
func GenerateLongHomopolymerMutations(tpl TrialTemplate, minLength int) (result []Mutation) {
	seq := tpl.Sequence
	start, end := mutableRange(tpl)
	for i := start; i < end; {
		b := seq[i]
		j := i + 1
		for j < end && seq[j] == b {
			j++
		}
		if (b == 'G' || b == 'C') && j-i >= minLength && seq[i-1] != b {
			result = append(result,
				Mutation{Position: i, Kind: Insertion, Base: b},
				Mutation{Position: i, Kind: Deletion, Base: b})
		}
		i = j
	}
	return result
}

// PrevMutationFilter keeps the mutations that lie within spacing of one
// of the previously applied mutations. Positions of the previous
// mutations are shifted by the length changes of the ones before them,
// so they refer to the template they produced.
func PrevMutationFilter(mutations, previous []Mutation, spacing int) (result []Mutation) {
	if len(previous) == 0 {
		return nil
	}
	prevs := slices.Clone(previous)
	sort.SliceStable(prevs, func(i, j int) bool {
		return prevs[i].Position < prevs[j].Position
	})
	shifted := make([]int, len(prevs))
	shift := 0
	for i, m := range prevs {
		shifted[i] = m.Position + shift
		shift += m.LengthDelta()
	}
	for _, m := range mutations {
		idx, _ := slices.BinarySearch(shifted, m.Position)
		dist := -1
		if idx < len(shifted) {
			dist = shifted[idx] - m.Position
		}
		if idx > 0 {
			if d := m.Position - shifted[idx-1]; dist < 0 || d < dist {
				dist = d
			}
		}
		if dist >= 0 && dist < spacing {
			result = append(result, m)
		}
	}
	return result
}

// Substitutions keeps the substitutions with position in [start, end).
func Substitutions(mutations []Mutation, start, end int) (result []Mutation) {
	for _, m := range mutations {
		if m.Kind == Substitution && m.Position >= start && m.Position < end {
			result = append(result, m)
		}
	}
	return result
}
