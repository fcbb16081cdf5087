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

// Package splitter finds haplotypes in a read pool from per-read scores
// of candidate mutations.
//
// A haplotype is a set of mutations of the current template; the empty
// set is the template itself. The log-likelihood of a read under a
// haplotype is approximated by the sum of the read's scores for the
// haplotype's mutations. Haplotypes are added greedily, each seeded by
// the mutation that best explains reads the current haplotypes explain
// poorly, and the read pool is fit as a mixture of them.
package splitter

import (
	"math"

	"github.com/evolvedmicrobe/cafe-quality-sub001/phasing"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
)

// Config holds the splitter parameters.
type Config struct {
	// SupportScore is the score above which a read supports a mutation.
	SupportScore float64
	// MinSupportReads is the number of supporting reads a mutation needs
	// to be considered.
	MinSupportReads int
	// MinHaplotypeGain is the mixture log-likelihood a new haplotype must
	// add.
	MinHaplotypeGain float64
	// EMIterations bounds the mixture fit.
	EMIterations int
}

// DefaultConfig returns the default parameters.
func DefaultConfig() Config {
	return Config{
		SupportScore:     1,
		MinSupportReads:  3,
		MinHaplotypeGain: 1,
		EMIterations:     50,
	}
}

// Splitter implements phasing.Splitter.
type Splitter struct {
	Config
}

// New returns a splitter with the given parameters.
func New(config Config) *Splitter {
	return &Splitter{Config: config}
}

type haplotype struct {
	mutations []int
	ll        []float64
}

func (s *Splitter) support(scores []float64) (n int) {
	for _, v := range scores {
		if v > s.SupportScore {
			n++
		}
	}
	return n
}

// mixture fits the mixing proportions of the haplotypes by expectation
// maximization. It returns the proportions, the read posteriors per
// haplotype, and the log-likelihood of the pool.
func (s *Splitter) mixture(haps []*haplotype, nReads int) (weights []float64, posteriors [][]float64, ll float64) {
	k := len(haps)
	weights = make([]float64, k)
	for h := range weights {
		weights[h] = 1 / float64(k)
	}
	posteriors = make([][]float64, k)
	for h := range posteriors {
		posteriors[h] = make([]float64, nReads)
	}
	terms := make([]float64, k)
	for iter := 0; iter <= s.EMIterations; iter++ {
		ll = 0
		for r := 0; r < nReads; r++ {
			for h, hap := range haps {
				terms[h] = math.Log(weights[h]) + hap.ll[r]
			}
			total := floats.LogSumExp(terms)
			ll += total
			for h := range haps {
				posteriors[h][r] = math.Exp(terms[h] - total)
			}
		}
		if iter == s.EMIterations {
			break
		}
		for h := range weights {
			weights[h] = math.Max(floats.Sum(posteriors[h])/float64(nReads), 1e-9)
		}
		floats.Scale(1/floats.Sum(weights), weights)
	}
	return weights, posteriors, ll
}

// bestSingle is the log-likelihood of the pool under the best single
// haplotype.
func bestSingle(haps []*haplotype) float64 {
	best := math.Inf(-1)
	for _, hap := range haps {
		best = math.Max(best, floats.Sum(hap.ll))
	}
	return best
}

// grow extends a haplotype seeded with one mutation by the other
// mutations its reads support.
func (s *Splitter) grow(hap *haplotype, scores [][]float64, positions []int, informative []int, current []float64) {
	used := map[int]bool{positions[hap.mutations[0]]: true}
	for changed := true; changed; {
		changed = false
		var group []int
		for r, v := range hap.ll {
			if v > current[r] {
				group = append(group, r)
			}
		}
		for _, m := range informative {
			if used[positions[m]] {
				continue
			}
			var sum float64
			var n int
			for _, r := range group {
				sum += scores[m][r]
				if scores[m][r] > s.SupportScore {
					n++
				}
			}
			if sum > 0 && n >= s.MinSupportReads {
				hap.mutations = append(hap.mutations, m)
				floats.Add(hap.ll, scores[m])
				used[positions[m]] = true
				changed = true
			}
		}
	}
}

// SplitHaplotypes returns the haplotypes that explain the scores better
// than a single template, at most maxCandidates of them, or nil if no
// split improves the fit.
func (s *Splitter) SplitHaplotypes(scores [][]float64, positions []int, maxCandidates int) *phasing.Split {
	if maxCandidates < 2 || len(scores) == 0 || len(scores[0]) == 0 {
		return nil
	}
	nReads := len(scores[0])

	var informative []int
	for m, v := range scores {
		if s.support(v) >= s.MinSupportReads {
			informative = append(informative, m)
		}
	}
	if len(informative) == 0 {
		return nil
	}

	haps := []*haplotype{{ll: make([]float64, nReads)}}
	current := make([]float64, nReads)
	_, _, fit := s.mixture(haps, nReads)
	for len(haps) < maxCandidates {
		for r := range current {
			current[r] = haps[0].ll[r]
			for _, hap := range haps[1:] {
				current[r] = math.Max(current[r], hap.ll[r])
			}
		}
		seed, bestGain := -1, 0.0
		for _, m := range informative {
			var gain float64
			for r, v := range scores[m] {
				gain += math.Max(0, v-current[r])
			}
			if gain > bestGain {
				seed, bestGain = m, gain
			}
		}
		if seed < 0 {
			break
		}
		hap := &haplotype{mutations: []int{seed}, ll: append([]float64(nil), scores[seed]...)}
		s.grow(hap, scores, positions, informative, current)
		candidates := append(haps, hap)
		_, _, newFit := s.mixture(candidates, nReads)
		if newFit-math.Max(fit, bestSingle(candidates)) < s.MinHaplotypeGain {
			break
		}
		haps = append(haps, hap)
		fit = newFit
	}
	if len(haps) < 2 {
		return nil
	}

	_, posteriors, fit := s.mixture(haps, nReads)
	split := &phasing.Split{
		Quality:        fit - bestSingle(haps),
		Mutations:      make([][]int, len(haps)),
		ReadCounts:     make([]int, len(haps)),
		ReadFractions:  make([]float64, len(haps)),
		ReadPosteriors: posteriors,
	}
	for h, hap := range haps {
		split.Mutations[h] = hap.mutations
	}
	for r := 0; r < nReads; r++ {
		best := 0
		for h := range haps {
			if posteriors[h][r] > posteriors[best][r] {
				best = h
			}
		}
		split.ReadCounts[best]++
	}
	for h, n := range split.ReadCounts {
		split.ReadFractions[h] = float64(n) / float64(nReads)
	}
	log.WithFields(log.Fields{
		"haplotypes": len(haps),
		"quality":    split.Quality,
	}).Debug("split haplotypes")
	return split
}
