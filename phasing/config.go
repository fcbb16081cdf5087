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

package phasing

import (
	"fmt"

	"github.com/evolvedmicrobe/cafe-quality-sub001/consensus"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
)

// Config holds the split acceptance rules.
type Config struct {
	// SplitThreshold is the minimum split quality, on the log-likelihood
	// ratio scale.
	SplitThreshold float64
	// MinSplitFraction is the fraction of reads a child must exceed.
	MinSplitFraction float64
	// MinSplitReads is the number of reads a child needs.
	MinSplitReads int
	// MaxHaplotypesPerSplit bounds the children of one split.
	MaxHaplotypesPerSplit int
	// IgnoreEnds is the number of template bases at either end that
	// never drive a split.
	IgnoreEnds int
}

// DefaultConfig returns the default acceptance rules.
func DefaultConfig() Config {
	return Config{
		SplitThreshold:        6.0,
		MinSplitFraction:      0.1,
		MinSplitReads:         8,
		MaxHaplotypesPerSplit: 4,
		IgnoreEnds:            0,
	}
}

// Validate reports the first rule that cannot be applied.
func (c Config) Validate() error {
	switch {
	case c.MinSplitReads < 1:
		return fmt.Errorf("minimum split reads must be at least 1, got %v", c.MinSplitReads)
	case c.MaxHaplotypesPerSplit < 2:
		return fmt.Errorf("maximum haplotypes per split must be at least 2, got %v", c.MaxHaplotypesPerSplit)
	case c.MinSplitFraction < 0 || c.MinSplitFraction >= 1:
		return fmt.Errorf("minimum split fraction must be in [0, 1), got %v", c.MinSplitFraction)
	case c.IgnoreEnds < 0:
		return fmt.Errorf("ignored template ends must not be negative, got %v", c.IgnoreEnds)
	}
	return nil
}

// Scorer scores a subset of the read pool against one template.
type Scorer interface {
	consensus.Scorer
	// MappedReads are the scorer's reads, placed on its current template.
	MappedReads() []*reads.MappedRead
	Clone() Scorer
	// Close releases the scorer's resources.
	Close()
}

// ScorerFactory creates a scorer of the given reads against a template.
type ScorerFactory func(tpl mutation.TrialTemplate, mapped []*reads.MappedRead) Scorer

// Split is a proposal to divide the reads of a phase into haplotypes.
type Split struct {
	// Quality is the log-likelihood gain of the split.
	Quality float64
	// Mutations holds, per candidate haplotype, indices into the scored
	// mutations.
	Mutations [][]int
	// ReadCounts are the reads most likely drawn from each candidate.
	ReadCounts []int
	// ReadFractions are ReadCounts relative to all reads.
	ReadFractions []float64
	// ReadPosteriors are per candidate and read.
	ReadPosteriors [][]float64
}

// Splitter finds haplotypes from per-read scores of candidate mutations.
// Each score vector has one entry per read of the phase being split.
type Splitter interface {
	SplitHaplotypes(scores [][]float64, positions []int, maxCandidates int) *Split
}
