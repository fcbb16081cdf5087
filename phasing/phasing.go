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

// Package phasing maintains a set of phases, each a template with the
// reads currently claimed by it, and splits phases whose reads are
// better explained by several haplotypes.
package phasing

import (
	"errors"
	"math"

	"github.com/evolvedmicrobe/cafe-quality-sub001/consensus"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
	"github.com/exascience/pargo/parallel"
	log "github.com/sirupsen/logrus"
	"golang.org/x/exp/slices"
)

// absentBaseline is the log-likelihood of a read in a phase that does not
// hold it.
var absentBaseline = -math.Sqrt(math.MaxFloat32)

var (
	maxFloat64Root      = math.Sqrt(math.MaxFloat64)
	smallestFloat64Root = math.Sqrt(math.SmallestNonzeroFloat64)
)

type phase struct {
	scorer Scorer
	// reads are indices into the pool, in scorer order.
	reads []int
	// converged is set when the last refinement found no pending edits.
	converged bool
}

// Controller holds the phases of one read pool.
type Controller struct {
	config   Config
	pool     []*reads.MappedRead
	factory  ScorerFactory
	splitter Splitter
	phases   []*phase
}

// New starts with a single phase holding every read of the pool.
func New(config Config, pool []*reads.MappedRead, tpl mutation.TrialTemplate, factory ScorerFactory, splitter Splitter) *Controller {
	all := make([]int, len(pool))
	for i := range all {
		all[i] = i
	}
	return &Controller{
		config:   config,
		pool:     pool,
		factory:  factory,
		splitter: splitter,
		phases:   []*phase{{scorer: factory(tpl, pool), reads: all}},
	}
}

// NumPhases is the current number of phases.
func (c *Controller) NumPhases() int {
	return len(c.phases)
}

// Templates are the current phase templates.
func (c *Controller) Templates() []mutation.TrialTemplate {
	result := make([]mutation.TrialTemplate, len(c.phases))
	for p, ph := range c.phases {
		result[p] = ph.scorer.Template()
	}
	return result
}

// PhaseReads are the pool indices of the reads each phase holds.
func (c *Controller) PhaseReads() [][]int {
	result := make([][]int, len(c.phases))
	for p, ph := range c.phases {
		result[p] = slices.Clone(ph.reads)
	}
	return result
}

func (c *Controller) baselines() [][]float64 {
	result := make([][]float64, len(c.phases))
	for p, ph := range c.phases {
		result[p] = make([]float64, len(c.pool))
		for i := range result[p] {
			result[p][i] = absentBaseline
		}
		for k, ll := range ph.scorer.BaselineScores() {
			result[p][ph.reads[k]] = ll
		}
	}
	return result
}

// MappingRatios returns, per phase and pool read, the likelihood of the
// read in the phase relative to the sum over the other phases. With a
// single phase every ratio is +Inf.
func (c *Controller) MappingRatios() [][]float64 {
	baselines := c.baselines()
	result := make([][]float64, len(c.phases))
	for p := range c.phases {
		result[p] = make([]float64, len(c.pool))
		for r := range c.pool {
			var inverse float64
			for q := range c.phases {
				if q != p {
					inverse += math.Exp(baselines[q][r] - baselines[p][r])
				}
			}
			result[p][r] = 1 / inverse
		}
	}
	return result
}

// MappingPosteriors turns the mapping ratios into probabilities.
func (c *Controller) MappingPosteriors() [][]float64 {
	ratios := c.MappingRatios()
	for _, row := range ratios {
		for r, ratio := range row {
			switch {
			case ratio > maxFloat64Root:
				row[r] = 1
			case ratio < smallestFloat64Root:
				row[r] = 0
			default:
				row[r] = ratio / (1 + ratio)
			}
		}
	}
	return ratios
}

// restrict picks the entries of the phase's reads from a pool-wide vector.
func (ph *phase) restrict(values []float64) []float64 {
	result := make([]float64, len(ph.reads))
	for k, r := range ph.reads {
		result[k] = values[r]
	}
	return result
}

// ImproveConsensus refines every phase concurrently, weighting reads by
// their mapping ratios. It returns the iterations per phase, and the
// joined errors of phases that did not converge.
func (c *Controller) ImproveConsensus(maxIterations int) ([]int, error) {
	ratios := c.MappingRatios()
	iterations := make([]int, len(c.phases))
	errs := make([]error, len(c.phases))
	parallel.Range(0, len(c.phases), 0, func(low, high int) {
		for p := low; p < high; p++ {
			ph := c.phases[p]
			iterations[p], errs[p] = consensus.ImproveConsensus(ph.scorer, maxIterations, ph.restrict(ratios[p]))
			var notConverged *consensus.NotConvergedError
			ph.converged = !errors.As(errs[p], &notConverged)
		}
	})
	return iterations, errors.Join(errs...)
}

// Converged reports per phase whether its last refinement ran out of
// edits within the iteration budget. Phases that were never refined, or
// were created by a split since, have not converged.
func (c *Controller) Converged() []bool {
	result := make([]bool, len(c.phases))
	for p, ph := range c.phases {
		result[p] = ph.converged
	}
	return result
}

// PolishHomopolymers runs the homopolymer pass on every phase and returns
// the edits applied per phase.
func (c *Controller) PolishHomopolymers() [][]mutation.Mutation {
	ratios := c.MappingRatios()
	result := make([][]mutation.Mutation, len(c.phases))
	for p, ph := range c.phases {
		result[p] = consensus.PolishHomopolymers(ph.scorer, ph.restrict(ratios[p]))
	}
	return result
}

func (c *Controller) indexOf(ph *phase) int {
	return slices.Index(c.phases, ph)
}

// MultiSplit tries to split phase p. On success the phase is replaced by
// its children at the end of the phase list.
func (c *Controller) MultiSplit(p int) bool {
	return c.multiSplit(c.phases[p])
}

func closeAll(phases []*phase) {
	for _, ph := range phases {
		ph.scorer.Close()
	}
}

func (c *Controller) multiSplit(ph *phase) bool {
	tpl := ph.scorer.Template()
	start, end := c.config.IgnoreEnds, tpl.Length()-c.config.IgnoreEnds
	var muts []mutation.Mutation
	for _, m := range mutation.GenerateUniqueMutations(tpl, true) {
		if m.Kind == mutation.Substitution && m.Position >= start && m.Position < end {
			muts = append(muts, m)
		}
	}
	if len(muts) == 0 {
		return false
	}

	ratios := ph.restrict(c.MappingRatios()[c.indexOf(ph)])
	scores := make([][]float64, len(muts))
	positions := make([]int, len(muts))
	parallel.Range(0, len(muts), 0, func(low, high int) {
		for i := low; i < high; i++ {
			scores[i] = consensus.WeightedScores(ph.scorer.ScoreMutation(muts[i]), ratios)
			positions[i] = muts[i].Position
		}
	})

	maxHaplotypes := min(len(ph.reads)/max(1, c.config.MinSplitReads), c.config.MaxHaplotypesPerSplit)
	split := c.splitter.SplitHaplotypes(scores, positions, maxHaplotypes)
	if split == nil || split.Quality < c.config.SplitThreshold {
		return false
	}

	var surviving []int
	for i := range split.Mutations {
		if split.ReadCounts[i] >= c.config.MinSplitReads && split.ReadFractions[i] > c.config.MinSplitFraction {
			surviving = append(surviving, i)
		}
	}
	if len(surviving) < 2 {
		return false
	}

	// every read goes to the surviving candidate it most likely belongs to
	assigned := make([][]int, len(surviving))
	for k := range ph.reads {
		best := 0
		for j, i := range surviving {
			if split.ReadPosteriors[i][k] > split.ReadPosteriors[surviving[best]][k] {
				best = j
			}
		}
		assigned[best] = append(assigned[best], k)
	}

	mapped := ph.scorer.MappedReads()
	sequences := make(map[string]bool)
	for _, other := range c.phases {
		if other != ph {
			sequences[other.scorer.Template().Sequence] = true
		}
	}
	var children []*phase
	for j, i := range surviving {
		if len(assigned[j]) < c.config.MinSplitReads {
			closeAll(children)
			return false
		}
		mutations := make([]mutation.Mutation, len(split.Mutations[i]))
		for k, m := range split.Mutations[i] {
			mutations[k] = muts[m]
		}
		childTpl := tpl.MutateMany(mutations)
		if sequences[childTpl.Sequence] || (len(mutations) > 0 && childTpl.Sequence == tpl.Sequence) {
			closeAll(children)
			return false
		}
		sequences[childTpl.Sequence] = true
		childMapped := make([]*reads.MappedRead, len(assigned[j]))
		childReads := make([]int, len(assigned[j]))
		for n, k := range assigned[j] {
			childMapped[n] = mapped[k]
			childReads[n] = ph.reads[k]
		}
		children = append(children, &phase{
			scorer: c.factory(childTpl, childMapped),
			reads:  childReads,
		})
	}

	p := c.indexOf(ph)
	c.phases = append(slices.Delete(c.phases, p, p+1), children...)
	ph.scorer.Close()
	log.WithFields(log.Fields{
		"children": len(children),
		"quality":  split.Quality,
		"phases":   len(c.phases),
	}).Debug("split phase")
	return true
}

// RecursiveSplit tries to split every phase, for up to levels rounds,
// and refines all phases once after each round that split. It stops
// early when no phase splits, and returns the number of phases.
func (c *Controller) RecursiveSplit(levels int) int {
	for l := 0; l < levels; l++ {
		split := false
		for _, ph := range slices.Clone(c.phases) {
			if c.multiSplit(ph) {
				split = true
			}
		}
		if !split {
			break
		}
		if _, err := c.ImproveConsensus(1); err != nil {
			log.WithError(err).Debug("refinement after split")
		}
	}
	return len(c.phases)
}

// CoverageLevels returns, per phase and template position, the summed
// mapping posteriors of the reads covering the position.
func (c *Controller) CoverageLevels() [][]float64 {
	posteriors := c.MappingPosteriors()
	result := make([][]float64, len(c.phases))
	for p, ph := range c.phases {
		length := ph.scorer.Template().Length()
		result[p] = make([]float64, length)
		for k, m := range ph.scorer.MappedReads() {
			weight := posteriors[p][ph.reads[k]]
			for i := max(0, m.TemplateStart); i < min(length, m.TemplateEnd); i++ {
				result[p][i] += weight
			}
		}
	}
	return result
}

// BaseStats describes one base of a phase template.
type BaseStats struct {
	QV       byte
	Coverage int
	Base     byte
}

// ConsensusStats returns per phase and template position the consensus
// quality, the rounded coverage and the base. Adapter flank bases get
// quality 0.
func (c *Controller) ConsensusStats() [][]BaseStats {
	ratios := c.MappingRatios()
	coverage := c.CoverageLevels()
	result := make([][]BaseStats, len(c.phases))
	for p, ph := range c.phases {
		tpl := ph.scorer.Template()
		scores := consensus.ComputeAllQVs(ph.scorer, ph.restrict(ratios[p]))
		qvs := consensus.ComputeConsensusQs(scores, tpl)
		stats := make([]BaseStats, tpl.Length())
		for i := range stats {
			stats[i].Base = tpl.Sequence[i]
			stats[i].Coverage = int(math.Round(coverage[p][i]))
			if k := i - tpl.StartAdapterBases; k >= 0 && k < len(qvs.QV) {
				stats[i].QV = qvs.QV[k]
			}
		}
		result[p] = stats
	}
	return result
}

// Close releases the scorers of all phases.
func (c *Controller) Close() {
	closeAll(c.phases)
	c.phases = nil
}
