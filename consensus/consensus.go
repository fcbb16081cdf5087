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

// Package consensus refines a template by repeatedly applying the best
// set of non-interfering single-base edits, and derives per-base
// qualities from the scores of the remaining candidate edits.
package consensus

import (
	"fmt"
	"math"

	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/exascience/pargo/parallel"
	log "github.com/sirupsen/logrus"
)

// Refinement parameters.
const (
	// MinScore is the log-likelihood gain an edit needs to be applied.
	MinScore = 0.35
	// MutationSpacing is the distance applied edits keep from each other.
	MutationSpacing = 8
	// PrevMutationWindow is how far from the last applied edits new
	// candidates are looked for.
	PrevMutationWindow = 22
)

// Scorer evaluates edits of a template against a set of reads.
type Scorer interface {
	Template() mutation.TrialTemplate
	// BaselineScores are the per-read log-likelihoods.
	BaselineScores() []float64
	// ScoreMutation returns per-read log-likelihood changes.
	ScoreMutation(m mutation.Mutation) []float64
	// ApplyMutations edits the template. Positions refer to the template
	// before the call.
	ApplyMutations(mutations []mutation.Mutation)
}

// NotConvergedError is returned when the iteration budget runs out
// while edits are still being found.
type NotConvergedError struct {
	Iterations int
	Pending    int
}

func (e *NotConvergedError) Error() string {
	return fmt.Sprintf("consensus not converged after %v iterations, %v mutations pending", e.Iterations, e.Pending)
}

var (
	maxFloat32Root      = math.Sqrt(math.MaxFloat32)
	smallestFloat32Root = math.Sqrt(math.SmallestNonzeroFloat32)
)

// WeightedScores discounts the per-read scores by how strongly each read
// maps to the scored template. A read mapping essentially uniquely keeps
// its score, a read mapping elsewhere contributes nothing.
func WeightedScores(scores, mappingRatios []float64) []float64 {
	result := make([]float64, len(scores))
	for i, s := range scores {
		switch r := mappingRatios[i]; {
		case r > maxFloat32Root:
			result[i] = s
		case r < smallestFloat32Root:
			result[i] = 0
		default:
			p := r / (1 + r)
			result[i] = math.Log(math.Exp(s)*p + (1 - p))
		}
	}
	return result
}

// MutationScorer returns the total score of an edit over all reads,
// weighted by mappingRatios unless they are nil.
func MutationScorer(scorer Scorer, mappingRatios []float64) func(mutation.Mutation) float64 {
	return func(m mutation.Mutation) (total float64) {
		scores := scorer.ScoreMutation(m)
		if mappingRatios != nil {
			scores = WeightedScores(scores, mappingRatios)
		}
		for _, s := range scores {
			total += s
		}
		return total
	}
}

// ScoreMutations scores every candidate.
func ScoreMutations(candidates []mutation.Mutation, score func(mutation.Mutation) float64) []mutation.Scored {
	result := make([]mutation.Scored, len(candidates))
	parallel.Range(0, len(candidates), 0, func(low, high int) {
		for i := low; i < high; i++ {
			result[i] = mutation.Scored{Mutation: candidates[i], Score: score(candidates[i])}
		}
	})
	return result
}

// FindMutations scores the candidates and returns the best scoring set
// of edits above minScore that are more than spacing apart.
func FindMutations(candidates []mutation.Mutation, score func(mutation.Mutation) float64, spacing int, minScore float64) []mutation.Scored {
	var possible []mutation.Scored
	for _, s := range ScoreMutations(candidates, score) {
		if s.Score > minScore {
			possible = append(possible, s)
		}
	}
	return mutation.BestMutations(possible, spacing)
}

func mutationsOf(scored []mutation.Scored) []mutation.Mutation {
	result := make([]mutation.Mutation, len(scored))
	for i, s := range scored {
		result[i] = s.Mutation
	}
	return result
}

// ImproveConsensus refines the scorer's template. The first round tries
// every unique edit, later rounds only those near the last applied
// batch. A batch that would lead back to an earlier template is cut to
// its first edit. It returns the number of rounds that applied edits,
// and a *NotConvergedError when maxIterations ran out first.
func ImproveConsensus(scorer Scorer, maxIterations int, mappingRatios []float64) (int, error) {
	score := MutationScorer(scorer, mappingRatios)
	screen := func(candidates []mutation.Mutation) []mutation.Mutation {
		return mutationsOf(FindMutations(candidates, score, MutationSpacing, MinScore))
	}

	tpl := scorer.Template()
	history := map[string]struct{}{tpl.Sequence: {}}
	muts := screen(mutation.GenerateUniqueMutations(tpl, true))

	iterations := 0
	for ; len(muts) > 0 && iterations < maxIterations; iterations++ {
		if len(muts) > 1 {
			if _, seen := history[tpl.MutateMany(muts).Sequence]; seen {
				muts = muts[:1]
			}
		}
		scorer.ApplyMutations(muts)
		tpl = scorer.Template()
		history[tpl.Sequence] = struct{}{}
		log.WithFields(log.Fields{
			"iteration": iterations,
			"mutations": len(muts),
			"length":    tpl.Length(),
		}).Debug("applied mutations")

		candidates := mutation.PrevMutationFilter(mutation.GenerateUniqueMutations(tpl, true), muts, PrevMutationWindow)
		muts = screen(candidates)
	}
	if len(muts) > 0 {
		return iterations, &NotConvergedError{Iterations: iterations, Pending: len(muts)}
	}
	return iterations, nil
}

// UniqueMutationsScores scores every unique edit of the template.
// Substitutions to the base already present score 0.
func UniqueMutationsScores(tpl mutation.TrialTemplate, score func(mutation.Mutation) float64) []mutation.Scored {
	candidates := mutation.GenerateUniqueMutations(tpl, true)
	return ScoreMutations(candidates, func(m mutation.Mutation) float64 {
		if m.IsSynonymous(tpl.Sequence) {
			return 0
		}
		return score(m)
	})
}

// ComputeAllQVs scores every unique edit of the scorer's template, for
// ComputeConsensusQs.
func ComputeAllQVs(scorer Scorer, mappingRatios []float64) []mutation.Scored {
	return UniqueMutationsScores(scorer.Template(), MutationScorer(scorer, mappingRatios))
}

// PolishHomopolymers tries to lengthen or shorten long G/C homopolymers
// and applies the edits that improve the template. It returns the
// applied edits.
func PolishHomopolymers(scorer Scorer, mappingRatios []float64) []mutation.Mutation {
	candidates := mutation.GenerateLongHomopolymerMutations(scorer.Template(), mutation.DefaultHomopolymerLength)
	accepted := mutationsOf(FindMutations(candidates, MutationScorer(scorer, mappingRatios), 1, MinScore))
	if len(accepted) > 0 {
		scorer.ApplyMutations(accepted)
	}
	return accepted
}
