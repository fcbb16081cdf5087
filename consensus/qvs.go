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

package consensus

import (
	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"gonum.org/v1/gonum/floats"
)

// ConsensusQVs are per-base qualities of the insert of a template.
type ConsensusQVs struct {
	Sequence string
	// QV combines every error type at the base.
	QV []byte
	// InsertionQV is the quality of the base not being an insertion.
	InsertionQV []byte
	// DeletionQV is the quality of no base missing before the base.
	DeletionQV []byte
	// SubstitutionQV is the quality of the base not being a substitution.
	SubstitutionQV []byte
	// DeletionTag is the most likely missing base, or N.
	DeletionTag []byte
	// SubstitutionTag is the most likely alternative base, or N.
	SubstitutionTag []byte
	// PredictedAccuracy is one minus the mean error probability of QV.
	PredictedAccuracy float64
}

func mostLikely(probs *[4]float64) byte {
	best := 0
	for i := 1; i < 4; i++ {
		if probs[i] > probs[best] {
			best = i
		}
	}
	if probs[best] == 0 {
		return 'N'
	}
	return dna.Bases[best]
}

// ComputeConsensusQs summarizes edit scores into qualities per base of
// the insert. An edit that was not scored counts as impossible.
func ComputeConsensusQs(scores []mutation.Scored, tpl mutation.TrialTemplate) *ConsensusQVs {
	pad := tpl.StartAdapterBases
	insert := tpl.InsertSequence()
	n := len(insert)
	deletions := make([]float64, n)
	insertions := make([][4]float64, n)
	substitutions := make([][4]float64, n)
	for _, s := range scores {
		i := s.Position - pad
		if i < 0 || i >= n {
			continue
		}
		code := dna.BaseCode(s.Base)
		switch s.Kind {
		case mutation.Deletion:
			deletions[i] = ScoreToErrorProb(s.Score)
		case mutation.Insertion:
			if code >= 0 {
				insertions[i][code] = ScoreToErrorProb(s.Score)
			}
		case mutation.Substitution:
			if code >= 0 && s.Base != insert[i] {
				substitutions[i][code] = ScoreToErrorProb(s.Score)
			}
		}
	}

	result := &ConsensusQVs{
		Sequence:        insert,
		QV:              make([]byte, n),
		InsertionQV:     make([]byte, n),
		DeletionQV:      make([]byte, n),
		SubstitutionQV:  make([]byte, n),
		DeletionTag:     make([]byte, n),
		SubstitutionTag: make([]byte, n),
	}
	if n == 0 {
		return result
	}
	errs := make([]float64, n)
	for i := 0; i < n; i++ {
		ins, sub := insertions[i][:], substitutions[i][:]
		result.InsertionQV[i] = PhredQV(deletions[i])
		result.DeletionQV[i] = PhredQV(CombineErrorProbability(ins...))
		result.DeletionTag[i] = mostLikely(&insertions[i])
		result.SubstitutionQV[i] = PhredQV(CombineErrorProbability(sub...))
		result.SubstitutionTag[i] = mostLikely(&substitutions[i])
		all := append(append([]float64{deletions[i]}, ins...), sub...)
		result.QV[i] = PhredQV(CombineErrorProbability(all...))
		errs[i] = PhredProb(float64(result.QV[i]))
	}
	result.PredictedAccuracy = 1 - floats.Sum(errs)/float64(n)
	return result
}
