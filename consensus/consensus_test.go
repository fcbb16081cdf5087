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
	"math"
	"testing"

	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
)

func TestPhredQV(t *testing.T) {
	if PhredQV(0.5) != 3 || PhredQV(0.1) != 10 || PhredQV(1) != 0 {
		t.Error("PhredQV failed")
	}
	if PhredQV(0) != MaxQV {
		t.Error("PhredQV of a certain base failed")
	}
	if math.Abs(PhredProb(20)-0.01) > 1e-12 {
		t.Error("PhredProb failed")
	}
	if math.Abs(CombineErrorProbability(0.5, 0.5)-0.75) > 1e-12 {
		t.Error("CombineErrorProbability failed")
	}
	if ScoreToErrorProb(0) != 0.5 {
		t.Error("ScoreToErrorProb failed")
	}
}

func TestWeightedScores(t *testing.T) {
	scores := []float64{2, 2, 2}
	ratios := []float64{math.Inf(1), 0, 1}
	got := WeightedScores(scores, ratios)
	if got[0] != 2 || got[1] != 0 {
		t.Errorf("WeightedScores failed: %v", got)
	}
	if expected := math.Log((math.Exp(2) + 1) / 2); math.Abs(got[2]-expected) > 1e-12 {
		t.Errorf("WeightedScores partial mapping failed: %v, expected %v", got[2], expected)
	}
}

func TestComputeConsensusQs(t *testing.T) {
	tpl := mutation.NewTrialTemplate("ACGT")
	scores := []mutation.Scored{
		{Mutation: mutation.Mutation{Position: 0, Kind: mutation.Substitution, Base: 'A'}, Score: 0},
		{Mutation: mutation.Mutation{Position: 1, Kind: mutation.Deletion, Base: 'C'}, Score: 0},
		{Mutation: mutation.Mutation{Position: 2, Kind: mutation.Substitution, Base: 'A'}, Score: -math.Log(9)},
		{Mutation: mutation.Mutation{Position: 3, Kind: mutation.Insertion, Base: 'C'}, Score: -math.Log(99)},
	}
	qvs := ComputeConsensusQs(scores, tpl)
	if qvs.Sequence != "ACGT" {
		t.Error("ComputeConsensusQs sequence failed")
	}
	if string(qvs.QV) != string([]byte{MaxQV, 3, 10, 20}) {
		t.Errorf("ComputeConsensusQs QV failed: %v", qvs.QV)
	}
	if qvs.InsertionQV[1] != 3 || qvs.SubstitutionQV[2] != 10 || qvs.DeletionQV[3] != 20 || qvs.SubstitutionQV[0] != MaxQV {
		t.Error("ComputeConsensusQs per type failed")
	}
	if string(qvs.SubstitutionTag) != "NNAN" || string(qvs.DeletionTag) != "NNNC" {
		t.Errorf("ComputeConsensusQs tags failed: %s %s", qvs.SubstitutionTag, qvs.DeletionTag)
	}
	expected := 1 - (PhredProb(MaxQV)+PhredProb(3)+PhredProb(10)+PhredProb(20))/4
	if math.Abs(qvs.PredictedAccuracy-expected) > 1e-12 {
		t.Errorf("ComputeConsensusQs accuracy failed: %v", qvs.PredictedAccuracy)
	}
}

func TestComputeConsensusQsFlanks(t *testing.T) {
	tpl := mutation.TrialTemplate{Sequence: "GGACGTCC", StartAdapterBases: 2, EndAdapterBases: 2}
	scores := []mutation.Scored{
		{Mutation: mutation.Mutation{Position: 3, Kind: mutation.Deletion, Base: 'C'}, Score: 0},
		{Mutation: mutation.Mutation{Position: 7, Kind: mutation.Deletion, Base: 'C'}, Score: 5},
	}
	qvs := ComputeConsensusQs(scores, tpl)
	if qvs.Sequence != "ACGT" || qvs.InsertionQV[1] != 3 || qvs.InsertionQV[3] != MaxQV {
		t.Errorf("ComputeConsensusQs with flanks failed: %+v", qvs)
	}
}

type fixedScorer struct {
	tpl     mutation.TrialTemplate
	good    map[mutation.Mutation]bool
	applied [][]mutation.Mutation
}

func (s *fixedScorer) Template() mutation.TrialTemplate {
	return s.tpl
}

func (s *fixedScorer) BaselineScores() []float64 {
	return []float64{0, 0}
}

func (s *fixedScorer) ScoreMutation(m mutation.Mutation) []float64 {
	if s.good[m] {
		return []float64{1, 1}
	}
	return []float64{-1, -1}
}

func (s *fixedScorer) ApplyMutations(ms []mutation.Mutation) {
	s.applied = append(s.applied, ms)
	s.tpl = s.tpl.MutateMany(ms)
	s.good = nil
}

func TestImproveConsensusSelection(t *testing.T) {
	good := []mutation.Mutation{
		{Position: 5, Kind: mutation.Substitution, Base: 'G'},
		{Position: 9, Kind: mutation.Substitution, Base: 'T'},
		{Position: 30, Kind: mutation.Deletion, Base: 'A'},
	}
	s := &fixedScorer{
		tpl:  mutation.NewTrialTemplate("ACGTACTGACGATCAGTCAGCTAGCATGCTAGTCAG"),
		good: make(map[mutation.Mutation]bool),
	}
	for _, m := range good {
		s.good[m] = true
	}
	iterations, err := ImproveConsensus(s, 10, nil)
	if err != nil || iterations != 1 {
		t.Fatalf("ImproveConsensus failed: %v %v", iterations, err)
	}
	if len(s.applied) != 1 || len(s.applied[0]) != 2 || s.applied[0][0] != good[1] || s.applied[0][1] != good[2] {
		t.Errorf("ImproveConsensus selection failed: %v", s.applied)
	}
	if s.tpl.Length() != 35 {
		t.Error("ImproveConsensus template failed")
	}
}
