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

package consensus_test

import (
	"errors"
	"testing"

	"github.com/evolvedmicrobe/cafe-quality-sub001/consensus"
	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
	"github.com/evolvedmicrobe/cafe-quality-sub001/scorer"
)

const truth = "ACGTACTGACGATCAGTCAGCTAGCATGCTAGTCAGATCGTACG"

func exactReads(seq string, templateLength, n int) []*reads.MappedRead {
	var result []*reads.MappedRead
	for i := 0; i < n; i++ {
		strand := dna.Forward
		bases := seq
		if i%2 == 1 {
			strand = dna.Reverse
			bases = dna.ReverseComplement(seq)
		}
		result = append(result, &reads.MappedRead{
			Read: reads.NewRead("read", []byte(bases), nil),
			AlignmentRegion: reads.AlignmentRegion{
				ReadEnd:     len(seq),
				TemplateEnd: templateLength,
				Strand:      strand,
			},
		})
	}
	return result
}

func TestImproveConsensus(t *testing.T) {
	for _, pos := range []int{12, 20} {
		draft := mutation.NewTrialTemplate(truth[:pos] + truth[pos+1:])
		s := scorer.New(draft, exactReads(truth, draft.Length(), 5))
		iterations, err := consensus.ImproveConsensus(s, 10, nil)
		if err != nil || iterations != 1 {
			t.Errorf("ImproveConsensus failed: %v %v", iterations, err)
		}
		if s.Template().Sequence != truth {
			t.Errorf("ImproveConsensus did not recover the deleted base at %v: %v", pos, s.Template().Sequence)
		}
		s.Close()
	}
}

func TestImproveConsensusNotConverged(t *testing.T) {
	draft := mutation.NewTrialTemplate(truth[:20] + truth[21:])
	s := scorer.New(draft, exactReads(truth, draft.Length(), 5))
	defer s.Close()
	iterations, err := consensus.ImproveConsensus(s, 0, nil)
	var notConverged *consensus.NotConvergedError
	if iterations != 0 || !errors.As(err, &notConverged) || notConverged.Pending != 1 {
		t.Errorf("ImproveConsensus without iterations failed: %v %v", iterations, err)
	}
}

func TestComputeAllQVs(t *testing.T) {
	tpl := mutation.NewTrialTemplate(truth)
	s := scorer.New(tpl, exactReads(truth, tpl.Length(), 3))
	defer s.Close()
	scores := consensus.ComputeAllQVs(s, nil)
	if len(scores) != len(mutation.GenerateUniqueMutations(tpl, true)) {
		t.Fatal("ComputeAllQVs failed")
	}
	for _, sc := range scores {
		if sc.Score >= 0 {
			t.Errorf("mutation %v of the true template scored %v", sc.Mutation, sc.Score)
		}
	}
	qvs := consensus.ComputeConsensusQs(scores, tpl)
	if qvs.Sequence != truth || qvs.PredictedAccuracy <= 0.5 {
		t.Errorf("ComputeConsensusQs failed: %v", qvs.PredictedAccuracy)
	}
}

func TestPolishHomopolymers(t *testing.T) {
	const shorter = "ACGTACTGACGATCAGGGGTCAGCTAGCATGCTAGTCAGATC"
	draft := mutation.NewTrialTemplate("ACGTACTGACGATCAGGGGGTCAGCTAGCATGCTAGTCAGATC")
	s := scorer.New(draft, exactReads(shorter, draft.Length(), 5))
	defer s.Close()
	accepted := consensus.PolishHomopolymers(s, nil)
	if len(accepted) != 1 || accepted[0].Kind != mutation.Deletion || accepted[0].Position != 15 {
		t.Errorf("PolishHomopolymers failed: %v", accepted)
	}
	if s.Template().Sequence != shorter {
		t.Errorf("PolishHomopolymers template failed: %v", s.Template().Sequence)
	}
}
