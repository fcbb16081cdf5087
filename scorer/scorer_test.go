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

package scorer

import (
	"math"
	"testing"

	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
)

const testTemplate = "ACGTACTGACGATCAGTCAGCTAGCATGCTAGTCAGATCGTACG"

func mapWhole(name, seq string, templateLength int, strand dna.Strand) *reads.MappedRead {
	bases := seq
	if strand == dna.Reverse {
		bases = dna.ReverseComplement(seq)
	}
	return &reads.MappedRead{
		Read: reads.NewRead(name, []byte(bases), nil),
		AlignmentRegion: reads.AlignmentRegion{
			ReadEnd:     len(seq),
			TemplateEnd: templateLength,
			Strand:      strand,
		},
	}
}

func noisyReads() []*reads.MappedRead {
	tpl := testTemplate
	l := len(tpl)
	return []*reads.MappedRead{
		mapWhole("exact", tpl, l, dna.Forward),
		mapWhole("deletion", tpl[:10]+tpl[11:], l, dna.Reverse),
		mapWhole("substitution", tpl[:20]+"T"+tpl[21:], l, dna.Forward),
		mapWhole("insertion", tpl[:30]+"G"+tpl[30:], l, dna.Forward),
	}
}

func near(a, b, tolerance float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestTandemRepeat(t *testing.T) {
	tests := []struct {
		bases   string
		offset  int
		unit    string
		repeats int
	}{
		{"ACGTTTTGA", 3, "T", 4},
		{"ACGTTTTGA", 1, "G", 1},
		{"GACACACAT", 1, "CA", 3},
	}
	for _, test := range tests {
		unit, repeats := tandemRepeat(test.bases, test.offset)
		if unit != test.unit || repeats != test.repeats {
			t.Errorf("tandemRepeat(%v, %v) failed: got %v %v", test.bases, test.offset, unit, repeats)
		}
	}
	if gapOpenAt("ACGTTTTTTTTGA", 5) <= gapOpenAt("ACGTACGATCGGA", 5) {
		t.Error("gapOpenAt in a homopolymer failed")
	}
}

func TestLinkIdentity(t *testing.T) {
	s := New(mutation.NewTrialTemplate(testTemplate), noisyReads())
	defer s.Close()
	for i, r := range s.models {
		n := r.last - r.first
		for c := 0; c <= n; c++ {
			fwd, bwd := r.forward.view(c), r.backward.view(c)
			ll := link(&fwd, r.forward.scale[c], &bwd, r.backward.scale[c])
			if !near(ll, r.baseline, 1e-9) {
				t.Fatalf("read %v column %v: link %v, forward %v", i, c, ll, r.baseline)
			}
		}
	}
}

func shifted(mapped []*reads.MappedRead, m mutation.Mutation) []*reads.MappedRead {
	result := make([]*reads.MappedRead, len(mapped))
	for i, r := range mapped {
		c := *r
		c.Shift(m.Position, m.LengthDelta())
		result[i] = &c
	}
	return result
}

func TestScoreMutationMatchesRecompute(t *testing.T) {
	tpl := mutation.NewTrialTemplate(testTemplate)
	mapped := noisyReads()
	s := New(tpl, mapped)
	defer s.Close()
	baseline := s.BaselineScores()
	for _, m := range mutation.GenerateUniqueMutations(tpl, true) {
		scores := s.ScoreMutation(m)
		full := New(tpl.Mutate(m), shifted(mapped, m))
		for i, ll := range full.BaselineScores() {
			if expected := ll - baseline[i]; !near(scores[i], expected, 1e-8) {
				t.Errorf("ScoreMutation %v read %v failed: got %v, expected %v", m, i, scores[i], expected)
			}
		}
		full.Close()
	}
}

func TestTrueTemplateWins(t *testing.T) {
	tpl := mutation.NewTrialTemplate(testTemplate)
	var mapped []*reads.MappedRead
	for i := 0; i < 3; i++ {
		mapped = append(mapped, mapWhole("exact", testTemplate, tpl.Length(), dna.Forward))
	}
	s := New(tpl, mapped)
	defer s.Close()
	for _, m := range mutation.GenerateUniqueMutations(tpl, true) {
		var sum float64
		for _, score := range s.ScoreMutation(m) {
			sum += score
		}
		if sum >= 0 {
			t.Errorf("mutation %v of the true template scored %v", m, sum)
		}
	}
}

func TestUncoveredReads(t *testing.T) {
	tpl := mutation.NewTrialTemplate(testTemplate)
	mapped := noisyReads()
	mapped = append(mapped, &reads.MappedRead{
		Read: reads.NewRead("part", []byte(testTemplate[:12]), nil),
		AlignmentRegion: reads.AlignmentRegion{
			ReadEnd:     12,
			TemplateEnd: 12,
		},
	})
	s := New(tpl, mapped)
	defer s.Close()
	scores := s.ScoreMutation(mutation.Mutation{Position: 30, Kind: mutation.Substitution, Base: 'C'})
	if scores[4] != 0 {
		t.Error("ScoreMutation of an uncovered read failed")
	}
	if scores[0] >= 0 {
		t.Error("ScoreMutation of a covering read failed")
	}
}

func TestApplyMutations(t *testing.T) {
	tpl := mutation.NewTrialTemplate(testTemplate)
	mapped := noisyReads()
	s := New(tpl, mapped)
	defer s.Close()
	clone := s.Clone()
	defer clone.Close()

	muts := []mutation.Mutation{
		{Position: 5, Kind: mutation.Deletion},
		{Position: 25, Kind: mutation.Insertion, Base: 'T'},
	}
	clone.ApplyMutations(muts)
	if s.Template() != tpl {
		t.Error("Clone independence failed")
	}
	mutated := tpl.MutateMany(muts)
	if clone.Template() != mutated {
		t.Errorf("ApplyMutations template failed: %v", clone.Template())
	}
	for i, r := range clone.MappedReads() {
		if r.TemplateStart != 0 || r.TemplateEnd != mutated.Length() {
			t.Errorf("ApplyMutations region %v failed: %v", i, r.AlignmentRegion)
		}
		if mapped[i].TemplateEnd != tpl.Length() {
			t.Error("ApplyMutations moved the caller's regions")
		}
	}
	fresh := New(mutated, clone.MappedReads())
	defer fresh.Close()
	expected := fresh.BaselineScores()
	for i, ll := range clone.BaselineScores() {
		if !near(ll, expected[i], 1e-9) {
			t.Errorf("ApplyMutations baseline %v failed: got %v, expected %v", i, ll, expected[i])
		}
	}
}
