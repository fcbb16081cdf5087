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
	"testing"

	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
)

func TestApply(t *testing.T) {
	tpl := "ACGTACGT"
	tests := []struct {
		m        Mutation
		expected string
	}{
		{Mutation{Position: 0, Kind: Insertion, Base: 'T'}, "TACGTACGT"},
		{Mutation{Position: 8, Kind: Insertion, Base: 'T'}, "ACGTACGTT"},
		{Mutation{Position: 2, Kind: Deletion}, "ACTACGT"},
		{Mutation{Position: 7, Kind: Substitution, Base: 'A'}, "ACGTACGA"},
	}
	for _, test := range tests {
		if got := test.m.Apply(tpl); got != test.expected {
			t.Errorf("Apply %v failed: got %v, expected %v", test.m, got, test.expected)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	tpl := "TTTACAGGATAGTCCAGT"
	for pos := 0; pos < len(tpl); pos++ {
		for i := 0; i < len(dna.Bases); i++ {
			b := dna.Bases[i]
			sub := Mutation{Position: pos, Kind: Substitution, Base: b}
			back := Mutation{Position: pos, Kind: Substitution, Base: tpl[pos]}
			if back.Apply(sub.Apply(tpl)) != tpl {
				t.Error("substitution round trip failed")
			}
			ins := Mutation{Position: pos, Kind: Insertion, Base: b}
			del := Mutation{Position: pos, Kind: Deletion}
			if del.Apply(ins.Apply(tpl)) != tpl {
				t.Error("insertion/deletion round trip failed")
			}
		}
	}
}

func TestApplyMany(t *testing.T) {
	tpl := "AAAACCCCGGGGTTTT"
	muts := []Mutation{
		{Position: 1, Kind: Deletion},
		{Position: 13, Kind: Substitution, Base: 'A'},
		{Position: 6, Kind: Insertion, Base: 'T'},
	}
	expected := "AAACCTCCGGGGTATT"
	if got := ApplyMany(muts, tpl); got != expected {
		t.Errorf("ApplyMany failed: got %v, expected %v", got, expected)
	}
	if muts[0].Position != 1 {
		t.Error("ApplyMany must not reorder its argument")
	}
	if TotalLengthDelta(muts) != 0 {
		t.Error("TotalLengthDelta failed")
	}
}

func TestStrandConvert(t *testing.T) {
	tpl := "AACGTTGCAT"
	rc := dna.ReverseComplement(tpl)
	muts := []Mutation{
		{Position: 3, Kind: Substitution, Base: 'A'},
		{Position: 0, Kind: Insertion, Base: 'G'},
		{Position: 10, Kind: Insertion, Base: 'C'},
		{Position: 5, Kind: Insertion, Base: 'A'},
		{Position: 9, Kind: Deletion},
	}
	for _, m := range muts {
		fw := m.Apply(tpl)
		rv := m.StrandConvert(dna.Reverse, len(tpl)).Apply(rc)
		if dna.ReverseComplement(fw) != rv {
			t.Errorf("StrandConvert %v failed", m)
		}
		if m.StrandConvert(dna.Forward, len(tpl)) != m {
			t.Error("StrandConvert forward failed")
		}
	}
}

func TestInvariantViolations(t *testing.T) {
	expectPanic := func(name string, f func()) {
		defer func() {
			if recover() == nil {
				t.Errorf("%v did not panic", name)
			}
		}()
		f()
	}
	expectPanic("unknown kind", func() { Mutation{Position: 1, Kind: Kind(7)}.Apply("ACGT") })
	expectPanic("out of bounds", func() { Mutation{Position: 4, Kind: Deletion}.Apply("ACGT") })
	expectPanic("bad strand", func() { NewTrialTemplate("ACGT").GetSequence(dna.Strand(5)) })
	flanked := TrialTemplate{Sequence: "AAAACCCCTTTT", StartAdapterBases: 4, EndAdapterBases: 4}
	expectPanic("start flank", func() { flanked.Mutate(Mutation{Position: 3, Kind: Substitution, Base: 'C'}) })
	expectPanic("end flank", func() { flanked.Mutate(Mutation{Position: 8, Kind: Deletion}) })
}

func TestTrialTemplate(t *testing.T) {
	tpl := TrialTemplate{Sequence: "GGGACGTACCC", StartAdapterBases: 3, EndAdapterBases: 3}
	if tpl.InsertSequence() != "ACGTA" {
		t.Error("InsertSequence failed")
	}
	if tpl.GetSequence(dna.Reverse) != "GGGTACGTCCC" {
		t.Error("GetSequence failed")
	}
	m := tpl.Mutate(Mutation{Position: 8, Kind: Insertion, Base: 'T'})
	if m.Sequence != "GGGACGTATCCC" || m.StartAdapterBases != 3 || m.EndAdapterBases != 3 {
		t.Error("Mutate failed")
	}
	if tpl.Sequence != "GGGACGTACCC" {
		t.Error("Mutate changed its receiver")
	}
	mm := tpl.MutateMany([]Mutation{{Position: 3, Kind: Deletion}, {Position: 6, Kind: Substitution, Base: 'A'}})
	if mm.Sequence != "GGGCGAACCC" {
		t.Errorf("MutateMany failed: %v", mm.Sequence)
	}
}
