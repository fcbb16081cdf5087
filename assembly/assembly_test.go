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

package assembly

import (
	"testing"

	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
)

const (
	insert    = "TTTACAGGATAGTGCCGCCAATCTTCCAGTGATACCCCGTGCCGCCAATCTTCCAGTATATACAGCACGAGTAGC"
	unrelated = "GGGGCCCCAAAATTTTGCGCGCGCATATATATCGCGAATTCC"
	adapter   = "ATCTCTCTCAACAACAACAACGGAGGAGGAGGAAAAGAGAGAGAT"
)

func TestInitialConsensusTemplate(t *testing.T) {
	const pad = 3
	passes := []*reads.Read{
		reads.NewRead("m/1/0", []byte(insert), nil),
		reads.NewRead("m/1/1", []byte(dna.ReverseComplement(insert)), nil),
		reads.NewRead("m/1/2", []byte(insert), nil),
	}
	zmw := reads.FromSubreads("m/1", passes, adapter, pad)
	tpl, regions, _, err := InitialConsensusTemplate(zmw, adapter, pad)
	if err != nil {
		t.Fatal(err)
	}
	if tpl.InsertSequence() != insert || tpl.StartAdapterBases != pad || tpl.EndAdapterBases != pad {
		t.Fatalf("InitialConsensusTemplate failed: %+v", tpl)
	}
	if tpl.Sequence[:pad] != adapter[len(adapter)-pad:] || tpl.Sequence[tpl.Length()-pad:] != adapter[:pad] {
		t.Error("adapter padding failed")
	}
	if len(regions) != 3 {
		t.Fatalf("InitialConsensusTemplate regions failed: %v", regions)
	}
	l := len(insert)
	first, second, third := zmw.InsertRegions[0], zmw.InsertRegions[1], zmw.InsertRegions[2]
	expected := []reads.AlignmentRegion{
		{ReadStart: 0, ReadEnd: first.End + pad, TemplateStart: pad, TemplateEnd: l + 2*pad, Strand: dna.Forward, AdapterHitAfter: true},
		{ReadStart: second.Start - pad, ReadEnd: second.End + pad, TemplateStart: 0, TemplateEnd: l + 2*pad, Strand: dna.Reverse, AdapterHitBefore: true, AdapterHitAfter: true},
		{ReadStart: third.Start - pad, ReadEnd: third.End, TemplateStart: 0, TemplateEnd: l + pad, Strand: dna.Forward, AdapterHitBefore: true},
	}
	for i, r := range regions {
		if r != expected[i] {
			t.Errorf("region %v failed: got %v, expected %v", i, r, expected[i])
		}
	}
}

func TestInitialConsensusTemplateWithoutAdapters(t *testing.T) {
	zmw := &reads.Zmw{
		Read:          *reads.NewRead("m/2", []byte(insert), nil),
		InsertRegions: []reads.Region{{Start: 0, End: len(insert), Strand: dna.Forward}},
	}
	zmw.PaddedRegions = zmw.InsertRegions
	tpl, regions, _, err := InitialConsensusTemplate(zmw, adapter, 3)
	if err != nil {
		t.Fatal(err)
	}
	if tpl.Sequence != insert || tpl.StartAdapterBases != 0 || tpl.EndAdapterBases != 0 {
		t.Errorf("unpadded template failed: %+v", tpl)
	}
	if len(regions) != 1 || regions[0].ReadEnd != len(insert) || regions[0].TemplateEnd != len(insert) {
		t.Errorf("unpadded regions failed: %v", regions)
	}
	if _, _, _, err := InitialConsensusTemplate(&reads.Zmw{}, adapter, 3); err != ErrNoConsensus {
		t.Error("empty zmw failed")
	}
}

func TestConsensusAndOverlaps(t *testing.T) {
	subreads := []*reads.Read{
		reads.NewRead("a", []byte(insert), nil),
		reads.NewRead("b", []byte(dna.ReverseComplement(insert)), nil),
		reads.NewRead("c", []byte(insert), nil),
		reads.NewRead("d", []byte(unrelated), nil),
	}
	seq, mapped := ConsensusAndOverlaps(subreads)
	if seq != insert {
		t.Errorf("ConsensusAndOverlaps consensus failed: %v", seq)
	}
	if len(mapped) != 3 {
		t.Fatalf("ConsensusAndOverlaps failed: %v reads", len(mapped))
	}
	for i, m := range mapped {
		if m.Read != subreads[i] || m.ReadLength() != len(insert) || m.TemplateLength() != len(insert) {
			t.Errorf("mapped read %v failed: %v", i, m.AlignmentRegion)
		}
		if s, _ := m.Extract(); s != insert {
			t.Errorf("mapped read %v orientation failed", i)
		}
	}
	if mapped[1].Strand != dna.Reverse || mapped[2].Strand != dna.Forward {
		t.Error("ConsensusAndOverlaps strands failed")
	}
}

func TestMapRead(t *testing.T) {
	r := reads.NewRead("r", []byte(dna.ReverseComplement(insert[10:50])), nil)
	m := MapRead(r, insert)
	if m == nil {
		t.Fatal("MapRead failed")
	}
	if m.Strand != dna.Reverse || m.TemplateStart != 10 || m.TemplateEnd != 50 || m.ReadStart != 0 || m.ReadEnd != 40 || m.Accuracy != 1 {
		t.Errorf("MapRead reverse failed: %v %v", m.AlignmentRegion, m.Accuracy)
	}
	r = reads.NewRead("f", []byte("GGGGG"+insert[20:70]), nil)
	if m = MapRead(r, insert); m == nil || m.Strand != dna.Forward || m.TemplateStart != 20 || m.TemplateEnd != 70 || m.ReadStart != 5 {
		t.Errorf("MapRead forward failed: %v", m)
	}
	if MapRead(reads.NewRead("n", []byte("ACGT"), nil), insert) != nil {
		t.Error("MapRead of a short read failed")
	}
}
