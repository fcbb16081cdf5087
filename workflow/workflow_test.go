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

package workflow

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/phasing"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
)

const insert = "TTTACAGGATAGTGCCGCCAATCTTCCAGTGATACCCCGTGCCGCCAATCTTCCAGTATATACAGCACGAGTAGC"

func passes(n int) *Molecule {
	m := &Molecule{Name: "movie/7"}
	for i := 0; i < n; i++ {
		seq := insert
		if i%2 == 1 {
			seq = dna.ReverseComplement(insert)
		}
		m.Reads = append(m.Reads, reads.NewRead("movie/7/"+string(rune('a'+i)), []byte(seq), nil))
	}
	return m
}

func TestMoleculeName(t *testing.T) {
	for _, test := range []struct{ name, molecule string }{
		{"m54006/4194/0_1512", "m54006/4194"},
		{"m54006/4194/ccs", "m54006/4194"},
		{"m54006/4194", "m54006/4194"},
		{"read1", "read1"},
	} {
		if got := MoleculeName(test.name); got != test.molecule {
			t.Errorf("MoleculeName(%v) failed: %v", test.name, got)
		}
	}
}

func TestParseMode(t *testing.T) {
	for _, mode := range []Mode{CCS, Phase} {
		if parsed, err := ParseMode(mode.String()); err != nil || parsed != mode {
			t.Errorf("ParseMode(%v) failed", mode)
		}
	}
	if _, err := ParseMode("quiver"); err == nil {
		t.Error("ParseMode of an unknown mode failed")
	}
}

func TestFormatOf(t *testing.T) {
	if FormatOf("out.fastq.gz") != FASTQ || FormatOf("out.FQ") != FASTQ || FormatOf("out.fasta") != FASTA || FormatOf("out") != FASTA {
		t.Error("FormatOf failed")
	}
}

func TestLabelDuplicates(t *testing.T) {
	results := []*Result{
		{Name: "a", Sequence: "ACGTTGCA"},
		{Name: "b", Sequence: dna.ReverseComplement("GTTG")},
		{Name: "c", Sequence: "TTTTTACGTTGCAGGGG"},
		{Name: "d", Sequence: "CCCCCC"},
	}
	LabelDuplicates(results)
	if results[0].DuplicateOf != "c" || results[1].DuplicateOf != "a" || results[2].DuplicateOf != "" || results[3].DuplicateOf != "" {
		t.Errorf("LabelDuplicates failed: %q %q %q %q", results[0].DuplicateOf, results[1].DuplicateOf, results[2].DuplicateOf, results[3].DuplicateOf)
	}
}

func TestProcessCCS(t *testing.T) {
	opts := DefaultOptions(CCS)
	results, reason := opts.Process(passes(4))
	if reason != Accepted || len(results) != 1 {
		t.Fatalf("Process failed: %v %v", reason, len(results))
	}
	r := results[0]
	if r.Sequence != insert || len(r.Stats) != len(insert) || !r.Converged {
		t.Errorf("CCS consensus failed: %v %v", r.Sequence, r.Converged)
	}
	if r.Name != "movie/7/phase0/reads4" || len(r.Reads) != 4 || r.Coverage != 4 || !strings.HasPrefix(r.Reads[0], "movie/7/") {
		t.Errorf("CCS result naming failed: %v %v", r.Name, r.Reads)
	}
	if r.PredictedAccuracy <= 0.9 {
		t.Errorf("CCS accuracy failed: %v", r.PredictedAccuracy)
	}
	for i, s := range r.Stats {
		if s.Base != insert[i] {
			t.Fatalf("CCS stats failed at %v", i)
		}
	}
}

func TestProcessRejections(t *testing.T) {
	opts := DefaultOptions(CCS)
	if _, reason := opts.Process(passes(2)); reason != TooFewReads {
		t.Errorf("CCS with two passes failed: %v", reason)
	}
	opts.MaxReadLength = 20
	if _, reason := opts.Process(passes(4)); reason != TooLong {
		t.Errorf("CCS with long reads failed: %v", reason)
	}
	opts = DefaultOptions(Phase)
	if _, reason := opts.Process(passes(4)); reason != TooFewReads {
		t.Errorf("phasing with four reads failed: %v", reason)
	}
}

func TestCounters(t *testing.T) {
	var c Counters
	c.Add(TooFewReads)
	c.Add(TooFewReads)
	c.Add(Accepted)
	c.AddResults(3)
	if c.Count(TooFewReads) != 2 || c.Count(Accepted) != 1 || c.Count(Failed) != 0 || c.Results() != 3 {
		t.Error("Counters failed")
	}
	if Reason(-1).String() != "unknown" || NoConsensus.String() != "no POA consensus" {
		t.Error("Reason.String failed")
	}
}

func TestSequenceWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewSequenceWriter(&buf, FASTQ)
	r := &Result{
		Name:      "m/1/phase0/reads3",
		Sequence:  "ACG",
		Converged: true,
		Stats:     []phasing.BaseStats{{QV: 0, Base: 'A'}, {QV: 30, Base: 'C'}, {QV: 93, Base: 'G'}},
	}
	if err := w.Write([]*Result{r}); err != nil {
		t.Fatal(err)
	}
	if err := w.Flush(); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 || !strings.HasPrefix(lines[0], "@m/1/phase0/reads3 ") || lines[1] != "ACG" || lines[3] != "!?~" {
		t.Errorf("FASTQ output failed: %q", buf.String())
	}
}

func TestReadMolecules(t *testing.T) {
	path := filepath.Join(t.TempDir(), "subreads.fq")
	data := "@m/1/0_4\nACGT\n+\nIIII\n@m/2/0_3\nGGA\n+\n!!!\n@m/1/5_9\nTTGA\n+\n####\n"
	if err := os.WriteFile(path, []byte(data), 0666); err != nil {
		t.Fatal(err)
	}
	molecules, err := ReadMolecules(path, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(molecules) != 2 || molecules[0].Name != "m/1" || len(molecules[0].Reads) != 2 || molecules[1].Name != "m/2" {
		t.Fatalf("ReadMolecules grouping failed: %v", molecules)
	}
	first := molecules[0].Reads[0]
	if first.Name != "m/1/0_4" || first.Sequence != "ACGT" || first.QVs[0] != 40 || molecules[0].Reads[1].QVs[0] != 2 {
		t.Errorf("ReadMolecules record failed: %+v", first)
	}
	single, err := ReadMolecules(path, true)
	if err != nil || len(single) != 1 || len(single[0].Reads) != 3 {
		t.Error("ReadMolecules single cluster failed")
	}
}

func TestValidateOptions(t *testing.T) {
	for _, mode := range []Mode{CCS, Phase} {
		opts := DefaultOptions(mode)
		if err := opts.Validate(); err != nil {
			t.Errorf("Validate of the %v defaults failed: %v", mode, err)
		}
	}
	opts := DefaultOptions(Phase)
	opts.Phasing.MinSplitReads = 0
	if opts.Validate() == nil {
		t.Error("Validate of zero minimum split reads failed")
	}
	dir := t.TempDir()
	if _, err := Run(opts, filepath.Join(dir, "missing.fq"), filepath.Join(dir, "out.fa"), ""); err == nil || !strings.Contains(err.Error(), "minimum split reads") {
		t.Errorf("Run with invalid options failed: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "out.fa")); err == nil {
		t.Error("Run with invalid options created its output")
	}
}
