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
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/evolvedmicrobe/cafe-quality-sub001/consensus"
	"github.com/evolvedmicrobe/cafe-quality-sub001/internal"
)

// lineWidth wraps FASTA sequences.
const lineWidth = 70

// A ResultWriter formats results.
type ResultWriter interface {
	Write(results []*Result) error
	Flush() error
}

// Format is an output format for results.
type Format int

const (
	FASTA Format = iota
	FASTQ
)

// FormatOf derives the output format from a file name; anything ending
// in .fq or .fastq, optionally followed by .gz, is FASTQ.
func FormatOf(path string) Format {
	path = strings.TrimSuffix(strings.ToLower(path), ".gz")
	switch filepath.Ext(path) {
	case ".fq", ".fastq":
		return FASTQ
	default:
		return FASTA
	}
}

type sequenceWriter struct {
	w      *bufio.Writer
	format Format
}

// NewSequenceWriter writes results as FASTA or FASTQ records.
func NewSequenceWriter(w io.Writer, format Format) ResultWriter {
	return &sequenceWriter{w: bufio.NewWriter(w), format: format}
}

func header(r *Result) string {
	h := fmt.Sprintf("%v id=%v accuracy=%.5f converged=%v", r.Name, r.ID, r.PredictedAccuracy, r.Converged)
	if r.DuplicateOf != "" {
		h += " duplicate=" + r.DuplicateOf
	}
	return h
}

func (s *sequenceWriter) Write(results []*Result) error {
	for _, r := range results {
		var err error
		switch s.format {
		case FASTQ:
			qvs := internal.ReserveByteBuffer()
			for _, st := range r.Stats {
				qvs = append(qvs, min(st.QV, consensus.MaxQV)+phredOffset)
			}
			_, err = fmt.Fprintf(s.w, "@%v\n%v\n+\n%s\n", header(r), r.Sequence, qvs)
			internal.ReleaseByteBuffer(qvs)
		default:
			_, err = fmt.Fprintf(s.w, ">%v\n", header(r))
			for i := 0; i < len(r.Sequence) && err == nil; i += lineWidth {
				_, err = fmt.Fprintln(s.w, r.Sequence[i:min(len(r.Sequence), i+lineWidth)])
			}
		}
		if err != nil {
			return fmt.Errorf("writing %v: %w", r.Name, err)
		}
	}
	return nil
}

func (s *sequenceWriter) Flush() error {
	return s.w.Flush()
}

type statsWriter struct {
	w *csv.Writer
}

// NewStatsWriter writes one CSV row per base of every result.
func NewStatsWriter(w io.Writer) ResultWriter {
	cw := csv.NewWriter(w)
	_ = cw.Write([]string{"name", "position", "base", "qv", "coverage"})
	return &statsWriter{w: cw}
}

func (s *statsWriter) Write(results []*Result) error {
	for _, r := range results {
		for i, st := range r.Stats {
			record := []string{
				r.Name,
				strconv.Itoa(i),
				string(st.Base),
				strconv.Itoa(int(st.QV)),
				strconv.Itoa(st.Coverage),
			}
			if err := s.w.Write(record); err != nil {
				return fmt.Errorf("writing stats of %v: %w", r.Name, err)
			}
		}
	}
	return nil
}

func (s *statsWriter) Flush() error {
	s.w.Flush()
	return s.w.Error()
}
