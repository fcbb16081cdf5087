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
	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	log "github.com/sirupsen/logrus"
)

// TrialTemplate is a candidate template sequence. The first
// StartAdapterBases and the last EndAdapterBases bases are copied from
// the adapter and are never mutated.
type TrialTemplate struct {
	Sequence          string
	StartAdapterBases int
	EndAdapterBases   int
}

// NewTrialTemplate returns a template without adapter flanks.
func NewTrialTemplate(sequence string) TrialTemplate {
	return TrialTemplate{Sequence: sequence}
}

// Length of the full template, flanks included.
func (t TrialTemplate) Length() int {
	return len(t.Sequence)
}

// GetSequence returns the template as read on the given strand.
func (t TrialTemplate) GetSequence(strand dna.Strand) string {
	switch strand {
	case dna.Forward:
		return t.Sequence
	case dna.Reverse:
		return dna.ReverseComplement(t.Sequence)
	default:
		log.Panicf("unrecognized strand %v", strand)
		return ""
	}
}

// InsertSequence is the template without its adapter flanks.
func (t TrialTemplate) InsertSequence() string {
	return t.Sequence[t.StartAdapterBases : len(t.Sequence)-t.EndAdapterBases]
}

func (t TrialTemplate) checkFlanks(m Mutation) {
	end := len(t.Sequence) - t.EndAdapterBases
	if m.Position < t.StartAdapterBases ||
		(m.Kind == Insertion && m.Position > end) ||
		(m.Kind != Insertion && m.Position >= end) {
		log.Panicf("mutation %v touches the adapter flanks [%v, %v) of a template of length %v",
			m, t.StartAdapterBases, end, len(t.Sequence))
	}
}

// Mutate returns a new template with m applied.
func (t TrialTemplate) Mutate(m Mutation) TrialTemplate {
	t.checkFlanks(m)
	return TrialTemplate{
		Sequence:          m.Apply(t.Sequence),
		StartAdapterBases: t.StartAdapterBases,
		EndAdapterBases:   t.EndAdapterBases,
	}
}

// MutateMany returns a new template with all mutations applied, see ApplyMany.
func (t TrialTemplate) MutateMany(mutations []Mutation) TrialTemplate {
	for _, m := range mutations {
		t.checkFlanks(m)
	}
	return TrialTemplate{
		Sequence:          ApplyMany(mutations, t.Sequence),
		StartAdapterBases: t.StartAdapterBases,
		EndAdapterBases:   t.EndAdapterBases,
	}
}
