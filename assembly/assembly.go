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

// Package assembly builds draft templates from subreads with a partial
// order alignment and places reads on them.
package assembly

import (
	"errors"
	"sort"

	"github.com/evolvedmicrobe/cafe-quality-sub001/consensus"
	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/poa"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
	"gonum.org/v1/gonum/stat"
)

const (
	// DefaultStickyLength is how close an alignment extent must come to an
	// end of the template and of the read to be snapped to an adapter.
	DefaultStickyLength = 15
	// MinAlignedBases is the shortest read extent kept in a draft.
	MinAlignedBases = 15
)

// Draft holds the parameters of InitialConsensusTemplate.
type Draft struct {
	Adapter      string
	PadBases     int
	StickyLength int
}

// NewDraft returns draft parameters with the default sticky length.
func NewDraft(adapter string, padBases int) Draft {
	return Draft{Adapter: adapter, PadBases: padBases, StickyLength: DefaultStickyLength}
}

// ErrNoConsensus is returned when no read aligns usefully to the draft.
var ErrNoConsensus = errors.New("no consensus")

// predictedAccuracy ranks an insert region by its base qualities and by
// how far its length strays from the average insert.
func predictedAccuracy(zmw *reads.Zmw, reg reads.Region, avgLength float64) float64 {
	l := reg.Length()
	if l <= 0 {
		return 0
	}
	errs := make([]float64, l)
	for i, qv := range zmw.QVs[reg.Start:reg.End] {
		errs[i] = consensus.PhredProb(float64(qv))
	}
	fl := float64(l)
	return (1 - stat.Mean(errs, nil)) * min(fl/avgLength, avgLength/fl)
}

type sides struct {
	left, right bool
}

// stickyEnds checks whether an extent reaches both ends of its read and
// of the consensus on the side of an adapter hit.
func stickyEnds(reg reads.Region, e poa.Extent, consensusLength, sticky int) (s sides) {
	adapterLeft, adapterRight := reg.AdapterHitBefore, reg.AdapterHitAfter
	if reg.Strand == dna.Reverse {
		adapterLeft, adapterRight = adapterRight, adapterLeft
	}
	s.left = adapterLeft && e.Start.Template < sticky && e.Start.Read < sticky
	s.right = adapterRight && consensusLength-e.End.Template < sticky && reg.Length()-e.End.Read < sticky
	return s
}

// InitialConsensusTemplate computes a draft template of the insert of a
// polymerase read, and the regions of the read that align to it. Ends of
// the draft that some pass reaches next to an adapter get padBases of
// the adapter attached, and are protected as adapter flanks.
func InitialConsensusTemplate(zmw *reads.Zmw, adapter string, padBases int) (tpl mutation.TrialTemplate, regions []reads.AlignmentRegion, score float64, err error) {
	return NewDraft(adapter, padBases).InitialConsensusTemplate(zmw)
}

// InitialConsensusTemplate is the package function with the parameters
// of d.
func (d Draft) InitialConsensusTemplate(zmw *reads.Zmw) (tpl mutation.TrialTemplate, regions []reads.AlignmentRegion, score float64, err error) {
	adapter, padBases := d.Adapter, d.PadBases
	n := len(zmw.InsertRegions)
	if n == 0 {
		return tpl, nil, 0, ErrNoConsensus
	}
	var total float64
	for _, reg := range zmw.InsertRegions {
		total += float64(max(0, reg.Length()))
	}
	avgLength := total / float64(n)
	order := make([]int, n)
	accuracy := make([]float64, n)
	for i, reg := range zmw.InsertRegions {
		order[i] = i
		accuracy[i] = predictedAccuracy(zmw, reg, avgLength)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return accuracy[order[i]] > accuracy[order[j]]
	})

	graph := poa.NewGraph()
	for _, index := range order {
		reg := zmw.InsertRegions[index]
		seq := zmw.Sequence[reg.Start:max(reg.Start, reg.End)]
		if reg.Strand == dna.Reverse {
			seq = dna.ReverseComplement(seq)
		}
		graph.AddRead(seq)
	}
	extents, score, draft := graph.FindConsensusAndAlignments(1)

	usable := func(id int) (poa.Extent, bool) {
		e, ok := extents[id]
		return e, ok && e.End.Read-e.Start.Read >= MinAlignedBases
	}
	var padLeft, padRight bool
	for id, index := range order {
		if e, ok := usable(id); ok {
			s := stickyEnds(zmw.InsertRegions[index], e, len(draft), d.StickyLength)
			padLeft = padLeft || s.left
			padRight = padRight || s.right
		}
	}
	padBases = min(padBases, len(adapter))
	offset := 0
	seq := draft
	if padLeft {
		seq = adapter[len(adapter)-padBases:] + seq
		tpl.StartAdapterBases = padBases
		offset = padBases
	}
	if padRight {
		seq += adapter[:padBases]
		tpl.EndAdapterBases = padBases
	}
	tpl.Sequence = seq

	for id, index := range order {
		e, ok := usable(id)
		if !ok {
			continue
		}
		reg, padded := zmw.InsertRegions[index], zmw.PaddedRegions[index]
		s := stickyEnds(reg, e, len(draft), d.StickyLength)
		r := reads.AlignmentRegion{
			TemplateStart: e.Start.Template + offset,
			TemplateEnd:   e.End.Template + offset + 1,
			Strand:        reg.Strand,
		}
		if reg.Strand == dna.Forward {
			r.ReadStart = reg.Start + e.Start.Read
			r.ReadEnd = reg.Start + e.End.Read + 1
			if s.left {
				r.ReadStart, r.TemplateStart, r.AdapterHitBefore = padded.Start, 0, true
			}
			if s.right {
				r.ReadEnd, r.TemplateEnd, r.AdapterHitAfter = padded.End, len(seq), true
			}
		} else {
			r.ReadStart = reg.Start + reg.Length() - e.End.Read - 1
			r.ReadEnd = reg.Start + reg.Length() - e.Start.Read
			if s.left {
				r.ReadEnd, r.TemplateStart, r.AdapterHitAfter = padded.End, 0, true
			}
			if s.right {
				r.ReadStart, r.TemplateEnd, r.AdapterHitBefore = padded.Start, len(seq), true
			}
		}
		regions = append(regions, r)
	}
	if len(regions) == 0 {
		return tpl, nil, score, ErrNoConsensus
	}
	return tpl, regions, score, nil
}
