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
	"github.com/evolvedmicrobe/cafe-quality-sub001/align"
	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/poa"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
	"gonum.org/v1/gonum/floats"
)

const (
	// CleanInterval is how often, in reads, singleton vertices are pruned
	// while building a strand-agnostic POA.
	CleanInterval = 12
	// MinOverlapFraction scales the score a read needs to join a
	// strand-agnostic POA.
	MinOverlapFraction = 0.7
)

func extentRegion(e poa.Extent, strand dna.Strand, readLength int) reads.AlignmentRegion {
	r := reads.AlignmentRegion{
		TemplateStart: e.Start.Template,
		TemplateEnd:   e.End.Template + 1,
		Strand:        strand,
	}
	if strand == dna.Forward {
		r.ReadStart, r.ReadEnd = e.Start.Read, e.End.Read+1
	} else {
		r.ReadStart, r.ReadEnd = readLength-e.End.Read-1, readLength-e.Start.Read
	}
	return r
}

func meanLength(lengths []int) float64 {
	fl := make([]float64, len(lengths))
	for i, l := range lengths {
		fl[i] = float64(l)
	}
	return floats.Sum(fl) / float64(len(fl))
}

// ConsensusAndOverlaps builds a POA from reads of unknown strand. Each
// read joins on the strand that aligns better, or not at all when
// neither strand overlaps enough. It returns the consensus and the
// reads that joined, placed on it.
func ConsensusAndOverlaps(subreads []*reads.Read) (string, []*reads.MappedRead) {
	graph := poa.NewGraph()
	var added []*reads.Read
	var strands []dna.Strand
	for _, r := range subreads {
		fwd := r.Sequence
		if graph.NumReads() == 0 {
			graph.AddFirstRead(fwd, false)
			added, strands = append(added, r), append(strands, dna.Forward)
			continue
		}
		rev := dna.ReverseComplement(fwd)
		pFwd, pRev := graph.Propose(fwd), graph.Propose(rev)
		minScore := MinOverlapFraction * min(float64(len(fwd)), meanLength(graph.ReadLengths()))
		switch {
		case pFwd.Score > pRev.Score && float64(pFwd.Score) > minScore:
			pRev.Discard()
			pFwd.Commit()
			added, strands = append(added, r), append(strands, dna.Forward)
		case pRev.Score > pFwd.Score && float64(pRev.Score) > minScore:
			pFwd.Discard()
			pRev.Commit()
			added, strands = append(added, r), append(strands, dna.Reverse)
		default:
			pFwd.Discard()
			pRev.Discard()
			continue
		}
		if n := graph.NumReads(); n > CleanInterval && n%CleanInterval == 0 {
			graph.PruneSingletons()
		}
	}
	extents, _, seq := graph.FindConsensusAndAlignments(1)
	var mapped []*reads.MappedRead
	for id, r := range added {
		e, ok := extents[id]
		if !ok {
			continue
		}
		mapped = append(mapped, &reads.MappedRead{
			Read:            r,
			AlignmentRegion: extentRegion(e, strands[id], r.Len()),
		})
	}
	return seq, mapped
}

// MapRead places a read of unknown strand on a template. The strand with
// more chained k-mer hits is aligned locally. It returns nil when the
// read does not align.
func MapRead(r *reads.Read, template string) *reads.MappedRead {
	fwd := r.Sequence
	rev := dna.ReverseComplement(fwd)
	fwdHits := align.SparseAlign(fwd, template, poa.BandKmer)
	revHits := align.SparseAlign(rev, template, poa.BandKmer)
	strand, seq, hits := dna.Forward, fwd, fwdHits
	if len(revHits) >= len(fwdHits) {
		strand, seq, hits = dna.Reverse, rev, revHits
	}
	if len(hits) == 0 {
		return nil
	}
	local := align.SmithWaterman(seq, template)
	if local.Score <= 0 {
		return nil
	}
	m := &reads.MappedRead{
		Read: r,
		AlignmentRegion: reads.AlignmentRegion{
			TemplateStart: local.RefStart,
			TemplateEnd:   local.RefEnd,
			Strand:        strand,
		},
		Accuracy: local.Accuracy(),
	}
	if strand == dna.Forward {
		m.ReadStart, m.ReadEnd = local.QueryStart, local.QueryEnd
	} else {
		m.ReadStart, m.ReadEnd = r.Len()-local.QueryEnd, r.Len()-local.QueryStart
	}
	return m
}
