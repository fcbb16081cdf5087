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

package reads

import (
	"fmt"
	"strings"

	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	log "github.com/sirupsen/logrus"
)

// DefaultQV is the quality assigned to bases read without qualities.
const DefaultQV = 15

// A Read is a named sequence with per-base phred qualities.
type Read struct {
	Name     string
	Sequence string
	QVs      []byte
}

// NewRead returns a read with normalized bases. When qvs is nil, every
// base gets DefaultQV.
func NewRead(name string, seq []byte, qvs []byte) *Read {
	bases := dna.Normalize(append([]byte(nil), seq...))
	if qvs == nil {
		qvs = make([]byte, len(bases))
		for i := range qvs {
			qvs[i] = DefaultQV
		}
	} else if len(qvs) != len(bases) {
		log.Panicf("read %v has %v bases but %v qualities", name, len(bases), len(qvs))
	}
	return &Read{Name: name, Sequence: string(bases), QVs: qvs}
}

// Len returns the number of bases in the read.
func (r *Read) Len() int {
	return len(r.Sequence)
}

// A Region is a half-open interval of a read that covers one pass over
// the insert, with the strand it was read from and whether an adapter
// was found on either side.
type Region struct {
	Start, End       int
	Strand           dna.Strand
	AdapterHitBefore bool
	AdapterHitAfter  bool
}

// Length returns End - Start.
func (r Region) Length() int {
	return r.End - r.Start
}

// A Zmw is a polymerase read partitioned into passes over the insert.
// PaddedRegions extend the insert regions into adjacent adapters.
type Zmw struct {
	Read
	InsertRegions []Region
	PaddedRegions []Region
}

// MinInsertSize is the shortest pass kept as an insert region.
const MinInsertSize = 10

// FromSubreads reconstructs a polymerase read from consecutive passes,
// joined by the adapter. Passes alternate strand starting with Forward.
// The padded regions reach padBases into every adapter that borders a
// pass.
func FromSubreads(name string, subreads []*Read, adapter string, padBases int) *Zmw {
	padBases = min(padBases, len(adapter))
	var seq strings.Builder
	var qvs []byte
	zmw := &Zmw{}
	strand := dna.Forward
	for i, sr := range subreads {
		if i > 0 {
			seq.WriteString(adapter)
			for range adapter {
				qvs = append(qvs, DefaultQV)
			}
		}
		start := seq.Len()
		seq.WriteString(sr.Sequence)
		qvs = append(qvs, sr.QVs...)
		if sr.Len() >= MinInsertSize {
			reg := Region{
				Start:            start,
				End:              seq.Len(),
				Strand:           strand,
				AdapterHitBefore: i > 0,
				AdapterHitAfter:  i < len(subreads)-1,
			}
			padded := reg
			if padded.AdapterHitBefore {
				padded.Start -= padBases
			}
			if padded.AdapterHitAfter {
				padded.End += padBases
			}
			zmw.InsertRegions = append(zmw.InsertRegions, reg)
			zmw.PaddedRegions = append(zmw.PaddedRegions, padded)
		}
		strand = strand.Opposite()
	}
	zmw.Name = name
	zmw.Sequence = seq.String()
	zmw.QVs = qvs
	return zmw
}

// An AlignmentRegion maps the half-open read interval
// [ReadStart, ReadEnd) onto the half-open template interval
// [TemplateStart, TemplateEnd).
type AlignmentRegion struct {
	ReadStart, ReadEnd         int
	TemplateStart, TemplateEnd int
	Strand                     dna.Strand
	AdapterHitBefore           bool
	AdapterHitAfter            bool
}

// ReadLength returns the number of read bases in the region.
func (r AlignmentRegion) ReadLength() int {
	return r.ReadEnd - r.ReadStart
}

// TemplateLength returns the number of template bases in the region.
func (r AlignmentRegion) TemplateLength() int {
	return r.TemplateEnd - r.TemplateStart
}

func (r AlignmentRegion) String() string {
	return fmt.Sprintf("%v-%v:%v-%v(%v)", r.ReadStart, r.ReadEnd, r.TemplateStart, r.TemplateEnd, r.Strand)
}

// A MappedRead is a region of a read placed on a template.
type MappedRead struct {
	Read *Read
	AlignmentRegion
	Accuracy float64
}

// Extract returns the bases and qualities of the mapped region, oriented
// along the forward template strand. The qualities may share storage
// with the read.
func (m *MappedRead) Extract() (seq string, qvs []byte) {
	seq = m.Read.Sequence[m.ReadStart:m.ReadEnd]
	qvs = m.Read.QVs[m.ReadStart:m.ReadEnd]
	if m.Strand == dna.Reverse {
		seq = dna.ReverseComplement(seq)
		qvs = dna.ReverseBytes(qvs)
	}
	return seq, qvs
}

// Shift moves the template interval to account for a template edit of
// the given length delta at pos.
func (m *MappedRead) Shift(pos, delta int) {
	if delta == 0 {
		return
	}
	if m.TemplateStart > pos {
		m.TemplateStart = max(pos, m.TemplateStart+delta)
	}
	if m.TemplateEnd > pos {
		m.TemplateEnd = max(pos, m.TemplateEnd+delta)
	}
}
