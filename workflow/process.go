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
	"fmt"

	"github.com/evolvedmicrobe/cafe-quality-sub001/assembly"
	"github.com/evolvedmicrobe/cafe-quality-sub001/internal"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/phasing"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
	"github.com/evolvedmicrobe/cafe-quality-sub001/scorer"
	"github.com/evolvedmicrobe/cafe-quality-sub001/splitter"
	log "github.com/sirupsen/logrus"
)

const (
	// preSplitIterations refine the draft before splitting.
	preSplitIterations = 3
	// splitLevels bounds the rounds of recursive splitting.
	splitLevels = 2
)

func (o *Options) tooLong(rs []*reads.Read) bool {
	for _, r := range rs {
		if r.Len() > o.MaxReadLength {
			return true
		}
	}
	return false
}

// Process turns one molecule into results. A molecule that fails with a
// panic is reported as Failed. NotConverged results are still returned.
func (o *Options) Process(m *Molecule) (results []*Result, reason Reason) {
	entry := log.WithFields(log.Fields{"molecule": m.Name, "reads": len(m.Reads)})
	defer func() {
		if r := recover(); r != nil {
			entry.Warn("molecule failed: ", internal.RecoverMessage(r))
			results, reason = nil, Failed
		}
	}()
	if o.tooLong(m.Reads) {
		return nil, TooLong
	}
	switch o.Mode {
	case CCS:
		results, reason = o.processCCS(m)
	case Phase:
		results, reason = o.processPhase(m)
	default:
		log.Panicf("unknown mode %v", o.Mode)
	}
	entry.WithFields(log.Fields{"results": len(results), "outcome": reason}).Debug("molecule done")
	return results, reason
}

func (o *Options) processCCS(m *Molecule) ([]*Result, Reason) {
	if len(m.Reads) < o.MinPasses {
		return nil, TooFewReads
	}
	zmw := reads.FromSubreads(m.Name, m.Reads, o.Adapter, o.PadBases)
	if len(zmw.InsertRegions) < o.MinPasses {
		return nil, ShortInsert
	}
	draft := assembly.Draft{Adapter: o.Adapter, PadBases: o.PadBases, StickyLength: o.StickyLength}
	tpl, regions, _, err := draft.InitialConsensusTemplate(zmw)
	if err != nil {
		return nil, NoConsensus
	}
	if tpl.Length() > o.MaxReadLength {
		return nil, TooLong
	}
	mapped := make([]*reads.MappedRead, len(regions))
	names := make([]string, len(regions))
	for i, r := range regions {
		mapped[i] = &reads.MappedRead{Read: &zmw.Read, AlignmentRegion: r}
		names[i] = fmt.Sprintf("%v/%v_%v", m.Name, r.ReadStart, r.ReadEnd)
	}

	c := phasing.New(o.Phasing, mapped, tpl, scorer.Factory, nil)
	defer c.Close()
	if _, err := c.ImproveConsensus(o.MaxIterations); err != nil {
		log.WithField("molecule", m.Name).WithError(err).Debug("refinement")
	}
	c.PolishHomopolymers()
	results := phaseResults(m, c, names)
	return results, outcome(results)
}

func (o *Options) processPhase(m *Molecule) ([]*Result, Reason) {
	if len(m.Reads) < o.Phasing.MinSplitReads {
		return nil, TooFewReads
	}
	draft, _ := assembly.ConsensusAndOverlaps(m.Reads[:min(len(m.Reads), o.POAReads)])
	if draft == "" {
		return nil, NoConsensus
	}
	if len(draft) > o.MaxReadLength {
		return nil, TooLong
	}
	var mapped []*reads.MappedRead
	for _, r := range m.Reads {
		if mr := assembly.MapRead(r, draft); mr != nil {
			mapped = append(mapped, mr)
		}
	}
	rng := internal.NewRand(int64(internal.StringHash(m.Name)))
	sample := make([]*reads.MappedRead, 0, min(len(mapped), o.PhasingReads))
	for _, i := range internal.Reservoir(rng, len(mapped), o.PhasingReads) {
		sample = append(sample, mapped[i])
	}
	if len(sample) < o.Phasing.MinSplitReads {
		return nil, Unmappable
	}

	c := phasing.New(o.Phasing, sample, mutation.NewTrialTemplate(draft), scorer.Factory, splitter.New(o.Splitter))
	defer c.Close()
	_, _ = c.ImproveConsensus(preSplitIterations)
	if o.Split {
		if n := c.RecursiveSplit(splitLevels); n > 1 {
			log.WithFields(log.Fields{"molecule": m.Name, "phases": n}).Info("split into haplotypes")
		}
	}
	if _, err := c.ImproveConsensus(o.MaxIterations); err != nil {
		log.WithField("molecule", m.Name).WithError(err).Debug("refinement")
	}
	names := make([]string, len(sample))
	for i, mr := range sample {
		names[i] = mr.Read.Name
	}
	results := phaseResults(m, c, names)
	if o.SortByCoverage {
		sortByCoverage(results)
	}
	return LabelDuplicates(results), outcome(results)
}

func outcome(results []*Result) Reason {
	for _, r := range results {
		if !r.Converged {
			return NotConverged
		}
	}
	return Accepted
}
