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

// Package scorer scores reads against a template with a banded pair-HMM
// and rescores them under single-base edits of the template.
package scorer

import (
	"sort"

	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/phasing"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
	"github.com/exascience/pargo/parallel"
	log "github.com/sirupsen/logrus"
)

// Scorer holds a template and the reads mapped to it. A mapped read
// contributes its log-likelihood given the template window it covers.
type Scorer struct {
	template mutation.TrialTemplate
	gapOpen  []float64
	models   []*readModel
}

// New returns a scorer over copies of the mapped reads, so that later
// template edits do not move the caller's regions.
func New(tpl mutation.TrialTemplate, mapped []*reads.MappedRead) *Scorer {
	s := &Scorer{
		template: tpl,
		models:   make([]*readModel, len(mapped)),
	}
	for i, m := range mapped {
		c := *m
		s.models[i] = newReadModel(&c)
	}
	s.refill()
	return s
}

// Factory creates scorers for the phasing controller.
func Factory(tpl mutation.TrialTemplate, mapped []*reads.MappedRead) phasing.Scorer {
	return New(tpl, mapped)
}

func (s *Scorer) refill() {
	s.gapOpen = gapOpens(s.template.Sequence, 0, s.template.Length())
	parallel.Range(0, len(s.models), 0, func(low, high int) {
		for _, r := range s.models[low:high] {
			r.fill(s.template.Sequence, s.gapOpen)
		}
	})
}

// Template is the current template.
func (s *Scorer) Template() mutation.TrialTemplate {
	return s.template
}

// BaselineScores are the per-read log-likelihoods against the template.
func (s *Scorer) BaselineScores() []float64 {
	result := make([]float64, len(s.models))
	for i, r := range s.models {
		result[i] = r.baseline
	}
	return result
}

// ScoreMutation returns, per read, the change in log-likelihood when m
// is applied. Reads that do not cover the position score 0.
func (s *Scorer) ScoreMutation(m mutation.Mutation) []float64 {
	edit := newLocalEdit(s.template.Sequence, m)
	result := make([]float64, len(s.models))
	parallel.Range(0, len(s.models), 0, func(low, high int) {
		for i := low; i < high; i++ {
			if r := s.models[i]; r.covers(m.Position) {
				sc := getScratch(r.height)
				result[i] = r.score(edit, sc)
				putScratch(sc)
			}
		}
	})
	return result
}

// ApplyMutations edits the template and moves the read regions with it.
// Positions refer to the template before the call.
func (s *Scorer) ApplyMutations(mutations []mutation.Mutation) {
	if len(mutations) == 0 {
		return
	}
	s.template = s.template.MutateMany(mutations)
	sorted := make([]mutation.Mutation, len(mutations))
	copy(sorted, mutations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})
	for _, m := range sorted {
		for _, r := range s.models {
			r.read.Shift(m.Position, m.LengthDelta())
		}
	}
	s.refill()
	log.WithField("template", s.template.Length()).Debug("applied mutations")
}

// MappedReads are the reads with regions on the current template.
func (s *Scorer) MappedReads() []*reads.MappedRead {
	result := make([]*reads.MappedRead, len(s.models))
	for i, r := range s.models {
		result[i] = r.read
	}
	return result
}

// Clone returns an independent scorer with the same template and reads.
func (s *Scorer) Clone() phasing.Scorer {
	return New(s.template, s.MappedReads())
}

// Close releases the pooled lattices. The scorer must not be used
// afterwards.
func (s *Scorer) Close() {
	for _, r := range s.models {
		r.release()
	}
	s.models = nil
}
