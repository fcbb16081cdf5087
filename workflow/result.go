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
	"math"
	"sort"
	"strings"

	"github.com/evolvedmicrobe/cafe-quality-sub001/consensus"
	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	"github.com/evolvedmicrobe/cafe-quality-sub001/phasing"
	"github.com/google/uuid"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// A Result is the consensus of one phase of a molecule.
type Result struct {
	ID       uuid.UUID
	Molecule string
	Phase    int
	// Name is <molecule>/phase<k>/reads<n>.
	Name     string
	Sequence string
	// Stats are per base of Sequence.
	Stats []phasing.BaseStats
	// Coverage is the rounded sum of the mapping posteriors of the phase.
	Coverage          int
	PredictedAccuracy float64
	Converged         bool
	// DuplicateOf names an earlier result containing this one.
	DuplicateOf string
	// Reads are the names of the reads the phase holds.
	Reads []string
}

// phaseResults builds a result per phase. names are those of the reads
// of the pool the controller was built from.
func phaseResults(m *Molecule, c *phasing.Controller, names []string) []*Result {
	posteriors := c.MappingPosteriors()
	converged := c.Converged()
	stats := c.ConsensusStats()
	phaseReads := c.PhaseReads()
	templates := c.Templates()
	results := make([]*Result, len(templates))
	for p, tpl := range templates {
		coverage := int(math.Round(floats.Sum(posteriors[p])))
		insert := stats[p][tpl.StartAdapterBases : tpl.Length()-tpl.EndAdapterBases]
		errs := make([]float64, len(insert))
		for i, s := range insert {
			errs[i] = consensus.PhredProb(float64(s.QV))
		}
		r := &Result{
			ID:                uuid.New(),
			Molecule:          m.Name,
			Phase:             p,
			Name:              fmt.Sprintf("%v/phase%v/reads%v", m.Name, p, coverage),
			Sequence:          tpl.InsertSequence(),
			Stats:             insert,
			Coverage:          coverage,
			PredictedAccuracy: 1 - stat.Mean(errs, nil),
			Converged:         converged[p],
		}
		for _, i := range phaseReads[p] {
			r.Reads = append(r.Reads, names[i])
		}
		results[p] = r
	}
	return results
}

func sortByCoverage(results []*Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Coverage > results[j].Coverage
	})
	for p, r := range results {
		r.Phase = p
		r.Name = fmt.Sprintf("%v/phase%v/reads%v", r.Molecule, p, r.Coverage)
	}
}

func contains(outer, inner string) bool {
	return strings.Contains(outer, inner) || strings.Contains(outer, dna.ReverseComplement(inner))
}

// LabelDuplicates marks a result whose sequence, or its reverse
// complement, lies within an earlier unlabelled result as a duplicate of
// it, and the earlier result as a duplicate of a later one that contains
// it.
func LabelDuplicates(results []*Result) []*Result {
	for i, ri := range results {
		if ri.DuplicateOf != "" {
			continue
		}
		for _, rj := range results[i+1:] {
			if rj.DuplicateOf != "" {
				continue
			}
			if contains(ri.Sequence, rj.Sequence) {
				rj.DuplicateOf = ri.Name
			} else if contains(rj.Sequence, ri.Sequence) {
				ri.DuplicateOf = rj.Name
			}
		}
	}
	return results
}
