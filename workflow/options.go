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

// Package workflow turns groups of subreads into consensus results, one
// molecule at a time, and writes them out.
package workflow

import (
	"fmt"
	"strings"

	"github.com/evolvedmicrobe/cafe-quality-sub001/assembly"
	"github.com/evolvedmicrobe/cafe-quality-sub001/phasing"
	"github.com/evolvedmicrobe/cafe-quality-sub001/splitter"
)

// Mode selects how the subreads of a molecule are put together.
type Mode int

const (
	// CCS treats the subreads as ordered passes of one polymerase read,
	// alternating in strand.
	CCS Mode = iota
	// Phase treats the subreads as reads of unknown strand of a mixture
	// of haplotypes.
	Phase
)

func (m Mode) String() string {
	switch m {
	case CCS:
		return "ccs"
	case Phase:
		return "phase"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode is the inverse of Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "ccs":
		return CCS, nil
	case "phase":
		return Phase, nil
	default:
		return 0, fmt.Errorf("unknown mode %q", s)
	}
}

// DefaultAdapter is the hairpin adapter joining consecutive passes.
const DefaultAdapter = "ATCTCTCTCTTTTCCTCCTCCTCCGTTGTTGTTGTTGAGAGAGAT"

// Options control the processing of molecules.
type Options struct {
	Mode Mode
	// Adapter joins the passes of a polymerase read in CCS mode.
	Adapter string
	// PadBases is the number of adapter bases kept next to an insert.
	PadBases int
	// StickyLength snaps alignment ends this close to an adapter onto it.
	StickyLength int
	// MinPasses is the number of insert passes a CCS molecule needs.
	MinPasses int
	// MaxIterations bounds the final refinement.
	MaxIterations int
	// POAReads is the number of reads the phasing draft is built from.
	POAReads int
	// PhasingReads caps the reads used for phasing.
	PhasingReads int
	// MaxReadLength rejects molecules with longer reads or templates.
	MaxReadLength int
	// Split enables haplotype splitting in Phase mode.
	Split bool
	// SortByCoverage orders the phases of a molecule by coverage.
	SortByCoverage bool
	// SingleCluster puts every input record into one molecule.
	SingleCluster bool
	Phasing       phasing.Config
	Splitter      splitter.Config
}

// DefaultOptions returns the default options for the given mode.
func DefaultOptions(mode Mode) Options {
	return Options{
		Mode:          mode,
		Adapter:       DefaultAdapter,
		PadBases:      4,
		StickyLength:  assembly.DefaultStickyLength,
		MinPasses:     3,
		MaxIterations: 15,
		POAReads:      30,
		PhasingReads:  500,
		MaxReadLength: 50000,
		Split:         true,
		Phasing:       phasing.DefaultConfig(),
		Splitter:      splitter.DefaultConfig(),
	}
}

// Validate checks the options before any molecule is processed.
func (o *Options) Validate() error {
	switch {
	case o.MinPasses < 1:
		return fmt.Errorf("minimum passes must be at least 1, got %v", o.MinPasses)
	case o.MaxIterations < 0:
		return fmt.Errorf("maximum iterations must not be negative, got %v", o.MaxIterations)
	case o.POAReads < 1:
		return fmt.Errorf("POA reads must be at least 1, got %v", o.POAReads)
	case o.PhasingReads < 1:
		return fmt.Errorf("phasing reads must be at least 1, got %v", o.PhasingReads)
	case o.PadBases < 0:
		return fmt.Errorf("pad bases must not be negative, got %v", o.PadBases)
	case o.StickyLength < 0:
		return fmt.Errorf("sticky length must not be negative, got %v", o.StickyLength)
	}
	return o.Phasing.Validate()
}
