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

// Package mutation models single-base edits to a template, generates
// candidate edits, and selects non-interfering subsets of them.
package mutation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/evolvedmicrobe/cafe-quality-sub001/dna"
	log "github.com/sirupsen/logrus"
)

// Kind is the type of edit.
type Kind int8

const (
	Insertion Kind = iota
	Deletion
	Substitution
)

func (k Kind) String() string {
	switch k {
	case Insertion:
		return "Ins"
	case Deletion:
		return "Del"
	case Substitution:
		return "Sub"
	default:
		return fmt.Sprintf("Kind(%d)", int8(k))
	}
}

// Mutation is an edit at a template position. An insertion at Position
// places Base before the base currently at Position.
type Mutation struct {
	Position int
	Kind     Kind
	Base     byte
}

func (m Mutation) String() string {
	if m.Kind == Deletion {
		return fmt.Sprintf("%v@%d", m.Kind, m.Position)
	}
	return fmt.Sprintf("%v@%d:%c", m.Kind, m.Position, m.Base)
}

// LengthDelta is the change in template length caused by m.
func (m Mutation) LengthDelta() int {
	switch m.Kind {
	case Insertion:
		return 1
	case Deletion:
		return -1
	case Substitution:
		return 0
	default:
		log.Panicf("unknown mutation kind %v", m.Kind)
		return 0
	}
}

func (m Mutation) checkBounds(length int) {
	switch m.Kind {
	case Insertion:
		if m.Position < 0 || m.Position > length {
			log.Panicf("mutation %v out of bounds for template of length %v", m, length)
		}
	case Deletion, Substitution:
		if m.Position < 0 || m.Position >= length {
			log.Panicf("mutation %v out of bounds for template of length %v", m, length)
		}
	default:
		log.Panicf("unknown mutation kind %v", m.Kind)
	}
}

func (m Mutation) applyTo(buf []byte) []byte {
	switch m.Kind {
	case Insertion:
		buf = append(buf, 0)
		copy(buf[m.Position+1:], buf[m.Position:])
		buf[m.Position] = m.Base
	case Deletion:
		buf = append(buf[:m.Position], buf[m.Position+1:]...)
	case Substitution:
		buf[m.Position] = m.Base
	}
	return buf
}

// Apply returns tpl with m applied.
func (m Mutation) Apply(tpl string) string {
	m.checkBounds(len(tpl))
	var sb strings.Builder
	sb.Grow(len(tpl) + 1)
	switch m.Kind {
	case Insertion:
		sb.WriteString(tpl[:m.Position])
		sb.WriteByte(m.Base)
		sb.WriteString(tpl[m.Position:])
	case Deletion:
		sb.WriteString(tpl[:m.Position])
		sb.WriteString(tpl[m.Position+1:])
	case Substitution:
		sb.WriteString(tpl[:m.Position])
		sb.WriteByte(m.Base)
		sb.WriteString(tpl[m.Position+1:])
	}
	return sb.String()
}

// ApplyMany applies all mutations to tpl. Positions refer to tpl before
// any of the edits; mutations are applied from the back so they stay
// valid. Mutations closer than 2 bases to each other are not supported.
func ApplyMany(mutations []Mutation, tpl string) string {
	sorted := make([]Mutation, len(mutations))
	copy(sorted, mutations)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Position > sorted[j].Position
	})
	buf := make([]byte, len(tpl), len(tpl)+len(sorted))
	copy(buf, tpl)
	for _, m := range sorted {
		m.checkBounds(len(buf))
		buf = m.applyTo(buf)
	}
	return string(buf)
}

// IsSynonymous is true for a substitution to the base already present.
func (m Mutation) IsSynonymous(tpl string) bool {
	return m.Kind == Substitution && m.Position < len(tpl) && tpl[m.Position] == m.Base
}

// StrandConvert maps a mutation on the forward strand of a template of
// the given length to the equivalent mutation on the requested strand.
func (m Mutation) StrandConvert(strand dna.Strand, length int) Mutation {
	switch strand {
	case dna.Forward:
		return m
	case dna.Reverse:
		result := Mutation{Kind: m.Kind, Base: m.Base}
		switch m.Kind {
		case Insertion:
			result.Position = length - m.Position
			result.Base = dna.Complement(m.Base)
		case Substitution:
			result.Position = length - m.Position - 1
			result.Base = dna.Complement(m.Base)
		case Deletion:
			result.Position = length - m.Position - 1
		default:
			log.Panicf("unknown mutation kind %v", m.Kind)
		}
		return result
	default:
		log.Panicf("unrecognized strand %v", strand)
		return m
	}
}

// TotalLengthDelta sums LengthDelta over mutations.
func TotalLengthDelta(mutations []Mutation) (delta int) {
	for _, m := range mutations {
		delta += m.LengthDelta()
	}
	return
}
