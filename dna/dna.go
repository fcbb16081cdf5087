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

// Package dna holds the nucleotide alphabet and strand helpers shared by
// the consensus packages.
package dna

// Bases is the order used for per-base tables.
const Bases = "ACGT"

var complementTable = [256]byte{}

var upperTable = [256]byte{}

func init() {
	for i := range complementTable {
		complementTable[i] = 'N'
		upperTable[i] = 'N'
	}
	for _, p := range [][2]byte{
		{'A', 'T'}, {'C', 'G'}, {'G', 'C'}, {'T', 'A'},
		{'a', 't'}, {'c', 'g'}, {'g', 'c'}, {'t', 'a'},
		{'N', 'N'}, {'n', 'n'}, {'-', '-'},
	} {
		complementTable[p[0]] = p[1]
	}
	for _, b := range []byte("ACGTacgt") {
		upperTable[b] = b &^ 0x20
	}
}

// Complement returns the Watson-Crick partner of base. Unknown codes map to N.
func Complement(base byte) byte {
	return complementTable[base]
}

// ToUpperAndN converts a base to upper case, and normalizes ambiguity
// codes to N.
func ToUpperAndN(base byte) byte {
	return upperTable[base]
}

// Normalize applies ToUpperAndN to every base of seq, in place.
func Normalize(seq []byte) []byte {
	for i, b := range seq {
		seq[i] = upperTable[b]
	}
	return seq
}

// ReverseComplement returns the reverse complement of seq.
func ReverseComplement(seq string) string {
	n := len(seq)
	result := make([]byte, n)
	for i := 0; i < n; i++ {
		result[n-1-i] = complementTable[seq[i]]
	}
	return string(result)
}

// ReverseBytes returns a reversed copy of s.
func ReverseBytes(s []byte) []byte {
	n := len(s)
	result := make([]byte, n)
	for i, b := range s {
		result[n-1-i] = b
	}
	return result
}

// BaseCode maps A, C, G, T to 0..3, and everything else to -1.
func BaseCode(base byte) int {
	switch base {
	case 'A':
		return 0
	case 'C':
		return 1
	case 'G':
		return 2
	case 'T':
		return 3
	default:
		return -1
	}
}

// IsBase is true for A, C, G and T.
func IsBase(base byte) bool {
	return BaseCode(base) >= 0
}

// Strand is the orientation of a read relative to a template.
type Strand int8

const (
	Forward Strand = iota
	Reverse
)

func (s Strand) String() string {
	switch s {
	case Forward:
		return "forward"
	case Reverse:
		return "reverse"
	default:
		return "unknown"
	}
}

// Opposite returns the other strand.
func (s Strand) Opposite() Strand {
	if s == Forward {
		return Reverse
	}
	return Forward
}
