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

package scorer

import (
	"strings"
)

const (
	// MaxRepeatUnit is the longest tandem repeat unit considered.
	MaxRepeatUnit = 8
	// MaxRepeatLength caps the repeat count of a tandem repeat.
	MaxRepeatLength = 20
	// RepeatContext is how many template bases on either side of a
	// position are inspected for tandem repeats.
	RepeatContext = 16
)

func forwardRepetitions(repeatUnit, testString string) (repeats int) {
	for len(testString) >= len(repeatUnit) && strings.HasPrefix(testString, repeatUnit) {
		repeats++
		testString = testString[len(repeatUnit):]
	}
	return repeats
}

func backwardRepetitions(repeatUnit, testString string) (repeats int) {
	for len(testString) >= len(repeatUnit) && strings.HasSuffix(testString, repeatUnit) {
		repeats++
		testString = testString[:len(testString)-len(repeatUnit)]
	}
	return repeats
}

// tandemRepeat returns the repeat unit at offset and how often it is
// repeated around offset. Units ending at offset are tried first, then
// units starting right after it.
func tandemRepeat(bases string, offset int) (unit string, repeats int) {
	offset1 := offset + 1
	var backward int
	backwardUnit := bases[offset:offset1]
	for size := 1; size <= MaxRepeatUnit; size++ {
		start := offset1 - size
		if start < 0 {
			break
		}
		candidate := bases[start:offset1]
		backward = backwardRepetitions(candidate, bases[:offset1])
		if backward > 1 {
			backwardUnit = candidate
			break
		}
	}
	unit, repeats = backwardUnit, backward

	if offset1 < len(bases) {
		var forward int
		forwardUnit := bases[offset1 : offset1+1]
		for size := 1; size <= MaxRepeatUnit; size++ {
			end := offset1 + size
			if end > len(bases) {
				break
			}
			candidate := bases[offset1:end]
			forward = forwardRepetitions(candidate, bases[offset1:])
			if forward > 1 {
				forwardUnit = candidate
				break
			}
		}
		if forwardUnit != backwardUnit {
			backward = backwardRepetitions(forwardUnit, bases[:offset1])
		}
		unit, repeats = forwardUnit, forward+backward
	}
	return unit, min(repeats, MaxRepeatLength)
}

var gapOpenByRepeats [MaxRepeatLength + 1]float64

func init() {
	for r := range gapOpenByRepeats {
		gapOpenByRepeats[r] = min(MaxGapOpen, BaseGapOpen*float64(1+r))
	}
}

// gapOpenAt is the indel opening probability at a template position. It
// grows with the tandem repeat around the position, looking no further
// than RepeatContext bases either way.
func gapOpenAt(tpl string, pos int) float64 {
	lo := max(0, pos-RepeatContext)
	hi := min(len(tpl), pos+RepeatContext+1)
	_, repeats := tandemRepeat(tpl[lo:hi], pos-lo)
	return gapOpenByRepeats[repeats]
}

// gapOpens returns gapOpenAt for every position in [from, to).
func gapOpens(tpl string, from, to int) []float64 {
	result := make([]float64, to-from)
	for i := range result {
		result[i] = gapOpenAt(tpl, from+i)
	}
	return result
}
