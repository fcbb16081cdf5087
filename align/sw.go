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

package align

import (
	"math"
	"sync"
)

// Scores of the local aligner. Indels are the dominant error in long
// reads, so gaps are cheap relative to mismatches.
const (
	MatchValue       int32 = 2
	MismatchPenalty  int32 = -3
	GapOpenPenalty   int32 = -3
	GapExtendPenalty int32 = -2
)

// Local is the result of a local alignment. Ends are exclusive.
type Local struct {
	QueryStart, QueryEnd int
	RefStart, RefEnd     int
	Score                int
	Matches, Columns     int
}

// Accuracy is the fraction of alignment columns that are matches.
func (l Local) Accuracy() float64 {
	if l.Columns == 0 {
		return 0
	}
	return float64(l.Matches) / float64(l.Columns)
}

// swCell carries, next to the score, where the alignment ending in this
// cell started and how many of its columns are matches. That keeps the
// memory linear in the reference length without a backtrack matrix.
type swCell struct {
	score            int32
	queryStart       int32
	refStart         int32
	matches, columns int32
}

const lowInitValue = math.MinInt32 / 2

var emptyCell = swCell{score: lowInitValue}

type smithWatermanVectors struct {
	lastRow, curRow, bestGapV []swCell
}

var smithWatermanVectorsPool = sync.Pool{New: func() interface{} { return &smithWatermanVectors{} }}

func getSmithWatermanVectors() *smithWatermanVectors {
	return smithWatermanVectorsPool.Get().(*smithWatermanVectors)
}

func putSmithWatermanVectors(sw *smithWatermanVectors) {
	smithWatermanVectorsPool.Put(sw)
}

func ensureVector(v []swCell, sz int, initValue swCell) (result []swCell) {
	if sz <= cap(v) {
		result = v[:sz]
	} else {
		result = make([]swCell, sz)
	}
	for i := range result {
		result[i] = initValue
	}
	return
}

func better(a, b swCell) bool {
	return a.score > b.score
}

// SmithWaterman computes the best local alignment of query against ref
// with affine gaps. Ties prefer diagonal steps, then horizontal, then
// vertical, and the first best cell in row-major order.
func SmithWaterman(query, ref string) (best Local) {
	sw := getSmithWatermanVectors()
	defer putSmithWatermanVectors(sw)

	ncol := len(ref) + 1
	sw.lastRow = ensureVector(sw.lastRow, ncol, swCell{})
	sw.curRow = ensureVector(sw.curRow, ncol, swCell{})
	sw.bestGapV = ensureVector(sw.bestGapV, ncol, emptyCell)

	var bestCell swCell
	bestI, bestJ := 0, 0

	for i := 1; i <= len(query); i++ {
		qBase := query[i-1]
		lastRow, curRow := sw.lastRow, sw.curRow
		curRow[0] = swCell{queryStart: int32(i), refStart: 0}
		bestGapH := emptyCell

		for j := 1; j < ncol; j++ {
			diag := lastRow[j-1]
			if diag.score <= 0 {
				diag = swCell{queryStart: int32(i - 1), refStart: int32(j - 1)}
			}
			diag.columns++
			if qBase == ref[j-1] {
				diag.score += MatchValue
				diag.matches++
			} else {
				diag.score += MismatchPenalty
			}

			gapV := sw.bestGapV[j]
			gapV.score += GapExtendPenalty
			if open := lastRow[j]; open.score+GapOpenPenalty > gapV.score {
				gapV = open
				gapV.score += GapOpenPenalty
			}
			gapV.columns++
			sw.bestGapV[j] = gapV

			gapH := bestGapH
			gapH.score += GapExtendPenalty
			if open := curRow[j-1]; open.score+GapOpenPenalty > gapH.score {
				gapH = open
				gapH.score += GapOpenPenalty
			}
			gapH.columns++
			bestGapH = gapH

			cell := diag
			if better(gapH, cell) {
				cell = gapH
			}
			if better(gapV, cell) {
				cell = gapV
			}
			if cell.score <= 0 {
				cell = swCell{queryStart: int32(i), refStart: int32(j)}
			}
			curRow[j] = cell
			if cell.score > bestCell.score {
				bestCell, bestI, bestJ = cell, i, j
			}
		}
		sw.lastRow, sw.curRow = curRow, lastRow
	}

	if bestCell.score <= 0 {
		return Local{}
	}
	return Local{
		QueryStart: int(bestCell.queryStart),
		QueryEnd:   bestI,
		RefStart:   int(bestCell.refStart),
		RefEnd:     bestJ,
		Score:      int(bestCell.score),
		Matches:    int(bestCell.matches),
		Columns:    int(bestCell.columns),
	}
}
