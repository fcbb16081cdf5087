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
	"math"
	"sync"

	"github.com/exascience/pargo/parallel"
)

type float64Matrix struct {
	cols  int
	array []float64
}

func (m *float64Matrix) ensureSize(rows, cols int) {
	m.cols = cols
	totalSize := rows * cols
	if totalSize <= cap(m.array) {
		m.array = m.array[:totalSize]
		clear(m.array)
	} else {
		m.array = make([]float64, totalSize)
	}
}

func (m *float64Matrix) rowView(row int) []float64 {
	offset := row * m.cols
	return m.array[offset : offset+m.cols]
}

// column is one template column of a banded lattice. Slices are indexed
// by read row minus lo. start and end are the states before the first
// and after the last read base.
type column struct {
	lo                         int
	match, insertion, deletion []float64
	start, end                 float64
}

func (c *column) at(v []float64, row int) float64 {
	k := row - c.lo
	if k < 0 || k >= len(v) {
		return 0
	}
	return v[k]
}

func (c *column) clear() {
	clear(c.match)
	clear(c.insertion)
	clear(c.deletion)
	c.start, c.end = 0, 0
}

// normalize divides the column by its largest entry and returns the log
// of the divisor.
func (c *column) normalize() float64 {
	mx := max(c.start, c.end)
	for k := range c.match {
		mx = max(mx, c.match[k], c.insertion[k], c.deletion[k])
	}
	if mx <= 0 {
		return 0
	}
	inv := 1 / mx
	for k := range c.match {
		c.match[k] *= inv
		c.insertion[k] *= inv
		c.deletion[k] *= inv
	}
	c.start *= inv
	c.end *= inv
	return math.Log(mx)
}

// lattice holds the scaled forward or backward variables of one read
// against its template window, one row per template column.
type lattice struct {
	match, insertion, deletion float64Matrix
	lo                         []int
	start, end, scale          []float64
}

var latticePool = sync.Pool{New: func() interface{} { return new(lattice) }}

func getLattice() *lattice {
	return latticePool.Get().(*lattice)
}

func putLattice(l *lattice) {
	latticePool.Put(l)
}

func resizeInts(s []int, n int) []int {
	if n <= cap(s) {
		return s[:n]
	}
	return make([]int, n)
}

func resizeFloats(s []float64, n int) []float64 {
	if n <= cap(s) {
		s = s[:n]
		clear(s)
		return s
	}
	return make([]float64, n)
}

func (l *lattice) ensureSize(columns, height int) {
	parallel.Do(
		func() { l.match.ensureSize(columns, height) },
		func() { l.insertion.ensureSize(columns, height) },
		func() { l.deletion.ensureSize(columns, height) },
	)
	l.lo = resizeInts(l.lo, columns)
	l.start = resizeFloats(l.start, columns)
	l.end = resizeFloats(l.end, columns)
	l.scale = resizeFloats(l.scale, columns)
}

// view returns column c; start and end are copied, so changes to them
// must be stored back with store.
func (l *lattice) view(c int) column {
	return column{
		lo:        l.lo[c],
		match:     l.match.rowView(c),
		insertion: l.insertion.rowView(c),
		deletion:  l.deletion.rowView(c),
		start:     l.start[c],
		end:       l.end[c],
	}
}

func (l *lattice) store(c int, col *column) {
	l.lo[c] = col.lo
	l.start[c] = col.start
	l.end[c] = col.end
}

// scratch holds two rolling columns for rescoring a read locally.
type scratch struct {
	cols [2]column
}

var scratchPool = sync.Pool{New: func() interface{} { return new(scratch) }}

func getScratch(height int) *scratch {
	s := scratchPool.Get().(*scratch)
	for i := range s.cols {
		c := &s.cols[i]
		if cap(c.match) < height {
			c.match = make([]float64, height)
			c.insertion = make([]float64, height)
			c.deletion = make([]float64, height)
		} else {
			c.match = c.match[:height]
			c.insertion = c.insertion[:height]
			c.deletion = c.deletion[:height]
		}
	}
	return s
}

func putScratch(s *scratch) {
	scratchPool.Put(s)
}
