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

	"github.com/evolvedmicrobe/cafe-quality-sub001/consensus"
	"github.com/evolvedmicrobe/cafe-quality-sub001/mutation"
	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
)

// Pair-HMM parameters.
const (
	GapExtend       = 0.15
	InsertEmission  = 0.25
	BaseGapOpen     = 0.02
	MaxGapOpen      = 0.15
	MinErrorProb    = 1e-4
	MaxErrorProb    = 0.5
	MaxBandWidth    = 200
	MinBandWidth    = 24
	WindowPadding   = 8
	bandWidthFactor = 25
)

// readModel aligns one mapped read against the window of the template it
// covers. Read rows run from 0 (before the first base) to len(bases);
// template columns likewise over the window.
type readModel struct {
	read              *reads.MappedRead
	bases             string
	match, mismatch   []float64
	first, last       int // template window [first, last)
	width, height     int
	forward, backward *lattice
	baseline          float64
}

func newReadModel(read *reads.MappedRead) *readModel {
	seq, qvs := read.Extract()
	r := &readModel{
		read:     read,
		bases:    seq,
		match:    make([]float64, len(seq)),
		mismatch: make([]float64, len(seq)),
	}
	for i, qv := range qvs {
		e := min(MaxErrorProb, max(MinErrorProb, consensus.PhredProb(float64(qv))))
		r.match[i], r.mismatch[i] = 1-e, e/3
	}
	r.width = min(MaxBandWidth, MinBandWidth+len(seq)/bandWidthFactor)
	r.height = 2*r.width + 1
	return r
}

func (r *readModel) emit(row int, base byte) float64 {
	if r.bases[row] == base {
		return r.match[row]
	}
	return r.mismatch[row]
}

// usable reports whether the read has a non-empty window to align to.
func (r *readModel) usable() bool {
	return len(r.bases) > 0 && r.last > r.first
}

func (r *readModel) setWindow(templateLength int) {
	r.first = max(0, r.read.TemplateStart-WindowPadding)
	r.last = min(templateLength, r.read.TemplateEnd+WindowPadding)
}

// covers reports whether a mutation at template position pos is seen by
// the read.
func (r *readModel) covers(pos int) bool {
	return r.usable() && pos >= r.first && pos < r.last
}

// bandStart is the first read row of the band of column c out of n
// window columns. The band follows the diagonal of the window.
func (r *readModel) bandStart(c, n int) int {
	m := len(r.bases)
	diagonal := 0
	if n > 0 {
		diagonal = (c*m + n/2) / n
	}
	return min(max(0, diagonal-r.width), max(0, m-r.height+1))
}

func (r *readModel) bandEnd(lo int) int {
	return min(len(r.bases), lo+r.height-1)
}

// forwardColumn fills cur from prev, which is nil for column 0. tpl is
// the window template and gapOpen holds its per-column opening
// probabilities. It returns the log scale of the column.
func (r *readModel) forwardColumn(tpl string, gapOpen func(int) float64, c int, prev, cur *column) float64 {
	m := len(r.bases)
	cur.clear()
	if prev == nil {
		cur.start = 1
	} else {
		cur.start = prev.start
		cur.end = prev.end + prev.at(prev.match, m) + prev.at(prev.insertion, m)
	}
	var d float64
	if prev != nil {
		d = gapOpen(c - 1)
	}
	dc := gapOpen(c)
	hi := r.bandEnd(cur.lo)
	for i := max(1, cur.lo); i <= hi; i++ {
		k := i - cur.lo
		if prev != nil {
			v := prev.at(prev.match, i-1)*(1-2*d) +
				(prev.at(prev.insertion, i-1)+prev.at(prev.deletion, i-1))*(1-GapExtend)
			if i == 1 {
				v += prev.start * (1 - d)
			}
			cur.match[k] = r.emit(i-1, tpl[c-1]) * v
			cur.deletion[k] = prev.at(prev.match, i)*d + prev.at(prev.deletion, i)*GapExtend
		}
		ins := cur.at(cur.match, i-1)*dc + cur.at(cur.insertion, i-1)*GapExtend
		if i == 1 {
			ins += cur.start * dc
		}
		cur.insertion[k] = InsertEmission * ins
	}
	return cur.normalize()
}

// backwardColumn fills cur from next, which is nil for the last column.
// nextScale is the log scale of next. It returns the log scale of cur.
func (r *readModel) backwardColumn(tpl string, gapOpen func(int) float64, c int, next, cur *column, nextScale float64) float64 {
	m, n := len(r.bases), len(tpl)
	cur.clear()
	hi := r.bandEnd(cur.lo)
	var w float64
	if next != nil {
		w = nextScale
	}
	if hi == m {
		w = max(w, 0)
	}
	var f float64
	if next != nil {
		f = math.Exp(nextScale - w)
	}
	endWeight := math.Exp(-w)
	dc := gapOpen(c)
	for i := hi; i >= max(1, cur.lo); i-- {
		k := i - cur.lo
		var bm, bi, bd float64
		if i == m {
			bm += endWeight
			bi += endWeight
		} else {
			if c < n {
				nm := next.at(next.match, i+1) * f * r.emit(i, tpl[c])
				bm += (1 - 2*dc) * nm
				bi += (1 - GapExtend) * nm
				bd += (1 - GapExtend) * nm
			}
			ni := InsertEmission * cur.at(cur.insertion, i+1)
			bm += dc * ni
			bi += GapExtend * ni
		}
		if c < n {
			nd := next.at(next.deletion, i) * f
			bm += dc * nd
			bd += GapExtend * nd
		}
		cur.match[k], cur.insertion[k], cur.deletion[k] = bm, bi, bd
	}
	if c < n {
		cur.start += next.start*f + (1-dc)*r.emit(0, tpl[c])*next.at(next.match, 1)*f
	}
	cur.start += dc * InsertEmission * cur.at(cur.insertion, 1)
	return w + cur.normalize()
}

func (r *readModel) total(col *column, scale float64) float64 {
	m := len(r.bases)
	return math.Log(col.end+col.at(col.match, m)+col.at(col.insertion, m)) + scale
}

func logSumExp(a, b float64) float64 {
	if math.IsInf(a, -1) {
		return b
	}
	if math.IsInf(b, -1) {
		return a
	}
	mx := max(a, b)
	return mx + math.Log(math.Exp(a-mx)+math.Exp(b-mx))
}

// link joins a forward and a backward column of the same template column
// into the total log-likelihood.
func link(fwd *column, fwdScale float64, bwd *column, bwdScale float64) float64 {
	x := fwd.start * bwd.start
	for k := range fwd.match {
		row := fwd.lo + k
		x += fwd.match[k]*bwd.at(bwd.match, row) + fwd.deletion[k]*bwd.at(bwd.deletion, row)
	}
	return fwdScale + logSumExp(math.Log(x)+bwdScale, math.Log(fwd.end))
}

// fill computes both lattices of the read against tpl.
func (r *readModel) fill(tpl string, gapOpen []float64) {
	r.setWindow(len(tpl))
	if !r.usable() {
		r.baseline = 0
		return
	}
	window := tpl[r.first:r.last]
	n := len(window)
	last := len(tpl) - 1
	windowGapOpen := func(c int) float64 {
		return gapOpen[min(r.first+c, last)]
	}
	if r.forward == nil {
		r.forward, r.backward = getLattice(), getLattice()
	}
	r.forward.ensureSize(n+1, r.height)
	r.backward.ensureSize(n+1, r.height)

	var prev column
	for c := 0; c <= n; c++ {
		col := r.forward.view(c)
		col.lo = r.bandStart(c, n)
		var scale float64
		if c == 0 {
			scale = r.forwardColumn(window, windowGapOpen, c, nil, &col)
		} else {
			scale = r.forward.scale[c-1] + r.forwardColumn(window, windowGapOpen, c, &prev, &col)
		}
		r.forward.store(c, &col)
		r.forward.scale[c] = scale
		prev = col
	}
	fin := r.forward.view(n)
	r.baseline = r.total(&fin, r.forward.scale[n])

	var next column
	for c := n; c >= 0; c-- {
		col := r.backward.view(c)
		col.lo = r.bandStart(c, n)
		if c == n {
			r.backward.scale[c] = r.backwardColumn(window, windowGapOpen, c, nil, &col, 0)
		} else {
			r.backward.scale[c] = r.backwardColumn(window, windowGapOpen, c, &next, &col, r.backward.scale[c+1])
		}
		r.backward.store(c, &col)
		next = col
	}
}

// release returns the lattices to their pool.
func (r *readModel) release() {
	if r.forward != nil {
		putLattice(r.forward)
		putLattice(r.backward)
		r.forward, r.backward = nil, nil
	}
}

// localEdit describes a mutated template shared by all reads scoring it.
type localEdit struct {
	mutation.Mutation
	delta    int
	template string
	gapOpen  []float64 // mutated gap opens over [gapFrom, gapFrom+len)
	gapFrom  int
}

func newLocalEdit(tpl string, m mutation.Mutation) *localEdit {
	e := &localEdit{
		Mutation: m,
		delta:    m.LengthDelta(),
		template: m.Apply(tpl),
	}
	e.gapFrom = max(0, m.Position-RepeatContext-2)
	to := min(len(e.template), m.Position+RepeatContext+4)
	e.gapOpen = gapOpens(e.template, e.gapFrom, max(e.gapFrom, to))
	return e
}

func (e *localEdit) gapOpenAt(pos int) float64 {
	if k := pos - e.gapFrom; k >= 0 && k < len(e.gapOpen) {
		return e.gapOpen[k]
	}
	return gapOpenAt(e.template, pos)
}

// score is the change in log-likelihood of the read when the template is
// edited. Only the columns whose variables can change are recomputed;
// the result is linked to the stored backward lattice past the edit.
func (r *readModel) score(e *localEdit, sc *scratch) float64 {
	if !r.covers(e.Position) {
		return 0
	}
	n := r.last - r.first
	n2 := n + e.delta
	window := e.template[r.first : r.last+e.delta]
	pc := e.Position - r.first
	last := len(e.template) - 1
	gapOpen := func(c int) float64 {
		return e.gapOpenAt(min(r.first+c, last))
	}
	bandStart := func(c int) int {
		if c <= pc {
			return r.bandStart(c, n)
		}
		return r.bandStart(min(n, max(0, c-e.delta)), n)
	}

	c0 := pc - RepeatContext - 1
	stop := min(n2, pc+RepeatContext+2+max(e.delta, 0))
	var prev, cur *column
	var scale float64
	if c0 < 0 {
		c0 = 0
		cur = &sc.cols[0]
		cur.lo = bandStart(0)
		scale = r.forwardColumn(window, gapOpen, 0, nil, cur)
	} else {
		stored := r.forward.view(c0)
		cur = &stored
		scale = r.forward.scale[c0]
	}
	for c := c0 + 1; c <= stop; c++ {
		prev, cur = cur, &sc.cols[c&1]
		cur.lo = bandStart(c)
		scale += r.forwardColumn(window, gapOpen, c, prev, cur)
	}
	if stop == n2 {
		return r.total(cur, scale) - r.baseline
	}
	joined := stop - e.delta
	bwd := r.backward.view(joined)
	return link(cur, scale, &bwd, r.backward.scale[joined]) - r.baseline
}
