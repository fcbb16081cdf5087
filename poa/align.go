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

package poa

import (
	"math"
	"math/bits"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Alignment scores.
const (
	ExtraScore    = -4
	MissingScore  = -4
	MismatchScore = -6
	MatchScore    = 3
	BranchScore   = -3

	// MinAcceptScore is the lowest alignment score for which AddRead
	// splices a read into the graph.
	MinAcceptScore = 30
)

type move int8

const (
	moveStart move = iota
	moveMatch
	moveMismatch
	moveDelete
	moveInsert
)

type cell struct {
	score int
	prev  int32
	move  move
}

var cellPools [64]sync.Pool

func getCells(n int) *[]cell {
	class := bits.Len(uint(n - 1))
	if buf, ok := cellPools[class].Get().(*[]cell); ok {
		*buf = (*buf)[:n]
		return buf
	}
	buf := make([]cell, n, 1<<class)
	return &buf
}

func putCells(buf *[]cell) {
	cellPools[bits.Len(uint(cap(*buf)-1))].Put(buf)
}

// A column holds the scores of one vertex over its band of read rows.
type column struct {
	lo, hi    int
	buf       *[]cell
	bestRow   int
	bestScore int
}

func (c *column) get(row int) (cell, bool) {
	if c.buf == nil || row < c.lo || row > c.hi {
		return cell{}, false
	}
	return (*c.buf)[row-c.lo], true
}

func (c *column) release() {
	if c.buf != nil {
		putCells(c.buf)
		c.buf = nil
	}
}

// A Proposal is an alignment of a read against a graph that has not
// been spliced in yet. It is invalidated by any change to the graph.
type Proposal struct {
	Score int

	graph     *Graph
	read      string
	version   int
	columns   []column
	terminals map[int]*column

	bestVertex   int
	bestTerminal bool
	bestRow      int
}

func (g *Graph) matchRewards() []int {
	rewards := make([]int, len(g.vertices))
	for i, v := range g.vertices {
		r := math.Round(MatchScore * float64(v.Support()) / float64(max(1, v.Coverage-1)))
		rewards[i] = min(MatchScore, int(r))
	}
	return rewards
}

func (p *Proposal) fillColumn(c *column, self int, preds []int, base byte, lo, hi int, rewards []int, free bool) {
	c.lo, c.hi, c.bestRow, c.bestScore = lo, hi, 0, math.MinInt
	if lo > hi {
		return
	}
	extra, branch := ExtraScore, BranchScore
	if free {
		extra, branch = 0, 0
	}
	c.buf = getCells(hi - lo + 1)
	cells := *c.buf
	cells[0] = cell{score: 0, prev: -1, move: moveStart}
	read := p.read
	for i := lo + 1; i <= hi; i++ {
		best := cell{score: 0, prev: -1, move: moveStart}
		b := read[i-1]
		for _, pred := range preds {
			pc := &p.columns[pred]
			if diag, ok := pc.get(i - 1); ok {
				if p.graph.vertices[pred].Base == b {
					if s := diag.score + rewards[pred]; s > best.score {
						best = cell{score: s, prev: int32(pred), move: moveMatch}
					}
				} else if s := diag.score + MismatchScore; s > best.score {
					best = cell{score: s, prev: int32(pred), move: moveMismatch}
				}
			}
			if up, ok := pc.get(i); ok {
				if s := up.score + MissingScore; s > best.score {
					best = cell{score: s, prev: int32(pred), move: moveDelete}
				}
			}
		}
		penalty := extra
		if base == b {
			penalty = branch
		}
		if s := cells[i-1-lo].score + penalty; s > best.score {
			best = cell{score: s, prev: int32(self), move: moveInsert}
		}
		cells[i-lo] = best
		if best.score > c.bestScore {
			c.bestScore, c.bestRow = best.score, i
		}
	}
}

// Propose aligns the read against the graph without changing it.
func (g *Graph) Propose(read string) *Proposal {
	g.ComputeCoverage()
	n := len(read)
	bands := g.bands(read)
	rewards := g.matchRewards()
	order := g.TopologicalOrder()
	p := &Proposal{
		Score:     math.MinInt,
		graph:     g,
		read:      read,
		version:   g.version,
		columns:   make([]column, len(g.vertices)),
		terminals: make(map[int]*column),
	}
	for _, index := range order {
		v := g.vertices[index]
		band := bands[index]
		p.fillColumn(&p.columns[index], index, v.in, v.Base, max(0, band.start), min(band.stop, n), rewards, false)
		if len(v.out) == 0 {
			t := new(column)
			p.fillColumn(t, index, []int{index}, 'N', 0, n, rewards, true)
			p.terminals[index] = t
			if end, _ := t.get(n); end.score > p.Score {
				p.Score, p.bestVertex, p.bestTerminal, p.bestRow = end.score, index, true, n
			}
		} else if c := &p.columns[index]; c.bestScore > p.Score {
			p.Score, p.bestVertex, p.bestTerminal, p.bestRow = c.bestScore, index, false, c.bestRow
		}
	}
	return p
}

// Discard releases the buffers held by the proposal.
func (p *Proposal) Discard() {
	for i := range p.columns {
		p.columns[i].release()
	}
	for _, t := range p.terminals {
		t.release()
	}
	p.columns, p.terminals = nil, nil
}

// Commit splices the proposed alignment into the graph and releases the
// proposal.
func (p *Proposal) Commit() {
	g := p.graph
	if p.columns == nil {
		log.Panic("commit of a discarded proposal")
	}
	if g.version != p.version {
		log.Panic("commit of a stale proposal")
	}
	read := p.read
	readID := g.NumReads()
	next := -1
	chain := func(from int) {
		if next >= 0 {
			g.addEdge(from, next)
		}
		next = from
	}
	row := p.bestRow
	for i := len(read); i > row; i-- {
		chain(g.addVertex(read[i-1], readID, i-1))
	}
	var c *column
	if p.bestTerminal {
		c = p.terminals[p.bestVertex]
	} else {
		c = &p.columns[p.bestVertex]
	}
	for c != nil {
		cl, _ := c.get(row)
		switch cl.move {
		case moveStart:
			c = nil
			continue
		case moveInsert, moveMismatch:
			chain(g.addVertex(read[row-1], readID, row-1))
			row--
		case moveMatch:
			pred := g.vertices[cl.prev]
			pred.Reads = append(pred.Reads, ReadPointer{Read: readID, Pos: row - 1})
			chain(int(cl.prev))
			row--
		case moveDelete:
		}
		if cl.move != moveInsert {
			c = &p.columns[cl.prev]
		}
	}
	for ; row > 0; row-- {
		chain(g.addVertex(read[row-1], readID, row-1))
	}
	g.readLengths = append(g.readLengths, len(read))
	g.version++
	p.Discard()
}
