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
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// Reason is the outcome of processing a molecule.
type Reason int

const (
	Accepted Reason = iota
	TooFewReads
	ShortInsert
	NoConsensus
	Unmappable
	TooLong
	NotConverged
	Failed
	numReasons
)

var reasonNames = [numReasons]string{
	"accepted",
	"too few reads",
	"short insert",
	"no POA consensus",
	"unmappable",
	"too long",
	"not converged",
	"failed",
}

func (r Reason) String() string {
	if r < 0 || r >= numReasons {
		return "unknown"
	}
	return reasonNames[r]
}

// Counters tally molecule outcomes. They are safe for concurrent use.
type Counters struct {
	counts  [numReasons]atomic.Int64
	results atomic.Int64
}

// Add counts one molecule with the given outcome.
func (c *Counters) Add(r Reason) {
	c.counts[r].Add(1)
}

// AddResults counts emitted results.
func (c *Counters) AddResults(n int) {
	c.results.Add(int64(n))
}

// Count returns the number of molecules with the given outcome.
func (c *Counters) Count(r Reason) int64 {
	return c.counts[r].Load()
}

// Results returns the number of emitted results.
func (c *Counters) Results() int64 {
	return c.results.Load()
}

// Log writes the counters at info level.
func (c *Counters) Log() {
	fields := log.Fields{"results": c.Results()}
	for r := Accepted; r < numReasons; r++ {
		fields[r.String()] = c.Count(r)
	}
	log.WithFields(fields).Info("molecules")
}
