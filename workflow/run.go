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

	"github.com/evolvedmicrobe/cafe-quality-sub001/internal"
	"github.com/exascience/pargo/pipeline"
	log "github.com/sirupsen/logrus"
)

// Run processes the molecules of the input file concurrently and writes
// the results in input order. A non-empty statsPath also gets per-base
// statistics. Output names ending in .gz are compressed.
func Run(opts Options, input, output, statsPath string) (*Counters, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	molecules, err := ReadMolecules(input, opts.SingleCluster)
	if err != nil {
		return nil, err
	}
	log.WithFields(log.Fields{"molecules": len(molecules), "mode": opts.Mode}).Info("read input")

	out := internal.FileCreateMaybeCompressed(output)
	defer internal.Close(out)
	writers := []ResultWriter{NewSequenceWriter(out, FormatOf(output))}
	if statsPath != "" {
		stats := internal.FileCreateMaybeCompressed(statsPath)
		defer internal.Close(stats)
		writers = append(writers, NewStatsWriter(stats))
	}

	counters := &Counters{}
	if len(molecules) > 0 {
		var p pipeline.Pipeline
		p.Source(molecules)
		p.NofBatches(len(molecules))
		p.Add(
			pipeline.LimitedPar(0, pipeline.Receive(func(_ int, data interface{}) interface{} {
				var results []*Result
				for _, m := range data.([]*Molecule) {
					rs, reason := opts.Process(m)
					counters.Add(reason)
					results = append(results, rs...)
				}
				return results
			})),
			pipeline.StrictOrd(pipeline.Receive(func(_ int, data interface{}) interface{} {
				results := data.([]*Result)
				counters.AddResults(len(results))
				for _, w := range writers {
					if err := w.Write(results); err != nil {
						p.SetErr(err)
					}
				}
				return nil
			})),
		)
		p.Run()
		if err := p.Err(); err != nil {
			return counters, err
		}
	}
	for _, w := range writers {
		if err := w.Flush(); err != nil {
			return counters, fmt.Errorf("writing %v: %w", output, err)
		}
	}
	counters.Log()
	return counters, nil
}
