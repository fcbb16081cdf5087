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

package cmd

import (
	"fmt"
	"os"

	"github.com/evolvedmicrobe/cafe-quality-sub001/assembly"
	"github.com/evolvedmicrobe/cafe-quality-sub001/internal"
	"github.com/evolvedmicrobe/cafe-quality-sub001/poa"
	"github.com/evolvedmicrobe/cafe-quality-sub001/workflow"
	"github.com/guptarohit/asciigraph"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type poaFlags struct {
	dot         string
	plot        bool
	minCoverage int
	bothStrands bool
	plotWidth   int
	plotHeight  int
}

func extentCoverage(extents map[int]poa.Extent, length int) []float64 {
	coverage := make([]float64, length)
	for _, e := range extents {
		for i := e.Start.Template; i <= e.End.Template && i < length; i++ {
			coverage[i]++
		}
	}
	return coverage
}

func runPOA(flags *poaFlags, input string) error {
	molecules, err := workflow.ReadMolecules(input, true)
	if err != nil {
		return err
	}
	if len(molecules) == 0 {
		return fmt.Errorf("no reads in %v", input)
	}
	subreads := molecules[0].Reads

	if flags.bothStrands {
		seq, mapped := assembly.ConsensusAndOverlaps(subreads)
		log.WithFields(log.Fields{"reads": len(subreads), "joined": len(mapped)}).Info("strand-agnostic POA")
		fmt.Printf(">%v/poa\n%v\n", molecules[0].Name, seq)
		return nil
	}

	graph := poa.NewGraph()
	for _, r := range subreads {
		graph.AddRead(r.Sequence)
	}
	extents, score, seq := graph.FindConsensusAndAlignments(flags.minCoverage)
	log.WithFields(log.Fields{
		"reads":    graph.NumReads(),
		"vertices": graph.NumVertices(),
		"score":    score,
	}).Info("POA consensus")
	fmt.Printf(">%v/poa score=%.4f\n%v\n", molecules[0].Name, score, seq)

	if flags.dot != "" {
		f := internal.FileCreate(flags.dot)
		defer internal.Close(f)
		if err := graph.WriteDot(f); err != nil {
			return fmt.Errorf("writing %v: %w", flags.dot, err)
		}
	}
	if flags.plot && len(seq) > 0 {
		fmt.Fprintln(os.Stderr, asciigraph.Plot(
			extentCoverage(extents, len(seq)),
			asciigraph.Width(flags.plotWidth),
			asciigraph.Height(flags.plotHeight),
			asciigraph.Caption("reads per consensus position"),
		))
	}
	return nil
}

func newPOACommand() *cobra.Command {
	var flags poaFlags
	c := &cobra.Command{
		Use:   "poa input",
		Short: "Partial order alignment consensus of all reads of a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := checkExist("input", args[0]); err != nil {
				return err
			}
			if flags.dot != "" {
				if err := checkCreate("--dot", flags.dot); err != nil {
					return err
				}
			}
			return timedRun(global.timed, global.profile, "Running poa on "+args[0]+".", 1, func() error {
				return runPOA(&flags, args[0])
			})
		},
	}
	c.Flags().StringVar(&flags.dot, "dot", "", "write the graph in Graphviz format to this file")
	c.Flags().BoolVar(&flags.plot, "plot", false, "plot read coverage of the consensus")
	c.Flags().IntVar(&flags.minCoverage, "min-coverage", 1, "vertices with less coverage are not called")
	c.Flags().BoolVar(&flags.bothStrands, "both-strands", false, "reads may come from either strand")
	c.Flags().IntVar(&flags.plotWidth, "plot-width", 80, "plot width")
	c.Flags().IntVar(&flags.plotHeight, "plot-height", 10, "plot height")
	return c
}
