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

	"github.com/evolvedmicrobe/cafe-quality-sub001/workflow"
	"github.com/spf13/cobra"
)

const consensusExample = `  cafe ccs subreads.fastq ccs.fastq.gz --stats ccs-stats.csv
  cafe phase --single-cluster amplicons.fasta haplotypes.fasta`

func newModeCommand(mode workflow.Mode, short string) *cobra.Command {
	opts := workflow.DefaultOptions(mode)
	var stats string
	c := &cobra.Command{
		Use:     mode.String() + " input output",
		Short:   short,
		Example: consensusExample,
		Args:    cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			input, output := args[0], args[1]
			if err := opts.Validate(); err != nil {
				return err
			}
			if err := checkExist("input", input); err != nil {
				return err
			}
			if err := checkCreate("output", output); err != nil {
				return err
			}
			if stats != "" {
				if err := checkCreate("--stats", stats); err != nil {
					return err
				}
			}
			return timedRun(global.timed, global.profile, fmt.Sprintf("Running %v on %v.", mode, input), 1, func() error {
				_, err := workflow.Run(opts, input, output, stats)
				return err
			})
		},
	}
	flags := c.Flags()
	flags.StringVar(&stats, "stats", "", "write per-base statistics as CSV to this file")
	flags.IntVar(&opts.MaxIterations, "max-iterations", opts.MaxIterations, "refinement rounds before giving up")
	flags.IntVar(&opts.MaxReadLength, "max-read-length", opts.MaxReadLength, "reject molecules with longer reads or templates")
	switch mode {
	case workflow.CCS:
		flags.StringVar(&opts.Adapter, "adapter", opts.Adapter, "adapter sequence joining passes")
		flags.IntVar(&opts.PadBases, "pad-bases", opts.PadBases, "adapter bases kept next to the insert")
		flags.IntVar(&opts.StickyLength, "sticky-length", opts.StickyLength, "snap alignment ends this close to an adapter")
		flags.IntVar(&opts.MinPasses, "min-passes", opts.MinPasses, "passes a molecule needs")
	case workflow.Phase:
		flags.BoolVar(&opts.SingleCluster, "single-cluster", false, "treat the whole input as one cluster")
		flags.BoolVar(&opts.Split, "split", opts.Split, "split into haplotypes")
		flags.BoolVar(&opts.SortByCoverage, "sort-by-coverage", false, "order haplotypes by coverage")
		flags.IntVar(&opts.POAReads, "poa-reads", opts.POAReads, "reads used for the draft")
		flags.IntVar(&opts.PhasingReads, "phasing-reads", opts.PhasingReads, "reads sampled for phasing")
		flags.Float64Var(&opts.Phasing.SplitThreshold, "split-threshold", opts.Phasing.SplitThreshold, "minimum split quality")
		flags.Float64Var(&opts.Phasing.MinSplitFraction, "min-split-fraction", opts.Phasing.MinSplitFraction, "fraction of reads a haplotype must exceed")
		flags.IntVar(&opts.Phasing.MinSplitReads, "min-split-reads", opts.Phasing.MinSplitReads, "reads a haplotype needs")
		flags.IntVar(&opts.Phasing.MaxHaplotypesPerSplit, "max-haplotypes", opts.Phasing.MaxHaplotypesPerSplit, "haplotypes per split")
		flags.IntVar(&opts.Phasing.IgnoreEnds, "ignore-ends", opts.Phasing.IgnoreEnds, "template bases at either end that never drive a split")
	}
	return c
}

func newCCSCommand() *cobra.Command {
	return newModeCommand(workflow.CCS, "Circular consensus of the passes of each polymerase read")
}

func newPhaseCommand() *cobra.Command {
	return newModeCommand(workflow.Phase, "Consensus and haplotype phasing of read clusters")
}
