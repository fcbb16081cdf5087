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

// Package cmd implements the cafe command line.
package cmd

import (
	"fmt"
	"os"

	"github.com/evolvedmicrobe/cafe-quality-sub001/utils"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

type globalFlags struct {
	logLevel string
	logPath  string
	noLog    bool
	timed    bool
	profile  string
}

var global globalFlags

// NewRootCommand returns the cafe command with all subcommands.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           utils.ProgramName,
		Short:         "Consensus and phasing of long reads",
		Version:       utils.ProgramVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, err := log.ParseLevel(global.logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			if !global.noLog {
				setLogOutput(global.logPath)
			}
			return nil
		},
	}
	flags := root.PersistentFlags()
	flags.StringVar(&global.logLevel, "log-level", "info", "logging level (debug, info, warn, error)")
	flags.StringVar(&global.logPath, "log-path", "", "directory for the log file, default $HOME")
	flags.BoolVar(&global.noLog, "no-log", false, "do not write a log file")
	flags.BoolVar(&global.timed, "timed", false, "log the time taken")
	flags.StringVar(&global.profile, "profile", "", "write a CPU profile with this prefix")

	root.AddCommand(newCCSCommand(), newPhaseCommand(), newPOACommand())
	return root
}

// Execute runs the command line and exits with a non-zero status on
// failure.
func Execute() {
	fmt.Fprintln(os.Stderr, ProgramMessage)
	if err := NewRootCommand().Execute(); err != nil {
		log.Error(err)
		os.Exit(1)
	}
}
