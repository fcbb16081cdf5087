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
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strconv"
	"time"

	"github.com/evolvedmicrobe/cafe-quality-sub001/internal"
	"github.com/evolvedmicrobe/cafe-quality-sub001/utils"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"
)

// ProgramMessage is the first line printed when the cafe binary is
// called.
var ProgramMessage = fmt.Sprint(
	utils.ProgramName, " version ", utils.ProgramVersion,
	" compiled with ", runtime.Version(),
	" - see ", utils.ProgramURL, " for more information.",
)

func checkExist(parameter, filename string) error {
	if filename == "" {
		return fmt.Errorf("missing filename for %v", parameter)
	}
	if filename[0] == '-' {
		return fmt.Errorf("missing filename before %v for %v", filename, parameter)
	}
	_, err := os.Stat(filename)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, os.ErrNotExist):
		return fmt.Errorf("file %v for %v does not exist", filename, parameter)
	case errors.Is(err, os.ErrPermission):
		return fmt.Errorf("no permission to read file %v for %v", filename, parameter)
	default:
		return fmt.Errorf("accessing file %v for %v: %w", filename, parameter, err)
	}
}

func checkCreate(parameter, filename string) error {
	if filename == "" {
		return fmt.Errorf("missing filename for %v", parameter)
	}
	if filename[0] == '-' {
		return fmt.Errorf("missing filename before %v for %v", filename, parameter)
	}
	if _, err := os.Stat(filename); err == nil {
		// written by an earlier run, overwritten
		return nil
	}
	err := os.MkdirAll(filepath.Dir(filename), 0700)
	if err == nil {
		err = os.WriteFile(filename, nil, 0666)
	}
	if err != nil {
		if errors.Is(err, os.ErrPermission) {
			return fmt.Errorf("no permission to create file %v for %v", filename, parameter)
		}
		return fmt.Errorf("creating file %v for %v: %w", filename, parameter, err)
	}
	_ = os.Remove(filename)
	return nil
}

func createLogFilename() string {
	t := time.Now()
	zone, _ := t.Zone()
	return fmt.Sprintf("logs/cafe/cafe-%d-%02d-%02d-%02d-%02d-%02d-%09d-%v.log", t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), zone)
}

// setLogOutput duplicates stderr into a timestamped log file below path,
// or below the home directory when path is empty.
func setLogOutput(path string) {
	logPath := createLogFilename()
	var fullPath string
	if path == "" {
		fullPath = filepath.Join(os.Getenv("HOME"), logPath)
	} else {
		fullPath = filepath.Join(path, logPath)
	}
	internal.MkdirAll(filepath.Dir(fullPath), 0700)
	f := internal.FileCreate(fullPath)
	fmt.Fprintln(f, ProgramMessage)

	orgStderr, err := unix.Dup(2)
	if err != nil {
		log.Panic(err)
	}
	ferr := os.NewFile(uintptr(orgStderr), "/dev/stderr")
	if err := unix.Dup2(int(f.Fd()), 2); err != nil {
		log.Panic(err)
	}

	log.SetOutput(io.MultiWriter(f, ferr))
	log.Info("Created log file at ", fullPath)
	log.Info("Command line: ", os.Args)
}

func timedRun(timed bool, profile, msg string, phase int64, f func() error) error {
	if profile != "" {
		filename := profile + strconv.FormatInt(phase, 10) + ".prof"
		file := internal.FileCreate(filename)
		defer internal.Close(file)
		if err := pprof.StartCPUProfile(file); err != nil {
			return err
		}
		defer pprof.StopCPUProfile()
	}
	if timed {
		log.Info(msg)
		start := time.Now()
		defer func() {
			log.Info("Elapsed time: ", time.Since(start))
		}()
	}
	return f()
}
