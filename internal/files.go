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

package internal

import (
	"io"
	"os"
	"strings"

	"github.com/klauspost/pgzip"
	log "github.com/sirupsen/logrus"
)

// FileCreate is os.Create with panics in place of errors
func FileCreate(name string) *os.File {
	f, err := os.Create(name)
	if err != nil {
		log.Panic(err)
	}
	return f
}

// Close is c.Close() with panics in place of errors
func Close(c io.Closer) {
	if err := c.Close(); err != nil {
		log.Panic(err)
	}
}

// MkdirAll is os.MkdirAll with panics in place of errors
func MkdirAll(path string, perm os.FileMode) {
	if err := os.MkdirAll(path, perm); err != nil {
		log.Panic(err)
	}
}

type compressedFile struct {
	*pgzip.Writer
	file *os.File
}

func (c compressedFile) Close() error {
	if err := c.Writer.Close(); err != nil {
		_ = c.file.Close()
		return err
	}
	return c.file.Close()
}

// FileCreateMaybeCompressed creates the named file. Names ending in .gz
// get a parallel gzip writer in front of the file.
func FileCreateMaybeCompressed(name string) io.WriteCloser {
	f := FileCreate(name)
	if strings.HasSuffix(name, ".gz") {
		return compressedFile{Writer: pgzip.NewWriter(f), file: f}
	}
	return f
}
