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
	"io"
	"strings"

	"github.com/evolvedmicrobe/cafe-quality-sub001/reads"
	"github.com/shenwei356/bio/seq"
	"github.com/shenwei356/bio/seqio/fastx"
)

// A Molecule is the group of subreads processed together.
type Molecule struct {
	Name  string
	Reads []*reads.Read
}

// MoleculeName returns the movie/hole prefix of a subread name. Names
// with fewer than three fields are their own molecule.
func MoleculeName(readName string) string {
	fields := strings.SplitN(readName, "/", 3)
	if len(fields) < 3 {
		return readName
	}
	return fields[0] + "/" + fields[1]
}

// phredOffset is the FASTQ quality encoding offset.
const phredOffset = 33

// ReadMolecules reads a FASTA or FASTQ file, possibly compressed, and
// groups its records into molecules in order of first appearance. With
// single set, every record belongs to one molecule named after the
// file.
func ReadMolecules(path string, single bool) ([]*Molecule, error) {
	seq.ValidateSeq = false
	reader, err := fastx.NewDefaultReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening %v: %w", path, err)
	}
	defer reader.Close()

	var molecules []*Molecule
	index := make(map[string]*Molecule)
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading %v: %w", path, err)
		}
		name := string(record.ID)
		var qvs []byte
		if len(record.Seq.Qual) > 0 {
			qvs = make([]byte, len(record.Seq.Qual))
			for i, q := range record.Seq.Qual {
				qvs[i] = max(q, phredOffset) - phredOffset
			}
		}
		read := reads.NewRead(name, record.Seq.Seq, qvs)
		key := path
		if !single {
			key = MoleculeName(name)
		}
		m := index[key]
		if m == nil {
			m = &Molecule{Name: key}
			index[key] = m
			molecules = append(molecules, m)
		}
		m.Reads = append(m.Reads, read)
	}
	return molecules, nil
}
