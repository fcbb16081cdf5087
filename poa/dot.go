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
	"fmt"
	"io"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// Dot renders the graph in Graphviz format. Coverage is as of the last
// coverage computation.
func (g *Graph) Dot() (string, error) {
	graph := gographviz.NewGraph()
	if err := graph.SetName("G"); err != nil {
		return "", err
	}
	if err := graph.SetDir(true); err != nil {
		return "", err
	}
	for _, index := range g.TopologicalOrder() {
		v := g.vertices[index]
		attrs := map[string]string{
			"label": fmt.Sprintf("%q", fmt.Sprintf("%c n=%d c=%d", v.Base, v.Support(), v.Coverage)),
		}
		if v.DoNotCall {
			attrs["style"] = "dashed"
		}
		if err := graph.AddNode("G", strconv.Itoa(index), attrs); err != nil {
			return "", err
		}
	}
	for index, v := range g.vertices {
		for _, o := range v.out {
			if err := graph.AddEdge(strconv.Itoa(index), strconv.Itoa(o), true, nil); err != nil {
				return "", err
			}
		}
	}
	return graph.String(), nil
}

// WriteDot writes the graph in Graphviz format.
func (g *Graph) WriteDot(w io.Writer) error {
	g.ComputeCoverage()
	dot, err := g.Dot()
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, dot)
	return err
}
