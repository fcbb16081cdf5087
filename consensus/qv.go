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

package consensus

import (
	"math"
)

// MaxQV is the highest quality reported, the largest printable in FASTQ.
const MaxQV = 93

// ScoreToErrorProb turns a log-likelihood gain of a mutation into the
// probability that the current base is wrong.
func ScoreToErrorProb(score float64) float64 {
	return 1 / (1 + math.Exp(-score))
}

// PhredQV converts an error probability into a phred quality between 0
// and MaxQV. Probabilities above 0.99 count as 0.99.
func PhredQV(errorProb float64) byte {
	errorProb = math.Min(0.99, errorProb)
	return byte(math.Min(MaxQV, math.Max(0, math.Round(-10*math.Log10(errorProb)))))
}

// PhredProb converts a phred quality into an error probability.
func PhredProb(qv float64) float64 {
	return math.Pow(10, qv/-10)
}

// CombineErrorProbability is the probability that at least one of the
// independent errors happens.
func CombineErrorProbability(errorProbs ...float64) float64 {
	noError := 1.0
	for _, p := range errorProbs {
		noError *= 1 - p
	}
	return 1 - noError
}
