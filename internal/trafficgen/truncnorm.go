// Copyright 2025 EURECOM
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
//
// Contributors:
//   Giulio CAROTA
//   Thomas DU
//   Adlen KSENTINI

package trafficgen

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

const (
	maxRate = float64(math.MaxUint32)

	// draws rejected before falling back to clamping
	maxRejections = 64
)

// TruncNormRate draws rates from a normal distribution truncated to [Low, High]
type TruncNormRate struct {
	Low  float64
	High float64

	dist distuv.Normal
}

func NewTruncNormRate(mu, sigma, low, high float64) *TruncNormRate {
	return &TruncNormRate{
		Low:  low,
		High: high,
		dist: distuv.Normal{Mu: mu, Sigma: sigma},
	}
}

func (t *TruncNormRate) NextRate() float64 {
	if t.dist.Sigma == 0 {
		return clamp(t.dist.Mu, t.Low, t.High)
	}
	for i := 0; i < maxRejections; i++ {
		if x := t.dist.Rand(); x >= t.Low && x <= t.High {
			return x
		}
	}
	return clamp(t.dist.Rand(), t.Low, t.High)
}

func clamp(x, low, high float64) float64 {
	return math.Max(low, math.Min(high, x))
}
