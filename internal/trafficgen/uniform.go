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

// UniformRate draws rates uniformly around a mean with a given variance
type UniformRate struct {
	Min float64
	Max float64

	dist distuv.Uniform
}

// NewUniformRate derives the bounds [a, b] having mean mu and variance sigma2
func NewUniformRate(mu, sigma2 float64) *UniformRate {
	b := (math.Sqrt(12*sigma2) + 2*mu) / 2.0
	a := 2*mu - b
	return &UniformRate{
		Min:  a,
		Max:  b,
		dist: distuv.Uniform{Min: a, Max: b},
	}
}

func (u *UniformRate) NextRate() float64 {
	if u.Min == u.Max {
		return u.Min
	}
	return u.dist.Rand()
}
