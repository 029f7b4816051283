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
	"fmt"

	"gonum.org/v1/gonum/stat/distuv"
)

// GammaRate draws rates from a gamma distribution with mean mu
type GammaRate struct {
	Shape float64
	Scale float64

	dist distuv.Gamma
}

// NewGammaRate uses scale sigma/mu and shape sigma/scale^2
func NewGammaRate(mu, sigma float64) (RateSampler, error) {
	if mu <= 0 {
		return nil, fmt.Errorf("gamma traffic model needs a positive rate, got %v", mu)
	}
	if sigma == 0 {
		return ConstantRate(mu), nil
	}
	theta := sigma / mu
	shape := sigma / (theta * theta)
	return &GammaRate{
		Shape: shape,
		Scale: theta,
		dist:  distuv.Gamma{Alpha: shape, Beta: 1 / theta},
	}, nil
}

func (g *GammaRate) NextRate() float64 {
	return g.dist.Rand()
}
