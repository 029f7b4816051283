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

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

// RateSampler produces the transmission rate, in bytes per second, to apply
// for the next time slice of a flow. Samplers are owned by a single flow and
// are not safe for concurrent use.
type RateSampler interface {
	NextRate() float64
}

// ConstantRate always returns the configured rate
type ConstantRate float64

func (c ConstantRate) NextRate() float64 {
	return float64(c)
}

// NewSampler selects the sampler matching the declared traffic model of spec
func NewSampler(spec models.FlowSpec) (RateSampler, error) {
	mu := float64(spec.TxRate)
	sigma := float64(spec.Variance)

	switch spec.TrafficModel {
	case models.Uniform:
		return NewUniformRate(mu, sigma), nil
	case models.TruncNorm:
		return NewTruncNormRate(mu, sigma, 0, maxRate), nil
	case models.TruncNormSymmetric:
		return NewTruncNormRate(mu, sigma, 0, 2*mu), nil
	case models.RandomSampling:
		return NewRandomSamplingRate(NewTruncNormRate(mu, sigma, 0, maxRate), mu), nil
	case models.Gamma:
		return NewGammaRate(mu, sigma)
	case models.Precomputed:
		return NewPrecomputedRate(spec.TransmitRates)
	default:
		return nil, fmt.Errorf("no sampler for traffic model %s", spec.TrafficModel)
	}
}
