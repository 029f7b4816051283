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
	"math/rand/v2"
)

type samplingState int

const (
	holding samplingState = iota
	resampling
)

type transition struct {
	To          samplingState
	Probability float64
}

// every slice is a fair coin between the configured rate and a new draw
var transitions = map[samplingState][]transition{
	holding: {
		{To: resampling, Probability: 0.5},
		{To: holding, Probability: 0.5},
	},
	resampling: {
		{To: resampling, Probability: 0.5},
		{To: holding, Probability: 0.5},
	},
}

// RandomSamplingRate either draws a fresh rate from its underlying sampler
// or falls back to the configured rate. A drawn rate is never held over to
// the next slice.
type RandomSamplingRate struct {
	sampler    RateSampler
	state      samplingState
	configured float64
	rnd        *rand.Rand
}

func NewRandomSamplingRate(sampler RateSampler, configured float64) *RandomSamplingRate {
	return &RandomSamplingRate{
		sampler:    sampler,
		state:      holding,
		configured: configured,
	}
}

func (r *RandomSamplingRate) NextRate() float64 {
	r.state = r.nextState(r.state)
	if r.state == resampling {
		return r.sampler.NextRate()
	}
	return r.configured
}

func (r *RandomSamplingRate) nextState(current samplingState) samplingState {
	var rnd float64
	if r.rnd != nil {
		rnd = r.rnd.Float64()
	} else {
		rnd = rand.Float64()
	}
	cumulative := 0.0
	for _, t := range transitions[current] {
		cumulative += t.Probability
		if rnd < cumulative {
			return t.To
		}
	}
	return current
}
