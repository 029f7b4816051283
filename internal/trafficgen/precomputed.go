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

import "errors"

// PrecomputedRate cycles through a fixed schedule of rates
type PrecomputedRate struct {
	rates []uint64
	idx   int
}

func NewPrecomputedRate(rates []uint64) (*PrecomputedRate, error) {
	if len(rates) == 0 {
		return nil, errors.New("precomputed traffic model requires transmit_rates")
	}
	return &PrecomputedRate{rates: rates}, nil
}

func (p *PrecomputedRate) NextRate() float64 {
	rate := p.rates[p.idx]
	p.idx = (p.idx + 1) % len(p.rates)
	return float64(rate)
}
