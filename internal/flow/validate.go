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

package flow

import (
	"errors"
	"fmt"
	"math"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

// MaxPacketLen is the largest UDP payload that fits an IPv4 datagram
const MaxPacketLen = 65507

// Validate performs the semantic checks that must hold before any socket is
// bound. Type checks are done by ParseFlows.
func Validate(specs []models.FlowSpec, cfg PacingConfig) error {
	seen := make(map[uint64]int, len(specs))
	for i := range specs {
		spec := &specs[i]

		if spec.TxRate == 0 {
			return &ValidationError{Index: i, Field: "tx_rate", Err: ErrZeroRate}
		}
		if spec.PacketLen < 0 || spec.PacketLen > MaxPacketLen {
			return &ValidationError{Index: i, Field: "packet_len", Err: fmt.Errorf("%d exceeds %d bytes", spec.PacketLen, MaxPacketLen)}
		}
		if prev, ok := seen[spec.FlowId]; ok {
			return &ValidationError{Index: i, Field: "flow_id", Err: fmt.Errorf("%d already used by flow %d", spec.FlowId, prev)}
		}
		seen[spec.FlowId] = i

		if cfg.ApplyTrafficModel && spec.TrafficModel == models.Precomputed && len(spec.TransmitRates) == 0 {
			return &ValidationError{Index: i, Field: "transmit_rates", Err: errors.New("required by the Precomputed traffic model")}
		}
		if cfg.TagPaths {
			if err := validatePaths(spec); err != nil {
				return &ValidationError{Index: i, Field: "prob_mat", Err: err}
			}
		}
	}
	return nil
}

func validatePaths(spec *models.FlowSpec) error {
	if len(spec.ProbMat) == 0 {
		return nil
	}
	if len(spec.TagValue) < len(spec.ProbMat) {
		return fmt.Errorf("%d paths but only %d tag values", len(spec.ProbMat), len(spec.TagValue))
	}
	sum := 0.0
	for _, p := range spec.ProbMat {
		if p < 0 || math.IsNaN(p) {
			return fmt.Errorf("negative or NaN split ratio %v", p)
		}
		sum += p
	}
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("split ratios sum to %v, expected 1", sum)
	}
	for _, tag := range spec.TagValue[:len(spec.ProbMat)] {
		if tag >= 64 {
			return fmt.Errorf("tag value %d is not a DSCP code point", tag)
		}
	}
	return nil
}
