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

package models

import (
	"fmt"
	"net/netip"
	"strings"
)

// TrafficModel is the shaping model declared for a flow
type TrafficModel int

const (
	Uniform TrafficModel = iota
	TruncNorm
	RandomSampling
	TruncNormSymmetric
	Gamma
	Precomputed
)

var trafficModelNames = map[TrafficModel]string{
	Uniform:            "Uniform",
	TruncNorm:          "TruncNorm",
	RandomSampling:     "RandomSampling",
	TruncNormSymmetric: "TruncNormSymmetric",
	Gamma:              "Gamma",
	Precomputed:        "Precomputed",
}

// aliases used by the experiment tooling flow files
var trafficModelAliases = map[string]TrafficModel{
	"uniform":              Uniform,
	"trunc_norm":           TruncNorm,
	"truncnorm":            TruncNorm,
	"random_sampling":      RandomSampling,
	"randomsampling":       RandomSampling,
	"trunc_norm_symmetric": TruncNormSymmetric,
	"truncnormsymmetric":   TruncNormSymmetric,
	"gamma":                Gamma,
	"precomputed":          Precomputed,
}

func (m TrafficModel) String() string {
	if name, ok := trafficModelNames[m]; ok {
		return name
	}
	return fmt.Sprintf("TrafficModel(%d)", int(m))
}

// ParseTrafficModel accepts the canonical tag names and their snake_case
// aliases, case-insensitive.
func ParseTrafficModel(s string) (TrafficModel, error) {
	if m, ok := trafficModelAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return m, nil
	}
	return 0, fmt.Errorf("unknown traffic model %q", s)
}

func (m TrafficModel) MarshalText() ([]byte, error) {
	if _, ok := trafficModelNames[m]; !ok {
		return nil, fmt.Errorf("unknown traffic model %d", int(m))
	}
	return []byte(m.String()), nil
}

func (m *TrafficModel) UnmarshalText(text []byte) error {
	parsed, err := ParseTrafficModel(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// FlowSpec is the validated description of one UDP flow.
// ProbMat, Variance, SrcHost, TimeSlice, TagValue and TransmitRates are only
// consulted when traffic shaping or path tagging is enabled.
type FlowSpec struct {
	FlowId        uint64
	DestPort      uint16
	DestAddr      netip.Addr
	SourceAddr    netip.Addr
	ProbMat       []float64
	TxRate        uint64 // bytes per second
	Variance      uint64
	TrafficModel  TrafficModel
	PacketLen     int // payload bytes, headers excluded
	SrcHost       uint64
	TimeSlice     uint64 // seconds
	TagValue      []uint8
	TransmitRates []uint64 // nil when not provided
}

// Destination returns the UDP destination of the flow
func (s *FlowSpec) Destination() netip.AddrPort {
	return netip.AddrPortFrom(s.DestAddr, s.DestPort)
}

func (s *FlowSpec) Dumps() string {
	rates := "null"
	if s.TransmitRates != nil {
		rates = fmt.Sprintf("%v", s.TransmitRates)
	}
	return fmt.Sprintf("Flow ID:        %d,\nDest. Port:     %d,\nDest. Addr:     %s,\nSource Addr:    %s,\nProb. Mat:      %v,\nTx Rate:        %d,\nVariance:       %d,\nTraffic Model:  %s,\nPacket Length:  %d,\nSource Host:    %d,\nTime Slice:     %d,\nTag Value:      %v,\nTransmit Rates: %s,\n",
		s.FlowId, s.DestPort, s.DestAddr, s.SourceAddr, s.ProbMat, s.TxRate, s.Variance, s.TrafficModel, s.PacketLen, s.SrcHost, s.TimeSlice, s.TagValue, rates)
}
