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
	"time"
)

type FlowStats struct {
	FlowId       uint64    `json:"flowId" yaml:"flow_id"`
	NumOfPackets int64     `json:"packets" yaml:"pkt_count"`
	TotalBytes   int64     `json:"bytes" yaml:"byte_count"`
	NumOfBursts  int64     `json:"bursts" yaml:"bursts"`
	SendErrors   int64     `json:"sendErrors" yaml:"send_errors"`
	StartTime    time.Time `json:"startTime" yaml:"start_time"`
	LastUpdate   time.Time `json:"lastUpdate" yaml:"last_update"`
	LastError    string    `json:"lastError,omitempty" yaml:"last_error,omitempty"`
}

type FlowStatsReport struct {
	FlowStats  `yaml:",inline"`
	PacketRate float64 `json:"packetRate" yaml:"packet_rate"`
	Bitrate    float64 `json:"bitrate" yaml:"bitrate"`
}

func NewFlowStats(flowId uint64, start time.Time) *FlowStats {
	return &FlowStats{
		FlowId:     flowId,
		StartTime:  start,
		LastUpdate: start,
	}
}

func (stats *FlowStatsReport) Dumps() string {
	return fmt.Sprintf("FlowId:      %d,\nPackets:     %d,\nBytes:       %d,\nBursts:      %d,\nSend Errors: %d,\nBitrate:     %.2f bps,\nPacket Rate: %.2f pps,\n",
		stats.FlowId, stats.NumOfPackets, stats.TotalBytes, stats.NumOfBursts, stats.SendErrors, stats.Bitrate, stats.PacketRate)
}

// NewBurst accounts one burst: sent datagrams carrying size bytes each, and
// failed sends whose last error is lastErr.
func (stats *FlowStats) NewBurst(sent, failed int, size int64, lastErr error, timestamp time.Time) {
	stats.NumOfBursts++
	stats.NumOfPackets += int64(sent)
	stats.TotalBytes += int64(sent) * size
	stats.SendErrors += int64(failed)
	if lastErr != nil {
		stats.LastError = lastErr.Error()
	}
	stats.LastUpdate = timestamp
}

// GenerateReport computes the average rates since the flow started
func (stats *FlowStats) GenerateReport() *FlowStatsReport {
	report := &FlowStatsReport{FlowStats: *stats}
	elapsed := stats.LastUpdate.Sub(stats.StartTime).Seconds()
	if elapsed > 0 {
		report.PacketRate = float64(stats.NumOfPackets) / elapsed
		report.Bitrate = float64(stats.TotalBytes) * 8 / elapsed
	}
	return report
}
