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

package generator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

type FlowSummary struct {
	FlowId     uint64  `json:"flowId" yaml:"flow_id"`
	PktCount   int64   `json:"pktCount" yaml:"pkt_count"`
	ByteCount  int64   `json:"byteCount" yaml:"byte_count"`
	SendErrors int64   `json:"sendErrors" yaml:"send_errors"`
	SrcPort    uint16  `json:"srcPort" yaml:"src_port"`
	SrcHost    uint64  `json:"srcHost" yaml:"src_host"`
	DstIp      string  `json:"dstIp" yaml:"dst_ip"`
	DstPort    uint16  `json:"dstPort" yaml:"dst_port"`
	PacketRate float64 `json:"packetRate" yaml:"packet_rate"`
	Bitrate    float64 `json:"bitrate" yaml:"bitrate"`
}

// RunSummary is what is left of a run once every flow has stopped
type RunSummary struct {
	RunId     string        `json:"runId" yaml:"run_id"`
	StartedAt time.Time     `json:"startedAt" yaml:"started_at"`
	StoppedAt time.Time     `json:"stoppedAt" yaml:"stopped_at"`
	Flows     []FlowSummary `json:"flows" yaml:"flows"`
}

func NewRunSummary(runId string, startedAt, stoppedAt time.Time, reports []*models.FlowReportMsg) *RunSummary {
	summary := &RunSummary{
		RunId:     runId,
		StartedAt: startedAt,
		StoppedAt: stoppedAt,
		Flows:     make([]FlowSummary, 0, len(reports)),
	}
	for _, msg := range reports {
		fs := FlowSummary{
			FlowId:  msg.FlowId,
			SrcPort: msg.SrcPort,
			SrcHost: msg.SrcHost,
			DstIp:   msg.DstAddr,
			DstPort: msg.DstPort,
		}
		if msg.Report != nil {
			fs.PktCount = msg.Report.NumOfPackets
			fs.ByteCount = msg.Report.TotalBytes
			fs.SendErrors = msg.Report.SendErrors
			fs.PacketRate = msg.Report.PacketRate
			fs.Bitrate = msg.Report.Bitrate
		}
		summary.Flows = append(summary.Flows, fs)
	}
	return summary
}

// Path expands {run_id} and {src_host} in pathTemplate. The source host is
// taken from the first flow.
func (s *RunSummary) Path(pathTemplate string) string {
	srcHost := "0"
	if len(s.Flows) > 0 {
		srcHost = fmt.Sprintf("%d", s.Flows[0].SrcHost)
	}
	return strings.NewReplacer("{run_id}", s.RunId, "{src_host}", srcHost).Replace(pathTemplate)
}

// Write stores the summary as YAML and returns the path written
func (s *RunSummary) Write(pathTemplate string) (string, error) {
	path := s.Path(pathTemplate)
	data, err := yaml.Marshal(s)
	if err != nil {
		return "", err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return "", fmt.Errorf("cannot create summary directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("cannot write summary: %w", err)
	}
	return path, nil
}
