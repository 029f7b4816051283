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
	"time"

	"github.com/giuliocarot0/gitc"
)

const (
	FlowReportType gitc.MessageType = iota
	FlowFinalReportType
)

// FlowReportMsg is emitted periodically by every running flow, and once more
// when the flow stops.
type FlowReportMsg struct {
	RunId     string           `json:"runId" yaml:"run_id"`
	FlowId    uint64           `json:"flowId" yaml:"flow_id"`
	TimeStamp time.Time        `json:"timeStamp" yaml:"timestamp"`
	SrcAddr   string           `json:"srcAddr" yaml:"src_addr"`
	SrcPort   uint16           `json:"srcPort" yaml:"src_port"`
	SrcHost   uint64           `json:"srcHost" yaml:"src_host"`
	DstAddr   string           `json:"dstAddr" yaml:"dst_ip"`
	DstPort   uint16           `json:"dstPort" yaml:"dst_port"`
	TxRate    float64          `json:"txRate" yaml:"tx_rate"`
	Final     bool             `json:"final" yaml:"final"`
	Report    *FlowStatsReport `json:"report" yaml:"report"`
}
