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
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/nats-io/nats.go"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

// ReportPublisher ships flow reports and run summaries out of the process
type ReportPublisher interface {
	PublishReport(msg *models.FlowReportMsg) error
	PublishSummary(summary *RunSummary) error
	Close()
}

type natsPublisher struct {
	nc      *nats.Conn
	subject string
}

// NewNatsPublisher connects to the configured NATS server. Reports go to
// "<subject>.<runId>", summaries to "<subject>.<runId>.summary".
func NewNatsPublisher(cfg NatsConfig) (ReportPublisher, error) {
	nc, err := nats.Connect(cfg.Url, nats.Name("traffic-generator"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS at %s: %w", cfg.Url, err)
	}
	log.Printf("connected to NATS at %s, publishing on %s", cfg.Url, cfg.Subject)
	return &natsPublisher{nc: nc, subject: cfg.Subject}, nil
}

func (p *natsPublisher) PublishReport(msg *models.FlowReportMsg) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	return p.nc.Publish(fmt.Sprintf("%s.%s", p.subject, msg.RunId), data)
}

func (p *natsPublisher) PublishSummary(summary *RunSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return p.nc.Publish(fmt.Sprintf("%s.%s.summary", p.subject, summary.RunId), data)
}

func (p *natsPublisher) Close() {
	if err := p.nc.Drain(); err != nil {
		log.Printf("error draining NATS connection: %v", err)
	}
}

// Collector keeps the last report of every flow of a run and forwards
// reports to the publisher, if any.
type Collector struct {
	runId     string
	publisher ReportPublisher

	mu       sync.RWMutex
	latest   map[uint64]*models.FlowReportMsg
	received int
}

func NewCollector(runId string, publisher ReportPublisher) *Collector {
	return &Collector{
		runId:     runId,
		publisher: publisher,
		latest:    make(map[uint64]*models.FlowReportMsg),
	}
}

func (c *Collector) Handle(msg *models.FlowReportMsg) {
	if msg == nil || msg.RunId != c.runId {
		return
	}

	c.mu.Lock()
	if prev, ok := c.latest[msg.FlowId]; !ok || !prev.TimeStamp.After(msg.TimeStamp) {
		c.latest[msg.FlowId] = msg
	}
	c.received++
	c.mu.Unlock()

	if msg.Final && msg.Report != nil {
		log.Printf("[%s] flow %d final report:\n%s", c.runId, msg.FlowId, msg.Report.Dumps())
	}

	if c.publisher == nil {
		return
	}
	if err := c.publisher.PublishReport(msg); err != nil {
		log.Printf("[%s] could not publish report of flow %d: %v", c.runId, msg.FlowId, err)
	}
}

// Latest returns the last report received for flowId
func (c *Collector) Latest(flowId uint64) (*models.FlowReportMsg, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	msg, ok := c.latest[flowId]
	return msg, ok
}

func (c *Collector) Received() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.received
}
