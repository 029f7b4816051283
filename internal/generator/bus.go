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
	"log"
	"sync"

	"github.com/giuliocarot0/gitc"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

const (
	GeneratorTask = "GENERATOR"
	CollectorTask = "COLLECTOR"
)

var (
	busOnce sync.Once
	busErr  error

	// runId -> *Collector
	routes sync.Map
)

// startBus starts the gitc tasks once per process
func startBus() error {
	busOnce.Do(func() {
		busErr = gitc.StartTask(GeneratorTask, func(msg gitc.Message) {
			log.Printf("[%s] unexpected message from %s", GeneratorTask, msg.From)
		}, 16)
		if busErr != nil {
			return
		}
		busErr = gitc.StartTask(CollectorTask, dispatch, 1024)
	})
	return busErr
}

func dispatch(msg gitc.Message) {
	switch msg.Type {
	case models.FlowReportType, models.FlowFinalReportType:
		if report, ok := msg.Payload.(*models.FlowReportMsg); ok {
			deliver(report)
		}
	}
}

func deliver(report *models.FlowReportMsg) {
	if c, ok := routes.Load(report.RunId); ok {
		c.(*Collector).Handle(report)
	}
}

// busSink forwards periodic flow reports to the collector task. Final
// reports are handed over on the caller goroutine, so they reach the
// collector before the flow set returns from Stop and the run is
// unregistered.
type busSink struct{}

func (busSink) Report(msg *models.FlowReportMsg) error {
	if msg.Final {
		deliver(msg)
		return nil
	}
	return gitc.Send(GeneratorTask, CollectorTask, models.FlowReportType, msg)
}

// directSink hands reports to the collector on the caller goroutine, used
// when the bus could not be started
type directSink struct{}

func (directSink) Report(msg *models.FlowReportMsg) error {
	deliver(msg)
	return nil
}

func reportSink() flow.ReportSink {
	if err := startBus(); err != nil {
		log.Printf("report bus unavailable, delivering reports in process: %v", err)
		return directSink{}
	}
	return busSink{}
}

func registerCollector(runId string, c *Collector) {
	routes.Store(runId, c)
}

func unregisterCollector(runId string) {
	routes.Delete(runId)
}
