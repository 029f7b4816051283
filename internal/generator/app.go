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
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"sync"
	"syscall"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/monitoring"
)

/* Run Controller code */

type RunStatus string

const (
	CONFIGURED RunStatus = "CONFIGURED"
	STARTED    RunStatus = "STARTED"
	STOPPED    RunStatus = "STOPPED"
	ERROR      RunStatus = "ERROR"
)

type StatusResponse struct {
	Status  RunStatus `json:"status"`
	RunId   string    `json:"runId,omitempty"`
	Flows   int       `json:"flows"`
	Running int       `json:"running"`
	Failed  int       `json:"failed"`
}

type TrafficGeneratorApp struct {
	currentRun    *FlowSet
	collector     *Collector
	lastSummary   *RunSummary
	status        RunStatus
	instanceMutex sync.RWMutex
	server        *http.Server
	metricsServer *http.Server
	publisher     ReportPublisher
	wg            sync.WaitGroup
	ctx           context.Context
	config        *AppConfig
}

func NewTrafficGeneratorApp(config *AppConfig) *TrafficGeneratorApp {
	if config == nil {
		config = DefaultConfig()
	}
	return &TrafficGeneratorApp{
		status: STOPPED,
		ctx:    context.Background(),
		config: config,
	}
}

// Configure validates specs and binds a new run. A stopped run is released
// first, a started one must be stopped by the caller.
func (app *TrafficGeneratorApp) Configure(specs []models.FlowSpec) error {
	if err := flow.Validate(specs, app.config.Pacing); err != nil {
		return err
	}

	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()

	if app.currentRun != nil {
		if app.status == STARTED {
			return fmt.Errorf("run %s is in progress, please stop it before configuring a new one", app.currentRun.RunId)
		}
		app.releaseLocked()
	}

	run := NewFlowSet(app.config.Pacing, reportSink())
	collector := NewCollector(run.RunId, app.publisher)
	registerCollector(run.RunId, collector)

	if err := run.Build(specs, app.config.StartupPolicy); err != nil {
		unregisterCollector(run.RunId)
		run.Close()
		app.status = ERROR
		return err
	}

	app.currentRun = run
	app.collector = collector
	app.lastSummary = nil
	app.status = CONFIGURED
	log.Printf("[%s] run configured with %d flows", run.RunId, len(specs))
	return nil
}

func (app *TrafficGeneratorApp) Start() error {
	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()

	if app.currentRun == nil {
		return fmt.Errorf("please configure the flows via /configure")
	}

	// If already started, it's a restart - stop first
	if app.status == STARTED {
		app.currentRun.Stop()
	}

	if _, err := app.currentRun.Start(app.ctx); err != nil {
		app.status = ERROR
		return fmt.Errorf("could not start run %s: %w", app.currentRun.RunId, err)
	}

	app.status = STARTED
	return nil
}

func (app *TrafficGeneratorApp) Stop() error {
	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()

	if app.status != STARTED || app.currentRun == nil {
		return fmt.Errorf("no running instance")
	}

	app.stopLocked()
	return nil
}

func (app *TrafficGeneratorApp) stopLocked() {
	app.currentRun.Stop()
	app.status = STOPPED

	summary := app.currentRun.Summary()
	if summary == nil {
		return
	}
	app.lastSummary = summary

	for _, fs := range summary.Flows {
		log.Printf("[%s] flow %d: pkt_count=%d src_port=%d src_host=%d dst_ip=%s", summary.RunId, fs.FlowId, fs.PktCount, fs.SrcPort, fs.SrcHost, fs.DstIp)
	}

	if app.config.SummaryPath != "" {
		path, err := summary.Write(app.config.SummaryPath)
		if err != nil {
			log.Printf("[%s] %v", summary.RunId, err)
		} else {
			log.Printf("[%s] summary written to %s", summary.RunId, path)
		}
	}

	if app.publisher != nil {
		if err := app.publisher.PublishSummary(summary); err != nil {
			log.Printf("[%s] could not publish summary: %v", summary.RunId, err)
		}
	}
}

func (app *TrafficGeneratorApp) releaseLocked() {
	if app.status == STARTED {
		app.stopLocked()
	}
	unregisterCollector(app.currentRun.RunId)
	app.currentRun.Close()
	app.currentRun = nil
	app.collector = nil
}

func (app *TrafficGeneratorApp) Status() StatusResponse {
	app.instanceMutex.RLock()
	defer app.instanceMutex.RUnlock()

	resp := StatusResponse{Status: app.status}
	if app.currentRun != nil {
		resp.RunId = app.currentRun.RunId
		resp.Flows = len(app.currentRun.Contexts())
		resp.Running = app.currentRun.Running()
		resp.Failed = len(app.currentRun.Failures())
	}
	return resp
}

// Flows snapshots every flow of the current run
func (app *TrafficGeneratorApp) Flows() []*models.FlowReportMsg {
	app.instanceMutex.RLock()
	defer app.instanceMutex.RUnlock()

	if app.currentRun == nil {
		return []*models.FlowReportMsg{}
	}
	return app.currentRun.Reports()
}

// Summary returns the summary of the last stopped run
func (app *TrafficGeneratorApp) Summary() *RunSummary {
	app.instanceMutex.RLock()
	defer app.instanceMutex.RUnlock()
	return app.lastSummary
}

// Run configures and starts specs when given, serves the control and
// metrics endpoints when enabled, then blocks until ctx is cancelled or the
// process gets SIGINT/SIGTERM. Flows still running are stopped and
// summarized before returning.
func (app *TrafficGeneratorApp) Run(parent context.Context, specs []models.FlowSpec) error {
	if specs == nil && app.config.OamPort == 0 {
		return fmt.Errorf("no flows given and the control api is disabled, nothing to do")
	}

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var cancel context.CancelFunc
	app.ctx, cancel = context.WithCancel(ctx)
	defer cancel()

	log.Printf("running config: \n%s", app.config.Dumps())

	if app.config.Nats.Url != "" {
		publisher, err := NewNatsPublisher(app.config.Nats)
		if err != nil {
			return err
		}
		app.publisher = publisher
		defer publisher.Close()
	}

	if specs != nil {
		if err := app.Configure(specs); err != nil {
			return err
		}
		if app.config.StartOnLaunch {
			if err := app.Start(); err != nil {
				app.shutdown()
				return err
			}
		}
	}

	if app.config.OamPort != 0 {
		if err := app.startHttpServer(); err != nil {
			app.shutdown()
			return err
		}
	}
	if app.config.MetricsPort != 0 {
		app.metricsServer = monitoring.StartMetricsServer(app.config.MetricsPort)
	}

	<-app.ctx.Done()
	log.Printf("terminating...")

	app.shutdown()
	app.wg.Wait()
	return nil
}

func (app *TrafficGeneratorApp) shutdown() {
	app.stopHttpServer()
	if app.metricsServer != nil {
		if err := app.metricsServer.Close(); err != nil {
			log.Printf("could not stop metrics server: %v", err)
		}
	}

	app.instanceMutex.Lock()
	defer app.instanceMutex.Unlock()
	if app.currentRun != nil {
		app.releaseLocked()
	}
}
