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
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/monitoring"
)

var (
	ErrNoFlows        = errors.New("no flow could be bound")
	ErrAlreadyRunning = errors.New("flows are already running")
)

/* Flow Set Code */

// FlowSet owns the flow contexts of one run and the pacers driving them
type FlowSet struct {
	RunId string

	cfg  flow.PacingConfig
	sink flow.ReportSink

	pacers   []*flow.Pacer
	failures []error

	mu        sync.Mutex
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	running   atomic.Int32
	startedAt time.Time
	stoppedAt time.Time
	finals    []*models.FlowReportMsg
}

func NewFlowSet(cfg flow.PacingConfig, sink flow.ReportSink) *FlowSet {
	return &FlowSet{
		RunId: uuid.NewString(),
		cfg:   cfg,
		sink:  sink,
	}
}

// Build binds one flow context per spec, in input order. Under
// models.AllOrNothing the first failure closes whatever was bound and is
// returned. Under models.BestEffort failing flows are skipped and kept in
// Failures.
func (fs *FlowSet) Build(specs []models.FlowSpec, policy models.StartupPolicy) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if len(fs.pacers) > 0 {
		return fmt.Errorf("flow set %s already built", fs.RunId)
	}

	for i, spec := range specs {
		log.Printf("[%s] flow %d parameters:\n%s", fs.RunId, i, spec.Dumps())
		p, err := fs.buildOne(i, spec)
		if err == nil {
			fs.pacers = append(fs.pacers, p)
			continue
		}

		if policy != models.BestEffort {
			log.Printf("[%s] flow %d failed, aborting the run: %v", fs.RunId, i, err)
			fs.closeLocked()
			fs.pacers = nil
			fs.failures = []error{err}
			fs.updateGauges(0, 0, 1)
			return err
		}
		log.Printf("[%s] skipping flow %d: %v", fs.RunId, i, err)
		fs.failures = append(fs.failures, err)
	}

	fs.updateGauges(len(fs.pacers), 0, len(fs.failures))
	if len(fs.pacers) == 0 && len(specs) > 0 {
		return fmt.Errorf("%w: %w", ErrNoFlows, errors.Join(fs.failures...))
	}

	log.Printf("[%s] %d flows bound, %d failed", fs.RunId, len(fs.pacers), len(fs.failures))
	return nil
}

func (fs *FlowSet) buildOne(index int, spec models.FlowSpec) (*flow.Pacer, error) {
	fc, err := flow.Build(index, spec)
	if err != nil {
		return nil, err
	}
	p, err := flow.NewPacer(fc, fs.RunId, fs.cfg, fs.sink)
	if err != nil {
		fc.Close()
		return nil, err
	}
	return p, nil
}

// Start launches one goroutine per flow and returns how many were launched
func (fs *FlowSet) Start(parent context.Context) (int, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.cancel != nil {
		return 0, ErrAlreadyRunning
	}
	if len(fs.pacers) == 0 {
		return 0, ErrNoFlows
	}

	ctx, cancel := context.WithCancel(parent)
	fs.cancel = cancel
	fs.startedAt = time.Now()
	fs.finals = nil

	for _, p := range fs.pacers {
		fs.wg.Add(1)
		fs.running.Add(1)
		go func(p *flow.Pacer) {
			defer fs.wg.Done()
			defer fs.running.Add(-1)
			if err := p.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Printf("[%s] %s stopped: %v", fs.RunId, p.Context().Name(), err)
			}
		}(p)
	}

	fs.updateGauges(0, len(fs.pacers), len(fs.failures))
	log.Printf("[%s] started %d flows", fs.RunId, len(fs.pacers))
	return len(fs.pacers), nil
}

// Wait blocks until every flow goroutine returned
func (fs *FlowSet) Wait() {
	fs.wg.Wait()
}

// Stop cancels every flow, waits for them and returns their final reports in
// input order. Stopping an idle set returns the reports of the last run.
func (fs *FlowSet) Stop() []*models.FlowReportMsg {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.stopLocked()
	return fs.finals
}

func (fs *FlowSet) stopLocked() {
	if fs.cancel == nil {
		return
	}
	fs.cancel()
	fs.wg.Wait()
	fs.cancel = nil
	fs.stoppedAt = time.Now()

	fs.finals = make([]*models.FlowReportMsg, 0, len(fs.pacers))
	for _, p := range fs.pacers {
		fs.finals = append(fs.finals, p.Report(true))
	}
	fs.updateGauges(0, 0, len(fs.failures))
	monitoring.FlowsTotal.WithLabelValues(fs.RunId, string(models.FlowStopped)).Set(float64(len(fs.pacers)))
	log.Printf("[%s] stopped %d flows", fs.RunId, len(fs.pacers))
}

// Close stops the flows and releases their sockets
func (fs *FlowSet) Close() {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	fs.stopLocked()
	fs.closeLocked()
	monitoring.ForgetRun(fs.RunId)
}

func (fs *FlowSet) closeLocked() {
	for _, p := range fs.pacers {
		if err := p.Context().Close(); err != nil {
			log.Printf("[%s] error closing %s: %v", fs.RunId, p.Context().Name(), err)
		}
	}
}

// Running is the number of flow goroutines still alive
func (fs *FlowSet) Running() int {
	return int(fs.running.Load())
}

// Contexts returns the bound flow contexts in input order
func (fs *FlowSet) Contexts() []*flow.Context {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	contexts := make([]*flow.Context, 0, len(fs.pacers))
	for _, p := range fs.pacers {
		contexts = append(contexts, p.Context())
	}
	return contexts
}

func (fs *FlowSet) Failures() []error {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	return append([]error(nil), fs.failures...)
}

// Reports snapshots every flow
func (fs *FlowSet) Reports() []*models.FlowReportMsg {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	reports := make([]*models.FlowReportMsg, 0, len(fs.pacers))
	for _, p := range fs.pacers {
		reports = append(reports, p.Report(false))
	}
	return reports
}

// Summary describes the last stopped run, nil if the set never stopped
func (fs *FlowSet) Summary() *RunSummary {
	fs.mu.Lock()
	defer fs.mu.Unlock()
	if fs.finals == nil {
		return nil
	}
	return NewRunSummary(fs.RunId, fs.startedAt, fs.stoppedAt, fs.finals)
}

func (fs *FlowSet) updateGauges(bound, running, failed int) {
	monitoring.FlowsTotal.WithLabelValues(fs.RunId, string(models.FlowBound)).Set(float64(bound))
	monitoring.FlowsTotal.WithLabelValues(fs.RunId, string(models.FlowRunning)).Set(float64(running))
	monitoring.FlowsTotal.WithLabelValues(fs.RunId, string(models.FlowFailed)).Set(float64(failed))
}
