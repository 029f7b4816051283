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
	"context"
	"log"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/monitoring"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/trafficgen"
)

// ReportSink receives the periodic and final reports of a flow
type ReportSink interface {
	Report(msg *models.FlowReportMsg) error
}

// Pacer drives one flow: it sends a burst of datagrams, sleeps for the
// pacing interval and repeats until its context is cancelled.
type Pacer struct {
	fc      *Context
	cfg     PacingConfig
	runId   string
	sampler trafficgen.RateSampler
	sink    ReportSink
	tagging bool
	rnd     *rand.Rand

	statsMutex sync.Mutex
	stats      *models.FlowStats
	txRate     float64

	packets    prometheus.Counter
	bytes      prometheus.Counter
	bursts     prometheus.Counter
	sendErrors prometheus.Counter
	rateGauge  prometheus.Gauge

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewPacer prepares the pacing loop of fc. The flow's traffic model is only
// consulted when cfg.ApplyTrafficModel is set, the configured tx_rate is
// used as a constant otherwise.
func NewPacer(fc *Context, runId string, cfg PacingConfig, sink ReportSink) (*Pacer, error) {
	var sampler trafficgen.RateSampler = trafficgen.ConstantRate(fc.Spec.TxRate)
	if cfg.ApplyTrafficModel {
		var err error
		sampler, err = trafficgen.NewSampler(fc.Spec)
		if err != nil {
			return nil, &ValidationError{Index: fc.Index, Field: "traffic_model", Err: err}
		}
	}

	id := fc.Id()
	return &Pacer{
		fc:         fc,
		cfg:        cfg,
		runId:      runId,
		sampler:    sampler,
		sink:       sink,
		tagging:    cfg.TagPaths && len(fc.Spec.ProbMat) > 0,
		stats:      models.NewFlowStats(fc.Spec.FlowId, time.Now()),
		txRate:     float64(fc.Spec.TxRate),
		packets:    monitoring.FlowPacketsSent.WithLabelValues(runId, id),
		bytes:      monitoring.FlowBytesSent.WithLabelValues(runId, id),
		bursts:     monitoring.FlowBursts.WithLabelValues(runId, id),
		sendErrors: monitoring.FlowSendErrors.WithLabelValues(runId, id),
		rateGauge:  monitoring.FlowTxRate.WithLabelValues(runId, id),
		sleep:      sleepContext,
		now:        time.Now,
	}, nil
}

func (p *Pacer) Context() *Context {
	return p.fc
}

// Run blocks until ctx is cancelled and returns ctx.Err(). Send failures
// never interrupt the loop.
func (p *Pacer) Run(ctx context.Context) error {
	name := p.fc.Name()
	burst := p.cfg.burstSize()
	slice := timeSlice(p.fc.Spec.TimeSlice)

	start := p.now()
	p.statsMutex.Lock()
	p.stats = models.NewFlowStats(p.fc.Spec.FlowId, start)
	p.statsMutex.Unlock()

	interval, idle := p.nextRate()
	sliceEnd := start.Add(slice)
	nextReport := start.Add(p.cfg.ReportInterval)
	log.Printf("[%s] pacing started: %d datagrams every %s (%.2f pps)", name, burst, interval, EffectivePacketRate(burst, interval))

	defer func() {
		p.emit(true)
		log.Printf("[%s] pacing stopped", name)
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		now := p.now()
		if !now.Before(sliceEnd) {
			if p.cfg.ApplyTrafficModel {
				interval, idle = p.nextRate()
			}
			sliceEnd = now.Add(slice)
		}

		if idle {
			// nothing to send for the rest of the slice
			if err := p.sleep(ctx, sliceEnd.Sub(now)); err != nil {
				return err
			}
			continue
		}

		sent, failed, lastErr := p.sendBurst(burst)
		p.record(sent, failed, lastErr, now)

		if p.cfg.ReportInterval > 0 && !now.Before(nextReport) {
			p.emit(false)
			nextReport = now.Add(p.cfg.ReportInterval)
		}

		wait := interval
		if rest := sliceEnd.Sub(now); p.cfg.ApplyTrafficModel && wait > rest {
			// a shaped sleep ends with its slice
			wait = rest
		}
		if err := p.sleep(ctx, wait); err != nil {
			return err
		}
	}
}

// nextRate draws the rate of the next slice and the matching interval. A
// rate that cannot be paced, zero or so small its interval overflows, marks
// the slice idle.
func (p *Pacer) nextRate() (time.Duration, bool) {
	rate := p.sampler.NextRate()

	p.statsMutex.Lock()
	p.txRate = rate
	p.statsMutex.Unlock()
	p.rateGauge.Set(rate)

	interval, err := p.cfg.Interval(p.fc.Spec.PacketLen, rate)
	if err != nil {
		return 0, true
	}
	return interval, false
}

func (p *Pacer) sendBurst(burst int) (sent, failed int, lastErr error) {
	for i := 0; i < burst; i++ {
		if p.tagging {
			tag := p.fc.Spec.TagValue[pathIndex(p.fc.Spec.ProbMat, p.uniform())]
			if err := p.fc.setTOS(dscpTOS(tag)); err != nil {
				failed++
				lastErr = &SendError{FlowId: p.fc.Spec.FlowId, Dest: p.fc.Destination(), Err: err}
				continue
			}
		}
		if err := p.fc.send(); err != nil {
			failed++
			lastErr = &SendError{FlowId: p.fc.Spec.FlowId, Dest: p.fc.Destination(), Err: err}
			continue
		}
		sent++
	}
	return sent, failed, lastErr
}

func (p *Pacer) record(sent, failed int, lastErr error, now time.Time) {
	size := int64(len(p.fc.Payload()))

	p.statsMutex.Lock()
	p.stats.NewBurst(sent, failed, size, lastErr, now)
	p.statsMutex.Unlock()

	p.bursts.Inc()
	p.packets.Add(float64(sent))
	p.bytes.Add(float64(int64(sent) * size))
	if failed > 0 {
		p.sendErrors.Add(float64(failed))
	}
}

// Report snapshots the flow stats into a report message
func (p *Pacer) Report(final bool) *models.FlowReportMsg {
	p.statsMutex.Lock()
	report := p.stats.GenerateReport()
	rate := p.txRate
	p.statsMutex.Unlock()

	local := p.fc.LocalAddr()
	dest := p.fc.Destination()
	return &models.FlowReportMsg{
		RunId:     p.runId,
		FlowId:    p.fc.Spec.FlowId,
		TimeStamp: p.now(),
		SrcAddr:   local.Addr().String(),
		SrcPort:   local.Port(),
		SrcHost:   p.fc.Spec.SrcHost,
		DstAddr:   dest.Addr().String(),
		DstPort:   dest.Port(),
		TxRate:    rate,
		Final:     final,
		Report:    report,
	}
}

func (p *Pacer) emit(final bool) {
	if p.sink == nil {
		return
	}
	if err := p.sink.Report(p.Report(final)); err != nil {
		log.Printf("[%s] could not deliver flow report: %v", p.fc.Name(), err)
	}
}

func (p *Pacer) uniform() float64 {
	if p.rnd != nil {
		return p.rnd.Float64()
	}
	return rand.Float64()
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
