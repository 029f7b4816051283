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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

func newApp(t *testing.T, cfg *AppConfig) *TrafficGeneratorApp {
	t.Helper()
	app := NewTrafficGeneratorApp(cfg)
	t.Cleanup(app.shutdown)
	return app
}

func TestApp_ConfigureStartStop(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SummaryPath = filepath.Join(t.TempDir(), "runs", "sender_{src_host}-{run_id}.yaml")
	app := newApp(t, cfg)

	first, second := listenLoopback(t), listenLoopback(t)
	require.NoError(t, app.Configure([]models.FlowSpec{flowTo(first, 0), flowTo(second, 1)}))

	status := app.Status()
	assert.Equal(t, CONFIGURED, status.Status)
	assert.Equal(t, 2, status.Flows)
	assert.NotEmpty(t, status.RunId)

	require.NoError(t, app.Start())
	assert.Equal(t, STARTED, app.Status().Status)
	assert.Equal(t, 2, app.Status().Running)
	awaitDatagram(t, first)
	awaitDatagram(t, second)

	require.NoError(t, app.Stop())
	assert.Equal(t, STOPPED, app.Status().Status)
	assert.Zero(t, app.Status().Running)

	summary := app.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, status.RunId, summary.RunId)

	data, err := os.ReadFile(summary.Path(cfg.SummaryPath))
	require.NoError(t, err)
	var written RunSummary
	require.NoError(t, yaml.Unmarshal(data, &written))
	assert.Equal(t, summary.RunId, written.RunId)
	require.Len(t, written.Flows, 2)
	assert.Equal(t, uint64(1), written.Flows[1].FlowId)
	assert.Positive(t, written.Flows[0].PktCount)
}

func TestApp_ConfigureRejectsInvalidFlows(t *testing.T) {
	app := newApp(t, nil)
	spec := flowTo(listenLoopback(t), 0)
	spec.TxRate = 0

	err := app.Configure([]models.FlowSpec{spec})
	assert.ErrorIs(t, err, flow.ErrZeroRate)
	assert.Equal(t, STOPPED, app.Status().Status)
	assert.Empty(t, app.Status().RunId)
}

func TestApp_ConfigureBindFailure(t *testing.T) {
	app := newApp(t, nil)
	spec := flowTo(listenLoopback(t), 0)
	spec.SourceAddr = unassigned

	var bindErr *flow.BindError
	assert.ErrorAs(t, app.Configure([]models.FlowSpec{spec}), &bindErr)
	assert.Equal(t, ERROR, app.Status().Status)
	assert.Error(t, app.Start())
}

func TestApp_ConfigureWhileStarted(t *testing.T) {
	app := newApp(t, nil)
	require.NoError(t, app.Configure([]models.FlowSpec{flowTo(listenLoopback(t), 0)}))
	require.NoError(t, app.Start())

	err := app.Configure([]models.FlowSpec{flowTo(listenLoopback(t), 0)})
	assert.Error(t, err)
	assert.Equal(t, STARTED, app.Status().Status)
}

func TestApp_ReconfigureAfterStop(t *testing.T) {
	app := newApp(t, nil)
	require.NoError(t, app.Configure([]models.FlowSpec{flowTo(listenLoopback(t), 0)}))
	firstRun := app.Status().RunId
	require.NoError(t, app.Start())
	require.NoError(t, app.Stop())

	require.NoError(t, app.Configure([]models.FlowSpec{flowTo(listenLoopback(t), 0)}))
	assert.NotEqual(t, firstRun, app.Status().RunId)
	assert.Equal(t, CONFIGURED, app.Status().Status)
	assert.Nil(t, app.Summary())
}

func TestApp_StartAndStopNeedARun(t *testing.T) {
	app := newApp(t, nil)
	assert.Error(t, app.Start())
	assert.Error(t, app.Stop())
	assert.Equal(t, STOPPED, app.Status().Status)
}

func TestApp_RunUntilCancelled(t *testing.T) {
	app := NewTrafficGeneratorApp(nil)
	l := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx, []models.FlowSpec{flowTo(l, 0)})
	}()

	awaitDatagram(t, l)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancellation")
	}

	summary := app.Summary()
	require.NotNil(t, summary)
	require.Len(t, summary.Flows, 1)
	assert.Positive(t, summary.Flows[0].PktCount)
	assert.Equal(t, STOPPED, app.Status().Status)
}

func TestApp_RunAbortsOnBindFailure(t *testing.T) {
	app := NewTrafficGeneratorApp(nil)
	good := listenLoopback(t)
	bad := flowTo(listenLoopback(t), 1)
	bad.SourceAddr = unassigned

	err := app.Run(context.Background(), []models.FlowSpec{flowTo(good, 0), bad})
	var bindErr *flow.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, 1, bindErr.Index)
	assertSilent(t, good)
}

func TestApp_RunWithNothingToDo(t *testing.T) {
	app := NewTrafficGeneratorApp(nil)
	err := app.Run(context.Background(), nil)
	assert.Error(t, err)
}

func TestApp_RunDeferredStart(t *testing.T) {
	cfg := DefaultConfig()
	cfg.StartOnLaunch = false
	app := NewTrafficGeneratorApp(cfg)
	l := listenLoopback(t)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx, []models.FlowSpec{flowTo(l, 0)})
	}()

	require.Eventually(t, func() bool {
		return app.Status().Status == CONFIGURED
	}, 2*time.Second, 10*time.Millisecond)
	assertSilent(t, l)

	require.NoError(t, app.Start())
	awaitDatagram(t, l)
	cancel()
	assert.NoError(t, <-done)
}

func TestApp_RunWithUnreachableNats(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Nats.Url = "nats://127.0.0.1:1"
	app := NewTrafficGeneratorApp(cfg)

	err := app.Run(context.Background(), []models.FlowSpec{flowTo(listenLoopback(t), 0)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NATS")
	assert.Equal(t, STOPPED, app.Status().Status)
}

func TestApp_ShutdownPublishesFinalReports(t *testing.T) {
	pub := &fakePublisher{}
	app := NewTrafficGeneratorApp(nil)
	app.publisher = pub

	l := listenLoopback(t)
	require.NoError(t, app.Configure([]models.FlowSpec{flowTo(l, 0)}))
	require.NoError(t, app.Start())
	awaitDatagram(t, l)

	app.shutdown()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	var finals int
	for _, msg := range pub.reports {
		if msg.Final {
			finals++
		}
	}
	assert.Equal(t, 1, finals)
	assert.Len(t, pub.summaries, 1)
}
