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
	"net"
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/flow"
	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

var (
	loopback   = netip.MustParseAddr("127.0.0.1")
	unassigned = netip.MustParseAddr("192.0.2.1")
)

func listenLoopback(t *testing.T) *net.UDPConn {
	t.Helper()
	conn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4(127, 0, 0, 1)})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// flowTo sends 100 byte datagrams to dst, ten every 100ms
func flowTo(dst *net.UDPConn, id uint64) models.FlowSpec {
	return models.FlowSpec{
		FlowId:       id,
		DestPort:     uint16(dst.LocalAddr().(*net.UDPAddr).Port),
		DestAddr:     loopback,
		SourceAddr:   loopback,
		TxRate:       1000,
		PacketLen:    100,
		TrafficModel: models.Uniform,
		SrcHost:      3,
		TimeSlice:    1,
	}
}

func awaitDatagram(t *testing.T, conn *net.UDPConn) []byte {
	t.Helper()
	buf := make([]byte, 2048)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	n, _, err := conn.ReadFromUDP(buf)
	require.NoError(t, err)
	return buf[:n]
}

func assertSilent(t *testing.T, conn *net.UDPConn) {
	t.Helper()
	buf := make([]byte, 2048)
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := conn.ReadFromUDP(buf)
	var netErr net.Error
	require.True(t, errors.As(err, &netErr) && netErr.Timeout(), "expected no datagram, got %v", err)
}

func newFlowSet(t *testing.T) *FlowSet {
	t.Helper()
	fs := NewFlowSet(flow.DefaultPacingConfig(), nil)
	t.Cleanup(fs.Close)
	return fs
}

func TestFlowSet_StartsOneUnitPerFlow(t *testing.T) {
	var specs []models.FlowSpec
	var listeners []*net.UDPConn
	for i := 0; i < 3; i++ {
		l := listenLoopback(t)
		listeners = append(listeners, l)
		specs = append(specs, flowTo(l, uint64(i)))
	}

	fs := newFlowSet(t)
	require.NoError(t, fs.Build(specs, models.AllOrNothing))

	contexts := fs.Contexts()
	require.Len(t, contexts, 3)
	for i, fc := range contexts {
		assert.Equal(t, i, fc.Index)
		assert.Equal(t, make([]byte, 100), fc.Payload())
		assert.NotZero(t, fc.LocalAddr().Port())
	}

	n, err := fs.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, fs.Running())

	for _, l := range listeners {
		assert.Equal(t, make([]byte, 100), awaitDatagram(t, l))
	}

	finals := fs.Stop()
	assert.Equal(t, 0, fs.Running())
	require.Len(t, finals, 3)
	for i, msg := range finals {
		assert.Equal(t, uint64(i), msg.FlowId)
		assert.True(t, msg.Final)
		assert.Equal(t, fs.RunId, msg.RunId)
		assert.GreaterOrEqual(t, msg.Report.NumOfPackets, int64(10))
	}
}

func TestFlowSet_AllOrNothingAbortsOnBindFailure(t *testing.T) {
	good := listenLoopback(t)
	bad := flowTo(listenLoopback(t), 1)
	bad.SourceAddr = unassigned

	fs := newFlowSet(t)
	err := fs.Build([]models.FlowSpec{flowTo(good, 0), bad}, models.AllOrNothing)

	var bindErr *flow.BindError
	require.ErrorAs(t, err, &bindErr)
	assert.Equal(t, 1, bindErr.Index)
	assert.Empty(t, fs.Contexts())
	require.Len(t, fs.Failures(), 1)

	n, err := fs.Start(context.Background())
	assert.ErrorIs(t, err, ErrNoFlows)
	assert.Zero(t, n)
	assert.Zero(t, fs.Running())
	assertSilent(t, good)
}

func TestFlowSet_BestEffortStartsBoundFlows(t *testing.T) {
	good := listenLoopback(t)
	bad := flowTo(listenLoopback(t), 1)
	bad.SourceAddr = unassigned

	fs := newFlowSet(t)
	require.NoError(t, fs.Build([]models.FlowSpec{flowTo(good, 0), bad}, models.BestEffort))
	require.Len(t, fs.Contexts(), 1)

	failures := fs.Failures()
	require.Len(t, failures, 1)
	var bindErr *flow.BindError
	assert.ErrorAs(t, failures[0], &bindErr)

	n, err := fs.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, awaitDatagram(t, good), 100)
}

func TestFlowSet_BestEffortWithNothingBound(t *testing.T) {
	spec := flowTo(listenLoopback(t), 0)
	spec.SourceAddr = unassigned

	fs := newFlowSet(t)
	err := fs.Build([]models.FlowSpec{spec}, models.BestEffort)
	assert.ErrorIs(t, err, ErrNoFlows)

	var bindErr *flow.BindError
	assert.ErrorAs(t, err, &bindErr)
}

func TestFlowSet_StartTwice(t *testing.T) {
	fs := newFlowSet(t)
	require.NoError(t, fs.Build([]models.FlowSpec{flowTo(listenLoopback(t), 0)}, models.AllOrNothing))

	_, err := fs.Start(context.Background())
	require.NoError(t, err)
	_, err = fs.Start(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestFlowSet_RestartsAfterStop(t *testing.T) {
	l := listenLoopback(t)
	fs := newFlowSet(t)
	require.NoError(t, fs.Build([]models.FlowSpec{flowTo(l, 0)}, models.AllOrNothing))

	_, err := fs.Start(context.Background())
	require.NoError(t, err)
	awaitDatagram(t, l)
	fs.Stop()

	n, err := fs.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, fs.Running())
}

func TestFlowSet_Summary(t *testing.T) {
	l := listenLoopback(t)
	fs := newFlowSet(t)
	require.NoError(t, fs.Build([]models.FlowSpec{flowTo(l, 4)}, models.AllOrNothing))
	assert.Nil(t, fs.Summary())

	_, err := fs.Start(context.Background())
	require.NoError(t, err)
	awaitDatagram(t, l)
	fs.Stop()

	summary := fs.Summary()
	require.NotNil(t, summary)
	assert.Equal(t, fs.RunId, summary.RunId)
	require.Len(t, summary.Flows, 1)

	fl := summary.Flows[0]
	assert.Equal(t, uint64(4), fl.FlowId)
	assert.Equal(t, uint64(3), fl.SrcHost)
	assert.Equal(t, "127.0.0.1", fl.DstIp)
	assert.Equal(t, fs.Contexts()[0].LocalAddr().Port(), fl.SrcPort)
	assert.GreaterOrEqual(t, fl.PktCount, int64(10))
	assert.Equal(t, fl.PktCount*100, fl.ByteCount)
	assert.False(t, summary.StoppedAt.Before(summary.StartedAt))
}

func TestFlowSet_FinalReportReachesCollector(t *testing.T) {
	l := listenLoopback(t)
	fs := NewFlowSet(flow.DefaultPacingConfig(), directSink{})
	t.Cleanup(fs.Close)

	collector := NewCollector(fs.RunId, nil)
	registerCollector(fs.RunId, collector)
	t.Cleanup(func() { unregisterCollector(fs.RunId) })

	require.NoError(t, fs.Build([]models.FlowSpec{flowTo(l, 0)}, models.AllOrNothing))
	_, err := fs.Start(context.Background())
	require.NoError(t, err)
	awaitDatagram(t, l)
	fs.Stop()

	msg, ok := collector.Latest(0)
	require.True(t, ok)
	assert.True(t, msg.Final)
	assert.Equal(t, 1, collector.Received())
}

func TestFlowSet_DecodedFlowsRoundTrip(t *testing.T) {
	var ports []int
	for i := 0; i < 4; i++ {
		ports = append(ports, listenLoopback(t).LocalAddr().(*net.UDPAddr).Port)
	}

	specs, err := flow.ParseFlows([]byte(flowDocument(ports...)))
	require.NoError(t, err)
	require.NoError(t, flow.Validate(specs, flow.DefaultPacingConfig()))

	fs := newFlowSet(t)
	require.NoError(t, fs.Build(specs, models.AllOrNothing))

	contexts := fs.Contexts()
	require.Len(t, contexts, len(ports))
	for i, fc := range contexts {
		assert.Equal(t, uint16(ports[i]), fc.Destination().Port())
		assert.Equal(t, make([]byte, 100), fc.Payload())
	}
}

func TestFlowSet_FinalReportsDeliveredBeforeStopReturns(t *testing.T) {
	require.NoError(t, startBus())
	l := listenLoopback(t)
	fs := NewFlowSet(flow.DefaultPacingConfig(), busSink{})
	t.Cleanup(fs.Close)

	collector := NewCollector(fs.RunId, nil)
	registerCollector(fs.RunId, collector)

	require.NoError(t, fs.Build([]models.FlowSpec{flowTo(l, 0), flowTo(l, 1)}, models.AllOrNothing))
	_, err := fs.Start(context.Background())
	require.NoError(t, err)
	awaitDatagram(t, l)
	fs.Stop()
	unregisterCollector(fs.RunId)

	for _, id := range []uint64{0, 1} {
		msg, ok := collector.Latest(id)
		require.True(t, ok, "flow %d", id)
		assert.True(t, msg.Final, "flow %d", id)
	}
}
