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

package monitoring

import (
	"errors"
	"fmt"
	"log"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	FlowsTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flows_total",
			Help: "Number of flows by state",
		},
		[]string{"runId", "state"},
	)

	FlowPacketsSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_packets_sent_total",
			Help: "Datagrams successfully handed to the kernel",
		},
		[]string{"runId", "flowId"},
	)

	FlowBytesSent = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_bytes_sent_total",
			Help: "Payload bytes successfully sent",
		},
		[]string{"runId", "flowId"},
	)

	FlowBursts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_bursts_total",
			Help: "Bursts emitted by the pacing loop",
		},
		[]string{"runId", "flowId"},
	)

	FlowSendErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "flow_send_errors_total",
			Help: "Datagram sends that failed",
		},
		[]string{"runId", "flowId"},
	)

	FlowTxRate = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "flow_tx_rate",
			Help: "Transmission rate currently applied, bytes per second",
		},
		[]string{"runId", "flowId"},
	)
)

func init() {
	prometheus.MustRegister(FlowsTotal, FlowPacketsSent, FlowBytesSent, FlowBursts, FlowSendErrors, FlowTxRate)
}

// StartMetricsServer serves /metrics on the given port until the returned
// server is closed.
func StartMetricsServer(port uint16) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	server := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}

	log.Printf("starting prometheus metrics server on :%d", port)
	go func() {
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("could not start metrics server: %s", err.Error())
		}
	}()
	return server
}

// ForgetRun drops every series labelled with runId
func ForgetRun(runId string) {
	labels := prometheus.Labels{"runId": runId}
	FlowsTotal.DeletePartialMatch(labels)
	FlowPacketsSent.DeletePartialMatch(labels)
	FlowBytesSent.DeletePartialMatch(labels)
	FlowBursts.DeletePartialMatch(labels)
	FlowSendErrors.DeletePartialMatch(labels)
	FlowTxRate.DeletePartialMatch(labels)
}
