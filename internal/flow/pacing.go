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
	"math"
	"time"
)

const (
	// DefaultBurstSize is the number of datagrams sent back-to-back per pacing interval
	DefaultBurstSize = 10

	// DefaultReportInterval is how often a running flow reports its stats
	DefaultReportInterval = 5 * time.Second

	defaultTimeSlice = time.Second
)

// PacingConfig tunes the pacing loop shared by every flow of a run. The zero
// value, once defaulted, is the plain generator: constant rate, bursts of
// ten whose interval is computed for a single datagram.
type PacingConfig struct {
	BurstSize         int           `yaml:"burstSize" json:"burstSize"`
	CompensateBurst   bool          `yaml:"compensateBurst" json:"compensateBurst"`
	ApplyTrafficModel bool          `yaml:"applyTrafficModel" json:"applyTrafficModel"`
	TagPaths          bool          `yaml:"tagPaths" json:"tagPaths"`
	ReportInterval    time.Duration `yaml:"reportInterval" json:"reportInterval"`
}

func DefaultPacingConfig() PacingConfig {
	return PacingConfig{
		BurstSize:      DefaultBurstSize,
		ReportInterval: DefaultReportInterval,
	}
}

func (cfg PacingConfig) burstSize() int {
	if cfg.BurstSize <= 0 {
		return DefaultBurstSize
	}
	return cfg.BurstSize
}

// BurstDuration is the time needed to transmit packetLen bytes at txRate
// bytes per second, rounded to the nanosecond. No unit conversion is done.
func BurstDuration(packetLen int, txRate float64) (time.Duration, error) {
	if !(txRate > 0) || math.IsInf(txRate, 1) {
		return 0, ErrZeroRate
	}
	return nanoseconds(float64(packetLen) / txRate * 1e9)
}

// CompensatedBurstDuration is the time needed to transmit a whole burst of
// burstSize datagrams at txRate.
func CompensatedBurstDuration(burstSize, packetLen int, txRate float64) (time.Duration, error) {
	if !(txRate > 0) || math.IsInf(txRate, 1) {
		return 0, ErrZeroRate
	}
	return nanoseconds(float64(burstSize) * float64(packetLen) / txRate * 1e9)
}

// nanoseconds rounds ns to a Duration, ErrRateTooLow when it does not fit
func nanoseconds(ns float64) (time.Duration, error) {
	ns = math.Round(ns)
	if math.IsNaN(ns) || ns >= float64(math.MaxInt64) {
		return 0, ErrRateTooLow
	}
	return time.Duration(ns), nil
}

// EffectivePacketRate is the long-run datagram rate of a loop sending
// burstSize datagrams every interval.
func EffectivePacketRate(burstSize int, interval time.Duration) float64 {
	if interval <= 0 {
		return math.Inf(1)
	}
	return float64(burstSize) / interval.Seconds()
}

// Interval returns the sleep between bursts for txRate
func (cfg PacingConfig) Interval(packetLen int, txRate float64) (time.Duration, error) {
	if cfg.CompensateBurst {
		return CompensatedBurstDuration(cfg.burstSize(), packetLen, txRate)
	}
	return BurstDuration(packetLen, txRate)
}

func timeSlice(seconds uint64) time.Duration {
	if seconds == 0 {
		return defaultTimeSlice
	}
	if seconds > uint64(math.MaxInt64/int64(time.Second)) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(seconds) * time.Second
}
