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

package trafficgen

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gitlab.eurecom.fr/open-exposure/coresim/traffic-generator/internal/models"
)

func TestNewSampler(t *testing.T) {
	tests := []struct {
		name    string
		spec    models.FlowSpec
		want    any
		wantErr bool
	}{
		{"uniform", models.FlowSpec{TrafficModel: models.Uniform, TxRate: 1000, Variance: 10}, &UniformRate{}, false},
		{"trunc norm", models.FlowSpec{TrafficModel: models.TruncNorm, TxRate: 1000, Variance: 10}, &TruncNormRate{}, false},
		{"trunc norm symmetric", models.FlowSpec{TrafficModel: models.TruncNormSymmetric, TxRate: 1000, Variance: 10}, &TruncNormRate{}, false},
		{"random sampling", models.FlowSpec{TrafficModel: models.RandomSampling, TxRate: 1000, Variance: 10}, &RandomSamplingRate{}, false},
		{"gamma", models.FlowSpec{TrafficModel: models.Gamma, TxRate: 1000, Variance: 10}, &GammaRate{}, false},
		{"gamma without variance", models.FlowSpec{TrafficModel: models.Gamma, TxRate: 1000}, ConstantRate(0), false},
		{"precomputed", models.FlowSpec{TrafficModel: models.Precomputed, TxRate: 1000, TransmitRates: []uint64{1, 2}}, &PrecomputedRate{}, false},
		{"precomputed without schedule", models.FlowSpec{TrafficModel: models.Precomputed, TxRate: 1000}, nil, true},
		{"unknown model", models.FlowSpec{TrafficModel: models.TrafficModel(42), TxRate: 1000}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sampler, err := NewSampler(tt.spec)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, sampler)
		})
	}
}

func TestUniformRate_Bounds(t *testing.T) {
	u := NewUniformRate(1000, 300)
	assert.InDelta(t, 970.0, u.Min, 1e-9)
	assert.InDelta(t, 1030.0, u.Max, 1e-9)

	for i := 0; i < 1000; i++ {
		r := u.NextRate()
		assert.GreaterOrEqual(t, r, 970.0)
		assert.LessOrEqual(t, r, 1030.0)
	}
}

func TestUniformRate_ZeroVariance(t *testing.T) {
	u := NewUniformRate(500, 0)
	assert.Equal(t, 500.0, u.NextRate())
}

func TestTruncNormRate_StaysInBounds(t *testing.T) {
	// sigma much larger than mu, most raw draws fall outside [0, 2mu]
	tn := NewTruncNormRate(100, 1000, 0, 200)
	for i := 0; i < 1000; i++ {
		r := tn.NextRate()
		assert.GreaterOrEqual(t, r, 0.0)
		assert.LessOrEqual(t, r, 200.0)
	}
}

func TestTruncNormRate_ZeroSigma(t *testing.T) {
	tn := NewTruncNormRate(100, 0, 0, 200)
	assert.Equal(t, 100.0, tn.NextRate())
}

func TestGammaRate_Mean(t *testing.T) {
	sampler, err := NewGammaRate(1000, 100)
	require.NoError(t, err)

	sum := 0.0
	const n = 2000
	for i := 0; i < n; i++ {
		r := sampler.NextRate()
		assert.Greater(t, r, 0.0)
		sum += r
	}
	assert.InEpsilon(t, 1000.0, sum/n, 0.01)
}

func TestGammaRate_RejectsZeroMean(t *testing.T) {
	_, err := NewGammaRate(0, 10)
	assert.Error(t, err)
}

func TestPrecomputedRate_Cycles(t *testing.T) {
	p, err := NewPrecomputedRate([]uint64{10, 20, 30})
	require.NoError(t, err)

	var got []float64
	for i := 0; i < 7; i++ {
		got = append(got, p.NextRate())
	}
	assert.Equal(t, []float64{10, 20, 30, 10, 20, 30, 10}, got)
}

type countingSampler struct {
	next float64
}

func (c *countingSampler) NextRate() float64 {
	c.next++
	return c.next
}

func TestRandomSamplingRate_ConfiguredOrResampled(t *testing.T) {
	inner := &countingSampler{next: 1000}
	r := NewRandomSamplingRate(inner, 100)
	r.rnd = rand.New(rand.NewPCG(1, 2))

	resampled := 0
	const n = 1000
	for i := 0; i < n; i++ {
		drawsBefore := inner.next
		got := r.NextRate()
		if got == 100 {
			// holding never consumes a draw
			require.Equal(t, drawsBefore, inner.next)
			continue
		}
		require.Equal(t, drawsBefore+1, got)
		resampled++
	}
	assert.Greater(t, resampled, n*35/100)
	assert.Less(t, resampled, n*65/100)
}

func TestRandomSamplingRate_HoldDoesNotKeepLastDraw(t *testing.T) {
	inner := &countingSampler{next: 1000}
	r := NewRandomSamplingRate(inner, 100)
	r.rnd = rand.New(rand.NewPCG(7, 7))

	afterDraw := false
	for i := 0; i < 200; i++ {
		got := r.NextRate()
		if afterDraw && got != inner.next {
			// the slice following a draw either draws again or is back to the configured rate
			require.Equal(t, 100.0, got)
			return
		}
		afterDraw = got != 100
	}
	t.Fatal("no hold followed a draw in 200 slices")
}
