package estimate

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(freq float64, sampleRate, n int) []float64 {
	samples := make([]float64, n)
	for i := range samples {
		samples[i] = math.Sin(2 * math.Pi * freq * float64(i) / float64(sampleRate))
	}
	return samples
}

func TestEstimatesPureToneFrequency(t *testing.T) {
	params := DefaultParams()
	estimator, err := NewEstimator(params)
	require.NoError(t, err)

	track, err := estimator.Estimate(sine(440, params.SampleRate, params.SampleRate/2))
	require.NoError(t, err)
	require.Greater(t, track.VoicedCount(), 0)

	for _, s := range track.Samples {
		if !s.Voiced() {
			continue
		}
		// Within a quarter tone of the true pitch.
		assert.InDelta(t, 440, s.Frequency, 7)
		assert.Greater(t, s.Confidence, 0.5)
	}
}

func TestEstimatesLowTone(t *testing.T) {
	params := DefaultParams()
	estimator, err := NewEstimator(params)
	require.NoError(t, err)

	track, err := estimator.Estimate(sine(110, params.SampleRate, params.SampleRate/2))
	require.NoError(t, err)
	require.Greater(t, track.VoicedCount(), 0)

	for _, s := range track.Samples {
		if s.Voiced() {
			assert.InDelta(t, 110, s.Frequency, 2)
		}
	}
}

func TestSilenceComesOutUnvoiced(t *testing.T) {
	params := DefaultParams()
	estimator, err := NewEstimator(params)
	require.NoError(t, err)

	track, err := estimator.Estimate(make([]float64, params.SampleRate/4))
	require.NoError(t, err)

	assert.Equal(t, 0, track.VoicedCount())
}

func TestTimestampsAdvanceByHop(t *testing.T) {
	params := DefaultParams()
	estimator, err := NewEstimator(params)
	require.NoError(t, err)

	track, err := estimator.Estimate(sine(440, params.SampleRate, params.SampleRate/4))
	require.NoError(t, err)
	require.Greater(t, track.Len(), 1)

	hop := float64(params.HopSize) / float64(params.SampleRate)
	for i := 1; i < track.Len(); i++ {
		assert.InDelta(t, hop, track.Samples[i].Time-track.Samples[i-1].Time, 1e-9)
	}
}

func TestRejectsTooShortInput(t *testing.T) {
	estimator, err := NewEstimator(DefaultParams())
	require.NoError(t, err)

	_, err = estimator.Estimate(make([]float64, 100))
	assert.True(t, errors.Is(err, ErrInvalidAudio))
}

func TestRejectsBadParams(t *testing.T) {
	bad := DefaultParams()
	bad.SampleRate = 0
	_, err := NewEstimator(bad)
	assert.True(t, errors.Is(err, ErrInvalidAudio))

	bad = DefaultParams()
	bad.MaxFrequency = 50 // below MinFrequency
	_, err = NewEstimator(bad)
	assert.True(t, errors.Is(err, ErrInvalidAudio))
}
