package pitchtrack

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// uniformTrack builds a track at a 10 ms hop from the given frequencies.
func uniformTrack(t *testing.T, freqs []float64) *Track {
	t.Helper()

	times := make([]float64, len(freqs))
	confs := make([]float64, len(freqs))
	for i := range freqs {
		times[i] = float64(i) * 0.01
		confs[i] = 0.9
	}

	track, err := New(times, freqs, confs)
	require.NoError(t, err)
	return track
}

func frequencies(track *Track) []float64 {
	freqs := make([]float64, track.Len())
	for i, s := range track.Samples {
		freqs[i] = s.Frequency
	}
	return freqs
}

func TestRejectsMismatchedArrays(t *testing.T) {
	_, err := New([]float64{0, 1}, []float64{440}, []float64{0.9, 0.9})
	assert.True(t, errors.Is(err, ErrMalformedTrack))
}

func TestRejectsNonMonotonicTimestamps(t *testing.T) {
	_, err := New(
		[]float64{0, 0.02, 0.01},
		[]float64{440, 440, 440},
		[]float64{1, 1, 1},
	)
	assert.True(t, errors.Is(err, ErrMalformedTrack))
}

func TestRejectsNegativeTimestamps(t *testing.T) {
	_, err := New(
		[]float64{-0.01, 0, 0.01},
		[]float64{440, 440, 440},
		[]float64{1, 1, 1},
	)
	assert.True(t, errors.Is(err, ErrMalformedTrack))
}

func TestRejectsNegativeFrequencies(t *testing.T) {
	_, err := New(
		[]float64{0, 0.01},
		[]float64{440, -1},
		[]float64{1, 1},
	)
	assert.True(t, errors.Is(err, ErrMalformedTrack))
}

func TestCleanWithAllStagesDisabledIsIdentity(t *testing.T) {
	track := uniformTrack(t, []float64{440, 445, 0, 430, 440})
	cleaner := NewCleaner(DefaultCleanerParams())

	out, err := cleaner.Clean(track, CleanOptions{})
	require.NoError(t, err)

	assert.Equal(t, frequencies(track), frequencies(out))
}

func TestCleanDoesNotModifyInput(t *testing.T) {
	track := uniformTrack(t, []float64{440, 880, 440, 440, 440})
	before := frequencies(track)

	cleaner := NewCleaner(DefaultCleanerParams())
	_, err := cleaner.Clean(track, CleanOptions{Smooth: true, RemoveOutliers: true, Interpolate: true})
	require.NoError(t, err)

	assert.Equal(t, before, frequencies(track))
}

func TestAllUnvoicedTrackComesBackUnchanged(t *testing.T) {
	track := uniformTrack(t, []float64{0, 0, 0, 0})
	cleaner := NewCleaner(DefaultCleanerParams())

	out, err := cleaner.Clean(track, CleanOptions{Smooth: true, RemoveOutliers: true, Interpolate: true})
	require.NoError(t, err)

	assert.Equal(t, []float64{0, 0, 0, 0}, frequencies(out))
}

func TestSmoothingSuppressesSingleFrameSpike(t *testing.T) {
	track := uniformTrack(t, []float64{440, 440, 880, 440, 440})
	cleaner := NewCleaner(DefaultCleanerParams())

	out, err := cleaner.Clean(track, CleanOptions{Smooth: true})
	require.NoError(t, err)

	for i, f := range frequencies(out) {
		assert.InDelta(t, 440, f, 1e-9, "frame %d", i)
	}
}

func TestOutlierRejectionMarksSpikeUnvoiced(t *testing.T) {
	track := uniformTrack(t, []float64{440, 440, 440, 880, 440, 440, 440})
	cleaner := NewCleaner(DefaultCleanerParams())

	// Smoothing off so the rejection stage sees the raw spike.
	out, err := cleaner.Clean(track, CleanOptions{RemoveOutliers: true})
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(0.0, out.Samples[3].Frequency)
	assert.Equal(440.0, out.Samples[0].Frequency)
	assert.Equal(440.0, out.Samples[6].Frequency)
}

func TestInterpolationRefillsRejectedSpike(t *testing.T) {
	track := uniformTrack(t, []float64{440, 440, 440, 880, 440, 440, 440})
	cleaner := NewCleaner(DefaultCleanerParams())

	out, err := cleaner.Clean(track, CleanOptions{RemoveOutliers: true, Interpolate: true})
	require.NoError(t, err)

	// The spike goes unvoiced, then interpolation fills it back inside the
	// stable band.
	assert.InDelta(t, 440, out.Samples[3].Frequency, 1e-6)
	assert.Equal(t, out.Len(), out.VoicedCount())
}

func TestOutlierRejectionKeepsConsistentValues(t *testing.T) {
	track := uniformTrack(t, []float64{440, 440, 440, 440, 440, 440, 440})
	cleaner := NewCleaner(DefaultCleanerParams())

	out, err := cleaner.Clean(track, CleanOptions{RemoveOutliers: true})
	require.NoError(t, err)

	assert.Equal(t, track.VoicedCount(), out.VoicedCount())
}

func TestInterpolationBridgesShortGap(t *testing.T) {
	track := uniformTrack(t, []float64{440, 0, 0, 440, 440})
	cleaner := NewCleaner(DefaultCleanerParams())

	out, err := cleaner.Clean(track, CleanOptions{Interpolate: true})
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Equal(out.Len(), out.VoicedCount())
	assert.InDelta(440, out.Samples[1].Frequency, 1e-9)
	assert.InDelta(440, out.Samples[2].Frequency, 1e-9)
}

func TestInterpolationFollowsLogFrequency(t *testing.T) {
	// One missing frame halfway between an octave jump should land on the
	// geometric midpoint, not the arithmetic one.
	track, err := New(
		[]float64{0, 0.01, 0.02},
		[]float64{440, 0, 880},
		[]float64{1, 1, 1},
	)
	require.NoError(t, err)

	cleaner := NewCleaner(DefaultCleanerParams())
	out, err := cleaner.Clean(track, CleanOptions{Interpolate: true})
	require.NoError(t, err)

	assert.InDelta(t, 622.25, out.Samples[1].Frequency, 0.1)
}

func TestInterpolationSkipsLongGaps(t *testing.T) {
	freqs := make([]float64, 40)
	freqs[0] = 440
	freqs[39] = 440
	track := uniformTrack(t, freqs)

	cleaner := NewCleaner(DefaultCleanerParams())
	out, err := cleaner.Clean(track, CleanOptions{Interpolate: true})
	require.NoError(t, err)

	// 0.39 s between the bounding voiced frames exceeds the 0.25 s cap.
	assert.Equal(t, 2, out.VoicedCount())
}

func TestInterpolationLeavesEdgeGapsUnvoiced(t *testing.T) {
	track := uniformTrack(t, []float64{0, 0, 440, 440, 0})
	cleaner := NewCleaner(DefaultCleanerParams())

	out, err := cleaner.Clean(track, CleanOptions{Interpolate: true})
	require.NoError(t, err)

	assert := assert.New(t)
	assert.False(out.Samples[0].Voiced())
	assert.False(out.Samples[1].Voiced())
	assert.False(out.Samples[4].Voiced())
}

func TestConfidencePassesThroughCleaning(t *testing.T) {
	track, err := New(
		[]float64{0, 0.01, 0.02},
		[]float64{440, 880, 440},
		[]float64{0.2, 0.5, 0.8},
	)
	require.NoError(t, err)

	cleaner := NewCleaner(DefaultCleanerParams())
	out, err := cleaner.Clean(track, CleanOptions{Smooth: true, RemoveOutliers: true, Interpolate: true})
	require.NoError(t, err)

	for i, s := range out.Samples {
		assert.Equal(t, track.Samples[i].Confidence, s.Confidence)
	}
}

func TestEvenSmoothingWindowIsWidened(t *testing.T) {
	cleaner := NewCleaner(CleanerParams{SmoothingWindow: 4, OutlierFactor: 3, MaxGap: 0.25})
	assert.Equal(t, 5, cleaner.Params().SmoothingWindow)
}

func TestNominalHop(t *testing.T) {
	track := uniformTrack(t, []float64{440, 440, 440, 440})
	assert.InDelta(t, 0.01, track.NominalHop(), 1e-9)

	short := &Track{Samples: []Sample{{Time: 0, Frequency: 440}}}
	assert.Equal(t, 0.0, short.NominalHop())
}
