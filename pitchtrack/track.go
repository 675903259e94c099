package pitchtrack

import (
	"errors"
	"fmt"
)

// ErrMalformedTrack reports a pitch track whose timestamps are not strictly
// increasing or whose parallel arrays disagree in length.
var ErrMalformedTrack = errors.New("malformed pitch track")

// Sample is one frame of a pitch track: a timestamp, the dominant frequency
// detected at that frame (0 means unvoiced, no pitch), and the estimator's
// confidence in [0, 1].
type Sample struct {
	Time       float64 `json:"time"`       // Seconds from track start
	Frequency  float64 `json:"frequency"`  // Hz, 0 = unvoiced
	Confidence float64 `json:"confidence"` // 0-1
}

// Voiced reports whether the sample carries a pitch.
func (s Sample) Voiced() bool {
	return s.Frequency > 0
}

// Track is an ordered sequence of samples with strictly increasing
// timestamps. The hop between frames is nominally uniform; it is not
// enforced, but gap interpolation sizes its windows assuming it.
type Track struct {
	Samples []Sample `json:"samples"`
}

// New builds a track from parallel time/frequency/confidence arrays, the
// shape produced by external pitch estimators.
func New(times, frequencies, confidences []float64) (*Track, error) {
	if len(times) != len(frequencies) || len(times) != len(confidences) {
		return nil, fmt.Errorf("%w: array lengths %d/%d/%d",
			ErrMalformedTrack, len(times), len(frequencies), len(confidences))
	}

	samples := make([]Sample, len(times))
	for i := range times {
		samples[i] = Sample{
			Time:       times[i],
			Frequency:  frequencies[i],
			Confidence: confidences[i],
		}
	}

	t := &Track{Samples: samples}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// Validate checks the track invariants: non-negative, strictly increasing
// timestamps and non-negative frequencies.
func (t *Track) Validate() error {
	for i, s := range t.Samples {
		if s.Time < 0 {
			return fmt.Errorf("%w: negative timestamp %f at index %d",
				ErrMalformedTrack, s.Time, i)
		}
		if s.Frequency < 0 {
			return fmt.Errorf("%w: negative frequency %f at index %d",
				ErrMalformedTrack, s.Frequency, i)
		}
		if i > 0 && s.Time <= t.Samples[i-1].Time {
			return fmt.Errorf("%w: non-monotonic timestamp %f at index %d",
				ErrMalformedTrack, s.Time, i)
		}
	}
	return nil
}

// Len returns the number of frames.
func (t *Track) Len() int {
	return len(t.Samples)
}

// Clone returns a deep copy of the track.
func (t *Track) Clone() *Track {
	samples := make([]Sample, len(t.Samples))
	copy(samples, t.Samples)
	return &Track{Samples: samples}
}

// VoicedCount returns the number of frames carrying a pitch.
func (t *Track) VoicedCount() int {
	count := 0
	for _, s := range t.Samples {
		if s.Voiced() {
			count++
		}
	}
	return count
}

// NominalHop estimates the frame hop as the median of consecutive timestamp
// deltas. Returns 0 for tracks with fewer than two frames.
func (t *Track) NominalHop() float64 {
	if len(t.Samples) < 2 {
		return 0
	}

	deltas := make([]float64, 0, len(t.Samples)-1)
	for i := 1; i < len(t.Samples); i++ {
		deltas = append(deltas, t.Samples[i].Time-t.Samples[i-1].Time)
	}
	return median(deltas)
}
