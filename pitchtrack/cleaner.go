package pitchtrack

import (
	"math"

	"github.com/melotrace/melotrace/logging"
)

// CleanerParams contains parameters for pitch track cleanup
type CleanerParams struct {
	// SmoothingWindow is the centered median filter size in frames. Must be
	// odd; even values are widened by one.
	SmoothingWindow int `json:"smoothing_window"`

	// OutlierFactor is the MAD multiple beyond which a voiced sample is
	// rejected as an outlier.
	OutlierFactor float64 `json:"outlier_factor"`

	// MaxGap is the longest unvoiced gap, in seconds, that interpolation
	// will bridge. Longer gaps stay unvoiced.
	MaxGap float64 `json:"max_gap"`
}

// DefaultCleanerParams returns cleanup parameters suitable for melodic
// tracks at typical analysis hop sizes.
func DefaultCleanerParams() CleanerParams {
	return CleanerParams{
		SmoothingWindow: 5,
		OutlierFactor:   3.0,
		MaxGap:          0.25,
	}
}

// CleanOptions selects which cleanup stages run. A disabled stage is a
// pass-through.
type CleanOptions struct {
	Smooth         bool `json:"smooth"`
	RemoveOutliers bool `json:"remove_outliers"`
	Interpolate    bool `json:"interpolate"`
}

// Cleaner removes spurious readings from a raw pitch track and fills short
// unvoiced gaps. Stages run in a fixed order: median smoothing, MAD outlier
// rejection, then log-frequency gap interpolation. Samples judged invalid
// are set unvoiced (frequency 0) unless interpolation later fills them.
// Confidence values pass through untouched.
type Cleaner struct {
	params CleanerParams
	logger logging.Logger
}

// NewCleaner creates a cleaner with the given parameters.
func NewCleaner(params CleanerParams) *Cleaner {
	if params.SmoothingWindow > 0 && params.SmoothingWindow%2 == 0 {
		params.SmoothingWindow++
	}

	return &Cleaner{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_cleaner",
		}),
	}
}

// Params returns the cleaner parameters.
func (c *Cleaner) Params() CleanerParams {
	return c.params
}

// Clean returns a new track with the selected stages applied. The output has
// the same length and time axis as the input; the input is never modified.
// An all-unvoiced track comes back unchanged.
func (c *Cleaner) Clean(track *Track, opts CleanOptions) (*Track, error) {
	if err := track.Validate(); err != nil {
		return nil, err
	}

	out := track.Clone()
	if out.VoicedCount() == 0 {
		return out, nil
	}

	if opts.Smooth {
		c.smooth(out)
	}
	if opts.RemoveOutliers {
		c.removeOutliers(out)
	}
	if opts.Interpolate {
		c.interpolateGaps(out)
	}

	c.logger.Debug("pitch track cleaned", logging.Fields{
		"frames":        out.Len(),
		"voiced_in":     track.VoicedCount(),
		"voiced_out":    out.VoicedCount(),
		"smooth":        opts.Smooth,
		"outliers":      opts.RemoveOutliers,
		"interpolation": opts.Interpolate,
	})

	return out, nil
}

// smooth replaces each voiced frequency with the median of the voiced values
// inside a centered window. Unvoiced samples contribute nothing to the
// window statistic and remain 0.
func (c *Cleaner) smooth(track *Track) {
	w := c.params.SmoothingWindow
	if w < 3 || track.Len() < 2 {
		return
	}

	half := w / 2
	source := frequencySnapshot(track)

	for i := range track.Samples {
		if source[i] <= 0 {
			continue
		}

		window := voicedWindow(source, i, half)
		if len(window) == 0 {
			continue
		}
		track.Samples[i].Frequency = median(window)
	}
}

// removeOutliers marks voiced samples unvoiced when they deviate from the
// local median by more than OutlierFactor times the local MAD. Windows at
// the sequence boundaries shrink to one side.
func (c *Cleaner) removeOutliers(track *Track) {
	w := c.params.SmoothingWindow
	if w < 3 {
		w = 5
	}
	half := w / 2
	source := frequencySnapshot(track)

	rejected := 0
	for i := range track.Samples {
		if source[i] <= 0 {
			continue
		}

		window := voicedWindow(source, i, half)
		if len(window) < 3 {
			continue
		}

		center := median(window)
		deviations := make([]float64, len(window))
		for j, v := range window {
			deviations[j] = math.Abs(v - center)
		}
		mad := median(deviations)

		if math.Abs(source[i]-center) > c.params.OutlierFactor*mad {
			track.Samples[i].Frequency = 0
			rejected++
		}
	}

	if rejected > 0 {
		c.logger.Debug("outliers rejected", logging.Fields{
			"count":  rejected,
			"factor": c.params.OutlierFactor,
		})
	}
}

// interpolateGaps fills runs of unvoiced samples bounded on both sides by
// voiced samples, provided the bounding samples are no further apart than
// MaxGap. Interpolation is linear in log frequency, so the fill follows
// musical pitch rather than raw Hz. Runs at the track edges stay unvoiced.
func (c *Cleaner) interpolateGaps(track *Track) {
	if c.params.MaxGap <= 0 {
		return
	}

	samples := track.Samples
	i := 0
	for i < len(samples) {
		if samples[i].Voiced() {
			i++
			continue
		}

		// Unvoiced run [i, j)
		j := i
		for j < len(samples) && !samples[j].Voiced() {
			j++
		}

		left := i - 1
		right := j
		if left >= 0 && right < len(samples) {
			span := samples[right].Time - samples[left].Time
			if span <= c.params.MaxGap {
				logLeft := math.Log(samples[left].Frequency)
				logRight := math.Log(samples[right].Frequency)

				for k := i; k < j; k++ {
					frac := (samples[k].Time - samples[left].Time) / span
					samples[k].Frequency = math.Exp(logLeft + frac*(logRight-logLeft))
				}
			}
		}

		i = j
	}
}

// frequencySnapshot copies the frequency values so a stage reads its input
// rather than its own partial output.
func frequencySnapshot(track *Track) []float64 {
	freqs := make([]float64, len(track.Samples))
	for i, s := range track.Samples {
		freqs[i] = s.Frequency
	}
	return freqs
}

// voicedWindow collects the voiced values in [center-half, center+half],
// clipped at the sequence boundaries.
func voicedWindow(freqs []float64, center, half int) []float64 {
	lo := center - half
	if lo < 0 {
		lo = 0
	}
	hi := center + half
	if hi > len(freqs)-1 {
		hi = len(freqs) - 1
	}

	window := make([]float64, 0, hi-lo+1)
	for i := lo; i <= hi; i++ {
		if freqs[i] > 0 {
			window = append(window, freqs[i])
		}
	}
	return window
}
