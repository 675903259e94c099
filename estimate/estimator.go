package estimate

import (
	"errors"
	"fmt"
	"math"

	"github.com/melotrace/melotrace/logging"
	"github.com/melotrace/melotrace/pitchtrack"
	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// ErrInvalidAudio reports audio input the estimator cannot analyze.
var ErrInvalidAudio = errors.New("invalid audio input")

// Params contains parameters for frame-based pitch estimation
type Params struct {
	// SampleRate of the input audio in Hz.
	SampleRate int `json:"sample_rate"`

	// WindowSize is the analysis frame length in samples.
	WindowSize int `json:"window_size"`

	// HopSize is the step between consecutive frames in samples.
	HopSize int `json:"hop_size"`

	// MinFrequency and MaxFrequency bound the lag search range in Hz.
	MinFrequency float64 `json:"min_frequency"`
	MaxFrequency float64 `json:"max_frequency"`

	// ConfidenceFloor is the normalized autocorrelation peak below which a
	// frame is reported unvoiced.
	ConfidenceFloor float64 `json:"confidence_floor"`
}

// DefaultParams returns estimation parameters tuned for monophonic melodic
// material: voice, whistling, single instruments.
func DefaultParams() Params {
	return Params{
		SampleRate:      44100,
		WindowSize:      2048,
		HopSize:         512,
		MinFrequency:    80,
		MaxFrequency:    1200,
		ConfidenceFloor: 0.3,
	}
}

// Estimator extracts a pitch track from mono PCM audio using normalized
// autocorrelation computed through the FFT. One frequency and confidence per
// hop; frames without a clear periodicity peak come out unvoiced.
type Estimator struct {
	params Params
	logger logging.Logger
}

// NewEstimator creates an estimator with the given parameters.
func NewEstimator(params Params) (*Estimator, error) {
	if params.SampleRate <= 0 {
		return nil, fmt.Errorf("%w: sample rate %d", ErrInvalidAudio, params.SampleRate)
	}
	if params.WindowSize <= 0 || params.HopSize <= 0 {
		return nil, fmt.Errorf("%w: window %d hop %d", ErrInvalidAudio, params.WindowSize, params.HopSize)
	}
	if params.MinFrequency <= 0 || params.MaxFrequency <= params.MinFrequency {
		return nil, fmt.Errorf("%w: frequency range %.1f-%.1f Hz",
			ErrInvalidAudio, params.MinFrequency, params.MaxFrequency)
	}

	return &Estimator{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "pitch_estimator",
		}),
	}, nil
}

// Params returns the estimator parameters.
func (e *Estimator) Params() Params {
	return e.params
}

// Estimate runs frame-based pitch estimation over mono samples and returns
// a pitch track. Each frame's timestamp is the center of its window.
func (e *Estimator) Estimate(samples []float64) (*pitchtrack.Track, error) {
	if len(samples) < e.params.WindowSize {
		return nil, fmt.Errorf("%w: %d samples, need at least %d",
			ErrInvalidAudio, len(samples), e.params.WindowSize)
	}

	sr := float64(e.params.SampleRate)
	minLag := int(sr / e.params.MaxFrequency)
	maxLag := int(sr / e.params.MinFrequency)
	if maxLag >= e.params.WindowSize {
		maxLag = e.params.WindowSize - 1
	}

	hann := window.Hann(e.params.WindowSize)
	frames := 1 + (len(samples)-e.params.WindowSize)/e.params.HopSize

	track := &pitchtrack.Track{
		Samples: make([]pitchtrack.Sample, 0, frames),
	}

	frame := make([]float64, e.params.WindowSize)
	for f := 0; f < frames; f++ {
		start := f * e.params.HopSize
		for i := range frame {
			frame[i] = samples[start+i] * hann[i]
		}

		freq, conf := e.estimateFrame(frame, minLag, maxLag, sr)
		if conf < e.params.ConfidenceFloor {
			freq = 0
		}

		track.Samples = append(track.Samples, pitchtrack.Sample{
			Time:       (float64(start) + float64(e.params.WindowSize)/2) / sr,
			Frequency:  freq,
			Confidence: conf,
		})
	}

	e.logger.Debug("pitch estimation completed", logging.Fields{
		"frames": track.Len(),
		"voiced": track.VoicedCount(),
	})

	return track, nil
}

// estimateFrame finds the dominant periodicity of one windowed frame. The
// autocorrelation comes from the inverse FFT of the power spectrum; the
// best lag inside the search range is refined with parabolic interpolation.
func (e *Estimator) estimateFrame(frame []float64, minLag, maxLag int, sr float64) (float64, float64) {
	corr := autocorrelate(frame)
	if corr[0] <= 0 {
		return 0, 0
	}

	// Normalize so the zero-lag value is 1 and peaks read as confidence.
	norm := corr[0]
	bestLag := -1
	bestVal := 0.0
	for lag := minLag; lag <= maxLag && lag < len(corr); lag++ {
		v := corr[lag] / norm
		if v > bestVal {
			bestVal = v
			bestLag = lag
		}
	}

	if bestLag <= 0 {
		return 0, 0
	}

	refined := float64(bestLag)
	if bestLag > 0 && bestLag < len(corr)-1 {
		refined += parabolicOffset(
			corr[bestLag-1]/norm,
			bestVal,
			corr[bestLag+1]/norm,
		)
	}
	if refined <= 0 {
		return 0, 0
	}

	return sr / refined, math.Max(0, math.Min(1, bestVal))
}

// autocorrelate computes the linear autocorrelation of x via FFT, zero-padded
// to avoid circular wraparound.
func autocorrelate(x []float64) []float64 {
	n := 1
	for n < 2*len(x) {
		n <<= 1
	}

	padded := make([]float64, n)
	copy(padded, x)

	spectrum := fft.FFTReal(padded)
	for i, c := range spectrum {
		spectrum[i] = complex(real(c)*real(c)+imag(c)*imag(c), 0)
	}

	inverse := fft.IFFT(spectrum)
	corr := make([]float64, len(x))
	for i := range corr {
		corr[i] = real(inverse[i])
	}
	return corr
}

// parabolicOffset fits a parabola through three equally spaced values and
// returns the fractional offset of its vertex from the center, clamped to
// half a sample either side.
func parabolicOffset(left, center, right float64) float64 {
	denom := left - 2*center + right
	if denom == 0 {
		return 0
	}
	offset := 0.5 * (left - right) / denom
	if offset > 0.5 {
		offset = 0.5
	} else if offset < -0.5 {
		offset = -0.5
	}
	return offset
}
