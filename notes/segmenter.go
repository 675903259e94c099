package notes

import (
	"fmt"
	"sort"

	"github.com/melotrace/melotrace/logging"
	"github.com/melotrace/melotrace/pitchtrack"
	"gonum.org/v1/gonum/stat"
)

// Segment is a maximal run of time-contiguous events sharing a pitch class
// and octave, surviving the minimum-duration filter. Immutable once built.
type Segment struct {
	StartTime    float64    `json:"start_time"`
	EndTime      float64    `json:"end_time"`
	Duration     float64    `json:"duration"`
	Class        PitchClass `json:"pitch_class"`
	Octave       int        `json:"octave"`
	AvgFrequency float64    `json:"avg_frequency"`
}

// Label returns the combined note label, e.g. "A4".
func (s Segment) Label() string {
	return fmt.Sprintf("%s%d", s.Class, s.Octave)
}

// SegmenterParams contains parameters for temporal segmentation
type SegmenterParams struct {
	// MinDuration is the shortest segment emitted, in seconds. Shorter
	// candidate runs are dropped, not merged into neighbors.
	MinDuration float64 `json:"min_duration"`

	// GapTolerance is the largest time difference between consecutive
	// events still considered contiguous, in seconds. Zero derives
	// 1.5x the median inter-event spacing.
	GapTolerance float64 `json:"gap_tolerance"`

	// ReleaseExtension extends each run's end time to approximate the true
	// note-off, in seconds. Clamped so segments never overlap. Zero
	// disables the extension.
	ReleaseExtension float64 `json:"release_extension"`
}

// DefaultSegmenterParams returns segmentation parameters matching the
// cleanup stage's bias toward dropping transient misfires.
func DefaultSegmenterParams() SegmenterParams {
	return SegmenterParams{
		MinDuration:      0.1,
		GapTolerance:     0,
		ReleaseExtension: 0,
	}
}

// Segmenter groups a time-ordered event sequence into note segments. A run
// closes when the note changes or when the gap between consecutive events
// exceeds the gap tolerance, so an unvoiced interruption is never bridged
// even if the pitch resumes unchanged.
type Segmenter struct {
	params SegmenterParams
	logger logging.Logger
}

// NewSegmenter creates a segmenter with the given parameters.
func NewSegmenter(params SegmenterParams) *Segmenter {
	return &Segmenter{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "segmenter",
		}),
	}
}

// Params returns the segmenter parameters.
func (s *Segmenter) Params() SegmenterParams {
	return s.params
}

// Segment converts events into chronologically ordered, non-overlapping
// note segments. Candidate runs shorter than MinDuration are discarded.
// Event timestamps must be strictly increasing.
func (s *Segmenter) Segment(events []Event) ([]Segment, error) {
	if len(events) == 0 {
		return nil, nil
	}

	for i := 1; i < len(events); i++ {
		if events[i].Time <= events[i-1].Time {
			return nil, fmt.Errorf("%w: non-monotonic event timestamp %f at index %d",
				pitchtrack.ErrMalformedTrack, events[i].Time, i)
		}
	}

	gapTolerance := s.params.GapTolerance
	if gapTolerance <= 0 {
		gapTolerance = 1.5 * medianSpacing(events)
	}

	var runs [][]Event
	run := []Event{events[0]}

	for _, e := range events[1:] {
		prev := run[len(run)-1]
		sameNote := e.Class == prev.Class && e.Octave == prev.Octave
		contiguous := gapTolerance <= 0 || e.Time-prev.Time <= gapTolerance

		if sameNote && contiguous {
			run = append(run, e)
			continue
		}
		runs = append(runs, run)
		run = []Event{e}
	}
	runs = append(runs, run)

	segments := make([]Segment, 0, len(runs))
	for i, run := range runs {
		seg := s.buildSegment(run)

		if s.params.ReleaseExtension > 0 {
			end := seg.EndTime + s.params.ReleaseExtension
			if i+1 < len(runs) && end > runs[i+1][0].Time {
				end = runs[i+1][0].Time
			}
			seg.EndTime = end
			seg.Duration = seg.EndTime - seg.StartTime
		}

		if seg.Duration < s.params.MinDuration {
			continue
		}
		segments = append(segments, seg)
	}

	s.logger.Debug("events segmented", logging.Fields{
		"events":        len(events),
		"candidates":    len(runs),
		"segments":      len(segments),
		"min_duration":  s.params.MinDuration,
		"gap_tolerance": gapTolerance,
	})

	return segments, nil
}

func (s *Segmenter) buildSegment(run []Event) Segment {
	freqs := make([]float64, len(run))
	for i, e := range run {
		freqs[i] = e.Frequency
	}

	first := run[0]
	last := run[len(run)-1]

	return Segment{
		StartTime:    first.Time,
		EndTime:      last.Time,
		Duration:     last.Time - first.Time,
		Class:        first.Class,
		Octave:       first.Octave,
		AvgFrequency: stat.Mean(freqs, nil),
	}
}

// medianSpacing estimates the nominal hop from the median delta between
// consecutive event timestamps.
func medianSpacing(events []Event) float64 {
	if len(events) < 2 {
		return 0
	}

	deltas := make([]float64, 0, len(events)-1)
	for i := 1; i < len(events); i++ {
		deltas = append(deltas, events[i].Time-events[i-1].Time)
	}
	sort.Float64s(deltas)

	return stat.Quantile(0.5, stat.Empirical, deltas, nil)
}
