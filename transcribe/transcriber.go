// Package transcribe wires the analysis stages into one pipeline: raw pitch
// track in, cleaned track, quantized note events, note segments, and summary
// statistics out.
package transcribe

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/melotrace/melotrace/compare"
	"github.com/melotrace/melotrace/logging"
	"github.com/melotrace/melotrace/notes"
	"github.com/melotrace/melotrace/pitchtrack"
	"github.com/melotrace/melotrace/transcribe/config"
)

// Analysis is the persistent artifact of one pipeline run. Everything the
// comparator or exporter needs later is in here, so downstream commands never
// have to re-run the audio analysis.
type Analysis struct {
	Source       string            `json:"source,omitempty"`
	AnalyzedAt   time.Time         `json:"analyzed_at"`
	ReferenceA4  float64           `json:"reference_a4"`
	Track        *pitchtrack.Track `json:"track,omitempty"`
	Events       []notes.Event     `json:"events"`
	Segments     []notes.Segment   `json:"segments"`
	EventStats   *notes.Stats      `json:"event_stats"`
	SegmentStats *notes.Stats      `json:"segment_stats"`
}

// Transcriber runs the full pipeline over a raw pitch track. Stateless apart
// from its configuration; safe for concurrent use on distinct tracks.
type Transcriber struct {
	cfg       *config.Config
	cleaner   *pitchtrack.Cleaner
	quantizer *notes.Quantizer
	segmenter *notes.Segmenter
	logger    logging.Logger
}

// New creates a transcriber. A nil config uses the defaults.
func New(cfg *config.Config) *Transcriber {
	if cfg == nil {
		cfg = config.Default()
	}

	return &Transcriber{
		cfg:       cfg,
		cleaner:   pitchtrack.NewCleaner(cfg.Cleaner),
		quantizer: notes.NewQuantizer(cfg.ReferenceA4),
		segmenter: notes.NewSegmenter(cfg.Segmenter),
		logger: logging.WithFields(logging.Fields{
			"component": "transcriber",
		}),
	}
}

// Config returns the transcriber configuration.
func (t *Transcriber) Config() *config.Config {
	return t.cfg
}

// Transcribe cleans the track, quantizes its voiced samples to note events,
// groups them into segments, and aggregates statistics. The input track is
// not modified.
func (t *Transcriber) Transcribe(track *pitchtrack.Track) (*Analysis, error) {
	cleaned, err := t.cleaner.Clean(track, t.cfg.Cleaning)
	if err != nil {
		return nil, fmt.Errorf("cleaning pitch track: %w", err)
	}

	events := make([]notes.Event, 0, cleaned.VoicedCount())
	for _, s := range cleaned.Samples {
		if !s.Voiced() {
			continue
		}
		event, err := t.quantizer.QuantizeSample(s.Time, s.Frequency, s.Confidence)
		if err != nil {
			return nil, fmt.Errorf("quantizing sample at %.3fs: %w", s.Time, err)
		}
		events = append(events, event)
	}

	segments, err := t.segmenter.Segment(events)
	if err != nil {
		return nil, fmt.Errorf("segmenting events: %w", err)
	}

	analysis := &Analysis{
		AnalyzedAt:   time.Now().UTC(),
		ReferenceA4:  t.quantizer.ReferenceA4(),
		Track:        cleaned,
		Events:       events,
		Segments:     segments,
		EventStats:   notes.EventStats(events),
		SegmentStats: notes.SegmentStats(segments),
	}

	t.logger.Info("transcription completed", logging.Fields{
		"frames":   track.Len(),
		"events":   len(events),
		"segments": len(segments),
	})

	return analysis, nil
}

// Compare scores a candidate analysis against this one's segments.
func (a *Analysis) Compare(candidate *Analysis, params compare.Params) (*compare.Result, error) {
	comparator := compare.NewComparator(params)
	return comparator.CompareSegments(a.Segments, candidate.Segments)
}

// Save writes the analysis as indented JSON.
func (a *Analysis) Save(path string) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding analysis: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing analysis file: %w", err)
	}
	return nil
}

// LoadAnalysis reads a saved analysis artifact.
func LoadAnalysis(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading analysis file: %w", err)
	}

	var analysis Analysis
	if err := json.Unmarshal(data, &analysis); err != nil {
		return nil, fmt.Errorf("parsing analysis file: %w", err)
	}
	return &analysis, nil
}

// trackFile is the on-disk shape of an externally produced pitch track:
// parallel arrays, the common output format of pitch estimators.
type trackFile struct {
	Times       []float64 `json:"times"`
	Frequencies []float64 `json:"frequencies"`
	Confidences []float64 `json:"confidences"`
}

// LoadTrack reads a pitch track from a parallel-array JSON file. A missing
// confidences array defaults every sample to confidence 1.
func LoadTrack(path string) (*pitchtrack.Track, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading track file: %w", err)
	}

	var tf trackFile
	if err := json.Unmarshal(data, &tf); err != nil {
		return nil, fmt.Errorf("parsing track file: %w", err)
	}

	if tf.Confidences == nil {
		tf.Confidences = make([]float64, len(tf.Times))
		for i := range tf.Confidences {
			tf.Confidences[i] = 1
		}
	}

	track, err := pitchtrack.New(tf.Times, tf.Frequencies, tf.Confidences)
	if err != nil {
		return nil, fmt.Errorf("track file %s: %w", path, err)
	}
	return track, nil
}

// SaveTrack writes a pitch track in the parallel-array JSON format.
func SaveTrack(track *pitchtrack.Track, path string) error {
	tf := trackFile{
		Times:       make([]float64, track.Len()),
		Frequencies: make([]float64, track.Len()),
		Confidences: make([]float64, track.Len()),
	}
	for i, s := range track.Samples {
		tf.Times[i] = s.Time
		tf.Frequencies[i] = s.Frequency
		tf.Confidences[i] = s.Confidence
	}

	data, err := json.MarshalIndent(&tf, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding track: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing track file: %w", err)
	}
	return nil
}
