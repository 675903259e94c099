package midiexport

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/melotrace/melotrace/logging"
	"github.com/melotrace/melotrace/notes"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"
)

// ErrNoSegments reports an export with nothing to write.
var ErrNoSegments = errors.New("no segments to export")

// ticksPerQuarter is the SMF resolution. 480 PPQ is fine-grained enough
// that rounding error stays well under a millisecond at common tempos.
const ticksPerQuarter = 480

// Params contains parameters for MIDI export
type Params struct {
	// Tempo in beats per minute written to the file. The segments carry
	// absolute times, so the tempo only affects tick quantization.
	Tempo float64 `json:"tempo"`

	// Velocity for every note-on, 1-127.
	Velocity uint8 `json:"velocity"`

	// TrackName written as the sequence name meta event.
	TrackName string `json:"track_name"`
}

// DefaultParams returns standard export settings.
func DefaultParams() Params {
	return Params{
		Tempo:     120,
		Velocity:  100,
		TrackName: "melody",
	}
}

// Exporter writes note segments as a single-track standard MIDI file.
// Segments whose pitch falls outside the MIDI range are skipped with a
// warning rather than failing the whole export.
type Exporter struct {
	params Params
	logger logging.Logger
}

// NewExporter creates an exporter. Out-of-range tempo or velocity fall back
// to the defaults.
func NewExporter(params Params) *Exporter {
	defaults := DefaultParams()
	if params.Tempo <= 0 {
		params.Tempo = defaults.Tempo
	}
	if params.Velocity == 0 || params.Velocity > 127 {
		params.Velocity = defaults.Velocity
	}
	if params.TrackName == "" {
		params.TrackName = defaults.TrackName
	}

	return &Exporter{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "midi_exporter",
		}),
	}
}

// ExportFile writes the segments to a .mid file at path.
func (e *Exporter) ExportFile(segments []notes.Segment, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating MIDI file: %w", err)
	}
	defer f.Close()

	if err := e.Export(segments, f); err != nil {
		return err
	}

	e.logger.Info("MIDI file written", logging.Fields{
		"path":     path,
		"segments": len(segments),
	})
	return nil
}

// Export writes the segments as SMF data to w.
func (e *Exporter) Export(segments []notes.Segment, w io.Writer) error {
	if len(segments) == 0 {
		return ErrNoSegments
	}

	ordered := make([]notes.Segment, len(segments))
	copy(ordered, segments)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].StartTime < ordered[j].StartTime
	})

	var track smf.Track
	track.Add(0, smf.MetaTrackSequenceName(e.params.TrackName))
	track.Add(0, smf.MetaTempo(e.params.Tempo))

	prevTick := uint32(0)
	skipped := 0
	for _, seg := range ordered {
		key, err := notes.MIDINumber(seg.Class, seg.Octave)
		if err != nil {
			e.logger.Warn("segment outside MIDI range, skipped", logging.Fields{
				"label": seg.Label(),
				"start": seg.StartTime,
			})
			skipped++
			continue
		}

		onTick := e.tick(seg.StartTime)
		offTick := e.tick(seg.EndTime)
		if offTick <= onTick {
			offTick = onTick + 1
		}

		track.Add(onTick-prevTick, midi.NoteOn(0, key, e.params.Velocity))
		track.Add(offTick-onTick, midi.NoteOff(0, key))
		prevTick = offTick
	}
	track.Close(0)

	if skipped == len(ordered) {
		return fmt.Errorf("%w: all %d segments outside MIDI range", ErrNoSegments, skipped)
	}

	s := smf.New()
	s.TimeFormat = smf.MetricTicks(ticksPerQuarter)
	s.Add(track)

	if _, err := s.WriteTo(w); err != nil {
		return fmt.Errorf("writing MIDI data: %w", err)
	}
	return nil
}

// tick converts an absolute time in seconds to an absolute tick count at
// the configured tempo.
func (e *Exporter) tick(seconds float64) uint32 {
	secondsPerQuarter := 60 / e.params.Tempo
	return uint32(seconds/secondsPerQuarter*ticksPerQuarter + 0.5)
}
