package notes

import (
	"errors"
	"fmt"
	"math"
)

// DefaultReferenceA4 is the standard concert pitch for A4.
const DefaultReferenceA4 = 440.0

// ErrInvalidFrequency reports a quantizer call with a non-positive
// frequency. Unvoiced samples must be filtered out before quantization.
var ErrInvalidFrequency = errors.New("invalid frequency")

// ErrInvalidPitchClass reports an unrecognized pitch class name.
var ErrInvalidPitchClass = errors.New("invalid pitch class")

// pitchClassNames maps semitone index to name, indexed so that MIDI note 69
// (A4) lands on "A".
var pitchClassNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// PitchClass is one of the 12 equal-temperament semitone names.
type PitchClass string

// ParsePitchClass validates a pitch class name and returns its semitone
// index (C=0 .. B=11).
func ParsePitchClass(name string) (PitchClass, int, error) {
	for i, n := range pitchClassNames {
		if n == name {
			return PitchClass(name), i, nil
		}
	}
	return "", 0, fmt.Errorf("%w: %q", ErrInvalidPitchClass, name)
}

// Event is a single quantized pitch observation: a pitch class and octave
// with the signed cents deviation from the canonical note frequency.
type Event struct {
	Time       float64    `json:"time"`
	Class      PitchClass `json:"pitch_class"`
	Octave     int        `json:"octave"`
	Cents      float64    `json:"cents"`
	Frequency  float64    `json:"frequency"`
	Confidence float64    `json:"confidence"`
}

// Label returns the combined note label, e.g. "C#4".
func (e Event) Label() string {
	return fmt.Sprintf("%s%d", e.Class, e.Octave)
}

// Quantizer maps frequencies to equal-temperament notes and back, relative
// to a configurable A4 reference.
type Quantizer struct {
	referenceA4 float64
}

// NewQuantizer creates a quantizer. A non-positive reference falls back to
// the 440 Hz standard.
func NewQuantizer(referenceA4 float64) *Quantizer {
	if referenceA4 <= 0 {
		referenceA4 = DefaultReferenceA4
	}
	return &Quantizer{referenceA4: referenceA4}
}

// ReferenceA4 returns the A4 reference frequency in Hz.
func (q *Quantizer) ReferenceA4() float64 {
	return q.referenceA4
}

// ToNote quantizes a frequency to the nearest equal-temperament note. The
// returned cents deviation is in [-50, 50); rounding breaks exact midpoints
// toward the even MIDI number so the mapping is deterministic.
func (q *Quantizer) ToNote(frequency float64) (PitchClass, int, float64, error) {
	if frequency <= 0 || math.IsNaN(frequency) {
		return "", 0, 0, fmt.Errorf("%w: %f", ErrInvalidFrequency, frequency)
	}

	midi := 69 + 12*math.Log2(frequency/q.referenceA4)
	rounded := int(math.RoundToEven(midi))
	cents := 100 * (midi - float64(rounded))

	class := PitchClass(pitchClassNames[((rounded%12)+12)%12])
	octave := floorDiv(rounded, 12) - 1

	return class, octave, cents, nil
}

// ToFrequency returns the canonical frequency of a note. It is the exact
// inverse of ToNote up to floating rounding.
func (q *Quantizer) ToFrequency(class PitchClass, octave int) (float64, error) {
	_, index, err := ParsePitchClass(string(class))
	if err != nil {
		return 0, err
	}

	midi := (octave+1)*12 + index
	return q.referenceA4 * math.Exp2(float64(midi-69)/12), nil
}

// MIDINumber resolves a note to its standard instrument pitch number.
// Notes outside the 0-127 MIDI range are rejected.
func MIDINumber(class PitchClass, octave int) (uint8, error) {
	_, index, err := ParsePitchClass(string(class))
	if err != nil {
		return 0, err
	}

	midi := (octave+1)*12 + index
	if midi < 0 || midi > 127 {
		return 0, fmt.Errorf("MIDI note out of range: %d", midi)
	}
	return uint8(midi), nil
}

// QuantizeSample converts a voiced pitch sample to an event. Callers filter
// unvoiced samples; a non-positive frequency is an error.
func (q *Quantizer) QuantizeSample(time, frequency, confidence float64) (Event, error) {
	class, octave, cents, err := q.ToNote(frequency)
	if err != nil {
		return Event{}, err
	}

	return Event{
		Time:       time,
		Class:      class,
		Octave:     octave,
		Cents:      cents,
		Frequency:  frequency,
		Confidence: confidence,
	}, nil
}

// floorDiv divides rounding toward negative infinity.
func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}
