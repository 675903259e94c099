package notes

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// OctaveRange is the inclusive span of octaves observed in a sequence.
type OctaveRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// NoteCount pairs a note label with its occurrence count.
type NoteCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Stats summarizes the note content of an event or segment sequence.
// Recomputed on demand, never mutated. Empty input yields zero counts with
// nil OctaveRange and AvgFrequency; callers handle the absence rather than
// the aggregator guessing a default.
type Stats struct {
	TotalNotes   int            `json:"total_notes"`
	UniqueNotes  int            `json:"unique_notes"`
	Distribution map[string]int `json:"distribution"`
	MostCommon   []NoteCount    `json:"most_common"`
	OctaveRange  *OctaveRange   `json:"octave_range,omitempty"`
	AvgFrequency *float64       `json:"avg_frequency,omitempty"`
}

// maxMostCommon bounds the MostCommon list.
const maxMostCommon = 10

// EventStats aggregates statistics over a note event sequence.
func EventStats(events []Event) *Stats {
	labels := make([]string, len(events))
	octaves := make([]int, len(events))
	freqs := make([]float64, len(events))
	for i, e := range events {
		labels[i] = e.Label()
		octaves[i] = e.Octave
		freqs[i] = e.Frequency
	}
	return collect(labels, octaves, freqs)
}

// SegmentStats aggregates statistics over a segment sequence. Each segment's
// representative frequency is its run average.
func SegmentStats(segments []Segment) *Stats {
	labels := make([]string, len(segments))
	octaves := make([]int, len(segments))
	freqs := make([]float64, len(segments))
	for i, s := range segments {
		labels[i] = s.Label()
		octaves[i] = s.Octave
		freqs[i] = s.AvgFrequency
	}
	return collect(labels, octaves, freqs)
}

func collect(labels []string, octaves []int, freqs []float64) *Stats {
	stats := &Stats{
		TotalNotes:   len(labels),
		Distribution: make(map[string]int),
	}
	if len(labels) == 0 {
		return stats
	}

	for _, label := range labels {
		stats.Distribution[label]++
	}
	stats.UniqueNotes = len(stats.Distribution)

	counts := make([]NoteCount, 0, len(stats.Distribution))
	for label, count := range stats.Distribution {
		counts = append(counts, NoteCount{Label: label, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Label < counts[j].Label
	})
	if len(counts) > maxMostCommon {
		counts = counts[:maxMostCommon]
	}
	stats.MostCommon = counts

	octaveRange := &OctaveRange{Min: octaves[0], Max: octaves[0]}
	for _, o := range octaves[1:] {
		if o < octaveRange.Min {
			octaveRange.Min = o
		}
		if o > octaveRange.Max {
			octaveRange.Max = o
		}
	}
	stats.OctaveRange = octaveRange

	mean := stat.Mean(freqs, nil)
	stats.AvgFrequency = &mean

	return stats
}
