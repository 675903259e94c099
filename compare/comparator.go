package compare

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/melotrace/melotrace/logging"
	"github.com/melotrace/melotrace/notes"
	"gonum.org/v1/gonum/stat"
)

// ErrEmptyReference reports a comparison against an empty original
// sequence. A score against nothing is meaningless and is rejected rather
// than degraded.
var ErrEmptyReference = errors.New("empty reference sequence")

// Params contains parameters for note sequence comparison
type Params struct {
	// TimeTolerance is the window, in seconds, within which two same-note
	// occurrences count as a match.
	TimeTolerance float64 `json:"time_tolerance"`

	// Sub-score weights. They should sum to 1; the overall score is
	// clamped to [0, 100] regardless.
	SimilarityWeight float64 `json:"similarity_weight"`
	MatchingWeight   float64 `json:"matching_weight"`
	TimingWeight     float64 `json:"timing_weight"`
}

// DefaultParams returns the standard comparison weighting: note similarity
// and note matching at 0.4 each, timing accuracy at 0.2.
func DefaultParams() Params {
	return Params{
		TimeTolerance:    0.5,
		SimilarityWeight: 0.4,
		MatchingWeight:   0.4,
		TimingWeight:     0.2,
	}
}

// Grade is a letter grade derived from the overall score.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
	GradeF Grade = "F"
)

// Description returns the human-readable reading of the grade.
func (g Grade) Description() string {
	switch g {
	case GradeA:
		return "Excellent"
	case GradeB:
		return "Very Good"
	case GradeC:
		return "Good"
	case GradeD:
		return "Fair"
	default:
		return "Needs Improvement"
	}
}

func gradeFor(score float64) Grade {
	switch {
	case score >= 90:
		return GradeA
	case score >= 80:
		return GradeB
	case score >= 70:
		return GradeC
	case score >= 60:
		return GradeD
	default:
		return GradeF
	}
}

// MatchedPair is a one-to-one pairing of an original note occurrence with a
// candidate occurrence of the same label within the time tolerance.
type MatchedPair struct {
	Label         string      `json:"label"`
	Original      notes.Event `json:"original"`
	Candidate     notes.Event `json:"candidate"`
	TimeDiff      float64     `json:"time_diff"`
	FrequencyDiff float64     `json:"frequency_diff"`
}

// TimingStats summarizes the absolute time differences of matched pairs.
type TimingStats struct {
	AvgTimeDiff float64 `json:"avg_time_diff"`
	MinTimeDiff float64 `json:"min_time_diff"`
	MaxTimeDiff float64 `json:"max_time_diff"`
	StdTimeDiff float64 `json:"std_time_diff"`
}

// Result holds the outcome of comparing two note sequences. Built fresh per
// comparison call; read-only afterwards.
type Result struct {
	OverallScore        float64 `json:"overall_score"` // 0-100
	Grade               Grade   `json:"grade"`
	NoteSimilarityScore float64 `json:"note_similarity_score"`
	NoteMatchingScore   float64 `json:"note_matching_score"`
	TimingAccuracyScore float64 `json:"timing_accuracy_score"`

	// Degenerate flags a comparison whose label union was empty, where the
	// Jaccard similarity is defined as 0 rather than undefined. Compare
	// rejects an empty original, so a non-empty original keeps the union
	// populated and the flag stays false on every Compare result; it only
	// fires if the similarity scorer is ever driven with label-less inputs.
	Degenerate bool `json:"degenerate,omitempty"`

	MatchedPairs       []MatchedPair `json:"matched_pairs"`
	UnmatchedOriginal  []notes.Event `json:"unmatched_original"`
	UnmatchedCandidate []notes.Event `json:"unmatched_comparison"`

	Timing TimingStats `json:"timing"`
}

// Comparator aligns two note sequences and produces a weighted similarity
// score. Matching is a deterministic greedy heuristic, run independently per
// note label; it is maximal but not globally optimal.
type Comparator struct {
	params Params
	logger logging.Logger
}

// NewComparator creates a comparator. A non-positive tolerance falls back
// to the default; zero weights fall back to the standard weighting.
func NewComparator(params Params) *Comparator {
	defaults := DefaultParams()
	if params.TimeTolerance <= 0 {
		params.TimeTolerance = defaults.TimeTolerance
	}
	if params.SimilarityWeight == 0 && params.MatchingWeight == 0 && params.TimingWeight == 0 {
		params.SimilarityWeight = defaults.SimilarityWeight
		params.MatchingWeight = defaults.MatchingWeight
		params.TimingWeight = defaults.TimingWeight
	}

	return &Comparator{
		params: params,
		logger: logging.WithFields(logging.Fields{
			"component": "comparator",
		}),
	}
}

// Params returns the comparator parameters.
func (c *Comparator) Params() Params {
	return c.params
}

// Compare scores a candidate note sequence against an original. The
// original must be non-empty; an empty candidate is valid and scores 0.
func (c *Comparator) Compare(original, candidate []notes.Event) (*Result, error) {
	if len(original) == 0 {
		return nil, fmt.Errorf("comparison rejected: %w", ErrEmptyReference)
	}

	result := &Result{}

	result.NoteSimilarityScore = c.labelSimilarity(original, candidate, result)
	c.matchNotes(original, candidate, result)

	result.NoteMatchingScore = 100 * float64(len(result.MatchedPairs)) / math.Max(1, float64(len(original)))
	result.TimingAccuracyScore = c.timingAccuracy(result)

	overall := c.params.SimilarityWeight*result.NoteSimilarityScore +
		c.params.MatchingWeight*result.NoteMatchingScore +
		c.params.TimingWeight*result.TimingAccuracyScore
	result.OverallScore = math.Max(0, math.Min(100, overall))
	result.Grade = gradeFor(result.OverallScore)

	c.logger.Info("comparison completed", logging.Fields{
		"overall_score":   result.OverallScore,
		"grade":           result.Grade,
		"note_similarity": result.NoteSimilarityScore,
		"note_matching":   result.NoteMatchingScore,
		"timing_accuracy": result.TimingAccuracyScore,
		"matched":         len(result.MatchedPairs),
	})

	return result, nil
}

// CompareSegments scores two segment sequences by comparing their onset
// events.
func (c *Comparator) CompareSegments(original, candidate []notes.Segment) (*Result, error) {
	return c.Compare(SegmentOnsets(original), SegmentOnsets(candidate))
}

// SegmentOnsets converts segments to onset events carrying the segment's
// average frequency, the shape the matcher consumes.
func SegmentOnsets(segments []notes.Segment) []notes.Event {
	events := make([]notes.Event, len(segments))
	for i, s := range segments {
		events[i] = notes.Event{
			Time:      s.StartTime,
			Class:     s.Class,
			Octave:    s.Octave,
			Frequency: s.AvgFrequency,
		}
	}
	return events
}

// labelSimilarity computes the Jaccard index over the two sequences'
// distinct note labels, scaled to [0, 100]. An empty union yields 0 and
// marks the result degenerate; Compare's non-empty-original guard means
// that can only happen for callers bypassing Compare.
func (c *Comparator) labelSimilarity(original, candidate []notes.Event, result *Result) float64 {
	setA := labelSet(original)
	setB := labelSet(candidate)

	union := make(map[string]struct{}, len(setA)+len(setB))
	intersection := 0
	for label := range setA {
		union[label] = struct{}{}
		if _, ok := setB[label]; ok {
			intersection++
		}
	}
	for label := range setB {
		union[label] = struct{}{}
	}

	if len(union) == 0 {
		result.Degenerate = true
		return 0
	}
	return 100 * float64(intersection) / float64(len(union))
}

// matchNotes performs greedy per-label one-to-one matching. For each
// unmatched original occurrence, in time order, the not-yet-used candidate
// occurrence of the same label with the smallest absolute time difference
// wins, ties broken by earliest candidate index; the match is accepted only
// within the time tolerance. Each label's matching state is disjoint, so
// labels are processed independently.
func (c *Comparator) matchNotes(original, candidate []notes.Event, result *Result) {
	origByLabel := groupByLabel(original)
	candByLabel := groupByLabel(candidate)

	labels := make([]string, 0, len(origByLabel)+len(candByLabel))
	for label := range origByLabel {
		labels = append(labels, label)
	}
	for label := range candByLabel {
		if _, ok := origByLabel[label]; !ok {
			labels = append(labels, label)
		}
	}
	sort.Strings(labels)

	for _, label := range labels {
		origs := origByLabel[label]
		cands := candByLabel[label]
		used := make([]bool, len(cands))

		for _, o := range origs {
			best := -1
			bestDiff := math.Inf(1)
			for ci, cand := range cands {
				if used[ci] {
					continue
				}
				diff := math.Abs(o.Time - cand.Time)
				if diff < bestDiff {
					best = ci
					bestDiff = diff
				}
			}

			if best >= 0 && bestDiff <= c.params.TimeTolerance {
				used[best] = true
				result.MatchedPairs = append(result.MatchedPairs, MatchedPair{
					Label:         label,
					Original:      o,
					Candidate:     cands[best],
					TimeDiff:      bestDiff,
					FrequencyDiff: math.Abs(o.Frequency - cands[best].Frequency),
				})
			} else {
				result.UnmatchedOriginal = append(result.UnmatchedOriginal, o)
			}
		}

		for ci, cand := range cands {
			if !used[ci] {
				result.UnmatchedCandidate = append(result.UnmatchedCandidate, cand)
			}
		}
	}

	sort.Slice(result.MatchedPairs, func(i, j int) bool {
		return result.MatchedPairs[i].Original.Time < result.MatchedPairs[j].Original.Time
	})
	sort.Slice(result.UnmatchedOriginal, func(i, j int) bool {
		return result.UnmatchedOriginal[i].Time < result.UnmatchedOriginal[j].Time
	})
	sort.Slice(result.UnmatchedCandidate, func(i, j int) bool {
		return result.UnmatchedCandidate[i].Time < result.UnmatchedCandidate[j].Time
	})
}

// timingAccuracy scores the matched pairs' time differences against the
// tolerance. Zero matches score 0.
func (c *Comparator) timingAccuracy(result *Result) float64 {
	if len(result.MatchedPairs) == 0 {
		return 0
	}

	diffs := make([]float64, len(result.MatchedPairs))
	for i, pair := range result.MatchedPairs {
		diffs[i] = pair.TimeDiff
	}

	avg := stat.Mean(diffs, nil)
	minDiff, maxDiff := diffs[0], diffs[0]
	for _, d := range diffs[1:] {
		minDiff = math.Min(minDiff, d)
		maxDiff = math.Max(maxDiff, d)
	}

	std := 0.0
	if len(diffs) > 1 {
		std = math.Sqrt(stat.Variance(diffs, nil))
	}

	result.Timing = TimingStats{
		AvgTimeDiff: avg,
		MinTimeDiff: minDiff,
		MaxTimeDiff: maxDiff,
		StdTimeDiff: std,
	}

	return 100 * math.Max(0, 1-avg/c.params.TimeTolerance)
}

func labelSet(events []notes.Event) map[string]struct{} {
	set := make(map[string]struct{}, len(events))
	for _, e := range events {
		set[e.Label()] = struct{}{}
	}
	return set
}

func groupByLabel(events []notes.Event) map[string][]notes.Event {
	groups := make(map[string][]notes.Event)
	for _, e := range events {
		label := e.Label()
		groups[label] = append(groups[label], e)
	}
	return groups
}
