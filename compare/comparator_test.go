package compare

import (
	"errors"
	"strings"
	"testing"

	"github.com/melotrace/melotrace/notes"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func note(t float64, class notes.PitchClass, oct int) notes.Event {
	return notes.Event{Time: t, Class: class, Octave: oct}
}

func TestIdenticalSequencesScorePerfect(t *testing.T) {
	events := []notes.Event{
		note(0, "C", 4), note(1, "D", 4), note(2, "E", 4),
	}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(events, events)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.InDelta(100, result.OverallScore, 1e-9)
	assert.Equal(GradeA, result.Grade)
	assert.InDelta(100, result.NoteSimilarityScore, 1e-9)
	assert.InDelta(100, result.NoteMatchingScore, 1e-9)
	assert.InDelta(100, result.TimingAccuracyScore, 1e-9)
	assert.Len(result.MatchedPairs, 3)
	assert.Empty(result.UnmatchedOriginal)
	assert.Empty(result.UnmatchedCandidate)
}

func TestEmptyOriginalIsRejected(t *testing.T) {
	comparator := NewComparator(DefaultParams())

	_, err := comparator.Compare(nil, []notes.Event{note(0, "A", 4)})
	assert.True(t, errors.Is(err, ErrEmptyReference))
}

func TestEmptyCandidateScoresZero(t *testing.T) {
	original := []notes.Event{note(0, "C", 4), note(1, "D", 4)}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, nil)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.InDelta(0, result.OverallScore, 1e-9)
	assert.Equal(GradeF, result.Grade)
	assert.Empty(result.MatchedPairs)
	assert.Len(result.UnmatchedOriginal, 2)
	// A non-empty original keeps the label union populated.
	assert.False(result.Degenerate)
}

func TestPartialPerformanceScoring(t *testing.T) {
	original := []notes.Event{
		note(0, "C", 4), note(1, "D", 4), note(2, "E", 4),
	}
	candidate := []notes.Event{
		note(0.05, "C", 4), note(1.6, "D", 4),
	}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, candidate)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.InDelta(66.667, result.NoteSimilarityScore, 0.01)
	assert.InDelta(33.333, result.NoteMatchingScore, 0.01)
	assert.InDelta(90, result.TimingAccuracyScore, 1e-9)
	assert.InDelta(58, result.OverallScore, 0.01)
	assert.Equal(GradeF, result.Grade)

	require.Len(t, result.MatchedPairs, 1)
	assert.Equal("C4", result.MatchedPairs[0].Label)
	assert.InDelta(0.05, result.MatchedPairs[0].TimeDiff, 1e-9)
}

func TestShiftBeyondToleranceBreaksMatching(t *testing.T) {
	original := []notes.Event{note(0, "C", 4), note(1, "D", 4)}
	shifted := []notes.Event{note(0.51, "C", 4), note(1.51, "D", 4)}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, shifted)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.InDelta(0, result.NoteMatchingScore, 1e-9)
	assert.InDelta(0, result.TimingAccuracyScore, 1e-9)
	// The label sets still agree completely.
	assert.InDelta(100, result.NoteSimilarityScore, 1e-9)
}

func TestShiftExactlyAtToleranceStillMatches(t *testing.T) {
	original := []notes.Event{note(0, "C", 4)}
	shifted := []notes.Event{note(0.5, "C", 4)}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, shifted)
	require.NoError(t, err)

	assert.Len(t, result.MatchedPairs, 1)
	assert.InDelta(t, 0, result.TimingAccuracyScore, 1e-9)
}

func TestGreedyMatchingPrefersNearestCandidate(t *testing.T) {
	original := []notes.Event{note(1.0, "A", 4)}
	candidate := []notes.Event{note(0.7, "A", 4), note(1.1, "A", 4)}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, candidate)
	require.NoError(t, err)

	require.Len(t, result.MatchedPairs, 1)
	assert.InDelta(t, 1.1, result.MatchedPairs[0].Candidate.Time, 1e-9)
	require.Len(t, result.UnmatchedCandidate, 1)
	assert.InDelta(t, 0.7, result.UnmatchedCandidate[0].Time, 1e-9)
}

func TestGreedyTieBreaksToEarlierCandidate(t *testing.T) {
	original := []notes.Event{note(1.0, "A", 4)}
	candidate := []notes.Event{note(0.8, "A", 4), note(1.2, "A", 4)}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, candidate)
	require.NoError(t, err)

	require.Len(t, result.MatchedPairs, 1)
	assert.InDelta(t, 0.8, result.MatchedPairs[0].Candidate.Time, 1e-9)
}

func TestRepeatedNotesMatchOneToOne(t *testing.T) {
	original := []notes.Event{
		note(0, "A", 4), note(1, "A", 4), note(2, "A", 4),
	}
	candidate := []notes.Event{note(0.1, "A", 4), note(2.1, "A", 4)}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, candidate)
	require.NoError(t, err)

	assert := assert.New(t)
	assert.Len(result.MatchedPairs, 2)
	assert.Len(result.UnmatchedOriginal, 1)
	assert.InDelta(1.0, result.UnmatchedOriginal[0].Time, 1e-9)
}

func TestGradeBoundaries(t *testing.T) {
	assert := assert.New(t)
	assert.Equal(GradeA, gradeFor(100))
	assert.Equal(GradeA, gradeFor(90))
	assert.Equal(GradeB, gradeFor(89.99))
	assert.Equal(GradeB, gradeFor(80))
	assert.Equal(GradeC, gradeFor(79.99))
	assert.Equal(GradeC, gradeFor(70))
	assert.Equal(GradeD, gradeFor(69.99))
	assert.Equal(GradeD, gradeFor(60))
	assert.Equal(GradeF, gradeFor(59.99))
	assert.Equal(GradeF, gradeFor(0))
}

func TestCompareSegments(t *testing.T) {
	original := []notes.Segment{
		{StartTime: 0, EndTime: 0.5, Class: "C", Octave: 4, AvgFrequency: 261.6},
		{StartTime: 1, EndTime: 1.5, Class: "D", Octave: 4, AvgFrequency: 293.7},
	}
	candidate := []notes.Segment{
		{StartTime: 0.1, EndTime: 0.6, Class: "C", Octave: 4, AvgFrequency: 262.0},
		{StartTime: 1.1, EndTime: 1.6, Class: "D", Octave: 4, AvgFrequency: 294.0},
	}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.CompareSegments(original, candidate)
	require.NoError(t, err)

	assert.Len(t, result.MatchedPairs, 2)
	assert.InDelta(t, 100, result.NoteMatchingScore, 1e-9)
}

func TestReportContainsScoresAndGrade(t *testing.T) {
	original := []notes.Event{note(0, "C", 4), note(1, "D", 4)}

	comparator := NewComparator(DefaultParams())
	result, err := comparator.Compare(original, original)
	require.NoError(t, err)

	report := result.Report("a.json", "b.json")

	assert := assert.New(t)
	assert.Contains(report, "OVERALL SCORE: 100.0/100")
	assert.Contains(report, "Grade: A (Excellent)")
	assert.Contains(report, "a.json")
	assert.Contains(report, "b.json")
	assert.True(strings.Contains(report, "Matched pairs:"))
}
