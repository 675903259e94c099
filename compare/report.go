package compare

import (
	"fmt"
	"strings"
)

// maxReportRows bounds each detail table in the text report.
const maxReportRows = 10

// Report renders the result as a human-readable summary. The names label
// the two sequences, typically file paths.
func (r *Result) Report(originalName, candidateName string) string {
	var b strings.Builder

	b.WriteString(strings.Repeat("=", 60) + "\n")
	b.WriteString("MELODY COMPARISON REPORT\n")
	b.WriteString(strings.Repeat("=", 60) + "\n\n")

	fmt.Fprintf(&b, "Original:   %s\n", originalName)
	fmt.Fprintf(&b, "Comparison: %s\n\n", candidateName)

	fmt.Fprintf(&b, "OVERALL SCORE: %.1f/100  Grade: %s (%s)\n\n",
		r.OverallScore, r.Grade, r.Grade.Description())

	b.WriteString("Sub-scores:\n")
	fmt.Fprintf(&b, "  Note similarity:  %6.1f\n", r.NoteSimilarityScore)
	fmt.Fprintf(&b, "  Note matching:    %6.1f\n", r.NoteMatchingScore)
	fmt.Fprintf(&b, "  Timing accuracy:  %6.1f\n\n", r.TimingAccuracyScore)

	fmt.Fprintf(&b, "Matched notes:        %d\n", len(r.MatchedPairs))
	fmt.Fprintf(&b, "Unmatched original:   %d\n", len(r.UnmatchedOriginal))
	fmt.Fprintf(&b, "Unmatched comparison: %d\n", len(r.UnmatchedCandidate))

	if len(r.MatchedPairs) > 0 {
		b.WriteString("\nTiming of matched notes:\n")
		fmt.Fprintf(&b, "  avg %.3fs  min %.3fs  max %.3fs  std %.3fs\n",
			r.Timing.AvgTimeDiff, r.Timing.MinTimeDiff,
			r.Timing.MaxTimeDiff, r.Timing.StdTimeDiff)

		b.WriteString("\nMatched pairs:\n")
		for i, pair := range r.MatchedPairs {
			if i == maxReportRows {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.MatchedPairs)-maxReportRows)
				break
			}
			fmt.Fprintf(&b, "  %-4s %7.2fs -> %7.2fs  (dt %.3fs)\n",
				pair.Label, pair.Original.Time, pair.Candidate.Time, pair.TimeDiff)
		}
	}

	if len(r.UnmatchedOriginal) > 0 {
		b.WriteString("\nMissing from comparison:\n")
		for i, e := range r.UnmatchedOriginal {
			if i == maxReportRows {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.UnmatchedOriginal)-maxReportRows)
				break
			}
			fmt.Fprintf(&b, "  %-4s at %7.2fs\n", e.Label(), e.Time)
		}
	}

	if len(r.UnmatchedCandidate) > 0 {
		b.WriteString("\nExtra in comparison:\n")
		for i, e := range r.UnmatchedCandidate {
			if i == maxReportRows {
				fmt.Fprintf(&b, "  ... and %d more\n", len(r.UnmatchedCandidate)-maxReportRows)
				break
			}
			fmt.Fprintf(&b, "  %-4s at %7.2fs\n", e.Label(), e.Time)
		}
	}

	b.WriteString("\n" + strings.Repeat("=", 60) + "\n")
	return b.String()
}
