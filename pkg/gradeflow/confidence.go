package gradeflow

import (
	"fmt"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
	"github.com/penmark-edu/penmark-api/pkg/score"
)

// ConfidenceBand groups confidence values for display styling.
type ConfidenceBand string

const (
	ConfidenceHigh   ConfidenceBand = "high"
	ConfidenceMedium ConfidenceBand = "medium"
	ConfidenceLow    ConfidenceBand = "low"
)

// HighConfidenceFloor is the 0-100 confidence at which a result counts as
// high-confidence in ledger filters and display bands.
const HighConfidenceFloor = 80

// RouteDecision says whether a result should surface the manual-review
// affordance and why.
type RouteDecision struct {
	NeedsReview       bool
	ConfidenceScore   float64
	IllegibleQuestion bool
}

// RouteForReview reads the server-computed review fields off the result.
// NeedsReview, ConfidenceScore, and per-question Illegible are authoritative;
// nothing here re-derives them from a locally known threshold.
func RouteForReview(result gradeapi.GradingResult, questions []gradeapi.QuestionScore) RouteDecision {
	decision := RouteDecision{
		NeedsReview:     result.NeedsReview,
		ConfidenceScore: result.ConfidenceScore,
	}

	for _, q := range questions {
		if q.Illegible {
			decision.IllegibleQuestion = true
			break
		}
	}

	return decision
}

// BandFor buckets a 0-100 confidence value for display.
func BandFor(confidence float64) ConfidenceBand {
	switch {
	case confidence >= HighConfidenceFloor:
		return ConfidenceHigh
	case confidence >= 60:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}

// ThresholdText renders human-readable copy for the teacher's effective
// threshold. The value is display-only context; it never gates routing.
func ThresholdText(threshold gradeapi.Threshold) string {
	return fmt.Sprintf("confidence below %s%%", score.FormatScore(threshold.EffectiveThreshold*100))
}
