// Package score holds the arithmetic shared by every surface that displays
// or submits grades. Both the review service on the server and the client
// pipeline import it, so totals and percentages cannot drift between views.
package score

import (
	"math"
	"strconv"

	"github.com/penmark-edu/penmark-api/pkg/gradeapi"
)

// Totals is the aggregate of a set of question scores with teacher
// adjustments applied. Percentage is nil when no points are available.
type Totals struct {
	TotalAdjusted  float64
	TotalAvailable float64
	Percentage     *float64
}

// FormatScore renders integer values without a decimal point and everything
// else to one decimal place.
func FormatScore(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) {
		return strconv.FormatFloat(v, 'f', 0, 64)
	}
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// Aggregate sums adjusted and available points across questions. A question
// missing from adjustments contributes its AI-awarded points.
func Aggregate(questions []gradeapi.QuestionScore, adjustments map[int]float64) Totals {
	totals := Totals{}
	for _, q := range questions {
		points, ok := adjustments[q.QuestionNumber]
		if !ok {
			points = q.PointsAwarded
		}
		totals.TotalAdjusted += points
		totals.TotalAvailable += q.PointsAvailable
	}

	if totals.TotalAvailable > 0 {
		pct := 100 * totals.TotalAdjusted / totals.TotalAvailable
		totals.Percentage = &pct
	}

	return totals
}

// ClampPoints constrains a point adjustment to [0, max] at 0.5-point
// granularity.
func ClampPoints(v, max float64) float64 {
	if max < 0 {
		max = 0
	}
	v = math.Round(v*2) / 2
	if v < 0 {
		return 0
	}
	if v > max {
		return max
	}
	return v
}
