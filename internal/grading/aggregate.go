package grading

// Contribution is one graded item counted towards a course total.
type Contribution struct {
	Source        string
	SourceID      uint
	PointsAwarded float64
	MaxPoints     float64
}

// CourseTotals is the aggregate of all contributions for a student.
type CourseTotals struct {
	PointsEarned float64
	PointsTotal  float64
	Percentage   float64
	Letter       string
	ItemsCounted int
}

// Aggregate sums contributions into a course total. It is a pure function of
// its input so recomputing with unchanged grades yields the same result.
func Aggregate(items []Contribution) CourseTotals {
	var totals CourseTotals
	for _, item := range items {
		if item.MaxPoints <= 0 {
			continue
		}
		earned := item.PointsAwarded
		if earned < 0 {
			earned = 0
		}
		if earned > item.MaxPoints {
			earned = item.MaxPoints
		}
		totals.PointsEarned += earned
		totals.PointsTotal += item.MaxPoints
		totals.ItemsCounted++
	}

	totals.PointsEarned = Round2(totals.PointsEarned)
	totals.PointsTotal = Round2(totals.PointsTotal)
	if totals.PointsTotal > 0 {
		totals.Percentage = Round2(totals.PointsEarned / totals.PointsTotal * 100)
	}
	totals.Letter = LetterFor(totals.Percentage, totals.ItemsCounted)

	return totals
}

// LetterFor maps a percentage to a letter grade. No items yields an empty letter.
func LetterFor(percentage float64, items int) string {
	if items == 0 {
		return ""
	}
	switch {
	case percentage >= 90:
		return "A"
	case percentage >= 80:
		return "B"
	case percentage >= 70:
		return "C"
	case percentage >= 60:
		return "D"
	default:
		return "F"
	}
}
