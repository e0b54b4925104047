// ABOUTME: Game log arithmetic: derived totals, monthly summaries and date windows
// ABOUTME: Pure functions shared by the web handlers and their tests

package records

import (
	"time"

	"github.com/2389/pokercircle/internal/store"
)

const (
	// ReEntryCost is the point cost of each re-entry.
	ReEntryCost = 200

	// BuyIn is subtracted from the total point to get the balance (bp).
	BuyIn = 200
)

// Derive computes the total point and balance for a game result.
func Derive(point, reEntry int) (totalPoint, bp int) {
	totalPoint = point - reEntry*ReEntryCost
	bp = totalPoint - BuyIn
	return totalPoint, bp
}

// Apply fills the derived fields of l from its Point and ReEntry.
func Apply(l *store.Log) {
	l.TotalPoint, l.BP = Derive(l.Point, l.ReEntry)
}

// Summary aggregates a member's logs over a period.
type Summary struct {
	TotalReEntry   int
	ZeroPointCount int
	// TotalDeath counts every bust: each re-entry plus each game finished on zero.
	TotalDeath    int
	Participation int
	TotalPoints   int
	TotalBP       int
}

// Summarize aggregates logs. An empty slice yields a zero Summary.
func Summarize(logs []*store.Log) Summary {
	var s Summary
	for _, l := range logs {
		s.TotalReEntry += l.ReEntry
		if l.Point == 0 {
			s.ZeroPointCount++
		}
		s.TotalPoints += l.TotalPoint
		s.TotalBP += l.BP
	}
	s.Participation = len(logs)
	s.TotalDeath = s.TotalReEntry + s.ZeroPointCount
	return s
}

// MonthWindow returns [first of this month, first of next month) in now's location.
func MonthWindow(now time.Time) (from, to time.Time) {
	from = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	return from, from.AddDate(0, 1, 0)
}

// UpcomingWindow returns [now - 1 day, now + 1 month), the events shown on the dashboard.
func UpcomingWindow(now time.Time) (from, to time.Time) {
	return now.AddDate(0, 0, -1), now.AddDate(0, 1, 0)
}
