package forecast

import (
	"time"

	"github.com/rith-wik/attribute-forecasting-system/internal/models"
)

// SeasonalEntry is one stored observation of the seasonal-naive lookup
// table.
type SeasonalEntry struct {
	Date  time.Time `json:"date"`
	Dow   int       `json:"dow"`
	Value float64   `json:"value"`
}

// SeasonalNaive is the baseline component of the hybrid model. It keeps
// every (date, day-of-week, value) tuple it was fitted on and predicts
// the most recent value sharing the query's day of week.
type SeasonalNaive struct {
	Entries []SeasonalEntry `json:"entries"`
}

// Fit stores the target series keyed by date.
func (s *SeasonalNaive) Fit(dates []time.Time, values []float64) {
	s.Entries = make([]SeasonalEntry, 0, len(values))
	for i, d := range dates {
		s.Entries = append(s.Entries, SeasonalEntry{
			Date:  models.DateOnly(d),
			Dow:   models.DayOfWeek(d),
			Value: values[i],
		})
	}
}

// Predict returns the most recent stored value sharing the query date's
// day of week, falling back to the overall mean, then to 1.0 when no
// history exists.
func (s *SeasonalNaive) Predict(date time.Time) float64 {
	if len(s.Entries) == 0 {
		return 1.0
	}

	dow := models.DayOfWeek(date)
	found := false
	var latest time.Time
	var value float64
	for _, e := range s.Entries {
		if e.Dow != dow {
			continue
		}
		if !found || e.Date.After(latest) {
			found = true
			latest = e.Date
			value = e.Value
		}
	}
	if found {
		return value
	}

	var sum float64
	for _, e := range s.Entries {
		sum += e.Value
	}
	return sum / float64(len(s.Entries))
}
