package calculator

import (
	"time"

	"SurgeScreener/internal/model"
)

// DefaultLookbackDays is the historical window used when none is configured.
const DefaultLookbackDays = 180

// LookbackWindow returns the window ending on the calendar date of now and
// starting days earlier. Non-positive days fall back to DefaultLookbackDays.
func LookbackWindow(now time.Time, days int) model.DateWindow {
	if days <= 0 {
		days = DefaultLookbackDays
	}
	end := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return model.DateWindow{
		Start: end.AddDate(0, 0, -days),
		End:   end,
	}
}

// DefaultWindow is LookbackWindow with DefaultLookbackDays.
func DefaultWindow(now time.Time) model.DateWindow {
	return LookbackWindow(now, DefaultLookbackDays)
}
