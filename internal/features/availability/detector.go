package availability

import (
	"context"
	"time"

	"go-sitter/internal/features/booking"

	"go.uber.org/zap"
)

// Detector answers whether a sitter's calendar can take a new interval.
// Conflicts are tested against the sitter's active bookings (pending,
// approved, inProgress) on the calendar day containing the requested start.
type Detector struct {
	Bookings booking.Repository
	Log      *zap.Logger
}

func NewDetector(bookings booking.Repository, log *zap.Logger) *Detector {
	return &Detector{Bookings: bookings, Log: log}
}

// IsAvailable reports whether [start, start+duration) is free for the sitter.
// The interval test is half-open: a booking that ends exactly when another
// starts is not a conflict. If the booking read fails, the slot is reported
// unavailable — availability must fail closed to avoid double-booking.
func (d *Detector) IsAvailable(ctx context.Context, sitterID string, start time.Time, durationMinutes int) bool {
	existing, err := d.activeBookingsOn(ctx, sitterID, start)
	if err != nil {
		d.Log.Error("availability read failed, reporting unavailable",
			zap.String("sitter", sitterID),
			zap.Error(err),
		)
		return false
	}

	for i := range existing {
		if existing[i].Overlaps(start, durationMinutes) {
			return false
		}
	}
	return true
}

// CheckDates evaluates availability for several dates at once, keyed by
// YYYY-MM-DD. An empty sitterID means the booking is unassigned; every date
// is reported available and conflict checking is deferred until assignment.
func (d *Detector) CheckDates(ctx context.Context, sitterID string, dates []time.Time, durationMinutes int) map[string]bool {
	result := make(map[string]bool, len(dates))
	for _, date := range dates {
		key := date.Format("2006-01-02")
		if sitterID == "" {
			result[key] = true
			continue
		}
		result[key] = d.IsAvailable(ctx, sitterID, date, durationMinutes)
	}
	return result
}

// ConflictingDates returns the subset of dates reported unavailable.
func (d *Detector) ConflictingDates(ctx context.Context, sitterID string, dates []time.Time, durationMinutes int) []string {
	var conflicts []string
	checked := d.CheckDates(ctx, sitterID, dates, durationMinutes)
	for _, date := range dates {
		key := date.Format("2006-01-02")
		if !checked[key] {
			conflicts = append(conflicts, key)
		}
	}
	return conflicts
}

func (d *Detector) activeBookingsOn(ctx context.Context, sitterID string, start time.Time) ([]booking.Booking, error) {
	dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	return d.Bookings.Query(ctx, booking.Query{
		SitterID: sitterID,
		Statuses: booking.ActiveStatuses(),
		From:     dayStart,
		To:       dayStart.AddDate(0, 0, 1),
	})
}
