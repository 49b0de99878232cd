package availability

import (
	"context"
	"errors"
	"testing"
	"time"

	"go-sitter/internal/features/booking"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeBookingRepo struct {
	bookings []booking.Booking
	err      error
}

func (f *fakeBookingRepo) Get(ctx context.Context, id string) (*booking.Booking, error) {
	return nil, nil
}
func (f *fakeBookingRepo) Create(ctx context.Context, bk *booking.Booking) error { return nil }
func (f *fakeBookingRepo) Update(ctx context.Context, id string, changes map[string]interface{}) error {
	return nil
}
func (f *fakeBookingRepo) Delete(ctx context.Context, id string) error  { return nil }
func (f *fakeBookingRepo) EnsureIndexes(ctx context.Context) error      { return nil }
func (f *fakeBookingRepo) Count(ctx context.Context, q booking.Query) (int64, error) {
	matched, err := f.Query(ctx, q)
	return int64(len(matched)), err
}

func (f *fakeBookingRepo) Query(ctx context.Context, q booking.Query) ([]booking.Booking, error) {
	if f.err != nil {
		return nil, f.err
	}
	var matched []booking.Booking
	for _, bk := range f.bookings {
		if q.SitterID != "" && bk.SitterID != q.SitterID {
			continue
		}
		if len(q.Statuses) > 0 {
			ok := false
			for _, s := range q.Statuses {
				if bk.Status == s {
					ok = true
				}
			}
			if !ok {
				continue
			}
		}
		if !q.From.IsZero() && bk.ScheduledStart.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !bk.ScheduledStart.Before(q.To) {
			continue
		}
		matched = append(matched, bk)
	}
	return matched, nil
}

func existingBooking(sitterID string, start time.Time, durationMinutes int, status booking.Status) booking.Booking {
	return booking.Booking{
		ID:              primitive.NewObjectID(),
		ClientID:        "client-1",
		SitterID:        sitterID,
		ServiceType:     "babysitting",
		ScheduledStart:  start,
		DurationMinutes: durationMinutes,
		Status:          status,
	}
}

func TestIsAvailable(t *testing.T) {
	day := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)
	at := func(hour, minute int) time.Time {
		return day.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
	}

	tests := []struct {
		name     string
		existing []booking.Booking
		start    time.Time
		duration int
		want     bool
	}{
		{
			name:     "empty calendar",
			start:    at(10, 0),
			duration: 60,
			want:     true,
		},
		{
			name: "overlapping booking",
			existing: []booking.Booking{
				existingBooking("sitter-1", at(10, 30), 60, booking.StatusApproved),
			},
			start:    at(10, 0),
			duration: 60,
			want:     false,
		},
		{
			name: "back to back is not a conflict",
			existing: []booking.Booking{
				existingBooking("sitter-1", at(10, 0), 60, booking.StatusApproved),
			},
			start:    at(11, 0),
			duration: 60,
			want:     true,
		},
		{
			name: "new booking ends exactly at existing start",
			existing: []booking.Booking{
				existingBooking("sitter-1", at(11, 0), 60, booking.StatusApproved),
			},
			start:    at(10, 0),
			duration: 60,
			want:     true,
		},
		{
			name: "contained interval",
			existing: []booking.Booking{
				existingBooking("sitter-1", at(9, 0), 240, booking.StatusPending),
			},
			start:    at(10, 0),
			duration: 30,
			want:     false,
		},
		{
			name: "cancelled booking does not block",
			existing: []booking.Booking{
				existingBooking("sitter-1", at(10, 0), 120, booking.StatusCancelled),
			},
			start:    at(10, 30),
			duration: 60,
			want:     true,
		},
		{
			name: "other sitter does not block",
			existing: []booking.Booking{
				existingBooking("sitter-2", at(10, 0), 120, booking.StatusApproved),
			},
			start:    at(10, 30),
			duration: 60,
			want:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			detector := NewDetector(&fakeBookingRepo{bookings: tt.existing}, zap.NewNop())
			got := detector.IsAvailable(context.Background(), "sitter-1", tt.start, tt.duration)
			if got != tt.want {
				t.Errorf("IsAvailable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAvailableFailsClosed(t *testing.T) {
	detector := NewDetector(&fakeBookingRepo{err: errors.New("store down")}, zap.NewNop())
	start := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	if detector.IsAvailable(context.Background(), "sitter-1", start, 60) {
		t.Error("expected unavailable when the booking store is unreachable")
	}
}

func TestCheckDatesUnassignedSitter(t *testing.T) {
	detector := NewDetector(&fakeBookingRepo{}, zap.NewNop())
	dates := []time.Time{
		time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC),
		time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC),
	}
	result := detector.CheckDates(context.Background(), "", dates, 60)
	for key, available := range result {
		if !available {
			t.Errorf("date %s reported unavailable for unassigned booking", key)
		}
	}
}

func TestConflictingDates(t *testing.T) {
	day1 := time.Date(2026, 4, 2, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 4, 3, 10, 0, 0, 0, time.UTC)
	repo := &fakeBookingRepo{bookings: []booking.Booking{
		existingBooking("sitter-1", day1.Add(30*time.Minute), 60, booking.StatusApproved),
	}}
	detector := NewDetector(repo, zap.NewNop())

	conflicts := detector.ConflictingDates(context.Background(), "sitter-1", []time.Time{day1, day2}, 60)
	if len(conflicts) != 1 || conflicts[0] != "2026-04-02" {
		t.Errorf("ConflictingDates = %v, want [2026-04-02]", conflicts)
	}
}
