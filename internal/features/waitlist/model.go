package waitlist

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusWaiting   Status = "waiting"
	StatusPromoted  Status = "promoted"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Entry is a client's standing request for a slot. A slot is the
// (serviceType, date, startTime) coordinate identifying a demand bucket.
type Entry struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID        string             `bson:"client_id" json:"client_id"`
	ServiceType     string             `bson:"service_type" json:"service_type"`
	Date            string             `bson:"date" json:"date"`             // YYYY-MM-DD
	StartTime       string             `bson:"start_time" json:"start_time"` // HH:MM
	DurationMinutes int                `bson:"duration_minutes" json:"duration_minutes"`
	Status          Status             `bson:"status" json:"status"`
	Priority        int                `bson:"priority" json:"priority"`
	EstimatedWait   time.Duration      `bson:"estimated_wait" json:"estimated_wait"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	PromotedAt      *time.Time         `bson:"promoted_at,omitempty" json:"promoted_at,omitempty"`
}

// RanksAhead reports whether e is promoted before other when both wait on the
// same slot: priority descending, then createdAt ascending.
func (e *Entry) RanksAhead(other *Entry) bool {
	if e.Priority != other.Priority {
		return e.Priority > other.Priority
	}
	return e.CreatedAt.Before(other.CreatedAt)
}

// Per-service hourly base rates for promoted bookings. Lookup is
// case-insensitive; unknown service types fall back to the default rate.
var baseRates = map[string]float64{
	"babysitting":  25,
	"petsitting":   20,
	"housesitting": 18,
	"eldercare":    30,
	"tutoring":     35,
}

const defaultBaseRate = 22

// Loyalty tiers for waitlist priority, by completed booking count.
func priorityForCompleted(completed int64) int {
	switch {
	case completed >= 10:
		return 100
	case completed >= 5:
		return 75
	case completed >= 1:
		return 50
	default:
		return 25
	}
}

// Estimated wait by existing same-day load for the service type.
func estimatedWaitForLoad(sameDayBookings int64) time.Duration {
	switch {
	case sameDayBookings < 5:
		return 0
	case sameDayBookings < 10:
		return 2 * time.Hour
	case sameDayBookings < 20:
		return 6 * time.Hour
	default:
		return 24 * time.Hour
	}
}
