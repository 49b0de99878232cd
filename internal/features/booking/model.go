package booking

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusInProgress Status = "inProgress"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ActiveStatuses are the states that occupy a sitter's calendar. A booking in
// any of these blocks overlapping intervals for the same sitter.
func ActiveStatuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusInProgress}
}

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusCancelled},
	StatusApproved: {StatusInProgress, StatusCancelled},
	StatusInProgress: {
		StatusCompleted,
	},
}

// CanTransition reports whether the state machine allows from -> to.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ChangeKind labels a booking-change event entering rule evaluation.
type ChangeKind string

const (
	ChangeCreated  ChangeKind = "created"
	ChangeModified ChangeKind = "modified"
)

type Booking struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID        string             `bson:"client_id" json:"client_id"`
	SitterID        string             `bson:"sitter_id,omitempty" json:"sitter_id,omitempty"`
	ServiceType     string             `bson:"service_type" json:"service_type"`
	ScheduledStart  time.Time          `bson:"scheduled_start" json:"scheduled_start"`
	DurationMinutes int                `bson:"duration_minutes" json:"duration_minutes"`
	Status          Status             `bson:"status" json:"status"`
	Price           float64            `bson:"price" json:"price"`
	Notes           string             `bson:"notes,omitempty" json:"notes,omitempty"`
	CreatedAt       time.Time          `bson:"created_at" json:"created_at"`
	LastModified    time.Time          `bson:"last_modified" json:"last_modified"`
}

// End returns the exclusive end of the booking interval [start, start+duration).
func (b *Booking) End() time.Time {
	return b.ScheduledStart.Add(time.Duration(b.DurationMinutes) * time.Minute)
}

// Overlaps applies the half-open interval test: a booking ending exactly when
// another starts is not a conflict.
func (b *Booking) Overlaps(start time.Time, durationMinutes int) bool {
	end := start.Add(time.Duration(durationMinutes) * time.Minute)
	return start.Before(b.End()) && end.After(b.ScheduledStart)
}

// AutomationTrigger is implemented by the rule engine. Declared here so the
// booking service can fire evaluations without importing the engine package.
type AutomationTrigger interface {
	Evaluate(ctx context.Context, bk *Booking, change ChangeKind) ([]string, error)
}

// SlotFreedTrigger is implemented by the waitlist scheduler. Cancellations and
// rejections notify it so a waiting entry can be promoted into the freed slot.
type SlotFreedTrigger interface {
	SlotFreed(serviceType, date, startTime string)
}

// AvailabilityChecker is implemented by the conflict detector.
type AvailabilityChecker interface {
	IsAvailable(ctx context.Context, sitterID string, start time.Time, durationMinutes int) bool
}
