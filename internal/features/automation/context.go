package automation

import (
	"context"
	"strconv"

	"go-sitter/internal/features/availability"
	"go-sitter/internal/features/booking"
	"go-sitter/internal/features/client"
	"go-sitter/pkg/clock"

	"go.uber.org/zap"
)

// EvaluationContext holds the derived facts about one booking, computed once
// per evaluation pass and shared by every rule in that pass. Never persisted
// (an execution record keeps a snapshot copy).
type EvaluationContext struct {
	values map[string]string
}

// Resolve returns the value for a context field. A field with no resolved
// value yields the empty string: numeric operators then read it as 0 and
// equality never matches a non-empty literal.
func (c *EvaluationContext) Resolve(field string) string {
	return c.values[field]
}

// Snapshot copies the resolved values for the execution audit trail.
func (c *EvaluationContext) Snapshot() map[string]string {
	snap := make(map[string]string, len(c.values))
	for k, v := range c.values {
		snap[k] = v
	}
	return snap
}

// ContextBuilder assembles evaluation contexts from the injected
// collaborators. Collaborator failures leave the affected fields unresolved
// rather than aborting the pass.
type ContextBuilder struct {
	History client.HistoryProvider
	Sitters availability.Provider
	Clock   clock.Clock
	Log     *zap.Logger
}

func NewContextBuilder(history client.HistoryProvider, sitters availability.Provider, clk clock.Clock, log *zap.Logger) *ContextBuilder {
	return &ContextBuilder{
		History: history,
		Sitters: sitters,
		Clock:   clk,
		Log:     log,
	}
}

func (b *ContextBuilder) Build(ctx context.Context, bk *booking.Booking) *EvaluationContext {
	now := b.Clock.Now()
	values := map[string]string{
		FieldBookingStatus:     string(bk.Status),
		FieldServiceType:       bk.ServiceType,
		FieldBookingValue:      strconv.FormatFloat(bk.Price, 'f', 2, 64),
		FieldDurationMinutes:   strconv.Itoa(bk.DurationMinutes),
		FieldHoursUntilBooking: strconv.FormatFloat(bk.ScheduledStart.Sub(now).Hours(), 'f', 2, 64),
		FieldHoursSinceCreated: strconv.FormatFloat(now.Sub(bk.CreatedAt).Hours(), 'f', 2, 64),
		FieldSitterAssigned:    strconv.FormatBool(bk.SitterID != ""),
		FieldIsPeakHour:        strconv.FormatBool(isPeakHour(bk.ScheduledStart.Hour())),
		FieldDayOfWeek:         bk.ScheduledStart.Weekday().String(),
	}

	if history, err := b.History.History(ctx, bk.ClientID); err != nil {
		b.Log.Warn("client history unavailable for evaluation",
			zap.String("client", bk.ClientID), zap.Error(err))
	} else {
		values[FieldClientCompletedBookings] = strconv.FormatInt(history.CompletedCount, 10)
		values[FieldClientTotalBookings] = strconv.FormatInt(history.TotalCount, 10)
		values[FieldClientAverageRating] = strconv.FormatFloat(history.AverageRating, 'f', 2, 64)
	}

	if candidates, err := b.Sitters.Available(ctx, bk.ScheduledStart, bk.ServiceType); err != nil {
		b.Log.Warn("sitter candidates unavailable for evaluation",
			zap.String("booking", bk.ID.Hex()), zap.Error(err))
	} else {
		values[FieldAvailableSitterCount] = strconv.Itoa(len(candidates))
	}

	return &EvaluationContext{values: values}
}

// Evening bookings between 17:00 and 20:59 count as peak hours.
func isPeakHour(hour int) bool {
	return hour >= 17 && hour < 21
}
