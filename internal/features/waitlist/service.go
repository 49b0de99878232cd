package waitlist

import (
	"context"
	"sort"
	"strings"
	"time"

	common_models "go-sitter/internal/common/models"
	"go-sitter/internal/config"
	"go-sitter/internal/dispatch"
	"go-sitter/internal/features/booking"
	"go-sitter/internal/features/client"
	"go-sitter/internal/features/notification"
	"go-sitter/pkg/clock"

	"go.uber.org/zap"
)

type AddRequest struct {
	ClientID        string `json:"client_id"`
	ServiceType     string `json:"service_type"`
	Date            string `json:"date"`       // YYYY-MM-DD
	StartTime       string `json:"start_time"` // HH:MM
	DurationMinutes int    `json:"duration_minutes"`
}

// Scheduler maintains the waitlist and promotes the top-ranked waiting entry
// into a pending booking when a slot frees up.
type Scheduler struct {
	Repo       Repository
	Bookings   booking.Repository
	History    client.HistoryProvider
	Notifier   notification.Sender
	Automation booking.AutomationTrigger
	Dispatcher *dispatch.Dispatcher
	Clock      clock.Clock
	Config     *config.Config
	Log        *zap.Logger
}

func NewScheduler(
	repo Repository,
	bookings booking.Repository,
	history client.HistoryProvider,
	notifier notification.Sender,
	automation booking.AutomationTrigger,
	dispatcher *dispatch.Dispatcher,
	clk clock.Clock,
	cfg *config.Config,
	log *zap.Logger,
) *Scheduler {
	return &Scheduler{
		Repo:       repo,
		Bookings:   bookings,
		History:    history,
		Notifier:   notifier,
		Automation: automation,
		Dispatcher: dispatcher,
		Clock:      clk,
		Config:     cfg,
		Log:        log,
	}
}

// Add enqueues a waiting entry. A client may hold at most one waiting entry
// per exact slot; duplicates are rejected with ErrDuplicateWaitlist.
func (s *Scheduler) Add(ctx context.Context, req AddRequest) (*Entry, error) {
	if req.ClientID == "" {
		return nil, &common_models.ValidationError{Field: "client_id", Reason: "required"}
	}
	if req.DurationMinutes <= 0 {
		return nil, &common_models.ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}
	day, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, &common_models.ValidationError{Field: "date", Reason: "must be YYYY-MM-DD"}
	}
	if _, err := time.Parse("15:04", req.StartTime); err != nil {
		return nil, &common_models.ValidationError{Field: "start_time", Reason: "must be HH:MM"}
	}

	existing, err := s.Repo.FindDuplicate(ctx, req.ClientID, req.ServiceType, req.Date, req.StartTime)
	if err != nil {
		return nil, &common_models.StoreError{Op: "check duplicate waitlist entry", Err: err}
	}
	if existing != nil {
		return nil, common_models.ErrDuplicateWaitlist
	}

	history, err := s.History.History(ctx, req.ClientID)
	if err != nil {
		return nil, &common_models.StoreError{Op: "load client history", Err: err}
	}

	sameDay, err := s.Bookings.Count(ctx, booking.Query{
		ServiceType: req.ServiceType,
		From:        day,
		To:          day.AddDate(0, 0, 1),
	})
	if err != nil {
		return nil, &common_models.StoreError{Op: "count same-day bookings", Err: err}
	}

	entry := &Entry{
		ClientID:        req.ClientID,
		ServiceType:     req.ServiceType,
		Date:            req.Date,
		StartTime:       req.StartTime,
		DurationMinutes: req.DurationMinutes,
		Status:          StatusWaiting,
		Priority:        priorityForCompleted(history.CompletedCount),
		EstimatedWait:   estimatedWaitForLoad(sameDay),
	}
	if err := s.Repo.Create(ctx, entry); err != nil {
		return nil, &common_models.StoreError{Op: "create waitlist entry", Err: err}
	}

	s.Log.Info("waitlist entry added",
		zap.String("client", req.ClientID),
		zap.String("slot", req.ServiceType+" "+req.Date+" "+req.StartTime),
		zap.Int("priority", entry.Priority),
	)
	return entry, nil
}

// SlotFreed queues a promotion attempt for the slot. The dispatcher key is
// the slot coordinate, so no two promotions for the same slot run
// concurrently in-process; the claim in the repository covers the rest.
func (s *Scheduler) SlotFreed(serviceType, date, startTime string) {
	s.Dispatcher.Submit("slot:"+serviceType+"|"+date+"|"+startTime, func() {
		if _, err := s.ProcessSlotFreed(context.Background(), serviceType, date, startTime); err != nil {
			s.Log.Error("slot-freed processing failed",
				zap.String("slot", serviceType+" "+date+" "+startTime),
				zap.Error(err),
			)
		}
	})
}

// ProcessSlotFreed promotes at most one entry: the waiting entries for the
// exact slot are ranked priority descending then createdAt ascending, and the
// first entry whose claim succeeds becomes a pending booking. Entries not
// selected remain waiting for the next freed slot of the same kind.
func (s *Scheduler) ProcessSlotFreed(ctx context.Context, serviceType, date, startTime string) (*Entry, error) {
	entries, err := s.Repo.FindWaitingBySlot(ctx, serviceType, date, startTime)
	if err != nil {
		return nil, &common_models.StoreError{Op: "load waiting entries", Err: err}
	}
	if len(entries) == 0 {
		return nil, nil
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].RanksAhead(&entries[j])
	})

	for i := range entries {
		entry := &entries[i]
		promotedAt := s.Clock.Now()
		claimed, err := s.Repo.ClaimForPromotion(ctx, entry.ID.Hex(), promotedAt)
		if err != nil {
			return nil, &common_models.StoreError{Op: "claim waitlist entry", Err: err}
		}
		if !claimed {
			// Lost the race to a concurrent promotion; try the next in rank.
			continue
		}
		entry.Status = StatusPromoted
		entry.PromotedAt = &promotedAt

		if err := s.materializeBooking(ctx, entry); err != nil {
			s.Log.Error("promoted entry could not be booked",
				zap.String("entry", entry.ID.Hex()), zap.Error(err))
			// Put the entry back in the queue so the next freed slot can
			// retry it; otherwise the claim would strand it as promoted
			// with no booking behind it.
			if revertErr := s.Repo.UpdateStatus(ctx, entry.ID.Hex(), StatusWaiting); revertErr != nil {
				s.Log.Error("claim revert failed",
					zap.String("entry", entry.ID.Hex()), zap.Error(revertErr))
			} else {
				entry.Status = StatusWaiting
				entry.PromotedAt = nil
			}
			return nil, err
		}
		return entry, nil
	}
	return nil, nil
}

func (s *Scheduler) materializeBooking(ctx context.Context, entry *Entry) error {
	start, err := time.Parse("2006-01-02 15:04", entry.Date+" "+entry.StartTime)
	if err != nil {
		return &common_models.ValidationError{Field: "slot", Reason: "unparsable slot coordinate"}
	}

	bk := &booking.Booking{
		ClientID:        entry.ClientID,
		ServiceType:     entry.ServiceType,
		ScheduledStart:  start,
		DurationMinutes: entry.DurationMinutes,
		Status:          booking.StatusPending,
		Price:           PriceFor(entry.ServiceType, entry.DurationMinutes),
	}
	if err := s.Bookings.Create(ctx, bk); err != nil {
		return &common_models.StoreError{Op: "create promoted booking", Err: err}
	}

	if err := s.Notifier.Send(ctx, entry.ClientID, notification.TemplateWaitlistPromoted, map[string]string{
		"serviceType": entry.ServiceType,
		"date":        entry.Date,
		"time":        entry.StartTime,
		"bookingId":   bk.ID.Hex(),
	}); err != nil {
		s.Log.Warn("promotion notification failed", zap.Error(err))
	}

	// The new pending booking enters rule evaluation like any other creation.
	bookingID := bk.ID.Hex()
	s.Dispatcher.Submit("booking:"+bookingID, func() {
		reloaded, err := s.Bookings.Get(context.Background(), bookingID)
		if err != nil || reloaded == nil {
			s.Log.Error("promoted booking reload failed", zap.String("booking", bookingID), zap.Error(err))
			return
		}
		if _, err := s.Automation.Evaluate(context.Background(), reloaded, booking.ChangeCreated); err != nil {
			s.Log.Error("promoted booking evaluation failed", zap.String("booking", bookingID), zap.Error(err))
		}
	})

	s.Log.Info("waitlist entry promoted",
		zap.String("entry", entry.ID.Hex()),
		zap.String("booking", bookingID),
	)
	return nil
}

// PriceFor derives a promoted booking's price from the per-service base-rate
// table: rate * duration/60. Lookup is case-insensitive and unknown service
// types use the default rate.
func PriceFor(serviceType string, durationMinutes int) float64 {
	rate, ok := baseRates[strings.ToLower(serviceType)]
	if !ok {
		rate = defaultBaseRate
	}
	return rate * float64(durationMinutes) / 60
}

// Position returns the entry's 1-based rank among waiting entries for the
// same exact slot.
func (s *Scheduler) Position(ctx context.Context, entryID string) (int, error) {
	entry, err := s.Repo.GetByID(ctx, entryID)
	if err != nil {
		return 0, &common_models.StoreError{Op: "load waitlist entry", Err: err}
	}
	if entry == nil {
		return 0, &common_models.ValidationError{Field: "id", Reason: "unknown waitlist entry"}
	}
	if entry.Status != StatusWaiting {
		return 0, &common_models.ValidationError{Field: "status", Reason: "entry is not waiting"}
	}

	peers, err := s.Repo.FindWaitingBySlot(ctx, entry.ServiceType, entry.Date, entry.StartTime)
	if err != nil {
		return 0, &common_models.StoreError{Op: "load waiting entries", Err: err}
	}

	position := 1
	for i := range peers {
		if peers[i].ID == entry.ID {
			continue
		}
		if peers[i].RanksAhead(entry) {
			position++
		}
	}
	return position, nil
}

// Cancel withdraws a waiting entry.
func (s *Scheduler) Cancel(ctx context.Context, entryID string) error {
	entry, err := s.Repo.GetByID(ctx, entryID)
	if err != nil {
		return &common_models.StoreError{Op: "load waitlist entry", Err: err}
	}
	if entry == nil {
		return &common_models.ValidationError{Field: "id", Reason: "unknown waitlist entry"}
	}
	if entry.Status != StatusWaiting {
		return &common_models.ValidationError{Field: "status", Reason: "entry is not waiting"}
	}
	return s.Repo.UpdateStatus(ctx, entryID, StatusCancelled)
}

// Sweep queues a promotion attempt for every waiting slot whose service type
// still has same-day capacity.
func (s *Scheduler) Sweep(ctx context.Context) error {
	slots, err := s.Repo.DistinctWaitingSlots(ctx)
	if err != nil {
		return &common_models.StoreError{Op: "list waiting slots", Err: err}
	}

	for _, slot := range slots {
		day, err := time.Parse("2006-01-02", slot.Date)
		if err != nil {
			s.Log.Warn("skipping slot with malformed date", zap.String("date", slot.Date))
			continue
		}
		active, err := s.Bookings.Count(ctx, booking.Query{
			ServiceType: slot.ServiceType,
			Statuses:    booking.ActiveStatuses(),
			From:        day,
			To:          day.AddDate(0, 0, 1),
		})
		if err != nil {
			s.Log.Error("sweep capacity check failed", zap.Error(err))
			continue
		}
		if active < int64(s.Config.MaxDailyPerService) {
			s.SlotFreed(slot.ServiceType, slot.Date, slot.StartTime)
		}
	}
	return nil
}
