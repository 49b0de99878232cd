package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	common_models "go-sitter/internal/common/models"
	"go-sitter/internal/dispatch"
	"go-sitter/internal/features/notification"
	"go-sitter/pkg/clock"

	"go.uber.org/zap"
)

// ErrSlotConflict is returned when a requested interval overlaps an active
// booking for the same sitter.
var ErrSlotConflict = errors.New("requested interval conflicts with an existing booking")

type CreateRequest struct {
	ClientID        string  `json:"client_id"`
	SitterID        string  `json:"sitter_id,omitempty"`
	ServiceType     string  `json:"service_type"`
	ScheduledStart  string  `json:"scheduled_start"` // RFC3339
	DurationMinutes int     `json:"duration_minutes"`
	Price           float64 `json:"price"`
	Notes           string  `json:"notes,omitempty"`
}

type Service interface {
	Create(ctx context.Context, req CreateRequest) (*Booking, error)
	Get(ctx context.Context, id string) (*Booking, error)
	List(ctx context.Context, q Query) ([]Booking, error)
	Approve(ctx context.Context, id string) error
	Cancel(ctx context.Context, id string) error
	Complete(ctx context.Context, id string) error
	Start(ctx context.Context, id string) error
	Reschedule(ctx context.Context, id string, newStart time.Time, durationMinutes int) error
	AssignSitter(ctx context.Context, id, sitterID string) error
}

type ServiceImpl struct {
	Repo       Repository
	Checker    AvailabilityChecker
	Automation AutomationTrigger
	SlotFreed  SlotFreedTrigger
	Notifier   notification.Sender
	Dispatcher *dispatch.Dispatcher
	Clock      clock.Clock
	Log        *zap.Logger
}

func NewService(
	repo Repository,
	checker AvailabilityChecker,
	automation AutomationTrigger,
	slotFreed SlotFreedTrigger,
	notifier notification.Sender,
	dispatcher *dispatch.Dispatcher,
	clk clock.Clock,
	log *zap.Logger,
) Service {
	return &ServiceImpl{
		Repo:       repo,
		Checker:    checker,
		Automation: automation,
		SlotFreed:  slotFreed,
		Notifier:   notifier,
		Dispatcher: dispatcher,
		Clock:      clk,
		Log:        log,
	}
}

func (s *ServiceImpl) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if req.ClientID == "" {
		return nil, &common_models.ValidationError{Field: "client_id", Reason: "required"}
	}
	if req.DurationMinutes <= 0 {
		return nil, &common_models.ValidationError{Field: "duration_minutes", Reason: "must be positive"}
	}
	start, err := time.Parse(time.RFC3339, req.ScheduledStart)
	if err != nil {
		return nil, &common_models.ValidationError{Field: "scheduled_start", Reason: "must be RFC3339"}
	}

	// Conflict checking is deferred for unassigned bookings.
	if req.SitterID != "" && !s.Checker.IsAvailable(ctx, req.SitterID, start, req.DurationMinutes) {
		return nil, ErrSlotConflict
	}

	bk := &Booking{
		ClientID:        req.ClientID,
		SitterID:        req.SitterID,
		ServiceType:     req.ServiceType,
		ScheduledStart:  start,
		DurationMinutes: req.DurationMinutes,
		Status:          StatusPending,
		Price:           req.Price,
		Notes:           req.Notes,
	}
	if err := s.Repo.Create(ctx, bk); err != nil {
		return nil, &common_models.StoreError{Op: "create booking", Err: err}
	}

	// Optimistic claim: the availability check above races against concurrent
	// creations, so re-verify after our own write is visible. The earlier
	// insert (smaller ObjectID) wins; the loser rolls back.
	if bk.SitterID != "" {
		if loser, err := s.verifyNoOverlap(ctx, bk); err != nil {
			s.Log.Error("overlap re-verification failed", zap.Error(err), zap.String("booking", bk.ID.Hex()))
		} else if loser {
			if delErr := s.Repo.Delete(ctx, bk.ID.Hex()); delErr != nil {
				s.Log.Error("rollback of conflicting booking failed", zap.Error(delErr), zap.String("booking", bk.ID.Hex()))
			}
			return nil, ErrSlotConflict
		}
	}

	s.fireEvaluation(bk.ID.Hex(), ChangeCreated)
	return bk, nil
}

// verifyNoOverlap reports whether bk lost an insert race against another
// active booking in the same interval.
func (s *ServiceImpl) verifyNoOverlap(ctx context.Context, bk *Booking) (bool, error) {
	dayStart := time.Date(bk.ScheduledStart.Year(), bk.ScheduledStart.Month(), bk.ScheduledStart.Day(), 0, 0, 0, 0, bk.ScheduledStart.Location())
	others, err := s.Repo.Query(ctx, Query{
		SitterID: bk.SitterID,
		Statuses: ActiveStatuses(),
		From:     dayStart,
		To:       dayStart.AddDate(0, 0, 1),
	})
	if err != nil {
		return false, err
	}
	for i := range others {
		other := &others[i]
		if other.ID == bk.ID {
			continue
		}
		if other.Overlaps(bk.ScheduledStart, bk.DurationMinutes) && other.ID.Hex() < bk.ID.Hex() {
			return true, nil
		}
	}
	return false, nil
}

func (s *ServiceImpl) Get(ctx context.Context, id string) (*Booking, error) {
	return s.Repo.Get(ctx, id)
}

func (s *ServiceImpl) List(ctx context.Context, q Query) ([]Booking, error) {
	return s.Repo.Query(ctx, q)
}

func (s *ServiceImpl) Approve(ctx context.Context, id string) error {
	bk, err := s.transition(ctx, id, StatusApproved)
	if err != nil {
		return err
	}
	if err := s.Notifier.Send(ctx, bk.ClientID, notification.TemplateBookingApproved, map[string]string{
		"bookingId": bk.ID.Hex(),
		"start":     bk.ScheduledStart.Format(time.RFC3339),
	}); err != nil {
		s.Log.Warn("approval notification failed", zap.Error(err), zap.String("booking", id))
	}
	s.fireEvaluation(id, ChangeModified)
	return nil
}

func (s *ServiceImpl) Start(ctx context.Context, id string) error {
	_, err := s.transition(ctx, id, StatusInProgress)
	if err != nil {
		return err
	}
	s.fireEvaluation(id, ChangeModified)
	return nil
}

func (s *ServiceImpl) Complete(ctx context.Context, id string) error {
	_, err := s.transition(ctx, id, StatusCompleted)
	if err != nil {
		return err
	}
	s.fireEvaluation(id, ChangeModified)
	return nil
}

func (s *ServiceImpl) Cancel(ctx context.Context, id string) error {
	bk, err := s.transition(ctx, id, StatusCancelled)
	if err != nil {
		return err
	}
	if err := s.Notifier.Send(ctx, bk.ClientID, notification.TemplateBookingCancelled, map[string]string{
		"bookingId": bk.ID.Hex(),
	}); err != nil {
		s.Log.Warn("cancellation notification failed", zap.Error(err), zap.String("booking", id))
	}

	// The interval is free again; give the waitlist a chance to fill it.
	s.SlotFreed.SlotFreed(
		bk.ServiceType,
		bk.ScheduledStart.Format("2006-01-02"),
		bk.ScheduledStart.Format("15:04"),
	)
	return nil
}

func (s *ServiceImpl) Reschedule(ctx context.Context, id string, newStart time.Time, durationMinutes int) error {
	bk, err := s.Repo.Get(ctx, id)
	if err != nil {
		return &common_models.StoreError{Op: "get booking", Err: err}
	}
	if bk == nil {
		return &common_models.ValidationError{Field: "id", Reason: "unknown booking"}
	}
	if durationMinutes <= 0 {
		durationMinutes = bk.DurationMinutes
	}
	if bk.SitterID != "" && !s.Checker.IsAvailable(ctx, bk.SitterID, newStart, durationMinutes) {
		return ErrSlotConflict
	}
	if err := s.Repo.Update(ctx, id, map[string]interface{}{
		"scheduled_start":  newStart,
		"duration_minutes": durationMinutes,
	}); err != nil {
		return &common_models.StoreError{Op: "reschedule booking", Err: err}
	}
	s.fireEvaluation(id, ChangeModified)
	return nil
}

func (s *ServiceImpl) AssignSitter(ctx context.Context, id, sitterID string) error {
	bk, err := s.Repo.Get(ctx, id)
	if err != nil {
		return &common_models.StoreError{Op: "get booking", Err: err}
	}
	if bk == nil {
		return &common_models.ValidationError{Field: "id", Reason: "unknown booking"}
	}
	if !s.Checker.IsAvailable(ctx, sitterID, bk.ScheduledStart, bk.DurationMinutes) {
		return ErrSlotConflict
	}
	if err := s.Repo.Update(ctx, id, map[string]interface{}{"sitter_id": sitterID}); err != nil {
		return &common_models.StoreError{Op: "assign sitter", Err: err}
	}
	s.fireEvaluation(id, ChangeModified)
	return nil
}

func (s *ServiceImpl) transition(ctx context.Context, id string, to Status) (*Booking, error) {
	bk, err := s.Repo.Get(ctx, id)
	if err != nil {
		return nil, &common_models.StoreError{Op: "get booking", Err: err}
	}
	if bk == nil {
		return nil, &common_models.ValidationError{Field: "id", Reason: "unknown booking"}
	}
	if !CanTransition(bk.Status, to) {
		return nil, &common_models.ValidationError{
			Field:  "status",
			Reason: fmt.Sprintf("cannot move %s booking to %s", bk.Status, to),
		}
	}
	if err := s.Repo.Update(ctx, id, map[string]interface{}{"status": to}); err != nil {
		return nil, &common_models.StoreError{Op: "update booking status", Err: err}
	}
	bk.Status = to
	return bk, nil
}

// fireEvaluation queues a rule pass for the booking. The dispatcher key is the
// booking id, so no two evaluations for the same booking run concurrently.
func (s *ServiceImpl) fireEvaluation(id string, change ChangeKind) {
	s.Dispatcher.Submit("booking:"+id, func() {
		ctx := context.Background()
		bk, err := s.Repo.Get(ctx, id)
		if err != nil || bk == nil {
			s.Log.Error("booking reload for evaluation failed", zap.String("booking", id), zap.Error(err))
			return
		}
		fired, err := s.Automation.Evaluate(ctx, bk, change)
		if err != nil {
			s.Log.Error("rule evaluation failed", zap.String("booking", id), zap.Error(err))
			return
		}
		if len(fired) > 0 {
			s.Log.Info("rules fired", zap.String("booking", id), zap.Strings("rules", fired))
		}
	})
}
