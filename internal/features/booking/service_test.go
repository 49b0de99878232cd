package booking

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	common_models "go-sitter/internal/common/models"
	"go-sitter/internal/dispatch"
	"go-sitter/internal/features/notification"
	"go-sitter/pkg/clock"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type memRepo struct {
	mu       sync.Mutex
	bookings map[string]*Booking
}

func newMemRepo() *memRepo {
	return &memRepo{bookings: make(map[string]*Booking)}
}

func (m *memRepo) Get(ctx context.Context, id string) (*Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	bk, ok := m.bookings[id]
	if !ok {
		return nil, nil
	}
	copied := *bk
	return &copied, nil
}

func (m *memRepo) Create(ctx context.Context, bk *Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if bk.ID.IsZero() {
		bk.ID = primitive.NewObjectID()
	}
	bk.CreatedAt = time.Now()
	copied := *bk
	m.bookings[bk.ID.Hex()] = &copied
	return nil
}

func (m *memRepo) Update(ctx context.Context, id string, changes map[string]interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	bk, ok := m.bookings[id]
	if !ok {
		return errors.New("not found")
	}
	for k, v := range changes {
		switch k {
		case "status":
			bk.Status = v.(Status)
		case "sitter_id":
			bk.SitterID = v.(string)
		case "price":
			bk.Price = v.(float64)
		case "scheduled_start":
			bk.ScheduledStart = v.(time.Time)
		case "duration_minutes":
			bk.DurationMinutes = v.(int)
		}
	}
	return nil
}

func (m *memRepo) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bookings, id)
	return nil
}

func (m *memRepo) Query(ctx context.Context, q Query) ([]Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var matched []Booking
	for _, bk := range m.bookings {
		if q.ClientID != "" && bk.ClientID != q.ClientID {
			continue
		}
		if q.SitterID != "" && bk.SitterID != q.SitterID {
			continue
		}
		if q.ServiceType != "" && bk.ServiceType != q.ServiceType {
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
		matched = append(matched, *bk)
	}
	return matched, nil
}

func (m *memRepo) Count(ctx context.Context, q Query) (int64, error) {
	matched, err := m.Query(ctx, q)
	return int64(len(matched)), err
}

func (m *memRepo) EnsureIndexes(ctx context.Context) error { return nil }

type stubChecker struct {
	available bool
}

func (s *stubChecker) IsAvailable(ctx context.Context, sitterID string, start time.Time, durationMinutes int) bool {
	return s.available
}

type recordingTrigger struct {
	mu        sync.Mutex
	evaluated []ChangeKind
}

func (r *recordingTrigger) Evaluate(ctx context.Context, bk *Booking, change ChangeKind) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.evaluated = append(r.evaluated, change)
	return nil, nil
}

type recordingSlotFreed struct {
	mu    sync.Mutex
	slots []string
}

func (r *recordingSlotFreed) SlotFreed(serviceType, date, startTime string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.slots = append(r.slots, serviceType+"|"+date+"|"+startTime)
}

type recordingSender struct {
	mu    sync.Mutex
	kinds []notification.TemplateKind
}

func (r *recordingSender) Send(ctx context.Context, clientID string, kind notification.TemplateKind, payload map[string]string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
	return nil
}

type harness struct {
	service    Service
	repo       *memRepo
	checker    *stubChecker
	trigger    *recordingTrigger
	slotFreed  *recordingSlotFreed
	sender     *recordingSender
	dispatcher *dispatch.Dispatcher
}

func newHarness() *harness {
	log := zap.NewNop()
	h := &harness{
		repo:       newMemRepo(),
		checker:    &stubChecker{available: true},
		trigger:    &recordingTrigger{},
		slotFreed:  &recordingSlotFreed{},
		sender:     &recordingSender{},
		dispatcher: dispatch.NewDispatcher(log),
	}
	h.service = NewService(
		h.repo,
		h.checker,
		h.trigger,
		h.slotFreed,
		h.sender,
		h.dispatcher,
		clock.Fixed{T: time.Date(2026, 6, 1, 12, 0, 0, 0, time.UTC)},
		log,
	)
	return h
}

func createRequest() CreateRequest {
	return CreateRequest{
		ClientID:        "client-1",
		SitterID:        "sitter-1",
		ServiceType:     "babysitting",
		ScheduledStart:  "2026-06-02T14:00:00Z",
		DurationMinutes: 120,
		Price:           50,
	}
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *CreateRequest)
	}{
		{"missing client", func(r *CreateRequest) { r.ClientID = "" }},
		{"zero duration", func(r *CreateRequest) { r.DurationMinutes = 0 }},
		{"negative duration", func(r *CreateRequest) { r.DurationMinutes = -30 }},
		{"bad start format", func(r *CreateRequest) { r.ScheduledStart = "tomorrow at noon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			req := createRequest()
			tt.mutate(&req)

			_, err := h.service.Create(context.Background(), req)
			var valErr *common_models.ValidationError
			if !errors.As(err, &valErr) {
				t.Errorf("error = %v, want ValidationError", err)
			}
		})
	}
}

func TestCreateRejectsConflictingInterval(t *testing.T) {
	h := newHarness()
	h.checker.available = false

	_, err := h.service.Create(context.Background(), createRequest())
	if !errors.Is(err, ErrSlotConflict) {
		t.Errorf("error = %v, want ErrSlotConflict", err)
	}
}

func TestCreateUnassignedSkipsConflictCheck(t *testing.T) {
	h := newHarness()
	h.checker.available = false

	req := createRequest()
	req.SitterID = ""
	bk, err := h.service.Create(context.Background(), req)
	if err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	if bk.Status != StatusPending {
		t.Errorf("status = %q, want pending", bk.Status)
	}
}

func TestCreateFiresEvaluation(t *testing.T) {
	h := newHarness()
	if _, err := h.service.Create(context.Background(), createRequest()); err != nil {
		t.Fatalf("Create returned error: %v", err)
	}
	h.dispatcher.Close()

	if len(h.trigger.evaluated) != 1 || h.trigger.evaluated[0] != ChangeCreated {
		t.Errorf("evaluated = %v, want [created]", h.trigger.evaluated)
	}
}

func TestCreateInsertRaceLoserRollsBack(t *testing.T) {
	h := newHarness()

	// An overlapping booking is already stored with an earlier ObjectID; the
	// pre-insert availability check missed it (the race window), so the
	// post-insert verification must roll the new booking back.
	start := time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC)
	existing := &Booking{
		ClientID:        "client-0",
		SitterID:        "sitter-1",
		ServiceType:     "babysitting",
		ScheduledStart:  start.Add(30 * time.Minute),
		DurationMinutes: 60,
		Status:          StatusApproved,
	}
	if err := h.repo.Create(context.Background(), existing); err != nil {
		t.Fatalf("seed existing booking: %v", err)
	}

	_, err := h.service.Create(context.Background(), createRequest())
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("error = %v, want ErrSlotConflict", err)
	}

	remaining, _ := h.repo.Query(context.Background(), Query{SitterID: "sitter-1"})
	if len(remaining) != 1 || remaining[0].ID != existing.ID {
		t.Errorf("expected only the earlier booking to survive, got %d bookings", len(remaining))
	}
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		name    string
		from    Status
		apply   func(s Service, ctx context.Context, id string) error
		wantTo  Status
		wantErr bool
	}{
		{"approve pending", StatusPending, Service.Approve, StatusApproved, false},
		{"start approved", StatusApproved, Service.Start, StatusInProgress, false},
		{"complete inProgress", StatusInProgress, Service.Complete, StatusCompleted, false},
		{"cancel pending", StatusPending, Service.Cancel, StatusCancelled, false},
		{"cancel approved", StatusApproved, Service.Cancel, StatusCancelled, false},
		{"approve completed", StatusCompleted, Service.Approve, StatusCompleted, true},
		{"start pending", StatusPending, Service.Start, StatusPending, true},
		{"cancel inProgress", StatusInProgress, Service.Cancel, StatusInProgress, true},
		{"complete pending", StatusPending, Service.Complete, StatusPending, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness()
			bk := &Booking{
				ClientID:        "client-1",
				SitterID:        "sitter-1",
				ServiceType:     "babysitting",
				ScheduledStart:  time.Date(2026, 6, 2, 14, 0, 0, 0, time.UTC),
				DurationMinutes: 60,
				Status:          tt.from,
			}
			if err := h.repo.Create(context.Background(), bk); err != nil {
				t.Fatalf("seed booking: %v", err)
			}

			err := tt.apply(h.service, context.Background(), bk.ID.Hex())
			if tt.wantErr {
				var valErr *common_models.ValidationError
				if !errors.As(err, &valErr) {
					t.Fatalf("error = %v, want ValidationError", err)
				}
			} else if err != nil {
				t.Fatalf("transition returned error: %v", err)
			}

			stored, _ := h.repo.Get(context.Background(), bk.ID.Hex())
			if stored.Status != tt.wantTo {
				t.Errorf("status = %q, want %q", stored.Status, tt.wantTo)
			}
		})
	}
}

func TestCancelFreesSlotAndNotifies(t *testing.T) {
	h := newHarness()
	bk := &Booking{
		ClientID:        "client-1",
		SitterID:        "sitter-1",
		ServiceType:     "petsitting",
		ScheduledStart:  time.Date(2026, 6, 2, 9, 30, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          StatusApproved,
	}
	if err := h.repo.Create(context.Background(), bk); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	if err := h.service.Cancel(context.Background(), bk.ID.Hex()); err != nil {
		t.Fatalf("Cancel returned error: %v", err)
	}

	want := "petsitting|2026-06-02|09:30"
	if len(h.slotFreed.slots) != 1 || h.slotFreed.slots[0] != want {
		t.Errorf("slot freed = %v, want [%s]", h.slotFreed.slots, want)
	}
	if len(h.sender.kinds) != 1 || h.sender.kinds[0] != notification.TemplateBookingCancelled {
		t.Errorf("notifications = %v, want one bookingCancelled", h.sender.kinds)
	}
}

func TestRescheduleConflictCheck(t *testing.T) {
	h := newHarness()
	bk := &Booking{
		ClientID:        "client-1",
		SitterID:        "sitter-1",
		ServiceType:     "babysitting",
		ScheduledStart:  time.Date(2026, 6, 2, 9, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
		Status:          StatusApproved,
	}
	if err := h.repo.Create(context.Background(), bk); err != nil {
		t.Fatalf("seed booking: %v", err)
	}

	h.checker.available = false
	newStart := time.Date(2026, 6, 2, 15, 0, 0, 0, time.UTC)
	err := h.service.Reschedule(context.Background(), bk.ID.Hex(), newStart, 60)
	if !errors.Is(err, ErrSlotConflict) {
		t.Fatalf("error = %v, want ErrSlotConflict", err)
	}

	h.checker.available = true
	if err := h.service.Reschedule(context.Background(), bk.ID.Hex(), newStart, 90); err != nil {
		t.Fatalf("Reschedule returned error: %v", err)
	}
	stored, _ := h.repo.Get(context.Background(), bk.ID.Hex())
	if !stored.ScheduledStart.Equal(newStart) || stored.DurationMinutes != 90 {
		t.Errorf("stored = %v/%d, want %v/90", stored.ScheduledStart, stored.DurationMinutes, newStart)
	}
}

func TestOverlapsHalfOpen(t *testing.T) {
	bk := &Booking{
		ScheduledStart:  time.Date(2026, 6, 2, 10, 0, 0, 0, time.UTC),
		DurationMinutes: 60,
	}
	at := func(hour, minute int) time.Time {
		return time.Date(2026, 6, 2, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name     string
		start    time.Time
		duration int
		want     bool
	}{
		{"identical interval", at(10, 0), 60, true},
		{"partial overlap front", at(9, 30), 60, true},
		{"partial overlap back", at(10, 30), 60, true},
		{"contained", at(10, 15), 15, true},
		{"ends at existing start", at(9, 0), 60, false},
		{"starts at existing end", at(11, 0), 60, false},
		{"disjoint", at(13, 0), 60, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := bk.Overlaps(tt.start, tt.duration); got != tt.want {
				t.Errorf("Overlaps(%v, %d) = %v, want %v", tt.start, tt.duration, got, tt.want)
			}
		})
	}
}
