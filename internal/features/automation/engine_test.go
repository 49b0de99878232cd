package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	common_models "go-sitter/internal/common/models"
	"go-sitter/internal/features/availability"
	"go-sitter/internal/features/booking"
	"go-sitter/internal/features/client"
	"go-sitter/pkg/clock"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type fakeRuleRepo struct {
	rules []Rule
}

func (f *fakeRuleRepo) Create(ctx context.Context, rule *Rule) error {
	rule.ID = primitive.NewObjectID()
	f.rules = append(f.rules, *rule)
	return nil
}
func (f *fakeRuleRepo) GetByID(ctx context.Context, id string) (*Rule, error) { return nil, nil }
func (f *fakeRuleRepo) List(ctx context.Context) ([]Rule, error)              { return f.rules, nil }
func (f *fakeRuleRepo) ListEnabled(ctx context.Context) ([]Rule, error) {
	var enabled []Rule
	for _, r := range f.rules {
		if r.Enabled {
			enabled = append(enabled, r)
		}
	}
	return enabled, nil
}
func (f *fakeRuleRepo) SetEnabled(ctx context.Context, id string, enabled bool) error { return nil }
func (f *fakeRuleRepo) Delete(ctx context.Context, id string) error                   { return nil }

type fakeExecutor struct {
	executed []string
}

func (f *fakeExecutor) ExecuteActions(ctx context.Context, rule *Rule, bk *booking.Booking) {
	f.executed = append(f.executed, rule.Name)
}
func (f *fakeExecutor) ExecuteAction(ctx context.Context, action Action, bk *booking.Booking) error {
	return nil
}

type fakeExecutionRepo struct {
	appended []RuleExecution
}

func (f *fakeExecutionRepo) Append(ctx context.Context, execution *RuleExecution) error {
	f.appended = append(f.appended, *execution)
	return nil
}
func (f *fakeExecutionRepo) List(ctx context.Context, bookingID string, limit int64) ([]RuleExecution, error) {
	return f.appended, nil
}

type fakeHistory struct {
	history client.History
	err     error
}

func (f *fakeHistory) History(ctx context.Context, clientID string) (client.History, error) {
	return f.history, f.err
}

type fakeSitters struct {
	ids []string
	err error
}

func (f *fakeSitters) Available(ctx context.Context, at time.Time, serviceType string) ([]string, error) {
	return f.ids, f.err
}

var _ availability.Provider = (*fakeSitters)(nil)

func newTestEngine(rules []Rule, history *fakeHistory, sitters *fakeSitters, now time.Time) (*Engine, *fakeExecutor, *fakeExecutionRepo) {
	log := zap.NewNop()
	executor := &fakeExecutor{}
	executions := &fakeExecutionRepo{}
	clk := clock.Fixed{T: now}
	engine := NewEngine(
		&fakeRuleRepo{rules: rules},
		NewContextBuilder(history, sitters, clk, log),
		executor,
		executions,
		clk,
		log,
	)
	return engine, executor, executions
}

func testBooking(status booking.Status, price float64, start time.Time) *booking.Booking {
	return &booking.Booking{
		ID:              primitive.NewObjectID(),
		ClientID:        "client-1",
		ServiceType:     "babysitting",
		ScheduledStart:  start,
		DurationMinutes: 120,
		Status:          status,
		Price:           price,
		CreatedAt:       start.Add(-48 * time.Hour),
	}
}

func matchAllRule(name string, priority int) Rule {
	return Rule{
		ID:       primitive.NewObjectID(),
		Name:     name,
		Type:     RuleNotification,
		Actions:  []Action{{Type: ActionSendNotification}},
		Priority: priority,
		Enabled:  true,
	}
}

func TestEvaluateRunsMatchingRulesInPriorityOrder(t *testing.T) {
	rules := []Rule{
		matchAllRule("third", 90),
		matchAllRule("first", 10),
		matchAllRule("second", 50),
	}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	engine, executor, executions := newTestEngine(rules, &fakeHistory{}, &fakeSitters{}, now)

	bk := testBooking(booking.StatusPending, 40, now.Add(24*time.Hour))
	fired, err := engine.Evaluate(context.Background(), bk, booking.ChangeCreated)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(fired) != 3 {
		t.Fatalf("expected 3 fired rules, got %d", len(fired))
	}

	want := []string{"first", "second", "third"}
	for i, name := range want {
		if executor.executed[i] != name {
			t.Errorf("execution order[%d] = %q, want %q", i, executor.executed[i], name)
		}
	}
	if len(executions.appended) != 3 {
		t.Errorf("expected 3 execution records, got %d", len(executions.appended))
	}
	for _, ex := range executions.appended {
		if ex.BookingID != bk.ID.Hex() {
			t.Errorf("execution booking id = %q, want %q", ex.BookingID, bk.ID.Hex())
		}
		if ex.Change != string(booking.ChangeCreated) {
			t.Errorf("execution change = %q, want %q", ex.Change, booking.ChangeCreated)
		}
	}
}

func TestEvaluateDoesNotStopAtFirstMatch(t *testing.T) {
	noMatch := matchAllRule("never", 20)
	noMatch.Conditions = []Condition{
		{Field: FieldBookingStatus, Operator: OperatorEquals, Value: "cancelled"},
	}
	rules := []Rule{matchAllRule("a", 10), noMatch, matchAllRule("b", 30)}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	engine, executor, _ := newTestEngine(rules, &fakeHistory{}, &fakeSitters{}, now)

	bk := testBooking(booking.StatusPending, 40, now.Add(time.Hour))
	fired, err := engine.Evaluate(context.Background(), bk, booking.ChangeModified)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(fired) != 2 {
		t.Fatalf("expected 2 fired rules, got %d", len(fired))
	}
	if executor.executed[0] != "a" || executor.executed[1] != "b" {
		t.Errorf("executed = %v, want [a b]", executor.executed)
	}
}

func TestEvaluateNumericBoundaries(t *testing.T) {
	tests := []struct {
		name      string
		price     float64
		wantFired bool
	}{
		{"just below threshold", 49.99, true},
		{"exactly at threshold", 50.00, false},
		{"above threshold", 50.01, false},
	}

	rule := matchAllRule("cheap booking", 10)
	rule.Conditions = []Condition{
		{Field: FieldBookingValue, Operator: OperatorLessThan, Value: "50"},
	}
	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine, _, _ := newTestEngine([]Rule{rule}, &fakeHistory{}, &fakeSitters{}, now)
			bk := testBooking(booking.StatusPending, tt.price, now.Add(time.Hour))
			fired, err := engine.Evaluate(context.Background(), bk, booking.ChangeCreated)
			if err != nil {
				t.Fatalf("Evaluate returned error: %v", err)
			}
			if (len(fired) == 1) != tt.wantFired {
				t.Errorf("fired = %v, want fired=%v", fired, tt.wantFired)
			}
		})
	}
}

func TestEvaluateUnresolvedFieldReadsAsZero(t *testing.T) {
	// History lookup fails, so client fields stay unresolved. A numeric
	// comparison against them reads 0 and a non-negative threshold fails.
	rule := matchAllRule("loyal client", 10)
	rule.Conditions = []Condition{
		{Field: FieldClientCompletedBookings, Operator: OperatorGreaterThanOrEqual, Value: "1"},
	}
	nullRule := matchAllRule("unresolved detector", 20)
	nullRule.Conditions = []Condition{
		{Field: FieldClientCompletedBookings, Operator: OperatorIsNull},
	}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	history := &fakeHistory{err: errors.New("store down")}
	engine, executor, _ := newTestEngine([]Rule{rule, nullRule}, history, &fakeSitters{}, now)

	bk := testBooking(booking.StatusPending, 40, now.Add(time.Hour))
	fired, err := engine.Evaluate(context.Background(), bk, booking.ChangeCreated)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(fired) != 1 {
		t.Fatalf("expected only the isNull rule to fire, got %v", executor.executed)
	}
	if executor.executed[0] != "unresolved detector" {
		t.Errorf("fired rule = %q, want %q", executor.executed[0], "unresolved detector")
	}
}

func TestEvaluateSkipsMalformedStoredRule(t *testing.T) {
	malformed := matchAllRule("bad field", 10)
	malformed.Conditions = []Condition{
		{Field: "nonexistentField", Operator: OperatorEquals, Value: "x"},
	}
	rules := []Rule{malformed, matchAllRule("good", 20)}

	now := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	engine, executor, _ := newTestEngine(rules, &fakeHistory{}, &fakeSitters{}, now)

	bk := testBooking(booking.StatusPending, 40, now.Add(time.Hour))
	fired, err := engine.Evaluate(context.Background(), bk, booking.ChangeCreated)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(fired) != 1 || executor.executed[0] != "good" {
		t.Errorf("expected only the well-formed rule to fire, got %v", executor.executed)
	}
}

func TestEvaluateContextFields(t *testing.T) {
	rule := matchAllRule("peak weekday evening", 10)
	rule.Conditions = []Condition{
		{Field: FieldIsPeakHour, Operator: OperatorEquals, Value: "true"},
		{Field: FieldDayOfWeek, Operator: OperatorEquals, Value: "Saturday"},
		{Field: FieldAvailableSitterCount, Operator: OperatorGreaterThanOrEqual, Value: "2"},
		{Field: FieldSitterAssigned, Operator: OperatorEquals, Value: "false"},
	}

	now := time.Date(2026, 3, 13, 9, 0, 0, 0, time.UTC)
	sitters := &fakeSitters{ids: []string{"s1", "s2"}}
	engine, _, _ := newTestEngine([]Rule{rule}, &fakeHistory{}, sitters, now)

	// Saturday 18:00, inside the 17:00-20:59 peak window.
	start := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)
	bk := testBooking(booking.StatusPending, 40, start)
	fired, err := engine.Evaluate(context.Background(), bk, booking.ChangeCreated)
	if err != nil {
		t.Fatalf("Evaluate returned error: %v", err)
	}
	if len(fired) != 1 {
		t.Errorf("expected rule to fire on peak Saturday evening, fired=%v", fired)
	}
}

func TestRuleValidate(t *testing.T) {
	valid := matchAllRule("ok", 1)

	tests := []struct {
		name   string
		mutate func(r *Rule)
		wantOK bool
	}{
		{"valid rule", func(r *Rule) {}, true},
		{"missing name", func(r *Rule) { r.Name = "" }, false},
		{"unknown rule type", func(r *Rule) { r.Type = "mystery" }, false},
		{"no actions", func(r *Rule) { r.Actions = nil }, false},
		{"unknown field", func(r *Rule) {
			r.Conditions = []Condition{{Field: "bogus", Operator: OperatorEquals, Value: "x"}}
		}, false},
		{"unknown operator", func(r *Rule) {
			r.Conditions = []Condition{{Field: FieldServiceType, Operator: "approximates", Value: "x"}}
		}, false},
		{"non-numeric literal under numeric operator", func(r *Rule) {
			r.Conditions = []Condition{{Field: FieldBookingValue, Operator: OperatorGreaterThan, Value: "cheap"}}
		}, false},
		{"unknown action", func(r *Rule) {
			r.Actions = []Action{{Type: "launchRocket"}}
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := valid
			rule.Conditions = append([]Condition(nil), valid.Conditions...)
			rule.Actions = append([]Action(nil), valid.Actions...)
			tt.mutate(&rule)

			err := rule.Validate()
			if tt.wantOK {
				if err != nil {
					t.Fatalf("Validate returned unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("Validate accepted a malformed rule")
			}
			var cfgErr *common_models.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Errorf("error type = %T, want *ConfigurationError", err)
			}
		})
	}
}
