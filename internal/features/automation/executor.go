package automation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go-sitter/internal/features/availability"
	"go-sitter/internal/features/booking"
	"go-sitter/internal/features/notification"

	"github.com/d5/tengo/v2"
	"go.uber.org/zap"
)

// Executor applies a matched rule's actions against the booking store.
// Execution is best-effort, at-least-once: one failing action is logged and
// does not prevent the remaining actions of the same rule.
type Executor interface {
	ExecuteActions(ctx context.Context, rule *Rule, bk *booking.Booking)
	ExecuteAction(ctx context.Context, action Action, bk *booking.Booking) error
}

type ActionExecutorImpl struct {
	Bookings  booking.Repository
	Sitters   availability.Provider
	Checker   booking.AvailabilityChecker
	Notifier  notification.Sender
	SlotFreed booking.SlotFreedTrigger
	Log       *zap.Logger
}

func NewActionExecutor(
	bookings booking.Repository,
	sitters availability.Provider,
	checker booking.AvailabilityChecker,
	notifier notification.Sender,
	slotFreed booking.SlotFreedTrigger,
	log *zap.Logger,
) Executor {
	return &ActionExecutorImpl{
		Bookings:  bookings,
		Sitters:   sitters,
		Checker:   checker,
		Notifier:  notifier,
		SlotFreed: slotFreed,
		Log:       log,
	}
}

func (e *ActionExecutorImpl) ExecuteActions(ctx context.Context, rule *Rule, bk *booking.Booking) {
	for i, action := range rule.Actions {
		if err := e.ExecuteAction(ctx, action, bk); err != nil {
			e.Log.Error("action execution failed",
				zap.String("rule", rule.Name),
				zap.Int("action", i),
				zap.String("type", string(action.Type)),
				zap.Error(err),
			)
		}
	}
}

func (e *ActionExecutorImpl) ExecuteAction(ctx context.Context, action Action, bk *booking.Booking) error {
	switch action.Type {
	case ActionApproveBooking:
		return e.approveBooking(ctx, bk)
	case ActionAssignSitter:
		return e.assignSitter(ctx, action.Parameters, bk)
	case ActionCancelBooking:
		return e.cancelBooking(ctx, bk)
	case ActionAdjustPricing:
		return e.adjustPricing(ctx, action.Parameters, bk)
	case ActionSendNotification:
		return e.sendNotification(ctx, action.Parameters, bk)
	case ActionCreateFollowUp:
		return e.createFollowUp(ctx, action.Parameters, bk)
	case ActionRunScript:
		return e.runScript(action.Parameters, bk)
	default:
		return fmt.Errorf("unsupported action type: %s", action.Type)
	}
}

func (e *ActionExecutorImpl) approveBooking(ctx context.Context, bk *booking.Booking) error {
	if !booking.CanTransition(bk.Status, booking.StatusApproved) {
		e.Log.Debug("approveBooking skipped", zap.String("booking", bk.ID.Hex()), zap.String("status", string(bk.Status)))
		return nil
	}
	if err := e.Bookings.Update(ctx, bk.ID.Hex(), map[string]interface{}{"status": booking.StatusApproved}); err != nil {
		return fmt.Errorf("approve booking: %w", err)
	}
	bk.Status = booking.StatusApproved
	if err := e.Notifier.Send(ctx, bk.ClientID, notification.TemplateBookingApproved, map[string]string{
		"bookingId": bk.ID.Hex(),
		"start":     bk.ScheduledStart.Format(time.RFC3339),
	}); err != nil {
		e.Log.Warn("approval notification failed", zap.Error(err))
	}
	return nil
}

func (e *ActionExecutorImpl) assignSitter(ctx context.Context, params map[string]string, bk *booking.Booking) error {
	sitterID := params["sitterId"]
	if sitterID == "" {
		candidates, err := e.Sitters.Available(ctx, bk.ScheduledStart, bk.ServiceType)
		if err != nil {
			return fmt.Errorf("list sitter candidates: %w", err)
		}
		for _, candidate := range candidates {
			if e.Checker.IsAvailable(ctx, candidate, bk.ScheduledStart, bk.DurationMinutes) {
				sitterID = candidate
				break
			}
		}
	} else if !e.Checker.IsAvailable(ctx, sitterID, bk.ScheduledStart, bk.DurationMinutes) {
		return fmt.Errorf("sitter %s has a conflicting booking", sitterID)
	}
	if sitterID == "" {
		return fmt.Errorf("no available sitter for booking %s", bk.ID.Hex())
	}
	if err := e.Bookings.Update(ctx, bk.ID.Hex(), map[string]interface{}{"sitter_id": sitterID}); err != nil {
		return fmt.Errorf("assign sitter: %w", err)
	}
	bk.SitterID = sitterID
	return nil
}

func (e *ActionExecutorImpl) cancelBooking(ctx context.Context, bk *booking.Booking) error {
	if !booking.CanTransition(bk.Status, booking.StatusCancelled) {
		e.Log.Debug("cancelBooking skipped", zap.String("booking", bk.ID.Hex()), zap.String("status", string(bk.Status)))
		return nil
	}
	if err := e.Bookings.Update(ctx, bk.ID.Hex(), map[string]interface{}{"status": booking.StatusCancelled}); err != nil {
		return fmt.Errorf("cancel booking: %w", err)
	}
	bk.Status = booking.StatusCancelled
	if err := e.Notifier.Send(ctx, bk.ClientID, notification.TemplateBookingCancelled, map[string]string{
		"bookingId": bk.ID.Hex(),
	}); err != nil {
		e.Log.Warn("cancellation notification failed", zap.Error(err))
	}
	e.SlotFreed.SlotFreed(
		bk.ServiceType,
		bk.ScheduledStart.Format("2006-01-02"),
		bk.ScheduledStart.Format("15:04"),
	)
	return nil
}

// adjustPricing recomputes the price from the booking snapshot, so when
// several pricing rules match the same event, each one overwrites the
// previous effect rather than compounding it.
func (e *ActionExecutorImpl) adjustPricing(ctx context.Context, params map[string]string, bk *booking.Booking) error {
	price := bk.Price
	switch {
	case params["price"] != "":
		p, err := strconv.ParseFloat(params["price"], 64)
		if err != nil {
			return fmt.Errorf("invalid price parameter %q", params["price"])
		}
		price = p
	case params["multiplier"] != "":
		m, err := strconv.ParseFloat(params["multiplier"], 64)
		if err != nil {
			return fmt.Errorf("invalid multiplier parameter %q", params["multiplier"])
		}
		price = bk.Price * m
	case params["delta"] != "":
		d, err := strconv.ParseFloat(params["delta"], 64)
		if err != nil {
			return fmt.Errorf("invalid delta parameter %q", params["delta"])
		}
		price = bk.Price + d
	default:
		return fmt.Errorf("adjustPricing requires a price, multiplier or delta parameter")
	}

	if err := e.Bookings.Update(ctx, bk.ID.Hex(), map[string]interface{}{"price": price}); err != nil {
		return fmt.Errorf("adjust pricing: %w", err)
	}
	if err := e.Notifier.Send(ctx, bk.ClientID, notification.TemplatePriceAdjusted, map[string]string{
		"bookingId": bk.ID.Hex(),
		"price":     strconv.FormatFloat(price, 'f', 2, 64),
	}); err != nil {
		e.Log.Warn("pricing notification failed", zap.Error(err))
	}
	return nil
}

func (e *ActionExecutorImpl) sendNotification(ctx context.Context, params map[string]string, bk *booking.Booking) error {
	kind := notification.TemplateKind(params["template"])
	if kind == "" {
		kind = notification.TemplateGeneral
	}
	payload := map[string]string{"bookingId": bk.ID.Hex()}
	for k, v := range params {
		payload[k] = v
	}
	return e.Notifier.Send(ctx, bk.ClientID, kind, payload)
}

func (e *ActionExecutorImpl) createFollowUp(ctx context.Context, params map[string]string, bk *booking.Booking) error {
	payload := map[string]string{
		"bookingId":   bk.ID.Hex(),
		"serviceType": bk.ServiceType,
	}
	for k, v := range params {
		payload[k] = v
	}
	return e.Notifier.Send(ctx, bk.ClientID, notification.TemplateFollowUp, payload)
}

// runScript executes an operator-authored tengo script with the booking
// exposed read-only.
func (e *ActionExecutorImpl) runScript(params map[string]string, bk *booking.Booking) error {
	scriptContent := params["script"]
	if scriptContent == "" {
		return fmt.Errorf("script content is required")
	}

	script := tengo.NewScript([]byte(scriptContent))
	script.Add("booking_id", bk.ID.Hex())
	script.Add("client_id", bk.ClientID)
	script.Add("service_type", bk.ServiceType)
	script.Add("status", string(bk.Status))
	script.Add("price", bk.Price)
	script.Add("log", &tengo.UserFunction{
		Name: "log",
		Value: func(args ...tengo.Object) (tengo.Object, error) {
			for _, arg := range args {
				e.Log.Info("script log", zap.String("value", arg.String()))
			}
			return tengo.UndefinedValue, nil
		},
	})

	compiled, err := script.Compile()
	if err != nil {
		return fmt.Errorf("failed to compile script: %w", err)
	}
	if err := compiled.Run(); err != nil {
		return fmt.Errorf("failed to run script: %w", err)
	}
	return nil
}
