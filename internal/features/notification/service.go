package notification

import (
	"context"
	"strings"

	"go.uber.org/zap"
)

// Sender delivers a templated notification to a client. Fire-and-forget:
// failures are returned for the caller to log, never retried here.
type Sender interface {
	Send(ctx context.Context, clientID string, kind TemplateKind, payload map[string]string) error
}

type Service interface {
	Sender
	ListForClient(ctx context.Context, clientID string, page, limit int64) ([]Notification, int64, error)
	CountUnread(ctx context.Context, clientID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
}

type template struct {
	Title string
	Body  string
}

// Placeholders of the form {{key}} are filled from the payload map.
var templates = map[TemplateKind]template{
	TemplateBookingApproved:  {"Booking approved", "Your booking {{bookingId}} starting {{start}} has been approved."},
	TemplateBookingCancelled: {"Booking cancelled", "Your booking {{bookingId}} has been cancelled."},
	TemplateWaitlistPromoted: {"You're off the waitlist!", "A {{serviceType}} slot on {{date}} at {{time}} opened up and was booked for you."},
	TemplatePriceAdjusted:    {"Price updated", "The price for booking {{bookingId}} is now {{price}}."},
	TemplateFollowUp:         {"How did it go?", "Tell us about your recent {{serviceType}} booking."},
	TemplateGeneral:          {"{{title}}", "{{message}}"},
}

type ServiceImpl struct {
	Repo Repository
	Hub  *Hub
	Log  *zap.Logger
}

func NewService(repo Repository, hub *Hub, log *zap.Logger) Service {
	return &ServiceImpl{Repo: repo, Hub: hub, Log: log}
}

func (s *ServiceImpl) Send(ctx context.Context, clientID string, kind TemplateKind, payload map[string]string) error {
	tpl, ok := templates[kind]
	if !ok {
		tpl = templates[TemplateGeneral]
	}

	n := &Notification{
		ClientID: clientID,
		Kind:     kind,
		Title:    fillPlaceholders(tpl.Title, payload),
		Message:  fillPlaceholders(tpl.Body, payload),
	}
	if err := s.Repo.Create(ctx, n); err != nil {
		return err
	}

	s.Hub.Push(clientID, n)
	s.Log.Info("notification sent",
		zap.String("client", clientID),
		zap.String("kind", string(kind)),
	)
	return nil
}

func (s *ServiceImpl) ListForClient(ctx context.Context, clientID string, page, limit int64) ([]Notification, int64, error) {
	return s.Repo.ListForClient(ctx, clientID, page, limit)
}

func (s *ServiceImpl) CountUnread(ctx context.Context, clientID string) (int64, error) {
	return s.Repo.CountUnread(ctx, clientID)
}

func (s *ServiceImpl) MarkRead(ctx context.Context, id string) error {
	return s.Repo.MarkRead(ctx, id)
}

func fillPlaceholders(text string, payload map[string]string) string {
	for key, value := range payload {
		text = strings.ReplaceAll(text, "{{"+key+"}}", value)
	}
	return text
}
