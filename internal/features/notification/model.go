package notification

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// TemplateKind selects the message template for an outgoing notification.
type TemplateKind string

const (
	TemplateBookingApproved  TemplateKind = "bookingApproved"
	TemplateBookingCancelled TemplateKind = "bookingCancelled"
	TemplateWaitlistPromoted TemplateKind = "waitlistPromoted"
	TemplatePriceAdjusted    TemplateKind = "priceAdjusted"
	TemplateFollowUp         TemplateKind = "followUp"
	TemplateGeneral          TemplateKind = "general"
)

type Notification struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ClientID  string             `bson:"client_id" json:"client_id"`
	Kind      TemplateKind       `bson:"kind" json:"kind"`
	Title     string             `bson:"title" json:"title"`
	Message   string             `bson:"message" json:"message"`
	IsRead    bool               `bson:"is_read" json:"is_read"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	ReadAt    *time.Time         `bson:"read_at,omitempty" json:"read_at,omitempty"`
}
