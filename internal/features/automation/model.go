package automation

import (
	"strconv"
	"time"

	common_models "go-sitter/internal/common/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RuleType string

const (
	RuleAutoApproval     RuleType = "autoApproval"
	RuleAutoAssignment   RuleType = "autoAssignment"
	RuleAutoCancellation RuleType = "autoCancellation"
	RulePricing          RuleType = "pricing"
	RuleNotification     RuleType = "notification"
	RuleQualityAssurance RuleType = "qualityAssurance"
)

type Operator string

const (
	OperatorEquals             Operator = "equals"
	OperatorNotEquals          Operator = "notEquals"
	OperatorGreaterThan        Operator = "greaterThan"
	OperatorGreaterThanOrEqual Operator = "greaterThanOrEqual"
	OperatorLessThan           Operator = "lessThan"
	OperatorLessThanOrEqual    Operator = "lessThanOrEqual"
	OperatorContains           Operator = "contains"
	OperatorIsNull             Operator = "isNull"
	OperatorIsNotNull          Operator = "isNotNull"
)

type ActionType string

const (
	ActionApproveBooking   ActionType = "approveBooking"
	ActionAssignSitter     ActionType = "assignSitter"
	ActionCancelBooking    ActionType = "cancelBooking"
	ActionAdjustPricing    ActionType = "adjustPricing"
	ActionSendNotification ActionType = "sendNotification"
	ActionCreateFollowUp   ActionType = "createFollowUp"
	ActionRunScript        ActionType = "runScript"
)

// Condition fields form a closed enumeration over the evaluation context.
// Unknown names are rejected when the rule is loaded, not silently defaulted
// at evaluation time.
const (
	FieldBookingStatus           = "bookingStatus"
	FieldServiceType             = "serviceType"
	FieldBookingValue            = "bookingValue"
	FieldDurationMinutes         = "durationMinutes"
	FieldHoursUntilBooking       = "hoursUntilBooking"
	FieldHoursSinceCreated       = "hoursSinceCreated"
	FieldClientCompletedBookings = "clientCompletedBookings"
	FieldClientTotalBookings     = "clientTotalBookings"
	FieldClientAverageRating     = "clientAverageRating"
	FieldAvailableSitterCount    = "availableSitterCount"
	FieldSitterAssigned          = "sitterAssigned"
	FieldIsPeakHour              = "isPeakHour"
	FieldDayOfWeek               = "dayOfWeek"
)

var knownFields = map[string]bool{
	FieldBookingStatus:           true,
	FieldServiceType:             true,
	FieldBookingValue:            true,
	FieldDurationMinutes:         true,
	FieldHoursUntilBooking:       true,
	FieldHoursSinceCreated:       true,
	FieldClientCompletedBookings: true,
	FieldClientTotalBookings:     true,
	FieldClientAverageRating:     true,
	FieldAvailableSitterCount:    true,
	FieldSitterAssigned:          true,
	FieldIsPeakHour:              true,
	FieldDayOfWeek:               true,
}

var knownOperators = map[Operator]bool{
	OperatorEquals:             true,
	OperatorNotEquals:          true,
	OperatorGreaterThan:        true,
	OperatorGreaterThanOrEqual: true,
	OperatorLessThan:           true,
	OperatorLessThanOrEqual:    true,
	OperatorContains:           true,
	OperatorIsNull:             true,
	OperatorIsNotNull:          true,
}

var numericOperators = map[Operator]bool{
	OperatorGreaterThan:        true,
	OperatorGreaterThanOrEqual: true,
	OperatorLessThan:           true,
	OperatorLessThanOrEqual:    true,
}

var knownRuleTypes = map[RuleType]bool{
	RuleAutoApproval:     true,
	RuleAutoAssignment:   true,
	RuleAutoCancellation: true,
	RulePricing:          true,
	RuleNotification:     true,
	RuleQualityAssurance: true,
}

var knownActions = map[ActionType]bool{
	ActionApproveBooking:   true,
	ActionAssignSitter:     true,
	ActionCancelBooking:    true,
	ActionAdjustPricing:    true,
	ActionSendNotification: true,
	ActionCreateFollowUp:   true,
	ActionRunScript:        true,
}

// Condition is a single field/operator/value test. All conditions in a rule
// are combined with AND; there is no OR support.
type Condition struct {
	Field    string   `json:"field" bson:"field"`
	Operator Operator `json:"operator" bson:"operator"`
	Value    string   `json:"value" bson:"value"`
}

// Action executes unconditionally once the owning rule matches. Multiple
// actions per rule execute in list order.
type Action struct {
	Type       ActionType        `json:"type" bson:"type"`
	Parameters map[string]string `json:"parameters" bson:"parameters"`
}

// Rule is immutable once stored except for the enabled flag (and the
// lastModified stamp that goes with flipping it).
type Rule struct {
	ID           primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Name         string             `json:"name" bson:"name"`
	Type         RuleType           `json:"type" bson:"type"`
	Conditions   []Condition        `json:"conditions" bson:"conditions"`
	Actions      []Action           `json:"actions" bson:"actions"`
	Priority     int                `json:"priority" bson:"priority"`
	Enabled      bool               `json:"enabled" bson:"enabled"`
	CreatedAt    time.Time          `json:"createdAt" bson:"created_at"`
	LastModified time.Time          `json:"lastModified" bson:"last_modified"`
}

// Validate rejects malformed definitions at load time: unrecognized rule
// types, field names, operators and action names, and non-numeric literals
// under numeric operators.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return &common_models.ConfigurationError{Rule: r.ID.Hex(), Reason: "name is required"}
	}
	if !knownRuleTypes[r.Type] {
		return &common_models.ConfigurationError{Rule: r.Name, Reason: "unknown rule type " + string(r.Type)}
	}
	if len(r.Actions) == 0 {
		return &common_models.ConfigurationError{Rule: r.Name, Reason: "at least one action is required"}
	}
	for _, cond := range r.Conditions {
		if !knownFields[cond.Field] {
			return &common_models.ConfigurationError{Rule: r.Name, Reason: "unknown condition field " + cond.Field}
		}
		if !knownOperators[cond.Operator] {
			return &common_models.ConfigurationError{Rule: r.Name, Reason: "unknown operator " + string(cond.Operator)}
		}
		if numericOperators[cond.Operator] {
			if _, err := strconv.ParseFloat(cond.Value, 64); err != nil {
				return &common_models.ConfigurationError{
					Rule:   r.Name,
					Reason: "operator " + string(cond.Operator) + " requires a numeric value, got " + strconv.Quote(cond.Value),
				}
			}
		}
	}
	for _, action := range r.Actions {
		if !knownActions[action.Type] {
			return &common_models.ConfigurationError{Rule: r.Name, Reason: "unknown action type " + string(action.Type)}
		}
	}
	return nil
}
