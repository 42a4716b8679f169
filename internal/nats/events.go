package nats

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents the type of domain event
type EventType string

const (
	// Referral events
	EventEarningCreated EventType = "referral.commission.created"
	EventLinkClicked    EventType = "referral.link.clicked"
	EventLinkConverted  EventType = "referral.link.converted"

	// Account events
	EventBalanceSynced EventType = "account.balance.synced"
)

// Event sources. Events originating from this service's own API are
// tagged SourceAPI so consumers can skip work the request path already did.
const (
	SourceAPI    = "api"
	SourceBridge = "broker-bridge"
)

// BaseEvent represents the common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType EventType `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
	UserID    string    `json:"user_id"`
	Source    string    `json:"source"`
	Version   string    `json:"version"`
}

// EarningEvent carries one commission ledger entry. Inbound copies from
// broker bridges are written to the ledger by the consumer.
type EarningEvent struct {
	BaseEvent
	EarningID       uuid.UUID `json:"earning_id"`
	ReferredUserID  string    `json:"referred_user_id"`
	Amount          string    `json:"amount"`
	FeePercentage   *string   `json:"fee_percentage,omitempty"`
	Broker          string    `json:"broker"`
	TransactionType string    `json:"transaction_type"`
	Status          string    `json:"status"`
}

// LinkEvent represents a referral link click or conversion
type LinkEvent struct {
	BaseEvent
	LinkID uuid.UUID `json:"link_id"`
	Broker string    `json:"broker"`
}

// BalanceSyncEvent carries a balance snapshot for one trading account.
// Balance and daily P&L stay decimal-as-text end to end.
type BalanceSyncEvent struct {
	BaseEvent
	AccountID uuid.UUID `json:"account_id"`
	Balance   string    `json:"balance"`
	DailyPnL  string    `json:"daily_pnl"`
}

// NewBaseEvent creates a new base event with common fields
func NewBaseEvent(eventType EventType, userID, source string) BaseEvent {
	return BaseEvent{
		EventID:   uuid.New().String(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
		UserID:    userID,
		Source:    source,
		Version:   "1.0",
	}
}

// NewEarningEvent creates a new commission event
func NewEarningEvent(userID, source string) *EarningEvent {
	return &EarningEvent{
		BaseEvent: NewBaseEvent(EventEarningCreated, userID, source),
	}
}

// NewLinkEvent creates a new link click or conversion event
func NewLinkEvent(eventType EventType, userID, source string, linkID uuid.UUID, broker string) *LinkEvent {
	return &LinkEvent{
		BaseEvent: NewBaseEvent(eventType, userID, source),
		LinkID:    linkID,
		Broker:    broker,
	}
}

// NewBalanceSyncEvent creates a new balance sync event
func NewBalanceSyncEvent(userID, source string, accountID uuid.UUID, balance, dailyPnL string) *BalanceSyncEvent {
	return &BalanceSyncEvent{
		BaseEvent: NewBaseEvent(EventBalanceSynced, userID, source),
		AccountID: accountID,
		Balance:   balance,
		DailyPnL:  dailyPnL,
	}
}

// MarshalEvent marshals an event to JSON
func MarshalEvent(event interface{}) ([]byte, error) {
	return json.Marshal(event)
}

// UnmarshalEvent unmarshals JSON data to the appropriate event type
func UnmarshalEvent(data []byte, eventType EventType) (interface{}, error) {
	switch eventType {
	case EventEarningCreated:
		var event EarningEvent
		err := json.Unmarshal(data, &event)
		return &event, err

	case EventLinkClicked, EventLinkConverted:
		var event LinkEvent
		err := json.Unmarshal(data, &event)
		return &event, err

	case EventBalanceSynced:
		var event BalanceSyncEvent
		err := json.Unmarshal(data, &event)
		return &event, err

	default:
		var event BaseEvent
		err := json.Unmarshal(data, &event)
		return &event, err
	}
}

// GetSubject returns the NATS subject for an event type
func GetSubject(eventType EventType) string {
	return string(eventType)
}

// ValidateEvent performs basic validation on an event
func ValidateEvent(event interface{}) error {
	switch e := event.(type) {
	case *EarningEvent:
		if e.EventID == "" || e.UserID == "" || e.ReferredUserID == "" || e.Amount == "" || e.Broker == "" {
			return fmt.Errorf("missing required fields in EarningEvent")
		}
	case *LinkEvent:
		if e.EventID == "" || e.LinkID == uuid.Nil || e.Broker == "" {
			return fmt.Errorf("missing required fields in LinkEvent")
		}
	case *BalanceSyncEvent:
		if e.EventID == "" || e.UserID == "" || e.AccountID == uuid.Nil || e.Balance == "" {
			return fmt.Errorf("missing required fields in BalanceSyncEvent")
		}
	default:
		return fmt.Errorf("unknown event type")
	}
	return nil
}
