package nats

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBaseEvent(t *testing.T) {
	event := NewBaseEvent(EventLinkClicked, "user-1", SourceAPI)

	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, EventLinkClicked, event.EventType)
	assert.Equal(t, "user-1", event.UserID)
	assert.Equal(t, SourceAPI, event.Source)
	assert.Equal(t, "1.0", event.Version)
	assert.False(t, event.Timestamp.IsZero())
}

func TestEarningEventRoundTrip(t *testing.T) {
	event := NewEarningEvent("referrer-1", SourceBridge)
	event.EarningID = uuid.New()
	event.ReferredUserID = "referred-1"
	event.Amount = "42.00"
	event.Broker = "exness"
	event.TransactionType = "trading_fee"
	event.Status = "paid"

	data, err := MarshalEvent(event)
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data, EventEarningCreated)
	require.NoError(t, err)

	earning, ok := decoded.(*EarningEvent)
	require.True(t, ok)
	assert.Equal(t, event.EventID, earning.EventID)
	assert.Equal(t, event.EarningID, earning.EarningID)
	assert.Equal(t, "42.00", earning.Amount)
	assert.Equal(t, SourceBridge, earning.Source)
}

func TestLinkEventRoundTrip(t *testing.T) {
	linkID := uuid.New()
	event := NewLinkEvent(EventLinkConverted, "user-1", SourceBridge, linkID, "bybit")

	data, err := MarshalEvent(event)
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data, EventLinkConverted)
	require.NoError(t, err)

	link, ok := decoded.(*LinkEvent)
	require.True(t, ok)
	assert.Equal(t, linkID, link.LinkID)
	assert.Equal(t, "bybit", link.Broker)
	assert.Equal(t, EventLinkConverted, link.EventType)
}

func TestBalanceSyncEventRoundTrip(t *testing.T) {
	accountID := uuid.New()
	event := NewBalanceSyncEvent("user-1", SourceAPI, accountID, "999.99", "-1.25")

	data, err := MarshalEvent(event)
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data, EventBalanceSynced)
	require.NoError(t, err)

	balance, ok := decoded.(*BalanceSyncEvent)
	require.True(t, ok)
	assert.Equal(t, accountID, balance.AccountID)
	assert.Equal(t, "999.99", balance.Balance)
	assert.Equal(t, "-1.25", balance.DailyPnL)
}

func TestUnmarshalEventUnknownTypeFallsBack(t *testing.T) {
	event := NewBaseEvent("something.else", "user-1", SourceBridge)
	data, err := MarshalEvent(event)
	require.NoError(t, err)

	decoded, err := UnmarshalEvent(data, "something.else")
	require.NoError(t, err)

	base, ok := decoded.(*BaseEvent)
	require.True(t, ok)
	assert.Equal(t, event.EventID, base.EventID)
}

func TestGetSubject(t *testing.T) {
	assert.Equal(t, "referral.commission.created", GetSubject(EventEarningCreated))
	assert.Equal(t, "referral.link.clicked", GetSubject(EventLinkClicked))
	assert.Equal(t, "referral.link.converted", GetSubject(EventLinkConverted))
	assert.Equal(t, "account.balance.synced", GetSubject(EventBalanceSynced))
}

func TestValidateEvent(t *testing.T) {
	earning := NewEarningEvent("referrer-1", SourceBridge)
	earning.EarningID = uuid.New()
	earning.ReferredUserID = "referred-1"
	earning.Amount = "1.00"
	earning.Broker = "exness"
	assert.NoError(t, ValidateEvent(earning))

	earning.Amount = ""
	assert.Error(t, ValidateEvent(earning))

	link := NewLinkEvent(EventLinkClicked, "user-1", SourceAPI, uuid.New(), "bybit")
	assert.NoError(t, ValidateEvent(link))

	link.LinkID = uuid.Nil
	assert.Error(t, ValidateEvent(link))

	balance := NewBalanceSyncEvent("user-1", SourceAPI, uuid.New(), "1.00", "0.00")
	assert.NoError(t, ValidateEvent(balance))

	balance.Balance = ""
	assert.Error(t, ValidateEvent(balance))

	assert.Error(t, ValidateEvent("not an event"))
}

func TestEventDedup(t *testing.T) {
	dedup := newEventDedup(16)

	assert.False(t, dedup.seen("a"))
	dedup.mark("a")
	assert.True(t, dedup.seen("a"))

	// Marking twice does not grow the window
	dedup.mark("a")
	assert.Len(t, dedup.order, 1)
}

func TestEventDedupEviction(t *testing.T) {
	// Eviction honors the constructed capacity, not the package default
	const capacity = 4
	dedup := newEventDedup(capacity)

	for i := 0; i < capacity; i++ {
		dedup.mark(fmt.Sprintf("event-%d", i))
	}
	assert.True(t, dedup.seen("event-0"))

	// One more entry evicts the oldest id
	dedup.mark("overflow")
	assert.False(t, dedup.seen("event-0"))
	assert.True(t, dedup.seen("event-1"))
	assert.True(t, dedup.seen("overflow"))
	assert.Len(t, dedup.order, capacity)
}
