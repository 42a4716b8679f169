package nats

import (
	"fmt"
	"sync"

	"alva-backend/internal/models"
)

// maxDedupEntries caps the in-memory dedup window. JetStream redelivers
// within a bounded interval, so a rolling window is enough; long-range
// duplicates are harmless because the handlers are idempotent.
const maxDedupEntries = 10000

// eventDedup tracks recently processed event ids
type eventDedup struct {
	mu       sync.Mutex
	capacity int
	ids      map[string]struct{}
	order    []string
}

func newEventDedup(capacity int) *eventDedup {
	return &eventDedup{
		capacity: capacity,
		ids:      make(map[string]struct{}, capacity),
		order:    make([]string, 0, capacity),
	}
}

func (d *eventDedup) seen(eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.ids[eventID]
	return ok
}

func (d *eventDedup) mark(eventID string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.ids[eventID]; ok {
		return
	}

	// Evict the oldest id once the window is full
	if len(d.order) >= d.capacity {
		oldest := d.order[0]
		d.order = d.order[1:]
		delete(d.ids, oldest)
	}

	d.ids[eventID] = struct{}{}
	d.order = append(d.order, eventID)
}

// createEarningFromEvent writes a ledger row for an inbound commission
// event. Referrer and referred user must both exist.
func (ec *EventConsumer) createEarningFromEvent(event *EarningEvent) error {
	referrer, err := ec.repos.User.GetByID(ec.ctx, event.UserID)
	if err != nil {
		return fmt.Errorf("failed to look up referrer: %w", err)
	}
	if referrer == nil {
		return fmt.Errorf("referrer %s not found", event.UserID)
	}

	referred, err := ec.repos.User.GetByID(ec.ctx, event.ReferredUserID)
	if err != nil {
		return fmt.Errorf("failed to look up referred user: %w", err)
	}
	if referred == nil {
		return fmt.Errorf("referred user %s not found", event.ReferredUserID)
	}

	status := event.Status
	if status == "" || !models.IsValidEarningStatus(status) {
		status = models.EarningStatusPending
	}

	earning := &models.ReferralEarning{
		ID:              event.EarningID,
		ReferrerID:      referrer.ID,
		ReferredUserID:  referred.ID,
		Amount:          event.Amount,
		FeePercentage:   event.FeePercentage,
		Broker:          event.Broker,
		TransactionType: event.TransactionType,
		Status:          status,
	}

	return ec.repos.ReferralEarning.Create(ec.ctx, earning)
}

// applyBalanceEvent updates the target account after an ownership check
func (ec *EventConsumer) applyBalanceEvent(event *BalanceSyncEvent) error {
	account, err := ec.repos.TradingAccount.GetByID(ec.ctx, event.AccountID)
	if err != nil {
		return fmt.Errorf("failed to look up account: %w", err)
	}
	if account == nil {
		return fmt.Errorf("trading account %s not found", event.AccountID)
	}
	if event.UserID != "" && account.UserID != event.UserID {
		return fmt.Errorf("account %s does not belong to user %s", event.AccountID, event.UserID)
	}

	return ec.repos.TradingAccount.UpdateBalance(ec.ctx, event.AccountID, event.Balance, event.DailyPnL)
}
