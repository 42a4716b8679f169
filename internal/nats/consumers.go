package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"alva-backend/internal/repositories"

	"github.com/nats-io/nats.go"
)

// EventConsumer manages event consumption from NATS streams. Inbound
// commission and balance events come from broker bridge processes; events
// tagged with SourceAPI were already applied by the request path and are
// acknowledged without reprocessing.
type EventConsumer struct {
	client *Client
	repos  *repositories.Repositories
	dedup  *eventDedup
	ctx    context.Context
	cancel context.CancelFunc
}

// NewEventConsumer creates a new event consumer
func NewEventConsumer(client *Client, repos *repositories.Repositories) *EventConsumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &EventConsumer{
		client: client,
		repos:  repos,
		dedup:  newEventDedup(maxDedupEntries),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start starts consuming events from all streams
func (ec *EventConsumer) Start() error {
	log.Println("Starting NATS event consumers...")

	if err := ec.startEarningEventConsumer(); err != nil {
		return fmt.Errorf("failed to start earning event consumer: %w", err)
	}

	if err := ec.startLinkEventConsumer(); err != nil {
		return fmt.Errorf("failed to start link event consumer: %w", err)
	}

	if err := ec.startBalanceEventConsumer(); err != nil {
		return fmt.Errorf("failed to start balance event consumer: %w", err)
	}

	log.Println("All NATS event consumers started successfully")
	return nil
}

// Stop stops all event consumers
func (ec *EventConsumer) Stop() {
	log.Println("Stopping NATS event consumers...")
	ec.cancel()
}

// startEarningEventConsumer starts consuming commission events
func (ec *EventConsumer) startEarningEventConsumer() error {
	subject := string(EventEarningCreated)

	_, err := ec.client.QueueSubscribe(subject, "earning-processors", func(msg *nats.Msg) {
		if err := ec.handleEarningEvent(msg); err != nil {
			log.Printf("Error handling earning event: %v", err)
			// Negative acknowledgment will cause redelivery
			msg.Nak()
		} else {
			msg.Ack()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("Subscribed to earning events: %s", subject)

	return nil
}

// startLinkEventConsumer starts consuming link conversion events
func (ec *EventConsumer) startLinkEventConsumer() error {
	subject := string(EventLinkConverted)

	_, err := ec.client.QueueSubscribe(subject, "link-processors", func(msg *nats.Msg) {
		if err := ec.handleLinkConvertedEvent(msg); err != nil {
			log.Printf("Error handling link event: %v", err)
			msg.Nak()
		} else {
			msg.Ack()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("Subscribed to link events: %s", subject)

	return nil
}

// startBalanceEventConsumer starts consuming balance sync events
func (ec *EventConsumer) startBalanceEventConsumer() error {
	subject := string(EventBalanceSynced)

	_, err := ec.client.QueueSubscribe(subject, "balance-processors", func(msg *nats.Msg) {
		if err := ec.handleBalanceEvent(msg); err != nil {
			log.Printf("Error handling balance event: %v", err)
			msg.Nak()
		} else {
			msg.Ack()
		}
	})
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	log.Printf("Subscribed to balance events: %s", subject)

	return nil
}

// handleEarningEvent writes an inbound commission event to the ledger
func (ec *EventConsumer) handleEarningEvent(msg *nats.Msg) error {
	var event EarningEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal earning event: %w", err)
	}

	if event.Source == SourceAPI {
		// Already persisted by the request that published it
		return nil
	}

	if ec.dedup.seen(event.EventID) {
		log.Printf("Skipping duplicate earning event: %s", event.EventID)
		return nil
	}

	log.Printf("Processing earning event: %s - %s %s from %s",
		event.EventID, event.Amount, event.Broker, event.ReferredUserID)

	if err := ec.createEarningFromEvent(&event); err != nil {
		return fmt.Errorf("failed to record earning: %w", err)
	}

	ec.dedup.mark(event.EventID)
	return nil
}

// handleLinkConvertedEvent bumps the conversion counter for an inbound
// conversion reported by a broker bridge
func (ec *EventConsumer) handleLinkConvertedEvent(msg *nats.Msg) error {
	var event LinkEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal link event: %w", err)
	}

	if event.Source == SourceAPI {
		return nil
	}

	if ec.dedup.seen(event.EventID) {
		log.Printf("Skipping duplicate link event: %s", event.EventID)
		return nil
	}

	log.Printf("Processing link conversion event: %s - link %s (%s)",
		event.EventID, event.LinkID, event.Broker)

	if err := ec.repos.ReferralLink.IncrementStats(ec.ctx, event.LinkID, 0, 1); err != nil {
		return fmt.Errorf("failed to increment conversion count: %w", err)
	}

	ec.dedup.mark(event.EventID)
	return nil
}

// handleBalanceEvent applies an inbound balance snapshot to the account
func (ec *EventConsumer) handleBalanceEvent(msg *nats.Msg) error {
	var event BalanceSyncEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		return fmt.Errorf("failed to unmarshal balance event: %w", err)
	}

	if event.Source == SourceAPI {
		return nil
	}

	if ec.dedup.seen(event.EventID) {
		log.Printf("Skipping duplicate balance event: %s", event.EventID)
		return nil
	}

	log.Printf("Processing balance event: account %s -> %s (pnl %s)",
		event.AccountID, event.Balance, event.DailyPnL)

	if err := ec.applyBalanceEvent(&event); err != nil {
		return fmt.Errorf("failed to apply balance event: %w", err)
	}

	ec.dedup.mark(event.EventID)
	return nil
}
