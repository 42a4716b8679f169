package services

import (
	"context"

	"alva-backend/internal/models"

	"github.com/google/uuid"
)

// EventPublisher publishes domain events to the message bus. Services hold
// it as an interface so the server runs unchanged when NATS is disabled
// (a nil publisher skips publishing).
type EventPublisher interface {
	PublishBalanceSynced(ctx context.Context, userID string, accountID uuid.UUID, balance, dailyPnL string) error
	PublishEarningCreated(ctx context.Context, earning *models.ReferralEarning) error
	PublishLinkClicked(ctx context.Context, linkID uuid.UUID, userID, broker string) error
	PublishLinkConverted(ctx context.Context, linkID uuid.UUID, userID, broker string) error
}
