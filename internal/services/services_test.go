package services

import (
	"context"
	"testing"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

// capturingPublisher records published events for assertions.
type capturingPublisher struct {
	balanceSyncs []uuid.UUID
	earnings     []*models.ReferralEarning
	clicks       []uuid.UUID
	conversions  []uuid.UUID
}

func (p *capturingPublisher) PublishBalanceSynced(ctx context.Context, userID string, accountID uuid.UUID, balance, dailyPnL string) error {
	p.balanceSyncs = append(p.balanceSyncs, accountID)
	return nil
}

func (p *capturingPublisher) PublishEarningCreated(ctx context.Context, earning *models.ReferralEarning) error {
	p.earnings = append(p.earnings, earning)
	return nil
}

func (p *capturingPublisher) PublishLinkClicked(ctx context.Context, linkID uuid.UUID, userID, broker string) error {
	p.clicks = append(p.clicks, linkID)
	return nil
}

func (p *capturingPublisher) PublishLinkConverted(ctx context.Context, linkID uuid.UUID, userID, broker string) error {
	p.conversions = append(p.conversions, linkID)
	return nil
}

func seedTestUser(t *testing.T, repos *repositories.Repositories, id, email string) *models.User {
	t.Helper()

	user, _, err := repos.User.Upsert(context.Background(), &models.UpsertUserParams{
		ID:    id,
		Email: email,
	})
	require.NoError(t, err)
	return user
}

func seedTestAccount(t *testing.T, repos *repositories.Repositories, userID, broker, accountID string, balance, dailyPnL *string) *models.TradingAccount {
	t.Helper()

	account := &models.TradingAccount{
		UserID:    userID,
		Broker:    broker,
		AccountID: accountID,
		Balance:   balance,
		DailyPnL:  dailyPnL,
	}
	require.NoError(t, repos.TradingAccount.Create(context.Background(), account))
	return account
}

func strPtr(s string) *string {
	return &s
}
