package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetDashboardEmptyUser(t *testing.T) {
	repos := repositories.NewMemoryRepositories()
	svc := NewDashboardService(repos)

	resp := svc.GetDashboard(context.Background(), "nobody")
	require.NotNil(t, resp)

	assert.Equal(t, "0.00", resp.TotalBalance)
	assert.Equal(t, "0.00", resp.DailyPnL)
	assert.Equal(t, "0.00", resp.ReferralEarnings)
	assert.Zero(t, resp.ReferralCount)

	// Sections serialize as [] rather than null
	assert.NotNil(t, resp.TradingAccounts)
	assert.Empty(t, resp.TradingAccounts)
	assert.NotNil(t, resp.RecentReferralEarnings)
	assert.NotNil(t, resp.MasterCopierConnections)
	assert.NotNil(t, resp.ReferralLinks)
}

func TestGetDashboardAggregation(t *testing.T) {
	repos := repositories.NewMemoryRepositories()
	svc := NewDashboardService(repos)
	ctx := context.Background()

	seedTestUser(t, repos, "u1", "dash@example.com")
	seedTestAccount(t, repos, "u1", models.BrokerExness, "EX-1", strPtr("1000.50"), strPtr("-10.25"))
	seedTestAccount(t, repos, "u1", models.BrokerBybit, "BB-1", strPtr("2000.00"), strPtr("5.00"))
	// A connected account with no reported balance counts as zero
	seedTestAccount(t, repos, "u1", models.BrokerBinance, "BN-1", nil, nil)

	paid := &models.ReferralEarning{
		ReferrerID:      "u1",
		ReferredUserID:  "u2",
		Amount:          "75.00",
		Broker:          models.BrokerExness,
		TransactionType: "trading_fee",
		Status:          models.EarningStatusPaid,
	}
	require.NoError(t, repos.ReferralEarning.Create(ctx, paid))

	resp := svc.GetDashboard(ctx, "u1")

	assert.Equal(t, "3000.50", resp.TotalBalance)
	assert.Equal(t, "-5.25", resp.DailyPnL)
	assert.Equal(t, "75.00", resp.ReferralEarnings)
	assert.Equal(t, int64(1), resp.ReferralCount)
	assert.Len(t, resp.TradingAccounts, 3)
	assert.Len(t, resp.RecentReferralEarnings, 1)
}

func TestGetDashboardRecentEarningsCapped(t *testing.T) {
	repos := repositories.NewMemoryRepositories()
	svc := NewDashboardService(repos)
	ctx := context.Background()

	seedTestUser(t, repos, "u1", "cap@example.com")

	base := time.Now().UTC().Add(-time.Hour)
	for i := 0; i < 7; i++ {
		earning := &models.ReferralEarning{
			ReferrerID:      "u1",
			ReferredUserID:  fmt.Sprintf("referred-%d", i),
			Amount:          fmt.Sprintf("%d.00", i),
			Broker:          models.BrokerExness,
			TransactionType: "trading_fee",
			CreatedAt:       base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, repos.ReferralEarning.Create(ctx, earning))
	}

	resp := svc.GetDashboard(ctx, "u1")
	require.Len(t, resp.RecentReferralEarnings, 5)
	assert.Equal(t, "6.00", resp.RecentReferralEarnings[0].Amount, "newest earning comes first")
	assert.Equal(t, "2.00", resp.RecentReferralEarnings[4].Amount)
	assert.Equal(t, int64(7), resp.ReferralCount)
}

func TestSumBalances(t *testing.T) {
	accounts := []*models.TradingAccount{
		{Balance: strPtr("100.10"), DailyPnL: strPtr("1.00")},
		{Balance: strPtr("not-a-number"), DailyPnL: nil},
		{Balance: nil, DailyPnL: strPtr("-0.50")},
	}

	total, pnl := sumBalances(accounts)
	assert.Equal(t, "100.10", total)
	assert.Equal(t, "0.50", pnl)

	total, pnl = sumBalances(nil)
	assert.Equal(t, "0.00", total)
	assert.Equal(t, "0.00", pnl)
}
