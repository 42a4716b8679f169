package services

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"sync"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"
)

// DashboardService aggregates the user's dashboard in one call
type DashboardService struct {
	repos *repositories.Repositories
}

// NewDashboardService creates a new dashboard service
func NewDashboardService(repos *repositories.Repositories) *DashboardService {
	return &DashboardService{repos: repos}
}

// DashboardResponse is the aggregated dashboard payload
type DashboardResponse struct {
	TotalBalance            string                           `json:"totalBalance"`
	DailyPnL                string                           `json:"dailyPnL"`
	ReferralCount           int64                            `json:"referralCount"`
	ReferralEarnings        string                           `json:"referralEarnings"`
	TradingAccounts         []*models.TradingAccount         `json:"tradingAccounts"`
	RecentReferralEarnings  []*models.ReferralEarning        `json:"recentReferralEarnings"`
	MasterCopierConnections []*models.MasterCopierConnection `json:"masterCopierConnections"`
	ReferralLinks           []*models.ReferralLink           `json:"referralLinks"`
}

// GetDashboard fans out the dashboard reads concurrently. A failed read
// degrades to an empty section (logged) rather than failing the whole
// dashboard.
func (s *DashboardService) GetDashboard(ctx context.Context, userID string) *DashboardResponse {
	var (
		wg       sync.WaitGroup
		accounts []*models.TradingAccount
		earnings []*models.ReferralEarning
		copiers  []*models.MasterCopierConnection
		links    []*models.ReferralLink
		total    string
		count    int64
	)

	wg.Add(6)

	go func() {
		defer wg.Done()
		var err error
		if accounts, err = s.repos.TradingAccount.GetByUserID(ctx, userID); err != nil {
			log.Printf("dashboard: failed to load trading accounts for %s: %v", userID, err)
			accounts = nil
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		if earnings, err = s.repos.ReferralEarning.GetByReferrerID(ctx, userID); err != nil {
			log.Printf("dashboard: failed to load referral earnings for %s: %v", userID, err)
			earnings = nil
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		if copiers, err = s.repos.Copier.GetByUserID(ctx, userID); err != nil {
			log.Printf("dashboard: failed to load copier connections for %s: %v", userID, err)
			copiers = nil
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		if links, err = s.repos.ReferralLink.GetByUserID(ctx, userID); err != nil {
			log.Printf("dashboard: failed to load referral links for %s: %v", userID, err)
			links = nil
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		if total, err = s.repos.ReferralEarning.TotalPaid(ctx, userID); err != nil {
			log.Printf("dashboard: failed to compute referral earnings for %s: %v", userID, err)
			total = "0.00"
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		if count, err = s.repos.ReferralEarning.CountDistinctReferred(ctx, userID); err != nil {
			log.Printf("dashboard: failed to count referrals for %s: %v", userID, err)
			count = 0
		}
	}()

	wg.Wait()

	totalBalance, dailyPnL := sumBalances(accounts)

	recent := earnings
	if len(recent) > 5 {
		recent = recent[:5]
	}

	if accounts == nil {
		accounts = []*models.TradingAccount{}
	}
	if recent == nil {
		recent = []*models.ReferralEarning{}
	}
	if copiers == nil {
		copiers = []*models.MasterCopierConnection{}
	}
	if links == nil {
		links = []*models.ReferralLink{}
	}

	return &DashboardResponse{
		TotalBalance:            totalBalance,
		DailyPnL:                dailyPnL,
		ReferralCount:           count,
		ReferralEarnings:        total,
		TradingAccounts:         accounts,
		RecentReferralEarnings:  recent,
		MasterCopierConnections: copiers,
		ReferralLinks:           links,
	}
}

// sumBalances folds the decimal-as-text balance fields into "%.2f" totals.
// A missing or unparseable field counts as zero.
func sumBalances(accounts []*models.TradingAccount) (string, string) {
	var totalBalance, dailyPnL float64
	for _, account := range accounts {
		if account.Balance != nil {
			if v, err := strconv.ParseFloat(*account.Balance, 64); err == nil {
				totalBalance += v
			}
		}
		if account.DailyPnL != nil {
			if v, err := strconv.ParseFloat(*account.DailyPnL, 64); err == nil {
				dailyPnL += v
			}
		}
	}
	return fmt.Sprintf("%.2f", totalBalance), fmt.Sprintf("%.2f", dailyPnL)
}
