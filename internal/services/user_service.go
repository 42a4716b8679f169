package services

import (
	"context"
	"fmt"
	"log"
	"strings"

	"alva-backend/internal/config"
	"alva-backend/internal/models"
	"alva-backend/internal/repositories"
)

// UserService handles user business logic
type UserService struct {
	repos    *repositories.Repositories
	referral config.ReferralConfig
}

// NewUserService creates a new user service
func NewUserService(repos *repositories.Repositories, referral config.ReferralConfig) *UserService {
	return &UserService{
		repos:    repos,
		referral: referral,
	}
}

// UpsertUser inserts or refreshes a user from identity-provider claims.
// The first time a user is created the three default referral links are
// provisioned; a failed link is logged and skipped so login never fails
// because of link provisioning.
func (s *UserService) UpsertUser(ctx context.Context, params *models.UpsertUserParams) (*models.User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	user, created, err := s.repos.User.Upsert(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert user: %w", err)
	}

	if created {
		s.provisionDefaultReferralLinks(ctx, user)
	}

	return user, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}
	return user, nil
}

// provisionDefaultReferralLinks creates one referral link per supported
// broker. The exness and binance URLs each embed a freshly generated code,
// unrelated to the user's own referral code; the bybit URL carries the
// configured partner code shared by all users.
func (s *UserService) provisionDefaultReferralLinks(ctx context.Context, user *models.User) {
	links := []struct {
		broker string
		url    string
	}{
		{models.BrokerExness, fmt.Sprintf("https://one.exness.link/a/%s", strings.ToLower(models.GenerateReferralCode()))},
		{models.BrokerBybit, fmt.Sprintf("https://partner.bybit.com/b/%s", s.referral.BybitPartnerCode)},
		{models.BrokerBinance, fmt.Sprintf("https://accounts.binance.com/register?ref=%s", models.GenerateReferralCode())},
	}

	for _, l := range links {
		link := &models.ReferralLink{
			UserID:      user.ID,
			Broker:      l.broker,
			ReferralURL: l.url,
			IsActive:    true,
		}
		if err := s.repos.ReferralLink.Create(ctx, link); err != nil {
			log.Printf("failed to provision %s referral link for user %s: %v", l.broker, user.ID, err)
		}
	}
}
