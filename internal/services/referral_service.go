package services

import (
	"context"
	"fmt"
	"log"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"

	"github.com/google/uuid"
)

// ReferralService handles referral earnings, stats and link tracking
type ReferralService struct {
	repos  *repositories.Repositories
	events EventPublisher
}

// NewReferralService creates a new referral service
func NewReferralService(repos *repositories.Repositories, events EventPublisher) *ReferralService {
	return &ReferralService{
		repos:  repos,
		events: events,
	}
}

// ReferralStats summarizes a user's referral program standing
type ReferralStats struct {
	ReferralCode  string `json:"referralCode"`
	TotalEarnings string `json:"totalEarnings"`
	ReferralCount int64  `json:"referralCount"`
}

// GetEarnings returns the user's earnings ledger, newest first
func (s *ReferralService) GetEarnings(ctx context.Context, userID string) ([]*models.ReferralEarning, error) {
	earnings, err := s.repos.ReferralEarning.GetByReferrerID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral earnings: %w", err)
	}
	return earnings, nil
}

// CreateEarning records a commission event with the caller as referrer
func (s *ReferralService) CreateEarning(ctx context.Context, referrerID string, req *models.CreateReferralEarningRequest) (*models.ReferralEarning, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	earning := &models.ReferralEarning{
		ReferrerID:      referrerID,
		ReferredUserID:  req.ReferredUserID,
		Amount:          req.Amount,
		FeePercentage:   req.FeePercentage,
		Broker:          req.Broker,
		TransactionType: req.TransactionType,
	}
	if req.Status != nil {
		earning.Status = *req.Status
	}

	if err := s.repos.ReferralEarning.Create(ctx, earning); err != nil {
		return nil, fmt.Errorf("failed to create referral earning: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishEarningCreated(ctx, earning); err != nil {
			log.Printf("failed to publish earning event %s: %v", earning.ID, err)
		}
	}

	return earning, nil
}

// GetStats computes the user's referral summary: total paid-out earnings
// and the number of distinct referred users
func (s *ReferralService) GetStats(ctx context.Context, userID string) (*ReferralStats, error) {
	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	total, err := s.repos.ReferralEarning.TotalPaid(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to compute total earnings: %w", err)
	}

	count, err := s.repos.ReferralEarning.CountDistinctReferred(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count referred users: %w", err)
	}

	return &ReferralStats{
		ReferralCode:  user.ReferralCode,
		TotalEarnings: total,
		ReferralCount: count,
	}, nil
}

// GetLinks returns the user's referral links ordered by broker
func (s *ReferralService) GetLinks(ctx context.Context, userID string) ([]*models.ReferralLink, error) {
	links, err := s.repos.ReferralLink.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list referral links: %w", err)
	}
	return links, nil
}

// GetLinkByBroker returns the user's link for one broker
func (s *ReferralService) GetLinkByBroker(ctx context.Context, userID, broker string) (*models.ReferralLink, error) {
	if !models.IsValidBroker(broker) {
		return nil, models.ErrReferralLinkNotFound
	}

	link, err := s.repos.ReferralLink.GetByUserAndBroker(ctx, userID, broker)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	if link == nil {
		return nil, models.ErrReferralLinkNotFound
	}
	return link, nil
}

// CreateLink creates an additional referral link for a broker the user
// does not have one for yet
func (s *ReferralService) CreateLink(ctx context.Context, userID string, req *models.CreateReferralLinkRequest) (*models.ReferralLink, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	link := &models.ReferralLink{
		UserID:      userID,
		Broker:      req.Broker,
		ReferralURL: req.ReferralURL,
		IsActive:    true,
	}

	if err := s.repos.ReferralLink.Create(ctx, link); err != nil {
		if err == models.ErrReferralLinkExists || isUniqueConstraintViolation(err) {
			return nil, models.ErrReferralLinkExists
		}
		return nil, fmt.Errorf("failed to create referral link: %w", err)
	}

	return link, nil
}

// TrackClick increments a link's click counter and returns the link.
// Called from the public unauthenticated endpoint, so the link id is the
// only input trusted.
func (s *ReferralService) TrackClick(ctx context.Context, linkID uuid.UUID) (*models.ReferralLink, error) {
	link, err := s.repos.ReferralLink.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	if link == nil {
		return nil, models.ErrReferralLinkNotFound
	}

	if err := s.repos.ReferralLink.IncrementStats(ctx, linkID, 1, 0); err != nil {
		return nil, fmt.Errorf("failed to record click: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishLinkClicked(ctx, linkID, link.UserID, link.Broker); err != nil {
			log.Printf("failed to publish click event for link %s: %v", linkID, err)
		}
	}

	return link, nil
}

// TrackConversion increments a link's conversion counter and returns the
// link
func (s *ReferralService) TrackConversion(ctx context.Context, linkID uuid.UUID) (*models.ReferralLink, error) {
	link, err := s.repos.ReferralLink.GetByID(ctx, linkID)
	if err != nil {
		return nil, fmt.Errorf("failed to get referral link: %w", err)
	}
	if link == nil {
		return nil, models.ErrReferralLinkNotFound
	}

	if err := s.repos.ReferralLink.IncrementStats(ctx, linkID, 0, 1); err != nil {
		return nil, fmt.Errorf("failed to record conversion: %w", err)
	}

	if s.events != nil {
		if err := s.events.PublishLinkConverted(ctx, linkID, link.UserID, link.Broker); err != nil {
			log.Printf("failed to publish conversion event for link %s: %v", linkID, err)
		}
	}

	return link, nil
}
