package services

import (
	"context"
	"fmt"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"
	"alva-backend/pkg/auth"
	"alva-backend/pkg/security"
)

// AuthService handles the OAuth login flow and session token issuance
type AuthService struct {
	repos        *repositories.Repositories
	users        *UserService
	jwtManager   auth.JWTManagerInterface
	oauthManager auth.OAuthManagerInterface
	audit        *security.AuditLogger
}

// NewAuthService creates a new auth service
func NewAuthService(repos *repositories.Repositories, users *UserService, jwtManager auth.JWTManagerInterface, oauthManager auth.OAuthManagerInterface, audit *security.AuditLogger) *AuthService {
	return &AuthService{
		repos:        repos,
		users:        users,
		jwtManager:   jwtManager,
		oauthManager: oauthManager,
		audit:        audit,
	}
}

// LoginResult is the outcome of a completed OAuth callback
type LoginResult struct {
	User   *models.User    `json:"user"`
	Tokens *auth.TokenPair `json:"tokens"`
}

// GetLoginURL generates the provider authorization URL and the CSRF state
// the caller must persist for callback validation.
func (s *AuthService) GetLoginURL(provider auth.OAuthProvider) (string, string, error) {
	state := auth.GenerateState()
	url, err := s.oauthManager.GetAuthURL(provider, state)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate auth URL: %w", err)
	}
	return url, state, nil
}

// HandleCallback completes the OAuth flow: validates state, exchanges the
// code, upserts the user and issues a session token pair. When a foreign
// referral code accompanies the login it is resolved to the referrer and
// recorded (first login only; the repository ignores it afterwards).
func (s *AuthService) HandleCallback(ctx context.Context, provider auth.OAuthProvider, code, state, expectedState string, referralCode string) (*LoginResult, error) {
	if err := auth.ValidateState(expectedState, state); err != nil {
		return nil, fmt.Errorf("invalid OAuth state: %w", err)
	}

	token, err := s.oauthManager.ExchangeCodeForToken(provider, code)
	if err != nil {
		s.audit.LogSecurityEvent(ctx, security.ActionLoginFailed, nil, "", map[string]interface{}{"provider": string(provider)}, err)
		return nil, fmt.Errorf("failed to exchange code: %w", err)
	}

	oauthUser, err := s.oauthManager.GetUserInfo(provider, token)
	if err != nil {
		return nil, fmt.Errorf("failed to get user info: %w", err)
	}

	params := &models.UpsertUserParams{
		ID:    oauthUser.ID,
		Email: oauthUser.Email,
	}
	if oauthUser.FirstName != "" {
		params.FirstName = &oauthUser.FirstName
	}
	if oauthUser.LastName != "" {
		params.LastName = &oauthUser.LastName
	}
	if oauthUser.Avatar != "" {
		params.ProfileImageURL = &oauthUser.Avatar
	}

	if referralCode != "" {
		referrer, err := s.repos.User.GetByReferralCode(ctx, referralCode)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve referral code: %w", err)
		}
		// A user cannot refer themselves; unknown codes are ignored.
		if referrer != nil && referrer.ID != oauthUser.ID {
			params.ReferredBy = &referrer.ID
		}
	}

	user, err := s.users.UpsertUser(ctx, params)
	if err != nil {
		return nil, err
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.audit.LogSecurityEvent(ctx, security.ActionLogin, &user.ID, "", map[string]interface{}{"provider": string(provider)}, nil)

	return &LoginResult{User: user, Tokens: tokens}, nil
}

// RefreshToken exchanges a valid refresh token for a new token pair
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*auth.TokenPair, error) {
	userID, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh token: %w", err)
	}

	user, err := s.repos.User.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return nil, models.ErrUserNotFound
	}

	tokens, err := s.jwtManager.GenerateTokenPair(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tokens: %w", err)
	}

	s.audit.LogSecurityEvent(ctx, security.ActionTokenRefresh, &user.ID, "", nil, nil)

	return tokens, nil
}

// Logout records the logout. Sessions are stateless JWTs, so the server
// side only clears the cookie; there is no token revocation list.
func (s *AuthService) Logout(ctx context.Context, userID string) {
	s.audit.LogSecurityEvent(ctx, security.ActionLogout, &userID, "", nil, nil)
}
