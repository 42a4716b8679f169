package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// OAuthProvider represents different OAuth providers
type OAuthProvider string

const (
	ProviderGoogle OAuthProvider = "google"
	ProviderOIDC   OAuthProvider = "oidc"
)

// OAuthUser represents user information from an OAuth provider
type OAuthUser struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Avatar    string `json:"avatar"`
	Provider  string `json:"provider"`
}

// GoogleUser represents Google OAuth user response
type GoogleUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

// OIDCUserInfo represents the standard userinfo response of an OpenID
// Connect issuer.
type OIDCUserInfo struct {
	Subject    string `json:"sub"`
	Email      string `json:"email"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
}

// oidcDiscovery is the subset of the issuer's discovery document the
// manager needs.
type oidcDiscovery struct {
	AuthorizationEndpoint string `json:"authorization_endpoint"`
	TokenEndpoint         string `json:"token_endpoint"`
	UserInfoEndpoint      string `json:"userinfo_endpoint"`
}

// OAuthConfig represents OAuth configuration
type OAuthConfig struct {
	Google GoogleOAuthConfig
	OIDC   OIDCOAuthConfig
}

// GoogleOAuthConfig represents Google OAuth configuration
type GoogleOAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	config       *oauth2.Config
}

// OIDCOAuthConfig represents a generic OpenID Connect issuer configuration.
// Endpoints are discovered from the issuer's well-known document on first
// use.
type OIDCOAuthConfig struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
	config       *oauth2.Config
	userInfoURL  string
}

// OAuthManager manages OAuth operations
type OAuthManager struct {
	google GoogleOAuthConfig
	oidc   OIDCOAuthConfig
	client *http.Client
}

// NewOAuthManager creates a new OAuth manager
func NewOAuthManager(config OAuthConfig) *OAuthManager {
	manager := &OAuthManager{
		google: config.Google,
		oidc:   config.OIDC,
		client: &http.Client{Timeout: 10 * time.Second},
	}

	// Initialize Google OAuth config
	manager.google.config = &oauth2.Config{
		ClientID:     config.Google.ClientID,
		ClientSecret: config.Google.ClientSecret,
		RedirectURL:  config.Google.RedirectURL,
		Scopes: []string{
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}

	return manager
}

// GetAuthURL generates OAuth authorization URL
func (om *OAuthManager) GetAuthURL(provider OAuthProvider, state string) (string, error) {
	switch provider {
	case ProviderGoogle:
		return om.google.config.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
	case ProviderOIDC:
		cfg, err := om.oidcConfig()
		if err != nil {
			return "", err
		}
		return cfg.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
	default:
		return "", fmt.Errorf("unsupported OAuth provider: %s", provider)
	}
}

// ExchangeCodeForToken exchanges authorization code for access token
func (om *OAuthManager) ExchangeCodeForToken(provider OAuthProvider, code string) (*oauth2.Token, error) {
	ctx := context.Background()

	switch provider {
	case ProviderGoogle:
		return om.google.config.Exchange(ctx, code)
	case ProviderOIDC:
		cfg, err := om.oidcConfig()
		if err != nil {
			return nil, err
		}
		return cfg.Exchange(ctx, code)
	default:
		return nil, fmt.Errorf("unsupported OAuth provider: %s", provider)
	}
}

// GetUserInfo retrieves user information using access token
func (om *OAuthManager) GetUserInfo(provider OAuthProvider, token *oauth2.Token) (*OAuthUser, error) {
	switch provider {
	case ProviderGoogle:
		return om.getGoogleUserInfo(token)
	case ProviderOIDC:
		return om.getOIDCUserInfo(token)
	default:
		return nil, fmt.Errorf("unsupported OAuth provider: %s", provider)
	}
}

// getGoogleUserInfo retrieves Google user information
func (om *OAuthManager) getGoogleUserInfo(token *oauth2.Token) (*OAuthUser, error) {
	ctx := context.Background()
	client := om.google.config.Client(ctx, token)

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to get Google user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Google API returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read Google user info response: %w", err)
	}

	var googleUser GoogleUser
	if err := json.Unmarshal(body, &googleUser); err != nil {
		return nil, fmt.Errorf("failed to parse Google user info: %w", err)
	}

	// Validate required fields
	if googleUser.ID == "" || googleUser.Email == "" {
		return nil, errors.New("incomplete Google user information")
	}

	return &OAuthUser{
		ID:        googleUser.ID,
		Email:     googleUser.Email,
		FirstName: googleUser.GivenName,
		LastName:  googleUser.FamilyName,
		Avatar:    googleUser.Picture,
		Provider:  string(ProviderGoogle),
	}, nil
}

// oidcConfig lazily discovers the issuer's endpoints and builds the oauth2
// config for the generic OIDC provider.
func (om *OAuthManager) oidcConfig() (*oauth2.Config, error) {
	if om.oidc.config != nil {
		return om.oidc.config, nil
	}

	if om.oidc.IssuerURL == "" {
		return nil, errors.New("OIDC issuer URL is not configured")
	}

	discoveryURL := strings.TrimSuffix(om.oidc.IssuerURL, "/") + "/.well-known/openid-configuration"
	resp, err := om.client.Get(discoveryURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OIDC discovery document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC discovery returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OIDC discovery response: %w", err)
	}

	var discovery oidcDiscovery
	if err := json.Unmarshal(body, &discovery); err != nil {
		return nil, fmt.Errorf("failed to parse OIDC discovery response: %w", err)
	}

	if discovery.AuthorizationEndpoint == "" || discovery.TokenEndpoint == "" {
		return nil, errors.New("incomplete OIDC discovery document")
	}

	om.oidc.config = &oauth2.Config{
		ClientID:     om.oidc.ClientID,
		ClientSecret: om.oidc.ClientSecret,
		RedirectURL:  om.oidc.RedirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint: oauth2.Endpoint{
			AuthURL:  discovery.AuthorizationEndpoint,
			TokenURL: discovery.TokenEndpoint,
		},
	}
	om.oidc.userInfoURL = discovery.UserInfoEndpoint

	return om.oidc.config, nil
}

// getOIDCUserInfo retrieves user information from the issuer's userinfo
// endpoint
func (om *OAuthManager) getOIDCUserInfo(token *oauth2.Token) (*OAuthUser, error) {
	cfg, err := om.oidcConfig()
	if err != nil {
		return nil, err
	}
	if om.oidc.userInfoURL == "" {
		return nil, errors.New("OIDC issuer does not expose a userinfo endpoint")
	}

	ctx := context.Background()
	client := cfg.Client(ctx, token)

	resp, err := client.Get(om.oidc.userInfoURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get OIDC user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OIDC userinfo returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read OIDC user info response: %w", err)
	}

	var info OIDCUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("failed to parse OIDC user info: %w", err)
	}

	// Validate required fields
	if info.Subject == "" {
		return nil, errors.New("incomplete OIDC user information")
	}

	return &OAuthUser{
		ID:        info.Subject,
		Email:     info.Email,
		FirstName: info.GivenName,
		LastName:  info.FamilyName,
		Avatar:    info.Picture,
		Provider:  string(ProviderOIDC),
	}, nil
}

// ValidateState validates OAuth state parameter to prevent CSRF attacks
func ValidateState(expectedState, actualState string) error {
	if expectedState == "" {
		return errors.New("expected state is empty")
	}
	if actualState == "" {
		return errors.New("actual state is empty")
	}
	if expectedState != actualState {
		return errors.New("state parameter mismatch")
	}
	return nil
}

// GenerateState generates a random state parameter for OAuth
func GenerateState() string {
	return strings.ReplaceAll(uuid.New().String(), "-", "")
}
