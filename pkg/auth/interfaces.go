package auth

import (
	"golang.org/x/oauth2"
)

// JWTManagerInterface defines the interface for JWT operations
type JWTManagerInterface interface {
	GenerateToken(userID, email string) (string, error)
	GenerateTokenPair(userID, email string) (*TokenPair, error)
	ValidateToken(tokenString string) (*Claims, error)
	ValidateRefreshToken(tokenString string) (string, error)
	RefreshToken(refreshToken, email string) (string, error)
}

// OAuthManagerInterface defines the interface for OAuth operations
type OAuthManagerInterface interface {
	GetAuthURL(provider OAuthProvider, state string) (string, error)
	ExchangeCodeForToken(provider OAuthProvider, code string) (*oauth2.Token, error)
	GetUserInfo(provider OAuthProvider, token *oauth2.Token) (*OAuthUser, error)
}
