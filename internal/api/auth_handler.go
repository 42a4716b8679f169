package api

import (
	"log"
	"net/http"

	"alva-backend/internal/middleware"
	"alva-backend/internal/services"
	"alva-backend/pkg/auth"

	"github.com/gin-gonic/gin"
)

// Transient cookies carrying OAuth flow state between /login and /callback
const (
	stateCookie    = "alva_oauth_state"
	providerCookie = "alva_oauth_provider"
	refCookie      = "alva_oauth_ref"
	refreshCookie  = "alva_refresh"

	oauthCookieMaxAge = 600 // seconds; the flow should finish well within this
)

// AuthHandler handles the OIDC login flow and session endpoints
type AuthHandler struct {
	authService   *services.AuthService
	cookieName    string
	cookieMaxAge  int
	refreshMaxAge int
	secureCookies bool
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService *services.AuthService, cookieName string, cookieMaxAge, refreshMaxAge int, secureCookies bool) *AuthHandler {
	return &AuthHandler{
		authService:   authService,
		cookieName:    cookieName,
		cookieMaxAge:  cookieMaxAge,
		refreshMaxAge: refreshMaxAge,
		secureCookies: secureCookies,
	}
}

// Login redirects the browser to the identity provider. An optional ?ref=
// referral code survives the round trip in a short-lived cookie so the
// callback can attribute the signup.
func (h *AuthHandler) Login(c *gin.Context) {
	provider := parseProvider(c.Query("provider"))

	url, state, err := h.authService.GetLoginURL(provider)
	if err != nil {
		respondError(c, http.StatusBadRequest, "Unsupported login provider")
		return
	}

	c.SetCookie(stateCookie, state, oauthCookieMaxAge, "/", "", h.secureCookies, true)
	c.SetCookie(providerCookie, string(provider), oauthCookieMaxAge, "/", "", h.secureCookies, true)
	if ref := c.Query("ref"); ref != "" {
		c.SetCookie(refCookie, ref, oauthCookieMaxAge, "/", "", h.secureCookies, true)
	}

	c.Redirect(http.StatusTemporaryRedirect, url)
}

// Callback completes the OIDC flow, establishes the session cookie and
// sends the browser back to the dashboard
func (h *AuthHandler) Callback(c *gin.Context) {
	code := c.Query("code")
	state := c.Query("state")
	if code == "" || state == "" {
		respondError(c, http.StatusBadRequest, "Missing code or state")
		return
	}

	expectedState, err := c.Cookie(stateCookie)
	if err != nil || expectedState == "" {
		respondError(c, http.StatusBadRequest, "Missing login state")
		return
	}

	provider := auth.ProviderGoogle
	if p, err := c.Cookie(providerCookie); err == nil {
		provider = parseProvider(p)
	}

	referralCode := ""
	if ref, err := c.Cookie(refCookie); err == nil {
		referralCode = ref
	}

	result, err := h.authService.HandleCallback(c.Request.Context(), provider, code, state, expectedState, referralCode)
	if err != nil {
		log.Printf("OAuth callback failed: %v", err)
		respondError(c, http.StatusUnauthorized, "Login failed")
		return
	}

	// Flow cookies are single use
	c.SetCookie(stateCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(providerCookie, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(refCookie, "", -1, "/", "", h.secureCookies, true)

	c.SetCookie(h.cookieName, result.Tokens.AccessToken, h.cookieMaxAge, "/", "", h.secureCookies, true)
	c.SetCookie(refreshCookie, result.Tokens.RefreshToken, h.refreshMaxAge, "/api/auth", "", h.secureCookies, true)

	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// Logout clears the session cookies and sends the browser home
func (h *AuthHandler) Logout(c *gin.Context) {
	if userID, ok := middleware.GetUserID(c); ok {
		h.authService.Logout(c.Request.Context(), userID)
	}

	c.SetCookie(h.cookieName, "", -1, "/", "", h.secureCookies, true)
	c.SetCookie(refreshCookie, "", -1, "/api/auth", "", h.secureCookies, true)

	c.Redirect(http.StatusTemporaryRedirect, "/")
}

// refreshRequest is the optional JSON body for /api/auth/refresh; the
// refresh cookie is used when the body is absent
type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// Refresh exchanges a refresh token for a new session token pair
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)

	refreshToken := req.RefreshToken
	if refreshToken == "" {
		if cookie, err := c.Cookie(refreshCookie); err == nil {
			refreshToken = cookie
		}
	}
	if refreshToken == "" {
		respondError(c, http.StatusBadRequest, "Missing refresh token")
		return
	}

	tokens, err := h.authService.RefreshToken(c.Request.Context(), refreshToken)
	if err != nil {
		respondError(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	c.SetCookie(h.cookieName, tokens.AccessToken, h.cookieMaxAge, "/", "", h.secureCookies, true)
	c.SetCookie(refreshCookie, tokens.RefreshToken, h.refreshMaxAge, "/api/auth", "", h.secureCookies, true)

	c.JSON(http.StatusOK, tokens)
}

// parseProvider maps the query value to a known provider, defaulting to
// google
func parseProvider(value string) auth.OAuthProvider {
	if value == string(auth.ProviderOIDC) {
		return auth.ProviderOIDC
	}
	return auth.ProviderGoogle
}
