package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"alva-backend/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// SecurityMiddleware bundles audit logging, redis-backed rate limiting and
// basic threat detection. Both dependencies are optional: a nil database
// disables audit persistence and a nil redis client disables the shared
// limiter.
type SecurityMiddleware struct {
	rateLimiter *security.RateLimiter
	auditLogger *security.AuditLogger
}

// NewSecurityMiddleware creates a new security middleware
func NewSecurityMiddleware(db *gorm.DB, redisClient *redis.Client) *SecurityMiddleware {
	var limiter *security.RateLimiter
	if redisClient != nil {
		limiter = security.NewRateLimiter(redisClient, "alva:security:ratelimit")
	}

	return &SecurityMiddleware{
		rateLimiter: limiter,
		auditLogger: security.NewAuditLogger(db),
	}
}

// AuditLogger exposes the underlying audit logger for services that log
// their own events
func (sm *SecurityMiddleware) AuditLogger() *security.AuditLogger {
	return sm.auditLogger
}

// RateLimiter exposes the redis limiter (nil without redis)
func (sm *SecurityMiddleware) RateLimiter() *security.RateLimiter {
	return sm.rateLimiter
}

// RateLimitMiddleware applies rate limiting based on configurable rules.
// Without redis it is a pass-through; the in-process limiters in
// rate_limit.go cover that case.
func (sm *SecurityMiddleware) RateLimitMiddleware(ruleName string) gin.HandlerFunc {
	rules := security.DefaultRules()
	rule, exists := rules[ruleName]
	if !exists {
		rule = rules["api_general"] // Fallback to general rule
	}

	return func(c *gin.Context) {
		if sm.rateLimiter == nil {
			c.Next()
			return
		}

		identifier := sm.getRateLimitIdentifier(c)

		result, err := sm.rateLimiter.CheckRateLimit(c.Request.Context(), identifier, ruleName, rule)
		if err != nil {
			// Log error but don't block the request
			sm.auditLogger.LogSecurityEvent(
				c.Request.Context(),
				security.ActionRateLimitHit,
				nil,
				security.ClientIP(c.Request),
				map[string]interface{}{
					"rate_limit_error": err.Error(),
					"rule_name":        ruleName,
				},
				err,
			)
			c.Next()
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", rule.Limit))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", result.Remaining))
		c.Header("X-RateLimit-Reset", fmt.Sprintf("%d", result.ResetTime.Unix()))

		if !result.Allowed {
			sm.auditLogger.LogSecurityEvent(
				c.Request.Context(),
				security.ActionRateLimitHit,
				userIDFromContext(c),
				security.ClientIP(c.Request),
				map[string]interface{}{
					"rule_name":     ruleName,
					"current_usage": result.CurrentUsage,
					"limit":         rule.Limit,
					"window":        rule.Window.String(),
				},
				nil,
			)

			c.Header("Retry-After", fmt.Sprintf("%.0f", result.RetryAfter.Seconds()))
			c.JSON(http.StatusTooManyRequests, gin.H{"message": "Rate limit exceeded"})
			c.Abort()
			return
		}

		c.Next()
	}
}

// AuditMiddleware logs all requests for security auditing
func (sm *SecurityMiddleware) AuditMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		// Continue with request processing
		c.Next()

		// Don't log health checks and metrics to reduce noise
		if strings.HasPrefix(c.Request.URL.Path, "/health") ||
			strings.HasPrefix(c.Request.URL.Path, "/metrics") {
			return
		}

		success := c.Writer.Status() < 400
		action := sm.getAuditAction(c)

		sm.auditLogger.LogHTTPRequest(
			c.Request.Context(),
			c.Request,
			action,
			userIDFromContext(c),
			success,
			lastError(c),
		)
	}
}

// ThreatDetectionMiddleware detects and responds to potential threats
func (sm *SecurityMiddleware) ThreatDetectionMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientIP := security.ClientIP(c.Request)

		// Check for suspicious patterns
		threats := sm.detectThreats(c)

		for _, threat := range threats {
			sm.auditLogger.LogSecurityEvent(
				c.Request.Context(),
				security.ActionSecurityAlert,
				userIDFromContext(c),
				clientIP,
				map[string]interface{}{
					"threat_type":        threat.Type,
					"threat_severity":    threat.Severity,
					"threat_description": threat.Description,
					"user_agent":         c.Request.UserAgent(),
					"path":               c.Request.URL.Path,
				},
				nil,
			)

			// Block high-severity threats
			if threat.Severity == "critical" {
				c.JSON(http.StatusForbidden, gin.H{"message": "Request blocked due to security policy"})
				c.Abort()
				return
			}
		}

		c.Next()
	}
}

// Helper methods

func (sm *SecurityMiddleware) getRateLimitIdentifier(c *gin.Context) string {
	// Prefer user ID if available
	if userID := userIDFromContext(c); userID != nil {
		return fmt.Sprintf("user:%s", *userID)
	}

	// Fall back to IP address
	return fmt.Sprintf("ip:%s", security.ClientIP(c.Request))
}

func (sm *SecurityMiddleware) getAuditAction(c *gin.Context) security.AuditAction {
	path := c.Request.URL.Path
	method := c.Request.Method

	// Map common paths to audit actions
	switch {
	case strings.Contains(path, "/callback"):
		return security.ActionLogin
	case strings.Contains(path, "/logout"):
		return security.ActionLogout
	case strings.Contains(path, "/auth/refresh"):
		return security.ActionTokenRefresh
	case strings.Contains(path, "/trading-accounts") && method == "POST":
		return security.ActionAccountConnect
	case strings.Contains(path, "/trading-accounts") && method == "DELETE":
		return security.ActionAccountDisconnect
	case strings.Contains(path, "/balance") && method == "PATCH":
		return security.ActionAccountBalanceUpdate
	case strings.Contains(path, "/master-copier/connect"):
		return security.ActionCopierConnect
	case strings.Contains(path, "/master-copier") && method == "PATCH":
		return security.ActionCopierStatusChange
	case strings.Contains(path, "/referral-earnings") && method == "POST":
		return security.ActionEarningCreate
	case strings.Contains(path, "/click"):
		return security.ActionLinkClick
	case strings.Contains(path, "/referral-links") && method == "POST":
		return security.ActionLinkCreate
	default:
		return ""
	}
}

type Threat struct {
	Type        string
	Severity    string
	Description string
}

func (sm *SecurityMiddleware) detectThreats(c *gin.Context) []Threat {
	var threats []Threat

	userAgent := c.Request.UserAgent()
	path := c.Request.URL.Path

	// Detect common attack patterns
	if strings.Contains(strings.ToLower(userAgent), "sqlmap") ||
		strings.Contains(strings.ToLower(userAgent), "nikto") ||
		strings.Contains(strings.ToLower(userAgent), "nessus") {
		threats = append(threats, Threat{
			Type:        "malicious_user_agent",
			Severity:    "critical",
			Description: "Detected scanning/attack tool in user agent",
		})
	}

	// Detect SQL injection attempts
	suspiciousPatterns := []string{
		"union select", "drop table", "insert into", "delete from",
		"<script", "javascript:", "onerror=", "onload=",
	}

	queryString := strings.ToLower(c.Request.URL.RawQuery)
	for _, pattern := range suspiciousPatterns {
		if strings.Contains(queryString, pattern) {
			threats = append(threats, Threat{
				Type:        "injection_attempt",
				Severity:    "high",
				Description: fmt.Sprintf("Suspicious pattern detected in query: %s", pattern),
			})
			break
		}
	}

	// Detect directory traversal attempts
	if strings.Contains(path, "..") || strings.Contains(path, "%2e%2e") {
		threats = append(threats, Threat{
			Type:        "directory_traversal",
			Severity:    "high",
			Description: "Directory traversal attempt detected",
		})
	}

	return threats
}

func userIDFromContext(c *gin.Context) *string {
	if userID, exists := GetUserID(c); exists {
		return &userID
	}
	return nil
}

func lastError(c *gin.Context) error {
	if errs := c.Errors.Last(); errs != nil {
		return errs.Err
	}
	return nil
}
