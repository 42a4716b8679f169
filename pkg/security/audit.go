package security

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// AuditLevel defines the severity level of audit events
type AuditLevel string

const (
	AuditLevelInfo     AuditLevel = "info"
	AuditLevelWarn     AuditLevel = "warn"
	AuditLevelError    AuditLevel = "error"
	AuditLevelCritical AuditLevel = "critical"
)

// AuditAction defines the type of action being audited
type AuditAction string

const (
	// Authentication actions
	ActionLogin        AuditAction = "auth.login"
	ActionLogout       AuditAction = "auth.logout"
	ActionLoginFailed  AuditAction = "auth.login_failed"
	ActionTokenRefresh AuditAction = "auth.token_refresh"

	// Trading account actions
	ActionAccountConnect       AuditAction = "account.connect"
	ActionAccountDisconnect    AuditAction = "account.disconnect"
	ActionAccountBalanceUpdate AuditAction = "account.balance_update"

	// Copier actions
	ActionCopierConnect      AuditAction = "copier.connect"
	ActionCopierStatusChange AuditAction = "copier.status_change"

	// Referral actions
	ActionEarningCreate AuditAction = "referral.earning_create"
	ActionLinkCreate    AuditAction = "referral.link_create"
	ActionLinkClick     AuditAction = "referral.link_click"

	// System actions
	ActionRateLimitHit  AuditAction = "system.rate_limit_hit"
	ActionSecurityAlert AuditAction = "system.security_alert"
)

// AuditEvent represents a security audit event. The user id is the
// identity-provider subject when known.
type AuditEvent struct {
	ID        uuid.UUID              `json:"id" gorm:"type:uuid;primaryKey"`
	Timestamp time.Time              `json:"timestamp" gorm:"index"`
	Level     AuditLevel             `json:"level" gorm:"type:varchar(20);index"`
	Action    AuditAction            `json:"action" gorm:"type:varchar(50);index"`
	UserID    *string                `json:"user_id,omitempty" gorm:"type:varchar(255);index"`
	IPAddress string                 `json:"ip_address" gorm:"type:varchar(64);index"`
	UserAgent string                 `json:"user_agent" gorm:"type:text"`
	Resource  string                 `json:"resource" gorm:"type:varchar(255)"`
	Details   map[string]interface{} `json:"details" gorm:"serializer:json"`
	Success   bool                   `json:"success" gorm:"index"`
	Error     *string                `json:"error,omitempty" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
}

func (AuditEvent) TableName() string {
	return "audit_events"
}

// AuditLogger handles security audit logging. A nil database disables
// persistence, which is the case when the server runs on the in-memory
// store.
type AuditLogger struct {
	db *gorm.DB
}

// NewAuditLogger creates a new audit logger
func NewAuditLogger(db *gorm.DB) *AuditLogger {
	return &AuditLogger{db: db}
}

// LogEvent logs an audit event to the database
func (al *AuditLogger) LogEvent(ctx context.Context, event *AuditEvent) error {
	if al == nil || al.db == nil {
		return nil
	}

	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	if event.Details == nil {
		event.Details = make(map[string]interface{})
	}

	return al.db.WithContext(ctx).Create(event).Error
}

// LogHTTPRequest logs an HTTP request audit event
func (al *AuditLogger) LogHTTPRequest(ctx context.Context, r *http.Request, action AuditAction, userID *string, success bool, err error) error {
	event := &AuditEvent{
		Level:     al.getLevelForAction(action, success),
		Action:    action,
		UserID:    userID,
		IPAddress: ClientIP(r),
		UserAgent: r.UserAgent(),
		Resource:  fmt.Sprintf("%s %s", r.Method, r.URL.Path),
		Success:   success,
		Details: map[string]interface{}{
			"method":      r.Method,
			"path":        r.URL.Path,
			"query":       r.URL.RawQuery,
			"remote_addr": r.RemoteAddr,
		},
	}

	if err != nil {
		errStr := err.Error()
		event.Error = &errStr
	}

	return al.LogEvent(ctx, event)
}

// LogSecurityEvent logs a security-related event
func (al *AuditLogger) LogSecurityEvent(ctx context.Context, action AuditAction, userID *string, ipAddress string, details map[string]interface{}, err error) error {
	level := AuditLevelInfo
	success := true

	if err != nil {
		level = AuditLevelError
		success = false
	}

	// Escalate certain actions to higher levels
	switch action {
	case ActionLoginFailed, ActionRateLimitHit:
		level = AuditLevelWarn
	case ActionSecurityAlert:
		level = AuditLevelCritical
	}

	event := &AuditEvent{
		Level:     level,
		Action:    action,
		UserID:    userID,
		IPAddress: ipAddress,
		Success:   success,
		Details:   details,
	}

	if err != nil {
		errStr := err.Error()
		event.Error = &errStr
	}

	return al.LogEvent(ctx, event)
}

// AuditFilters defines filters for querying audit events
type AuditFilters struct {
	UserID    *string     `json:"user_id,omitempty"`
	Action    AuditAction `json:"action,omitempty"`
	Level     AuditLevel  `json:"level,omitempty"`
	IPAddress string      `json:"ip_address,omitempty"`
	StartTime time.Time   `json:"start_time,omitempty"`
	EndTime   time.Time   `json:"end_time,omitempty"`
	Success   *bool       `json:"success,omitempty"`
	Limit     int         `json:"limit,omitempty"`
	Offset    int         `json:"offset,omitempty"`
}

// GetAuditEvents retrieves audit events with filtering
func (al *AuditLogger) GetAuditEvents(ctx context.Context, filters AuditFilters) ([]AuditEvent, error) {
	if al.db == nil {
		return nil, nil
	}

	query := al.db.WithContext(ctx).Model(&AuditEvent{})

	if filters.UserID != nil {
		query = query.Where("user_id = ?", *filters.UserID)
	}

	if filters.Action != "" {
		query = query.Where("action = ?", filters.Action)
	}

	if filters.Level != "" {
		query = query.Where("level = ?", filters.Level)
	}

	if filters.IPAddress != "" {
		query = query.Where("ip_address = ?", filters.IPAddress)
	}

	if !filters.StartTime.IsZero() {
		query = query.Where("timestamp >= ?", filters.StartTime)
	}

	if !filters.EndTime.IsZero() {
		query = query.Where("timestamp <= ?", filters.EndTime)
	}

	if filters.Success != nil {
		query = query.Where("success = ?", *filters.Success)
	}

	if filters.Limit <= 0 {
		filters.Limit = 100
	}

	var events []AuditEvent
	err := query.Order("timestamp DESC").Limit(filters.Limit).Offset(filters.Offset).Find(&events).Error

	return events, err
}

// CleanupOldEvents removes audit events older than the specified retention period
func (al *AuditLogger) CleanupOldEvents(ctx context.Context, retentionPeriod time.Duration) error {
	if al.db == nil {
		return nil
	}

	cutoff := time.Now().Add(-retentionPeriod)

	return al.db.WithContext(ctx).
		Where("timestamp < ?", cutoff).
		Delete(&AuditEvent{}).Error
}

// Helper methods
func (al *AuditLogger) getLevelForAction(action AuditAction, success bool) AuditLevel {
	if !success {
		switch action {
		case ActionLogin, ActionTokenRefresh:
			return AuditLevelWarn
		default:
			return AuditLevelInfo
		}
	}

	switch action {
	case ActionSecurityAlert:
		return AuditLevelCritical
	default:
		return AuditLevelInfo
	}
}

// ClientIP extracts the client IP, preferring proxy headers over the
// remote address.
func ClientIP(r *http.Request) string {
	// Check for forwarded IP in headers (for proxy/load balancer scenarios)
	forwarded := r.Header.Get("X-Forwarded-For")
	if forwarded != "" {
		// X-Forwarded-For can contain multiple IPs, take the first one
		if ip := net.ParseIP(forwarded); ip != nil {
			return forwarded
		}
	}

	realIP := r.Header.Get("X-Real-IP")
	if realIP != "" {
		if ip := net.ParseIP(realIP); ip != nil {
			return realIP
		}
	}

	// Fall back to remote address
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}

	return ip
}
