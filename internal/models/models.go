package models

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Broker constants
const (
	BrokerExness  = "exness"
	BrokerBybit   = "bybit"
	BrokerBinance = "binance"
)

// SupportedBrokers lists the brokers accounts and referral links may use.
var SupportedBrokers = []string{BrokerExness, BrokerBybit, BrokerBinance}

// IsValidBroker reports whether broker is one of the supported brokers.
func IsValidBroker(broker string) bool {
	for _, b := range SupportedBrokers {
		if broker == b {
			return true
		}
	}
	return false
}

// Referral earning statuses
const (
	EarningStatusPending   = "pending"
	EarningStatusPaid      = "paid"
	EarningStatusCancelled = "cancelled"
)

// IsValidEarningStatus reports whether status is a known earning status.
func IsValidEarningStatus(status string) bool {
	return status == EarningStatusPending || status == EarningStatusPaid || status == EarningStatusCancelled
}

// User represents a dashboard user. The primary key is the subject id
// assigned by the external identity provider, so users are upserted on
// every login and never deleted.
type User struct {
	ID              string  `gorm:"type:varchar(255);primaryKey" json:"id"`
	Email           string  `gorm:"type:varchar(255);not null;uniqueIndex" json:"email"`
	FirstName       *string `gorm:"type:varchar(100)" json:"firstName,omitempty"`
	LastName        *string `gorm:"type:varchar(100)" json:"lastName,omitempty"`
	ProfileImageURL *string `gorm:"type:text" json:"profileImageUrl,omitempty"`
	ReferralCode    string  `gorm:"type:varchar(16);not null;uniqueIndex" json:"referralCode"`
	ReferredBy      *string `gorm:"type:varchar(255);index" json:"referredBy,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

func (User) TableName() string {
	return "users"
}

// TradingAccount represents an external brokerage account connected by a
// user. Balance and P&L are decimal-as-text fields updated only through
// explicit API calls; nothing here talks to a real broker.
type TradingAccount struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string     `gorm:"type:varchar(255);not null;index" json:"userId"`
	Broker          string     `gorm:"type:varchar(20);not null;index" json:"broker"`
	AccountID       string     `gorm:"type:varchar(100);not null" json:"accountId"`
	AccountName     *string    `gorm:"type:varchar(100)" json:"accountName,omitempty"`
	Balance         *string    `gorm:"type:varchar(32)" json:"balance,omitempty"`
	DailyPnL        *string    `gorm:"column:daily_pnl;type:varchar(32)" json:"dailyPnL,omitempty"`
	CopyStatus      *string    `gorm:"type:varchar(20)" json:"copyStatus,omitempty"`
	IsConnected     *bool      `json:"isConnected,omitempty"`
	APIKeyEncrypted *string    `gorm:"type:text" json:"-"`
	LastSyncAt      *time.Time `json:"lastSyncAt,omitempty"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (TradingAccount) TableName() string {
	return "trading_accounts"
}

func (a *TradingAccount) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// ReferralEarning is one row of the commission ledger. Referrer and
// referred user must both exist; status only moves forward
// (pending -> paid or pending -> cancelled).
type ReferralEarning struct {
	ID              uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	ReferrerID      string     `gorm:"type:varchar(255);not null;index" json:"referrerId"`
	ReferredUserID  string     `gorm:"type:varchar(255);not null;index" json:"referredUserId"`
	Amount          string     `gorm:"type:varchar(32);not null" json:"amount"`
	FeePercentage   *string    `gorm:"type:varchar(16)" json:"feePercentage,omitempty"`
	Broker          string     `gorm:"type:varchar(20);not null" json:"broker"`
	TransactionType string     `gorm:"type:varchar(50);not null" json:"transactionType"`
	Status          string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	CreatedAt       time.Time  `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	PaidAt          *time.Time `json:"paidAt,omitempty"`

	// Relationships
	Referrer     User `gorm:"foreignKey:ReferrerID" json:"-"`
	ReferredUser User `gorm:"foreignKey:ReferredUserID" json:"-"`
}

func (ReferralEarning) TableName() string {
	return "referral_earnings"
}

func (e *ReferralEarning) BeforeCreate(tx *gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}

// MasterCopierConnection associates a user's trading account with an
// external master account id and a copy ratio. Purely descriptive
// metadata: nothing reads the ratio and no trades are replicated.
type MasterCopierConnection struct {
	ID               uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string    `gorm:"type:varchar(255);not null;index" json:"userId"`
	TradingAccountID uuid.UUID `gorm:"type:uuid;not null;index" json:"tradingAccountId"`
	MasterAccountID  string    `gorm:"type:varchar(100);not null" json:"masterAccountId"`
	CopyRatio        *string   `gorm:"type:varchar(16)" json:"copyRatio,omitempty"`
	IsActive         bool      `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	User           User           `gorm:"foreignKey:UserID" json:"-"`
	TradingAccount TradingAccount `gorm:"foreignKey:TradingAccountID" json:"-"`
}

func (MasterCopierConnection) TableName() string {
	return "master_copier_connections"
}

func (c *MasterCopierConnection) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// ReferralLink is a per-broker signup link with click/conversion counters.
// Exactly one exists per (user, broker), provisioned at user creation.
type ReferralLink struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID          string    `gorm:"type:varchar(255);not null;index:idx_referral_links_user_broker,unique" json:"userId"`
	Broker          string    `gorm:"type:varchar(20);not null;index:idx_referral_links_user_broker,unique" json:"broker"`
	ReferralURL     string    `gorm:"type:text;not null" json:"referralUrl"`
	ClickCount      int       `gorm:"default:0" json:"clickCount"`
	ConversionCount int       `gorm:"default:0" json:"conversionCount"`
	IsActive        bool      `gorm:"default:true" json:"isActive"`

	CreatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updatedAt"`

	// Relationships
	User User `gorm:"foreignKey:UserID" json:"-"`
}

func (ReferralLink) TableName() string {
	return "referral_links"
}

func (l *ReferralLink) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}

// GenerateReferralCode returns a fresh referral code: 8 uppercase hex
// characters from 4 random bytes.
func GenerateReferralCode() string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		// crypto/rand never fails on supported platforms; fall back to a
		// uuid-derived code rather than panic in a request path.
		return strings.ToUpper(uuid.New().String()[:8])
	}
	return strings.ToUpper(hex.EncodeToString(buf))
}

// Request models

// UpsertUserParams carries the identity-provider claims used to insert or
// update a user at login.
type UpsertUserParams struct {
	ID              string  `json:"id"`
	Email           string  `json:"email"`
	FirstName       *string `json:"firstName,omitempty"`
	LastName        *string `json:"lastName,omitempty"`
	ProfileImageURL *string `json:"profileImageUrl,omitempty"`
	ReferredBy      *string `json:"referredBy,omitempty"`
}

// Validate validates the upsert parameters.
func (p *UpsertUserParams) Validate() error {
	if p.ID == "" {
		return errors.New("user id is required")
	}
	if p.Email == "" {
		return errors.New("email is required")
	}
	return nil
}

// ConnectTradingAccountRequest represents a request to connect a trading
// account. The optional API key is encrypted before storage.
type ConnectTradingAccountRequest struct {
	Broker      string  `json:"broker" binding:"required"`
	AccountID   string  `json:"accountId" binding:"required"`
	AccountName *string `json:"accountName,omitempty"`
	Balance     *string `json:"balance,omitempty"`
	DailyPnL    *string `json:"dailyPnL,omitempty"`
	CopyStatus  *string `json:"copyStatus,omitempty"`
	APIKey      *string `json:"apiKey,omitempty"`
}

// Validate validates the connect request.
func (r *ConnectTradingAccountRequest) Validate() error {
	if r.Broker == "" {
		return errors.New("broker is required")
	}
	if !IsValidBroker(r.Broker) {
		return errors.New("invalid broker")
	}
	if r.AccountID == "" {
		return errors.New("accountId is required")
	}
	return nil
}

// UpdateBalanceRequest represents a manual balance update. Both fields are
// required; a missing field is a validation error, not a partial update.
type UpdateBalanceRequest struct {
	Balance  *string `json:"balance"`
	DailyPnL *string `json:"dailyPnL"`
}

// Validate validates the balance update request.
func (r *UpdateBalanceRequest) Validate() error {
	if r.Balance == nil || r.DailyPnL == nil {
		return errors.New("balance and dailyPnL are required")
	}
	return nil
}

// ConnectCopierRequest represents a request to create a master copier
// connection.
type ConnectCopierRequest struct {
	TradingAccountID uuid.UUID `json:"tradingAccountId" binding:"required"`
	MasterAccountID  string    `json:"masterAccountId" binding:"required"`
	CopyRatio        *string   `json:"copyRatio,omitempty"`
}

// Validate validates the copier connect request.
func (r *ConnectCopierRequest) Validate() error {
	if r.TradingAccountID == uuid.Nil {
		return errors.New("tradingAccountId is required")
	}
	if r.MasterAccountID == "" {
		return errors.New("masterAccountId is required")
	}
	return nil
}

// UpdateCopierStatusRequest toggles a copier connection. The pointer keeps
// `false` distinguishable from an absent or non-boolean value.
type UpdateCopierStatusRequest struct {
	IsActive *bool `json:"isActive"`
}

// Validate validates the status update request.
func (r *UpdateCopierStatusRequest) Validate() error {
	if r.IsActive == nil {
		return errors.New("isActive must be a boolean")
	}
	return nil
}

// CreateReferralEarningRequest records a commission event.
type CreateReferralEarningRequest struct {
	ReferredUserID  string  `json:"referredUserId" binding:"required"`
	Amount          string  `json:"amount" binding:"required"`
	Broker          string  `json:"broker" binding:"required"`
	TransactionType string  `json:"transactionType" binding:"required"`
	FeePercentage   *string `json:"feePercentage,omitempty"`
	Status          *string `json:"status,omitempty"`
}

// Validate validates the earning request.
func (r *CreateReferralEarningRequest) Validate() error {
	if r.ReferredUserID == "" {
		return errors.New("referredUserId is required")
	}
	if r.Amount == "" {
		return errors.New("amount is required")
	}
	if !IsValidBroker(r.Broker) {
		return errors.New("invalid broker")
	}
	if r.TransactionType == "" {
		return errors.New("transactionType is required")
	}
	if r.Status != nil && !IsValidEarningStatus(*r.Status) {
		return errors.New("invalid status")
	}
	return nil
}

// CreateReferralLinkRequest creates an extra referral link beyond the
// auto-provisioned defaults.
type CreateReferralLinkRequest struct {
	Broker      string `json:"broker" binding:"required"`
	ReferralURL string `json:"referralUrl" binding:"required"`
}

// Validate validates the link request.
func (r *CreateReferralLinkRequest) Validate() error {
	if !IsValidBroker(r.Broker) {
		return errors.New("invalid broker")
	}
	if r.ReferralURL == "" {
		return errors.New("referralUrl is required")
	}
	return nil
}

// Error definitions
var (
	ErrUserNotFound             = errors.New("user not found")
	ErrTradingAccountNotFound   = errors.New("trading account not found")
	ErrCopierConnectionNotFound = errors.New("copier connection not found")
	ErrReferralLinkNotFound     = errors.New("referral link not found")
	ErrReferralLinkExists       = errors.New("referral link already exists for this broker")
	ErrAccountOwnershipMismatch = errors.New("trading account does not belong to user")
)
