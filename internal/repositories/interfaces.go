package repositories

import (
	"context"

	"alva-backend/internal/models"

	"github.com/google/uuid"
)

// UserRepository defines the interface for user data operations. Users are
// keyed by the identity provider's subject id and are never deleted.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByReferralCode(ctx context.Context, code string) (*models.User, error)
	// Upsert inserts or updates a user by primary key. A referral code is
	// generated when the stored row has none; CreatedAt is preserved on
	// conflict. The returned bool reports whether the row was created.
	Upsert(ctx context.Context, params *models.UpsertUserParams) (*models.User, bool, error)
	Count(ctx context.Context) (int64, error)
}

// TradingAccountRepository defines the interface for trading account
// operations. All reads are scoped by userID.
type TradingAccountRepository interface {
	Create(ctx context.Context, account *models.TradingAccount) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.TradingAccount, error)
	// UpdateBalance overwrites balance and daily P&L and stamps LastSyncAt.
	UpdateBalance(ctx context.Context, id uuid.UUID, balance, dailyPnL string) error
	// Delete removes the account only when it belongs to userID; a foreign
	// account id is a silent no-op.
	Delete(ctx context.Context, id uuid.UUID, userID string) error
	Count(ctx context.Context) (int64, error)
}

// ReferralEarningRepository defines the interface for the commission ledger.
type ReferralEarningRepository interface {
	Create(ctx context.Context, earning *models.ReferralEarning) error
	GetByReferrerID(ctx context.Context, referrerID string) ([]*models.ReferralEarning, error)
	// TotalPaid sums amounts of rows with status "paid", formatted to two
	// decimal places.
	TotalPaid(ctx context.Context, referrerID string) (string, error)
	CountDistinctReferred(ctx context.Context, referrerID string) (int64, error)
}

// CopierConnectionRepository defines the interface for master copier
// connection metadata.
type CopierConnectionRepository interface {
	Create(ctx context.Context, conn *models.MasterCopierConnection) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.MasterCopierConnection, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.MasterCopierConnection, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error
}

// ReferralLinkRepository defines the interface for per-broker referral
// links and their counters.
type ReferralLinkRepository interface {
	Create(ctx context.Context, link *models.ReferralLink) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ReferralLink, error)
	GetByUserID(ctx context.Context, userID string) ([]*models.ReferralLink, error)
	GetByUserAndBroker(ctx context.Context, userID, broker string) (*models.ReferralLink, error)
	// IncrementStats adds the given deltas to the click and conversion
	// counters (additive, never overwriting).
	IncrementStats(ctx context.Context, id uuid.UUID, clicks, conversions int) error
}
