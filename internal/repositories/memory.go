package repositories

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"alva-backend/internal/models"

	"github.com/google/uuid"
)

// MemoryStore is the process-local fallback backend used when no database
// is configured. It holds everything in maps and slices behind a single
// RWMutex, satisfies the same repository contracts as the relational
// backend, and loses all data on restart (accepted, not a defect).
//
// The store is an explicit object constructed at startup and injected like
// the gorm-backed repositories; there is no package-level singleton.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[string]*models.User
	accounts []*models.TradingAccount
	earnings []*models.ReferralEarning
	copiers  []*models.MasterCopierConnection
	links    []*models.ReferralLink
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users: make(map[string]*models.User),
	}
}

// NewMemoryRepositories creates a repository container where every
// repository shares one in-memory store.
func NewMemoryRepositories() *Repositories {
	store := NewMemoryStore()
	return &Repositories{
		User:            &memoryUserRepository{store: store},
		TradingAccount:  &memoryTradingAccountRepository{store: store},
		ReferralEarning: &memoryReferralEarningRepository{store: store},
		Copier:          &memoryCopierConnectionRepository{store: store},
		ReferralLink:    &memoryReferralLinkRepository{store: store},
	}
}

// User repository

type memoryUserRepository struct {
	store *MemoryStore
}

func (r *memoryUserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	user, ok := r.store.users[id]
	if !ok {
		return nil, nil
	}
	copied := *user
	return &copied, nil
}

func (r *memoryUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, user := range r.store.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) GetByReferralCode(ctx context.Context, code string) (*models.User, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, user := range r.store.users {
		if user.ReferralCode == code {
			copied := *user
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepository) Upsert(ctx context.Context, params *models.UpsertUserParams) (*models.User, bool, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	now := time.Now().UTC()

	if existing, ok := r.store.users[params.ID]; ok {
		existing.Email = params.Email
		existing.FirstName = params.FirstName
		existing.LastName = params.LastName
		existing.ProfileImageURL = params.ProfileImageURL
		if existing.ReferredBy == nil && params.ReferredBy != nil {
			existing.ReferredBy = params.ReferredBy
		}
		if existing.ReferralCode == "" {
			existing.ReferralCode = r.uniqueReferralCode()
		}
		existing.UpdatedAt = now
		copied := *existing
		return &copied, false, nil
	}

	user := &models.User{
		ID:              params.ID,
		Email:           params.Email,
		FirstName:       params.FirstName,
		LastName:        params.LastName,
		ProfileImageURL: params.ProfileImageURL,
		ReferralCode:    r.uniqueReferralCode(),
		ReferredBy:      params.ReferredBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	r.store.users[params.ID] = user
	copied := *user
	return &copied, true, nil
}

func (r *memoryUserRepository) Count(ctx context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.users)), nil
}

// uniqueReferralCode retries generation on the vanishingly rare collision.
// Caller must hold the write lock.
func (r *memoryUserRepository) uniqueReferralCode() string {
	for {
		code := models.GenerateReferralCode()
		taken := false
		for _, u := range r.store.users {
			if u.ReferralCode == code {
				taken = true
				break
			}
		}
		if !taken {
			return code
		}
	}
}

// Trading account repository

type memoryTradingAccountRepository struct {
	store *MemoryStore
}

func (r *memoryTradingAccountRepository) Create(ctx context.Context, account *models.TradingAccount) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now

	copied := *account
	r.store.accounts = append(r.store.accounts, &copied)
	return nil
}

func (r *memoryTradingAccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.TradingAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, account := range r.store.accounts {
		if account.ID == id {
			copied := *account
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryTradingAccountRepository) GetByUserID(ctx context.Context, userID string) ([]*models.TradingAccount, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var accounts []*models.TradingAccount
	// Insertion order is creation order; walk backwards for newest first.
	for i := len(r.store.accounts) - 1; i >= 0; i-- {
		if r.store.accounts[i].UserID == userID {
			copied := *r.store.accounts[i]
			accounts = append(accounts, &copied)
		}
	}
	return accounts, nil
}

func (r *memoryTradingAccountRepository) UpdateBalance(ctx context.Context, id uuid.UUID, balance, dailyPnL string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, account := range r.store.accounts {
		if account.ID == id {
			now := time.Now().UTC()
			account.Balance = &balance
			account.DailyPnL = &dailyPnL
			account.LastSyncAt = &now
			account.UpdatedAt = now
			return nil
		}
	}
	return models.ErrTradingAccountNotFound
}

func (r *memoryTradingAccountRepository) Delete(ctx context.Context, id uuid.UUID, userID string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for i, account := range r.store.accounts {
		if account.ID == id && account.UserID == userID {
			r.store.accounts = append(r.store.accounts[:i], r.store.accounts[i+1:]...)
			return nil
		}
	}
	// Absent or foreign accounts are a silent no-op, matching the scoped
	// SQL delete.
	return nil
}

func (r *memoryTradingAccountRepository) Count(ctx context.Context) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()
	return int64(len(r.store.accounts)), nil
}

// Referral earning repository

type memoryReferralEarningRepository struct {
	store *MemoryStore
}

func (r *memoryReferralEarningRepository) Create(ctx context.Context, earning *models.ReferralEarning) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if earning.ID == uuid.Nil {
		earning.ID = uuid.New()
	}
	if earning.Status == "" {
		earning.Status = models.EarningStatusPending
	}
	if earning.CreatedAt.IsZero() {
		earning.CreatedAt = time.Now().UTC()
	}

	copied := *earning
	r.store.earnings = append(r.store.earnings, &copied)
	return nil
}

func (r *memoryReferralEarningRepository) GetByReferrerID(ctx context.Context, referrerID string) ([]*models.ReferralEarning, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var earnings []*models.ReferralEarning
	for i := len(r.store.earnings) - 1; i >= 0; i-- {
		if r.store.earnings[i].ReferrerID == referrerID {
			copied := *r.store.earnings[i]
			earnings = append(earnings, &copied)
		}
	}
	return earnings, nil
}

func (r *memoryReferralEarningRepository) TotalPaid(ctx context.Context, referrerID string) (string, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var total float64
	for _, earning := range r.store.earnings {
		if earning.ReferrerID != referrerID || earning.Status != models.EarningStatusPaid {
			continue
		}
		v, err := strconv.ParseFloat(earning.Amount, 64)
		if err != nil {
			continue
		}
		total += v
	}
	return fmt.Sprintf("%.2f", total), nil
}

func (r *memoryReferralEarningRepository) CountDistinctReferred(ctx context.Context, referrerID string) (int64, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	seen := make(map[string]struct{})
	for _, earning := range r.store.earnings {
		if earning.ReferrerID == referrerID {
			seen[earning.ReferredUserID] = struct{}{}
		}
	}
	return int64(len(seen)), nil
}

// Copier connection repository

type memoryCopierConnectionRepository struct {
	store *MemoryStore
}

func (r *memoryCopierConnectionRepository) Create(ctx context.Context, conn *models.MasterCopierConnection) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	now := time.Now().UTC()
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	conn.UpdatedAt = now

	copied := *conn
	r.store.copiers = append(r.store.copiers, &copied)
	return nil
}

func (r *memoryCopierConnectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.MasterCopierConnection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, conn := range r.store.copiers {
		if conn.ID == id {
			copied := *conn
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryCopierConnectionRepository) GetByUserID(ctx context.Context, userID string) ([]*models.MasterCopierConnection, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var conns []*models.MasterCopierConnection
	for i := len(r.store.copiers) - 1; i >= 0; i-- {
		if r.store.copiers[i].UserID == userID {
			copied := *r.store.copiers[i]
			conns = append(conns, &copied)
		}
	}
	return conns, nil
}

func (r *memoryCopierConnectionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, isActive bool) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, conn := range r.store.copiers {
		if conn.ID == id {
			conn.IsActive = isActive
			conn.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return models.ErrCopierConnectionNotFound
}

// Referral link repository

type memoryReferralLinkRepository struct {
	store *MemoryStore
}

func (r *memoryReferralLinkRepository) Create(ctx context.Context, link *models.ReferralLink) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, existing := range r.store.links {
		if existing.UserID == link.UserID && existing.Broker == link.Broker {
			return models.ErrReferralLinkExists
		}
	}

	if link.ID == uuid.Nil {
		link.ID = uuid.New()
	}
	now := time.Now().UTC()
	if link.CreatedAt.IsZero() {
		link.CreatedAt = now
	}
	link.UpdatedAt = now

	copied := *link
	r.store.links = append(r.store.links, &copied)
	return nil
}

func (r *memoryReferralLinkRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ReferralLink, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, link := range r.store.links {
		if link.ID == id {
			copied := *link
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryReferralLinkRepository) GetByUserID(ctx context.Context, userID string) ([]*models.ReferralLink, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	var links []*models.ReferralLink
	for _, link := range r.store.links {
		if link.UserID == userID {
			copied := *link
			links = append(links, &copied)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		return links[i].Broker < links[j].Broker
	})
	return links, nil
}

func (r *memoryReferralLinkRepository) GetByUserAndBroker(ctx context.Context, userID, broker string) (*models.ReferralLink, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	for _, link := range r.store.links {
		if link.UserID == userID && link.Broker == broker {
			copied := *link
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryReferralLinkRepository) IncrementStats(ctx context.Context, id uuid.UUID, clicks, conversions int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	for _, link := range r.store.links {
		if link.ID == id {
			link.ClickCount += clicks
			link.ConversionCount += conversions
			link.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return models.ErrReferralLinkNotFound
}
