package repositories

import (
	"context"
	"regexp"
	"testing"
	"time"

	"alva-backend/internal/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// The relational and in-memory backends implement the same contracts, so
// every test below runs against both.

func setupSQLRepositories(t *testing.T) *Repositories {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	err = db.AutoMigrate(
		&models.User{},
		&models.TradingAccount{},
		&models.ReferralEarning{},
		&models.MasterCopierConnection{},
		&models.ReferralLink{},
	)
	require.NoError(t, err)

	// Keep the shared :memory: database on a single connection
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	return NewRepositories(db)
}

func forEachBackend(t *testing.T, fn func(t *testing.T, repos *Repositories)) {
	t.Helper()

	backends := []struct {
		name  string
		setup func(t *testing.T) *Repositories
	}{
		{"sqlite", setupSQLRepositories},
		{"memory", func(t *testing.T) *Repositories { return NewMemoryRepositories() }},
	}

	for _, backend := range backends {
		t.Run(backend.name, func(t *testing.T) {
			fn(t, backend.setup(t))
		})
	}
}

func seedUser(t *testing.T, repos *Repositories, id, email string) *models.User {
	t.Helper()

	user, created, err := repos.User.Upsert(context.Background(), &models.UpsertUserParams{
		ID:    id,
		Email: email,
	})
	require.NoError(t, err)
	require.True(t, created)
	return user
}

func TestUserUpsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		codePattern := regexp.MustCompile(`^[0-9A-F]{8}$`)

		first := "Ada"
		user, created, err := repos.User.Upsert(ctx, &models.UpsertUserParams{
			ID:        "google-sub-1",
			Email:     "ada@example.com",
			FirstName: &first,
		})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "google-sub-1", user.ID)
		assert.Equal(t, "ada@example.com", user.Email)
		assert.True(t, codePattern.MatchString(user.ReferralCode), "got code %q", user.ReferralCode)
		assert.Nil(t, user.ReferredBy)
		assert.False(t, user.CreatedAt.IsZero())

		originalCode := user.ReferralCode
		originalCreatedAt := user.CreatedAt

		// Second login: profile fields refresh, the referral code, the
		// original createdAt and the referrer link survive. The sleep puts
		// a measurable gap between the two upserts so an overwritten
		// createdAt cannot slip past the tolerance below.
		time.Sleep(150 * time.Millisecond)
		referrer := "google-sub-9"
		updated, created, err := repos.User.Upsert(ctx, &models.UpsertUserParams{
			ID:         "google-sub-1",
			Email:      "ada@new.example.com",
			ReferredBy: &referrer,
		})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, "ada@new.example.com", updated.Email)
		assert.Equal(t, originalCode, updated.ReferralCode)
		assert.WithinDuration(t, originalCreatedAt, updated.CreatedAt, 100*time.Millisecond)
		require.NotNil(t, updated.ReferredBy)
		assert.Equal(t, referrer, *updated.ReferredBy)

		// An established referrer is never overwritten
		other := "google-sub-2"
		updated, _, err = repos.User.Upsert(ctx, &models.UpsertUserParams{
			ID:         "google-sub-1",
			Email:      "ada@new.example.com",
			ReferredBy: &other,
		})
		require.NoError(t, err)
		require.NotNil(t, updated.ReferredBy)
		assert.Equal(t, referrer, *updated.ReferredBy)

		count, err := repos.User.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestUserLookups(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		user := seedUser(t, repos, "user-1", "lookup@example.com")

		byID, err := repos.User.GetByID(ctx, "user-1")
		require.NoError(t, err)
		require.NotNil(t, byID)
		assert.Equal(t, user.Email, byID.Email)

		byEmail, err := repos.User.GetByEmail(ctx, "lookup@example.com")
		require.NoError(t, err)
		require.NotNil(t, byEmail)
		assert.Equal(t, "user-1", byEmail.ID)

		byCode, err := repos.User.GetByReferralCode(ctx, user.ReferralCode)
		require.NoError(t, err)
		require.NotNil(t, byCode)
		assert.Equal(t, "user-1", byCode.ID)

		missing, err := repos.User.GetByID(ctx, "no-such-user")
		require.NoError(t, err)
		assert.Nil(t, missing)

		missing, err = repos.User.GetByReferralCode(ctx, "ZZZZZZZZ")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestTradingAccountLifecycle(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		seedUser(t, repos, "user-1", "owner@example.com")

		now := time.Now().UTC()
		older := &models.TradingAccount{
			UserID:    "user-1",
			Broker:    models.BrokerExness,
			AccountID: "EX-100",
			CreatedAt: now.Add(-2 * time.Hour),
		}
		newer := &models.TradingAccount{
			UserID:    "user-1",
			Broker:    models.BrokerBybit,
			AccountID: "BB-200",
			CreatedAt: now.Add(-1 * time.Hour),
		}
		require.NoError(t, repos.TradingAccount.Create(ctx, older))
		require.NoError(t, repos.TradingAccount.Create(ctx, newer))
		assert.NotEqual(t, uuid.Nil, older.ID)
		assert.NotEqual(t, uuid.Nil, newer.ID)

		accounts, err := repos.TradingAccount.GetByUserID(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, accounts, 2)
		assert.Equal(t, "BB-200", accounts[0].AccountID, "newest account comes first")
		assert.Equal(t, "EX-100", accounts[1].AccountID)

		require.NoError(t, repos.TradingAccount.UpdateBalance(ctx, older.ID, "1500.00", "-25.50"))

		synced, err := repos.TradingAccount.GetByID(ctx, older.ID)
		require.NoError(t, err)
		require.NotNil(t, synced)
		require.NotNil(t, synced.Balance)
		assert.Equal(t, "1500.00", *synced.Balance)
		require.NotNil(t, synced.DailyPnL)
		assert.Equal(t, "-25.50", *synced.DailyPnL)
		assert.NotNil(t, synced.LastSyncAt)

		err = repos.TradingAccount.UpdateBalance(ctx, uuid.New(), "1.00", "0.00")
		assert.ErrorIs(t, err, models.ErrTradingAccountNotFound)

		// Deleting with the wrong owner is a silent no-op
		require.NoError(t, repos.TradingAccount.Delete(ctx, older.ID, "user-2"))
		still, err := repos.TradingAccount.GetByID(ctx, older.ID)
		require.NoError(t, err)
		assert.NotNil(t, still)

		require.NoError(t, repos.TradingAccount.Delete(ctx, older.ID, "user-1"))
		gone, err := repos.TradingAccount.GetByID(ctx, older.ID)
		require.NoError(t, err)
		assert.Nil(t, gone)

		count, err := repos.TradingAccount.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)
	})
}

func TestReferralEarningLedger(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		seedUser(t, repos, "referrer-1", "referrer@example.com")
		seedUser(t, repos, "referred-1", "referred1@example.com")
		seedUser(t, repos, "referred-2", "referred2@example.com")

		now := time.Now().UTC()
		rows := []*models.ReferralEarning{
			{
				ReferrerID:      "referrer-1",
				ReferredUserID:  "referred-1",
				Amount:          "100.25",
				Broker:          models.BrokerExness,
				TransactionType: "trading_fee",
				Status:          models.EarningStatusPaid,
				CreatedAt:       now.Add(-3 * time.Hour),
			},
			{
				ReferrerID:      "referrer-1",
				ReferredUserID:  "referred-2",
				Amount:          "50.25",
				Broker:          models.BrokerBybit,
				TransactionType: "trading_fee",
				Status:          models.EarningStatusPaid,
				CreatedAt:       now.Add(-2 * time.Hour),
			},
			{
				ReferrerID:      "referrer-1",
				ReferredUserID:  "referred-1",
				Amount:          "999.99",
				Broker:          models.BrokerBinance,
				TransactionType: "signup_bonus",
				CreatedAt:       now.Add(-1 * time.Hour),
			},
			{
				ReferrerID:      "someone-else",
				ReferredUserID:  "referred-1",
				Amount:          "10.00",
				Broker:          models.BrokerExness,
				TransactionType: "trading_fee",
				Status:          models.EarningStatusPaid,
				CreatedAt:       now,
			},
		}
		for _, row := range rows {
			require.NoError(t, repos.ReferralEarning.Create(ctx, row))
		}

		// Omitted status defaults to pending
		assert.Equal(t, models.EarningStatusPending, rows[2].Status)

		earnings, err := repos.ReferralEarning.GetByReferrerID(ctx, "referrer-1")
		require.NoError(t, err)
		require.Len(t, earnings, 3)
		assert.Equal(t, "999.99", earnings[0].Amount, "newest earning comes first")
		assert.Equal(t, "50.25", earnings[1].Amount)
		assert.Equal(t, "100.25", earnings[2].Amount)

		// Pending rows stay out of the paid total
		total, err := repos.ReferralEarning.TotalPaid(ctx, "referrer-1")
		require.NoError(t, err)
		assert.Equal(t, "150.50", total)

		total, err = repos.ReferralEarning.TotalPaid(ctx, "nobody")
		require.NoError(t, err)
		assert.Equal(t, "0.00", total)

		distinct, err := repos.ReferralEarning.CountDistinctReferred(ctx, "referrer-1")
		require.NoError(t, err)
		assert.Equal(t, int64(2), distinct)
	})
}

func TestCopierConnections(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		seedUser(t, repos, "user-1", "copier@example.com")

		account := &models.TradingAccount{UserID: "user-1", Broker: models.BrokerExness, AccountID: "EX-1"}
		require.NoError(t, repos.TradingAccount.Create(ctx, account))

		ratio := "0.50"
		conn := &models.MasterCopierConnection{
			UserID:           "user-1",
			TradingAccountID: account.ID,
			MasterAccountID:  "MASTER-7",
			CopyRatio:        &ratio,
			IsActive:         true,
		}
		require.NoError(t, repos.Copier.Create(ctx, conn))
		assert.NotEqual(t, uuid.Nil, conn.ID)

		fetched, err := repos.Copier.GetByID(ctx, conn.ID)
		require.NoError(t, err)
		require.NotNil(t, fetched)
		assert.Equal(t, "MASTER-7", fetched.MasterAccountID)
		assert.True(t, fetched.IsActive)

		conns, err := repos.Copier.GetByUserID(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, conns, 1)

		require.NoError(t, repos.Copier.UpdateStatus(ctx, conn.ID, false))
		fetched, err = repos.Copier.GetByID(ctx, conn.ID)
		require.NoError(t, err)
		assert.False(t, fetched.IsActive)

		err = repos.Copier.UpdateStatus(ctx, uuid.New(), true)
		assert.ErrorIs(t, err, models.ErrCopierConnectionNotFound)
	})
}

func TestReferralLinks(t *testing.T) {
	forEachBackend(t, func(t *testing.T, repos *Repositories) {
		ctx := context.Background()
		seedUser(t, repos, "user-1", "links@example.com")

		// Created out of order to exercise the broker sort
		for _, broker := range []string{models.BrokerExness, models.BrokerBinance, models.BrokerBybit} {
			link := &models.ReferralLink{
				UserID:      "user-1",
				Broker:      broker,
				ReferralURL: "https://example.com/" + broker,
				IsActive:    true,
			}
			require.NoError(t, repos.ReferralLink.Create(ctx, link))
		}

		links, err := repos.ReferralLink.GetByUserID(ctx, "user-1")
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, models.BrokerBinance, links[0].Broker)
		assert.Equal(t, models.BrokerBybit, links[1].Broker)
		assert.Equal(t, models.BrokerExness, links[2].Broker)

		dup := &models.ReferralLink{
			UserID:      "user-1",
			Broker:      models.BrokerBybit,
			ReferralURL: "https://example.com/dup",
		}
		assert.Error(t, repos.ReferralLink.Create(ctx, dup), "one link per user and broker")

		byBroker, err := repos.ReferralLink.GetByUserAndBroker(ctx, "user-1", models.BrokerExness)
		require.NoError(t, err)
		require.NotNil(t, byBroker)
		assert.Equal(t, "https://example.com/exness", byBroker.ReferralURL)

		missing, err := repos.ReferralLink.GetByUserAndBroker(ctx, "user-1", "no-such-broker")
		require.NoError(t, err)
		assert.Nil(t, missing)

		require.NoError(t, repos.ReferralLink.IncrementStats(ctx, byBroker.ID, 1, 0))
		require.NoError(t, repos.ReferralLink.IncrementStats(ctx, byBroker.ID, 2, 1))

		counted, err := repos.ReferralLink.GetByID(ctx, byBroker.ID)
		require.NoError(t, err)
		require.NotNil(t, counted)
		assert.Equal(t, 3, counted.ClickCount)
		assert.Equal(t, 1, counted.ConversionCount)

		err = repos.ReferralLink.IncrementStats(ctx, uuid.New(), 1, 0)
		assert.ErrorIs(t, err, models.ErrReferralLinkNotFound)
	})
}

func TestMemoryLinkCreateDuplicateSentinel(t *testing.T) {
	repos := NewMemoryRepositories()
	ctx := context.Background()

	link := &models.ReferralLink{UserID: "user-1", Broker: models.BrokerExness, ReferralURL: "https://example.com/a"}
	require.NoError(t, repos.ReferralLink.Create(ctx, link))

	dup := &models.ReferralLink{UserID: "user-1", Broker: models.BrokerExness, ReferralURL: "https://example.com/b"}
	assert.ErrorIs(t, repos.ReferralLink.Create(ctx, dup), models.ErrReferralLinkExists)
}
