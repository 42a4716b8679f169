package services

import (
	"context"
	"testing"

	"alva-backend/internal/models"
	"alva-backend/internal/repositories"
	"alva-backend/pkg/security"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAccountService(encryption *security.EncryptionManager) (*AccountService, *repositories.Repositories, *capturingPublisher) {
	repos := repositories.NewMemoryRepositories()
	publisher := &capturingPublisher{}
	return NewAccountService(repos, encryption, publisher), repos, publisher
}

func TestConnectAccount(t *testing.T) {
	svc, repos, _ := newAccountService(nil)
	ctx := context.Background()

	account, err := svc.ConnectAccount(ctx, "u1", &models.ConnectTradingAccountRequest{
		Broker:    models.BrokerExness,
		AccountID: "EX-100",
		Balance:   strPtr("500.00"),
		DailyPnL:  strPtr("0.00"),
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, account.ID)
	assert.Equal(t, "u1", account.UserID)
	require.NotNil(t, account.IsConnected)
	assert.True(t, *account.IsConnected)

	listed, err := svc.ListAccounts(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, listed, 1)

	stored, err := repos.TradingAccount.GetByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.Balance)
	assert.Equal(t, "500.00", *stored.Balance)
}

func TestConnectAccountValidation(t *testing.T) {
	svc, _, _ := newAccountService(nil)

	_, err := svc.ConnectAccount(context.Background(), "u1", &models.ConnectTradingAccountRequest{
		Broker: "robinhood",
	})
	assert.Error(t, err)
}

func TestConnectAccountEncryptsAPIKey(t *testing.T) {
	em, err := security.NewEncryptionManager("test-master-key-with-32-characters!!")
	require.NoError(t, err)

	svc, _, _ := newAccountService(em)

	account, err := svc.ConnectAccount(context.Background(), "u1", &models.ConnectTradingAccountRequest{
		Broker:    models.BrokerBybit,
		AccountID: "BB-1",
		APIKey:    strPtr("super-secret-key"),
	})
	require.NoError(t, err)

	require.NotNil(t, account.APIKeyEncrypted)
	assert.NotEqual(t, "super-secret-key", *account.APIKeyEncrypted)

	decrypted, err := em.Decrypt(*account.APIKeyEncrypted)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-key", decrypted)
}

func TestConnectAccountDiscardsAPIKeyWithoutEncryption(t *testing.T) {
	svc, _, _ := newAccountService(nil)

	account, err := svc.ConnectAccount(context.Background(), "u1", &models.ConnectTradingAccountRequest{
		Broker:    models.BrokerBybit,
		AccountID: "BB-1",
		APIKey:    strPtr("super-secret-key"),
	})
	require.NoError(t, err)
	assert.Nil(t, account.APIKeyEncrypted)
}

func TestUpdateBalance(t *testing.T) {
	svc, repos, publisher := newAccountService(nil)
	ctx := context.Background()

	account := seedTestAccount(t, repos, "u1", models.BrokerExness, "EX-1", nil, nil)

	updated, err := svc.UpdateBalance(ctx, "u1", account.ID, &models.UpdateBalanceRequest{
		Balance:  strPtr("1200.00"),
		DailyPnL: strPtr("-3.75"),
	})
	require.NoError(t, err)

	require.NotNil(t, updated.Balance)
	assert.Equal(t, "1200.00", *updated.Balance)
	require.NotNil(t, updated.DailyPnL)
	assert.Equal(t, "-3.75", *updated.DailyPnL)
	assert.NotNil(t, updated.LastSyncAt)

	require.Len(t, publisher.balanceSyncs, 1)
	assert.Equal(t, account.ID, publisher.balanceSyncs[0])
}

func TestUpdateBalanceOwnershipEnforced(t *testing.T) {
	svc, repos, publisher := newAccountService(nil)
	ctx := context.Background()

	account := seedTestAccount(t, repos, "u1", models.BrokerExness, "EX-1", nil, nil)

	// Another user's account looks like a missing account to the caller
	_, err := svc.UpdateBalance(ctx, "u2", account.ID, &models.UpdateBalanceRequest{
		Balance:  strPtr("1.00"),
		DailyPnL: strPtr("0.00"),
	})
	assert.ErrorIs(t, err, models.ErrTradingAccountNotFound)

	_, err = svc.UpdateBalance(ctx, "u1", uuid.New(), &models.UpdateBalanceRequest{
		Balance:  strPtr("1.00"),
		DailyPnL: strPtr("0.00"),
	})
	assert.ErrorIs(t, err, models.ErrTradingAccountNotFound)

	assert.Empty(t, publisher.balanceSyncs)
}

func TestUpdateBalanceValidation(t *testing.T) {
	svc, repos, _ := newAccountService(nil)
	account := seedTestAccount(t, repos, "u1", models.BrokerExness, "EX-1", nil, nil)

	_, err := svc.UpdateBalance(context.Background(), "u1", account.ID, &models.UpdateBalanceRequest{
		Balance: strPtr("1.00"),
	})
	assert.Error(t, err)
}

func TestDisconnectAccount(t *testing.T) {
	svc, repos, _ := newAccountService(nil)
	ctx := context.Background()

	account := seedTestAccount(t, repos, "u1", models.BrokerExness, "EX-1", nil, nil)

	// Foreign and unknown ids are silent no-ops
	require.NoError(t, svc.DisconnectAccount(ctx, "u2", account.ID))
	require.NoError(t, svc.DisconnectAccount(ctx, "u1", uuid.New()))

	still, err := repos.TradingAccount.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.NotNil(t, still)

	require.NoError(t, svc.DisconnectAccount(ctx, "u1", account.ID))

	gone, err := repos.TradingAccount.GetByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}
