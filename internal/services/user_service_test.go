package services

import (
	"context"
	"regexp"
	"testing"

	"alva-backend/internal/config"
	"alva-backend/internal/models"
	"alva-backend/internal/repositories"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService() (*UserService, *repositories.Repositories) {
	repos := repositories.NewMemoryRepositories()
	svc := NewUserService(repos, config.ReferralConfig{
		BybitPartnerCode: "119776",
		Domain:           "alvacapital.online",
	})
	return svc, repos
}

func TestUpsertUserProvisionsDefaultLinks(t *testing.T) {
	svc, repos := newUserService()
	ctx := context.Background()

	user, err := svc.UpsertUser(ctx, &models.UpsertUserParams{
		ID:    "google-sub-1",
		Email: "new@example.com",
	})
	require.NoError(t, err)
	require.NotEmpty(t, user.ReferralCode)

	links, err := repos.ReferralLink.GetByUserID(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, links, 3)

	byBroker := make(map[string]*models.ReferralLink, len(links))
	for _, link := range links {
		byBroker[link.Broker] = link
		assert.True(t, link.IsActive)
		assert.Zero(t, link.ClickCount)
	}

	exnessPattern := regexp.MustCompile(`^https://one\.exness\.link/a/[0-9a-f]{8}$`)
	binancePattern := regexp.MustCompile(`^https://accounts\.binance\.com/register\?ref=[0-9A-F]{8}$`)
	assert.Regexp(t, exnessPattern, byBroker[models.BrokerExness].ReferralURL)
	assert.Equal(t, "https://partner.bybit.com/b/119776", byBroker[models.BrokerBybit].ReferralURL)
	assert.Regexp(t, binancePattern, byBroker[models.BrokerBinance].ReferralURL)

	// Link codes are generated per link, not copied from the user's code
	assert.NotContains(t, byBroker[models.BrokerBinance].ReferralURL, user.ReferralCode)
}

func TestUpsertUserSecondLoginKeepsLinks(t *testing.T) {
	svc, repos := newUserService()
	ctx := context.Background()

	user, err := svc.UpsertUser(ctx, &models.UpsertUserParams{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	again, err := svc.UpsertUser(ctx, &models.UpsertUserParams{ID: "u1", Email: "b@example.com"})
	require.NoError(t, err)
	assert.Equal(t, user.ReferralCode, again.ReferralCode)
	assert.Equal(t, "b@example.com", again.Email)

	links, err := repos.ReferralLink.GetByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, links, 3, "repeat logins must not re-provision links")
}

func TestUpsertUserRejectsInvalidParams(t *testing.T) {
	svc, _ := newUserService()

	_, err := svc.UpsertUser(context.Background(), &models.UpsertUserParams{Email: "a@example.com"})
	assert.Error(t, err)
}

func TestGetUser(t *testing.T) {
	svc, _ := newUserService()
	ctx := context.Background()

	created, err := svc.UpsertUser(ctx, &models.UpsertUserParams{ID: "u1", Email: "a@example.com"})
	require.NoError(t, err)

	got, err := svc.GetUser(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, created.Email, got.Email)

	_, err = svc.GetUser(ctx, "missing")
	assert.ErrorIs(t, err, models.ErrUserNotFound)
}
