package service

import (
	"context"
	"strings"
	"testing"

	"commung/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBotService() (*BotService, *stubBotRepo, *stubProfileRepo) {
	botRepo := newStubBotRepo()
	profileRepo := newStubProfileRepo()
	return NewBotService(botRepo, profileRepo, nil), botRepo, profileRepo
}

func TestBotService_CreateBot(t *testing.T) {
	ctx := context.Background()
	svc, _, profileRepo := newTestBotService()

	bot, err := svc.CreateBot(ctx, CreateBotInput{
		CommunityID:     1,
		CreatedByUserID: 7,
		Name:            "Event Bot",
	})
	require.NoError(t, err)
	require.NotNil(t, bot.Profile)
	assert.True(t, bot.Profile.IsBot)
	assert.Equal(t, "event_bot", bot.Profile.Username)
	assert.Nil(t, bot.Profile.UserID)

	// The bot profile gets a regular membership.
	m, err := profileRepo.GetMembership(ctx, 1, bot.ProfileID)
	require.NoError(t, err)
	assert.Equal(t, models.MembershipRoleMember, m.Role)

	// Duplicate username within the community conflicts.
	_, err = svc.CreateBot(ctx, CreateBotInput{
		CommunityID: 1, CreatedByUserID: 7, Name: "Other", Username: "event_bot",
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestBotService_TokenLifecycle(t *testing.T) {
	ctx := context.Background()
	svc, botRepo, _ := newTestBotService()

	bot, err := svc.CreateBot(ctx, CreateBotInput{
		CommunityID: 1, CreatedByUserID: 7, Name: "Event Bot",
	})
	require.NoError(t, err)

	issued, err := svc.IssueToken(ctx, 1, bot.ID, 7)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(issued.Plaintext, "cmb_"))
	assert.Equal(t, issued.Plaintext[:12], issued.Token.Prefix)
	// Only the hash is stored.
	assert.NotContains(t, issued.Token.TokenHash, issued.Plaintext)
	assert.Len(t, issued.Token.TokenHash, 64)

	t.Run("Verify Accepts Valid Token", func(t *testing.T) {
		got, err := svc.VerifyToken(ctx, issued.Plaintext)
		require.NoError(t, err)
		assert.Equal(t, bot.ID, got.ID)

		// Verification stamps last use.
		stored := botRepo.tokens[issued.Token.ID]
		assert.NotNil(t, stored.LastUsedAt)
	})

	t.Run("Verify Rejects Malformed Token", func(t *testing.T) {
		_, err := svc.VerifyToken(ctx, "not-a-bot-token")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	})

	t.Run("Verify Rejects Unknown Token", func(t *testing.T) {
		_, err := svc.VerifyToken(ctx, "cmb_0000000000000000000000000000000000000000000000ff")
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	})

	t.Run("Verify Rejects Revoked Token", func(t *testing.T) {
		require.NoError(t, svc.RevokeToken(ctx, 1, bot.ID, issued.Token.ID))

		_, err := svc.VerifyToken(ctx, issued.Plaintext)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "UNAUTHORIZED", appErr.Code)
	})
}

func TestBotService_RevokeToken_WrongBot(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBotService()

	botA, err := svc.CreateBot(ctx, CreateBotInput{CommunityID: 1, CreatedByUserID: 7, Name: "A"})
	require.NoError(t, err)
	botB, err := svc.CreateBot(ctx, CreateBotInput{CommunityID: 1, CreatedByUserID: 7, Name: "B"})
	require.NoError(t, err)

	issued, err := svc.IssueToken(ctx, 1, botA.ID, 7)
	require.NoError(t, err)

	// A token cannot be revoked through another bot.
	err = svc.RevokeToken(ctx, 1, botB.ID, issued.Token.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestBotService_CommunityScoping(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestBotService()

	bot, err := svc.CreateBot(ctx, CreateBotInput{CommunityID: 1, CreatedByUserID: 7, Name: "A"})
	require.NoError(t, err)

	_, err = svc.GetBot(ctx, 2, bot.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)

	_, err = svc.IssueToken(ctx, 2, bot.ID, 7)
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
