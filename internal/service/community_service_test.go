package service

import (
	"context"
	"testing"
	"time"

	"commung/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCommunityService() (*CommunityService, *stubCommunityRepo, *stubBoardRepo, *stubProfileRepo, *stubChatRepo) {
	communityRepo := newStubCommunityRepo()
	boardRepo := newStubBoardRepo()
	profileRepo := newStubProfileRepo()
	chatRepo := newStubChatRepo()
	svc := NewCommunityService(communityRepo, boardRepo, profileRepo, chatRepo, nil)
	return svc, communityRepo, boardRepo, profileRepo, chatRepo
}

func TestCommunityService_CreateCommunity(t *testing.T) {
	ctx := context.Background()

	t.Run("Provisions Owner Profile And Default Chat", func(t *testing.T) {
		svc, _, boardRepo, profileRepo, chatRepo := newTestCommunityService()

		community, err := svc.CreateCommunity(ctx, CreateCommunityInput{
			OwnerUserID:   7,
			Name:          "Once Fanclub",
			Slug:          "once",
			OwnerUsername: "leader",
		})
		require.NoError(t, err)
		assert.Equal(t, models.CommunityStatusActive, community.Status)

		profile, err := profileRepo.GetByUserAndCommunity(ctx, 7, community.ID)
		require.NoError(t, err)
		m, err := profileRepo.GetMembership(ctx, community.ID, profile.ID)
		require.NoError(t, err)
		assert.Equal(t, models.MembershipRoleOwner, m.Role)

		boards, err := boardRepo.ListByCommunity(ctx, community.ID)
		require.NoError(t, err)
		require.Len(t, boards, 1)

		conv, err := chatRepo.GetDefaultConversation(ctx, community.ID)
		require.NoError(t, err)
		assert.True(t, conv.IsGroup)
		ok, err := chatRepo.IsParticipant(ctx, conv.ID, profile.ID)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("Slug Validation", func(t *testing.T) {
		svc, _, _, _, _ := newTestCommunityService()

		for _, slug := range []string{"", "ab", "-leading", "trailing-", "UPPER", "admin", "has space"} {
			_, err := svc.CreateCommunity(ctx, CreateCommunityInput{
				OwnerUserID: 7, Name: "X", Slug: slug,
			})
			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr, "slug %q should be rejected", slug)
			assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
		}
	})

	t.Run("Duplicate Slug Conflicts", func(t *testing.T) {
		svc, _, _, _, _ := newTestCommunityService()

		_, err := svc.CreateCommunity(ctx, CreateCommunityInput{OwnerUserID: 7, Name: "A", Slug: "once"})
		require.NoError(t, err)

		_, err = svc.CreateCommunity(ctx, CreateCommunityInput{OwnerUserID: 8, Name: "B", Slug: "once"})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})

	t.Run("Inverted Date Window Rejected", func(t *testing.T) {
		svc, _, _, _, _ := newTestCommunityService()
		start := time.Now().Add(48 * time.Hour)
		end := time.Now().Add(24 * time.Hour)

		_, err := svc.CreateCommunity(ctx, CreateCommunityInput{
			OwnerUserID: 7, Name: "X", Slug: "window",
			StartsAt: &start, EndsAt: &end,
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})
}

func TestCommunityService_UpdateCommunity(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newTestCommunityService()

	community, err := svc.CreateCommunity(ctx, CreateCommunityInput{
		OwnerUserID: 7, Name: "Once", Slug: "once",
	})
	require.NoError(t, err)

	name := "Once Official"
	updated, err := svc.UpdateCommunity(ctx, UpdateCommunityInput{
		CommunityID: community.ID, Name: &name,
	})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)

	// Changing the slug to an occupied one conflicts.
	_, err = svc.CreateCommunity(ctx, CreateCommunityInput{OwnerUserID: 8, Name: "B", Slug: "twice"})
	require.NoError(t, err)
	slug := "twice"
	_, err = svc.UpdateCommunity(ctx, UpdateCommunityInput{CommunityID: community.ID, Slug: &slug})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "CONFLICT", appErr.Code)
}

func TestCommunityService_ArchiveToggle(t *testing.T) {
	ctx := context.Background()
	svc, communityRepo, _, _, _ := newTestCommunityService()

	community, err := svc.CreateCommunity(ctx, CreateCommunityInput{
		OwnerUserID: 7, Name: "Once", Slug: "once",
	})
	require.NoError(t, err)

	archived := models.CommunityStatusArchived
	_, err = svc.UpdateCommunity(ctx, UpdateCommunityInput{
		CommunityID: community.ID, Status: &archived,
	})
	require.NoError(t, err)
	assert.Equal(t, models.CommunityStatusArchived, communityRepo.communities[community.ID].Status)

	// Archived communities drop out of discovery.
	discoverable, err := svc.ListDiscoverable(ctx, 20, 0)
	require.NoError(t, err)
	assert.Empty(t, discoverable)

	// Reactivation brings it back.
	active := models.CommunityStatusActive
	_, err = svc.UpdateCommunity(ctx, UpdateCommunityInput{
		CommunityID: community.ID, Status: &active,
	})
	require.NoError(t, err)
	discoverable, err = svc.ListDiscoverable(ctx, 20, 0)
	require.NoError(t, err)
	assert.Len(t, discoverable, 1)

	// Only the two lifecycle states are accepted.
	bogus := models.CommunityStatus("frozen")
	_, err = svc.UpdateCommunity(ctx, UpdateCommunityInput{
		CommunityID: community.ID, Status: &bogus,
	})
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCommunityService_DeleteCommunity(t *testing.T) {
	ctx := context.Background()
	svc, communityRepo, _, _, _ := newTestCommunityService()

	community, err := svc.CreateCommunity(ctx, CreateCommunityInput{
		OwnerUserID: 7, Name: "Once", Slug: "once",
	})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCommunity(ctx, community.ID))
	_, ok := communityRepo.communities[community.ID]
	assert.False(t, ok)

	err = svc.DeleteCommunity(ctx, community.ID)
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestCommunityService_Boards(t *testing.T) {
	ctx := context.Background()
	svc, _, _, _, _ := newTestCommunityService()

	community, err := svc.CreateCommunity(ctx, CreateCommunityInput{
		OwnerUserID: 7, Name: "Once", Slug: "once",
	})
	require.NoError(t, err)

	board, err := svc.CreateBoard(ctx, CreateBoardInput{
		CommunityID: community.ID, Name: "Announcements", ReadOnly: true,
	})
	require.NoError(t, err)
	// Appended after the auto-created default board.
	assert.Equal(t, 1, board.Position)

	t.Run("Update", func(t *testing.T) {
		desc := "official notices"
		updated, err := svc.UpdateBoard(ctx, UpdateBoardInput{
			CommunityID: community.ID, BoardID: board.ID, Description: &desc,
		})
		require.NoError(t, err)
		assert.Equal(t, desc, updated.Description)
	})

	t.Run("Cross Community Update Rejected", func(t *testing.T) {
		name := "hijack"
		_, err := svc.UpdateBoard(ctx, UpdateBoardInput{
			CommunityID: community.ID + 1, BoardID: board.ID, Name: &name,
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "NOT_FOUND", appErr.Code)
	})

	t.Run("Reorder", func(t *testing.T) {
		boards, err := svc.ListBoards(ctx, community.ID)
		require.NoError(t, err)
		require.Len(t, boards, 2)

		ids := []uint{boards[0].ID, boards[1].ID}
		require.NoError(t, svc.ReorderBoards(ctx, community.ID, []uint{ids[1], ids[0]}))

		err = svc.ReorderBoards(ctx, community.ID, []uint{9999})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})
}
