package service

import (
	"context"
	"testing"
	"time"

	"commung/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestMembershipService() (*MembershipService, *stubProfileRepo) {
	profileRepo := newStubProfileRepo()
	return NewMembershipService(profileRepo, nil), profileRepo
}

func TestMembershipService_UpdateRole(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name       string
		actorRole  models.MembershipRole
		targetRole models.MembershipRole
		newRole    models.MembershipRole
		wantCode   string
	}{
		{
			name:       "Owner Promotes Member",
			actorRole:  models.MembershipRoleOwner,
			targetRole: models.MembershipRoleMember,
			newRole:    models.MembershipRoleModerator,
		},
		{
			name:       "Moderator Demotes Moderator",
			actorRole:  models.MembershipRoleModerator,
			targetRole: models.MembershipRoleModerator,
			newRole:    models.MembershipRoleMember,
		},
		{
			name:       "Member Cannot Change Roles",
			actorRole:  models.MembershipRoleMember,
			targetRole: models.MembershipRoleMember,
			newRole:    models.MembershipRoleModerator,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "Owner Role Untouchable",
			actorRole:  models.MembershipRoleModerator,
			targetRole: models.MembershipRoleOwner,
			newRole:    models.MembershipRoleMember,
			wantCode:   "FORBIDDEN",
		},
		{
			name:       "Owner Role Not Assignable",
			actorRole:  models.MembershipRoleOwner,
			targetRole: models.MembershipRoleMember,
			newRole:    models.MembershipRoleOwner,
			wantCode:   "VALIDATION_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, profileRepo := newTestMembershipService()
			profileRepo.addMember(1, 10, "actor", tt.actorRole)
			profileRepo.addMember(1, 20, "target", tt.targetRole)

			updated, err := svc.UpdateRole(ctx, UpdateRoleInput{
				CommunityID:     1,
				ActorProfileID:  10,
				TargetProfileID: 20,
				Role:            tt.newRole,
			})
			if tt.wantCode != "" {
				var appErr *models.AppError
				require.ErrorAs(t, err, &appErr)
				assert.Equal(t, tt.wantCode, appErr.Code)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.newRole, updated.Role)
		})
	}
}

func TestMembershipService_RemoveMember(t *testing.T) {
	ctx := context.Background()

	t.Run("Moderator Removes Member", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod", models.MembershipRoleModerator)
		profileRepo.addMember(1, 20, "member", models.MembershipRoleMember)

		require.NoError(t, svc.RemoveMember(ctx, 1, 10, 20))
		_, err := profileRepo.GetMembership(ctx, 1, 20)
		assert.Error(t, err)
	})

	t.Run("Owner Cannot Be Removed", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod", models.MembershipRoleModerator)
		profileRepo.addMember(1, 1, "owner", models.MembershipRoleOwner)

		err := svc.RemoveMember(ctx, 1, 10, 1)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "FORBIDDEN", appErr.Code)
	})

	t.Run("Moderator Cannot Remove Moderator", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod_a", models.MembershipRoleModerator)
		profileRepo.addMember(1, 20, "mod_b", models.MembershipRoleModerator)

		err := svc.RemoveMember(ctx, 1, 10, 20)
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "FORBIDDEN", appErr.Code)
	})

	t.Run("Member Leaves On Their Own", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 20, "member", models.MembershipRoleMember)

		require.NoError(t, svc.RemoveMember(ctx, 1, 20, 20))
	})
}

func TestMembershipService_UpdateProfile(t *testing.T) {
	ctx := context.Background()
	ownerOf := func(repo *stubProfileRepo, profileID, userID uint) {
		uid := userID
		repo.profiles[profileID].UserID = &uid
	}
	str := func(s string) *string { return &s }

	t.Run("Edits Own Fields", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "casey", models.MembershipRoleMember)
		ownerOf(profileRepo, 10, 100)

		p, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID:    100,
			ProfileID: 10,
			Name:      str("Casey"),
			Bio:       str("hi there"),
		})
		require.NoError(t, err)
		assert.Equal(t, "Casey", p.Name)
		assert.Equal(t, "hi there", p.Bio)
		assert.Equal(t, "casey", p.Username)
	})

	t.Run("Rejects Foreign Profile", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "casey", models.MembershipRoleMember)
		ownerOf(profileRepo, 10, 100)

		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID: 200, ProfileID: 10, Name: str("Hijack"),
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "FORBIDDEN", appErr.Code)
	})

	t.Run("Rejects Bot Profile", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "helper_bot", models.MembershipRoleMember)

		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID: 100, ProfileID: 10, Name: str("Renamed"),
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "FORBIDDEN", appErr.Code)
	})

	t.Run("Rejects Taken Username", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "casey", models.MembershipRoleMember)
		profileRepo.addMember(1, 20, "jordan", models.MembershipRoleMember)
		ownerOf(profileRepo, 10, 100)

		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID: 100, ProfileID: 10, Username: str("jordan"),
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "CONFLICT", appErr.Code)
	})

	t.Run("Rejects Bad Username", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "casey", models.MembershipRoleMember)
		ownerOf(profileRepo, 10, 100)

		_, err := svc.UpdateProfile(ctx, UpdateProfileInput{
			UserID: 100, ProfileID: 10, Username: str("not valid!"),
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})
}

func TestMembershipService_Mute(t *testing.T) {
	ctx := context.Background()

	t.Run("Timed Mute", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod", models.MembershipRoleModerator)
		profileRepo.addMember(1, 20, "member", models.MembershipRoleMember)

		until := time.Now().Add(time.Hour)
		m, err := svc.MuteMember(ctx, MuteInput{
			CommunityID: 1, ActorProfileID: 10, TargetProfileID: 20, Until: &until,
		})
		require.NoError(t, err)
		assert.True(t, m.IsMuted(time.Now()))
		assert.False(t, m.IsMuted(time.Now().Add(2*time.Hour)))
	})

	t.Run("Indefinite Mute", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod", models.MembershipRoleModerator)
		profileRepo.addMember(1, 20, "member", models.MembershipRoleMember)

		m, err := svc.MuteMember(ctx, MuteInput{
			CommunityID: 1, ActorProfileID: 10, TargetProfileID: 20,
		})
		require.NoError(t, err)
		assert.True(t, m.IsMuted(time.Now().Add(1000*time.Hour)))
	})

	t.Run("Past Expiry Rejected", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod", models.MembershipRoleModerator)
		profileRepo.addMember(1, 20, "member", models.MembershipRoleMember)

		until := time.Now().Add(-time.Hour)
		_, err := svc.MuteMember(ctx, MuteInput{
			CommunityID: 1, ActorProfileID: 10, TargetProfileID: 20, Until: &until,
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	})

	t.Run("Moderators Immune", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod_a", models.MembershipRoleModerator)
		profileRepo.addMember(1, 20, "mod_b", models.MembershipRoleModerator)

		_, err := svc.MuteMember(ctx, MuteInput{
			CommunityID: 1, ActorProfileID: 10, TargetProfileID: 20,
		})
		var appErr *models.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "FORBIDDEN", appErr.Code)
	})

	t.Run("Unmute Clears State", func(t *testing.T) {
		svc, profileRepo := newTestMembershipService()
		profileRepo.addMember(1, 10, "mod", models.MembershipRoleModerator)
		profileRepo.addMember(1, 20, "member", models.MembershipRoleMember)

		_, err := svc.MuteMember(ctx, MuteInput{
			CommunityID: 1, ActorProfileID: 10, TargetProfileID: 20,
		})
		require.NoError(t, err)

		m, err := svc.UnmuteMember(ctx, 1, 10, 20)
		require.NoError(t, err)
		assert.False(t, m.IsMuted(time.Now()))
		assert.Nil(t, m.MutedAt)
	})
}
