package service

import (
	"context"
	"errors"
	"time"

	"commung/internal/events"
	"commung/internal/models"
	"commung/internal/repository"
	"commung/internal/validation"

	"gorm.io/gorm"
)

// MembershipService handles member listing, role changes, removal, and mutes.
type MembershipService struct {
	profileRepo repository.ProfileRepository
	publisher   *events.Publisher
	now         func() time.Time
}

func NewMembershipService(profileRepo repository.ProfileRepository, publisher *events.Publisher) *MembershipService {
	return &MembershipService{
		profileRepo: profileRepo,
		publisher:   publisher,
		now:         time.Now,
	}
}

func (s *MembershipService) ListMembers(ctx context.Context, communityID uint, limit, offset int) ([]*models.Membership, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	members, err := s.profileRepo.ListMembers(ctx, communityID, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return members, nil
}

func (s *MembershipService) getMembership(ctx context.Context, communityID, profileID uint) (*models.Membership, error) {
	m, err := s.profileRepo.GetMembership(ctx, communityID, profileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Membership", profileID)
		}
		return nil, models.NewInternalError(err)
	}
	return m, nil
}

type UpdateRoleInput struct {
	CommunityID     uint
	ActorProfileID  uint
	TargetProfileID uint
	Role            models.MembershipRole
}

// UpdateRole changes a member's role. The owner role is never assignable or
// removable here; moderators can only move members between member and
// moderator.
func (s *MembershipService) UpdateRole(ctx context.Context, in UpdateRoleInput) (*models.Membership, error) {
	if in.Role != models.MembershipRoleMember && in.Role != models.MembershipRoleModerator {
		return nil, models.NewValidationError("Role must be member or moderator")
	}

	actor, err := s.getMembership(ctx, in.CommunityID, in.ActorProfileID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate() {
		return nil, models.NewForbiddenError("Only moderators can change roles")
	}

	target, err := s.getMembership(ctx, in.CommunityID, in.TargetProfileID)
	if err != nil {
		return nil, err
	}
	if target.Role == models.MembershipRoleOwner {
		return nil, models.NewForbiddenError("The owner's role cannot be changed")
	}
	if target.Role == in.Role {
		return target, nil
	}

	target.Role = in.Role
	if err := s.profileRepo.UpdateMembership(ctx, target); err != nil {
		return nil, models.NewInternalError(err)
	}

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeMemberRoleChanged,
		CommunityID: in.CommunityID,
		ActorID:     in.ActorProfileID,
		SubjectID:   in.TargetProfileID,
	})
	return target, nil
}

func (s *MembershipService) RemoveMember(ctx context.Context, communityID, actorProfileID, targetProfileID uint) error {
	actor, err := s.getMembership(ctx, communityID, actorProfileID)
	if err != nil {
		return err
	}
	if !actor.CanModerate() && actorProfileID != targetProfileID {
		return models.NewForbiddenError("Only moderators can remove members")
	}

	target, err := s.getMembership(ctx, communityID, targetProfileID)
	if err != nil {
		return err
	}
	if target.Role == models.MembershipRoleOwner {
		return models.NewForbiddenError("The owner cannot be removed")
	}
	// Moderators cannot remove other moderators; that takes the owner.
	if target.Role == models.MembershipRoleModerator &&
		actor.Role != models.MembershipRoleOwner &&
		actorProfileID != targetProfileID {
		return models.NewForbiddenError("Only the owner can remove a moderator")
	}

	if err := s.profileRepo.DeleteMembership(ctx, communityID, targetProfileID); err != nil {
		return models.NewInternalError(err)
	}

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeMemberRemoved,
		CommunityID: communityID,
		ActorID:     actorProfileID,
		SubjectID:   targetProfileID,
	})
	return nil
}

type MuteInput struct {
	CommunityID     uint
	ActorProfileID  uint
	TargetProfileID uint
	// Until nil mutes indefinitely.
	Until *time.Time
}

func (s *MembershipService) MuteMember(ctx context.Context, in MuteInput) (*models.Membership, error) {
	actor, err := s.getMembership(ctx, in.CommunityID, in.ActorProfileID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate() {
		return nil, models.NewForbiddenError("Only moderators can mute members")
	}

	target, err := s.getMembership(ctx, in.CommunityID, in.TargetProfileID)
	if err != nil {
		return nil, err
	}
	if target.CanModerate() {
		return nil, models.NewForbiddenError("Moderators cannot be muted")
	}
	if in.Until != nil && !in.Until.After(s.now()) {
		return nil, models.NewValidationError("Mute expiry must be in the future")
	}

	now := s.now()
	target.MutedAt = &now
	target.MutedUntil = in.Until
	if err := s.profileRepo.UpdateMembership(ctx, target); err != nil {
		return nil, models.NewInternalError(err)
	}
	return target, nil
}

func (s *MembershipService) UnmuteMember(ctx context.Context, communityID, actorProfileID, targetProfileID uint) (*models.Membership, error) {
	actor, err := s.getMembership(ctx, communityID, actorProfileID)
	if err != nil {
		return nil, err
	}
	if !actor.CanModerate() {
		return nil, models.NewForbiddenError("Only moderators can unmute members")
	}

	target, err := s.getMembership(ctx, communityID, targetProfileID)
	if err != nil {
		return nil, err
	}
	target.MutedAt = nil
	target.MutedUntil = nil
	if err := s.profileRepo.UpdateMembership(ctx, target); err != nil {
		return nil, models.NewInternalError(err)
	}
	return target, nil
}

type UpdateProfileInput struct {
	UserID    uint
	ProfileID uint

	Name       *string
	Username   *string
	Bio        *string
	PictureURL *string
}

// UpdateProfile edits the caller's own community profile. Bot profiles are
// managed through the bot console, not here.
func (s *MembershipService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.Profile, error) {
	profile, err := s.profileRepo.GetByID(ctx, in.ProfileID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Profile", in.ProfileID)
		}
		return nil, models.NewInternalError(err)
	}
	if profile.UserID == nil || *profile.UserID != in.UserID {
		return nil, models.NewForbiddenError("Profile does not belong to you")
	}

	if in.Name != nil {
		if *in.Name == "" || len(*in.Name) > 50 {
			return nil, models.NewValidationError("Name must be 1-50 characters")
		}
		profile.Name = *in.Name
	}
	if in.Username != nil && *in.Username != profile.Username {
		if err := validation.ValidateProfileUsername(*in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		taken, err := s.profileRepo.UsernameTaken(ctx, profile.CommunityID, *in.Username, profile.ID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if taken {
			return nil, models.NewConflictError("Username is already taken in this community")
		}
		profile.Username = *in.Username
	}
	if in.Bio != nil {
		profile.Bio = *in.Bio
	}
	if in.PictureURL != nil {
		profile.PictureURL = *in.PictureURL
	}

	if err := s.profileRepo.Update(ctx, profile); err != nil {
		return nil, models.NewInternalError(err)
	}
	return profile, nil
}
