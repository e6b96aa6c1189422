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

// CommunityService handles console-side community and board management.
type CommunityService struct {
	communityRepo repository.CommunityRepository
	boardRepo     repository.BoardRepository
	profileRepo   repository.ProfileRepository
	chatRepo      repository.ChatRepository
	publisher     *events.Publisher
	now           func() time.Time
}

func NewCommunityService(
	communityRepo repository.CommunityRepository,
	boardRepo repository.BoardRepository,
	profileRepo repository.ProfileRepository,
	chatRepo repository.ChatRepository,
	publisher *events.Publisher,
) *CommunityService {
	return &CommunityService{
		communityRepo: communityRepo,
		boardRepo:     boardRepo,
		profileRepo:   profileRepo,
		chatRepo:      chatRepo,
		publisher:     publisher,
		now:           time.Now,
	}
}

type CreateCommunityInput struct {
	OwnerUserID     uint
	Name            string
	Slug            string
	Description     string
	StartsAt        *time.Time
	EndsAt          *time.Time
	RecruitOpensAt  *time.Time
	RecruitClosesAt *time.Time
	CustomDomain    string
	BannerURL       string
	Hashtags        string
	MinBirthYear    int
	OwnerName       string
	OwnerUsername   string
}

// CreateCommunity provisions a community together with its owner profile,
// owner membership, a default board, and the community-wide group chat.
func (s *CommunityService) CreateCommunity(ctx context.Context, in CreateCommunityInput) (*models.Community, error) {
	if in.Name == "" {
		return nil, models.NewValidationError("Name is required")
	}
	if err := validation.ValidateCommunitySlug(in.Slug); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDateWindow("schedule", in.StartsAt, in.EndsAt); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDateWindow("recruiting", in.RecruitOpensAt, in.RecruitClosesAt); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.OwnerUsername == "" {
		in.OwnerUsername = "owner"
	}
	if err := validation.ValidateProfileUsername(in.OwnerUsername); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	taken, err := s.communityRepo.SlugTaken(ctx, in.Slug, 0)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if taken {
		return nil, models.NewConflictError("Slug is already taken")
	}

	community := &models.Community{
		Name:            in.Name,
		Slug:            in.Slug,
		Description:     in.Description,
		StartsAt:        in.StartsAt,
		EndsAt:          in.EndsAt,
		RecruitOpensAt:  in.RecruitOpensAt,
		RecruitClosesAt: in.RecruitClosesAt,
		CustomDomain:    in.CustomDomain,
		BannerURL:       in.BannerURL,
		Hashtags:        in.Hashtags,
		MinBirthYear:    in.MinBirthYear,
		OwnerUserID:     in.OwnerUserID,
		Status:          models.CommunityStatusActive,
	}
	if err := s.communityRepo.Create(ctx, community); err != nil {
		return nil, models.NewInternalError(err)
	}

	ownerName := in.OwnerName
	if ownerName == "" {
		ownerName = in.Name + " owner"
	}
	profile := &models.Profile{
		CommunityID: community.ID,
		UserID:      &in.OwnerUserID,
		Name:        ownerName,
		Username:    in.OwnerUsername,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.profileRepo.CreateMembership(ctx, &models.Membership{
		CommunityID: community.ID,
		ProfileID:   profile.ID,
		Role:        models.MembershipRoleOwner,
	}); err != nil {
		return nil, models.NewInternalError(err)
	}

	if err := s.boardRepo.Create(ctx, &models.Board{
		CommunityID: community.ID,
		Name:        "General",
		Position:    0,
	}); err != nil {
		return nil, models.NewInternalError(err)
	}

	conv := &models.Conversation{
		CommunityID:        community.ID,
		Name:               in.Name,
		IsGroup:            true,
		IsDefault:          true,
		CreatedByProfileID: &profile.ID,
	}
	if err := s.chatRepo.CreateConversation(ctx, conv); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.chatRepo.AddParticipant(ctx, conv.ID, profile.ID); err != nil {
		return nil, models.NewInternalError(err)
	}

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeCommunityCreated,
		CommunityID: community.ID,
		ActorID:     in.OwnerUserID,
	})

	return community, nil
}

func (s *CommunityService) GetCommunity(ctx context.Context, id uint) (*models.Community, error) {
	community, err := s.communityRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", id)
		}
		return nil, models.NewInternalError(err)
	}
	return community, nil
}

func (s *CommunityService) GetBySlug(ctx context.Context, slug string) (*models.Community, error) {
	community, err := s.communityRepo.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", slug)
		}
		return nil, models.NewInternalError(err)
	}
	return community, nil
}

func (s *CommunityService) ListOwned(ctx context.Context, userID uint) ([]*models.Community, error) {
	communities, err := s.communityRepo.ListOwnedBy(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

func (s *CommunityService) ListDiscoverable(ctx context.Context, limit, offset int) ([]*models.Community, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	communities, err := s.communityRepo.ListDiscoverable(ctx, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return communities, nil
}

// requireActiveCommunity rejects content writes into archived communities.
func requireActiveCommunity(ctx context.Context, repo repository.CommunityRepository, communityID uint) error {
	community, err := repo.GetByID(ctx, communityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Community", communityID)
		}
		return models.NewInternalError(err)
	}
	if community.Status != models.CommunityStatusActive {
		return models.NewForbiddenError("Community is archived")
	}
	return nil
}

type UpdateCommunityInput struct {
	CommunityID     uint
	Name            *string
	Slug            *string
	Description     *string
	StartsAt        *time.Time
	EndsAt          *time.Time
	RecruitOpensAt  *time.Time
	RecruitClosesAt *time.Time
	CustomDomain    *string
	BannerURL       *string
	Hashtags        *string
	MinBirthYear    *int
	Status          *models.CommunityStatus
}

func (s *CommunityService) UpdateCommunity(ctx context.Context, in UpdateCommunityInput) (*models.Community, error) {
	community, err := s.GetCommunity(ctx, in.CommunityID)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, models.NewValidationError("Name cannot be empty")
		}
		community.Name = *in.Name
	}
	if in.Slug != nil && *in.Slug != community.Slug {
		if err := validation.ValidateCommunitySlug(*in.Slug); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		taken, err := s.communityRepo.SlugTaken(ctx, *in.Slug, community.ID)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if taken {
			return nil, models.NewConflictError("Slug is already taken")
		}
		community.Slug = *in.Slug
	}
	if in.Description != nil {
		community.Description = *in.Description
	}
	if in.StartsAt != nil {
		community.StartsAt = in.StartsAt
	}
	if in.EndsAt != nil {
		community.EndsAt = in.EndsAt
	}
	if in.RecruitOpensAt != nil {
		community.RecruitOpensAt = in.RecruitOpensAt
	}
	if in.RecruitClosesAt != nil {
		community.RecruitClosesAt = in.RecruitClosesAt
	}
	if err := validation.ValidateDateWindow("schedule", community.StartsAt, community.EndsAt); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if err := validation.ValidateDateWindow("recruiting", community.RecruitOpensAt, community.RecruitClosesAt); err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.CustomDomain != nil {
		community.CustomDomain = *in.CustomDomain
	}
	if in.BannerURL != nil {
		community.BannerURL = *in.BannerURL
	}
	if in.Hashtags != nil {
		community.Hashtags = *in.Hashtags
	}
	if in.MinBirthYear != nil {
		community.MinBirthYear = *in.MinBirthYear
	}
	if in.Status != nil {
		if *in.Status != models.CommunityStatusActive && *in.Status != models.CommunityStatusArchived {
			return nil, models.NewValidationError("Status must be active or archived")
		}
		community.Status = *in.Status
	}

	if err := s.communityRepo.Update(ctx, community); err != nil {
		return nil, models.NewInternalError(err)
	}
	return community, nil
}

// DeleteCommunity removes the community and everything scoped to it:
// boards, posts, replies, conversations, messages, profiles, memberships,
// applications, bots, tokens, and notifications.
func (s *CommunityService) DeleteCommunity(ctx context.Context, id uint) error {
	if _, err := s.GetCommunity(ctx, id); err != nil {
		return err
	}
	if err := s.communityRepo.Delete(ctx, id); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// MemberCount returns the number of memberships in the community, bot
// profiles included.
func (s *CommunityService) MemberCount(ctx context.Context, id uint) (int64, error) {
	count, err := s.communityRepo.MemberCount(ctx, id)
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return count, nil
}

type CreateBoardInput struct {
	CommunityID uint
	Name        string
	Description string
	ReadOnly    bool
}

func (s *CommunityService) CreateBoard(ctx context.Context, in CreateBoardInput) (*models.Board, error) {
	if in.Name == "" {
		return nil, models.NewValidationError("Board name is required")
	}
	if len(in.Name) > 80 {
		return nil, models.NewValidationError("Board name too long (max 80 characters)")
	}
	if _, err := s.GetCommunity(ctx, in.CommunityID); err != nil {
		return nil, err
	}

	existing, err := s.boardRepo.ListByCommunity(ctx, in.CommunityID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	board := &models.Board{
		CommunityID: in.CommunityID,
		Name:        in.Name,
		Description: in.Description,
		ReadOnly:    in.ReadOnly,
		Position:    len(existing),
	}
	if err := s.boardRepo.Create(ctx, board); err != nil {
		return nil, models.NewInternalError(err)
	}
	return board, nil
}

func (s *CommunityService) ListBoards(ctx context.Context, communityID uint) ([]*models.Board, error) {
	boards, err := s.boardRepo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return boards, nil
}

type UpdateBoardInput struct {
	CommunityID uint
	BoardID     uint
	Name        *string
	Description *string
	ReadOnly    *bool
}

func (s *CommunityService) UpdateBoard(ctx context.Context, in UpdateBoardInput) (*models.Board, error) {
	board, err := s.boardRepo.GetByID(ctx, in.BoardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Board", in.BoardID)
		}
		return nil, models.NewInternalError(err)
	}
	if board.CommunityID != in.CommunityID {
		return nil, models.NewNotFoundError("Board", in.BoardID)
	}

	if in.Name != nil {
		if *in.Name == "" {
			return nil, models.NewValidationError("Board name cannot be empty")
		}
		board.Name = *in.Name
	}
	if in.Description != nil {
		board.Description = *in.Description
	}
	if in.ReadOnly != nil {
		board.ReadOnly = *in.ReadOnly
	}

	if err := s.boardRepo.Update(ctx, board); err != nil {
		return nil, models.NewInternalError(err)
	}
	return board, nil
}

func (s *CommunityService) DeleteBoard(ctx context.Context, communityID, boardID uint) error {
	board, err := s.boardRepo.GetByID(ctx, boardID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Board", boardID)
		}
		return models.NewInternalError(err)
	}
	if board.CommunityID != communityID {
		return models.NewNotFoundError("Board", boardID)
	}
	if err := s.boardRepo.Delete(ctx, boardID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *CommunityService) ReorderBoards(ctx context.Context, communityID uint, orderedIDs []uint) error {
	if len(orderedIDs) == 0 {
		return models.NewValidationError("Board order is required")
	}
	if err := s.boardRepo.Reorder(ctx, communityID, orderedIDs); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewValidationError("Board order references a board outside this community")
		}
		return models.NewInternalError(err)
	}
	return nil
}
