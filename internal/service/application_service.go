package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"commung/internal/events"
	"commung/internal/mail"
	"commung/internal/models"
	"commung/internal/observability"
	"commung/internal/repository"
	"commung/internal/validation"

	"gorm.io/gorm"
)

const maxAnswerLen = 4000

// ApplicationService handles the join-application lifecycle: apply, edit,
// cancel, and the moderator review that provisions profile and membership.
type ApplicationService struct {
	appRepo       repository.ApplicationRepository
	communityRepo repository.CommunityRepository
	profileRepo   repository.ProfileRepository
	userRepo      repository.UserRepository
	chatRepo      repository.ChatRepository
	notifications *NotificationService
	mailer        *mail.Mailer
	publisher     *events.Publisher
	now           func() time.Time
}

func NewApplicationService(
	appRepo repository.ApplicationRepository,
	communityRepo repository.CommunityRepository,
	profileRepo repository.ProfileRepository,
	userRepo repository.UserRepository,
	chatRepo repository.ChatRepository,
	notifications *NotificationService,
	mailer *mail.Mailer,
	publisher *events.Publisher,
) *ApplicationService {
	return &ApplicationService{
		appRepo:       appRepo,
		communityRepo: communityRepo,
		profileRepo:   profileRepo,
		userRepo:      userRepo,
		chatRepo:      chatRepo,
		notifications: notifications,
		mailer:        mailer,
		publisher:     publisher,
		now:           time.Now,
	}
}

type ApplyInput struct {
	UserID          uint
	CommunityID     uint
	Answer          string
	ProfileName     string
	ProfileUsername string
	BirthYear       int
}

func (s *ApplicationService) Apply(ctx context.Context, in ApplyInput) (*models.Application, error) {
	community, err := s.communityRepo.GetByID(ctx, in.CommunityID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Community", in.CommunityID)
		}
		return nil, models.NewInternalError(err)
	}

	if community.Status != models.CommunityStatusActive {
		return nil, models.NewValidationError("Community is not accepting applications")
	}
	if !community.RecruitingOpen(s.now()) {
		return nil, models.NewValidationError("Recruiting window is closed")
	}
	if community.MinBirthYear > 0 && in.BirthYear < community.MinBirthYear {
		return nil, models.NewValidationError("Applicant does not meet the age requirement")
	}
	if in.Answer == "" {
		return nil, models.NewValidationError("Answer is required")
	}
	if len(in.Answer) > maxAnswerLen {
		return nil, models.NewValidationError("Answer too long (max 4000 characters)")
	}
	if in.ProfileName == "" {
		return nil, models.NewValidationError("Profile name is required")
	}
	if err := validation.ValidateProfileUsername(in.ProfileUsername); err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	// One profile per user per community.
	if _, err := s.profileRepo.GetByUserAndCommunity(ctx, in.UserID, in.CommunityID); err == nil {
		return nil, models.NewConflictError("Already a member of this community")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	// One pending application per user per community.
	if _, err := s.appRepo.GetPendingByUserAndCommunity(ctx, in.UserID, in.CommunityID); err == nil {
		return nil, models.NewConflictError("An application is already pending")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NewInternalError(err)
	}

	taken, err := s.profileRepo.UsernameTaken(ctx, in.CommunityID, in.ProfileUsername, 0)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if taken {
		return nil, models.NewConflictError("Username is already taken in this community")
	}

	app := &models.Application{
		CommunityID:     in.CommunityID,
		UserID:          in.UserID,
		Answer:          in.Answer,
		ProfileName:     in.ProfileName,
		ProfileUsername: in.ProfileUsername,
		BirthYear:       in.BirthYear,
		Status:          models.ApplicationStatusPending,
	}
	if err := s.appRepo.Create(ctx, app); err != nil {
		return nil, models.NewInternalError(err)
	}

	s.notifications.NotifyModerators(ctx, in.CommunityID, models.NotificationTypeApplication,
		fmt.Sprintf("New application from %s", in.ProfileName))
	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeApplicationReceived,
		CommunityID: in.CommunityID,
		ActorID:     in.UserID,
		SubjectID:   app.ID,
	})

	return app, nil
}

type UpdateApplicationInput struct {
	UserID        uint
	ApplicationID uint
	Answer        string
	ProfileName   string
	Username      string
	BirthYear     int
}

func (s *ApplicationService) UpdateApplication(ctx context.Context, in UpdateApplicationInput) (*models.Application, error) {
	app, err := s.appRepo.GetByID(ctx, in.ApplicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Application", in.ApplicationID)
		}
		return nil, models.NewInternalError(err)
	}

	if app.UserID != in.UserID {
		return nil, models.NewForbiddenError("You can only edit your own application")
	}
	if app.Status != models.ApplicationStatusPending {
		return nil, models.NewConflictError("Only pending applications can be edited")
	}

	if in.Answer != "" {
		if len(in.Answer) > maxAnswerLen {
			return nil, models.NewValidationError("Answer too long (max 4000 characters)")
		}
		app.Answer = in.Answer
	}
	if in.ProfileName != "" {
		app.ProfileName = in.ProfileName
	}
	if in.Username != "" && in.Username != app.ProfileUsername {
		if err := validation.ValidateProfileUsername(in.Username); err != nil {
			return nil, models.NewValidationError(err.Error())
		}
		taken, err := s.profileRepo.UsernameTaken(ctx, app.CommunityID, in.Username, 0)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		if taken {
			return nil, models.NewConflictError("Username is already taken in this community")
		}
		app.ProfileUsername = in.Username
	}
	if in.BirthYear != 0 {
		app.BirthYear = in.BirthYear
	}

	if err := s.appRepo.Update(ctx, app); err != nil {
		return nil, models.NewInternalError(err)
	}
	return app, nil
}

func (s *ApplicationService) CancelApplication(ctx context.Context, userID, applicationID uint) error {
	app, err := s.appRepo.GetByID(ctx, applicationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Application", applicationID)
		}
		return models.NewInternalError(err)
	}
	if app.UserID != userID {
		return models.NewForbiddenError("You can only cancel your own application")
	}
	if app.Status != models.ApplicationStatusPending {
		return models.NewConflictError("Only pending applications can be cancelled")
	}
	if err := s.appRepo.Delete(ctx, applicationID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (s *ApplicationService) ListMine(ctx context.Context, userID uint) ([]*models.Application, error) {
	apps, err := s.appRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return apps, nil
}

func (s *ApplicationService) ListForCommunity(ctx context.Context, communityID uint, status models.ApplicationStatus, limit, offset int) ([]*models.Application, error) {
	apps, err := s.appRepo.ListByCommunity(ctx, communityID, status, limit, offset)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return apps, nil
}

type DecideInput struct {
	ApplicationID     uint
	ReviewerProfileID uint
	Approve           bool
	Note              string
}

// Decide approves or rejects an application. Approval provisions the profile
// and membership and joins the member into the community's default group
// chat, all inside one transaction holding a row lock on the application.
func (s *ApplicationService) Decide(ctx context.Context, in DecideInput) (*models.Application, error) {
	var decided *models.Application

	err := s.appRepo.Decide(ctx, in.ApplicationID, func(tx *gorm.DB, app *models.Application) error {
		if app.Status != models.ApplicationStatusPending {
			return models.NewConflictError("Application has already been reviewed")
		}

		now := s.now()
		app.ReviewedByProfileID = &in.ReviewerProfileID
		app.ReviewNote = in.Note

		if !in.Approve {
			app.Status = models.ApplicationStatusRejected
			decided = app
			return tx.Save(app).Error
		}

		// Username may have been claimed since the application was filed.
		var taken int64
		if err := tx.Model(&models.Profile{}).
			Where("community_id = ? AND username = ?", app.CommunityID, app.ProfileUsername).
			Count(&taken).Error; err != nil {
			return err
		}
		if taken > 0 {
			return models.NewConflictError("Applicant's username has been taken; ask them to update the application")
		}

		profile := &models.Profile{
			CommunityID: app.CommunityID,
			UserID:      &app.UserID,
			Name:        app.ProfileName,
			Username:    app.ProfileUsername,
			BirthYear:   app.BirthYear,
		}
		if err := tx.Create(profile).Error; err != nil {
			return err
		}

		membership := &models.Membership{
			CommunityID: app.CommunityID,
			ProfileID:   profile.ID,
			Role:        models.MembershipRoleMember,
		}
		if err := tx.Create(membership).Error; err != nil {
			return err
		}

		// Join the community-wide group chat if one exists.
		var defaultConv models.Conversation
		convErr := tx.Where("community_id = ? AND is_default = ?", app.CommunityID, true).
			First(&defaultConv).Error
		if convErr == nil {
			participant := &models.ConversationParticipant{
				ConversationID: defaultConv.ID,
				ProfileID:      profile.ID,
				JoinedAt:       now,
			}
			if err := tx.Create(participant).Error; err != nil {
				return err
			}
		} else if !errors.Is(convErr, gorm.ErrRecordNotFound) {
			return convErr
		}

		app.Status = models.ApplicationStatusApproved
		decided = app
		return tx.Save(app).Error
	})
	if err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) {
			return nil, appErr
		}
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Application", in.ApplicationID)
		}
		return nil, models.NewInternalError(err)
	}

	s.afterDecision(ctx, decided, in)
	return decided, nil
}

// afterDecision handles the notification, email, and event side effects.
// Failures here never roll back the decision.
func (s *ApplicationService) afterDecision(ctx context.Context, app *models.Application, in DecideInput) {
	decision := "rejected"
	if in.Approve {
		decision = "approved"
	}
	observability.ApplicationsReviewed.WithLabelValues(decision).Inc()

	community, err := s.communityRepo.GetByID(ctx, app.CommunityID)
	if err != nil {
		return
	}

	if in.Approve {
		if profile, err := s.profileRepo.GetByUserAndCommunity(ctx, app.UserID, app.CommunityID); err == nil {
			s.notifications.Notify(ctx, &models.Notification{
				RecipientProfileID: profile.ID,
				ActorProfileID:     &in.ReviewerProfileID,
				Type:               models.NotificationTypeApplication,
				CommunityID:        app.CommunityID,
				Body:               fmt.Sprintf("Your application to %s was approved", community.Name),
			})
		}
	}

	if user, err := s.userRepo.GetByID(ctx, app.UserID); err == nil && user != nil {
		_ = s.mailer.SendApplicationDecision(user.Email, community.Name, in.Approve, in.Note)
	}

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeApplicationDecided,
		CommunityID: app.CommunityID,
		ActorID:     in.ReviewerProfileID,
		SubjectID:   app.ID,
	})
}
