package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"
	"time"

	"commung/internal/events"
	"commung/internal/models"
	"commung/internal/observability"
	"commung/internal/repository"

	"gorm.io/gorm"
)

// Bot tokens are shown once at issue time; only the SHA-256 hash is stored.
const botTokenPrefix = "cmb_"

// BotService manages service-account bots, their profiles, and API tokens.
type BotService struct {
	botRepo     repository.BotRepository
	profileRepo repository.ProfileRepository
	publisher   *events.Publisher
	now         func() time.Time
}

func NewBotService(
	botRepo repository.BotRepository,
	profileRepo repository.ProfileRepository,
	publisher *events.Publisher,
) *BotService {
	return &BotService{
		botRepo:     botRepo,
		profileRepo: profileRepo,
		publisher:   publisher,
		now:         time.Now,
	}
}

type CreateBotInput struct {
	CommunityID     uint
	CreatedByUserID uint
	Name            string
	Username        string
}

// CreateBot provisions the bot together with its profile and membership. The
// profile has no user account behind it.
func (s *BotService) CreateBot(ctx context.Context, in CreateBotInput) (*models.Bot, error) {
	if in.Name == "" {
		return nil, models.NewValidationError("Bot name is required")
	}
	if len(in.Name) > 80 {
		return nil, models.NewValidationError("Bot name too long (max 80 characters)")
	}
	if in.Username == "" {
		in.Username = strings.ToLower(strings.ReplaceAll(in.Name, " ", "_"))
	}

	taken, err := s.profileRepo.UsernameTaken(ctx, in.CommunityID, in.Username, 0)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	if taken {
		return nil, models.NewConflictError("Username is already taken in this community")
	}

	profile := &models.Profile{
		CommunityID: in.CommunityID,
		Name:        in.Name,
		Username:    in.Username,
		IsBot:       true,
	}
	if err := s.profileRepo.Create(ctx, profile); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.profileRepo.CreateMembership(ctx, &models.Membership{
		CommunityID: in.CommunityID,
		ProfileID:   profile.ID,
		Role:        models.MembershipRoleMember,
	}); err != nil {
		return nil, models.NewInternalError(err)
	}

	bot := &models.Bot{
		CommunityID:     in.CommunityID,
		ProfileID:       profile.ID,
		Name:            in.Name,
		CreatedByUserID: in.CreatedByUserID,
	}
	if err := s.botRepo.Create(ctx, bot); err != nil {
		return nil, models.NewInternalError(err)
	}
	bot.Profile = profile
	return bot, nil
}

func (s *BotService) GetBot(ctx context.Context, communityID, botID uint) (*models.Bot, error) {
	bot, err := s.botRepo.GetByID(ctx, botID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewNotFoundError("Bot", botID)
		}
		return nil, models.NewInternalError(err)
	}
	if bot.CommunityID != communityID {
		return nil, models.NewNotFoundError("Bot", botID)
	}
	return bot, nil
}

func (s *BotService) ListBots(ctx context.Context, communityID uint) ([]*models.Bot, error) {
	bots, err := s.botRepo.ListByCommunity(ctx, communityID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return bots, nil
}

func (s *BotService) DeleteBot(ctx context.Context, communityID, botID uint) error {
	bot, err := s.GetBot(ctx, communityID, botID)
	if err != nil {
		return err
	}
	for _, token := range bot.Tokens {
		if !token.Revoked() {
			if err := s.botRepo.RevokeToken(ctx, token.ID, s.now()); err != nil {
				return models.NewInternalError(err)
			}
		}
	}
	if err := s.botRepo.Delete(ctx, botID); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// IssuedToken carries the plaintext exactly once; it is never stored or
// retrievable again.
type IssuedToken struct {
	Token     *models.BotToken `json:"token"`
	Plaintext string           `json:"plaintext"`
}

func (s *BotService) IssueToken(ctx context.Context, communityID, botID, actorUserID uint) (*IssuedToken, error) {
	bot, err := s.GetBot(ctx, communityID, botID)
	if err != nil {
		return nil, err
	}

	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, models.NewInternalError(err)
	}
	plaintext := botTokenPrefix + hex.EncodeToString(raw)
	hash := sha256.Sum256([]byte(plaintext))

	token := &models.BotToken{
		BotID:     bot.ID,
		TokenHash: hex.EncodeToString(hash[:]),
		Prefix:    plaintext[:12],
	}
	if err := s.botRepo.CreateToken(ctx, token); err != nil {
		return nil, models.NewInternalError(err)
	}

	_ = s.publisher.Publish(ctx, events.Event{
		Type:        events.TypeBotTokenIssued,
		CommunityID: communityID,
		ActorID:     actorUserID,
		SubjectID:   bot.ID,
	})

	return &IssuedToken{Token: token, Plaintext: plaintext}, nil
}

func (s *BotService) ListTokens(ctx context.Context, communityID, botID uint) ([]*models.BotToken, error) {
	if _, err := s.GetBot(ctx, communityID, botID); err != nil {
		return nil, err
	}
	tokens, err := s.botRepo.ListTokens(ctx, botID)
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return tokens, nil
}

func (s *BotService) RevokeToken(ctx context.Context, communityID, botID, tokenID uint) error {
	if _, err := s.GetBot(ctx, communityID, botID); err != nil {
		return err
	}
	tokens, err := s.botRepo.ListTokens(ctx, botID)
	if err != nil {
		return models.NewInternalError(err)
	}
	for _, token := range tokens {
		if token.ID == tokenID {
			if err := s.botRepo.RevokeToken(ctx, tokenID, s.now()); err != nil {
				return models.NewInternalError(err)
			}
			return nil
		}
	}
	return models.NewNotFoundError("Token", tokenID)
}

// VerifyToken authenticates a bot API request. It returns the bot whose
// unrevoked token hashes to the presented plaintext.
func (s *BotService) VerifyToken(ctx context.Context, plaintext string) (*models.Bot, error) {
	if !strings.HasPrefix(plaintext, botTokenPrefix) {
		observability.BotRequests.WithLabelValues("rejected").Inc()
		return nil, models.NewUnauthorizedError("Malformed bot token")
	}

	hash := sha256.Sum256([]byte(plaintext))
	token, err := s.botRepo.GetTokenByHash(ctx, hex.EncodeToString(hash[:]))
	if err != nil {
		observability.BotRequests.WithLabelValues("rejected").Inc()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, models.NewUnauthorizedError("Unknown bot token")
		}
		return nil, models.NewInternalError(err)
	}
	if token.Revoked() {
		observability.BotRequests.WithLabelValues("rejected").Inc()
		return nil, models.NewUnauthorizedError("Bot token revoked")
	}

	bot, err := s.botRepo.GetByID(ctx, token.BotID)
	if err != nil {
		observability.BotRequests.WithLabelValues("rejected").Inc()
		return nil, models.NewInternalError(err)
	}

	_ = s.botRepo.TouchToken(ctx, token.ID, s.now())
	observability.BotRequests.WithLabelValues("accepted").Inc()
	return bot, nil
}
