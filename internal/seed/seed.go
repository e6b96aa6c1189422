// Package seed provides database seeding utilities for development and
// testing. Not intended for production use.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"commung/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options configures a seeding run.
type Options struct {
	NumUsers       int
	NumCommunities int
	PostsPerBoard  int
	ShouldClean    bool
}

var communityThemes = []struct {
	name string
	slug string
	tags string
}{
	{"Morning Writers", "morning-writers", "writing,creative"},
	{"Trail Runners", "trail-runners", "running,outdoors"},
	{"Indie Game Devs", "indie-game-devs", "gamedev,programming"},
	{"Home Baristas", "home-baristas", "coffee,food"},
	{"Night Sky Watchers", "night-sky", "astronomy,science"},
	{"Book Circle", "book-circle", "books,reading"},
}

var boardNames = []string{"General", "Introductions", "Show and Tell", "Questions", "Off Topic"}

// Seed populates the database with users, communities, members, posts, and
// chat activity.
func Seed(db *gorm.DB, opts Options) error {
	gofakeit.Seed(time.Now().UnixNano())
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	if opts.NumUsers <= 0 {
		opts.NumUsers = 30
	}
	if opts.NumCommunities <= 0 || opts.NumCommunities > len(communityThemes) {
		opts.NumCommunities = 3
	}
	if opts.PostsPerBoard <= 0 {
		opts.PostsPerBoard = 10
	}

	log.Printf("Seeding %d users across %d communities...", opts.NumUsers, opts.NumCommunities)

	if opts.ShouldClean {
		if err := clearData(db); err != nil {
			log.Println("Warning: could not clear all existing data, continuing anyway...")
		}
	}

	users, err := createUsers(db, opts.NumUsers)
	if err != nil {
		return fmt.Errorf("failed to create users: %w", err)
	}
	log.Printf("created %d users", len(users))

	for i := 0; i < opts.NumCommunities; i++ {
		theme := communityThemes[i]
		owner := users[i%len(users)]
		if err := seedCommunity(db, r, theme.name, theme.slug, theme.tags, owner, users, opts.PostsPerBoard); err != nil {
			return fmt.Errorf("failed to seed community %s: %w", theme.slug, err)
		}
		log.Printf("seeded community %s", theme.slug)
	}

	log.Println("Seeding complete. All test users have the password: Password123!@")
	return nil
}

func clearData(db *gorm.DB) error {
	sql := `TRUNCATE TABLE bot_tokens, bots, notifications, message_reactions, messages,
		conversation_participants, conversations, replies, board_posts, boards,
		applications, memberships, profiles, communities, users RESTART IDENTITY CASCADE;`
	return db.Exec(sql).Error
}

func createUsers(db *gorm.DB, n int) ([]*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte("Password123!@"), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, n)
	for i := 0; i < n; i++ {
		username := fmt.Sprintf("%s%d", strings.ToLower(gofakeit.Word()), i)
		user := &models.User{
			Username: username,
			Email:    fmt.Sprintf("%s@example.com", username),
			Password: string(hashed),
		}
		if err := db.Create(user).Error; err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, nil
}

func seedCommunity(db *gorm.DB, r *rand.Rand, name, slug, tags string, owner *models.User, users []*models.User, postsPerBoard int) error {
	community := &models.Community{
		Name:        name,
		Slug:        slug,
		Description: gofakeit.Paragraph(1, 2, 8, " "),
		Hashtags:    tags,
		OwnerUserID: owner.ID,
		Status:      models.CommunityStatusActive,
	}
	if err := db.Create(community).Error; err != nil {
		return err
	}

	// Owner profile plus a handful of approved members.
	memberUsers := pickMembers(r, users, owner, 8)
	profiles := make([]*models.Profile, 0, len(memberUsers))
	for i, u := range memberUsers {
		uid := u.ID
		role := models.MembershipRoleMember
		if u.ID == owner.ID {
			role = models.MembershipRoleOwner
		} else if i == 1 {
			role = models.MembershipRoleModerator
		}

		profile := &models.Profile{
			CommunityID: community.ID,
			UserID:      &uid,
			Name:        gofakeit.Name(),
			Username:    fmt.Sprintf("%s_%d", strings.ToLower(gofakeit.Word()), u.ID),
			Bio:         gofakeit.Sentence(8),
			BirthYear:   1980 + r.Intn(25),
		}
		if err := db.Create(profile).Error; err != nil {
			return err
		}
		if err := db.Create(&models.Membership{
			CommunityID: community.ID,
			ProfileID:   profile.ID,
			Role:        role,
		}).Error; err != nil {
			return err
		}
		profiles = append(profiles, profile)
	}

	boards, err := createBoards(db, community.ID)
	if err != nil {
		return err
	}
	if err := createPosts(db, r, community.ID, boards, profiles, postsPerBoard); err != nil {
		return err
	}
	return createDefaultChat(db, r, community, profiles)
}

func pickMembers(r *rand.Rand, users []*models.User, owner *models.User, n int) []*models.User {
	members := []*models.User{owner}
	perm := r.Perm(len(users))
	for _, idx := range perm {
		if len(members) >= n {
			break
		}
		if users[idx].ID == owner.ID {
			continue
		}
		members = append(members, users[idx])
	}
	return members
}

func createBoards(db *gorm.DB, communityID uint) ([]*models.Board, error) {
	boards := make([]*models.Board, 0, len(boardNames))
	for i, name := range boardNames {
		board := &models.Board{
			CommunityID: communityID,
			Name:        name,
			Description: gofakeit.Sentence(6),
			Position:    i,
		}
		if err := db.Create(board).Error; err != nil {
			return nil, err
		}
		boards = append(boards, board)
	}
	return boards, nil
}

func createPosts(db *gorm.DB, r *rand.Rand, communityID uint, boards []*models.Board, profiles []*models.Profile, perBoard int) error {
	now := time.Now()
	for _, board := range boards {
		for i := 0; i < perBoard; i++ {
			author := profiles[r.Intn(len(profiles))]
			post := &models.BoardPost{
				BoardID:         board.ID,
				CommunityID:     communityID,
				AuthorProfileID: author.ID,
				Title:           gofakeit.Sentence(4),
				Content:         gofakeit.Paragraph(1, 3, 10, "\n"),
				Pinned:          i == 0 && r.Intn(3) == 0,
				CreatedAt:       now.Add(-time.Duration(r.Intn(60*24*30)) * time.Minute),
			}
			if err := db.Create(post).Error; err != nil {
				return err
			}
			if err := createReplies(db, r, post, profiles); err != nil {
				return err
			}
		}
	}
	return nil
}

// createReplies builds a small thread under a post, occasionally nesting a
// few levels deep.
func createReplies(db *gorm.DB, r *rand.Rand, post *models.BoardPost, profiles []*models.Profile) error {
	count := r.Intn(5)
	var prev *models.Reply
	for i := 0; i < count; i++ {
		author := profiles[r.Intn(len(profiles))]
		reply := &models.Reply{
			PostID:          post.ID,
			AuthorProfileID: author.ID,
			Content:         gofakeit.Sentence(10),
		}
		// Half the replies continue the previous branch.
		if prev != nil && r.Intn(2) == 0 {
			reply.InReplyToID = &prev.ID
			reply.Depth = prev.Depth + 1
		}
		if err := db.Create(reply).Error; err != nil {
			return err
		}
		prev = reply
	}
	return nil
}

func createDefaultChat(db *gorm.DB, r *rand.Rand, community *models.Community, profiles []*models.Profile) error {
	conv := &models.Conversation{
		CommunityID: community.ID,
		Name:        community.Name,
		IsGroup:     true,
		IsDefault:   true,
	}
	if err := db.Create(conv).Error; err != nil {
		return err
	}
	for _, p := range profiles {
		if err := db.Create(&models.ConversationParticipant{
			ConversationID: conv.ID,
			ProfileID:      p.ID,
		}).Error; err != nil {
			return err
		}
	}
	for i := 0; i < 20; i++ {
		sender := profiles[r.Intn(len(profiles))]
		if err := db.Create(&models.Message{
			ConversationID:  conv.ID,
			SenderProfileID: sender.ID,
			Content:         gofakeit.HipsterSentence(8),
		}).Error; err != nil {
			return err
		}
	}
	return nil
}
