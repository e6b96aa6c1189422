package service

import (
	"context"
	"time"

	"commung/internal/models"
	"commung/internal/repository"

	"gorm.io/gorm"
)

// In-memory repository stubs. Each test builds its own instances, so no
// locking is needed.

type membershipKey struct {
	communityID uint
	profileID   uint
}

type stubProfileRepo struct {
	profiles    map[uint]*models.Profile
	memberships map[membershipKey]*models.Membership
	nextID      uint
}

func newStubProfileRepo() *stubProfileRepo {
	return &stubProfileRepo{
		profiles:    make(map[uint]*models.Profile),
		memberships: make(map[membershipKey]*models.Membership),
	}
}

func (r *stubProfileRepo) Create(_ context.Context, p *models.Profile) error {
	if p.ID == 0 {
		r.nextID++
		p.ID = r.nextID
	} else if p.ID > r.nextID {
		r.nextID = p.ID
	}
	r.profiles[p.ID] = p
	return nil
}

func (r *stubProfileRepo) GetByID(_ context.Context, id uint) (*models.Profile, error) {
	p, ok := r.profiles[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubProfileRepo) GetByUserAndCommunity(_ context.Context, userID, communityID uint) (*models.Profile, error) {
	for _, p := range r.profiles {
		if p.UserID != nil && *p.UserID == userID && p.CommunityID == communityID {
			return p, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubProfileRepo) ListByUser(_ context.Context, userID uint) ([]*models.Profile, error) {
	var out []*models.Profile
	for _, p := range r.profiles {
		if p.UserID != nil && *p.UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (r *stubProfileRepo) Update(_ context.Context, p *models.Profile) error {
	r.profiles[p.ID] = p
	return nil
}

func (r *stubProfileRepo) UsernameTaken(_ context.Context, communityID uint, username string, excludeID uint) (bool, error) {
	for _, p := range r.profiles {
		if p.CommunityID == communityID && p.Username == username && p.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubProfileRepo) CreateMembership(_ context.Context, m *models.Membership) error {
	r.memberships[membershipKey{m.CommunityID, m.ProfileID}] = m
	return nil
}

func (r *stubProfileRepo) GetMembership(_ context.Context, communityID, profileID uint) (*models.Membership, error) {
	m, ok := r.memberships[membershipKey{communityID, profileID}]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return m, nil
}

func (r *stubProfileRepo) ListMembers(_ context.Context, communityID uint, limit, offset int) ([]*models.Membership, error) {
	var out []*models.Membership
	for _, m := range r.memberships {
		if m.CommunityID != communityID {
			continue
		}
		if m.Profile == nil {
			m.Profile = r.profiles[m.ProfileID]
		}
		out = append(out, m)
	}
	return out, nil
}

func (r *stubProfileRepo) UpdateMembership(_ context.Context, m *models.Membership) error {
	r.memberships[membershipKey{m.CommunityID, m.ProfileID}] = m
	return nil
}

func (r *stubProfileRepo) DeleteMembership(_ context.Context, communityID, profileID uint) error {
	delete(r.memberships, membershipKey{communityID, profileID})
	return nil
}

// addMember seeds a profile with a membership in one call.
func (r *stubProfileRepo) addMember(communityID, profileID uint, username string, role models.MembershipRole) *models.Membership {
	r.profiles[profileID] = &models.Profile{
		ID:          profileID,
		CommunityID: communityID,
		Name:        username,
		Username:    username,
	}
	if profileID > r.nextID {
		r.nextID = profileID
	}
	m := &models.Membership{CommunityID: communityID, ProfileID: profileID, Role: role}
	r.memberships[membershipKey{communityID, profileID}] = m
	return m
}

type stubBoardRepo struct {
	boards map[uint]*models.Board
	nextID uint
}

func newStubBoardRepo() *stubBoardRepo {
	return &stubBoardRepo{boards: make(map[uint]*models.Board)}
}

func (r *stubBoardRepo) Create(_ context.Context, b *models.Board) error {
	if b.ID == 0 {
		r.nextID++
		b.ID = r.nextID
	} else if b.ID > r.nextID {
		r.nextID = b.ID
	}
	r.boards[b.ID] = b
	return nil
}

func (r *stubBoardRepo) GetByID(_ context.Context, id uint) (*models.Board, error) {
	b, ok := r.boards[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return b, nil
}

func (r *stubBoardRepo) ListByCommunity(_ context.Context, communityID uint) ([]*models.Board, error) {
	var out []*models.Board
	for _, b := range r.boards {
		if b.CommunityID == communityID {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *stubBoardRepo) Update(_ context.Context, b *models.Board) error {
	r.boards[b.ID] = b
	return nil
}

func (r *stubBoardRepo) Delete(_ context.Context, id uint) error {
	delete(r.boards, id)
	return nil
}

func (r *stubBoardRepo) Reorder(_ context.Context, communityID uint, orderedIDs []uint) error {
	for pos, id := range orderedIDs {
		b, ok := r.boards[id]
		if !ok || b.CommunityID != communityID {
			return gorm.ErrRecordNotFound
		}
		b.Position = pos
	}
	return nil
}

type stubPostRepo struct {
	posts       map[uint]*models.BoardPost
	replies     map[uint]*models.Reply
	nextPostID  uint
	nextReplyID uint
}

func newStubPostRepo() *stubPostRepo {
	return &stubPostRepo{
		posts:   make(map[uint]*models.BoardPost),
		replies: make(map[uint]*models.Reply),
	}
}

func (r *stubPostRepo) Create(_ context.Context, p *models.BoardPost) error {
	r.nextPostID++
	p.ID = r.nextPostID
	p.CreatedAt = time.Now()
	r.posts[p.ID] = p
	return nil
}

func (r *stubPostRepo) GetByID(_ context.Context, id uint) (*models.BoardPost, error) {
	p, ok := r.posts[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return p, nil
}

func (r *stubPostRepo) ListByBoard(_ context.Context, boardID uint, _ repository.Cursor, limit int) ([]*models.BoardPost, error) {
	var out []*models.BoardPost
	for _, p := range r.posts {
		if p.BoardID == boardID {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubPostRepo) Timeline(_ context.Context, communityID uint, _ repository.Cursor, limit int) ([]*models.BoardPost, error) {
	var out []*models.BoardPost
	for _, p := range r.posts {
		if p.CommunityID == communityID {
			out = append(out, p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubPostRepo) Update(_ context.Context, p *models.BoardPost) error {
	r.posts[p.ID] = p
	return nil
}

func (r *stubPostRepo) Delete(_ context.Context, id uint) error {
	delete(r.posts, id)
	return nil
}

func (r *stubPostRepo) SetPinned(_ context.Context, id uint, pinned bool) error {
	p, ok := r.posts[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.Pinned = pinned
	return nil
}

func (r *stubPostRepo) CreateReply(_ context.Context, reply *models.Reply) error {
	r.nextReplyID++
	reply.ID = r.nextReplyID
	reply.CreatedAt = time.Now()
	r.replies[reply.ID] = reply
	return nil
}

func (r *stubPostRepo) GetReply(_ context.Context, id uint) (*models.Reply, error) {
	reply, ok := r.replies[id]
	if !ok || reply.DeletedAt.Valid {
		return nil, gorm.ErrRecordNotFound
	}
	return reply, nil
}

func (r *stubPostRepo) ListReplies(_ context.Context, postID uint) ([]*models.Reply, error) {
	var out []*models.Reply
	for id := uint(1); id <= r.nextReplyID; id++ {
		if reply, ok := r.replies[id]; ok && reply.PostID == postID {
			out = append(out, reply)
		}
	}
	return out, nil
}

/// DeleteReply soft-deletes like the real repository: the row stays listed.
func (r *stubPostRepo) DeleteReply(_ context.Context, id uint) error {
	reply, ok := r.replies[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	reply.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	return nil
}

type participantKey struct {
	convID    uint
	profileID uint
}

type stubChatRepo struct {
	conversations map[uint]*models.Conversation
	participants  map[participantKey]*models.ConversationParticipant
	messages      map[uint]*models.Message
	reactions     []*models.MessageReaction
	nextConvID    uint
	nextMsgID     uint
}

func newStubChatRepo() *stubChatRepo {
	return &stubChatRepo{
		conversations: make(map[uint]*models.Conversation),
		participants:  make(map[participantKey]*models.ConversationParticipant),
		messages:      make(map[uint]*models.Message),
	}
}

func (r *stubChatRepo) CreateConversation(_ context.Context, conv *models.Conversation) error {
	r.nextConvID++
	conv.ID = r.nextConvID
	r.conversations[conv.ID] = conv
	return nil
}

func (r *stubChatRepo) GetConversation(_ context.Context, id uint) (*models.Conversation, error) {
	conv, ok := r.conversations[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return conv, nil
}

func (r *stubChatRepo) FindDirectConversation(_ context.Context, communityID, profileA, profileB uint) (*models.Conversation, error) {
	for _, conv := range r.conversations {
		if conv.CommunityID != communityID || conv.IsGroup {
			continue
		}
		_, hasA := r.participants[participantKey{conv.ID, profileA}]
		_, hasB := r.participants[participantKey{conv.ID, profileB}]
		if !hasA || !hasB {
			continue
		}
		others := 0
		for key := range r.participants {
			if key.convID == conv.ID && key.profileID != profileA && key.profileID != profileB {
				others++
			}
		}
		if others == 0 {
			return conv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubChatRepo) GetDefaultConversation(_ context.Context, communityID uint) (*models.Conversation, error) {
	for _, conv := range r.conversations {
		if conv.CommunityID == communityID && conv.IsDefault {
			return conv, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubChatRepo) ListConversations(_ context.Context, communityID, profileID uint) ([]*models.Conversation, error) {
	var out []*models.Conversation
	for _, conv := range r.conversations {
		if conv.CommunityID != communityID {
			continue
		}
		if _, ok := r.participants[participantKey{conv.ID, profileID}]; ok {
			out = append(out, conv)
		}
	}
	return out, nil
}

func (r *stubChatRepo) AddParticipant(_ context.Context, convID, profileID uint) error {
	key := participantKey{convID, profileID}
	if _, ok := r.participants[key]; ok {
		return nil
	}
	r.participants[key] = &models.ConversationParticipant{
		ConversationID: convID,
		ProfileID:      profileID,
		JoinedAt:       time.Now(),
	}
	conv := r.conversations[convID]
	conv.Participants = append(conv.Participants, models.Profile{ID: profileID})
	return nil
}

func (r *stubChatRepo) RemoveParticipant(_ context.Context, convID, profileID uint) error {
	delete(r.participants, participantKey{convID, profileID})
	return nil
}

func (r *stubChatRepo) IsParticipant(_ context.Context, convID, profileID uint) (bool, error) {
	_, ok := r.participants[participantKey{convID, profileID}]
	return ok, nil
}

func (r *stubChatRepo) CreateMessage(_ context.Context, msg *models.Message) error {
	r.nextMsgID++
	msg.ID = r.nextMsgID
	msg.CreatedAt = time.Now()
	r.messages[msg.ID] = msg
	return nil
}

func (r *stubChatRepo) GetMessage(_ context.Context, id uint) (*models.Message, error) {
	msg, ok := r.messages[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return msg, nil
}

func (r *stubChatRepo) ListMessages(_ context.Context, convID uint, _ repository.Cursor, limit int) ([]*models.Message, error) {
	var out []*models.Message
	for id := uint(1); id <= r.nextMsgID; id++ {
		if msg, ok := r.messages[id]; ok && msg.ConversationID == convID {
			out = append(out, msg)
		}
	}
	if len(out) > limit {
		out = out[len(out)-limit:]
	}
	return out, nil
}

func (r *stubChatRepo) UpdateLastRead(_ context.Context, convID, profileID uint, at time.Time) error {
	p, ok := r.participants[participantKey{convID, profileID}]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	p.LastReadAt = &at
	return nil
}

func (r *stubChatRepo) UnreadCount(_ context.Context, convID, profileID uint) (int64, error) {
	p, ok := r.participants[participantKey{convID, profileID}]
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	var count int64
	for _, msg := range r.messages {
		if msg.ConversationID != convID || msg.SenderProfileID == profileID {
			continue
		}
		if p.LastReadAt == nil || msg.CreatedAt.After(*p.LastReadAt) {
			count++
		}
	}
	return count, nil
}

func (r *stubChatRepo) AddReaction(_ context.Context, reaction *models.MessageReaction) error {
	for _, existing := range r.reactions {
		if existing.MessageID == reaction.MessageID &&
			existing.ProfileID == reaction.ProfileID &&
			existing.Emoji == reaction.Emoji {
			return nil
		}
	}
	r.reactions = append(r.reactions, reaction)
	return nil
}

func (r *stubChatRepo) RemoveReaction(_ context.Context, messageID, profileID uint, emoji string) error {
	kept := r.reactions[:0]
	for _, reaction := range r.reactions {
		if reaction.MessageID == messageID && reaction.ProfileID == profileID && reaction.Emoji == emoji {
			continue
		}
		kept = append(kept, reaction)
	}
	r.reactions = kept
	return nil
}

type stubNotificationRepo struct {
	notifications []*models.Notification
	nextID        uint
}

func newStubNotificationRepo() *stubNotificationRepo {
	return &stubNotificationRepo{}
}

func (r *stubNotificationRepo) Create(_ context.Context, n *models.Notification) error {
	r.nextID++
	n.ID = r.nextID
	n.CreatedAt = time.Now()
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *stubNotificationRepo) CreateBatch(ctx context.Context, ns []*models.Notification) error {
	for _, n := range ns {
		if err := r.Create(ctx, n); err != nil {
			return err
		}
	}
	return nil
}

func (r *stubNotificationRepo) GetByID(_ context.Context, id uint) (*models.Notification, error) {
	for _, n := range r.notifications {
		if n.ID == id {
			return n, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubNotificationRepo) ListByRecipient(_ context.Context, profileID uint, unreadOnly bool, _ repository.Cursor, limit int) ([]*models.Notification, error) {
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.RecipientProfileID != profileID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubNotificationRepo) UnreadCount(_ context.Context, profileID uint) (int64, error) {
	var count int64
	for _, n := range r.notifications {
		if n.RecipientProfileID == profileID && !n.Read {
			count++
		}
	}
	return count, nil
}

func (r *stubNotificationRepo) MarkRead(_ context.Context, id uint, at time.Time) error {
	for _, n := range r.notifications {
		if n.ID == id {
			n.Read = true
			n.ReadAt = &at
		}
	}
	return nil
}

func (r *stubNotificationRepo) MarkAllRead(_ context.Context, profileID uint, at time.Time) error {
	for _, n := range r.notifications {
		if n.RecipientProfileID == profileID && !n.Read {
			n.Read = true
			n.ReadAt = &at
		}
	}
	return nil
}

// forRecipient filters stored notifications by recipient.
func (r *stubNotificationRepo) forRecipient(profileID uint) []*models.Notification {
	var out []*models.Notification
	for _, n := range r.notifications {
		if n.RecipientProfileID == profileID {
			out = append(out, n)
		}
	}
	return out
}

type stubBotRepo struct {
	bots        map[uint]*models.Bot
	tokens      map[uint]*models.BotToken
	nextBotID   uint
	nextTokenID uint
}

func newStubBotRepo() *stubBotRepo {
	return &stubBotRepo{
		bots:   make(map[uint]*models.Bot),
		tokens: make(map[uint]*models.BotToken),
	}
}

func (r *stubBotRepo) Create(_ context.Context, bot *models.Bot) error {
	r.nextBotID++
	bot.ID = r.nextBotID
	r.bots[bot.ID] = bot
	return nil
}

func (r *stubBotRepo) GetByID(_ context.Context, id uint) (*models.Bot, error) {
	bot, ok := r.bots[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return bot, nil
}

func (r *stubBotRepo) ListByCommunity(_ context.Context, communityID uint) ([]*models.Bot, error) {
	var out []*models.Bot
	for _, bot := range r.bots {
		if bot.CommunityID == communityID {
			out = append(out, bot)
		}
	}
	return out, nil
}

func (r *stubBotRepo) Update(_ context.Context, bot *models.Bot) error {
	r.bots[bot.ID] = bot
	return nil
}

func (r *stubBotRepo) Delete(_ context.Context, id uint) error {
	delete(r.bots, id)
	return nil
}

func (r *stubBotRepo) CreateToken(_ context.Context, token *models.BotToken) error {
	r.nextTokenID++
	token.ID = r.nextTokenID
	token.CreatedAt = time.Now()
	r.tokens[token.ID] = token
	return nil
}

func (r *stubBotRepo) GetTokenByHash(_ context.Context, hash string) (*models.BotToken, error) {
	for _, token := range r.tokens {
		if token.TokenHash == hash {
			return token, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubBotRepo) ListTokens(_ context.Context, botID uint) ([]*models.BotToken, error) {
	var out []*models.BotToken
	for _, token := range r.tokens {
		if token.BotID == botID {
			out = append(out, token)
		}
	}
	return out, nil
}

func (r *stubBotRepo) RevokeToken(_ context.Context, id uint, at time.Time) error {
	token, ok := r.tokens[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if token.RevokedAt == nil {
		token.RevokedAt = &at
	}
	return nil
}

func (r *stubBotRepo) TouchToken(_ context.Context, id uint, at time.Time) error {
	token, ok := r.tokens[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	token.LastUsedAt = &at
	return nil
}

type stubCommunityRepo struct {
	communities map[uint]*models.Community
	nextID      uint
}

func newStubCommunityRepo() *stubCommunityRepo {
	return &stubCommunityRepo{communities: make(map[uint]*models.Community)}
}

func (r *stubCommunityRepo) Create(_ context.Context, c *models.Community) error {
	r.nextID++
	c.ID = r.nextID
	r.communities[c.ID] = c
	return nil
}

func (r *stubCommunityRepo) GetByID(_ context.Context, id uint) (*models.Community, error) {
	c, ok := r.communities[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *stubCommunityRepo) GetBySlug(_ context.Context, slug string) (*models.Community, error) {
	for _, c := range r.communities {
		if c.Slug == slug {
			return c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubCommunityRepo) ListOwnedBy(_ context.Context, userID uint) ([]*models.Community, error) {
	var out []*models.Community
	for _, c := range r.communities {
		if c.OwnerUserID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *stubCommunityRepo) ListDiscoverable(_ context.Context, limit, offset int) ([]*models.Community, error) {
	var out []*models.Community
	for _, c := range r.communities {
		if c.Status == models.CommunityStatusActive {
			out = append(out, c)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *stubCommunityRepo) Update(_ context.Context, c *models.Community) error {
	r.communities[c.ID] = c
	return nil
}

func (r *stubCommunityRepo) Delete(_ context.Context, id uint) error {
	if _, ok := r.communities[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(r.communities, id)
	return nil
}

func (r *stubCommunityRepo) SlugTaken(_ context.Context, slug string, excludeID uint) (bool, error) {
	for _, c := range r.communities {
		if c.Slug == slug && c.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (r *stubCommunityRepo) MemberCount(_ context.Context, _ uint) (int64, error) {
	return 0, nil
}
