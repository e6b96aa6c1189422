package cache

import (
	"context"
	"fmt"
	"time"
)

const (
	CommunityKeyPrefix   = "community:%s"
	ProfileKeyPrefix     = "profile:%d"
	BoardListKeyPrefix   = "community:%d:boards"
	PostKeyPrefix        = "post:%d"
	TimelineKeyPrefix    = "community:%d:timeline"
	UnreadCountKeyPrefix = "profile:%d:unread"
)

const (
	CommunityTTL   = 10 * time.Minute
	ProfileTTL     = 5 * time.Minute
	BoardListTTL   = 10 * time.Minute
	PostTTL        = 30 * time.Minute
	TimelineTTL    = 1 * time.Minute
	UnreadCountTTL = 30 * time.Second
)

func CommunityKey(slug string) string {
	return fmt.Sprintf(CommunityKeyPrefix, slug)
}

func ProfileKey(profileID uint) string {
	return fmt.Sprintf(ProfileKeyPrefix, profileID)
}

func BoardListKey(communityID uint) string {
	return fmt.Sprintf(BoardListKeyPrefix, communityID)
}

func PostKey(postID uint) string {
	return fmt.Sprintf(PostKeyPrefix, postID)
}

func TimelineKey(communityID uint) string {
	return fmt.Sprintf(TimelineKeyPrefix, communityID)
}

func UnreadCountKey(profileID uint) string {
	return fmt.Sprintf(UnreadCountKeyPrefix, profileID)
}

func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

func InvalidateCommunity(ctx context.Context, slug string) {
	Invalidate(ctx, CommunityKey(slug))
}

func InvalidateProfile(ctx context.Context, profileID uint) {
	Invalidate(ctx, ProfileKey(profileID))
}

func InvalidateBoards(ctx context.Context, communityID uint) {
	Invalidate(ctx, BoardListKey(communityID))
	Invalidate(ctx, TimelineKey(communityID))
}

func InvalidatePost(ctx context.Context, postID uint, communityID uint) {
	Invalidate(ctx, PostKey(postID))
	Invalidate(ctx, TimelineKey(communityID))
}
