package server

import (
	"fmt"
	"net/http"
	"net/url"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectConversationIsIdempotent(t *testing.T) {
	t.Parallel()
	app, fx, _ := newCommunityFixture(t, "Chat Corner", "chat-corner")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/direct?profile_id=%d",
			fx.communityID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"profile_id": fx.ownerProfileID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	firstID := jsonID(t, dataField(t, resp))

	// Either side asking again gets the same conversation back.
	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/direct?profile_id=%d",
			fx.communityID, fx.ownerProfileID),
		fx.ownerToken, fiber.Map{"profile_id": fx.memberProfileID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	secondID := jsonID(t, dataField(t, resp))
	assert.Equal(t, firstID, secondID)
}

func TestMessageFlowAndUnreadCounts(t *testing.T) {
	t.Parallel()
	app, fx, _ := newCommunityFixture(t, "Chat Flow", "chat-flow")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/direct?profile_id=%d",
			fx.communityID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"profile_id": fx.ownerProfileID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convID := jsonID(t, dataField(t, resp))

	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
			fx.communityID, convID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"content": "are you there?"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	// The recipient sees one unread on the conversation list.
	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations?profile_id=%d",
			fx.communityID, fx.ownerProfileID),
		fx.ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convs := decodeBody(t, resp)["data"].([]interface{})
	unread := findConversation(t, convs, convID)
	assert.Equal(t, float64(1), unread["unread_count"])

	// An explicit read mark clears the counter.
	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/read?profile_id=%d",
			fx.communityID, convID, fx.ownerProfileID),
		fx.ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations?profile_id=%d",
			fx.communityID, fx.ownerProfileID),
		fx.ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convs = decodeBody(t, resp)["data"].([]interface{})
	read := findConversation(t, convs, convID)
	assert.Equal(t, float64(0), read["unread_count"])
}

func TestMessageHistoryPagesBackwards(t *testing.T) {
	t.Parallel()
	app, fx, _ := newCommunityFixture(t, "Chat History", "chat-history")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/direct?profile_id=%d",
			fx.communityID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"profile_id": fx.ownerProfileID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convID := jsonID(t, dataField(t, resp))

	for i := 0; i < 5; i++ {
		resp = doJSON(t, app, http.MethodPost,
			fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
				fx.communityID, convID, fx.memberProfileID),
			fx.memberToken, fiber.Map{"content": fmt.Sprintf("message %d", i)})
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		_ = resp.Body.Close()
	}

	// Latest page first, oldest-first within the page.
	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d&limit=2",
			fx.communityID, convID, fx.memberProfileID),
		fx.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	page := body["data"].([]interface{})
	require.Len(t, page, 2)
	assert.Equal(t, "message 3", page[0].(map[string]interface{})["content"])
	assert.Equal(t, "message 4", page[1].(map[string]interface{})["content"])
	assert.Equal(t, true, body["has_more"])
	cursor, _ := body["next_cursor"].(string)
	require.NotEmpty(t, cursor)

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d&limit=2&cursor=%s",
			fx.communityID, convID, fx.memberProfileID, cursor),
		fx.memberToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body = decodeBody(t, resp)
	page = body["data"].([]interface{})
	require.Len(t, page, 2)
	assert.Equal(t, "message 1", page[0].(map[string]interface{})["content"])
	assert.Equal(t, "message 2", page[1].(map[string]interface{})["content"])
}

func TestReactionsRoundTrip(t *testing.T) {
	t.Parallel()
	app, fx, _ := newCommunityFixture(t, "Chat Moods", "chat-moods")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/direct?profile_id=%d",
			fx.communityID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"profile_id": fx.ownerProfileID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convID := jsonID(t, dataField(t, resp))

	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
			fx.communityID, convID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"content": "good news!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	messageID := jsonID(t, dataField(t, resp))

	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages/%d/reactions?profile_id=%d",
			fx.communityID, convID, messageID, fx.ownerProfileID),
		fx.ownerToken, fiber.Map{"emoji": "🎉"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
			fx.communityID, convID, fx.ownerProfileID),
		fx.ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page := decodeBody(t, resp)["data"].([]interface{})
	require.Len(t, page, 1)
	reactions, _ := page[0].(map[string]interface{})["reactions"].([]interface{})
	require.Len(t, reactions, 1)
	assert.Equal(t, "🎉", reactions[0].(map[string]interface{})["emoji"])

	resp = doJSON(t, app, http.MethodDelete,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages/%d/reactions/%s?profile_id=%d",
			fx.communityID, convID, messageID, url.PathEscape("🎉"), fx.ownerProfileID),
		fx.ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
			fx.communityID, convID, fx.ownerProfileID),
		fx.ownerToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	page = decodeBody(t, resp)["data"].([]interface{})
	require.Len(t, page, 1)
	reactions, _ = page[0].(map[string]interface{})["reactions"].([]interface{})
	assert.Empty(t, reactions)
}

func TestGroupConversationMembership(t *testing.T) {
	t.Parallel()
	app, fx, db := newCommunityFixture(t, "Chat Groups", "chat-groups")

	_, thirdToken := createUserToken(t, fx.srv, db, "chat-groups-third")
	thirdProfileID := joinCommunity(t, app, db, fx.communityID, thirdToken, fx.ownerToken, "chat-groups-third")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/group?profile_id=%d",
			fx.communityID, fx.memberProfileID),
		fx.memberToken, fiber.Map{
			"name":            "Planning",
			"participant_ids": []uint{fx.ownerProfileID},
		})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	groupID := jsonID(t, dataField(t, resp))

	// An existing participant brings in the third member, who can then read.
	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/participants?profile_id=%d",
			fx.communityID, groupID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"profile_id": thirdProfileID})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
			fx.communityID, groupID, thirdProfileID),
		thirdToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	// Leaving revokes access.
	resp = doJSON(t, app, http.MethodDelete,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/leave?profile_id=%d",
			fx.communityID, groupID, thirdProfileID),
		thirdToken, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	_ = resp.Body.Close()

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
			fx.communityID, groupID, thirdProfileID),
		thirdToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()

	// Direct conversations cannot be left.
	resp = doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/direct?profile_id=%d",
			fx.communityID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"profile_id": fx.ownerProfileID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	directID := jsonID(t, dataField(t, resp))

	resp = doJSON(t, app, http.MethodDelete,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/leave?profile_id=%d",
			fx.communityID, directID, fx.memberProfileID),
		fx.memberToken, nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestOutsiderCannotReadConversation(t *testing.T) {
	t.Parallel()
	app, fx, db := newCommunityFixture(t, "Chat Privacy", "chat-privacy")

	// A third member who is not in the direct conversation.
	_, outsiderToken := createUserToken(t, fx.srv, db, "chat-privacy-outsider")
	outsiderProfileID := joinCommunity(t, app, db, fx.communityID, outsiderToken, fx.ownerToken, "chat-privacy-outsider")

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/app/communities/%d/conversations/direct?profile_id=%d",
			fx.communityID, fx.memberProfileID),
		fx.memberToken, fiber.Map{"profile_id": fx.ownerProfileID})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	convID := jsonID(t, dataField(t, resp))

	resp = doJSON(t, app, http.MethodGet,
		fmt.Sprintf("/api/app/communities/%d/conversations/%d/messages?profile_id=%d",
			fx.communityID, convID, outsiderProfileID),
		outsiderToken, nil)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	_ = resp.Body.Close()
}

func findConversation(t *testing.T, convs []interface{}, id uint) map[string]interface{} {
	t.Helper()
	for _, item := range convs {
		conv := item.(map[string]interface{})
		if jsonID(t, conv) == id {
			return conv
		}
	}
	t.Fatalf("conversation %d not in list", id)
	return nil
}
