package routes

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sendMessage(t *testing.T, env *testEnv, cookies []*http.Cookie, receiverID uint, content string) {
	t.Helper()
	w := env.doJSON(t, http.MethodPost, "/api/messages", map[string]interface{}{
		"receiver_id": receiverID, "content": content,
	}, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(t)
	alice := env.verifiedUser(t, "alice", "alice@example.com")
	aliceID := env.userID(t, "alice")

	w := env.doJSON(t, http.MethodPost, "/api/messages", map[string]interface{}{
		"receiver_id": aliceID, "content": "hi me",
	}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code, "cannot message yourself")

	w = env.doJSON(t, http.MethodPost, "/api/messages", map[string]interface{}{
		"receiver_id": 9999, "content": "hello?",
	}, alice)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/messages", map[string]interface{}{
		"receiver_id": aliceID + 1, "content": "",
	}, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConversationGroupingAndUnread(t *testing.T) {
	env := newTestEnv(t)
	alice := env.verifiedUser(t, "alice", "alice@example.com")
	bob := env.verifiedUser(t, "bob", "bob@example.com")
	carol := env.verifiedUser(t, "carol", "carol@example.com")

	aliceID := env.userID(t, "alice")
	bobID := env.userID(t, "bob")

	sendMessage(t, env, bob, aliceID, "hi from bob")
	sendMessage(t, env, bob, aliceID, "still here")
	sendMessage(t, env, carol, aliceID, "hi from carol")

	w := env.doJSON(t, http.MethodGet, "/api/messages/conversations", nil, alice)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	conversations := decode(t, w)["conversations"].([]interface{})
	require.Len(t, conversations, 2, "one entry per counterpart")

	newest := conversations[0].(map[string]interface{})
	assert.Equal(t, "carol", newest["user"].(map[string]interface{})["username"], "latest activity first")
	assert.EqualValues(t, 1, newest["unread_count"])

	older := conversations[1].(map[string]interface{})
	assert.Equal(t, "bob", older["user"].(map[string]interface{})["username"])
	assert.EqualValues(t, 2, older["unread_count"])
	assert.Equal(t, "still here",
		older["last_message"].(map[string]interface{})["content"])

	// opening the history marks bob's messages read
	w = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/messages/%d", bobID), nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	messages := decode(t, w)["messages"].([]interface{})
	require.Len(t, messages, 2)
	assert.Equal(t, "still here", messages[0].(map[string]interface{})["content"], "newest first")

	w = env.doJSON(t, http.MethodGet, "/api/messages/conversations", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	conversations = decode(t, w)["conversations"].([]interface{})
	for _, c := range conversations {
		conv := c.(map[string]interface{})
		if conv["user"].(map[string]interface{})["username"] == "bob" {
			assert.EqualValues(t, 0, conv["unread_count"])
		}
	}

	// carol sees the same thread from her side with no unread entries from alice yet
	w = env.doJSON(t, http.MethodGet, "/api/messages/conversations", nil, carol)
	require.Equal(t, http.StatusOK, w.Code)
	carolConvs := decode(t, w)["conversations"].([]interface{})
	require.Len(t, carolConvs, 1)
	assert.EqualValues(t, 0, carolConvs[0].(map[string]interface{})["unread_count"])
}

func TestConversationHistoryRequiresAuth(t *testing.T) {
	env := newTestEnv(t)
	w := env.doJSON(t, http.MethodGet, "/api/messages/conversations", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
