package routes

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/linklet/linklet/models"
)

func createComment(t *testing.T, env *testEnv, cookies []*http.Cookie, body map[string]interface{}) uint {
	t.Helper()
	w := env.doJSON(t, http.MethodPost, "/api/comments", body, cookies)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	comment := decode(t, w)["comment"].(map[string]interface{})
	return uint(comment["id"].(float64))
}

func TestCreateRootCommentAndReply(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")
	postID := createPost(t, env, cookies, "discuss")

	rootID := createComment(t, env, cookies, map[string]interface{}{
		"postId": postID, "content": "root comment",
	})
	replyID := createComment(t, env, cookies, map[string]interface{}{
		"parentId": rootID, "content": "a reply",
	})

	var reply models.Comment
	require.NoError(t, env.db.First(&reply, replyID).Error)
	assert.Nil(t, reply.PostID, "replies hang off the parent, not the post")
	require.NotNil(t, reply.ParentID)
	assert.Equal(t, rootID, *reply.ParentID)

	var root models.Comment
	require.NoError(t, env.db.First(&root, rootID).Error)
	require.NotNil(t, root.PostID)
	assert.Equal(t, postID, *root.PostID)
	assert.Nil(t, root.ParentID)
}

func TestCommentTargetExclusivity(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")
	postID := createPost(t, env, cookies, "discuss")
	rootID := createComment(t, env, cookies, map[string]interface{}{
		"postId": postID, "content": "root",
	})

	w := env.doJSON(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"postId": postID, "parentId": rootID, "content": "both targets",
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"content": "no target",
	}, cookies)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCommentOnMissingTargets(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")

	w := env.doJSON(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"postId": 9999, "content": "into the void",
	}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.doJSON(t, http.MethodPost, "/api/comments", map[string]interface{}{
		"parentId": 9999, "content": "into the void",
	}, cookies)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListCommentsOldestFirstWithCounts(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")
	postID := createPost(t, env, cookies, "discuss")

	firstID := createComment(t, env, cookies, map[string]interface{}{
		"postId": postID, "content": "first",
	})
	createComment(t, env, cookies, map[string]interface{}{
		"postId": postID, "content": "second",
	})
	createComment(t, env, cookies, map[string]interface{}{
		"parentId": firstID, "content": "reply to first",
	})
	w := env.doJSON(t, http.MethodPatch, fmt.Sprintf("/api/comments/%d/like", firstID), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/comments?postId=%d", postID), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	comments := decode(t, w)["comments"].([]interface{})
	require.Len(t, comments, 2, "replies are not root comments")

	first := comments[0].(map[string]interface{})
	assert.Equal(t, "first", first["content"], "oldest first")
	assert.EqualValues(t, 1, first["total_likes"])
	assert.EqualValues(t, 1, first["reply_count"])
	assert.Equal(t, true, first["liked"])

	second := comments[1].(map[string]interface{})
	assert.EqualValues(t, 0, second["total_likes"])
	assert.Equal(t, false, second["liked"])
}

func TestListCommentsRequiresExactlyOneTarget(t *testing.T) {
	env := newTestEnv(t)

	w := env.doJSON(t, http.MethodGet, "/api/comments", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.doJSON(t, http.MethodGet, "/api/comments?postId=1&parentId=2", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// buildChain inserts a root comment on postID followed by depth-1 linked
// replies, returning the leaf id. Rows go straight into the database since
// the walk only cares about the linkage.
func buildChain(t *testing.T, env *testEnv, userID, postID uint, depth int) (rootID, leafID uint) {
	t.Helper()

	root := models.Comment{UserID: userID, PostID: &postID, Content: "depth 0"}
	require.NoError(t, env.db.Create(&root).Error)
	rootID = root.ID

	parentID := root.ID
	for i := 1; i < depth; i++ {
		pid := parentID
		reply := models.Comment{UserID: userID, ParentID: &pid, Content: fmt.Sprintf("depth %d", i)}
		require.NoError(t, env.db.Create(&reply).Error)
		parentID = reply.ID
	}
	return rootID, parentID
}

func TestThreadWalkDeepChain(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")
	postID := createPost(t, env, cookies, "deep thread")
	userID := env.userID(t, "alice")

	rootID, leafID := buildChain(t, env, userID, postID, 50)

	w := env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/comments/%d/thread", leafID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, postID, body["post_id"])

	thread := body["thread"].([]interface{})
	require.Len(t, thread, 50)

	first := thread[0].(map[string]interface{})
	assert.EqualValues(t, rootID, first["id"], "chain is root-to-leaf")
	assert.EqualValues(t, postID, first["post_id"])

	last := thread[len(thread)-1].(map[string]interface{})
	assert.EqualValues(t, leafID, last["id"])
}

func TestThreadWalkDepthBound(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")
	postID := createPost(t, env, cookies, "too deep")
	userID := env.userID(t, "alice")

	_, leafID := buildChain(t, env, userID, postID, 60)

	w := env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/comments/%d/thread", leafID), nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestThreadKeepsSoftDeletedAncestors(t *testing.T) {
	env := newTestEnv(t)
	cookies := env.verifiedUser(t, "alice", "alice@example.com")
	postID := createPost(t, env, cookies, "discuss")

	rootID := createComment(t, env, cookies, map[string]interface{}{
		"postId": postID, "content": "root",
	})
	midID := createComment(t, env, cookies, map[string]interface{}{
		"parentId": rootID, "content": "middle",
	})
	leafID := createComment(t, env, cookies, map[string]interface{}{
		"parentId": midID, "content": "leaf",
	})

	w := env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", midID), nil, cookies)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.doJSON(t, http.MethodGet, fmt.Sprintf("/api/comments/%d/thread", leafID), nil, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	thread := decode(t, w)["thread"].([]interface{})
	require.Len(t, thread, 3)

	mid := thread[1].(map[string]interface{})
	assert.Equal(t, true, mid["is_deleted"])
	assert.Empty(t, mid["content"], "deleted ancestors keep their place but lose their text")
}

func TestDeleteCommentAuthorOnly(t *testing.T) {
	env := newTestEnv(t)
	alice := env.verifiedUser(t, "alice", "alice@example.com")
	bob := env.verifiedUser(t, "bob", "bob@example.com")
	postID := createPost(t, env, alice, "discuss")
	commentID := createComment(t, env, alice, map[string]interface{}{
		"postId": postID, "content": "mine",
	})

	w := env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, bob)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.doJSON(t, http.MethodDelete, fmt.Sprintf("/api/comments/%d", commentID), nil, alice)
	assert.Equal(t, http.StatusOK, w.Code)
}
