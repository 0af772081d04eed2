package controllers

import (
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linklet/linklet/httperr"
	"github.com/linklet/linklet/middleware"
	"github.com/linklet/linklet/models"
	"github.com/linklet/linklet/utils"
)

const (
	maxCommentContentLen = 255

	// maxThreadDepth bounds the ancestor walk so a corrupted parent chain
	// (or a cycle introduced by hand-edited data) cannot loop forever.
	maxThreadDepth = 50
)

// CommentController manages the reply tree hanging off posts.
type CommentController struct {
	db *gorm.DB
}

// NewCommentController creates a CommentController.
func NewCommentController(db *gorm.DB) *CommentController {
	return &CommentController{db: db}
}

// commentView is a listed comment plus its counters and the viewer's
// liked state.
type commentView struct {
	models.Comment
	TotalLikes int64 `json:"total_likes"`
	ReplyCount int64 `json:"reply_count"`
	Liked      bool  `json:"liked"`
}

// CreateComment adds a root comment on a post (postId set) or a reply to
// another comment (parentId set). Exactly one of the two must be present.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	var req struct {
		PostID   *uint  `json:"postId"`
		ParentID *uint  `json:"parentId"`
		Content  string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}

	if (req.PostID == nil) == (req.ParentID == nil) {
		utils.Fail(ctx, httperr.BadRequest("exactly one of postId or parentId must be set"))
		return
	}

	content := strings.TrimSpace(utils.Sanitize(req.Content))
	if content == "" {
		utils.Fail(ctx, httperr.BadRequest("content is required"))
		return
	}
	if len([]rune(content)) > maxCommentContentLen {
		utils.Fail(ctx, httperr.BadRequest("content must be at most 255 characters"))
		return
	}

	if req.PostID != nil {
		var post models.Post
		if err := c.db.Where("is_deleted = ?", false).First(&post, *req.PostID).Error; err != nil {
			utils.Fail(ctx, httperr.NotFound("post not found"))
			return
		}
	} else {
		var parent models.Comment
		if err := c.db.Where("is_deleted = ?", false).First(&parent, *req.ParentID).Error; err != nil {
			utils.Fail(ctx, httperr.NotFound("parent comment not found"))
			return
		}
	}

	comment := models.Comment{
		UserID:   ctx.GetUint(middleware.ContextUserIDKey),
		PostID:   req.PostID,
		ParentID: req.ParentID,
		Content:  content,
	}
	if err := c.db.Create(&comment).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if err := c.db.Preload("User").First(&comment, comment.ID).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.InvalidateByPrefix(postCachePrefix)
	utils.Created(ctx, gin.H{"comment": comment})
}

// ListComments returns either the root comments of a post (?postId=) or the
// direct replies of a comment (?parentId=), oldest first.
func (c *CommentController) ListComments(ctx *gin.Context) {
	postIDStr := ctx.Query("postId")
	parentIDStr := ctx.Query("parentId")
	if (postIDStr == "") == (parentIDStr == "") {
		utils.Fail(ctx, httperr.BadRequest("exactly one of postId or parentId must be set"))
		return
	}

	query := c.db.Model(&models.Comment{}).Preload("User").Where("is_deleted = ?", false)
	if postIDStr != "" {
		id, err := strconv.ParseUint(postIDStr, 10, 64)
		if err != nil {
			utils.Fail(ctx, httperr.BadRequest("invalid postId"))
			return
		}
		query = query.Where("post_id = ?", uint(id))
	} else {
		id, err := strconv.ParseUint(parentIDStr, 10, 64)
		if err != nil {
			utils.Fail(ctx, httperr.BadRequest("invalid parentId"))
			return
		}
		query = query.Where("parent_id = ?", uint(id))
	}

	limit, offset := pageParams(ctx)
	var comments []models.Comment
	if err := query.Order("id ASC").Limit(limit).Offset(offset).Find(&comments).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	viewerID, hasViewer := viewer(ctx)
	views := make([]commentView, 0, len(comments))
	for _, comment := range comments {
		view := commentView{Comment: comment}
		if err := c.db.Model(&models.CommentLike{}).
			Where("comment_id = ?", comment.ID).Count(&view.TotalLikes).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		if err := c.db.Model(&models.Comment{}).
			Where("parent_id = ? AND is_deleted = ?", comment.ID, false).
			Count(&view.ReplyCount).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		if hasViewer {
			var n int64
			if err := c.db.Model(&models.CommentLike{}).
				Where("comment_id = ? AND user_id = ?", comment.ID, viewerID).
				Count(&n).Error; err != nil {
				utils.Fail(ctx, httperr.Internal(err))
				return
			}
			view.Liked = n > 0
		}
		views = append(views, view)
	}

	utils.OK(ctx, gin.H{"comments": views, "limit": limit, "offset": offset})
}

// threadNode is one hop of an ancestor chain. Soft-deleted ancestors stay
// in the chain, flagged, with their content withheld.
type threadNode struct {
	ID        uint                   `json:"id"`
	UserID    uint                   `json:"user_id"`
	ParentID  *uint                  `json:"parent_id"`
	PostID    *uint                  `json:"post_id"`
	Content   string                 `json:"content"`
	IsDeleted bool                   `json:"is_deleted"`
	Author    map[string]interface{} `json:"author"`
	CreatedAt time.Time              `json:"created_at"`
}

// GetThread walks the parent chain from a comment up to the post it hangs
// off and returns the chain root-to-leaf together with the post id. The
// walk loads one row per hop and gives up after maxThreadDepth hops.
func (c *CommentController) GetThread(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid comment id"))
		return
	}

	chain := make([]threadNode, 0, 8)
	var postID *uint
	currentID := uint(id)

	for depth := 0; ; depth++ {
		if depth >= maxThreadDepth {
			utils.Fail(ctx, httperr.BadRequest("comment thread too deep"))
			return
		}

		var comment models.Comment
		if err := c.db.Preload("User").First(&comment, currentID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				if depth == 0 {
					utils.Fail(ctx, httperr.NotFound("comment not found"))
				} else {
					utils.Fail(ctx, httperr.NotFound("comment thread is broken"))
				}
				return
			}
			utils.Fail(ctx, httperr.Internal(err))
			return
		}

		node := threadNode{
			ID:        comment.ID,
			UserID:    comment.UserID,
			ParentID:  comment.ParentID,
			PostID:    comment.PostID,
			Content:   comment.Content,
			IsDeleted: comment.IsDeleted,
			Author:    comment.User.Public(),
			CreatedAt: comment.CreatedAt,
		}
		if comment.IsDeleted {
			node.Content = ""
		}
		chain = append(chain, node)

		if comment.PostID != nil {
			postID = comment.PostID
			break
		}
		if comment.ParentID == nil {
			utils.Fail(ctx, httperr.NotFound("comment thread is broken"))
			return
		}
		currentID = *comment.ParentID
	}

	// The walk collected leaf-to-root; flip it.
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}

	utils.OK(ctx, gin.H{"post_id": postID, "thread": chain})
}

// DeleteComment soft-deletes the caller's own comment. The row stays so
// replies and thread walks keep working.
func (c *CommentController) DeleteComment(ctx *gin.Context) {
	comment, err := c.findComment(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if comment.UserID != ctx.GetUint(middleware.ContextUserIDKey) {
		utils.Fail(ctx, httperr.Forbidden("you can only delete your own comments"))
		return
	}

	comment.IsDeleted = true
	if err := c.db.Save(comment).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.InvalidateByPrefix(postCachePrefix)
	utils.OK(ctx, gin.H{"message": "comment deleted"})
}

// LikeComment records a like; repeat likes are no-ops.
func (c *CommentController) LikeComment(ctx *gin.Context) {
	comment, err := c.findComment(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	like := models.CommentLike{CommentID: comment.ID, UserID: ctx.GetUint(middleware.ContextUserIDKey)}
	if err := c.db.Where(&like).FirstOrCreate(&like).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	c.respondWithLikeCount(ctx, comment.ID, true)
}

// UnlikeComment removes a like; repeat unlikes are no-ops.
func (c *CommentController) UnlikeComment(ctx *gin.Context) {
	comment, err := c.findComment(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	if err := c.db.Where("comment_id = ? AND user_id = ?", comment.ID, ctx.GetUint(middleware.ContextUserIDKey)).
		Delete(&models.CommentLike{}).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	c.respondWithLikeCount(ctx, comment.ID, false)
}

func (c *CommentController) respondWithLikeCount(ctx *gin.Context, commentID uint, liked bool) {
	var total int64
	if err := c.db.Model(&models.CommentLike{}).
		Where("comment_id = ?", commentID).Count(&total).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	utils.OK(ctx, gin.H{"comment_id": commentID, "total_likes": total, "liked": liked})
}

func (c *CommentController) findComment(ctx *gin.Context) (*models.Comment, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, httperr.BadRequest("invalid comment id")
	}
	var comment models.Comment
	if err := c.db.Where("is_deleted = ?", false).First(&comment, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("comment not found")
		}
		return nil, httperr.Internal(err)
	}
	return &comment, nil
}
