package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
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
	maxPostContentLen = 255
	defaultPageSize   = 10
	maxPageSize       = 10

	postCachePrefix = "posts:"
	postCacheTTL    = 5 * time.Minute
)

// PostController serves the post feed and the like toggles on posts.
type PostController struct {
	db *gorm.DB
}

// NewPostController creates a PostController.
func NewPostController(db *gorm.DB) *PostController {
	return &PostController{db: db}
}

// postView is a feed item: the post plus its aggregate counters and
// whether the current viewer liked it.
type postView struct {
	models.Post
	TotalLikes    int64 `json:"total_likes"`
	TotalComments int64 `json:"total_comments"`
	Liked         bool  `json:"liked"`
}

// CreatePost publishes a new post for the authenticated user.
func (p *PostController) CreatePost(ctx *gin.Context) {
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Fail(ctx, httperr.BadRequest("invalid request payload"))
		return
	}

	content := strings.TrimSpace(utils.Sanitize(req.Content))
	if content == "" {
		utils.Fail(ctx, httperr.BadRequest("content is required"))
		return
	}
	if len([]rune(content)) > maxPostContentLen {
		utils.Fail(ctx, httperr.BadRequest("content must be at most 255 characters"))
		return
	}

	post := models.Post{
		UserID:  ctx.GetUint(middleware.ContextUserIDKey),
		Content: content,
	}
	if err := p.db.Create(&post).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if err := p.db.Preload("User").First(&post, post.ID).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.InvalidateByPrefix(postCachePrefix)
	utils.Created(ctx, gin.H{"post": post})
}

// ListPosts returns the feed, newest first, with like/comment counts. The
// anonymous page is cached in Redis; viewer-specific liked flags are
// computed per request on top of it.
func (p *PostController) ListPosts(ctx *gin.Context) {
	limit, offset := pageParams(ctx)
	viewerID, hasViewer := viewer(ctx)

	cacheKey := fmt.Sprintf("%slist:%d:%d", postCachePrefix, limit, offset)
	var views []postView
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		if err := json.Unmarshal(b, &views); err != nil {
			views = nil
		}
	}

	if views == nil {
		var posts []models.Post
		if err := p.db.Preload("User").
			Where("is_deleted = ?", false).
			Order("id DESC").Limit(limit).Offset(offset).
			Find(&posts).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}

		views = make([]postView, 0, len(posts))
		for _, post := range posts {
			view := postView{Post: post}
			if err := p.countPost(&view); err != nil {
				utils.Fail(ctx, httperr.Internal(err))
				return
			}
			views = append(views, view)
		}
		utils.CacheSetJSON(cacheKey, views, postCacheTTL)
	}

	if hasViewer {
		for i := range views {
			liked, err := p.viewerLikedPost(views[i].ID, viewerID)
			if err != nil {
				utils.Fail(ctx, httperr.Internal(err))
				return
			}
			views[i].Liked = liked
		}
	}

	utils.OK(ctx, gin.H{"posts": views, "limit": limit, "offset": offset})
}

// GetPost returns a single post with its counters.
func (p *PostController) GetPost(ctx *gin.Context) {
	post, err := p.findPost(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	view := postView{Post: *post}
	if err := p.countPost(&view); err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	if viewerID, ok := viewer(ctx); ok {
		liked, err := p.viewerLikedPost(post.ID, viewerID)
		if err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		view.Liked = liked
	}

	utils.OK(ctx, gin.H{"post": view})
}

// DeletePost soft-deletes the caller's own post.
func (p *PostController) DeletePost(ctx *gin.Context) {
	post, err := p.findPost(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	if post.UserID != ctx.GetUint(middleware.ContextUserIDKey) {
		utils.Fail(ctx, httperr.Forbidden("you can only delete your own posts"))
		return
	}

	post.IsDeleted = true
	if err := p.db.Save(post).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.InvalidateByPrefix(postCachePrefix)
	utils.OK(ctx, gin.H{"message": "post deleted"})
}

// LikePost records a like; liking twice is a no-op.
func (p *PostController) LikePost(ctx *gin.Context) {
	post, err := p.findPost(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	like := models.PostLike{PostID: post.ID, UserID: ctx.GetUint(middleware.ContextUserIDKey)}
	if err := p.db.Where(&like).FirstOrCreate(&like).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.InvalidateByPrefix(postCachePrefix)
	p.respondWithLikeCount(ctx, post.ID, true)
}

// UnlikePost removes a like; unliking an un-liked post is a no-op.
func (p *PostController) UnlikePost(ctx *gin.Context) {
	post, err := p.findPost(ctx)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	if err := p.db.Where("post_id = ? AND user_id = ?", post.ID, ctx.GetUint(middleware.ContextUserIDKey)).
		Delete(&models.PostLike{}).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}

	utils.InvalidateByPrefix(postCachePrefix)
	p.respondWithLikeCount(ctx, post.ID, false)
}

func (p *PostController) respondWithLikeCount(ctx *gin.Context, postID uint, liked bool) {
	var total int64
	if err := p.db.Model(&models.PostLike{}).Where("post_id = ?", postID).Count(&total).Error; err != nil {
		utils.Fail(ctx, httperr.Internal(err))
		return
	}
	utils.OK(ctx, gin.H{"post_id": postID, "total_likes": total, "liked": liked})
}

func (p *PostController) findPost(ctx *gin.Context) (*models.Post, error) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		return nil, httperr.BadRequest("invalid post id")
	}
	var post models.Post
	if err := p.db.Preload("User").Where("is_deleted = ?", false).First(&post, uint(id)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, httperr.NotFound("post not found")
		}
		return nil, httperr.Internal(err)
	}
	return &post, nil
}

func (p *PostController) countPost(view *postView) error {
	if err := p.db.Model(&models.PostLike{}).
		Where("post_id = ?", view.ID).Count(&view.TotalLikes).Error; err != nil {
		return err
	}
	return p.db.Model(&models.Comment{}).
		Where("post_id = ? AND is_deleted = ?", view.ID, false).
		Count(&view.TotalComments).Error
}

func (p *PostController) viewerLikedPost(postID, viewerID uint) (bool, error) {
	var n int64
	err := p.db.Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, viewerID).Count(&n).Error
	return n > 0, err
}

// pageParams reads limit/offset query params and clamps the page size.
func pageParams(ctx *gin.Context) (limit, offset int) {
	limit, _ = strconv.Atoi(ctx.DefaultQuery("limit", strconv.Itoa(defaultPageSize)))
	offset, _ = strconv.Atoi(ctx.DefaultQuery("offset", "0"))
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// viewer returns the authenticated user id when OptionalAuth resolved one.
func viewer(ctx *gin.Context) (uint, bool) {
	v, ok := ctx.Get(middleware.ContextUserIDKey)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}
