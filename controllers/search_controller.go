package controllers

import (
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/linklet/linklet/httperr"
	"github.com/linklet/linklet/models"
	"github.com/linklet/linklet/utils"
)

// SearchController serves the cross-entity LIKE search.
type SearchController struct {
	db *gorm.DB
}

// NewSearchController creates a SearchController.
func NewSearchController(db *gorm.DB) *SearchController {
	return &SearchController{db: db}
}

// Search matches posts, users or jobs against a substring query. The type
// parameter selects exactly one entity kind.
func (s *SearchController) Search(ctx *gin.Context) {
	q := strings.TrimSpace(ctx.Query("q"))
	if q == "" {
		utils.Fail(ctx, httperr.BadRequest("q is required"))
		return
	}
	// Literal % and _ in the query would otherwise act as wildcards. The
	// escape character is spelled out so MySQL and sqlite behave alike.
	escaped := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_").Replace(q)
	pattern := "%" + escaped + "%"

	limit, offset := pageParams(ctx)

	switch ctx.Query("type") {
	case "posts":
		var posts []models.Post
		if err := s.db.Preload("User").
			Where("is_deleted = ? AND content LIKE ? ESCAPE '!'", false, pattern).
			Order("id DESC").Limit(limit).Offset(offset).
			Find(&posts).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		utils.OK(ctx, gin.H{"posts": posts, "limit": limit, "offset": offset})
	case "users":
		var users []models.User
		if err := s.db.
			Where("username LIKE ? ESCAPE '!' OR display_name LIKE ? ESCAPE '!'", pattern, pattern).
			Order("id ASC").Limit(limit).Offset(offset).
			Find(&users).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		results := make([]map[string]interface{}, 0, len(users))
		for _, u := range users {
			results = append(results, u.Public())
		}
		utils.OK(ctx, gin.H{"users": results, "limit": limit, "offset": offset})
	case "jobs":
		var jobs []models.JobListing
		if err := s.db.Preload("User").
			Where("title LIKE ? ESCAPE '!' OR company LIKE ? ESCAPE '!' OR skills LIKE ? ESCAPE '!'",
				pattern, pattern, pattern).
			Order("id DESC").Limit(limit).Offset(offset).
			Find(&jobs).Error; err != nil {
			utils.Fail(ctx, httperr.Internal(err))
			return
		}
		utils.OK(ctx, gin.H{"jobs": jobs, "limit": limit, "offset": offset})
	default:
		utils.Fail(ctx, httperr.BadRequest("type must be posts, users or jobs"))
	}
}
