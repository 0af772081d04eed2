package models

import "time"

// PostLike marks that a user liked a post. Row existence is the whole
// state: creating it likes, deleting it unlikes, both idempotent.
type PostLike struct {
	PostID    uint      `gorm:"primaryKey" json:"post_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike is the comment counterpart of PostLike.
type CommentLike struct {
	CommentID uint      `gorm:"primaryKey" json:"comment_id"`
	UserID    uint      `gorm:"primaryKey" json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
