package models

import "time"

// Comment is a node in a reply tree. Exactly one of PostID (root-level
// comment) or ParentID (reply to another comment) is set; the handlers
// reject both-set and neither-set payloads before insert since MySQL has
// no cheap way to express the exclusivity as a column constraint here.
// Soft-deleted comments stay in place so ancestor walks can pass through
// them.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	PostID    *uint     `gorm:"index" json:"post_id"`
	ParentID  *uint     `gorm:"index" json:"parent_id"`
	Content   string    `gorm:"size:255;not null" json:"content"`
	IsDeleted bool      `gorm:"not null;default:false" json:"is_deleted"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	User      User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"author"`
}
