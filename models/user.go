package models

import "time"

// User represents a confirmed account. Passwords are stored as bcrypt hashes only.
// LoginCode holds the pending two-factor code for an in-flight login attempt;
// it is cleared as soon as the code is consumed.
type User struct {
	ID                 uint       `gorm:"primaryKey" json:"id"`
	Username           string     `gorm:"size:20;uniqueIndex;not null" json:"username"`
	DisplayName        string     `gorm:"size:40;not null" json:"display_name"`
	Email              string     `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string     `gorm:"size:255;not null" json:"-"`
	AvatarColor        string     `gorm:"size:16" json:"avatar_color"`
	LoginCode          string     `gorm:"size:8" json:"-"`
	LoginCodeExpiresAt *time.Time `json:"-"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Public returns the subset of fields safe to expose to other users.
func (u User) Public() map[string]interface{} {
	return map[string]interface{}{
		"id":           u.ID,
		"username":     u.Username,
		"display_name": u.DisplayName,
		"avatar_color": u.AvatarColor,
		"created_at":   u.CreatedAt,
	}
}
