package models

import "time"

// PendingUser is a staging row for an unverified signup. It mirrors the
// identity fields of User plus the emailed verification code. The row is
// deleted when verification succeeds and swept by the background cleaner
// once the code expires. Username/email uniqueness against both tables is
// enforced at the application boundary, so a repeated signup simply
// refreshes the pending row.
type PendingUser struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	Username      string    `gorm:"size:20;index;not null" json:"username"`
	DisplayName   string    `gorm:"size:40;not null" json:"display_name"`
	Email         string    `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash  string    `gorm:"size:255;not null" json:"-"`
	Code          string    `gorm:"size:8;not null" json:"-"`
	CodeExpiresAt time.Time `gorm:"not null" json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
