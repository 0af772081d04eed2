package models

import "time"

// JobListing is a structured job posting browsable with filters and sorting.
type JobListing struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"index;not null" json:"user_id"`
	Title            string    `gorm:"size:100;not null" json:"title"`
	Company          string    `gorm:"size:100;not null" json:"company"`
	Location         string    `gorm:"size:100" json:"location"`
	Category         string    `gorm:"size:32;index" json:"category"`
	Commitment       string    `gorm:"size:32;index" json:"commitment"`
	Experience       string    `gorm:"size:32;index" json:"experience"`
	Education        string    `gorm:"size:32;index" json:"education"`
	CompensationMin  int       `json:"compensation_min"`
	CompensationMax  int       `json:"compensation_max"`
	Description      string    `gorm:"type:text" json:"description"`
	Responsibilities string    `gorm:"type:text" json:"responsibilities"`
	Skills           string    `gorm:"type:text" json:"skills"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	User             User      `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"poster"`
}
