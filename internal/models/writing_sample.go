package models

import "time"

// WritingSample is a reference text owned by one user. Only Active changes
// after creation.
type WritingSample struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	OwnerID   uint      `gorm:"not null;index" json:"owner_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Style     Style     `gorm:"size:32" json:"style"`
	Tone      Tone      `gorm:"size:32" json:"tone"`
	WordCount int       `json:"word_count"`
	Quality   float64   `json:"quality"`
	Active    bool      `gorm:"default:true;index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName sets the table name.
func (WritingSample) TableName() string {
	return "writing_samples"
}
