package models

import "time"

// ApprovalRecord is the audit row for one reviewer decision.
type ApprovalRecord struct {
	ID          uint           `gorm:"primarykey" json:"id"`
	TaskID      string         `gorm:"size:64;not null;index" json:"task_id"`
	ReviewerID  uint           `gorm:"not null;index" json:"reviewer_id"`
	Decision    ApprovalStatus `gorm:"size:16;not null" json:"decision"`
	Feedback    string         `gorm:"type:text" json:"feedback"`
	PublishedID string         `gorm:"size:255" json:"published_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

// TableName sets the table name.
func (ApprovalRecord) TableName() string {
	return "approval_records"
}
