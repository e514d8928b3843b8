package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CostLogEntry is one generation attempt's spend. Rows are written once and
// never updated or deleted.
type CostLogEntry struct {
	ID           uint            `gorm:"primarykey" json:"id"`
	TaskID       string          `gorm:"size:64;not null;index" json:"task_id"`
	OwnerID      uint            `gorm:"not null;index" json:"owner_id"`
	Phase        Phase           `gorm:"size:32;not null" json:"phase"`
	ModelID      string          `gorm:"size:128;not null" json:"model_id"`
	Provider     string          `gorm:"size:64" json:"provider"`
	Attempt      int             `gorm:"not null" json:"attempt"`
	Cost         decimal.Decimal `gorm:"type:text" json:"cost"`
	DurationMs   int64           `json:"duration_ms"`
	Success      bool            `json:"success"`
	ErrorMessage string          `gorm:"type:text" json:"error_message,omitempty"`
	CreatedAt    time.Time       `gorm:"index" json:"created_at"`
}

// TableName sets the table name.
func (CostLogEntry) TableName() string {
	return "cost_log_entries"
}
