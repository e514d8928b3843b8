package repository

import (
	"contentgen/internal/models"

	"gorm.io/gorm"
)

// ApprovalRepository reviewer decision audit rows.
type ApprovalRepository struct {
	db *gorm.DB
}

// NewApprovalRepository creates an ApprovalRepository.
func NewApprovalRepository(db *gorm.DB) *ApprovalRepository {
	return &ApprovalRepository{db: db}
}

// Create inserts a decision record.
func (r *ApprovalRepository) Create(record *models.ApprovalRecord) error {
	return r.db.Create(record).Error
}

// ListByTaskID returns a task's decisions in order.
func (r *ApprovalRepository) ListByTaskID(taskID string) ([]models.ApprovalRecord, error) {
	var records []models.ApprovalRecord
	err := r.db.Where("task_id = ?", taskID).Order("id ASC").Find(&records).Error
	return records, err
}
