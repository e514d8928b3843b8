package repository

import (
	"contentgen/internal/models"

	"gorm.io/gorm"
)

// StyleCheckRepository QA result data access.
type StyleCheckRepository struct {
	db *gorm.DB
}

// NewStyleCheckRepository creates a StyleCheckRepository.
func NewStyleCheckRepository(db *gorm.DB) *StyleCheckRepository {
	return &StyleCheckRepository{db: db}
}

// Create inserts a QA record.
func (r *StyleCheckRepository) Create(record *models.StyleCheckRecord) error {
	return r.db.Create(record).Error
}

// ListByTaskID returns a task's QA passes in order.
func (r *StyleCheckRepository) ListByTaskID(taskID string) ([]models.StyleCheckRecord, error) {
	var records []models.StyleCheckRecord
	err := r.db.Where("task_id = ?", taskID).Order("pass ASC").Find(&records).Error
	return records, err
}
