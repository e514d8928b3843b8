package repository

import (
	"time"

	"contentgen/internal/models"

	"gorm.io/gorm"
)

// CostLogRepository is append-only: it offers no update or delete.
type CostLogRepository struct {
	db *gorm.DB
}

// NewCostLogRepository creates a CostLogRepository.
func NewCostLogRepository(db *gorm.DB) *CostLogRepository {
	return &CostLogRepository{db: db}
}

// Create appends an entry.
func (r *CostLogRepository) Create(entry *models.CostLogEntry) error {
	return r.db.Create(entry).Error
}

// ListByTaskID returns a task's entries in write order.
func (r *CostLogRepository) ListByTaskID(taskID string) ([]models.CostLogEntry, error) {
	var entries []models.CostLogEntry
	err := r.db.Where("task_id = ?", taskID).Order("id ASC").Find(&entries).Error
	return entries, err
}

// ListByOwnerSince returns an owner's entries written at or after since.
func (r *CostLogRepository) ListByOwnerSince(ownerID uint, since time.Time) ([]models.CostLogEntry, error) {
	var entries []models.CostLogEntry
	err := r.db.Where("owner_id = ? AND created_at >= ?", ownerID, since).Order("id ASC").Find(&entries).Error
	return entries, err
}
