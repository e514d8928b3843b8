package repository

import (
	"errors"

	"contentgen/internal/models"

	"gorm.io/gorm"
)

// SampleRepository writing sample data access.
type SampleRepository struct {
	db *gorm.DB
}

// NewSampleRepository creates a SampleRepository.
func NewSampleRepository(db *gorm.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

// Create inserts a sample.
func (r *SampleRepository) Create(sample *models.WritingSample) error {
	return r.db.Create(sample).Error
}

// GetByIDAndOwner loads a sample only if ownerID owns it.
func (r *SampleRepository) GetByIDAndOwner(id, ownerID uint) (*models.WritingSample, error) {
	var sample models.WritingSample
	err := r.db.Where("id = ? AND owner_id = ?", id, ownerID).First(&sample).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sample, nil
}

// ListByOwner returns an owner's samples, newest first.
func (r *SampleRepository) ListByOwner(ownerID uint, offset, limit int) ([]models.WritingSample, int64, error) {
	var samples []models.WritingSample
	var total int64

	query := r.db.Model(&models.WritingSample{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&samples).Error
	return samples, total, err
}

// ListActiveByOwner returns every active sample of an owner.
func (r *SampleRepository) ListActiveByOwner(ownerID uint) ([]models.WritingSample, error) {
	var samples []models.WritingSample
	err := r.db.Where("owner_id = ? AND active = ?", ownerID, true).Find(&samples).Error
	return samples, err
}

// SetActive toggles the active flag, the only mutable sample column.
func (r *SampleRepository) SetActive(id, ownerID uint, active bool) error {
	res := r.db.Model(&models.WritingSample{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Update("active", active)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
