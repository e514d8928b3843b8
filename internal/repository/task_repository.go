package repository

import (
	"errors"

	"contentgen/internal/models"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("record not found")

// TaskRepository task data access.
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a TaskRepository.
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create inserts a task.
func (r *TaskRepository) Create(task *models.Task) error {
	return r.db.Create(task).Error
}

// GetByTaskID loads a task by its public id.
func (r *TaskRepository) GetByTaskID(taskID string) (*models.Task, error) {
	var task models.Task
	err := r.db.Where("task_id = ?", taskID).First(&task).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// Save writes every column of the task.
func (r *TaskRepository) Save(task *models.Task) error {
	return r.db.Save(task).Error
}

// ListByOwner returns an owner's tasks, newest first, optionally filtered by phase.
func (r *TaskRepository) ListByOwner(ownerID uint, phase models.Phase, offset, limit int) ([]models.Task, int64, error) {
	var tasks []models.Task
	var total int64

	query := r.db.Model(&models.Task{}).Where("owner_id = ?", ownerID)
	if phase != "" {
		query = query.Where("phase = ?", phase)
	}
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("created_at DESC").Offset(offset).Limit(limit).Find(&tasks).Error
	return tasks, total, err
}

// ListByPhase returns all tasks currently in one of the given phases.
func (r *TaskRepository) ListByPhase(phases ...models.Phase) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.Where("phase IN ?", phases).Order("created_at ASC").Find(&tasks).Error
	return tasks, err
}

// ListAwaitingApproval returns tasks waiting for a reviewer, oldest first.
func (r *TaskRepository) ListAwaitingApproval(offset, limit int) ([]models.Task, int64, error) {
	var tasks []models.Task
	var total int64

	query := r.db.Model(&models.Task{}).Where("phase = ?", models.PhaseAwaitingApproval)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.Order("phase_updated_at ASC").Offset(offset).Limit(limit).Find(&tasks).Error
	return tasks, total, err
}
