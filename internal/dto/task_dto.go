package dto

import (
	"contentgen/internal/catalog"
	"contentgen/internal/models"
)

// CreateTaskRequest submits a topic for generation. It also serves as the
// body of an estimate request.
type CreateTaskRequest struct {
	Topic        string             `json:"topic" validate:"required,max=500" binding:"required,max=500"`
	Style        models.Style       `json:"style" validate:"omitempty,style" binding:"omitempty,style"`
	Tone         models.Tone        `json:"tone" validate:"omitempty,tone" binding:"omitempty,tone"`
	TargetWords  int                `json:"target_words" validate:"required,min=50,max=20000" binding:"required,min=50,max=20000"`
	TolerancePct *int               `json:"tolerance_pct" validate:"omitempty,min=0,max=100" binding:"omitempty,min=0,max=100"`
	QualityTier  models.QualityTier `json:"quality_tier" validate:"omitempty,tier" binding:"omitempty,tier"`

	// ModelAssignments maps phase name to model id and overrides the tier.
	ModelAssignments map[string]string `json:"model_assignments"`
}

// CreateTaskResponse returns the new task's id and its up-front estimate.
type CreateTaskResponse struct {
	TaskID   string            `json:"task_id"`
	Phase    models.Phase      `json:"phase"`
	Estimate *catalog.Estimate `json:"estimate"`
}

// ListTasksQuery filters the task list.
type ListTasksQuery struct {
	PageQuery
	Phase models.Phase `form:"phase" binding:"omitempty,phase"`
}

// DecisionRequest is a reviewer's verdict.
type DecisionRequest struct {
	Decision string `json:"decision" binding:"required,oneof=approve reject"`
	Feedback string `json:"feedback" binding:"max=5000"`
}

// Approve reports whether the decision is an approval.
func (r *DecisionRequest) Approve() bool {
	return r.Decision == "approve"
}
