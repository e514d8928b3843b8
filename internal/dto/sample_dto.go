package dto

import "contentgen/internal/models"

// CreateSampleRequest uploads a reference text. Style, tone and quality are
// derived from the content.
type CreateSampleRequest struct {
	Title   string `json:"title" validate:"required,max=255" binding:"required,max=255"`
	Content string `json:"content" validate:"required,max=200000" binding:"required,max=200000"`
}

// SetActiveRequest toggles a sample.
type SetActiveRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// SearchSamplesQuery previews retrieval for a topic.
type SearchSamplesQuery struct {
	Topic string       `form:"topic" binding:"required"`
	Style models.Style `form:"style" binding:"omitempty,style"`
	Tone  models.Tone  `form:"tone" binding:"omitempty,tone"`
	Limit int          `form:"limit" binding:"omitempty,min=1,max=20"`
}
