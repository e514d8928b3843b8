package models

import "time"

// StyleCheckRecord is one QA pass over a task's draft.
type StyleCheckRecord struct {
	ID              uint       `gorm:"primarykey" json:"id"`
	TaskID          string     `gorm:"size:64;not null;index" json:"task_id"`
	Pass            int        `gorm:"not null" json:"pass"`
	Phase           Phase      `gorm:"size:32" json:"phase"`
	Overall         float64    `json:"overall"`
	ToneScore       float64    `json:"tone_score"`
	VocabularyScore float64    `json:"vocabulary_score"`
	SentenceScore   float64    `json:"sentence_score"`
	FormattingScore float64    `json:"formatting_score"`
	Passing         bool       `json:"passing"`
	DetectedTone    Tone       `gorm:"size:32" json:"detected_tone"`
	DetectedStyle   Style      `gorm:"size:32" json:"detected_style"`
	Issues          StringList `gorm:"type:text" json:"issues"`
	Suggestions     StringList `gorm:"type:text" json:"suggestions"`
	CreatedAt       time.Time  `json:"created_at"`
}

// TableName sets the table name.
func (StyleCheckRecord) TableName() string {
	return "style_check_results"
}

// NewStyleCheckRecord copies a result into an audit row.
func NewStyleCheckRecord(taskID string, pass int, phase Phase, r *StyleResult) *StyleCheckRecord {
	return &StyleCheckRecord{
		TaskID:          taskID,
		Pass:            pass,
		Phase:           phase,
		Overall:         r.Overall,
		ToneScore:       r.ToneScore,
		VocabularyScore: r.VocabularyScore,
		SentenceScore:   r.SentenceScore,
		FormattingScore: r.FormattingScore,
		Passing:         r.Passing,
		DetectedTone:    r.DetectedTone,
		DetectedStyle:   r.DetectedStyle,
		Issues:          StringList(r.Issues),
		Suggestions:     StringList(r.Suggestions),
	}
}
