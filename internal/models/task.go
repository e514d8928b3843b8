package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Task is one content generation request moving through the pipeline.
type Task struct {
	ID               uint            `gorm:"primarykey" json:"-"`
	TaskID           string          `gorm:"uniqueIndex;size:64;not null" json:"task_id"`
	OwnerID          uint            `gorm:"not null;index" json:"owner_id"`
	Topic            string          `gorm:"size:500;not null" json:"topic"`
	Style            Style           `gorm:"size:32" json:"style"`
	Tone             Tone            `gorm:"size:32" json:"tone"`
	TargetWords      int             `gorm:"not null" json:"target_words"`
	TolerancePct     int             `gorm:"default:10" json:"tolerance_pct"`
	Phase            Phase           `gorm:"size:32;not null;index" json:"phase"`
	ModelAssignments StringMap       `gorm:"type:text" json:"model_assignments"`
	QualityTier      QualityTier     `gorm:"size:16;not null" json:"quality_tier"`
	EstimatedCost    decimal.Decimal `gorm:"type:text" json:"estimated_cost"`
	TotalCost        decimal.Decimal `gorm:"type:text" json:"total_cost"`
	CostBreakdown    CostBreakdown   `gorm:"type:text" json:"cost_breakdown"`
	Content          string          `gorm:"type:text" json:"content"`
	PhaseOutputs     StringMap       `gorm:"type:text" json:"phase_outputs,omitempty"`
	RefineAttempts   int             `gorm:"default:0" json:"refine_attempts"`
	NeedsReview      bool            `gorm:"default:false" json:"needs_review"`
	StyleResult      *StyleResult    `gorm:"type:text" json:"style_result"`
	ErrorMessage     string          `gorm:"type:text" json:"error_message,omitempty"`
	ApprovalStatus   ApprovalStatus  `gorm:"size:16;default:'none'" json:"approval_status"`
	ReviewerID       *uint           `json:"reviewer_id"`
	ReviewerFeedback string          `gorm:"type:text" json:"reviewer_feedback,omitempty"`
	PublishedID      string          `gorm:"size:255" json:"published_id,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	PhaseUpdatedAt   time.Time       `json:"phase_updated_at"`
	CompletedAt      *time.Time      `json:"completed_at"`
}

// TableName sets the table name.
func (Task) TableName() string {
	return "tasks"
}

// SetPhase moves the task to p and stamps the transition time.
func (t *Task) SetPhase(p Phase) {
	t.Phase = p
	t.PhaseUpdatedAt = time.Now()
}

// ApplyCosts replaces the breakdown and recomputes the total from it, so the
// total always equals the sum of the breakdown.
func (t *Task) ApplyCosts(breakdown CostBreakdown) {
	t.CostBreakdown = breakdown
	t.TotalCost = breakdown.Sum()
}

// ExplicitModel returns the per-phase model override, if any.
func (t *Task) ExplicitModel(p Phase) string {
	if t.ModelAssignments == nil {
		return ""
	}
	return t.ModelAssignments[string(p)]
}

// Output returns the stored text of a finished phase.
func (t *Task) Output(p Phase) string {
	if t.PhaseOutputs == nil {
		return ""
	}
	return t.PhaseOutputs[string(p)]
}

// SetOutput stores the text produced by phase p.
func (t *Task) SetOutput(p Phase, text string) {
	if t.PhaseOutputs == nil {
		t.PhaseOutputs = make(StringMap)
	}
	t.PhaseOutputs[string(p)] = text
}

// StringMap is a string map stored as a JSON text column.
type StringMap map[string]string

// Scan implements sql.Scanner.
func (m *StringMap) Scan(value interface{}) error {
	*m = make(StringMap)
	b, ok := asBytes(value)
	if !ok || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, m)
}

// Value implements driver.Valuer.
func (m StringMap) Value() (driver.Value, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	return string(b), err
}

// CostBreakdown maps phase name to spend, stored as JSON with decimal strings.
type CostBreakdown map[string]decimal.Decimal

// Sum totals all phases.
func (c CostBreakdown) Sum() decimal.Decimal {
	total := decimal.Zero
	for _, v := range c {
		total = total.Add(v)
	}
	return total
}

// Scan implements sql.Scanner.
func (c *CostBreakdown) Scan(value interface{}) error {
	*c = make(CostBreakdown)
	b, ok := asBytes(value)
	if !ok || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, c)
}

// Value implements driver.Valuer.
func (c CostBreakdown) Value() (driver.Value, error) {
	if len(c) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(c)
	return string(b), err
}

// StyleResult is the Validator output kept on the task for audit.
type StyleResult struct {
	Overall         float64  `json:"overall"`
	ToneScore       float64  `json:"tone_score"`
	VocabularyScore float64  `json:"vocabulary_score"`
	SentenceScore   float64  `json:"sentence_score"`
	FormattingScore float64  `json:"formatting_score"`
	Passing         bool     `json:"passing"`
	DetectedTone    Tone     `json:"detected_tone"`
	DetectedStyle   Style    `json:"detected_style"`
	Issues          []string `json:"issues"`
	Suggestions     []string `json:"suggestions"`
}

// Scan implements sql.Scanner.
func (r *StyleResult) Scan(value interface{}) error {
	b, ok := asBytes(value)
	if !ok || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, r)
}

// Value implements driver.Valuer.
func (r *StyleResult) Value() (driver.Value, error) {
	if r == nil {
		return nil, nil
	}
	b, err := json.Marshal(r)
	return string(b), err
}

// StringList is a string slice stored as a JSON text column.
type StringList []string

// Scan implements sql.Scanner.
func (l *StringList) Scan(value interface{}) error {
	*l = StringList{}
	b, ok := asBytes(value)
	if !ok || len(b) == 0 {
		return nil
	}
	return json.Unmarshal(b, l)
}

// Value implements driver.Valuer.
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	return string(b), err
}

func asBytes(value interface{}) ([]byte, bool) {
	switch v := value.(type) {
	case nil:
		return nil, false
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	default:
		return nil, false
	}
}
