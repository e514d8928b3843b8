package models

// Phase is a task state. Generation phases run through the orchestrator;
// the rest are gates or terminal states.
type Phase string

const (
	PhasePending          Phase = "pending"
	PhaseResearch         Phase = "research"
	PhaseOutline          Phase = "outline"
	PhaseDraft            Phase = "draft"
	PhaseAssess           Phase = "assess"
	PhaseRefine           Phase = "refine"
	PhaseFinalize         Phase = "finalize"
	PhaseAwaitingApproval Phase = "awaiting_approval"
	PhasePublished        Phase = "published"
	PhaseRejected         Phase = "rejected"
	PhaseFailed           Phase = "failed"
	PhaseCancelled        Phase = "cancelled"
)

// GenerationPhases lists the phases that issue generation calls, in pipeline order.
var GenerationPhases = []Phase{
	PhaseResearch,
	PhaseOutline,
	PhaseDraft,
	PhaseAssess,
	PhaseRefine,
	PhaseFinalize,
}

// BasePath is the pipeline without refine passes.
var BasePath = []Phase{
	PhaseResearch,
	PhaseOutline,
	PhaseDraft,
	PhaseAssess,
	PhaseFinalize,
}

// IsGeneration reports whether p issues a generation call.
func (p Phase) IsGeneration() bool {
	for _, g := range GenerationPhases {
		if g == p {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition can leave p.
func (p Phase) IsTerminal() bool {
	switch p {
	case PhasePublished, PhaseRejected, PhaseFailed, PhaseCancelled:
		return true
	}
	return false
}

// Cancellable reports whether a task in p may still be cancelled.
func (p Phase) Cancellable() bool {
	return p == PhasePending || p.IsGeneration()
}

// Valid reports whether p is a known phase.
func (p Phase) Valid() bool {
	switch p {
	case PhasePending, PhaseAwaitingApproval:
		return true
	}
	return p.IsGeneration() || p.IsTerminal()
}

// QualityTier is a coarse cost/quality preset for model auto-selection.
type QualityTier string

const (
	TierFast     QualityTier = "fast"
	TierBalanced QualityTier = "balanced"
	TierQuality  QualityTier = "quality"
)

// TierOrder is cheapest first.
var TierOrder = []QualityTier{TierFast, TierBalanced, TierQuality}

// Valid reports whether t is a known tier.
func (t QualityTier) Valid() bool {
	return t == TierFast || t == TierBalanced || t == TierQuality
}

// Rank returns the position of t in TierOrder, or -1.
func (t QualityTier) Rank() int {
	for i, o := range TierOrder {
		if o == t {
			return i
		}
	}
	return -1
}

// Tone is a detected or requested writing tone.
type Tone string

const (
	ToneFormal         Tone = "formal"
	ToneCasual         Tone = "casual"
	ToneAuthoritative  Tone = "authoritative"
	ToneConversational Tone = "conversational"
	ToneNeutral        Tone = "neutral"
)

// Tones is the closed tone set.
var Tones = []Tone{ToneFormal, ToneCasual, ToneAuthoritative, ToneConversational, ToneNeutral}

// Valid reports whether t is in the closed set.
func (t Tone) Valid() bool {
	for _, o := range Tones {
		if o == t {
			return true
		}
	}
	return false
}

// Style is a detected or requested writing style. The empty Style means
// no dominant style.
type Style string

const (
	StyleTechnical         Style = "technical"
	StyleNarrative         Style = "narrative"
	StyleListicle          Style = "listicle"
	StyleEducational       Style = "educational"
	StyleThoughtLeadership Style = "thought_leadership"
	StyleNone              Style = ""
)

// Styles is the closed style set.
var Styles = []Style{StyleTechnical, StyleNarrative, StyleListicle, StyleEducational, StyleThoughtLeadership}

// Valid reports whether s is in the closed set.
func (s Style) Valid() bool {
	for _, o := range Styles {
		if o == s {
			return true
		}
	}
	return false
}

// ApprovalStatus is the human decision on a finished task.
type ApprovalStatus string

const (
	ApprovalNone     ApprovalStatus = "none"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)
