// Package stylecheck scores generated text for consistency with a writer's
// reference samples.
package stylecheck

import (
	"fmt"
	"math"
	"strings"

	"contentgen/internal/models"
)

// Component weights. They sum to 1.
const (
	WeightTone       = 0.35
	WeightVocabulary = 0.25
	WeightSentence   = 0.25
	WeightFormatting = 0.15

	// PassThreshold is the minimum overall score that passes QA.
	PassThreshold = 0.75

	// components below this emit an issue
	issueThreshold = 0.75

	noReferenceScore = 0.50
)

var toneSuggestions = map[models.Tone]string{
	models.ToneFormal:         "Adopt a formal register: remove slang and contractions, and use connectives such as \"therefore\" and \"moreover\".",
	models.ToneCasual:         "Loosen the register: shorter phrasing, everyday words and a lighter voice.",
	models.ToneAuthoritative:  "State claims with confidence and back them with evidence; avoid hedging.",
	models.ToneConversational: "Address the reader directly with \"you\" and \"we\" and pose occasional questions.",
	models.ToneNeutral:        "Remove emotionally loaded wording and keep statements factual.",
}

var styleSuggestions = map[models.Style]string{
	models.StyleTechnical:         "Ground the piece in concrete technical detail: systems, implementations and measurable behaviour.",
	models.StyleNarrative:         "Structure the piece as a story with a clear arc and concrete moments.",
	models.StyleListicle:          "Organise the piece as numbered steps or tips with short explanations.",
	models.StyleEducational:       "Explain concepts progressively and illustrate each with an example.",
	models.StyleThoughtLeadership: "Take a clear position on where the industry is heading and support it with insight.",
}

// Validate scores content against reference metrics, style and tone. Any
// reference may be absent; absent references score a flat 0.5.
func Validate(content string, ref *Metrics, refStyle models.Style, refTone models.Tone) *models.StyleResult {
	gen := Analyze(content)
	detectedTone := DetectTone(content)
	detectedStyle := DetectStyle(content)

	r := &models.StyleResult{
		DetectedTone:  detectedTone,
		DetectedStyle: detectedStyle,
		Issues:        []string{},
		Suggestions:   []string{},
	}

	r.ToneScore = toneScore(detectedTone, refTone)
	if ref != nil {
		r.VocabularyScore = deviationScore(gen.VocabularyDiversity, ref.VocabularyDiversity)
		r.SentenceScore = deviationScore(gen.AvgSentenceLength, ref.AvgSentenceLength)
		r.FormattingScore = formattingScore(gen.Formatting, ref.Formatting)
	} else {
		r.VocabularyScore = noReferenceScore
		r.SentenceScore = noReferenceScore
		r.FormattingScore = noReferenceScore
	}

	r.Overall = round4(WeightTone*r.ToneScore +
		WeightVocabulary*r.VocabularyScore +
		WeightSentence*r.SentenceScore +
		WeightFormatting*r.FormattingScore)
	r.Passing = r.Overall >= PassThreshold

	if r.ToneScore < issueThreshold {
		if refTone == "" {
			addIssue(r, "Tone consistency could not be verified: no reference tone was supplied.",
				"Pick a target tone so the draft can be checked against it.")
		} else {
			addIssue(r, fmt.Sprintf("Tone mismatch: content reads as %s but %s was expected.", detectedTone, refTone),
				toneSuggestions[refTone])
		}
	}

	if r.VocabularyScore < issueThreshold {
		if ref == nil {
			addIssue(r, "Vocabulary could not be compared: no reference samples were available.",
				"Upload or activate writing samples in the target style.")
		} else {
			suggestion := "Vary word choice more and avoid repeating the same terms."
			if gen.VocabularyDiversity > ref.VocabularyDiversity {
				suggestion = "Use a tighter, more consistent vocabulary closer to the reference samples."
			}
			addIssue(r, fmt.Sprintf("Vocabulary diversity %.2f deviates from the reference %.2f.", gen.VocabularyDiversity, ref.VocabularyDiversity),
				suggestion)
		}
	}

	if r.SentenceScore < issueThreshold {
		if ref == nil {
			addIssue(r, "Sentence structure could not be compared: no reference samples were available.",
				"Upload or activate writing samples in the target style.")
		} else {
			suggestion := "Combine short sentences into longer, connected ones."
			if gen.AvgSentenceLength > ref.AvgSentenceLength {
				suggestion = "Break long sentences into shorter ones."
			}
			addIssue(r, fmt.Sprintf("Average sentence length %.1f words deviates from the reference %.1f.", gen.AvgSentenceLength, ref.AvgSentenceLength),
				suggestion)
		}
	}

	if r.FormattingScore < issueThreshold && ref != nil {
		missing, extra := formattingDiff(gen.Formatting, ref.Formatting)
		var parts []string
		if len(missing) > 0 {
			parts = append(parts, "missing "+strings.Join(missing, ", "))
		}
		if len(extra) > 0 {
			parts = append(parts, "unexpected "+strings.Join(extra, ", "))
		}
		suggestion := "Match the reference layout."
		if len(missing) > 0 {
			suggestion = "Add " + strings.Join(missing, ", ") + " as the reference samples do."
		}
		addIssue(r, "Formatting differs from the reference: "+strings.Join(parts, "; ")+".", suggestion)
	}

	if refStyle != models.StyleNone && detectedStyle != refStyle {
		detected := string(detectedStyle)
		if detectedStyle == models.StyleNone {
			detected = "no dominant style"
		}
		addIssue(r, fmt.Sprintf("Style mismatch: content reads as %s but %s was expected.", detected, refStyle),
			styleSuggestions[refStyle])
	}

	return r
}

func addIssue(r *models.StyleResult, issue, suggestion string) {
	r.Issues = append(r.Issues, issue)
	r.Suggestions = append(r.Suggestions, suggestion)
}

func toneScore(detected, ref models.Tone) float64 {
	switch {
	case ref == "":
		return noReferenceScore
	case detected == ref:
		return 0.95
	case Related(detected, ref):
		return 0.75
	default:
		return 0.40
	}
}

// deviationScore bands the percentage difference from the reference.
func deviationScore(got, ref float64) float64 {
	if ref == 0 {
		if got == 0 {
			return 0.95
		}
		return 0.60
	}
	diff := math.Abs(got-ref) / ref * 100
	switch {
	case diff < 15:
		return 0.95
	case diff <= 30:
		return 0.80
	default:
		return 0.60
	}
}

// formattingScore is the fraction of the four markers on which the texts agree.
func formattingScore(got, ref Formatting) float64 {
	g, f := got.flags(), ref.flags()
	agree := 0
	for i := range g {
		if g[i] == f[i] {
			agree++
		}
	}
	return float64(agree) / float64(len(g))
}

func formattingDiff(got, ref Formatting) (missing, extra []string) {
	g, f := got.flags(), ref.flags()
	for i := range g {
		switch {
		case f[i] && !g[i]:
			missing = append(missing, formattingNames[i])
		case g[i] && !f[i]:
			extra = append(extra, formattingNames[i])
		}
	}
	return missing, extra
}
