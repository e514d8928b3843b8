package service

import (
	"fmt"
	"strings"

	"contentgen/internal/models"
	"contentgen/internal/retriever"
)

const systemPrompt = "You are a professional content writer. Follow the brief exactly and return only the requested text."

// excerptWords bounds each grounding excerpt.
const excerptWords = 120

func brief(t *models.Task) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", t.Topic)
	if t.Style != models.StyleNone {
		fmt.Fprintf(&b, "Style: %s\n", t.Style)
	}
	if t.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", t.Tone)
	}
	fmt.Fprintf(&b, "Length: about %d words (within %d%%)\n", t.TargetWords, t.TolerancePct)
	return b.String()
}

func grounding(samples []retriever.Ranked) string {
	if len(samples) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("\nReference samples from the author. Match their voice, not their content:\n")
	for i, s := range samples {
		fmt.Fprintf(&b, "\n[Sample %d: %s, style=%s, tone=%s]\n%s\n",
			i+1, s.Sample.Title, s.Sample.Style, s.Sample.Tone, retriever.Excerpt(s.Sample, excerptWords))
	}
	return b.String()
}

func researchPrompt(t *models.Task) string {
	return brief(t) + "\nList the key facts, angles, audience questions and sources worth covering. Use concise bullet points."
}

func outlinePrompt(t *models.Task) string {
	return brief(t) + "\nResearch notes:\n" + t.Output(models.PhaseResearch) +
		"\n\nWrite a section-by-section outline with one line per section describing its point."
}

func draftPrompt(t *models.Task, samples []retriever.Ranked) string {
	return brief(t) + "\nOutline:\n" + t.Output(models.PhaseOutline) + "\n" + grounding(samples) +
		"\nWrite the complete article following the outline."
}

func assessPrompt(t *models.Task) string {
	return brief(t) + "\nDraft:\n" + t.Content +
		"\n\nCritique the draft against the brief: accuracy, structure, tone and length. List concrete fixes."
}

func refinePrompt(t *models.Task, samples []retriever.Ranked) string {
	var b strings.Builder
	b.WriteString(brief(t))
	b.WriteString("\nCurrent draft:\n")
	b.WriteString(t.Content)
	if critique := t.Output(models.PhaseAssess); critique != "" {
		b.WriteString("\n\nEditor critique:\n")
		b.WriteString(critique)
	}
	if r := t.StyleResult; r != nil && len(r.Issues) > 0 {
		b.WriteString("\n\nStyle issues to fix:\n")
		for i, issue := range r.Issues {
			fmt.Fprintf(&b, "- %s", issue)
			if i < len(r.Suggestions) && r.Suggestions[i] != "" {
				fmt.Fprintf(&b, " Fix: %s", r.Suggestions[i])
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(grounding(samples))
	b.WriteString("\nRewrite the full draft addressing every point above.")
	return b.String()
}

func finalizePrompt(t *models.Task) string {
	return brief(t) + "\nDraft:\n" + t.Content +
		"\n\nProofread and polish the draft for publication. Keep its structure and voice. Return the final text only."
}
