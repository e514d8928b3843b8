package stylecheck

import "contentgen/internal/models"

// Marker vocabularies are fixed at build time and never mutated.
var toneMarkers = map[models.Tone][]string{
	models.ToneFormal: {
		"therefore", "moreover", "furthermore", "consequently", "thus",
		"hence", "accordingly", "nevertheless", "whereas", "regarding",
	},
	models.ToneCasual: {
		"like", "really", "pretty", "stuff", "gonna", "kinda", "awesome",
		"cool", "totally", "yeah", "hey", "super",
	},
	models.ToneAuthoritative: {
		"must", "essential", "critical", "proven", "clearly", "undoubtedly",
		"definitively", "imperative", "certainly", "demonstrates",
	},
	models.ToneConversational: {
		"you", "your", "we", "let's", "imagine", "think", "ask", "you'll",
		"we'll", "together",
	},
}

var styleMarkers = map[models.Style][]string{
	models.StyleTechnical: {
		"algorithm", "framework", "implementation", "architecture", "api",
		"protocol", "system", "database", "function", "performance",
	},
	models.StyleNarrative: {
		"story", "once", "journey", "remember", "felt", "moment", "began",
		"suddenly", "finally", "character",
	},
	models.StyleListicle: {
		"steps", "tips", "ways", "reasons", "top", "first", "second",
		"third", "list", "next",
	},
	models.StyleEducational: {
		"learn", "understand", "concept", "example", "lesson", "explain",
		"definition", "practice", "students", "basics",
	},
	models.StyleThoughtLeadership: {
		"future", "vision", "industry", "trend", "insight", "leadership",
		"innovation", "transform", "strategy", "disruption",
	},
}

// relatedTones are adjacent pairs that score partial credit.
var relatedTones = map[[2]models.Tone]bool{
	{models.ToneFormal, models.ToneAuthoritative}:   true,
	{models.ToneCasual, models.ToneConversational}:  true,
	{models.ToneConversational, models.ToneNeutral}: true,
	{models.ToneFormal, models.ToneNeutral}:         true,
	{models.ToneAuthoritative, models.ToneNeutral}:  true,
}

// Related reports whether two distinct tones are adjacent.
func Related(a, b models.Tone) bool {
	return relatedTones[[2]models.Tone{a, b}] || relatedTones[[2]models.Tone{b, a}]
}

// DetectTone picks the tone with the highest marker density. No markers or a
// tie at the top yields neutral.
func DetectTone(text string) models.Tone {
	words := Words(text)
	best, tie := dominant(words, models.Tones, func(t models.Tone) []string { return toneMarkers[t] })
	if tie {
		return models.ToneNeutral
	}
	return best
}

// DetectStyle picks the style with the highest marker density. No markers or
// a tie at the top yields StyleNone.
func DetectStyle(text string) models.Style {
	words := Words(text)
	best, tie := dominant(words, models.Styles, func(s models.Style) []string { return styleMarkers[s] })
	if tie {
		return models.StyleNone
	}
	return best
}

// dominant counts marker hits per category in the fixed category order. tie is
// true when nothing matched or two categories share the top count.
func dominant[T comparable](words []string, categories []T, markers func(T) []string) (best T, tie bool) {
	if len(words) == 0 {
		return best, true
	}
	freq := make(map[string]int, len(words))
	for _, w := range words {
		freq[w]++
	}

	top := 0
	for _, c := range categories {
		n := 0
		for _, m := range markers(c) {
			n += freq[m]
		}
		switch {
		case n > top:
			top, best, tie = n, c, false
		case n == top && n > 0:
			tie = true
		}
	}
	if top == 0 {
		return best, true
	}
	return best, tie
}
