package stylecheck

import (
	"math"
	"regexp"
	"strings"
)

var (
	wordPattern     = regexp.MustCompile(`[\p{L}\p{N}']+`)
	sentenceBreak   = regexp.MustCompile(`[.!?]+`)
	listLinePattern = regexp.MustCompile(`^\s*([-*+]|\d+[.)])\s+`)
	headingPattern  = regexp.MustCompile(`^\s{0,3}#{1,6}\s`)
	quotePattern    = regexp.MustCompile(`^\s*>`)
)

// Formatting records which structural markers a text uses.
type Formatting struct {
	Lists      bool `json:"lists"`
	CodeBlocks bool `json:"code_blocks"`
	Headings   bool `json:"headings"`
	Quotes     bool `json:"quotes"`
}

func (f Formatting) flags() [4]bool {
	return [4]bool{f.Lists, f.CodeBlocks, f.Headings, f.Quotes}
}

var formattingNames = [4]string{"lists", "code blocks", "headings", "quotes"}

// Metrics are the measurable traits the Validator compares.
type Metrics struct {
	WordCount           int        `json:"word_count"`
	SentenceCount       int        `json:"sentence_count"`
	AvgSentenceLength   float64    `json:"avg_sentence_length"`
	VocabularyDiversity float64    `json:"vocabulary_diversity"`
	Formatting          Formatting `json:"formatting"`
}

// Words lowercases text and splits it into word tokens.
func Words(text string) []string {
	return wordPattern.FindAllString(strings.ToLower(text), -1)
}

// Analyze measures a text.
func Analyze(text string) Metrics {
	words := Words(text)
	m := Metrics{WordCount: len(words)}

	for _, part := range sentenceBreak.Split(text, -1) {
		if wordPattern.MatchString(part) {
			m.SentenceCount++
		}
	}
	if m.SentenceCount == 0 && m.WordCount > 0 {
		m.SentenceCount = 1
	}
	if m.SentenceCount > 0 {
		m.AvgSentenceLength = float64(m.WordCount) / float64(m.SentenceCount)
	}

	if m.WordCount > 0 {
		unique := make(map[string]struct{}, len(words))
		for _, w := range words {
			unique[w] = struct{}{}
		}
		m.VocabularyDiversity = float64(len(unique)) / float64(m.WordCount)
	}

	m.Formatting = detectFormatting(text)
	return m
}

func detectFormatting(text string) Formatting {
	var f Formatting
	f.CodeBlocks = strings.Contains(text, "```")
	for _, line := range strings.Split(text, "\n") {
		switch {
		case listLinePattern.MatchString(line):
			f.Lists = true
		case headingPattern.MatchString(line):
			f.Headings = true
		case quotePattern.MatchString(line):
			f.Quotes = true
		}
	}
	return f
}

// MetricsFromSamples averages the metrics of reference texts. A formatting
// marker counts as expected when at least half of the texts use it. It
// returns nil when no text has words.
func MetricsFromSamples(texts []string) *Metrics {
	var (
		n                    int
		sumLen, sumDiversity float64
		words, sentences     int
		counts               [4]int
	)
	for _, text := range texts {
		m := Analyze(text)
		if m.WordCount == 0 {
			continue
		}
		n++
		sumLen += m.AvgSentenceLength
		sumDiversity += m.VocabularyDiversity
		words += m.WordCount
		sentences += m.SentenceCount
		for i, present := range m.Formatting.flags() {
			if present {
				counts[i]++
			}
		}
	}
	if n == 0 {
		return nil
	}

	expected := func(i int) bool { return counts[i]*2 >= n }
	return &Metrics{
		WordCount:           words / n,
		SentenceCount:       sentences / n,
		AvgSentenceLength:   sumLen / float64(n),
		VocabularyDiversity: sumDiversity / float64(n),
		Formatting: Formatting{
			Lists:      expected(0),
			CodeBlocks: expected(1),
			Headings:   expected(2),
			Quotes:     expected(3),
		},
	}
}

// SampleQuality derives the 0–1 quality scalar of an uploaded sample from
// its length, vocabulary range and sentence rhythm.
func SampleQuality(m Metrics) float64 {
	if m.WordCount == 0 {
		return 0
	}
	length := math.Min(float64(m.WordCount)/300, 1)
	diversity := math.Min(m.VocabularyDiversity/0.5, 1)

	rhythm := 1.0
	switch {
	case m.AvgSentenceLength < 10:
		rhythm = 1 - math.Min((10-m.AvgSentenceLength)/15, 1)
	case m.AvgSentenceLength > 25:
		rhythm = 1 - math.Min((m.AvgSentenceLength-25)/15, 1)
	}
	return round4(0.4*length + 0.3*diversity + 0.3*rhythm)
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
