package stylecheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze(t *testing.T) {
	m := Analyze("One two three. Four five!")

	assert.Equal(t, 5, m.WordCount)
	assert.Equal(t, 2, m.SentenceCount)
	assert.InDelta(t, 2.5, m.AvgSentenceLength, 1e-9)
	assert.InDelta(t, 1.0, m.VocabularyDiversity, 1e-9)
	assert.Equal(t, Formatting{}, m.Formatting)
}

func TestAnalyze_RepeatedWordsLowerDiversity(t *testing.T) {
	m := Analyze("go go go go")
	assert.InDelta(t, 0.25, m.VocabularyDiversity, 1e-9)
	assert.Equal(t, 1, m.SentenceCount)
}

func TestAnalyze_Formatting(t *testing.T) {
	text := "# Title\n\n- item one\n- item two\n\n> quoted line\n\n```\ncode\n```\n"
	f := Analyze(text).Formatting

	assert.True(t, f.Headings)
	assert.True(t, f.Lists)
	assert.True(t, f.Quotes)
	assert.True(t, f.CodeBlocks)
}

func TestAnalyze_Empty(t *testing.T) {
	m := Analyze("")
	assert.Zero(t, m.WordCount)
	assert.Zero(t, m.SentenceCount)
	assert.Zero(t, m.AvgSentenceLength)
}

func TestMetricsFromSamples(t *testing.T) {
	assert.Nil(t, MetricsFromSamples(nil))
	assert.Nil(t, MetricsFromSamples([]string{"", "..."}))

	m := MetricsFromSamples([]string{
		"- one two\n- three four",
		"Five six seven eight.",
	})
	require.NotNil(t, m)
	assert.True(t, m.Formatting.Lists)
	assert.False(t, m.Formatting.Headings)
	assert.Equal(t, 4, m.WordCount)
}

func TestSampleQuality(t *testing.T) {
	assert.Zero(t, SampleQuality(Metrics{}))

	q := SampleQuality(Metrics{WordCount: 300, AvgSentenceLength: 15, VocabularyDiversity: 0.6})
	assert.InDelta(t, 1.0, q, 1e-9)

	short := SampleQuality(Metrics{WordCount: 30, AvgSentenceLength: 3, VocabularyDiversity: 0.2})
	assert.Less(t, short, q)
	assert.Greater(t, short, 0.0)
}
