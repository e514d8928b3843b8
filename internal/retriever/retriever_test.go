package retriever

import (
	"context"
	"errors"
	"testing"
	"time"

	"contentgen/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	samples []models.WritingSample
	err     error
}

func (f *fakeSource) ListActiveByOwner(ownerID uint) ([]models.WritingSample, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []models.WritingSample
	for _, s := range f.samples {
		if s.OwnerID == ownerID && s.Active {
			out = append(out, s)
		}
	}
	return out, nil
}

func newTestRetriever(t *testing.T, src SampleSource) *Retriever {
	t.Helper()
	r, err := New(src, 1<<20, 3)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func sample(id uint, title, content string, quality float64) models.WritingSample {
	return models.WritingSample{
		ID:        id,
		OwnerID:   1,
		Title:     title,
		Content:   content,
		Style:     models.StyleTechnical,
		Tone:      models.ToneFormal,
		Quality:   quality,
		Active:    true,
		CreatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(id) * time.Hour),
	}
}

func TestJaccard(t *testing.T) {
	a := Tokenize("machine learning in healthcare")
	b := Tokenize("cooking pasta recipes")
	c := Tokenize("machine learning for cooking")

	assert.InDelta(t, 1.0, Jaccard(a, a), 1e-9)
	assert.InDelta(t, 0.0, Jaccard(a, b), 1e-9)
	assert.InDelta(t, Jaccard(a, c), Jaccard(c, a), 1e-9)
	assert.InDelta(t, 0.0, Jaccard(Tokenize(""), Tokenize("")), 1e-9)
}

func TestTokenizeDropsShortWords(t *testing.T) {
	set := Tokenize("AI is in the ML lab")
	_, hasThe := set["the"]
	_, hasLab := set["lab"]
	_, hasAI := set["ai"]
	assert.True(t, hasThe)
	assert.True(t, hasLab)
	assert.False(t, hasAI)
	assert.Len(t, set, 2)
}

func TestRetrieve_RanksByTopicOverlap(t *testing.T) {
	src := &fakeSource{samples: []models.WritingSample{
		sample(1, "ML in medicine", "Machine learning models are transforming healthcare and medicine.", 0.6),
		sample(2, "cooking recipes", "Cooking recipes for pasta and bread.", 0.6),
		sample(3, "AI ethics", "Ethics of machine intelligence in modern society.", 0.6),
	}}
	r := newTestRetriever(t, src)

	got, err := r.Retrieve(context.Background(), 1, "machine learning healthcare", models.StyleNone, "", 0)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, "ML in medicine", got[0].Sample.Title)
	assert.Equal(t, "AI ethics", got[1].Sample.Title)
	assert.Equal(t, "cooking recipes", got[2].Sample.Title)
	for _, rk := range got {
		assert.Greater(t, rk.Score, 0.0)
		assert.LessOrEqual(t, rk.Score, 1.0)
	}
	assert.Greater(t, got[0].Score, got[1].Score)
	assert.Greater(t, got[1].Score, got[2].Score)
}

func TestRetrieve_MismatchPenaltyIsMultiplicative(t *testing.T) {
	s := sample(1, "doc", "distributed systems consensus", 0.5)
	src := &fakeSource{samples: []models.WritingSample{s}}
	r := newTestRetriever(t, src)

	got, err := r.Retrieve(context.Background(), 1, "distributed systems consensus", models.StyleNarrative, models.ToneCasual, 1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	base := weightSimilarity*1.0 + weightQuality*0.5
	assert.InDelta(t, base*0.49, got[0].Score, 1e-4)

	matched, err := r.Retrieve(context.Background(), 1, "distributed systems consensus", models.StyleTechnical, models.ToneFormal, 1)
	require.NoError(t, err)
	assert.InDelta(t, 1.0-weightQuality*0.5, matched[0].Score, 1e-4)
}

func TestRetrieve_TiesPreferQualityThenRecency(t *testing.T) {
	src := &fakeSource{samples: []models.WritingSample{
		sample(1, "older", "alpha beta gamma", 0.5),
		sample(2, "newer", "alpha beta gamma", 0.5),
	}}
	r := newTestRetriever(t, src)

	got, err := r.Retrieve(context.Background(), 1, "unrelated words", models.StyleNone, "", 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "newer", got[0].Sample.Title)

	src.samples[0].Quality = 0.9
	r2 := newTestRetriever(t, src)
	got, err = r2.Retrieve(context.Background(), 1, "zzz", models.StyleNone, "", 0)
	require.NoError(t, err)
	assert.Equal(t, "older", got[0].Sample.Title)
}

func TestRetrieve_LimitsAndIsolatesOwners(t *testing.T) {
	other := sample(9, "other owner", "machine learning", 1)
	other.OwnerID = 2
	inactive := sample(8, "inactive", "machine learning", 1)
	inactive.Active = false

	src := &fakeSource{samples: []models.WritingSample{
		sample(1, "a", "machine one", 0.1),
		sample(2, "b", "machine two", 0.2),
		sample(3, "c", "machine three", 0.3),
		sample(4, "d", "machine four", 0.4),
		other, inactive,
	}}
	r := newTestRetriever(t, src)

	got, err := r.Retrieve(context.Background(), 1, "machine", models.StyleNone, "", 0)
	require.NoError(t, err)
	assert.Len(t, got, 3)
	for _, rk := range got {
		assert.Equal(t, uint(1), rk.Sample.OwnerID)
		assert.True(t, rk.Sample.Active)
	}
}

func TestRetrieve_EmptyCandidates(t *testing.T) {
	r := newTestRetriever(t, &fakeSource{})

	got, err := r.Retrieve(context.Background(), 1, "anything", models.StyleNone, "", 3)
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRetrieve_StoreFailureDegrades(t *testing.T) {
	r := newTestRetriever(t, &fakeSource{err: errors.New("connection refused")})

	got, err := r.Retrieve(context.Background(), 1, "anything", models.StyleNone, "", 3)
	assert.ErrorIs(t, err, ErrRetrievalUnavailable)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestExcerpt(t *testing.T) {
	s := models.WritingSample{Content: "one two   three\nfour five"}
	assert.Equal(t, "one two three ...", Excerpt(s, 3))
	assert.Equal(t, "one two three four five", Excerpt(s, 10))
}
