// Package retriever ranks an owner's writing samples against a topic and a
// preferred style and tone.
package retriever

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"contentgen/internal/models"
	"contentgen/internal/stylecheck"

	"github.com/dgraph-io/ristretto/v2"
)

// ErrRetrievalUnavailable marks a sample store that could not be read.
// Retrieve still returns a usable empty ranking alongside it.
var ErrRetrievalUnavailable = errors.New("sample retrieval unavailable")

const (
	minTokenLen      = 3
	weightSimilarity = 0.40
	weightStyle      = 0.30
	weightTone       = 0.20
	weightQuality    = 0.10
	mismatchFactor   = 0.7
)

// SampleSource reads an owner's active samples.
type SampleSource interface {
	ListActiveByOwner(ownerID uint) ([]models.WritingSample, error)
}

// Ranked is one scored sample.
type Ranked struct {
	Sample     models.WritingSample `json:"sample"`
	Score      float64              `json:"score"`
	Similarity float64              `json:"similarity"`
}

// Retriever scores samples. Token sets are cached per sample id; samples
// never change content after creation.
type Retriever struct {
	source       SampleSource
	tokens       *ristretto.Cache[string, map[string]struct{}]
	defaultLimit int
}

// New creates a Retriever. cacheMaxBytes bounds the token cache.
func New(source SampleSource, cacheMaxBytes int64, defaultLimit int) (*Retriever, error) {
	if cacheMaxBytes <= 0 {
		cacheMaxBytes = 32 << 20
	}
	if defaultLimit <= 0 {
		defaultLimit = 3
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, map[string]struct{}]{
		NumCounters: cacheMaxBytes / 100 * 10,
		MaxCost:     cacheMaxBytes,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create token cache: %w", err)
	}
	return &Retriever{source: source, tokens: c, defaultLimit: defaultLimit}, nil
}

// Close releases the token cache.
func (r *Retriever) Close() {
	r.tokens.Close()
}

// Retrieve returns at most limit active samples of ownerID ranked by
// relevance. An empty style or tone applies no style or tone term. A limit
// of zero or less uses the default.
func (r *Retriever) Retrieve(ctx context.Context, ownerID uint, topic string, style models.Style, tone models.Tone, limit int) ([]Ranked, error) {
	if limit <= 0 {
		limit = r.defaultLimit
	}
	if err := ctx.Err(); err != nil {
		return []Ranked{}, err
	}

	samples, err := r.source.ListActiveByOwner(ownerID)
	if err != nil {
		return []Ranked{}, fmt.Errorf("%w: %v", ErrRetrievalUnavailable, err)
	}

	query := Tokenize(topic)
	ranked := make([]Ranked, 0, len(samples))
	for _, s := range samples {
		if !s.Active || s.OwnerID != ownerID {
			continue
		}
		sim := Jaccard(query, r.sampleTokens(s))
		ranked = append(ranked, Ranked{
			Sample:     s,
			Similarity: sim,
			Score:      score(sim, s, style, tone),
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Sample.Quality != b.Sample.Quality {
			return a.Sample.Quality > b.Sample.Quality
		}
		if !a.Sample.CreatedAt.Equal(b.Sample.CreatedAt) {
			return a.Sample.CreatedAt.After(b.Sample.CreatedAt)
		}
		return a.Sample.ID > b.Sample.ID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

// score applies mismatch penalties to the whole running score, so a sample
// missing both style and tone keeps 0.49 of its base.
func score(sim float64, s models.WritingSample, style models.Style, tone models.Tone) float64 {
	v := weightSimilarity*sim + weightQuality*s.Quality
	if style != models.StyleNone {
		if s.Style == style {
			v += weightStyle
		} else {
			v *= mismatchFactor
		}
	}
	if tone != "" {
		if s.Tone == tone {
			v += weightTone
		} else {
			v *= mismatchFactor
		}
	}
	return math.Round(v*10000) / 10000
}

func (r *Retriever) sampleTokens(s models.WritingSample) map[string]struct{} {
	key := fmt.Sprintf("sample:%d", s.ID)
	if set, ok := r.tokens.Get(key); ok {
		return set
	}
	set := Tokenize(s.Content)
	var size int64
	for t := range set {
		size += int64(len(t)) + 16
	}
	r.tokens.Set(key, set, size)
	return set
}

// Tokenize lowercases text and returns its set of words of at least three
// characters.
func Tokenize(text string) map[string]struct{} {
	set := make(map[string]struct{})
	for _, w := range stylecheck.Words(text) {
		if len([]rune(w)) >= minTokenLen {
			set[w] = struct{}{}
		}
	}
	return set
}

// Jaccard is |a∩b| / |a∪b|, or 0 when both are empty.
func Jaccard(a, b map[string]struct{}) float64 {
	if len(a) > len(b) {
		a, b = b, a
	}
	inter := 0
	for t := range a {
		if _, ok := b[t]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	if union == 0 {
		return 0
	}
	return float64(inter) / float64(union)
}

// Excerpt returns the first n words of a sample, marking truncation.
func Excerpt(s models.WritingSample, n int) string {
	words := strings.Fields(s.Content)
	if n <= 0 || len(words) <= n {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:n], " ") + " ..."
}
