package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"contentgen/internal/dto"
	"contentgen/internal/models"
	"contentgen/internal/repository"
	"contentgen/internal/retriever"
	"contentgen/internal/stylecheck"
	"contentgen/internal/utils"

	"github.com/sirupsen/logrus"
)

// minSampleWords is the shortest text worth analysing as a reference.
const minSampleWords = 20

// SampleService manages an owner's writing samples. Samples are never
// shared across owners.
type SampleService struct {
	samples   *repository.SampleRepository
	retriever SampleRetriever
	logger    logrus.FieldLogger
}

// NewSampleService creates a SampleService.
func NewSampleService(samples *repository.SampleRepository, r SampleRetriever, logger logrus.FieldLogger) *SampleService {
	return &SampleService{samples: samples, retriever: r, logger: logger}
}

// Create analyses and stores a sample. Style, tone, word count and quality
// are derived from the content.
func (s *SampleService) Create(_ context.Context, ownerID uint, req *dto.CreateSampleRequest) (*models.WritingSample, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	content := strings.TrimSpace(req.Content)
	metrics := stylecheck.Analyze(content)
	if metrics.WordCount < minSampleWords {
		return nil, newValidationError("content must have at least %d words", minSampleWords)
	}

	sample := &models.WritingSample{
		OwnerID:   ownerID,
		Title:     strings.TrimSpace(req.Title),
		Content:   content,
		Style:     stylecheck.DetectStyle(content),
		Tone:      stylecheck.DetectTone(content),
		WordCount: metrics.WordCount,
		Quality:   stylecheck.SampleQuality(metrics),
		Active:    true,
	}
	if err := s.samples.Create(sample); err != nil {
		return nil, fmt.Errorf("create sample: %w", err)
	}
	s.logger.WithFields(logrus.Fields{
		"sample_id": sample.ID,
		"owner_id":  ownerID,
		"style":     sample.Style,
		"tone":      sample.Tone,
		"quality":   sample.Quality,
	}).Info("sample stored")
	return sample, nil
}

// Get returns one of the owner's samples.
func (s *SampleService) Get(_ context.Context, ownerID, id uint) (*models.WritingSample, error) {
	sample, err := s.samples.GetByIDAndOwner(id, ownerID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrSampleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load sample: %w", err)
	}
	return sample, nil
}

// List returns a page of the owner's samples.
func (s *SampleService) List(_ context.Context, ownerID uint, offset, limit int) ([]models.WritingSample, int64, error) {
	samples, total, err := s.samples.ListByOwner(ownerID, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list samples: %w", err)
	}
	return samples, total, nil
}

// SetActive toggles whether a sample takes part in retrieval.
func (s *SampleService) SetActive(ctx context.Context, ownerID, id uint, active bool) (*models.WritingSample, error) {
	if err := s.samples.SetActive(id, ownerID, active); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSampleNotFound
		}
		return nil, fmt.Errorf("update sample: %w", err)
	}
	return s.Get(ctx, ownerID, id)
}

// Search previews what retrieval would ground a task on.
func (s *SampleService) Search(ctx context.Context, ownerID uint, q *dto.SearchSamplesQuery) ([]retriever.Ranked, error) {
	if strings.TrimSpace(q.Topic) == "" {
		return nil, newValidationError("topic is required")
	}
	ranked, err := s.retriever.Retrieve(ctx, ownerID, q.Topic, q.Style, q.Tone, q.Limit)
	if errors.Is(err, retriever.ErrRetrievalUnavailable) {
		s.logger.WithError(err).Warn("sample search degraded")
		return ranked, nil
	}
	return ranked, err
}
