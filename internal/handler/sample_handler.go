package handler

import (
	"strconv"

	"contentgen/internal/dto"
	"contentgen/internal/middleware"
	"contentgen/internal/service"
	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
)

// SampleHandler serves the caller's writing samples.
type SampleHandler struct {
	samples *service.SampleService
}

// NewSampleHandler creates a SampleHandler.
func NewSampleHandler(samples *service.SampleService) *SampleHandler {
	return &SampleHandler{samples: samples}
}

func sampleID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil || id == 0 {
		utils.BadRequest(c, "invalid sample id")
		return 0, false
	}
	return uint(id), true
}

// CreateSample uploads a reference text.
func (h *SampleHandler) CreateSample(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateSampleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	sample, err := h.samples.Create(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.CreatedResponse(c, "sample stored", sample)
}

// ListSamples returns a page of the caller's samples.
func (h *SampleHandler) ListSamples(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	offset, limit := q.Normalize()

	samples, total, err := h.samples.List(c.Request.Context(), userID, offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, samples, total, q.Page, q.PerPage)
}

// GetSample returns one sample.
func (h *SampleHandler) GetSample(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, ok := sampleID(c)
	if !ok {
		return
	}

	sample, err := h.samples.Get(c.Request.Context(), userID, id)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, sample)
}

// SetActive includes or excludes a sample from retrieval.
func (h *SampleHandler) SetActive(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)
	id, ok := sampleID(c)
	if !ok {
		return
	}

	var req dto.SetActiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	sample, err := h.samples.SetActive(c.Request.Context(), userID, id, *req.Active)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, sample)
}

// Search previews the samples a task on the topic would be grounded on.
func (h *SampleHandler) Search(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var q dto.SearchSamplesQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}

	ranked, err := h.samples.Search(c.Request.Context(), userID, &q)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, ranked)
}
