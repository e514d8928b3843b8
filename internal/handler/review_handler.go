package handler

import (
	"contentgen/internal/dto"
	"contentgen/internal/service"
	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
)

// ReviewHandler serves reviewer-only listings.
type ReviewHandler struct {
	orchestrator *service.Orchestrator
}

// NewReviewHandler creates a ReviewHandler.
func NewReviewHandler(o *service.Orchestrator) *ReviewHandler {
	return &ReviewHandler{orchestrator: o}
}

// Queue lists every task awaiting approval, oldest first.
func (h *ReviewHandler) Queue(c *gin.Context) {
	var q dto.PageQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	offset, limit := q.Normalize()

	tasks, total, err := h.orchestrator.ReviewQueue(viewer(c), offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, tasks, total, q.Page, q.PerPage)
}
