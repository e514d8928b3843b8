package handler

import (
	"contentgen/internal/dto"
	"contentgen/internal/middleware"
	"contentgen/internal/service"
	"contentgen/internal/utils"

	"github.com/gin-gonic/gin"
)

// TaskHandler serves task creation, inspection, cancellation and review.
type TaskHandler struct {
	orchestrator *service.Orchestrator
	approvals    *service.ApprovalGate
	costs        *service.CostService
}

// NewTaskHandler creates a TaskHandler.
func NewTaskHandler(o *service.Orchestrator, approvals *service.ApprovalGate, costs *service.CostService) *TaskHandler {
	return &TaskHandler{orchestrator: o, approvals: approvals, costs: costs}
}

func viewer(c *gin.Context) service.Viewer {
	userID, _ := middleware.GetUserID(c)
	return service.Viewer{UserID: userID, Reviewer: middleware.IsReviewer(c)}
}

// CreateTask submits a task and returns its estimate. Generation runs in
// the background.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, est, err := h.orchestrator.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}

	utils.CreatedResponse(c, "task accepted", dto.CreateTaskResponse{
		TaskID:   task.TaskID,
		Phase:    task.Phase,
		Estimate: est,
	})
}

// Estimate prices a request without creating a task.
func (h *TaskHandler) Estimate(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	est, err := h.orchestrator.Estimate(c.Request.Context(), userID, &req)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, est)
}

// GetTask returns one task.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, err := h.orchestrator.Get(c.Request.Context(), viewer(c), c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, task)
}

// ListTasks returns a page of the caller's tasks.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	var q dto.ListTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		bindError(c, err)
		return
	}
	offset, limit := q.Normalize()

	tasks, total, err := h.orchestrator.List(c.Request.Context(), userID, q.Phase, offset, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.PaginatedResponse(c, tasks, total, q.Page, q.PerPage)
}

// CancelTask stops a pending or generating task.
func (h *TaskHandler) CancelTask(c *gin.Context) {
	task, err := h.orchestrator.Cancel(c.Request.Context(), viewer(c), c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "task cancelled", task)
}

// Decide applies a reviewer's approve or reject decision.
func (h *TaskHandler) Decide(c *gin.Context) {
	reviewerID, _ := middleware.GetUserID(c)

	var req dto.DecisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	task, err := h.approvals.Decide(c.Request.Context(), c.Param("task_id"), reviewerID, req.Approve(), req.Feedback)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessWithMessage(c, "decision recorded", task)
}

// Approvals returns the decision history of a task.
func (h *TaskHandler) Approvals(c *gin.Context) {
	taskID := c.Param("task_id")
	if _, err := h.orchestrator.Get(c.Request.Context(), viewer(c), taskID); err != nil {
		respondError(c, err)
		return
	}
	records, err := h.approvals.History(c.Request.Context(), taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, records)
}

// Costs returns the per-phase spend of a task and its cost log entries.
func (h *TaskHandler) Costs(c *gin.Context) {
	resp, err := h.costs.TaskCosts(c.Request.Context(), viewer(c), c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, resp)
}

// StyleChecks returns every QA pass of a task.
func (h *TaskHandler) StyleChecks(c *gin.Context) {
	checks, err := h.orchestrator.StyleChecks(c.Request.Context(), viewer(c), c.Param("task_id"))
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, checks)
}

// Budget reports the caller's spend this month.
func (h *TaskHandler) Budget(c *gin.Context) {
	userID, _ := middleware.GetUserID(c)

	status, err := h.costs.Budget(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	utils.SuccessResponse(c, status)
}
