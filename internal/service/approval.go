package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"contentgen/internal/models"
	"contentgen/internal/repository"

	"github.com/sirupsen/logrus"
)

// Publisher delivers approved content and returns the sink's id for it.
type Publisher interface {
	Publish(ctx context.Context, content string, metadata map[string]string) (string, error)
}

// ApprovalGate applies reviewer decisions to finished tasks.
type ApprovalGate struct {
	tasks             *repository.TaskRepository
	approvals         *repository.ApprovalRepository
	publisher         Publisher
	locker            TaskLocker
	minFeedbackLength int
	logger            logrus.FieldLogger
}

// NewApprovalGate creates an ApprovalGate.
func NewApprovalGate(
	tasks *repository.TaskRepository,
	approvals *repository.ApprovalRepository,
	publisher Publisher,
	locker TaskLocker,
	minFeedbackLength int,
	logger logrus.FieldLogger,
) *ApprovalGate {
	if locker == nil {
		locker = NewLocalLocker()
	}
	return &ApprovalGate{
		tasks:             tasks,
		approvals:         approvals,
		publisher:         publisher,
		locker:            locker,
		minFeedbackLength: minFeedbackLength,
		logger:            logger,
	}
}

// Decide approves or rejects a task awaiting approval. Approval publishes
// first and only marks the task published once the sink has accepted it; a
// publish failure leaves the task awaiting approval. Rejection requires
// feedback and makes no external call.
func (g *ApprovalGate) Decide(ctx context.Context, taskID string, reviewerID uint, approve bool, feedback string) (*models.Task, error) {
	feedback = strings.TrimSpace(feedback)
	if !approve && utf8.RuneCountInString(feedback) < g.minFeedbackLength {
		return nil, newValidationError("rejection feedback must be at least %d characters", g.minFeedbackLength)
	}

	unlock, ok, err := g.locker.TryLock(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("claim task: %w", err)
	}
	if !ok {
		return nil, ErrTaskBusy
	}
	defer unlock()

	task, err := g.tasks.GetByTaskID(taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	if task.Phase != models.PhaseAwaitingApproval {
		return task, fmt.Errorf("%w: task is %s, not awaiting approval", ErrInvalidState, task.Phase)
	}

	entry := g.logger.WithFields(logrus.Fields{"task_id": taskID, "reviewer_id": reviewerID})
	record := &models.ApprovalRecord{TaskID: taskID, ReviewerID: reviewerID, Feedback: feedback}

	if approve {
		publishedID, err := g.publisher.Publish(ctx, task.Content, publishMetadata(task, reviewerID))
		if err != nil {
			entry.WithError(err).Error("publish failed, task stays awaiting approval")
			return task, &PublishError{TaskID: taskID, Err: err}
		}
		task.ApprovalStatus = models.ApprovalApproved
		task.PublishedID = publishedID
		task.SetPhase(models.PhasePublished)
		record.Decision = models.ApprovalApproved
		record.PublishedID = publishedID
	} else {
		task.ApprovalStatus = models.ApprovalRejected
		task.SetPhase(models.PhaseRejected)
		record.Decision = models.ApprovalRejected
	}
	task.ReviewerID = &reviewerID
	task.ReviewerFeedback = feedback

	if err := g.tasks.Save(task); err != nil {
		entry.WithError(err).WithField("published_id", task.PublishedID).Error("persist decision")
		return nil, fmt.Errorf("save decision: %w", err)
	}
	if err := g.approvals.Create(record); err != nil {
		entry.WithError(err).Error("persist approval record")
		return task, fmt.Errorf("save approval record: %w", err)
	}

	entry.WithFields(logrus.Fields{
		"decision":     record.Decision,
		"published_id": task.PublishedID,
	}).Info("approval decision applied")
	return task, nil
}

// History returns every decision recorded for a task.
func (g *ApprovalGate) History(_ context.Context, taskID string) ([]models.ApprovalRecord, error) {
	return g.approvals.ListByTaskID(taskID)
}

func publishMetadata(t *models.Task, reviewerID uint) map[string]string {
	return map[string]string{
		"task_id":      t.TaskID,
		"owner_id":     strconv.FormatUint(uint64(t.OwnerID), 10),
		"reviewer_id":  strconv.FormatUint(uint64(reviewerID), 10),
		"topic":        t.Topic,
		"style":        string(t.Style),
		"tone":         string(t.Tone),
		"needs_review": strconv.FormatBool(t.NeedsReview),
	}
}
