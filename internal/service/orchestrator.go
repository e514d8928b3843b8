package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"contentgen/internal/catalog"
	"contentgen/internal/dto"
	"contentgen/internal/ledger"
	"contentgen/internal/models"
	"contentgen/internal/repository"
	"contentgen/internal/retriever"
	"contentgen/internal/stylecheck"
	"contentgen/internal/utils"
	"contentgen/pkg/model_caller"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

// Generator runs one external generation call.
type Generator interface {
	Generate(ctx context.Context, req model_caller.Request) (string, error)
}

// SampleRetriever ranks an owner's writing samples for grounding.
type SampleRetriever interface {
	Retrieve(ctx context.Context, ownerID uint, topic string, style models.Style, tone models.Tone, limit int) ([]retriever.Ranked, error)
}

// Viewer is the caller identity taken from the access token. Reviewers may
// see every task; everyone else only their own.
type Viewer struct {
	UserID   uint
	Reviewer bool
}

func (v Viewer) canSee(t *models.Task) bool {
	return v.Reviewer || t.OwnerID == v.UserID
}

// OrchestratorOptions tunes phase execution.
type OrchestratorOptions struct {
	RefineCap   int
	MaxWorkers  int
	CallTimeout time.Duration
}

// OrchestratorDeps are the collaborators of an Orchestrator.
type OrchestratorDeps struct {
	Tasks     *repository.TaskRepository
	Checks    *repository.StyleCheckRepository
	Selector  *catalog.Selector
	Ledger    *ledger.Ledger
	Retriever SampleRetriever
	Generator Generator
	Locker    TaskLocker
	Logger    logrus.FieldLogger
}

var errCostNotRecorded = errors.New("cost log entry not recorded")

// phaseHandler runs one phase against the run state and returns the phase
// to enter next.
type phaseHandler func(ctx context.Context, rs *runState) (models.Phase, error)

// runState is what one worker knows about its task between phases.
type runState struct {
	task      *models.Task
	samples   []retriever.Ranked
	reference *stylecheck.Metrics
	retrieved bool
	log       *logrus.Entry
}

type worker struct {
	cancel    context.CancelFunc
	done      chan struct{}
	cancelled atomic.Bool
}

// Orchestrator drives tasks through the phase state machine, one worker
// goroutine per in-flight task.
type Orchestrator struct {
	tasks     *repository.TaskRepository
	checks    *repository.StyleCheckRepository
	selector  *catalog.Selector
	ledger    *ledger.Ledger
	retriever SampleRetriever
	generator Generator
	locker    TaskLocker
	logger    logrus.FieldLogger

	opts     OrchestratorOptions
	sem      *semaphore.Weighted
	handlers map[models.Phase]phaseHandler

	baseCtx context.Context
	stop    context.CancelFunc
	wg      sync.WaitGroup

	mu      sync.Mutex
	workers map[string]*worker
	closed  bool
}

// NewOrchestrator wires an Orchestrator. It fails when a runnable phase has
// no handler.
func NewOrchestrator(deps OrchestratorDeps, opts OrchestratorOptions) (*Orchestrator, error) {
	if opts.RefineCap < 0 {
		opts.RefineCap = 0
	}
	if opts.MaxWorkers <= 0 {
		opts.MaxWorkers = 16
	}
	if opts.CallTimeout <= 0 {
		opts.CallTimeout = 120 * time.Second
	}
	if deps.Locker == nil {
		deps.Locker = NewLocalLocker()
	}
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}

	ctx, stop := context.WithCancel(context.Background())
	o := &Orchestrator{
		tasks:     deps.Tasks,
		checks:    deps.Checks,
		selector:  deps.Selector,
		ledger:    deps.Ledger,
		retriever: deps.Retriever,
		generator: deps.Generator,
		locker:    deps.Locker,
		logger:    deps.Logger,
		opts:      opts,
		sem:       semaphore.NewWeighted(int64(opts.MaxWorkers)),
		baseCtx:   ctx,
		stop:      stop,
		workers:   make(map[string]*worker),
	}
	o.handlers = map[models.Phase]phaseHandler{
		models.PhasePending:  o.handlePending,
		models.PhaseResearch: o.handleResearch,
		models.PhaseOutline:  o.handleOutline,
		models.PhaseDraft:    o.handleDraft,
		models.PhaseAssess:   o.handleAssess,
		models.PhaseRefine:   o.handleRefine,
		models.PhaseFinalize: o.handleFinalize,
	}

	runnable := append([]models.Phase{models.PhasePending}, models.GenerationPhases...)
	for _, p := range runnable {
		if _, ok := o.handlers[p]; !ok {
			stop()
			return nil, fmt.Errorf("no handler for phase %s", p)
		}
	}
	return o, nil
}

// Submit validates and prices a request, checks the budget, stores the task
// and starts its worker. The estimate is returned before any generation.
func (o *Orchestrator) Submit(ctx context.Context, ownerID uint, req *dto.CreateTaskRequest) (*models.Task, *catalog.Estimate, error) {
	if o.isClosed() {
		return nil, nil, ErrShuttingDown
	}

	task, err := o.newTask(ownerID, req)
	if err != nil {
		return nil, nil, err
	}
	est, err := o.selector.EstimateTask(task.ModelAssignments, task.QualityTier, o.opts.RefineCap)
	if err != nil {
		return nil, nil, newValidationError("%v", err)
	}

	status, err := o.ledger.BudgetStatus(ctx, ownerID)
	if err != nil {
		return nil, nil, fmt.Errorf("budget status: %w", err)
	}
	if !status.Allows(est.Total) {
		return nil, nil, &BudgetExceededError{Required: est.Total, Remaining: status.Remaining, Currency: status.Currency}
	}

	task.EstimatedCost = est.Total
	if err := o.tasks.Create(task); err != nil {
		return nil, nil, fmt.Errorf("create task: %w", err)
	}
	o.logger.WithFields(logrus.Fields{
		"task_id":  task.TaskID,
		"owner_id": ownerID,
		"tier":     task.QualityTier,
		"estimate": est.Total.String(),
	}).Info("task submitted")

	if err := o.start(task.TaskID); err != nil {
		return task, est, err
	}
	return task, est, nil
}

// Estimate prices a request without creating a task.
func (o *Orchestrator) Estimate(_ context.Context, ownerID uint, req *dto.CreateTaskRequest) (*catalog.Estimate, error) {
	task, err := o.newTask(ownerID, req)
	if err != nil {
		return nil, err
	}
	est, err := o.selector.EstimateTask(task.ModelAssignments, task.QualityTier, o.opts.RefineCap)
	if err != nil {
		return nil, newValidationError("%v", err)
	}
	return est, nil
}

func (o *Orchestrator) newTask(ownerID uint, req *dto.CreateTaskRequest) (*models.Task, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, &ValidationError{Message: err.Error()}
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, newValidationError("topic is required")
	}

	tier := req.QualityTier
	if tier == "" {
		tier = models.TierBalanced
	}
	tolerance := 10
	if req.TolerancePct != nil {
		tolerance = *req.TolerancePct
	}

	assignments := make(models.StringMap, len(req.ModelAssignments))
	for phaseName, modelID := range req.ModelAssignments {
		phase := models.Phase(phaseName)
		if !phase.IsGeneration() {
			return nil, newValidationError("model_assignments: %q is not a generation phase", phaseName)
		}
		if modelID == "" {
			continue
		}
		if _, ok := o.selector.Catalog().Model(modelID); !ok {
			return nil, newValidationError("model_assignments: unknown model %q for %s", modelID, phase)
		}
		assignments[phaseName] = modelID
	}

	return &models.Task{
		TaskID:           uuid.NewString(),
		OwnerID:          ownerID,
		Topic:            topic,
		Style:            req.Style,
		Tone:             req.Tone,
		TargetWords:      req.TargetWords,
		TolerancePct:     tolerance,
		Phase:            models.PhasePending,
		PhaseUpdatedAt:   time.Now(),
		ModelAssignments: assignments,
		QualityTier:      tier,
		TotalCost:        decimal.Zero,
		CostBreakdown:    make(models.CostBreakdown),
		ApprovalStatus:   models.ApprovalNone,
	}, nil
}

// Get returns a task the viewer may see.
func (o *Orchestrator) Get(_ context.Context, viewer Viewer, taskID string) (*models.Task, error) {
	task, err := o.load(taskID)
	if err != nil {
		return nil, err
	}
	if !viewer.canSee(task) {
		return nil, ErrForbidden
	}
	return task, nil
}

// List returns the owner's tasks, optionally filtered by phase.
func (o *Orchestrator) List(_ context.Context, ownerID uint, phase models.Phase, offset, limit int) ([]models.Task, int64, error) {
	if phase != "" && !phase.Valid() {
		return nil, 0, newValidationError("unknown phase %q", phase)
	}
	tasks, total, err := o.tasks.ListByOwner(ownerID, phase, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

// ReviewQueue lists tasks awaiting a decision, oldest first.
func (o *Orchestrator) ReviewQueue(viewer Viewer, offset, limit int) ([]models.Task, int64, error) {
	if !viewer.Reviewer {
		return nil, 0, ErrForbidden
	}
	tasks, total, err := o.tasks.ListAwaitingApproval(offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list review queue: %w", err)
	}
	return tasks, total, nil
}

// StyleChecks returns every QA pass recorded for a task.
func (o *Orchestrator) StyleChecks(ctx context.Context, viewer Viewer, taskID string) ([]models.StyleCheckRecord, error) {
	if _, err := o.Get(ctx, viewer, taskID); err != nil {
		return nil, err
	}
	return o.checks.ListByTaskID(taskID)
}

// Cancel stops a task that is pending or generating. A live worker is
// cancelled and awaited so its in-flight attempt is logged before the task
// is marked cancelled.
func (o *Orchestrator) Cancel(ctx context.Context, viewer Viewer, taskID string) (*models.Task, error) {
	task, err := o.Get(ctx, viewer, taskID)
	if err != nil {
		return nil, err
	}
	if !task.Phase.Cancellable() {
		return task, fmt.Errorf("%w: cannot cancel a task in %s", ErrInvalidState, task.Phase)
	}

	o.mu.Lock()
	w, live := o.workers[taskID]
	o.mu.Unlock()

	if live {
		w.cancelled.Store(true)
		w.cancel()
		select {
		case <-w.done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		task, err = o.load(taskID)
		if err != nil {
			return nil, err
		}
		if task.Phase != models.PhaseCancelled {
			return task, fmt.Errorf("%w: task reached %s before it could be cancelled", ErrInvalidState, task.Phase)
		}
		return task, nil
	}

	unlock, ok, err := o.locker.TryLock(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrTaskBusy
	}
	defer unlock()

	task, err = o.load(taskID)
	if err != nil {
		return nil, err
	}
	if !task.Phase.Cancellable() {
		return task, fmt.Errorf("%w: cannot cancel a task in %s", ErrInvalidState, task.Phase)
	}
	o.finish(task, models.PhaseCancelled, "cancelled by owner")
	if err := o.tasks.Save(task); err != nil {
		return nil, fmt.Errorf("save cancelled task: %w", err)
	}
	o.logger.WithField("task_id", taskID).Info("task cancelled")
	return task, nil
}

// Wait blocks until the task's worker exits, if one is running.
func (o *Orchestrator) Wait(ctx context.Context, taskID string) error {
	o.mu.Lock()
	w, live := o.workers[taskID]
	o.mu.Unlock()
	if !live {
		return nil
	}
	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Resume restarts pending tasks and fails tasks caught mid-phase by a
// restart. Phases are never retried across a restart. Tasks claimed by
// another process are left alone.
func (o *Orchestrator) Resume(ctx context.Context) (int, error) {
	phases := append([]models.Phase{models.PhasePending}, models.GenerationPhases...)
	tasks, err := o.tasks.ListByPhase(phases...)
	if err != nil {
		return 0, fmt.Errorf("list unfinished tasks: %w", err)
	}

	resumed := 0
	for i := range tasks {
		task := &tasks[i]
		if task.Phase == models.PhasePending {
			if err := o.start(task.TaskID); err != nil {
				return resumed, err
			}
			resumed++
			continue
		}

		unlock, ok, err := o.locker.TryLock(ctx, task.TaskID)
		if err != nil {
			return resumed, err
		}
		if !ok {
			continue
		}
		o.refreshCosts(task)
		o.finish(task, models.PhaseFailed, fmt.Sprintf("interrupted during %s by a restart", task.Phase))
		err = o.tasks.Save(task)
		unlock()
		if err != nil {
			return resumed, fmt.Errorf("fail interrupted task: %w", err)
		}
		o.logger.WithField("task_id", task.TaskID).Warn("interrupted task marked failed")
	}
	return resumed, nil
}

// Shutdown stops accepting tasks, interrupts running workers and waits for
// them until ctx is done.
func (o *Orchestrator) Shutdown(ctx context.Context) error {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.stop()

	done := make(chan struct{})
	go func() {
		o.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) isClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}

func (o *Orchestrator) load(taskID string) (*models.Task, error) {
	task, err := o.tasks.GetByTaskID(taskID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrTaskNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load task: %w", err)
	}
	return task, nil
}

func (o *Orchestrator) start(taskID string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return ErrShuttingDown
	}
	if _, running := o.workers[taskID]; running {
		return ErrTaskBusy
	}

	ctx, cancel := context.WithCancel(o.baseCtx)
	w := &worker{cancel: cancel, done: make(chan struct{})}
	o.workers[taskID] = w
	o.wg.Add(1)
	go o.run(ctx, taskID, w)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, taskID string, w *worker) {
	defer func() {
		w.cancel()
		o.mu.Lock()
		delete(o.workers, taskID)
		o.mu.Unlock()
		close(w.done)
		o.wg.Done()
	}()
	entry := o.logger.WithField("task_id", taskID)

	if err := o.sem.Acquire(ctx, 1); err != nil {
		o.abandonQueued(taskID, w, entry)
		return
	}
	defer o.sem.Release(1)

	unlock, ok, err := o.locker.TryLock(ctx, taskID)
	if err != nil {
		entry.WithError(err).Error("claim task")
		return
	}
	if !ok {
		entry.Warn("task claimed elsewhere, skipping")
		return
	}
	defer unlock()

	task, err := o.load(taskID)
	if err != nil {
		entry.WithError(err).Error("load task")
		return
	}
	o.drive(ctx, &runState{task: task, log: entry}, w)
}

// drive runs phases strictly in order. Each transition is saved before the
// next phase starts.
func (o *Orchestrator) drive(ctx context.Context, rs *runState, w *worker) {
	task := rs.task
	for !task.Phase.IsTerminal() && task.Phase != models.PhaseAwaitingApproval {
		if ctx.Err() != nil {
			o.abandon(rs, w)
			return
		}

		phase := task.Phase
		handler, ok := o.handlers[phase]
		if !ok {
			o.fail(rs, fmt.Errorf("no handler for phase %s", phase))
			return
		}
		rs.log = o.logger.WithFields(logrus.Fields{"task_id": task.TaskID, "phase": phase})

		next, err := handler(ctx, rs)
		if err != nil {
			if ctx.Err() != nil {
				o.abandon(rs, w)
				return
			}
			o.fail(rs, err)
			return
		}

		task.SetPhase(next)
		if err := o.tasks.Save(task); err != nil {
			rs.log.WithError(err).Error("persist phase transition")
			o.fail(rs, fmt.Errorf("persist transition to %s: %w", next, err))
			return
		}
		rs.log.WithField("next", next).Info("phase complete")
	}
}

func (o *Orchestrator) finish(task *models.Task, phase models.Phase, message string) {
	now := time.Now()
	task.SetPhase(phase)
	task.ErrorMessage = message
	task.CompletedAt = &now
}

func (o *Orchestrator) fail(rs *runState, cause error) {
	o.refreshCosts(rs.task)
	o.finish(rs.task, models.PhaseFailed, cause.Error())
	if err := o.tasks.Save(rs.task); err != nil {
		rs.log.WithError(err).Error("persist failed task")
	}
	rs.log.WithError(cause).WithField("error_type", ErrorType(cause)).Error("task failed")
}

// abandon ends a task whose context was cancelled: by its owner, or by
// shutdown.
func (o *Orchestrator) abandon(rs *runState, w *worker) {
	o.refreshCosts(rs.task)
	if w.cancelled.Load() {
		o.finish(rs.task, models.PhaseCancelled, "cancelled by owner")
		rs.log.Info("task cancelled")
	} else {
		o.finish(rs.task, models.PhaseFailed, fmt.Sprintf("interrupted during %s by shutdown", rs.task.Phase))
		rs.log.Warn("task interrupted by shutdown")
	}
	if err := o.tasks.Save(rs.task); err != nil {
		rs.log.WithError(err).Error("persist abandoned task")
	}
}

// abandonQueued handles a worker cancelled while waiting for a slot. Only an
// explicit cancel changes the stored task; a queued task interrupted by
// shutdown stays pending for the next Resume.
func (o *Orchestrator) abandonQueued(taskID string, w *worker, entry *logrus.Entry) {
	if !w.cancelled.Load() {
		return
	}
	unlock, ok, err := o.locker.TryLock(context.Background(), taskID)
	if err != nil || !ok {
		entry.WithError(err).Warn("cancel queued task: claim unavailable")
		return
	}
	defer unlock()

	task, err := o.load(taskID)
	if err != nil {
		entry.WithError(err).Error("load queued task")
		return
	}
	o.abandon(&runState{task: task, log: entry}, w)
}

// refreshCosts rebuilds the breakdown from the ledger so the total always
// matches the logged entries.
func (o *Orchestrator) refreshCosts(task *models.Task) {
	summary, err := o.ledger.Aggregate(context.Background(), task.TaskID)
	if err != nil {
		o.logger.WithError(err).WithField("task_id", task.TaskID).Error("aggregate costs")
		return
	}
	task.ApplyCosts(summary.Breakdown)
}

func (o *Orchestrator) handlePending(_ context.Context, _ *runState) (models.Phase, error) {
	return models.PhaseResearch, nil
}

func (o *Orchestrator) handleResearch(ctx context.Context, rs *runState) (models.Phase, error) {
	text, err := o.generate(ctx, rs, models.PhaseResearch, researchPrompt(rs.task))
	if err != nil {
		return "", err
	}
	rs.task.SetOutput(models.PhaseResearch, text)
	return models.PhaseOutline, nil
}

func (o *Orchestrator) handleOutline(ctx context.Context, rs *runState) (models.Phase, error) {
	text, err := o.generate(ctx, rs, models.PhaseOutline, outlinePrompt(rs.task))
	if err != nil {
		return "", err
	}
	rs.task.SetOutput(models.PhaseOutline, text)
	return models.PhaseDraft, nil
}

func (o *Orchestrator) handleDraft(ctx context.Context, rs *runState) (models.Phase, error) {
	if err := o.ground(ctx, rs); err != nil {
		return "", err
	}
	text, err := o.generate(ctx, rs, models.PhaseDraft, draftPrompt(rs.task, rs.samples))
	if err != nil {
		return "", err
	}
	rs.task.Content = text
	rs.task.SetOutput(models.PhaseDraft, text)
	return models.PhaseAssess, nil
}

func (o *Orchestrator) handleAssess(ctx context.Context, rs *runState) (models.Phase, error) {
	critique, err := o.generate(ctx, rs, models.PhaseAssess, assessPrompt(rs.task))
	if err != nil {
		return "", err
	}
	rs.task.SetOutput(models.PhaseAssess, critique)
	if err := o.qualityCheck(ctx, rs, models.PhaseAssess); err != nil {
		return "", err
	}
	return o.afterQualityCheck(rs), nil
}

func (o *Orchestrator) handleRefine(ctx context.Context, rs *runState) (models.Phase, error) {
	rs.task.RefineAttempts++
	if err := o.ground(ctx, rs); err != nil {
		return "", err
	}
	text, err := o.generate(ctx, rs, models.PhaseRefine, refinePrompt(rs.task, rs.samples))
	if err != nil {
		return "", err
	}
	rs.task.Content = text
	rs.task.SetOutput(models.PhaseRefine, text)
	if err := o.qualityCheck(ctx, rs, models.PhaseRefine); err != nil {
		return "", err
	}
	return o.afterQualityCheck(rs), nil
}

func (o *Orchestrator) handleFinalize(ctx context.Context, rs *runState) (models.Phase, error) {
	text, err := o.generate(ctx, rs, models.PhaseFinalize, finalizePrompt(rs.task))
	if err != nil {
		return "", err
	}
	now := time.Now()
	rs.task.Content = text
	rs.task.SetOutput(models.PhaseFinalize, text)
	rs.task.CompletedAt = &now
	return models.PhaseAwaitingApproval, nil
}

// afterQualityCheck picks refine while the result fails and attempts remain,
// otherwise finalize. A failing result at the cap is flagged for review.
func (o *Orchestrator) afterQualityCheck(rs *runState) models.Phase {
	task := rs.task
	switch {
	case task.StyleResult != nil && task.StyleResult.Passing:
		return models.PhaseFinalize
	case task.RefineAttempts < o.opts.RefineCap:
		return models.PhaseRefine
	default:
		task.NeedsReview = true
		rs.log.WithField("refine_attempts", task.RefineAttempts).Warn("refine cap reached, flagging for review")
		return models.PhaseFinalize
	}
}

// ground retrieves reference samples once per run. An unavailable store
// degrades to ungrounded generation.
func (o *Orchestrator) ground(ctx context.Context, rs *runState) error {
	if rs.retrieved || o.retriever == nil {
		return nil
	}
	task := rs.task
	ranked, err := o.retriever.Retrieve(ctx, task.OwnerID, task.Topic, task.Style, task.Tone, 0)
	if err != nil {
		if errors.Is(err, retriever.ErrRetrievalUnavailable) {
			rs.log.WithError(err).Warn("sample retrieval unavailable, generating ungrounded")
			rs.retrieved = true
			return nil
		}
		return err
	}
	rs.retrieved = true
	rs.samples = ranked

	texts := make([]string, 0, len(ranked))
	for _, r := range ranked {
		texts = append(texts, r.Sample.Content)
	}
	rs.reference = stylecheck.MetricsFromSamples(texts)
	rs.log.WithField("samples", len(ranked)).Debug("grounding samples retrieved")
	return nil
}

// qualityCheck scores the current content and records the pass.
func (o *Orchestrator) qualityCheck(_ context.Context, rs *runState, phase models.Phase) error {
	task := rs.task
	result := stylecheck.Validate(task.Content, rs.reference, task.Style, task.Tone)
	task.StyleResult = result

	record := models.NewStyleCheckRecord(task.TaskID, task.RefineAttempts+1, phase, result)
	if err := o.checks.Create(record); err != nil {
		return fmt.Errorf("store style check: %w", err)
	}
	rs.log.WithFields(logrus.Fields{
		"overall": result.Overall,
		"passing": result.Passing,
		"issues":  len(result.Issues),
	}).Info("style check")
	return nil
}

// generate walks the phase's fallback chain, logging one cost entry per
// attempt. It stops at the first success or on cancellation. It also stops
// when the chain is exhausted or the next candidate is over budget.
func (o *Orchestrator) generate(ctx context.Context, rs *runState, phase models.Phase, prompt string) (string, error) {
	task := rs.task
	candidates, err := o.selector.Candidates(phase, task.ExplicitModel(phase), task.QualityTier)
	if err != nil {
		return "", &GenerationError{Phase: phase, Err: err}
	}
	// each candidate is priced before it is called; a fallback can cost more
	// than the primary
	var (
		lastErr   error
		lastModel string
		attempts  int
		budgetErr error
	)
	for i, c := range candidates {
		if ctx.Err() != nil {
			break
		}
		if err := o.checkPhaseBudget(ctx, task, phase, c.ModelID); err != nil {
			if i == 0 {
				return "", err
			}
			budgetErr = err
			rs.log.WithError(err).WithField("model", c.ModelID).Warn("fallback model over budget")
			break
		}
		if i > 0 {
			rs.log.WithFields(logrus.Fields{
				"from":    lastModel,
				"to":      c.ModelID,
				"tier":    c.Tier,
				"attempt": i + 1,
			}).Warn("falling back to next model")
		}
		attempts++
		lastModel = c.ModelID

		text, err := o.attempt(ctx, rs, phase, i+1, c.ModelID, prompt)
		if err == nil {
			o.refreshCosts(task)
			return text, nil
		}
		lastErr = err
		if errors.Is(err, errCostNotRecorded) {
			break
		}
	}

	o.refreshCosts(task)
	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	if budgetErr != nil {
		return "", budgetErr
	}
	return "", &GenerationError{Phase: phase, ModelID: lastModel, Attempts: attempts, Err: lastErr}
}

func (o *Orchestrator) checkPhaseBudget(ctx context.Context, task *models.Task, phase models.Phase, modelID string) error {
	price, err := o.selector.EstimateCost(phase, modelID)
	if err != nil {
		return &GenerationError{Phase: phase, ModelID: modelID, Err: err}
	}
	status, err := o.ledger.BudgetStatus(ctx, task.OwnerID)
	if err != nil {
		return fmt.Errorf("budget status: %w", err)
	}
	if !status.Allows(price) {
		return &BudgetExceededError{Phase: phase, Required: price, Remaining: status.Remaining, Currency: status.Currency}
	}
	return nil
}

// attempt makes one bounded call and records its cost entry whatever the
// outcome. The entry is written even when ctx was cancelled mid-call.
func (o *Orchestrator) attempt(ctx context.Context, rs *runState, phase models.Phase, n int, modelID, prompt string) (string, error) {
	task := rs.task
	provider := o.selector.Provider(modelID)

	callCtx, cancel := context.WithTimeout(ctx, o.opts.CallTimeout)
	start := time.Now()
	text, err := o.generator.Generate(callCtx, model_caller.Request{
		Phase:    string(phase),
		Provider: provider,
		Model:    modelID,
		System:   systemPrompt,
		Prompt:   prompt,
	})
	timedOut := errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil
	cancel()

	if err == nil && strings.TrimSpace(text) == "" {
		err = errors.New("empty generation output")
	}
	if err != nil && timedOut {
		err = fmt.Errorf("timed out after %v: %w", o.opts.CallTimeout, err)
	}

	entry := &models.CostLogEntry{
		TaskID:     task.TaskID,
		OwnerID:    task.OwnerID,
		Phase:      phase,
		ModelID:    modelID,
		Provider:   provider,
		Attempt:    n,
		Cost:       decimal.Zero,
		DurationMs: time.Since(start).Milliseconds(),
		Success:    err == nil,
	}
	if err != nil {
		entry.ErrorMessage = err.Error()
	} else if price, perr := o.selector.EstimateCost(phase, modelID); perr != nil {
		// the call succeeded, so the output is kept; the spend is unknown
		rs.log.WithError(perr).WithField("model", modelID).Error("no price for model, cost recorded as zero")
	} else {
		entry.Cost = price
	}

	if rerr := o.ledger.Record(context.WithoutCancel(ctx), entry); rerr != nil {
		rs.log.WithError(rerr).Error("cost log write failed")
		return "", fmt.Errorf("%w: %v", errCostNotRecorded, rerr)
	}

	fields := logrus.Fields{
		"model":       modelID,
		"provider":    provider,
		"attempt":     n,
		"cost":        entry.Cost.String(),
		"duration_ms": entry.DurationMs,
	}
	if err != nil {
		rs.log.WithFields(fields).WithError(err).Warn("generation attempt failed")
		return "", err
	}
	rs.log.WithFields(fields).Info("generation attempt succeeded")
	return text, nil
}
