package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"contentgen/internal/catalog"
	"contentgen/internal/dto"
	"contentgen/internal/ledger"
	"contentgen/internal/models"
	"contentgen/internal/repository"
	"contentgen/internal/retriever"
	"contentgen/pkg/model_caller"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// referenceText reads as formal and technical.
const referenceText = "The database implementation is therefore stable under load. " +
	"Moreover, the framework architecture improves performance for every request. " +
	"Consequently, the protocol remains consistent across the distributed system."

const casualText = "Hey, this stuff is really cool. Yeah, totally awesome. You gonna love it."

type fakeGenerator struct {
	mu    sync.Mutex
	calls []model_caller.Request
	fn    func(ctx context.Context, req model_caller.Request) (string, error)
}

func (f *fakeGenerator) Generate(ctx context.Context, req model_caller.Request) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	fn := f.fn
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return defaultOutput(req), nil
}

func (f *fakeGenerator) setFn(fn func(ctx context.Context, req model_caller.Request) (string, error)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fn = fn
}

func defaultOutput(req model_caller.Request) string {
	switch models.Phase(req.Phase) {
	case models.PhaseDraft, models.PhaseRefine, models.PhaseFinalize:
		return referenceText
	default:
		return "notes on " + req.Phase
	}
}

type harnessConfig struct {
	monthlyCap  string
	refineCap   int
	callTimeout time.Duration
}

func defaultHarnessConfig() harnessConfig {
	return harnessConfig{monthlyCap: "0", refineCap: 2, callTimeout: time.Second}
}

type harness struct {
	db        *gorm.DB
	tasks     *repository.TaskRepository
	costs     *repository.CostLogRepository
	samples   *repository.SampleRepository
	checks    *repository.StyleCheckRepository
	approvals *repository.ApprovalRepository
	ledger    *ledger.Ledger
	selector  *catalog.Selector
	retriever *retriever.Retriever
	gen       *fakeGenerator
	locker    *LocalLocker
	orch      *Orchestrator
	logger    *logrus.Logger
}

func newHarness(t *testing.T, cfg harnessConfig) *harness {
	t.Helper()
	db, err := models.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)

	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	h := &harness{
		db:        db,
		tasks:     repository.NewTaskRepository(db),
		costs:     repository.NewCostLogRepository(db),
		samples:   repository.NewSampleRepository(db),
		checks:    repository.NewStyleCheckRepository(db),
		approvals: repository.NewApprovalRepository(db),
		selector:  catalog.NewSelector(catalog.Default()),
		gen:       &fakeGenerator{},
		locker:    NewLocalLocker(),
		logger:    logger,
	}
	h.ledger = ledger.New(h.costs, decimal.RequireFromString(cfg.monthlyCap), "USD")
	h.retriever, err = retriever.New(h.samples, 1<<20, 3)
	require.NoError(t, err)
	t.Cleanup(h.retriever.Close)

	h.orch, err = NewOrchestrator(OrchestratorDeps{
		Tasks:     h.tasks,
		Checks:    h.checks,
		Selector:  h.selector,
		Ledger:    h.ledger,
		Retriever: h.retriever,
		Generator: h.gen,
		Locker:    h.locker,
		Logger:    logger,
	}, OrchestratorOptions{
		RefineCap:   cfg.refineCap,
		MaxWorkers:  4,
		CallTimeout: cfg.callTimeout,
	})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = h.orch.Shutdown(ctx)
	})
	return h
}

func (h *harness) addReferenceSample(t *testing.T, owner uint) {
	t.Helper()
	require.NoError(t, h.samples.Create(&models.WritingSample{
		OwnerID:   owner,
		Title:     "platform notes",
		Content:   referenceText,
		Style:     models.StyleTechnical,
		Tone:      models.ToneFormal,
		WordCount: 26,
		Quality:   0.7,
		Active:    true,
	}))
}

func healthcareRequest() *dto.CreateTaskRequest {
	return &dto.CreateTaskRequest{
		Topic:       "AI in healthcare",
		Style:       models.StyleTechnical,
		Tone:        models.ToneFormal,
		TargetWords: 800,
		QualityTier: models.TierBalanced,
	}
}

func (h *harness) submitAndWait(t *testing.T, owner uint, req *dto.CreateTaskRequest) *models.Task {
	t.Helper()
	task, _, err := h.orch.Submit(context.Background(), owner, req)
	require.NoError(t, err)
	return h.wait(t, task.TaskID)
}

func (h *harness) wait(t *testing.T, taskID string) *models.Task {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, h.orch.Wait(ctx, taskID))
	task, err := h.tasks.GetByTaskID(taskID)
	require.NoError(t, err)
	return task
}

func (h *harness) entries(t *testing.T, taskID string) []models.CostLogEntry {
	t.Helper()
	entries, err := h.costs.ListByTaskID(taskID)
	require.NoError(t, err)
	return entries
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
