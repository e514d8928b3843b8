package router

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"contentgen/internal/catalog"
	"contentgen/internal/config"
	"contentgen/internal/ledger"
	"contentgen/internal/models"
	"contentgen/internal/repository"
	"contentgen/internal/retriever"
	"contentgen/internal/service"
	"contentgen/internal/utils"
	"contentgen/pkg/model_caller"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleText = "The database implementation is therefore stable under load. " +
	"Moreover, the framework architecture improves performance for every request. " +
	"Consequently, the protocol remains consistent across the distributed system."

type echoGenerator struct{}

func (echoGenerator) Generate(_ context.Context, req model_caller.Request) (string, error) {
	switch models.Phase(req.Phase) {
	case models.PhaseDraft, models.PhaseRefine, models.PhaseFinalize:
		return sampleText, nil
	}
	return "notes", nil
}

type stubPublisher struct{ err error }

func (p stubPublisher) Publish(context.Context, string, map[string]string) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	return "post-1", nil
}

type testServer struct {
	engine *gin.Engine
	jwt    *utils.JWTManager
	orch   *service.Orchestrator
}

func newTestServer(t *testing.T, monthlyCap string, pub service.Publisher) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := models.Open("file:" + uuid.NewString() + "?mode=memory&cache=shared")
	require.NoError(t, err)
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)

	tasks := repository.NewTaskRepository(db)
	samples := repository.NewSampleRepository(db)
	l := ledger.New(repository.NewCostLogRepository(db), decimal.RequireFromString(monthlyCap), "USD")
	r, err := retriever.New(samples, 1<<20, 3)
	require.NoError(t, err)
	t.Cleanup(r.Close)

	cat := catalog.Default()
	locker := service.NewLocalLocker()
	orch, err := service.NewOrchestrator(service.OrchestratorDeps{
		Tasks:     tasks,
		Checks:    repository.NewStyleCheckRepository(db),
		Selector:  catalog.NewSelector(cat),
		Ledger:    l,
		Retriever: r,
		Generator: echoGenerator{},
		Locker:    locker,
		Logger:    logger,
	}, service.OrchestratorOptions{RefineCap: 2, MaxWorkers: 2, CallTimeout: time.Second})
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = orch.Shutdown(ctx)
	})

	cfg := &config.Config{}
	cfg.CORS.Origins = []string{"*"}
	jwt, err := utils.NewJWTManager(utils.TokenOptions{Secret: "test-secret", Algorithm: "HS256", TTL: time.Hour, Issuer: "contentgen"})
	require.NoError(t, err)

	engine := SetupRouter(cfg, jwt, logger, Services{
		Orchestrator: orch,
		Approvals:    service.NewApprovalGate(tasks, repository.NewApprovalRepository(db), pub, locker, 10, logger),
		Costs:        service.NewCostService(orch, l),
		Samples:      service.NewSampleService(samples, r, logger),
		Models:       service.NewModelService(cat),
	})
	return &testServer{engine: engine, jwt: jwt, orch: orch}
}

type envelope struct {
	Code      int             `json:"code"`
	Message   string          `json:"message"`
	ErrorType string          `json:"error_type"`
	Data      json.RawMessage `json:"data"`
	Total     int64           `json:"total"`
}

func (s *testServer) do(t *testing.T, method, path string, userID uint, reviewer bool, body interface{}) (int, envelope) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != 0 {
		token, err := s.jwt.GenerateToken(userID, "user", reviewer)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w.Code, env
}

func (s *testServer) createTask(t *testing.T, userID uint) string {
	t.Helper()
	code, env := s.do(t, http.MethodPost, "/api/tasks", userID, false, gin.H{
		"topic":        "AI in healthcare",
		"style":        "technical",
		"tone":         "formal",
		"target_words": 800,
		"quality_tier": "balanced",
	})
	require.Equal(t, http.StatusCreated, code, env.Message)

	var resp struct {
		TaskID   string `json:"task_id"`
		Phase    string `json:"phase"`
		Estimate struct {
			Total decimal.Decimal `json:"total"`
		} `json:"estimate"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, "pending", resp.Phase)
	assert.True(t, resp.Estimate.Total.Equal(decimal.RequireFromString("0.069")))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.orch.Wait(ctx, resp.TaskID))
	return resp.TaskID
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t, "0", stubPublisher{})
	code, env := s.do(t, http.MethodGet, "/", 0, false, nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, env.Message, "content generation")
}

func TestAPI_RequiresToken(t *testing.T) {
	s := newTestServer(t, "0", stubPublisher{})
	code, env := s.do(t, http.MethodGet, "/api/tasks", 0, false, nil)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.Equal(t, "unauthorized", env.ErrorType)
}

func TestAPI_TaskLifecycle(t *testing.T) {
	s := newTestServer(t, "0", stubPublisher{})

	code, _ := s.do(t, http.MethodPost, "/api/samples", 1, false, gin.H{"title": "ref", "content": sampleText})
	require.Equal(t, http.StatusCreated, code)

	taskID := s.createTask(t, 1)

	code, env := s.do(t, http.MethodGet, "/api/tasks/"+taskID, 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var task models.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, models.PhaseAwaitingApproval, task.Phase)
	assert.True(t, task.TotalCost.Equal(decimal.RequireFromString("0.069")))

	code, _ = s.do(t, http.MethodGet, "/api/tasks/"+taskID, 2, false, nil)
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/tasks/"+taskID+"/costs", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var costs struct {
		Entries []models.CostLogEntry `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &costs))
	assert.Len(t, costs.Entries, 5)

	code, env = s.do(t, http.MethodGet, "/api/tasks/"+taskID+"/style_checks", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var checks []models.StyleCheckRecord
	require.NoError(t, json.Unmarshal(env.Data, &checks))
	assert.Len(t, checks, 1)

	code, env = s.do(t, http.MethodGet, "/api/tasks?phase=awaiting_approval", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, env.Total)

	// owners cannot decide
	code, _ = s.do(t, http.MethodPost, "/api/tasks/"+taskID+"/decision", 1, false, gin.H{"decision": "approve"})
	assert.Equal(t, http.StatusForbidden, code)

	code, env = s.do(t, http.MethodGet, "/api/review/queue", 9, true, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, env.Total)

	code, env = s.do(t, http.MethodPost, "/api/tasks/"+taskID+"/decision", 9, true, gin.H{"decision": "approve"})
	require.Equal(t, http.StatusOK, code, env.Message)
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, models.PhasePublished, task.Phase)
	assert.Equal(t, "post-1", task.PublishedID)

	code, env = s.do(t, http.MethodGet, "/api/tasks/"+taskID+"/approvals", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var records []models.ApprovalRecord
	require.NoError(t, json.Unmarshal(env.Data, &records))
	require.Len(t, records, 1)

	code, env = s.do(t, http.MethodPost, "/api/tasks/"+taskID+"/cancel", 1, false, nil)
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "conflict", env.ErrorType)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	s := newTestServer(t, "0.01", stubPublisher{})

	code, env := s.do(t, http.MethodPost, "/api/tasks", 1, false, gin.H{"topic": "x", "target_words": 10})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.ErrorType)
	assert.Contains(t, env.Message, "TargetWords")

	code, env = s.do(t, http.MethodPost, "/api/tasks", 1, false, gin.H{"topic": "x", "target_words": 500, "tone": "sarcastic"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, env.Message, "known tone")

	code, env = s.do(t, http.MethodPost, "/api/tasks", 1, false, gin.H{"topic": "AI", "target_words": 500})
	assert.Equal(t, http.StatusPaymentRequired, code)
	assert.Equal(t, "budget", env.ErrorType)

	code, env = s.do(t, http.MethodPost, "/api/estimate", 1, false, gin.H{"topic": "AI", "target_words": 500})
	assert.Equal(t, http.StatusOK, code, env.Message)

	code, env = s.do(t, http.MethodGet, "/api/tasks/missing", 1, false, nil)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "not_found", env.ErrorType)

	code, _ = s.do(t, http.MethodGet, "/api/tasks?phase=bogus", 1, false, nil)
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/budget", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var status ledger.BudgetStatus
	require.NoError(t, json.Unmarshal(env.Data, &status))
	assert.True(t, status.Cap.Equal(decimal.RequireFromString("0.01")))
}

func TestAPI_PublishFailureIsBadGateway(t *testing.T) {
	s := newTestServer(t, "0", stubPublisher{err: errors.New("sink down")})
	taskID := s.createTask(t, 1)

	code, env := s.do(t, http.MethodPost, "/api/tasks/"+taskID+"/decision", 9, true, gin.H{"decision": "approve"})
	assert.Equal(t, http.StatusBadGateway, code)
	assert.Equal(t, "publish", env.ErrorType)

	code, env = s.do(t, http.MethodPost, "/api/tasks/"+taskID+"/decision", 9, true, gin.H{"decision": "reject", "feedback": "short"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "validation", env.ErrorType)

	code, env = s.do(t, http.MethodGet, "/api/tasks/"+taskID, 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var task models.Task
	require.NoError(t, json.Unmarshal(env.Data, &task))
	assert.Equal(t, models.PhaseAwaitingApproval, task.Phase)
}

func TestAPI_Samples(t *testing.T) {
	s := newTestServer(t, "0", stubPublisher{})

	code, env := s.do(t, http.MethodPost, "/api/samples", 1, false, gin.H{"title": "ref", "content": sampleText})
	require.Equal(t, http.StatusCreated, code)
	var sample models.WritingSample
	require.NoError(t, json.Unmarshal(env.Data, &sample))
	assert.Equal(t, models.StyleTechnical, sample.Style)

	code, _ = s.do(t, http.MethodPost, "/api/samples", 1, false, gin.H{"title": "tiny", "content": "too short"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, env = s.do(t, http.MethodGet, "/api/samples", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	assert.EqualValues(t, 1, env.Total)

	code, env = s.do(t, http.MethodGet, "/api/samples/search?topic=database+architecture", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var ranked []retriever.Ranked
	require.NoError(t, json.Unmarshal(env.Data, &ranked))
	assert.Len(t, ranked, 1)

	path := "/api/samples/" + strconv.FormatUint(uint64(sample.ID), 10)
	code, _ = s.do(t, http.MethodGet, path, 2, false, nil)
	assert.Equal(t, http.StatusNotFound, code)

	code, env = s.do(t, http.MethodPut, path+"/active", 1, false, gin.H{"active": false})
	require.Equal(t, http.StatusOK, code)
	require.NoError(t, json.Unmarshal(env.Data, &sample))
	assert.False(t, sample.Active)

	code, _ = s.do(t, http.MethodPut, path+"/active", 1, false, gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, http.MethodGet, "/api/samples/abc", 1, false, nil)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAPI_Models(t *testing.T) {
	s := newTestServer(t, "0", stubPublisher{})

	code, env := s.do(t, http.MethodGet, "/api/models", 1, false, nil)
	require.Equal(t, http.StatusOK, code)
	var resp struct {
		Models []struct {
			ID string `json:"id"`
		} `json:"models"`
		Routes map[string]map[string]string `json:"routes"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Len(t, resp.Models, 4)
	assert.Equal(t, "claude-sonnet-4", resp.Routes["draft"]["balanced"])
}
