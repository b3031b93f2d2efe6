//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/opsgrid/triagekit/internal/api/handlers"
	"github.com/opsgrid/triagekit/internal/jobs"
	"github.com/opsgrid/triagekit/internal/llm"
	"github.com/opsgrid/triagekit/internal/metrics"
	"github.com/opsgrid/triagekit/internal/repository"
	"github.com/opsgrid/triagekit/internal/server"
	"github.com/opsgrid/triagekit/internal/service"
	"github.com/opsgrid/triagekit/internal/testutil"
)

const testAPIKey = "e2e-test-key"

// E2ETestEnv holds all resources needed for end-to-end tests: a real
// Postgres with pgvector, the full HTTP server, a scripted stand-in for the
// generation endpoint, and the background index worker on a fast poll.
type E2ETestEnv struct {
	T           *testing.T
	Ctx         context.Context
	PostgresC   *testutil.PostgresContainer
	Pool        *pgxpool.Pool
	ServerURL   string
	LLMServer   *fakeLLMServer
	HTTPClient  *http.Client
	indexWorker *jobs.Worker
	cancel      context.CancelFunc
	httpSrv     *httptest.Server
}

// fakeLLMServer imitates an OpenAI-compatible chat completions endpoint.
// Tests script the next completion content; the server counts calls so tests
// can assert the no-evidence short circuit never reached it.
type fakeLLMServer struct {
	srv *httptest.Server

	mu      sync.Mutex
	content string
	calls   int
}

func newFakeLLMServer() *fakeLLMServer {
	f := &fakeLLMServer{}
	f.srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.calls++
		content := f.content
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-e2e",
			"object":  "chat.completion",
			"created": time.Now().Unix(),
			"model":   "test-model",
			"choices": []map[string]any{
				{
					"index":         0,
					"message":       map[string]string{"role": "assistant", "content": content},
					"finish_reason": "stop",
				},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	return f
}

func (f *fakeLLMServer) SetContent(content string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.content = content
}

func (f *fakeLLMServer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeLLMServer) Close() {
	f.srv.Close()
}

type staticKeyValidator struct {
	key string
}

func (v *staticKeyValidator) ValidateAPIKey(_ context.Context, token string) error {
	if token != v.key {
		return fmt.Errorf("invalid api key")
	}
	return nil
}

// SetupE2EEnv starts Postgres, wires the full service graph against a fake
// generation endpoint, and serves the router over httptest.
func SetupE2EEnv(t *testing.T) *E2ETestEnv {
	ctx, cancel := context.WithCancel(context.Background())

	pgC := testutil.NewPostgresContainer(ctx, t)
	pool := testutil.NewTestPool(ctx, t, pgC, "../../migrations")

	llmSrv := newFakeLLMServer()

	m := metrics.New()

	memoryRepo := repository.NewMemoryRepository(pool)
	ticketRepo := repository.NewTicketRepository(pool)
	indexJobRepo := repository.NewIndexJobRepository(pool)

	embedder := service.NewHashEmbedder(384)
	memorySvc := service.NewMemoryService(memoryRepo, embedder, service.DefaultChunkConfig(), m)
	retrievalSvc := service.NewRetrievalService(memorySvc)

	llmClient := llm.NewClient(llm.Config{
		BaseURL:     llmSrv.srv.URL + "/v1",
		APIKey:      "test",
		Model:       "test-model",
		Timeout:     5 * time.Second,
		MaxAttempts: 1,
	}, m)

	triageSvc := service.NewTriageService(retrievalSvc, llmClient, service.DefaultTriageConfig(), m)
	ticketSvc := service.NewTicketService(ticketRepo, indexJobRepo, &service.DefaultUUIDGenerator{})
	indexerSvc := service.NewIndexerService(ticketRepo, memorySvc)

	router := server.NewRouter(server.RouterConfig{
		AuthValidator:  &staticKeyValidator{key: testAPIKey},
		MemoryHandler:  handlers.NewMemoryHandler(memorySvc),
		TriageHandler:  handlers.NewTriageHandler(triageSvc),
		TicketHandler:  handlers.NewTicketHandler(ticketSvc),
		MetricsHandler: m.Handler(),
	})

	httpSrv := httptest.NewServer(router)

	indexWorker := jobs.NewWorker(jobs.NewIndexWorker(indexJobRepo, indexerSvc), 100*time.Millisecond)
	go indexWorker.Start(ctx)

	return &E2ETestEnv{
		T:           t,
		Ctx:         ctx,
		PostgresC:   pgC,
		Pool:        pool,
		ServerURL:   httpSrv.URL,
		LLMServer:   llmSrv,
		HTTPClient:  &http.Client{Timeout: 30 * time.Second},
		indexWorker: indexWorker,
		cancel:      cancel,
		httpSrv:     httpSrv,
	}
}

// Cleanup releases all resources.
func (e *E2ETestEnv) Cleanup() {
	e.indexWorker.Stop()
	e.cancel()
	if e.httpSrv != nil {
		e.httpSrv.Close()
	}
	if e.LLMServer != nil {
		e.LLMServer.Close()
	}
	if e.Pool != nil {
		e.Pool.Close()
	}
	if e.PostgresC != nil {
		e.PostgresC.Terminate(context.Background())
	}
}

// APIResponse represents a standard API response.
type APIResponse struct {
	Data  json.RawMessage `json:"data"`
	Error string          `json:"error,omitempty"`
}

// Get performs a GET request with the test API key.
func (e *E2ETestEnv) Get(path string) (*APIResponse, error) {
	return e.doRequest(http.MethodGet, path, nil, testAPIKey)
}

// Post performs a POST request with the test API key.
func (e *E2ETestEnv) Post(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, testAPIKey)
}

// PostUnauthenticated performs a POST request without credentials.
func (e *E2ETestEnv) PostUnauthenticated(path string, body interface{}) (*APIResponse, error) {
	return e.doRequest(http.MethodPost, path, body, "")
}

func (e *E2ETestEnv) doRequest(method, path string, body interface{}, authToken string) (*APIResponse, error) {
	url := e.ServerURL + path

	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return nil, err
	}

	if authToken != "" {
		req.Header.Set("Authorization", "Bearer "+authToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	var apiResp APIResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(respBody))
		}
		return nil, err
	}

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, apiResp.Error)
	}

	return &apiResp, nil
}

// WaitForIndexJob polls until the newest index job for the source reaches a
// terminal state or the timeout passes.
func (e *E2ETestEnv) WaitForIndexJob(sourceType, sourceID string, timeout time.Duration) string {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		var status string
		err := e.Pool.QueryRow(e.Ctx,
			`SELECT status FROM index_jobs
			 WHERE source_type = $1 AND source_id = $2
			 ORDER BY created_at DESC LIMIT 1`,
			sourceType, sourceID,
		).Scan(&status)
		if err == nil && (status == "completed" || status == "failed") {
			return status
		}
		time.Sleep(100 * time.Millisecond)
	}
	e.T.Fatalf("index job for %s/%s did not finish within %s", sourceType, sourceID, timeout)
	return ""
}
