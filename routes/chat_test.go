package routes

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"noddy-ai-backend/internal/chat"
	"noddy-ai-backend/internal/config"
	"noddy-ai-backend/internal/provider"
	"noddy-ai-backend/internal/quota"
	"noddy-ai-backend/internal/rag"
	"noddy-ai-backend/models"

	"github.com/gin-gonic/gin"
)

func newTestEngine(t *testing.T, upstreamStatus int) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if upstreamStatus != http.StatusOK {
			w.WriteHeader(upstreamStatus)
			w.Write([]byte(`{"error":"provider down"}`))
			return
		}
		w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"Hi! ✨"}}],"usage":{"prompt_tokens":5,"completion_tokens":2}}`))
	}))
	t.Cleanup(upstream.Close)

	cfg := &config.Config{
		PrimaryModel:       "meta/llama-3.1-405b-instruct",
		NvidiaEndpoint:     upstream.URL,
		OpenRouterEndpoint: upstream.URL,
		GeminiEndpoint:     upstream.URL,
		OpenRouterAPIKey:   "or-key",
		ChatTimeoutSec:     5,
		QuotaKeyHeader:     "X-Quota-Key",
	}

	embedder := rag.NewHashingEmbedder(32)
	index := rag.NewVectorIndex(32)
	orchestrator := chat.NewOrchestrator(
		quota.NewLedger(100),
		rag.NewRetriever(index, embedder, 2),
		provider.NewRouter(cfg),
		provider.NewClient(5*time.Second),
		chat.NewAssembler(10),
	)

	engine := gin.New()
	SetupChatRoutes(engine, cfg, orchestrator)
	SetupDocumentRoutes(engine, rag.NewIngestor(rag.NewChunker(200), embedder, index))
	return engine
}

func TestChatEndpoint(t *testing.T) {
	engine := newTestEngine(t, http.StatusOK)

	body, _ := json.Marshal(models.ChatRequest{Message: "hello", Model: "mistralai/mixtral-8x7b"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.ChatResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Response == "" || len(resp.Thoughts) == 0 {
		t.Fatalf("expected answer and thoughts, got %+v", resp)
	}
}

func TestChatEndpointRejectsBadInput(t *testing.T) {
	engine := newTestEngine(t, http.StatusOK)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"history": []}`))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing message should be a 400, got %d", w.Code)
	}
}

func TestChatEndpointMapsUpstreamError(t *testing.T) {
	engine := newTestEngine(t, http.StatusServiceUnavailable)

	body, _ := json.Marshal(models.ChatRequest{Message: "hello"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("provider failure should be a 502, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "upstream_error") {
		t.Fatalf("error body should carry the upstream error code: %s", w.Body.String())
	}
}

func TestDocumentsEndpoint(t *testing.T) {
	engine := newTestEngine(t, http.StatusOK)

	body, _ := json.Marshal(models.IngestRequest{Name: "faq.md", Text: strings.Repeat("quota text ", 50)})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/documents", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	engine.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp models.IngestResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Chunks < 2 {
		t.Fatalf("expected multiple chunks, got %d", resp.Chunks)
	}
}
