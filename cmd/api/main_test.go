package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/chappy-widget-api/internal/config"
	"github.com/wolfman30/chappy-widget-api/internal/conversation"
	"github.com/wolfman30/chappy-widget-api/internal/usage"
	"github.com/wolfman30/chappy-widget-api/pkg/logging"
)

func TestSetupChatMetricsExposesMetrics(t *testing.T) {
	handler, chatMetrics := setupChatMetrics()
	if handler == nil || chatMetrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	chatMetrics.ObserveGate("DEMO_ACTIVE", true)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "chappy_chat_gate_decisions_total") {
		t.Fatalf("expected gate counter to be exported")
	}
}

func TestSetupEventStoreWithoutDatabaseUsesMemory(t *testing.T) {
	store, closer, err := setupEventStore(context.Background(), &appconfig.Config{}, logging.New("error"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if closer != nil {
		t.Fatalf("expected no closer for memory store")
	}
	if _, ok := store.(*usage.MemoryEventStore); !ok {
		t.Fatalf("expected memory event store, got %T", store)
	}
}

func TestSetupSessionStore(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	cfg := &appconfig.Config{SessionTTL: time.Hour}
	logger := logging.New("error")

	if _, ok := setupSessionStore(ctx, cfg, nil, logger).(*conversation.MemorySessionStore); !ok {
		t.Fatalf("expected memory session store without redis")
	}

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = client.Close() }()
	if _, ok := setupSessionStore(ctx, cfg, client, logger).(*conversation.RedisSessionStore); !ok {
		t.Fatalf("expected redis session store")
	}
	if _, ok := setupDemoCounter(client).(*usage.RedisDemoCounter); !ok {
		t.Fatalf("expected redis demo counter")
	}
	if _, ok := setupDemoCounter(nil).(*usage.MemoryDemoCounter); !ok {
		t.Fatalf("expected memory demo counter")
	}
}

func TestBuildAppServesHealth(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := &appconfig.Config{
		LLMProvider:         "openai",
		OpenAIAPIKey:        "sk-test",
		OpenAIModel:         "gpt-4o-mini",
		LLMTimeout:          time.Second,
		ProfileBackend:      "file",
		ProfilesDir:         t.TempDir(),
		SubscriptionBackend: "memory",
		SessionTTL:          time.Hour,
		AWSRegion:           "us-east-1",
		DefaultBusiness:     "Henri",
	}
	a, err := buildApp(ctx, cfg, logging.New("error"))
	if err != nil {
		t.Fatalf("build app: %v", err)
	}
	defer a.Close()

	rr := httptest.NewRecorder()
	a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /health, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.Handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 from /metrics, got %d", rr.Code)
	}
}

func TestBuildAppRejectsUnknownProvider(t *testing.T) {
	t.Setenv("AWS_EC2_METADATA_DISABLED", "true")
	cfg := &appconfig.Config{LLMProvider: "llama", AWSRegion: "us-east-1"}
	if _, err := buildApp(context.Background(), cfg, logging.New("error")); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}
