package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/KERD-ORG/Bornomala-Updated/internal/events"
	"github.com/KERD-ORG/Bornomala-Updated/internal/models"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories"
	"github.com/KERD-ORG/Bornomala-Updated/internal/repositories/postgres"
	"github.com/KERD-ORG/Bornomala-Updated/internal/testutil"
	"github.com/KERD-ORG/Bornomala-Updated/internal/validator"
)

const testActor = "user-1"

type testEnv struct {
	db        *gorm.DB
	repo      repositories.Repository
	publisher *events.MockEventPublisher
	manager   ServiceManager
	redis     *miniredis.Miniredis
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWithCache(t, nil)
}

// newCachedTestEnv backs the repositories with an in-memory redis
func newCachedTestEnv(t *testing.T) *testEnv {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	env := newTestEnvWithCache(t, client)
	env.redis = mr
	return env
}

func newTestEnvWithCache(t *testing.T, client *redis.Client) *testEnv {
	t.Helper()
	db := testutil.NewDB(t)
	repo := postgres.NewPostgreSQLRepository(postgres.RepositoryConfig{DB: db, RedisClient: client})
	if err := repo.Lookup().EnsureQuestionTypes(context.Background(), nil); err != nil {
		t.Fatalf("seed question types: %v", err)
	}

	publisher := events.NewMockEventPublisher(testLogger())
	manager := NewDefaultServiceManager(db, repo, testLogger(), validator.New(), publisher)
	if err := manager.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	return &testEnv{db: db, repo: repo, publisher: publisher, manager: manager}
}

// createRequest decodes a JSON body the way the handler does
func createRequest(t *testing.T, body string) *CreateQuestionRequest {
	t.Helper()
	var req CreateQuestionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode create request: %v", err)
	}
	return &req
}

func updateRequest(t *testing.T, body string) *UpdateQuestionRequest {
	t.Helper()
	var req UpdateQuestionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode update request: %v", err)
	}
	return &req
}

// encoded returns the retrieve encoding of a question as a generic map
func (e *testEnv) encoded(t *testing.T, id uint) map[string]interface{} {
	t.Helper()
	raw, err := e.manager.Question().GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%d) error = %v", id, err)
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("decode question %d: %v", id, err)
	}
	return out
}

func (e *testEnv) lookup(t *testing.T, kind models.LookupKind, body string) models.Lookup {
	t.Helper()
	var req CreateLookupRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("decode lookup request: %v", err)
	}
	l, err := e.manager.Lookup().Create(context.Background(), kind, &req, testActor)
	if err != nil {
		t.Fatalf("create %s: %v", kind, err)
	}
	return l
}

func jsonOf(t *testing.T, v interface{}) string {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(data)
}
