package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/nikhilmehra04/stylehub-backend/pkg/logger"
)

type memoryStore struct {
	mu      sync.Mutex
	records map[string]string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{records: map[string]string{}}
}

func (m *memoryStore) Get(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	value, ok := m.records[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (m *memoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[key]; ok {
		return false, nil
	}
	m.records[key] = value.(string)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "sh:idempotency:" + scope + ":" + id
}

func (m *memoryStore) Del(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.records, key)
	}
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "middleware-test", Output: io.Discard})
}

func newCountingHandler(calls *int) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":7}}`))
	})
}

func postOrder(handler http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	t.Parallel()

	var calls int
	handler := Idempotency(newMemoryStore(), testLogger())(newCountingHandler(&calls))

	first := postOrder(handler, "key-1", `{"shipping_address_id":1}`)
	if first.Code != http.StatusCreated || calls != 1 {
		t.Fatalf("first call: status %d, calls %d", first.Code, calls)
	}

	second := postOrder(handler, "key-1", `{"shipping_address_id":1}`)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d", second.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if second.Body.String() != first.Body.String() {
		t.Fatalf("replay body %q differs from original %q", second.Body.String(), first.Body.String())
	}
	if got := second.Header().Get("Content-Type"); got != "application/json" {
		t.Fatalf("replay content type = %q", got)
	}
}

func TestIdempotencyRejectsKeyReuseWithDifferentBody(t *testing.T) {
	t.Parallel()

	var calls int
	handler := Idempotency(newMemoryStore(), testLogger())(newCountingHandler(&calls))

	if rec := postOrder(handler, "key-1", `{"shipping_address_id":1}`); rec.Code != http.StatusCreated {
		t.Fatalf("first call status = %d", rec.Code)
	}
	rec := postOrder(handler, "key-1", `{"shipping_address_id":2}`)
	if rec.Code != http.StatusConflict {
		t.Fatalf("reuse status = %d, want 409", rec.Code)
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyRequiresKeyHeader(t *testing.T) {
	t.Parallel()

	var calls int
	handler := Idempotency(newMemoryStore(), testLogger())(newCountingHandler(&calls))

	rec := postOrder(handler, "", `{"shipping_address_id":1}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if calls != 0 {
		t.Fatalf("handler ran %d times, want 0", calls)
	}
}

func TestIdempotencySkipsUnmatchedRoutes(t *testing.T) {
	t.Parallel()

	var calls int
	handler := Idempotency(newMemoryStore(), testLogger())(newCountingHandler(&calls))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
}

func TestIdempotencyScopesKeysPerUser(t *testing.T) {
	t.Parallel()

	var calls int
	handler := Idempotency(newMemoryStore(), testLogger())(newCountingHandler(&calls))

	reqForUser := func(userID uint) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"shipping_address_id":1}`))
		req = req.WithContext(WithUserID(req.Context(), userID))
		req.Header.Set("Idempotency-Key", "shared-key")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := reqForUser(1); rec.Code != http.StatusCreated {
		t.Fatalf("user 1 status = %d", rec.Code)
	}
	if rec := reqForUser(2); rec.Code != http.StatusCreated {
		t.Fatalf("user 2 status = %d", rec.Code)
	}
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}
