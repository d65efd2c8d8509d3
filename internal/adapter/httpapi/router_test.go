package httpapi_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shotlist/internal/adapter/httpapi"
	"shotlist/internal/docstore"
	"shotlist/internal/domain"
	"shotlist/internal/shared"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store := docstore.NewMemory()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return httpapi.NewRouter(httpapi.Options{
		Logger:   log,
		Registry: prometheus.NewRegistry(),
		Env:      "prod",
	},
		httpapi.NewService(domain.NewTaskRepository(store, log)),
		httpapi.NewService(domain.NewKitRepository(store, log)),
	)
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), "body: %s", w.Body.String())
	return m
}

func TestHealthz(t *testing.T) {
	router := newTestRouter(t)
	w := do(t, router, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t)
	w := do(t, router, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetTemplateSynthesizesDefault(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/templates/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)

	body := decodeJSON(t, w)
	cfg := body["config"].(map[string]any)
	assert.Equal(t, "tasks", cfg["type"])
	assert.Equal(t, "template", cfg["source"])
}

func TestGetAbsentUserListIs404(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodGet, "/v1/users/u1/lists/tasks", "")
	require.Equal(t, http.StatusNotFound, w.Code)

	body := decodeJSON(t, w)
	assert.Equal(t, string(shared.CodeStoreNotFound), body["code"])
	assert.Equal(t, false, body["retryable"])
	assert.NotEmpty(t, body["message"])
}

func TestResetThenItemLifecycle(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/reset", "")
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeJSON(t, w)
	assert.Equal(t, "u1", created["config"].(map[string]any)["createdBy"])

	item := `{"id":"i1","categoryId":"prep","itemName":"Charge batteries","priority":"high"}`
	w = do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/items", item)
	require.Equal(t, http.StatusCreated, w.Code, "body: %s", w.Body.String())

	// The same id a second time is a validation failure, not a server error.
	w = do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/items", item)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, string(shared.CodeValidationDupID), decodeJSON(t, w)["code"])

	w = do(t, router, http.MethodPatch, "/v1/users/u1/lists/tasks/items",
		`{"updates":[{"id":"i1","isChecked":true}]}`)
	require.Equal(t, http.StatusNoContent, w.Code, "body: %s", w.Body.String())

	w = do(t, router, http.MethodGet, "/v1/users/u1/lists/tasks", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decodeJSON(t, w)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, true, items[0].(map[string]any)["isChecked"])
	assert.Equal(t, float64(1), body["config"].(map[string]any)["totalItems"])

	w = do(t, router, http.MethodDelete, "/v1/users/u1/lists/tasks/items/i1", "")
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/v1/users/u1/lists/tasks", "")
	body = decodeJSON(t, w)
	assert.Equal(t, float64(0), body["config"].(map[string]any)["totalItems"])
}

func TestBatchDelete(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/v1/projects/p1/lists/kit/reset", "").Code)
	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/v1/projects/p1/lists/kit/items",
			`{"id":"k1","categoryId":"bodies","itemName":"Camera A","quantity":1}`).Code)
	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/v1/projects/p1/lists/kit/items",
			`{"id":"k2","categoryId":"bodies","itemName":"Camera B","quantity":1}`).Code)

	w := do(t, router, http.MethodDelete, "/v1/projects/p1/lists/kit/items",
		`{"ids":["k1","k2"]}`)
	require.Equal(t, http.StatusNoContent, w.Code)

	w = do(t, router, http.MethodGet, "/v1/projects/p1/lists/kit", "")
	body := decodeJSON(t, w)
	assert.Equal(t, float64(0), body["config"].(map[string]any)["totalItems"])
}

func TestInvalidItemBodyIs400(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/reset", "").Code)

	tests := []struct {
		name string
		body string
	}{
		{name: "malformed json", body: `{not json`},
		{name: "missing required fields", body: `{"id":"i1"}`},
		{name: "bad enum value", body: `{"id":"i1","categoryId":"prep","itemName":"x","priority":"urgent"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/items", tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestValidationErrorsCarryFieldDetail(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/reset", "").Code)

	w := do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/items", `{"id":"i1"}`)
	require.Equal(t, http.StatusBadRequest, w.Code)

	body := decodeJSON(t, w)
	fieldErrors, ok := body["fieldErrors"].(map[string]any)
	require.True(t, ok, "body: %s", w.Body.String())
	assert.NotEmpty(t, fieldErrors)
}

func TestMalformedBatchBodyIs400(t *testing.T) {
	router := newTestRouter(t)

	w := do(t, router, http.MethodPatch, "/v1/users/u1/lists/tasks/items", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, router, http.MethodDelete, "/v1/users/u1/lists/tasks/items", `{broken`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestKindsAreIsolated(t *testing.T) {
	router := newTestRouter(t)

	require.Equal(t, http.StatusCreated,
		do(t, router, http.MethodPost, "/v1/users/u1/lists/tasks/reset", "").Code)

	// Resetting tasks must not create the kit list.
	w := do(t, router, http.MethodGet, "/v1/users/u1/lists/kit", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
