package subscription

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(svc *Service) http.Handler {
	h := NewHandler(svc, nil)
	r := chi.NewRouter()
	r.Mount("/api/subscriptions", h.PublicRoutes())
	r.Mount("/admin/subscriptions", h.AdminRoutes())
	return r
}

func doRequest(router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(rec, req)
	return rec
}

func TestHandlerActivateCheckDeactivate(t *testing.T) {
	svc := NewService(NewMemoryStore())
	router := newTestRouter(svc)

	rec := doRequest(router, http.MethodGet, "/api/subscriptions/Henri", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"businessName":"Henri","active":false}`, rec.Body.String())

	rec = doRequest(router, http.MethodPost, "/admin/subscriptions/activate", `{"businessName":"Henri","plan":"YEARLY"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(router, http.MethodGet, "/api/subscriptions/Henri", "")
	var check checkResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &check))
	assert.True(t, check.Active)
	require.NotNil(t, check.Subscription)
	assert.Equal(t, PlanYearly, check.Subscription.Plan)

	rec = doRequest(router, http.MethodPost, "/admin/subscriptions/deactivate", `{"businessName":"Henri"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	active, err := svc.IsActive(context.Background(), "Henri")
	require.NoError(t, err)
	assert.False(t, active)

	rec = doRequest(router, http.MethodGet, "/admin/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"canceled"`)
}

func TestHandlerErrors(t *testing.T) {
	router := newTestRouter(NewService(NewMemoryStore()))

	tests := []struct {
		name   string
		path   string
		body   string
		status int
	}{
		{"activate bad json", "/admin/subscriptions/activate", "{", http.StatusBadRequest},
		{"activate bad plan", "/admin/subscriptions/activate", `{"businessName":"Henri","plan":"weekly"}`, http.StatusBadRequest},
		{"activate missing business", "/admin/subscriptions/activate", `{}`, http.StatusBadRequest},
		{"deactivate missing business", "/admin/subscriptions/deactivate", `{}`, http.StatusBadRequest},
		{"deactivate unknown", "/admin/subscriptions/deactivate", `{"businessName":"Ghost"}`, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doRequest(router, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestHandlerListEmpty(t *testing.T) {
	rec := doRequest(newTestRouter(NewService(NewMemoryStore())), http.MethodGet, "/admin/subscriptions", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"subscriptions":[]}`, rec.Body.String())
}
