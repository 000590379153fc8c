package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func healthRouter(h *HealthHandler) *gin.Engine {
	r := gin.New()
	r.GET("/healthz", h.Liveness)
	r.GET("/readyz", h.Readiness)
	return r
}

func TestLivenessAlwaysOK(t *testing.T) {
	h := NewHealthHandler("test", Probe{Name: "db", Check: func(context.Context) error {
		return errors.New("down")
	}})
	rec := httptest.NewRecorder()
	healthRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
}

func TestReadinessAllHealthy(t *testing.T) {
	ok := func(context.Context) error { return nil }
	h := NewHealthHandler("test",
		Probe{Name: "postgres", Check: ok},
		Probe{Name: "redis", Check: ok},
	)
	rec := httptest.NewRecorder()
	healthRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestReadinessOneUnhealthy(t *testing.T) {
	h := NewHealthHandler("test",
		Probe{Name: "postgres", Check: func(context.Context) error { return nil }},
		Probe{Name: "milvus", Check: func(context.Context) error { return errors.New("dial refused") }},
	)
	rec := httptest.NewRecorder()
	healthRouter(h).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		Status     string                     `json:"status"`
		Components map[string]componentStatus `json:"components"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "not_ready" {
		t.Fatalf("status = %q", body.Status)
	}
	if body.Components["milvus"].Error != "dial refused" {
		t.Fatalf("components = %+v", body.Components)
	}
}
