package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"
)

func TestReadiness(t *testing.T) {
	tests := []struct {
		name       string
		checks     map[string]CheckFunc
		wantStatus string
	}{
		{
			name:       "no checks",
			wantStatus: StatusReady,
		},
		{
			name: "all healthy",
			checks: map[string]CheckFunc{
				"index":   func(context.Context) error { return nil },
				"records": func(context.Context) error { return nil },
			},
			wantStatus: StatusReady,
		},
		{
			name: "one failing",
			checks: map[string]CheckFunc{
				"index":   func(context.Context) error { return nil },
				"records": func(context.Context) error { return errors.New("database is locked") },
			},
			wantStatus: StatusDegraded,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for name, check := range tt.checks {
				c.RegisterCheck(name, check)
			}

			status := c.Readiness(context.Background())
			if status.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", status.Status, tt.wantStatus)
			}
			if len(status.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(status.Checks), len(tt.checks))
			}
		})
	}
}

func TestReadinessTimeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	block := make(chan struct{})
	defer close(block)
	c.RegisterCheck("stuck", func(context.Context) error {
		<-block
		return nil
	})

	status := c.Readiness(context.Background())
	res := status.Checks["stuck"]
	if res.Status != StatusUnhealthy || res.Message != ErrCheckTimeout.Error() {
		t.Errorf("result = %+v, want timeout", res)
	}
}

func TestRegisterAndUnregister(t *testing.T) {
	c := New(0)
	c.RegisterCheck("workspace", func(context.Context) error { return nil })
	c.RegisterCheck("index", func(context.Context) error { return nil })

	if got := c.Checks(); !reflect.DeepEqual(got, []string{"index", "workspace"}) {
		t.Errorf("Checks() = %v", got)
	}

	c.UnregisterCheck("index")
	if got := c.Checks(); !reflect.DeepEqual(got, []string{"workspace"}) {
		t.Errorf("Checks() after unregister = %v", got)
	}
}

func TestHandlers(t *testing.T) {
	c := New(time.Second)
	c.RegisterCheck("index", func(context.Context) error { return errors.New("index closed") })

	tests := []struct {
		name     string
		handler  http.Handler
		method   string
		wantCode int
	}{
		{"liveness", c.LivenessHandler(), http.MethodGet, http.StatusOK},
		{"readiness degraded", c.ReadinessHandler(), http.MethodGet, http.StatusServiceUnavailable},
		{"readiness head", c.ReadinessHandler(), http.MethodHead, http.StatusServiceUnavailable},
		{"post rejected", c.LivenessHandler(), http.MethodPost, http.StatusMethodNotAllowed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.handler.ServeHTTP(rec, httptest.NewRequest(tt.method, "/", nil))
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			if tt.method == http.MethodHead && rec.Body.Len() != 0 {
				t.Error("HEAD response has a body")
			}
		})
	}

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, ReadinessPath, nil))
	var status Status
	if err := json.NewDecoder(rec.Body).Decode(&status); err != nil {
		t.Fatal(err)
	}
	if status.Checks["index"].Message != "index closed" {
		t.Errorf("checks = %+v", status.Checks)
	}
}
