package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/adoniasgoesw/filazero/pkg/config"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthLive(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	w := httptest.NewRecorder()
	HealthLive(cfg)(w, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", w.Code)
	}
	if w.Header().Get("X-Filazero-Env") != "dev" {
		t.Fatalf("env header missing")
	}
}

func TestHealthReadyChecksDependencies(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name   string
		db     Pinger
		redis  Pinger
		status int
	}{
		{"all up", ok, ok, http.StatusOK},
		{"no redis configured", ok, nil, http.StatusOK},
		{"database down", down, ok, http.StatusServiceUnavailable},
		{"redis down", ok, down, http.StatusServiceUnavailable},
		{"database missing", nil, nil, http.StatusServiceUnavailable},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		HealthReady(cfg, nil, tc.db, tc.redis)(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
		if w.Code != tc.status {
			t.Fatalf("%s: expected %d got %d", tc.name, tc.status, w.Code)
		}
		if tc.status != http.StatusOK {
			continue
		}
		var body struct {
			Data struct {
				Checks map[string]string `json:"checks"`
			} `json:"data"`
		}
		if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
			t.Fatalf("%s: decode: %v", tc.name, err)
		}
		if _, hasRedis := body.Data.Checks["redis"]; hasRedis != (tc.redis != nil) {
			t.Fatalf("%s: unexpected checks %+v", tc.name, body.Data.Checks)
		}
	}
}
