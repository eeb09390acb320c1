package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/dictdb/dictdb/internal/config"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Mode = config.ModeAPI
	cfg.DataDir = t.TempDir()
	cfg.HTTP.Addr = "127.0.0.1:0"
	cfg.GRPC.Addr = "127.0.0.1:0"
	return cfg
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Mode = "sideways"
	if _, err := New(cfg); err == nil {
		t.Fatal("expected an invalid mode to be rejected")
	}
}

func TestEngineConfig_MapsFlags(t *testing.T) {
	db := config.DatabaseConfig{InsertTime: true, AutoAlter: true}
	got := EngineConfig(db)
	if !got.InsertTime || !got.AutoAlter || got.UpdateTime || got.Export || got.AutoCommit || got.AutoUpdateTime {
		t.Errorf("unexpected engine config %+v", got)
	}

	opts := StoreOptions(config.DatabaseConfig{JournalMode: "DELETE"})
	if opts.JournalMode != "DELETE" || opts.BusyTimeout == 0 {
		t.Errorf("unexpected store options %+v", opts)
	}
}

func TestApp_StartServeStop(t *testing.T) {
	a, err := New(testConfig(t))
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := a.Start(context.Background()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if err := a.Start(context.Background()); err == nil {
		t.Error("second Start should fail")
	}

	h := a.Handler()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/v1/records",
		strings.NewReader(`{"table":"people","records":[{"id#pk":1,"name":"ada"}]}`))
	req.Header.Set("Content-Type", "application/json")
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("write status %d: %s", rec.Code, rec.Body.String())
	}

	if _, ok := a.Engine().Table("people"); !ok {
		t.Error("table should exist after the write")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.Stop(ctx); err != nil {
		t.Fatalf("Stop failed: %v", err)
	}
	if err := a.Stop(ctx); err != nil {
		t.Errorf("second Stop should be a no-op, got %v", err)
	}

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/v1/tables", nil)
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("requests after shutdown should be rejected, got %d", rec.Code)
	}
}
