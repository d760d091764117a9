package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/vshulcz/rtcobserver/internal/adapters/persistence/file"
	memrepo "github.com/vshulcz/rtcobserver/internal/adapters/repository/memory"
	"github.com/vshulcz/rtcobserver/internal/config"
	"github.com/vshulcz/rtcobserver/internal/domain"
	"github.com/vshulcz/rtcobserver/internal/services/audit"
)

func testConfig(t *testing.T) config.ServerConfig {
	t.Helper()
	dir := t.TempDir()
	return config.ServerConfig{
		Address:       "127.0.0.1:0",
		File:          filepath.Join(dir, "samples.json"),
		AuditFile:     filepath.Join(dir, "audit.log"),
		RetainSamples: 10,
	}
}

func post(t *testing.T, h http.Handler, batch []domain.ClientSample) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(batch)
	if err != nil {
		t.Fatal(err)
	}
	req := httptest.NewRequest(http.MethodPost, "/samples", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestBuild_SyncSaveAuditAndMetrics(t *testing.T) {
	cfg := testConfig(t)
	a, err := build(t.Context(), cfg, zap.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}

	if w := post(t, a.handler, []domain.ClientSample{{ClientID: "a", SampleSeq: 1}}); w.Code != http.StatusOK {
		t.Fatalf("ingest status=%d body=%s", w.Code, w.Body)
	}

	restored := memrepo.New(0)
	if err := file.New(cfg.File).Restore(t.Context(), restored); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, err := restored.Latest(t.Context(), "a"); err != nil || got.SampleSeq != 1 {
		t.Fatalf("saved sample = %+v, %v", got, err)
	}

	raw, err := os.ReadFile(cfg.AuditFile)
	if err != nil {
		t.Fatalf("audit file: %v", err)
	}
	var evt audit.Event
	if err := json.Unmarshal(bytes.TrimSpace(raw), &evt); err != nil || len(evt.Clients) != 1 || evt.Samples != 1 {
		t.Fatalf("audit event = %+v, %v", evt, err)
	}

	w := httptest.NewRecorder()
	a.handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "rtcobserver_samples_ingested_total 1") {
		t.Fatalf("metrics status=%d body:\n%s", w.Code, w.Body)
	}
}

func TestBuild_Restore(t *testing.T) {
	cfg := testConfig(t)
	cfg.Restore = true
	if err := file.New(cfg.File).Save(t.Context(), []domain.ClientSample{{ClientID: "old", SampleSeq: 5}}); err != nil {
		t.Fatal(err)
	}
	a, err := build(t.Context(), cfg, zap.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got, err := a.repo.Latest(t.Context(), "old"); err != nil || got.SampleSeq != 5 {
		t.Fatalf("restored = %+v, %v", got, err)
	}
}

func TestBuild_InvalidAuditURL(t *testing.T) {
	cfg := testConfig(t)
	cfg.AuditURL = "::not a url"
	if _, err := build(t.Context(), cfg, zap.NewNop(), prometheus.NewRegistry()); err == nil {
		t.Fatal("expected error for invalid audit url")
	}
}

func TestServe_SavesOnShutdown(t *testing.T) {
	cfg := testConfig(t)
	cfg.Interval = time.Hour
	a, err := build(t.Context(), cfg, zap.NewNop(), prometheus.NewRegistry())
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if w := post(t, a.handler, []domain.ClientSample{{ClientID: "b", SampleSeq: 2}}); w.Code != http.StatusOK {
		t.Fatalf("ingest status=%d", w.Code)
	}
	if _, err := os.Stat(cfg.File); !os.IsNotExist(err) {
		t.Fatalf("file written before the store interval: %v", err)
	}

	ctx, cancel := context.WithTimeout(t.Context(), 100*time.Millisecond)
	defer cancel()
	if err := serve(ctx, cfg, zap.NewNop(), a); err != nil {
		t.Fatalf("serve: %v", err)
	}

	restored := memrepo.New(0)
	if err := file.New(cfg.File).Restore(t.Context(), restored); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if got, err := restored.Latest(t.Context(), "b"); err != nil || got.SampleSeq != 2 {
		t.Fatalf("shutdown save = %+v, %v", got, err)
	}
}
