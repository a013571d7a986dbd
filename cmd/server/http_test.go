package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"tilegen.ai/internal/generator"
	"tilegen.ai/internal/persistence/indexdb"
	"tilegen.ai/internal/preset"
	"tilegen.ai/internal/protocol"
)

type fakeIndex struct {
	mu   sync.Mutex
	runs []generator.RunRecord
}

func (f *fakeIndex) RecordRun(rec generator.RunRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, rec)
	return nil
}

func (f *fakeIndex) Close() error                     { return nil }
func (f *fakeIndex) UpsertPreset(preset.Preset) error { return nil }

func (f *fakeIndex) RecentRuns(ctx context.Context, limit int) ([]indexdb.RunRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]indexdb.RunRow, 0, len(f.runs))
	for i := len(f.runs) - 1; i >= 0; i-- {
		r := f.runs[i]
		out = append(out, indexdb.RunRow{RunID: r.RunID, Preset: r.Preset, Width: r.Width, Height: r.Height, Digest: r.Digest, Biomes: r.Histogram})
	}
	return out, nil
}

func newTestMux(t *testing.T) (*http.ServeMux, *fakeIndex) {
	t.Helper()
	p := preset.Defaults()
	p.Name = "http-test"
	p.Width, p.Height = 16, 12
	idx := &fakeIndex{}
	gen, err := generator.New(p, generator.Options{
		Logger: log.New(&bytes.Buffer{}, "", 0),
		Sinks:  []generator.RunSink{idx},
		Rand:   rand.New(rand.NewSource(7)),
	})
	if err != nil {
		t.Fatalf("generator: %v", err)
	}
	return newMux(gen, idx, log.New(&bytes.Buffer{}, "", 0)), idx
}

func serve(mux http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestHTTP_Healthz(t *testing.T) {
	mux, _ := newTestMux(t)
	rr := serve(mux, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rr.Code != http.StatusOK || strings.TrimSpace(rr.Body.String()) != "ok" {
		t.Fatalf("healthz: code=%d body=%q", rr.Code, rr.Body.String())
	}
}

func TestHTTP_Preset(t *testing.T) {
	mux, _ := newTestMux(t)
	rr := serve(mux, httptest.NewRequest(http.MethodGet, "/v1/preset", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("code=%d", rr.Code)
	}
	var p preset.Preset
	if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if p.Name != "http-test" || p.Width != 16 || len(p.Biomes) == 0 {
		t.Fatalf("unexpected preset: %+v", p)
	}

	rr = serve(mux, httptest.NewRequest(http.MethodPost, "/v1/preset", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHTTP_Generate(t *testing.T) {
	mux, idx := newTestMux(t)
	body := `{"type":"GENERATE","protocol_version":"1.0","request_id":"r1","width":8,"height":5,"include_fields":true}`
	rr := serve(mux, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(body)))
	if rr.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", rr.Code, rr.Body.String())
	}
	var m protocol.MapMsg
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if m.Type != protocol.TypeMap || m.RequestID != "r1" {
		t.Fatalf("unexpected header: %+v", m)
	}
	if m.Width != 8 || m.Height != 5 || len(m.Tiles) != 40 || len(m.Biomes) != 40 {
		t.Fatalf("unexpected dims: %dx%d tiles=%d", m.Width, m.Height, len(m.Tiles))
	}
	if m.Fields == nil || len(m.Fields.Height) != 40 {
		t.Fatalf("expected fields")
	}
	if len(idx.runs) != 1 || idx.runs[0].Digest != m.Digest {
		t.Fatalf("expected run to reach index sink")
	}

	// Empty body uses the preset as-is.
	rr = serve(mux, httptest.NewRequest(http.MethodPost, "/v1/generate", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("empty body: code=%d body=%s", rr.Code, rr.Body.String())
	}
}

func TestHTTP_GenerateErrors(t *testing.T) {
	mux, _ := newTestMux(t)

	rr := serve(mux, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(`{not json`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", rr.Code)
	}
	var e protocol.ErrorMsg
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil || e.Code != protocol.ErrBadRequest {
		t.Fatalf("bad json: unexpected error body %s", rr.Body.String())
	}

	rr = serve(mux, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(`{"request_id":"r2","width":0}`)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("zero width: expected 422, got %d", rr.Code)
	}
	e = protocol.ErrorMsg{}
	if err := json.Unmarshal(rr.Body.Bytes(), &e); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if e.Code != protocol.ErrInvalidConfig || e.RequestID != "r2" {
		t.Fatalf("unexpected error: %+v", e)
	}

	rr = serve(mux, httptest.NewRequest(http.MethodPost, "/v1/generate", strings.NewReader(`{"request_id":"r3","width":4294967296,"height":4294967296}`)))
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("oversized grid: expected 422, got %d", rr.Code)
	}

	rr = serve(mux, httptest.NewRequest(http.MethodGet, "/v1/generate", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rr.Code)
	}
}

func TestHTTP_ReseedChangesDigest(t *testing.T) {
	mux, _ := newTestMux(t)
	digest := func() string {
		rr := serve(mux, httptest.NewRequest(http.MethodPost, "/v1/generate", nil))
		var m protocol.MapMsg
		if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
			t.Fatalf("decode: %v", err)
		}
		return m.Digest
	}
	before := digest()
	if before != digest() {
		t.Fatalf("expected stable digest between reseeds")
	}

	rr := serve(mux, httptest.NewRequest(http.MethodPost, "/v1/reseed?request_id=s1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("reseed code=%d", rr.Code)
	}
	var s protocol.SeedsMsg
	if err := json.Unmarshal(rr.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if s.Type != protocol.TypeSeeds || s.RequestID != "s1" || len(s.Height) == 0 {
		t.Fatalf("unexpected seeds: %+v", s)
	}
	if digest() == before {
		t.Fatalf("expected digest to change after reseed")
	}
}

func TestHTTP_AdminRunsLoopbackOnly(t *testing.T) {
	mux, _ := newTestMux(t)
	_ = serve(mux, httptest.NewRequest(http.MethodPost, "/v1/generate", nil))

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/runs", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	if rr := serve(mux, req); rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for remote caller, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/runs?limit=5", nil)
	req.RemoteAddr = "127.0.0.1:4000"
	rr := serve(mux, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("code=%d", rr.Code)
	}
	var rows []indexdb.RunRow
	if err := json.Unmarshal(rr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(rows) != 1 || rows[0].Preset != "http-test" || len(rows[0].Biomes) == 0 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestIsLoopbackRemote(t *testing.T) {
	cases := map[string]bool{
		"127.0.0.1:80":   true,
		"[::1]:9000":     true,
		"::1":            true,
		"10.0.0.1:80":    false,
		"example.com:80": false,
		"":               false,
	}
	for in, want := range cases {
		if got := isLoopbackRemote(in); got != want {
			t.Fatalf("isLoopbackRemote(%q)=%v want %v", in, got, want)
		}
	}
}

func TestOpenRuntimeIndex(t *testing.T) {
	idx, err := openRuntimeIndex(t.TempDir(), true)
	if err != nil || idx != nil {
		t.Fatalf("disable_db: idx=%v err=%v", idx, err)
	}

	t.Setenv("TG_INDEX_BACKEND", "none")
	idx, err = openRuntimeIndex(t.TempDir(), false)
	if err != nil || idx != nil {
		t.Fatalf("none backend: idx=%v err=%v", idx, err)
	}

	t.Setenv("TG_INDEX_BACKEND", "postgres")
	if _, err := openRuntimeIndex(t.TempDir(), false); err == nil {
		t.Fatalf("expected unsupported backend error")
	}

	t.Setenv("TG_INDEX_BACKEND", "sqlite")
	idx, err = openRuntimeIndex(t.TempDir(), false)
	if err != nil || idx == nil {
		t.Fatalf("sqlite backend: err=%v", err)
	}
	_ = idx.Close()
}
