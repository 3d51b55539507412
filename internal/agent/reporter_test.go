// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2026 Pris-Com

package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

// ============================================================
// Report Delivery Tests
// ============================================================

func TestReporter_Send(t *testing.T) {
	var gotPath, gotKey string
	var gotBody Report
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("X-Agent-Key")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rep := newReport(true, false)
	rep.Success = true
	rep.FiscalOK = true

	if err := NewReporter(srv.URL, "sekrit").Send(context.Background(), 42, rep); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/api/agent/jobs/42/report" {
		t.Errorf("path = %q", gotPath)
	}
	if gotKey != "sekrit" {
		t.Errorf("X-Agent-Key = %q", gotKey)
	}
	if !gotBody.Success || !gotBody.POSOK || !gotBody.FiscalOK {
		t.Errorf("delivered report = %+v", gotBody)
	}
	if gotBody.ErrorMessage != nil {
		t.Errorf("ErrorMessage = %v, expected explicit null", gotBody.ErrorMessage)
	}
}

func TestReporter_Send_BackendRejects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	err := NewReporter(srv.URL, "").Send(context.Background(), 1, newReport(false, false))
	if err == nil {
		t.Errorf("expected error on 403")
	}
}

func TestReporter_Send_BackendUnreachable(t *testing.T) {
	err := NewReporter("http://127.0.0.1:1", "").Send(context.Background(), 1, newReport(false, false))
	if err == nil {
		t.Errorf("expected error with no backend listening")
	}
}

func TestReport_WireShape(t *testing.T) {
	rep := newReport(false, true)
	rep.fail("boom")

	raw, err := json.Marshal(rep)
	if err != nil {
		t.Fatal(err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}

	for _, key := range []string{"success", "pos_ok", "fiscal_ok", "error_message", "result"} {
		if _, ok := m[key]; !ok {
			t.Errorf("report JSON missing %q: %s", key, raw)
		}
	}
	if m["error_message"] != "boom" {
		t.Errorf("error_message = %v", m["error_message"])
	}
}
