package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mkovacs/placeharvest/models"
)

type fakeAuditor struct {
	rec   *models.PlaceRecord
	err   error
	calls []string
}

func (a *fakeAuditor) Audit(_ context.Context, placeURL string) (*models.PlaceRecord, error) {
	a.calls = append(a.calls, placeURL)
	return a.rec, a.err
}

type fakeSink struct {
	results chan Result
}

func (s *fakeSink) Deliver(_ context.Context, res Result) error {
	s.results <- res
	return nil
}

func newTestService(t *testing.T, auditor Auditor, sink ResultSink) *Service {
	t.Helper()
	if sink == nil {
		sink = &fakeSink{results: make(chan Result, 8)}
	}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc, err := NewService("secret-token", auditor, sink, log)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func postAudit(handler http.Handler, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func decodeStatus(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return body["status"]
}

func TestAuditRejectsBadToken(t *testing.T) {
	svc := newTestService(t, &fakeAuditor{}, nil)
	h := svc.Handler()

	for _, token := range []string{"", "wrong-token"} {
		w := postAudit(h, "/audit", token, `{"place_url":"https://maps.example/p"}`)
		if w.Code != http.StatusUnauthorized || decodeStatus(t, w) != "unauthorized" {
			t.Fatalf("token %q: code=%d", token, w.Code)
		}
	}
}

func TestAuditRejectsBadPayload(t *testing.T) {
	svc := newTestService(t, &fakeAuditor{}, nil)
	h := svc.Handler()

	for _, body := range []string{"not json", `{}`, `{"place_url":"  "}`} {
		w := postAudit(h, "/audit", "secret-token", body)
		if w.Code != http.StatusBadRequest || decodeStatus(t, w) != "bad-request" {
			t.Fatalf("body %q: code=%d", body, w.Code)
		}
	}
}

func TestAuditQueuesThenSkipsDuplicate(t *testing.T) {
	svc := newTestService(t, &fakeAuditor{}, nil)
	h := svc.Handler()
	body := `{"place_url":"https://maps.example/p","email":"a@b.hu"}`

	w := postAudit(h, "/audit", "secret-token", body)
	if w.Code != http.StatusAccepted || decodeStatus(t, w) != "queued" {
		t.Fatalf("first request: code=%d", w.Code)
	}

	w = postAudit(h, "/audit", "secret-token", body)
	if w.Code != http.StatusOK || decodeStatus(t, w) != "skipped" {
		t.Fatalf("duplicate request: code=%d status=%s", w.Code, decodeStatus(t, w))
	}
}

func TestManualAuditBypassesRecentCache(t *testing.T) {
	svc := newTestService(t, &fakeAuditor{}, nil)
	h := svc.Handler()
	body := `{"place_url":"https://maps.example/p"}`

	postAudit(h, "/audit", "secret-token", body)
	w := postAudit(h, "/audit/manual", "secret-token", body)
	if w.Code != http.StatusAccepted || decodeStatus(t, w) != "queued" {
		t.Fatalf("manual request: code=%d", w.Code)
	}
}

func TestRecentCacheExpires(t *testing.T) {
	svc := newTestService(t, &fakeAuditor{}, nil)
	h := svc.Handler()
	body := `{"place_url":"https://maps.example/p"}`

	postAudit(h, "/audit", "secret-token", body)
	svc.now = func() time.Time { return time.Now().Add(recentWindow + time.Minute) }

	w := postAudit(h, "/audit", "secret-token", body)
	if decodeStatus(t, w) != "queued" {
		t.Fatalf("expired entry should queue again")
	}
}

func TestHealth(t *testing.T) {
	svc := newTestService(t, &fakeAuditor{}, nil)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	svc.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("code = %d", w.Code)
	}
	var body map[string]any
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("body = %v", body)
	}
}

func TestWorkerProcessesQueue(t *testing.T) {
	auditor := &fakeAuditor{rec: &models.PlaceRecord{Name: "Acme"}}
	sink := &fakeSink{results: make(chan Result, 1)}
	svc := newTestService(t, auditor, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	w := postAudit(svc.Handler(), "/audit", "secret-token", `{"place_url":"https://maps.example/p","email":"a@b.hu"}`)
	if decodeStatus(t, w) != "queued" {
		t.Fatalf("request not queued")
	}

	select {
	case res := <-sink.results:
		if res.Record == nil || res.Record.Name != "Acme" {
			t.Fatalf("result = %+v", res)
		}
		if res.Request.Email != "a@b.hu" {
			t.Fatalf("request lost: %+v", res.Request)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker never delivered the result")
	}
}

func TestWorkerDeliversFailures(t *testing.T) {
	auditor := &fakeAuditor{err: errors.New("listing gone")}
	sink := &fakeSink{results: make(chan Result, 1)}
	svc := newTestService(t, auditor, sink)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go svc.Run(ctx)

	postAudit(svc.Handler(), "/audit", "secret-token", `{"place_url":"https://maps.example/p"}`)

	select {
	case res := <-sink.results:
		if res.Err == nil {
			t.Fatalf("expected error in result")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("worker never delivered the result")
	}
}
