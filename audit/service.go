// Package audit exposes a small HTTP service that accepts listing-audit
// requests, runs them through the scrape engine one at a time and
// delivers the report through a pluggable sink.
package audit

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mkovacs/placeharvest/models"
)

const (
	recentCacheSize = 256
	queueSize       = 64
	// recentWindow is how long a place URL stays "recently audited";
	// repeats inside it are acknowledged as skipped.
	recentWindow = 24 * time.Hour
)

// Request is the webhook payload: the listing to audit and where to
// send the report.
type Request struct {
	PlaceURL string `json:"place_url"`
	Email    string `json:"email,omitempty"`
	Source   string `json:"source,omitempty"`
}

// Result pairs a finished audit with its originating request.
type Result struct {
	Request Request
	Record  *models.PlaceRecord
	Err     error
}

// Auditor runs one listing through the scrape engine.
type Auditor interface {
	Audit(ctx context.Context, placeURL string) (*models.PlaceRecord, error)
}

// ResultSink consumes finished audits; the mail sink is the production
// implementation.
type ResultSink interface {
	Deliver(ctx context.Context, res Result) error
}

// Service is the webhook receiver plus the single background worker
// draining its queue. One worker by design: the scrape engine is a
// single browser session.
type Service struct {
	token   string
	log     *slog.Logger
	auditor Auditor
	sink    ResultSink
	recent  *lru.Cache[string, time.Time]
	queue   chan Request
	now     func() time.Time
}

func NewService(token string, auditor Auditor, sink ResultSink, log *slog.Logger) (*Service, error) {
	recent, err := lru.New[string, time.Time](recentCacheSize)
	if err != nil {
		return nil, err
	}
	return &Service{
		token:   token,
		log:     log,
		auditor: auditor,
		sink:    sink,
		recent:  recent,
		queue:   make(chan Request, queueSize),
		now:     time.Now,
	}, nil
}

// Handler returns the service routes.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /audit", s.handleAudit(false))
	mux.HandleFunc("POST /audit/manual", s.handleAudit(true))
	mux.HandleFunc("GET /health", s.handleHealth)
	return mux
}

// Run drains the queue until ctx is canceled.
func (s *Service) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case req := <-s.queue:
			s.process(ctx, req)
		}
	}
}

func (s *Service) process(ctx context.Context, req Request) {
	s.log.Info("audit started", "place_url", req.PlaceURL, "source", req.Source)
	rec, err := s.auditor.Audit(ctx, req.PlaceURL)
	if err != nil {
		s.log.Error("audit failed", "place_url", req.PlaceURL, "err", err)
	}
	res := Result{Request: req, Record: rec, Err: err}
	if derr := s.sink.Deliver(ctx, res); derr != nil {
		s.log.Error("audit delivery failed", "place_url", req.PlaceURL, "err", derr)
	}
}

func (s *Service) handleAudit(manual bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.authorized(r) {
			writeStatus(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.PlaceURL) == "" {
			writeStatus(w, http.StatusBadRequest, "bad-request")
			return
		}
		req.PlaceURL = strings.TrimSpace(req.PlaceURL)

		if !manual {
			if at, ok := s.recent.Get(req.PlaceURL); ok && s.now().Sub(at) < recentWindow {
				s.log.Debug("audit skipped, recently processed", "place_url", req.PlaceURL)
				writeStatus(w, http.StatusOK, "skipped")
				return
			}
		}

		select {
		case s.queue <- req:
			s.recent.Add(req.PlaceURL, s.now())
			writeStatus(w, http.StatusAccepted, "queued")
		default:
			writeStatus(w, http.StatusServiceUnavailable, "overloaded")
		}
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"queued": len(s.queue),
	})
}

func (s *Service) authorized(r *http.Request) bool {
	header := r.Header.Get("Authorization")
	bearer, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(bearer), []byte(s.token)) == 1
}

func writeStatus(w http.ResponseWriter, code int, status string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"status": status})
}
