// Package notify pushes stage progress messages to a Telegram chat. The
// notifier is optional: a nil *Notifier silently drops everything, so
// callers never guard their calls.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mkovacs/placeharvest/models"
)

const apiBase = "https://api.telegram.org"

// Notifier sends messages through the Telegram bot API.
type Notifier struct {
	token  string
	chatID string
	client *http.Client
	log    *slog.Logger
}

// New returns a notifier, or nil when token or chat id is missing,
// which disables notifications entirely.
func New(token, chatID string, log *slog.Logger) *Notifier {
	if token == "" || chatID == "" {
		return nil
	}
	return &Notifier{
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Notify sends one message. Delivery failures are logged, never
// propagated: a dead bot must not take the scrape run down with it.
func (n *Notifier) Notify(ctx context.Context, text string, silent bool) {
	if n == nil {
		return
	}
	payload := map[string]any{
		"chat_id":              n.chatID,
		"text":                 text,
		"disable_notification": silent,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		n.log.Error("marshal notification", "err", err)
		return
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", apiBase, n.token)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(string(body)))
	if err != nil {
		n.log.Error("build notification request", "err", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		n.log.Warn("notification delivery failed", "err", err)
		return
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		n.log.Warn("notification rejected", "status", resp.StatusCode)
	}
}

// StageStarted announces a stage kickoff, silently.
func (n *Notifier) StageStarted(ctx context.Context, stage string, total int) {
	n.Notify(ctx, fmt.Sprintf("▶️ %s started: %d items", stage, total), true)
}

// StageDone reports a finished stage with its outcome tally.
func (n *Notifier) StageDone(ctx context.Context, stage string, sum Summary) {
	n.Notify(ctx, fmt.Sprintf("✅ %s finished: %d/%d items in %s (%s)",
		stage, sum.Processed, sum.Total, sum.Elapsed.Round(time.Second), sum.outcomeLine()), false)
}

// StageFailed reports a stage that aborted with an error.
func (n *Notifier) StageFailed(ctx context.Context, stage string, err error) {
	n.Notify(ctx, fmt.Sprintf("❌ %s failed: %v", stage, err), false)
}

// Summary is the slice of the runner summary the notifier formats.
type Summary struct {
	Total     int
	Processed int
	ByOutcome map[models.OutcomeKind]int
	Elapsed   time.Duration
}

func (s Summary) outcomeLine() string {
	if len(s.ByOutcome) == 0 {
		return "no items"
	}
	order := []models.OutcomeKind{
		models.OutcomeSuccess,
		models.OutcomeRateLimited,
		models.OutcomeBrowserFault,
		models.OutcomeHardTimeout,
		models.OutcomePermanentFailure,
	}
	var parts []string
	for _, kind := range order {
		if count := s.ByOutcome[kind]; count > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind, count))
		}
	}
	return strings.Join(parts, ", ")
}
