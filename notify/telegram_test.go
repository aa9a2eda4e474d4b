package notify

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"

	"github.com/mkovacs/placeharvest/models"
)

func testNotifier(t *testing.T) *Notifier {
	t.Helper()
	n := New("test-token", "1234", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if n == nil {
		t.Fatal("notifier should be enabled")
	}
	httpmock.ActivateNonDefault(n.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	return n
}

func TestNotifySendsMessage(t *testing.T) {
	n := testNotifier(t)

	var got map[string]any
	httpmock.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottest-token/sendMessage",
		func(req *http.Request) (*http.Response, error) {
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]any{"ok": true})
		})

	n.Notify(context.Background(), "hello", true)

	if got["chat_id"] != "1234" || got["text"] != "hello" {
		t.Fatalf("payload = %v", got)
	}
	if got["disable_notification"] != true {
		t.Fatalf("silent flag not set: %v", got)
	}
}

func TestNotifyDeliveryFailureIsSwallowed(t *testing.T) {
	n := testNotifier(t)
	httpmock.RegisterResponder(http.MethodPost, "https://api.telegram.org/bottest-token/sendMessage",
		httpmock.NewStringResponder(http.StatusBadGateway, "nope"))

	// Must not panic or propagate.
	n.Notify(context.Background(), "hello", false)
}

func TestNilNotifierIsSafe(t *testing.T) {
	var n *Notifier
	n.Notify(context.Background(), "dropped", false)
	n.StageStarted(context.Background(), "places", 10)
	n.StageFailed(context.Background(), "places", context.Canceled)
}

func TestNewDisabledWithoutCredentials(t *testing.T) {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	if New("", "1234", log) != nil || New("tok", "", log) != nil {
		t.Fatal("missing credentials should disable the notifier")
	}
}

func TestSummaryOutcomeLine(t *testing.T) {
	s := Summary{
		Total:     10,
		Processed: 10,
		Elapsed:   90 * time.Second,
		ByOutcome: map[models.OutcomeKind]int{
			models.OutcomeSuccess:          8,
			models.OutcomePermanentFailure: 2,
		},
	}
	got := s.outcomeLine()
	want := "success: 8, permanent_failure: 2"
	if got != want {
		t.Fatalf("outcomeLine = %q, want %q", got, want)
	}
}
