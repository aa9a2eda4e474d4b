package audit

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"

	"github.com/mkovacs/placeharvest/models"
)

func TestHTTPMailerSend(t *testing.T) {
	m := NewHTTPMailer("https://mail.example/api/send", "api-key", "audit@placeharvest.hu")
	httpmock.ActivateNonDefault(m.client)
	t.Cleanup(httpmock.DeactivateAndReset)

	var got map[string]any
	httpmock.RegisterResponder(http.MethodPost, "https://mail.example/api/send",
		func(req *http.Request) (*http.Response, error) {
			if auth := req.Header.Get("Authorization"); auth != "Bearer api-key" {
				t.Fatalf("auth header = %q", auth)
			}
			if err := json.NewDecoder(req.Body).Decode(&got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			return httpmock.NewJsonResponse(http.StatusOK, map[string]string{"id": "1"})
		})

	err := m.Send(context.Background(), "a@b.hu", "subject", "body")
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if got["from"] != "audit@placeharvest.hu" || got["subject"] != "subject" {
		t.Fatalf("payload = %v", got)
	}
	to := got["to"].([]any)
	if len(to) != 1 || to[0] != "a@b.hu" {
		t.Fatalf("to = %v", to)
	}
}

func TestHTTPMailerNonSuccessStatus(t *testing.T) {
	m := NewHTTPMailer("https://mail.example/api/send", "api-key", "audit@placeharvest.hu")
	httpmock.ActivateNonDefault(m.client)
	t.Cleanup(httpmock.DeactivateAndReset)
	httpmock.RegisterResponder(http.MethodPost, "https://mail.example/api/send",
		httpmock.NewStringResponder(http.StatusUnprocessableEntity, "bad recipient"))

	if err := m.Send(context.Background(), "a@b.hu", "s", "b"); err == nil {
		t.Fatalf("expected error on 422")
	}
}

type recordingMailer struct {
	to, subject, body string
	err               error
	calls             int
}

func (m *recordingMailer) Send(_ context.Context, to, subject, body string) error {
	m.calls++
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

func TestMailSinkFormatsReport(t *testing.T) {
	mailer := &recordingMailer{}
	sink := NewMailSink(mailer)

	res := Result{
		Request: Request{PlaceURL: "https://maps.example/p", Email: "owner@acme.hu"},
		Record: &models.PlaceRecord{
			Name:                 "Acme",
			Rating:               "4.2",
			Reviews:              "120",
			ReviewsLoaded:        "20",
			ReviewsAnswered:      "5",
			ReviewsUnanswered:    "15",
			ReviewsUnansweredPct: "75.0",
		},
	}
	if err := sink.Deliver(context.Background(), res); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if mailer.to != "owner@acme.hu" {
		t.Fatalf("to = %q", mailer.to)
	}
	if !strings.Contains(mailer.subject, "Acme") {
		t.Fatalf("subject = %q", mailer.subject)
	}
	for _, want := range []string{"Rating: 4.2 (120 reviews)", "Unanswered: 15 (75.0%)"} {
		if !strings.Contains(mailer.body, want) {
			t.Fatalf("body missing %q:\n%s", want, mailer.body)
		}
	}
}

func TestMailSinkSkipsWithoutRecipient(t *testing.T) {
	mailer := &recordingMailer{}
	sink := NewMailSink(mailer)

	res := Result{Request: Request{PlaceURL: "https://maps.example/p"}}
	if err := sink.Deliver(context.Background(), res); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if mailer.calls != 0 {
		t.Fatalf("mailer should not be called without a recipient")
	}
}

func TestMailSinkReportsFailures(t *testing.T) {
	mailer := &recordingMailer{}
	sink := NewMailSink(mailer)

	res := Result{
		Request: Request{PlaceURL: "https://maps.example/p", Email: "owner@acme.hu"},
		Err:     errors.New("listing gone"),
	}
	if err := sink.Deliver(context.Background(), res); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if !strings.Contains(mailer.body, "listing gone") {
		t.Fatalf("failure body = %q", mailer.body)
	}
}
