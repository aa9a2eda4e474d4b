package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Mailer delivers one report email.
type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

// HTTPMailer posts through a transactional email HTTP API (Resend-style
// JSON endpoint with bearer auth).
type HTTPMailer struct {
	endpoint string
	apiKey   string
	from     string
	client   *http.Client
}

func NewHTTPMailer(endpoint, apiKey, from string) *HTTPMailer {
	return &HTTPMailer{
		endpoint: endpoint,
		apiKey:   apiKey,
		from:     from,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (m *HTTPMailer) Send(ctx context.Context, to, subject, body string) error {
	payload, err := json.Marshal(map[string]any{
		"from":    m.from,
		"to":      []string{to},
		"subject": subject,
		"text":    body,
	})
	if err != nil {
		return fmt.Errorf("marshal mail: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint, strings.NewReader(string(payload)))
	if err != nil {
		return fmt.Errorf("build mail request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+m.apiKey)

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail endpoint returned %d", resp.StatusCode)
	}
	return nil
}

// MailSink formats audit results as report emails. Results without a
// recipient are logged-and-dropped by Deliver's caller contract: it
// returns nil so the worker does not treat them as failures.
type MailSink struct {
	mailer Mailer
}

func NewMailSink(mailer Mailer) *MailSink {
	return &MailSink{mailer: mailer}
}

func (s *MailSink) Deliver(ctx context.Context, res Result) error {
	if res.Request.Email == "" {
		return nil
	}
	if res.Err != nil {
		subject := "Listing audit failed"
		body := fmt.Sprintf("We could not audit %s: %v\n", res.Request.PlaceURL, res.Err)
		return s.mailer.Send(ctx, res.Request.Email, subject, body)
	}

	rec := res.Record
	subject := fmt.Sprintf("Listing audit: %s", rec.Name)
	var b strings.Builder
	fmt.Fprintf(&b, "Listing: %s\n", rec.Name)
	fmt.Fprintf(&b, "URL: %s\n", res.Request.PlaceURL)
	fmt.Fprintf(&b, "Rating: %s (%s reviews)\n", orDash(rec.Rating), orDash(rec.Reviews))
	fmt.Fprintf(&b, "Category: %s\n", orDash(rec.Category))
	fmt.Fprintf(&b, "Website: %s\n", orDash(rec.Website))
	fmt.Fprintf(&b, "Phone: %s\n", orDash(rec.Phone))
	if rec.ReviewsLoaded != "" {
		fmt.Fprintf(&b, "\nReviews analyzed: %s\n", rec.ReviewsLoaded)
		fmt.Fprintf(&b, "Answered: %s\n", rec.ReviewsAnswered)
		fmt.Fprintf(&b, "Unanswered: %s (%s%%)\n", rec.ReviewsUnanswered, rec.ReviewsUnansweredPct)
	}
	return s.mailer.Send(ctx, res.Request.Email, subject, b.String())
}

func orDash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
