package scrape

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.RetryDelay = 0
	cfg.ScrollPause = time.Millisecond
	cfg.RestartCooldown = 0
	return cfg
}

type fetchResult struct {
	page *browser.Page
	err  error
}

// fakeFetcher serves scripted pages per URL; repeated fetches of the
// same URL consume the queue, the last entry repeats.
type fakeFetcher struct {
	responses map[string][]fetchResult
	heights   []float64
	scrolls   int
	fetched   []string
	clicked   []string
	clickErr  error
	capture   *browser.Page
}

func (f *fakeFetcher) Fetch(_ context.Context, url string, _ time.Duration) (*browser.Page, error) {
	f.fetched = append(f.fetched, url)
	queue := f.responses[url]
	if len(queue) == 0 {
		return &browser.Page{URL: url}, browser.Classify(url, errors.New("net::ERR_NAME_NOT_RESOLVED"))
	}
	res := queue[0]
	if len(queue) > 1 {
		f.responses[url] = queue[1:]
	}
	return res.page, res.err
}

func (f *fakeFetcher) Capture(context.Context) (*browser.Page, error) {
	if f.capture != nil {
		return f.capture, nil
	}
	return &browser.Page{}, errors.New("nothing rendered")
}

func (f *fakeFetcher) Click(_ context.Context, selector string, _ time.Duration) error {
	f.clicked = append(f.clicked, selector)
	return f.clickErr
}

func (f *fakeFetcher) ScrollFeed(_ context.Context, _ string, _ time.Duration) (float64, error) {
	if f.scrolls >= len(f.heights) {
		return 0, errors.New("feed not found")
	}
	h := f.heights[f.scrolls]
	f.scrolls++
	return h, nil
}

func (f *fakeFetcher) ClearCookies(context.Context) error { return nil }

type fakeSession struct {
	restarts []string
	noted    int
}

func (s *fakeSession) Restart(_ context.Context, reason string) error {
	s.restarts = append(s.restarts, reason)
	return nil
}

func (s *fakeSession) NoteItem(context.Context) error {
	s.noted++
	return nil
}
