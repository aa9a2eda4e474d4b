package scrape

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
)

const consentClickTimeout = 3 * time.Second

// consentWalled reports whether the page is Google's consent
// interstitial instead of real content. The wall shows up either as a
// redirect to the consent host or inline on the first visit of a fresh
// profile.
func consentWalled(cfg *config.Config, page *browser.Page) bool {
	if page == nil {
		return false
	}
	for _, marker := range cfg.ConsentMarkers {
		if strings.Contains(page.URL, marker) || strings.Contains(page.HTML, marker) {
			return true
		}
	}
	return false
}

// acceptConsent clicks through the wall and refetches url. On any
// failure the original page comes back unchanged; the caller extracts
// what it can.
func acceptConsent(ctx context.Context, cfg *config.Config, log *slog.Logger, f browser.Fetcher, page *browser.Page, url string) *browser.Page {
	log.Info("consent wall detected", "url", url)

	clicked := false
	for _, selector := range cfg.ConsentSelectors {
		if err := f.Click(ctx, selector, consentClickTimeout); err == nil {
			clicked = true
			break
		}
	}
	if !clicked {
		log.Warn("no consent button matched", "url", url)
		return page
	}

	refetched, err := f.Fetch(ctx, url, cfg.PageTimeout)
	if refetched == nil || refetched.HTML == "" {
		if err != nil {
			log.Warn("refetch after consent failed", "url", url, "err", err)
		}
		return page
	}
	return refetched
}
