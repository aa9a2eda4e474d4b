package scrape

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
	"github.com/mkovacs/placeharvest/extract"
	"github.com/mkovacs/placeharvest/models"
)

// searchFeedSelector is the scrollable results list on a Maps search
// page.
const searchFeedSelector = `div[role="feed"]`

// SearchScraper resolves one search query into the place URLs its
// results feed contains, scrolling until the feed stops growing.
type SearchScraper struct {
	cfg     *config.Config
	log     *slog.Logger
	fetcher browser.Fetcher
	metrics *Metrics
}

func NewSearchScraper(cfg *config.Config, log *slog.Logger, fetcher browser.Fetcher, metrics *Metrics) *SearchScraper {
	return &SearchScraper{cfg: cfg, log: log, fetcher: fetcher, metrics: metrics}
}

func (s *SearchScraper) Empty() models.Record { return models.LinkBatch(nil) }

// SearchURL builds the Maps search URL for a query. hl=en pins the UI
// language so the consent markers stay recognizable across locales.
func SearchURL(query string) string {
	q := strings.ReplaceAll(strings.TrimSpace(query), " ", "+")
	return "https://www.google.com/maps/search/" + q + "?hl=en"
}

func (s *SearchScraper) Scrape(ctx context.Context, item models.WorkItem) (models.Record, error) {
	url := SearchURL(string(item))

	page, err := s.fetcher.Fetch(ctx, url, s.cfg.PageTimeout)
	s.metrics.IncPages()
	if page == nil || page.HTML == "" {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty results page for %q", string(item))
	}
	if err != nil && !browser.IsTimeout(err) {
		return nil, err
	}

	if consentWalled(s.cfg, page) {
		page = acceptConsent(ctx, s.cfg, s.log, s.fetcher, page, url)
	}

	s.scrollFeed(ctx)

	if final, cerr := s.fetcher.Capture(ctx); cerr == nil && final.HTML != "" {
		page = final
	}

	doc, perr := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if perr != nil {
		return nil, fmt.Errorf("parse results for %q: %w", string(item), perr)
	}

	links := extract.PlaceLinks(doc)
	if len(links) == 0 && strings.Contains(page.URL, "/maps/place/") {
		// A single-result query navigates straight to the listing.
		links = []string{page.URL}
	}
	s.log.Info("search query resolved", "query", string(item), "links", len(links))
	return models.LinkBatch(links), nil
}

// scrollFeed keeps scrolling the results feed until its height stops
// changing for MaxScrollStalls consecutive rounds or the round cap is
// reached. Errors end the loop quietly: some result pages have no feed
// at all.
func (s *SearchScraper) scrollFeed(ctx context.Context) {
	var lastHeight float64
	stalls := 0
	for round := 0; round < s.cfg.MaxScrolls && stalls < s.cfg.MaxScrollStalls; round++ {
		height, err := s.fetcher.ScrollFeed(ctx, searchFeedSelector, s.cfg.PageTimeout)
		if err != nil {
			s.log.Debug("feed scroll stopped", "round", round, "err", err)
			return
		}
		if sleepCtx(ctx, s.cfg.ScrollPause) != nil {
			return
		}
		if height <= lastHeight {
			stalls++
		} else {
			stalls = 0
		}
		lastHeight = height
	}
}
