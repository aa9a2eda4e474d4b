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

// PlaceScraper extracts one Google Maps listing per work item. The work
// item is the place URL harvested by the search stage.
type PlaceScraper struct {
	cfg     *config.Config
	log     *slog.Logger
	fetcher browser.Fetcher
	metrics *Metrics
}

func NewPlaceScraper(cfg *config.Config, log *slog.Logger, fetcher browser.Fetcher, metrics *Metrics) *PlaceScraper {
	return &PlaceScraper{cfg: cfg, log: log, fetcher: fetcher, metrics: metrics}
}

func (s *PlaceScraper) Empty() models.Record { return &models.PlaceRecord{} }

func (s *PlaceScraper) Scrape(ctx context.Context, item models.WorkItem) (models.Record, error) {
	url := string(item)

	page, err := s.fetcher.Fetch(ctx, url, s.cfg.PageTimeout)
	s.metrics.IncPages()
	if page == nil || page.HTML == "" {
		if err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("empty page for %s", url)
	}
	// A navigation timeout with rendered content is still workable.
	if err != nil && !browser.IsTimeout(err) {
		return nil, err
	}

	if consentWalled(s.cfg, page) {
		page = acceptConsent(ctx, s.cfg, s.log, s.fetcher, page, url)
		s.metrics.IncPages()
	}

	doc, perr := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if perr != nil {
		return nil, fmt.Errorf("parse %s: %w", url, perr)
	}

	// Coordinates live in the harvested URL, not the rendered DOM.
	rec := extract.Place(doc, url)
	s.log.Debug("place scraped",
		"url", url,
		"name", rec.Name,
		"rating", rec.Rating,
	)
	return rec, nil
}
