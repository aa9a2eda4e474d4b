package audit

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
	"github.com/mkovacs/placeharvest/extract"
	"github.com/mkovacs/placeharvest/models"
	"github.com/mkovacs/placeharvest/scrape"
)

// reviewsTabSelector opens the reviews pane of a listing.
const reviewsTabSelector = `button[aria-label*="Reviews"]`

// PlaceAuditor scrapes one listing plus its rendered reviews, filling
// the review-analysis columns of the place record.
type PlaceAuditor struct {
	cfg     *config.Config
	log     *slog.Logger
	fetcher browser.Fetcher
	places  *scrape.PlaceScraper
}

func NewPlaceAuditor(cfg *config.Config, log *slog.Logger, fetcher browser.Fetcher) *PlaceAuditor {
	return &PlaceAuditor{
		cfg:     cfg,
		log:     log,
		fetcher: fetcher,
		places:  scrape.NewPlaceScraper(cfg, log, fetcher, nil),
	}
}

func (a *PlaceAuditor) Audit(ctx context.Context, placeURL string) (*models.PlaceRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.ItemBudget)
	defer cancel()

	rec, err := a.places.Scrape(ctx, models.WorkItem(placeURL))
	if err != nil {
		return nil, fmt.Errorf("audit %s: %w", placeURL, err)
	}
	place := rec.(*models.PlaceRecord)

	tally, err := a.reviewTally(ctx)
	if err != nil {
		// The listing data alone is still a useful report.
		a.log.Warn("review tally unavailable", "place_url", placeURL, "err", err)
		return place, nil
	}
	place.ReviewsLoaded = strconv.Itoa(tally.Loaded)
	place.ReviewsAnswered = strconv.Itoa(tally.Answered)
	place.ReviewsUnanswered = strconv.Itoa(tally.Unanswered)
	place.ReviewsUnansweredPct = tally.UnansweredPct()
	return place, nil
}

func (a *PlaceAuditor) reviewTally(ctx context.Context) (extract.ReviewTally, error) {
	var tally extract.ReviewTally
	if err := a.fetcher.Click(ctx, reviewsTabSelector, 5*time.Second); err != nil {
		return tally, err
	}
	// Give the pane a moment to materialize its first cards.
	timer := time.NewTimer(a.cfg.SettleMax)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
		return tally, ctx.Err()
	}

	page, err := a.fetcher.Capture(ctx)
	if err != nil && (page == nil || page.HTML == "") {
		return tally, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
	if err != nil {
		return tally, err
	}
	return extract.Reviews(doc), nil
}
