package scrape

import (
	"context"
	"testing"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/models"
)

func TestSearchURL(t *testing.T) {
	got := SearchURL("  étterem Budapest ")
	want := "https://www.google.com/maps/search/étterem+Budapest?hl=en"
	if got != want {
		t.Fatalf("SearchURL = %q, want %q", got, want)
	}
}

func TestSearchScraperScrollsUntilFeedStalls(t *testing.T) {
	query := "étterem Budapest"
	url := SearchURL(query)
	resultsHTML := `<html><body><div role="feed">
		<a href="https://www.google.com/maps/place/One/data=!4m2">1</a>
		<a href="https://www.google.com/maps/place/Two/data=!4m2">2</a>
	</div></body></html>`

	f := &fakeFetcher{
		responses: map[string][]fetchResult{
			url: {{page: &browser.Page{URL: url, HTML: "<html><body><div role=\"feed\"></div></body></html>"}}},
		},
		heights: []float64{1000, 2000, 2000, 2000, 2000, 2000},
		capture: &browser.Page{URL: url, HTML: resultsHTML},
	}
	s := NewSearchScraper(testConfig(), discardLogger(), f, nil)

	rec, err := s.Scrape(context.Background(), models.WorkItem(query))
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	batch := rec.(models.LinkBatch)
	if len(batch) != 2 {
		t.Fatalf("links = %v", batch)
	}
	// Two growth rounds, then two stalled rounds trip the stall limit.
	if f.scrolls != 4 {
		t.Fatalf("scroll rounds = %d", f.scrolls)
	}
}

func TestSearchScraperSingleResultRedirect(t *testing.T) {
	query := "egyetlen hely"
	url := SearchURL(query)
	placeURL := "https://www.google.com/maps/place/Only/data=!4m2"

	f := &fakeFetcher{
		responses: map[string][]fetchResult{
			url: {{page: &browser.Page{URL: placeURL, HTML: "<html><body><h1>Only</h1></body></html>"}}},
		},
		capture: &browser.Page{URL: placeURL, HTML: "<html><body><h1>Only</h1></body></html>"},
	}
	s := NewSearchScraper(testConfig(), discardLogger(), f, nil)

	rec, err := s.Scrape(context.Background(), models.WorkItem(query))
	if err != nil {
		t.Fatalf("Scrape: %v", err)
	}
	batch := rec.(models.LinkBatch)
	if len(batch) != 1 || batch[0] != placeURL {
		t.Fatalf("links = %v", batch)
	}
}

func TestLinkBatchRows(t *testing.T) {
	batch := models.LinkBatch{"a", "b"}
	rows := batch.Rows()
	if len(rows) != 2 || rows[0][0] != "a" || rows[1][0] != "b" {
		t.Fatalf("rows = %v", rows)
	}
}
