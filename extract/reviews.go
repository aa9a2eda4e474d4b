package extract

import (
	"strconv"

	"github.com/PuerkitoBio/goquery"
)

// ReviewTally summarizes the reviews currently rendered on a listing.
// Loaded counts only what the page has actually materialized, which is
// a subset of the listing's review total unless the feed was scrolled.
type ReviewTally struct {
	Loaded     int
	Answered   int
	Unanswered int
}

// UnansweredPct formats the unanswered share with one decimal, or ""
// when nothing is loaded.
func (t ReviewTally) UnansweredPct() string {
	if t.Loaded == 0 {
		return ""
	}
	pct := float64(t.Unanswered) / float64(t.Loaded) * 100
	return strconv.FormatFloat(pct, 'f', 1, 64)
}

// reviewCardSelector matches one rendered review; the owner-response
// block inside it marks the review as answered.
const (
	reviewCardSelector    = "div.jftiEf"
	ownerResponseSelector = "div.CDe7pd"
)

// Reviews tallies the rendered review cards and their owner responses.
func Reviews(doc *goquery.Document) ReviewTally {
	var tally ReviewTally
	doc.Find(reviewCardSelector).Each(func(_ int, s *goquery.Selection) {
		tally.Loaded++
		if s.Find(ownerResponseSelector).Length() > 0 {
			tally.Answered++
		} else {
			tally.Unanswered++
		}
	})
	return tally
}
