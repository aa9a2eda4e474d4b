package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkovacs/placeharvest/models"
)

var (
	leadingNumber = regexp.MustCompile(`([\d.,]+)`)
	thousandsSep  = regexp.MustCompile(`[,\s]`)
)

// ratingStrategy is one way of locating the star rating on a Maps page.
// Strategies are tried in order; the first non-empty match wins.
type ratingStrategy struct {
	selector string
	attr     string // empty means element text
}

var ratingStrategies = []ratingStrategy{
	{selector: ".F7nice"},
	{selector: ".MW4etd"},
	{selector: `span[aria-label*="star"]`, attr: "aria-label"},
	{selector: `div[role="img"][aria-label*="star"]`, attr: "aria-label"},
}

// Place extracts all Maps listing fields from a rendered page. The URL is
// the navigated Maps URL (coordinates live in it, not in the DOM).
func Place(doc *goquery.Document, pageURL string) *models.PlaceRecord {
	rec := &models.PlaceRecord{URL: pageURL}
	if doc == nil {
		return rec
	}

	rec.Name = strings.TrimSpace(doc.Find("h1").First().Text())
	rec.Category = strings.TrimSpace(doc.Find("button.DkEaL").First().Text())
	rec.Website, _ = doc.Find(`a[data-tooltip="Open website"]`).First().Attr("href")
	if label, ok := doc.Find(`button[data-tooltip="Copy phone number"]`).First().Attr("aria-label"); ok {
		rec.Phone = strings.TrimSpace(strings.TrimPrefix(label, "Phone:"))
	}

	if lat, lng, ok := Coordinates(pageURL); ok {
		rec.Lat = FormatCoordinate(lat)
		rec.Lng = FormatCoordinate(lng)
	}

	rec.Rating = Rating(doc)
	rec.Reviews = ReviewCount(doc)
	rec.Address = lastText(doc, `button[data-item-id="address"]`)
	rec.LocatedIn = lastText(doc, `button[data-item-id="locatedin"]`)
	if label, ok := doc.Find(`button[data-tooltip="Copy plus code"]`).First().Attr("aria-label"); ok {
		rec.PlusCode = strings.TrimSpace(label)
	}

	return rec
}

// Rating tries the ordered strategy list and returns the leading numeric
// token of the first non-empty match, decimal comma normalized to a dot.
func Rating(doc *goquery.Document) string {
	for _, st := range ratingStrategies {
		sel := doc.Find(st.selector).First()
		var raw string
		if st.attr != "" {
			raw, _ = sel.Attr(st.attr)
		} else {
			raw = sel.Text()
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		if m := leadingNumber.FindString(raw); m != "" {
			return strings.ReplaceAll(strings.Trim(m, ".,"), ",", ".")
		}
	}
	return ""
}

// ReviewCount returns the review total with thousands separators stripped.
func ReviewCount(doc *goquery.Document) string {
	var raw string
	doc.Find(`span[aria-label*="review"]`).EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if label, ok := s.Attr("aria-label"); ok && strings.TrimSpace(label) != "" {
			raw = label
			return false
		}
		return true
	})
	if raw == "" {
		return ""
	}
	m := leadingNumber.FindString(raw)
	if m == "" {
		return ""
	}
	return thousandsSep.ReplaceAllString(strings.Trim(m, ".,"), "")
}

// lastText returns the trailing text node of the first selector match;
// Maps buttons prefix the value with an icon glyph, the value comes last.
func lastText(doc *goquery.Document, selector string) string {
	var parts []string
	doc.Find(selector).First().Contents().Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// PlaceLinks harvests the business listing links from a search results
// page, first occurrence order preserved.
func PlaceLinks(doc *goquery.Document) []string {
	var links []string
	seen := make(map[string]struct{})
	doc.Find(`a[href*="/maps/place/"]`).Each(func(_ int, s *goquery.Selection) {
		href, ok := s.Attr("href")
		if !ok || !strings.Contains(href, "/maps/place/") {
			return
		}
		if _, dup := seen[href]; dup {
			return
		}
		seen[href] = struct{}{}
		links = append(links, href)
	})
	return links
}
