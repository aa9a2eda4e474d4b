package extract

import "testing"

const placeFixture = `<html><body>
	<h1>Pesti Bisztró</h1>
	<button class="DkEaL">Restaurant</button>
	<a data-tooltip="Open website" href="https://pestibisztro.hu">site</a>
	<button data-tooltip="Copy phone number" aria-label="Phone: +36 1 555 1234"></button>
	<div class="F7nice">4,6</div>
	<span aria-label="1,234 reviews"></span>
	<button data-item-id="address"><span>icon</span>Budapest, Váci u. 1</button>
	<button data-tooltip="Copy plus code" aria-label="F9GR+22 Budapest"></button>
</body></html>`

func TestPlace(t *testing.T) {
	doc := mustDoc(t, placeFixture)
	url := "https://www.google.com/maps/place/Pesti+Bisztró/data=!3d47.497912!4d19.040235"

	rec := Place(doc, url)

	if rec.Name != "Pesti Bisztró" {
		t.Fatalf("name = %q", rec.Name)
	}
	if rec.Category != "Restaurant" {
		t.Fatalf("category = %q", rec.Category)
	}
	if rec.Website != "https://pestibisztro.hu" {
		t.Fatalf("website = %q", rec.Website)
	}
	if rec.Phone != "+36 1 555 1234" {
		t.Fatalf("phone = %q", rec.Phone)
	}
	if rec.Lat != "47.497912" || rec.Lng != "19.040235" {
		t.Fatalf("coords = %q,%q", rec.Lat, rec.Lng)
	}
	if rec.Rating != "4.6" {
		t.Fatalf("rating = %q", rec.Rating)
	}
	if rec.Reviews != "1234" {
		t.Fatalf("reviews = %q", rec.Reviews)
	}
	if rec.Address != "Budapest, Váci u. 1" {
		t.Fatalf("address = %q", rec.Address)
	}
	if rec.PlusCode != "F9GR+22 Budapest" {
		t.Fatalf("plus code = %q", rec.PlusCode)
	}
	if rec.LocatedIn != "" {
		t.Fatalf("located_in should be empty, got %q", rec.LocatedIn)
	}
}

func TestPlaceMissingFieldsStayEmpty(t *testing.T) {
	doc := mustDoc(t, `<html><body><h1>Name Only</h1></body></html>`)
	rec := Place(doc, "https://www.google.com/maps/place/x")

	if rec.Name != "Name Only" {
		t.Fatalf("name = %q", rec.Name)
	}
	for field, value := range map[string]string{
		"category": rec.Category,
		"website":  rec.Website,
		"phone":    rec.Phone,
		"lat":      rec.Lat,
		"rating":   rec.Rating,
		"reviews":  rec.Reviews,
	} {
		if value != "" {
			t.Fatalf("%s should be empty, got %q", field, value)
		}
	}
}

func TestRatingStrategyOrder(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<span aria-label="4.8 stars"></span>
		<div class="F7nice">3,9</div>
	</body></html>`)
	// The class selector outranks the aria-label fallback.
	if got := Rating(doc); got != "3.9" {
		t.Fatalf("Rating = %q", got)
	}
}

func TestPlaceLinks(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<a href="https://www.google.com/maps/place/One/data=!4m2">1</a>
		<a href="https://www.google.com/maps/place/Two/data=!4m2">2</a>
		<a href="https://www.google.com/maps/place/One/data=!4m2">dup</a>
		<a href="https://www.google.com/maps/search/x">not a place</a>
	</body></html>`)

	got := PlaceLinks(doc)
	if len(got) != 2 {
		t.Fatalf("PlaceLinks = %v", got)
	}
	if got[0] != "https://www.google.com/maps/place/One/data=!4m2" {
		t.Fatalf("order not preserved: %v", got)
	}
}
