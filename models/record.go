// Package models defines data structures shared by the scraping stages.
package models

// WorkItem is one unit of scraping work: a Maps place URL, a search query,
// or a business website, depending on the stage.
type WorkItem string

// Record is anything a stage can emit into its output file. Most records
// are a single row; a search item yields one row per harvested link.
type Record interface {
	Rows() [][]string
}

// PlaceHeader is the fixed column order of the Maps output CSV.
var PlaceHeader = []string{
	"name", "url", "category", "website", "phone", "lat", "lng", "reviews",
	"rating", "address", "located_in", "plus_code",
	"reviews_loaded", "reviews_answered", "reviews_unanswered", "reviews_unanswered_pct",
}

// PlaceRecord is one scraped Google Maps listing. Empty string means
// "field absent"; every column is always emitted.
type PlaceRecord struct {
	Name      string `csv:"name" json:"name"`
	URL       string `csv:"url" json:"url"`
	Category  string `csv:"category" json:"category"`
	Website   string `csv:"website" json:"website"`
	Phone     string `csv:"phone" json:"phone"`
	Lat       string `csv:"lat" json:"lat"`
	Lng       string `csv:"lng" json:"lng"`
	Reviews   string `csv:"reviews" json:"reviews"`
	Rating    string `csv:"rating" json:"rating"`
	Address   string `csv:"address" json:"address"`
	LocatedIn string `csv:"located_in" json:"located_in"`
	PlusCode  string `csv:"plus_code" json:"plus_code"`

	// Review-audit analysis fields, populated only by the audit path.
	ReviewsLoaded        string `csv:"reviews_loaded" json:"reviews_loaded"`
	ReviewsAnswered      string `csv:"reviews_answered" json:"reviews_answered"`
	ReviewsUnanswered    string `csv:"reviews_unanswered" json:"reviews_unanswered"`
	ReviewsUnansweredPct string `csv:"reviews_unanswered_pct" json:"reviews_unanswered_pct"`
}

// Rows returns the record as a single CSV row in PlaceHeader order.
func (r *PlaceRecord) Rows() [][]string {
	return [][]string{{
		r.Name, r.URL, r.Category, r.Website, r.Phone, r.Lat, r.Lng, r.Reviews,
		r.Rating, r.Address, r.LocatedIn, r.PlusCode,
		r.ReviewsLoaded, r.ReviewsAnswered, r.ReviewsUnanswered, r.ReviewsUnansweredPct,
	}}
}

// SocialHeader is the set of columns the social stage appends to the
// passthrough input columns.
var SocialHeader = []string{
	"scraped_email", "scraped_email_raw", "scraped_phone", "scraped_whatsapp",
	"scraped_facebook", "scraped_instagram", "scraped_linkedin",
	"scraped_twitter", "scraped_tiktok",
}

// SocialRecord holds contact and social data scraped from one business website.
type SocialRecord struct {
	Email     string `csv:"scraped_email" json:"scraped_email"`
	EmailRaw  string `csv:"scraped_email_raw" json:"scraped_email_raw"`
	Phone     string `csv:"scraped_phone" json:"scraped_phone"`
	WhatsApp  string `csv:"scraped_whatsapp" json:"scraped_whatsapp"`
	Facebook  string `csv:"scraped_facebook" json:"scraped_facebook"`
	Instagram string `csv:"scraped_instagram" json:"scraped_instagram"`
	LinkedIn  string `csv:"scraped_linkedin" json:"scraped_linkedin"`
	Twitter   string `csv:"scraped_twitter" json:"scraped_twitter"`
	TikTok    string `csv:"scraped_tiktok" json:"scraped_tiktok"`
}

// Rows returns the scraped columns in SocialHeader order.
func (r *SocialRecord) Rows() [][]string {
	return [][]string{{
		r.Email, r.EmailRaw, r.Phone, r.WhatsApp,
		r.Facebook, r.Instagram, r.LinkedIn, r.Twitter, r.TikTok,
	}}
}

// RawRow is a pre-assembled CSV row, used by the social stage to emit the
// original input columns followed by the scraped ones.
type RawRow []string

func (r RawRow) Rows() [][]string { return [][]string{r} }

// LinkBatch is the result of one search query: zero or more place URLs,
// one per output line.
type LinkBatch []string

func (b LinkBatch) Rows() [][]string {
	rows := make([][]string, 0, len(b))
	for _, link := range b {
		rows = append(rows, []string{link})
	}
	return rows
}
