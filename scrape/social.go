package scrape

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
	"github.com/mkovacs/placeharvest/extract"
	"github.com/mkovacs/placeharvest/models"
)

// SocialScraper visits a business website and its likely contact pages,
// collecting emails, phone numbers and social profile links. The work
// item is the website URL, usually taken from the places CSV.
type SocialScraper struct {
	cfg     *config.Config
	log     *slog.Logger
	fetcher browser.Fetcher
	metrics *Metrics
}

func NewSocialScraper(cfg *config.Config, log *slog.Logger, fetcher browser.Fetcher, metrics *Metrics) *SocialScraper {
	return &SocialScraper{cfg: cfg, log: log, fetcher: fetcher, metrics: metrics}
}

func (s *SocialScraper) Empty() models.Record { return &models.SocialRecord{} }

func (s *SocialScraper) Scrape(ctx context.Context, item models.WorkItem) (models.Record, error) {
	base, err := normalizeSite(string(item))
	if err != nil {
		// Nothing to visit; an empty record is the terminal answer.
		s.log.Debug("unusable website value", "value", string(item), "err", err)
		return &models.SocialRecord{}, nil
	}
	if s.blacklisted(base.Hostname()) {
		s.log.Debug("domain blacklisted", "host", base.Hostname())
		return &models.SocialRecord{}, nil
	}

	var (
		emails    []string
		phones    []string
		emailSeen = make(map[string]struct{})
		phoneSeen = make(map[string]struct{})
		socials   = make(map[string]string)
	)
	addEmail := func(e string) {
		if _, dup := emailSeen[e]; !dup {
			emailSeen[e] = struct{}{}
			emails = append(emails, e)
		}
	}
	addPhone := func(p string) {
		if _, dup := phoneSeen[p]; !dup {
			phoneSeen[p] = struct{}{}
			phones = append(phones, p)
		}
	}

	pages := s.pageList(base)
	deadline, hasDeadline := ctx.Deadline()
	opts := s.phoneOpts()

	for i, pageURL := range pages {
		if ctx.Err() != nil {
			break
		}
		timeout := s.cfg.PageTimeout
		if hasDeadline {
			// Split the remaining budget over the remaining pages so a
			// slow early page cannot starve the rest.
			per := time.Until(deadline) / time.Duration(len(pages)-i)
			if per < timeout {
				timeout = per
			}
			if timeout <= 0 {
				break
			}
		}

		page, ferr := s.fetcher.Fetch(ctx, pageURL, timeout)
		s.metrics.IncPages()
		if ferr != nil && browser.IsCrash(ferr) {
			return nil, ferr
		}
		if page == nil || page.HTML == "" {
			continue
		}
		doc, derr := goquery.NewDocumentFromReader(strings.NewReader(page.HTML))
		if derr != nil {
			continue
		}

		for _, e := range extract.MailtoHrefs(doc) {
			addEmail(e)
		}
		for _, e := range extract.Emails(page.HTML) {
			addEmail(e)
		}
		for _, p := range extract.TelHrefs(doc, opts) {
			addPhone(p)
		}
		for _, p := range extract.Phones(doc.Text(), opts) {
			addPhone(p)
		}
		extract.SocialLinksFromHrefs(doc, socials)
		extract.SocialLinks(page.HTML, socials)
		extract.SocialLinksFromMeta(doc, socials)

		if s.sufficient(emails, phones, socials) {
			s.log.Debug("sufficient contact data", "host", base.Hostname(), "pages_visited", i+1)
			break
		}
	}

	rec := s.assemble(emails, phones, socials)
	s.log.Debug("website scraped",
		"host", base.Hostname(),
		"email", rec.Email,
		"phones", rec.Phone,
	)
	return rec, nil
}

func (s *SocialScraper) assemble(emails, phones []string, socials map[string]string) *models.SocialRecord {
	raw := append([]string(nil), emails...)
	sort.Strings(raw)
	top := extract.TopPhones(phones, s.phoneOpts())

	return &models.SocialRecord{
		Email:     extract.BestEmail(emails),
		EmailRaw:  strings.Join(raw, ";"),
		Phone:     strings.Join(top, ";"),
		WhatsApp:  socials[extract.PlatformWhatsApp],
		Facebook:  socials[extract.PlatformFacebook],
		Instagram: socials[extract.PlatformInstagram],
		LinkedIn:  socials[extract.PlatformLinkedIn],
		Twitter:   socials[extract.PlatformTwitter],
		TikTok:    socials[extract.PlatformTikTok],
	}
}

// sufficient implements the early exit: once every enabled requirement
// is met, later pages cannot improve the record enough to be worth the
// navigation.
func (s *SocialScraper) sufficient(emails, phones []string, socials map[string]string) bool {
	if !s.cfg.RequireEmail && !s.cfg.RequirePhone && !s.cfg.RequireSocial {
		return false
	}
	if s.cfg.RequireEmail && len(emails) == 0 {
		return false
	}
	if s.cfg.RequirePhone && len(phones) == 0 {
		return false
	}
	if s.cfg.RequireSocial && len(socials) == 0 {
		return false
	}
	return true
}

// pageList returns the base page followed by the configured contact
// path candidates, deduplicated.
func (s *SocialScraper) pageList(base *url.URL) []string {
	var pages []string
	seen := make(map[string]struct{})
	for _, path := range s.cfg.ContactPaths {
		u := *base
		if path != "" {
			u.Path = "/" + strings.TrimPrefix(path, "/")
			u.RawQuery = ""
		}
		key := u.String()
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		pages = append(pages, key)
	}
	return pages
}

func (s *SocialScraper) blacklisted(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, blocked := range s.cfg.DomainBlacklist {
		blocked = strings.ToLower(blocked)
		if host == blocked || strings.HasSuffix(host, "."+blocked) {
			return true
		}
	}
	return false
}

func (s *SocialScraper) phoneOpts() extract.PhoneOptions {
	return extract.PhoneOptions{
		Keywords:       s.cfg.PhoneKeywords,
		CountryCode:    s.cfg.CountryCode,
		TrunkPrefix:    s.cfg.TrunkPrefix,
		MobilePrefixes: s.cfg.MobilePrefixes,
		Max:            s.cfg.MaxPhones,
	}
}

// normalizeSite parses a website cell into a fetchable URL, defaulting
// to https when the scheme is missing.
func normalizeSite(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("empty website")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Hostname() == "" {
		return nil, fmt.Errorf("no host in %q", raw)
	}
	u.Fragment = ""
	return u, nil
}
