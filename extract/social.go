package extract

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Platform names used as map keys throughout the social stage.
const (
	PlatformFacebook  = "facebook"
	PlatformInstagram = "instagram"
	PlatformLinkedIn  = "linkedin"
	PlatformTwitter   = "twitter"
	PlatformTikTok    = "tiktok"
	PlatformWhatsApp  = "whatsapp"
)

// socialPatterns holds the per-platform URL shapes, tried in order.
var socialPatterns = map[string][]*regexp.Regexp{
	PlatformFacebook: {
		regexp.MustCompile(`(?i)https?://(?:www\.)?facebook\.com/[A-Za-z0-9._\-]+/?`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?fb\.com/[A-Za-z0-9._\-]+/?`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?m\.facebook\.com/[A-Za-z0-9._\-]+/?`),
	},
	PlatformInstagram: {
		regexp.MustCompile(`(?i)https?://(?:www\.)?instagram\.com/[A-Za-z0-9._\-]+/?`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?instagr\.am/[A-Za-z0-9._\-]+/?`),
	},
	PlatformLinkedIn: {
		regexp.MustCompile(`(?i)https?://(?:www\.)?linkedin\.com/(?:in|company)/[A-Za-z0-9._\-]+/?`),
	},
	PlatformTwitter: {
		regexp.MustCompile(`(?i)https?://(?:www\.)?twitter\.com/[A-Za-z0-9._\-]+/?`),
		regexp.MustCompile(`(?i)https?://(?:www\.)?x\.com/[A-Za-z0-9._\-]+/?`),
	},
	PlatformTikTok: {
		regexp.MustCompile(`(?i)https?://(?:www\.)?tiktok\.com/@[A-Za-z0-9._\-]+/?`),
		regexp.MustCompile(`(?i)https?://vm\.tiktok\.com/[A-Za-z0-9._\-]+/?`),
	},
	PlatformWhatsApp: {
		regexp.MustCompile(`(?i)https?://(?:www\.)?wa\.me/[0-9+]+/?`),
		regexp.MustCompile(`(?i)https?://api\.whatsapp\.com/send[^\s"'<>]*`),
	},
}

// SocialLinks finds the first matching profile URL per platform in raw
// page text. Platforms already present in found are never overwritten.
func SocialLinks(content string, found map[string]string) {
	for platform, patterns := range socialPatterns {
		if found[platform] != "" {
			continue
		}
		for _, pattern := range patterns {
			if m := pattern.FindString(content); m != "" {
				found[platform] = ensureScheme(m)
				break
			}
		}
	}
}

// SocialLinksFromHrefs is the preferred variant: it matches only anchor
// href attributes, which is cheaper and more precise than scanning the
// whole document text.
func SocialLinksFromHrefs(doc *goquery.Document, found map[string]string) {
	if doc == nil {
		return
	}
	doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if href == "" {
			return
		}
		for platform, patterns := range socialPatterns {
			if found[platform] != "" {
				continue
			}
			for _, pattern := range patterns {
				if pattern.MatchString(href) {
					found[platform] = ensureScheme(href)
					break
				}
			}
		}
	})
}

// SocialLinksFromMeta falls back to Open Graph style meta tags.
func SocialLinksFromMeta(doc *goquery.Document, found map[string]string) {
	if doc == nil {
		return
	}
	doc.Find(`meta[property^="og:"], meta[name^="og:"]`).Each(func(_ int, s *goquery.Selection) {
		content, _ := s.Attr("content")
		if content == "" {
			return
		}
		SocialLinks(content, found)
	})
}

// MailtoHrefs returns the targets of mailto: anchors, lowercased and
// validated, first-seen order preserved.
func MailtoHrefs(doc *goquery.Document) []string {
	var out []string
	seen := make(map[string]struct{})
	if doc == nil {
		return out
	}
	doc.Find(`a[href^="mailto:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		addr := strings.TrimPrefix(href, "mailto:")
		if i := strings.IndexAny(addr, "?&"); i >= 0 {
			addr = addr[:i]
		}
		addr = strings.ToLower(strings.TrimSpace(addr))
		if addr == "" || !ValidEmail(addr) {
			return
		}
		if _, dup := seen[addr]; dup {
			return
		}
		seen[addr] = struct{}{}
		out = append(out, addr)
	})
	return out
}

// TelHrefs returns normalized numbers from tel: anchors, the cleanest
// phone source a page offers.
func TelHrefs(doc *goquery.Document, opts PhoneOptions) []string {
	var out []string
	seen := make(map[string]struct{})
	if doc == nil {
		return out
	}
	doc.Find(`a[href^="tel:"]`).Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		num := NormalizePhone(strings.TrimPrefix(href, "tel:"), opts)
		if num == "" {
			return
		}
		if _, dup := seen[num]; dup {
			return
		}
		seen[num] = struct{}{}
		out = append(out, num)
	})
	return out
}

func ensureScheme(link string) string {
	if strings.HasPrefix(link, "http://") || strings.HasPrefix(link, "https://") {
		return link
	}
	return "https://" + link
}
