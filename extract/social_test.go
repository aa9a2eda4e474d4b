package extract

import (
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

func mustDoc(t *testing.T, html string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return doc
}

func TestSocialLinksFromHrefsFirstWins(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<a href="https://www.facebook.com/pestibisztro">fb</a>
		<a href="https://facebook.com/otherpage">fb2</a>
		<a href="https://www.instagram.com/pestibisztro/">ig</a>
		<a href="https://wa.me/36301234567">chat</a>
		<a href="/internal">x</a>
	</body></html>`)

	found := make(map[string]string)
	SocialLinksFromHrefs(doc, found)

	if found[PlatformFacebook] != "https://www.facebook.com/pestibisztro" {
		t.Fatalf("facebook = %q", found[PlatformFacebook])
	}
	if found[PlatformInstagram] != "https://www.instagram.com/pestibisztro/" {
		t.Fatalf("instagram = %q", found[PlatformInstagram])
	}
	if found[PlatformWhatsApp] != "https://wa.me/36301234567" {
		t.Fatalf("whatsapp = %q", found[PlatformWhatsApp])
	}
}

func TestSocialLinksNeverOverwrites(t *testing.T) {
	found := map[string]string{PlatformFacebook: "https://www.facebook.com/first"}
	SocialLinks("visit https://www.facebook.com/second now", found)
	if found[PlatformFacebook] != "https://www.facebook.com/first" {
		t.Fatalf("existing entry overwritten: %q", found[PlatformFacebook])
	}
}

func TestSocialLinksFromText(t *testing.T) {
	found := make(map[string]string)
	SocialLinks(`follow https://www.linkedin.com/company/pestibisztro and https://x.com/pestibisztro`, found)
	if found[PlatformLinkedIn] == "" {
		t.Fatalf("linkedin not found")
	}
	if found[PlatformTwitter] != "https://x.com/pestibisztro" {
		t.Fatalf("twitter = %q", found[PlatformTwitter])
	}
}

func TestSocialLinksFromMeta(t *testing.T) {
	doc := mustDoc(t, `<html><head>
		<meta property="og:see_also" content="https://www.tiktok.com/@pestibisztro">
	</head><body></body></html>`)

	found := make(map[string]string)
	SocialLinksFromMeta(doc, found)
	if found[PlatformTikTok] != "https://www.tiktok.com/@pestibisztro" {
		t.Fatalf("tiktok = %q", found[PlatformTikTok])
	}
}

func TestMailtoHrefs(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<a href="mailto:Info@PestiBisztro.hu?subject=hi">mail</a>
		<a href="mailto:info@example.org">placeholder</a>
		<a href="mailto:info@pestibisztro.hu">dup</a>
	</body></html>`)

	got := MailtoHrefs(doc)
	if len(got) != 1 || got[0] != "info@pestibisztro.hu" {
		t.Fatalf("MailtoHrefs = %v", got)
	}
}

func TestTelHrefs(t *testing.T) {
	doc := mustDoc(t, `<html><body>
		<a href="tel:+36301234567">call</a>
		<a href="tel:06 70 987 6543">call 2</a>
		<a href="tel:12">junk</a>
	</body></html>`)

	got := TelHrefs(doc, huOptions())
	want := []string{"+36301234567", "+36709876543"}
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("TelHrefs = %v, want %v", got, want)
	}
}
