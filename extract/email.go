package extract

import (
	"regexp"
	"strings"
)

var (
	emailPattern = regexp.MustCompile(`(?i)\b[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}\b`)

	// Obfuscated forms like "info [at] example [dot] com".
	obfuscatedPattern = regexp.MustCompile(`(?i)[A-Za-z0-9._%+\-]+\s?(?:\[at\]|\(at\)| at )\s?[A-Za-z0-9.\-]+\s?(?:\[dot\]|\(dot\)| dot )\s?[A-Za-z]{2,}`)

	atTokens  = regexp.MustCompile(`(?i)\s?(?:\[at\]|\(at\)| at )\s?`)
	dotTokens = regexp.MustCompile(`(?i)\s?(?:\[dot\]|\(dot\)| dot )\s?`)

	retinaSuffix = regexp.MustCompile(`@\d+x`)

	imageSuffixes = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".svg"}

	placeholderDomains = map[string]struct{}{
		"example.com":    {},
		"example.org":    {},
		"test.com":       {},
		"domain.com":     {},
		"email.com":      {},
		"yourdomain.com": {},
		"sample.com":     {},
		"mysite.com":     {},
		"company.com":    {},
	}

	freeMailDomains = []string{"gmail.com", "yahoo.com", "hotmail.com"}

	professionalPrefixes = map[string]int{
		"info@":     10,
		"contact@":  9,
		"hello@":    8,
		"support@":  7,
		"sales@":    6,
		"admin@":    5,
		"office@":   4,
		"business@": 3,
		"general@":  2,
		"noreply@":  1,
		"no-reply@": 1,
	}

	garbagePrefixes = []string{"test@", "temp@", "example@", "sample@", "dummy@"}
)

// Emails returns every plausible email in text, lowercased, deduplicated,
// first-seen order preserved. Obfuscated [at]/[dot] forms are rewritten
// and re-matched; candidates failing ValidEmail are dropped.
func Emails(text string) []string {
	var out []string
	seen := make(map[string]struct{})
	add := func(candidate string) {
		candidate = strings.ToLower(strings.TrimSpace(candidate))
		if candidate == "" || !ValidEmail(candidate) {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}

	for _, m := range emailPattern.FindAllString(text, -1) {
		add(m)
	}
	for _, m := range obfuscatedPattern.FindAllString(text, -1) {
		clean := atTokens.ReplaceAllString(m, "@")
		clean = dotTokens.ReplaceAllString(clean, ".")
		add(clean)
	}
	return out
}

// ValidEmail rejects the garbage the raw regex lets through: asset paths,
// retina image suffixes, placeholder domains, and random token salad.
func ValidEmail(email string) bool {
	if strings.Count(email, "@") != 1 {
		return false
	}
	if strings.ContainsAny(email, "/?=&#% ") {
		return false
	}
	lower := strings.ToLower(email)
	for _, suffix := range imageSuffixes {
		if strings.HasSuffix(lower, suffix) {
			return false
		}
	}
	if retinaSuffix.MatchString(lower) {
		return false
	}

	at := strings.Index(lower, "@")
	local, domain := lower[:at], lower[at+1:]
	if local == "" || len(domain) < 4 || !strings.Contains(domain, ".") {
		return false
	}
	if _, bad := placeholderDomains[domain]; bad {
		return false
	}
	// Long vowel-free local parts are minified-asset tokens, not mailboxes.
	if len(local) >= 6 && !strings.ContainsAny(local, "aeiouy") {
		return false
	}
	return true
}

// ScoreEmail ranks an address by how likely it is to be the business's
// published contact mailbox.
func ScoreEmail(email string) int {
	email = strings.ToLower(email)
	score := 0
	for prefix, value := range professionalPrefixes {
		if strings.HasPrefix(email, prefix) {
			score += value
			break
		}
	}
	for _, prefix := range garbagePrefixes {
		if strings.HasPrefix(email, prefix) {
			score -= 10
			break
		}
	}
	for _, domain := range freeMailDomains {
		if strings.HasSuffix(email, "@"+domain) {
			score -= 5
			break
		}
	}
	return score
}

// BestEmail returns the highest-scoring candidate; ties keep the earliest.
func BestEmail(emails []string) string {
	best := ""
	bestScore := 0
	for i, email := range emails {
		score := ScoreEmail(email)
		if i == 0 || score > bestScore {
			best = email
			bestScore = score
		}
	}
	return best
}
