package extract

import (
	"regexp"
	"sort"
	"strings"
)

var (
	digitCluster = regexp.MustCompile(`\+?\d[\d\s().\-]{6,20}`)
	keepDigits   = regexp.MustCompile(`[^\d+]`)
)

// PhoneOptions carries the locale knobs for phone extraction.
type PhoneOptions struct {
	Keywords       []string // context words a number tends to sit near
	CountryCode    string   // "+36"
	TrunkPrefix    string   // "06"
	MobilePrefixes []string // national mobile ranges, e.g. 20/30/70
	Max            int      // how many candidates to keep
}

const (
	phoneWindowBefore = 80
	phoneWindowAfter  = 120
	phoneFallbackScan = 2000
	phoneMinDigits    = 7
	phoneMaxDigits    = 15
)

// NormalizePhone strips everything but digits and a leading +, rewrites a
// 00 international prefix to +, and lifts a trunk-prefixed national number
// to +<cc> form. Returns "" when the digit count is out of range. The
// function is idempotent: normalizing a normalized number is a no-op.
func NormalizePhone(raw string, opts PhoneOptions) string {
	num := keepDigits.ReplaceAllString(raw, "")
	if i := strings.LastIndex(num, "+"); i > 0 {
		// A + anywhere but the front is separator noise.
		num = strings.ReplaceAll(num[:i], "+", "") + strings.ReplaceAll(num[i:], "+", "")
		num = keepDigits.ReplaceAllString(num, "")
	}
	if strings.HasPrefix(num, "00") {
		num = "+" + num[2:]
	} else if opts.TrunkPrefix != "" && strings.HasPrefix(num, opts.TrunkPrefix) && opts.CountryCode != "" {
		num = opts.CountryCode + num[len(opts.TrunkPrefix):]
	}
	digits := strings.TrimPrefix(num, "+")
	if len(digits) < phoneMinDigits || len(digits) > phoneMaxDigits {
		return ""
	}
	return num
}

// Phones scans keyword-adjacent windows of text for digit clusters and
// returns the best candidates, normalized, highest score first.
func Phones(text string, opts PhoneOptions) []string {
	blocks := keywordWindows(text, opts.Keywords)
	if len(blocks) == 0 {
		limit := len(text)
		if limit > phoneFallbackScan {
			limit = phoneFallbackScan
		}
		blocks = []string{text[:limit]}
	}

	var ordered []string
	seen := make(map[string]struct{})
	for _, block := range blocks {
		for _, m := range digitCluster.FindAllString(block, -1) {
			num := NormalizePhone(m, opts)
			if num == "" {
				continue
			}
			if _, dup := seen[num]; dup {
				continue
			}
			seen[num] = struct{}{}
			ordered = append(ordered, num)
		}
	}

	return TopPhones(ordered, opts)
}

// TopPhones orders normalized candidates by preference and keeps opts.Max.
// The sort is stable so equal scores keep first-seen order.
func TopPhones(candidates []string, opts PhoneOptions) []string {
	sorted := make([]string, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		return scorePhone(sorted[i], opts) > scorePhone(sorted[j], opts)
	})
	max := opts.Max
	if max <= 0 {
		max = 3
	}
	if len(sorted) > max {
		sorted = sorted[:max]
	}
	return sorted
}

func scorePhone(num string, opts PhoneOptions) int {
	score := 0
	if opts.CountryCode != "" && strings.HasPrefix(num, opts.CountryCode) {
		score += 3
	} else if opts.TrunkPrefix != "" && strings.HasPrefix(num, opts.TrunkPrefix) {
		score += 2
	}
	if len(strings.TrimPrefix(num, "+")) >= 9 {
		score++
	}
	for _, mobile := range opts.MobilePrefixes {
		if strings.HasPrefix(num, opts.CountryCode+mobile) || strings.HasPrefix(num, opts.TrunkPrefix+mobile) {
			score += 2
			break
		}
	}
	return score
}

func keywordWindows(text string, keywords []string) []string {
	lower := strings.ToLower(text)
	var blocks []string
	for _, kw := range keywords {
		idx := strings.Index(lower, strings.ToLower(kw))
		if idx == -1 {
			continue
		}
		start := idx - phoneWindowBefore
		if start < 0 {
			start = 0
		}
		end := idx + phoneWindowAfter
		if end > len(text) {
			end = len(text)
		}
		blocks = append(blocks, text[start:end])
	}
	return blocks
}
