package scrape

// RateGuard detects the target throttling us. A throttled Maps session
// keeps serving pages that render the listing name but omit the rating
// block; one such page is noise, a run of them is a signal. The guard
// counts the consecutive run and trips at the configured threshold.
type RateGuard struct {
	threshold int
	streak    int
}

func NewRateGuard(threshold int) *RateGuard {
	return &RateGuard{threshold: threshold}
}

// throttleSignature reports whether a single listing looks throttled
// on its own: the name rendered but the rating block did not. A page
// with no name at all is a failure, not a throttling signature.
func throttleSignature(name, rating string) bool {
	return name != "" && rating == ""
}

// Observe feeds one extracted listing into the guard and reports
// whether the heuristic tripped. A clean listing resets the streak.
// Tripping resets the streak too, so the next trip needs a fresh full
// run.
func (g *RateGuard) Observe(name, rating string) bool {
	if g == nil {
		return false
	}
	if !throttleSignature(name, rating) {
		g.streak = 0
		return false
	}
	g.streak++
	if g.streak >= g.threshold {
		g.streak = 0
		return true
	}
	return false
}

// Reset clears the streak, used after a session restart.
func (g *RateGuard) Reset() {
	if g != nil {
		g.streak = 0
	}
}
