// Package config holds the tunable knobs of the scraping engine.
package config

import (
	"fmt"
	"time"
)

// Config holds every tunable the stages and the browser engine consume.
// The empirical constants (rate-limit threshold, sufficient-data rule,
// restart cadences) are knobs, not contracts.
type Config struct {
	// Browser profile.
	Headless     bool
	UserAgent    string
	WindowWidth  int
	WindowHeight int
	// BlockResources intercepts image/font/stylesheet/media requests.
	BlockResources bool
	UserDataDir    string

	// Fetch budgets.
	PageTimeout time.Duration // single navigation + readiness wait
	ItemBudget  time.Duration // whole item, all pages included
	SettleMin   time.Duration // post-readiness render settle, randomized
	SettleMax   time.Duration
	ContentCap  int // rendered HTML handed to extraction is truncated here

	// Retry policy.
	MaxAttempts         int
	RetryDelay          time.Duration
	RateLimitThreshold  int // consecutive name-without-rating items before tripping
	RateLimitCooldown   time.Duration
	RateLimitMaxRetries int

	// Browser lifecycle.
	RestartEvery      int // full process restart cadence, in items
	ContextResetEvery int // fresh tab cadence, in items; smaller than RestartEvery so it runs between restarts
	MemoryCeilingMB   uint64
	MemoryCheckEvery  int
	RestartCooldown   time.Duration

	// Batch runner.
	FlushEvery   int
	FlushTimeout time.Duration
	ThrottleMin  time.Duration
	ThrottleMax  time.Duration

	// Search stage.
	ScrollPause     time.Duration
	MaxScrollStalls int
	MaxScrolls      int

	// Consent wall handling.
	ConsentMarkers   []string
	ConsentSelectors []string

	// Social stage.
	ContactPaths    []string
	DomainBlacklist []string
	// Sufficient-data early exit: stop visiting secondary pages once the
	// enabled requirements are all met.
	RequireEmail  bool
	RequirePhone  bool
	RequireSocial bool

	// Phone normalization locale.
	PhoneKeywords  []string
	CountryCode    string // e.g. "+36"
	TrunkPrefix    string // e.g. "06"
	MobilePrefixes []string
	MaxPhones      int

	// Observability.
	MetricsAddr string
	Verbose     bool
}

// DefaultConfig returns the defaults observed to work against the live
// target; every one of them can be overridden by env or flag.
func DefaultConfig() *Config {
	return &Config{
		Headless:       true,
		UserAgent:      "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
		WindowWidth:    1280,
		WindowHeight:   1000,
		BlockResources: true,

		PageTimeout: 15 * time.Second,
		ItemBudget:  25 * time.Second,
		SettleMin:   500 * time.Millisecond,
		SettleMax:   3 * time.Second,
		ContentCap:  150000,

		MaxAttempts:         3,
		RetryDelay:          2 * time.Second,
		RateLimitThreshold:  5,
		RateLimitCooldown:   60 * time.Second,
		RateLimitMaxRetries: 2,

		RestartEvery:      100,
		ContextResetEvery: 25,
		MemoryCeilingMB:   2048,
		MemoryCheckEvery:  1,
		RestartCooldown:   5 * time.Second,

		FlushEvery:   25,
		FlushTimeout: 10 * time.Second,
		ThrottleMin:  200 * time.Millisecond,
		ThrottleMax:  time.Second,

		ScrollPause:     3 * time.Second,
		MaxScrollStalls: 2,
		MaxScrolls:      20,

		ConsentMarkers: []string{"consent.google.com", "Before you continue"},
		ConsentSelectors: []string{
			`button[aria-label="Accept all"]`,
			`button#L2AGLb`,
			`form[action*="consent"] button`,
		},

		ContactPaths: []string{
			"", "contact", "kontakt", "contact-us", "about",
			"impressum", "kontak", "get-in-touch",
		},
		DomainBlacklist: nil,
		RequireEmail:    true,
		RequirePhone:    true,
		RequireSocial:   true,

		PhoneKeywords: []string{
			"phone", "telefon", "tel", "kapcsolat", "call", "contact", "mobil", "hívás",
		},
		CountryCode:    "+36",
		TrunkPrefix:    "06",
		MobilePrefixes: []string{"20", "30", "70"},
		MaxPhones:      3,

		MetricsAddr: "",
		Verbose:     false,
	}
}

// Validate ensures all configuration values are coherent.
func (c *Config) Validate() error {
	if c.UserAgent == "" {
		return fmt.Errorf("user agent cannot be empty")
	}
	if c.WindowWidth <= 0 || c.WindowHeight <= 0 {
		return fmt.Errorf("window size must be positive")
	}
	if c.PageTimeout <= 0 {
		return fmt.Errorf("page timeout must be positive")
	}
	if c.ItemBudget <= 0 {
		return fmt.Errorf("item budget must be positive")
	}
	if c.PageTimeout > c.ItemBudget {
		return fmt.Errorf("page timeout (%s) cannot exceed item budget (%s)", c.PageTimeout, c.ItemBudget)
	}
	if c.SettleMin < 0 || c.SettleMax < c.SettleMin {
		return fmt.Errorf("settle delay range is invalid")
	}
	if c.ContentCap <= 0 {
		return fmt.Errorf("content cap must be positive")
	}
	if c.MaxAttempts <= 0 {
		return fmt.Errorf("max attempts must be positive")
	}
	if c.RetryDelay < 0 {
		return fmt.Errorf("retry delay cannot be negative")
	}
	if c.RateLimitThreshold <= 0 {
		return fmt.Errorf("rate limit threshold must be positive")
	}
	if c.RateLimitCooldown < 0 {
		return fmt.Errorf("rate limit cooldown cannot be negative")
	}
	if c.RateLimitMaxRetries < 0 {
		return fmt.Errorf("rate limit max retries cannot be negative")
	}
	if c.RestartEvery <= 0 {
		return fmt.Errorf("restart cadence must be positive")
	}
	if c.ContextResetEvery <= 0 {
		return fmt.Errorf("context reset cadence must be positive")
	}
	if c.MemoryCeilingMB == 0 {
		return fmt.Errorf("memory ceiling must be positive")
	}
	if c.MemoryCheckEvery <= 0 {
		return fmt.Errorf("memory check cadence must be positive")
	}
	if c.FlushEvery <= 0 {
		return fmt.Errorf("flush cadence must be positive")
	}
	if c.FlushTimeout <= 0 {
		return fmt.Errorf("flush timeout must be positive")
	}
	if c.ThrottleMin < 0 || c.ThrottleMax < c.ThrottleMin {
		return fmt.Errorf("throttle delay range is invalid")
	}
	if c.MaxScrolls <= 0 || c.MaxScrollStalls <= 0 {
		return fmt.Errorf("scroll limits must be positive")
	}
	if c.CountryCode == "" || c.CountryCode[0] != '+' {
		return fmt.Errorf("country code must start with '+'")
	}
	if c.MaxPhones <= 0 {
		return fmt.Errorf("max phones must be positive")
	}
	return nil
}
