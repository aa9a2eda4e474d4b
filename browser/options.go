package browser

import (
	"github.com/chromedp/chromedp"

	"github.com/mkovacs/placeharvest/config"
)

// allocatorOptions builds the Chrome launch flags for one session. The
// flag set disables every background subsystem that costs memory or
// makes the profile look automated; dataDir is unique per session and
// doubles as the process-tree marker for the kill sweep.
func allocatorOptions(cfg *config.Config, dataDir string) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)
	opts = append(opts,
		chromedp.UserAgent(cfg.UserAgent),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.UserDataDir(dataDir),
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-breakpad", true),
		chromedp.Flag("disable-client-side-phishing-detection", true),
		chromedp.Flag("disable-default-apps", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-hang-monitor", true),
		chromedp.Flag("disable-ipc-flooding-protection", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-prompt-on-repost", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-sync", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("lang", "en-US"),
	)
	if cfg.BlockResources {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	return opts
}

// blockedPatterns is the request-level complement of imagesEnabled=false:
// heavy assets that never carry the text we extract. Class names live in
// the HTML, so blocking stylesheets is safe.
var blockedPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3", "*.avi",
	"*.css",
}
