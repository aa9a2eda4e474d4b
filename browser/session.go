package browser

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"runtime"
	"time"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/mkovacs/placeharvest/config"
)

// captureWindow bounds the post-navigation DOM capture. It runs even
// after a navigation timeout so a partially rendered page still yields
// content.
const captureWindow = 3 * time.Second

// Page is the rendered result of one navigation. URL is the final
// location after redirects, which is where consent interstitials show
// up.
type Page struct {
	URL  string
	HTML string
}

// Fetcher is the navigation surface the scrapers consume.
type Fetcher interface {
	Fetch(ctx context.Context, url string, timeout time.Duration) (*Page, error)
	Capture(ctx context.Context) (*Page, error)
	Click(ctx context.Context, selector string, timeout time.Duration) error
	ScrollFeed(ctx context.Context, selector string, timeout time.Duration) (float64, error)
	ClearCookies(ctx context.Context) error
}

// Manager owns one Chrome process and one tab inside it. The tab
// context hangs off a long-lived browser context, so discarding the tab
// keeps the process alive. It is not safe for concurrent use; each
// scraping stage runs single-threaded against its own Manager.
type Manager struct {
	cfg *config.Config
	log *slog.Logger
	rng *rand.Rand

	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	tabCtx        context.Context
	tabCancel     context.CancelFunc

	dataDir string
	ownsDir bool

	items      int
	sinceReset int

	// OnRestart, when set, observes every full process restart with its
	// reason ("cadence", "memory", "crash", "ratelimit").
	OnRestart func(reason string)
}

var _ Fetcher = (*Manager)(nil)

// NewManager launches Chrome and returns a ready session.
func NewManager(cfg *config.Config, log *slog.Logger) (*Manager, error) {
	m := &Manager{
		cfg: cfg,
		log: log,
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if err := m.launch(); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Manager) launch() error {
	dataDir := m.cfg.UserDataDir
	m.ownsDir = false
	if dataDir == "" {
		dir, err := os.MkdirTemp("", "placeharvest-chrome-")
		if err != nil {
			return fmt.Errorf("create user data dir: %w", err)
		}
		dataDir = dir
		m.ownsDir = true
	}
	m.dataDir = dataDir

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocatorOptions(m.cfg, dataDir)...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	// An empty Run starts the process; working tabs derive from this
	// context so they can be discarded without taking it down.
	if err := chromedp.Run(browserCtx); err != nil {
		browserCancel()
		allocCancel()
		if m.ownsDir {
			os.RemoveAll(dataDir)
		}
		return Classify("about:blank", err)
	}
	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	if err := chromedp.Run(tabCtx, m.bootstrapActions()...); err != nil {
		tabCancel()
		browserCancel()
		allocCancel()
		if m.ownsDir {
			os.RemoveAll(dataDir)
		}
		return Classify("about:blank", err)
	}

	m.allocCancel = allocCancel
	m.browserCtx, m.browserCancel = browserCtx, browserCancel
	m.tabCtx, m.tabCancel = tabCtx, tabCancel
	m.sinceReset = 0
	m.log.Debug("browser launched", "data_dir", dataDir, "headless", m.cfg.Headless)
	return nil
}

func (m *Manager) bootstrapActions() []chromedp.Action {
	actions := []chromedp.Action{network.Enable()}
	if m.cfg.BlockResources {
		actions = append(actions, network.SetBlockedURLs(blockedPatterns))
	}
	return actions
}

// Fetch navigates to url and returns the rendered DOM. On a navigation
// timeout it still captures whatever rendered, so the caller can tell a
// slow page with usable content apart from an empty one; the returned
// error keeps the timeout classification either way.
func (m *Manager) Fetch(ctx context.Context, url string, timeout time.Duration) (*Page, error) {
	if timeout <= 0 {
		timeout = m.cfg.PageTimeout
	}
	nctx, cancel := context.WithTimeout(m.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	navErr := chromedp.Run(nctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(m.settle()),
	)

	page := &Page{URL: url}
	if navErr != nil {
		if classified := Classify(url, navErr); classified.Kind == NavCrash {
			return page, classified
		}
	}

	captured, capErr := m.Capture(ctx)
	if captured.URL != "" {
		page.URL = captured.URL
	}
	page.HTML = captured.HTML

	if navErr != nil {
		return page, Classify(url, navErr)
	}
	if capErr != nil {
		return page, Classify(url, capErr)
	}
	return page, nil
}

// Capture returns the current location and rendered DOM of the open tab
// without navigating. The page is never nil.
func (m *Manager) Capture(ctx context.Context) (*Page, error) {
	cctx, cancel := context.WithTimeout(m.tabCtx, captureWindow)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	page := &Page{}
	var location, html string
	err := chromedp.Run(cctx,
		chromedp.Location(&location),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	page.URL = location
	if len(html) > m.cfg.ContentCap {
		html = html[:m.cfg.ContentCap]
	}
	page.HTML = html
	if err != nil {
		return page, Classify(location, err)
	}
	return page, nil
}

// Click clicks the first visible match of selector in the current page.
func (m *Manager) Click(ctx context.Context, selector string, timeout time.Duration) error {
	cctx, cancel := context.WithTimeout(m.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(cctx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible)); err != nil {
		return Classify(selector, err)
	}
	return nil
}

// ScrollFeed scrolls the element at selector to its bottom and returns
// its scroll height, which the caller compares across rounds to detect
// a stalled feed.
func (m *Manager) ScrollFeed(ctx context.Context, selector string, timeout time.Duration) (float64, error) {
	sctx, cancel := context.WithTimeout(m.tabCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	script := fmt.Sprintf(
		`(() => { const el = document.querySelector(%q); if (!el) { return -1; } el.scrollTo(0, el.scrollHeight); return el.scrollHeight; })()`,
		selector,
	)
	var height float64
	if err := chromedp.Run(sctx, chromedp.Evaluate(script, &height)); err != nil {
		return 0, Classify(selector, err)
	}
	if height < 0 {
		return 0, fmt.Errorf("scroll target %q not found", selector)
	}
	return height, nil
}

// ClearCookies drops every cookie in the browsing context.
func (m *Manager) ClearCookies(ctx context.Context) error {
	cctx, cancel := context.WithTimeout(m.tabCtx, 5*time.Second)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(cctx, network.ClearBrowserCookies()); err != nil {
		return Classify("clear cookies", err)
	}
	return nil
}

// NoteItem records one finished item and runs the lifecycle cadence:
// memory ceiling check first, then the full-restart cadence, then the
// cheaper context reset.
func (m *Manager) NoteItem(ctx context.Context) error {
	m.items++
	m.sinceReset++

	if m.items%m.cfg.MemoryCheckEvery == 0 {
		if rss, err := chromeRSS(m.dataDir); err == nil {
			mb := rss / (1 << 20)
			if mb > m.cfg.MemoryCeilingMB {
				m.log.Warn("memory ceiling exceeded",
					"rss_mb", mb,
					"ceiling_mb", m.cfg.MemoryCeilingMB,
				)
				return m.Restart(ctx, "memory")
			}
		}
	}
	if m.items%m.cfg.RestartEvery == 0 {
		return m.Restart(ctx, "cadence")
	}
	if m.sinceReset >= m.cfg.ContextResetEvery {
		return m.ResetContext()
	}
	return nil
}

// ResetContext closes the working tab and opens a fresh one in the
// running browser, dropping tab state without a process restart.
func (m *Manager) ResetContext() error {
	m.tabCancel()
	tabCtx, tabCancel := chromedp.NewContext(m.browserCtx)
	if err := chromedp.Run(tabCtx, m.bootstrapActions()...); err != nil {
		tabCancel()
		return Classify("about:blank", err)
	}
	m.tabCtx, m.tabCancel = tabCtx, tabCancel
	m.sinceReset = 0
	m.log.Debug("browsing context reset", "items", m.items)
	return nil
}

// Restart tears the Chrome process down and relaunches it: graceful
// cancel, force-kill of survivors keyed on the session's user data dir,
// a GC hint, the configured cooldown, then a fresh launch.
func (m *Manager) Restart(ctx context.Context, reason string) error {
	if m.OnRestart != nil {
		m.OnRestart(reason)
	}
	m.log.Info("restarting browser", "reason", reason, "items", m.items)

	m.shutdown()
	runtime.GC()

	select {
	case <-time.After(m.cfg.RestartCooldown):
	case <-ctx.Done():
		return ctx.Err()
	}
	return m.launch()
}

// Close shuts the browser down for good.
func (m *Manager) Close() {
	m.shutdown()
}

func (m *Manager) shutdown() {
	if m.browserCtx != nil {
		// Cancel waits for the browser process to exit.
		_ = chromedp.Cancel(m.browserCtx)
	}
	if m.tabCancel != nil {
		m.tabCancel()
	}
	if m.browserCancel != nil {
		m.browserCancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
	if n := killByMarker(m.dataDir); n > 0 {
		m.log.Warn("force killed chrome processes", "count", n)
	}
	if m.ownsDir && m.dataDir != "" {
		os.RemoveAll(m.dataDir)
	}
	m.tabCtx, m.tabCancel = nil, nil
	m.browserCtx, m.browserCancel = nil, nil
	m.allocCancel = nil
}

func (m *Manager) settle() time.Duration {
	span := m.cfg.SettleMax - m.cfg.SettleMin
	if span <= 0 {
		return m.cfg.SettleMin
	}
	return m.cfg.SettleMin + time.Duration(m.rng.Int63n(int64(span)))
}
