// Command placeharvest runs the scraping pipeline: search queries to
// place links, place links to a listings CSV, listings to a social and
// contact CSV. Stages run standalone or chained with -stage all, and
// every stage resumes from its checkpoint after an interruption.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
	"github.com/mkovacs/placeharvest/models"
	"github.com/mkovacs/placeharvest/notify"
	"github.com/mkovacs/placeharvest/runner"
	"github.com/mkovacs/placeharvest/scrape"
)

// searchItemBudget replaces the per-listing budget for the search
// stage, whose scroll rounds alone can take a minute per query.
const searchItemBudget = 3 * time.Minute

type options struct {
	stage       string
	queriesPath string
	linksPath   string
	placesPath  string
	socialIn    string
	socialOut   string
	websiteCol  string
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "placeharvest: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	opts := &options{}
	flag.StringVar(&opts.stage, "stage", "all", "stage to run: search, places, socials or all")
	flag.StringVar(&opts.queriesPath, "queries", "google_maps_queries.txt", "search queries, one per line")
	flag.StringVar(&opts.linksPath, "links", "links.txt", "place links file (search output, places input)")
	flag.StringVar(&opts.placesPath, "places-out", "places_data.csv", "listings CSV (places output, socials input)")
	flag.StringVar(&opts.socialIn, "social-in", "", "socials input CSV, defaults to -places-out")
	flag.StringVar(&opts.socialOut, "social-out", "social_data.csv", "social and contact CSV")
	flag.StringVar(&opts.websiteCol, "website-column", "website", "input column holding the website URL")
	headful := flag.Bool("headful", false, "run the browser with a visible window")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.DefaultConfig()
	if err := applyEnv(cfg); err != nil {
		return err
	}
	cfg.Headless = !*headful
	cfg.Verbose = *verbose
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	if opts.socialIn == "" {
		opts.socialIn = opts.placesPath
	}

	log := newLogger(cfg.Verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	metrics := scrape.NewMetrics()
	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, metrics, log)
	}

	token, _ := config.EnvString("PLACEHARVEST_TELEGRAM_TOKEN")
	chatID, _ := config.EnvString("PLACEHARVEST_TELEGRAM_CHAT")
	notifier := notify.New(token, chatID, log)

	var stages []func() error
	add := func(name string, fn func() error) {
		stages = append(stages, func() error {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Info("stage starting", "stage", name)
			return fn()
		})
	}
	switch opts.stage {
	case "search":
		add("search", func() error { return runSearch(ctx, cfg, log, metrics, notifier, opts) })
	case "places":
		add("places", func() error { return runPlaces(ctx, cfg, log, metrics, notifier, opts) })
	case "socials":
		add("socials", func() error { return runSocials(ctx, cfg, log, metrics, notifier, opts) })
	case "all":
		add("search", func() error { return runSearch(ctx, cfg, log, metrics, notifier, opts) })
		add("places", func() error { return runPlaces(ctx, cfg, log, metrics, notifier, opts) })
		add("socials", func() error { return runSocials(ctx, cfg, log, metrics, notifier, opts) })
	default:
		return fmt.Errorf("unknown stage %q", opts.stage)
	}

	for _, stage := range stages {
		if err := stage(); err != nil {
			if errors.Is(err, context.Canceled) {
				log.Info("interrupted, rerun to resume from the checkpoint")
				return nil
			}
			return err
		}
	}
	return nil
}

func runSearch(ctx context.Context, base *config.Config, log *slog.Logger, metrics *scrape.Metrics, notifier *notify.Notifier, opts *options) error {
	queries, err := runner.ReadLines(opts.queriesPath)
	if err != nil {
		return err
	}

	cfg := *base
	cfg.ItemBudget = searchItemBudget

	return runStage(ctx, &cfg, log, metrics, notifier, "search", toItems(queries), nil,
		func(mgr *browser.Manager) scrape.Scraper {
			return scrape.NewSearchScraper(&cfg, log, mgr, metrics)
		},
		func(resume bool) (runner.OutputWriter, error) {
			return runner.NewLinksWriter(opts.linksPath, resume)
		},
		opts.linksPath+".progress",
	)
}

func runPlaces(ctx context.Context, cfg *config.Config, log *slog.Logger, metrics *scrape.Metrics, notifier *notify.Notifier, opts *options) error {
	links, err := runner.ReadLines(opts.linksPath)
	if err != nil {
		return err
	}

	return runStage(ctx, cfg, log, metrics, notifier, "places", toItems(links), nil,
		func(mgr *browser.Manager) scrape.Scraper {
			return scrape.NewPlaceScraper(cfg, log, mgr, metrics)
		},
		func(resume bool) (runner.OutputWriter, error) {
			return runner.NewCSVWriter(opts.placesPath, models.PlaceHeader, resume)
		},
		opts.placesPath+".progress",
	)
}

func runSocials(ctx context.Context, cfg *config.Config, log *slog.Logger, metrics *scrape.Metrics, notifier *notify.Notifier, opts *options) error {
	table, err := runner.ReadCSV(opts.socialIn)
	if err != nil {
		return err
	}
	col, err := table.Column(opts.websiteCol)
	if err != nil {
		return err
	}

	items := make([]models.WorkItem, len(table.Rows))
	for i, row := range table.Rows {
		if col < len(row) {
			items[i] = models.WorkItem(row[col])
		}
	}
	header := append(append([]string(nil), table.Header...), models.SocialHeader...)

	return runStage(ctx, cfg, log, metrics, notifier, "socials", items, table.Rows,
		func(mgr *browser.Manager) scrape.Scraper {
			return scrape.NewSocialScraper(cfg, log, mgr, metrics)
		},
		func(resume bool) (runner.OutputWriter, error) {
			return runner.NewCSVWriter(opts.socialOut, header, resume)
		},
		opts.socialOut+".progress",
	)
}

// runStage wires one stage: browser session, scraper, driver, writer
// and checkpointed runner, with notifications around the batch.
func runStage(
	ctx context.Context,
	cfg *config.Config,
	log *slog.Logger,
	metrics *scrape.Metrics,
	notifier *notify.Notifier,
	name string,
	items []models.WorkItem,
	passthrough [][]string,
	newScraper func(*browser.Manager) scrape.Scraper,
	newWriter func(resume bool) (runner.OutputWriter, error),
	checkpointPath string,
) error {
	if len(items) == 0 {
		log.Warn("stage has no input items", "stage", name)
		return nil
	}

	ckpt := runner.NewCheckpoint(checkpointPath)
	resumeIdx, err := ckpt.Load()
	if err != nil {
		return err
	}

	writer, err := newWriter(resumeIdx > 0)
	if err != nil {
		return err
	}
	defer writer.Close()

	mgr, err := browser.NewManager(cfg, log)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	mgr.OnRestart = metrics.ObserveRestart
	defer mgr.Close()

	driver := scrape.NewDriver(cfg, log, newScraper(mgr), mgr, metrics)
	r := runner.New(cfg, log, driver, writer, ckpt)

	notifier.StageStarted(ctx, name, len(items)-resumeIdx)
	sum, err := r.Run(ctx, &runner.Batch{Items: items, Passthrough: passthrough})
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			notifier.StageFailed(context.Background(), name, err)
		}
		return err
	}
	notifier.StageDone(ctx, name, notify.Summary{
		Total:     sum.Total,
		Processed: sum.Processed,
		ByOutcome: sum.ByOutcome,
		Elapsed:   sum.Elapsed,
	})
	return nil
}

func toItems(lines []string) []models.WorkItem {
	items := make([]models.WorkItem, len(lines))
	for i, line := range lines {
		items[i] = models.WorkItem(line)
	}
	return items
}

// applyEnv layers environment overrides onto the defaults; flags win
// over both.
func applyEnv(cfg *config.Config) error {
	if v, ok := config.EnvString("PLACEHARVEST_USER_AGENT"); ok {
		cfg.UserAgent = v
	}
	if v, ok, err := config.EnvBool("PLACEHARVEST_HEADLESS"); err != nil {
		return err
	} else if ok {
		cfg.Headless = v
	}
	if v, ok, err := config.EnvDuration("PLACEHARVEST_PAGE_TIMEOUT"); err != nil {
		return err
	} else if ok {
		cfg.PageTimeout = v
	}
	if v, ok, err := config.EnvDuration("PLACEHARVEST_ITEM_BUDGET"); err != nil {
		return err
	} else if ok {
		cfg.ItemBudget = v
	}
	if v, ok, err := config.EnvInt("PLACEHARVEST_RESTART_EVERY"); err != nil {
		return err
	} else if ok {
		cfg.RestartEvery = v
	}
	if v, ok, err := config.EnvInt("PLACEHARVEST_MEMORY_CEILING_MB"); err != nil {
		return err
	} else if ok {
		cfg.MemoryCeilingMB = uint64(v)
	}
	if v, ok := config.EnvString("PLACEHARVEST_METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	if v, ok := config.EnvString("PLACEHARVEST_COUNTRY_CODE"); ok {
		cfg.CountryCode = v
	}
	return nil
}

func serveMetrics(addr string, metrics *scrape.Metrics, log *slog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	log.Info("metrics listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server stopped", "err", err)
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if info, err := os.Stderr.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
		handler = slog.NewTextHandler(os.Stderr, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
