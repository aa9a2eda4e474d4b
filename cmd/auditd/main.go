// Command auditd serves the listing-audit webhook: it accepts audit
// requests over HTTP, scrapes the listing and its rendered reviews
// through the shared browser engine, and emails the report.
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

	"github.com/mkovacs/placeharvest/audit"
	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "auditd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", ":8080", "listen address")
	headful := flag.Bool("headful", false, "run the browser with a visible window")
	verbose := flag.Bool("v", false, "verbose logging")
	flag.Parse()

	config.LoadDotEnv()
	cfg := config.DefaultConfig()
	cfg.Headless = !*headful
	cfg.Verbose = *verbose
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	token, ok := config.EnvString("AUDIT_TOKEN")
	if !ok || token == "" {
		return errors.New("AUDIT_TOKEN must be set")
	}

	log := newLogger(cfg.Verbose)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	mgr, err := browser.NewManager(cfg, log)
	if err != nil {
		return fmt.Errorf("launch browser: %w", err)
	}
	defer mgr.Close()

	sink := buildSink(log)
	auditor := audit.NewPlaceAuditor(cfg, log, mgr)
	svc, err := audit.NewService(token, auditor, sink, log)
	if err != nil {
		return err
	}
	go svc.Run(ctx)

	server := &http.Server{
		Addr:              *addr,
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		server.Shutdown(shutdownCtx)
	}()

	log.Info("audit service listening", "addr", *addr)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// buildSink wires the report mailer when the mail environment is
// configured and falls back to logging results otherwise.
func buildSink(log *slog.Logger) audit.ResultSink {
	endpoint, _ := config.EnvString("AUDIT_MAIL_ENDPOINT")
	apiKey, _ := config.EnvString("AUDIT_MAIL_KEY")
	from, _ := config.EnvString("AUDIT_MAIL_FROM")
	if endpoint != "" && apiKey != "" && from != "" {
		return audit.NewMailSink(audit.NewHTTPMailer(endpoint, apiKey, from))
	}
	log.Warn("mail delivery not configured, results are logged only")
	return &logSink{log: log}
}

type logSink struct {
	log *slog.Logger
}

func (s *logSink) Deliver(_ context.Context, res audit.Result) error {
	if res.Err != nil {
		s.log.Error("audit result", "place_url", res.Request.PlaceURL, "err", res.Err)
		return nil
	}
	s.log.Info("audit result",
		"place_url", res.Request.PlaceURL,
		"name", res.Record.Name,
		"rating", res.Record.Rating,
		"reviews_loaded", res.Record.ReviewsLoaded,
		"reviews_unanswered", res.Record.ReviewsUnanswered,
	)
	return nil
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
