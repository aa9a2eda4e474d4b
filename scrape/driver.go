package scrape

import (
	"context"
	"log/slog"
	"time"

	"github.com/mkovacs/placeharvest/browser"
	"github.com/mkovacs/placeharvest/config"
	"github.com/mkovacs/placeharvest/models"
)

// Scraper turns one work item into a record. Empty returns the
// all-empty placeholder appended when the item is skipped.
type Scraper interface {
	Scrape(ctx context.Context, item models.WorkItem) (models.Record, error)
	Empty() models.Record
}

// Session is the lifecycle slice of the browser manager the driver
// needs: forced restarts and per-item cadence maintenance.
type Session interface {
	Restart(ctx context.Context, reason string) error
	NoteItem(ctx context.Context) error
}

// Driver runs one work item through the retry state machine:
//
//   - a browser crash earns one restart and one free retry; a second
//     consecutive crash skips the item with a placeholder record
//   - a tripped rate-limit guard earns an escalating cooldown plus a
//     session restart, at most RateLimitMaxRetries times, after which
//     the partial record is kept
//   - an expired item budget skips the item immediately
//   - anything else retries with a fixed delay up to MaxAttempts
type Driver struct {
	cfg     *config.Config
	log     *slog.Logger
	scraper Scraper
	session Session
	guard   *RateGuard
	metrics *Metrics
	sleep   func(context.Context, time.Duration) error
}

func NewDriver(cfg *config.Config, log *slog.Logger, scraper Scraper, session Session, metrics *Metrics) *Driver {
	return &Driver{
		cfg:     cfg,
		log:     log,
		scraper: scraper,
		session: session,
		guard:   NewRateGuard(cfg.RateLimitThreshold),
		metrics: metrics,
		sleep:   sleepCtx,
	}
}

// Run drives item to a terminal outcome. The returned Outcome always
// carries a non-nil Record.
func (d *Driver) Run(ctx context.Context, item models.WorkItem) models.Outcome {
	start := time.Now()
	out := d.run(ctx, item)
	d.metrics.ObserveItem(out.Kind, time.Since(start))
	if ctx.Err() == nil {
		if err := d.session.NoteItem(ctx); err != nil {
			d.log.Error("lifecycle maintenance failed", "err", err)
		}
	}
	return out
}

func (d *Driver) run(ctx context.Context, item models.WorkItem) models.Outcome {
	var attempts, crashes, rlRetries int

	for {
		if ctx.Err() != nil {
			return models.Outcome{Kind: models.OutcomePermanentFailure, Record: d.scraper.Empty(), Err: ctx.Err()}
		}

		// Each attempt gets a fresh item budget; a rate-limit cooldown
		// can outlast it by design.
		itemCtx, cancel := context.WithTimeout(ctx, d.cfg.ItemBudget)
		rec, err := d.scraper.Scrape(itemCtx, item)
		budgetExpired := itemCtx.Err() == context.DeadlineExceeded
		cancel()

		if err == nil {
			crashes = 0
			tripped := false
			if pr, isPlace := rec.(*models.PlaceRecord); isPlace {
				if rlRetries > 0 {
					// A retry after a cooldown is judged on its own:
					// the same signature means the cooldown did not
					// help, whatever the streak says.
					tripped = throttleSignature(pr.Name, pr.Rating)
				} else {
					tripped = d.guard.Observe(pr.Name, pr.Rating)
				}
			}
			if tripped {
				if rlRetries >= d.cfg.RateLimitMaxRetries {
					d.log.Warn("rate limit retries exhausted, keeping partial record", "item", string(item))
					return models.Outcome{Kind: models.OutcomeRateLimited, Record: rec}
				}
				cooldown := d.cfg.RateLimitCooldown << rlRetries
				rlRetries++
				d.log.Warn("rate limiting suspected, cooling down",
					"item", string(item),
					"cooldown", cooldown.String(),
					"retry", rlRetries,
				)
				if serr := d.sleep(ctx, cooldown); serr != nil {
					return models.Outcome{Kind: models.OutcomeRateLimited, Record: rec, Err: serr}
				}
				if serr := d.session.Restart(ctx, "ratelimit"); serr != nil {
					return models.Outcome{Kind: models.OutcomeBrowserFault, Record: rec, Err: serr}
				}
				d.guard.Reset()
				continue
			}
			return models.Outcome{Kind: models.OutcomeSuccess, Record: rec}
		}

		if budgetExpired && ctx.Err() == nil {
			d.log.Warn("item budget expired", "item", string(item), "err", err)
			return models.Outcome{Kind: models.OutcomeHardTimeout, Record: d.scraper.Empty(), Err: err}
		}

		if browser.IsCrash(err) {
			crashes++
			d.log.Error("browser fault", "item", string(item), "consecutive", crashes, "err", err)
			if crashes >= 2 {
				return models.Outcome{Kind: models.OutcomeBrowserFault, Record: d.scraper.Empty(), Err: err}
			}
			if serr := d.session.Restart(ctx, "crash"); serr != nil {
				return models.Outcome{Kind: models.OutcomeBrowserFault, Record: d.scraper.Empty(), Err: serr}
			}
			continue
		}

		attempts++
		if attempts >= d.cfg.MaxAttempts {
			d.log.Error("item failed permanently", "item", string(item), "attempts", attempts, "err", err)
			return models.Outcome{Kind: models.OutcomePermanentFailure, Record: d.scraper.Empty(), Err: err}
		}
		d.log.Warn("retrying item", "item", string(item), "attempt", attempts, "err", err)
		if serr := d.sleep(ctx, d.cfg.RetryDelay); serr != nil {
			return models.Outcome{Kind: models.OutcomePermanentFailure, Record: d.scraper.Empty(), Err: serr}
		}
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
