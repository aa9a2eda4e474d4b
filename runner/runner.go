package runner

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"time"

	"github.com/mkovacs/placeharvest/config"
	"github.com/mkovacs/placeharvest/models"
)

// ItemRunner drives one work item to a terminal outcome. The scrape
// driver satisfies this.
type ItemRunner interface {
	Run(ctx context.Context, item models.WorkItem) models.Outcome
}

// Batch is one checkpointed run: the ordered work items plus, for CSV
// passthrough stages, the original input row of each item. When
// Passthrough is non-nil its length must equal len(Items) and every
// output row starts with the passthrough columns.
type Batch struct {
	Items       []models.WorkItem
	Passthrough [][]string
}

// Summary is the terminal report of a batch.
type Summary struct {
	Total     int
	Processed int
	ByOutcome map[models.OutcomeKind]int
	Elapsed   time.Duration
}

// Runner walks a batch from the checkpointed index to the end, writing
// a record and advancing the checkpoint after every item so an
// interruption at any point resumes without losing or duplicating rows.
type Runner struct {
	cfg    *config.Config
	log    *slog.Logger
	driver ItemRunner
	writer OutputWriter
	ckpt   *Checkpoint
	rng    *rand.Rand
}

func New(cfg *config.Config, log *slog.Logger, driver ItemRunner, writer OutputWriter, ckpt *Checkpoint) *Runner {
	return &Runner{
		cfg:    cfg,
		log:    log,
		driver: driver,
		writer: writer,
		ckpt:   ckpt,
		rng:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Run processes the batch. On cancellation it flushes, keeps the
// checkpoint pointing at the first unprocessed item and returns the
// context error; on completion it flushes and removes the checkpoint.
func (r *Runner) Run(ctx context.Context, batch *Batch) (*Summary, error) {
	start := time.Now()
	sum := &Summary{Total: len(batch.Items), ByOutcome: make(map[models.OutcomeKind]int)}

	if batch.Passthrough != nil && len(batch.Passthrough) != len(batch.Items) {
		return sum, fmt.Errorf("passthrough rows (%d) do not match items (%d)", len(batch.Passthrough), len(batch.Items))
	}

	next, err := r.ckpt.Load()
	if err != nil {
		return sum, err
	}
	if next > len(batch.Items) {
		return sum, fmt.Errorf("checkpoint index %d is beyond the %d input items", next, len(batch.Items))
	}
	if next > 0 {
		r.log.Info("resuming from checkpoint", "index", next, "total", len(batch.Items))
	}

	sinceFlush := 0
	for i := next; i < len(batch.Items); i++ {
		if ctx.Err() != nil {
			break
		}

		out := r.driver.Run(ctx, batch.Items[i])
		if ctx.Err() != nil && out.Kind != models.OutcomeSuccess {
			// Canceled mid-item: the item stays unprocessed.
			break
		}

		rec := out.Record
		if batch.Passthrough != nil {
			rec = withPrefix(batch.Passthrough[i], rec)
		}
		if err := r.writer.Append(rec); err != nil {
			return sum, err
		}
		if err := r.ckpt.Save(i + 1); err != nil {
			return sum, err
		}
		sum.Processed++
		sum.ByOutcome[out.Kind]++
		if out.Kind != models.OutcomeSuccess {
			r.log.Warn("item did not succeed",
				"index", i,
				"outcome", out.Kind.String(),
				"err", out.Err,
			)
		}

		sinceFlush++
		if sinceFlush >= r.cfg.FlushEvery {
			if err := r.flushTimed(); err != nil {
				return sum, err
			}
			sinceFlush = 0
			r.log.Info("progress", "done", i+1, "total", len(batch.Items))
		}
		r.throttle(ctx)
	}

	if err := r.flushTimed(); err != nil {
		return sum, err
	}
	sum.Elapsed = time.Since(start)

	if ctx.Err() != nil {
		r.log.Info("interrupted, progress saved",
			"processed", sum.Processed,
			"checkpoint", r.ckpt.Path(),
		)
		return sum, ctx.Err()
	}
	if err := r.ckpt.Clear(); err != nil {
		return sum, err
	}
	r.log.Info("batch complete",
		"processed", sum.Processed,
		"elapsed", sum.Elapsed.Round(time.Second).String(),
	)
	return sum, nil
}

// flushTimed bounds Flush so a wedged disk cannot hang the loop
// forever; the write itself is not interruptible, but the runner gets
// to surface the stall as an error.
func (r *Runner) flushTimed() error {
	done := make(chan error, 1)
	go func() { done <- r.writer.Flush() }()
	select {
	case err := <-done:
		return err
	case <-time.After(r.cfg.FlushTimeout):
		return fmt.Errorf("flush did not complete within %s", r.cfg.FlushTimeout)
	}
}

func (r *Runner) throttle(ctx context.Context) {
	d := r.cfg.ThrottleMin
	if span := r.cfg.ThrottleMax - r.cfg.ThrottleMin; span > 0 {
		d += time.Duration(r.rng.Int63n(int64(span)))
	}
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func withPrefix(prefix []string, rec models.Record) models.Record {
	rows := rec.Rows()
	row := append([]string(nil), prefix...)
	if len(rows) > 0 {
		row = append(row, rows[0]...)
	}
	return models.RawRow(row)
}
