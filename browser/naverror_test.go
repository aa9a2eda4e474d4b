package browser

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/mkovacs/placeharvest/config"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want NavErrorKind
	}{
		{"nil stays nil", nil, NavOther},
		{"deadline exceeded", context.DeadlineExceeded, NavTimeout},
		{"wrapped deadline", fmt.Errorf("run: %w", context.DeadlineExceeded), NavTimeout},
		{"tab crashed", errors.New("page load failed: tab crashed"), NavCrash},
		{"session deleted", errors.New("chrome error: session deleted because of page crash"), NavCrash},
		{"invalid session", errors.New("invalid session id"), NavCrash},
		{"websocket closed", errors.New("websocket: close 1006 (abnormal closure)"), NavCrash},
		{"plain failure", errors.New("net::ERR_NAME_NOT_RESOLVED"), NavOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify("https://example.net", tt.err)
			if tt.err == nil {
				if got != nil {
					t.Fatalf("Classify(nil) = %v", got)
				}
				return
			}
			if got.Kind != tt.want {
				t.Fatalf("kind = %v, want %v", got.Kind, tt.want)
			}
			if !errors.Is(got, tt.err) {
				t.Fatalf("classified error does not wrap the original")
			}
		})
	}
}

func TestClassifyIdempotent(t *testing.T) {
	inner := Classify("https://example.net", errors.New("tab crashed"))
	outer := Classify("https://example.net", fmt.Errorf("fetch: %w", inner))
	if outer != inner {
		t.Fatalf("re-classification should return the existing NavError")
	}
}

func TestIsCrashAndIsTimeout(t *testing.T) {
	crash := Classify("u", errors.New("target closed"))
	timeout := Classify("u", context.DeadlineExceeded)

	if !IsCrash(crash) || IsCrash(timeout) {
		t.Fatalf("IsCrash misclassified")
	}
	if !IsTimeout(timeout) || IsTimeout(crash) {
		t.Fatalf("IsTimeout misclassified")
	}
	if IsCrash(errors.New("bare")) {
		t.Fatalf("unclassified error reported as crash")
	}
}

func TestSettleWithinRange(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.SettleMin = 100 * time.Millisecond
	cfg.SettleMax = 300 * time.Millisecond
	m := &Manager{cfg: cfg, rng: rand.New(rand.NewSource(1))}

	for i := 0; i < 100; i++ {
		d := m.settle()
		if d < cfg.SettleMin || d >= cfg.SettleMax {
			t.Fatalf("settle %v outside [%v, %v)", d, cfg.SettleMin, cfg.SettleMax)
		}
	}
}
