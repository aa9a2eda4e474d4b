// Package browser owns the Chrome process: launch, navigation, cadence
// restarts and teardown. Everything above it talks to a Fetcher and
// never sees chromedp directly.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NavErrorKind partitions navigation failures by what the caller should
// do about them: a crash means the browser is gone and must be
// restarted, a timeout means the page may still be usable, anything
// else is a plain retryable failure.
type NavErrorKind int

const (
	NavOther NavErrorKind = iota
	NavTimeout
	NavCrash
)

func (k NavErrorKind) String() string {
	switch k {
	case NavTimeout:
		return "timeout"
	case NavCrash:
		return "crash"
	default:
		return "other"
	}
}

// NavError wraps a chromedp failure with its classification and the
// target that triggered it.
type NavError struct {
	Kind NavErrorKind
	URL  string
	Err  error
}

func (e *NavError) Error() string {
	return fmt.Sprintf("navigate %s: %s: %v", e.URL, e.Kind, e.Err)
}

func (e *NavError) Unwrap() error {
	return e.Err
}

// crashMarkers are the messages chromedp and the CDP transport surface
// when the Chrome process itself has died under us.
var crashMarkers = []string{
	"crashed",
	"invalid session",
	"session deleted",
	"target closed",
	"websocket: close",
	"connection refused",
	"broken pipe",
}

// Classify wraps err as a NavError. A nil err classifies to nil.
func Classify(url string, err error) *NavError {
	if err == nil {
		return nil
	}
	var ne *NavError
	if errors.As(err, &ne) {
		return ne
	}

	kind := NavOther
	if errors.Is(err, context.DeadlineExceeded) {
		kind = NavTimeout
	} else {
		msg := strings.ToLower(err.Error())
		for _, marker := range crashMarkers {
			if strings.Contains(msg, marker) {
				kind = NavCrash
				break
			}
		}
	}
	return &NavError{Kind: kind, URL: url, Err: err}
}

// IsCrash reports whether err carries a browser-crash classification.
func IsCrash(err error) bool {
	var ne *NavError
	return errors.As(err, &ne) && ne.Kind == NavCrash
}

// IsTimeout reports whether err carries a navigation-timeout
// classification.
func IsTimeout(err error) bool {
	var ne *NavError
	return errors.As(err, &ne) && ne.Kind == NavTimeout
}
