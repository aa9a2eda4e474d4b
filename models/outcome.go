package models

// OutcomeKind classifies how processing one WorkItem ended.
type OutcomeKind int

const (
	// OutcomeSuccess means a record was extracted and should be appended.
	OutcomeSuccess OutcomeKind = iota
	// OutcomeRetryable is an ordinary transient failure; the item may be retried.
	OutcomeRetryable
	// OutcomeBrowserFault means the browser process or session died mid-item.
	OutcomeBrowserFault
	// OutcomeRateLimited is the heuristic "target is throttling us" signal.
	OutcomeRateLimited
	// OutcomeHardTimeout means the per-item budget expired.
	OutcomeHardTimeout
	// OutcomePermanentFailure means all strategies were exhausted; an
	// all-empty placeholder row is appended and processing continues.
	OutcomePermanentFailure
)

// String returns the metric/log label for the kind.
func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeRetryable:
		return "retryable"
	case OutcomeBrowserFault:
		return "browser_fault"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeHardTimeout:
		return "hard_timeout"
	case OutcomePermanentFailure:
		return "permanent_failure"
	default:
		return "unknown"
	}
}

// Outcome is the terminal result of driving one WorkItem through the
// scrape state machine. Record is never nil: permanent failures carry an
// all-empty placeholder so the output keeps its fixed column layout.
type Outcome struct {
	Kind   OutcomeKind
	Record Record
	Err    error
}
