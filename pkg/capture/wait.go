package capture

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// DefaultLoginTimeout bounds the manual-login wait when no budget is set.
const DefaultLoginTimeout = 5 * time.Minute

// defaultSelectorTimeout bounds each post-login selector check.
const defaultSelectorTimeout = 5 * time.Second

// ErrLoginAborted is returned when the user abandons the login wait.
var ErrLoginAborted = errors.New("capture: login aborted by user")

// TimeoutError is returned when the manual login is not confirmed within the
// wait budget.
type TimeoutError struct {
	Budget time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("capture: manual login not confirmed within %s", e.Budget)
}

// WaitOptions configures the manual-login wait.
type WaitOptions struct {
	// Timeout is the maximum total wait. Zero selects DefaultLoginTimeout.
	Timeout time.Duration

	// Selector optionally names an element that must be present before a
	// confirmation is accepted, e.g. a post-login dashboard marker.
	Selector string

	// SelectorTimeout bounds each individual selector check.
	SelectorTimeout time.Duration
}

// WaitForLogin blocks until the manual login is confirmed. Each value on
// confirm is one user confirmation (press ENTER); closing confirm abandons
// the wait with ErrLoginAborted. A confirmation only completes the wait if
// the optional selector condition holds; otherwise the wait continues so
// the user can finish logging in and confirm again.
//
// The wait is bounded: when the budget elapses a *TimeoutError is returned,
// and ctx cancellation returns ctx.Err() promptly so the caller can release
// the browser. Nothing has been persisted at this stage, so neither exit
// leaves a partial artifact behind.
func WaitForLogin(ctx context.Context, b Browser, confirm <-chan struct{}, opts WaitOptions) error {
	budget := opts.Timeout
	if budget == 0 {
		budget = DefaultLoginTimeout
	}
	selectorTimeout := opts.SelectorTimeout
	if selectorTimeout == 0 {
		selectorTimeout = defaultSelectorTimeout
	}

	log := slog.Default()
	timer := time.NewTimer(budget)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-timer.C:
			return &TimeoutError{Budget: budget}

		case _, ok := <-confirm:
			if !ok {
				return ErrLoginAborted
			}
			if url, err := b.CurrentURL(); err == nil {
				log.Info("login confirmation received", "current_url", url)
			}
			if opts.Selector != "" {
				if err := b.WaitForSelector(ctx, opts.Selector, selectorTimeout); err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Warn("post-login marker not present yet, still waiting",
						"selector", opts.Selector, "error", err)
					continue
				}
				log.Info("post-login marker found", "selector", opts.Selector)
			}
			return nil
		}
	}
}
