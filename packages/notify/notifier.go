// Package notify posts run summaries to chat webhooks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
	"github.com/abdul-hamid-achik/hitgraph/packages/http"
)

// DefaultTimeout bounds one webhook call
const DefaultTimeout = 10 * time.Second

// NotifyOn specifies when to send notifications
type NotifyOn string

const (
	// NotifyAlways sends notifications for every run
	NotifyAlways NotifyOn = "always"
	// NotifyFailure sends notifications only when the run is not clean
	NotifyFailure NotifyOn = "failure"
	// NotifySuccess sends notifications only when the run is clean
	NotifySuccess NotifyOn = "success"
	// NotifyRecovery sends notifications on failure and on the first clean
	// run after a failed one
	NotifyRecovery NotifyOn = "recovery"
)

// ParseNotifyOn validates a policy name
func ParseNotifyOn(s string) (NotifyOn, error) {
	switch on := NotifyOn(s); on {
	case NotifyAlways, NotifyFailure, NotifySuccess, NotifyRecovery:
		return on, nil
	}
	return "", fmt.Errorf("unknown notify policy %q (use always, failure, success or recovery)", s)
}

// RunSummary is the part of a run sent to notifiers
type RunSummary struct {
	RunID        string
	TotalTests   int
	PassedTests  int
	FailedTests  int
	SkippedTests int
	Duration     time.Duration
	Clean        bool
	Failures     []FailedTest
	IsRecovery   bool
}

// FailedTest represents a failed test for notifications
type FailedTest struct {
	Name  string
	Suite string
	Error string
}

// Summarize extracts the notification summary from a finished run
func Summarize(result *runner.RunResult) *RunSummary {
	s := &RunSummary{
		RunID:        result.RunID,
		TotalTests:   result.Total(),
		PassedTests:  result.Passed,
		FailedTests:  result.Failed,
		SkippedTests: result.Skipped,
		Duration:     result.Duration,
		Clean:        result.Clean(),
	}
	for _, t := range result.Failures() {
		ft := FailedTest{Name: t.DisplayName()}
		if t.Suite() != nil {
			ft.Suite = t.Suite().Name()
		}
		if err := t.Failure(); err != nil {
			ft.Error = err.Error()
		}
		s.Failures = append(s.Failures, ft)
	}
	return s
}

func (s *RunSummary) title() string {
	switch {
	case !s.Clean && s.FailedTests > 0:
		return fmt.Sprintf("%d test(s) failed", s.FailedTests)
	case !s.Clean:
		return fmt.Sprintf("%d test(s) skipped", s.SkippedTests)
	case s.IsRecovery:
		return "Tests recovered!"
	default:
		return "All tests passed!"
	}
}

// Notifier is the interface for notification services
type Notifier interface {
	Notify(ctx context.Context, summary *RunSummary) error
	Name() string
}

// Manager applies the NotifyOn policy before fanning out to notifiers
type Manager struct {
	notifiers []Notifier
	notifyOn  NotifyOn
	lastClean bool
}

// NewManager creates a new notification manager. The previous run is assumed
// clean until SetPreviousClean says otherwise.
func NewManager(notifyOn NotifyOn, notifiers ...Notifier) *Manager {
	return &Manager{
		notifiers: notifiers,
		notifyOn:  notifyOn,
		lastClean: true,
	}
}

// SetPreviousClean records the outcome of the run before the next Notify,
// typically read from the run history
func (m *Manager) SetPreviousClean(clean bool) {
	m.lastClean = clean
}

// Notify sends the summary to every notifier when the policy asks for it.
// Every notifier is tried; their errors are joined.
func (m *Manager) Notify(ctx context.Context, summary *RunSummary) error {
	shouldNotify := false

	switch m.notifyOn {
	case NotifyAlways:
		shouldNotify = true
	case NotifyFailure:
		shouldNotify = !summary.Clean
	case NotifySuccess:
		shouldNotify = summary.Clean
	case NotifyRecovery:
		if !m.lastClean && summary.Clean {
			summary.IsRecovery = true
		}
		shouldNotify = summary.IsRecovery || !summary.Clean
	}
	m.lastClean = summary.Clean

	if !shouldNotify {
		return nil
	}

	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, summary); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func post(ctx context.Context, client *http.Client, url string, msg any, accepted ...int) error {
	req, err := http.NewAPIRequest("POST", url, msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	resp, err := client.Do(ctx, req)
	if err != nil {
		return fmt.Errorf("failed to send notification: %w", err)
	}

	for _, code := range accepted {
		if resp.StatusCode == code {
			return nil
		}
	}
	return fmt.Errorf("webhook returned status %d: %s", resp.StatusCode, resp.BodyString())
}
