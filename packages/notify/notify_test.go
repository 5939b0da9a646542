package notify

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/abdul-hamid-achik/hitgraph/packages/core/graph"
	"github.com/abdul-hamid-achik/hitgraph/packages/core/runner"
)

func runResult(t *testing.T, fail bool) *runner.RunResult {
	t.Helper()
	b := graph.NewBuilder()
	b.Suite("Orders", nil).
		Test("create", func(*graph.T) (any, error) { return nil, nil }).
		Test("pay", func(*graph.T) (any, error) {
			if fail {
				return nil, errors.New("card declined")
			}
			return nil, nil
		}, graph.Depends("create"))
	g, err := b.Build()
	require.NoError(t, err)

	result, err := runner.NewRunner(&runner.Config{Concurrency: 1}).Run(context.Background(), g)
	require.NoError(t, err)
	return result
}

type webhook struct {
	*httptest.Server
	mu     sync.Mutex
	bodies []string
}

func newWebhook(t *testing.T, status int) *webhook {
	w := &webhook{}
	w.Server = httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.mu.Lock()
		w.bodies = append(w.bodies, string(body))
		w.mu.Unlock()
		rw.WriteHeader(status)
	}))
	t.Cleanup(w.Close)
	return w
}

func (w *webhook) received() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]string(nil), w.bodies...)
}

type recordingNotifier struct {
	summaries []*RunSummary
}

func (r *recordingNotifier) Name() string { return "recording" }

func (r *recordingNotifier) Notify(_ context.Context, s *RunSummary) error {
	r.summaries = append(r.summaries, s)
	return nil
}

func TestSummarize(t *testing.T) {
	s := Summarize(runResult(t, true))

	assert.False(t, s.Clean)
	assert.Equal(t, 2, s.TotalTests)
	assert.Equal(t, 1, s.PassedTests)
	assert.Equal(t, 1, s.FailedTests)
	require.Len(t, s.Failures, 1)
	assert.Equal(t, FailedTest{Name: "Orders::pay", Suite: "Orders", Error: "card declined"}, s.Failures[0])
	assert.Equal(t, "1 test(s) failed", s.title())
}

func TestManagerPolicy(t *testing.T) {
	clean := func() *RunSummary { return &RunSummary{Clean: true} }
	failed := func() *RunSummary { return &RunSummary{FailedTests: 1} }

	tests := []struct {
		name string
		on   NotifyOn
		runs []*RunSummary
		want int
	}{
		{"always", NotifyAlways, []*RunSummary{clean(), failed()}, 2},
		{"failure", NotifyFailure, []*RunSummary{clean(), failed()}, 1},
		{"success", NotifySuccess, []*RunSummary{clean(), failed()}, 1},
		{"recovery", NotifyRecovery, []*RunSummary{clean(), failed(), clean(), clean()}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingNotifier{}
			m := NewManager(tt.on, rec)
			for _, s := range tt.runs {
				require.NoError(t, m.Notify(context.Background(), s))
			}
			assert.Len(t, rec.summaries, tt.want)
		})
	}
}

func TestManagerRecoveryFromHistory(t *testing.T) {
	rec := &recordingNotifier{}
	m := NewManager(NotifyRecovery, rec)
	m.SetPreviousClean(false)

	require.NoError(t, m.Notify(context.Background(), &RunSummary{Clean: true}))
	require.Len(t, rec.summaries, 1)
	assert.True(t, rec.summaries[0].IsRecovery)
	assert.Equal(t, "Tests recovered!", rec.summaries[0].title())
}

func TestSlackNotifier(t *testing.T) {
	hook := newWebhook(t, http.StatusOK)
	n := NewSlackNotifier(hook.URL, WithSlackChannel("#ci"))

	require.NoError(t, n.Notify(context.Background(), Summarize(runResult(t, true))))

	bodies := hook.received()
	require.Len(t, bodies, 1)
	msg := gjson.Parse(bodies[0])
	assert.Equal(t, "#ci", msg.Get("channel").String())
	assert.Equal(t, "danger", msg.Get("attachments.0.color").String())
	assert.Contains(t, msg.Get("attachments.0.title").String(), "1 test(s) failed")
	assert.Contains(t, msg.Get("attachments.0.text").String(), "card declined")
}

func TestTeamsNotifier(t *testing.T) {
	hook := newWebhook(t, http.StatusAccepted)
	n := NewTeamsNotifier(hook.URL)

	require.NoError(t, n.Notify(context.Background(), Summarize(runResult(t, false))))

	msg := gjson.Parse(hook.received()[0])
	assert.Equal(t, "AdaptiveCard", msg.Get("attachments.0.content.type").String())
	assert.Equal(t, "All tests passed!", msg.Get("attachments.0.content.body.0.text").String())
}

func TestWebhookErrorsAreJoined(t *testing.T) {
	hook := newWebhook(t, http.StatusInternalServerError)
	m := NewManager(NotifyAlways, NewSlackNotifier(hook.URL), NewTeamsNotifier(hook.URL))

	err := m.Notify(context.Background(), &RunSummary{Clean: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "slack: webhook returned status 500")
	assert.Contains(t, err.Error(), "teams: webhook returned status 500")
}

func TestParseNotifyOn(t *testing.T) {
	on, err := ParseNotifyOn("recovery")
	require.NoError(t, err)
	assert.Equal(t, NotifyRecovery, on)

	_, err = ParseNotifyOn("sometimes")
	assert.Error(t, err)
}
