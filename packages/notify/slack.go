package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	hhttp "github.com/abdul-hamid-achik/hitgraph/packages/http"
)

// SlackNotifier sends notifications to Slack via webhook
type SlackNotifier struct {
	webhookURL string
	channel    string
	username   string
	iconEmoji  string
	client     *hhttp.Client
}

// SlackOption is a functional option for SlackNotifier
type SlackOption func(*SlackNotifier)

// WithSlackChannel sets the Slack channel
func WithSlackChannel(channel string) SlackOption {
	return func(s *SlackNotifier) {
		s.channel = channel
	}
}

// WithSlackUsername sets the Slack bot username
func WithSlackUsername(username string) SlackOption {
	return func(s *SlackNotifier) {
		s.username = username
	}
}

// WithSlackClient replaces the HTTP client used for the webhook
func WithSlackClient(c *hhttp.Client) SlackOption {
	return func(s *SlackNotifier) {
		s.client = c
	}
}

// NewSlackNotifier creates a new Slack notifier
func NewSlackNotifier(webhookURL string, opts ...SlackOption) *SlackNotifier {
	s := &SlackNotifier{
		webhookURL: webhookURL,
		username:   "hitgraph",
		iconEmoji:  ":test_tube:",
		client:     hhttp.NewClient(hhttp.WithTimeout(DefaultTimeout)),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

func (s *SlackNotifier) Name() string {
	return "slack"
}

type slackMessage struct {
	Channel     string            `json:"channel,omitempty"`
	Username    string            `json:"username,omitempty"`
	IconEmoji   string            `json:"icon_emoji,omitempty"`
	Attachments []slackAttachment `json:"attachments"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Title  string       `json:"title"`
	Text   string       `json:"text,omitempty"`
	Fields []slackField `json:"fields,omitempty"`
	Footer string       `json:"footer,omitempty"`
	TS     int64        `json:"ts,omitempty"`
}

type slackField struct {
	Title string `json:"title"`
	Value string `json:"value"`
	Short bool   `json:"short"`
}

// Notify sends a notification to Slack
func (s *SlackNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color := "good"
	emoji := ":white_check_mark:"
	switch {
	case !summary.Clean:
		color = "danger"
		emoji = ":x:"
	case summary.IsRecovery:
		emoji = ":tada:"
	}

	fields := []slackField{
		{Title: "Total Tests", Value: fmt.Sprintf("%d", summary.TotalTests), Short: true},
		{Title: "Passed", Value: fmt.Sprintf("%d", summary.PassedTests), Short: true},
		{Title: "Failed", Value: fmt.Sprintf("%d", summary.FailedTests), Short: true},
		{Title: "Skipped", Value: fmt.Sprintf("%d", summary.SkippedTests), Short: true},
		{Title: "Duration", Value: summary.Duration.Round(time.Millisecond).String(), Short: true},
	}

	var text strings.Builder
	if len(summary.Failures) > 0 {
		text.WriteString("*Failed tests:*\n")
		for _, ft := range summary.Failures {
			fmt.Fprintf(&text, "• `%s`", ft.Name)
			if ft.Error != "" {
				fmt.Fprintf(&text, ": %s", ft.Error)
			}
			text.WriteString("\n")
		}
	}

	msg := slackMessage{
		Channel:   s.channel,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
		Attachments: []slackAttachment{{
			Color:  color,
			Title:  fmt.Sprintf("%s %s", emoji, summary.title()),
			Text:   text.String(),
			Fields: fields,
			Footer: "hitgraph run " + summary.RunID,
			TS:     time.Now().Unix(),
		}},
	}

	return post(ctx, s.client, s.webhookURL, msg, http.StatusOK)
}
