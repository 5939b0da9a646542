package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	hhttp "github.com/abdul-hamid-achik/hitgraph/packages/http"
)

// TeamsNotifier sends notifications to Microsoft Teams via webhook
type TeamsNotifier struct {
	webhookURL string
	client     *hhttp.Client
}

// TeamsOption is a functional option for TeamsNotifier
type TeamsOption func(*TeamsNotifier)

// WithTeamsClient replaces the HTTP client used for the webhook
func WithTeamsClient(c *hhttp.Client) TeamsOption {
	return func(t *TeamsNotifier) {
		t.client = c
	}
}

// NewTeamsNotifier creates a new Teams notifier
func NewTeamsNotifier(webhookURL string, opts ...TeamsOption) *TeamsNotifier {
	t := &TeamsNotifier{
		webhookURL: webhookURL,
		client:     hhttp.NewClient(hhttp.WithTimeout(DefaultTimeout)),
	}

	for _, opt := range opts {
		opt(t)
	}

	return t
}

func (t *TeamsNotifier) Name() string {
	return "teams"
}

// teamsMessage is a message carrying one Adaptive Card
type teamsMessage struct {
	Type        string      `json:"type"`
	Attachments []teamsCard `json:"attachments"`
}

type teamsCard struct {
	ContentType string           `json:"contentType"`
	ContentURL  *string          `json:"contentUrl"`
	Content     teamsCardContent `json:"content"`
}

type teamsCardContent struct {
	Schema  string       `json:"$schema"`
	Type    string       `json:"type"`
	Version string       `json:"version"`
	Body    []teamsBlock `json:"body"`
}

type teamsBlock struct {
	Type      string        `json:"type"`
	Size      string        `json:"size,omitempty"`
	Weight    string        `json:"weight,omitempty"`
	Text      string        `json:"text,omitempty"`
	Color     string        `json:"color,omitempty"`
	Wrap      bool          `json:"wrap,omitempty"`
	Columns   []teamsColumn `json:"columns,omitempty"`
	Spacing   string        `json:"spacing,omitempty"`
	Separator bool          `json:"separator,omitempty"`
}

type teamsColumn struct {
	Type  string       `json:"type"`
	Width string       `json:"width"`
	Items []teamsBlock `json:"items"`
}

func teamsStat(label string, value any, color string) teamsColumn {
	return teamsColumn{
		Type:  "Column",
		Width: "stretch",
		Items: []teamsBlock{
			{Type: "TextBlock", Text: "**" + label + "**", Wrap: true},
			{Type: "TextBlock", Text: fmt.Sprint(value), Color: color, Wrap: true},
		},
	}
}

// Notify sends a notification to Microsoft Teams
func (t *TeamsNotifier) Notify(ctx context.Context, summary *RunSummary) error {
	color := "good"
	if !summary.Clean {
		color = "attention"
	}

	body := []teamsBlock{
		{
			Type:   "TextBlock",
			Size:   "Large",
			Weight: "Bolder",
			Text:   summary.title(),
			Color:  color,
		},
		{
			Type:      "ColumnSet",
			Separator: true,
			Spacing:   "Medium",
			Columns: []teamsColumn{
				teamsStat("Total Tests", summary.TotalTests, ""),
				teamsStat("Passed", summary.PassedTests, "good"),
				teamsStat("Failed", summary.FailedTests, "attention"),
				teamsStat("Skipped", summary.SkippedTests, "warning"),
				teamsStat("Duration", summary.Duration.Round(time.Millisecond), ""),
			},
		},
	}

	if len(summary.Failures) > 0 {
		body = append(body, teamsBlock{
			Type:      "TextBlock",
			Text:      "**Failed Tests:**",
			Separator: true,
			Spacing:   "Medium",
		})
		for _, ft := range summary.Failures {
			text := fmt.Sprintf("- `%s`", ft.Name)
			if ft.Error != "" {
				text += ": " + ft.Error
			}
			body = append(body, teamsBlock{Type: "TextBlock", Text: text, Wrap: true})
		}
	}

	body = append(body, teamsBlock{
		Type:      "TextBlock",
		Text:      fmt.Sprintf("_hitgraph run %s - %s_", summary.RunID, time.Now().Format(time.RFC3339)),
		Separator: true,
		Spacing:   "Medium",
	})

	msg := teamsMessage{
		Type: "message",
		Attachments: []teamsCard{{
			ContentType: "application/vnd.microsoft.card.adaptive",
			Content: teamsCardContent{
				Schema:  "http://adaptivecards.io/schemas/adaptive-card.json",
				Type:    "AdaptiveCard",
				Version: "1.2",
				Body:    body,
			},
		}},
	}

	return post(ctx, t.client, t.webhookURL, msg, http.StatusOK, http.StatusAccepted)
}
