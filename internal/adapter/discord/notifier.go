// Package discord renders and delivers activity notifications to a Discord
// webhook.
package discord

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/smallbiznis/stravalink/internal/domain"
)

// Notifier hands a rendered activity notification to the chat platform.
type Notifier interface {
	SendActivity(ctx context.Context, ownerID string, activityID int64, activity *domain.Activity) error
}

// WebhookNotifier posts Discord embed payloads to a webhook URL.
type WebhookNotifier struct {
	webhookURL string
	httpClient *http.Client
}

var _ Notifier = (*WebhookNotifier)(nil)

func NewWebhookNotifier(webhookURL string, client *http.Client) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &WebhookNotifier{webhookURL: webhookURL, httpClient: client}
}

const stravaOrange = 16534530

type embedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type embedFooter struct {
	Text string `json:"text"`
}

type embed struct {
	Title       string       `json:"title"`
	URL         string       `json:"url"`
	Description string       `json:"description"`
	Color       int          `json:"color"`
	Fields      []embedField `json:"fields"`
	Footer      embedFooter  `json:"footer"`
	Timestamp   string       `json:"timestamp"`
}

type webhookPayload struct {
	Embeds []embed `json:"embeds"`
}

// SendActivity renders the embed and posts it. Every activity field is
// optional on the wire; absent values fall back to explicit defaults rather
// than failing the render.
func (n *WebhookNotifier) SendActivity(ctx context.Context, ownerID string, activityID int64, activity *domain.Activity) error {
	if n.webhookURL == "" {
		return domain.ErrConfigMissing
	}
	if activity == nil {
		activity = &domain.Activity{}
	}

	payload := webhookPayload{Embeds: []embed{buildEmbed(ownerID, activityID, activity)}}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode >= 300 {
		return fmt.Errorf("send notification failed: status=%d", resp.StatusCode)
	}
	return nil
}

func buildEmbed(ownerID string, activityID int64, activity *domain.Activity) embed {
	name := stringOr(activity.Name, "Untitled Activity")
	activityType := stringOr(activity.Type, "Activity")
	sportType := stringOr(activity.SportType, activityType)
	distance := floatOr(activity.Distance, 0)
	movingTime := intOr(activity.MovingTime, 0)
	elevation := floatOr(activity.TotalElevationGain, 0)
	avgSpeed := floatOr(activity.AverageSpeed, 0)
	calories := floatOr(activity.Calories, 0)

	caloriesValue := "N/A"
	if calories > 0 {
		caloriesValue = strconv.FormatFloat(calories, 'f', 0, 64)
	}

	return embed{
		Title:       fmt.Sprintf("New %s!", sportType),
		URL:         "https://www.strava.com/activities/" + strconv.FormatInt(activityID, 10),
		Description: fmt.Sprintf("<@%s> just completed **%s**", ownerID, name),
		Color:       stravaOrange,
		Fields: []embedField{
			{Name: "Distance", Value: fmt.Sprintf("%.2f km", distance/1000), Inline: true},
			{Name: "Time", Value: formatDuration(movingTime), Inline: true},
			{Name: "Avg Speed", Value: fmt.Sprintf("%.1f km/h", avgSpeed*3.6), Inline: true},
			{Name: "Elevation", Value: fmt.Sprintf("%.0f m", elevation), Inline: true},
			{Name: "Calories", Value: caloriesValue, Inline: true},
			{Name: "Activity Type", Value: sportType, Inline: true},
		},
		Footer:    embedFooter{Text: "Powered by Strava"},
		Timestamp: time.Now().UTC().Format("2006-01-02T15:04:05.000Z"),
	}
}

// formatDuration renders seconds as HH:MM:SS with hours left unbounded.
func formatDuration(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

func stringOr(v *string, def string) string {
	if v == nil || *v == "" {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func intOr(v *int64, def int64) int64 {
	if v == nil {
		return def
	}
	return *v
}
