package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/gfwl-hub/gfwl-hub-api/internal/models"
)

// Discord caps embeds per webhook message.
const embedsPerMessage = 10

const embedColorPending = 0xF1C40F

// DiscordWebhook publishes correction batches to a Discord channel webhook.
// Batches from the same submitter are kept in one message that gets edited in
// place as the batch grows, so the channel shows one entry per review unit.
type DiscordWebhook struct {
	url     string
	client  *http.Client
	logger  *zap.Logger
	enabled bool
}

// NewDiscordWebhook constructs the webhook sink. An empty URL disables
// publishing; PublishBatch then returns the prior message IDs untouched.
func NewDiscordWebhook(url string, logger *zap.Logger) *DiscordWebhook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DiscordWebhook{
		url:     url,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger,
		enabled: url != "",
	}
}

type discordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type discordEmbed struct {
	Title     string              `json:"title"`
	Color     int                 `json:"color"`
	Fields    []discordEmbedField `json:"fields"`
	Timestamp string              `json:"timestamp"`
}

type discordMessage struct {
	Content string         `json:"content,omitempty"`
	Embeds  []discordEmbed `json:"embeds"`
}

type discordMessageResponse struct {
	ID string `json:"id"`
}

// PublishBatch sends or updates the channel messages for a correction batch
// and returns the resulting message IDs in channel order. Existing IDs are
// edited in place; missing or deleted messages fall back to a fresh send.
func (w *DiscordWebhook) PublishBatch(ctx context.Context, batch []models.Correction, existingIDs []string) ([]string, error) {
	if !w.enabled || len(batch) == 0 {
		return existingIDs, nil
	}

	content := fmt.Sprintf("**%s** submitted %d pending correction(s) for **%s**",
		batch[0].SubmitterName, len(batch), batch[0].GameTitle)

	embeds := make([]discordEmbed, 0, len(batch))
	for _, correction := range batch {
		embeds = append(embeds, buildEmbed(correction))
	}

	resultIDs := make([]string, 0, (len(embeds)+embedsPerMessage-1)/embedsPerMessage)
	for chunk := 0; chunk*embedsPerMessage < len(embeds); chunk++ {
		start := chunk * embedsPerMessage
		end := start + embedsPerMessage
		if end > len(embeds) {
			end = len(embeds)
		}
		message := discordMessage{Embeds: embeds[start:end]}
		if chunk == 0 {
			message.Content = content
		}

		var existingID string
		if chunk < len(existingIDs) {
			existingID = existingIDs[chunk]
		}

		id, err := w.upsertMessage(ctx, message, existingID)
		if err != nil {
			return resultIDs, err
		}
		resultIDs = append(resultIDs, id)
	}
	return resultIDs, nil
}

func buildEmbed(correction models.Correction) discordEmbed {
	fields := []discordEmbedField{
		{Name: "Field", Value: string(correction.Field), Inline: true},
		{Name: "Proposed", Value: valueOrCleared(correction.NewValue), Inline: true},
		{Name: "Current", Value: valueOrCleared(correction.OldValue), Inline: true},
		{Name: "Reason", Value: correction.Reason},
	}
	return discordEmbed{
		Title:     correction.GameTitle,
		Color:     embedColorPending,
		Fields:    fields,
		Timestamp: correction.SubmittedAt.UTC().Format(time.RFC3339),
	}
}

func valueOrCleared(value *string) string {
	if value == nil || *value == "" {
		return "_(empty)_"
	}
	return *value
}

// upsertMessage edits the existing channel message when an ID is known and
// posts a fresh one otherwise. An edit against a deleted message (404) falls
// back to a fresh send so the batch never goes unannounced.
func (w *DiscordWebhook) upsertMessage(ctx context.Context, message discordMessage, existingID string) (string, error) {
	if existingID != "" {
		id, err := w.send(ctx, http.MethodPatch, fmt.Sprintf("%s/messages/%s", w.url, existingID), message)
		if err == nil {
			return id, nil
		}
		if !isNotFound(err) {
			return "", err
		}
		w.logger.Sugar().Warnw("webhook message missing, sending fresh", "message_id", existingID)
	}
	return w.send(ctx, http.MethodPost, w.url+"?wait=true", message)
}

type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("discord webhook status %d: %s", e.status, e.body)
}

func isNotFound(err error) bool {
	se, ok := err.(*statusError)
	return ok && se.status == http.StatusNotFound
}

func (w *DiscordWebhook) send(ctx context.Context, method, url string, message discordMessage) (string, error) {
	payload, err := json.Marshal(message)
	if err != nil {
		return "", fmt.Errorf("marshal webhook payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("send webhook request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &statusError{status: resp.StatusCode, body: string(body)}
	}

	var parsed discordMessageResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("decode webhook response: %w", err)
	}
	if parsed.ID == "" && existingIDFromURL(method, url) != "" {
		return existingIDFromURL(method, url), nil
	}
	return parsed.ID, nil
}

// existingIDFromURL recovers the message ID from an edit URL. Discord returns
// the full message on PATCH, but keep a fallback in case the body is empty.
func existingIDFromURL(method, url string) string {
	if method != http.MethodPatch {
		return ""
	}
	for i := len(url) - 1; i >= 0; i-- {
		if url[i] == '/' {
			return url[i+1:]
		}
	}
	return ""
}
