package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"podnotes/internal/config"
)

const userAgent = "Podnotes-Go/0.1.0"

// Service defines the notification surface exposed to workflow components.
type Service interface {
	NotifyEpisodeDiscovered(ctx context.Context, title, url string) error
	NotifyNoteReady(ctx context.Context, title, notePath string, degraded bool) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &http.Client{Timeout: timeout}
	return &ntfyService{
		endpoint:  topic,
		client:    client,
		discovery: cfg.Notifications.Discovery,
		notes:     cfg.Notifications.Notes,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	discovery bool
	notes     bool
	errors    bool
}

func (n *ntfyService) NotifyEpisodeDiscovered(ctx context.Context, title, url string) error {
	if !n.discovery {
		return nil
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = strings.TrimSpace(url)
	}
	data := payload{
		title:   "Podnotes - Episode Discovered",
		message: fmt.Sprintf("🎙️ New episode: %s", title),
		tags:    []string{"podnotes", "episode", "discovered"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyNoteReady(ctx context.Context, title, notePath string, degraded bool) error {
	if !n.notes {
		return nil
	}
	title = strings.TrimSpace(title)
	message := fmt.Sprintf("✅ Note ready: %s", title)
	if notePath = strings.TrimSpace(notePath); notePath != "" {
		message = fmt.Sprintf("%s\nFile: %s", message, notePath)
	}
	if degraded {
		message += "\nSummary degraded; transcript preserved"
	}
	data := payload{
		title:    "Podnotes - Note Ready",
		message:  message,
		tags:     []string{"podnotes", "note", "completed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Podnotes - Error",
		message:  builder.String(),
		tags:     []string{"podnotes", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Podnotes - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"podnotes", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyEpisodeDiscovered(context.Context, string, string) error   { return nil }
func (noopService) NotifyNoteReady(context.Context, string, string, bool) error     { return nil }
func (noopService) NotifyError(context.Context, error, string) error                { return nil }
func (noopService) TestNotification(context.Context) error                          { return nil }
