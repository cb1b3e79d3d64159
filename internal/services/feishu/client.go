// Package feishu lists episode link candidates from a Feishu bitable.
//
// The client exchanges app credentials for a tenant access token (cached
// until shortly before expiry) and walks the table's records via the search
// endpoint, following page tokens. A record becomes a candidate when one of
// the configured link columns yields a URL.
package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL  = "https://open.feishu.cn"
	defaultPageSize = 100
	httpTimeout     = 30 * time.Second

	// Tokens are refreshed this long before the server-reported expiry.
	tokenRefreshMargin = 5 * time.Minute
)

// Config captures the settings required to talk to the bitable.
type Config struct {
	AppID      string
	AppSecret  string
	BaseURL    string
	AppToken   string
	TableID    string
	PageSize   int
	LinkFields []string
}

// Candidate is one row of the table that carries an episode link.
type Candidate struct {
	RecordID string
	URL      string
	Title    string
}

// Client wraps the Feishu bitable record search API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	mu          sync.Mutex
	token       string
	tokenExpiry time.Time
	now         func() time.Time
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClock overrides the time source (useful for token expiry tests).
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a bitable client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: httpTimeout},
		now:        time.Now,
	}
	client.cfg.BaseURL = strings.TrimRight(strings.TrimSpace(client.cfg.BaseURL), "/")
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.cfg.PageSize <= 0 {
		client.cfg.PageSize = defaultPageSize
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type apiError struct {
	Code int
	Msg  string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("feishu api error %d: %s", e.Code, e.Msg)
}

// ListCandidates returns every record in the table that yields a link,
// following pagination until the table is exhausted.
func (c *Client) ListCandidates(ctx context.Context) ([]Candidate, error) {
	var candidates []Candidate
	pageToken := ""
	for {
		page, err := c.searchPage(ctx, pageToken)
		if err != nil {
			return nil, err
		}
		for _, record := range page.Items {
			url := extractLink(record.Fields, c.cfg.LinkFields)
			if url == "" {
				continue
			}
			candidates = append(candidates, Candidate{
				RecordID: record.RecordID,
				URL:      url,
				Title:    extractText(record.Fields["标题"], record.Fields["title"]),
			})
		}
		if !page.HasMore || page.PageToken == "" {
			return candidates, nil
		}
		pageToken = page.PageToken
	}
}

type searchResult struct {
	Items []struct {
		RecordID string         `json:"record_id"`
		Fields   map[string]any `json:"fields"`
	} `json:"items"`
	HasMore   bool   `json:"has_more"`
	PageToken string `json:"page_token"`
}

func (c *Client) searchPage(ctx context.Context, pageToken string) (searchResult, error) {
	var empty searchResult
	token, err := c.tenantAccessToken(ctx)
	if err != nil {
		return empty, err
	}

	endpoint := fmt.Sprintf("%s/open-apis/bitable/v1/apps/%s/tables/%s/records/search?page_size=%d",
		c.cfg.BaseURL, c.cfg.AppToken, c.cfg.TableID, c.cfg.PageSize)
	if pageToken != "" {
		endpoint += "&page_token=" + url.QueryEscape(pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader("{}"))
	if err != nil {
		return empty, fmt.Errorf("feishu search: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	var response struct {
		Code int          `json:"code"`
		Msg  string       `json:"msg"`
		Data searchResult `json:"data"`
	}
	if err := c.doJSON(req, &response); err != nil {
		return empty, fmt.Errorf("feishu search: %w", err)
	}
	if response.Code != 0 {
		return empty, fmt.Errorf("feishu search: %w", &apiError{Code: response.Code, Msg: response.Msg})
	}
	return response.Data, nil
}

func (c *Client) tenantAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.tokenExpiry) {
		return c.token, nil
	}

	payload, err := json.Marshal(map[string]string{
		"app_id":     c.cfg.AppID,
		"app_secret": c.cfg.AppSecret,
	})
	if err != nil {
		return "", fmt.Errorf("feishu auth: encode body: %w", err)
	}

	endpoint := c.cfg.BaseURL + "/open-apis/auth/v3/tenant_access_token/internal"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("feishu auth: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var response struct {
		Code              int    `json:"code"`
		Msg               string `json:"msg"`
		TenantAccessToken string `json:"tenant_access_token"`
		Expire            int    `json:"expire"`
	}
	if err := c.doJSON(req, &response); err != nil {
		return "", fmt.Errorf("feishu auth: %w", err)
	}
	if response.Code != 0 {
		return "", fmt.Errorf("feishu auth: %w", &apiError{Code: response.Code, Msg: response.Msg})
	}
	if response.TenantAccessToken == "" {
		return "", fmt.Errorf("feishu auth: empty token")
	}

	c.token = response.TenantAccessToken
	lifetime := time.Duration(response.Expire) * time.Second
	if lifetime > tokenRefreshMargin {
		lifetime -= tokenRefreshMargin
	}
	c.tokenExpiry = c.now().Add(lifetime)
	return c.token, nil
}

func (c *Client) doJSON(req *http.Request, target any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// extractLink probes the configured columns in priority order and returns the
// first URL found. Bitable cells may hold plain strings, hyperlink objects
// ({"link": ..., "text": ...}), or arrays of text runs.
func extractLink(fields map[string]any, linkFields []string) string {
	for _, field := range linkFields {
		value, ok := fields[field]
		if !ok {
			continue
		}
		if url := linkFromValue(value); url != "" {
			return url
		}
	}
	return ""
}

func linkFromValue(value any) string {
	switch v := value.(type) {
	case string:
		return urlOrEmpty(v)
	case map[string]any:
		if link, ok := v["link"].(string); ok {
			if url := urlOrEmpty(link); url != "" {
				return url
			}
		}
		if text, ok := v["text"].(string); ok {
			return urlOrEmpty(text)
		}
	case []any:
		for _, element := range v {
			if url := linkFromValue(element); url != "" {
				return url
			}
		}
	}
	return ""
}

func urlOrEmpty(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		return trimmed
	}
	return ""
}

func extractText(values ...any) string {
	for _, value := range values {
		switch v := value.(type) {
		case string:
			if trimmed := strings.TrimSpace(v); trimmed != "" {
				return trimmed
			}
		case []any:
			var builder strings.Builder
			for _, element := range v {
				if run, ok := element.(map[string]any); ok {
					if text, ok := run["text"].(string); ok {
						builder.WriteString(text)
					}
				}
			}
			if trimmed := strings.TrimSpace(builder.String()); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}
