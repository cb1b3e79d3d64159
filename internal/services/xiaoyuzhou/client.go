// Package xiaoyuzhou resolves xiaoyuzhoufm.com episode pages into playable
// audio metadata.
//
// Episode pages embed their data in a __NEXT_DATA__ JSON blob; the client
// parses that first and falls back to scraping og: meta tags and raw audio
// URLs from the page body when the blob is missing or reshaped.
package xiaoyuzhou

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const (
	httpTimeout = 30 * time.Second
	userAgent   = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"
)

var (
	episodeIDPattern = regexp.MustCompile(`/episode/([a-zA-Z0-9]+)`)
	audioURLPattern  = regexp.MustCompile(`https://[^"'\s]+\.(?:m4a|mp3|aac)[^"'\s]*`)
)

// Episode holds the audio metadata resolved from an episode page.
type Episode struct {
	ID              string
	Title           string
	PodcastName     string
	AudioURL        string
	DurationSeconds int
}

// Client fetches and parses episode pages.
type Client struct {
	httpClient *http.Client
	baseURL    string
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

// WithBaseURL rewrites episode page hosts to the given base (useful for tests).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(strings.TrimSpace(base), "/")
	}
}

// NewClient constructs an episode page client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: httpTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// EpisodeID extracts the episode identifier from a xiaoyuzhou URL. It returns
// false when the URL does not address an episode page.
func EpisodeID(url string) (string, bool) {
	matches := episodeIDPattern.FindStringSubmatch(url)
	if len(matches) != 2 {
		return "", false
	}
	return matches[1], true
}

// Resolve fetches an episode page and extracts its audio metadata.
func (c *Client) Resolve(ctx context.Context, pageURL string) (Episode, error) {
	var empty Episode
	id, ok := EpisodeID(pageURL)
	if !ok {
		return empty, fmt.Errorf("not an episode url: %s", pageURL)
	}

	target := pageURL
	if c.baseURL != "" {
		target = c.baseURL + "/episode/" + id
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return empty, fmt.Errorf("episode page: new request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return empty, fmt.Errorf("episode page: http error: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusMultipleChoices {
		return empty, fmt.Errorf("episode page: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return empty, fmt.Errorf("episode page: read body: %w", err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return empty, fmt.Errorf("episode page: parse html: %w", err)
	}

	episode := Episode{ID: id}
	if parsed, ok := episodeFromNextData(doc); ok {
		episode.Title = parsed.Title
		episode.PodcastName = parsed.PodcastName
		episode.AudioURL = parsed.AudioURL
		episode.DurationSeconds = parsed.DurationSeconds
	}

	if episode.Title == "" {
		episode.Title = metaContent(doc, "og:title")
	}
	if episode.AudioURL == "" {
		episode.AudioURL = metaContent(doc, "og:audio")
	}
	if episode.AudioURL == "" {
		episode.AudioURL = audioURLPattern.FindString(string(body))
	}

	if episode.AudioURL == "" {
		return empty, fmt.Errorf("episode page: no audio url found for episode %s", id)
	}
	return episode, nil
}

// episodeFromNextData digs the episode object out of the __NEXT_DATA__ blob.
func episodeFromNextData(doc *goquery.Document) (Episode, bool) {
	var empty Episode
	raw := doc.Find("script#__NEXT_DATA__").First().Text()
	if strings.TrimSpace(raw) == "" {
		return empty, false
	}

	var payload struct {
		Props struct {
			PageProps struct {
				Episode struct {
					Title    string `json:"title"`
					Duration int    `json:"duration"`
					Podcast  struct {
						Title string `json:"title"`
					} `json:"podcast"`
					Enclosure struct {
						URL string `json:"url"`
					} `json:"enclosure"`
					Media struct {
						Source struct {
							URL string `json:"url"`
						} `json:"source"`
					} `json:"media"`
				} `json:"episode"`
			} `json:"pageProps"`
		} `json:"props"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return empty, false
	}

	ep := payload.Props.PageProps.Episode
	audioURL := strings.TrimSpace(ep.Enclosure.URL)
	if audioURL == "" {
		audioURL = strings.TrimSpace(ep.Media.Source.URL)
	}
	if ep.Title == "" && audioURL == "" {
		return empty, false
	}
	return Episode{
		Title:           strings.TrimSpace(ep.Title),
		PodcastName:     strings.TrimSpace(ep.Podcast.Title),
		AudioURL:        audioURL,
		DurationSeconds: ep.Duration,
	}, true
}

func metaContent(doc *goquery.Document, property string) string {
	content, _ := doc.Find(fmt.Sprintf(`meta[property=%q]`, property)).First().Attr("content")
	return strings.TrimSpace(content)
}
