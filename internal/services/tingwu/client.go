// Package tingwu drives the Tingwu offline transcription service: submit an
// audio URL, poll the task until the backend reports a terminal state, then
// fetch and merge the result documents into a Transcript.
//
// Requests are signed with the Dataplus HMAC-SHA1 scheme: the canonical
// string covers method, accept, content MD5, content type, date, and path,
// and the Authorization header carries "Dataplus <ak>:<signature>".
package tingwu

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/md5"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	httpTimeout = 60 * time.Second

	// Task states reported by the backend.
	StateOngoing   = "ONGOING"
	StateCompleted = "COMPLETED"
	StateFailed    = "FAILED"
)

// Config captures the settings required to talk to the service.
type Config struct {
	AccessKeyID     string
	AccessKeySecret string
	AppKey          string
	BaseURL         string
}

// Client wraps the Tingwu offline task API.
type Client struct {
	cfg        Config
	httpClient *http.Client
	now        func() time.Time
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

// WithClock overrides the time source used for request signing.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// NewClient constructs a Tingwu client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	client := &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: httpTimeout},
		now:        time.Now,
	}
	client.cfg.BaseURL = strings.TrimRight(strings.TrimSpace(client.cfg.BaseURL), "/")
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// TaskInfo is the state of a submitted transcription task.
type TaskInfo struct {
	TaskID       string
	State        string
	ErrorCode    string
	ErrorMessage string
	// ResultURLs maps result kinds (Transcription, AutoChapters,
	// Summarization) to downloadable JSON documents, populated once the task
	// completes.
	ResultURLs map[string]string
}

// Sentence is one utterance of the merged transcript.
type Sentence struct {
	SpeakerID string
	StartMs   int
	EndMs     int
	Text      string
}

// Chapter is one auto-detected chapter of the episode.
type Chapter struct {
	Title   string
	StartMs int
	EndMs   int
	Summary string
}

// Transcript is the merged output of a completed task.
type Transcript struct {
	Sentences       []Sentence
	Chapters        []Chapter
	Keywords        []string
	Summary         string
	DurationSeconds int
}

// Submit creates an offline transcription task for the audio URL and returns
// the backend task identifier.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	audioURL = strings.TrimSpace(audioURL)
	if audioURL == "" {
		return "", fmt.Errorf("tingwu submit: audio url required")
	}

	payload := map[string]any{
		"AppKey": c.cfg.AppKey,
		"Input": map[string]any{
			"FileUrl":         audioURL,
			"SourceLanguage":  "cn",
			"TaskKey":         "podnotes-" + uuid.NewString(),
			"ProgressiveCall": false,
		},
		"Parameters": map[string]any{
			"Transcription": map[string]any{
				"DiarizationEnabled": true,
			},
			"AutoChaptersEnabled":  true,
			"SummarizationEnabled": true,
		},
	}

	var response struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
		Data    struct {
			TaskID string `json:"TaskId"`
		} `json:"Data"`
	}
	if err := c.signedJSON(ctx, http.MethodPut, "/openapi/tingwu/v2/tasks?type=offline", payload, &response); err != nil {
		return "", fmt.Errorf("tingwu submit: %w", err)
	}
	if response.Code != "" && response.Code != "0" {
		return "", fmt.Errorf("tingwu submit: api error %s: %s", response.Code, response.Message)
	}
	if response.Data.TaskID == "" {
		return "", fmt.Errorf("tingwu submit: empty task id")
	}
	return response.Data.TaskID, nil
}

// Poll fetches the current state of a task.
func (c *Client) Poll(ctx context.Context, taskID string) (TaskInfo, error) {
	var empty TaskInfo
	taskID = strings.TrimSpace(taskID)
	if taskID == "" {
		return empty, fmt.Errorf("tingwu poll: task id required")
	}

	var response struct {
		Code    string `json:"Code"`
		Message string `json:"Message"`
		Data    struct {
			TaskID       string            `json:"TaskId"`
			TaskStatus   string            `json:"TaskStatus"`
			ErrorCode    string            `json:"ErrorCode"`
			ErrorMessage string            `json:"ErrorMessage"`
			Result       map[string]string `json:"Result"`
		} `json:"Data"`
	}
	if err := c.signedJSON(ctx, http.MethodGet, "/openapi/tingwu/v2/tasks/"+taskID, nil, &response); err != nil {
		return empty, fmt.Errorf("tingwu poll: %w", err)
	}
	if response.Code != "" && response.Code != "0" {
		return empty, fmt.Errorf("tingwu poll: api error %s: %s", response.Code, response.Message)
	}

	info := TaskInfo{
		TaskID:       response.Data.TaskID,
		State:        strings.ToUpper(strings.TrimSpace(response.Data.TaskStatus)),
		ErrorCode:    response.Data.ErrorCode,
		ErrorMessage: response.Data.ErrorMessage,
		ResultURLs:   response.Data.Result,
	}
	if info.TaskID == "" {
		info.TaskID = taskID
	}
	return info, nil
}

// FetchTranscript downloads the result documents of a completed task and
// merges them into a Transcript.
func (c *Client) FetchTranscript(ctx context.Context, info TaskInfo) (Transcript, error) {
	var transcript Transcript
	if info.State != StateCompleted {
		return transcript, fmt.Errorf("tingwu transcript: task %s not completed (state %s)", info.TaskID, info.State)
	}

	if url := info.ResultURLs["Transcription"]; url != "" {
		if err := c.mergeTranscription(ctx, url, &transcript); err != nil {
			return Transcript{}, err
		}
	}
	if len(transcript.Sentences) == 0 {
		return Transcript{}, fmt.Errorf("tingwu transcript: task %s produced no sentences", info.TaskID)
	}
	if url := info.ResultURLs["AutoChapters"]; url != "" {
		if err := c.mergeChapters(ctx, url, &transcript); err != nil {
			return Transcript{}, err
		}
	}
	if url := info.ResultURLs["Summarization"]; url != "" {
		if err := c.mergeSummarization(ctx, url, &transcript); err != nil {
			return Transcript{}, err
		}
	}

	if transcript.DurationSeconds == 0 && len(transcript.Sentences) > 0 {
		last := transcript.Sentences[len(transcript.Sentences)-1]
		transcript.DurationSeconds = (last.EndMs + 999) / 1000
	}
	return transcript, nil
}

func (c *Client) mergeTranscription(ctx context.Context, url string, transcript *Transcript) error {
	var payload struct {
		Transcription struct {
			AudioInfo struct {
				Duration int `json:"Duration"`
			} `json:"AudioInfo"`
			Paragraphs []struct {
				SpeakerID string `json:"SpeakerId"`
				Words     []struct {
					Start int    `json:"Start"`
					End   int    `json:"End"`
					Text  string `json:"Text"`
				} `json:"Words"`
			} `json:"Paragraphs"`
		} `json:"Transcription"`
	}
	if err := c.fetchJSON(ctx, url, &payload); err != nil {
		return fmt.Errorf("tingwu transcript: fetch transcription: %w", err)
	}

	for _, paragraph := range payload.Transcription.Paragraphs {
		if len(paragraph.Words) == 0 {
			continue
		}
		var text strings.Builder
		for _, word := range paragraph.Words {
			text.WriteString(word.Text)
		}
		sentence := Sentence{
			SpeakerID: paragraph.SpeakerID,
			StartMs:   paragraph.Words[0].Start,
			EndMs:     paragraph.Words[len(paragraph.Words)-1].End,
			Text:      strings.TrimSpace(text.String()),
		}
		if sentence.Text != "" {
			transcript.Sentences = append(transcript.Sentences, sentence)
		}
	}
	transcript.DurationSeconds = (payload.Transcription.AudioInfo.Duration + 999) / 1000
	return nil
}

func (c *Client) mergeChapters(ctx context.Context, url string, transcript *Transcript) error {
	var payload struct {
		AutoChapters []struct {
			Headline string `json:"Headline"`
			Start    int    `json:"Start"`
			End      int    `json:"End"`
			Summary  string `json:"Summary"`
		} `json:"AutoChapters"`
	}
	if err := c.fetchJSON(ctx, url, &payload); err != nil {
		return fmt.Errorf("tingwu transcript: fetch chapters: %w", err)
	}
	for _, chapter := range payload.AutoChapters {
		transcript.Chapters = append(transcript.Chapters, Chapter{
			Title:   strings.TrimSpace(chapter.Headline),
			StartMs: chapter.Start,
			EndMs:   chapter.End,
			Summary: strings.TrimSpace(chapter.Summary),
		})
	}
	return nil
}

func (c *Client) mergeSummarization(ctx context.Context, url string, transcript *Transcript) error {
	var payload struct {
		Summarization struct {
			ParagraphSummary string `json:"ParagraphSummary"`
			Keywords         []struct {
				Word string `json:"Word"`
			} `json:"Keywords"`
		} `json:"Summarization"`
	}
	if err := c.fetchJSON(ctx, url, &payload); err != nil {
		return fmt.Errorf("tingwu transcript: fetch summarization: %w", err)
	}
	transcript.Summary = strings.TrimSpace(payload.Summarization.ParagraphSummary)
	for _, keyword := range payload.Summarization.Keywords {
		if word := strings.TrimSpace(keyword.Word); word != "" {
			transcript.Keywords = append(transcript.Keywords, word)
		}
	}
	return nil
}

func (c *Client) fetchJSON(ctx context.Context, url string, target any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
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

func (c *Client) signedJSON(ctx context.Context, method, pathAndQuery string, payload any, target any) error {
	var body []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		body = encoded
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+pathAndQuery, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	contentType := ""
	contentMD5 := ""
	if len(body) > 0 {
		contentType = "application/json"
		sum := md5.Sum(body)
		contentMD5 = base64.StdEncoding.EncodeToString(sum[:])
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Content-MD5", contentMD5)
	}
	accept := "application/json"
	date := c.now().UTC().Format(http.TimeFormat)
	req.Header.Set("Accept", accept)
	req.Header.Set("Date", date)
	req.Header.Set("X-NLS-Token", "")

	canonical := strings.Join([]string{method, accept, contentMD5, contentType, date, pathAndQuery}, "\n")
	mac := hmac.New(sha1.New, []byte(c.cfg.AccessKeySecret))
	mac.Write([]byte(canonical))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	req.Header.Set("Authorization", "Dataplus "+c.cfg.AccessKeyID+":"+signature)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http error: %w", err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
