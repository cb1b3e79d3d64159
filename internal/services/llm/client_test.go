package llm_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"podnotes/internal/services/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *llm.Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return llm.NewClient(
		llm.Config{APIKey: "test-key", BaseURL: server.URL, Model: "test-model"},
		llm.WithRetryBackoff(time.Millisecond, 2*time.Millisecond),
		llm.WithSleeper(func(time.Duration) {}),
	)
}

func completionBody(content string) string {
	payload := map[string]any{
		"choices": []map[string]any{
			{"message": map[string]any{"content": content}, "finish_reason": "stop"},
		},
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}

func TestCompleteJSONSendsAuthAndReturnsContent(t *testing.T) {
	var gotAuth string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, completionBody(`{"ok":true}`))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if content != `{"ok":true}` {
		t.Fatalf("unexpected content: %q", content)
	}
	if gotAuth != "Bearer test-key" {
		t.Fatalf("unexpected auth header: %q", gotAuth)
	}
}

func TestCompleteJSONRetriesRateLimits(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.Header().Set("Retry-After", "1")
			http.Error(w, "slow down", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, completionBody(`{"done":true}`))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", calls)
	}
	if content == "" {
		t.Fatal("expected content after retries")
	}
}

func TestCompleteJSONFailsFastOnBadRequest(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "bad model", http.StatusBadRequest)
	})

	_, err := client.CompleteJSON(context.Background(), "system", "user")
	if err == nil {
		t.Fatal("expected error for 400 response")
	}
	if calls != 1 {
		t.Fatalf("expected no retries for 400, got %d attempts", calls)
	}
}

func TestCompleteJSONRetriesEmptyContent(t *testing.T) {
	var calls int
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			fmt.Fprint(w, completionBody(""))
			return
		}
		fmt.Fprint(w, completionBody(`{"v":1}`))
	})

	content, err := client.CompleteJSON(context.Background(), "system", "user")
	if err != nil {
		t.Fatalf("CompleteJSON failed: %v", err)
	}
	if calls != 2 {
		t.Fatalf("expected retry after empty content, got %d attempts", calls)
	}
	if content != `{"v":1}` {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestDecodeLLMJSONHandlesCodeFences(t *testing.T) {
	var target struct {
		Value string `json:"value"`
	}
	fenced := "```json\n{\"value\": \"hello\"}\n```"
	if err := llm.DecodeLLMJSON(fenced, &target); err != nil {
		t.Fatalf("DecodeLLMJSON failed: %v", err)
	}
	if target.Value != "hello" {
		t.Fatalf("unexpected value: %q", target.Value)
	}

	prose := "Here is the JSON you asked for: {\"value\": \"embedded\"} hope it helps"
	if err := llm.DecodeLLMJSON(prose, &target); err != nil {
		t.Fatalf("DecodeLLMJSON failed on embedded object: %v", err)
	}
	if target.Value != "embedded" {
		t.Fatalf("unexpected value: %q", target.Value)
	}
}

func TestSegmentMapsTopicsToWindows(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(`{
            "overall_summary": "A conversation about distributed systems.",
            "segments": [
                {"index": 0, "topic": "Introductions"},
                {"index": 1, "topic": "Consensus protocols"},
                {"index": 7, "topic": "out of range"}
            ]
        }`))
	})

	plan, err := client.Segment(context.Background(), "transcript text", []llm.Window{
		{Index: 0, StartSeconds: 0, EndSeconds: 720},
		{Index: 1, StartSeconds: 720, EndSeconds: 1440},
	})
	if err != nil {
		t.Fatalf("Segment failed: %v", err)
	}
	if plan.OverallSummary == "" {
		t.Fatal("expected overall summary")
	}
	if len(plan.Topics) != 2 {
		t.Fatalf("expected 2 topics, got %d", len(plan.Topics))
	}
	if plan.Topics[1] != "Consensus protocols" {
		t.Fatalf("unexpected topic: %q", plan.Topics[1])
	}
}

func TestElaborateParsesDetail(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, completionBody(`{
            "summary": "They discuss Raft.",
            "quotes": ["Leaders never overwrite their logs", "  "],
            "key_points": ["Raft favors understandability"]
        }`))
	})

	detail, err := client.Elaborate(context.Background(), "Consensus", "segment transcript")
	if err != nil {
		t.Fatalf("Elaborate failed: %v", err)
	}
	if detail.Summary != "They discuss Raft." {
		t.Fatalf("unexpected summary: %q", detail.Summary)
	}
	if len(detail.Quotes) != 1 {
		t.Fatalf("expected blank quotes dropped, got %v", detail.Quotes)
	}
	if len(detail.KeyPoints) != 1 {
		t.Fatalf("unexpected key points: %v", detail.KeyPoints)
	}
}

func TestFinalizeRequestsInsightCount(t *testing.T) {
	var gotPrompt string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		for _, message := range req.Messages {
			if message.Role == "user" {
				gotPrompt = message.Content
			}
		}
		fmt.Fprint(w, completionBody(`{
            "overview": "Polished overview.",
            "insights": ["First insight", "Second insight"]
        }`))
	})

	final, err := client.Finalize(context.Background(), "draft", []string{"seg one", "seg two"}, 4)
	if err != nil {
		t.Fatalf("Finalize failed: %v", err)
	}
	if final.Overview != "Polished overview." {
		t.Fatalf("unexpected overview: %q", final.Overview)
	}
	if len(final.Insights) != 2 {
		t.Fatalf("unexpected insights: %v", final.Insights)
	}
	if !strings.Contains(gotPrompt, "Produce 4 insights") {
		t.Fatalf("expected insight count in prompt, got %q", gotPrompt)
	}
	if !strings.Contains(gotPrompt, "seg two") {
		t.Fatalf("expected segment notes in prompt, got %q", gotPrompt)
	}
}
