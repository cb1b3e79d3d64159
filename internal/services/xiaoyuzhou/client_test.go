package xiaoyuzhou_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"podnotes/internal/services/xiaoyuzhou"
)

const nextDataPage = `<!DOCTYPE html>
<html><head><title>page</title></head><body>
<script id="__NEXT_DATA__" type="application/json">
{"props":{"pageProps":{"episode":{
  "title":"深入聊聊分布式系统",
  "duration":5400,
  "podcast":{"title":"某某电台"},
  "enclosure":{"url":"https://media.example.com/audio/abc123.m4a"}
}}}}
</script>
</body></html>`

const metaFallbackPage = `<!DOCTYPE html>
<html><head>
<meta property="og:title" content="Fallback Episode" />
<meta property="og:audio" content="https://media.example.com/fallback.mp3" />
</head><body>no next data here</body></html>`

const rawURLPage = `<!DOCTYPE html>
<html><head></head><body>
<div data-player='{"src":"https://media.example.com/raw/audio-xyz.m4a?sign=abc"}'></div>
</body></html>`

func newPageServer(t *testing.T, html string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasPrefix(r.URL.Path, "/episode/") {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, html)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestEpisodeID(t *testing.T) {
	id, ok := xiaoyuzhou.EpisodeID("https://www.xiaoyuzhoufm.com/episode/64f1a2b3c4d5e6f7a8b9c0d1")
	if !ok || id != "64f1a2b3c4d5e6f7a8b9c0d1" {
		t.Fatalf("unexpected id: %q %v", id, ok)
	}
	if _, ok := xiaoyuzhou.EpisodeID("https://www.xiaoyuzhoufm.com/podcast/123"); ok {
		t.Fatal("expected non-episode url to be rejected")
	}
}

func TestResolveReadsNextData(t *testing.T) {
	server := newPageServer(t, nextDataPage)
	client := xiaoyuzhou.NewClient(xiaoyuzhou.WithBaseURL(server.URL))

	episode, err := client.Resolve(context.Background(), "https://www.xiaoyuzhoufm.com/episode/abc123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if episode.ID != "abc123" {
		t.Fatalf("unexpected id: %q", episode.ID)
	}
	if episode.Title != "深入聊聊分布式系统" {
		t.Fatalf("unexpected title: %q", episode.Title)
	}
	if episode.PodcastName != "某某电台" {
		t.Fatalf("unexpected podcast: %q", episode.PodcastName)
	}
	if episode.AudioURL != "https://media.example.com/audio/abc123.m4a" {
		t.Fatalf("unexpected audio url: %q", episode.AudioURL)
	}
	if episode.DurationSeconds != 5400 {
		t.Fatalf("unexpected duration: %d", episode.DurationSeconds)
	}
}

func TestResolveFallsBackToMetaTags(t *testing.T) {
	server := newPageServer(t, metaFallbackPage)
	client := xiaoyuzhou.NewClient(xiaoyuzhou.WithBaseURL(server.URL))

	episode, err := client.Resolve(context.Background(), "https://www.xiaoyuzhoufm.com/episode/fallback1")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if episode.Title != "Fallback Episode" {
		t.Fatalf("unexpected title: %q", episode.Title)
	}
	if episode.AudioURL != "https://media.example.com/fallback.mp3" {
		t.Fatalf("unexpected audio url: %q", episode.AudioURL)
	}
}

func TestResolveFallsBackToRawAudioURL(t *testing.T) {
	server := newPageServer(t, rawURLPage)
	client := xiaoyuzhou.NewClient(xiaoyuzhou.WithBaseURL(server.URL))

	episode, err := client.Resolve(context.Background(), "https://www.xiaoyuzhoufm.com/episode/raw99")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if !strings.HasPrefix(episode.AudioURL, "https://media.example.com/raw/audio-xyz.m4a") {
		t.Fatalf("unexpected audio url: %q", episode.AudioURL)
	}
}

func TestResolveRejectsNonEpisodeURL(t *testing.T) {
	client := xiaoyuzhou.NewClient()
	if _, err := client.Resolve(context.Background(), "https://www.xiaoyuzhoufm.com/podcast/999"); err == nil {
		t.Fatal("expected error for non-episode url")
	}
}

func TestResolveFailsWhenNoAudioFound(t *testing.T) {
	server := newPageServer(t, "<html><body>nothing here</body></html>")
	client := xiaoyuzhou.NewClient(xiaoyuzhou.WithBaseURL(server.URL))

	_, err := client.Resolve(context.Background(), "https://www.xiaoyuzhoufm.com/episode/empty1")
	if err == nil {
		t.Fatal("expected error when page has no audio url")
	}
	if !strings.Contains(err.Error(), "no audio url") {
		t.Fatalf("unexpected error: %v", err)
	}
}
