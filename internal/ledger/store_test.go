package ledger_test

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"podnotes/internal/ledger"
	"podnotes/internal/testsupport"
)

func TestOpenCreatesSchemaAndClaimsEpisodes(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	episode, err := store.NewEpisode(ctx, "id-1", "rec-1", "https://example.com/episode/abc", "Episode One")
	if err != nil {
		t.Fatalf("NewEpisode failed: %v", err)
	}
	if episode.ID == 0 {
		t.Fatal("expected episode ID to be assigned")
	}
	if episode.Status != ledger.StatusDiscovered {
		t.Fatalf("expected discovered status, got %s", episode.Status)
	}

	fetched, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched == nil || fetched.Title != "Episode One" {
		t.Fatalf("unexpected fetched episode: %#v", fetched)
	}

	found, err := store.FindByIdentity(ctx, "id-1")
	if err != nil {
		t.Fatalf("FindByIdentity failed: %v", err)
	}
	if found == nil || found.ID != episode.ID {
		t.Fatalf("expected to find claimed episode, got %#v", found)
	}
}

func TestNewEpisodeRequiresIdentity(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	if _, err := store.NewEpisode(context.Background(), " ", "rec", "https://example.com", "No Identity"); err == nil {
		t.Fatal("expected error when identity missing")
	}
}

func TestIdentityClaimIsExclusive(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	if _, err := store.NewEpisode(ctx, "dup", "rec-1", "https://example.com/a", "First"); err != nil {
		t.Fatalf("NewEpisode failed: %v", err)
	}
	if _, err := store.NewEpisode(ctx, "dup", "rec-2", "https://example.com/a", "Second"); err == nil {
		t.Fatal("expected duplicate identity claim to fail")
	}

	known, err := store.IsKnown(ctx, "dup")
	if err != nil {
		t.Fatalf("IsKnown failed: %v", err)
	}
	if !known {
		t.Fatal("expected identity to be known")
	}
	known, err = store.IsKnown(ctx, "never-seen")
	if err != nil {
		t.Fatalf("IsKnown failed: %v", err)
	}
	if known {
		t.Fatal("expected unseen identity to be unknown")
	}
}

func TestClaimSurvivesReopen(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	ctx := context.Background()

	store, err := ledger.Open(cfg)
	if err != nil {
		t.Fatalf("ledger.Open: %v", err)
	}
	episode, err := store.NewEpisode(ctx, "persist", "rec", "https://example.com/p", "Persisted")
	if err != nil {
		t.Fatalf("NewEpisode failed: %v", err)
	}
	episode.Status = ledger.StatusTranscribing
	episode.TaskID = "task-123"
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	reopened := testsupport.MustOpenStore(t, cfg)
	known, err := reopened.IsKnown(ctx, "persist")
	if err != nil {
		t.Fatalf("IsKnown failed: %v", err)
	}
	if !known {
		t.Fatal("expected claim to survive reopen")
	}
	fetched, err := reopened.FindByIdentity(ctx, "persist")
	if err != nil {
		t.Fatalf("FindByIdentity failed: %v", err)
	}
	if fetched.Status != ledger.StatusTranscribing || fetched.TaskID != "task-123" {
		t.Fatalf("unexpected reopened episode: %#v", fetched)
	}
}

func TestOpenRejectsCorruptDatabase(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	if err := os.WriteFile(cfg.LedgerPath(), []byte("not a sqlite database at all"), 0o644); err != nil {
		t.Fatalf("write corrupt db: %v", err)
	}

	_, err := ledger.Open(cfg)
	if err == nil {
		t.Fatal("expected Open to fail on corrupt database")
	}
	if !errors.Is(err, ledger.ErrCorrupt) {
		t.Fatalf("expected ErrCorrupt, got %v", err)
	}
}

func TestUpdatePersistsLifecycleFields(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "life", "https://example.com/l", "Lifecycle")

	processed := time.Now().UTC().Truncate(time.Second)
	episode.Status = ledger.StatusDone
	episode.AudioURL = "https://cdn.example.com/audio.m4a"
	episode.PodcastName = "Test Show"
	episode.DurationSeconds = 3600
	episode.TranscriptJSON = `{"sentences":[]}`
	episode.SummaryJSON = `{"overview":"short"}`
	episode.NotePath = "/notes/2026-08/Lifecycle.md"
	episode.MirrorPath = "/mirror/Lifecycle.md"
	episode.Degraded = true
	episode.ProcessedAt = &processed
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != ledger.StatusDone {
		t.Fatalf("unexpected status: %s", fetched.Status)
	}
	if fetched.DurationSeconds != 3600 {
		t.Fatalf("unexpected duration: %d", fetched.DurationSeconds)
	}
	if fetched.PodcastName != "Test Show" {
		t.Fatalf("unexpected podcast name: %q", fetched.PodcastName)
	}
	if fetched.TranscriptJSON == "" || fetched.SummaryJSON == "" {
		t.Fatal("expected transcript and summary payloads to persist")
	}
	if !fetched.Degraded {
		t.Fatal("expected degraded flag to persist")
	}
	if fetched.ProcessedAt == nil || !fetched.ProcessedAt.Equal(processed) {
		t.Fatalf("unexpected processed at: %v", fetched.ProcessedAt)
	}
}

func TestMarkFailedAndRetry(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "fail", "https://example.com/f", "Failing")
	episode.SetFailed("transcription backend reported failure")
	if err := store.Update(ctx, episode); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if fetched.Status != ledger.StatusFailed {
		t.Fatalf("expected failed status, got %s", fetched.Status)
	}
	if fetched.FailedAt == nil {
		t.Fatal("expected failed timestamp")
	}
	if fetched.ProcessedAt == nil {
		t.Fatal("expected processed timestamp on terminal failure")
	}
	if fetched.ErrorMessage == "" {
		t.Fatal("expected error message")
	}

	count, err := store.RetryFailed(ctx, episode.ID)
	if err != nil {
		t.Fatalf("RetryFailed failed: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 episode retried, got %d", count)
	}
	retried, err := store.GetByID(ctx, episode.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if retried.Status != ledger.StatusDiscovered {
		t.Fatalf("expected discovered after retry, got %s", retried.Status)
	}
	if retried.ErrorMessage != "" || retried.FailedAt != nil || retried.ProcessedAt != nil {
		t.Fatalf("expected failure fields cleared: %#v", retried)
	}
}

func TestListAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		episode := testsupport.NewEpisode(t, store, fmt.Sprintf("ep-%d", i), "https://example.com", fmt.Sprintf("Episode %d", i))
		if i == 2 {
			episode.Status = ledger.StatusDone
			if err := store.Update(ctx, episode); err != nil {
				t.Fatalf("Update failed: %v", err)
			}
		}
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(all))
	}

	done, err := store.List(ctx, ledger.StatusDone)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(done) != 1 {
		t.Fatalf("expected 1 done episode, got %d", len(done))
	}

	stats, err := store.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}
	if stats[ledger.StatusDiscovered] != 2 || stats[ledger.StatusDone] != 1 {
		t.Fatalf("unexpected stats: %#v", stats)
	}

	health, err := store.Health(ctx)
	if err != nil {
		t.Fatalf("Health failed: %v", err)
	}
	if health.Total != 3 || health.Discovered != 2 || health.Done != 1 {
		t.Fatalf("unexpected health summary: %#v", health)
	}
}

func TestLastCheckTimeRoundTrip(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	initial, err := store.LastCheckTime(ctx)
	if err != nil {
		t.Fatalf("LastCheckTime failed: %v", err)
	}
	if !initial.IsZero() {
		t.Fatalf("expected zero time before first poll, got %v", initial)
	}

	at := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	if err := store.SetLastCheckTime(ctx, at); err != nil {
		t.Fatalf("SetLastCheckTime failed: %v", err)
	}
	got, err := store.LastCheckTime(ctx)
	if err != nil {
		t.Fatalf("LastCheckTime failed: %v", err)
	}
	if !got.Equal(at) {
		t.Fatalf("expected %v, got %v", at, got)
	}

	later := at.Add(30 * time.Minute)
	if err := store.SetLastCheckTime(ctx, later); err != nil {
		t.Fatalf("SetLastCheckTime failed: %v", err)
	}
	got, err = store.LastCheckTime(ctx)
	if err != nil {
		t.Fatalf("LastCheckTime failed: %v", err)
	}
	if !got.Equal(later) {
		t.Fatalf("expected %v, got %v", later, got)
	}
}

func TestParseStatus(t *testing.T) {
	if status, ok := ledger.ParseStatus(" Transcribing "); !ok || status != ledger.StatusTranscribing {
		t.Fatalf("unexpected parse result: %v %v", status, ok)
	}
	if _, ok := ledger.ParseStatus("bogus"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestRemoveSurrendersClaim(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	ctx := context.Background()
	episode := testsupport.NewEpisode(t, store, "gone", "https://example.com/g", "Removable")

	removed, err := store.Remove(ctx, episode.ID)
	if err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if !removed {
		t.Fatal("expected removal to report success")
	}
	known, err := store.IsKnown(ctx, "gone")
	if err != nil {
		t.Fatalf("IsKnown failed: %v", err)
	}
	if known {
		t.Fatal("expected identity to be reclaimable after removal")
	}
}
