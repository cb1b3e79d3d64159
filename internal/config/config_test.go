package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"podnotes/internal/config"
)

func writeConfig(t *testing.T, dir string, mutate func(*map[string]any)) string {
	t.Helper()
	payload := map[string]any{
		"feishu": map[string]any{
			"app_id":     "cli_test",
			"app_secret": "secret",
			"app_token":  "bascnTest",
			"table_id":   "tblTest",
		},
		"tingwu": map[string]any{
			"access_key_id":     "LTAI_test",
			"access_key_secret": "tingwu-secret",
			"app_key":           "app-key",
		},
		"llm": map[string]any{
			"api_key": "sk-test",
		},
	}
	if mutate != nil {
		mutate(&payload)
	}
	data, err := toml.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	path := filepath.Join(dir, "podnotes.toml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadExpandsPathsAndAppliesDefaults(t *testing.T) {
	tempHome := t.TempDir()
	t.Setenv("HOME", tempHome)

	path := writeConfig(t, t.TempDir(), nil)
	cfg, resolved, exists, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if !exists {
		t.Fatal("expected config file to exist")
	}
	if resolved != path {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}

	wantNotes := filepath.Join(tempHome, ".local", "share", "podnotes", "notes")
	if cfg.Paths.NotesDir != wantNotes {
		t.Fatalf("unexpected notes dir: got %q want %q", cfg.Paths.NotesDir, wantNotes)
	}
	if cfg.Paths.MirrorDir != "" {
		t.Fatalf("expected empty mirror dir by default, got %q", cfg.Paths.MirrorDir)
	}
	if cfg.Feishu.BaseURL != "https://open.feishu.cn" {
		t.Fatalf("unexpected feishu base url: %q", cfg.Feishu.BaseURL)
	}
	if cfg.Feishu.PageSize != 100 {
		t.Fatalf("unexpected feishu page size: %d", cfg.Feishu.PageSize)
	}
	if len(cfg.Feishu.LinkFields) == 0 || cfg.Feishu.LinkFields[0] != "链接" {
		t.Fatalf("unexpected link fields: %v", cfg.Feishu.LinkFields)
	}
	if cfg.Workflow.PollInterval != config.Default().Workflow.PollInterval {
		t.Fatalf("unexpected poll interval: %d", cfg.Workflow.PollInterval)
	}
	if cfg.Summarize.MinSegments != 5 {
		t.Fatalf("unexpected min segments: %d", cfg.Summarize.MinSegments)
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("unexpected logging format: %q", cfg.Logging.Format)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories failed: %v", err)
	}
	for _, dir := range []string{cfg.Paths.NotesDir, cfg.Paths.LogDir} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Fatalf("expected directory %q to exist: %v", dir, err)
		}
		if !info.IsDir() {
			t.Fatalf("expected %q to be directory", dir)
		}
	}
	if cfg.LedgerPath() != filepath.Join(cfg.Paths.LogDir, "ledger.db") {
		t.Fatalf("unexpected ledger path: %q", cfg.LedgerPath())
	}
}

func TestLoadHonoursEnvironmentFallbacks(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("FEISHU_APP_SECRET", "env-secret")
	t.Setenv("ALIBABA_CLOUD_ACCESS_KEY_ID", "env-ak")
	t.Setenv("ALIBABA_CLOUD_ACCESS_KEY_SECRET", "env-sk")
	t.Setenv("OPENROUTER_API_KEY", "env-llm")

	path := writeConfig(t, t.TempDir(), func(payload *map[string]any) {
		(*payload)["feishu"] = map[string]any{
			"app_id":    "cli_test",
			"app_token": "bascnTest",
			"table_id":  "tblTest",
		}
		(*payload)["tingwu"] = map[string]any{
			"app_key": "app-key",
		}
		delete(*payload, "llm")
	})

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Feishu.AppSecret != "env-secret" {
		t.Fatalf("expected feishu secret from env, got %q", cfg.Feishu.AppSecret)
	}
	if cfg.Tingwu.AccessKeyID != "env-ak" || cfg.Tingwu.AccessKeySecret != "env-sk" {
		t.Fatalf("expected tingwu credentials from env, got %q/%q", cfg.Tingwu.AccessKeyID, cfg.Tingwu.AccessKeySecret)
	}
	if cfg.LLM.APIKey != "env-llm" {
		t.Fatalf("expected llm key from env, got %q", cfg.LLM.APIKey)
	}
}

func TestLoadRejectsMissingCredentials(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, t.TempDir(), func(payload *map[string]any) {
		(*payload)["feishu"] = map[string]any{
			"app_id":     "cli_test",
			"app_secret": "secret",
		}
	})

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error for missing app token")
	}
	if !strings.Contains(err.Error(), "feishu.app_token") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadRejectsBadWorkflowTimings(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, t.TempDir(), func(payload *map[string]any) {
		(*payload)["workflow"] = map[string]any{
			"transcribe_poll_interval": 120,
			"transcribe_timeout":       60,
		}
	})

	_, _, _, err := config.Load(path)
	if err == nil {
		t.Fatal("expected validation error for transcribe timings")
	}
	if !strings.Contains(err.Error(), "transcribe_timeout") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLoadNormalizesLinkFieldsAndLogging(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	path := writeConfig(t, t.TempDir(), func(payload *map[string]any) {
		feishu := (*payload)["feishu"].(map[string]any)
		feishu["link_fields"] = []string{" url ", "", "url", "link"}
		(*payload)["logging"] = map[string]any{
			"format": "XML",
			"level":  "DEBUG",
		}
	})

	cfg, _, _, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	want := []string{"url", "link"}
	if len(cfg.Feishu.LinkFields) != len(want) {
		t.Fatalf("unexpected link fields: %v", cfg.Feishu.LinkFields)
	}
	for i, field := range want {
		if cfg.Feishu.LinkFields[i] != field {
			t.Fatalf("unexpected link fields: %v", cfg.Feishu.LinkFields)
		}
	}
	if cfg.Logging.Format != "console" {
		t.Fatalf("expected unknown format to fall back to console, got %q", cfg.Logging.Format)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected lowercased level, got %q", cfg.Logging.Level)
	}
}

func TestLoadMissingCustomPathUsesDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	missing := filepath.Join(t.TempDir(), "absent.toml")
	_, resolved, exists, err := config.Load(missing)
	if exists {
		t.Fatal("expected missing config to be reported as absent")
	}
	if resolved != missing {
		t.Fatalf("unexpected resolved path: %q", resolved)
	}
	// Defaults carry no credentials, so validation is expected to fail.
	if err == nil {
		t.Fatal("expected validation error for credential-free defaults")
	}
}

func TestCreateSample(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.toml")
	if err := config.CreateSample(path); err != nil {
		t.Fatalf("CreateSample failed: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	var parsed config.Config
	if err := toml.Unmarshal(data, &parsed); err != nil {
		t.Fatalf("sample config does not parse: %v", err)
	}
	if !strings.Contains(string(data), "[feishu]") {
		t.Fatal("expected sample to document the feishu section")
	}
}

func TestDefaultWorkflowTimings(t *testing.T) {
	workflow := config.Default().Workflow
	if workflow.PollInterval != 60 {
		t.Fatalf("unexpected default poll interval: %d", workflow.PollInterval)
	}
	if workflow.TranscribePollInterval != 30 {
		t.Fatalf("unexpected default transcribe poll interval: %d", workflow.TranscribePollInterval)
	}
	if workflow.TranscribeTimeout != 1800 {
		t.Fatalf("unexpected default transcribe timeout: %d", workflow.TranscribeTimeout)
	}
	if workflow.ErrorRetryInterval != 300 {
		t.Fatalf("unexpected default error retry interval: %d", workflow.ErrorRetryInterval)
	}
	if workflow.PollRetryAttempts != 3 {
		t.Fatalf("unexpected default poll retry attempts: %d", workflow.PollRetryAttempts)
	}
}
