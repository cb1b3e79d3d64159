// Package testsupport provides helpers shared by package tests: temp-backed
// configs, ledger stores, and canned episodes.
package testsupport

import (
	"path/filepath"
	"testing"

	"podnotes/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with unique temp directories per test.
// It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.NotesDir = filepath.Join(base, "notes")
	cfg.Paths.MirrorDir = filepath.Join(base, "mirror")
	cfg.Paths.LogDir = filepath.Join(base, "logs")
	cfg.Feishu.AppID = "cli_test"
	cfg.Feishu.AppSecret = "test-secret"
	cfg.Feishu.AppToken = "bascnTest"
	cfg.Feishu.TableID = "tblTest"
	cfg.Tingwu.AccessKeyID = "test-ak"
	cfg.Tingwu.AccessKeySecret = "test-sk"
	cfg.Tingwu.AppKey = "test-app"
	cfg.LLM.APIKey = "test-llm"

	for _, opt := range opts {
		opt(&cfg)
	}

	return &cfg
}

// WithMirrorDir overrides the mirror directory on the test config.
func WithMirrorDir(dir string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Paths.MirrorDir = dir
	}
}

// BaseDir returns the root temp directory backing the generated config.
func BaseDir(cfg *config.Config) string {
	return filepath.Dir(cfg.Paths.NotesDir)
}
