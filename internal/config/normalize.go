package config

import (
	"fmt"
	"os"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFeishu()
	c.normalizeTingwu()
	c.normalizeLLM()
	c.normalizeSummarize()
	c.normalizeWorkflow()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if c.Paths.NotesDir, err = expandPath(c.Paths.NotesDir); err != nil {
		return fmt.Errorf("paths.notes_dir: %w", err)
	}
	if c.Paths.LogDir, err = expandPath(c.Paths.LogDir); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	c.Paths.MirrorDir = strings.TrimSpace(c.Paths.MirrorDir)
	if c.Paths.MirrorDir != "" {
		if c.Paths.MirrorDir, err = expandPath(c.Paths.MirrorDir); err != nil {
			return fmt.Errorf("paths.mirror_dir: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeFeishu() {
	c.Feishu.AppID = strings.TrimSpace(c.Feishu.AppID)
	if c.Feishu.AppID == "" {
		if value, ok := os.LookupEnv("FEISHU_APP_ID"); ok {
			c.Feishu.AppID = strings.TrimSpace(value)
		}
	}
	c.Feishu.AppSecret = strings.TrimSpace(c.Feishu.AppSecret)
	if c.Feishu.AppSecret == "" {
		if value, ok := os.LookupEnv("FEISHU_APP_SECRET"); ok {
			c.Feishu.AppSecret = strings.TrimSpace(value)
		}
	}
	c.Feishu.BaseURL = strings.TrimRight(strings.TrimSpace(c.Feishu.BaseURL), "/")
	if c.Feishu.BaseURL == "" {
		c.Feishu.BaseURL = defaultFeishuBaseURL
	}
	c.Feishu.AppToken = strings.TrimSpace(c.Feishu.AppToken)
	c.Feishu.TableID = strings.TrimSpace(c.Feishu.TableID)
	if c.Feishu.PageSize <= 0 {
		c.Feishu.PageSize = defaultFeishuPageSize
	}
	fields := make([]string, 0, len(c.Feishu.LinkFields))
	seen := make(map[string]struct{}, len(c.Feishu.LinkFields))
	for _, field := range c.Feishu.LinkFields {
		trimmed := strings.TrimSpace(field)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		fields = append(fields, trimmed)
	}
	if len(fields) == 0 {
		fields = append([]string(nil), defaultLinkFields...)
	}
	c.Feishu.LinkFields = fields
}

func (c *Config) normalizeTingwu() {
	c.Tingwu.AccessKeyID = strings.TrimSpace(c.Tingwu.AccessKeyID)
	if c.Tingwu.AccessKeyID == "" {
		if value, ok := os.LookupEnv("TINGWU_ACCESS_KEY_ID"); ok {
			c.Tingwu.AccessKeyID = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("ALIBABA_CLOUD_ACCESS_KEY_ID"); ok {
			c.Tingwu.AccessKeyID = strings.TrimSpace(value)
		}
	}
	c.Tingwu.AccessKeySecret = strings.TrimSpace(c.Tingwu.AccessKeySecret)
	if c.Tingwu.AccessKeySecret == "" {
		if value, ok := os.LookupEnv("TINGWU_ACCESS_KEY_SECRET"); ok {
			c.Tingwu.AccessKeySecret = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("ALIBABA_CLOUD_ACCESS_KEY_SECRET"); ok {
			c.Tingwu.AccessKeySecret = strings.TrimSpace(value)
		}
	}
	c.Tingwu.AppKey = strings.TrimSpace(c.Tingwu.AppKey)
	c.Tingwu.BaseURL = strings.TrimRight(strings.TrimSpace(c.Tingwu.BaseURL), "/")
	if c.Tingwu.BaseURL == "" {
		c.Tingwu.BaseURL = defaultTingwuBaseURL
	}
}

func (c *Config) normalizeLLM() {
	c.LLM.APIKey = strings.TrimSpace(c.LLM.APIKey)
	if c.LLM.APIKey == "" {
		if value, ok := os.LookupEnv("OPENROUTER_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		} else if value, ok := os.LookupEnv("DEEPSEEK_API_KEY"); ok {
			c.LLM.APIKey = strings.TrimSpace(value)
		}
	}
	c.LLM.BaseURL = strings.TrimSpace(c.LLM.BaseURL)
	if c.LLM.BaseURL == "" {
		c.LLM.BaseURL = defaultLLMBaseURL
	}
	c.LLM.Model = strings.TrimSpace(c.LLM.Model)
	if c.LLM.Model == "" {
		c.LLM.Model = defaultLLMModel
	}
	c.LLM.Referer = strings.TrimSpace(c.LLM.Referer)
	c.LLM.Title = strings.TrimSpace(c.LLM.Title)
	if c.LLM.TimeoutSeconds <= 0 {
		c.LLM.TimeoutSeconds = defaultLLMTimeoutSeconds
	}
}

func (c *Config) normalizeSummarize() {
	if c.Summarize.SegmentSeconds <= 0 {
		c.Summarize.SegmentSeconds = defaultSegmentSeconds
	}
	if c.Summarize.MinSegments <= 0 {
		c.Summarize.MinSegments = defaultMinSegments
	}
	if c.Summarize.TargetInsights <= 0 {
		c.Summarize.TargetInsights = defaultTargetInsights
	}
}

func (c *Config) normalizeWorkflow() {
	if c.Workflow.PollInterval <= 0 {
		c.Workflow.PollInterval = defaultPollInterval
	}
	if c.Workflow.ErrorRetryInterval <= 0 {
		c.Workflow.ErrorRetryInterval = defaultErrorRetryInterval
	}
	if c.Workflow.TranscribePollInterval <= 0 {
		c.Workflow.TranscribePollInterval = defaultTranscribePollInterval
	}
	if c.Workflow.TranscribeTimeout <= 0 {
		c.Workflow.TranscribeTimeout = defaultTranscribeTimeout
	}
	if c.Workflow.PollRetryAttempts <= 0 {
		c.Workflow.PollRetryAttempts = defaultPollRetryAttempts
	}
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "", "console":
		c.Logging.Format = "console"
	case "json":
	default:
		c.Logging.Format = "console"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
	if c.Logging.RetentionDays < 0 {
		c.Logging.RetentionDays = 0
	}
}
