package config

import (
	"errors"
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateFeishu(); err != nil {
		return err
	}
	if err := c.validateTingwu(); err != nil {
		return err
	}
	if err := c.validateLLM(); err != nil {
		return err
	}
	if err := c.validateWorkflow(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateFeishu() error {
	if c.Feishu.AppID == "" {
		return errors.New("feishu.app_id is required (create a config with 'podnotes config init')")
	}
	if c.Feishu.AppSecret == "" {
		return errors.New("feishu.app_secret is required. Set FEISHU_APP_SECRET env var or edit the config file")
	}
	if c.Feishu.AppToken == "" {
		return errors.New("feishu.app_token must be set to the bitable app token")
	}
	if c.Feishu.TableID == "" {
		return errors.New("feishu.table_id must be set")
	}
	if c.Feishu.PageSize > 500 {
		return errors.New("feishu.page_size must be at most 500")
	}
	return nil
}

func (c *Config) validateTingwu() error {
	if c.Tingwu.AccessKeyID == "" {
		return errors.New("tingwu.access_key_id is required (or set ALIBABA_CLOUD_ACCESS_KEY_ID)")
	}
	if c.Tingwu.AccessKeySecret == "" {
		return errors.New("tingwu.access_key_secret is required (or set ALIBABA_CLOUD_ACCESS_KEY_SECRET)")
	}
	if c.Tingwu.AppKey == "" {
		return errors.New("tingwu.app_key must be set")
	}
	return nil
}

func (c *Config) validateLLM() error {
	if c.LLM.APIKey == "" {
		return errors.New("llm.api_key is required (or set OPENROUTER_API_KEY)")
	}
	return nil
}

func (c *Config) validateWorkflow() error {
	if err := ensurePositiveMap(map[string]int{
		"workflow.poll_interval":            c.Workflow.PollInterval,
		"workflow.error_retry_interval":     c.Workflow.ErrorRetryInterval,
		"workflow.transcribe_poll_interval": c.Workflow.TranscribePollInterval,
		"workflow.transcribe_timeout":       c.Workflow.TranscribeTimeout,
		"workflow.poll_retry_attempts":      c.Workflow.PollRetryAttempts,
	}); err != nil {
		return err
	}
	if c.Workflow.TranscribeTimeout <= c.Workflow.TranscribePollInterval {
		return errors.New("workflow.transcribe_timeout must be greater than workflow.transcribe_poll_interval")
	}
	return nil
}

func (c *Config) validateNotifications() error {
	if c.Notifications.RequestTimeout <= 0 {
		return errors.New("notifications.request_timeout must be positive")
	}
	return nil
}

func ensurePositiveMap(values map[string]int) error {
	for key, value := range values {
		if value <= 0 {
			return fmt.Errorf("%s must be positive", key)
		}
	}
	return nil
}
