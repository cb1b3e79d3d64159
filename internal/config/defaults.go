package config

const (
	defaultNotesDir               = "~/.local/share/podnotes/notes"
	defaultLogDir                 = "~/.local/share/podnotes/logs"
	defaultLogRetentionDays       = 60
	defaultLogFormat              = "console"
	defaultLogLevel               = "info"
	defaultFeishuBaseURL          = "https://open.feishu.cn"
	defaultFeishuPageSize         = 100
	defaultTingwuBaseURL          = "https://tingwu.cn-beijing.aliyuncs.com"
	defaultLLMBaseURL             = "https://openrouter.ai/api/v1/chat/completions"
	defaultLLMModel               = "deepseek/deepseek-chat"
	defaultLLMTimeoutSeconds      = 120
	defaultSegmentSeconds         = 720
	defaultMinSegments            = 5
	defaultTargetInsights         = 6
	defaultPollInterval           = 60
	defaultErrorRetryInterval     = 300
	defaultTranscribePollInterval = 30
	defaultTranscribeTimeout      = 1800
	defaultPollRetryAttempts      = 3
)

// defaultLinkFields lists the bitable columns probed for an episode link, in
// priority order.
var defaultLinkFields = []string{"链接", "link", "url", "网址"}

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Paths: Paths{
			NotesDir: defaultNotesDir,
			LogDir:   defaultLogDir,
		},
		Feishu: Feishu{
			BaseURL:    defaultFeishuBaseURL,
			PageSize:   defaultFeishuPageSize,
			LinkFields: append([]string(nil), defaultLinkFields...),
		},
		Tingwu: Tingwu{
			BaseURL: defaultTingwuBaseURL,
		},
		LLM: LLM{
			BaseURL:        defaultLLMBaseURL,
			Model:          defaultLLMModel,
			TimeoutSeconds: defaultLLMTimeoutSeconds,
		},
		Summarize: Summarize{
			SegmentSeconds: defaultSegmentSeconds,
			MinSegments:    defaultMinSegments,
			TargetInsights: defaultTargetInsights,
		},
		Notifications: Notifications{
			RequestTimeout: 10,
			Discovery:      true,
			Notes:          true,
			Errors:         true,
		},
		Workflow: Workflow{
			PollInterval:           defaultPollInterval,
			ErrorRetryInterval:     defaultErrorRetryInterval,
			TranscribePollInterval: defaultTranscribePollInterval,
			TranscribeTimeout:      defaultTranscribeTimeout,
			PollRetryAttempts:      defaultPollRetryAttempts,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
