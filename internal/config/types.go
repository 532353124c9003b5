package config

// Config is the root configuration for AIMY.
type Config struct {
	Webhook WebhookConfig `yaml:"webhook,omitempty"`
	Ingest  IngestConfig  `yaml:"ingest,omitempty"`
	Chat    ChatConfig    `yaml:"chat,omitempty"`
	Storage StorageConfig `yaml:"storage,omitempty"`
	Logging LoggingConfig `yaml:"logging,omitempty"`
}

// WebhookConfig points at the diagnosis webhook. An empty URL switches the
// client into demo mode.
type WebhookConfig struct {
	URL            string   `yaml:"url,omitempty"`
	AuthHeader     string   `yaml:"authHeader,omitempty"` // header name, default X-AIMY-Token
	AuthValue      string   `yaml:"authValue,omitempty"`  // supports ${ENV_VAR}
	Temperature    *float64 `yaml:"temperature,omitempty"`
	Citations      *bool    `yaml:"citations,omitempty"`
	TimeoutSeconds int      `yaml:"timeoutSeconds,omitempty"` // per attempt
	Attempts       int      `yaml:"attempts,omitempty"`
}

// IngestConfig points at the document ingest service.
type IngestConfig struct {
	BaseURL       string `yaml:"baseUrl,omitempty"`
	MaxFileSizeMB int    `yaml:"maxFileSizeMB,omitempty"`
}

// ChatConfig tunes the conversation engine.
type ChatConfig struct {
	HistoryLimit    int `yaml:"historyLimit,omitempty"`    // messages sent per request
	MaxPromptLength int `yaml:"maxPromptLength,omitempty"` // characters
	MaxMessages     int `yaml:"maxMessages,omitempty"`     // live message cap
}

// StorageConfig locates the SQLite database.
type StorageConfig struct {
	Path string `yaml:"path,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"` // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	File         string `yaml:"file,omitempty"`
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
