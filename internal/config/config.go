package config

import "fmt"

// ConfigError represents a configuration error.
type ConfigError struct {
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s", e.Message)
}

// Defaults returns a Config with sensible defaults applied.
func Defaults() Config {
	temperature := 0.2
	citations := true
	return Config{
		Webhook: WebhookConfig{
			AuthHeader:     "X-AIMY-Token",
			Temperature:    &temperature,
			Citations:      &citations,
			TimeoutSeconds: 15,
			Attempts:       3,
		},
		Ingest: IngestConfig{
			MaxFileSizeMB: 15,
		},
		Chat: ChatConfig{
			HistoryLimit:    12,
			MaxPromptLength: 4000,
			MaxMessages:     50,
		},
		Logging: LoggingConfig{
			Level:        "info",
			ConsoleStyle: "pretty",
		},
	}
}
