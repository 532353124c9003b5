package config

import (
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strings"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// DefaultAuthHeader is used when the configured header name is empty or
// contains characters that are not valid in an HTTP header name.
const DefaultAuthHeader = "X-AIMY-Token"

var headerNamePattern = regexp.MustCompile(`[^A-Z0-9-]`)

var localHosts = map[string]bool{
	"localhost": true,
	"127.0.0.1": true,
	"::1":       true,
}

// NormalizeWebhookURL validates and canonicalizes a webhook endpoint.
// Accepted forms: empty (demo mode), a root-relative path, an https URL,
// or an http URL pointing at the local host.
func NormalizeWebhookURL(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", nil
	}
	if strings.HasPrefix(trimmed, "/") {
		return trimmed, nil
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", &ConfigError{Message: "invalid webhook url: " + err.Error()}
	}
	switch u.Scheme {
	case "https":
		return u.String(), nil
	case "http":
		if localHosts[u.Hostname()] {
			return u.String(), nil
		}
		return "", &ConfigError{Message: "http webhook urls are only allowed for localhost"}
	default:
		return "", &ConfigError{Message: "webhook url must use http(s) or be a relative path"}
	}
}

// SanitizeHeaderName returns a safe HTTP header name: uppercased, with
// characters outside [A-Z0-9-] removed. Falls back to DefaultAuthHeader
// when nothing remains.
func SanitizeHeaderName(raw string) string {
	upper := strings.ToUpper(strings.TrimSpace(raw))
	cleaned := headerNamePattern.ReplaceAllString(upper, "")
	if cleaned == "" {
		return DefaultAuthHeader
	}
	return cleaned
}

// SanitizeHeaderValue strips characters that would allow header injection.
func SanitizeHeaderValue(raw string) string {
	value := strings.NewReplacer("\r", "", "\n", "").Replace(raw)
	return strings.TrimSpace(value)
}

// Validate checks a Config for issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if _, err := NormalizeWebhookURL(cfg.Webhook.URL); err != nil {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.url",
			Message: err.Error(),
		})
	}
	if cfg.Webhook.Temperature != nil {
		t := *cfg.Webhook.Temperature
		if t < 0 || t > 2 {
			issues = append(issues, ValidationIssue{
				Path:    "webhook.temperature",
				Message: fmt.Sprintf("must be between 0 and 2, got %v", t),
			})
		}
	}
	if cfg.Webhook.TimeoutSeconds < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.timeoutSeconds",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Webhook.TimeoutSeconds),
		})
	}
	if cfg.Webhook.Attempts < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "webhook.attempts",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Webhook.Attempts),
		})
	}

	if cfg.Ingest.BaseURL != "" {
		if u, err := url.Parse(cfg.Ingest.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			issues = append(issues, ValidationIssue{
				Path:    "ingest.baseUrl",
				Message: fmt.Sprintf("must be an http(s) url, got %q", cfg.Ingest.BaseURL),
			})
		}
	}
	if cfg.Ingest.MaxFileSizeMB < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "ingest.maxFileSizeMB",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Ingest.MaxFileSizeMB),
		})
	}

	if cfg.Chat.HistoryLimit < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.historyLimit",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Chat.HistoryLimit),
		})
	}
	if cfg.Chat.MaxPromptLength < 0 {
		issues = append(issues, ValidationIssue{
			Path:    "chat.maxPromptLength",
			Message: fmt.Sprintf("must be positive, got %d", cfg.Chat.MaxPromptLength),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	return issues
}
