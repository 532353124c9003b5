package domain

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	chatSerialMaxLength = 20
	chatSerialFallback  = "NO-SN"
	isoLayout           = "2006-01-02T15:04:05.000Z07:00"
)

// NewID returns a collision-resistant identifier. It prefers a UUID and
// falls back to a prefixed timestamp-random id.
func NewID(prefix string) string {
	if id, err := uuid.NewRandom(); err == nil {
		return id.String()
	}
	return fmt.Sprintf("%s-%x-%08x", prefix, time.Now().UnixMilli(), rand.Uint32())
}

// SanitizeChatSerial restricts a serial number to the charset allowed in
// chat ids: uppercase alphanumerics and dashes, at most 20 characters.
func SanitizeChatSerial(serial string) string {
	upper := strings.ToUpper(strings.TrimSpace(serial))
	var b strings.Builder
	for _, r := range upper {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if len(cleaned) > chatSerialMaxLength {
		cleaned = cleaned[:chatSerialMaxLength]
	}
	return cleaned
}

// NewChatID derives a session id from the machine serial number and a Unix
// timestamp. The id is deterministic for a given serial and instant, which
// keeps it stable across reloads once persisted.
func NewChatID(serial string, now time.Time) string {
	sanitized := SanitizeChatSerial(serial)
	if sanitized == "" {
		sanitized = chatSerialFallback
	}
	unix := now.Unix()
	if unix < 0 {
		unix = 0
	}
	return fmt.Sprintf("%s-%d", sanitized, unix)
}

// NowISO returns the current time as an ISO-8601 UTC string.
func NowISO() string {
	return time.Now().UTC().Format(isoLayout)
}

// FormatISO renders a time as an ISO-8601 UTC string.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}
