package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info")
	log.Info().Str("key", "value").Msg("hello")

	out := buf.String()
	assert.Contains(t, out, "hello")
	assert.Contains(t, out, `"key":"value"`)
}

func TestSilentLevelSuppressesOutput(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "silent")
	log.Error().Msg("should not appear")
	assert.Empty(t, buf.String())
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "warn")
	log.Debug().Msg("debug msg")
	log.Info().Msg("info msg")
	log.Warn().Msg("warn msg")

	out := buf.String()
	assert.NotContains(t, out, "debug msg")
	assert.NotContains(t, out, "info msg")
	assert.Contains(t, out, "warn msg")
}

func TestSubAddsSubsystemField(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "info").Sub("store")
	log.Info().Msg("scoped")
	assert.Contains(t, buf.String(), `"subsystem":"store"`)
}

func TestUnknownLevelDefaultsToInfo(t *testing.T) {
	var buf bytes.Buffer
	log := New(&buf, "bogus")
	log.Info().Msg("visible")
	log.Debug().Msg("hidden")

	out := buf.String()
	assert.Contains(t, out, "visible")
	assert.NotContains(t, out, "hidden")
}
