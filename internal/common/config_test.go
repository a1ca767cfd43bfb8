package common_test

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
)

func bufferLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

// warningsFor counts invalid-value warnings naming key.
func warningsFor(logs, key string) int {
	n := 0
	for _, line := range strings.Split(logs, "\n") {
		if strings.Contains(line, "config.invalid_value") && strings.Contains(line, "key="+key+" ") {
			n++
		}
	}
	return n
}

func TestLoadLLMConfig_InvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("AI_TEMPERATURE", "hot")
	t.Setenv("AI_MAX_TOKENS", "many")
	t.Setenv("AI_TIMEOUT", "-5")
	logger, buf := bufferLogger()

	cfg := common.LoadLLMConfig(logger)

	assert.Equal(t, common.DefaultLLMTemperature, cfg.Temperature)
	assert.InDelta(t, 0.2, cfg.Temperature, 1e-6)
	assert.Equal(t, 700, cfg.MaxTokens)
	assert.Equal(t, 20*time.Second, cfg.Timeout)

	logs := buf.String()
	assert.Equal(t, 1, warningsFor(logs, "AI_TEMPERATURE"), logs)
	assert.Equal(t, 1, warningsFor(logs, "AI_MAX_TOKENS"), logs)
	assert.Equal(t, 1, warningsFor(logs, "AI_TIMEOUT"), logs)
	assert.Equal(t, 3, strings.Count(logs, "config.invalid_value"))
}

func TestLoadLLMConfig_TimeoutForms(t *testing.T) {
	cases := []struct {
		value string
		want  time.Duration
	}{
		{"2.5", 2500 * time.Millisecond},
		{"3s", 3 * time.Second},
		{"45", 45 * time.Second},
		{"", common.DefaultLLMTimeout},
	}
	for _, tc := range cases {
		t.Run(tc.value, func(t *testing.T) {
			t.Setenv("AI_TIMEOUT", tc.value)
			logger, buf := bufferLogger()
			cfg := common.LoadLLMConfig(logger)
			assert.Equal(t, tc.want, cfg.Timeout)
			assert.NotContains(t, buf.String(), "config.invalid_value")
		})
	}
}

func TestLoadLLMConfig_KeysAndDefaults(t *testing.T) {
	t.Setenv("AI_PROVIDER", " OpenAI ")
	t.Setenv("AI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "sk-test")
	t.Setenv("AI_API_BASE", "http://localhost:9999/v1/")
	t.Setenv("AI_MODEL", "")

	cfg := common.LoadLLMConfig(nil)
	assert.Equal(t, "openai", cfg.Provider)
	assert.Equal(t, "sk-test", cfg.APIKey)
	assert.Equal(t, "http://localhost:9999/v1", cfg.BaseURL)
	assert.Equal(t, common.DefaultLLMModel, cfg.Model)

	t.Setenv("AI_API_KEY", "primary")
	assert.Equal(t, "primary", common.LoadLLMConfig(nil).APIKey)
}

func TestConfigValidate(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_URL", ":memory:")
	t.Setenv("PLAN_CHUNK_SIZE", "abc")
	logger, buf := bufferLogger()

	cfg := common.LoadConfig(logger)
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 6000, cfg.Chunking.MaxChars)
	assert.Equal(t, 1, warningsFor(buf.String(), "PLAN_CHUNK_SIZE"))

	cfg.Database.Driver = "mysql"
	assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidInput)

	cfg.Database.Driver = "sqlite"
	cfg.Chunking.Overlap = -1
	assert.ErrorIs(t, cfg.Validate(), common.ErrInvalidInput)
}
