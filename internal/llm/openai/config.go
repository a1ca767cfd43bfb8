package openai

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
)

// Config for the OpenAI chat/completions client.
type Config struct {
	APIKey      string
	BaseURL     string // default https://api.openai.com/v1
	Model       string // used when a request does not name one
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration // per call
}

// ConfigFrom maps the shared backend knobs onto the client config.
func ConfigFrom(cfg common.LLMConfig) Config {
	return Config{
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Model:       cfg.Model,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     cfg.Timeout,
	}
}

type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = common.DefaultLLMBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = common.DefaultLLMModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = common.DefaultLLMMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = common.DefaultLLMTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger,
	}
}
