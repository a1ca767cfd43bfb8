package llm

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
	"github.com/joseph-ayodele/curriculum-pipeline/internal/common"
)

// ProviderResolver returns a provider name and whether it decided. Resolvers
// are consulted in order and the first decision wins.
type ProviderResolver func(o Override) (string, bool)

// Client picks a provider per call site and implements Generator.
type Client struct {
	cfg       common.LLMConfig
	completer Completer
	resolvers []ProviderResolver
	now       func() time.Time
	logger    *slog.Logger

	provider string
	model    string
}

type Option func(*Client)

// WithClock replaces time.Now in the heuristic report header.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// WithResolvers replaces the default provider resolution chain.
func WithResolvers(resolvers ...ProviderResolver) Option {
	return func(c *Client) { c.resolvers = resolvers }
}

// NewClient builds a client with the global configuration. completer may be nil,
// in which case every call is answered by the heuristic.
func NewClient(cfg common.LLMConfig, completer Completer, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Model == "" {
		cfg.Model = common.DefaultLLMModel
	}
	c := &Client{
		cfg:       cfg,
		completer: completer,
		now:       time.Now,
		logger:    logger,
	}
	c.resolvers = DefaultResolvers(cfg, logger)
	for _, opt := range opts {
		opt(c)
	}
	c.provider = c.resolve(Override{})
	c.model = cfg.Model
	if !constants.SupportedProvider(c.provider) {
		logger.Warn("llm.provider.unsupported", "provider", c.provider, "answered_by", ProviderHeuristic)
	}
	return c
}

// DefaultResolvers is override, then AI_PROVIDER, then "openai" when a key is
// configured, then the heuristic.
func DefaultResolvers(cfg common.LLMConfig, logger *slog.Logger) []ProviderResolver {
	return []ProviderResolver{
		OverrideResolver(logger),
		func(Override) (string, bool) {
			p := strings.ToLower(strings.TrimSpace(cfg.Provider))
			return p, p != ""
		},
		func(Override) (string, bool) {
			return ProviderOpenAI, cfg.APIKey != ""
		},
		func(Override) (string, bool) {
			return ProviderHeuristic, true
		},
	}
}

// OverrideResolver honours a tenant provider when it is one the backend supports.
func OverrideResolver(logger *slog.Logger) ProviderResolver {
	return func(o Override) (string, bool) {
		p := strings.ToLower(strings.TrimSpace(o.Provider))
		if p == "" {
			return "", false
		}
		if !constants.SupportedProvider(p) {
			logger.Warn("llm.provider.unsupported_override", "provider", o.Provider)
			return "", false
		}
		return p, true
	}
}

func (c *Client) resolve(o Override) string {
	for _, r := range c.resolvers {
		if p, ok := r(o); ok {
			return p
		}
	}
	return ProviderHeuristic
}

// For returns a client bound to a tenant's preferences.
func (c *Client) For(o Override) *Client {
	cp := *c
	cp.provider = c.resolve(o)
	if m := strings.TrimSpace(o.Model); m != "" {
		cp.model = m
	}
	return &cp
}

func (c *Client) Provider() string { return c.provider }
func (c *Client) Model() string    { return c.model }

// Generate calls the networked provider when it is selected and credentials are
// present; on any failure it answers with the heuristic.
func (c *Client) Generate(ctx context.Context, prompt string, input map[string]any) Result {
	snapshot := snapshotJSON(input)
	if c.provider == ProviderOpenAI && c.completer != nil && c.cfg.APIKey != "" {
		start := time.Now()
		out, err := c.completer.Complete(ctx, CompletionRequest{Model: c.model, Prompt: prompt, Context: input})
		if err == nil {
			model := out.Model
			if model == "" {
				model = c.model
			}
			c.logger.Debug("llm.generate.ok",
				"provider", c.provider,
				"model", model,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return Result{Text: out.Text, Model: model, Provider: ProviderOpenAI, ContextSnapshot: snapshot}
		}
		c.logger.Warn("llm.generate.fallback",
			"provider", c.provider,
			"model", c.model,
			"error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
	return Result{
		Text:            heuristicReport(input, c.now().UTC()),
		Model:           ProviderHeuristic,
		Provider:        ProviderHeuristic,
		ContextSnapshot: snapshot,
	}
}

func snapshotJSON(input map[string]any) string {
	if input == nil {
		input = map[string]any{}
	}
	b, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(b)
}
