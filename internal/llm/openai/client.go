package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
)

// SystemPrompt frames every request.
const SystemPrompt = "Actúas como asesor pedagógico senior. Redactas informes claros, empáticos y accionables " +
	"basados estrictamente en los datos provistos. Menciona hallazgos, alertas y próximos pasos."

// ErrEmptyCompletion is returned when the provider answers without content.
var ErrEmptyCompletion = errors.New("openai returned an empty completion")

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Temperature float32       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
	Messages    []chatMessage `json:"messages"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete implements llm.Completer against /chat/completions.
func (c *Client) Complete(ctx context.Context, req llm.CompletionRequest) (llm.Completion, error) {
	if c.cfg.APIKey == "" {
		return llm.Completion{}, errors.New("openai api key not configured")
	}
	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = c.cfg.Model
	}

	structured, err := json.MarshalIndent(orEmpty(req.Context), "", "  ")
	if err != nil {
		return llm.Completion{}, fmt.Errorf("encode context: %w", err)
	}
	body := chatRequest{
		Model:       model,
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: req.Prompt},
			{Role: "user", Content: "Contexto estructurado:\n" + string(structured)},
		},
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := llm.SendJSON(ctx, c.http, c.cfg.BaseURL+"/chat/completions", body,
		map[string]string{"Authorization": "Bearer " + c.cfg.APIKey}, c.logger)
	if err != nil {
		return llm.Completion{}, fmt.Errorf("openai request: %w", err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		return llm.Completion{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		return llm.Completion{}, ErrEmptyCompletion
	}
	content := strings.TrimSpace(cc.Choices[0].Message.Content)
	if content == "" {
		return llm.Completion{}, ErrEmptyCompletion
	}
	if cc.Model == "" {
		cc.Model = model
	}

	c.logger.Info("llm.complete.ok",
		"model", cc.Model,
		"chars", len(content),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return llm.Completion{Text: content, Model: cc.Model}, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
