package llm

import (
	"context"

	"github.com/joseph-ayodele/curriculum-pipeline/constants"
)

// Providers the backend can run.
const (
	ProviderOpenAI    = constants.ProviderOpenAI
	ProviderHeuristic = constants.ProviderHeuristic
)

// Result is the outcome of one generation. ContextSnapshot is the JSON form of
// the structured context the text was generated from.
type Result struct {
	Text            string `json:"text"`
	Model           string `json:"model"`
	Provider        string `json:"provider"`
	ContextSnapshot string `json:"context_snapshot"`
}

// Generator is what the pipelines depend on. Generate never fails: any problem
// with a networked provider degrades to the offline heuristic.
type Generator interface {
	Generate(ctx context.Context, prompt string, input map[string]any) Result
}

// CompletionRequest is one call to a networked provider.
type CompletionRequest struct {
	Model   string
	Prompt  string
	Context map[string]any
}

// Completion is the raw text returned by a networked provider.
type Completion struct {
	Text  string
	Model string
}

// Completer is implemented by networked providers (see the openai package).
type Completer interface {
	Complete(ctx context.Context, req CompletionRequest) (Completion, error)
}

// Override carries per-tenant provider and model preferences. Empty fields
// mean "no preference".
type Override struct {
	Provider string
	Model    string
}
