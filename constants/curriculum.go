package constants

// GeneralArea labels content that could not be tied to a specific subject area.
const GeneralArea = "General"

// DefaultDocumentTitle is used when neither a title nor a filename is available.
const DefaultDocumentTitle = "Currículum"

// DefaultPlanName is used when a plan is saved without a name.
const DefaultPlanName = "Plan"

// PromptContextCurriculumParser is the prompt catalog key used for AI grade suggestions.
const PromptContextCurriculumParser = "curriculum_parser"

// ItemSourcePlanParser marks plan items produced by the chunked extraction pipeline.
const ItemSourcePlanParser = "llm_plan_parser"

// Generative providers.
const (
	ProviderOpenAI    = "openai"
	ProviderHeuristic = "heuristic"
)

var supportedProviders = map[string]struct{}{
	ProviderOpenAI:    {},
	ProviderHeuristic: {},
}

// SupportedProvider reports whether name is a provider the backend can run.
func SupportedProvider(name string) bool {
	_, ok := supportedProviders[name]
	return ok
}
