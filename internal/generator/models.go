package generator

// ProviderKind identifies a model provider. The set is closed; model
// selection is a total function from branded model id to provider and
// provider model name, never a fallback chain hidden in string matching.
type ProviderKind string

const (
	ProviderGemini    ProviderKind = "gemini"
	ProviderOpenAI    ProviderKind = "openai"
	ProviderAnthropic ProviderKind = "anthropic"
)

// Model is one branded model users can select.
type Model struct {
	ID            string
	Name          string
	Provider      ProviderKind
	ProviderModel string
}

// The branded model catalogue. vibe-m is the default.
var models = []Model{
	{ID: "vibe-s", Name: "Vibe-S (Speed)", Provider: ProviderGemini, ProviderModel: "gemini-1.5-flash"},
	{ID: "vibe-m", Name: "Vibe-M (Balanced)", Provider: ProviderGemini, ProviderModel: "gemini-1.5-pro"},
	{ID: "vibe-l", Name: "Vibe-L (Quality)", Provider: ProviderGemini, ProviderModel: "gemini-1.5-pro-002"},
	{ID: "gpt-4o", Name: "GPT-4o", Provider: ProviderOpenAI, ProviderModel: "gpt-4o"},
	{ID: "gpt-4o-mini", Name: "GPT-4o Mini", Provider: ProviderOpenAI, ProviderModel: "gpt-4o-mini"},
	{ID: "claude-3-5-sonnet", Name: "Claude 3.5 Sonnet", Provider: ProviderAnthropic, ProviderModel: "claude-3-5-sonnet-20241022"},
}

// DefaultModel returns the model used when the selector is empty or unknown.
func DefaultModel() Model {
	return models[1]
}

// LookupModel resolves a branded model id. Unknown ids resolve to the
// default model so that selection is total.
func LookupModel(id string) Model {
	for _, m := range models {
		if m.ID == id {
			return m
		}
	}
	return DefaultModel()
}

// Models returns the full catalogue.
func Models() []Model {
	out := make([]Model, len(models))
	copy(out, models)
	return out
}
