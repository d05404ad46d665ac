package unifiedllm

// ModelInfo describes a known chat model in the catalog.
type ModelInfo struct {
	ID            string   `json:"id"`
	Provider      string   `json:"provider"`
	DisplayName   string   `json:"display_name"`
	ContextWindow int      `json:"context_window"`
	MaxOutput     *int     `json:"max_output,omitempty"`
	SupportsTools bool     `json:"supports_tools"`
	Aliases       []string `json:"aliases,omitempty"`
}

func intPtr(v int) *int { return &v }

// Models is the built-in model catalog. Entries are ordered newest first
// within each provider.
var Models = []ModelInfo{
	// OpenAI
	{
		ID: "gpt-4.1", Provider: "openai", DisplayName: "GPT-4.1",
		ContextWindow: 1047576, MaxOutput: intPtr(32768),
		SupportsTools: true,
	},
	{
		ID: "gpt-4o", Provider: "openai", DisplayName: "GPT-4o",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
		SupportsTools: true,
		Aliases:       []string{"gpt4o"},
	},
	{
		ID: "gpt-4o-mini", Provider: "openai", DisplayName: "GPT-4o mini",
		ContextWindow: 128000, MaxOutput: intPtr(16384),
		SupportsTools: true,
		Aliases:       []string{"gpt4o-mini"},
	},

	// Azure OpenAI (default deployment names)
	{
		ID: "gpt-35-turbo", Provider: "azure", DisplayName: "GPT-3.5 Turbo (Azure)",
		ContextWindow: 16385, MaxOutput: intPtr(4096),
		SupportsTools: true,
		Aliases:       []string{"gpt-35-turbo-16k"},
	},
	{
		ID: "gpt-4-32k", Provider: "azure", DisplayName: "GPT-4 32k (Azure)",
		ContextWindow: 32768, MaxOutput: intPtr(4096),
		SupportsTools: true,
	},
}

// GetModelInfo returns the catalog entry for a model, or nil if unknown.
func GetModelInfo(modelID string) *ModelInfo {
	for i := range Models {
		if Models[i].ID == modelID {
			return &Models[i]
		}
		for _, alias := range Models[i].Aliases {
			if alias == modelID {
				return &Models[i]
			}
		}
	}
	return nil
}

// GetLatestModel returns the first (newest) model for a provider. When
// toolsRequired is set, models without function calling are skipped.
func GetLatestModel(provider string, toolsRequired bool) *ModelInfo {
	for i := range Models {
		if Models[i].Provider != provider {
			continue
		}
		if toolsRequired && !Models[i].SupportsTools {
			continue
		}
		return &Models[i]
	}
	return nil
}
