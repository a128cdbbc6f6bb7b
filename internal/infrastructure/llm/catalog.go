package llm

const (
	ProviderNone   = "none"
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
)

var defaultModels = map[string]string{
	ProviderGroq:   "llama-3.3-70b-versatile",
	ProviderGemini: "models/gemini-1.5-pro",
	ProviderOllama: "llama3.1:8b",
}

// DefaultModel returns the model used when none is configured.
func DefaultModel(provider string) string {
	return defaultModels[provider]
}

// ResolveModel prefers the configured model over the provider default.
func ResolveModel(provider, configured string) string {
	if configured != "" {
		return configured
	}
	return DefaultModel(provider)
}
