package llm

// NewAppraiser returns the appraiser for config. Unknown or empty providers,
// and providers missing credentials, get the FallbackAppraiser.
func NewAppraiser(config ClientConfig) Appraiser {
	switch config.Provider {
	case "openai", "ollama":
		a := NewOpenAIAppraiser(config)
		if a.Available() {
			return a
		}
	}
	return NewFallbackAppraiser()
}
