package llm

import "sort"

// CheckStrategy is how a provider proves it can serve requests.
type CheckStrategy int

const (
	// CheckLocal asks a locally running server which models it has.
	CheckLocal CheckStrategy = iota
	// CheckCredential only verifies that the API key variable is set.
	CheckCredential
)

// TransportKind selects the client library behind a provider.
type TransportKind string

const (
	TransportOllama     TransportKind = "ollama"
	TransportOpenAI     TransportKind = "openai"
	TransportAnthropic  TransportKind = "anthropic"
	TransportOpenRouter TransportKind = "openrouter"
)

// ProviderSpec is one row of the provider registry.
type ProviderSpec struct {
	Name            string
	DisplayName     string
	DefaultModel    string
	Models          []string
	CostPerImageUSD float64
	Check           CheckStrategy
	CredentialEnv   string
	BaseURL         string
	Transport       TransportKind
}

var registry = []ProviderSpec{
	{
		Name:         "ollama",
		DisplayName:  "Ollama (local)",
		DefaultModel: "qwen2.5vl",
		Models:       []string{"qwen2.5vl", "llama3.2-vision", "llava", "minicpm-v"},
		Check:        CheckLocal,
		Transport:    TransportOllama,
	},
	{
		Name:            "openai",
		DisplayName:     "OpenAI",
		DefaultModel:    "gpt-4o",
		Models:          []string{"gpt-4o", "gpt-4o-mini", "gpt-4.1", "gpt-4.1-mini"},
		CostPerImageUSD: 0.0055,
		Check:           CheckCredential,
		CredentialEnv:   "OPENAI_API_KEY",
		Transport:       TransportOpenAI,
	},
	{
		Name:            "claude",
		DisplayName:     "Anthropic Claude",
		DefaultModel:    "claude-opus-4-6",
		Models:          []string{"claude-opus-4-6", "claude-sonnet-4-5", "claude-haiku-4-5"},
		CostPerImageUSD: 0.0120,
		Check:           CheckCredential,
		CredentialEnv:   "ANTHROPIC_API_KEY",
		BaseURL:         "https://api.anthropic.com/",
		Transport:       TransportAnthropic,
	},
	{
		Name:            "mistral",
		DisplayName:     "Mistral",
		DefaultModel:    "pixtral-large-latest",
		Models:          []string{"pixtral-large-latest", "pixtral-12b-2409"},
		CostPerImageUSD: 0.0030,
		Check:           CheckCredential,
		CredentialEnv:   "MISTRAL_API_KEY",
		BaseURL:         "https://api.mistral.ai/v1",
		Transport:       TransportOpenAI,
	},
	{
		Name:            "gemini",
		DisplayName:     "Google Gemini",
		DefaultModel:    "gemini-2.5-flash",
		Models:          []string{"gemini-2.5-flash", "gemini-2.5-pro"},
		CostPerImageUSD: 0.0010,
		Check:           CheckCredential,
		CredentialEnv:   "GEMINI_API_KEY",
		BaseURL:         "https://generativelanguage.googleapis.com/v1beta/openai/",
		Transport:       TransportOpenAI,
	},
	{
		Name:            "xai",
		DisplayName:     "xAI Grok",
		DefaultModel:    "grok-2-vision-1212",
		Models:          []string{"grok-2-vision-1212"},
		CostPerImageUSD: 0.0040,
		Check:           CheckCredential,
		CredentialEnv:   "XAI_API_KEY",
		BaseURL:         "https://api.x.ai/v1",
		Transport:       TransportOpenAI,
	},
	{
		Name:            "groq",
		DisplayName:     "Groq",
		DefaultModel:    "meta-llama/llama-4-scout-17b-16e-instruct",
		Models:          []string{"meta-llama/llama-4-scout-17b-16e-instruct", "meta-llama/llama-4-maverick-17b-128e-instruct"},
		CostPerImageUSD: 0.0005,
		Check:           CheckCredential,
		CredentialEnv:   "GROQ_API_KEY",
		BaseURL:         "https://api.groq.com/openai/v1",
		Transport:       TransportOpenAI,
	},
	{
		Name:            "openrouter",
		DisplayName:     "OpenRouter",
		DefaultModel:    "google/gemini-2.5-flash-preview-09-2025",
		Models:          []string{"google/gemini-2.5-flash-preview-09-2025", "google/gemini-2.5-pro", "openai/gpt-4o"},
		CostPerImageUSD: 0.0010,
		Check:           CheckCredential,
		CredentialEnv:   "OPENROUTER_API_KEY",
		BaseURL:         "https://openrouter.ai/api/v1",
		Transport:       TransportOpenRouter,
	},
}

// Providers returns a copy of the registry in display order.
func Providers() []ProviderSpec {
	out := make([]ProviderSpec, len(registry))
	copy(out, registry)
	return out
}

// Lookup finds a provider by name.
func Lookup(name string) (ProviderSpec, bool) {
	for _, p := range registry {
		if p.Name == name {
			return p, true
		}
	}
	return ProviderSpec{}, false
}

// Names returns the registered provider names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, p := range registry {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// DefaultModel returns the default model for name, or "" if unknown.
func DefaultModel(name string) string {
	if p, ok := Lookup(name); ok {
		return p.DefaultModel
	}
	return ""
}
