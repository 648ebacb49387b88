package llm

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

const defaultOllamaHost = "http://localhost:11434"

// Options configure a Gateway. Zero values fall back to defaults.
type Options struct {
	// OllamaHost overrides OLLAMA_HOST for local providers.
	OllamaHost string
	// BaseURL overrides the registry endpoint.
	BaseURL    string
	Timeout    time.Duration
	Retry      RetryConfig
	HTTPClient *http.Client
	Logger     *observability.Logger
}

// Gateway is a VisionProvider backed by one registry entry. The transport is
// built on first use so that listing or checking providers never needs a key.
type Gateway struct {
	spec       ProviderSpec
	model      string
	baseURL    string
	retry      RetryConfig
	httpClient *http.Client
	logger     *observability.Logger

	once      sync.Once
	completer Completer
	initErr   error
	build     func() (Completer, error)
}

// New creates the gateway for a registered provider. An empty model selects
// the provider's default.
func New(name, model string, opts Options) (*Gateway, error) {
	spec, ok := Lookup(name)
	if !ok {
		return nil, domain.ConfigError(fmt.Sprintf("unknown provider '%s'. Use: %s", name, strings.Join(Names(), " | ")), nil)
	}
	if model == "" {
		model = spec.DefaultModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = observability.Nop()
	}

	retry := opts.Retry
	if retry.InitialBackoff <= 0 && retry.MaxBackoff <= 0 {
		retry = DefaultRetryConfig()
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 5 * time.Minute
		}
		httpClient = &http.Client{
			Timeout:   timeout,
			Transport: &titleTransport{base: http.DefaultTransport},
		}
	}

	g := &Gateway{
		spec:       spec,
		model:      model,
		baseURL:    resolveBaseURL(spec, opts),
		retry:      retry,
		httpClient: httpClient,
		logger:     logger.WithOperation("vision").WithProvider(spec.Name, model),
	}
	g.build = g.buildCompleter
	return g, nil
}

func resolveBaseURL(spec ProviderSpec, opts Options) string {
	if opts.BaseURL != "" {
		return opts.BaseURL
	}
	if spec.Check == CheckLocal {
		if opts.OllamaHost != "" {
			return opts.OllamaHost
		}
		if host := os.Getenv("OLLAMA_HOST"); host != "" {
			return host
		}
		return defaultOllamaHost
	}
	return spec.BaseURL
}

// ProviderName returns the registry name.
func (g *Gateway) ProviderName() string { return g.spec.Name }

// ModelName returns the model in use.
func (g *Gateway) ModelName() string { return g.model }

// Spec returns the registry entry behind the gateway.
func (g *Gateway) Spec() ProviderSpec { return g.spec }

// Ask sends the image with prompt, retrying with exponential backoff, and
// returns the trimmed reply.
func (g *Gateway) Ask(ctx context.Context, image domain.EncodedImage, prompt string, maxRetries int) (string, error) {
	g.once.Do(func() {
		g.completer, g.initErr = g.build()
	})
	if g.initErr != nil {
		return "", domain.ProviderError(fmt.Sprintf("%s client unavailable", g.spec.Name), g.initErr)
	}

	logger := g.logger.WithContext(ctx)
	out, err := retryWithBackoff(ctx, g.retry, maxRetries, logger, func(ctx context.Context) (string, error) {
		return g.completer.Complete(ctx, image, prompt)
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(out), nil
}

func (g *Gateway) credential() (string, error) {
	if g.spec.CredentialEnv == "" {
		return "", nil
	}
	key := strings.TrimSpace(os.Getenv(g.spec.CredentialEnv))
	if key == "" {
		return "", fmt.Errorf("%s is not set", g.spec.CredentialEnv)
	}
	return key, nil
}

func (g *Gateway) buildCompleter() (Completer, error) {
	key, err := g.credential()
	if err != nil {
		return nil, err
	}
	switch g.spec.Transport {
	case TransportOpenRouter:
		return NewOpenRouterClient(key, g.model, g.baseURL, g.httpClient), nil
	case TransportAnthropic:
		return NewAnthropicClient(key, g.model, g.baseURL, g.httpClient), nil
	}
	return newLangchainCompleter(g.spec, g.model, g.baseURL, key, g.httpClient)
}
