// Package llm is the gateway to vision language models: a provider registry,
// transports built on langchaingo, a streaming OpenRouter client and an
// Anthropic Messages client, retries
// with exponential backoff, availability checks and prompts.
package llm

import (
	"context"
	"net/http"

	"github.com/spherical/manual-rag/internal/domain"
)

// Completer sends one image and prompt to a model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, image domain.EncodedImage, prompt string) (string, error)
}

// CompleterFunc adapts a function to Completer.
type CompleterFunc func(ctx context.Context, image domain.EncodedImage, prompt string) (string, error)

// Complete calls f.
func (f CompleterFunc) Complete(ctx context.Context, image domain.EncodedImage, prompt string) (string, error) {
	return f(ctx, image, prompt)
}

// titleTransport tags outgoing requests with the application name.
type titleTransport struct {
	base http.RoundTripper
}

func (t *titleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	if req.Header.Get("X-Title") == "" {
		req = req.Clone(req.Context())
		req.Header.Set("X-Title", "manual-rag")
	}
	return base.RoundTrip(req)
}

func dataURL(image domain.EncodedImage) string {
	mime := image.MIMEType
	if mime == "" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + image.Base64
}
