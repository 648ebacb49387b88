package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/spherical/manual-rag/internal/domain"
)

// langchainCompleter sends images through a langchaingo model. OpenAI style
// APIs take the image as a data URL, Ollama as raw bytes.
type langchainCompleter struct {
	llm      llms.Model
	imageURL bool
}

func (c *langchainCompleter) Complete(ctx context.Context, image domain.EncodedImage, prompt string) (string, error) {
	var imagePart llms.ContentPart
	if c.imageURL {
		imagePart = llms.ImageURLPart(dataURL(image))
	} else {
		mime := image.MIMEType
		if mime == "" {
			mime = "image/png"
		}
		imagePart = llms.BinaryPart(mime, image.Data)
	}

	completion, err := c.llm.GenerateContent(ctx, []llms.MessageContent{
		{
			Parts: []llms.ContentPart{imagePart, llms.TextPart(prompt)},
			Role:  llms.ChatMessageTypeHuman,
		},
	})
	if err != nil {
		return "", fmt.Errorf("error getting response from LLM: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("LLM returned no choices")
	}
	return completion.Choices[0].Content, nil
}

// newLangchainCompleter builds the client for spec. apiKey is empty for local
// providers.
func newLangchainCompleter(spec ProviderSpec, model, baseURL, apiKey string, httpClient *http.Client) (Completer, error) {
	switch spec.Transport {
	case TransportOpenAI:
		opts := []openai.Option{
			openai.WithModel(model),
			openai.WithToken(apiKey),
			openai.WithHTTPClient(httpClient),
		}
		if baseURL != "" {
			opts = append(opts, openai.WithBaseURL(baseURL))
		}
		llm, err := openai.New(opts...)
		if err != nil {
			return nil, err
		}
		return &langchainCompleter{llm: llm, imageURL: true}, nil

	case TransportOllama:
		llm, err := ollama.New(
			ollama.WithModel(model),
			ollama.WithServerURL(baseURL),
			ollama.WithHTTPClient(httpClient),
		)
		if err != nil {
			return nil, err
		}
		return &langchainCompleter{llm: llm}, nil
	}

	return nil, fmt.Errorf("transport %s is not served by langchaingo", spec.Transport)
}
