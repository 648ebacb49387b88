package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/spherical/manual-rag/internal/domain"
)

// OpenRouterClient talks to OpenRouter's chat completions API with streaming.
type OpenRouterClient struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient *http.Client
}

type chatMessage struct {
	Role    string        `json:"role"`
	Content []contentPart `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
	Stream   bool          `json:"stream"`
}

type chatResponse struct {
	ID      string       `json:"id"`
	Choices []chatChoice `json:"choices"`
}

type chatChoice struct {
	Delta        chatDelta `json:"delta"`
	Message      chatDelta `json:"message"`
	FinishReason string    `json:"finish_reason"`
}

type chatDelta struct {
	Content string `json:"content"`
	Role    string `json:"role"`
}

// NewOpenRouterClient creates a client posting to baseURL/chat/completions.
func NewOpenRouterClient(apiKey, model, baseURL string, httpClient *http.Client) *OpenRouterClient {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &OpenRouterClient{
		apiKey:     apiKey,
		model:      model,
		endpoint:   strings.TrimRight(baseURL, "/") + "/chat/completions",
		httpClient: httpClient,
	}
}

// Complete sends one request and collects the streamed reply. Retries are the
// caller's concern.
func (c *OpenRouterClient) Complete(ctx context.Context, image domain.EncodedImage, prompt string) (string, error) {
	body, err := json.Marshal(c.buildRequest(image, prompt))
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("HTTP-Referer", "https://github.com/spherical/manual-rag")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
	}

	text, err := NewStreamParser(resp.Body).Collect()
	if err != nil {
		return "", fmt.Errorf("failed to parse stream: %w", err)
	}
	return text, nil
}

func (c *OpenRouterClient) buildRequest(image domain.EncodedImage, prompt string) *chatRequest {
	return &chatRequest{
		Model: c.model,
		Messages: []chatMessage{{
			Role: "user",
			Content: []contentPart{
				{Type: "text", Text: prompt},
				{Type: "image_url", ImageURL: &imageURL{URL: dataURL(image)}},
			},
		}},
		Stream: true,
	}
}
