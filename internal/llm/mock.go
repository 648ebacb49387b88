package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/spherical/manual-rag/internal/domain"
)

// MockProvider answers deterministically from the image bytes. It is used for
// dry runs and tests.
type MockProvider struct {
	Name  string
	Model string
	// Fail, when set, decides per request whether to fail and with what.
	Fail func(image domain.EncodedImage, prompt string) error
	// Delay is waited before answering, honouring cancellation.
	Delay    time.Duration
	CheckErr error

	calls atomic.Int64
}

// NewMockProvider returns a mock named "mock" with model "mock-vision".
func NewMockProvider() *MockProvider {
	return &MockProvider{Name: "mock", Model: "mock-vision"}
}

// Ask returns "<kind> <hash>" where kind is derived from the prompt length and
// hash from the image bytes, so identical inputs always produce identical output.
func (m *MockProvider) Ask(ctx context.Context, image domain.EncodedImage, prompt string, maxRetries int) (string, error) {
	m.calls.Add(1)

	if m.Delay > 0 {
		timer := time.NewTimer(m.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", domain.ProviderError("request cancelled", ctx.Err())
		case <-timer.C:
		}
	}

	if m.Fail != nil {
		if err := m.Fail(image, prompt); err != nil {
			return "", domain.ProviderError(fmt.Sprintf("request failed after %d attempts", max(maxRetries, 1)), err)
		}
	}

	sum := sha256.Sum256(image.Data)
	return fmt.Sprintf("Description %s (%dx%d, prompt %d bytes)", hex.EncodeToString(sum[:4]), image.Width, image.Height, len(prompt)), nil
}

// CheckAvailability returns CheckErr.
func (m *MockProvider) CheckAvailability(ctx context.Context) error {
	return m.CheckErr
}

// ProviderName returns Name.
func (m *MockProvider) ProviderName() string { return m.Name }

// ModelName returns Model.
func (m *MockProvider) ModelName() string { return m.Model }

// Calls reports how many times Ask ran.
func (m *MockProvider) Calls() int64 { return m.calls.Load() }
