package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/spherical/manual-rag/internal/domain"
)

type ollamaTags struct {
	Models []struct {
		Name string `json:"name"`
	} `json:"models"`
}

// CheckAvailability verifies the provider can serve requests: a local server
// must list the model, a remote provider needs its credential.
func (g *Gateway) CheckAvailability(ctx context.Context) error {
	logger := g.logger.WithContext(ctx)
	logger.Info().Msg("Checking provider availability")

	var err error
	switch g.spec.Check {
	case CheckLocal:
		err = g.checkLocal(ctx)
	default:
		if _, cerr := g.credential(); cerr != nil {
			err = domain.ProviderError(fmt.Sprintf("%s credentials missing", g.spec.DisplayName), cerr)
		}
	}

	if err != nil {
		logger.Error().Err(err).Msg("Provider unavailable")
		return err
	}
	logger.Info().Msg("Provider ready")
	return nil
}

func (g *Gateway) checkLocal(ctx context.Context) error {
	host := strings.TrimRight(g.baseURL, "/")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/api/tags", nil)
	if err != nil {
		return domain.ProviderError("invalid Ollama host "+host, err)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.ProviderError(fmt.Sprintf("cannot connect to Ollama at %s (is `ollama serve` running?)", host), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return domain.ProviderError(fmt.Sprintf("Ollama at %s returned status %d", host, resp.StatusCode), nil)
	}

	var tags ollamaTags
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return domain.ProviderError("invalid response from Ollama", err)
	}

	var available []string
	for _, m := range tags.Models {
		if strings.Contains(m.Name, g.model) {
			return nil
		}
		available = append(available, m.Name)
	}

	list := "none"
	if len(available) > 0 {
		list = strings.Join(available, ", ")
	}
	return domain.ProviderError(fmt.Sprintf("model '%s' not found in Ollama; run `ollama pull %s` (available: %s)", g.model, g.model, list), nil)
}
