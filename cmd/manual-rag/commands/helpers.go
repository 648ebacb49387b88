package commands

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spherical/manual-rag/internal/config"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

// loadConfig reads --config and quiets logging so it does not draw over the
// progress bars unless --verbose or LOG_LEVEL asks for more.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	switch {
	case verbose:
		cfg.Observability.LogLevel = "debug"
	case os.Getenv("LOG_LEVEL") == "":
		cfg.Observability.LogLevel = "warn"
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *observability.Logger {
	return observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "manual-rag",
	})
}

// parsePages reads a page list such as "1,3,7-9" into sorted distinct
// 1-indexed page numbers.
func parsePages(s string) ([]int, error) {
	set := make(map[int]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		lo, hi := part, part
		if i := strings.Index(part, "-"); i > 0 {
			lo, hi = part[:i], part[i+1:]
		}
		first, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil || first < 1 {
			return nil, domain.ValidationError(fmt.Sprintf("invalid page %q", part), err)
		}
		last, err := strconv.Atoi(strings.TrimSpace(hi))
		if err != nil || last < first {
			return nil, domain.ValidationError(fmt.Sprintf("invalid page range %q", part), err)
		}
		for p := first; p <= last; p++ {
			set[p] = true
		}
	}
	if len(set) == 0 {
		return nil, domain.ValidationError("no pages given", nil)
	}

	pages := make([]int, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages, nil
}

func joinInts(nums []int) string {
	parts := make([]string, len(nums))
	for i, n := range nums {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
