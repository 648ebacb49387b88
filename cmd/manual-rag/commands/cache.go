package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/manual-rag/cmd/manual-rag/ui"
	"github.com/spherical/manual-rag/internal/cache"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/llm"
)

var cacheClearProvider string

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the image description cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete cached image descriptions",
	Args:  cobra.NoArgs,
	RunE:  runCacheClear,
}

func init() {
	cacheClearCmd.Flags().StringVarP(&cacheClearProvider, "provider", "p", "", "only clear descriptions from this provider")
	cacheCmd.AddCommand(cacheClearCmd)
	rootCmd.AddCommand(cacheCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	prefix, err := clearPrefix(cacheClearProvider)
	if err != nil {
		return err
	}

	// A memory cache only lives as long as one process.
	if cfg.Cache.Driver != "redis" {
		ui.Info("Cache driver is %q, nothing persistent to clear", cfg.Cache.Driver)
		return nil
	}

	cc, err := cache.New(cfg.Cache)
	if err != nil {
		return err
	}
	defer func() { _ = cc.Close() }()

	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()
	if err := cc.DeleteByPrefix(ctx, prefix); err != nil {
		return domain.IOError("clear description cache", err)
	}
	ui.Success("Cleared cached descriptions (%s*)", prefix)
	return nil
}

func clearPrefix(provider string) (string, error) {
	if provider == "" {
		return cache.CacheKey("desc") + ":", nil
	}
	if _, ok := llm.Lookup(provider); !ok {
		return "", domain.ValidationError("unknown provider "+provider, nil)
	}
	return cache.ProviderPrefix(provider), nil
}
