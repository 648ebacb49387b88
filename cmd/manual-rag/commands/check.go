package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/spherical/manual-rag/cmd/manual-rag/ui"
	"github.com/spherical/manual-rag/pkg/extractor"
)

var (
	checkProviderName string
	checkModel        string
	checkTimeout      time.Duration
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a vision provider can serve requests",
	Args:  cobra.NoArgs,
	RunE:  runCheck,
}

func init() {
	checkCmd.Flags().StringVarP(&checkProviderName, "provider", "p", "", "vision provider (default from config)")
	checkCmd.Flags().StringVarP(&checkModel, "model", "m", "", "model name (default: provider specific)")
	checkCmd.Flags().DurationVar(&checkTimeout, "timeout", 30*time.Second, "how long to wait for the provider")
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if checkProviderName != "" && checkProviderName != cfg.Provider.Name {
		cfg.Provider.Name = checkProviderName
		cfg.Provider.Model = ""
	}
	if checkModel != "" {
		cfg.Provider.Model = checkModel
	}
	cfg.Provider.SkipCheck = false
	cfg.Processing.TextOnly = false
	cfg.Cache.Driver = "none"

	client, err := extractor.NewClientWithConfig(cfg, extractor.WithLogger(newLogger(cfg)))
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	vp := client.Provider()
	ctx, cancel := context.WithTimeout(cmd.Context(), checkTimeout)
	defer cancel()

	spinner := ui.NewSpinner(fmt.Sprintf("Checking %s (%s)...", vp.ProviderName(), vp.ModelName()))
	spinner.Start()
	err = client.CheckProvider(ctx)
	spinner.Stop()

	if err != nil {
		ui.Error("%s is not available", vp.ProviderName())
		return err
	}
	ui.Success("%s is available (model %s)", vp.ProviderName(), vp.ModelName())
	return nil
}
