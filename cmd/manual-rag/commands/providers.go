package commands

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/spherical/manual-rag/cmd/manual-rag/ui"
	"github.com/spherical/manual-rag/internal/llm"
)

var providersCmd = &cobra.Command{
	Use:   "providers",
	Short: "List the supported vision providers",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ui.Section("Vision Providers")
		ui.Table([]string{"Name", "Provider", "Default model", "Models", "Cost/image", "Needs"}, providerRows(llm.Providers()))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(providersCmd)
}

func providerRows(specs []llm.ProviderSpec) [][]string {
	rows := make([][]string, 0, len(specs))
	for _, p := range specs {
		cost := "free"
		if p.CostPerImageUSD > 0 {
			cost = fmt.Sprintf("$%.4f", p.CostPerImageUSD)
		}
		needs := "local server"
		if p.Check == llm.CheckCredential {
			needs = p.CredentialEnv
		}
		rows = append(rows, []string{
			p.Name,
			p.DisplayName,
			p.DefaultModel,
			strings.Join(p.Models, ", "),
			cost,
			needs,
		})
	}
	return rows
}
