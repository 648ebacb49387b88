package commands

import (
	"github.com/spf13/cobra"

	"github.com/spherical/manual-rag/cmd/manual-rag/ui"
)

var (
	cfgFile string
	verbose bool
	noColor bool
)

var rootCmd = &cobra.Command{
	Use:   "manual-rag",
	Short: "Convert PDF manuals into RAG-ready Markdown",
	Long: `manual-rag turns PDF manuals (Thai first, English supported) into Markdown for
retrieval-augmented generation. Pictures, tables and picture-heavy pages are described
by a vision model, and low-value pages such as tables of contents are flagged.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		ui.InitUI(noColor, verbose)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
}

// SetVersion sets the string printed by --version.
func SetVersion(v string) {
	rootCmd.Version = v
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
