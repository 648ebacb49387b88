package commands

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/spherical/manual-rag/cmd/manual-rag/ui"
	"github.com/spherical/manual-rag/internal/assemble"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/trash"
	"github.com/spherical/manual-rag/pkg/extractor"
)

var (
	cleanPages     string
	cleanTrashFile string
	cleanFilter    string
)

var cleanCmd = &cobra.Command{
	Use:   "clean <stem>_enriched.md",
	Short: "Remove pages from an enriched Markdown file",
	Long: `Remove page sections from an enriched Markdown file and write <stem>_cleaned.md
next to it. Pages come from --pages or from a trash report written by process.`,
	Example: `  manual-rag clean output/manual_enriched.md --pages 1,2,40-42
  manual-rag clean output/manual_enriched.md --trash output/manual_trash.json --filter toc`,
	Args: cobra.ExactArgs(1),
	RunE: runClean,
}

func init() {
	cleanCmd.Flags().StringVar(&cleanPages, "pages", "", "pages to remove, e.g. 1,3,7-9")
	cleanCmd.Flags().StringVar(&cleanTrashFile, "trash", "", "trash report to take pages from")
	cleanCmd.Flags().StringVar(&cleanFilter, "filter", "", "trash types to remove (toc,boilerplate,blank,header_footer; default all)")
	cleanCmd.MarkFlagsOneRequired("pages", "trash")
	cleanCmd.MarkFlagsMutuallyExclusive("pages", "trash")
	rootCmd.AddCommand(cleanCmd)
}

func runClean(cmd *cobra.Command, args []string) error {
	pages, err := pagesToClean(cleanPages, cleanTrashFile, cleanFilter)
	if err != nil {
		return err
	}
	if len(pages) == 0 {
		ui.Info("No removable pages match the filter")
		return nil
	}

	if missing, err := missingPages(args[0], pages); err != nil {
		return err
	} else if len(missing) > 0 {
		ui.Warning("Page(s) %s not found in %s", joinInts(missing), args[0])
	}

	out, err := extractor.CleanMarkdown(args[0], pages)
	if err != nil {
		return err
	}
	ui.Success("Removed %d page(s) (%s) -> %s", len(pages), joinInts(pages), out)
	return nil
}

func pagesToClean(pages, trashFile, filter string) ([]int, error) {
	if trashFile == "" {
		return parsePages(pages)
	}
	if pages != "" {
		return nil, domain.ValidationError("use either --pages or --trash", nil)
	}

	kinds, err := trash.ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	detections, err := assemble.ReadTrash(trashFile)
	if err != nil {
		return nil, err
	}
	return trash.PagesToStrip(detections, kinds), nil
}

// missingPages lists the requested pages that have no "## Page N" section.
func missingPages(path string, pages []int) ([]int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError("read markdown", err)
	}
	present := make(map[int]bool)
	for _, n := range assemble.PageNumbers(string(data)) {
		present[n] = true
	}

	var missing []int
	for _, p := range pages {
		if !present[p] {
			missing = append(missing, p)
		}
	}
	return missing, nil
}
