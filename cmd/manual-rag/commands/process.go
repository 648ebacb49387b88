package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/spherical/manual-rag/cmd/manual-rag/ui"
	"github.com/spherical/manual-rag/internal/config"
	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/llm"
	"github.com/spherical/manual-rag/internal/pdf"
	"github.com/spherical/manual-rag/pkg/extractor"
)

const stripAll = "all"

// processOptions mirrors the processing configuration. Only flags that were
// set on the command line override the loaded config.
type processOptions struct {
	input            string
	output           string
	provider         string
	model            string
	lang             string
	quality          string
	cache            string
	stripTrash       string
	startPage        int
	endPage          int
	concurrency      int
	imageConcurrency int
	skipCheck        bool
	noTables         bool
	textOnly         bool
	noDetectTrash    bool
}

var processOpts processOptions

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Convert a PDF, or every PDF in a directory, to Markdown",
	Long: `Convert PDF manuals to RAG-ready Markdown.

For each document the command writes <stem>_enriched.md, <stem>_metadata.json with one
record per described image, rendered images under images/<stem>/ and, when low-value
pages are found, <stem>_trash.json.`,
	Example: `  manual-rag process -i manual.pdf
  manual-rag process -i manuals/ -p openai --lang en --strip-trash=toc,blank
  manual-rag process -i manual.pdf --text-only --start-page 4 --end-page 20`,
	RunE: runProcess,
}

func init() {
	processOpts.register(processCmd.Flags())
	_ = processCmd.MarkFlagRequired("input")
	rootCmd.AddCommand(processCmd)
}

func (o *processOptions) register(fs *pflag.FlagSet) {
	fs.StringVarP(&o.input, "input", "i", "", "PDF file or directory of PDFs (required)")
	fs.StringVarP(&o.output, "output", "o", "", "output directory (default from config: output)")
	fs.StringVarP(&o.provider, "provider", "p", "", "vision provider (see manual-rag providers)")
	fs.StringVarP(&o.model, "model", "m", "", "model name (default: provider specific)")
	fs.StringVarP(&o.lang, "lang", "l", "", "document language for prompts: th or en")
	fs.IntVar(&o.startPage, "start-page", 0, "first page to process (0-indexed)")
	fs.IntVar(&o.endPage, "end-page", 0, "page to stop before (exclusive, 0 = last page)")
	fs.BoolVar(&o.skipCheck, "skip-check", false, "skip the provider availability check")
	fs.BoolVar(&o.noTables, "no-tables", false, "disable table extraction")
	fs.BoolVar(&o.textOnly, "text-only", false, "extract text only, no images and no vision calls")
	fs.IntVar(&o.concurrency, "concurrency", 0, "pages processed concurrently (default 4)")
	fs.IntVar(&o.imageConcurrency, "image-concurrency", 0, "images described concurrently per page (default 5)")
	fs.BoolVar(&o.noDetectTrash, "no-detect-trash", false, "disable trash detection")
	fs.StringVar(&o.quality, "quality", "", "standard (native text + vision for images) or high (every page through vision OCR)")
	fs.StringVar(&o.cache, "cache", "", "description cache: none, memory or redis")
	fs.StringVar(&o.stripTrash, "strip-trash", "", "write <stem>_cleaned.md without trash pages, optionally only TYPES (toc,boilerplate,blank,header_footer)")
	fs.Lookup("strip-trash").NoOptDefVal = stripAll
}

func (o *processOptions) apply(fs *pflag.FlagSet, cfg *config.Config) error {
	p := &cfg.Processing

	if fs.Changed("output") {
		cfg.Output.Dir = o.output
	}
	if fs.Changed("provider") {
		if _, ok := llm.Lookup(o.provider); !ok {
			return domain.ValidationError(fmt.Sprintf("unknown provider %q", o.provider), nil)
		}
		if cfg.Provider.Name != o.provider && !fs.Changed("model") {
			cfg.Provider.Model = ""
		}
		cfg.Provider.Name = o.provider
	}
	if fs.Changed("model") {
		cfg.Provider.Model = o.model
	}
	if fs.Changed("lang") {
		lang, err := domain.ParseLanguage(o.lang)
		if err != nil {
			return err
		}
		p.Language = lang
	}
	if fs.Changed("quality") {
		q, err := domain.ParseQuality(o.quality)
		if err != nil {
			return err
		}
		p.Quality = q
	}
	if fs.Changed("start-page") {
		p.StartPage = o.startPage
	}
	if fs.Changed("end-page") {
		p.EndPage = o.endPage
	}
	if fs.Changed("skip-check") {
		cfg.Provider.SkipCheck = o.skipCheck
	}
	if fs.Changed("no-tables") {
		p.TableExtraction = !o.noTables
	}
	if fs.Changed("text-only") {
		p.TextOnly = o.textOnly
	}
	if fs.Changed("concurrency") {
		p.MaxConcurrentPages = o.concurrency
	}
	if fs.Changed("image-concurrency") {
		p.MaxConcurrentImages = o.imageConcurrency
	}
	if fs.Changed("no-detect-trash") {
		p.DetectTrash = !o.noDetectTrash
	}
	if fs.Changed("cache") {
		cfg.Cache.Driver = o.cache
	}
	if _, ok := o.stripFilter(fs); ok && !p.DetectTrash {
		return domain.ValidationError("--strip-trash needs trash detection, drop --no-detect-trash", nil)
	}

	return cfg.Validate()
}

// stripFilter returns the trash filter for --strip-trash and whether the flag
// was given. A bare --strip-trash selects every kind.
func (o *processOptions) stripFilter(fs *pflag.FlagSet) (string, bool) {
	if !fs.Changed("strip-trash") {
		return "", false
	}
	if o.stripTrash == stripAll {
		return "", true
	}
	return o.stripTrash, true
}

// resolveInputs expands a directory to its PDFs in name order.
func resolveInputs(path string) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, domain.ValidationError(fmt.Sprintf("input not found: %s", path), err)
	}
	if info.IsDir() {
		return pdf.ListPDFs(path)
	}
	return []string{path}, nil
}

// documentRun is the outcome of one input file.
type documentRun struct {
	path   string
	result *extractor.ProcessingResult
	faults []string
	err    error
}

func runProcess(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if err := processOpts.apply(cmd.Flags(), cfg); err != nil {
		return err
	}

	inputs, err := resolveInputs(processOpts.input)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := extractor.NewClientWithConfig(cfg, extractor.WithLogger(newLogger(cfg)))
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	ui.Section("PDF Manual to Markdown")
	printRunHeader(cfg, client, inputs)

	if err := checkProvider(ctx, client); err != nil {
		return err
	}

	var runs []documentRun
	if len(inputs) == 1 {
		runs = []documentRun{processSingle(ctx, client, inputs[0], cfg.Output.Dir)}
	} else {
		runs = processBatch(ctx, client, inputs, cfg.Output.Dir)
	}

	filter, strip := processOpts.stripFilter(cmd.Flags())
	failed := 0
	for _, r := range runs {
		if r.err != nil {
			failed++
			ui.Error("%s: %v", filepath.Base(r.path), r.err)
			continue
		}
		printResult(r)
		if err := reportTrash(r.result, filter, strip); err != nil {
			ui.Error("%s: strip trash: %v", r.result.Stem, err)
		}
	}

	if len(runs) > 1 {
		ui.Section("Batch Summary")
		ui.Table([]string{"Document", "Pages", "Images", "Trash", "Failures", "Status"}, batchRows(runs))
	}
	if cp, ok := client.Provider().(*llm.CachedProvider); ok {
		hits, misses := cp.Stats()
		ui.Info("Description cache: %d hit(s), %d miss(es)", hits, misses)
	}

	ui.Newline()
	if ctx.Err() != nil {
		return errors.New("interrupted")
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(runs))
	}

	out, _ := filepath.Abs(cfg.Output.Dir)
	ui.Success("Done! %d file(s) processed.", len(runs))
	ui.KeyValue("Output", out)
	return nil
}

func printRunHeader(cfg *config.Config, client *extractor.Client, inputs []string) {
	p := cfg.Processing
	ui.KeyValue("Input", processOpts.input)
	if len(inputs) > 1 {
		ui.KeyValue("Documents", strconv.Itoa(len(inputs)))
	}
	ui.KeyValue("Output", cfg.Output.Dir)
	if vp := client.Provider(); vp != nil {
		ui.KeyValue("Provider", fmt.Sprintf("%s (%s)", vp.ProviderName(), vp.ModelName()))
	} else {
		ui.KeyValue("Mode", "text only")
	}
	ui.KeyValue("Language", string(p.Language))
	ui.KeyValue("Quality", string(p.Quality))
	ui.KeyValue("Concurrency", fmt.Sprintf("%d pages x %d images", p.MaxConcurrentPages, p.MaxConcurrentImages))
	ui.Newline()
}

func checkProvider(ctx context.Context, client *extractor.Client) error {
	vp := client.Provider()
	if vp == nil || client.Config().Provider.SkipCheck {
		return nil
	}

	spinner := ui.NewSpinner(fmt.Sprintf("Checking %s...", vp.ProviderName()))
	spinner.Start()
	checkCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := client.CheckProvider(checkCtx)
	spinner.Stop()

	if err != nil {
		return fmt.Errorf("provider check failed (use --skip-check to bypass): %w", err)
	}
	ui.Success("%s is available", vp.ProviderName())
	return nil
}

func processSingle(ctx context.Context, client *extractor.Client, path, outputDir string) documentRun {
	sink := ui.NewPageSink()
	result, err := client.ProcessFile(ctx, path, outputDir, sink)
	return documentRun{path: path, result: result, faults: sink.Faults(), err: err}
}

func processBatch(ctx context.Context, client *extractor.Client, inputs []string, outputDir string) []documentRun {
	batch := ui.NewBatch(len(inputs))
	runs := make([]documentRun, 0, len(inputs))
	for _, path := range inputs {
		if ctx.Err() != nil {
			break
		}
		sink := batch.Document()
		result, err := client.ProcessFile(ctx, path, outputDir, sink)
		sink.Finish()
		runs = append(runs, documentRun{path: path, result: result, faults: sink.Faults(), err: err})
	}
	batch.Close()
	return runs
}

func printResult(r documentRun) {
	res := r.result
	ui.Section(res.Stem)
	ui.Table([]string{"Metric", "Value"}, [][]string{
		{"Markdown", res.MarkdownPath},
		{"Metadata", res.MetadataPath},
		{"Pages", strconv.Itoa(res.Pages)},
		{"Images described", strconv.Itoa(res.ImageCount)},
		{"Failures", strconv.Itoa(res.Failures)},
		{"Duration", ui.FormatDuration(res.Duration)},
	})

	if len(r.faults) > 0 {
		ui.Newline()
		ui.Warning("%d unit(s) failed and were replaced by placeholders", len(r.faults))
		if ui.Verbose() {
			for _, f := range r.faults {
				ui.Message("  %s", f)
			}
		}
	}
}

func reportTrash(res *extractor.ProcessingResult, filter string, strip bool) error {
	if res.TrashCount == 0 {
		return nil
	}

	ui.Newline()
	ui.Warning("Trash detected: %d item(s)", res.TrashCount)
	rows := make([][]string, 0, len(res.Trash))
	for _, d := range res.Trash {
		page := "(doc)"
		if d.Page > 0 {
			page = strconv.Itoa(d.Page)
		}
		rows = append(rows, []string{page, d.Kind.Label(), fmt.Sprintf("%.2f", d.Confidence), d.Reason})
	}
	ui.Table([]string{"Page", "Type", "Confidence", "Reason"}, rows)

	if !strip {
		ui.Info("Tip: use --strip-trash to remove these pages")
		return nil
	}

	path, pages, err := extractor.StripTrash(res, filter)
	if err != nil {
		return err
	}
	if path == "" {
		ui.Info("No removable pages match the filter")
		return nil
	}
	ui.Success("Stripped %d page(s) (%s) -> %s", len(pages), joinInts(pages), path)
	return nil
}

func batchRows(runs []documentRun) [][]string {
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		name := filepath.Base(r.path)
		if r.err != nil {
			rows = append(rows, []string{name, "-", "-", "-", "-", "failed"})
			continue
		}
		res := r.result
		rows = append(rows, []string{
			name,
			strconv.Itoa(res.Pages),
			strconv.Itoa(res.ImageCount),
			strconv.Itoa(res.TrashCount),
			strconv.Itoa(res.Failures),
			"ok",
		})
	}
	return rows
}
