package assemble

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/observability"
)

// ArtifactWriter writes one document's artifacts below an output directory.
// WriteImage is safe for concurrent use as long as file names differ.
type ArtifactWriter struct {
	outputDir string
	stem      string
	logger    *observability.Logger
}

// NewArtifactWriter creates outputDir if needed.
func NewArtifactWriter(outputDir, stem string, logger *observability.Logger) (*ArtifactWriter, error) {
	if logger == nil {
		logger = observability.Nop()
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, domain.IOError(fmt.Sprintf("create output directory %s", outputDir), err)
	}
	return &ArtifactWriter{
		outputDir: outputDir,
		stem:      stem,
		logger:    logger.WithOperation("write_artifacts"),
	}, nil
}

// OutputDir returns the directory artifacts are written to.
func (w *ArtifactWriter) OutputDir() string { return w.outputDir }

// PrepareImages creates the document's image directory.
func (w *ArtifactWriter) PrepareImages() error {
	dir := ImagesDir(w.outputDir, w.stem)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return domain.IOError(fmt.Sprintf("create image directory %s", dir), err)
	}
	return nil
}

// WriteImage stores an image under the document's image directory.
func (w *ArtifactWriter) WriteImage(file string, data []byte) error {
	path := filepath.Join(ImagesDir(w.outputDir, w.stem), file)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.IOError(fmt.Sprintf("write image %s", file), err)
	}
	return nil
}

// WriteMarkdown writes the enriched Markdown and returns its path.
func (w *ArtifactWriter) WriteMarkdown(content string) (string, error) {
	path := filepath.Join(w.outputDir, MarkdownFile(w.stem))
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return "", domain.IOError("write markdown", err)
	}
	w.logger.Info().
		Str("path", path).
		Float64("size_kb", float64(len(content))/1024).
		Msg("Markdown written")
	return path, nil
}

// WriteCatalog writes the image catalog as a JSON array, "[]" when empty.
func (w *ArtifactWriter) WriteCatalog(catalog []domain.ImageDescription) (string, error) {
	if catalog == nil {
		catalog = []domain.ImageDescription{}
	}
	path := filepath.Join(w.outputDir, CatalogFile(w.stem))
	if err := writeJSON(path, catalog); err != nil {
		return "", err
	}
	w.logger.Info().Str("path", path).Int("images", len(catalog)).Msg("Metadata written")
	return path, nil
}

// WriteTrash writes detections and returns the path. Nothing is written and
// the path is empty when there are no detections.
func (w *ArtifactWriter) WriteTrash(detections []domain.TrashDetection) (string, error) {
	if len(detections) == 0 {
		return "", nil
	}
	path := filepath.Join(w.outputDir, TrashFile(w.stem))
	if err := writeJSON(path, detections); err != nil {
		return "", err
	}
	w.logger.Info().Str("path", path).Int("detections", len(detections)).Msg("Trash report written")
	return path, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return domain.IOError("encode "+filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return domain.IOError("write "+filepath.Base(path), err)
	}
	return nil
}

// ReadTrash loads a trash report written by WriteTrash.
func ReadTrash(path string) ([]domain.TrashDetection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError("read trash report", err)
	}
	var detections []domain.TrashDetection
	if err := json.Unmarshal(data, &detections); err != nil {
		return nil, domain.ValidationError("invalid trash report "+filepath.Base(path), err)
	}
	return detections, nil
}
