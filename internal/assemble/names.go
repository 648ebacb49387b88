package assemble

import (
	"fmt"
	"path/filepath"

	"github.com/spherical/manual-rag/internal/domain"
)

// Artifact file names.
func MarkdownFile(stem string) string { return stem + "_enriched.md" }
func CatalogFile(stem string) string  { return stem + "_images_metadata.json" }
func TrashFile(stem string) string    { return stem + "_trash.json" }
func CleanedFile(stem string) string  { return stem + "_cleaned.md" }

// ImagesDir is where a document's images live under the output directory.
func ImagesDir(outputDir, stem string) string {
	return filepath.Join(outputDir, "images", stem)
}

// FullPageImage names the whole-page render of 1-indexed page.
func FullPageImage(stem string, page int) string {
	return fmt.Sprintf("%s_page_%03d_full.png", stem, page)
}

// TableImage names the table render of 1-indexed page.
func TableImage(stem string, page int) string {
	return fmt.Sprintf("%s_page_%03d_table.png", stem, page)
}

// EmbeddedImage names embedded image index of 1-indexed page.
func EmbeddedImage(stem string, page, index int) string {
	return fmt.Sprintf("%s_page_%03d_img%d.png", stem, page, index)
}

// ImageRef is the stem-relative reference used in markers and the catalog.
func ImageRef(stem, file string) string {
	return stem + "/" + file
}

// ImageLabel is the caption prefix for embedded image index.
func ImageLabel(lang domain.Language, index int) string {
	if lang == domain.LanguageEnglish {
		return fmt.Sprintf("Image %d", index)
	}
	return fmt.Sprintf("ภาพที่ %d", index)
}

// ImageFailed is the inline placeholder for a failed image description.
func ImageFailed(lang domain.Language, err error) string {
	if lang == domain.LanguageEnglish {
		return fmt.Sprintf("[Unable to describe image: %v]", err)
	}
	return fmt.Sprintf("[ไม่สามารถอธิบายภาพได้: %v]", err)
}

// TableFailed is the inline placeholder for a failed table transcription.
func TableFailed(lang domain.Language, err error) string {
	if lang == domain.LanguageEnglish {
		return fmt.Sprintf("[Unable to convert table: %v]", err)
	}
	return fmt.Sprintf("[ไม่สามารถแปลงตารางได้: %v]", err)
}
