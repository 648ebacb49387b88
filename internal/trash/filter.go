package trash

import (
	"sort"
	"strings"

	"github.com/spherical/manual-rag/internal/domain"
)

var filterNames = map[string]domain.TrashKind{
	"toc":           domain.TrashTableOfContents,
	"boilerplate":   domain.TrashBoilerplate,
	"blank":         domain.TrashBlankPage,
	"header_footer": domain.TrashHeaderFooter,
}

// ParseFilter turns a comma separated list such as "toc,blank" into kinds.
// An empty string selects every kind.
func ParseFilter(s string) ([]domain.TrashKind, error) {
	if strings.TrimSpace(s) == "" {
		return []domain.TrashKind{
			domain.TrashTableOfContents,
			domain.TrashBoilerplate,
			domain.TrashBlankPage,
			domain.TrashHeaderFooter,
		}, nil
	}

	var kinds []domain.TrashKind
	seen := make(map[domain.TrashKind]bool)
	for _, part := range strings.Split(s, ",") {
		name := strings.ToLower(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		kind, ok := filterNames[name]
		if !ok {
			return nil, domain.ValidationError("unknown trash type "+name+" (use toc, boilerplate, blank, header_footer)", nil)
		}
		if !seen[kind] {
			seen[kind] = true
			kinds = append(kinds, kind)
		}
	}
	return kinds, nil
}

// PagesToStrip returns the sorted, distinct pages whose detections match one
// of kinds. Document-level detections never remove a page.
func PagesToStrip(detections []domain.TrashDetection, kinds []domain.TrashKind) []int {
	want := make(map[domain.TrashKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	set := make(map[int]bool)
	for _, d := range detections {
		if d.Page > 0 && want[d.Kind] {
			set[d.Page] = true
		}
	}

	pages := make([]int, 0, len(set))
	for p := range set {
		pages = append(pages, p)
	}
	sort.Ints(pages)
	return pages
}
