package trash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical/manual-rag/internal/domain"
	"github.com/spherical/manual-rag/internal/textnorm"
)

const prose = "Insert the battery into the compartment on the back of the device. " +
	"Align the contacts with the markings and press down until it clicks into place. " +
	"Close the cover and hold the power button for three seconds to start the phone."

func byKind(ds []domain.TrashDetection, kind domain.TrashKind) []domain.TrashDetection {
	var out []domain.TrashDetection
	for _, d := range ds {
		if d.Kind == kind {
			out = append(out, d)
		}
	}
	return out
}

func TestDetectBlankMarker(t *testing.T) {
	ds := Detect([]PageText{{Page: 4, Text: "This page intentionally left blank"}})

	blank := byKind(ds, domain.TrashBlankPage)
	require.Len(t, blank, 1)
	assert.Equal(t, 4, blank[0].Page)
	assert.Equal(t, 0.95, blank[0].Confidence)
	assert.Equal(t, "Explicit blank page marker found", blank[0].Reason)
}

func TestDetectNearlyBlankCountsRunes(t *testing.T) {
	// 20 Thai characters are 60 bytes but still a nearly blank page.
	text := strings.Repeat("ก", 20)
	ds := Detect([]PageText{{Page: 1, Text: text}})

	blank := byKind(ds, domain.TrashBlankPage)
	require.Len(t, blank, 1)
	assert.Equal(t, 0.80, blank[0].Confidence)
	assert.Equal(t, "Nearly blank page (20 chars)", blank[0].Reason)
}

func TestDetectTOC(t *testing.T) {
	tests := []struct {
		name       string
		text       string
		confidence float64
		reason     string
	}{
		{
			name:       "thai heading with leaders",
			text:       "สารบัญ\nบทที่ 1 การติดตั้ง ..... 5\nบทที่ 2 การใช้งาน ..... 9\nบทที่ 3 การดูแลรักษา …… 14\n" + prose,
			confidence: 0.95,
			reason:     "TOC heading keyword found with 3 dot-leader lines",
		},
		{
			name:       "heading only",
			text:       "Table of Contents\n" + prose,
			confidence: 0.90,
			reason:     "TOC heading keyword found",
		},
		{
			name: "leaders only",
			text: "Setup ...... 3\nCalls ...... 7\nMessages ...... 9\nCamera ...... 12\nSettings ...... 15\n" +
				prose,
			confidence: 0.70,
			reason:     "5 dot-leader lines detected (possible TOC)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			toc := byKind(Detect([]PageText{{Page: 2, Text: tt.text}}), domain.TrashTableOfContents)
			require.Len(t, toc, 1)
			assert.GreaterOrEqual(t, toc[0].Confidence, 0.70)
			assert.Equal(t, tt.confidence, toc[0].Confidence)
			assert.Equal(t, tt.reason, toc[0].Reason)
			assert.Equal(t, 2, toc[0].Page)
		})
	}
}

func TestDetectBoilerplate(t *testing.T) {
	multi := Detect([]PageText{{Page: 1, Text: "Copyright 2024 ACME. All rights reserved.\n" + prose}})
	bp := byKind(multi, domain.TrashBoilerplate)
	require.Len(t, bp, 1)
	assert.Equal(t, 0.85, bp[0].Confidence)
	assert.Equal(t, "Multiple boilerplate keywords: copyright, all rights reserved", bp[0].Reason)

	single := Detect([]PageText{{Page: 3, Text: "Disclaimer\n" + prose}})
	bp = byKind(single, domain.TrashBoilerplate)
	require.Len(t, bp, 1)
	assert.Equal(t, 0.65, bp[0].Confidence)
	assert.Contains(t, bp[0].Reason, `Boilerplate keyword "disclaimer" on short page`)

	long := Detect([]PageText{{Page: 3, Text: "Disclaimer\n" + strings.Repeat(prose+"\n", 3)}})
	assert.Empty(t, byKind(long, domain.TrashBoilerplate))
}

func TestDetectIgnoresOrdinaryContent(t *testing.T) {
	assert.Empty(t, Detect([]PageText{{Page: 7, Text: prose}}))
}

func TestDetectPreviewIsBounded(t *testing.T) {
	text := "สารบัญ\n" + strings.Repeat("บทนำ ", 200)
	ds := Detect([]PageText{{Page: 1, Text: text}})
	require.NotEmpty(t, ds)
	for _, d := range ds {
		assert.LessOrEqual(t, len(d.Preview), 200)
		assert.True(t, strings.HasPrefix(text, d.Preview))
	}
}

func TestHeaderFooter(t *testing.T) {
	_, ok := HeaderFooter(10, textnorm.Furniture{})
	assert.False(t, ok)

	d, ok := HeaderFooter(10, textnorm.Furniture{Headers: []string{"ACME Manual"}, Footers: []string{"v1.2"}})
	require.True(t, ok)
	assert.Equal(t, 0, d.Page)
	assert.Equal(t, domain.TrashHeaderFooter, d.Kind)
	assert.Equal(t, 1.0, d.Confidence)
	assert.Equal(t, `Repeated text stripped from 10 pages: Header: "ACME Manual", Footer: "v1.2"`, d.Reason)
	assert.Equal(t, `Header: "ACME Manual"; Footer: "v1.2"`, d.Preview)
}

func TestParseFilter(t *testing.T) {
	kinds, err := ParseFilter("")
	require.NoError(t, err)
	assert.Len(t, kinds, 4)

	kinds, err = ParseFilter("toc, blank,toc")
	require.NoError(t, err)
	assert.Equal(t, []domain.TrashKind{domain.TrashTableOfContents, domain.TrashBlankPage}, kinds)

	_, err = ParseFilter("toc,ads")
	require.Error(t, err)
	assert.True(t, domain.IsType(err, domain.ErrorTypeValidation))
}

func TestPagesToStrip(t *testing.T) {
	ds := []domain.TrashDetection{
		{Page: 5, Kind: domain.TrashBlankPage},
		{Page: 2, Kind: domain.TrashTableOfContents},
		{Page: 2, Kind: domain.TrashBlankPage},
		{Page: 3, Kind: domain.TrashBoilerplate},
		{Page: 0, Kind: domain.TrashHeaderFooter},
	}

	assert.Equal(t, []int{2, 5}, PagesToStrip(ds, []domain.TrashKind{domain.TrashBlankPage}))
	all, _ := ParseFilter("")
	assert.Equal(t, []int{2, 3, 5}, PagesToStrip(ds, all))
	assert.Empty(t, PagesToStrip(ds, []domain.TrashKind{domain.TrashHeaderFooter}))
}
