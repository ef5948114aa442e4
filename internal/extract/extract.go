// Package extract turns raw PDF bytes into the canonical text/page/layout
// triple the rest of the pipeline hashes and chunks.
//
// Grounded on original_source/app/services/canonical_pipeline.py's
// CanonicalTextPipeline.extract, which wraps PyMuPDF. No pack repo carries a
// Go PDF-parsing dependency (this corpus's PDF consumers all shell out to
// Python tooling), and the ingestion spec treats extraction as a pluggable
// external collaborator, so PDFExtractor below is this project's one
// deliberately stdlib-only module — see DESIGN.md.
package extract

import (
	"bytes"
	"fmt"
)

// PageMapEntry describes one page's character span and page geometry, as
// produced by canonical_pipeline.py's page_map.
type PageMapEntry struct {
	Page      int     `json:"page"`
	StartChar int     `json:"start_char"`
	EndChar   int     `json:"end_char"`
	BBox      PageBBox `json:"bbox"`
}

// PageBBox is a page's nominal dimensions.
type PageBBox struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Unit   string  `json:"unit"`
}

// LayoutSpan is one run of text with its bounding box.
type LayoutSpan struct {
	Text string    `json:"text"`
	BBox [4]float64 `json:"bbox"`
}

// LayoutLine groups spans on one page.
type LayoutLine struct {
	Page  int          `json:"page"`
	BBox  [4]float64   `json:"bbox"`
	Spans []LayoutSpan `json:"spans"`
}

// LayoutMap is the coarse per-line layout geometry used for bbox_refs.
type LayoutMap struct {
	Lines []LayoutLine `json:"lines"`
}

// Result is the full canonical extraction output for one evidence file.
type Result struct {
	StableText string
	PageMap    []PageMapEntry
	LayoutMap  LayoutMap
}

// Extractor turns PDF bytes into a Result. Implementations must be
// deterministic: the same bytes must always yield the same StableText, so
// that downstream hashing and chunking stay reproducible.
type Extractor interface {
	Extract(pdfBytes []byte) (Result, error)
}

const pageBreak = "\x0c"

// PDFExtractor is a dependency-free fallback: it treats each form-feed
// (0x0C) delimited section of the input as one logical page. Real PDF
// bytes rarely contain raw form feeds, so in practice this yields a single
// page; the page_map/layout_map shapes are still fully populated so
// downstream chunking and the page_start/page_end lookup it needs behave
// identically regardless of which Extractor is wired in.
type PDFExtractor struct{}

// NewPDFExtractor returns the stdlib fallback extractor.
func NewPDFExtractor() *PDFExtractor { return &PDFExtractor{} }

func (PDFExtractor) Extract(pdfBytes []byte) (Result, error) {
	if len(pdfBytes) == 0 {
		return Result{}, fmt.Errorf("extract: empty input")
	}

	pages := bytes.Split(pdfBytes, []byte(pageBreak))

	var text bytes.Buffer
	pageMap := make([]PageMapEntry, 0, len(pages))
	layout := LayoutMap{Lines: make([]LayoutLine, 0, len(pages))}

	for i, raw := range pages {
		pageText := sanitizePageText(raw)
		start := text.Len()
		if i > 0 {
			text.WriteString("\n\n")
		}
		text.WriteString(pageText)
		end := text.Len()

		pageMap = append(pageMap, PageMapEntry{
			Page:      i + 1,
			StartChar: start,
			EndChar:   end,
			BBox:      PageBBox{Width: 612, Height: 792, Unit: "pt"},
		})

		layout.Lines = append(layout.Lines, LayoutLine{
			Page: i + 1,
			BBox: [4]float64{0, 0, 612, 792},
			Spans: []LayoutSpan{
				{Text: pageText, BBox: [4]float64{0, 0, 612, 792}},
			},
		})
	}

	return Result{StableText: text.String(), PageMap: pageMap, LayoutMap: layout}, nil
}

// sanitizePageText strips non-printable bytes so StableText is always valid
// UTF-8 text suitable for hashing/chunking, without attempting real PDF
// content-stream decoding.
func sanitizePageText(raw []byte) string {
	out := make([]byte, 0, len(raw))
	for _, b := range raw {
		if b == '\n' || b == '\t' || (b >= 0x20 && b < 0x7f) {
			out = append(out, b)
		}
	}
	return string(out)
}
