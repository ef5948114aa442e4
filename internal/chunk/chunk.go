// Package chunk implements the deterministic paragraph-then-hard-split
// chunking algorithm. Grounded on
// original_source/app/services/chunking.py::SimpleDeterministicChunker.
package chunk

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/regulation-registry/core/internal/extract"
)

const DefaultMaxChars = 1500

// Chunk is one emitted text segment plus its hash and page span.
type Chunk struct {
	StartChar  int    `json:"start_char"`
	EndChar    int    `json:"end_char"`
	PageStart  int    `json:"page_start"`
	PageEnd    int    `json:"page_end"`
	TextSHA256 string `json:"text_sha256"`
}

// Manifest records the chunking policy alongside the emitted count, written
// verbatim into the chunk_set artifact.
type Manifest struct {
	Policy Policy `json:"policy"`
	Count  int    `json:"count"`
}

// Policy is the chunking policy actually applied, echoed back for
// reproducibility audits.
type Policy struct {
	MaxChars     int    `json:"max_chars"`
	OverlapChars int    `json:"overlap_chars"`
	Split        string `json:"split"`
}

// Options configures one Chunk call; zero values fall back to the
// Chunker's own max_chars (set by New) / no overlap.
type Options struct {
	MaxChars     int
	OverlapChars int
}

// Chunker splits stable_text into Chunks, resolving each chunk's page span
// from pageMap.
type Chunker struct {
	maxChars int
}

// New builds a Chunker with the given default max_chars (DefaultMaxChars if
// maxChars <= 0).
func New(maxChars int) *Chunker {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Chunker{maxChars: maxChars}
}

// Chunk splits stableText on blank-line paragraph boundaries, then hard-splits
// any paragraph longer than max_chars, applying a bounded overlap between
// successive hard splits within one paragraph. Paragraph boundaries never
// overlap. Whitespace-only spans are dropped.
func (c *Chunker) Chunk(stableText string, pageMap []extract.PageMapEntry, opts Options) ([]Chunk, Manifest) {
	maxLen := opts.MaxChars
	if maxLen <= 0 {
		maxLen = c.maxChars
	}
	overlap := opts.OverlapChars
	if overlap < 0 {
		overlap = 0
	}
	if maxLen > 1 {
		if overlap > maxLen-1 {
			overlap = maxLen - 1
		}
	} else {
		overlap = 0
	}

	runes := []rune(stableText)
	n := len(runes)

	var chunks []Chunk
	emit := func(start, end int) {
		text := string(runes[start:end])
		if strings.TrimSpace(text) == "" {
			return
		}
		sum := sha256.Sum256([]byte(text))
		last := end - 1
		if last < start {
			last = start
		}
		chunks = append(chunks, Chunk{
			StartChar:  start,
			EndChar:    end,
			PageStart:  pageForOffset(pageMap, start),
			PageEnd:    pageForOffset(pageMap, last),
			TextSHA256: hex.EncodeToString(sum[:]),
		})
	}

	i := 0
	for i < n {
		j := indexOfDoubleNewline(runes, i)
		if j == -1 {
			j = n
		}
		paraEnd := j
		start := i
		for start < paraEnd {
			end := start + maxLen
			if end > paraEnd {
				end = paraEnd
			}
			emit(start, end)
			if overlap == 0 {
				start = end
			} else {
				next := end - overlap
				if next < start+1 {
					next = start + 1
				}
				start = next
			}
		}
		i = paraEnd + 2
	}

	return chunks, Manifest{
		Policy: Policy{MaxChars: maxLen, OverlapChars: overlap, Split: "paragraph_then_hard"},
		Count:  len(chunks),
	}
}

func indexOfDoubleNewline(runes []rune, from int) int {
	for i := from; i+1 < len(runes); i++ {
		if runes[i] == '\n' && runes[i+1] == '\n' {
			return i
		}
	}
	return -1
}

func pageForOffset(pageMap []extract.PageMapEntry, pos int) int {
	for _, p := range pageMap {
		if p.StartChar <= pos && pos <= p.EndChar {
			return p.Page
		}
	}
	if len(pageMap) > 0 {
		return pageMap[len(pageMap)-1].Page
	}
	return 1
}
