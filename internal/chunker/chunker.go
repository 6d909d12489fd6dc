// Package chunker converts a document's extraction artifacts into
// retrievable text chunks with page provenance.
//
// Artifacts are tried in a fixed priority order per document:
// structured layout elements first, then machine-translated page
// text, then original page text. Each step's availability check is a
// discrete predicate so the chain stays testable.
package chunker

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"strings"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// Default chunking parameters, counted in words.
const (
	DefaultMaxWords = 350
	DefaultOverlap  = 50
	DefaultMinWords = 20
)

// headerLabel marks a layout region that opens a new section.
const headerLabel = "section_header"

// Origin records which artifact a document's chunks came from.
type Origin string

// Recognised origins, in priority order.
const (
	OriginLayout      Origin = "layout"
	OriginTranslation Origin = "translation"
	OriginPages       Origin = "pages"
	OriginNone        Origin = "none"
)

// Source provides a document's extraction artifacts. The corpus port
// satisfies it; tests supply small fakes.
type Source interface {
	LayoutElements(ctx context.Context, docID string) ([]domain.LayoutPage, error)
	PageTexts(ctx context.Context, docID string) (map[string]string, error)
	TranslatedPageTexts(ctx context.Context, docID string) (map[string]string, error)
}

// Chunker splits document text into word windows.
type Chunker struct {
	maxWords int
	overlap  int
	minWords int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithMaxWords sets the window size in words.
func WithMaxWords(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.maxWords = n
		}
	}
}

// WithOverlap sets the overlap between windows in words.
func WithOverlap(n int) Option {
	return func(c *Chunker) {
		if n >= 0 {
			c.overlap = n
		}
	}
}

// WithMinWords sets the minimum words a chunk must carry to be kept.
func WithMinWords(n int) Option {
	return func(c *Chunker) {
		if n > 0 {
			c.minWords = n
		}
	}
}

// New creates a chunker with the given options.
func New(opts ...Option) *Chunker {
	c := &Chunker{
		maxWords: DefaultMaxWords,
		overlap:  DefaultOverlap,
		minWords: DefaultMinWords,
	}

	for _, opt := range opts {
		opt(c)
	}

	// Ensure overlap doesn't exceed window size
	if c.overlap >= c.maxWords {
		c.overlap = c.maxWords / 4
	}

	return c
}

// Document produces the document's chunks, walking the artifact
// priority list. A document with no usable artifacts, or whose text is
// entirely below the minimum chunk length, contributes zero chunks and
// OriginNone; that is not an error.
func (c *Chunker) Document(ctx context.Context, src Source, docID string, meta domain.DocumentMeta) ([]domain.Chunk, Origin, error) {
	pages, err := src.LayoutElements(ctx, docID)
	switch {
	case err == nil:
		if chunks := c.FromLayout(pages, docID, meta); len(chunks) > 0 {
			return chunks, OriginLayout, nil
		}
		// Layout present but yielded nothing usable; fall through to
		// flat text.
	case !errors.Is(err, domain.ErrArtifactMissing):
		return nil, OriginNone, err
	}

	texts, origin, err := c.flatTexts(ctx, src, docID)
	if err != nil {
		if errors.Is(err, domain.ErrArtifactMissing) {
			return nil, OriginNone, nil
		}
		return nil, OriginNone, err
	}

	chunks := c.FromPages(texts, docID, meta)
	if len(chunks) == 0 {
		return nil, OriginNone, nil
	}
	return chunks, origin, nil
}

// flatTexts picks the flat page-text artifact: the translated variant
// when it exists and is non-empty, the original otherwise.
func (c *Chunker) flatTexts(ctx context.Context, src Source, docID string) (map[string]string, Origin, error) {
	translated, err := src.TranslatedPageTexts(ctx, docID)
	if err == nil && len(translated) > 0 {
		return translated, OriginTranslation, nil
	}
	if err != nil && !errors.Is(err, domain.ErrArtifactMissing) {
		return nil, OriginNone, err
	}

	original, err := src.PageTexts(ctx, docID)
	if err != nil {
		return nil, OriginNone, err
	}
	return original, OriginPages, nil
}

// FromLayout performs structure-aware chunking: all non-header region
// text accumulates under the most recent section header, and a new
// header flushes the accumulation into a completed section. Sections
// over the word budget are re-split with overlapping windows.
func (c *Chunker) FromLayout(pages []domain.LayoutPage, docID string, meta domain.DocumentMeta) []domain.Chunk {
	var (
		chunks  []domain.Chunk
		heading string
		parts   []string
		touched []int
	)

	flush := func() {
		defer func() {
			parts = nil
			touched = nil
		}()
		if len(parts) == 0 {
			return
		}
		position := "1"
		if len(touched) > 0 {
			position = strconv.Itoa(touched[0])
		}
		text := strings.Join(parts, " ")
		chunks = append(chunks, c.split(text, docID, position, heading, meta)...)
	}

	for _, page := range pages {
		for _, el := range page.Elements {
			text := strings.TrimSpace(el.Text)
			if text == "" {
				continue
			}
			if el.Label == headerLabel {
				flush()
				heading = text
				continue
			}
			parts = append(parts, text)
			if len(touched) == 0 || touched[len(touched)-1] != page.Number {
				touched = append(touched, page.Number)
			}
		}
	}
	flush()

	return chunks
}

// FromPages performs fixed-window chunking over flat page text, one
// page at a time, tagging each chunk with its page number.
func (c *Chunker) FromPages(texts map[string]string, docID string, meta domain.DocumentMeta) []domain.Chunk {
	var chunks []domain.Chunk
	for _, page := range sortPageKeys(texts) {
		chunks = append(chunks, c.split(texts[page], docID, page, "", meta)...)
	}
	return chunks
}

// split turns one span of text into word windows. Text at or under the
// budget becomes a single chunk; longer text is re-split with overlap
// so a fact straddling a window boundary is not lost entirely to one
// side. Windows under the minimum length are dropped.
func (c *Chunker) split(text, docID, position, heading string, meta domain.DocumentMeta) []domain.Chunk {
	words := strings.Fields(text)
	if len(words) < c.minWords {
		return nil
	}

	make1 := func(ws []string) domain.Chunk {
		return domain.Chunk{
			DocumentID: docID,
			Position:   position,
			Heading:    heading,
			Text:       strings.Join(ws, " "),
			Meta:       meta,
		}
	}

	if len(words) <= c.maxWords {
		return []domain.Chunk{make1(words)}
	}

	step := c.maxWords - c.overlap
	chunks := make([]domain.Chunk, 0, len(words)/step+1)
	for start := 0; start < len(words); start += step {
		end := start + c.maxWords
		if end > len(words) {
			end = len(words)
		}
		window := words[start:end]
		if len(window) < c.minWords {
			continue
		}
		chunks = append(chunks, make1(window))
	}
	return chunks
}

// sortPageKeys orders page locators: numeric keys ascending first,
// then any non-numeric keys lexicographically.
func sortPageKeys(texts map[string]string) []string {
	keys := make([]string, 0, len(texts))
	for k := range texts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, iOK := pageNumber(keys[i])
		nj, jOK := pageNumber(keys[j])
		switch {
		case iOK && jOK:
			return ni < nj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return keys[i] < keys[j]
		}
	})
	return keys
}

func pageNumber(key string) (int, bool) {
	n, err := strconv.Atoi(key)
	if err != nil {
		return 0, false
	}
	return n, true
}
