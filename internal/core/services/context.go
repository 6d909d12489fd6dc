package services

import (
	"math"
	"strings"

	"github.com/warraq-labs/warraq/internal/core/domain"
)

// Context assembly parameters.
const (
	// DefaultMaxContextWords bounds the assembled excerpt context
	// sent to the generator.
	DefaultMaxContextWords = 5000

	// minTailWords is the smallest truncated excerpt worth keeping.
	// A shorter tail would cite a source for a fragment too small to
	// support an answer.
	minTailWords = 50

	// snippetRunes bounds the display snippet on citations.
	snippetRunes = 200

	// labelTitleWords is how many title words a citation label keeps
	// when no author is known.
	labelTitleWords = 4
)

// Label derives the short attribution for a chunk: surname-style
// author first, title fallback second, raw document identifier last.
// Clients render this verbatim and the generator is instructed to cite
// with it, so it must never be empty.
func Label(c domain.Chunk) string {
	author := firstAuthor(c.Meta.Authors)
	year := strings.TrimSpace(c.Meta.Year)

	switch {
	case author != "" && year != "":
		return author + ", " + year
	case author != "":
		return author
	}

	title := strings.TrimSpace(c.Meta.Title)
	if title == "" {
		return strings.TrimSuffix(c.DocumentID, ".pdf")
	}
	if words := strings.Fields(title); len(words) > labelTitleWords {
		title = strings.Join(words[:labelTitleWords], " ") + "…"
	}
	if year != "" {
		title += ", " + year
	}
	return title
}

// firstAuthor extracts the first entry of an "A; B; C" author list.
func firstAuthor(authors string) string {
	first, _, _ := strings.Cut(authors, ";")
	return strings.TrimSpace(first)
}

// Snippet produces the display excerpt for a citation: whitespace
// collapsed, cut at a word boundary under the rune budget.
func Snippet(text string) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= snippetRunes {
		return text
	}
	cut := string(runes[:snippetRunes])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return cut + "…"
}

// Citations projects ranked hits into their external citation shape,
// in ranking order. Scores are rounded to three decimals for display;
// ranking upstream always uses the full-precision value.
func Citations(hits []domain.Hit) []domain.SourceCitation {
	out := make([]domain.SourceCitation, len(hits))
	for i, h := range hits {
		out[i] = domain.SourceCitation{
			Label:      Label(h.Chunk),
			DocumentID: h.DocumentID,
			Position:   h.Position,
			Title:      h.Meta.Title,
			Authors:    h.Meta.Authors,
			Year:       h.Meta.Year,
			Score:      math.Round(h.Score*1000) / 1000,
			Snippet:    Snippet(h.Text),
		}
	}
	return out
}

// FormatContext renders ranked hits into the excerpt context sent to
// the generator. Each hit becomes an attributed block:
//
//	[<label>, p.<position>]
//	<chunk text>
//
// joined by "---" separator lines. The result never exceeds maxWords
// words counting headers and separators; the first hit that does not
// fit whole is word-truncated if a useful tail remains, and assembly
// stops there either way. maxWords <= 0 selects the default budget.
func FormatContext(hits []domain.Hit, maxWords int) string {
	if maxWords <= 0 {
		maxWords = DefaultMaxContextWords
	}

	var blocks []string
	used := 0
	for _, h := range hits {
		header := "[" + Label(h.Chunk) + ", p." + h.Position + "]"
		headerWords := len(strings.Fields(header))
		words := strings.Fields(h.Text)

		sep := 0
		if len(blocks) > 0 {
			sep = 1
		}

		if used+sep+headerWords+len(words) <= maxWords {
			blocks = append(blocks, header+"\n"+h.Text)
			used += sep + headerWords + len(words)
			continue
		}

		remaining := maxWords - used - sep - headerWords
		if remaining < minTailWords {
			break
		}
		blocks = append(blocks, header+"\n"+strings.Join(words[:remaining], " ")+"…")
		break
	}

	return strings.Join(blocks, "\n\n---\n\n")
}
