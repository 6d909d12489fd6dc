package domain

// DocumentMeta carries document-level bibliographic fields, denormalised
// onto every chunk so citation formatting needs no join at query time.
// Zero values mean unknown; citation labels fall back gracefully.
type DocumentMeta struct {
	// Title is the document title.
	Title string

	// Authors is the author list as a single "A; B; C" string.
	Authors string

	// Year is the publication year, kept as a string because source
	// records carry values like "c. 1154".
	Year string
}

// Chunk is the atomic retrievable unit: a span of corpus text with
// document and page provenance.
type Chunk struct {
	// DocumentID is the opaque identifier grouping chunks from the
	// same source document.
	DocumentID string

	// Position locates the chunk within its document. Page numbers
	// arrive as strings; numeric values sort correctly and
	// non-numeric locators are tolerated.
	Position string

	// Heading is the section heading the chunk falls under, when
	// layout information was available.
	Heading string

	// Text is the chunk's content. Never empty after whitespace
	// normalisation; chunks under the minimum word count are dropped
	// at construction.
	Text string

	// Meta holds the owning document's bibliographic fields.
	Meta DocumentMeta
}

// ChunkKey is the (document, position) pair results deduplicate on.
// Overlapping sub-windows from one page share a key and collapse to
// the highest-ranked occurrence.
type ChunkKey struct {
	DocumentID string
	Position   string
}

// Key returns the chunk's deduplication key.
func (c Chunk) Key() ChunkKey {
	return ChunkKey{DocumentID: c.DocumentID, Position: c.Position}
}

// LayoutElement is one labelled text region from a document's layout
// artifact.
type LayoutElement struct {
	// Label is the region type, e.g. "section_header", "text",
	// "footnote".
	Label string

	// Text is the region's extracted text.
	Text string
}

// LayoutPage holds one page's regions in reading order.
type LayoutPage struct {
	// Number is the page number the regions were extracted from.
	Number int

	// Elements are the page's regions in reading order.
	Elements []LayoutElement
}
