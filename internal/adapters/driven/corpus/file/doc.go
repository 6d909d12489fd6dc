// Package file reads extraction artifacts from the corpus directory
// produced by the PDF pipeline: one subdirectory per document holding
// layout_elements.json, page_texts.json and translation.json, plus an
// inventory.json of bibliographic records at the root.
//
// Artifact problems are soft: a missing or malformed artifact reports
// domain.ErrArtifactMissing so the chunker falls through to the next
// artifact in its priority order. Only an unreadable corpus root fails
// a build outright.
package file
