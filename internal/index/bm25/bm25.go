// Package bm25 implements an in-memory BM25 Okapi index over an
// ordered text sequence. Ordinal i in every score vector refers to the
// i-th text given to Build; callers own that alignment.
package bm25

import (
	"math"
	"regexp"
	"strings"
)

// Okapi parameters.
const (
	k1 = 1.5
	b  = 0.75

	// epsilon floors negative IDF values to this fraction of the
	// mean IDF, keeping terms present in most of the corpus from
	// scoring negatively.
	epsilon = 0.25
)

// tokenPattern extracts runs of at least two letters from Latin with
// diacritics plus the Arabic block. Everything else is discarded; this
// is a deliberate simplification, not linguistic tokenisation.
var tokenPattern = regexp.MustCompile(`[a-zA-ZÀ-ÿ\x{0600}-\x{06FF}']{2,}`)

// Tokenise lowercases the text and extracts index terms.
func Tokenise(text string) []string {
	return tokenPattern.FindAllString(strings.ToLower(text), -1)
}

// Index scores queries against the texts it was built from.
type Index struct {
	freqs  []map[string]int
	lens   []int
	avgLen float64
	idf    map[string]float64
}

// Build tokenises the texts and precomputes term statistics. The input
// order defines the score-vector ordinals.
func Build(texts []string) *Index {
	x := &Index{
		freqs: make([]map[string]int, len(texts)),
		lens:  make([]int, len(texts)),
	}

	df := make(map[string]int)
	total := 0
	for i, text := range texts {
		tokens := Tokenise(text)
		tf := make(map[string]int, len(tokens))
		for _, tok := range tokens {
			tf[tok]++
		}
		for tok := range tf {
			df[tok]++
		}
		x.freqs[i] = tf
		x.lens[i] = len(tokens)
		total += len(tokens)
	}
	if len(texts) > 0 {
		x.avgLen = float64(total) / float64(len(texts))
	}
	x.idf = idfTable(df, len(texts))

	return x
}

// Len returns the number of indexed texts.
func (x *Index) Len() int {
	return len(x.freqs)
}

// Scores returns every text's raw BM25 score for the query tokens.
// Raw scores are unbounded; callers normalise. No tokens, or an empty
// index, yields a zero vector.
func (x *Index) Scores(tokens []string) []float64 {
	scores := make([]float64, len(x.freqs))
	if len(tokens) == 0 || x.avgLen == 0 {
		return scores
	}

	for _, tok := range tokens {
		idf, ok := x.idf[tok]
		if !ok {
			continue
		}
		for i, tf := range x.freqs {
			f := float64(tf[tok])
			if f == 0 {
				continue
			}
			norm := 1 - b + b*float64(x.lens[i])/x.avgLen
			scores[i] += idf * (f * (k1 + 1)) / (f + k1*norm)
		}
	}

	return scores
}

// idfTable computes per-term inverse document frequency. Negative
// values (terms in over half the corpus) are floored to epsilon times
// the mean IDF, mirroring the Okapi variant with epsilon smoothing.
func idfTable(df map[string]int, n int) map[string]float64 {
	idf := make(map[string]float64, len(df))
	if len(df) == 0 {
		return idf
	}

	sum := 0.0
	var negative []string
	for term, freq := range df {
		v := math.Log(float64(n)-float64(freq)+0.5) - math.Log(float64(freq)+0.5)
		idf[term] = v
		sum += v
		if v < 0 {
			negative = append(negative, term)
		}
	}

	eps := epsilon * (sum / float64(len(idf)))
	for _, term := range negative {
		idf[term] = eps
	}

	return idf
}
