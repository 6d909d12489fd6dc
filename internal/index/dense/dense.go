// Package dense implements the resident semantic matrix: one
// L2-normalised embedding vector per chunk ordinal, scored against a
// query vector by dot product.
package dense

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
)

// fingerprintRunes bounds how much of each text the corpus
// fingerprint covers.
const fingerprintRunes = 200

// Matrix holds one normalised vector per chunk ordinal.
type Matrix struct {
	rows [][]float32
	dims int
}

// New validates that every vector shares one dimension and normalises
// each row. Row i must correspond to chunk ordinal i; callers own that
// alignment.
func New(vectors [][]float32) (*Matrix, error) {
	m := &Matrix{rows: make([][]float32, len(vectors))}
	for i, v := range vectors {
		if len(v) == 0 {
			return nil, fmt.Errorf("vector %d is empty", i)
		}
		if m.dims == 0 {
			m.dims = len(v)
		}
		if len(v) != m.dims {
			return nil, fmt.Errorf("vector %d has %d dimensions, want %d", i, len(v), m.dims)
		}
		m.rows[i] = Normalise(v)
	}
	return m, nil
}

// Len returns the number of rows.
func (m *Matrix) Len() int {
	return len(m.rows)
}

// Dims returns the vector dimension, 0 for an empty matrix.
func (m *Matrix) Dims() int {
	return m.dims
}

// Rows exposes the normalised vectors for cache persistence. The
// returned slices are live; callers must not mutate them.
func (m *Matrix) Rows() [][]float32 {
	return m.rows
}

// Scores returns each row's cosine similarity with the query,
// rescaled from [-1,1] to [0,1] so it blends with lexical scores on a
// comparable scale. Rows were normalised at construction and the
// query is normalised here, so cosine reduces to a dot product. A
// query of the wrong dimension yields a zero vector.
func (m *Matrix) Scores(query []float32) []float64 {
	scores := make([]float64, len(m.rows))
	if m.dims == 0 || len(query) != m.dims {
		return scores
	}

	q := Normalise(query)
	for i, row := range m.rows {
		var dot float64
		for j := range row {
			dot += float64(row[j]) * float64(q[j])
		}
		scores[i] = (dot + 1) / 2
	}

	return scores
}

// Normalise returns v scaled to unit length. Zero vectors come back
// unchanged.
func Normalise(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return v
	}

	inv := 1 / math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// Fingerprint hashes a bounded prefix of every text, in order. Two
// corpora sharing a fingerprint embed identically, so a cached matrix
// can be reused. Prefixes are length-prefixed so shifting text across
// a chunk boundary changes the hash.
func Fingerprint(texts []string) string {
	h := sha256.New()
	var lenBuf [4]byte
	for _, text := range texts {
		prefix := text
		if runes := []rune(text); len(runes) > fingerprintRunes {
			prefix = string(runes[:fingerprintRunes])
		}
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(prefix)))
		h.Write(lenBuf[:])
		h.Write([]byte(prefix))
	}
	return hex.EncodeToString(h.Sum(nil))
}
