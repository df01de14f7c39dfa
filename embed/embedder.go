package embed

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder converts text to a fixed-length numeric vector. The
// dimensionality is fixed per embedder instance; all vectors produced
// by one instance are directly comparable.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
	Name() string
}

// HashingEmbedder is a deterministic feature-hashing text embedder.
// Tokens are hashed into a fixed number of buckets with a sign bit and
// the result is L2-normalized. Unlike a trained vocabulary, the mapping
// is stable across runs, which the identity-keyed embedding cache
// requires to stay coherent between processes.
type HashingEmbedder struct {
	dims int
}

// NewHashingEmbedder creates an embedder with the given dimensionality.
func NewHashingEmbedder(dims int) *HashingEmbedder {
	if dims <= 0 {
		dims = 384
	}
	return &HashingEmbedder{dims: dims}
}

// Embed converts text to a vector. Text with no tokens yields the zero
// vector; similarity scoring guards the zero norm with an epsilon.
func (e *HashingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dims)
	words := tokenize(text)
	if len(words) == 0 {
		return vec, nil
	}

	for _, word := range words {
		h := fnv.New32a()
		h.Write([]byte(word))
		sum := h.Sum32()

		idx := int(sum % uint32(e.dims))
		if sum&0x80000000 != 0 {
			vec[idx] -= 1
		} else {
			vec[idx] += 1
		}
	}

	var norm float64
	for _, v := range vec {
		norm += float64(v) * float64(v)
	}
	if norm > 0 {
		inv := float32(1 / math.Sqrt(norm))
		for i := range vec {
			vec[i] *= inv
		}
	}
	return vec, nil
}

// Dimensions returns the vector dimensionality.
func (e *HashingEmbedder) Dimensions() int { return e.dims }

// Name identifies the embedder.
func (e *HashingEmbedder) Name() string { return "feature-hashing" }

func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}
