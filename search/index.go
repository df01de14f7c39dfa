package search

import (
	"math"
	"sort"
	"sync"

	"photoindex/types"
)

const cosineEpsilon = 1e-8

// Entry pairs an image identity with its embedding vector.
type Entry struct {
	Identity string
	Vector   []float32
}

// Index is an in-memory similarity index: a derived view over the
// embedding cache, rebuilt from it and never independently
// authoritative. Entries are held in sorted-identity order, so the
// tie-break among equal scores is stable for a given cache state.
type Index struct {
	mu      sync.RWMutex
	entries []Entry
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{}
}

// Rebuild replaces the index contents from a cache snapshot.
func (ix *Index) Rebuild(vectors map[string][]float32) {
	ids := make([]string, 0, len(vectors))
	for id := range vectors {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	entries := make([]Entry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, Entry{Identity: id, Vector: vectors[id]})
	}

	ix.mu.Lock()
	ix.entries = entries
	ix.mu.Unlock()
}

// Len returns the number of indexed vectors.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.entries)
}

// SearchByVector scores every indexed vector against the query by
// cosine similarity and returns the top K results in descending score
// order. An empty index yields an empty result, never an error; fewer
// than topK entries yields all of them.
func (ix *Index) SearchByVector(query []float32, topK int) []types.SearchResult {
	if topK <= 0 {
		return nil
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	results := make([]types.SearchResult, 0, len(ix.entries))
	for _, e := range ix.entries {
		results = append(results, types.SearchResult{
			Identity: e.Identity,
			Score:    Cosine(query, e.Vector),
			Source:   types.SourceText,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Cosine returns the cosine similarity of two vectors. A small epsilon
// in the denominator guards the all-zero vector case, so the result is
// always finite.
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var dot, normA, normB float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	return dot / (math.Sqrt(normA)*math.Sqrt(normB) + cosineEpsilon)
}
