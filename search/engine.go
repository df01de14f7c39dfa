package search

import (
	"context"
	"fmt"

	"photoindex/embed"
	"photoindex/metadata"
	"photoindex/types"
)

// Score assigned to results that matched on metadata only. Combined
// search never re-ranks these against text matches; downstream
// consumers depend on the ordering policy.
const metadataMatchScore = 0.5

// Engine composes the similarity index with the metadata store into
// combined, ranked queries.
type Engine struct {
	index    *Index
	store    *metadata.Store
	embedder embed.Embedder
}

// NewEngine wires an engine from its long-lived collaborators.
func NewEngine(index *Index, store *metadata.Store, embedder embed.Embedder) *Engine {
	return &Engine{index: index, store: store, embedder: embedder}
}

// SearchByText embeds the query and ranks indexed images by cosine
// similarity.
func (e *Engine) SearchByText(ctx context.Context, query string, topK int) ([]types.SearchResult, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("cannot embed query: %v", err)
	}
	return e.index.SearchByVector(vec, topK), nil
}

// SearchByMetadata returns the identities satisfying every filter, in
// metadata store insertion order.
func (e *Engine) SearchByMetadata(filters map[string]interface{}) ([]string, error) {
	return e.store.Filter(filters)
}

// SearchCombined merges a text query with metadata filters. Text
// matches come first in ranked order; metadata-only matches are then
// appended in filter-scan order with a fixed placeholder score, and the
// combined sequence is truncated to limit. Identities already present
// from the text stage are not duplicated.
func (e *Engine) SearchCombined(ctx context.Context, textQuery string, filters map[string]interface{}, limit int) ([]types.SearchResult, error) {
	var results []types.SearchResult

	if textQuery != "" {
		textResults, err := e.SearchByText(ctx, textQuery, limit)
		if err != nil {
			return nil, err
		}
		results = textResults
	}

	if len(filters) > 0 {
		identities, err := e.store.Filter(filters)
		if err != nil {
			return nil, err
		}

		seen := make(map[string]bool, len(results))
		for _, r := range results {
			seen[r.Identity] = true
		}
		for _, id := range identities {
			if seen[id] {
				continue
			}
			results = append(results, types.SearchResult{
				Identity: id,
				Score:    metadataMatchScore,
				Source:   types.SourceMetadata,
			})
		}
	}

	if limit >= 0 && len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// GetRecord returns the full metadata record for an identity.
func (e *Engine) GetRecord(identity string) (types.ImageRecord, bool, error) {
	return e.store.Get(identity)
}
