package domain

import "context"

// SemanticSearcher returns the texts of the k documents nearest to query,
// in the backend's native order. A missing index yields an empty result.
type SemanticSearcher interface {
	Search(ctx context.Context, query string, k int) ([]string, error)
}
