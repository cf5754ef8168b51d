// Package query routes free-text queries to structured lookups over the
// loaded exports or to semantic search over the knowledge base.
package query

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"nfe/internal/domain"
	"nfe/internal/tabular"
)

// DefaultTopK is the number of semantic neighbors returned by default.
const DefaultTopK = 3

var errNoSearcher = errors.New("semantic search is not configured")

// Result is the outcome of one routed query. Exactly one of the payload
// fields is meaningful, selected by Classification.Intent and ItemsTerm.
type Result struct {
	Query          string
	Classification Classification
	ItemsTerm      ItemsTerm

	Invoices   []domain.InvoiceHeader
	ItemGroups []ItemGroup
	Items      []domain.InvoiceLineItem
	Semantic   []string
}

// Router dispatches classified queries.
type Router struct {
	searcher domain.SemanticSearcher
	topK     int
	logger   *zap.Logger
}

// NewRouter returns a Router. A non-positive topK selects DefaultTopK.
func NewRouter(searcher domain.SemanticSearcher, topK int, logger *zap.Logger) *Router {
	if topK <= 0 {
		topK = DefaultTopK
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{searcher: searcher, topK: topK, logger: logger}
}

// Route answers q. Structured lookups never fail; empty results are valid.
// A failing semantic search is reported as domain.ErrUnrecognizedQuery with
// the cause attached.
func (r *Router) Route(ctx context.Context, ds *tabular.Dataset, q string) (*Result, error) {
	c := Classify(q)
	res := &Result{Query: q, Classification: c}
	r.logger.Debug("routing query", zap.String("intent", string(c.Intent)), zap.String("token", c.Token))

	switch c.Intent {
	case IntentByNumber:
		res.Invoices = ByNumber(ds, c.Token)
	case IntentByAccessKey:
		res.Invoices = ByAccessKey(ds, c.Token)
	case IntentByIssuer:
		res.Invoices = ByIssuer(ds, c.Token)
	case IntentByItems:
		r.routeItems(ds, res)
	default:
		if r.searcher == nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnrecognizedQuery, errNoSearcher)
		}
		texts, err := r.searcher.Search(ctx, c.Token, r.topK)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrUnrecognizedQuery, err)
		}
		res.Semantic = texts
	}
	return res, nil
}

func (r *Router) routeItems(ds *tabular.Dataset, res *Result) {
	term := ClassifyItemsTerm(res.Classification.Token)
	var keys []string
	switch term.Kind {
	case ItemsByKey:
		keys = []string{term.Value}
	case ItemsByNumber:
		keys = KeysForNumber(ds, term.Value)
		if len(keys) == 0 {
			// unknown numbers fall back to the generic scan
			term = ItemsTerm{Kind: ItemsGeneric, Value: res.Classification.Token}
		}
	}
	res.ItemsTerm = term
	if term.Kind == ItemsGeneric {
		res.Items = SearchEverywhere(ds, term.Value)
		return
	}
	res.ItemGroups = ItemsForKeys(ds, keys)
	for _, g := range res.ItemGroups {
		if g.Skipped > 0 {
			r.logger.Debug("item totals left out of sum",
				zap.String("access_key", g.AccessKey),
				zap.Int("skipped", g.Skipped),
			)
		}
	}
}
