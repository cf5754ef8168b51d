package query

import (
	"strings"

	"github.com/shopspring/decimal"

	"nfe/internal/domain"
	"nfe/internal/money"
	"nfe/internal/tabular"
)

// ByNumber returns the headers whose number contains token, in table order.
func ByNumber(ds *tabular.Dataset, token string) []domain.InvoiceHeader {
	return filterHeaders(ds, func(h domain.InvoiceHeader) bool {
		return strings.Contains(h.Number, token)
	})
}

// ByAccessKey returns the headers whose access key contains token.
func ByAccessKey(ds *tabular.Dataset, token string) []domain.InvoiceHeader {
	token = tabular.CanonicalKey(token)
	return filterHeaders(ds, func(h domain.InvoiceHeader) bool {
		return strings.Contains(h.AccessKey, token)
	})
}

// ByIssuer returns the headers whose issuer name contains token, ignoring case.
func ByIssuer(ds *tabular.Dataset, token string) []domain.InvoiceHeader {
	token = strings.ToLower(token)
	return filterHeaders(ds, func(h domain.InvoiceHeader) bool {
		return strings.Contains(strings.ToLower(h.IssuerName), token)
	})
}

func filterHeaders(ds *tabular.Dataset, keep func(domain.InvoiceHeader) bool) []domain.InvoiceHeader {
	var out []domain.InvoiceHeader
	for _, h := range ds.InvoiceHeaders() {
		if keep(h) {
			out = append(out, h)
		}
	}
	return out
}

// KeysForNumber resolves a (partial) invoice number to access keys, in
// table order, each key once.
func KeysForNumber(ds *tabular.Dataset, digits string) []string {
	var keys []string
	seen := make(map[string]bool)
	for _, h := range ByNumber(ds, digits) {
		if seen[h.AccessKey] {
			continue
		}
		seen[h.AccessKey] = true
		keys = append(keys, h.AccessKey)
	}
	return keys
}

// ItemGroup is one invoice and its items, with the best-effort sum of the
// item totals.
type ItemGroup struct {
	AccessKey   string
	Header      domain.InvoiceHeader
	HeaderFound bool
	Items       []domain.InvoiceLineItem
	Sum         decimal.Decimal
	// Skipped counts item totals that did not parse and were left out of Sum.
	Skipped int
}

// ItemsForKeys groups the items of each key under its first header row.
func ItemsForKeys(ds *tabular.Dataset, keys []string) []ItemGroup {
	groups := make([]ItemGroup, 0, len(keys))
	for _, key := range keys {
		g := ItemGroup{AccessKey: key}
		g.Header, g.HeaderFound = ds.HeaderFor(key)
		g.Items = ds.ItemsFor(key)
		totals := make([]string, len(g.Items))
		for i, it := range g.Items {
			totals[i] = it.TotalValue
		}
		g.Sum, g.Skipped = money.Sum(totals)
		groups = append(groups, g)
	}
	return groups
}

// SearchEverywhere returns the items having any cell that contains term,
// ignoring case.
func SearchEverywhere(ds *tabular.Dataset, term string) []domain.InvoiceLineItem {
	term = strings.ToLower(term)
	items := ds.LineItems()
	var out []domain.InvoiceLineItem
	for i, row := range ds.Items.Rows {
		for _, cell := range row {
			if strings.Contains(strings.ToLower(cell), term) {
				out = append(out, items[i])
				break
			}
		}
	}
	return out
}
