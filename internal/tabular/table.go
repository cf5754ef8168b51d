// Package tabular loads the NF-e header and item datasets into in-memory
// tables with canonical column names.
package tabular

import (
	"strings"

	"nfe/internal/domain"
	"nfe/internal/schema"
)

// Table is a loaded delimited file: canonical column names and string cells.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
	Mapping schema.Mapping
}

// Len returns the number of data rows.
func (t *Table) Len() int { return len(t.Rows) }

// Value returns the cell of field f in row i, or "" when the table has no
// such column.
func (t *Table) Value(i int, f schema.Field) string {
	idx := t.Mapping.Index(f)
	if idx < 0 {
		return ""
	}
	return t.Rows[i][idx]
}

// Dataset is the pair of aligned tables of one export period.
type Dataset struct {
	Headers *Table
	Items   *Table

	headers []domain.InvoiceHeader
	items   []domain.InvoiceLineItem
	itemsBy map[string][]domain.InvoiceLineItem
}

// NewDataset builds typed views over the two tables.
func NewDataset(headers, items *Table) *Dataset {
	ds := &Dataset{Headers: headers, Items: items}
	ds.headers = make([]domain.InvoiceHeader, headers.Len())
	for i := range headers.Rows {
		ds.headers[i] = headerAt(headers, i)
	}
	ds.items = make([]domain.InvoiceLineItem, items.Len())
	ds.itemsBy = make(map[string][]domain.InvoiceLineItem)
	for i := range items.Rows {
		it := itemAt(items, i)
		ds.items[i] = it
		ds.itemsBy[it.AccessKey] = append(ds.itemsBy[it.AccessKey], it)
	}
	return ds
}

// InvoiceHeaders returns the header rows in table order.
func (d *Dataset) InvoiceHeaders() []domain.InvoiceHeader { return d.headers }

// LineItems returns the item rows in table order.
func (d *Dataset) LineItems() []domain.InvoiceLineItem { return d.items }

// ItemsFor returns the items of the invoice with the given access key, in
// table order. Unknown keys yield nil.
func (d *Dataset) ItemsFor(accessKey string) []domain.InvoiceLineItem {
	return d.itemsBy[CanonicalKey(accessKey)]
}

// HeaderFor returns the first header row with the given access key.
func (d *Dataset) HeaderFor(accessKey string) (domain.InvoiceHeader, bool) {
	key := CanonicalKey(accessKey)
	for _, h := range d.headers {
		if h.AccessKey == key {
			return h, true
		}
	}
	return domain.InvoiceHeader{}, false
}

// CanonicalKey strips the whitespace exports sometimes leave inside access keys.
func CanonicalKey(s string) string {
	return strings.Join(strings.Fields(s), "")
}

func headerAt(t *Table, i int) domain.InvoiceHeader {
	v := func(f schema.Field) string { return t.Value(i, f) }
	return domain.InvoiceHeader{
		AccessKey:            CanonicalKey(v(schema.AccessKey)),
		Model:                v(schema.Model),
		Series:               v(schema.Series),
		Number:               v(schema.Number),
		OperationNature:      v(schema.OperationNature),
		EmissionDate:         v(schema.EmissionDate),
		LatestEvent:          v(schema.LatestEvent),
		LatestEventAt:        v(schema.LatestEventAt),
		IssuerTaxID:          v(schema.IssuerTaxID),
		IssuerName:           v(schema.IssuerName),
		IssuerStateReg:       v(schema.IssuerStateReg),
		IssuerState:          v(schema.IssuerState),
		IssuerCity:           v(schema.IssuerCity),
		RecipientTaxID:       v(schema.RecipientTaxID),
		RecipientName:        v(schema.RecipientName),
		RecipientState:       v(schema.RecipientState),
		RecipientIEIndicator: v(schema.RecipientIEIndicator),
		OperationDestination: v(schema.OperationDestination),
		FinalConsumer:        v(schema.FinalConsumer),
		BuyerPresence:        v(schema.BuyerPresence),
		TotalValue:           v(schema.TotalValue),
	}
}

func itemAt(t *Table, i int) domain.InvoiceLineItem {
	v := func(f schema.Field) string { return t.Value(i, f) }
	return domain.InvoiceLineItem{
		AccessKey:     CanonicalKey(v(schema.AccessKey)),
		Number:        v(schema.Number),
		ProductNumber: v(schema.ProductNumber),
		Description:   v(schema.ProductDescription),
		NCM:           v(schema.NCM),
		CFOP:          v(schema.CFOP),
		Quantity:      v(schema.Quantity),
		Unit:          v(schema.Unit),
		UnitValue:     v(schema.UnitValue),
		TotalValue:    v(schema.TotalValue),
		Row:           i,
	}
}
