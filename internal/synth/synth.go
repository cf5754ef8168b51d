// Package synth renders one text document per invoice for semantic indexing.
package synth

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"nfe/internal/domain"
	"nfe/internal/tabular"
)

// documentNamespace scopes document IDs so the same invoice row always maps
// to the same ID across rebuilds.
var documentNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:nfe:document"))

// Synthesize returns one document per header row, in header order. Each
// document lists the invoice fields followed by the items sharing its access
// key. Items whose key matches no header are not rendered anywhere.
func Synthesize(ds *tabular.Dataset) []domain.SynthesizedDocument {
	headers := ds.InvoiceHeaders()
	docs := make([]domain.SynthesizedDocument, 0, len(headers))
	for i, h := range headers {
		docs = append(docs, domain.SynthesizedDocument{
			ID:        DocumentID(i, h.AccessKey),
			AccessKey: h.AccessKey,
			Number:    h.Number,
			Row:       i,
			Text:      Render(h, ds.ItemsFor(h.AccessKey)),
		})
	}
	return docs
}

// Render formats one invoice and its items.
func Render(h domain.InvoiceHeader, items []domain.InvoiceLineItem) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Nota Fiscal: %s\n", h.Number)
	fmt.Fprintf(&b, "Chave de Acesso: %s\n", h.AccessKey)
	fmt.Fprintf(&b, "Emitente: %s\n", h.IssuerName)
	fmt.Fprintf(&b, "Valor Total: %s\n", h.TotalValue)
	b.WriteString("Itens:")
	for _, it := range items {
		fmt.Fprintf(&b, "\n  - Produto: %s, Qtd: %s, Valor Total: %s", it.Description, it.Quantity, it.TotalValue)
	}
	b.WriteString("\n")
	return b.String()
}

// DocumentID derives a stable UUID from the row position and access key.
func DocumentID(row int, accessKey string) string {
	return uuid.NewSHA1(documentNamespace, []byte(fmt.Sprintf("%d:%s", row, accessKey))).String()
}
