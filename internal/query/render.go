package query

import (
	"fmt"
	"io"
	"strings"

	"nfe/internal/domain"
	"nfe/internal/money"
)

// Usage is the query help shown before prompting.
const Usage = `Pesquisa de NF-e
Digite sua pergunta ou termo de busca conforme abaixo:
- Para buscar uma nota fiscal, digite: nota <numero>
  Exemplo: nota 369180
- Para buscar uma nota pelo número da chave de acesso, digite: chave de acesso <chave>
  Exemplo: chave de acesso 50240129843878000170550010000025251000181553
- Para buscar os itens de uma nota, digite: itens <numero ou chave ou termo>
  Exemplo: itens 2525
           itens 50240129843878000170550010000025251000181553
           itens arroz
- Para buscar por emitente, digite: emitente <nome>
  Exemplo: emitente supermercado xyz
- Qualquer outro texto faz uma busca semântica na base de conhecimentos.
`

const emptyValue = "(valor vazio)"

// Render writes the user-facing answer.
func (r *Result) Render(w io.Writer) error {
	var b strings.Builder
	switch r.Classification.Intent {
	case IntentByNumber:
		renderInvoices(&b, r.Invoices, "Nenhuma nota encontrada com esse número.")
	case IntentByAccessKey:
		renderInvoices(&b, r.Invoices, "Nenhuma nota encontrada com essa chave de acesso.")
	case IntentByIssuer:
		renderInvoices(&b, r.Invoices, "Nenhuma nota encontrada para esse emitente.")
	case IntentByItems:
		if r.ItemsTerm.Kind == ItemsGeneric {
			renderItemMatches(&b, r.Query, r.Items)
		} else {
			for _, g := range r.ItemGroups {
				renderGroup(&b, g)
			}
		}
	default:
		renderSemantic(&b, r.Semantic)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// RenderError writes the message shown when a query cannot be answered.
func RenderError(w io.Writer, err error) error {
	_, werr := fmt.Fprintf(w, "Comando não reconhecido. Por favor, use os formatos indicados no prompt.\n(Erro semântico: %v)\n", err)
	return werr
}

func renderInvoices(b *strings.Builder, invs []domain.InvoiceHeader, none string) {
	if len(invs) == 0 {
		b.WriteString(none + "\n")
		return
	}
	for i, h := range invs {
		fmt.Fprintf(b, "\nResultado %d:\n", i+1)
		fmt.Fprintf(b, "Nota Fiscal: %s\n", orEmpty(h.Number))
		fmt.Fprintf(b, "Chave de Acesso: %s\n", orEmpty(h.AccessKey))
		fmt.Fprintf(b, "Emitente: %s\n", orEmpty(h.IssuerName))
		fmt.Fprintf(b, "Valor Total: %s\n", orEmpty(h.TotalValue))
	}
}

func renderGroup(b *strings.Builder, g ItemGroup) {
	fmt.Fprintf(b, "\nNota Fiscal: %s\n", orEmpty(g.Header.Number))
	fmt.Fprintf(b, "Chave de Acesso: %s\n", orEmpty(g.AccessKey))
	fmt.Fprintf(b, "Emitente: %s\n", orEmpty(g.Header.IssuerName))
	fmt.Fprintf(b, "Valor Total da Nota: %s\n", orEmpty(g.Header.TotalValue))
	if len(g.Items) == 0 {
		b.WriteString("Nenhum item encontrado para essa nota.\n")
		return
	}
	b.WriteString("Itens:\n")
	for _, it := range g.Items {
		renderItem(b, it)
	}
	fmt.Fprintf(b, "Soma dos valores dos itens: %s\n", money.Format(g.Sum))
}

func renderItemMatches(b *strings.Builder, q string, items []domain.InvoiceLineItem) {
	if len(items) == 0 {
		b.WriteString("Nenhum item encontrado para essa consulta.\n")
		return
	}
	fmt.Fprintf(b, "\nItens encontrados para a consulta '%s':\n", strings.TrimSpace(q))
	for _, it := range items {
		renderItem(b, it)
	}
}

func renderItem(b *strings.Builder, it domain.InvoiceLineItem) {
	fmt.Fprintf(b, "- Produto: %s, Quantidade: %s, Valor Total: %s\n", it.Description, it.Quantity, it.TotalValue)
}

func renderSemantic(b *strings.Builder, texts []string) {
	if len(texts) == 0 {
		b.WriteString("Nenhum resultado encontrado para sua consulta.\n")
		return
	}
	b.WriteString("\nResultados semânticos encontrados:\n")
	for i, t := range texts {
		fmt.Fprintf(b, "\nResultado %d:\n%s", i+1, t)
		if !strings.HasSuffix(t, "\n") {
			b.WriteString("\n")
		}
	}
}

func orEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return emptyValue
	}
	return s
}
