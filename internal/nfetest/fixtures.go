// Package nfetest builds NF-e export fixtures for tests.
package nfetest

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"nfe/internal/bundle"
)

// Access keys of the sample invoices.
const (
	KeyLojaX   = "50240129843878000170550010003691801000181553"
	KeyMercado = "50240112345678000190550010000025251000099991"
	KeyOrphan  = "35240199999999000199550010000000011000000017"
)

// HeaderColumns are the header-file column titles as the export spells them.
var HeaderColumns = []string{
	"CHAVE DE ACESSO", "MODELO", "SÉRIE", "NÚMERO", "NATUREZA DA OPERAÇÃO",
	"DATA EMISSÃO", "EVENTO MAIS RECENTE", "DATA/HORA EVENTO MAIS RECENTE",
	"CPF/CNPJ Emitente", "RAZÃO SOCIAL EMITENTE", "INSCRIÇÃO ESTADUAL EMITENTE",
	"UF EMITENTE", "MUNICÍPIO EMITENTE", "CNPJ DESTINATÁRIO", "NOME DESTINATÁRIO",
	"UF DESTINATÁRIO", "INDICADOR IE DESTINATÁRIO", "DESTINO DA OPERAÇÃO",
	"CONSUMIDOR FINAL", "PRESENÇA DO COMPRADOR", "VALOR NOTA FISCAL",
}

// ItemColumns are the item-file column titles as the export spells them.
var ItemColumns = []string{
	"CHAVE DE ACESSO", "NÚMERO", "RAZÃO SOCIAL EMITENTE", "NÚMERO PRODUTO",
	"DESCRIÇÃO DO PRODUTO/SERVIÇO", "CÓDIGO NCM/SH", "CFOP", "QUANTIDADE",
	"UNIDADE", "VALOR UNITÁRIO", "VALOR TOTAL",
}

// Invoice is one header row and its items.
type Invoice struct {
	AccessKey string
	Number    string
	Issuer    string
	Total     string
	Items     []Item
}

// Item is one line item. An empty AccessKey inherits the parent invoice's.
type Item struct {
	AccessKey   string
	Description string
	Quantity    string
	UnitValue   string
	Total       string
}

// Sample returns two invoices; the first is the LOJA X scenario.
func Sample() []Invoice {
	return []Invoice{
		{
			AccessKey: KeyLojaX, Number: "369180", Issuer: "LOJA X", Total: "120,00",
			Items: []Item{
				{Description: "ARROZ TIPO 1 5KG", Quantity: "2", UnitValue: "25,00", Total: "50,00"},
				{Description: "FEIJAO CARIOCA 1KG", Quantity: "10", UnitValue: "7,00", Total: "70,00"},
			},
		},
		{
			AccessKey: KeyMercado, Number: "2525", Issuer: "SUPERMERCADO XYZ LTDA", Total: "35,90",
			Items: []Item{
				{Description: "CAFE TORRADO 500G", Quantity: "1", UnitValue: "35,90", Total: "35,90"},
			},
		},
	}
}

// HeaderCSV renders invoices as a ';'-delimited header file.
func HeaderCSV(invs []Invoice) string {
	var b strings.Builder
	writeRow(&b, HeaderColumns)
	for _, inv := range invs {
		writeRow(&b, []string{
			inv.AccessKey, "55", "1", inv.Number, "VENDA DE MERCADORIA",
			"2024-01-15 10:00:00", "Autorização de Uso", "2024-01-15 10:01:00",
			"29843878000170", inv.Issuer, "123456789",
			"MS", "CAMPO GRANDE", "01234567000189", "SECRETARIA DE SAUDE",
			"MS", "9", "1 - OPERAÇÃO INTERNA",
			"1 - CONSUMIDOR FINAL", "1 - OPERAÇÃO PRESENCIAL", inv.Total,
		})
	}
	return b.String()
}

// ItemsCSV renders the items of invs, followed by extra rows, as a
// ';'-delimited item file.
func ItemsCSV(invs []Invoice, extra ...Item) string {
	var b strings.Builder
	writeRow(&b, ItemColumns)
	n := 0
	row := func(key, number, issuer string, it Item) {
		n++
		if it.AccessKey != "" {
			key = it.AccessKey
		}
		writeRow(&b, []string{
			key, number, issuer, strconv.Itoa(n),
			it.Description, "10063021", "5102", it.Quantity,
			"UN", it.UnitValue, it.Total,
		})
	}
	for _, inv := range invs {
		for _, it := range inv.Items {
			row(inv.AccessKey, inv.Number, inv.Issuer, it)
		}
	}
	for _, it := range extra {
		row("", "", "", it)
	}
	return b.String()
}

// WriteSources writes the export files of invs into dir with the
// 202401_NFs_* naming convention.
func WriteSources(tb testing.TB, dir string, invs []Invoice, extra ...Item) bundle.SourceFiles {
	tb.Helper()
	require.NoError(tb, os.MkdirAll(dir, 0o755))
	src := bundle.SourceFiles{
		Header: filepath.Join(dir, "202401"+bundle.HeaderSuffix+".csv"),
		Items:  filepath.Join(dir, "202401"+bundle.ItemsSuffix+".csv"),
	}
	require.NoError(tb, os.WriteFile(src.Header, []byte(HeaderCSV(invs)), 0o644))
	require.NoError(tb, os.WriteFile(src.Items, []byte(ItemsCSV(invs, extra...)), 0o644))
	return src
}

// WriteBundle zips the export files of invs and returns the archive path.
func WriteBundle(tb testing.TB, invs []Invoice) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "202401_NFe.zip")
	f, err := os.Create(path)
	require.NoError(tb, err)
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"202401" + bundle.HeaderSuffix + ".csv": HeaderCSV(invs),
		"202401" + bundle.ItemsSuffix + ".csv":  ItemsCSV(invs),
	} {
		w, err := zw.Create(name)
		require.NoError(tb, err)
		_, err = w.Write([]byte(body))
		require.NoError(tb, err)
	}
	require.NoError(tb, zw.Close())
	require.NoError(tb, f.Close())
	return path
}

func writeRow(b *strings.Builder, cells []string) {
	for i, c := range cells {
		if i > 0 {
			b.WriteByte(';')
		}
		b.WriteByte('"')
		b.WriteString(strings.ReplaceAll(c, `"`, `""`))
		b.WriteByte('"')
	}
	b.WriteByte('\n')
}
