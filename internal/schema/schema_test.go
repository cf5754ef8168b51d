package schema_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nfe/internal/domain"
	"nfe/internal/schema"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"CHAVE DE ACESSO", "CHAVE_DE_ACESSO"},
		{"  Número ", "NUMERO"},
		{"DESCRIÇÃO DO PRODUTO/SERVIÇO", "DESCRICAO_DO_PRODUTO_SERVICO"},
		{"CPF/CNPJ Emitente", "CPF_CNPJ_EMITENTE"},
		{"DATA/HORA EVENTO MAIS RECENTE", "DATA_HORA_EVENTO_MAIS_RECENTE"},
		{"PRESENÇA DO COMPRADOR", "PRESENCA_DO_COMPRADOR"},
		{"", ""},
		{"   ", ""},
		{"/", "_"},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, schema.Normalize(tt.raw))
		})
	}
}

func TestNormalize_DiacriticVariantsCollapse(t *testing.T) {
	for _, raw := range []string{"Descrição", "Descricao", "DESCRIÇÃO", "descriçao"} {
		assert.Equal(t, "DESCRICAO", schema.Normalize(raw), raw)
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"Razão Social Emitente", "x ́", "x\t́", " Município/UF ", "ÀÉÎÕÜ çñ",
		"VALOR UNITÁRIO", "a//b  c", "́", "Ñandú", "naïve café",
		"ǰanela", "ΐ",
	}
	for _, in := range inputs {
		once := schema.Normalize(in)
		assert.Equal(t, once, schema.Normalize(once), "input %q", in)
	}
}

func TestNormalize_LettersWithoutPrecomposedUpperCase(t *testing.T) {
	assert.Equal(t, "JANELA", schema.Normalize("ǰanela"))
	assert.Equal(t, "Ι", schema.Normalize("ΐ"))
}

func headerColumns() []string {
	cols := make([]string, 0, len(schema.Header.Columns))
	for _, c := range schema.Header.Columns {
		cols = append(cols, c.Name)
	}
	return cols
}

func TestResolve_Header(t *testing.T) {
	m, err := schema.Header.Resolve(headerColumns())
	require.NoError(t, err)
	assert.Equal(t, 0, m.Index(schema.AccessKey))
	assert.Equal(t, 3, m.Index(schema.Number))
	assert.Equal(t, len(schema.Header.Columns)-1, m.Index(schema.TotalValue))
}

func TestResolve_OptionalColumnsMayBeAbsent(t *testing.T) {
	var cols []string
	for _, c := range schema.Header.Columns {
		if c.Required {
			cols = append(cols, c.Name)
		}
	}
	m, err := schema.Header.Resolve(cols)
	require.NoError(t, err)
	assert.Equal(t, -1, m.Index(schema.LatestEvent))
	assert.Equal(t, -1, m.Index(schema.BuyerPresence))
}

func TestResolve_MissingRequired(t *testing.T) {
	_, err := schema.Items.Resolve([]string{"CHAVE_DE_ACESSO", "QUANTIDADE"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrDataSource)
	assert.Contains(t, err.Error(), "product_description")
	assert.Contains(t, err.Error(), "VALOR_TOTAL")
}

func TestResolve_ProductDescriptionDetected(t *testing.T) {
	cols := []string{"CHAVE_DE_ACESSO", "NUMERO_PRODUTO", "DESCRICAO_DO_PRODUTO_SERVICO", "QUANTIDADE", "VALOR_TOTAL"}
	m, err := schema.Items.Resolve(cols)
	require.NoError(t, err)
	assert.Equal(t, 1, m.Index(schema.ProductNumber))
	assert.Equal(t, 2, m.Index(schema.ProductDescription))
	assert.Equal(t, -1, m.Index(schema.UnitValue))
}
