package schema

import (
	"fmt"
	"strings"

	"nfe/internal/domain"
)

// Field is a logical attribute the system reads from a table, independent of
// how the source file spells its column.
type Field string

const (
	AccessKey            Field = "access_key"
	Model                Field = "model"
	Series               Field = "series"
	Number               Field = "number"
	OperationNature      Field = "operation_nature"
	EmissionDate         Field = "emission_date"
	LatestEvent          Field = "latest_event"
	LatestEventAt        Field = "latest_event_at"
	IssuerTaxID          Field = "issuer_tax_id"
	IssuerName           Field = "issuer_name"
	IssuerStateReg       Field = "issuer_state_registration"
	IssuerState          Field = "issuer_state"
	IssuerCity           Field = "issuer_city"
	RecipientTaxID       Field = "recipient_tax_id"
	RecipientName        Field = "recipient_name"
	RecipientState       Field = "recipient_state"
	RecipientIEIndicator Field = "recipient_ie_indicator"
	OperationDestination Field = "operation_destination"
	FinalConsumer        Field = "final_consumer"
	BuyerPresence        Field = "buyer_presence"
	TotalValue           Field = "total_value"

	ProductNumber      Field = "product_number"
	ProductDescription Field = "product_description"
	NCM                Field = "ncm"
	CFOP               Field = "cfop"
	Quantity           Field = "quantity"
	Unit               Field = "unit"
	UnitValue          Field = "unit_value"
)

// Column binds a Field to a canonical column name, or to a predicate over
// canonical names when the export does not spell the column consistently.
type Column struct {
	Field    Field
	Name     string
	Match    func(canonical string) bool
	Required bool
}

func (c Column) matches(canonical string) bool {
	if c.Match != nil {
		return c.Match(canonical)
	}
	return canonical == c.Name
}

func (c Column) describe() string {
	if c.Name != "" {
		return c.Name
	}
	return string(c.Field)
}

// Schema is an ordered table of the columns expected in one source file.
type Schema struct {
	Name    string
	Columns []Column
}

// Header is the schema of the <period>_NFs_Cabecalho file.
var Header = Schema{
	Name: "header",
	Columns: []Column{
		{Field: AccessKey, Name: "CHAVE_DE_ACESSO", Required: true},
		{Field: Model, Name: "MODELO", Required: true},
		{Field: Series, Name: "SERIE", Required: true},
		{Field: Number, Name: "NUMERO", Required: true},
		{Field: OperationNature, Name: "NATUREZA_DA_OPERACAO", Required: true},
		{Field: EmissionDate, Name: "DATA_EMISSAO", Required: true},
		{Field: LatestEvent, Name: "EVENTO_MAIS_RECENTE"},
		{Field: LatestEventAt, Name: "DATA_HORA_EVENTO_MAIS_RECENTE"},
		{Field: IssuerTaxID, Name: "CPF_CNPJ_EMITENTE", Required: true},
		{Field: IssuerName, Name: "RAZAO_SOCIAL_EMITENTE", Required: true},
		{Field: IssuerStateReg, Name: "INSCRICAO_ESTADUAL_EMITENTE"},
		{Field: IssuerState, Name: "UF_EMITENTE", Required: true},
		{Field: IssuerCity, Name: "MUNICIPIO_EMITENTE"},
		{Field: RecipientTaxID, Name: "CNPJ_DESTINATARIO", Required: true},
		{Field: RecipientName, Name: "NOME_DESTINATARIO", Required: true},
		{Field: RecipientState, Name: "UF_DESTINATARIO", Required: true},
		{Field: RecipientIEIndicator, Name: "INDICADOR_IE_DESTINATARIO"},
		{Field: OperationDestination, Name: "DESTINO_DA_OPERACAO"},
		{Field: FinalConsumer, Name: "CONSUMIDOR_FINAL"},
		{Field: BuyerPresence, Name: "PRESENCA_DO_COMPRADOR"},
		{Field: TotalValue, Name: "VALOR_NOTA_FISCAL", Required: true},
	},
}

// Items is the schema of the <period>_NFs_Itens file. Columns it does not
// list are kept in the table under their canonical names.
var Items = Schema{
	Name: "items",
	Columns: []Column{
		{Field: AccessKey, Name: "CHAVE_DE_ACESSO", Required: true},
		{Field: Number, Name: "NUMERO"},
		{Field: ProductNumber, Name: "NUMERO_PRODUTO"},
		{Field: ProductDescription, Match: isProductDescription, Required: true},
		{Field: NCM, Name: "CODIGO_NCM_SH"},
		{Field: CFOP, Name: "CFOP"},
		{Field: Quantity, Name: "QUANTIDADE", Required: true},
		{Field: Unit, Name: "UNIDADE"},
		{Field: UnitValue, Name: "VALOR_UNITARIO"},
		{Field: TotalValue, Name: "VALOR_TOTAL", Required: true},
	},
}

func isProductDescription(canonical string) bool {
	return strings.Contains(canonical, "PRODUTO") && strings.Contains(canonical, "DESCR")
}

// Mapping is the resolved position of every field found in a table.
type Mapping map[Field]int

// Index returns the column position of f, or -1 when the table lacks it.
func (m Mapping) Index(f Field) int {
	if i, ok := m[f]; ok {
		return i
	}
	return -1
}

// Resolve locates every column of s among the canonical column names of a
// loaded table. It fails when a required column is absent.
func (s Schema) Resolve(columns []string) (Mapping, error) {
	m := make(Mapping, len(s.Columns))
	var missing []string
	for _, col := range s.Columns {
		idx := -1
		for i, name := range columns {
			if col.matches(name) {
				idx = i
				break
			}
		}
		if idx < 0 {
			if col.Required {
				missing = append(missing, col.describe())
			}
			continue
		}
		m[col.Field] = idx
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s file is missing required columns: %s",
			domain.ErrDataSource, s.Name, strings.Join(missing, ", "))
	}
	return m, nil
}
