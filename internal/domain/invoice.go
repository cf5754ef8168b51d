package domain

// InvoiceHeader is one row of the header dataset: invoice-level metadata.
// AccessKey is the natural key; Number is a non-unique secondary lookup key.
type InvoiceHeader struct {
	AccessKey            string
	Model                string
	Series               string
	Number               string
	OperationNature      string
	EmissionDate         string
	LatestEvent          string
	LatestEventAt        string
	IssuerTaxID          string
	IssuerName           string
	IssuerStateReg       string
	IssuerState          string
	IssuerCity           string
	RecipientTaxID       string
	RecipientName        string
	RecipientState       string
	RecipientIEIndicator string
	OperationDestination string
	FinalConsumer        string
	BuyerPresence        string
	TotalValue           string
}

// InvoiceLineItem is one row of the item dataset, foreign-keyed by AccessKey.
type InvoiceLineItem struct {
	AccessKey     string
	Number        string
	ProductNumber string
	Description   string
	NCM           string
	CFOP          string
	Quantity      string
	Unit          string
	UnitValue     string
	TotalValue    string
	// Row is the position of the item in the item table.
	Row int
}

// SynthesizedDocument is the denormalized text of one invoice and its items,
// the unit indexed for semantic search.
type SynthesizedDocument struct {
	ID        string
	AccessKey string
	Number    string
	Row       int
	Text      string
}
