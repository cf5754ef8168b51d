package query

import (
	"strings"
)

// Intent is what a query asks for.
type Intent string

const (
	IntentByNumber    Intent = "by_number"
	IntentByAccessKey Intent = "by_access_key"
	IntentByItems     Intent = "by_items"
	IntentByIssuer    Intent = "by_issuer"
	IntentSemantic    Intent = "semantic"
)

// Classification is an intent plus the token the query carries for it.
type Classification struct {
	Intent Intent
	Token  string
}

// prefixes are consulted in order; the first match wins, so "nota itens 5"
// is a number lookup.
var prefixes = []struct {
	prefix string
	intent Intent
}{
	{"nota ", IntentByNumber},
	{"chave de acesso ", IntentByAccessKey},
	{"itens ", IntentByItems},
	{"emitente ", IntentByIssuer},
}

// Classify maps a free-text query to an intent. Prefixes match
// case-insensitively on the trimmed query; anything else is semantic.
func Classify(q string) Classification {
	q = strings.TrimSpace(q)
	for _, p := range prefixes {
		n := len(p.prefix)
		if len(q) >= n && strings.EqualFold(q[:n], p.prefix) {
			return Classification{Intent: p.intent, Token: strings.TrimSpace(q[n:])}
		}
	}
	return Classification{Intent: IntentSemantic, Token: q}
}

// ItemsTermKind tells how an items token selects invoices.
type ItemsTermKind int

const (
	// ItemsGeneric scans every item column for the term.
	ItemsGeneric ItemsTermKind = iota
	// ItemsByKey selects one literal access key.
	ItemsByKey
	// ItemsByNumber selects the invoices whose number contains the digits.
	ItemsByNumber
)

// AccessKeyLength is the number of digits of an NF-e access key.
const AccessKeyLength = 44

// ItemsTerm is a classified items token.
type ItemsTerm struct {
	Kind  ItemsTermKind
	Value string
}

// ClassifyItemsTerm decides whether token is an access key, an invoice
// number or free text. Spaces are ignored for the digit checks.
func ClassifyItemsTerm(token string) ItemsTerm {
	compact := strings.ReplaceAll(token, " ", "")
	if isDigits(compact) {
		if len(compact) == AccessKeyLength {
			return ItemsTerm{Kind: ItemsByKey, Value: compact}
		}
		return ItemsTerm{Kind: ItemsByNumber, Value: compact}
	}
	return ItemsTerm{Kind: ItemsGeneric, Value: token}
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
