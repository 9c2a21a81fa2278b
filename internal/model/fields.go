package model

import (
	"strings"

	"golang.org/x/text/language"

	"github.com/alfredjeanlab/ledgerdesk/internal/listquery"
)

// Sortable client columns, as accepted by the REST API "sort" parameter.
const (
	FieldName         = "name"
	FieldTradeName    = "trade_name"
	FieldCNPJ         = "cnpj"
	FieldCNAE         = "cnae"
	FieldTaxRegime    = "tax_regime"
	FieldActive       = "active"
	FieldEmail        = "email"
	FieldMonthlyFee   = "monthly_fee"
	FieldCreatedAt    = "created_at"
	FieldUpdatedAt    = "updated_at"
	FieldLastFilingAt = "last_filing_at"
	FieldSearch       = "search"
)

// ClientFields returns the list schema for clients. Names compare with
// Brazilian Portuguese collation so accented names sort where a reader
// expects them.
func ClientFields() *listquery.Schema[*Client] {
	collated := listquery.Collated(language.BrazilianPortuguese)
	regimes := make([]string, len(TaxRegimes))
	for i, r := range TaxRegimes {
		regimes[i] = string(r)
	}
	return listquery.NewSchema(
		listquery.Field[*Client]{Name: FieldName, Get: func(c *Client) any { return c.Name }, Compare: collated, Sortable: true, Filterable: true},
		listquery.Field[*Client]{Name: FieldTradeName, Get: func(c *Client) any { return nonEmpty(c.TradeName) }, Compare: collated, Sortable: true, Filterable: true},
		listquery.Field[*Client]{Name: FieldCNPJ, Get: func(c *Client) any { return DigitsOnly(c.CNPJ) }, Sortable: true, Filterable: true},
		listquery.Field[*Client]{Name: FieldCNAE, Get: func(c *Client) any { return nonEmpty(DigitsOnly(c.CNAE)) }, Sortable: true, Filterable: true},
		listquery.Field[*Client]{Name: FieldTaxRegime, Get: func(c *Client) any { return string(c.TaxRegime) }, Enum: regimes, Sortable: true, Filterable: true},
		listquery.Field[*Client]{Name: FieldActive, Get: func(c *Client) any { return c.Active }, Sortable: true, Filterable: true},
		listquery.Field[*Client]{Name: FieldEmail, Get: func(c *Client) any { return nonEmpty(c.Email) }, Sortable: true, Filterable: true},
		listquery.Field[*Client]{Name: FieldMonthlyFee, Get: func(c *Client) any { return c.MonthlyFee }, Sortable: true},
		listquery.Field[*Client]{Name: FieldCreatedAt, Get: func(c *Client) any { return c.CreatedAt }, Sortable: true},
		listquery.Field[*Client]{Name: FieldUpdatedAt, Get: func(c *Client) any { return c.UpdatedAt }, Sortable: true},
		listquery.Field[*Client]{Name: FieldLastFilingAt, Get: func(c *Client) any { return c.LastFilingAt }, Sortable: true},
		listquery.Field[*Client]{Name: FieldSearch, Get: searchText, Filterable: true},
	)
}

// searchText is what the free-text search filter matches against.
func searchText(c *Client) any {
	return strings.Join([]string{c.Name, c.TradeName, DigitsOnly(c.CNPJ)}, " ")
}

// nonEmpty turns "" into nil so that blank optional columns sort last.
func nonEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}
