package export

import (
	"golang.org/x/text/language"

	"github.com/alfredjeanlab/ledgerdesk/internal/model"
)

// ClientTable is the standard client export.
func ClientTable(tag language.Tag) Table[*model.Client] {
	return Table[*model.Client]{
		Locale: tag,
		BOM:    true,
		Columns: []Column[*model.Client]{
			{Header: model.FieldName, Value: func(c *model.Client) any { return c.Name }},
			{Header: model.FieldTradeName, Value: func(c *model.Client) any { return c.TradeName }},
			{Header: model.FieldCNPJ, Value: func(c *model.Client) any { return model.FormatCNPJ(c.CNPJ) }},
			{Header: model.FieldCNAE, Value: func(c *model.Client) any { return model.FormatCNAE(c.CNAE) }},
			{Header: model.FieldTaxRegime, Value: func(c *model.Client) any { return c.TaxRegime.Label() }},
			{Header: model.FieldActive, Value: func(c *model.Client) any { return c.Active }},
			{Header: model.FieldEmail, Value: func(c *model.Client) any { return c.Email }},
			{Header: model.FieldMonthlyFee, Value: func(c *model.Client) any { return Cents(c.MonthlyFee) }},
			{Header: model.FieldCreatedAt, Value: func(c *model.Client) any { return c.CreatedAt }},
			{Header: model.FieldLastFilingAt, Value: func(c *model.Client) any { return c.LastFilingAt }},
		},
	}
}
