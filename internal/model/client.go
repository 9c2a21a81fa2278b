package model

import "time"

// TaxRegime is the Brazilian federal tax regime a client company files under.
type TaxRegime string

const (
	RegimeSimples   TaxRegime = "simples"
	RegimePresumido TaxRegime = "presumido"
	RegimeReal      TaxRegime = "real"
	RegimeMEI       TaxRegime = "mei"
)

// TaxRegimes lists every valid regime in display order.
var TaxRegimes = []TaxRegime{RegimeSimples, RegimePresumido, RegimeReal, RegimeMEI}

// String returns the string representation of the regime.
func (r TaxRegime) String() string {
	return string(r)
}

// IsValid checks whether the regime is a known value.
func (r TaxRegime) IsValid() bool {
	switch r {
	case RegimeSimples, RegimePresumido, RegimeReal, RegimeMEI:
		return true
	}
	return false
}

// Label returns the name used on reports.
func (r TaxRegime) Label() string {
	switch r {
	case RegimeSimples:
		return "Simples Nacional"
	case RegimePresumido:
		return "Lucro Presumido"
	case RegimeReal:
		return "Lucro Real"
	case RegimeMEI:
		return "MEI"
	}
	return string(r)
}

// Client is a company served by the accounting firm. Clients belong to exactly
// one tenant (the firm) and are never visible across tenants.
type Client struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id" validate:"required"`
	Name      string    `json:"name" validate:"required,max=200"`
	TradeName string    `json:"trade_name,omitempty" validate:"max=200"`
	CNPJ      string    `json:"cnpj" validate:"required,cnpj"`
	CNAE      string    `json:"cnae,omitempty" validate:"omitempty,cnae"`
	TaxRegime TaxRegime `json:"tax_regime" validate:"required,regime"`
	Active    bool      `json:"active"`
	Email     string    `json:"email,omitempty" validate:"omitempty,email"`
	// MonthlyFee is the bookkeeping fee in centavos.
	MonthlyFee   int64      `json:"monthly_fee" validate:"gte=0"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastFilingAt *time.Time `json:"last_filing_at,omitempty"`
}

// ClientFilter holds criteria for querying clients.
type ClientFilter struct {
	TenantID  string      `json:"tenant_id"`
	Search    string      `json:"search,omitempty"` // substring of name, trade name or CNPJ digits
	TaxRegime []TaxRegime `json:"tax_regime,omitempty"`
	CNAE      string      `json:"cnae,omitempty"`
	Active    *bool       `json:"active,omitempty"`
	// Contains maps a text column (name, trade_name, email, cnpj) to a
	// case-insensitive substring it must contain.
	Contains map[string]string `json:"contains,omitempty"`
	Sort     string            `json:"sort,omitempty"` // e.g. "-monthly_fee", "name"; prefix "-" = descending
	Limit    int               `json:"limit,omitempty"`
	Offset   int               `json:"offset,omitempty"`
}
