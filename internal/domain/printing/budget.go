package printing

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ClinicHeader is the static practice information printed on every budget
type ClinicHeader struct {
	Name              string
	Address           string
	Phone             string
	BankName          string
	BankAccount       string
	BankAccountHolder string
}

// HasBankDetails reports whether payment instructions should be printed
func (h ClinicHeader) HasBankDetails() bool {
	return h.BankName != "" || h.BankAccount != ""
}

// BudgetLine is one numbered row of a budget
type BudgetLine struct {
	Number    int
	Treatment string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

// BudgetDocument is everything printed on a quote's budget
type BudgetDocument struct {
	QuoteID        uuid.UUID
	Clinic         ClinicHeader
	ClientName     string
	ClientCedula   string
	Date           time.Time
	ExpirationDate *time.Time
	Lines          []BudgetLine
	Gross          decimal.Decimal
	Discount       decimal.Decimal
	Total          decimal.Decimal
	Notes          string
}

// FileName is the suggested download name for the rendered budget
func (d *BudgetDocument) FileName() string {
	return "presupuesto-" + d.Date.Format("20060102") + "-" + d.QuoteID.String()[:8] + ".pdf"
}
