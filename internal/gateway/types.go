package gateway

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Resource identifies one of the gateway's paginated collections.
type Resource string

const (
	ResourceTransaction Resource = "Transaction"
	ResourceInvoice     Resource = "Invoice"
	ResourcePaylink     Resource = "Paylink"
)

// MaxPageSize is the page ceiling enforced by the gateway. Requests with a
// larger limit are rejected, so callers must page at exactly this size.
const MaxPageSize = 100

// Record is one raw gateway-side entry. The three resource kinds share the
// same envelope but expose their creation instant inconsistently: transactions
// carry a unix createdAt, invoices a formatted time string, and paylinks often
// bury the date inside fields the wrapper does not surface. The raw body is
// kept for that last case; see ResolveCreatedAt.
type Record struct {
	ID          int64    `json:"id"`
	UUID        string   `json:"uuid"`
	ReferenceID string   `json:"referenceId"`
	Amount      int64    `json:"amount"` // minor units
	Status      string   `json:"status"`
	CreatedAt   int64    `json:"createdAt"`
	Time        string   `json:"time"`
	Resource    Resource `json:"-"`

	raw json.RawMessage
}

func (r *Record) UnmarshalJSON(data []byte) error {
	type alias Record
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = Record(a)
	r.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Key is the record's identity across pages and resource kinds, used for
// dedup when overlapping collections return the same entry.
func (r *Record) Key() string {
	return fmt.Sprintf("%s:%d", r.Resource, r.ID)
}

// AmountDecimal converts the gateway's minor-unit amount to major units.
func (r *Record) AmountDecimal() decimal.Decimal {
	return decimal.New(r.Amount, -2)
}
