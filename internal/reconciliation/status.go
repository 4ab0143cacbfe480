package reconciliation

import (
	"strings"
	"time"
)

// CanonicalStatus is the normalized six-value vocabulary used regardless of
// the gateway's native terminology.
type CanonicalStatus string

const (
	StatusPaid      CanonicalStatus = "PAID"
	StatusPending   CanonicalStatus = "PENDING"
	StatusOverdue   CanonicalStatus = "OVERDUE"
	StatusCancelled CanonicalStatus = "CANCELLED"
	StatusFailed    CanonicalStatus = "FAILED"
	StatusUnknown   CanonicalStatus = "UNKNOWN"
)

var providerStatusTable = map[string]CanonicalStatus{
	"confirmed": StatusPaid,
	"captured":  StatusPaid,
	"settled":   StatusPaid,
	"paid":      StatusPaid,

	"waiting":    StatusPending,
	"authorized": StatusPending,
	"sent":       StatusPending,
	"reserved":   StatusPending,

	"cancelled": StatusCancelled,
	"canceled":  StatusCancelled,
	"void":      StatusCancelled,
	"expired":   StatusCancelled,

	"declined":   StatusFailed,
	"chargeback": StatusFailed,
	"error":      StatusFailed,
}

// MapProviderStatus normalizes a provider status string. Every input maps to
// exactly one canonical status: recognized strings through the table,
// anything else to UNKNOWN. PENDING and UNKNOWN are downgraded to OVERDUE
// when an associated due date has passed.
func MapProviderStatus(provider string, dueDate *time.Time) CanonicalStatus {
	status, ok := providerStatusTable[strings.ToLower(strings.TrimSpace(provider))]
	if !ok {
		status = StatusUnknown
	}
	if (status == StatusPending || status == StatusUnknown) && dueDate != nil && dueDate.Before(time.Now()) {
		return StatusOverdue
	}
	return status
}

// Countable reports whether records in this bucket contribute to aggregated
// external amounts. Only paid-class records count; refunds, pending and
// failed traffic must not inflate the external side.
func (s CanonicalStatus) Countable() bool {
	return s == StatusPaid
}

// compatibilityTable pairs internal ledger statuses with the provider
// vocabularies they are allowed to coexist with. Diagnostics only; amount
// reconciliation never consults it.
var compatibilityTable = map[string][]string{
	"paid":      {"confirmed", "authorized", "captured", "paid", "settled"},
	"pending":   {"waiting", "authorized", "sent", "reserved"},
	"refunded":  {"refunded", "partially-refunded"},
	"cancelled": {"cancelled", "canceled", "void", "expired", "declined"},
}

// StatusMatches reports whether an internal status and a provider status are
// compatible per the fixed table. Unlisted internal statuses never match.
func StatusMatches(internal, external string) bool {
	external = strings.ToLower(strings.TrimSpace(external))
	for _, allowed := range compatibilityTable[strings.ToLower(strings.TrimSpace(internal))] {
		if external == allowed {
			return true
		}
	}
	return false
}
