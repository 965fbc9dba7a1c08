package offer

import "time"

// Status is the lifecycle state of an offer.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRejected Status = "rejected"
	StatusBought   Status = "bought"
)

// ValidTransitions enumerates every permitted status move. rejected and
// bought are terminal.
var ValidTransitions = map[Status][]Status{
	StatusPending:  {StatusAccepted, StatusRejected},
	StatusAccepted: {StatusBought},
}

// IsValidTransition reports whether an offer may move from one status to another.
func IsValidTransition(from, to Status) bool {
	for _, s := range ValidTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// PaymentRef carries the provider-side evidence of a settled offer. It is set
// exactly once, when the offer transitions to bought.
type PaymentRef struct {
	TransactionID string
	Amount        int64
	SessionID     string
	SettledAt     time.Time
}

// Offer mirrors the offers table.
type Offer struct {
	ID         string
	PropertyID string
	BuyerID    string
	AgentID    string
	Amount     int64
	BuyingDate *time.Time
	Status     Status
	Payment    *PaymentRef
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SoldOffer is a bought offer joined with the property it settled.
type SoldOffer struct {
	Offer
	PropertyTitle    string
	PropertyLocation string
}

// CreateParams enumerates the fields required to insert a new offer.
type CreateParams struct {
	PropertyID string
	BuyerID    string
	AgentID    string
	Amount     int64
	BuyingDate *time.Time
}

// AcceptResult reports the outcome of a committed accept decision.
type AcceptResult struct {
	Offer            Offer
	SiblingsRejected int64
}
