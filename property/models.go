package property

import "time"

// VerificationStatus is the moderation state of a listing.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// DealStatus tracks how far a property is through a sale. The zero state is
// represented as a nil pointer on Property (open for offers) and as NULL in
// the database. Transitions are monotone: open -> accepted -> sold.
type DealStatus string

const (
	DealStatusAccepted DealStatus = "accepted"
	DealStatusSold     DealStatus = "sold"
)

// Property mirrors the properties table.
type Property struct {
	ID           string
	AgentID      string
	Title        string
	Location     string
	ImageURL     *string
	MinPrice     int64
	MaxPrice     int64
	Verification VerificationStatus
	DealStatus   *DealStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Open reports whether the property is still accepting offers.
func (p Property) Open() bool {
	return p.DealStatus == nil
}

// CreateParams enumerates the fields an agent supplies when listing a property.
type CreateParams struct {
	AgentID  string
	Title    string
	Location string
	ImageURL *string
	MinPrice int64
	MaxPrice int64
}
