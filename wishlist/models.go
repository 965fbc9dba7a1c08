package wishlist

import "time"

// Entry records one property bookmarked by one buyer.
type Entry struct {
	ID         string
	UserID     string
	PropertyID string
	CreatedAt  time.Time
}
