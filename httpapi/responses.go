package httpapi

import (
	"time"

	"homevault/auth"
	"homevault/offer"
	"homevault/property"
	"homevault/wishlist"
)

// Response shapes. Domain models deliberately carry no JSON tags, so each
// handler converts through these.

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u auth.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Email:     u.Email,
		FullName:  u.FullName,
		Role:      u.Role,
		CreatedAt: u.CreatedAt,
	}
}

type propertyResponse struct {
	ID           string                      `json:"id"`
	AgentID      string                      `json:"agent_id"`
	Title        string                      `json:"title"`
	Location     string                      `json:"location"`
	ImageURL     *string                     `json:"image_url,omitempty"`
	MinPrice     int64                       `json:"min_price"`
	MaxPrice     int64                       `json:"max_price"`
	Verification property.VerificationStatus `json:"verification_status"`
	DealStatus   *property.DealStatus        `json:"deal_status,omitempty"`
	CreatedAt    time.Time                   `json:"created_at"`
}

func toPropertyResponse(p property.Property) propertyResponse {
	return propertyResponse{
		ID:           p.ID,
		AgentID:      p.AgentID,
		Title:        p.Title,
		Location:     p.Location,
		ImageURL:     p.ImageURL,
		MinPrice:     p.MinPrice,
		MaxPrice:     p.MaxPrice,
		Verification: p.Verification,
		DealStatus:   p.DealStatus,
		CreatedAt:    p.CreatedAt,
	}
}

func toPropertyResponses(props []property.Property) []propertyResponse {
	out := make([]propertyResponse, 0, len(props))
	for _, p := range props {
		out = append(out, toPropertyResponse(p))
	}
	return out
}

type paymentResponse struct {
	TransactionID string    `json:"transaction_id"`
	Amount        int64     `json:"amount"`
	SessionID     string    `json:"session_id"`
	SettledAt     time.Time `json:"settled_at"`
}

type offerResponse struct {
	ID         string           `json:"id"`
	PropertyID string           `json:"property_id"`
	BuyerID    string           `json:"buyer_id"`
	AgentID    string           `json:"agent_id"`
	Amount     int64            `json:"amount"`
	BuyingDate *time.Time       `json:"buying_date,omitempty"`
	Status     offer.Status     `json:"status"`
	Payment    *paymentResponse `json:"payment,omitempty"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
}

func toOfferResponse(o offer.Offer) offerResponse {
	resp := offerResponse{
		ID:         o.ID,
		PropertyID: o.PropertyID,
		BuyerID:    o.BuyerID,
		AgentID:    o.AgentID,
		Amount:     o.Amount,
		BuyingDate: o.BuyingDate,
		Status:     o.Status,
		CreatedAt:  o.CreatedAt,
		UpdatedAt:  o.UpdatedAt,
	}
	if o.Payment != nil {
		resp.Payment = &paymentResponse{
			TransactionID: o.Payment.TransactionID,
			Amount:        o.Payment.Amount,
			SessionID:     o.Payment.SessionID,
			SettledAt:     o.Payment.SettledAt,
		}
	}
	return resp
}

func toOfferResponses(offers []offer.Offer) []offerResponse {
	out := make([]offerResponse, 0, len(offers))
	for _, o := range offers {
		out = append(out, toOfferResponse(o))
	}
	return out
}

type soldOfferResponse struct {
	offerResponse
	PropertyTitle    string `json:"property_title"`
	PropertyLocation string `json:"property_location"`
}

func toSoldOfferResponses(sold []offer.SoldOffer) []soldOfferResponse {
	out := make([]soldOfferResponse, 0, len(sold))
	for _, s := range sold {
		out = append(out, soldOfferResponse{
			offerResponse:    toOfferResponse(s.Offer),
			PropertyTitle:    s.PropertyTitle,
			PropertyLocation: s.PropertyLocation,
		})
	}
	return out
}

type wishlistEntryResponse struct {
	ID         string    `json:"id"`
	PropertyID string    `json:"property_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func toWishlistResponses(entries []wishlist.Entry) []wishlistEntryResponse {
	out := make([]wishlistEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, wishlistEntryResponse{
			ID:         e.ID,
			PropertyID: e.PropertyID,
			CreatedAt:  e.CreatedAt,
		})
	}
	return out
}
