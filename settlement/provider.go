package settlement

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// ErrProviderUnavailable wraps transport-level failures against the payment
// gateway. Callers may retry intent creation freely; no local state changes.
var ErrProviderUnavailable = errors.New("settlement: payment provider unavailable")

// CheckoutParams describes the checkout session requested from the provider.
type CheckoutParams struct {
	Amount      int64
	Currency    string
	ProductName string
	SuccessURL  string
	CancelURL   string
	Metadata    map[string]string
}

// CheckoutSession is the provider's handle for a created session.
type CheckoutSession struct {
	ID          string
	RedirectURL string
}

// SessionStatus is the provider's view of a session when re-read during
// confirmation.
type SessionStatus struct {
	Paid          bool
	TransactionID string
	Amount        int64
	Metadata      map[string]string
}

// Provider is the payment-gateway capability the settlement service trusts.
type Provider interface {
	CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error)
	GetSession(ctx context.Context, sessionID string) (SessionStatus, error)
}

// HTTPProvider talks to a Stripe-style checkout gateway over JSON/HTTP.
type HTTPProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(baseURL, apiKey string, timeout time.Duration) *HTTPProvider {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &HTTPProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type checkoutRequest struct {
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	ProductName string            `json:"product_name"`
	SuccessURL  string            `json:"success_url"`
	CancelURL   string            `json:"cancel_url"`
	Metadata    map[string]string `json:"metadata"`
}

type checkoutResponse struct {
	ID          string `json:"id"`
	RedirectURL string `json:"url"`
}

type sessionResponse struct {
	ID            string            `json:"id"`
	PaymentStatus string            `json:"payment_status"`
	PaymentIntent string            `json:"payment_intent"`
	AmountTotal   int64             `json:"amount_total"`
	Metadata      map[string]string `json:"metadata"`
}

func (p *HTTPProvider) CreateCheckoutSession(ctx context.Context, params CheckoutParams) (CheckoutSession, error) {
	body, err := json.Marshal(checkoutRequest{
		Amount:      params.Amount,
		Currency:    params.Currency,
		ProductName: params.ProductName,
		SuccessURL:  params.SuccessURL,
		CancelURL:   params.CancelURL,
		Metadata:    params.Metadata,
	})
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("settlement: marshal checkout request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/checkout/sessions", bytes.NewReader(body))
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("settlement: build checkout request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return CheckoutSession{}, fmt.Errorf("%w: create session returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var out checkoutResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return CheckoutSession{}, fmt.Errorf("%w: decode session: %v", ErrProviderUnavailable, err)
	}
	if out.ID == "" {
		return CheckoutSession{}, fmt.Errorf("%w: empty session id", ErrProviderUnavailable)
	}

	return CheckoutSession{ID: out.ID, RedirectURL: out.RedirectURL}, nil
}

func (p *HTTPProvider) GetSession(ctx context.Context, sessionID string) (SessionStatus, error) {
	endpoint := p.baseURL + "/v1/checkout/sessions/" + url.PathEscape(sessionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("settlement: build session request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return SessionStatus{}, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return SessionStatus{}, fmt.Errorf("%w: get session returned %d", ErrProviderUnavailable, resp.StatusCode)
	}

	var out sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SessionStatus{}, fmt.Errorf("%w: decode session: %v", ErrProviderUnavailable, err)
	}

	return SessionStatus{
		Paid:          out.PaymentStatus == "paid",
		TransactionID: out.PaymentIntent,
		Amount:        out.AmountTotal,
		Metadata:      out.Metadata,
	}, nil
}
