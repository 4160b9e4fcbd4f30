package gateway

import (
	"context"
	"time"
)

// Inquiry status codes as reported by the gateway. 1 and 2 mean funds were
// captured; -1, 3 and 4 all mean no money was ever taken.
const (
	StatusNotInitiated    = -1
	StatusPending         = 0
	StatusPaidVerified    = 1
	StatusPaidNotVerified = 2
	StatusCancelledByUser = 3
	StatusFailed          = 4
)

// PaymentGateway wraps the outbound calls to the remote payment gateway.
// All methods own their retries and timeouts; a returned error always means
// transport or protocol failure, never a business outcome.
type PaymentGateway interface {
	// Request starts a payment for the order and returns the track id plus
	// the URL the user must be redirected to.
	Request(ctx context.Context, req PaymentRequest) (*PaymentSession, error)
	// Inquiry is a read-only status probe by track id. It has no side effects
	// on the gateway's transaction state.
	Inquiry(ctx context.Context, trackID string) (*InquiryResult, error)
	// Verify finalizes the transaction. expectedAmount is the order's total
	// in local units; a confirmed amount that does not match is a failure,
	// not a success.
	Verify(ctx context.Context, trackID string, expectedAmount int64) (*VerifiedPayment, error)
}

type PaymentRequest struct {
	TradeNo     string
	Amount      int64 // local smallest currency unit, pre-scaling
	Description string
}

type PaymentSession struct {
	TrackID     string
	RedirectURL string
}

// InquiryResult is a well-formed gateway answer, ephemeral and never
// persisted. Status may be a code outside the known set; the engine treats
// that as ambiguous.
type InquiryResult struct {
	Status int
	PaidAt *time.Time
	Amount int64
}

type VerifiedPayment struct {
	TradeNo    string
	TrackID    string
	Amount     int64  // local units, post de-scaling
	CardNumber string // masked, empty when unmaskable
	PaidAt     *time.Time
}
