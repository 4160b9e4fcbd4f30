// Package gateway implements the outbound Zibal payment gateway client.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	appgateway "paysweep/internal/application/payment/gateway"
	sharedConfig "paysweep/internal/shared/config"
	"paysweep/internal/shared/logger"
)

const (
	// The gateway accounts in rial while orders are stored in toman, a
	// fixed factor of 10. Revisit if the gateway ever changes its
	// minor-unit convention.
	amountScaleFactor = 10

	// HTTP request timeout per attempt
	requestTimeout = 20 * time.Second
	// Bounded retries on transient failure
	maxAttempts = 3
	retryDelay  = 100 * time.Millisecond
	// Maximum response body size (64KB)
	maxResponseSize = 64 << 10

	// result code the gateway uses for an accepted request
	resultOK = 100
)

type requestPayload struct {
	Merchant    string `json:"merchant"`
	Amount      int64  `json:"amount"`
	CallbackURL string `json:"callbackUrl"`
	OrderID     string `json:"orderId"`
	Description string `json:"description"`
}

type trackPayload struct {
	Merchant string `json:"merchant"`
	TrackID  string `json:"trackId"`
}

type gatewayResponse struct {
	Result     int    `json:"result"`
	Message    string `json:"message"`
	TrackID    int64  `json:"trackId"`
	Status     *int   `json:"status"`
	Amount     int64  `json:"amount"`
	PaidAt     string `json:"paidAt"`
	CardNumber string `json:"cardNumber"`
	RefNumber  int64  `json:"refNumber"`
}

// ZibalGateway talks to the Zibal HTTP API. All calls carry bounded retries
// and a hard timeout; a hung gateway cannot hang a sweep indefinitely.
type ZibalGateway struct {
	httpClient *http.Client
	config     sharedConfig.GatewayConfig
	logger     logger.Interface
}

func NewZibalGateway(config sharedConfig.GatewayConfig, logger logger.Interface) *ZibalGateway {
	return &ZibalGateway{
		httpClient: &http.Client{
			Timeout: requestTimeout,
		},
		config: config,
		logger: logger,
	}
}

// Ensure ZibalGateway implements the application gateway interface
var _ appgateway.PaymentGateway = (*ZibalGateway)(nil)

func (g *ZibalGateway) Request(ctx context.Context, req appgateway.PaymentRequest) (*appgateway.PaymentSession, error) {
	payload := requestPayload{
		Merchant:    g.config.Merchant,
		Amount:      req.Amount * amountScaleFactor,
		CallbackURL: g.config.CallbackURL,
		OrderID:     req.TradeNo,
		Description: req.Description,
	}

	resp, err := g.post(ctx, "/v1/request", payload)
	if err != nil {
		return nil, fmt.Errorf("payment request failed: %w", err)
	}
	if resp.Result != resultOK {
		return nil, fmt.Errorf("payment request rejected: result=%d message=%q", resp.Result, resp.Message)
	}

	trackID := fmt.Sprintf("%d", resp.TrackID)
	g.logger.Infow("payment request accepted",
		"trade_no", req.TradeNo,
		"track_id", trackID,
		"merchant", maskSecret(g.config.Merchant),
	)

	return &appgateway.PaymentSession{
		TrackID:     trackID,
		RedirectURL: fmt.Sprintf("%s/start/%s", strings.TrimRight(g.config.BaseURL, "/"), trackID),
	}, nil
}

func (g *ZibalGateway) Inquiry(ctx context.Context, trackID string) (*appgateway.InquiryResult, error) {
	resp, err := g.post(ctx, "/v1/inquiry", trackPayload{Merchant: g.config.Merchant, TrackID: trackID})
	if err != nil {
		return nil, fmt.Errorf("inquiry failed: %w", err)
	}
	if resp.Result != resultOK {
		return nil, fmt.Errorf("inquiry rejected: result=%d message=%q", resp.Result, resp.Message)
	}
	if resp.Status == nil {
		return nil, fmt.Errorf("inquiry response missing status")
	}

	return &appgateway.InquiryResult{
		Status: *resp.Status,
		PaidAt: parsePaidAt(resp.PaidAt),
		Amount: resp.Amount / amountScaleFactor,
	}, nil
}

func (g *ZibalGateway) Verify(ctx context.Context, trackID string, expectedAmount int64) (*appgateway.VerifiedPayment, error) {
	resp, err := g.post(ctx, "/v1/verify", trackPayload{Merchant: g.config.Merchant, TrackID: trackID})
	if err != nil {
		return nil, fmt.Errorf("verify failed: %w", err)
	}
	if resp.Result != resultOK {
		return nil, fmt.Errorf("verify rejected: result=%d message=%q", resp.Result, resp.Message)
	}
	if resp.Amount != expectedAmount*amountScaleFactor {
		return nil, fmt.Errorf("verify amount mismatch: expected %d, got %d",
			expectedAmount*amountScaleFactor, resp.Amount)
	}

	g.logger.Infow("payment verified at gateway",
		"track_id", trackID,
		"amount", expectedAmount,
		"card_number", MaskCardNumber(resp.CardNumber),
	)

	return &appgateway.VerifiedPayment{
		TrackID:    trackID,
		Amount:     expectedAmount,
		CardNumber: MaskCardNumber(resp.CardNumber),
		PaidAt:     parsePaidAt(resp.PaidAt),
	}, nil
}

// post performs one gateway call with bounded retries on transport failure.
func (g *ZibalGateway) post(ctx context.Context, path string, payload any) (*gatewayResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode payload: %w", err)
	}

	url := strings.TrimRight(g.config.BaseURL, "/") + path

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if attempt > 1 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(retryDelay):
			}
		}

		resp, err := g.doPost(ctx, url, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		g.logger.Debugw("gateway call failed",
			"path", path,
			"attempt", attempt,
			"error", err,
		)
	}

	return nil, fmt.Errorf("gateway unreachable after %d attempts: %w", maxAttempts, lastErr)
}

func (g *ZibalGateway) doPost(ctx context.Context, url string, body []byte) (*gatewayResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected HTTP status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var parsed gatewayResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("malformed gateway response: %w", err)
	}
	return &parsed, nil
}

func parsePaidAt(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// MaskCardNumber keeps the first 6 and last 4 digits of a card number.
// Anything under 10 digits is unmaskable and reported as absent.
func MaskCardNumber(cardNumber string) string {
	var digits strings.Builder
	for _, r := range cardNumber {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	card := digits.String()
	if len(card) < 10 {
		return ""
	}

	stars := len(card) - 10
	if stars < 6 {
		stars = 6
	}
	return card[:6] + strings.Repeat("*", stars) + card[len(card)-4:]
}

// maskSecret hides all but the last 4 characters of a sensitive value for
// logging.
func maskSecret(s string) string {
	if len(s) <= 4 {
		return "***"
	}
	return "***" + s[len(s)-4:]
}
