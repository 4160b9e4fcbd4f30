package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appgateway "paysweep/internal/application/payment/gateway"
	sharedConfig "paysweep/internal/shared/config"
	"paysweep/internal/shared/logger"
)

type nopLogger struct{}

func (l *nopLogger) Debug(msg string, args ...any)                   {}
func (l *nopLogger) Info(msg string, args ...any)                    {}
func (l *nopLogger) Warn(msg string, args ...any)                    {}
func (l *nopLogger) Error(msg string, args ...any)                   {}
func (l *nopLogger) Fatal(msg string, args ...any)                   {}
func (l *nopLogger) With(args ...any) logger.Interface               { return l }
func (l *nopLogger) Named(name string) logger.Interface              { return l }
func (l *nopLogger) Debugw(msg string, keysAndValues ...interface{}) {}
func (l *nopLogger) Infow(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Warnw(msg string, keysAndValues ...interface{})  {}
func (l *nopLogger) Errorw(msg string, keysAndValues ...interface{}) {}
func (l *nopLogger) Fatalw(msg string, keysAndValues ...interface{}) {}

var _ logger.Interface = (*nopLogger)(nil)

func newTestGateway(serverURL string) *ZibalGateway {
	return NewZibalGateway(sharedConfig.GatewayConfig{
		Merchant:    "test-merchant",
		CallbackURL: "https://example.com/api/v1/guest/payment/notify/zibal",
		BaseURL:     serverURL,
	}, &nopLogger{})
}

func TestRequestReturnsTrackIDAndRedirect(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/request", r.URL.Path)

		var payload requestPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "test-merchant", payload.Merchant)
		assert.Equal(t, int64(50000), payload.Amount)
		assert.Equal(t, "T1001", payload.OrderID)

		json.NewEncoder(w).Encode(map[string]any{
			"result":  100,
			"trackId": 900123,
		})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	session, err := gw.Request(context.Background(), appgateway.PaymentRequest{
		TradeNo: "T1001",
		Amount:  5000,
	})
	require.NoError(t, err)
	assert.Equal(t, "900123", session.TrackID)
	assert.Equal(t, srv.URL+"/start/900123", session.RedirectURL)
}

func TestRequestRejectedByGateway(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"result":  102,
			"message": "merchant not found",
		})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	_, err := gw.Request(context.Background(), appgateway.PaymentRequest{TradeNo: "T1002", Amount: 1000})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "result=102")
}

func TestInquiryParsesStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/inquiry", r.URL.Path)

		var payload trackPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "900123", payload.TrackID)

		json.NewEncoder(w).Encode(map[string]any{
			"result": 100,
			"status": 2,
			"amount": 50000,
			"paidAt": "2024-05-01T12:30:00Z",
		})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	result, err := gw.Inquiry(context.Background(), "900123")
	require.NoError(t, err)
	assert.Equal(t, 2, result.Status)
	assert.Equal(t, int64(5000), result.Amount)
	require.NotNil(t, result.PaidAt)
	assert.Equal(t, 2024, result.PaidAt.Year())
}

func TestInquiryMissingStatusIsAnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": 100})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	_, err := gw.Inquiry(context.Background(), "900123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing status")
}

func TestVerifyChecksAmount(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/verify", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"result":     100,
			"amount":     50000,
			"cardNumber": "6037991234567890",
			"paidAt":     "2024-05-01 12:30:00",
		})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)

	verified, err := gw.Verify(context.Background(), "900123", 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), verified.Amount)
	assert.Equal(t, "603799******7890", verified.CardNumber)
	require.NotNil(t, verified.PaidAt)

	_, err = gw.Verify(context.Background(), "900123", 9999)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "amount mismatch")
}

func TestPostRetriesTransientFailures(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"result": 100, "trackId": 900456})
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	session, err := gw.Request(context.Background(), appgateway.PaymentRequest{TradeNo: "T1003", Amount: 1000})
	require.NoError(t, err)
	assert.Equal(t, "900456", session.TrackID)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	gw := newTestGateway(srv.URL)
	_, err := gw.Inquiry(context.Background(), "900123")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, int32(3), calls.Load())
}

func TestMaskCardNumber(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"standard 16 digit card", "6037991234567890", "603799******7890"},
		{"card with separators", "6037-9912-3456-7890", "603799******7890"},
		{"card with spaces", "6037 9912 3456 7890", "603799******7890"},
		{"long card keeps proportion", "603799123456789012", "603799********9012"},
		{"exactly 10 digits", "6037991234", "603799******1234"},
		{"too short to mask", "123456789", ""},
		{"empty", "", ""},
		{"non numeric", "not-a-card", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MaskCardNumber(tt.in))
		})
	}
}
