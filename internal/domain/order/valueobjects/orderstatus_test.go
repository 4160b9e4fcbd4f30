package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewOrderStatus(t *testing.T) {
	for _, code := range []int{0, 2, 3, 4} {
		s, err := NewOrderStatus(code)
		require.NoError(t, err)
		assert.Equal(t, code, s.Int())
	}

	for _, code := range []int{-1, 1, 5, 99} {
		_, err := NewOrderStatus(code)
		assert.Error(t, err, "code %d", code)
	}
}

func TestOrderStatusIsTerminal(t *testing.T) {
	assert.True(t, OrderStatusPaid.IsTerminal())
	assert.True(t, OrderStatusRefundedToWallet.IsTerminal())

	// cancelled stays open so the recovery sweep can still resolve it
	assert.False(t, OrderStatusCancelled.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
}

func TestOrderStatusString(t *testing.T) {
	assert.Equal(t, "pending", OrderStatusPending.String())
	assert.Equal(t, "cancelled", OrderStatusCancelled.String())
	assert.Equal(t, "paid", OrderStatusPaid.String())
	assert.Equal(t, "refunded_to_wallet", OrderStatusRefundedToWallet.String())
	assert.Equal(t, "unknown(7)", OrderStatus(7).String())
}
