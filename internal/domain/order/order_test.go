package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	vo "paysweep/internal/domain/order/valueobjects"
)

func TestNewOrder(t *testing.T) {
	tests := []struct {
		name          string
		tradeNo       string
		userID        uint
		totalAmount   int64
		balanceAmount int64
		wantErr       bool
	}{
		{
			name:        "valid order",
			tradeNo:     "T1001",
			userID:      7,
			totalAmount: 5000,
		},
		{
			name:          "balance only order",
			tradeNo:       "T1002",
			userID:        7,
			totalAmount:   0,
			balanceAmount: 3000,
		},
		{
			name:    "missing trade number",
			userID:  7,
			wantErr: true,
		},
		{
			name:    "missing user",
			tradeNo: "T1003",
			wantErr: true,
		},
		{
			name:        "negative amount",
			tradeNo:     "T1004",
			userID:      7,
			totalAmount: -1,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := NewOrder(tt.tradeNo, tt.userID, tt.totalAmount, tt.balanceAmount)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, vo.OrderStatusPending, o.Status())
			assert.Nil(t, o.PaidAt())
		})
	}
}

func TestOrderMarkPaid(t *testing.T) {
	o, err := NewOrder("T2001", 7, 5000, 0)
	require.NoError(t, err)

	require.NoError(t, o.MarkPaid())
	assert.Equal(t, vo.OrderStatusPaid, o.Status())
	require.NotNil(t, o.PaidAt())
	firstPaidAt := *o.PaidAt()

	// second call is a no-op, not an error
	require.NoError(t, o.MarkPaid())
	assert.Equal(t, firstPaidAt, *o.PaidAt())
}

func TestOrderMarkPaidFromCancelled(t *testing.T) {
	o, err := NewOrder("T2002", 7, 5000, 0)
	require.NoError(t, err)
	require.NoError(t, o.Cancel())

	// the recovery sweep may find captured funds on a cancelled order
	require.NoError(t, o.MarkPaid())
	assert.Equal(t, vo.OrderStatusPaid, o.Status())
}

func TestOrderMarkPaidRejectedAfterRefund(t *testing.T) {
	o, err := NewOrder("T2003", 7, 5000, 0)
	require.NoError(t, err)
	require.NoError(t, o.RefundToWallet())

	assert.Error(t, o.MarkPaid())
	assert.Equal(t, vo.OrderStatusRefundedToWallet, o.Status())
}

func TestOrderCancel(t *testing.T) {
	o, err := NewOrder("T3001", 7, 5000, 0)
	require.NoError(t, err)

	require.NoError(t, o.Cancel())
	assert.Equal(t, vo.OrderStatusCancelled, o.Status())

	assert.Error(t, o.Cancel())
}

func TestOrderCancelRejectedAfterPaid(t *testing.T) {
	o, err := NewOrder("T3002", 7, 5000, 0)
	require.NoError(t, err)
	require.NoError(t, o.MarkPaid())

	assert.Error(t, o.Cancel())
	assert.Equal(t, vo.OrderStatusPaid, o.Status())
}

func TestOrderRefundToWallet(t *testing.T) {
	o, err := NewOrder("T4001", 7, 5000, 0)
	require.NoError(t, err)

	require.NoError(t, o.RefundToWallet())
	assert.Equal(t, vo.OrderStatusRefundedToWallet, o.Status())

	assert.Error(t, o.RefundToWallet())
}

func TestOrderRefundToWalletFromCancelled(t *testing.T) {
	o, err := NewOrder("T4002", 7, 5000, 0)
	require.NoError(t, err)
	require.NoError(t, o.Cancel())

	require.NoError(t, o.RefundToWallet())
	assert.Equal(t, vo.OrderStatusRefundedToWallet, o.Status())
}

func TestOrderRefundToWalletRejectedWhenPaid(t *testing.T) {
	o, err := NewOrder("T4003", 7, 5000, 0)
	require.NoError(t, err)
	require.NoError(t, o.MarkPaid())

	assert.Error(t, o.RefundToWallet())
	assert.Equal(t, vo.OrderStatusPaid, o.Status())
}

func TestOrderAge(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	o := ReconstructOrder(1, "T5001", 7, 5000, 0, vo.OrderStatusPending, nil, created, created)

	assert.Equal(t, 30*time.Minute, o.Age(created.Add(30*time.Minute)))
}

func TestOrderIsBalanceOnly(t *testing.T) {
	balanceOnly, err := NewOrder("T6001", 7, 0, 3000)
	require.NoError(t, err)
	assert.True(t, balanceOnly.IsBalanceOnly())

	mixed, err := NewOrder("T6002", 7, 2000, 1000)
	require.NoError(t, err)
	assert.False(t, mixed.IsBalanceOnly())

	free, err := NewOrder("T6003", 7, 0, 0)
	require.NoError(t, err)
	assert.False(t, free.IsBalanceOnly())
}
