package gateway

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSandboxStatusTracksIssuedPayments(t *testing.T) {
	sandbox := NewSandbox(testGatewayConfig("http://unused"), discardLogger())

	initiated, err := sandbox.InitiatePayment(context.Background(), PaymentRequest{Amount: 500})
	require.NoError(t, err)

	result, err := sandbox.QueryStatus(context.Background(), initiated.MerchantTransactionID)
	require.NoError(t, err)
	assert.True(t, result.Succeeded())
	assert.Equal(t, int64(50000), result.AmountMinorUnits)
}

func TestSandboxStatusUnknownReferenceFails(t *testing.T) {
	sandbox := NewSandbox(testGatewayConfig("http://unused"), discardLogger())

	result, err := sandbox.QueryStatus(context.Background(), "MTNEVERISSUED")
	require.NoError(t, err)
	assert.False(t, result.Succeeded(), "references this instance never issued do not complete")
	assert.Equal(t, "FAILED", result.State)
}
