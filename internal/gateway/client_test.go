package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-gateway/internal/platform/config"
	"donation-gateway/pkg/derrors"
)

func testGatewayConfig(baseURL string) config.Gateway {
	return config.Gateway{
		BaseURL:        baseURL,
		MerchantID:     "M-TEST",
		SaltKey:        testSaltKey,
		SaltIndex:      testSaltIndex,
		RedirectURL:    "http://localhost:8080/api/donations/payment-status",
		CallbackURL:    "http://localhost:8080/api/donations/callback",
		RequestTimeout: 5 * time.Second,
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestInitiatePayment(t *testing.T) {
	var captured struct {
		verify     string
		merchantID string
		payload    initiationPayload
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, PayPath, r.URL.Path)
		captured.verify = r.Header.Get("X-VERIFY")
		captured.merchantID = r.Header.Get("X-MERCHANT-ID")

		var wire struct {
			Request string `json:"request"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&wire))
		raw, err := base64.StdEncoding.DecodeString(wire.Request)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(raw, &captured.payload))

		// The signature must verify against the decoded payload and the
		// initiation path.
		require.True(t, Verify(captured.verify, raw, PayPath, testSaltKey, testSaltIndex))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"success": true,
			"code": "PAYMENT_INITIATED",
			"data": {"instrumentResponse": {"redirectInfo": {"url": "https://pay.example.com/checkout/abc"}}}
		}`))
	}))
	defer server.Close()

	client := NewHTTPClient(testGatewayConfig(server.URL), discardLogger())
	result, err := client.InitiatePayment(context.Background(), PaymentRequest{Amount: 500, PayerPhone: "9876543210"})
	require.NoError(t, err)

	assert.Equal(t, "https://pay.example.com/checkout/abc", result.PaymentURL)
	assert.Regexp(t, `^MT[0-9A-Z]+$`, result.MerchantTransactionID)
	assert.Equal(t, "M-TEST", captured.merchantID)
	assert.Equal(t, int64(50000), captured.payload.Amount)
	assert.Equal(t, "9876543210", captured.payload.MobileNumber)
	assert.Equal(t, result.MerchantTransactionID, captured.payload.MerchantTransactionID)
	// The donor's browser must come back carrying the transaction id.
	assert.Contains(t, captured.payload.RedirectURL, result.MerchantTransactionID)
}

func TestInitiatePaymentFailures(t *testing.T) {
	t.Run("non-success envelope", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "code": "KEY_NOT_CONFIGURED", "message": "bad key"}`))
		}))
		defer server.Close()

		client := NewHTTPClient(testGatewayConfig(server.URL), discardLogger())
		_, err := client.InitiatePayment(context.Background(), PaymentRequest{Amount: 500})
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeGatewayInitiation))
	})

	t.Run("missing redirect URL", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "code": "PAYMENT_INITIATED", "data": {}}`))
		}))
		defer server.Close()

		client := NewHTTPClient(testGatewayConfig(server.URL), discardLogger())
		_, err := client.InitiatePayment(context.Background(), PaymentRequest{Amount: 500})
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeGatewayInitiation))
	})

	t.Run("gateway unreachable", func(t *testing.T) {
		cfg := testGatewayConfig("http://127.0.0.1:1")
		cfg.RequestTimeout = 200 * time.Millisecond
		client := NewHTTPClient(cfg, discardLogger())
		_, err := client.InitiatePayment(context.Background(), PaymentRequest{Amount: 500})
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeGatewayInitiation))
	})
}

func TestQueryStatus(t *testing.T) {
	const txnID = "MT123ABCDEF"

	t.Run("completed payment", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wantPath := StatusPath("M-TEST", txnID)
			require.Equal(t, wantPath, r.URL.Path)
			// Status checks are signed over the empty payload and the
			// status path.
			require.True(t, Verify(r.Header.Get("X-VERIFY"), nil, wantPath, testSaltKey, testSaltIndex))

			_, _ = w.Write([]byte(`{
				"success": true,
				"code": "PAYMENT_SUCCESS",
				"data": {
					"merchantTransactionId": "` + txnID + `",
					"transactionId": "T2408281030",
					"amount": 50000,
					"state": "COMPLETED",
					"responseCode": "SUCCESS"
				}
			}`))
		}))
		defer server.Close()

		client := NewHTTPClient(testGatewayConfig(server.URL), discardLogger())
		result, err := client.QueryStatus(context.Background(), txnID)
		require.NoError(t, err)

		assert.True(t, result.Succeeded())
		assert.Equal(t, txnID, result.MerchantTransactionID)
		assert.Equal(t, "T2408281030", result.GatewayTransactionID)
		assert.NotEmpty(t, result.Raw)
	})

	t.Run("non-completed state is a normal failed result", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{
				"success": true,
				"code": "PAYMENT_PENDING",
				"data": {"merchantTransactionId": "` + txnID + `", "state": "PENDING", "responseCode": "PENDING"}
			}`))
		}))
		defer server.Close()

		client := NewHTTPClient(testGatewayConfig(server.URL), discardLogger())
		result, err := client.QueryStatus(context.Background(), txnID)
		require.NoError(t, err)
		assert.False(t, result.Succeeded())
	})

	t.Run("non-success envelope is a verification error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": false, "code": "TRANSACTION_NOT_FOUND"}`))
		}))
		defer server.Close()

		client := NewHTTPClient(testGatewayConfig(server.URL), discardLogger())
		_, err := client.QueryStatus(context.Background(), txnID)
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeGatewayVerification))
	})

	t.Run("missing status payload is a verification error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"success": true, "code": "PAYMENT_SUCCESS"}`))
		}))
		defer server.Close()

		client := NewHTTPClient(testGatewayConfig(server.URL), discardLogger())
		_, err := client.QueryStatus(context.Background(), txnID)
		require.Error(t, err)
		assert.True(t, derrors.HasCode(err, derrors.CodeGatewayVerification))
	})
}

func TestVerifyCallbackUsesCallbackPath(t *testing.T) {
	client := NewHTTPClient(testGatewayConfig("http://unused"), discardLogger())
	body := []byte(`{"merchantTransactionId":"MT123ABCDEF"}`)

	goodSig := Sign(body, "/api/donations/callback", testSaltKey, testSaltIndex)
	assert.True(t, client.VerifyCallback(goodSig, body))

	forged := Sign(body, "/api/donations/callback", "wrong-salt", testSaltIndex)
	assert.False(t, client.VerifyCallback(forged, body))

	wrongPath := Sign(body, PayPath, testSaltKey, testSaltIndex)
	assert.False(t, client.VerifyCallback(wrongPath, body))
}
