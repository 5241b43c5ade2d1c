// Package gateway implements the payment gateway integration: the signed
// request codec, the HTTP client for payment initiation and status queries,
// and a sandbox variant for local runs.
package gateway

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"donation-gateway/internal/platform/config"
	"donation-gateway/pkg/derrors"
)

// Client is the pluggable gateway contract. The real HTTP client and the
// sandbox both implement it; selection happens once at startup, never via
// mode flags inside business logic.
type Client interface {
	// InitiatePayment builds, signs and sends a payment-initiation request.
	// The returned merchant transaction id is the donation's payment
	// reference and must never be regenerated mid-flow.
	InitiatePayment(ctx context.Context, req PaymentRequest) (*InitiationResult, error)
	// QueryStatus asks the gateway for the authoritative state of a
	// transaction. Non-completed states come back as normal results with
	// Succeeded() == false.
	QueryStatus(ctx context.Context, merchantTransactionID string) (*VerificationResult, error)
	// VerifyCallback checks the signature the gateway attached to a
	// server-to-server callback body.
	VerifyCallback(signature string, body []byte) bool
}

// HTTPClient talks to the real gateway.
type HTTPClient struct {
	cfg          config.Gateway
	httpClient   *http.Client
	logger       *slog.Logger
	tracer       trace.Tracer
	callbackPath string
}

// NewHTTPClient constructs the real gateway client from explicit
// configuration.
func NewHTTPClient(cfg config.Gateway, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: cfg.RequestTimeout},
		logger:       logger,
		tracer:       otel.Tracer("donation-gateway/internal/gateway"),
		callbackPath: pathOf(cfg.CallbackURL),
	}
}

// initiationPayload is the JSON document that gets base64-encoded and signed
// against PayPath.
type initiationPayload struct {
	MerchantID            string            `json:"merchantId"`
	MerchantTransactionID string            `json:"merchantTransactionId"`
	Amount                int64             `json:"amount"`
	RedirectURL           string            `json:"redirectUrl"`
	RedirectMode          string            `json:"redirectMode"`
	CallbackURL           string            `json:"callbackUrl"`
	PaymentInstrument     paymentInstrument `json:"paymentInstrument"`
	MobileNumber          string            `json:"mobileNumber,omitempty"`
	MerchantUserID        string            `json:"merchantUserId,omitempty"`
}

type paymentInstrument struct {
	Type string `json:"type"`
}

type initiationEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		InstrumentResponse *struct {
			RedirectInfo *struct {
				URL string `json:"url"`
			} `json:"redirectInfo"`
		} `json:"instrumentResponse"`
	} `json:"data"`
}

type statusEnvelope struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Data    *struct {
		MerchantTransactionID string `json:"merchantTransactionId"`
		TransactionID         string `json:"transactionId"`
		Amount                int64  `json:"amount"`
		State                 string `json:"state"`
		ResponseCode          string `json:"responseCode"`
	} `json:"data"`
}

func (c *HTTPClient) InitiatePayment(ctx context.Context, req PaymentRequest) (*InitiationResult, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.InitiatePayment")
	defer span.End()

	txnID := NewMerchantTransactionID()
	span.SetAttributes(attribute.String("merchant_transaction_id", txnID))

	payload := initiationPayload{
		MerchantID:            c.cfg.MerchantID,
		MerchantTransactionID: txnID,
		Amount:                MinorUnits(req.Amount),
		// The donor's browser comes back to the poll endpoint carrying the
		// transaction id.
		RedirectURL:       c.cfg.RedirectURL + "/" + txnID,
		RedirectMode:      "REDIRECT",
		CallbackURL:       c.cfg.CallbackURL,
		PaymentInstrument: paymentInstrument{Type: "PAY_PAGE"},
		MobileNumber:      req.PayerPhone,
		MerchantUserID:    req.MerchantUserID,
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "marshal initiation payload")
	}

	wireBody, err := json.Marshal(map[string]string{
		"request": base64.StdEncoding.EncodeToString(payloadJSON),
	})
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "marshal initiation envelope")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+PayPath, bytes.NewReader(wireBody))
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "build initiation request")
	}
	c.setHeaders(httpReq, Sign(payloadJSON, PayPath, c.cfg.SaltKey, c.cfg.SaltIndex))

	body, err := c.do(httpReq)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeGatewayInitiation, "payment initiation request failed")
	}

	var envelope initiationEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeGatewayInitiation, "decode initiation response")
	}
	if !envelope.Success {
		c.logger.WarnContext(ctx, "gateway rejected payment initiation",
			"merchant_transaction_id", txnID,
			"code", envelope.Code,
			"message", envelope.Message,
		)
		return nil, derrors.Newf(derrors.CodeGatewayInitiation, "gateway rejected initiation: %s", envelope.Code)
	}
	if envelope.Data == nil || envelope.Data.InstrumentResponse == nil ||
		envelope.Data.InstrumentResponse.RedirectInfo == nil ||
		envelope.Data.InstrumentResponse.RedirectInfo.URL == "" {
		return nil, derrors.New(derrors.CodeGatewayInitiation, "no checkout page URL in gateway response")
	}

	c.logger.InfoContext(ctx, "payment initiated",
		"merchant_transaction_id", txnID,
		"amount_minor_units", payload.Amount,
	)
	return &InitiationResult{
		PaymentURL:            envelope.Data.InstrumentResponse.RedirectInfo.URL,
		MerchantTransactionID: txnID,
	}, nil
}

func (c *HTTPClient) QueryStatus(ctx context.Context, merchantTransactionID string) (*VerificationResult, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.QueryStatus")
	defer span.End()
	span.SetAttributes(attribute.String("merchant_transaction_id", merchantTransactionID))

	statusPath := StatusPath(c.cfg.MerchantID, merchantTransactionID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+statusPath, nil)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeInternal, "build status request")
	}
	// Status checks sign the empty payload against the status path, not the
	// initiation path.
	c.setHeaders(httpReq, Sign(nil, statusPath, c.cfg.SaltKey, c.cfg.SaltIndex))

	body, err := c.do(httpReq)
	if err != nil {
		return nil, derrors.Wrap(err, derrors.CodeGatewayVerification, "status query request failed")
	}

	var envelope statusEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, derrors.Wrap(err, derrors.CodeGatewayVerification, "decode status response")
	}
	if !envelope.Success {
		return nil, derrors.Newf(derrors.CodeGatewayVerification, "gateway reported verification failure: %s", envelope.Code)
	}
	if envelope.Data == nil {
		return nil, derrors.New(derrors.CodeGatewayVerification, "no payment data in status response")
	}

	return &VerificationResult{
		Code:                  envelope.Code,
		State:                 envelope.Data.State,
		ResponseCode:          envelope.Data.ResponseCode,
		MerchantTransactionID: envelope.Data.MerchantTransactionID,
		GatewayTransactionID:  envelope.Data.TransactionID,
		AmountMinorUnits:      envelope.Data.Amount,
		Raw:                   json.RawMessage(body),
	}, nil
}

func (c *HTTPClient) VerifyCallback(signature string, body []byte) bool {
	return Verify(signature, body, c.callbackPath, c.cfg.SaltKey, c.cfg.SaltIndex)
}

func (c *HTTPClient) setHeaders(req *http.Request, verify string) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-VERIFY", verify)
	req.Header.Set("X-MERCHANT-ID", c.cfg.MerchantID)
}

func (c *HTTPClient) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("gateway returned %d", resp.StatusCode)
	}
	return body, nil
}

func pathOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return rawURL
	}
	return u.Path
}
