package gateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"donation-gateway/internal/platform/config"
)

// Sandbox is the gateway client used for local runs and demos. It skips the
// network entirely: initiation hands back a checkout URL pointing at the
// poll endpoint, status queries report completion for payments this instance
// issued and failure for anything else. Signature verification still uses
// the real codec so callback handling stays honest.
type Sandbox struct {
	cfg          config.Gateway
	logger       *slog.Logger
	callbackPath string

	mu     sync.Mutex
	issued map[string]int64 // merchant txn id -> amount in paise
}

// NewSandbox constructs the fake gateway client.
func NewSandbox(cfg config.Gateway, logger *slog.Logger) *Sandbox {
	return &Sandbox{
		cfg:          cfg,
		logger:       logger,
		callbackPath: pathOf(cfg.CallbackURL),
		issued:       make(map[string]int64),
	}
}

func (s *Sandbox) InitiatePayment(ctx context.Context, req PaymentRequest) (*InitiationResult, error) {
	txnID := NewMerchantTransactionID()
	s.mu.Lock()
	s.issued[txnID] = MinorUnits(req.Amount)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "sandbox payment initiated", "merchant_transaction_id", txnID)
	return &InitiationResult{
		PaymentURL:            s.cfg.RedirectURL + "/" + txnID,
		MerchantTransactionID: txnID,
	}, nil
}

func (s *Sandbox) QueryStatus(ctx context.Context, merchantTransactionID string) (*VerificationResult, error) {
	s.mu.Lock()
	amount, known := s.issued[merchantTransactionID]
	s.mu.Unlock()

	result := &VerificationResult{
		Code:                  "PAYMENT_SUCCESS",
		State:                 stateCompleted,
		ResponseCode:          responseCodeSuccess,
		MerchantTransactionID: merchantTransactionID,
		GatewayTransactionID:  "SANDBOX-" + merchantTransactionID,
		AmountMinorUnits:      amount,
	}
	// References this instance never issued (or issued before a restart)
	// report failure, so the failed path stays reachable in sandbox runs.
	if !known {
		result.Code = "PAYMENT_ERROR"
		result.State = "FAILED"
		result.ResponseCode = "PAYMENT_ERROR"
	}
	raw, _ := json.Marshal(result)
	result.Raw = raw
	return result, nil
}

func (s *Sandbox) VerifyCallback(signature string, body []byte) bool {
	return Verify(signature, body, s.callbackPath, s.cfg.SaltKey, s.cfg.SaltIndex)
}
