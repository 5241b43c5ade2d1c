package gateway

import (
	"crypto/rand"
	"encoding/json"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// Gateway sentinels for a fully completed payment. A 200 envelope alone never
// classifies a payment as successful; the gateway's own state field decides.
const (
	stateCompleted      = "COMPLETED"
	responseCodeSuccess = "SUCCESS"
)

// PaymentRequest is the ephemeral value object handed to InitiatePayment.
// The merchant transaction id is generated inside the client and projected
// back onto the donation as its payment reference.
type PaymentRequest struct {
	// Amount in rupees as submitted by the donor; converted to paise at
	// request-build time.
	Amount float64
	// PayerPhone is optional donor contact forwarded to the gateway.
	PayerPhone string
	// MerchantUserID correlates the payment with an account holder, empty
	// for guest donations.
	MerchantUserID string
}

// InitiationResult is what a successful payment initiation yields.
type InitiationResult struct {
	PaymentURL            string
	MerchantTransactionID string
}

// VerificationResult is the normalized outcome of one authoritative status
// query. Each query produces a fresh value; it is never mutated.
type VerificationResult struct {
	Code                  string
	State                 string
	ResponseCode          string
	MerchantTransactionID string
	GatewayTransactionID  string
	AmountMinorUnits      int64
	// Raw retains the gateway's response body for audit.
	Raw json.RawMessage
}

// Succeeded reports whether the gateway considers the payment fully
// completed. Anything else is a first-class failed outcome, not an error.
func (v *VerificationResult) Succeeded() bool {
	return v.State == stateCompleted && v.ResponseCode == responseCodeSuccess
}

// maxTransactionIDLen is the gateway-imposed bound on merchant transaction
// ids.
const maxTransactionIDLen = 36

const txnSuffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewMerchantTransactionID generates a merchant transaction id that is
// globally unique with high probability: "MT" + base-36 nanosecond timestamp
// + 6 random alphanumeric characters, uppercase throughout and well under
// the gateway's 36-character limit.
func NewMerchantTransactionID() string {
	var b strings.Builder
	b.WriteString("MT")
	b.WriteString(strings.ToUpper(strconv.FormatInt(time.Now().UnixNano(), 36)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(txnSuffixAlphabet))))
		if err != nil {
			// crypto/rand only fails if the OS entropy source is broken;
			// fall back to a timestamp-derived character.
			n = big.NewInt(time.Now().UnixNano() % int64(len(txnSuffixAlphabet)))
		}
		b.WriteByte(txnSuffixAlphabet[n.Int64()])
	}
	id := b.String()
	if len(id) > maxTransactionIDLen {
		id = id[:maxTransactionIDLen]
	}
	return id
}

// MinorUnits converts a rupee amount to paise, rounding half up on the
// decimal value. The conversion goes through the shortest decimal
// representation so 99.995 rounds to 10000 rather than the 9999 a naive
// float multiply produces.
func MinorUnits(amount float64) int64 {
	r, ok := new(big.Rat).SetString(strconv.FormatFloat(amount, 'f', -1, 64))
	if !ok {
		return int64(amount * 100)
	}
	r.Mul(r, big.NewRat(100, 1))
	quo, rem := new(big.Int).QuoRem(r.Num(), r.Denom(), new(big.Int))
	rem.Abs(rem).Mul(rem, big.NewInt(2))
	if rem.Cmp(r.Denom()) >= 0 {
		if r.Sign() >= 0 {
			quo.Add(quo, big.NewInt(1))
		} else {
			quo.Sub(quo, big.NewInt(1))
		}
	}
	return quo.Int64()
}
