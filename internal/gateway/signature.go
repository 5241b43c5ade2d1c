package gateway

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
)

// Endpoint paths the gateway signs against. The signed string differs per
// endpoint: initiation signs the base64 request payload, status checks sign
// the empty string in place of a payload. Using the wrong path is a classic
// integration defect, so both constants live here next to the codec.
const (
	PayPath          = "/pg/v1/pay"
	statusPathPrefix = "/pg/v1/status"

	signatureSeparator = "###"
)

// StatusPath builds the status-check path for a merchant transaction. The
// path itself is part of the signed string.
func StatusPath(merchantID, merchantTransactionID string) string {
	return fmt.Sprintf("%s/%s/%s", statusPathPrefix, merchantID, merchantTransactionID)
}

// Sign computes the tamper-evident request signature:
// hex(sha256(base64(payload) || path || saltKey)) followed by "###" and the
// salt index. A nil payload signs the empty string, which is what status
// checks require.
func Sign(payload []byte, path, saltKey, saltIndex string) string {
	encoded := ""
	if len(payload) > 0 {
		encoded = base64.StdEncoding.EncodeToString(payload)
	}
	sum := sha256.Sum256([]byte(encoded + path + saltKey))
	return hex.EncodeToString(sum[:]) + signatureSeparator + saltIndex
}

// Verify recomputes the signature and compares in constant time.
func Verify(signature string, payload []byte, path, saltKey, saltIndex string) bool {
	expected := Sign(payload, path, saltKey, saltIndex)
	return subtle.ConstantTimeCompare([]byte(signature), []byte(expected)) == 1
}
