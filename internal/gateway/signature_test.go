package gateway

import (
	"strings"
	"testing"
)

const (
	testSaltKey   = "4b5d5335-448b-472d-a78f-d0876d6e9903"
	testSaltIndex = "1"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	payload := []byte(`{"merchantId":"M1","amount":50000}`)

	sig := Sign(payload, PayPath, testSaltKey, testSaltIndex)
	if !strings.HasSuffix(sig, "###"+testSaltIndex) {
		t.Fatalf("signature missing salt index suffix: %q", sig)
	}
	if !Verify(sig, payload, PayPath, testSaltKey, testSaltIndex) {
		t.Fatal("expected signature to verify against the same inputs")
	}
}

func TestVerifyRejectsSingleCharacterMutations(t *testing.T) {
	payload := []byte(`{"merchantId":"M1","amount":50000}`)
	sig := Sign(payload, PayPath, testSaltKey, testSaltIndex)

	t.Run("mutated payload", func(t *testing.T) {
		mutated := append([]byte(nil), payload...)
		mutated[0] ^= 0x01
		if Verify(sig, mutated, PayPath, testSaltKey, testSaltIndex) {
			t.Fatal("expected verification to fail for mutated payload")
		}
	})

	t.Run("mutated path", func(t *testing.T) {
		if Verify(sig, payload, PayPath+"x", testSaltKey, testSaltIndex) {
			t.Fatal("expected verification to fail for mutated path")
		}
	})

	t.Run("mutated salt key", func(t *testing.T) {
		if Verify(sig, payload, PayPath, testSaltKey+"x", testSaltIndex) {
			t.Fatal("expected verification to fail for mutated salt key")
		}
	})

	t.Run("mutated salt index", func(t *testing.T) {
		if Verify(sig, payload, PayPath, testSaltKey, "2") {
			t.Fatal("expected verification to fail for mutated salt index")
		}
	})
}

// Signing against the wrong endpoint path is the classic integration defect:
// a signature computed for the pay path must never verify against a status
// path and vice versa.
func TestSignIsPathSensitive(t *testing.T) {
	statusPath := StatusPath("M1", "MT123ABC")

	paySig := Sign(nil, PayPath, testSaltKey, testSaltIndex)
	statusSig := Sign(nil, statusPath, testSaltKey, testSaltIndex)

	if paySig == statusSig {
		t.Fatal("pay and status signatures must differ")
	}
	if Verify(paySig, nil, statusPath, testSaltKey, testSaltIndex) {
		t.Fatal("pay-path signature must not verify against the status path")
	}
}

// Status checks sign the empty string, not the JSON body. A signature over
// the body must not be accepted for a status path.
func TestStatusSigningUsesEmptyPayload(t *testing.T) {
	statusPath := StatusPath("M1", "MT123ABC")
	body := []byte(`{"state":"COMPLETED"}`)

	emptySig := Sign(nil, statusPath, testSaltKey, testSaltIndex)
	bodySig := Sign(body, statusPath, testSaltKey, testSaltIndex)

	if emptySig == bodySig {
		t.Fatal("empty-payload and body signatures must differ")
	}
	if !Verify(emptySig, nil, statusPath, testSaltKey, testSaltIndex) {
		t.Fatal("empty-payload signature must verify")
	}
}
