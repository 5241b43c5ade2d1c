// Package models defines the donation aggregate and its status lifecycle.
package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"donation-gateway/pkg/derrors"
)

// DonationType enumerates the supported donation categories.
type DonationType string

const (
	TypeGeneral    DonationType = "general"
	TypeIndividual DonationType = "individual"
	TypeFamily     DonationType = "family"
)

// Valid reports whether t is a known donation type.
func (t DonationType) Valid() bool {
	switch t {
	case TypeGeneral, TypeIndividual, TypeFamily:
		return true
	}
	return false
}

// Status enumerates the donation payment lifecycle.
//
// Transitions:
//   - pending  -> completed (fresh successful verification only)
//   - pending  -> failed    (verification reported non-success, or
//     initiation failed before a usable reference existed)
//   - failed   -> pending   (explicit re-attempt; supersedes the payment
//     reference)
//
// completed is terminal; nothing transitions out of it.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// DonorInfo carries the donor's contact details. Email is stored lower-cased
// so lookups are case-insensitive.
type DonorInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone,omitempty"`
	Address string `json:"address,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	Pincode string `json:"pincode,omitempty"`
	PAN     string `json:"pan,omitempty"`
}

// FamilyMember is one entry of a family donation's member list.
type FamilyMember struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Age      int    `json:"age"`
}

// Donation is the aggregate tracked through payment orchestration.
//
// Invariants:
//   - Amount is positive and at least the configured minimum
//   - At most one live PaymentReference; it changes only through a
//     failed -> pending re-attempt
//   - CreatedAt is immutable; UpdatedAt is bumped on every mutation
//   - Once Status is completed, further reconciliation attempts are
//     state no-ops
type Donation struct {
	ID     uuid.UUID    `json:"id"`
	UserID string       `json:"user_id,omitempty"`
	Type   DonationType `json:"type"`
	// Amount in rupees as submitted; the gateway client converts to paise.
	Amount    float64   `json:"amount"`
	DonorInfo DonorInfo `json:"donor_info"`
	// FamilyMembers is populated for family donations only.
	FamilyMembers []FamilyMember `json:"family_members,omitempty"`
	Status        Status         `json:"status"`
	// PaymentReference is the merchant transaction id assigned at
	// request-build time.
	PaymentReference string `json:"payment_reference,omitempty"`
	// PaymentDetails retains the verification payload captured at
	// reconciliation time.
	PaymentDetails json.RawMessage `json:"payment_details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// CanComplete checks the pending -> completed guard. It is the sole
// idempotency mechanism for reconciliation: whichever caller observes
// pending first wins the transition.
func (d *Donation) CanComplete() error {
	if d.Status == StatusCompleted {
		return derrors.New(derrors.CodeConflict, "donation is already completed")
	}
	if d.Status != StatusPending {
		return derrors.Newf(derrors.CodeConflict, "cannot complete donation in status %q", d.Status)
	}
	return nil
}

// ApplyCompletion transitions the donation to completed, recording the
// verification payload. Call CanComplete first.
func (d *Donation) ApplyCompletion(details json.RawMessage, now time.Time) {
	d.Status = StatusCompleted
	d.PaymentDetails = details
	d.UpdatedAt = now
}

// CanFail checks the pending -> failed guard. Completed donations never
// regress to failed.
func (d *Donation) CanFail() error {
	if d.Status == StatusCompleted {
		return derrors.New(derrors.CodeConflict, "donation is already completed")
	}
	if d.Status != StatusPending {
		return derrors.Newf(derrors.CodeConflict, "cannot fail donation in status %q", d.Status)
	}
	return nil
}

// ApplyFailure transitions the donation to failed. Call CanFail first.
func (d *Donation) ApplyFailure(details json.RawMessage, now time.Time) {
	d.Status = StatusFailed
	d.PaymentDetails = details
	d.UpdatedAt = now
}

// CanReopen checks the failed -> pending guard used by the re-attempt flow.
func (d *Donation) CanReopen() error {
	if d.Status != StatusFailed {
		return derrors.Newf(derrors.CodeConflict, "cannot re-attempt donation in status %q", d.Status)
	}
	return nil
}

// ApplyReopen re-opens a failed donation with a fresh payment reference,
// superseding the old one. Call CanReopen first.
func (d *Donation) ApplyReopen(paymentReference string, now time.Time) {
	d.Status = StatusPending
	d.PaymentReference = paymentReference
	d.PaymentDetails = nil
	d.UpdatedAt = now
}
