package handler

import (
	"donation-gateway/internal/donation/models"
	"donation-gateway/internal/donation/service"
)

// createDonationRequest is the wire shape shared by the three creation
// endpoints; the route decides the donation type.
type createDonationRequest struct {
	Amount        float64               `json:"amount"`
	Name          string                `json:"name"`
	Email         string                `json:"email"`
	Phone         string                `json:"phone,omitempty"`
	Address       string                `json:"address,omitempty"`
	City          string                `json:"city,omitempty"`
	State         string                `json:"state,omitempty"`
	Pincode       string                `json:"pincode,omitempty"`
	PAN           string                `json:"pan,omitempty"`
	FamilyMembers []models.FamilyMember `json:"family_members,omitempty"`
}

func (r createDonationRequest) toServiceRequest(donationType models.DonationType) service.CreateRequest {
	return service.CreateRequest{
		Type:   donationType,
		Amount: r.Amount,
		Donor: models.DonorInfo{
			Name:    r.Name,
			Email:   r.Email,
			Phone:   r.Phone,
			Address: r.Address,
			City:    r.City,
			State:   r.State,
			Pincode: r.Pincode,
			PAN:     r.PAN,
		},
		FamilyMembers: r.FamilyMembers,
	}
}

// updateStatusRequest carries the manual status override.
type updateStatusRequest struct {
	Status models.Status `json:"status"`
}

// callbackBody is the subset of the gateway's callback payload the handler
// needs; the full body is re-verified and then passed to reconciliation.
type callbackBody struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
	Response              string `json:"response,omitempty"`
}
