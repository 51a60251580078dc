package bids

import (
	"skyfuel-backend/internal/models"
	"skyfuel-backend/internal/pkg/response"
	"skyfuel-backend/internal/pkg/validation"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *Service
}

type allocationPayload struct {
	PlantID      uuid.UUID       `json:"plant_id"`
	Year         int             `json:"year"`
	Volume       decimal.Decimal `json:"volume"`
	GHGReduction decimal.Decimal `json:"ghg_reduction"`
}

type createBidRequest struct {
	QuoteRequestID uuid.UUID           `json:"quote_request_id"`
	ProducerOrgID  uuid.UUID           `json:"producer_org_id"`
	OfferUnitPrice decimal.Decimal     `json:"offer_unit_price"`
	Currency       string              `json:"currency"`
	PricingType    string              `json:"pricing_type"`
	Allocations    []allocationPayload `json:"allocations"`
}

// CreateBid creates a draft bid against a quote request.
// POST /api/v1/bids
func (h *Handlers) CreateBid(c *fiber.Ctx) error {
	var req createBidRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.QuoteRequestID == uuid.Nil || req.ProducerOrgID == uuid.Nil {
		return response.Error(c, "quote_request_id and producer_org_id are required", fiber.StatusBadRequest, nil)
	}
	if len(req.Allocations) == 0 {
		return response.Error(c, "At least one plant allocation is required", fiber.StatusBadRequest, nil)
	}
	for _, a := range req.Allocations {
		if !validation.IsPlausibleYear(a.Year) {
			return response.Error(c, "Allocation year out of range", fiber.StatusBadRequest, nil)
		}
		if !validation.IsPositiveVolume(a.Volume) {
			return response.Error(c, "Allocation volume must be positive", fiber.StatusBadRequest, nil)
		}
	}
	bid, err := h.Service.CreateBid(c.Context(), CreateBidInput{
		QuoteRequestID: req.QuoteRequestID,
		ProducerOrgID:  req.ProducerOrgID,
		OfferUnitPrice: req.OfferUnitPrice,
		Currency:       req.Currency,
		PricingType:    req.PricingType,
		Allocations:    toAllocationInputs(req.Allocations),
	})
	if err != nil {
		return mapBidError(c, err)
	}
	return response.SuccessCreated(c, "Bid created", bid, nil)
}

// GetBid returns a bid with allocations and approver state.
// GET /api/v1/bids/:bid_id
func (h *Handlers) GetBid(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.GetBid(c.Context(), bidID)
	if err != nil && err != ErrBidSuperseded {
		return mapBidError(c, err)
	}
	return response.Success(c, "Bid", bid, nil)
}

type updateDraftRequest struct {
	OfferUnitPrice decimal.Decimal     `json:"offer_unit_price"`
	Allocations    []allocationPayload `json:"allocations"`
}

// UpdateDraft replaces a draft bid's offer and allocations.
// PUT /api/v1/bids/:bid_id
func (h *Handlers) UpdateDraft(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	var req updateDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.UpdateDraft(c.Context(), bidID, req.OfferUnitPrice, toAllocationInputs(req.Allocations))
	if err != nil {
		return mapBidError(c, err)
	}
	return response.Success(c, "Bid updated", bid, nil)
}

// RequestApproval moves a draft into the approval workflow.
// POST /api/v1/bids/:bid_id/request-approval
func (h *Handlers) RequestApproval(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.RequestApproval(c.Context(), bidID)
	if err != nil {
		return mapBidError(c, err)
	}
	return response.Success(c, "Approval requested", bid, nil)
}

type decisionRequest struct {
	ApproverID uuid.UUID               `json:"approver_id"`
	Decision   models.ApproverDecision `json:"decision"`
	Reason     *string                 `json:"reason"`
}

// RecordDecision registers an approver's decision.
// POST /api/v1/bids/:bid_id/decisions
func (h *Handlers) RecordDecision(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	var req decisionRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.Decision != models.DecisionApproved && req.Decision != models.DecisionRejected {
		return response.Error(c, "decision must be approved or rejected", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.RecordDecision(c.Context(), bidID, req.ApproverID, req.Decision, req.Reason)
	if err != nil {
		return mapBidError(c, err)
	}
	return response.Success(c, "Decision recorded", bid, nil)
}

// Submit moves an approved (or approval-exempt) bid to submitted.
// POST /api/v1/bids/:bid_id/submit
func (h *Handlers) Submit(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.Submit(c.Context(), bidID)
	if err != nil {
		return mapBidError(c, err)
	}
	return response.Success(c, "Bid submitted", bid, nil)
}

type decideRequest struct {
	Outcome models.BidStatus `json:"outcome"`
}

// Decide records the commercial outcome (won or lost) of a submitted bid.
// POST /api/v1/bids/:bid_id/decide
func (h *Handlers) Decide(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	var req decideRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.Decide(c.Context(), bidID, req.Outcome)
	if err != nil {
		return mapBidError(c, err)
	}
	return response.Success(c, "Bid decided", bid, nil)
}

// Withdraw pulls a bid before decision.
// POST /api/v1/bids/:bid_id/withdraw
func (h *Handlers) Withdraw(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.Withdraw(c.Context(), bidID)
	if err != nil {
		return mapBidError(c, err)
	}
	return response.Success(c, "Bid withdrawn", bid, nil)
}

// Revise creates the next version of a submitted bid.
// POST /api/v1/bids/:bid_id/revise
func (h *Handlers) Revise(c *fiber.Ctx) error {
	bidID, err := uuid.Parse(c.Params("bid_id"))
	if err != nil {
		return response.Error(c, "Invalid bid_id", fiber.StatusBadRequest, nil)
	}
	bid, err := h.Service.Revise(c.Context(), bidID)
	if err != nil {
		return mapBidError(c, err)
	}
	return response.SuccessCreated(c, "Bid revision created", bid, nil)
}

func toAllocationInputs(payloads []allocationPayload) []AllocationInput {
	inputs := make([]AllocationInput, 0, len(payloads))
	for _, p := range payloads {
		inputs = append(inputs, AllocationInput{
			PlantID:      p.PlantID,
			Year:         p.Year,
			Volume:       p.Volume,
			GHGReduction: p.GHGReduction,
		})
	}
	return inputs
}

func mapBidError(c *fiber.Ctx, err error) error {
	switch err {
	case ErrBidNotFound, ErrQuoteRequestNotFound:
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case ErrQuoteRequestClosed, ErrUnknownApprover, ErrAlreadyDecided, ErrOutOfOrder,
		ErrApprovalIncomplete, ErrApprovalNotRequired, ErrPlannedOverCapacity,
		ErrNoApproverRoster, ErrBidSuperseded:
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case ErrIllegalTransition:
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
}
