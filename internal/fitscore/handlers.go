package fitscore

import (
	"skyfuel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *Service
}

// GetScore returns the advisory fit verdict for a producer against an RFQ.
// GET /api/v1/fit/:quote_request_id/:producer_org_id
func (h *Handlers) GetScore(c *fiber.Ctx) error {
	rfqID, err := uuid.Parse(c.Params("quote_request_id"))
	if err != nil {
		return response.Error(c, "Invalid quote_request_id", fiber.StatusBadRequest, nil)
	}
	orgID, err := uuid.Parse(c.Params("producer_org_id"))
	if err != nil {
		return response.Error(c, "Invalid producer_org_id", fiber.StatusBadRequest, nil)
	}
	verdict, err := h.Service.ScoreRequest(c.Context(), rfqID, orgID)
	if err != nil {
		switch err {
		case ErrQuoteRequestNotFound, ErrCapabilityNotDeclared:
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		default:
			return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
		}
	}
	return response.Success(c, "Fit verdict", fiber.Map{"verdict": verdict}, nil)
}

type declareCapabilityRequest struct {
	OrgID           uuid.UUID       `json:"org_id"`
	MaxAnnualVolume decimal.Decimal `json:"max_annual_volume"`
	VolumeUnit      string          `json:"volume_unit"`
	MaxGHGReduction decimal.Decimal `json:"max_ghg_reduction"`
}

// DeclareCapability stores a producer capability band.
// POST /api/v1/fit/capability
func (h *Handlers) DeclareCapability(c *fiber.Ctx) error {
	var req declareCapabilityRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.OrgID == uuid.Nil {
		return response.Error(c, "org_id is required", fiber.StatusBadRequest, nil)
	}
	capability, err := h.Service.DeclareCapability(c.Context(), req.OrgID, req.MaxAnnualVolume, req.MaxGHGReduction, req.VolumeUnit)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Capability declared", capability, nil)
}
