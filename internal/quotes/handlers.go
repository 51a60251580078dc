package quotes

import (
	"time"

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

type createQuoteRequest struct {
	BuyerOrgID       uuid.UUID                     `json:"buyer_org_id"`
	Title            string                        `json:"title"`
	TotalVolume      decimal.Decimal               `json:"total_volume"`
	VolumeUnit       string                        `json:"volume_unit"`
	VolumeBreakdown  []models.VolumeBreakdownEntry `json:"volume_breakdown"`
	FuelType         string                        `json:"fuel_type"`
	Feedstock        string                        `json:"feedstock"`
	MinGHGReduction  decimal.Decimal               `json:"min_ghg_reduction"`
	PricingType      string                        `json:"pricing_type"`
	Currency         string                        `json:"currency"`
	Incoterms        string                        `json:"incoterms"`
	ResponseDeadline time.Time                     `json:"response_deadline"`
}

// Create posts a new quote request.
// POST /api/v1/quote-requests
func (h *Handlers) Create(c *fiber.Ctx) error {
	var req createQuoteRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.BuyerOrgID == uuid.Nil || req.Title == "" {
		return response.Error(c, "buyer_org_id and title are required", fiber.StatusBadRequest, nil)
	}
	if !validation.IsPositiveVolume(req.TotalVolume) {
		return response.Error(c, "total_volume must be positive", fiber.StatusBadRequest, nil)
	}
	if req.Currency != "" && !validation.IsValidCurrency(req.Currency) {
		return response.Error(c, "currency must be a three-letter code", fiber.StatusBadRequest, nil)
	}
	if !validation.IsValidGHGReduction(req.MinGHGReduction) {
		return response.Error(c, "min_ghg_reduction must be between 0 and 100", fiber.StatusBadRequest, nil)
	}
	rfq, err := h.Service.Create(c.Context(), CreateQuoteRequestInput{
		BuyerOrgID:       req.BuyerOrgID,
		Title:            req.Title,
		TotalVolume:      req.TotalVolume,
		VolumeUnit:       req.VolumeUnit,
		VolumeBreakdown:  req.VolumeBreakdown,
		FuelType:         req.FuelType,
		Feedstock:        req.Feedstock,
		MinGHGReduction:  req.MinGHGReduction,
		PricingType:      req.PricingType,
		Currency:         req.Currency,
		Incoterms:        req.Incoterms,
		ResponseDeadline: req.ResponseDeadline,
	})
	if err != nil {
		return mapQuoteError(c, err)
	}
	return response.SuccessCreated(c, "Quote request created", rfq, nil)
}

// List returns quote requests with an optional ?status= filter.
// GET /api/v1/quote-requests
func (h *Handlers) List(c *fiber.Ctx) error {
	var status *models.QuoteRequestStatus
	if raw := c.Query("status"); raw != "" {
		s := models.QuoteRequestStatus(raw)
		status = &s
	}
	rfqs, err := h.Service.List(c.Context(), status)
	if err != nil {
		return mapQuoteError(c, err)
	}
	return response.Success(c, "Quote requests", rfqs, nil)
}

// Get returns one quote request.
// GET /api/v1/quote-requests/:quote_request_id
func (h *Handlers) Get(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("quote_request_id"))
	if err != nil {
		return response.Error(c, "Invalid quote_request_id", fiber.StatusBadRequest, nil)
	}
	rfq, err := h.Service.Get(c.Context(), id)
	if err != nil {
		return mapQuoteError(c, err)
	}
	return response.Success(c, "Quote request", rfq, nil)
}

// Watch flags buyer interest on an open quote request.
// POST /api/v1/quote-requests/:quote_request_id/watch
func (h *Handlers) Watch(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("quote_request_id"))
	if err != nil {
		return response.Error(c, "Invalid quote_request_id", fiber.StatusBadRequest, nil)
	}
	rfq, err := h.Service.Watch(c.Context(), id)
	if err != nil {
		return mapQuoteError(c, err)
	}
	return response.Success(c, "Quote request watched", rfq, nil)
}

// Close closes a quote request to further bidding.
// POST /api/v1/quote-requests/:quote_request_id/close
func (h *Handlers) Close(c *fiber.Ctx) error {
	id, err := uuid.Parse(c.Params("quote_request_id"))
	if err != nil {
		return response.Error(c, "Invalid quote_request_id", fiber.StatusBadRequest, nil)
	}
	rfq, err := h.Service.Close(c.Context(), id)
	if err != nil {
		return mapQuoteError(c, err)
	}
	return response.Success(c, "Quote request closed", rfq, nil)
}

// Sweep closes every open quote request past its response deadline.
// POST /api/v1/quote-requests/sweep
func (h *Handlers) Sweep(c *fiber.Ctx) error {
	closed, err := h.Service.SweepDeadlines(c.Context(), time.Now())
	if err != nil {
		return mapQuoteError(c, err)
	}
	return response.Success(c, "Deadline sweep complete", fiber.Map{"closed": closed}, nil)
}

func mapQuoteError(c *fiber.Ctx, err error) error {
	switch err {
	case ErrQuoteRequestNotFound:
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case ErrQuoteRequestClosed, ErrBreakdownMismatch, ErrDeadlinePassed:
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case ErrIllegalTransition:
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
}
