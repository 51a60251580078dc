package contracts

import (
	"time"

	"skyfuel-backend/internal/ledger"
	"skyfuel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *Service
}

type materializeRequest struct {
	BidID uuid.UUID `json:"bid_id"`
}

// Materialize converts a won bid into a contract with a delivery schedule.
// POST /api/v1/contracts/materialize
func (h *Handlers) Materialize(c *fiber.Ctx) error {
	var req materializeRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.BidID == uuid.Nil {
		return response.Error(c, "bid_id is required", fiber.StatusBadRequest, nil)
	}
	contract, err := h.Service.Materialize(c.Context(), req.BidID)
	if err != nil {
		return mapContractError(c, err)
	}
	return response.SuccessCreated(c, "Contract materialized", contract, nil)
}

// GetContract returns a contract with its delivery schedule and derived
// figures.
// GET /api/v1/contracts/:contract_id
func (h *Handlers) GetContract(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("contract_id"))
	if err != nil {
		return response.Error(c, "Invalid contract_id", fiber.StatusBadRequest, nil)
	}
	contract, err := h.Service.GetContract(c.Context(), contractID)
	if err != nil {
		return mapContractError(c, err)
	}
	return response.Success(c, "Contract", contract, nil)
}

type logDeliveryRequest struct {
	ActualDate   *time.Time      `json:"actual_date"`
	ActualVolume decimal.Decimal `json:"actual_volume"`
	BatchRefs    []BatchRef      `json:"batch_refs"`
}

// LogDelivery records fulfillment of a scheduled delivery.
// POST /api/v1/contracts/:contract_id/deliveries/:delivery_id/log
func (h *Handlers) LogDelivery(c *fiber.Ctx) error {
	contractID, deliveryID, err := parseDeliveryPath(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	var req logDeliveryRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	actualDate := time.Now()
	if req.ActualDate != nil {
		actualDate = *req.ActualDate
	}
	contract, err := h.Service.LogDelivery(c.Context(), contractID, deliveryID, actualDate, req.ActualVolume, req.BatchRefs)
	if err != nil {
		return mapContractError(c, err)
	}
	return response.Success(c, "Delivery logged", contract, nil)
}

// MarkInvoiced moves a delivered delivery to invoiced.
// POST /api/v1/contracts/:contract_id/deliveries/:delivery_id/invoice
func (h *Handlers) MarkInvoiced(c *fiber.Ctx) error {
	contractID, deliveryID, err := parseDeliveryPath(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	contract, err := h.Service.MarkInvoiced(c.Context(), contractID, deliveryID)
	if err != nil {
		return mapContractError(c, err)
	}
	return response.Success(c, "Delivery invoiced", contract, nil)
}

// MarkPaid moves an invoiced delivery to paid.
// POST /api/v1/contracts/:contract_id/deliveries/:delivery_id/pay
func (h *Handlers) MarkPaid(c *fiber.Ctx) error {
	contractID, deliveryID, err := parseDeliveryPath(c)
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusBadRequest, nil)
	}
	contract, err := h.Service.MarkPaid(c.Context(), contractID, deliveryID)
	if err != nil {
		return mapContractError(c, err)
	}
	return response.Success(c, "Delivery paid", contract, nil)
}

// Cancel marks a contract cancelled.
// POST /api/v1/contracts/:contract_id/cancel
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	contractID, err := uuid.Parse(c.Params("contract_id"))
	if err != nil {
		return response.Error(c, "Invalid contract_id", fiber.StatusBadRequest, nil)
	}
	contract, err := h.Service.Cancel(c.Context(), contractID)
	if err != nil {
		return mapContractError(c, err)
	}
	return response.Success(c, "Contract cancelled", contract, nil)
}

func parseDeliveryPath(c *fiber.Ctx) (uuid.UUID, uuid.UUID, error) {
	contractID, err := uuid.Parse(c.Params("contract_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid contract_id")
	}
	deliveryID, err := uuid.Parse(c.Params("delivery_id"))
	if err != nil {
		return uuid.Nil, uuid.Nil, fiber.NewError(fiber.StatusBadRequest, "Invalid delivery_id")
	}
	return contractID, deliveryID, nil
}

func mapContractError(c *fiber.Ctx, err error) error {
	switch err {
	case ErrContractNotFound, ErrDeliveryNotFound, ErrBidNotFound, ledger.ErrBatchNotFound:
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case ErrVolumeOutOfTolerance, ErrBidNotWon, ErrContractExists,
		ledger.ErrInsufficientCapacity, ledger.ErrBatchDelivered, ledger.ErrNonPositiveVolume:
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case ErrIllegalTransition:
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	case ledger.ErrConcurrentUpdate:
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
}
