package ledger

import (
	"time"

	"skyfuel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Handlers struct {
	Service *Service
}

type logBatchRequest struct {
	PlantID         uuid.UUID       `json:"plant_id"`
	BatchNumber     string          `json:"batch_number"`
	Volume          decimal.Decimal `json:"volume"`
	VolumeUnit      string          `json:"volume_unit"`
	GHGReduction    decimal.Decimal `json:"ghg_reduction"`
	ComplianceFlags map[string]bool `json:"compliance_flags"`
	ProducedAt      *time.Time      `json:"produced_at"`
}

// LogBatch records a new production batch.
// POST /api/v1/ledger/batches
func (h *Handlers) LogBatch(c *fiber.Ctx) error {
	var req logBatchRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.PlantID == uuid.Nil || req.BatchNumber == "" {
		return response.Error(c, "plant_id and batch_number are required", fiber.StatusBadRequest, nil)
	}
	producedAt := time.Now()
	if req.ProducedAt != nil {
		producedAt = *req.ProducedAt
	}
	batch, err := h.Service.LogBatch(c.Context(), LogBatchInput{
		PlantID:         req.PlantID,
		BatchNumber:     req.BatchNumber,
		Volume:          req.Volume,
		VolumeUnit:      req.VolumeUnit,
		GHGReduction:    req.GHGReduction,
		ComplianceFlags: req.ComplianceFlags,
		ProducedAt:      producedAt,
	})
	if err != nil {
		return mapLedgerError(c, err)
	}
	return response.SuccessCreated(c, "Batch logged", batch, nil)
}

// GetBatch returns a batch with its allocation list.
// GET /api/v1/ledger/batches/:batch_id
func (h *Handlers) GetBatch(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("batch_id"))
	if err != nil {
		return response.Error(c, "Invalid batch_id", fiber.StatusBadRequest, nil)
	}
	batch, err := h.Service.GetBatch(c.Context(), batchID)
	if err != nil {
		return mapLedgerError(c, err)
	}
	return response.Success(c, "Batch", batch, nil)
}

type allocationRequest struct {
	ContractID uuid.UUID       `json:"contract_id"`
	Volume     decimal.Decimal `json:"volume"`
}

// Allocate consumes batch capacity for a contract.
// POST /api/v1/ledger/batches/:batch_id/allocate
func (h *Handlers) Allocate(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("batch_id"))
	if err != nil {
		return response.Error(c, "Invalid batch_id", fiber.StatusBadRequest, nil)
	}
	var req allocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	batch, err := h.Service.Allocate(c.Context(), batchID, req.ContractID, req.Volume)
	if err != nil {
		return mapLedgerError(c, err)
	}
	return response.Success(c, "Volume allocated", batch, nil)
}

// Deallocate releases previously allocated capacity.
// POST /api/v1/ledger/batches/:batch_id/deallocate
func (h *Handlers) Deallocate(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("batch_id"))
	if err != nil {
		return response.Error(c, "Invalid batch_id", fiber.StatusBadRequest, nil)
	}
	var req allocationRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	batch, err := h.Service.Deallocate(c.Context(), batchID, req.ContractID, req.Volume)
	if err != nil {
		return mapLedgerError(c, err)
	}
	return response.Success(c, "Volume deallocated", batch, nil)
}

// MarkDelivered freezes a fully allocated batch.
// POST /api/v1/ledger/batches/:batch_id/delivered
func (h *Handlers) MarkDelivered(c *fiber.Ctx) error {
	batchID, err := uuid.Parse(c.Params("batch_id"))
	if err != nil {
		return response.Error(c, "Invalid batch_id", fiber.StatusBadRequest, nil)
	}
	batch, err := h.Service.MarkDelivered(c.Context(), batchID)
	if err != nil {
		return mapLedgerError(c, err)
	}
	return response.Success(c, "Batch marked delivered", batch, nil)
}

func mapLedgerError(c *fiber.Ctx, err error) error {
	switch err {
	case ErrBatchNotFound, ErrContractNotFound:
		return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
	case ErrInsufficientCapacity, ErrAllocationNotFound, ErrBatchDelivered, ErrBatchNotFullyAllocated, ErrNonPositiveVolume:
		return response.Error(c, err.Error(), fiber.StatusUnprocessableEntity, nil)
	case ErrConcurrentUpdate:
		return response.Error(c, err.Error(), fiber.StatusConflict, nil)
	default:
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
}
