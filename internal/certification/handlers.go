package certification

import (
	"time"

	"skyfuel-backend/internal/models"
	"skyfuel-backend/internal/pkg/response"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

type Handlers struct {
	Service *Service
}

// GetPlantCertification returns the plant with a freshly derived rollup.
// GET /api/v1/certification/plants/:plant_id
func (h *Handlers) GetPlantCertification(c *fiber.Ctx) error {
	plantID, err := uuid.Parse(c.Params("plant_id"))
	if err != nil {
		return response.Error(c, "Invalid plant_id", fiber.StatusBadRequest, nil)
	}
	plant, err := h.Service.RefreshPlant(c.Context(), plantID, time.Now())
	if err != nil {
		if err == ErrPlantNotFound {
			return response.Error(c, err.Error(), fiber.StatusNotFound, nil)
		}
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Plant certification", plant, nil)
}

type upsertCertificateRequest struct {
	CertificateID     *uuid.UUID `json:"certificate_id"`
	OrgID             uuid.UUID  `json:"org_id"`
	PlantID           *uuid.UUID `json:"plant_id"`
	OrgWide           bool       `json:"org_wide"`
	IssuingBody       string     `json:"issuing_body"`
	CertificateNumber string     `json:"certificate_number"`
	Scheme            string     `json:"scheme"`
	IssueDate         time.Time  `json:"issue_date"`
	ExpiryDate        time.Time  `json:"expiry_date"`
}

// UpsertCertificate creates or replaces a certificate. Status is derived.
// PUT /api/v1/certification/certificates
func (h *Handlers) UpsertCertificate(c *fiber.Ctx) error {
	var req upsertCertificateRequest
	if err := c.BodyParser(&req); err != nil {
		return response.Error(c, "Invalid request body", fiber.StatusBadRequest, nil)
	}
	if req.OrgID == uuid.Nil || req.IssuingBody == "" || req.CertificateNumber == "" {
		return response.Error(c, "org_id, issuing_body and certificate_number are required", fiber.StatusBadRequest, nil)
	}
	cert := &models.Certificate{
		OrgID:             req.OrgID,
		PlantID:           req.PlantID,
		OrgWide:           req.OrgWide,
		IssuingBody:       req.IssuingBody,
		CertificateNumber: req.CertificateNumber,
		Scheme:            req.Scheme,
		IssueDate:         req.IssueDate,
		ExpiryDate:        req.ExpiryDate,
	}
	if req.CertificateID != nil {
		cert.CertificateID = *req.CertificateID
	}
	cert, err := h.Service.UpsertCertificate(c.Context(), cert, time.Now())
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.SuccessCreated(c, "Certificate saved", cert, nil)
}

// Sweep reclassifies all certificates and plant rollups.
// POST /api/v1/certification/sweep
func (h *Handlers) Sweep(c *fiber.Ctx) error {
	refreshed, err := h.Service.SweepCertificates(c.Context(), time.Now())
	if err != nil {
		return response.Error(c, err.Error(), fiber.StatusInternalServerError, nil)
	}
	return response.Success(c, "Certification sweep complete", fiber.Map{"plants_refreshed": refreshed}, nil)
}
