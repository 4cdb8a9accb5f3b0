package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/healthmate/server/internal/middleware"
	"github.com/healthmate/server/internal/services"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
)

type RecordsHandler struct {
	Ingestion *services.IngestionService
	Documents *services.DocumentService
	Audit     *services.AuditService
}

func NewRecordsHandler(ingestion *services.IngestionService, documents *services.DocumentService, audit *services.AuditService) *RecordsHandler {
	return &RecordsHandler{Ingestion: ingestion, Documents: documents, Audit: audit}
}

func (h *RecordsHandler) audit(c *fiber.Ctx, entry services.AuditEntry) {
	if h.Audit == nil {
		return
	}
	entry.IPAddress = c.IP()
	entry.RequestID = middleware.RequestID(c)
	h.Audit.LogAsync(entry)
}

func (h *RecordsHandler) Stage(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "file is required")
	}

	stream, err := fileHeader.Open()
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed opening uploaded file")
	}
	defer stream.Close()

	staged, err := h.Ingestion.Stage(
		c.UserContext(),
		sess.UserID,
		fileHeader.Filename,
		fileHeader.Header.Get("Content-Type"),
		fileHeader.Size,
		stream,
	)
	if err != nil {
		return respondServiceError(c, err, "record_stage_failed")
	}

	h.audit(c, services.AuditEntry{
		UserID:       &sess.UserID,
		Action:       services.AuditRecordStage,
		ResourceType: "record",
		Details: map[string]interface{}{
			"file_name":        staged.FileName,
			"storage_location": staged.FilePath,
			"size":             staged.Size,
		},
	})

	return utils.Success(c, fiber.StatusCreated, staged)
}

type confirmRequest struct {
	StorageLocation string `json:"storageLocation"`
	FileName        string `json:"fileName"`
}

func (h *RecordsHandler) Confirm(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	var req confirmRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}
	if req.StorageLocation == "" {
		return utils.Error(c, fiber.StatusBadRequest, "storageLocation is required")
	}

	doc, err := h.Ingestion.Confirm(c.UserContext(), sess.UserID, req.FileName, req.StorageLocation)
	if err != nil {
		return respondServiceError(c, err, "record_confirm_failed")
	}

	h.audit(c, services.AuditEntry{
		UserID:       &sess.UserID,
		Action:       services.AuditRecordConfirm,
		ResourceType: "record",
		ResourceID:   &doc.ID,
		Details: map[string]interface{}{
			"file_name": doc.FileName,
		},
	})

	return utils.Success(c, fiber.StatusCreated, doc)
}

func (h *RecordsHandler) List(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docs, err := h.Documents.ListForOwner(c.UserContext(), sess.UserID)
	if err != nil {
		return respondServiceError(c, err, "record_list_failed")
	}
	return utils.Success(c, fiber.StatusOK, docs)
}

func (h *RecordsHandler) ReadText(c *fiber.Ctx) error {
	sess := middleware.GetSession(c)
	if sess == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}

	docID, err := parseID(c.Params("id"))
	if err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid record id")
	}

	doc, err := h.Documents.GetForOwner(c.UserContext(), sess.UserID, docID)
	if err != nil {
		return respondServiceError(c, err, "record_lookup_failed")
	}

	text, err := h.Ingestion.ReadText(c.UserContext(), doc.FilePath)
	if err != nil {
		logger.WarnWithUser(userIDString(sess.UserID), "record_read_failed", map[string]interface{}{
			"document_id": doc.ID,
			"error":       err.Error(),
		})
		return respondServiceError(c, err, "record_read_failed")
	}

	h.audit(c, services.AuditEntry{
		UserID:       &sess.UserID,
		Action:       services.AuditRecordRead,
		ResourceType: "record",
		ResourceID:   &doc.ID,
	})

	return utils.Success(c, fiber.StatusOK, fiber.Map{
		"id":       doc.ID,
		"fileName": doc.FileName,
		"text":     text,
	})
}
