package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/healthmate/server/internal/models"
	"github.com/healthmate/server/internal/storage"
	"github.com/healthmate/server/pkg/logger"
	"gorm.io/gorm"
)

const pdfContentType = "application/pdf"

// IngestionService moves uploaded records from the content area into the registry.
// Bytes are staged first; only Confirm makes a record listable.
type IngestionService struct {
	DB        *gorm.DB
	Store     storage.ContentStore
	Documents *DocumentService
	Extractor TextExtractor
	StagedTTL time.Duration

	now func() time.Time
}

func NewIngestionService(db *gorm.DB, store storage.ContentStore, documents *DocumentService, stagedTTL time.Duration) *IngestionService {
	if stagedTTL <= 0 {
		stagedTTL = time.Hour
	}
	return &IngestionService{
		DB:        db,
		Store:     store,
		Documents: documents,
		Extractor: PDFExtractor{},
		StagedTTL: stagedTTL,
		now:       time.Now,
	}
}

func ownerPrefix(ownerID uint) string {
	return strconv.FormatUint(uint64(ownerID), 10) + "/"
}

func isPDF(name, contentType string) bool {
	if strings.EqualFold(filepath.Ext(name), ".pdf") {
		return true
	}
	mediaType := strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	return strings.EqualFold(mediaType, pdfContentType)
}

// Stage writes the bytes under a fresh owner-scoped key and records the pending upload.
func (s *IngestionService) Stage(ctx context.Context, ownerID uint, originalName, contentType string, size int64, r io.Reader) (*models.StagedUpload, error) {
	name := filepath.Base(strings.TrimSpace(originalName))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, newValidationError("file", "is required")
	}
	if !isPDF(name, contentType) {
		return nil, newValidationError("file", "must be a PDF document")
	}
	if contentType == "" {
		contentType = pdfContentType
	}

	key := fmt.Sprintf("%s%s_%s", ownerPrefix(ownerID), uuid.New().String(), name)
	if err := s.Store.Put(ctx, key, r, size, contentType); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}

	now := s.now().UTC()
	staged := models.StagedUpload{
		UserID:      ownerID,
		FileName:    name,
		FilePath:    key,
		ContentType: contentType,
		Size:        size,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.StagedTTL),
	}
	if err := s.DB.WithContext(ctx).Create(&staged).Error; err != nil {
		if delErr := s.Store.Delete(ctx, key); delErr != nil {
			logger.Error("staged_upload_rollback_failed", delErr, map[string]interface{}{
				"storage_location": key,
			})
		}
		return nil, fmt.Errorf("recording staged upload: %w", err)
	}

	logger.InfoWithUser(strconv.FormatUint(uint64(ownerID), 10), "record_staged", map[string]interface{}{
		"storage_location": key,
		"size":             size,
	})
	return &staged, nil
}

// Confirm registers a staged upload as a document and forgets the staging row.
func (s *IngestionService) Confirm(ctx context.Context, ownerID uint, displayName, storageLocation string) (*models.Document, error) {
	if !strings.HasPrefix(storageLocation, ownerPrefix(ownerID)) {
		return nil, ErrStagedUploadNotFound
	}

	var staged models.StagedUpload
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND file_path = ?", ownerID, storageLocation).
		First(&staged).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrStagedUploadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading staged upload: %w", err)
	}

	exists, err := s.Store.Exists(ctx, storageLocation)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	if !exists {
		return nil, fmt.Errorf("%w: staged content missing", ErrStorageIO)
	}

	if strings.TrimSpace(displayName) == "" {
		displayName = staged.FileName
	}

	var doc *models.Document
	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		registered, err := s.Documents.WithTx(tx).Register(ctx, ownerID, displayName, storageLocation)
		if err != nil {
			return err
		}
		if err := tx.Delete(&staged).Error; err != nil {
			return fmt.Errorf("clearing staged upload: %w", err)
		}
		doc = registered
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoWithUser(strconv.FormatUint(uint64(ownerID), 10), "record_confirmed", map[string]interface{}{
		"document_id":      doc.ID,
		"storage_location": storageLocation,
	})
	return doc, nil
}

func (s *IngestionService) ReadText(ctx context.Context, storageLocation string) (string, error) {
	rc, err := s.Store.Open(ctx, storageLocation)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	defer rc.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, rc); err != nil {
		return "", fmt.Errorf("%w: %v", ErrStorageIO, err)
	}
	return s.Extractor.Extract(buf.Bytes())
}

// SweepExpired deletes the bytes and rows of staged uploads that expired at or before now.
func (s *IngestionService) SweepExpired(ctx context.Context, now time.Time) (int, error) {
	var expired []models.StagedUpload
	if err := s.DB.WithContext(ctx).
		Where("expires_at <= ?", now.UTC()).
		Find(&expired).Error; err != nil {
		return 0, fmt.Errorf("listing expired staged uploads: %w", err)
	}

	removed := 0
	for i := range expired {
		row := expired[i]
		if err := s.Store.Delete(ctx, row.FilePath); err != nil {
			logger.Error("staged_upload_sweep_failed", err, map[string]interface{}{
				"storage_location": row.FilePath,
			})
			continue
		}
		if err := s.DB.WithContext(ctx).Delete(&row).Error; err != nil {
			logger.Error("staged_upload_sweep_failed", err, map[string]interface{}{
				"storage_location": row.FilePath,
			})
			continue
		}
		removed++
	}
	return removed, nil
}

// StartSweeper runs SweepExpired every interval until ctx is cancelled.
func (s *IngestionService) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		logger.Info("staged_upload_sweeper_disabled", nil)
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := s.SweepExpired(ctx, s.now())
				if err != nil {
					logger.Error("staged_upload_sweep_failed", err, nil)
					continue
				}
				logger.Info("staged_upload_sweep", map[string]interface{}{
					"removed": removed,
				})
			}
		}
	}()

	logger.Info("staged_upload_sweeper_started", map[string]interface{}{
		"interval": interval.String(),
	})
}
