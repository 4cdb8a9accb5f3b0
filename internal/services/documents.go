package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/healthmate/server/internal/models"
	"gorm.io/gorm"
)

// DocumentService is the registry of confirmed uploads.
type DocumentService struct {
	DB *gorm.DB
}

func NewDocumentService(db *gorm.DB) *DocumentService {
	return &DocumentService{DB: db}
}

// WithTx returns a registry whose writes join tx.
func (s *DocumentService) WithTx(tx *gorm.DB) *DocumentService {
	return &DocumentService{DB: tx}
}

func (s *DocumentService) Register(ctx context.Context, userID uint, displayName, storageLocation string) (*models.Document, error) {
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		return nil, newValidationError("fileName", "is required")
	}
	if strings.TrimSpace(storageLocation) == "" {
		return nil, newValidationError("storageLocation", "is required")
	}

	doc := models.Document{
		UserID:   userID,
		FileName: displayName,
		FilePath: storageLocation,
	}
	if err := s.DB.WithContext(ctx).Create(&doc).Error; err != nil {
		switch {
		case isForeignKeyViolation(err):
			return nil, ErrUnknownOwner
		case isUniqueViolation(err):
			return nil, ErrDuplicateLocation
		default:
			return nil, fmt.Errorf("creating document record: %w", err)
		}
	}
	return &doc, nil
}

// ListForOwner returns the owner's records oldest first; never nil.
func (s *DocumentService) ListForOwner(ctx context.Context, userID uint) ([]models.Document, error) {
	docs := make([]models.Document, 0)
	if err := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("file_id ASC").
		Find(&docs).Error; err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	return docs, nil
}

func (s *DocumentService) GetForOwner(ctx context.Context, userID, docID uint) (*models.Document, error) {
	var doc models.Document
	err := s.DB.WithContext(ctx).
		Where("file_id = ? AND user_id = ?", docID, userID).
		First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDocumentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("loading document: %w", err)
	}
	return &doc, nil
}
