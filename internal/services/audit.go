package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/healthmate/server/internal/models"
	"github.com/healthmate/server/pkg/logger"
	"github.com/healthmate/server/pkg/utils"
	"gorm.io/gorm"
)

const (
	AuditUserRegister    = "user.register"
	AuditUserLogin       = "user.login"
	AuditUserLoginFailed = "user.login_failed"
	AuditUserLogout      = "user.logout"
	AuditRecordStage     = "record.stage"
	AuditRecordConfirm   = "record.confirm"
	AuditRecordRead      = "record.read"
)

type AuditEntry struct {
	UserID       *uint
	Action       string
	ResourceType string
	ResourceID   *uint
	Details      map[string]interface{}
	IPAddress    string
	RequestID    string
}

// AuditService writes audit rows from a buffered queue so requests never wait on the insert.
type AuditService struct {
	DB    *gorm.DB
	queue chan models.AuditLog

	closeOnce sync.Once
	done      chan struct{}
}

func NewAuditService(db *gorm.DB) *AuditService {
	s := &AuditService{
		DB:    db,
		queue: make(chan models.AuditLog, 1000),
		done:  make(chan struct{}),
	}
	go s.processQueue()
	return s
}

func (s *AuditService) LogAsync(entry AuditEntry) {
	row := models.AuditLog{
		UserID:       entry.UserID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Details:      entry.Details,
		IPAddress:    entry.IPAddress,
		RequestID:    entry.RequestID,
		CreatedAt:    time.Now().UTC(),
	}

	select {
	case s.queue <- row:
	default:
		logger.Warn("audit_queue_full", map[string]interface{}{
			"action":  entry.Action,
			"dropped": true,
		})
	}
}

func (s *AuditService) processQueue() {
	defer close(s.done)

	for row := range s.queue {
		if err := s.DB.Create(&row).Error; err != nil {
			logger.Error("audit_log_insert_failed", err, map[string]interface{}{
				"action": row.Action,
			})
		}
	}
}

// Close stops accepting entries and waits for queued rows to be written.
// LogAsync must not be called after Close.
func (s *AuditService) Close() {
	s.closeOnce.Do(func() { close(s.queue) })
	<-s.done
}

// RecentForUser returns one page of the user's entries, newest first.
func (s *AuditService) RecentForUser(ctx context.Context, userID uint, page utils.PaginationParams) ([]models.AuditLog, error) {
	page = utils.NewPagination(page.Page, page.Limit)

	logs := make([]models.AuditLog, 0)
	query := s.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC")
	if err := utils.ApplyPagination(query, page).Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("listing audit logs: %w", err)
	}
	return logs, nil
}
