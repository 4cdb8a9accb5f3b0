package models

import "time"

// StagedUpload tracks bytes written to the content area that have not been confirmed yet.
// Confirmation deletes the row; the sweeper deletes rows (and bytes) past ExpiresAt.
type StagedUpload struct {
	ID          uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID      uint      `json:"userID" gorm:"not null;index"`
	FileName    string    `json:"fileName" gorm:"type:varchar(255);not null"`
	FilePath    string    `json:"storageLocation" gorm:"type:text;not null;uniqueIndex"`
	ContentType string    `json:"contentType" gorm:"type:varchar(255);not null"`
	Size        int64     `json:"size" gorm:"not null;default:0"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt" gorm:"not null;index"`
}

func (StagedUpload) TableName() string {
	return "staged_uploads"
}
