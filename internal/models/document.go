package models

import "time"

// Document is the registry entry for a confirmed medical-record upload.
type Document struct {
	ID        uint      `json:"id" gorm:"column:file_id;primaryKey;autoIncrement"`
	UserID    uint      `json:"userID" gorm:"column:user_id;not null;index"`
	FileName  string    `json:"fileName" gorm:"column:file_name;type:varchar(255);not null"`
	FilePath  string    `json:"storageLocation" gorm:"column:file_path;type:text;not null;uniqueIndex"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Document) TableName() string {
	return "files"
}
