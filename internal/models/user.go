package models

import "time"

// User is a registered account. Rows are never updated or deleted.
type User struct {
	ID           uint      `json:"id" gorm:"column:user_id;primaryKey;autoIncrement"`
	FirstName    string    `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName     string    `json:"lastName" gorm:"type:varchar(100);not null"`
	DateOfBirth  string    `json:"dateOfBirth" gorm:"type:varchar(10);not null"`
	Email        string    `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string    `json:"-" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"createdAt"`

	// files.user_id references users.user_id; owners with records cannot be removed.
	Documents []Document `json:"-" gorm:"foreignKey:UserID;references:ID;constraint:OnUpdate:RESTRICT,OnDelete:RESTRICT"`
}

func (User) TableName() string {
	return "users"
}
