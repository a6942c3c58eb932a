package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used for persistence.
type UserModel struct {
	ID             string    `gorm:"primaryKey"`
	Email          string    `gorm:"uniqueIndex;not null"`
	FirstName      string    `gorm:"not null"`
	LastName       string    `gorm:"not null"`
	Organization   string    `gorm:"not null"`
	ContactDetails string    `gorm:"not null"`
	PasswordHash   string    `gorm:"not null"`
	CreatedAt      time.Time `gorm:"not null"`
	UpdatedAt      time.Time
}

type ResearchBookModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	Name         string    `gorm:"not null"`
	UserID       string    `gorm:"not null;index"`
	DateCreated  time.Time `gorm:"not null"`
	LastModified time.Time `gorm:"not null"`
}

type LegalInformationModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	ResearchBookID int64     `gorm:"not null;index"`
	Type           string    `gorm:"not null;index"`
	Title          string    `gorm:"not null"`
	Description    string    `gorm:"type:text;not null"`
	Document       *string   `gorm:"type:text"`
	DateAdded      time.Time `gorm:"not null;index"`
	AttachmentKey  string
	AttachmentName string
	AttachmentType string
	AttachmentSize int64
}

type ResearchBookShareModel struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	UserID         string `gorm:"not null;uniqueIndex:idx_share_user_book"`
	ResearchBookID int64  `gorm:"not null;uniqueIndex:idx_share_user_book;index"`
}

type ChatHistoryModel struct {
	ID       int64          `gorm:"primaryKey;autoIncrement"`
	UserID   string         `gorm:"not null;index"`
	Message  string         `gorm:"type:text;not null"`
	DateTime time.Time      `gorm:"not null;index"`
	Matches  datatypes.JSON `gorm:"type:jsonb"`
}
