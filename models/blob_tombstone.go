package models

import "time"

// BlobTombstone records an object-store key whose blob must be removed but has not been yet.
// Rows are written in the same transaction that drops the owning record and swept in the background.
type BlobTombstone struct {
	StorageKey string    `gorm:"primaryKey;size:512" json:"storage_key"`
	Reason     string    `gorm:"size:64" json:"reason"`
	Attempts   int       `gorm:"not null;default:0" json:"attempts"`
	LastError  string    `gorm:"size:1024" json:"last_error"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
