package models

import "time"

// FileRecord is a published study material. It owns exactly one blob in the object store.
type FileRecord struct {
	ID           string    `gorm:"primaryKey;size:36" json:"id"`
	OwnerID      string    `gorm:"index;size:64;not null" json:"owner_id"`
	StorageKey   string    `gorm:"uniqueIndex;size:512;not null" json:"storage_key"`
	OriginalName string    `gorm:"size:255;not null" json:"original_name"`
	PublicURL    string    `gorm:"size:1024" json:"public_url"`
	Size         int64     `gorm:"not null" json:"size"`
	MimeType     string    `gorm:"size:128;not null" json:"mime_type"`
	Category     string    `gorm:"size:100" json:"category"`
	CreatedAt    time.Time `gorm:"index" json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TableName keeps the collection name used by the client.
func (FileRecord) TableName() string {
	return "files"
}
