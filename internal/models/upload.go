package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadCategory distinguishes event photos from waste-classification shots
// sharing the uploads table.
type UploadCategory string

const (
	CategoryEventPhoto     UploadCategory = "event_photo"
	CategoryClassification UploadCategory = "classification"
)

// Upload is a stored image plus metadata, attributable to one uploader.
// EventID is set for event photos and empty for classification shots.
// Label holds the classifier verdict for classification uploads.
type Upload struct {
	ID         uuid.UUID      `json:"id"`
	UploaderID uuid.UUID      `json:"uploader_id"`
	EventID    *uuid.UUID     `json:"event_id,omitempty"`
	ObjectKey  string         `json:"object_key"`
	URL        string         `json:"url"`
	Category   UploadCategory `json:"category"`
	Label      string         `json:"label,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EventPhoto is an upload enriched with the uploader's display email.
type EventPhoto struct {
	Upload
	UploaderEmail string `json:"uploader_email"`
}
