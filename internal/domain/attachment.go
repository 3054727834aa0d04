package domain

import "time"

// AttachmentReference stores metadata for a file attached to a case.
// The blob itself lives in external storage under StorageKey.
type AttachmentReference struct {
	ID         string
	CaseID     string
	StorageKey string
	FileName   string
	MimeType   string
	SizeBytes  int64
	UploadedBy string
	CreatedAt  time.Time
}
