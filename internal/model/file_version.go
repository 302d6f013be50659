package model

import "time"

// FileVersion is one immutable uploaded revision of a document's file.
// FileKey names the blob in storage and is never derived from FileName.
type FileVersion struct {
	ID                 string    `json:"id"`
	DocumentID         string    `json:"document_id"`
	FileKey            string    `json:"-"`
	FileName           string    `json:"file_name"`
	ContentType        string    `json:"content_type"`
	FileSize           int64     `json:"file_size"`
	UploadedBy         string    `json:"uploaded_by"`
	UploadedByUsername string    `json:"uploaded_by_username"`
	UploadedAt         time.Time `json:"uploaded_at"`
}
