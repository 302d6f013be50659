package repository

import (
	"context"

	"docvault/internal/model"
)

// FileVersionRepository stores the append-only version rows of documents.
// History is ordered by uploaded_at descending, ties broken by id.
type FileVersionRepository interface {
	Create(ctx context.Context, v *model.FileVersion) (*model.FileVersion, error)
	FindByID(ctx context.Context, id string) (*model.FileVersion, error)
	// FindLatestByDocument returns the newest version or ErrNotFound.
	FindLatestByDocument(ctx context.Context, documentID string) (*model.FileVersion, error)
	ListByDocument(ctx context.Context, documentID string) ([]model.FileVersion, error)
	Delete(ctx context.Context, id string) error
	FileKeyExists(ctx context.Context, key string) (bool, error)
}
