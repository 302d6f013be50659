package repository

import (
	"context"

	"docvault/internal/model"
)

// DocumentFilter narrows ListByOwner. Empty fields are ignored.
type DocumentFilter struct {
	// Title matches as a case-insensitive substring.
	Title  string
	Status model.Status
}

// DocumentRepository defines data access for documents using SQL queries only.
// Returned documents carry the owner's username.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns a document by its ID or ErrNotFound.
	FindByID(ctx context.Context, id string) (*model.Document, error)

	// Update replaces title, description, tags, status and updated_at. The owner is never written.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// ListByOwner returns one page of the owner's documents and the total matching count.
	ListByOwner(ctx context.Context, ownerID string, f DocumentFilter, pq PageQuery) (*PageResult[model.Document], error)

	// Delete removes a document by ID. It returns nil if the row was deleted or did not exist.
	Delete(ctx context.Context, id string) error
}
