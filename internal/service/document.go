package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"docvault/internal/auth"
	"docvault/internal/cache"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// DocumentCache is the read-through cache in front of document lookups.
type DocumentCache interface {
	Get(ctx context.Context, id string) (*model.Document, error)
	Set(ctx context.Context, doc *model.Document) error
	Evict(ctx context.Context, id string) error
	EvictAll(ctx context.Context) error
}

type CreateDocumentRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=5000"`
	Tags        []string `json:"tags" validate:"max=50,dive,max=64"`
}

type UpdateDocumentRequest struct {
	Title       string   `json:"title" validate:"required,max=255"`
	Description string   `json:"description" validate:"max=5000"`
	Tags        []string `json:"tags" validate:"max=50,dive,max=64"`
}

// ListFilter holds the optional list filters. Status is parsed case-insensitively.
type ListFilter struct {
	Title  string
	Status string
}

// PageRequest is a 0-based page of a sorted listing.
type PageRequest struct {
	Page      int
	Size      int
	Sort      string
	Direction string
}

// DocumentListResult is the service-level DTO for paginated documents.
type DocumentListResult struct {
	Items      []model.Document `json:"data"`
	Total      int              `json:"total"`
	Page       int              `json:"page"`
	Size       int              `json:"size"`
	TotalPages int              `json:"total_pages"`
}

// DocumentService defines the document use cases. Every call is made on behalf of caller.
type DocumentService interface {
	Create(ctx context.Context, caller auth.Identity, req CreateDocumentRequest) (*model.Document, error)
	Get(ctx context.Context, caller auth.Identity, id string) (*model.Document, error)
	// List only ever returns the caller's own documents, admins included.
	List(ctx context.Context, caller auth.Identity, f ListFilter, p PageRequest) (*DocumentListResult, error)
	Update(ctx context.Context, caller auth.Identity, id string, req UpdateDocumentRequest) (*model.Document, error)
	// Delete removes the document, its version rows and, best effort, their blobs.
	Delete(ctx context.Context, caller auth.Identity, id string) error
	ChangeStatus(ctx context.Context, caller auth.Identity, id string, status model.Status) (*model.Document, error)
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	docs     repository.DocumentRepository
	users    repository.UserRepository
	versions repository.FileVersionRepository
	blobs    storage.Storage
	cache    DocumentCache
	clock    *clock
	log      zerolog.Logger
}

// NewDocumentService constructs a new DocumentService.
func NewDocumentService(
	docs repository.DocumentRepository,
	users repository.UserRepository,
	versions repository.FileVersionRepository,
	blobs storage.Storage,
	docCache DocumentCache,
	log zerolog.Logger,
) DocumentService {
	return &documentService{
		docs:     docs,
		users:    users,
		versions: versions,
		blobs:    blobs,
		cache:    docCache,
		clock:    newClock(),
		log:      log.With().Str("component", "documents").Logger(),
	}
}

func (s *documentService) Create(ctx context.Context, caller auth.Identity, req CreateDocumentRequest) (*model.Document, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	ownerID, err := callerID(ctx, s.users, caller, OpCreateDocument)
	if err != nil {
		return nil, err
	}

	now := s.clock.Next()
	stored, err := s.docs.Create(ctx, &model.Document{
		ID:          uuid.NewString(),
		Title:       req.Title,
		Description: req.Description,
		Tags:        model.NormalizeTags(req.Tags),
		OwnerID:     ownerID,
		Status:      model.StatusDraft,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return nil, fmt.Errorf("save document: %w", err)
	}

	s.evictAll(ctx)
	return stored, nil
}

// Get serves from the cache when it can; the owner check runs on hits too.
func (s *documentService) Get(ctx context.Context, caller auth.Identity, id string) (*model.Document, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}

	doc, err := s.cache.Get(ctx, id)
	if err == nil {
		if err := Authorize(OpGetDocument, caller.Username, doc.OwnerUsername, caller.Role); err != nil {
			return nil, err
		}
		return doc, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		s.log.Warn().Err(err).Str("document_id", id).Msg("cache read failed")
	}

	doc, err = s.load(ctx, caller, id, OpGetDocument)
	if err != nil {
		return nil, err
	}
	s.store(ctx, doc)
	return doc, nil
}

func (s *documentService) List(ctx context.Context, caller auth.Identity, f ListFilter, p PageRequest) (*DocumentListResult, error) {
	ownerID, err := callerID(ctx, s.users, caller, OpListDocuments)
	if err != nil {
		return nil, err
	}

	filter := repository.DocumentFilter{Title: strings.TrimSpace(f.Title)}
	if f.Status != "" {
		st, err := model.ParseStatus(f.Status)
		if err != nil {
			return nil, &ValidationError{Field: "status", Message: "must be one of DRAFT, PUBLISHED, ARCHIVED"}
		}
		filter.Status = st
	}

	pq, page, size, err := pageQuery(p)
	if err != nil {
		return nil, err
	}

	res, err := s.docs.ListByOwner(ctx, ownerID, filter, pq)
	if err != nil {
		return nil, err
	}
	return &DocumentListResult{
		Items:      res.Items,
		Total:      res.Total,
		Page:       page,
		Size:       size,
		TotalPages: (res.Total + size - 1) / size,
	}, nil
}

func (s *documentService) Update(ctx context.Context, caller auth.Identity, id string, req UpdateDocumentRequest) (*model.Document, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := validateStruct(req); err != nil {
		return nil, err
	}
	doc, err := s.load(ctx, caller, id, OpUpdateDocument)
	if err != nil {
		return nil, err
	}

	doc.Title = req.Title
	doc.Description = req.Description
	doc.Tags = model.NormalizeTags(req.Tags)
	return s.save(ctx, doc)
}

func (s *documentService) ChangeStatus(ctx context.Context, caller auth.Identity, id string, status model.Status) (*model.Document, error) {
	if !status.Valid() {
		return nil, &ValidationError{Field: "status", Message: "must be one of DRAFT, PUBLISHED, ARCHIVED"}
	}
	doc, err := s.load(ctx, caller, id, OpChangeStatus)
	if err != nil {
		return nil, err
	}

	doc.Status = status
	return s.save(ctx, doc)
}

// save persists a mutated document, then evicts everything and writes the fresh
// entry back, in that order, so the entry survives the eviction.
func (s *documentService) save(ctx context.Context, doc *model.Document) (*model.Document, error) {
	doc.UpdatedAt = s.clock.Next()
	updated, err := s.docs.Update(ctx, doc)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: ResourceDocument, ID: doc.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("update document: %w", err)
	}

	s.evictAll(ctx)
	s.store(ctx, updated)
	return updated, nil
}

// Delete removes version blobs before the row; blob failures are logged and
// leave version metadata to the cascade.
func (s *documentService) Delete(ctx context.Context, caller auth.Identity, id string) error {
	doc, err := s.load(ctx, caller, id, OpDeleteDocument)
	if err != nil {
		return err
	}

	versions, err := s.versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return fmt.Errorf("list versions: %w", err)
	}
	for _, v := range versions {
		if err := s.blobs.Delete(ctx, v.FileKey); err != nil {
			s.log.Warn().Err(err).Str("document_id", doc.ID).Str("version_id", v.ID).Msg("failed to delete version blob")
		}
	}

	if err := s.docs.Delete(ctx, doc.ID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if err := s.cache.Evict(ctx, doc.ID); err != nil {
		s.log.Warn().Err(err).Str("document_id", doc.ID).Msg("cache evict failed")
	}
	return nil
}

// load reads the authoritative row and authorizes the caller against its owner.
func (s *documentService) load(ctx context.Context, caller auth.Identity, id, op string) (*model.Document, error) {
	if id == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}
	doc, err := s.docs.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: ResourceDocument, ID: id}
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	if err := Authorize(op, caller.Username, doc.OwnerUsername, caller.Role); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *documentService) store(ctx context.Context, doc *model.Document) {
	if err := s.cache.Set(ctx, doc); err != nil {
		s.log.Warn().Err(err).Str("document_id", doc.ID).Msg("cache write failed")
	}
}

func (s *documentService) evictAll(ctx context.Context) {
	if err := s.cache.EvictAll(ctx); err != nil {
		s.log.Warn().Err(err).Msg("cache evict-all failed")
	}
}

// callerID returns the caller's user id, loading it when the identity only carries a username.
func callerID(ctx context.Context, users repository.UserRepository, caller auth.Identity, op string) (string, error) {
	if caller.Username == "" {
		return "", &UnauthorizedError{Operation: op}
	}
	if caller.UserID != "" {
		return caller.UserID, nil
	}
	u, err := users.FindByUsername(ctx, caller.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return "", &NotFoundError{Resource: ResourceUser, ID: caller.Username}
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	return u.ID, nil
}

var sortFields = map[string]string{
	"createdat":  repository.SortCreatedAt,
	"created_at": repository.SortCreatedAt,
	"updatedat":  repository.SortUpdatedAt,
	"updated_at": repository.SortUpdatedAt,
	"title":      repository.SortTitle,
	"status":     repository.SortStatus,
}

// pageQuery applies defaults and limits and converts a page request to limit/offset.
func pageQuery(p PageRequest) (repository.PageQuery, int, int, error) {
	page := p.Page
	if page < 0 {
		page = 0
	}
	size := p.Size
	switch {
	case size <= 0:
		size = defaultPageSize
	case size > maxPageSize:
		size = maxPageSize
	}

	col := repository.SortCreatedAt
	if p.Sort != "" {
		c, ok := sortFields[strings.ToLower(p.Sort)]
		if !ok {
			return repository.PageQuery{}, 0, 0, &ValidationError{Field: "sort", Message: "must be one of createdAt, updatedAt, title, status"}
		}
		col = c
	}

	desc := true
	switch strings.ToUpper(p.Direction) {
	case "", "DESC":
	case "ASC":
		desc = false
	default:
		return repository.PageQuery{}, 0, 0, &ValidationError{Field: "direction", Message: "must be ASC or DESC"}
	}

	return repository.PageQuery{
		Limit:      size,
		Offset:     page * size,
		SortColumn: col,
		Descending: desc,
	}, page, size, nil
}

