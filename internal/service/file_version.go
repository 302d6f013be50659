package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"docvault/internal/auth"
	"docvault/internal/model"
	"docvault/internal/repository"
	"docvault/internal/storage"
)

// maxKeyAttempts bounds file key regeneration; ULID collisions are not expected in practice.
const maxKeyAttempts = 5

// UploadPolicy is the static upload configuration.
type UploadPolicy struct {
	MaxSize             int64
	AllowedContentTypes []string
}

func (p UploadPolicy) allows(contentType string) bool {
	for _, ct := range p.AllowedContentTypes {
		if strings.EqualFold(ct, contentType) {
			return true
		}
	}
	return false
}

// UploadInput describes one uploaded file. Size is the declared length, or -1 when unknown.
type UploadInput struct {
	Content     io.Reader
	FileName    string
	ContentType string
	Size        int64
}

// FileVersionService manages the append-only file history of documents.
// Access is decided by the owner of the parent document.
type FileVersionService interface {
	Upload(ctx context.Context, caller auth.Identity, documentID string, in UploadInput) (*model.FileVersion, error)
	Latest(ctx context.Context, caller auth.Identity, documentID string) (*model.FileVersion, error)
	// History lists versions newest first.
	History(ctx context.Context, caller auth.Identity, documentID string) ([]model.FileVersion, error)
	// Download opens the version's blob. The caller closes the reader.
	Download(ctx context.Context, caller auth.Identity, versionID string) (io.ReadCloser, *model.FileVersion, error)
	DeleteVersion(ctx context.Context, caller auth.Identity, versionID string) error
}

type fileVersionService struct {
	docs     repository.DocumentRepository
	versions repository.FileVersionRepository
	users    repository.UserRepository
	blobs    storage.Storage
	policy   UploadPolicy
	clock    *clock
	newKey   func() string
	log      zerolog.Logger
}

func NewFileVersionService(
	docs repository.DocumentRepository,
	versions repository.FileVersionRepository,
	users repository.UserRepository,
	blobs storage.Storage,
	policy UploadPolicy,
	log zerolog.Logger,
) FileVersionService {
	return &fileVersionService{
		docs:     docs,
		versions: versions,
		users:    users,
		blobs:    blobs,
		policy:   policy,
		clock:    newClock(),
		newKey:   func() string { return ulid.Make().String() },
		log:      log.With().Str("component", "file_versions").Logger(),
	}
}

// Upload validates, stores the blob under a fresh key and records the version.
// Nothing is written for rejected input; the blob is removed again if the row cannot be saved.
func (s *fileVersionService) Upload(ctx context.Context, caller auth.Identity, documentID string, in UploadInput) (*model.FileVersion, error) {
	doc, err := s.parent(ctx, caller, documentID, OpUploadFile)
	if err != nil {
		return nil, err
	}

	contentType := normalizeContentType(in.ContentType)
	switch {
	case in.Content == nil || in.Size == 0:
		return nil, &InvalidFileError{Reason: ReasonEmpty}
	case in.Size > s.policy.MaxSize:
		return nil, &InvalidFileError{Reason: ReasonTooLarge}
	case !s.policy.allows(contentType):
		return nil, &InvalidFileError{Reason: ReasonContentType}
	}

	uploaderID, err := callerID(ctx, s.users, caller, OpUploadFile)
	if err != nil {
		return nil, err
	}

	key, err := s.freshKey(ctx)
	if err != nil {
		return nil, &InvalidFileError{Reason: ReasonIO, Err: err}
	}

	// one byte past the limit is enough to detect a short-declared body
	body := io.LimitReader(in.Content, s.policy.MaxSize+1)
	info, err := s.blobs.Put(ctx, key, body, storage.PutObjectOptions{Size: in.Size, ContentType: contentType})
	if err != nil {
		return nil, &InvalidFileError{Reason: ReasonIO, Err: err}
	}
	if info.Size == 0 || info.Size > s.policy.MaxSize {
		s.removeBlob(ctx, key)
		if info.Size == 0 {
			return nil, &InvalidFileError{Reason: ReasonEmpty}
		}
		return nil, &InvalidFileError{Reason: ReasonTooLarge}
	}

	stored, err := s.versions.Create(ctx, &model.FileVersion{
		ID:          uuid.NewString(),
		DocumentID:  doc.ID,
		FileKey:     key,
		FileName:    cleanFileName(in.FileName),
		ContentType: contentType,
		FileSize:    info.Size,
		UploadedBy:  uploaderID,
		UploadedAt:  s.clock.Next(),
	})
	if err != nil {
		s.removeBlob(ctx, key)
		return nil, fmt.Errorf("save file version: %w", err)
	}

	s.log.Info().
		Str("document_id", doc.ID).
		Str("version_id", stored.ID).
		Int64("file_size", stored.FileSize).
		Str("content_type", stored.ContentType).
		Msg("file version uploaded")
	return stored, nil
}

func (s *fileVersionService) Latest(ctx context.Context, caller auth.Identity, documentID string) (*model.FileVersion, error) {
	doc, err := s.parent(ctx, caller, documentID, OpLatestVersion)
	if err != nil {
		return nil, err
	}
	v, err := s.versions.FindLatestByDocument(ctx, doc.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: ResourceFileVersion, ID: doc.ID}
	}
	if err != nil {
		return nil, fmt.Errorf("find latest version: %w", err)
	}
	return v, nil
}

func (s *fileVersionService) History(ctx context.Context, caller auth.Identity, documentID string) ([]model.FileVersion, error) {
	doc, err := s.parent(ctx, caller, documentID, OpHistory)
	if err != nil {
		return nil, err
	}
	versions, err := s.versions.ListByDocument(ctx, doc.ID)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	return versions, nil
}

func (s *fileVersionService) Download(ctx context.Context, caller auth.Identity, versionID string) (io.ReadCloser, *model.FileVersion, error) {
	v, err := s.version(ctx, caller, versionID, OpDownload)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.blobs.Get(ctx, v.FileKey)
	if errors.Is(err, storage.ErrObjectNotFound) {
		s.log.Error().Str("version_id", v.ID).Str("document_id", v.DocumentID).Msg("version has no stored blob")
		return nil, nil, &NotFoundError{Resource: ResourceBlob, ID: v.ID}
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read blob: %w", err)
	}
	return rc, v, nil
}

// DeleteVersion removes the blob first and keeps the row if that fails.
func (s *fileVersionService) DeleteVersion(ctx context.Context, caller auth.Identity, versionID string) error {
	v, err := s.version(ctx, caller, versionID, OpDeleteVersion)
	if err != nil {
		return err
	}
	if err := s.blobs.Delete(ctx, v.FileKey); err != nil {
		return &InvalidFileError{Reason: ReasonIO, Err: err}
	}
	if err := s.versions.Delete(ctx, v.ID); err != nil {
		return fmt.Errorf("delete file version: %w", err)
	}
	return nil
}

// parent loads a document and authorizes the caller against its owner.
func (s *fileVersionService) parent(ctx context.Context, caller auth.Identity, documentID, op string) (*model.Document, error) {
	if documentID == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}
	doc, err := s.docs.FindByID(ctx, documentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: ResourceDocument, ID: documentID}
	}
	if err != nil {
		return nil, fmt.Errorf("find document: %w", err)
	}
	if err := Authorize(op, caller.Username, doc.OwnerUsername, caller.Role); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *fileVersionService) version(ctx context.Context, caller auth.Identity, versionID, op string) (*model.FileVersion, error) {
	if versionID == "" {
		return nil, &ValidationError{Field: "id", Message: "is required"}
	}
	v, err := s.versions.FindByID(ctx, versionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, &NotFoundError{Resource: ResourceFileVersion, ID: versionID}
	}
	if err != nil {
		return nil, fmt.Errorf("find file version: %w", err)
	}
	if _, err := s.parent(ctx, caller, v.DocumentID, op); err != nil {
		return nil, err
	}
	return v, nil
}

// freshKey returns a key unused by both the version table and the blob store.
func (s *fileVersionService) freshKey(ctx context.Context) (string, error) {
	for i := 0; i < maxKeyAttempts; i++ {
		key := s.newKey()
		inDB, err := s.versions.FileKeyExists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check file key: %w", err)
		}
		if inDB {
			continue
		}
		inStore, err := s.blobs.Exists(ctx, key)
		if err != nil {
			return "", fmt.Errorf("check blob: %w", err)
		}
		if !inStore {
			return key, nil
		}
	}
	return "", errors.New("could not allocate a unique file key")
}

func (s *fileVersionService) removeBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.log.Error().Err(err).Str("file_key", key).Msg("failed to remove orphaned blob")
	}
}

// normalizeContentType drops parameters such as charset and lowercases the media type.
func normalizeContentType(ct string) string {
	mt, _, _ := strings.Cut(ct, ";")
	return strings.ToLower(strings.TrimSpace(mt))
}

// cleanFileName keeps only the base name; it is stored as metadata, never used as a path.
func cleanFileName(name string) string {
	name = filepath.Base(strings.ReplaceAll(strings.TrimSpace(name), `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "file"
	}
	return name
}
