package postgres

import (
	"context"
	"database/sql"

	"docvault/internal/model"
	"docvault/internal/repository"
)

const versionSelect = `
		SELECT v.id, v.document_id, v.file_key, v.file_name, v.content_type, v.file_size, v.uploaded_by, u.username, v.uploaded_at
		FROM file_versions v
		JOIN users u ON u.id = v.uploaded_by`

// FileVersionPostgres is the PostgreSQL implementation of repository.FileVersionRepository.
type FileVersionPostgres struct {
	db *sql.DB
}

func NewFileVersionPostgres(db *sql.DB) *FileVersionPostgres {
	return &FileVersionPostgres{db: db}
}

var _ repository.FileVersionRepository = (*FileVersionPostgres)(nil)

func scanVersion(row interface{ Scan(...any) error }) (*model.FileVersion, error) {
	var v model.FileVersion
	if err := row.Scan(
		&v.ID,
		&v.DocumentID,
		&v.FileKey,
		&v.FileName,
		&v.ContentType,
		&v.FileSize,
		&v.UploadedBy,
		&v.UploadedByUsername,
		&v.UploadedAt,
	); err != nil {
		return nil, mapError(err)
	}
	return &v, nil
}

func (r *FileVersionPostgres) Create(ctx context.Context, v *model.FileVersion) (*model.FileVersion, error) {
	const q = `
		WITH v AS (
			INSERT INTO file_versions (id, document_id, file_key, file_name, content_type, file_size, uploaded_by, uploaded_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT v.id, v.document_id, v.file_key, v.file_name, v.content_type, v.file_size, v.uploaded_by, u.username, v.uploaded_at
		FROM v JOIN users u ON u.id = v.uploaded_by`
	return scanVersion(r.db.QueryRowContext(ctx, q,
		v.ID,
		v.DocumentID,
		v.FileKey,
		v.FileName,
		v.ContentType,
		v.FileSize,
		v.UploadedBy,
		v.UploadedAt,
	))
}

func (r *FileVersionPostgres) FindByID(ctx context.Context, id string) (*model.FileVersion, error) {
	return scanVersion(r.db.QueryRowContext(ctx, versionSelect+` WHERE v.id = $1`, id))
}

func (r *FileVersionPostgres) FindLatestByDocument(ctx context.Context, documentID string) (*model.FileVersion, error) {
	const q = versionSelect + `
		WHERE v.document_id = $1
		ORDER BY v.uploaded_at DESC, v.id DESC
		LIMIT 1`
	return scanVersion(r.db.QueryRowContext(ctx, q, documentID))
}

func (r *FileVersionPostgres) ListByDocument(ctx context.Context, documentID string) ([]model.FileVersion, error) {
	const q = versionSelect + `
		WHERE v.document_id = $1
		ORDER BY v.uploaded_at DESC, v.id DESC`
	rows, err := r.db.QueryContext(ctx, q, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]model.FileVersion, 0)
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *v)
	}
	return out, rows.Err()
}

func (r *FileVersionPostgres) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM file_versions WHERE id = $1`, id)
	return err
}

func (r *FileVersionPostgres) FileKeyExists(ctx context.Context, key string) (bool, error) {
	var ok bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM file_versions WHERE file_key = $1)`, key).Scan(&ok)
	return ok, err
}
