package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"docvault/internal/model"
	"docvault/internal/repository"
)

// documentSelect reads documents joined with the owner's username.
const documentSelect = `
		SELECT d.id, d.title, d.description, d.tags, d.owner_id, u.username, d.status, d.created_at, d.updated_at
		FROM documents d
		JOIN users u ON u.id = d.owner_id`

// sortColumns whitelists ORDER BY targets; values are interpolated into SQL.
var sortColumns = map[string]string{
	repository.SortCreatedAt: "d.created_at",
	repository.SortUpdatedAt: "d.updated_at",
	repository.SortTitle:     "d.title",
	repository.SortStatus:    "d.status",
}

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

func scanDocument(row interface{ Scan(...any) error }) (*model.Document, error) {
	var d model.Document
	if err := row.Scan(
		&d.ID,
		&d.Title,
		&d.Description,
		pq.Array(&d.Tags),
		&d.OwnerID,
		&d.OwnerUsername,
		&d.Status,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, mapError(err)
	}
	if d.Tags == nil {
		d.Tags = []string{}
	}
	return &d, nil
}

// Create inserts a new document row and returns it with the owner's username.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		WITH d AS (
			INSERT INTO documents (id, title, description, tags, owner_id, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING *
		)
		SELECT d.id, d.title, d.description, d.tags, d.owner_id, u.username, d.status, d.created_at, d.updated_at
		FROM d JOIN users u ON u.id = d.owner_id`
	return scanDocument(r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		pq.Array(doc.Tags),
		doc.OwnerID,
		doc.Status,
		doc.CreatedAt,
		doc.UpdatedAt,
	))
}

// FindByID fetches a single document by its ID.
func (r *DocumentPostgres) FindByID(ctx context.Context, id string) (*model.Document, error) {
	return scanDocument(r.db.QueryRowContext(ctx, documentSelect+` WHERE d.id = $1`, id))
}

// Update rewrites the mutable columns of one row.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		WITH d AS (
			UPDATE documents
			SET title = $2, description = $3, tags = $4, status = $5, updated_at = $6
			WHERE id = $1
			RETURNING *
		)
		SELECT d.id, d.title, d.description, d.tags, d.owner_id, u.username, d.status, d.created_at, d.updated_at
		FROM d JOIN users u ON u.id = d.owner_id`
	return scanDocument(r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.Title,
		doc.Description,
		pq.Array(doc.Tags),
		doc.Status,
		doc.UpdatedAt,
	))
}

// ListByOwner runs one of four query shapes depending on which filters are set.
func (r *DocumentPostgres) ListByOwner(ctx context.Context, ownerID string, f repository.DocumentFilter, pg repository.PageQuery) (*repository.PageResult[model.Document], error) {
	where := []string{"d.owner_id = $1"}
	args := []any{ownerID}
	if f.Title != "" {
		args = append(args, "%"+escapeLike(f.Title)+"%")
		where = append(where, fmt.Sprintf("d.title ILIKE $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("d.status = $%d", len(args)))
	}
	cond := " WHERE " + strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM documents d`+cond, args...).Scan(&total); err != nil {
		return nil, err
	}

	col, ok := sortColumns[pg.SortColumn]
	if !ok {
		col = sortColumns[repository.SortCreatedAt]
	}
	dir := "ASC"
	if pg.Descending {
		dir = "DESC"
	}
	q := fmt.Sprintf("%s%s ORDER BY %s %s, d.id %s LIMIT $%d OFFSET $%d",
		documentSelect, cond, col, dir, dir, len(args)+1, len(args)+2)
	args = append(args, pg.Limit, pg.Offset)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return &repository.PageResult[model.Document]{
		Items: items,
		Total: total,
	}, nil
}

// Delete removes a document by ID; its file_versions rows cascade.
func (r *DocumentPostgres) Delete(ctx context.Context, id string) error {
	const q = `DELETE FROM documents WHERE id = $1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside an ILIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
