package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/tejaskp/portal-api/internal/models"
)

// DocumentRepository manages persistence for generated PDF documents.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs a DocumentRepository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Create records a generated document.
func (r *DocumentRepository) Create(ctx context.Context, document *models.Document) error {
	if document.ID == "" {
		document.ID = uuid.NewString()
	}
	if document.CreatedAt.IsZero() {
		document.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents (id, user_id, type, file_path, month, created_at)
        VALUES (:id, :user_id, :type, :file_path, :month, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, document); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// UpdateFilePath records where the rendered file landed on disk.
func (r *DocumentRepository) UpdateFilePath(ctx context.Context, id, filePath string) error {
	const query = `UPDATE documents SET file_path = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, filePath); err != nil {
		return fmt.Errorf("update document path: %w", err)
	}
	return nil
}

// FindByID returns a document by identifier.
func (r *DocumentRepository) FindByID(ctx context.Context, id string) (*models.Document, error) {
	const query = `SELECT id, user_id, type, file_path, month, created_at FROM documents WHERE id = $1 LIMIT 1`
	var document models.Document
	if err := r.db.GetContext(ctx, &document, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find document: %w", err)
	}
	return &document, nil
}

// ListByUser returns a user's documents, optionally filtered by type.
func (r *DocumentRepository) ListByUser(ctx context.Context, userID string, docType *models.DocumentType) ([]models.Document, error) {
	query := `SELECT id, user_id, type, file_path, month, created_at FROM documents WHERE user_id = $1`
	args := []interface{}{userID}
	if docType != nil {
		query += ` AND type = $2`
		args = append(args, *docType)
	}
	query += ` ORDER BY created_at DESC`
	var documents []models.Document
	if err := r.db.SelectContext(ctx, &documents, query, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return documents, nil
}

// Delete removes a document record.
func (r *DocumentRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM documents WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
