package documents

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type Repository interface {
	CreateDocument(ctx context.Context, doc *Document) error
	GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error)
	UpdateDocument(ctx context.Context, doc *Document) error
	ListDocuments(ctx context.Context, templateID *uuid.UUID) ([]Document, error)

	CreateFile(ctx context.Context, file *StoredFile) error
	GetFileByID(ctx context.Context, id uuid.UUID) (*StoredFile, error)

	CreateAttachment(ctx context.Context, att *Attachment) error
	ListAttachments(ctx context.Context, documentID uuid.UUID) ([]Attachment, error)

	GetTemplateByID(ctx context.Context, id uuid.UUID) (*Template, error)
}

type postgresRepository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) CreateDocument(ctx context.Context, doc *Document) error {
	query := `
		INSERT INTO documents (
			id, template_id, name, description, main_file_id, status, created_by
		) VALUES (
			:id, :template_id, :name, :description, :main_file_id, :status, :created_by
		)`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	var doc Document
	err := r.db.GetContext(ctx, &doc, "SELECT * FROM documents WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &doc, err
}

func (r *postgresRepository) UpdateDocument(ctx context.Context, doc *Document) error {
	query := `
		UPDATE documents SET
			name = :name,
			description = :description,
			main_file_id = :main_file_id,
			status = :status,
			regenerated_at = :regenerated_at
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, doc)
	return err
}

func (r *postgresRepository) ListDocuments(ctx context.Context, templateID *uuid.UUID) ([]Document, error) {
	var docs []Document
	if templateID != nil {
		err := r.db.SelectContext(ctx, &docs,
			"SELECT * FROM documents WHERE template_id = $1 ORDER BY created_at DESC", *templateID)
		return docs, err
	}
	err := r.db.SelectContext(ctx, &docs, "SELECT * FROM documents ORDER BY created_at DESC")
	return docs, err
}

func (r *postgresRepository) CreateFile(ctx context.Context, file *StoredFile) error {
	query := `
		INSERT INTO files (
			id, s3_bucket, s3_key, name, content_type, size, sha256, sha1
		) VALUES (
			:id, :s3_bucket, :s3_key, :name, :content_type, :size, :sha256, :sha1
		)`
	_, err := r.db.NamedExecContext(ctx, query, file)
	return err
}

func (r *postgresRepository) GetFileByID(ctx context.Context, id uuid.UUID) (*StoredFile, error) {
	var file StoredFile
	err := r.db.GetContext(ctx, &file, "SELECT * FROM files WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &file, err
}

func (r *postgresRepository) CreateAttachment(ctx context.Context, att *Attachment) error {
	query := `
		INSERT INTO document_attachments (
			id, document_id, file_id
		) VALUES (
			:id, :document_id, :file_id
		)`
	_, err := r.db.NamedExecContext(ctx, query, att)
	return err
}

func (r *postgresRepository) ListAttachments(ctx context.Context, documentID uuid.UUID) ([]Attachment, error) {
	var atts []Attachment
	err := r.db.SelectContext(ctx, &atts,
		"SELECT * FROM document_attachments WHERE document_id = $1 ORDER BY created_at ASC", documentID)
	return atts, err
}

func (r *postgresRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	var tpl Template
	err := r.db.GetContext(ctx, &tpl, "SELECT * FROM document_templates WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &tpl, err
}
