package signing

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Ledger is the append-only persistence boundary for signatures, rejections,
// manifest records and the activity log.
type Ledger interface {
	CreateSignature(ctx context.Context, rec *SignatureRecord) error
	ListSignatures(ctx context.Context, documentID uuid.UUID, channel Channel) ([]SignatureRecord, error)
	GetSignature(ctx context.Context, documentID, userID uuid.UUID, channel Channel) (*SignatureRecord, error)

	CreateRejection(ctx context.Context, rej *SignatureRejection) error
	ListRejections(ctx context.Context, documentID uuid.UUID) ([]SignatureRejection, error)

	GetManifest(ctx context.Context, documentID uuid.UUID) (*ManifestRecord, error)
	ReplaceManifest(ctx context.Context, rec *ManifestRecord) error

	AppendActivity(ctx context.Context, rec *ActivityRecord) error
	ListActivity(ctx context.Context, documentID uuid.UUID) ([]ActivityRecord, error)

	// DeleteAllForDocument clears signatures, rejections and the manifest
	// record in one transaction. Used when the document is regenerated.
	DeleteAllForDocument(ctx context.Context, documentID uuid.UUID) error
}

type postgresLedger struct {
	db *sqlx.DB
}

func NewLedger(db *sqlx.DB) Ledger {
	return &postgresLedger{db: db}
}

func (l *postgresLedger) CreateSignature(ctx context.Context, rec *SignatureRecord) error {
	query := `
		INSERT INTO document_signatures (
			id, document_id, file_id, created_by, channel, kind,
			signature, certificate, processed
		) VALUES (
			:id, :document_id, :file_id, :created_by, :channel, :kind,
			:signature, :certificate, :processed
		)`
	_, err := l.db.NamedExecContext(ctx, query, rec)
	return err
}

func (l *postgresLedger) ListSignatures(ctx context.Context, documentID uuid.UUID, channel Channel) ([]SignatureRecord, error) {
	var recs []SignatureRecord
	err := l.db.SelectContext(ctx, &recs,
		"SELECT * FROM document_signatures WHERE document_id = $1 AND channel = $2 ORDER BY created_at ASC",
		documentID, channel)
	return recs, err
}

func (l *postgresLedger) GetSignature(ctx context.Context, documentID, userID uuid.UUID, channel Channel) (*SignatureRecord, error) {
	var rec SignatureRecord
	err := l.db.GetContext(ctx, &rec,
		"SELECT * FROM document_signatures WHERE document_id = $1 AND created_by = $2 AND channel = $3 ORDER BY created_at ASC LIMIT 1",
		documentID, userID, channel)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &rec, err
}

func (l *postgresLedger) CreateRejection(ctx context.Context, rej *SignatureRejection) error {
	query := `
		INSERT INTO document_sign_rejections (
			id, document_id, created_by, reason
		) VALUES (
			:id, :document_id, :created_by, :reason
		)`
	_, err := l.db.NamedExecContext(ctx, query, rej)
	return err
}

func (l *postgresLedger) ListRejections(ctx context.Context, documentID uuid.UUID) ([]SignatureRejection, error) {
	var rejs []SignatureRejection
	err := l.db.SelectContext(ctx, &rejs,
		"SELECT * FROM document_sign_rejections WHERE document_id = $1 ORDER BY created_at ASC", documentID)
	return rejs, err
}

func (l *postgresLedger) GetManifest(ctx context.Context, documentID uuid.UUID) (*ManifestRecord, error) {
	var rec ManifestRecord
	err := l.db.GetContext(ctx, &rec,
		"SELECT * FROM document_manifests WHERE document_id = $1", documentID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &rec, err
}

// ReplaceManifest swaps the manifest record atomically. Concurrent replacers
// race last-writer-wins; an orphaned manifest artifact in object storage is
// accepted garbage.
func (l *postgresLedger) ReplaceManifest(ctx context.Context, rec *ManifestRecord) error {
	query := `
		INSERT INTO document_manifests (document_id, manifest_file_id, covered_file_ids, updated_at)
		VALUES (:document_id, :manifest_file_id, :covered_file_ids, now())
		ON CONFLICT (document_id) DO UPDATE SET
			manifest_file_id = EXCLUDED.manifest_file_id,
			covered_file_ids = EXCLUDED.covered_file_ids,
			updated_at = now()`
	_, err := l.db.NamedExecContext(ctx, query, rec)
	return err
}

func (l *postgresLedger) AppendActivity(ctx context.Context, rec *ActivityRecord) error {
	query := `
		INSERT INTO signing_activity (
			id, document_id, action, actor_id, detail
		) VALUES (
			:id, :document_id, :action, :actor_id, :detail
		)`
	_, err := l.db.NamedExecContext(ctx, query, rec)
	return err
}

func (l *postgresLedger) ListActivity(ctx context.Context, documentID uuid.UUID) ([]ActivityRecord, error) {
	var recs []ActivityRecord
	err := l.db.SelectContext(ctx, &recs,
		"SELECT * FROM signing_activity WHERE document_id = $1 ORDER BY created_at ASC", documentID)
	return recs, err
}

func (l *postgresLedger) DeleteAllForDocument(ctx context.Context, documentID uuid.UUID) error {
	tx, err := l.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin reset transaction: %w", err)
	}
	defer tx.Rollback()

	for _, query := range []string{
		"DELETE FROM document_signatures WHERE document_id = $1",
		"DELETE FROM document_sign_rejections WHERE document_id = $1",
		"DELETE FROM document_manifests WHERE document_id = $1",
	} {
		if _, err := tx.ExecContext(ctx, query, documentID); err != nil {
			return fmt.Errorf("failed to reset document %s: %w", documentID, err)
		}
	}

	return tx.Commit()
}
