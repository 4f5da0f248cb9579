package documents

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

type DocumentStatus string

const (
	StatusDraft       DocumentStatus = "draft"
	StatusPublished   DocumentStatus = "published"
	StatusInSigning   DocumentStatus = "in_signing"
	StatusCompleted   DocumentStatus = "completed"
	StatusRegenerated DocumentStatus = "regenerated"
)

// StoredFile is one object in the document bucket, with content digests
// captured at upload time.
type StoredFile struct {
	ID          uuid.UUID `json:"id" db:"id"`
	S3Bucket    string    `json:"s3_bucket" db:"s3_bucket"`
	S3Key       string    `json:"s3_key" db:"s3_key"`
	Name        string    `json:"name" db:"name"`
	ContentType string    `json:"content_type" db:"content_type"`
	Size        int64     `json:"size" db:"size"`
	SHA256      string    `json:"sha256" db:"sha256"`
	SHA1        string    `json:"sha1" db:"sha1"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Document is a generated PDF plus optional binary attachments.
type Document struct {
	ID            uuid.UUID      `json:"id" db:"id"`
	TemplateID    uuid.UUID      `json:"template_id" db:"template_id"`
	Name          string         `json:"name" db:"name"`
	Description   string         `json:"description" db:"description"`
	MainFileID    *uuid.UUID     `json:"main_file_id,omitempty" db:"main_file_id"`
	Status        DocumentStatus `json:"status" db:"status"`
	CreatedBy     uuid.UUID      `json:"created_by" db:"created_by"`
	CreatedAt     time.Time      `json:"created_at" db:"created_at"`
	RegeneratedAt *time.Time     `json:"regenerated_at,omitempty" db:"regenerated_at"`
}

// Attachment links a stored file to its document.
type Attachment struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	FileID     uuid.UUID `json:"file_id" db:"file_id"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Template carries the per-template co-signing rules. The attachment filter
// is expressed as a list of signable content types; the expression-sandbox
// interpreter that produces richer predicates lives outside this service and
// feeds the same columns.
type Template struct {
	ID                uuid.UUID      `json:"id" db:"id"`
	Name              string         `json:"name" db:"name"`
	RequiredSignerIDs pq.StringArray `json:"required_signer_ids" db:"required_signer_ids"`
	IsOrderEnforced   bool           `json:"is_order_enforced" db:"is_order_enforced"`
	MinQuorumPercent  *float64       `json:"min_quorum_percent,omitempty" db:"min_quorum_percent"`
	// SignableContentTypes limits which attachments enter the signable
	// set; empty means all attachments are signable.
	SignableContentTypes pq.StringArray `json:"signable_content_types" db:"signable_content_types"`
	CreatedAt            time.Time      `json:"created_at" db:"created_at"`
}
