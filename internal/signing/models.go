package signing

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// SignatureKind distinguishes the supported signature container encodings.
type SignatureKind string

const (
	// KindData is an attached container carrying its own signed content.
	KindData SignatureKind = "data"
	// KindDataExternal is an attached container produced outside the platform.
	KindDataExternal SignatureKind = "data_external"
	// KindHash is a detached container signed over a content hash.
	KindHash SignatureKind = "hash"
	// KindTaxSignEncryptSign is the tax-authority sign-encrypt-sign variant;
	// it covers a derived payload, so content equality is not checked.
	KindTaxSignEncryptSign SignatureKind = "tax_sign_encrypt_sign"
	// KindRaw has no extractable certificate.
	KindRaw SignatureKind = "raw"
)

// Channel separates independent signature ledgers for the same document.
type Channel string

const (
	ChannelDocument       Channel = "document"
	ChannelAdditionalData Channel = "additional_data"
)

// FileRole marks the position of an entry in the signable set.
type FileRole string

const (
	RoleManifest   FileRole = "manifest"
	RoleMain       FileRole = "main"
	RoleAttachment FileRole = "attachment"
)

// SignableEntry is one (file, data-for-sign) pair. DataForSign is the
// base64-encoded content hash the signature must cover.
type SignableEntry struct {
	FileID      uuid.UUID `json:"file_id"`
	Role        FileRole  `json:"role"`
	DataForSign string    `json:"data_for_sign"`
}

// SignerProfile is the authenticated user's identity as supplied by the
// identity provider.
type SignerProfile struct {
	UserID       uuid.UUID `json:"user_id"`
	TaxID        string    `json:"tax_id"`
	CompanyTaxID string    `json:"company_tax_id,omitempty"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	MiddleName   string    `json:"middle_name,omitempty"`
}

// FullName assembles the profile name in certificate order (surname first).
func (p SignerProfile) FullName() string {
	name := p.LastName + " " + p.FirstName
	if p.MiddleName != "" {
		name += " " + p.MiddleName
	}
	return name
}

// SignatureRecord is one persisted signature row.
type SignatureRecord struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	DocumentID  uuid.UUID     `json:"document_id" db:"document_id"`
	FileID      uuid.UUID     `json:"file_id" db:"file_id"`
	CreatedBy   uuid.UUID     `json:"created_by" db:"created_by"`
	Channel     Channel       `json:"channel" db:"channel"`
	Kind        SignatureKind `json:"kind" db:"kind"`
	Signature   []byte        `json:"-" db:"signature"`
	Certificate []byte        `json:"-" db:"certificate"`
	// Processed is false for raw co-signatures accepted without an
	// identity check.
	Processed bool      `json:"processed" db:"processed"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// SignatureRejection records a signer declining to sign.
type SignatureRejection struct {
	ID         uuid.UUID `json:"id" db:"id"`
	DocumentID uuid.UUID `json:"document_id" db:"document_id"`
	CreatedBy  uuid.UUID `json:"created_by" db:"created_by"`
	Reason     string    `json:"reason" db:"reason"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// ManifestRecord pins the manifest artifact covering a document's signable
// file set. Replaced whole whenever the covered set changes.
type ManifestRecord struct {
	DocumentID     uuid.UUID      `json:"document_id" db:"document_id"`
	ManifestFileID uuid.UUID      `json:"manifest_file_id" db:"manifest_file_id"`
	CoveredFileIDs pq.StringArray `json:"covered_file_ids" db:"covered_file_ids"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// Covers reports whether the record covers exactly the given file set,
// order-independent.
func (m *ManifestRecord) Covers(fileIDs []uuid.UUID) bool {
	if len(m.CoveredFileIDs) != len(fileIDs) {
		return false
	}
	covered := make(map[string]bool, len(m.CoveredFileIDs))
	for _, id := range m.CoveredFileIDs {
		covered[id] = true
	}
	for _, id := range fileIDs {
		if !covered[id.String()] {
			return false
		}
	}
	return true
}

// ActivityAction enumerates the signing activity log actions.
type ActivityAction string

const (
	ActionSign     ActivityAction = "sign"
	ActionReject   ActivityAction = "reject"
	ActionClearAll ActivityAction = "clear_all"
)

// ActivityRecord is one row of the signing activity log attached to the
// document's owning task.
type ActivityRecord struct {
	ID         uuid.UUID      `json:"id" db:"id"`
	DocumentID uuid.UUID      `json:"document_id" db:"document_id"`
	Action     ActivityAction `json:"action" db:"action"`
	ActorID    uuid.UUID      `json:"actor_id" db:"actor_id"`
	Detail     string         `json:"detail" db:"detail"`
	CreatedAt  time.Time      `json:"created_at" db:"created_at"`
}

// MultiSignState is the derived co-signing view of a document.
type MultiSignState struct {
	SignedByUserIDs   []uuid.UUID `json:"signed_by_user_ids"`
	RejectedByUserIDs []uuid.UUID `json:"rejected_by_user_ids"`
	RequiredSignerIDs []uuid.UUID `json:"required_signer_ids"`
	IsOrderEnforced   bool        `json:"is_order_enforced"`
	MinQuorumPercent  *float64    `json:"min_quorum_percent,omitempty"`
	QuorumReached     bool        `json:"quorum_reached"`
	NextSignerID      *uuid.UUID  `json:"next_signer_id,omitempty"`
}

// FileInfo describes a stored file as seen by the signing core.
type FileInfo struct {
	FileID      uuid.UUID
	Name        string
	ContentType string
	Size        int64
	SHA256      string
	SHA1        string
}

// TemplateConfig is the per-template co-signing configuration resolved by the
// caller. AttachmentFilter is a pure predicate; attachments failing it are
// excluded from the signable set.
type TemplateConfig struct {
	RequiredSignerIDs []uuid.UUID
	IsOrderEnforced   bool
	MinQuorumPercent  *float64
	AttachmentFilter  func(FileInfo) bool
}

// StorageService is the object-store boundary consumed by the core.
type StorageService interface {
	GetFileInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error)
	CreateManifest(ctx context.Context, fileIDs []uuid.UUID, extraData []byte) (uuid.UUID, error)
	Download(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, error)
	AttachSignature(ctx context.Context, fileID uuid.UUID, signature []byte, metadata map[string]string) error
	AttachRawSignatureContainer(ctx context.Context, fileID uuid.UUID, signature []byte) error
}

// Notifier delivers user notifications. Failures are logged by callers, never
// propagated into the signing path.
type Notifier interface {
	Notify(ctx context.Context, userIDs []uuid.UUID, title, body, templateID string) error
}
