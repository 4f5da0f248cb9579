package signing

import (
	"context"
	"encoding/base64"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// DocumentFiles is the file set of a document as resolved by the documents
// subsystem: the rendered main file plus attachments.
type DocumentFiles struct {
	DocumentID        uuid.UUID
	MainFileID        uuid.UUID
	AttachmentFileIDs []uuid.UUID
}

// DocumentSource resolves documents and their template signing configuration.
type DocumentSource interface {
	GetDocumentFiles(ctx context.Context, documentID uuid.UUID) (*DocumentFiles, error)
	ResolveTemplateConfig(ctx context.Context, documentID uuid.UUID) (*TemplateConfig, error)
}

// SignableSetBuilder computes the ordered (file, data-for-sign) pairs for a
// document: main file first, then attachments surviving the template filter.
// The manifest entry is prepended separately by the ManifestCache.
type SignableSetBuilder struct {
	storage StorageService
	logger  *zap.Logger
}

func NewSignableSetBuilder(storage StorageService, logger *zap.Logger) *SignableSetBuilder {
	return &SignableSetBuilder{storage: storage, logger: logger}
}

// Build returns the signable entries for the document's current file set.
// Read-only: no manifest is touched here. Attachments failing the filter are
// excluded before hashing; entries whose hash cannot be resolved are dropped.
func (b *SignableSetBuilder) Build(ctx context.Context, files *DocumentFiles, filter func(FileInfo) bool) ([]SignableEntry, error) {
	if files.MainFileID == uuid.Nil {
		return nil, &NotFoundError{Resource: "main file for document", ID: files.DocumentID.String()}
	}

	entries := make([]SignableEntry, 0, 1+len(files.AttachmentFileIDs))

	mainEntry, err := b.buildEntry(ctx, files.MainFileID, RoleMain)
	if err != nil {
		return nil, err
	}
	if mainEntry != nil {
		entries = append(entries, *mainEntry)
	}

	for _, fileID := range files.AttachmentFileIDs {
		info, err := b.storage.GetFileInfo(ctx, fileID)
		if err != nil {
			return nil, &UpstreamError{Provider: "storage", Err: err}
		}
		if filter != nil && !filter(*info) {
			continue
		}
		entry, err := entryFromInfo(info, RoleAttachment)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			b.logger.Warn("dropping attachment with unresolvable hash",
				zap.String("document_id", files.DocumentID.String()),
				zap.String("file_id", fileID.String()))
			continue
		}
		entries = append(entries, *entry)
	}

	return entries, nil
}

func (b *SignableSetBuilder) buildEntry(ctx context.Context, fileID uuid.UUID, role FileRole) (*SignableEntry, error) {
	info, err := b.storage.GetFileInfo(ctx, fileID)
	if err != nil {
		return nil, &UpstreamError{Provider: "storage", Err: err}
	}
	return entryFromInfo(info, role)
}

// entryFromInfo reduces a file to its data-for-sign: the content hash
// (sha256 preferred, sha1 fallback), base64-encoded. Returns nil when the
// file carries no resolvable hash.
func entryFromInfo(info *FileInfo, role FileRole) (*SignableEntry, error) {
	hexHash := info.SHA256
	if hexHash == "" {
		hexHash = info.SHA1
	}
	if hexHash == "" {
		return nil, nil
	}

	raw, err := hex.DecodeString(hexHash)
	if err != nil {
		return nil, fmt.Errorf("malformed content hash for file %s: %w", info.FileID, err)
	}

	return &SignableEntry{
		FileID:      info.FileID,
		Role:        role,
		DataForSign: base64.StdEncoding.EncodeToString(raw),
	}, nil
}

// fileIDs extracts the covered file ids from a built set.
func fileIDs(entries []SignableEntry) []uuid.UUID {
	ids := make([]uuid.UUID, len(entries))
	for i, e := range entries {
		ids[i] = e.FileID
	}
	return ids
}
