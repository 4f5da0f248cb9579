package signing

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"io"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

// ManifestCache keeps the content-addressed manifest artifact in step with
// the document's signable file set. The manifest lists every covered file id
// and is itself the first signable entry, binding the set together.
type ManifestCache struct {
	ledger  Ledger
	storage StorageService
	// includeData embeds document data into newly created manifests when
	// the global policy is enabled.
	includeData bool
	logger      *zap.Logger
}

func NewManifestCache(ledger Ledger, storage StorageService, includeData bool, logger *zap.Logger) *ManifestCache {
	return &ManifestCache{
		ledger:      ledger,
		storage:     storage,
		includeData: includeData,
		logger:      logger,
	}
}

// Ensure returns the signable entry for the manifest covering exactly
// currentFileIDs, regenerating the artifact when the covered set changed.
// Two racing calls resolve last-writer-wins at the record level.
func (c *ManifestCache) Ensure(ctx context.Context, documentID uuid.UUID, currentFileIDs []uuid.UUID, extraData []byte) (*SignableEntry, error) {
	rec, err := c.ledger.GetManifest(ctx, documentID)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}

	if rec != nil && rec.Covers(currentFileIDs) {
		return c.entryFor(ctx, rec.ManifestFileID)
	}

	if !c.includeData {
		extraData = nil
	}
	manifestFileID, err := c.storage.CreateManifest(ctx, currentFileIDs, extraData)
	if err != nil {
		return nil, &UpstreamError{Provider: "storage", Err: err}
	}

	covered := make(pq.StringArray, len(currentFileIDs))
	for i, id := range currentFileIDs {
		covered[i] = id.String()
	}
	if err := c.ledger.ReplaceManifest(ctx, &ManifestRecord{
		DocumentID:     documentID,
		ManifestFileID: manifestFileID,
		CoveredFileIDs: covered,
	}); err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}

	c.logger.Info("manifest regenerated",
		zap.String("document_id", documentID.String()),
		zap.String("manifest_file_id", manifestFileID.String()),
		zap.Int("covered_files", len(currentFileIDs)))

	return c.entryFor(ctx, manifestFileID)
}

// entryFor hashes the manifest artifact's own content into its data-for-sign.
// An unreadable manifest aborts the signing attempt: nothing may be signed
// against coverage that cannot be fetched.
func (c *ManifestCache) entryFor(ctx context.Context, manifestFileID uuid.UUID) (*SignableEntry, error) {
	rc, err := c.storage.Download(ctx, manifestFileID)
	if err != nil {
		return nil, &IntegrityError{ManifestFileID: manifestFileID, Err: err}
	}
	defer rc.Close()

	h := sha256.New()
	if _, err := io.Copy(h, rc); err != nil {
		return nil, &IntegrityError{ManifestFileID: manifestFileID, Err: err}
	}

	return &SignableEntry{
		FileID:      manifestFileID,
		Role:        RoleManifest,
		DataForSign: base64.StdEncoding.EncodeToString(h.Sum(nil)),
	}, nil
}
