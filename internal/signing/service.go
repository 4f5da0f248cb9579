package signing

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inkporto/signing-portal/signing-portal-backend/internal/config"
)

// Service is the co-signing entry point invoked by the HTTP layer.
type Service interface {
	// DataToSign returns the current signable set: the manifest entry
	// first, then the main file, then the filtered attachments.
	DataToSign(ctx context.Context, documentID uuid.UUID) ([]SignableEntry, error)
	// Sign verifies and persists a signature batch for the document channel.
	Sign(ctx context.Context, req SignRequest) (*SignResult, error)
	// SignAdditionalData verifies and persists the single allowed
	// additional-data signature for (document, user).
	SignAdditionalData(ctx context.Context, req AdditionalDataSignRequest) (*SignResult, error)
	// Reject records that the user declined to sign.
	Reject(ctx context.Context, documentID uuid.UUID, user SignerProfile, reason string) error
	// State derives the current multi-sign view.
	State(ctx context.Context, documentID uuid.UUID) (*MultiSignState, error)
	// History returns signatures, rejections and the activity log.
	History(ctx context.Context, documentID uuid.UUID) (*History, error)
	// ExportHistory renders the signing history as an XLSX workbook.
	ExportHistory(ctx context.Context, documentID uuid.UUID) ([]byte, error)
	// Reset clears all signatures, rejections and the manifest record.
	// Must be called whenever the signable file set is invalidated, e.g.
	// after PDF regeneration.
	Reset(ctx context.Context, documentID, actorID uuid.UUID) error
}

// SignatureEnvelope is one raw signature blob targeting one signable entry.
type SignatureEnvelope struct {
	FileID    uuid.UUID     `json:"file_id"`
	Kind      SignatureKind `json:"kind"`
	Signature []byte        `json:"signature"`
}

// SignRequest is a signature batch submitted by one authenticated signer.
// The first envelope is the primary signature and must pass the full
// content+identity check.
type SignRequest struct {
	DocumentID uuid.UUID
	User       SignerProfile
	Envelopes  []SignatureEnvelope
}

// AdditionalDataSignRequest signs caller-supplied auxiliary data bound to the
// document, on the separate additional-data channel.
type AdditionalDataSignRequest struct {
	DocumentID uuid.UUID
	User       SignerProfile
	Kind       SignatureKind
	Signature  []byte
	Data       []byte
}

// SignResult reports the outcome of a sign operation.
type SignResult struct {
	SignatureID   uuid.UUID       `json:"signature_id"`
	QuorumCrossed bool            `json:"quorum_crossed"`
	NextSignerID  *uuid.UUID      `json:"next_signer_id,omitempty"`
	State         *MultiSignState `json:"state"`
}

// History is the audit view over one document's signing activity.
type History struct {
	Signatures []SignatureRecord    `json:"signatures"`
	Rejections []SignatureRejection `json:"rejections"`
	Activity   []ActivityRecord     `json:"activity"`
}

type signService struct {
	source      DocumentSource
	builder     *SignableSetBuilder
	manifests   *ManifestCache
	verifier    *Verifier
	coordinator *Coordinator
	ledger      Ledger
	storage     StorageService
	cfg         config.SigningConfig
	logger      *zap.Logger
}

func NewService(
	source DocumentSource,
	builder *SignableSetBuilder,
	manifests *ManifestCache,
	verifier *Verifier,
	coordinator *Coordinator,
	ledger Ledger,
	storage StorageService,
	cfg config.SigningConfig,
	logger *zap.Logger,
) Service {
	return &signService{
		source:      source,
		builder:     builder,
		manifests:   manifests,
		verifier:    verifier,
		coordinator: coordinator,
		ledger:      ledger,
		storage:     storage,
		cfg:         cfg,
		logger:      logger,
	}
}

// buildSet recomputes the full signable set, manifest entry first. It runs
// freshly inside every operation that verifies signatures so a signature is
// never persisted against a stale data-for-sign computation.
func (s *signService) buildSet(ctx context.Context, documentID uuid.UUID) ([]SignableEntry, *TemplateConfig, error) {
	files, err := s.source.GetDocumentFiles(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}
	cfg, err := s.source.ResolveTemplateConfig(ctx, documentID)
	if err != nil {
		return nil, nil, err
	}

	entries, err := s.builder.Build(ctx, files, cfg.AttachmentFilter)
	if err != nil {
		return nil, nil, err
	}

	manifestEntry, err := s.manifests.Ensure(ctx, documentID, fileIDs(entries), nil)
	if err != nil {
		return nil, nil, err
	}

	set := make([]SignableEntry, 0, len(entries)+1)
	set = append(set, *manifestEntry)
	set = append(set, entries...)
	return set, cfg, nil
}

func (s *signService) DataToSign(ctx context.Context, documentID uuid.UUID) ([]SignableEntry, error) {
	set, _, err := s.buildSet(ctx, documentID)
	return set, err
}

func (s *signService) Sign(ctx context.Context, req SignRequest) (*SignResult, error) {
	if len(req.Envelopes) == 0 {
		return nil, &InvalidStateError{Reason: "sign request carries no signatures"}
	}

	existing, err := s.ledger.GetSignature(ctx, req.DocumentID, req.User.UserID, ChannelDocument)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}
	if existing != nil {
		return nil, ErrAlreadySigned
	}

	set, cfg, err := s.buildSet(ctx, req.DocumentID)
	if err != nil {
		return nil, err
	}
	byFileID := make(map[uuid.UUID]SignableEntry, len(set))
	for _, entry := range set {
		byFileID[entry.FileID] = entry
	}

	// Out-of-turn signers are rejected before any verification work.
	if err := s.checkTurn(ctx, req.DocumentID, req.User.UserID, cfg); err != nil {
		return nil, err
	}

	var primary *VerifyResult
	for i, env := range req.Envelopes {
		expected, ok := byFileID[env.FileID]
		if !ok {
			return nil, &NotFoundError{Resource: "signable entry for file", ID: env.FileID.String()}
		}
		result, err := s.verifier.Verify(ctx, VerifyRequest{
			Signature:  env.Signature,
			Kind:       env.Kind,
			Expected:   expected,
			User:       req.User,
			BatchIndex: i,
		})
		if err != nil {
			return nil, err
		}
		if i == 0 {
			primary = result
		}
	}

	rec := &SignatureRecord{
		ID:         uuid.New(),
		DocumentID: req.DocumentID,
		FileID:     req.Envelopes[0].FileID,
		CreatedBy:  req.User.UserID,
		Channel:    ChannelDocument,
		Kind:       req.Envelopes[0].Kind,
		Signature:  req.Envelopes[0].Signature,
		Processed:  primary.Processed,
	}
	if primary.CertificatePEM != "" {
		rec.Certificate = []byte(primary.CertificatePEM)
	}
	if err := s.ledger.CreateSignature(ctx, rec); err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}

	// Attach each verified signature to its file in object storage.
	for _, env := range req.Envelopes {
		meta := map[string]string{
			"signer": req.User.UserID.String(),
			"kind":   string(env.Kind),
		}
		if err := s.storage.AttachSignature(ctx, env.FileID, env.Signature, meta); err != nil {
			return nil, &UpstreamError{Provider: "storage", Err: err}
		}
	}

	// Forensic retention of the raw containers is best-effort and never
	// fails the sign operation.
	s.retainForensic(req.DocumentID, req.Envelopes)

	if err := s.coordinator.RecordAction(ctx, req.DocumentID, req.User.UserID, ActionSign, string(req.Envelopes[0].Kind)); err != nil {
		s.logger.Warn("failed to record sign action",
			zap.String("document_id", req.DocumentID.String()), zap.Error(err))
	}

	crossed, err := s.coordinator.HandleQuorum(ctx, req.DocumentID, req.User.UserID, cfg)
	if err != nil {
		return nil, err
	}

	next, err := s.coordinator.NextSigner(ctx, req.DocumentID, cfg)
	if err != nil {
		return nil, err
	}
	if next != nil {
		s.coordinator.NotifyNextSigner(ctx, req.DocumentID, *next)
	}

	state, err := s.coordinator.State(ctx, req.DocumentID, cfg)
	if err != nil {
		return nil, err
	}

	s.logger.Info("document signed",
		zap.String("document_id", req.DocumentID.String()),
		zap.String("user_id", req.User.UserID.String()),
		zap.Int("batch_size", len(req.Envelopes)),
		zap.Bool("quorum_crossed", crossed))

	return &SignResult{
		SignatureID:   rec.ID,
		QuorumCrossed: crossed,
		NextSignerID:  next,
		State:         state,
	}, nil
}

// checkTurn rejects a required signer acting out of the enforced order.
// Signers outside the required list may sign at any time.
func (s *signService) checkTurn(ctx context.Context, documentID, userID uuid.UUID, cfg *TemplateConfig) error {
	next, err := s.coordinator.NextSigner(ctx, documentID, cfg)
	if err != nil {
		return err
	}
	if next == nil || *next == userID {
		return nil
	}
	for i, id := range cfg.RequiredSignerIDs {
		if id == userID {
			return &OrderViolationError{
				Position:         i,
				ExpectedSignerID: *next,
				ActualSignerID:   userID,
			}
		}
	}
	return nil
}

func (s *signService) SignAdditionalData(ctx context.Context, req AdditionalDataSignRequest) (*SignResult, error) {
	existing, err := s.ledger.GetSignature(ctx, req.DocumentID, req.User.UserID, ChannelAdditionalData)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}
	if existing != nil {
		return nil, ErrAlreadySigned
	}

	// The additional-data channel signs the hash of the supplied payload.
	sum := sha256.Sum256(req.Data)
	expected := SignableEntry{
		FileID:      req.DocumentID,
		Role:        RoleMain,
		DataForSign: base64.StdEncoding.EncodeToString(sum[:]),
	}

	result, err := s.verifier.Verify(ctx, VerifyRequest{
		Signature: req.Signature,
		Kind:      req.Kind,
		Expected:  expected,
		User:      req.User,
	})
	if err != nil {
		return nil, err
	}

	rec := &SignatureRecord{
		ID:          uuid.New(),
		DocumentID:  req.DocumentID,
		FileID:      req.DocumentID,
		CreatedBy:   req.User.UserID,
		Channel:     ChannelAdditionalData,
		Kind:        req.Kind,
		Signature:   req.Signature,
		Certificate: []byte(result.CertificatePEM),
		Processed:   result.Processed,
	}
	if err := s.ledger.CreateSignature(ctx, rec); err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}

	return &SignResult{SignatureID: rec.ID}, nil
}

func (s *signService) Reject(ctx context.Context, documentID uuid.UUID, user SignerProfile, reason string) error {
	// Rejection needs the document to exist but not a fresh signable set.
	if _, err := s.source.GetDocumentFiles(ctx, documentID); err != nil {
		return err
	}

	rej := &SignatureRejection{
		ID:         uuid.New(),
		DocumentID: documentID,
		CreatedBy:  user.UserID,
		Reason:     reason,
	}
	if err := s.ledger.CreateRejection(ctx, rej); err != nil {
		return &UpstreamError{Provider: "persistence", Err: err}
	}

	if err := s.coordinator.RecordAction(ctx, documentID, user.UserID, ActionReject, reason); err != nil {
		s.logger.Warn("failed to record reject action",
			zap.String("document_id", documentID.String()), zap.Error(err))
	}
	return nil
}

func (s *signService) State(ctx context.Context, documentID uuid.UUID) (*MultiSignState, error) {
	if _, err := s.source.GetDocumentFiles(ctx, documentID); err != nil {
		return nil, err
	}
	cfg, err := s.source.ResolveTemplateConfig(ctx, documentID)
	if err != nil {
		return nil, err
	}
	return s.coordinator.State(ctx, documentID, cfg)
}

func (s *signService) History(ctx context.Context, documentID uuid.UUID) (*History, error) {
	sigs, err := s.ledger.ListSignatures(ctx, documentID, ChannelDocument)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}
	rejs, err := s.ledger.ListRejections(ctx, documentID)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}
	activity, err := s.ledger.ListActivity(ctx, documentID)
	if err != nil {
		return nil, &UpstreamError{Provider: "persistence", Err: err}
	}
	return &History{Signatures: sigs, Rejections: rejs, Activity: activity}, nil
}

func (s *signService) Reset(ctx context.Context, documentID, actorID uuid.UUID) error {
	if err := s.ledger.DeleteAllForDocument(ctx, documentID); err != nil {
		return &UpstreamError{Provider: "persistence", Err: err}
	}
	if err := s.coordinator.RecordAction(ctx, documentID, actorID, ActionClearAll, "signable file set invalidated"); err != nil {
		s.logger.Warn("failed to record clear action",
			zap.String("document_id", documentID.String()), zap.Error(err))
	}
	s.logger.Info("document signatures reset",
		zap.String("document_id", documentID.String()),
		zap.String("actor_id", actorID.String()))
	return nil
}

// retainForensic archives raw signature containers in the background with a
// bounded timeout, detached from the request's success path.
func (s *signService) retainForensic(documentID uuid.UUID, envelopes []SignatureEnvelope) {
	timeout := s.cfg.StorageTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		for _, env := range envelopes {
			if err := s.storage.AttachRawSignatureContainer(ctx, env.FileID, env.Signature); err != nil {
				s.logger.Warn("forensic signature retention failed",
					zap.String("document_id", documentID.String()),
					zap.String("file_id", env.FileID.String()),
					zap.Error(err))
			}
		}
	}()
}
