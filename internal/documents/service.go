package documents

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"inkporto/signing-portal/signing-portal-backend/pkg/pdf"
	"inkporto/signing-portal/signing-portal-backend/pkg/workflows"
)

// SignatureResetter clears all signatures, rejections and the manifest of a
// document. Satisfied by the signing service.
type SignatureResetter interface {
	Reset(ctx context.Context, documentID, actorID uuid.UUID) error
}

type Service interface {
	CreateDocument(ctx context.Context, req CreateRequest) (*Document, error)
	GetDocument(ctx context.Context, id uuid.UUID) (*Document, error)
	ListDocuments(ctx context.Context, templateID *uuid.UUID) ([]Document, error)
	DownloadMainFile(ctx context.Context, id uuid.UUID) (io.ReadCloser, error)

	AddAttachment(ctx context.Context, id uuid.UUID, req AttachmentRequest) (*Attachment, error)

	// UpdateStatus moves the document through its lifecycle, rejecting
	// transitions the state machine does not allow.
	UpdateStatus(ctx context.Context, id uuid.UUID, to DocumentStatus) (*Document, error)

	// RegeneratePDF re-renders the main file from the template. Prior
	// signatures cover bytes that no longer exist, so the signing state
	// is cleared in the same operation.
	RegeneratePDF(ctx context.Context, id uuid.UUID, fields map[string]string, actorID uuid.UUID) (*Document, error)
}

type CreateRequest struct {
	TemplateID  uuid.UUID
	Name        string
	Description string
	Fields      map[string]string
	CreatedBy   uuid.UUID
}

type AttachmentRequest struct {
	Name        string
	ContentType string
	Content     []byte
}

type documentService struct {
	repo      Repository
	storage   *FileStorage
	pdf       pdf.Generator
	resetter  SignatureResetter
	lifecycle *workflows.StateMachine
	logger    *zap.Logger
}

func NewService(repo Repository, storage *FileStorage, generator pdf.Generator, resetter SignatureResetter, logger *zap.Logger) Service {
	return &documentService{
		repo:      repo,
		storage:   storage,
		pdf:       generator,
		resetter:  resetter,
		lifecycle: workflows.NewDocumentStateMachine(),
		logger:    logger,
	}
}

func (s *documentService) CreateDocument(ctx context.Context, req CreateRequest) (*Document, error) {
	docID := uuid.New()

	content, err := s.render(ctx, req.TemplateID.String(), req.Name, req.Fields)
	if err != nil {
		return nil, err
	}

	file, err := s.storage.UploadFile(ctx, req.Name+".pdf", "application/pdf", content)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		ID:          docID,
		TemplateID:  req.TemplateID,
		Name:        req.Name,
		Description: req.Description,
		MainFileID:  &file.ID,
		Status:      StatusDraft,
		CreatedBy:   req.CreatedBy,
	}
	if err := s.repo.CreateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}
	return doc, nil
}

func (s *documentService) GetDocument(ctx context.Context, id uuid.UUID) (*Document, error) {
	return s.repo.GetDocumentByID(ctx, id)
}

func (s *documentService) ListDocuments(ctx context.Context, templateID *uuid.UUID) ([]Document, error) {
	return s.repo.ListDocuments(ctx, templateID)
}

func (s *documentService) DownloadMainFile(ctx context.Context, id uuid.UUID) (io.ReadCloser, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil || doc.MainFileID == nil {
		return nil, fmt.Errorf("document %s has no main file", id)
	}
	return s.storage.Download(ctx, *doc.MainFileID)
}

func (s *documentService) AddAttachment(ctx context.Context, id uuid.UUID, req AttachmentRequest) (*Attachment, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s not found", id)
	}

	file, err := s.storage.UploadFile(ctx, req.Name, req.ContentType, req.Content)
	if err != nil {
		return nil, err
	}

	att := &Attachment{
		ID:         uuid.New(),
		DocumentID: id,
		FileID:     file.ID,
	}
	if err := s.repo.CreateAttachment(ctx, att); err != nil {
		return nil, fmt.Errorf("failed to record attachment: %w", err)
	}
	return att, nil
}

func (s *documentService) UpdateStatus(ctx context.Context, id uuid.UUID, to DocumentStatus) (*Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s not found", id)
	}

	if !s.lifecycle.CanTransition(string(doc.Status), string(to)) {
		return nil, fmt.Errorf("document %s cannot move from %s to %s", id, doc.Status, to)
	}

	doc.Status = to
	if err := s.repo.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update document status: %w", err)
	}
	return doc, nil
}

func (s *documentService) RegeneratePDF(ctx context.Context, id uuid.UUID, fields map[string]string, actorID uuid.UUID) (*Document, error) {
	doc, err := s.repo.GetDocumentByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s not found", id)
	}

	content, err := s.render(ctx, doc.TemplateID.String(), doc.Name, fields)
	if err != nil {
		return nil, err
	}

	file, err := s.storage.UploadFile(ctx, doc.Name+".pdf", "application/pdf", content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	doc.MainFileID = &file.ID
	doc.Status = StatusRegenerated
	doc.RegeneratedAt = &now
	if err := s.repo.UpdateDocument(ctx, doc); err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	// Invalidate every prior signature against the replaced content.
	if err := s.resetter.Reset(ctx, id, actorID); err != nil {
		return nil, fmt.Errorf("failed to reset signatures after regeneration: %w", err)
	}

	s.logger.Info("document regenerated",
		zap.String("document_id", id.String()),
		zap.String("main_file_id", file.ID.String()))

	return doc, nil
}

func (s *documentService) render(ctx context.Context, templateID, title string, fields map[string]string) ([]byte, error) {
	reader, err := s.pdf.Generate(ctx, templateID, title, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to render PDF: %w", err)
	}
	content, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered PDF: %w", err)
	}
	return content, nil
}
