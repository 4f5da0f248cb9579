package documents

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"inkporto/signing-portal/signing-portal-backend/internal/signing"
)

// SigningSource exposes documents and their template signing rules to the
// signing core.
type SigningSource struct {
	repo Repository
}

func NewSigningSource(repo Repository) *SigningSource {
	return &SigningSource{repo: repo}
}

func (s *SigningSource) GetDocumentFiles(ctx context.Context, documentID uuid.UUID) (*signing.DocumentFiles, error) {
	doc, err := s.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	if doc == nil {
		return nil, &signing.NotFoundError{Resource: "document", ID: documentID.String()}
	}

	files := &signing.DocumentFiles{DocumentID: doc.ID}
	if doc.MainFileID != nil {
		files.MainFileID = *doc.MainFileID
	}

	atts, err := s.repo.ListAttachments(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attachments for %s: %w", documentID, err)
	}
	for _, att := range atts {
		files.AttachmentFileIDs = append(files.AttachmentFileIDs, att.FileID)
	}

	return files, nil
}

func (s *SigningSource) ResolveTemplateConfig(ctx context.Context, documentID uuid.UUID) (*signing.TemplateConfig, error) {
	doc, err := s.repo.GetDocumentByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document %s: %w", documentID, err)
	}
	if doc == nil {
		return nil, &signing.NotFoundError{Resource: "document", ID: documentID.String()}
	}

	tpl, err := s.repo.GetTemplateByID(ctx, doc.TemplateID)
	if err != nil {
		return nil, fmt.Errorf("failed to load template %s: %w", doc.TemplateID, err)
	}
	if tpl == nil {
		// Documents without a template have no co-signing requirements.
		return &signing.TemplateConfig{}, nil
	}

	cfg := &signing.TemplateConfig{
		IsOrderEnforced:  tpl.IsOrderEnforced,
		MinQuorumPercent: tpl.MinQuorumPercent,
		AttachmentFilter: contentTypeFilter(tpl.SignableContentTypes),
	}
	for _, raw := range tpl.RequiredSignerIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("template %s has malformed signer id %q: %w", tpl.ID, raw, err)
		}
		cfg.RequiredSignerIDs = append(cfg.RequiredSignerIDs, id)
	}

	return cfg, nil
}

// contentTypeFilter builds the attachment predicate from the template's
// signable content types. An empty list admits everything.
func contentTypeFilter(types []string) func(signing.FileInfo) bool {
	if len(types) == 0 {
		return func(signing.FileInfo) bool { return true }
	}
	allowed := make(map[string]bool, len(types))
	for _, t := range types {
		allowed[t] = true
	}
	return func(info signing.FileInfo) bool {
		return allowed[info.ContentType]
	}
}
