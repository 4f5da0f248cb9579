package documents

import (
	"context"
	"encoding/xml"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"inkporto/signing-portal/signing-portal-backend/internal/signing"
	"inkporto/signing-portal/signing-portal-backend/pkg/hashing"
	"inkporto/signing-portal/signing-portal-backend/pkg/storage"
)

// MockRepository is a mock implementation of the Repository interface
type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) CreateDocument(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) GetDocumentByID(ctx context.Context, id uuid.UUID) (*Document, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Document), args.Error(1)
}

func (m *MockRepository) UpdateDocument(ctx context.Context, doc *Document) error {
	args := m.Called(ctx, doc)
	return args.Error(0)
}

func (m *MockRepository) ListDocuments(ctx context.Context, templateID *uuid.UUID) ([]Document, error) {
	args := m.Called(ctx, templateID)
	return args.Get(0).([]Document), args.Error(1)
}

func (m *MockRepository) CreateFile(ctx context.Context, file *StoredFile) error {
	args := m.Called(ctx, file)
	return args.Error(0)
}

func (m *MockRepository) GetFileByID(ctx context.Context, id uuid.UUID) (*StoredFile, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*StoredFile), args.Error(1)
}

func (m *MockRepository) CreateAttachment(ctx context.Context, att *Attachment) error {
	args := m.Called(ctx, att)
	return args.Error(0)
}

func (m *MockRepository) ListAttachments(ctx context.Context, documentID uuid.UUID) ([]Attachment, error) {
	args := m.Called(ctx, documentID)
	return args.Get(0).([]Attachment), args.Error(1)
}

func (m *MockRepository) GetTemplateByID(ctx context.Context, id uuid.UUID) (*Template, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Template), args.Error(1)
}

// MockS3 is a mock implementation of the storage.S3Client interface
type MockS3 struct {
	mock.Mock
}

func (m *MockS3) Upload(ctx context.Context, bucket, key string, body io.Reader, metadata map[string]string) error {
	content, _ := io.ReadAll(body)
	args := m.Called(ctx, bucket, key, content, metadata)
	return args.Error(0)
}

func (m *MockS3) Download(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockS3) Head(ctx context.Context, bucket, key string) (*storage.ObjectInfo, error) {
	args := m.Called(ctx, bucket, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.ObjectInfo), args.Error(1)
}

func (m *MockS3) Delete(ctx context.Context, bucket, key string) error {
	args := m.Called(ctx, bucket, key)
	return args.Error(0)
}

func (m *MockS3) GetPresignedURL(ctx context.Context, bucket, key string, expiration time.Duration) (string, error) {
	args := m.Called(ctx, bucket, key, expiration)
	return args.String(0), args.Error(1)
}

// MockResetter is a mock implementation of the SignatureResetter interface
type MockResetter struct {
	mock.Mock
}

func (m *MockResetter) Reset(ctx context.Context, documentID, actorID uuid.UUID) error {
	args := m.Called(ctx, documentID, actorID)
	return args.Error(0)
}

// stubGenerator renders a fixed payload, standing in for the fpdf renderer.
type stubGenerator struct {
	content string
}

func (g *stubGenerator) Generate(ctx context.Context, templateID, title string, fields map[string]string) (io.Reader, error) {
	return strings.NewReader(g.content), nil
}

func newTestStorage(s3 *MockS3, repo *MockRepository) *FileStorage {
	return NewFileStorage(s3, repo, "docs-bucket", "forensic-bucket")
}

func TestCreateDocumentRendersAndUploads(t *testing.T) {
	mockRepo := new(MockRepository)
	mockS3 := new(MockS3)
	service := NewService(mockRepo, newTestStorage(mockS3, mockRepo), &stubGenerator{content: "%PDF-1.7 rendered"}, new(MockResetter), zap.NewNop())

	ctx := context.Background()
	req := CreateRequest{
		TemplateID:  uuid.New(),
		Name:        "supply-agreement",
		Description: "Q3 supply agreement",
		Fields:      map[string]string{"amount": "1200"},
		CreatedBy:   uuid.New(),
	}

	mockS3.On("Upload", ctx, "docs-bucket", mock.AnythingOfType("string"),
		[]byte("%PDF-1.7 rendered"), mock.Anything).Return(nil)
	mockRepo.On("CreateFile", ctx, mock.AnythingOfType("*documents.StoredFile")).Return(nil)
	mockRepo.On("CreateDocument", ctx, mock.AnythingOfType("*documents.Document")).Return(nil)

	doc, err := service.CreateDocument(ctx, req)

	assert.NoError(t, err)
	require.NotNil(t, doc)
	assert.Equal(t, req.Name, doc.Name)
	assert.Equal(t, StatusDraft, doc.Status)
	require.NotNil(t, doc.MainFileID)

	mockRepo.AssertExpectations(t)
	mockS3.AssertExpectations(t)
}

func TestRegeneratePDFResetsSignatures(t *testing.T) {
	mockRepo := new(MockRepository)
	mockS3 := new(MockS3)
	mockResetter := new(MockResetter)
	service := NewService(mockRepo, newTestStorage(mockS3, mockRepo), &stubGenerator{content: "%PDF-1.7 v2"}, mockResetter, zap.NewNop())

	ctx := context.Background()
	docID, actorID := uuid.New(), uuid.New()
	oldFileID := uuid.New()
	existing := &Document{
		ID:         docID,
		TemplateID: uuid.New(),
		Name:       "supply-agreement",
		MainFileID: &oldFileID,
		Status:     StatusInSigning,
	}

	mockRepo.On("GetDocumentByID", ctx, docID).Return(existing, nil)
	mockS3.On("Upload", ctx, "docs-bucket", mock.AnythingOfType("string"),
		[]byte("%PDF-1.7 v2"), mock.Anything).Return(nil)
	mockRepo.On("CreateFile", ctx, mock.AnythingOfType("*documents.StoredFile")).Return(nil)
	mockRepo.On("UpdateDocument", ctx, existing).Return(nil)
	mockResetter.On("Reset", ctx, docID, actorID).Return(nil)

	doc, err := service.RegeneratePDF(ctx, docID, map[string]string{"amount": "1300"}, actorID)

	assert.NoError(t, err)
	assert.Equal(t, StatusRegenerated, doc.Status)
	assert.NotNil(t, doc.RegeneratedAt)
	require.NotNil(t, doc.MainFileID)
	assert.NotEqual(t, oldFileID, *doc.MainFileID)

	mockResetter.AssertExpectations(t)
	mockRepo.AssertExpectations(t)
}

func TestUpdateStatusFollowsLifecycle(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, newTestStorage(new(MockS3), mockRepo), &stubGenerator{}, new(MockResetter), zap.NewNop())

	ctx := context.Background()
	docID := uuid.New()

	mockRepo.On("GetDocumentByID", ctx, docID).
		Return(&Document{ID: docID, Status: StatusPublished}, nil)
	mockRepo.On("UpdateDocument", ctx, mock.MatchedBy(func(doc *Document) bool {
		return doc.Status == StatusInSigning
	})).Return(nil)

	doc, err := service.UpdateStatus(ctx, docID, StatusInSigning)

	assert.NoError(t, err)
	assert.Equal(t, StatusInSigning, doc.Status)
	mockRepo.AssertExpectations(t)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, newTestStorage(new(MockS3), mockRepo), &stubGenerator{}, new(MockResetter), zap.NewNop())

	ctx := context.Background()
	docID := uuid.New()

	mockRepo.On("GetDocumentByID", ctx, docID).
		Return(&Document{ID: docID, Status: StatusCompleted}, nil)

	_, err := service.UpdateStatus(ctx, docID, StatusInSigning)

	assert.Error(t, err)
	mockRepo.AssertNotCalled(t, "UpdateDocument")
}

func TestCreateManifestWritesXMLWithDigests(t *testing.T) {
	mockRepo := new(MockRepository)
	mockS3 := new(MockS3)
	fs := newTestStorage(mockS3, mockRepo)

	ctx := context.Background()
	fileA, fileB := uuid.New(), uuid.New()

	var uploaded []byte
	mockS3.On("Upload", ctx, "docs-bucket", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "manifests/") && strings.HasSuffix(key, ".xml")
	}), mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		uploaded = args.Get(3).([]byte)
	}).Return(nil)
	mockRepo.On("CreateFile", ctx, mock.MatchedBy(func(file *StoredFile) bool {
		return file.ContentType == "application/xml" && file.SHA256 != "" && file.SHA1 != ""
	})).Return(nil)

	manifestID, err := fs.CreateManifest(ctx, []uuid.UUID{fileA, fileB}, nil)

	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, manifestID)

	var doc manifestDoc
	require.NoError(t, xml.Unmarshal(uploaded, &doc))
	require.Len(t, doc.Files, 2)
	assert.Equal(t, fileA.String(), doc.Files[0].ID)
	assert.Equal(t, fileB.String(), doc.Files[1].ID)
	assert.Empty(t, doc.Data)

	mockRepo.AssertExpectations(t)
	mockS3.AssertExpectations(t)
}

func TestGetFileInfoFallsBackToObjectMetadata(t *testing.T) {
	mockRepo := new(MockRepository)
	mockS3 := new(MockS3)
	fs := newTestStorage(mockS3, mockRepo)

	ctx := context.Background()
	fileID := uuid.New()
	sha256Hex, _ := hashing.SumHex(hashing.SHA256, []byte("legacy content"))

	mockRepo.On("GetFileByID", ctx, fileID).Return(&StoredFile{
		ID:       fileID,
		S3Bucket: "docs-bucket",
		S3Key:    "documents/legacy.pdf",
	}, nil)
	mockS3.On("Head", ctx, "docs-bucket", "documents/legacy.pdf").
		Return(&storage.ObjectInfo{SHA256: sha256Hex}, nil)

	info, err := fs.GetFileInfo(ctx, fileID)

	require.NoError(t, err)
	assert.Equal(t, sha256Hex, info.SHA256)
}

func TestGetFileInfoUnknownFile(t *testing.T) {
	mockRepo := new(MockRepository)
	fs := newTestStorage(new(MockS3), mockRepo)

	fileID := uuid.New()
	mockRepo.On("GetFileByID", mock.Anything, fileID).Return(nil, nil)

	_, err := fs.GetFileInfo(context.Background(), fileID)

	assert.True(t, signing.IsNotFound(err))
}

func TestAttachSignatureTargetsDocumentBucket(t *testing.T) {
	mockS3 := new(MockS3)
	fs := newTestStorage(mockS3, new(MockRepository))

	fileID := uuid.New()
	meta := map[string]string{"signer": uuid.New().String()}

	mockS3.On("Upload", mock.Anything, "docs-bucket", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "signatures/"+fileID.String()+"/") && strings.HasSuffix(key, ".p7s")
	}), []byte("container"), meta).Return(nil)

	err := fs.AttachSignature(context.Background(), fileID, []byte("container"), meta)

	assert.NoError(t, err)
	mockS3.AssertExpectations(t)
}

func TestAttachRawSignatureContainerTargetsForensicBucket(t *testing.T) {
	mockS3 := new(MockS3)
	fs := newTestStorage(mockS3, new(MockRepository))

	fileID := uuid.New()

	mockS3.On("Upload", mock.Anything, "forensic-bucket", mock.MatchedBy(func(key string) bool {
		return strings.HasPrefix(key, "raw/"+fileID.String()+"/")
	}), []byte("raw container"), mock.Anything).Return(nil)

	err := fs.AttachRawSignatureContainer(context.Background(), fileID, []byte("raw container"))

	assert.NoError(t, err)
	mockS3.AssertExpectations(t)
}

func TestResolveTemplateConfigParsesSigners(t *testing.T) {
	mockRepo := new(MockRepository)
	source := NewSigningSource(mockRepo)

	ctx := context.Background()
	docID, tplID := uuid.New(), uuid.New()
	a, b := uuid.New(), uuid.New()
	quorum := 50.0

	mockRepo.On("GetDocumentByID", ctx, docID).
		Return(&Document{ID: docID, TemplateID: tplID}, nil)
	mockRepo.On("GetTemplateByID", ctx, tplID).
		Return(&Template{
			ID:                   tplID,
			RequiredSignerIDs:    []string{a.String(), b.String()},
			IsOrderEnforced:      true,
			MinQuorumPercent:     &quorum,
			SignableContentTypes: []string{"application/pdf"},
		}, nil)

	cfg, err := source.ResolveTemplateConfig(ctx, docID)

	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{a, b}, cfg.RequiredSignerIDs)
	assert.True(t, cfg.IsOrderEnforced)
	require.NotNil(t, cfg.MinQuorumPercent)
	assert.Equal(t, 50.0, *cfg.MinQuorumPercent)

	require.NotNil(t, cfg.AttachmentFilter)
	assert.True(t, cfg.AttachmentFilter(signing.FileInfo{ContentType: "application/pdf"}))
	assert.False(t, cfg.AttachmentFilter(signing.FileInfo{ContentType: "application/zip"}))
}

func TestResolveTemplateConfigWithoutTemplate(t *testing.T) {
	mockRepo := new(MockRepository)
	source := NewSigningSource(mockRepo)

	ctx := context.Background()
	docID := uuid.New()

	mockRepo.On("GetDocumentByID", ctx, docID).
		Return(&Document{ID: docID, TemplateID: uuid.New()}, nil)
	mockRepo.On("GetTemplateByID", ctx, mock.Anything).Return(nil, nil)

	cfg, err := source.ResolveTemplateConfig(ctx, docID)

	require.NoError(t, err)
	assert.Empty(t, cfg.RequiredSignerIDs)
	assert.False(t, cfg.IsOrderEnforced)
}

func TestGetDocumentFilesCollectsAttachments(t *testing.T) {
	mockRepo := new(MockRepository)
	source := NewSigningSource(mockRepo)

	ctx := context.Background()
	docID, mainID := uuid.New(), uuid.New()
	attA, attB := uuid.New(), uuid.New()

	mockRepo.On("GetDocumentByID", ctx, docID).
		Return(&Document{ID: docID, MainFileID: &mainID}, nil)
	mockRepo.On("ListAttachments", ctx, docID).
		Return([]Attachment{
			{ID: uuid.New(), DocumentID: docID, FileID: attA},
			{ID: uuid.New(), DocumentID: docID, FileID: attB},
		}, nil)

	files, err := source.GetDocumentFiles(ctx, docID)

	require.NoError(t, err)
	assert.Equal(t, mainID, files.MainFileID)
	assert.Equal(t, []uuid.UUID{attA, attB}, files.AttachmentFileIDs)
}
