package signing

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"inkporto/signing-portal/signing-portal-backend/pkg/eds"
)

// MockLedger is a mock implementation of the Ledger interface
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) CreateSignature(ctx context.Context, rec *SignatureRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockLedger) ListSignatures(ctx context.Context, documentID uuid.UUID, channel Channel) ([]SignatureRecord, error) {
	args := m.Called(ctx, documentID, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SignatureRecord), args.Error(1)
}

func (m *MockLedger) GetSignature(ctx context.Context, documentID, userID uuid.UUID, channel Channel) (*SignatureRecord, error) {
	args := m.Called(ctx, documentID, userID, channel)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*SignatureRecord), args.Error(1)
}

func (m *MockLedger) CreateRejection(ctx context.Context, rej *SignatureRejection) error {
	args := m.Called(ctx, rej)
	return args.Error(0)
}

func (m *MockLedger) ListRejections(ctx context.Context, documentID uuid.UUID) ([]SignatureRejection, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]SignatureRejection), args.Error(1)
}

func (m *MockLedger) GetManifest(ctx context.Context, documentID uuid.UUID) (*ManifestRecord, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ManifestRecord), args.Error(1)
}

func (m *MockLedger) ReplaceManifest(ctx context.Context, rec *ManifestRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockLedger) AppendActivity(ctx context.Context, rec *ActivityRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockLedger) ListActivity(ctx context.Context, documentID uuid.UUID) ([]ActivityRecord, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]ActivityRecord), args.Error(1)
}

func (m *MockLedger) DeleteAllForDocument(ctx context.Context, documentID uuid.UUID) error {
	args := m.Called(ctx, documentID)
	return args.Error(0)
}

// MockStorage is a mock implementation of the StorageService interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GetFileInfo(ctx context.Context, fileID uuid.UUID) (*FileInfo, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*FileInfo), args.Error(1)
}

func (m *MockStorage) CreateManifest(ctx context.Context, fileIDs []uuid.UUID, extraData []byte) (uuid.UUID, error) {
	args := m.Called(ctx, fileIDs, extraData)
	return args.Get(0).(uuid.UUID), args.Error(1)
}

func (m *MockStorage) Download(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, error) {
	args := m.Called(ctx, fileID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(io.ReadCloser), args.Error(1)
}

func (m *MockStorage) AttachSignature(ctx context.Context, fileID uuid.UUID, signature []byte, metadata map[string]string) error {
	args := m.Called(ctx, fileID, signature, metadata)
	return args.Error(0)
}

func (m *MockStorage) AttachRawSignatureContainer(ctx context.Context, fileID uuid.UUID, signature []byte) error {
	args := m.Called(ctx, fileID, signature)
	return args.Error(0)
}

// MockNotifier is a mock implementation of the Notifier interface
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) Notify(ctx context.Context, userIDs []uuid.UUID, title, body, templateID string) error {
	args := m.Called(ctx, userIDs, title, body, templateID)
	return args.Error(0)
}

// MockSource is a mock implementation of the DocumentSource interface
type MockSource struct {
	mock.Mock
}

func (m *MockSource) GetDocumentFiles(ctx context.Context, documentID uuid.UUID) (*DocumentFiles, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*DocumentFiles), args.Error(1)
}

func (m *MockSource) ResolveTemplateConfig(ctx context.Context, documentID uuid.UUID) (*TemplateConfig, error) {
	args := m.Called(ctx, documentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*TemplateConfig), args.Error(1)
}

// MockProvider is a mock implementation of the eds.Provider interface
type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) ExtractSignatureInfo(ctx context.Context, signature []byte, opts eds.ExtractOptions) (*eds.SignatureInfo, error) {
	args := m.Called(ctx, signature, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*eds.SignatureInfo), args.Error(1)
}
