package documents

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/xml"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"inkporto/signing-portal/signing-portal-backend/internal/signing"
	"inkporto/signing-portal/signing-portal-backend/pkg/hashing"
	"inkporto/signing-portal/signing-portal-backend/pkg/storage"
)

// FileStorage adapts the S3 client and the files table to the signing core's
// storage boundary.
type FileStorage struct {
	s3             storage.S3Client
	repo           Repository
	documentBucket string
	forensicBucket string
}

func NewFileStorage(s3 storage.S3Client, repo Repository, documentBucket, forensicBucket string) *FileStorage {
	return &FileStorage{
		s3:             s3,
		repo:           repo,
		documentBucket: documentBucket,
		forensicBucket: forensicBucket,
	}
}

// manifestDoc is the container manifest artifact: the list of covered file
// ids, optionally embedding document data, serialized as XML.
type manifestDoc struct {
	XMLName xml.Name       `xml:"manifest"`
	Files   []manifestFile `xml:"file"`
	Data    string         `xml:"data,omitempty"`
}

type manifestFile struct {
	ID string `xml:"id,attr"`
}

func (fs *FileStorage) GetFileInfo(ctx context.Context, fileID uuid.UUID) (*signing.FileInfo, error) {
	file, err := fs.repo.GetFileByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file %s: %w", fileID, err)
	}
	if file == nil {
		return nil, &signing.NotFoundError{Resource: "file", ID: fileID.String()}
	}

	info := &signing.FileInfo{
		FileID:      file.ID,
		Name:        file.Name,
		ContentType: file.ContentType,
		Size:        file.Size,
		SHA256:      file.SHA256,
		SHA1:        file.SHA1,
	}

	// Files uploaded by older clients may lack recorded digests; fall back
	// to the object metadata written by the uploader.
	if info.SHA256 == "" && info.SHA1 == "" {
		obj, err := fs.s3.Head(ctx, file.S3Bucket, file.S3Key)
		if err != nil {
			return nil, fmt.Errorf("failed to head file %s: %w", fileID, err)
		}
		info.SHA256 = obj.SHA256
		info.SHA1 = obj.SHA1
	}

	return info, nil
}

func (fs *FileStorage) CreateManifest(ctx context.Context, fileIDs []uuid.UUID, extraData []byte) (uuid.UUID, error) {
	doc := manifestDoc{Files: make([]manifestFile, len(fileIDs))}
	for i, id := range fileIDs {
		doc.Files[i] = manifestFile{ID: id.String()}
	}
	if len(extraData) > 0 {
		doc.Data = base64.StdEncoding.EncodeToString(extraData)
	}

	content, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to serialize manifest: %w", err)
	}
	content = append([]byte(xml.Header), content...)

	manifestID := uuid.New()
	key := fmt.Sprintf("manifests/%s.xml", manifestID)

	sha256Hex, _ := hashing.SumHex(hashing.SHA256, content)
	sha1Hex, _ := hashing.SumHex(hashing.SHA1, content)

	metadata := map[string]string{"sha256": sha256Hex, "sha1": sha1Hex}
	if err := fs.s3.Upload(ctx, fs.documentBucket, key, bytes.NewReader(content), metadata); err != nil {
		return uuid.Nil, err
	}

	if err := fs.repo.CreateFile(ctx, &StoredFile{
		ID:          manifestID,
		S3Bucket:    fs.documentBucket,
		S3Key:       key,
		Name:        "manifest.xml",
		ContentType: "application/xml",
		Size:        int64(len(content)),
		SHA256:      sha256Hex,
		SHA1:        sha1Hex,
	}); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record manifest file: %w", err)
	}

	return manifestID, nil
}

func (fs *FileStorage) Download(ctx context.Context, fileID uuid.UUID) (io.ReadCloser, error) {
	file, err := fs.repo.GetFileByID(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("failed to load file %s: %w", fileID, err)
	}
	if file == nil {
		return nil, &signing.NotFoundError{Resource: "file", ID: fileID.String()}
	}
	return fs.s3.Download(ctx, file.S3Bucket, file.S3Key)
}

func (fs *FileStorage) AttachSignature(ctx context.Context, fileID uuid.UUID, signatureBytes []byte, metadata map[string]string) error {
	key := fmt.Sprintf("signatures/%s/%d.p7s", fileID, time.Now().UnixNano())
	return fs.s3.Upload(ctx, fs.documentBucket, key, bytes.NewReader(signatureBytes), metadata)
}

func (fs *FileStorage) AttachRawSignatureContainer(ctx context.Context, fileID uuid.UUID, signatureBytes []byte) error {
	key := fmt.Sprintf("raw/%s/%d.bin", fileID, time.Now().UnixNano())
	return fs.s3.Upload(ctx, fs.forensicBucket, key, bytes.NewReader(signatureBytes), nil)
}

// UploadFile stores content in the document bucket, computing and recording
// its digests, and returns the file row.
func (fs *FileStorage) UploadFile(ctx context.Context, name, contentType string, content []byte) (*StoredFile, error) {
	fileID := uuid.New()
	key := fmt.Sprintf("documents/%s/%s", fileID, name)

	sha256Hex, _ := hashing.SumHex(hashing.SHA256, content)
	sha1Hex, _ := hashing.SumHex(hashing.SHA1, content)

	metadata := map[string]string{"sha256": sha256Hex, "sha1": sha1Hex}
	if err := fs.s3.Upload(ctx, fs.documentBucket, key, bytes.NewReader(content), metadata); err != nil {
		return nil, err
	}

	file := &StoredFile{
		ID:          fileID,
		S3Bucket:    fs.documentBucket,
		S3Key:       key,
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(content)),
		SHA256:      sha256Hex,
		SHA1:        sha1Hex,
	}
	if err := fs.repo.CreateFile(ctx, file); err != nil {
		return nil, fmt.Errorf("failed to record file: %w", err)
	}
	return file, nil
}
