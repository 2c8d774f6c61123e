package document

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	errors "github.com/frahmantamala/time2pay/internal"
)

const (
	PDFContentType = "application/pdf"
	keyPrefix      = "documents"
)

// Store persists supporting documents under opaque keys.
type Store interface {
	Save(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}

// Upload is a document received from a client, not yet persisted.
type Upload struct {
	Name        string
	Size        int64
	ContentType string
	Body        io.Reader
}

// NewKey returns a fresh storage key for a PDF.
func NewKey() string {
	return fmt.Sprintf("%s/%s.pdf", keyPrefix, uuid.NewString())
}

// ValidateUpload checks extension and size before anything is written.
// maxBytes above the hard ceiling is clamped to it.
func ValidateUpload(u *Upload, maxBytes int64) error {
	maxBytes = UploadLimit(maxBytes)

	if u == nil || u.Body == nil {
		return errors.NewValidationFieldError("document", "A supporting PDF document is required.", errors.ErrCodeInvalidDocument)
	}

	if !strings.EqualFold(filepath.Ext(u.Name), ".pdf") {
		return errors.NewValidationFieldError("document", "Only PDF files are allowed.", errors.ErrCodeInvalidDocument)
	}

	if u.Size <= 0 {
		return errors.NewValidationFieldError("document", "The uploaded file is empty.", errors.ErrCodeInvalidDocument)
	}

	if u.Size > maxBytes {
		return TooLarge(maxBytes)
	}

	return nil
}

// UploadLimit clamps a configured limit to the hard ceiling.
func UploadLimit(maxBytes int64) int64 {
	if maxBytes <= 0 || maxBytes > errors.MaxDocumentBytes {
		return errors.MaxDocumentBytes
	}
	return maxBytes
}

// TooLarge is the validation error for a document over maxBytes.
func TooLarge(maxBytes int64) *errors.AppError {
	return errors.NewValidationFieldError("document",
		fmt.Sprintf("File size must not exceed %d MB.", UploadLimit(maxBytes)/(1024*1024)),
		errors.ErrCodeInvalidDocument)
}

// NewStore builds the backend selected by cfg.Driver.
func NewStore(ctx context.Context, cfg errors.StorageConfig) (Store, error) {
	switch cfg.Driver {
	case "minio":
		store, err := NewMinioStore(cfg.Minio)
		if err != nil {
			return nil, err
		}
		if err := store.EnsureBucket(ctx); err != nil {
			return nil, err
		}
		return store, nil
	case "", "local":
		return NewLocalStore(cfg.BasePath)
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.Driver)
	}
}

func storageError(op string, err error) error {
	appErr := errors.NewInternalError(fmt.Sprintf("failed to %s document", op), err)
	appErr.Code = errors.ErrCodeStorageFailure
	return appErr
}
