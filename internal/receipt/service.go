package receipt

import (
	"context"
	"log/slog"
	"time"

	"github.com/frahmantamala/expenseflow/internal"
	"github.com/frahmantamala/expenseflow/internal/membership"
)

// ObjectStorage presigns direct uploads and downloads.
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string) (string, time.Time, error)
	PresignDownload(ctx context.Context, key string) (string, time.Time, error)
}

// ExpenseReceipts resolves the receipt key of an expense the caller may read.
type ExpenseReceipts interface {
	ReceiptKey(ctx context.Context, res membership.Resolution, expenseID string) (string, error)
}

type Service struct {
	keys     Keys
	storage  ObjectStorage
	expenses ExpenseReceipts
	logger   *slog.Logger
}

// NewService accepts a nil storage; every presign then fails with
// ErrStorageDisabled.
func NewService(storage ObjectStorage, expenses ExpenseReceipts, logger *slog.Logger) *Service {
	return &Service{
		storage:  storage,
		expenses: expenses,
		logger:   logger,
	}
}

func (s *Service) Enabled() bool {
	return s.storage != nil
}

// CreateUploadURL issues a fresh key under the caller's organization and a
// presigned PUT for it.
func (s *Service) CreateUploadURL(ctx context.Context, res membership.Resolution, dto UploadURLDTO) (*UploadURL, error) {
	if denial := membership.Deny(res, membership.SubmitRoles...); denial != nil {
		return nil, denial
	}
	if !s.Enabled() {
		return nil, internal.ErrStorageDisabled
	}

	dto.Normalize()
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	key := s.keys.New(res.OrganizationID(), dto.FileName)
	url, expiresAt, err := s.storage.PresignUpload(ctx, key, dto.ContentType)
	if err != nil {
		s.logger.Error("failed to presign receipt upload", "error", err, "key", key)
		return nil, internal.NewInternalError("Failed to prepare receipt upload", err)
	}

	s.logger.Info("receipt upload url issued",
		"organization_id", res.OrganizationID(),
		"user_id", res.UserID,
		"key", key)
	return &UploadURL{Key: key, UploadURL: url, ExpiresAt: expiresAt}, nil
}

// DownloadURL presigns a GET for the receipt of an expense the caller can read.
func (s *Service) DownloadURL(ctx context.Context, res membership.Resolution, expenseID string) (*DownloadURL, error) {
	if !s.Enabled() {
		return nil, internal.ErrStorageDisabled
	}

	key, err := s.expenses.ReceiptKey(ctx, res, expenseID)
	if err != nil {
		return nil, err
	}

	url, expiresAt, err := s.storage.PresignDownload(ctx, key)
	if err != nil {
		s.logger.Error("failed to presign receipt download", "error", err, "expense_id", expenseID)
		return nil, internal.NewInternalError("Failed to prepare receipt download", err)
	}
	return &DownloadURL{URL: url, ExpiresAt: expiresAt}, nil
}
