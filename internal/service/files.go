package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/storage"
)

var (
	ErrUploadInProgress = errors.New("upload already in progress for this file")
	ErrUnsupportedType  = errors.New("unsupported file type")
	ErrFileTooLarge     = errors.New("file too large")
	ErrNoAttachment     = errors.New("no file attached")
	// ErrStorage wraps every failed object storage call.
	ErrStorage = errors.New("storage operation failed")
)

// FileStore is the slice of PedidoStore the attachment flow needs.
type FileStore interface {
	GetPedido(ctx context.Context, id int64) (database.PedidoRow, error)
	UpdatePedidoFile(ctx context.Context, id int64, field enum.FileField, url pgtype.Text) error
}

type FileConfig struct {
	Bucket   string
	TTL      time.Duration
	MaxBytes int64
}

// FileService uploads, signs and removes pedido attachments.
type FileService struct {
	store    FileStore
	objects  storage.Storage
	cfg      FileConfig
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time

	mu       sync.Mutex
	inflight map[cellKey]struct{}
}

type cellKey struct {
	id    int64
	field enum.FileField
}

func NewFileService(store FileStore, objects storage.Storage, cfg FileConfig, logger *zap.Logger) *FileService {
	if cfg.TTL <= 0 {
		cfg.TTL = 60 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileService{
		store:    store,
		objects:  objects,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
		inflight: make(map[cellKey]struct{}),
	}
}

func (s *FileService) SetNotifier(n Notifier) { s.notifier = n }

// TTL is the lifetime of URLs returned by SignedURL.
func (s *FileService) TTL() time.Duration { return s.cfg.TTL }

// SignedURL resolves a stored reference (public URL or key) to a
// short-lived URL.
func (s *FileService) SignedURL(ctx context.Context, ref string) (string, error) {
	key, err := storage.ObjectKey(s.cfg.Bucket, ref)
	if err != nil {
		return "", err
	}
	u, err := s.objects.SignedURL(ctx, key, s.cfg.TTL)
	if err != nil {
		return "", fmt.Errorf("%w: sign %s: %w", ErrStorage, key, err)
	}
	return u, nil
}

// FieldSignedURL signs the file currently attached to a pedido field.
func (s *FileService) FieldSignedURL(ctx context.Context, id int64, field enum.FileField) (string, error) {
	ref, err := s.attached(ctx, id, field)
	if err != nil {
		return "", err
	}
	return s.SignedURL(ctx, ref)
}

type UploadInput struct {
	PedidoID    int64
	Field       enum.FileField
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Upload stores a new object and points the pedido field at its public URL.
// Only one upload per (pedido, field) runs at a time.
func (s *FileService) Upload(ctx context.Context, in UploadInput) (string, error) {
	if !in.Field.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, in.Field)
	}
	if !storage.AllowedUpload(in.Filename, in.ContentType) {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, in.Filename)
	}
	if s.cfg.MaxBytes > 0 && in.Size > s.cfg.MaxBytes {
		return "", fmt.Errorf("%w: %d bytes, limit %d", ErrFileTooLarge, in.Size, s.cfg.MaxBytes)
	}

	cell := cellKey{id: in.PedidoID, field: in.Field}
	if !s.claim(cell) {
		return "", ErrUploadInProgress
	}
	defer s.release(cell)

	if _, err := s.store.GetPedido(ctx, in.PedidoID); err != nil {
		return "", err
	}

	key := storage.ObjectName(string(in.Field), in.PedidoID, in.Filename, s.now())
	if err := s.objects.Put(ctx, in.Body, storage.PutInput{Key: key, ContentType: in.ContentType, Size: in.Size}); err != nil {
		return "", fmt.Errorf("%w: upload %s: %w", ErrStorage, key, err)
	}
	publicURL := s.objects.PublicURL(key)

	if err := s.store.UpdatePedidoFile(ctx, in.PedidoID, in.Field, pgtype.Text{String: publicURL, Valid: true}); err != nil {
		s.logger.Warn("uploaded object left unreferenced", zap.String("key", key), zap.Error(err))
		return "", err
	}

	s.logger.Info("file uploaded", zap.Int64("id_pedido", in.PedidoID), zap.String("field", string(in.Field)), zap.String("key", key))
	s.notify(in.PedidoID, in.Field)
	return publicURL, nil
}

// Delete removes the attached object and then clears the field. A failed
// removal leaves the field untouched.
func (s *FileService) Delete(ctx context.Context, id int64, field enum.FileField, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	ref, err := s.attached(ctx, id, field)
	if err != nil {
		return err
	}
	key, err := storage.ObjectKey(s.cfg.Bucket, ref)
	if err != nil {
		return err
	}
	if err := s.objects.Remove(ctx, key); err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrStorage, key, err)
	}
	if err := s.store.UpdatePedidoFile(ctx, id, field, pgtype.Text{}); err != nil {
		return err
	}
	s.logger.Info("file deleted", zap.Int64("id_pedido", id), zap.String("field", string(field)), zap.String("key", key))
	s.notify(id, field)
	return nil
}

// Uploading reports whether an upload for the cell is in flight.
func (s *FileService) Uploading(id int64, field enum.FileField) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.inflight[cellKey{id: id, field: field}]
	return ok
}

func (s *FileService) attached(ctx context.Context, id int64, field enum.FileField) (string, error) {
	if !field.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	row, err := s.store.GetPedido(ctx, id)
	if err != nil {
		return "", err
	}
	ref := FileRef(row, field)
	if ref == "" {
		return "", ErrNoAttachment
	}
	return ref, nil
}

func (s *FileService) claim(c cellKey) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inflight[c]; busy {
		return false
	}
	s.inflight[c] = struct{}{}
	return true
}

func (s *FileService) release(c cellKey) {
	s.mu.Lock()
	delete(s.inflight, c)
	s.mu.Unlock()
}

func (s *FileService) notify(id int64, field enum.FileField) {
	if s.notifier == nil {
		return
	}
	s.notifier.NotifyPedidoChanged(ChangeEvent{Action: ChangeFile, PedidoID: id, Field: string(field), At: time.Now()})
}

// FileRef returns the stored reference of an attachment field, "" when empty.
func FileRef(r database.PedidoRow, field enum.FileField) string {
	switch field {
	case enum.FileArchivoBase:
		return r.ArchivoBase.String
	case enum.FileArchivoVector:
		return r.ArchivoVector.String
	case enum.FileFotoSello:
		return r.FotoSello.String
	}
	return ""
}
