package handler

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/service"
	"github.com/sellos-taller/dashboard/internal/storage"
)

// multipartOverhead is allowed on top of the file size limit for the
// multipart envelope.
const multipartOverhead = 1 << 20

// FileServicer defines the attachment operations needed by file handlers.
// Satisfied by *service.FileService.
type FileServicer interface {
	Upload(ctx context.Context, in service.UploadInput) (string, error)
	Delete(ctx context.Context, id int64, field enum.FileField, confirmed bool) error
	FieldSignedURL(ctx context.Context, id int64, field enum.FileField) (string, error)
	TTL() time.Duration
}

// FileHandler handles pedido attachments.
type FileHandler struct {
	svc      FileServicer
	maxBytes int64
	logger   *zap.Logger
}

func NewFileHandler(svc FileServicer, maxBytes int64, logger *zap.Logger) *FileHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileHandler{svc: svc, maxBytes: maxBytes, logger: logger}
}

// RegisterRoutes registers attachment endpoints.
// Expected to be mounted at /pedidos/{id}/files behind Authenticate.
func (h *FileHandler) RegisterRoutes(r chi.Router) {
	r.Post("/{field}", h.Upload)
	r.Delete("/{field}", h.Delete)
	r.Get("/{field}/url", h.SignedURL)
}

type uploadResponse struct {
	Field string `json:"field"`
	URL   string `json:"url"`
}

type signedURLResponse struct {
	URL       string `json:"url"`
	ExpiresIn int    `json:"expires_in"`
}

func fileField(r *http.Request) (enum.FileField, bool) {
	f := enum.FileField(chi.URLParam(r, "field"))
	return f, f.Valid()
}

// Upload handles POST /pedidos/{id}/files/{field} with a multipart "file" part.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}
	field, ok := fileField(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file field"})
		return
	}

	if h.maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes+multipartOverhead)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": service.ErrFileTooLarge.Error()})
			return
		}
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "file is required"})
		return
	}
	defer file.Close()

	url, err := h.svc.Upload(r.Context(), service.UploadInput{
		PedidoID:    id,
		Field:       field,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		writeError(w, h.logger, "upload pedido file", err)
		return
	}
	writeJSON(w, http.StatusCreated, uploadResponse{Field: string(field), URL: url})
}

// Delete handles DELETE /pedidos/{id}/files/{field}?confirm=true.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}
	field, ok := fileField(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file field"})
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.svc.Delete(r.Context(), id, field, confirmed); err != nil {
		writeError(w, h.logger, "delete pedido file", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SignedURL handles GET /pedidos/{id}/files/{field}/url.
func (h *FileHandler) SignedURL(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}
	field, ok := fileField(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid file field"})
		return
	}

	url, err := h.svc.FieldSignedURL(r.Context(), id, field)
	if err != nil {
		writeError(w, h.logger, "sign pedido file url", err)
		return
	}
	writeJSON(w, http.StatusOK, signedURLResponse{URL: url, ExpiresIn: int(h.svc.TTL().Seconds())})
}

// --- Local driver downloads ---

// FileOpener verifies a signed token and opens the object.
// Satisfied by *storage.Local.
type FileOpener interface {
	Open(key, token string) (*os.File, error)
}

// ServeSignedFile handles GET /files/{key}?token= for the local storage driver.
func ServeSignedFile(opener FileOpener, logger *zap.Logger) http.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		key := chi.URLParam(r, "*")
		f, err := opener.Open(key, r.URL.Query().Get("token"))
		switch {
		case errors.Is(err, storage.ErrInvalidToken), errors.Is(err, storage.ErrInvalidKey):
			writeJSON(w, http.StatusForbidden, map[string]string{"error": "invalid or expired link"})
			return
		case errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "file not found"})
			return
		case err != nil:
			logger.Error("open signed file", zap.String("key", key), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			logger.Error("stat signed file", zap.String("key", key), zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}
		w.Header().Set("Cache-Control", "private, no-store")
		http.ServeContent(w, r, path.Base(key), info.ModTime(), f)
	}
}
