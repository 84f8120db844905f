package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"

	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/service"
	"github.com/sellos-taller/dashboard/internal/storage"
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func parseID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// writeError maps domain and database errors to a status code. Anything
// unrecognised is logged and reported as a 500.
func writeError(w http.ResponseWriter, logger *zap.Logger, op string, err error) {
	status, msg := classify(err)
	if status >= 500 {
		logger.Error(op, zap.Error(err))
	}
	writeJSON(w, status, map[string]string{"error": msg})
}

func classify(err error) (int, string) {
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return http.StatusNotFound, "pedido not found"
	case errors.Is(err, service.ErrNoAttachment), errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, service.ErrInvalidForm),
		errors.Is(err, service.ErrInvalidField),
		errors.Is(err, service.ErrInvalidValue),
		errors.Is(err, service.ErrNotConfirmed),
		errors.Is(err, service.ErrUnsupportedType),
		errors.Is(err, query.ErrInvalidDate),
		errors.Is(err, query.ErrInvalidView),
		errors.Is(err, query.ErrInvalidSort):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, service.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge, err.Error()
	case errors.Is(err, service.ErrUploadInProgress):
		return http.StatusConflict, err.Error()
	case errors.Is(err, service.ErrStorage):
		return http.StatusBadGateway, service.ErrStorage.Error()
	case errors.Is(err, service.ErrClienteUpdate) && errors.Is(err, service.ErrPedidoUpdate):
		return http.StatusInternalServerError, "cliente and pedido update failed"
	case errors.Is(err, service.ErrClienteUpdate):
		return http.StatusInternalServerError, service.ErrClienteUpdate.Error()
	case errors.Is(err, service.ErrPedidoUpdate):
		return http.StatusInternalServerError, service.ErrPedidoUpdate.Error()
	case errors.As(err, &pgErr) && pgErr.Code == "23505":
		return http.StatusConflict, "duplicate value"
	case errors.As(err, &pgErr) && pgErr.Code == "23514":
		return http.StatusBadRequest, "value not allowed: " + pgErr.ConstraintName
	}
	return http.StatusInternalServerError, "internal server error"
}
