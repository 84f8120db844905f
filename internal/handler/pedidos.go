package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/middleware"
	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/service"
)

// PedidoServicer defines the service methods needed by pedido handlers.
// Satisfied by *service.PedidoService; narrow interface for testability.
type PedidoServicer interface {
	List(ctx context.Context, req query.Request) ([]database.PedidoRow, error)
	Get(ctx context.Context, id int64) (database.PedidoRow, error)
	Options(ctx context.Context) (service.FilterOptions, error)
	Create(ctx context.Context, form service.EditForm) (int64, error)
	SaveEdit(ctx context.Context, id int64, form service.EditForm) error
	Delete(ctx context.Context, id int64, confirmed bool) error
	SetEstado(ctx context.Context, id int64, field enum.StatusField, value string) error
	SetVectorizacion(ctx context.Context, id int64, value string) error
	Location() *time.Location
}

// PedidoHandler handles the order list and its row mutations.
type PedidoHandler struct {
	svc    PedidoServicer
	logger *zap.Logger
}

func NewPedidoHandler(svc PedidoServicer, logger *zap.Logger) *PedidoHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PedidoHandler{svc: svc, logger: logger}
}

// RegisterRoutes registers pedido endpoints on the given Chi router.
// Expected to be mounted at /pedidos behind Authenticate.
func (h *PedidoHandler) RegisterRoutes(r chi.Router) {
	r.With(middleware.RequireView).Get("/", h.List)
	r.Get("/options", h.Options)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/estado", h.SetEstado)
	r.Patch("/{id}/vectorizacion", h.SetVectorizacion)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(enum.RoleAdmin))
		r.Post("/", h.Create)
		r.Put("/{id}", h.SaveEdit)
		r.Delete("/{id}", h.Delete)
	})
}

// --- Request / Response types ---

type pedidoListResponse struct {
	View    query.View           `json:"view"`
	Sort    query.Sort           `json:"sort"`
	Pedidos []service.PedidoView `json:"pedidos"`
}

type setEstadoRequest struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type setVectorizacionRequest struct {
	Value string `json:"value"`
}

// --- Handlers ---

// List handles GET /pedidos.
func (h *PedidoHandler) List(w http.ResponseWriter, r *http.Request) {
	req, err := listRequest(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	rows, err := h.svc.List(r.Context(), req)
	if err != nil {
		writeError(w, h.logger, "list pedidos", err)
		return
	}

	views := service.NewPedidoViewsFor(rows, h.svc.Location(), req.View)
	writeJSON(w, http.StatusOK, pedidoListResponse{View: req.View, Sort: req.Sort, Pedidos: views})
}

// listRequest reads the list query string. Status sets are comma separated.
func listRequest(r *http.Request) (query.Request, error) {
	q := r.URL.Query()
	view, err := query.ParseView(q.Get("view"))
	if err != nil {
		return query.Request{}, err
	}
	sort, err := query.ParseSort(q.Get("sort"))
	if err != nil {
		return query.Request{}, err
	}
	return query.Request{
		View:   view,
		Sort:   sort,
		Search: q.Get("q"),
		Filters: query.Filters{
			FechaDesde:        q.Get("desde"),
			FechaHasta:        q.Get("hasta"),
			EstadoFabricacion: splitSet(q.Get("estado_fabricacion")),
			EstadoVenta:       splitSet(q.Get("estado_venta")),
			EstadoEnvio:       splitSet(q.Get("estado_envio")),
		},
	}, nil
}

func splitSet(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Options handles GET /pedidos/options.
func (h *PedidoHandler) Options(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.Options(r.Context())
	if err != nil {
		writeError(w, h.logger, "list pedido options", err)
		return
	}
	writeJSON(w, http.StatusOK, opts.ForView(callerView(r)))
}

// callerView is the widest list page the caller may open. Single-row reads
// are projected for it so production operators never see client data.
func callerView(r *http.Request) query.View {
	if claims := middleware.ClaimsFromContext(r.Context()); claims != nil &&
		middleware.ViewAllowed(claims.Role, query.ViewPedidos) {
		return query.ViewPedidos
	}
	return query.ViewProduccion
}

// Get handles GET /pedidos/{id}.
func (h *PedidoHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "get pedido", err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewPedidoView(row, h.svc.Location()).ForView(callerView(r)))
}

// Create handles POST /pedidos. The body has the shape of the edit form;
// attachments are uploaded afterwards through the files routes.
func (h *PedidoHandler) Create(w http.ResponseWriter, r *http.Request) {
	var form service.EditForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	id, err := h.svc.Create(r.Context(), form)
	if err != nil {
		writeError(w, h.logger, "create pedido", err)
		return
	}

	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "reload pedido", err)
		return
	}
	w.Header().Set("Location", "/pedidos/"+strconv.FormatInt(id, 10))
	writeJSON(w, http.StatusCreated, service.NewPedidoView(row, h.svc.Location()))
}

// SaveEdit handles PUT /pedidos/{id}. The body is the full edit form.
func (h *PedidoHandler) SaveEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	var form service.EditForm
	if err := json.NewDecoder(r.Body).Decode(&form); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.svc.SaveEdit(r.Context(), id, form); err != nil {
		writeError(w, h.logger, "save pedido edit", err)
		return
	}

	row, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "reload pedido", err)
		return
	}
	writeJSON(w, http.StatusOK, service.NewPedidoView(row, h.svc.Location()))
}

// Delete handles DELETE /pedidos/{id}?confirm=true.
func (h *PedidoHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	confirmed, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	if err := h.svc.Delete(r.Context(), id, confirmed); err != nil {
		writeError(w, h.logger, "delete pedido", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetEstado handles PATCH /pedidos/{id}/estado.
func (h *PedidoHandler) SetEstado(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	var req setEstadoRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.svc.SetEstado(r.Context(), id, enum.StatusField(req.Field), req.Value); err != nil {
		writeError(w, h.logger, "set pedido estado", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetVectorizacion handles PATCH /pedidos/{id}/vectorizacion.
func (h *PedidoHandler) SetVectorizacion(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(r)
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid pedido ID"})
		return
	}

	var req setVectorizacionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if err := h.svc.SetVectorizacion(r.Context(), id, req.Value); err != nil {
		writeError(w, h.logger, "set pedido vectorizacion", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
