// Package dashboard holds the per-connection state behind a live order list:
// filter and search input with debouncing, the list fetch, the inline
// editor, row menus and signed attachment links. Every change is published
// as a full state snapshot.
package dashboard

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/schedule"
	"github.com/sellos-taller/dashboard/internal/service"
)

// Outbound message types.
const (
	MsgState   = "dashboard.state"
	MsgAlert   = "dashboard.alert"
	MsgChanged = "pedidos.changed"
)

// Alert kinds.
const (
	AlertFetch    = "fetch"
	AlertMutation = "mutation"
	AlertStorage  = "storage"
	AlertInput    = "input"
)

const (
	DefaultSearchDelay = 500 * time.Millisecond
	DefaultFilterDelay = 300 * time.Millisecond

	urlRefreshMargin = 10 * time.Second
	maxURLResolvers  = 4
)

type Message struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

type Alert struct {
	Kind     string `json:"kind"`
	Message  string `json:"message"`
	PedidoID int64  `json:"id_pedido,omitempty"`
}

// Publisher delivers an outbound message. It must not block.
type Publisher func(Message)

// Pedidos is the service surface a session drives.
// Satisfied by *service.PedidoService.
type Pedidos interface {
	List(ctx context.Context, req query.Request) ([]database.PedidoRow, error)
	SaveEdit(ctx context.Context, id int64, form service.EditForm) error
	Delete(ctx context.Context, id int64, confirmed bool) error
	SetEstado(ctx context.Context, id int64, field enum.StatusField, value string) error
	SetVectorizacion(ctx context.Context, id int64, value string) error
	Location() *time.Location
}

// Files resolves attachment links. Satisfied by *service.FileService.
type Files interface {
	SignedURL(ctx context.Context, ref string) (string, error)
	TTL() time.Duration
	Uploading(id int64, field enum.FileField) bool
}

type Config struct {
	View        query.View
	SearchDelay time.Duration
	FilterDelay time.Duration
}

// State is the snapshot published after every change.
type State struct {
	Version        uint64               `json:"version"`
	SessionID      string               `json:"session_id"`
	View           query.View           `json:"view"`
	Sort           query.Sort           `json:"sort"`
	Search         string               `json:"search"`
	AppliedSearch  string               `json:"applied_search"`
	SearchPending  bool                 `json:"search_pending"`
	Filters        query.Filters        `json:"filters"`
	AppliedFilters query.Filters        `json:"applied_filters"`
	FiltersPending bool                 `json:"filters_pending"`
	FiltersActive  bool                 `json:"filters_active"`
	Phase          Phase                `json:"phase"`
	Error          string               `json:"error,omitempty"`
	Rows           []service.PedidoView `json:"rows"`
	Editor         Editor               `json:"editor"`
	ContextMenu    ContextMenu          `json:"context_menu"`
	EditMenu       EditMenu             `json:"edit_menu"`
}

// Session is the state of one live dashboard connection.
type Session struct {
	id      string
	view    query.View
	pedidos Pedidos
	files   Files
	publish Publisher
	logger  *zap.Logger
	now     func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	search  *schedule.Value[string]
	filters *schedule.Value[query.Filters]
	fetch   *Coordinator[[]database.PedidoRow]

	mu             sync.Mutex
	closed         bool
	version        uint64
	sort           query.Sort
	rawSearch      string
	appliedSearch  string
	rawFilters     query.Filters
	appliedFilters query.Filters
	editor         Editor
	menu           ContextMenu
	editMenu       EditMenu
	urls           *urlCache
}

// NewSession creates a session. Nothing is fetched until Start.
func NewSession(cfg Config, pedidos Pedidos, files Files, publish Publisher, logger *zap.Logger) (*Session, error) {
	view, err := query.ParseView(string(cfg.View))
	if err != nil {
		return nil, err
	}
	if cfg.SearchDelay <= 0 {
		cfg.SearchDelay = DefaultSearchDelay
	}
	if cfg.FilterDelay <= 0 {
		cfg.FilterDelay = DefaultFilterDelay
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if publish == nil {
		publish = func(Message) {}
	}

	s := &Session{
		id:      uuid.NewString(),
		view:    view,
		pedidos: pedidos,
		files:   files,
		publish: publish,
		now:     time.Now,
		sort:    query.SortDesc,
		editor:  newEditor(),
		urls:    newURLCache(urlRefreshMargin),
	}
	s.logger = logger.With(zap.String("session", s.id), zap.String("view", string(view)))
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.search = schedule.NewValue(cfg.SearchDelay, s.settleSearch)
	s.filters = schedule.NewValue(cfg.FilterDelay, s.settleFilters)
	s.fetch = NewCoordinator[[]database.PedidoRow](s.pedidos.List, s.settleFetch)
	return s, nil
}

func (s *Session) ID() string { return s.id }

func (s *Session) View() query.View { return s.view }

// Start issues the initial fetch and publishes the first snapshot.
func (s *Session) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.triggerLocked()
	s.publishStateLocked()
}

// Close stops the debouncers, cancels in-flight work and waits for it.
// Nothing is published after Close returns.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.search.Stop()
	s.filters.Stop()
	s.cancel()
	s.fetch.Close()
	s.wg.Wait()
}

// Dispatch applies an inbound action.
func (s *Session) Dispatch(a Action) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if s.view == query.ViewProduccion && pedidosOnly(a) {
		s.alertLocked(Alert{Kind: AlertInput, Message: ErrActionNotInView.Error()})
		return
	}

	switch a := a.(type) {
	case SetSearch:
		s.rawSearch = a.Text
		s.search.Set(a.Text)

	case SetDateFrom, SetDateTo, ToggleStatus, SetStatuses, ClearFilters:
		next, err := ReduceFilters(s.rawFilters, a)
		if err != nil {
			s.alertLocked(Alert{Kind: AlertInput, Message: err.Error()})
			return
		}
		s.rawFilters = next
		s.filters.Set(cloneFilters(next))

	case ToggleSort:
		s.sort = s.sort.Toggle()
		s.triggerLocked()

	case Refresh:
		s.triggerLocked()

	case OpenContextMenu:
		s.editMenu.Close()
		s.menu.Open(a.X, a.Y, a.PedidoID)

	case OpenEditMenu:
		if s.editor.Phase != EditEditing {
			return
		}
		s.menu.Close()
		s.editMenu.Open(a.X, a.Y)

	case CloseMenus:
		s.menu.Close()
		s.editMenu.Close()

	case StartEdit:
		s.startEditLocked(a.PedidoID)

	case ChangeField:
		if err := s.editor.Change(a.Name, a.Value); err != nil {
			s.alertLocked(Alert{Kind: AlertInput, Message: err.Error()})
			return
		}

	case CancelEdit:
		s.editMenu.Close()
		if !s.editor.Cancel() {
			return
		}

	case SaveEdit:
		s.editMenu.Close()
		s.saveLocked()

	case KeyDown:
		if s.editor.Phase != EditEditing {
			return
		}
		switch {
		case a.Key == "Escape":
			s.editMenu.Close()
			s.editor.Cancel()
		case a.Key == "Enter" && (a.Ctrl || a.Meta):
			s.editMenu.Close()
			s.saveLocked()
		default:
			return
		}

	case DeletePedido:
		s.menu.Close()
		if a.Confirmed {
			id := a.PedidoID
			s.mutateLocked(id, "Error al eliminar el pedido", func(ctx context.Context) error {
				return s.pedidos.Delete(ctx, id, true)
			})
		}

	case SetEstado:
		id, field, value := a.PedidoID, a.Field, a.Value
		s.mutateLocked(id, "Error al actualizar el estado", func(ctx context.Context) error {
			return s.pedidos.SetEstado(ctx, id, field, value)
		})

	case SetVectorizacion:
		id, value := a.PedidoID, a.Value
		s.mutateLocked(id, "Error al actualizar la vectorización", func(ctx context.Context) error {
			return s.pedidos.SetVectorizacion(ctx, id, value)
		})

	default:
		s.alertLocked(Alert{Kind: AlertInput, Message: ErrUnknownAction.Error()})
		return
	}

	s.publishStateLocked()
}

// HandleChange reacts to a committed mutation made anywhere.
func (s *Session) HandleChange(ev service.ChangeEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if ev.Action == service.ChangeDeleted && s.editor.Editing(ev.PedidoID) && s.editor.Phase == EditEditing {
		s.editor.Cancel()
		s.editMenu.Close()
		s.alertLocked(Alert{Kind: AlertMutation, Message: "El pedido fue eliminado", PedidoID: ev.PedidoID})
	}
	s.triggerLocked()
	s.publishStateLocked()
}

// Snapshot returns the current state without publishing it.
func (s *Session) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

// --- debounced settles and fetch completion ---

func (s *Session) settleSearch(term string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if term != s.appliedSearch {
		s.appliedSearch = term
		s.triggerLocked()
	}
	s.publishStateLocked()
}

func (s *Session) settleFilters(f query.Filters) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if !equalFilters(f, s.appliedFilters) {
		s.appliedFilters = f
		s.triggerLocked()
	}
	s.publishStateLocked()
}

func (s *Session) settleFetch(st FetchState[[]database.PedidoRow]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || st.Generation != s.fetch.State().Generation {
		return
	}
	if st.Phase == PhaseFailure {
		if !errors.Is(st.Err, context.Canceled) {
			s.logger.Warn("fetch pedidos failed", zap.Error(st.Err))
		}
	} else {
		s.resolveURLsLocked(st.Result)
	}
	s.publishStateLocked()
}

func (s *Session) triggerLocked() {
	s.fetch.Trigger(query.Request{
		View:    s.view,
		Sort:    s.sort,
		Search:  s.appliedSearch,
		Filters: cloneFilters(s.appliedFilters),
	})
}

// --- editor and mutations ---

func (s *Session) startEditLocked(id int64) {
	row, ok := s.rowLocked(id)
	if !ok {
		s.alertLocked(Alert{Kind: AlertInput, Message: "El pedido no está en la lista", PedidoID: id})
		return
	}
	if err := s.editor.Start(row, s.pedidos.Location()); err != nil {
		s.alertLocked(Alert{Kind: AlertInput, Message: err.Error(), PedidoID: id})
		return
	}
	s.menu.Close()
}

func (s *Session) saveLocked() {
	id, form, err := s.editor.BeginSave()
	if err != nil {
		s.alertLocked(Alert{Kind: AlertInput, Message: err.Error()})
		return
	}
	s.goLocked(func(ctx context.Context) {
		err := s.pedidos.SaveEdit(ctx, id, form)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		s.editor.Finish(err)
		if err != nil {
			s.logger.Warn("save edit failed", zap.Int64("id_pedido", id), zap.Error(err))
			s.alertLocked(Alert{Kind: AlertMutation, Message: saveMessage(err), PedidoID: id})
		} else {
			s.triggerLocked()
		}
		s.publishStateLocked()
	})
}

func saveMessage(err error) string {
	switch {
	case errors.Is(err, service.ErrInvalidForm):
		return err.Error()
	case errors.Is(err, service.ErrClienteUpdate) && errors.Is(err, service.ErrPedidoUpdate):
		return "Error al actualizar los datos del cliente y del pedido"
	case errors.Is(err, service.ErrClienteUpdate):
		return "Error al actualizar los datos del cliente"
	case errors.Is(err, service.ErrPedidoUpdate):
		return "Error al actualizar los datos del pedido"
	}
	return "Error al editar el pedido"
}

// mutateLocked runs a single-row mutation off the session lock and refreshes
// the list on success.
func (s *Session) mutateLocked(id int64, failMsg string, fn func(ctx context.Context) error) {
	s.goLocked(func(ctx context.Context) {
		err := fn(ctx)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.closed {
			return
		}
		if err != nil {
			s.logger.Warn("mutation failed", zap.Int64("id_pedido", id), zap.Error(err))
			s.alertLocked(Alert{Kind: AlertMutation, Message: failMsg, PedidoID: id})
			return
		}
		s.triggerLocked()
		s.publishStateLocked()
	})
}

func (s *Session) goLocked(fn func(ctx context.Context)) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		fn(s.ctx)
	}()
}

// --- signed URLs ---

func (s *Session) resolveURLsLocked(rows []database.PedidoRow) {
	now := s.now()
	shown := make(map[string]bool)
	var todo []string
	for _, r := range rows {
		for _, f := range enum.FileFields {
			ref := service.FileRef(r, f)
			if ref == "" || shown[ref] {
				continue
			}
			shown[ref] = true
			if _, ok := s.urls.get(ref, now); ok || s.urls.pending[ref] {
				continue
			}
			s.urls.pending[ref] = true
			todo = append(todo, ref)
		}
	}
	s.urls.retain(shown)
	if len(todo) == 0 || s.files == nil {
		return
	}

	ttl := s.files.TTL()
	s.goLocked(func(ctx context.Context) {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(maxURLResolvers)
		for _, ref := range todo {
			g.Go(func() error {
				u, err := s.files.SignedURL(gctx, ref)

				s.mu.Lock()
				defer s.mu.Unlock()
				delete(s.urls.pending, ref)
				if err != nil {
					s.logger.Warn("signed url failed", zap.String("ref", ref), zap.Error(err))
					return nil
				}
				s.urls.put(ref, u, s.now().Add(ttl))
				return nil
			})
		}
		_ = g.Wait()

		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.closed {
			s.publishStateLocked()
		}
	})
}

// --- snapshots ---

func (s *Session) rowLocked(id int64) (database.PedidoRow, bool) {
	st := s.fetch.State()
	for _, r := range st.Result {
		if r.IDPedido == id {
			return r, true
		}
	}
	return database.PedidoRow{}, false
}

func (s *Session) stateLocked() State {
	fs := s.fetch.State()
	st := State{
		Version:        s.version,
		SessionID:      s.id,
		View:           s.view,
		Sort:           s.sort,
		Search:         s.rawSearch,
		AppliedSearch:  s.appliedSearch,
		SearchPending:  s.search.Pending(),
		Filters:        cloneFilters(s.rawFilters),
		AppliedFilters: cloneFilters(s.appliedFilters),
		FiltersPending: s.filters.Pending(),
		FiltersActive:  s.rawFilters.Active(),
		Phase:          fs.Phase,
		Editor:         s.editor,
		ContextMenu:    s.menu,
		EditMenu:       s.editMenu,
	}
	if s.editor.Form != nil {
		form := *s.editor.Form
		st.Editor.Form = &form
	}
	if fs.Phase == PhaseFailure {
		st.Error = fs.Err.Error()
		return st
	}

	now := s.now()
	st.Rows = service.NewPedidoViewsFor(fs.Result, s.pedidos.Location(), s.view)
	for i := range st.Rows {
		row := &st.Rows[i]
		for j := range row.Archivos {
			a := &row.Archivos[j]
			if a.URL != "" {
				a.SignedURL, _ = s.urls.get(a.URL, now)
			}
			if s.files != nil {
				a.Uploading = s.files.Uploading(row.IDPedido, a.Field)
			}
		}
	}
	return st
}

func (s *Session) publishStateLocked() {
	s.version++
	s.publish(Message{Type: MsgState, Payload: s.stateLocked()})
}

func (s *Session) alertLocked(a Alert) {
	s.publish(Message{Type: MsgAlert, Payload: a})
}
