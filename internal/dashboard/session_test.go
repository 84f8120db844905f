package dashboard

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/goleak"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/service"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- fakes ---

type fakePedidos struct {
	mu       sync.Mutex
	rows     []database.PedidoRow
	listErr  error
	requests []query.Request
	saves    []service.EditForm
	saveErr  error
	deletes  []int64
	estados  []string
}

func (f *fakePedidos) List(ctx context.Context, req query.Request) ([]database.PedidoRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]database.PedidoRow(nil), f.rows...), nil
}

func (f *fakePedidos) SaveEdit(ctx context.Context, id int64, form service.EditForm) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saves = append(f.saves, form)
	return f.saveErr
}

func (f *fakePedidos) Delete(ctx context.Context, id int64, confirmed bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakePedidos) SetEstado(ctx context.Context, id int64, field enum.StatusField, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.estados = append(f.estados, string(field)+"="+value)
	return nil
}

func (f *fakePedidos) SetVectorizacion(ctx context.Context, id int64, value string) error {
	return nil
}

func (f *fakePedidos) Location() *time.Location { return time.UTC }

func (f *fakePedidos) listCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func (f *fakePedidos) lastRequest() query.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakePedidos) saveCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.saves)
}

func (f *fakePedidos) set(fn func(f *fakePedidos)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type fakeFiles struct {
	mu    sync.Mutex
	calls map[string]int
	fail  bool
}

func (f *fakeFiles) SignedURL(ctx context.Context, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = make(map[string]int)
	}
	f.calls[ref]++
	if f.fail {
		return "", errors.New("storage down")
	}
	return "signed:" + ref, nil
}

func (f *fakeFiles) TTL() time.Duration { return time.Minute }

func (f *fakeFiles) Uploading(id int64, field enum.FileField) bool { return false }

func (f *fakeFiles) count(ref string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[ref]
}

type recorder struct {
	mu   sync.Mutex
	msgs []Message
}

func (r *recorder) publish(m Message) {
	r.mu.Lock()
	r.msgs = append(r.msgs, m)
	r.mu.Unlock()
}

func (r *recorder) lastState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.msgs) - 1; i >= 0; i-- {
		if st, ok := r.msgs[i].Payload.(State); ok {
			return st
		}
	}
	return State{}
}

func (r *recorder) alerts() []Alert {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Alert
	for _, m := range r.msgs {
		if a, ok := m.Payload.(Alert); ok {
			out = append(out, a)
		}
	}
	return out
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.msgs)
}

func newTestSession(t *testing.T, cfg Config, p *fakePedidos, files Files) (*Session, *recorder) {
	t.Helper()
	rec := &recorder{}
	s, err := NewSession(cfg, p, files, rec.publish, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	s.Start()
	return s, rec
}

func fastConfig() Config {
	return Config{View: query.ViewPedidos, SearchDelay: 40 * time.Millisecond, FilterDelay: 20 * time.Millisecond}
}

// --- tests ---

func TestSession_InitialFetchIsUnfiltered(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(1), testRow(2)}}
	_, rec := newTestSession(t, fastConfig(), p, nil)

	waitFor(t, "initial rows", func() bool { return len(rec.lastState().Rows) == 2 })
	req := p.lastRequest()
	if req.Search != "" || req.Filters.Active() || req.Sort != query.SortDesc {
		t.Errorf("initial request = %+v", req)
	}
	if rec.lastState().Phase != PhaseSuccess {
		t.Errorf("phase = %s", rec.lastState().Phase)
	}
}

func TestSession_SearchDebounce500ms(t *testing.T) {
	p := &fakePedidos{}
	s, _ := newTestSession(t, Config{View: query.ViewPedidos}, p, nil)
	waitFor(t, "initial fetch", func() bool { return p.listCalls() == 1 })

	start := time.Now()
	for _, text := range []string{"a", "an", "ana"} {
		s.Dispatch(SetSearch{Text: text})
		time.Sleep(100 * time.Millisecond)
	}

	// Last keystroke at ~200ms; nothing may fire before ~700ms.
	time.Sleep(time.Until(start.Add(600 * time.Millisecond)))
	if got := p.listCalls(); got != 1 {
		t.Fatalf("fetches before quiescence = %d, want 1", got)
	}
	if st := s.Snapshot(); st.Search != "ana" || st.AppliedSearch != "" || !st.SearchPending {
		t.Errorf("pending snapshot = %+v", st)
	}

	waitFor(t, "debounced fetch", func() bool { return p.listCalls() == 2 })
	if time.Since(start) < 690*time.Millisecond {
		t.Errorf("fetch fired after %v, before 500ms of quiescence", time.Since(start))
	}
	if req := p.lastRequest(); req.Search != "ana" {
		t.Errorf("search = %q, want coalesced %q", req.Search, "ana")
	}
	time.Sleep(100 * time.Millisecond)
	if got := p.listCalls(); got != 2 {
		t.Errorf("total fetches = %d, want 2", got)
	}
}

func TestSession_FilterDebounce300ms(t *testing.T) {
	p := &fakePedidos{}
	s, _ := newTestSession(t, Config{View: query.ViewPedidos}, p, nil)
	waitFor(t, "initial fetch", func() bool { return p.listCalls() == 1 })

	start := time.Now()
	s.Dispatch(ToggleStatus{Field: enum.StatusFabricacion, Value: enum.FabricacionHecho})
	s.Dispatch(ToggleStatus{Field: enum.StatusFabricacion, Value: enum.FabricacionRehacer})

	time.Sleep(200 * time.Millisecond)
	if got := p.listCalls(); got != 1 {
		t.Fatalf("fetches at 200ms = %d, want 1", got)
	}
	waitFor(t, "debounced filter fetch", func() bool { return p.listCalls() == 2 })
	if time.Since(start) < 290*time.Millisecond {
		t.Errorf("filter fetch fired after %v", time.Since(start))
	}
	got := p.lastRequest().Filters.EstadoFabricacion
	if len(got) != 2 {
		t.Errorf("applied filters = %v", got)
	}
}

func TestSession_FilterBackToAppliedStateDoesNotFetch(t *testing.T) {
	p := &fakePedidos{}
	s, _ := newTestSession(t, fastConfig(), p, nil)
	waitFor(t, "initial fetch", func() bool { return p.listCalls() == 1 })

	s.Dispatch(ToggleStatus{Field: enum.StatusVenta, Value: enum.VentaFoto})
	s.Dispatch(ToggleStatus{Field: enum.StatusVenta, Value: enum.VentaFoto})
	time.Sleep(80 * time.Millisecond)
	if got := p.listCalls(); got != 1 {
		t.Errorf("fetches = %d, want 1", got)
	}
}

func TestSession_SortTogglesImmediately(t *testing.T) {
	p := &fakePedidos{}
	s, _ := newTestSession(t, fastConfig(), p, nil)
	waitFor(t, "initial fetch", func() bool { return p.listCalls() == 1 })

	s.Dispatch(ToggleSort{})
	waitFor(t, "sorted fetch", func() bool { return p.listCalls() == 2 })
	if p.lastRequest().Sort != query.SortAsc {
		t.Errorf("sort = %s", p.lastRequest().Sort)
	}
}

func TestSession_EscapeCancelsWithoutRemoteCall(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(7)}}
	s, rec := newTestSession(t, fastConfig(), p, nil)
	waitFor(t, "rows", func() bool { return len(rec.lastState().Rows) == 1 })

	s.Dispatch(OpenContextMenu{X: 10, Y: 20, PedidoID: 7})
	s.Dispatch(StartEdit{PedidoID: 7})
	st := s.Snapshot()
	if st.Editor.Phase != EditEditing || st.ContextMenu.Visible {
		t.Fatalf("after start = %+v / %+v", st.Editor, st.ContextMenu)
	}
	s.Dispatch(ChangeField{Name: "disenio", Value: "otro"})
	s.Dispatch(KeyDown{Key: "Escape"})

	if st := s.Snapshot(); st.Editor.Phase != EditViewing || st.Editor.Form != nil {
		t.Errorf("after escape = %+v", st.Editor)
	}
	time.Sleep(20 * time.Millisecond)
	if p.saveCalls() != 0 {
		t.Errorf("save calls = %d, want 0", p.saveCalls())
	}
}

func TestSession_CtrlEnterSavesAndRefreshes(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(7)}}
	s, rec := newTestSession(t, fastConfig(), p, nil)
	waitFor(t, "rows", func() bool { return len(rec.lastState().Rows) == 1 })

	s.Dispatch(StartEdit{PedidoID: 7})
	s.Dispatch(ChangeField{Name: "valor_senia", Value: ""})
	s.Dispatch(KeyDown{Key: "Enter", Ctrl: true})

	waitFor(t, "save", func() bool { return p.saveCalls() == 1 })
	waitFor(t, "viewing", func() bool { return s.Snapshot().Editor.Phase == EditViewing })
	waitFor(t, "refresh", func() bool { return p.listCalls() == 2 })
}

func TestSession_SaveFailureStaysEditing(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(7)}, saveErr: service.ErrPedidoUpdate}
	s, rec := newTestSession(t, fastConfig(), p, nil)
	waitFor(t, "rows", func() bool { return len(rec.lastState().Rows) == 1 })

	s.Dispatch(StartEdit{PedidoID: 7})
	s.Dispatch(SaveEdit{})
	waitFor(t, "alert", func() bool { return len(rec.alerts()) == 1 })

	a := rec.alerts()[0]
	if a.Kind != AlertMutation || a.Message != "Error al actualizar los datos del pedido" {
		t.Errorf("alert = %+v", a)
	}
	st := s.Snapshot()
	if st.Editor.Phase != EditEditing || st.Editor.PedidoID != 7 {
		t.Errorf("editor = %+v", st.Editor)
	}
	if p.listCalls() != 1 {
		t.Errorf("failed save must not refresh, fetches = %d", p.listCalls())
	}
}

func TestSession_FetchFailureShowsErrorInPlaceOfRows(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(1)}}
	s, rec := newTestSession(t, fastConfig(), p, nil)
	waitFor(t, "rows", func() bool { return len(rec.lastState().Rows) == 1 })

	p.set(func(f *fakePedidos) { f.listErr = errors.New("relation does not exist") })
	s.Dispatch(Refresh{})
	waitFor(t, "failure", func() bool { return rec.lastState().Phase == PhaseFailure })

	st := rec.lastState()
	if st.Error != "relation does not exist" || st.Rows != nil {
		t.Errorf("failure snapshot = %+v", st)
	}

	p.set(func(f *fakePedidos) { f.listErr = nil })
	s.Dispatch(Refresh{})
	waitFor(t, "recovery", func() bool { return rec.lastState().Phase == PhaseSuccess })
	if len(rec.lastState().Rows) != 1 {
		t.Errorf("rows after recovery = %d", len(rec.lastState().Rows))
	}
}

func TestSession_SignedURLsAreCachedPerPath(t *testing.T) {
	ref := "https://x/storage/v1/object/public/archivos-ventas/foto_sello_1_1.png"
	row := testRow(1)
	row.FotoSello = pgtype.Text{String: ref, Valid: true}
	p := &fakePedidos{rows: []database.PedidoRow{row}}
	files := &fakeFiles{}
	s, rec := newTestSession(t, fastConfig(), p, files)

	signedOf := func() string {
		rows := rec.lastState().Rows
		if len(rows) == 0 {
			return ""
		}
		for _, a := range rows[0].Archivos {
			if a.Field == enum.FileFotoSello {
				return a.SignedURL
			}
		}
		return ""
	}
	waitFor(t, "signed url", func() bool { return signedOf() == "signed:"+ref })

	s.Dispatch(Refresh{})
	waitFor(t, "second fetch", func() bool { return p.listCalls() == 2 })
	time.Sleep(30 * time.Millisecond)
	if got := files.count(ref); got != 1 {
		t.Errorf("SignedURL calls = %d, want 1 for an unchanged path", got)
	}
	if st := s.Snapshot(); !st.Rows[0].Archivos[2].IsImage {
		t.Errorf("photo should be flagged as image: %+v", st.Rows[0].Archivos[2])
	}
}

func TestSession_SignedURLFailureLeavesCellWithoutLink(t *testing.T) {
	row := testRow(1)
	row.ArchivoBase = pgtype.Text{String: "archivo_base_1_1.pdf", Valid: true}
	p := &fakePedidos{rows: []database.PedidoRow{row}}
	files := &fakeFiles{fail: true}
	_, rec := newTestSession(t, fastConfig(), p, files)

	waitFor(t, "resolution attempt", func() bool { return files.count("archivo_base_1_1.pdf") == 1 })
	time.Sleep(20 * time.Millisecond)
	st := rec.lastState()
	if len(st.Rows) != 1 || st.Rows[0].Archivos[0].SignedURL != "" || st.Rows[0].Archivos[0].URL == "" {
		t.Errorf("cell = %+v", st.Rows)
	}
	if st.Phase != PhaseSuccess {
		t.Errorf("signing failure must not fail the list, phase = %s", st.Phase)
	}
}

func TestSession_DeleteRequiresConfirmation(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(4)}}
	s, _ := newTestSession(t, fastConfig(), p, nil)

	s.Dispatch(OpenContextMenu{PedidoID: 4})
	s.Dispatch(DeletePedido{PedidoID: 4})
	if st := s.Snapshot(); st.ContextMenu.Visible {
		t.Error("menu should close after the action")
	}
	time.Sleep(20 * time.Millisecond)
	p.mu.Lock()
	n := len(p.deletes)
	p.mu.Unlock()
	if n != 0 {
		t.Fatalf("deletes = %d without confirmation", n)
	}

	s.Dispatch(DeletePedido{PedidoID: 4, Confirmed: true})
	waitFor(t, "delete", func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.deletes) == 1
	})
}

func TestSession_SetEstado(t *testing.T) {
	p := &fakePedidos{}
	cfg := fastConfig()
	cfg.View = query.ViewProduccion
	s, _ := newTestSession(t, cfg, p, nil)

	s.Dispatch(SetEstado{PedidoID: 2, Field: enum.StatusFabricacion, Value: enum.FabricacionHecho})
	waitFor(t, "estado update", func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return len(p.estados) == 1 && p.estados[0] == "estado_fabricacion=Hecho"
	})
}

func TestSession_ProduccionRowsOmitCliente(t *testing.T) {
	row := testRow(6)
	row.Cliente = &database.Cliente{IDCliente: 2, TelefonoCliente: pgtype.Text{String: "1155550101", Valid: true}}

	for _, view := range []query.View{query.ViewPedidos, query.ViewProduccion} {
		t.Run(string(view), func(t *testing.T) {
			p := &fakePedidos{rows: []database.PedidoRow{row}}
			cfg := fastConfig()
			cfg.View = view
			_, rec := newTestSession(t, cfg, p, nil)

			waitFor(t, "rows", func() bool { return len(rec.lastState().Rows) == 1 })
			got := rec.lastState().Rows[0].Cliente
			if want := view == query.ViewPedidos; (got != nil) != want {
				t.Errorf("cliente present = %v, want %v", got != nil, want)
			}
		})
	}
}

func TestSession_ProduccionRejectsEditAndDelete(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(8)}}
	cfg := fastConfig()
	cfg.View = query.ViewProduccion
	s, rec := newTestSession(t, cfg, p, nil)
	waitFor(t, "rows", func() bool { return len(rec.lastState().Rows) == 1 })

	s.Dispatch(StartEdit{PedidoID: 8})
	s.Dispatch(DeletePedido{PedidoID: 8, Confirmed: true})

	if st := s.Snapshot(); st.Editor.Phase != EditViewing || st.Editor.Form != nil {
		t.Errorf("editor = %+v", st.Editor)
	}
	if got := len(rec.alerts()); got != 2 {
		t.Fatalf("alerts = %d, want 2", got)
	}
	if msg := rec.alerts()[0].Message; msg != ErrActionNotInView.Error() {
		t.Errorf("alert = %q", msg)
	}
	time.Sleep(20 * time.Millisecond)
	p.mu.Lock()
	n := len(p.deletes)
	p.mu.Unlock()
	if n != 0 {
		t.Errorf("deletes = %d on the production page", n)
	}
}

func TestSession_HandleChangeRefreshes(t *testing.T) {
	p := &fakePedidos{rows: []database.PedidoRow{testRow(9)}}
	s, rec := newTestSession(t, fastConfig(), p, nil)
	waitFor(t, "rows", func() bool { return len(rec.lastState().Rows) == 1 })

	s.Dispatch(StartEdit{PedidoID: 9})
	s.HandleChange(service.ChangeEvent{Action: service.ChangeDeleted, PedidoID: 9})

	waitFor(t, "refresh", func() bool { return p.listCalls() == 2 })
	if st := s.Snapshot(); st.Editor.Phase != EditViewing {
		t.Errorf("editor on deleted row = %+v", st.Editor)
	}
	if len(rec.alerts()) != 1 {
		t.Errorf("alerts = %+v", rec.alerts())
	}
}

func TestSession_NothingPublishedAfterClose(t *testing.T) {
	p := &fakePedidos{}
	rec := &recorder{}
	s, err := NewSession(fastConfig(), p, nil, rec.publish, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	s.Start()
	s.Dispatch(SetSearch{Text: "pendiente"})
	s.Close()

	n := rec.len()
	time.Sleep(80 * time.Millisecond)
	s.Dispatch(Refresh{})
	if rec.len() != n {
		t.Errorf("published %d messages after close", rec.len()-n)
	}
}

func TestNewSession_InvalidView(t *testing.T) {
	if _, err := NewSession(Config{View: "ventas"}, &fakePedidos{}, nil, nil, nil); !errors.Is(err, query.ErrInvalidView) {
		t.Errorf("err = %v, want ErrInvalidView", err)
	}
}
