package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sellos-taller/dashboard/internal/config"
	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
)

// Errors returned by the pedido service.
var (
	ErrNotConfirmed    = errors.New("confirmation required")
	ErrInvalidField    = errors.New("invalid field")
	ErrInvalidValue    = errors.New("invalid value")
	ErrClienteUpdate   = errors.New("cliente update failed")
	ErrPedidoUpdate    = errors.New("pedido update failed")
	ErrInvalidSaveMode = errors.New("invalid save mode")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// PedidoStore defines the DB methods behind the order lists and their edits.
// Satisfied by *database.Queries (and its WithTx variant).
type PedidoStore interface {
	SearchPedidoIDs(ctx context.Context, term string) ([]int64, error)
	ListPedidos(ctx context.Context, spec query.Spec) ([]database.PedidoRow, error)
	GetPedido(ctx context.Context, id int64) (database.PedidoRow, error)
	ListEstadoValues(ctx context.Context, field enum.StatusField) ([]string, error)
	CreateCliente(ctx context.Context, arg database.CreateClienteParams) (int64, error)
	CreatePedido(ctx context.Context, arg database.CreatePedidoParams) (int64, error)
	EditarCliente(ctx context.Context, arg database.EditarClienteParams) error
	EditarPedido(ctx context.Context, arg database.EditarPedidoParams) error
	EliminarPedido(ctx context.Context, id int64) error
	UpdatePedidoFile(ctx context.Context, id int64, field enum.FileField, url pgtype.Text) error
	UpdatePedidoEstado(ctx context.Context, id int64, field enum.StatusField, value pgtype.Text) error
	UpdatePedidoVectorizacion(ctx context.Context, id int64, value pgtype.Text) error
}

// NewPedidoStore creates a PedidoStore from a DBTX (pool or tx).
type NewPedidoStore func(db database.DBTX) PedidoStore

// Change actions carried by ChangeEvent.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
	ChangeDeleted = "deleted"
	ChangeFile    = "file"
)

// ChangeEvent describes a committed mutation on one pedido.
type ChangeEvent struct {
	Action   string    `json:"action"`
	PedidoID int64     `json:"id_pedido"`
	Field    string    `json:"field,omitempty"`
	At       time.Time `json:"at"`
}

// Notifier fans change events out to live dashboards. Satisfied by *ws.Hub.
type Notifier interface {
	NotifyPedidoChanged(ev ChangeEvent)
}

// PedidoService handles reads and edits of pedidos.
type PedidoService struct {
	pool     TxBeginner
	store    PedidoStore
	newStore NewPedidoStore
	builder  *query.Builder
	mode     string
	notifier Notifier
	logger   *zap.Logger
}

// NewPedidoService creates a new PedidoService. store is bound to the pool;
// newStore builds transaction-scoped stores for the atomic save mode.
func NewPedidoService(pool TxBeginner, store PedidoStore, newStore NewPedidoStore, loc *time.Location, mode string, logger *zap.Logger) (*PedidoService, error) {
	switch mode {
	case "":
		mode = config.SaveModeAtomic
	case config.SaveModeAtomic, config.SaveModeConcurrent:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidSaveMode, mode)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PedidoService{
		pool:     pool,
		store:    store,
		newStore: newStore,
		builder:  query.NewBuilder(store, loc),
		mode:     mode,
		logger:   logger,
	}, nil
}

// SetNotifier attaches the change fan-out. Safe to leave unset.
func (s *PedidoService) SetNotifier(n Notifier) { s.notifier = n }

// Location is the zone calendar dates are interpreted in.
func (s *PedidoService) Location() *time.Location { return s.builder.Location() }

// SaveMode reports the configured edit save mode.
func (s *PedidoService) SaveMode() string { return s.mode }

// List composes the query for req and runs it.
func (s *PedidoService) List(ctx context.Context, req query.Request) ([]database.PedidoRow, error) {
	spec, err := s.builder.Build(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.store.ListPedidos(ctx, spec)
}

func (s *PedidoService) Get(ctx context.Context, id int64) (database.PedidoRow, error) {
	return s.store.GetPedido(ctx, id)
}

// FilterOptions lists the selectable values of each status filter.
type FilterOptions struct {
	EstadoFabricacion []string `json:"estado_fabricacion"`
	EstadoVenta       []string `json:"estado_venta"`
	EstadoEnvio       []string `json:"estado_envio"`
	Vectorizacion     []string `json:"vectorizacion"`
}

// ForView keeps only the filters the production page offers.
func (o FilterOptions) ForView(view query.View) FilterOptions {
	if view == query.ViewProduccion {
		o.EstadoVenta = []string{}
		o.EstadoEnvio = []string{}
	}
	return o
}

// Options returns the fixed option sets followed by any other value
// currently stored in each status column.
func (s *PedidoService) Options(ctx context.Context) (FilterOptions, error) {
	out := FilterOptions{Vectorizacion: enum.EstadosVectorizacion}
	dst := map[enum.StatusField]*[]string{
		enum.StatusFabricacion: &out.EstadoFabricacion,
		enum.StatusVenta:       &out.EstadoVenta,
		enum.StatusEnvio:       &out.EstadoEnvio,
	}
	for _, field := range enum.StatusFields {
		inUse, err := s.store.ListEstadoValues(ctx, field)
		if err != nil {
			return FilterOptions{}, fmt.Errorf("list %s values: %w", field, err)
		}
		opts := append([]string(nil), field.Options()...)
		for _, v := range inUse {
			if !field.Allows(v) {
				opts = append(opts, v)
			}
		}
		*dst[field] = opts
	}
	return out, nil
}

// Create inserts a new pedido, and its cliente when any client field is set,
// in one transaction. Returns the new pedido id.
func (s *PedidoService) Create(ctx context.Context, form EditForm) (int64, error) {
	cli, ped, hasCliente, err := form.CreateParams(s.Location())
	if err != nil {
		return 0, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if hasCliente {
		clienteID, err := store.CreateCliente(ctx, cli)
		if err != nil {
			return 0, fmt.Errorf("create cliente: %w", err)
		}
		ped.IDCliente = pgtype.Int8{Int64: clienteID, Valid: true}
	}
	id, err := store.CreatePedido(ctx, ped)
	if err != nil {
		return 0, fmt.Errorf("create pedido: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit tx: %w", err)
	}

	s.notify(ChangeEvent{Action: ChangeCreated, PedidoID: id})
	return id, nil
}

// SaveEdit persists an edit form as the client and pedido procedure calls.
func (s *PedidoService) SaveEdit(ctx context.Context, id int64, form EditForm) error {
	cli, ped, err := form.Params(id, s.Location())
	if err != nil {
		return err
	}
	if s.mode == config.SaveModeConcurrent {
		err = s.saveConcurrent(ctx, cli, ped)
	} else {
		err = s.saveAtomic(ctx, cli, ped)
	}
	if err != nil {
		return err
	}
	s.notify(ChangeEvent{Action: ChangeUpdated, PedidoID: id})
	return nil
}

// saveAtomic runs both calls in one transaction.
func (s *PedidoService) saveAtomic(ctx context.Context, cli database.EditarClienteParams, ped database.EditarPedidoParams) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)
	if err := store.EditarPedido(ctx, ped); err != nil {
		return fmt.Errorf("%w: %w", ErrPedidoUpdate, err)
	}
	if err := store.EditarCliente(ctx, cli); err != nil {
		return fmt.Errorf("%w: %w", ErrClienteUpdate, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

// saveConcurrent issues both calls at once with no shared transaction. One
// side can commit while the other fails; the returned error names each side
// that failed.
func (s *PedidoService) saveConcurrent(ctx context.Context, cli database.EditarClienteParams, ped database.EditarPedidoParams) error {
	var (
		g              errgroup.Group
		cliErr, pedErr error
	)
	g.Go(func() error {
		cliErr = s.store.EditarCliente(ctx, cli)
		return cliErr
	})
	g.Go(func() error {
		pedErr = s.store.EditarPedido(ctx, ped)
		return pedErr
	})
	if g.Wait() == nil {
		return nil
	}

	var errs []error
	if cliErr != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrClienteUpdate, cliErr))
	}
	if pedErr != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrPedidoUpdate, pedErr))
	}
	if len(errs) == 1 {
		s.logger.Warn("split save: one side committed",
			zap.Int64("id_pedido", ped.ID), zap.Bool("cliente_ok", cliErr == nil), zap.Bool("pedido_ok", pedErr == nil))
	}
	return errors.Join(errs...)
}

// Delete removes a pedido. confirmed must be true.
func (s *PedidoService) Delete(ctx context.Context, id int64, confirmed bool) error {
	if !confirmed {
		return ErrNotConfirmed
	}
	if err := s.store.EliminarPedido(ctx, id); err != nil {
		return err
	}
	s.notify(ChangeEvent{Action: ChangeDeleted, PedidoID: id})
	return nil
}

// SetEstado changes one status column and keeps the other two.
func (s *PedidoService) SetEstado(ctx context.Context, id int64, field enum.StatusField, value string) error {
	if !field.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidField, field)
	}
	if !field.Allows(value) {
		return fmt.Errorf("%w: %q for %s", ErrInvalidValue, value, field)
	}
	if err := s.store.UpdatePedidoEstado(ctx, id, field, pgtype.Text{String: value, Valid: true}); err != nil {
		return err
	}
	s.notify(ChangeEvent{Action: ChangeUpdated, PedidoID: id, Field: string(field)})
	return nil
}

func (s *PedidoService) SetVectorizacion(ctx context.Context, id int64, value string) error {
	if !enum.IsVectorizacion(value) {
		return fmt.Errorf("%w: %q for vectorizacion", ErrInvalidValue, value)
	}
	if err := s.store.UpdatePedidoVectorizacion(ctx, id, pgtype.Text{String: value, Valid: true}); err != nil {
		return err
	}
	s.notify(ChangeEvent{Action: ChangeUpdated, PedidoID: id, Field: "vectorizacion"})
	return nil
}

func (s *PedidoService) notify(ev ChangeEvent) {
	if s.notifier == nil {
		return
	}
	ev.At = time.Now()
	s.notifier.NotifyPedidoChanged(ev)
}
