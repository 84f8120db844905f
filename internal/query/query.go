// Package query composes the read query behind the order lists.
//
// A Request (view, sort, search text, filters) is turned into a Spec: an
// ordered list of predicate clauses plus the sort direction on purchase date.
// The database package renders a Spec to SQL; Apply evaluates it in memory.
package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/sellos-taller/dashboard/internal/enum"
)

// NoMatchID is an identifier no pedido can have. A search that resolves to no
// ids restricts the list to it so the result is empty instead of unfiltered.
const NoMatchID int64 = -1

var (
	ErrInvalidView = errors.New("invalid view")
	ErrInvalidSort = errors.New("invalid sort")
)

// View selects which list page the query serves.
type View string

const (
	ViewPedidos    View = "pedidos"
	ViewProduccion View = "produccion"
)

// ParseView maps an empty string to ViewPedidos.
func ParseView(s string) (View, error) {
	switch View(s) {
	case "", ViewPedidos:
		return ViewPedidos, nil
	case ViewProduccion:
		return ViewProduccion, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidView, s)
}

// Sort is the direction applied to fecha_compra.
type Sort string

const (
	SortAsc  Sort = "asc"
	SortDesc Sort = "desc"
)

// ParseSort maps an empty string to SortDesc.
func ParseSort(s string) (Sort, error) {
	switch Sort(strings.ToLower(s)) {
	case "", SortDesc:
		return SortDesc, nil
	case SortAsc:
		return SortAsc, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSort, s)
}

// Toggle flips the direction.
func (s Sort) Toggle() Sort {
	if s == SortAsc {
		return SortDesc
	}
	return SortAsc
}

// Field is a filterable column. Only these names ever reach SQL.
type Field string

const (
	FieldIDPedido          Field = "id_pedido"
	FieldFechaCompra       Field = "fecha_compra"
	FieldDisenio           Field = "disenio"
	FieldEstadoFabricacion Field = Field(enum.StatusFabricacion)
	FieldEstadoVenta       Field = Field(enum.StatusVenta)
	FieldEstadoEnvio       Field = Field(enum.StatusEnvio)
)

// Op is a predicate operator.
type Op string

const (
	OpIn    Op = "in"
	OpGTE   Op = "gte"
	OpLTE   Op = "lte"
	OpILike Op = "ilike"
)

// Clause is one predicate. OpIn uses all Values; the other ops use Values[0].
type Clause struct {
	Field  Field
	Op     Op
	Values []any
}

// Spec is a composed read query.
type Spec struct {
	View    View
	Clauses []Clause
	Sort    Sort
}

// Filters holds the structured filter selections. Empty dates and empty sets
// mean no constraint on that dimension.
type Filters struct {
	FechaDesde        string   `json:"fecha_compra_gte"`
	FechaHasta        string   `json:"fecha_compra_lte"`
	EstadoFabricacion []string `json:"estado_fabricacion"`
	EstadoVenta       []string `json:"estado_venta"`
	EstadoEnvio       []string `json:"estado_envio"`
}

// Statuses returns the selected set for a status column.
func (f Filters) Statuses(field enum.StatusField) []string {
	switch field {
	case enum.StatusFabricacion:
		return f.EstadoFabricacion
	case enum.StatusVenta:
		return f.EstadoVenta
	case enum.StatusEnvio:
		return f.EstadoEnvio
	}
	return nil
}

// Active reports whether any dimension is constrained.
func (f Filters) Active() bool {
	return f.FechaDesde != "" || f.FechaHasta != "" ||
		len(f.EstadoFabricacion) > 0 || len(f.EstadoVenta) > 0 || len(f.EstadoEnvio) > 0
}

// Request is the input of Build.
type Request struct {
	View    View
	Sort    Sort
	Search  string
	Filters Filters
}

// IDResolver looks up the pedidos matching a client search term.
// Satisfied by *database.Queries.
type IDResolver interface {
	SearchPedidoIDs(ctx context.Context, term string) ([]int64, error)
}

// Builder turns requests into specs.
type Builder struct {
	ids IDResolver
	loc *time.Location
}

// NewBuilder creates a Builder. Dates are interpreted in loc.
func NewBuilder(ids IDResolver, loc *time.Location) *Builder {
	if loc == nil {
		loc = time.Local
	}
	return &Builder{ids: ids, loc: loc}
}

// Location returns the zone dates are interpreted in.
func (b *Builder) Location() *time.Location { return b.loc }

// Build composes the spec for req. Errors from the id lookup abort the build.
func (b *Builder) Build(ctx context.Context, req Request) (Spec, error) {
	view, err := ParseView(string(req.View))
	if err != nil {
		return Spec{}, err
	}
	dir, err := ParseSort(string(req.Sort))
	if err != nil {
		return Spec{}, err
	}

	spec := Spec{View: view, Sort: dir}

	if term := strings.TrimSpace(req.Search); term != "" {
		switch view {
		case ViewProduccion:
			spec.Clauses = append(spec.Clauses, Clause{Field: FieldDisenio, Op: OpILike, Values: []any{term}})
		default:
			ids, err := b.ids.SearchPedidoIDs(ctx, term)
			if err != nil {
				return Spec{}, fmt.Errorf("search pedido ids: %w", err)
			}
			if len(ids) == 0 {
				ids = []int64{NoMatchID}
			}
			values := make([]any, len(ids))
			for i, id := range ids {
				values[i] = id
			}
			spec.Clauses = append(spec.Clauses, Clause{Field: FieldIDPedido, Op: OpIn, Values: values})
		}
	}

	f := req.Filters
	if f.FechaDesde != "" {
		from, err := StartOfDay(f.FechaDesde, b.loc)
		if err != nil {
			return Spec{}, err
		}
		spec.Clauses = append(spec.Clauses, Clause{Field: FieldFechaCompra, Op: OpGTE, Values: []any{from}})
	}
	if f.FechaHasta != "" {
		to, err := EndOfDay(f.FechaHasta, b.loc)
		if err != nil {
			return Spec{}, err
		}
		spec.Clauses = append(spec.Clauses, Clause{Field: FieldFechaCompra, Op: OpLTE, Values: []any{to}})
	}

	for _, field := range statusFieldsFor(view) {
		set := f.Statuses(field)
		if len(set) == 0 {
			continue
		}
		values := make([]any, len(set))
		for i, v := range set {
			values[i] = v
		}
		spec.Clauses = append(spec.Clauses, Clause{Field: Field(field), Op: OpIn, Values: values})
	}

	return spec, nil
}

// statusFieldsFor lists the status filters a view honours. The production
// page only filters by fabrication status.
func statusFieldsFor(v View) []enum.StatusField {
	if v == ViewProduccion {
		return []enum.StatusField{enum.StatusFabricacion}
	}
	return enum.StatusFields
}

// --- In-memory evaluation ---

// Record exposes column values for in-memory evaluation. Time columns return
// time.Time, ids int64, text string, and NULL returns nil.
type Record interface {
	Value(f Field) any
}

// Matches reports whether r satisfies every clause.
func (s Spec) Matches(r Record) bool {
	for _, c := range s.Clauses {
		if !c.Matches(r.Value(c.Field)) {
			return false
		}
	}
	return true
}

// Matches reports whether a single column value satisfies the clause.
func (c Clause) Matches(v any) bool {
	if v == nil || len(c.Values) == 0 {
		return false
	}
	switch c.Op {
	case OpIn:
		for _, want := range c.Values {
			if want == v {
				return true
			}
		}
		return false
	case OpGTE, OpLTE:
		got, ok1 := v.(time.Time)
		bound, ok2 := c.Values[0].(time.Time)
		if !ok1 || !ok2 {
			return false
		}
		if c.Op == OpGTE {
			return !got.Before(bound)
		}
		return !got.After(bound)
	case OpILike:
		got, ok1 := v.(string)
		term, ok2 := c.Values[0].(string)
		if !ok1 || !ok2 {
			return false
		}
		return strings.Contains(strings.ToLower(got), strings.ToLower(term))
	}
	return false
}

// Apply filters rows by spec and sorts them by fecha_compra.
func Apply[R Record](spec Spec, rows []R) []R {
	out := make([]R, 0, len(rows))
	for _, r := range rows {
		if spec.Matches(r) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, _ := out[i].Value(FieldFechaCompra).(time.Time)
		b, _ := out[j].Value(FieldFechaCompra).(time.Time)
		if spec.Sort == SortAsc {
			return a.Before(b)
		}
		return a.After(b)
	})
	return out
}
