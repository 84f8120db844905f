package dashboard

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
)

var ErrInvalidFilter = errors.New("invalid filter")

// ReduceFilters applies a filter action and returns the new state. The input
// is never modified. Non-filter actions return f unchanged.
func ReduceFilters(f query.Filters, a Action) (query.Filters, error) {
	next := cloneFilters(f)
	switch a := a.(type) {
	case SetDateFrom:
		if err := validDate(a.Date); err != nil {
			return f, err
		}
		next.FechaDesde = a.Date
	case SetDateTo:
		if err := validDate(a.Date); err != nil {
			return f, err
		}
		next.FechaHasta = a.Date
	case ToggleStatus:
		set, err := statusSet(&next, a.Field)
		if err != nil {
			return f, err
		}
		if a.Value == "" {
			return f, fmt.Errorf("%w: empty %s value", ErrInvalidFilter, a.Field)
		}
		if i := slices.Index(*set, a.Value); i >= 0 {
			*set = slices.Delete(*set, i, i+1)
		} else {
			*set = append(*set, a.Value)
		}
	case SetStatuses:
		set, err := statusSet(&next, a.Field)
		if err != nil {
			return f, err
		}
		vals := make([]string, 0, len(a.Values))
		for _, v := range a.Values {
			if v != "" && !slices.Contains(vals, v) {
				vals = append(vals, v)
			}
		}
		*set = vals
	case ClearFilters:
		next = query.Filters{}
	default:
		return f, nil
	}
	return next, nil
}

func validDate(s string) error {
	if s == "" {
		return nil
	}
	if _, err := time.Parse(query.DateLayout, s); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidFilter, query.ErrInvalidDate)
	}
	return nil
}

func statusSet(f *query.Filters, field enum.StatusField) (*[]string, error) {
	switch field {
	case enum.StatusFabricacion:
		return &f.EstadoFabricacion, nil
	case enum.StatusVenta:
		return &f.EstadoVenta, nil
	case enum.StatusEnvio:
		return &f.EstadoEnvio, nil
	}
	return nil, fmt.Errorf("%w: field %q", ErrInvalidFilter, field)
}

func cloneFilters(f query.Filters) query.Filters {
	f.EstadoFabricacion = slices.Clone(f.EstadoFabricacion)
	f.EstadoVenta = slices.Clone(f.EstadoVenta)
	f.EstadoEnvio = slices.Clone(f.EstadoEnvio)
	return f
}

// equalFilters compares two states; the order of selected values matters
// only for display, not for equality.
func equalFilters(a, b query.Filters) bool {
	return a.FechaDesde == b.FechaDesde && a.FechaHasta == b.FechaHasta &&
		sameSet(a.EstadoFabricacion, b.EstadoFabricacion) &&
		sameSet(a.EstadoVenta, b.EstadoVenta) &&
		sameSet(a.EstadoEnvio, b.EstadoEnvio)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	return true
}
