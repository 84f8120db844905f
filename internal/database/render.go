package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sellos-taller/dashboard/internal/query"
)

var ErrUnsupportedClause = errors.New("unsupported clause")

// columns maps query fields to qualified column names. Nothing else is ever
// interpolated into the statement.
var columns = map[query.Field]string{
	query.FieldIDPedido:          "p.id_pedido",
	query.FieldFechaCompra:       "p.fecha_compra",
	query.FieldDisenio:           "p.disenio",
	query.FieldEstadoFabricacion: "p.estado_fabricacion",
	query.FieldEstadoVenta:       "p.estado_venta",
	query.FieldEstadoEnvio:       "p.estado_envio",
}

// RenderSpec renders the WHERE and ORDER BY tail of a pedidos select. The
// returned args are numbered from $1.
func RenderSpec(spec query.Spec) (string, []any, error) {
	var (
		conds []string
		args  []any
	)
	for _, c := range spec.Clauses {
		col, ok := columns[c.Field]
		if !ok {
			return "", nil, fmt.Errorf("%w: field %q", ErrUnsupportedClause, c.Field)
		}
		if len(c.Values) == 0 {
			return "", nil, fmt.Errorf("%w: %s %s without values", ErrUnsupportedClause, c.Field, c.Op)
		}
		switch c.Op {
		case query.OpIn:
			arr, err := arrayArg(c)
			if err != nil {
				return "", nil, err
			}
			args = append(args, arr)
			conds = append(conds, fmt.Sprintf("%s = ANY($%d)", col, len(args)))
		case query.OpGTE, query.OpLTE:
			t, ok := c.Values[0].(time.Time)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s bound is %T", ErrUnsupportedClause, c.Field, c.Values[0])
			}
			op := ">="
			if c.Op == query.OpLTE {
				op = "<="
			}
			args = append(args, t)
			conds = append(conds, fmt.Sprintf("%s %s $%d", col, op, len(args)))
		case query.OpILike:
			term, ok := c.Values[0].(string)
			if !ok {
				return "", nil, fmt.Errorf("%w: %s pattern is %T", ErrUnsupportedClause, c.Field, c.Values[0])
			}
			args = append(args, "%"+escapeLike(term)+"%")
			conds = append(conds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
		default:
			return "", nil, fmt.Errorf("%w: op %q", ErrUnsupportedClause, c.Op)
		}
	}

	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	dir := "DESC"
	if spec.Sort == query.SortAsc {
		dir = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY p.fecha_compra %s, p.id_pedido %s", dir, dir)
	return b.String(), args, nil
}

// arrayArg turns IN values into a typed slice pgx can encode as an array.
func arrayArg(c query.Clause) (any, error) {
	if c.Field == query.FieldIDPedido {
		ids := make([]int64, 0, len(c.Values))
		for _, v := range c.Values {
			id, ok := v.(int64)
			if !ok {
				return nil, fmt.Errorf("%w: id %v is %T", ErrUnsupportedClause, v, v)
			}
			ids = append(ids, id)
		}
		return ids, nil
	}
	vals := make([]string, 0, len(c.Values))
	for _, v := range c.Values {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("%w: %s value %v is %T", ErrUnsupportedClause, c.Field, v, v)
		}
		vals = append(vals, s)
	}
	return vals, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
