package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
)

const selectPedidoRow = `SELECT p.id_pedido, p.id_cliente, p.fecha_compra, p.disenio, p.medida_pedida,
       p.valor_sello, p.valor_envio, p.valor_senia, p.restante_pagar,
       p.estado_fabricacion, p.estado_venta, p.estado_envio, p.notas,
       p.archivo_base, p.archivo_vector, p.foto_sello, p.numero_seguimiento, p.vectorizacion,
       c.id_cliente, c.nombre_cliente, c.apellido_cliente, c.telefono_cliente, c.medio_contacto
FROM pedidos p
LEFT JOIN clientes c ON c.id_cliente = p.id_cliente`

func scanPedidoRow(row pgx.Row) (PedidoRow, error) {
	var (
		r                                  PedidoRow
		cid                                pgtype.Int8
		nombre, apellido, telefono, contac pgtype.Text
	)
	err := row.Scan(
		&r.IDPedido, &r.IDCliente, &r.FechaCompra, &r.Disenio, &r.MedidaPedida,
		&r.ValorSello, &r.ValorEnvio, &r.ValorSenia, &r.RestantePagar,
		&r.EstadoFabricacion, &r.EstadoVenta, &r.EstadoEnvio, &r.Notas,
		&r.ArchivoBase, &r.ArchivoVector, &r.FotoSello, &r.NumeroSeguimiento, &r.Vectorizacion,
		&cid, &nombre, &apellido, &telefono, &contac,
	)
	if err != nil {
		return PedidoRow{}, err
	}
	if cid.Valid {
		r.Cliente = &Cliente{
			IDCliente:       cid.Int64,
			NombreCliente:   nombre,
			ApellidoCliente: apellido,
			TelefonoCliente: telefono,
			MedioContacto:   contac,
		}
	}
	return r, nil
}

// ListPedidos runs spec against the pedidos table, joined with clientes.
func (q *Queries) ListPedidos(ctx context.Context, spec query.Spec) ([]PedidoRow, error) {
	tail, args, err := RenderSpec(spec)
	if err != nil {
		return nil, err
	}
	rows, err := q.db.Query(ctx, selectPedidoRow+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	items := []PedidoRow{}
	for rows.Next() {
		r, err := scanPedidoRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (q *Queries) GetPedido(ctx context.Context, id int64) (PedidoRow, error) {
	return scanPedidoRow(q.db.QueryRow(ctx, selectPedidoRow+" WHERE p.id_pedido = $1", id))
}

const searchPedidoIDs = `SELECT id_pedido FROM get_pedido_ids_by_client_search($1)`

// SearchPedidoIDs implements query.IDResolver.
func (q *Queries) SearchPedidoIDs(ctx context.Context, term string) ([]int64, error) {
	rows, err := q.db.Query(ctx, searchPedidoIDs, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	ids := []int64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}

// ListEstadoValues returns the distinct non-null values stored in a status column.
func (q *Queries) ListEstadoValues(ctx context.Context, field enum.StatusField) ([]string, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("%w: field %q", ErrUnsupportedClause, field)
	}
	col := string(field)
	rows, err := q.db.Query(ctx, "SELECT DISTINCT "+col+" FROM pedidos WHERE "+col+" IS NOT NULL ORDER BY 1")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	vals := []string{}
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		vals = append(vals, v)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return vals, nil
}

type EditarPedidoParams struct {
	ID                int64
	FechaCompra       pgtype.Timestamptz
	ValorSello        pgtype.Numeric
	ValorEnvio        pgtype.Numeric
	ValorSenia        pgtype.Numeric
	EstadoFabricacion pgtype.Text
	EstadoVenta       pgtype.Text
	EstadoEnvio       pgtype.Text
	Notas             pgtype.Text
	Disenio           pgtype.Text
	ArchivoBase       pgtype.Text
	ArchivoVector     pgtype.Text
	FotoSello         pgtype.Text
	MedidaPedida      pgtype.Text
	NumeroSeguimiento pgtype.Text
}

const editarPedido = `SELECT editar_pedido(
    p_id => $1, p_fecha_compra => $2, p_valor_sello => $3, p_valor_envio => $4,
    p_valor_senia => $5, p_estado_fabricacion => $6, p_estado_venta => $7,
    p_estado_envio => $8, p_notas => $9, p_disenio => $10, p_archivo_base => $11,
    p_archivo_vector => $12, p_foto_sello => $13, p_medida_pedida => $14,
    p_numero_seguimiento => $15)`

// EditarPedido writes every editable column. Returns pgx.ErrNoRows when the
// pedido does not exist.
func (q *Queries) EditarPedido(ctx context.Context, arg EditarPedidoParams) error {
	var found bool
	err := q.db.QueryRow(ctx, editarPedido,
		arg.ID, arg.FechaCompra, arg.ValorSello, arg.ValorEnvio, arg.ValorSenia,
		arg.EstadoFabricacion, arg.EstadoVenta, arg.EstadoEnvio, arg.Notas, arg.Disenio,
		arg.ArchivoBase, arg.ArchivoVector, arg.FotoSello, arg.MedidaPedida, arg.NumeroSeguimiento,
	).Scan(&found)
	if err != nil {
		return err
	}
	if !found {
		return pgx.ErrNoRows
	}
	return nil
}

// EliminarPedido deletes a pedido. Returns pgx.ErrNoRows when it does not exist.
func (q *Queries) EliminarPedido(ctx context.Context, id int64) error {
	var found bool
	if err := q.db.QueryRow(ctx, `SELECT eliminar_pedido(p_id => $1)`, id).Scan(&found); err != nil {
		return err
	}
	if !found {
		return pgx.ErrNoRows
	}
	return nil
}

// UpdatePedidoFile sets or clears one attachment column.
func (q *Queries) UpdatePedidoFile(ctx context.Context, id int64, field enum.FileField, url pgtype.Text) error {
	if !field.Valid() {
		return fmt.Errorf("%w: file field %q", ErrUnsupportedClause, field)
	}
	return q.execOne(ctx, "UPDATE pedidos SET "+string(field)+" = $2 WHERE id_pedido = $1", id, url)
}

// UpdatePedidoEstado sets one status column and leaves the other two alone.
func (q *Queries) UpdatePedidoEstado(ctx context.Context, id int64, field enum.StatusField, value pgtype.Text) error {
	if !field.Valid() {
		return fmt.Errorf("%w: status field %q", ErrUnsupportedClause, field)
	}
	return q.execOne(ctx, "UPDATE pedidos SET "+string(field)+" = $2 WHERE id_pedido = $1", id, value)
}

func (q *Queries) UpdatePedidoVectorizacion(ctx context.Context, id int64, value pgtype.Text) error {
	return q.execOne(ctx, "UPDATE pedidos SET vectorizacion = $2 WHERE id_pedido = $1", id, value)
}

func (q *Queries) execOne(ctx context.Context, sql string, args ...any) error {
	tag, err := q.db.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
