package database

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
)

type EditarClienteParams struct {
	IDPedido        int64
	NombreCliente   pgtype.Text
	ApellidoCliente pgtype.Text
	TelefonoCliente pgtype.Text
	MedioContacto   pgtype.Text
}

const editarCliente = `SELECT editar_cliente(
    p_id_pedido => $1, p_nombre_cliente => $2, p_apellido_cliente => $3,
    p_telefono_cliente => $4, p_medio_contacto => $5)`

// EditarCliente updates the client linked to a pedido. A pedido without a
// client is not an error; nothing is written.
func (q *Queries) EditarCliente(ctx context.Context, arg EditarClienteParams) error {
	var found bool
	return q.db.QueryRow(ctx, editarCliente,
		arg.IDPedido, arg.NombreCliente, arg.ApellidoCliente, arg.TelefonoCliente, arg.MedioContacto,
	).Scan(&found)
}

type CreateClienteParams struct {
	NombreCliente   pgtype.Text
	ApellidoCliente pgtype.Text
	TelefonoCliente pgtype.Text
	MedioContacto   pgtype.Text
}

// CreateCliente inserts a cliente and returns its id.
func (q *Queries) CreateCliente(ctx context.Context, arg CreateClienteParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO clientes (nombre_cliente, apellido_cliente, telefono_cliente, medio_contacto)
		 VALUES ($1, $2, $3, $4) RETURNING id_cliente`,
		arg.NombreCliente, arg.ApellidoCliente, arg.TelefonoCliente, arg.MedioContacto,
	).Scan(&id)
	return id, err
}

type CreatePedidoParams struct {
	IDCliente         pgtype.Int8
	FechaCompra       pgtype.Timestamptz
	Disenio           pgtype.Text
	MedidaPedida      pgtype.Text
	ValorSello        pgtype.Numeric
	ValorEnvio        pgtype.Numeric
	ValorSenia        pgtype.Numeric
	EstadoFabricacion pgtype.Text
	EstadoVenta       pgtype.Text
	EstadoEnvio       pgtype.Text
	Notas             pgtype.Text
	NumeroSeguimiento pgtype.Text
}

// CreatePedido inserts a pedido. A NULL purchase date means now.
func (q *Queries) CreatePedido(ctx context.Context, arg CreatePedidoParams) (int64, error) {
	var id int64
	err := q.db.QueryRow(ctx,
		`INSERT INTO pedidos (id_cliente, fecha_compra, disenio, medida_pedida, valor_sello, valor_envio,
		                      valor_senia, estado_fabricacion, estado_venta, estado_envio, notas, numero_seguimiento)
		 VALUES ($1, COALESCE($2::timestamptz, now()), $3, $4, $5, $6, COALESCE($7::numeric, 0), $8, $9, $10, $11, $12)
		 RETURNING id_pedido`,
		arg.IDCliente, arg.FechaCompra, arg.Disenio, arg.MedidaPedida, arg.ValorSello, arg.ValorEnvio,
		arg.ValorSenia, arg.EstadoFabricacion, arg.EstadoVenta, arg.EstadoEnvio, arg.Notas, arg.NumeroSeguimiento,
	).Scan(&id)
	return id, err
}
