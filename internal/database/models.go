package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sellos-taller/dashboard/internal/query"
)

type Cliente struct {
	IDCliente       int64       `json:"id_cliente"`
	NombreCliente   pgtype.Text `json:"nombre_cliente"`
	ApellidoCliente pgtype.Text `json:"apellido_cliente"`
	TelefonoCliente pgtype.Text `json:"telefono_cliente"`
	MedioContacto   pgtype.Text `json:"medio_contacto"`
}

type Pedido struct {
	IDPedido          int64          `json:"id_pedido"`
	IDCliente         pgtype.Int8    `json:"id_cliente"`
	FechaCompra       time.Time      `json:"fecha_compra"`
	Disenio           pgtype.Text    `json:"disenio"`
	MedidaPedida      pgtype.Text    `json:"medida_pedida"`
	ValorSello        pgtype.Numeric `json:"valor_sello"`
	ValorEnvio        pgtype.Numeric `json:"valor_envio"`
	ValorSenia        pgtype.Numeric `json:"valor_senia"`
	RestantePagar     pgtype.Numeric `json:"restante_pagar"`
	EstadoFabricacion pgtype.Text    `json:"estado_fabricacion"`
	EstadoVenta       pgtype.Text    `json:"estado_venta"`
	EstadoEnvio       pgtype.Text    `json:"estado_envio"`
	Notas             pgtype.Text    `json:"notas"`
	ArchivoBase       pgtype.Text    `json:"archivo_base"`
	ArchivoVector     pgtype.Text    `json:"archivo_vector"`
	FotoSello         pgtype.Text    `json:"foto_sello"`
	NumeroSeguimiento pgtype.Text    `json:"numero_seguimiento"`
	Vectorizacion     pgtype.Text    `json:"vectorizacion"`
}

// PedidoRow is a pedido joined with its client. Cliente is nil when the
// pedido has none.
type PedidoRow struct {
	Pedido
	Cliente *Cliente `json:"clientes"`
}

// Value implements query.Record.
func (r PedidoRow) Value(f query.Field) any {
	switch f {
	case query.FieldIDPedido:
		return r.IDPedido
	case query.FieldFechaCompra:
		return r.FechaCompra
	case query.FieldDisenio:
		return textValue(r.Disenio)
	case query.FieldEstadoFabricacion:
		return textValue(r.EstadoFabricacion)
	case query.FieldEstadoVenta:
		return textValue(r.EstadoVenta)
	case query.FieldEstadoEnvio:
		return textValue(r.EstadoEnvio)
	}
	return nil
}

func textValue(t pgtype.Text) any {
	if !t.Valid {
		return nil
	}
	return t.String
}

type Operador struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Nombre         string    `json:"nombre"`
	HashedPassword string    `json:"hashed_password"`
	Rol            string    `json:"rol"`
	IsActive       bool      `json:"is_active"`
	CreatedAt      time.Time `json:"created_at"`
}
