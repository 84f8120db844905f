package service

import (
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
	"github.com/sellos-taller/dashboard/internal/storage"
)

// PedidoView is the JSON projection of a row shared by REST and live
// dashboards. Money is formatted with two decimals; NULL columns are nil.
type PedidoView struct {
	IDPedido          int64        `json:"id_pedido"`
	FechaCompra       time.Time    `json:"fecha_compra"`
	Fecha             string       `json:"fecha"`
	Disenio           *string      `json:"disenio"`
	MedidaPedida      *string      `json:"medida_pedida"`
	ValorSello        *string      `json:"valor_sello"`
	ValorEnvio        *string      `json:"valor_envio"`
	ValorSenia        *string      `json:"valor_senia"`
	RestantePagar     *string      `json:"restante_pagar"`
	EstadoFabricacion *string      `json:"estado_fabricacion"`
	EstadoVenta       *string      `json:"estado_venta"`
	EstadoEnvio       *string      `json:"estado_envio"`
	Notas             *string      `json:"notas"`
	NumeroSeguimiento *string      `json:"numero_seguimiento"`
	Vectorizacion     *string      `json:"vectorizacion"`
	Cliente           *ClienteView `json:"cliente"`
	Archivos          []Attachment `json:"archivos"`
}

type ClienteView struct {
	IDCliente       int64   `json:"id_cliente"`
	NombreCliente   *string `json:"nombre_cliente"`
	ApellidoCliente *string `json:"apellido_cliente"`
	TelefonoCliente *string `json:"telefono_cliente"`
	MedioContacto   *string `json:"medio_contacto"`
}

// Attachment is one file cell. An empty URL renders the upload control.
// SignedURL is filled by the live session when it resolves one.
type Attachment struct {
	Field     enum.FileField `json:"field"`
	Label     string         `json:"label"`
	URL       string         `json:"url,omitempty"`
	IsImage   bool           `json:"is_image"`
	SignedURL string         `json:"signed_url,omitempty"`
	Uploading bool           `json:"uploading"`
}

// NewPedidoView projects a row. Fecha is the purchase day in loc.
func NewPedidoView(r database.PedidoRow, loc *time.Location) PedidoView {
	if loc == nil {
		loc = time.Local
	}
	v := PedidoView{
		IDPedido:          r.IDPedido,
		FechaCompra:       r.FechaCompra,
		Fecha:             r.FechaCompra.In(loc).Format(query.DateLayout),
		Disenio:           textPtr(r.Disenio),
		MedidaPedida:      textPtr(r.MedidaPedida),
		ValorSello:        moneyPtr(r.ValorSello),
		ValorEnvio:        moneyPtr(r.ValorEnvio),
		ValorSenia:        moneyPtr(r.ValorSenia),
		RestantePagar:     moneyPtr(r.RestantePagar),
		EstadoFabricacion: textPtr(r.EstadoFabricacion),
		EstadoVenta:       textPtr(r.EstadoVenta),
		EstadoEnvio:       textPtr(r.EstadoEnvio),
		Notas:             textPtr(r.Notas),
		NumeroSeguimiento: textPtr(r.NumeroSeguimiento),
		Vectorizacion:     textPtr(r.Vectorizacion),
	}
	if c := r.Cliente; c != nil {
		v.Cliente = &ClienteView{
			IDCliente:       c.IDCliente,
			NombreCliente:   textPtr(c.NombreCliente),
			ApellidoCliente: textPtr(c.ApellidoCliente),
			TelefonoCliente: textPtr(c.TelefonoCliente),
			MedioContacto:   textPtr(c.MedioContacto),
		}
	}
	for _, f := range enum.FileFields {
		ref := FileRef(r, f)
		v.Archivos = append(v.Archivos, Attachment{Field: f, Label: f.Label(), URL: ref, IsImage: ref != "" && storage.IsImage(ref)})
	}
	return v
}

// ForView drops the client fields from rows shown on the production page.
func (v PedidoView) ForView(view query.View) PedidoView {
	if view == query.ViewProduccion {
		v.Cliente = nil
	}
	return v
}

// NewPedidoViewsFor projects rows for one list page.
func NewPedidoViewsFor(rows []database.PedidoRow, loc *time.Location, view query.View) []PedidoView {
	out := NewPedidoViews(rows, loc)
	for i := range out {
		out[i] = out[i].ForView(view)
	}
	return out
}

func NewPedidoViews(rows []database.PedidoRow, loc *time.Location) []PedidoView {
	out := make([]PedidoView, len(rows))
	for i, r := range rows {
		out[i] = NewPedidoView(r, loc)
	}
	return out
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func moneyPtr(n pgtype.Numeric) *string {
	if !n.Valid {
		return nil
	}
	s := numericToDecimal(n).StringFixed(2)
	return &s
}
