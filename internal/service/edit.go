package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
)

var (
	ErrInvalidForm      = errors.New("invalid form")
	ErrUnknownFormField = errors.New("unknown form field")
)

// EditForm is the string shadow copy of an editable pedido and its client.
// Blank strings stand for NULL.
type EditForm struct {
	FechaCompra       string `json:"fecha_compra"`
	ValorSello        string `json:"valor_sello"`
	ValorEnvio        string `json:"valor_envio"`
	ValorSenia        string `json:"valor_senia"`
	EstadoFabricacion string `json:"estado_fabricacion"`
	EstadoVenta       string `json:"estado_venta"`
	EstadoEnvio       string `json:"estado_envio"`
	Notas             string `json:"notas"`
	Disenio           string `json:"disenio"`
	ArchivoBase       string `json:"archivo_base"`
	ArchivoVector     string `json:"archivo_vector"`
	FotoSello         string `json:"foto_sello"`
	MedidaPedida      string `json:"medida_pedida"`
	NumeroSeguimiento string `json:"numero_seguimiento"`

	NombreCliente   string `json:"nombre_cliente"`
	ApellidoCliente string `json:"apellido_cliente"`
	TelefonoCliente string `json:"telefono_cliente"`
	MedioContacto   string `json:"medio_contacto"`
}

// FormFromRow snapshots a row. The purchase date is rendered as a calendar
// day in loc.
func FormFromRow(r database.PedidoRow, loc *time.Location) EditForm {
	if loc == nil {
		loc = time.Local
	}
	f := EditForm{
		ValorSello:        numericToString(r.ValorSello),
		ValorEnvio:        numericToString(r.ValorEnvio),
		ValorSenia:        numericToString(r.ValorSenia),
		EstadoFabricacion: r.EstadoFabricacion.String,
		EstadoVenta:       r.EstadoVenta.String,
		EstadoEnvio:       r.EstadoEnvio.String,
		Notas:             r.Notas.String,
		Disenio:           r.Disenio.String,
		ArchivoBase:       r.ArchivoBase.String,
		ArchivoVector:     r.ArchivoVector.String,
		FotoSello:         r.FotoSello.String,
		MedidaPedida:      r.MedidaPedida.String,
		NumeroSeguimiento: r.NumeroSeguimiento.String,
	}
	if !r.FechaCompra.IsZero() {
		f.FechaCompra = r.FechaCompra.In(loc).Format(query.DateLayout)
	}
	if c := r.Cliente; c != nil {
		f.NombreCliente = c.NombreCliente.String
		f.ApellidoCliente = c.ApellidoCliente.String
		f.TelefonoCliente = c.TelefonoCliente.String
		f.MedioContacto = c.MedioContacto.String
	}
	return f
}

// Set changes one field by its column name.
func (f *EditForm) Set(name, value string) error {
	p := f.field(name)
	if p == nil {
		return fmt.Errorf("%w: %q", ErrUnknownFormField, name)
	}
	*p = value
	return nil
}

func (f *EditForm) field(name string) *string {
	switch name {
	case "fecha_compra":
		return &f.FechaCompra
	case "valor_sello":
		return &f.ValorSello
	case "valor_envio":
		return &f.ValorEnvio
	case "valor_senia":
		return &f.ValorSenia
	case "estado_fabricacion":
		return &f.EstadoFabricacion
	case "estado_venta":
		return &f.EstadoVenta
	case "estado_envio":
		return &f.EstadoEnvio
	case "notas":
		return &f.Notas
	case "disenio":
		return &f.Disenio
	case "archivo_base":
		return &f.ArchivoBase
	case "archivo_vector":
		return &f.ArchivoVector
	case "foto_sello":
		return &f.FotoSello
	case "medida_pedida":
		return &f.MedidaPedida
	case "numero_seguimiento":
		return &f.NumeroSeguimiento
	case "nombre_cliente":
		return &f.NombreCliente
	case "apellido_cliente":
		return &f.ApellidoCliente
	case "telefono_cliente":
		return &f.TelefonoCliente
	case "medio_contacto":
		return &f.MedioContacto
	}
	return nil
}

// Params coerces the form into the two procedure calls. Blank sello, envio
// and medida become NULL; a blank seña becomes zero. The purchase day is sent
// as its first instant in loc; editar_pedido keeps the stored time when it
// already falls on that day.
func (f EditForm) Params(id int64, loc *time.Location) (database.EditarClienteParams, database.EditarPedidoParams, error) {
	cli := database.EditarClienteParams{
		IDPedido:        id,
		NombreCliente:   text(f.NombreCliente),
		ApellidoCliente: text(f.ApellidoCliente),
		TelefonoCliente: text(f.TelefonoCliente),
		MedioContacto:   text(f.MedioContacto),
	}

	ped := database.EditarPedidoParams{
		ID:                id,
		Notas:             text(f.Notas),
		Disenio:           text(f.Disenio),
		ArchivoBase:       nullableText(f.ArchivoBase),
		ArchivoVector:     nullableText(f.ArchivoVector),
		FotoSello:         nullableText(f.FotoSello),
		MedidaPedida:      nullableText(f.MedidaPedida),
		NumeroSeguimiento: text(f.NumeroSeguimiento),
	}

	fecha, err := purchaseDay(f.FechaCompra, loc)
	if err != nil {
		return cli, ped, err
	}
	ped.FechaCompra = fecha

	if ped.ValorSello, err = optionalMoney("valor_sello", f.ValorSello); err != nil {
		return cli, ped, err
	}
	if ped.ValorEnvio, err = optionalMoney("valor_envio", f.ValorEnvio); err != nil {
		return cli, ped, err
	}
	if strings.TrimSpace(f.ValorSenia) == "" {
		ped.ValorSenia = decimalToNumeric(decimal.Zero)
	} else if ped.ValorSenia, err = optionalMoney("valor_senia", f.ValorSenia); err != nil {
		return cli, ped, err
	}

	statuses := []struct {
		field enum.StatusField
		value string
		dst   *pgtype.Text
	}{
		{enum.StatusFabricacion, f.EstadoFabricacion, &ped.EstadoFabricacion},
		{enum.StatusVenta, f.EstadoVenta, &ped.EstadoVenta},
		{enum.StatusEnvio, f.EstadoEnvio, &ped.EstadoEnvio},
	}
	for _, s := range statuses {
		if s.value != "" && !s.field.Allows(s.value) {
			return cli, ped, fmt.Errorf("%w: %s %q is not a valid option", ErrInvalidForm, s.field, s.value)
		}
		*s.dst = nullableText(s.value)
	}

	return cli, ped, nil
}

// CreateParams coerces the form into the inserts behind a new pedido, with
// the same money, date and status rules as Params. Blank statuses take the
// initial value of each column. hasCliente is false when every client field
// is blank, in which case no cliente row is created.
func (f EditForm) CreateParams(loc *time.Location) (cli database.CreateClienteParams, ped database.CreatePedidoParams, hasCliente bool, err error) {
	editCli, edit, err := f.Params(0, loc)
	if err != nil {
		return cli, ped, false, err
	}

	cli = database.CreateClienteParams{
		NombreCliente:   nullableText(editCli.NombreCliente.String),
		ApellidoCliente: nullableText(editCli.ApellidoCliente.String),
		TelefonoCliente: nullableText(editCli.TelefonoCliente.String),
		MedioContacto:   nullableText(editCli.MedioContacto.String),
	}
	hasCliente = cli.NombreCliente.Valid || cli.ApellidoCliente.Valid ||
		cli.TelefonoCliente.Valid || cli.MedioContacto.Valid

	ped = database.CreatePedidoParams{
		FechaCompra:       edit.FechaCompra,
		Disenio:           nullableText(f.Disenio),
		MedidaPedida:      edit.MedidaPedida,
		ValorSello:        edit.ValorSello,
		ValorEnvio:        edit.ValorEnvio,
		ValorSenia:        edit.ValorSenia,
		EstadoFabricacion: orDefault(edit.EstadoFabricacion, enum.FabricacionSinHacer),
		EstadoVenta:       orDefault(edit.EstadoVenta, enum.VentaNinguno),
		EstadoEnvio:       orDefault(edit.EstadoEnvio, enum.EnvioSinEnviar),
		Notas:             nullableText(f.Notas),
		NumeroSeguimiento: nullableText(f.NumeroSeguimiento),
	}
	return cli, ped, hasCliente, nil
}

func orDefault(t pgtype.Text, def string) pgtype.Text {
	if t.Valid {
		return t
	}
	return pgtype.Text{String: def, Valid: true}
}

// purchaseDay parses a YYYY-MM-DD form value as the start of that day in loc.
// Blank means no change.
func purchaseDay(s string, loc *time.Location) (pgtype.Timestamptz, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Timestamptz{}, nil
	}
	if loc == nil {
		loc = time.Local
	}
	d, err := query.StartOfDay(s, loc)
	if err != nil {
		return pgtype.Timestamptz{}, fmt.Errorf("%w: fecha_compra must be YYYY-MM-DD", ErrInvalidForm)
	}
	return pgtype.Timestamptz{Time: d, Valid: true}, nil
}

func optionalMoney(name, s string) (pgtype.Numeric, error) {
	if strings.TrimSpace(s) == "" {
		return pgtype.Numeric{}, nil
	}
	d, err := parseMoney(s)
	if err != nil {
		return pgtype.Numeric{}, fmt.Errorf("%w: %s must be a number", ErrInvalidForm, name)
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, fmt.Errorf("%w: %s must not be negative", ErrInvalidForm, name)
	}
	return decimalToNumeric(d), nil
}

// text keeps empty strings as values.
func text(s string) pgtype.Text {
	return pgtype.Text{String: s, Valid: true}
}

// nullableText maps blank to NULL.
func nullableText(s string) pgtype.Text {
	if strings.TrimSpace(s) == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}
