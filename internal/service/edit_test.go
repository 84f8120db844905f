package service

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/enum"
)

func TestFormFromRow(t *testing.T) {
	art := time.FixedZone("ART", -3*60*60)
	row := database.PedidoRow{
		Pedido: database.Pedido{
			IDPedido:    4,
			FechaCompra: time.Date(2024, 3, 16, 1, 30, 0, 0, time.UTC), // 22:30 on the 15th in ART
			ValorSello:  makeNumeric("1200.5"),
			ValorSenia:  makeNumeric("0"),
			Disenio:     pgtype.Text{String: "Escudo", Valid: true},
		},
		Cliente: &database.Cliente{
			IDCliente:     2,
			NombreCliente: pgtype.Text{String: "Luis", Valid: true},
		},
	}
	f := FormFromRow(row, art)
	if f.FechaCompra != "2024-03-15" {
		t.Errorf("fecha = %q, want local day 2024-03-15", f.FechaCompra)
	}
	if f.ValorSello != "1200.50" || f.ValorEnvio != "" || f.ValorSenia != "0.00" {
		t.Errorf("money = %q %q %q", f.ValorSello, f.ValorEnvio, f.ValorSenia)
	}
	if f.Disenio != "Escudo" || f.NombreCliente != "Luis" || f.ApellidoCliente != "" {
		t.Errorf("text fields = %+v", f)
	}
}

func TestEditForm_Set(t *testing.T) {
	var f EditForm
	if err := f.Set("valor_envio", "300"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if f.ValorEnvio != "300" {
		t.Errorf("ValorEnvio = %q", f.ValorEnvio)
	}
	if err := f.Set("restante_pagar", "0"); !errors.Is(err, ErrUnknownFormField) {
		t.Errorf("computed column err = %v, want ErrUnknownFormField", err)
	}
}

func TestEditForm_Params(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(f *EditForm)
		wantErr bool
		check   func(t *testing.T, p database.EditarPedidoParams)
	}{
		{
			name:   "comma decimal",
			mutate: func(f *EditForm) { f.ValorSenia = "500,25" },
			check: func(t *testing.T, p database.EditarPedidoParams) {
				if !numericEquals(p.ValorSenia, "500.25") {
					t.Errorf("seña = %+v", p.ValorSenia)
				}
			},
		},
		{
			name:   "blank statuses become null",
			mutate: func(f *EditForm) { f.EstadoVenta = "" },
			check: func(t *testing.T, p database.EditarPedidoParams) {
				if p.EstadoVenta.Valid {
					t.Error("estado_venta should be NULL")
				}
				if !p.EstadoFabricacion.Valid {
					t.Error("estado_fabricacion should be kept")
				}
			},
		},
		{
			name:   "date parsed",
			mutate: func(f *EditForm) {},
			check: func(t *testing.T, p database.EditarPedidoParams) {
				if !p.FechaCompra.Valid || p.FechaCompra.Time.Format("2006-01-02") != "2024-03-15" {
					t.Errorf("fecha = %+v", p.FechaCompra)
				}
			},
		},
		{
			name:   "medida kept when set",
			mutate: func(f *EditForm) { f.MedidaPedida = "4x4" },
			check: func(t *testing.T, p database.EditarPedidoParams) {
				if p.MedidaPedida.String != "4x4" || !p.MedidaPedida.Valid {
					t.Errorf("medida = %+v", p.MedidaPedida)
				}
			},
		},
		{name: "bad date", mutate: func(f *EditForm) { f.FechaCompra = "15/03/2024" }, wantErr: true},
		{name: "bad envio", mutate: func(f *EditForm) { f.ValorEnvio = "abc" }, wantErr: true},
		{name: "negative sello", mutate: func(f *EditForm) { f.ValorSello = "-1" }, wantErr: true},
		{name: "unknown estado", mutate: func(f *EditForm) { f.EstadoEnvio = "Perdido" }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := baseForm()
			tt.mutate(&f)
			cli, ped, err := f.Params(12, time.UTC)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidForm) {
					t.Fatalf("err = %v, want ErrInvalidForm", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cli.IDPedido != 12 || ped.ID != 12 {
				t.Errorf("ids = %d / %d", cli.IDPedido, ped.ID)
			}
			tt.check(t, ped)
		})
	}
}

func TestEditForm_ParamsSendsLocalStartOfDay(t *testing.T) {
	ba, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}
	stored := time.Date(2024, 3, 15, 10, 0, 0, 0, ba)
	row := database.PedidoRow{Pedido: database.Pedido{IDPedido: 9, FechaCompra: stored}}

	f := FormFromRow(row, ba)
	_, ped, err := f.Params(9, ba)
	if err != nil {
		t.Fatalf("Params: %v", err)
	}

	want := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC)
	if !ped.FechaCompra.Valid || !ped.FechaCompra.Time.Equal(want) {
		t.Fatalf("fecha param = %v, want %v", ped.FechaCompra.Time, want)
	}
	// editar_pedido keeps the stored instant when it lies inside [start, start+1 day)
	end := ped.FechaCompra.Time.AddDate(0, 0, 1)
	if stored.Before(ped.FechaCompra.Time) || !stored.Before(end) {
		t.Errorf("stored %v outside the day sent as %v", stored, ped.FechaCompra.Time)
	}
	if got := FormFromRow(row, ba).FechaCompra; got != "2024-03-15" {
		t.Errorf("form after save = %q", got)
	}
}

func TestEditForm_ParamsBlankDateKeepsStored(t *testing.T) {
	f := EditForm{}
	_, ped, err := f.Params(3, time.UTC)
	if err != nil {
		t.Fatalf("Params: %v", err)
	}
	if ped.FechaCompra.Valid {
		t.Errorf("blank fecha should be NULL, got %v", ped.FechaCompra.Time)
	}
}

func TestEditForm_CreateParams(t *testing.T) {
	ba := time.FixedZone("ART", -3*60*60)
	f := EditForm{
		FechaCompra:     "2024-03-15",
		ValorSello:      "1500,5",
		Disenio:         "Escudo",
		TelefonoCliente: "1155550101",
	}
	cli, ped, hasCliente, err := f.CreateParams(ba)
	if err != nil {
		t.Fatalf("CreateParams: %v", err)
	}
	if !hasCliente || cli.TelefonoCliente.String != "1155550101" || cli.NombreCliente.Valid {
		t.Errorf("cliente = %+v (has %v)", cli, hasCliente)
	}
	if want := time.Date(2024, 3, 15, 3, 0, 0, 0, time.UTC); !ped.FechaCompra.Time.Equal(want) {
		t.Errorf("fecha = %v, want %v", ped.FechaCompra.Time, want)
	}
	if ped.EstadoFabricacion.String != enum.FabricacionSinHacer ||
		ped.EstadoEnvio.String != enum.EnvioSinEnviar {
		t.Errorf("default estados = %q / %q", ped.EstadoFabricacion.String, ped.EstadoEnvio.String)
	}
	if ped.Notas.Valid || ped.MedidaPedida.Valid {
		t.Errorf("blank text should be NULL: %+v %+v", ped.Notas, ped.MedidaPedida)
	}

	if _, _, hasCliente, _ := (EditForm{}).CreateParams(ba); hasCliente {
		t.Error("empty form should not create a cliente")
	}
}
