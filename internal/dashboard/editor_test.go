package dashboard

import (
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgtype"

	"github.com/sellos-taller/dashboard/internal/database"
)

func testRow(id int64) database.PedidoRow {
	return database.PedidoRow{Pedido: database.Pedido{
		IDPedido:    id,
		FechaCompra: time.Date(2024, 3, 15, 13, 0, 0, 0, time.UTC),
		Disenio:     pgtype.Text{String: "Logo", Valid: true},
	}}
}

func TestEditor_Lifecycle(t *testing.T) {
	e := newEditor()
	if err := e.Change("notas", "x"); !errors.Is(err, ErrNotEditing) {
		t.Fatalf("change while viewing err = %v", err)
	}

	if err := e.Start(testRow(3), time.UTC); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if e.Phase != EditEditing || e.PedidoID != 3 || e.Form.FechaCompra != "2024-03-15" {
		t.Fatalf("editor = %+v", e)
	}
	if err := e.Change("notas", "urgente"); err != nil {
		t.Fatalf("Change: %v", err)
	}

	id, form, err := e.BeginSave()
	if err != nil || id != 3 || form.Notas != "urgente" {
		t.Fatalf("BeginSave = %d %+v %v", id, form, err)
	}
	if e.Cancel() {
		t.Error("cancel must not interrupt a save")
	}
	if err := e.Start(testRow(4), time.UTC); !errors.Is(err, ErrSaving) {
		t.Errorf("start during save err = %v", err)
	}

	e.Finish(errors.New("Error al actualizar los datos del pedido"))
	if e.Phase != EditEditing || e.Error == "" || e.Form.Notas != "urgente" {
		t.Errorf("after failure = %+v", e)
	}

	e.BeginSave()
	e.Finish(nil)
	if e.Phase != EditViewing || e.Form != nil {
		t.Errorf("after success = %+v", e)
	}
}

func TestEditor_StartReplacesOtherRow(t *testing.T) {
	e := newEditor()
	_ = e.Start(testRow(1), time.UTC)
	_ = e.Change("disenio", "cambiado")
	_ = e.Start(testRow(2), time.UTC)
	if e.PedidoID != 2 || e.Form.Disenio != "Logo" {
		t.Errorf("editor = %+v", e)
	}
}
