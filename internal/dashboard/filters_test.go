package dashboard

import (
	"errors"
	"reflect"
	"testing"

	"github.com/sellos-taller/dashboard/internal/enum"
	"github.com/sellos-taller/dashboard/internal/query"
)

func TestReduceFilters(t *testing.T) {
	start := query.Filters{EstadoVenta: []string{enum.VentaFoto}}

	got, err := ReduceFilters(start, ToggleStatus{Field: enum.StatusVenta, Value: enum.VentaTransferido})
	if err != nil {
		t.Fatalf("toggle on: %v", err)
	}
	if !reflect.DeepEqual(got.EstadoVenta, []string{enum.VentaFoto, enum.VentaTransferido}) {
		t.Errorf("toggle on = %v", got.EstadoVenta)
	}
	if len(start.EstadoVenta) != 1 {
		t.Errorf("input mutated: %v", start.EstadoVenta)
	}

	got, _ = ReduceFilters(got, ToggleStatus{Field: enum.StatusVenta, Value: enum.VentaFoto})
	if !reflect.DeepEqual(got.EstadoVenta, []string{enum.VentaTransferido}) {
		t.Errorf("toggle off = %v", got.EstadoVenta)
	}

	got, _ = ReduceFilters(got, SetStatuses{Field: enum.StatusEnvio, Values: []string{enum.EnvioDespachado, "", enum.EnvioDespachado}})
	if !reflect.DeepEqual(got.EstadoEnvio, []string{enum.EnvioDespachado}) {
		t.Errorf("set statuses = %v", got.EstadoEnvio)
	}

	got, _ = ReduceFilters(got, SetDateFrom{Date: "2024-03-01"})
	got, _ = ReduceFilters(got, SetDateTo{Date: "2024-03-15"})
	if got.FechaDesde != "2024-03-01" || got.FechaHasta != "2024-03-15" || !got.Active() {
		t.Errorf("dates = %+v", got)
	}

	got, _ = ReduceFilters(got, ClearFilters{})
	if got.Active() {
		t.Errorf("clear left %+v", got)
	}
}

func TestReduceFilters_Invalid(t *testing.T) {
	start := query.Filters{FechaDesde: "2024-01-01"}
	tests := []Action{
		SetDateFrom{Date: "01/02/2024"},
		ToggleStatus{Field: enum.StatusField("notas"), Value: "x"},
		ToggleStatus{Field: enum.StatusVenta},
	}
	for _, a := range tests {
		got, err := ReduceFilters(start, a)
		if !errors.Is(err, ErrInvalidFilter) {
			t.Errorf("%T: err = %v, want ErrInvalidFilter", a, err)
		}
		if got.FechaDesde != "2024-01-01" {
			t.Errorf("%T: state changed on error: %+v", a, got)
		}
	}
}

func TestEqualFilters_IgnoresOrder(t *testing.T) {
	a := query.Filters{EstadoFabricacion: []string{"Hecho", "Rehacer"}}
	b := query.Filters{EstadoFabricacion: []string{"Rehacer", "Hecho"}}
	if !equalFilters(a, b) {
		t.Error("same sets in different order should be equal")
	}
	b.FechaHasta = "2024-01-01"
	if equalFilters(a, b) {
		t.Error("different dates should differ")
	}
}
