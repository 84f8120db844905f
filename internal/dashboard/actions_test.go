package dashboard

import (
	"errors"
	"testing"

	"github.com/sellos-taller/dashboard/internal/enum"
)

func TestDecodeAction(t *testing.T) {
	a, err := DecodeAction([]byte(`{"type":"filters.toggle_status","payload":{"field":"estado_envio","value":"Despachado"}}`))
	if err != nil {
		t.Fatalf("DecodeAction: %v", err)
	}
	ts, ok := a.(ToggleStatus)
	if !ok || ts.Field != enum.StatusEnvio || ts.Value != enum.EnvioDespachado {
		t.Errorf("action = %#v", a)
	}

	a, err = DecodeAction([]byte(`{"type":"sort.toggle"}`))
	if err != nil {
		t.Fatalf("no payload: %v", err)
	}
	if _, ok := a.(ToggleSort); !ok {
		t.Errorf("action = %#v", a)
	}

	a, _ = DecodeAction([]byte(`{"type":"key.down","payload":{"key":"Enter","meta":true}}`))
	if kd := a.(KeyDown); kd.Key != "Enter" || !kd.Meta || kd.Ctrl {
		t.Errorf("key = %#v", kd)
	}
}

func TestDecodeAction_Errors(t *testing.T) {
	if _, err := DecodeAction([]byte(`{"type":"pedido.crear"}`)); !errors.Is(err, ErrUnknownAction) {
		t.Errorf("unknown err = %v", err)
	}
	if _, err := DecodeAction([]byte(`not json`)); err == nil {
		t.Error("malformed frame should fail")
	}
	if _, err := DecodeAction([]byte(`{"type":"edit.start","payload":{"id_pedido":"x"}}`)); err == nil {
		t.Error("mistyped payload should fail")
	}
}
