package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/sellos-taller/dashboard/internal/enum"
)

var (
	ErrUnknownAction   = errors.New("unknown action")
	ErrActionNotInView = errors.New("action not available on this page")
)

// pedidosOnly reports whether a belongs to the sales page. The production
// page only changes statuses.
func pedidosOnly(a Action) bool {
	switch a.(type) {
	case OpenEditMenu, StartEdit, ChangeField, CancelEdit, SaveEdit, DeletePedido:
		return true
	}
	return false
}

// Action is an inbound dashboard event. Each concrete type is a plain value.
type Action interface {
	ActionType() string
}

type SetSearch struct {
	Text string `json:"text"`
}

type SetDateFrom struct {
	Date string `json:"date"`
}

type SetDateTo struct {
	Date string `json:"date"`
}

type ToggleStatus struct {
	Field enum.StatusField `json:"field"`
	Value string           `json:"value"`
}

type SetStatuses struct {
	Field  enum.StatusField `json:"field"`
	Values []string         `json:"values"`
}

type ClearFilters struct{}

type ToggleSort struct{}

type Refresh struct{}

type OpenContextMenu struct {
	X        int   `json:"x"`
	Y        int   `json:"y"`
	PedidoID int64 `json:"id_pedido"`
}

type OpenEditMenu struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// CloseMenus is sent on any click outside an open menu.
type CloseMenus struct{}

type StartEdit struct {
	PedidoID int64 `json:"id_pedido"`
}

type ChangeField struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

type CancelEdit struct{}

type SaveEdit struct{}

type KeyDown struct {
	Key  string `json:"key"`
	Ctrl bool   `json:"ctrl"`
	Meta bool   `json:"meta"`
}

type DeletePedido struct {
	PedidoID  int64 `json:"id_pedido"`
	Confirmed bool  `json:"confirmed"`
}

type SetEstado struct {
	PedidoID int64            `json:"id_pedido"`
	Field    enum.StatusField `json:"field"`
	Value    string           `json:"value"`
}

type SetVectorizacion struct {
	PedidoID int64  `json:"id_pedido"`
	Value    string `json:"value"`
}

func (SetSearch) ActionType() string        { return "search.set" }
func (SetDateFrom) ActionType() string      { return "filters.date_from" }
func (SetDateTo) ActionType() string        { return "filters.date_to" }
func (ToggleStatus) ActionType() string     { return "filters.toggle_status" }
func (SetStatuses) ActionType() string      { return "filters.set_statuses" }
func (ClearFilters) ActionType() string     { return "filters.clear" }
func (ToggleSort) ActionType() string       { return "sort.toggle" }
func (Refresh) ActionType() string          { return "refresh" }
func (OpenContextMenu) ActionType() string  { return "menu.open" }
func (OpenEditMenu) ActionType() string     { return "menu.open_edit" }
func (CloseMenus) ActionType() string       { return "menu.close" }
func (StartEdit) ActionType() string        { return "edit.start" }
func (ChangeField) ActionType() string      { return "edit.change" }
func (CancelEdit) ActionType() string       { return "edit.cancel" }
func (SaveEdit) ActionType() string         { return "edit.save" }
func (KeyDown) ActionType() string          { return "key.down" }
func (DeletePedido) ActionType() string     { return "pedido.delete" }
func (SetEstado) ActionType() string        { return "pedido.set_estado" }
func (SetVectorizacion) ActionType() string { return "pedido.set_vectorizacion" }

var decoders = map[string]func(json.RawMessage) (Action, error){
	SetSearch{}.ActionType():        decodeAs[SetSearch],
	SetDateFrom{}.ActionType():      decodeAs[SetDateFrom],
	SetDateTo{}.ActionType():        decodeAs[SetDateTo],
	ToggleStatus{}.ActionType():     decodeAs[ToggleStatus],
	SetStatuses{}.ActionType():      decodeAs[SetStatuses],
	ClearFilters{}.ActionType():     decodeAs[ClearFilters],
	ToggleSort{}.ActionType():       decodeAs[ToggleSort],
	Refresh{}.ActionType():          decodeAs[Refresh],
	OpenContextMenu{}.ActionType():  decodeAs[OpenContextMenu],
	OpenEditMenu{}.ActionType():     decodeAs[OpenEditMenu],
	CloseMenus{}.ActionType():       decodeAs[CloseMenus],
	StartEdit{}.ActionType():        decodeAs[StartEdit],
	ChangeField{}.ActionType():      decodeAs[ChangeField],
	CancelEdit{}.ActionType():       decodeAs[CancelEdit],
	SaveEdit{}.ActionType():         decodeAs[SaveEdit],
	KeyDown{}.ActionType():          decodeAs[KeyDown],
	DeletePedido{}.ActionType():     decodeAs[DeletePedido],
	SetEstado{}.ActionType():        decodeAs[SetEstado],
	SetVectorizacion{}.ActionType(): decodeAs[SetVectorizacion],
}

func decodeAs[T Action](raw json.RawMessage) (Action, error) {
	var a T
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &a); err != nil {
			return nil, err
		}
	}
	return a, nil
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// DecodeAction parses an inbound frame of the form {"type": ..., "payload": {...}}.
func DecodeAction(data []byte) (Action, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode frame: %w", err)
	}
	dec, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownAction, env.Type)
	}
	a, err := dec(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return a, nil
}
