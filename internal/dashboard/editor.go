package dashboard

import (
	"errors"
	"time"

	"github.com/sellos-taller/dashboard/internal/database"
	"github.com/sellos-taller/dashboard/internal/service"
)

var (
	ErrNotEditing = errors.New("no row is being edited")
	ErrSaving     = errors.New("save in progress")
)

type EditPhase string

const (
	EditViewing EditPhase = "viewing"
	EditEditing EditPhase = "editing"
	EditSaving  EditPhase = "saving"
)

// Editor is the inline edit slice. At most one pedido is edited at a time.
type Editor struct {
	Phase    EditPhase         `json:"phase"`
	PedidoID int64             `json:"id_pedido,omitempty"`
	Form     *service.EditForm `json:"form,omitempty"`
	Error    string            `json:"error,omitempty"`
}

func newEditor() Editor { return Editor{Phase: EditViewing} }

// Start snapshots row into a fresh form, replacing any other edit.
func (e *Editor) Start(row database.PedidoRow, loc *time.Location) error {
	if e.Phase == EditSaving {
		return ErrSaving
	}
	form := service.FormFromRow(row, loc)
	*e = Editor{Phase: EditEditing, PedidoID: row.IDPedido, Form: &form}
	return nil
}

func (e *Editor) Change(name, value string) error {
	if e.Phase != EditEditing {
		return ErrNotEditing
	}
	return e.Form.Set(name, value)
}

// Cancel discards the form. A save in flight cannot be cancelled.
func (e *Editor) Cancel() bool {
	if e.Phase != EditEditing {
		return false
	}
	*e = newEditor()
	return true
}

// BeginSave moves to saving and returns a copy of the form to persist.
func (e *Editor) BeginSave() (int64, service.EditForm, error) {
	if e.Phase != EditEditing {
		if e.Phase == EditSaving {
			return 0, service.EditForm{}, ErrSaving
		}
		return 0, service.EditForm{}, ErrNotEditing
	}
	e.Phase = EditSaving
	e.Error = ""
	return e.PedidoID, *e.Form, nil
}

// Finish ends a save. On failure the form stays open with the message.
func (e *Editor) Finish(err error) {
	if e.Phase != EditSaving {
		return
	}
	if err != nil {
		e.Phase = EditEditing
		e.Error = err.Error()
		return
	}
	*e = newEditor()
}

func (e Editor) Editing(id int64) bool {
	return e.Phase != EditViewing && e.PedidoID == id
}
