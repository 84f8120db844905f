package dashboard

// ContextMenu is the row menu opened by a right click.
type ContextMenu struct {
	Visible  bool  `json:"visible"`
	X        int   `json:"x"`
	Y        int   `json:"y"`
	PedidoID int64 `json:"id_pedido,omitempty"`
}

func (m *ContextMenu) Open(x, y int, id int64) {
	*m = ContextMenu{Visible: true, X: x, Y: y, PedidoID: id}
}

func (m *ContextMenu) Close() { *m = ContextMenu{} }

// EditMenu is the save/cancel menu shown over the row being edited.
type EditMenu struct {
	Visible bool `json:"visible"`
	X       int  `json:"x"`
	Y       int  `json:"y"`
}

func (m *EditMenu) Open(x, y int) { *m = EditMenu{Visible: true, X: x, Y: y} }

func (m *EditMenu) Close() { *m = EditMenu{} }
