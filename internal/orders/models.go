package orders

import "github.com/ariefcatur/go-marketplace-core/internal/theme"

// StatusView is what clients render for an order's current status. Hex is
// filled per request from the active palette and never cached.
type StatusView struct {
	OrderID string      `json:"order_id"`
	Status  Status      `json:"status"`
	Text    string      `json:"text"`
	Color   theme.Token `json:"color"`
	Hex     string      `json:"hex,omitempty"`
}

func NewStatusView(orderID string, s Status) StatusView {
	return StatusView{OrderID: orderID, Status: s, Text: StatusText(s), Color: StatusColor(s)}
}

func (v StatusView) WithPalette(p theme.Palette) StatusView {
	v.Hex = p.Color(v.Color)
	return v
}
