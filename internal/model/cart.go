package model

import "time"

// CartState is the lifecycle position of a cart, derived from its persisted
// send/sendOk flags. Persisted state is authoritative; the state name exists
// so transitions can be validated explicitly.
type CartState string

const (
	// CartDraft is an editable cart that has never been queued.
	CartDraft CartState = "draft"
	// CartSending is a cart marked send=true with the remote call in flight.
	CartSending CartState = "sending"
	// CartConfirmed is the terminal state: the server acknowledged the order.
	CartConfirmed CartState = "confirmed"
	// CartRetryPending is a queued cart whose submission failed; it stays
	// resendable until it succeeds or is deleted.
	CartRetryPending CartState = "retry_pending"
)

// Cart is one row of the carts table plus its owned product lines and
// settings. At most one cart is Active per device.
type Cart struct {
	ID             int       `json:"id"`
	Name           string    `json:"name"`
	Customer       int       `json:"customer"`
	Address        int       `json:"address"`
	LastChangeDate time.Time `json:"lastChangeDate"`
	SendDate       time.Time `json:"sendDate"`
	Send           bool      `json:"send"`
	SendOk         bool      `json:"sendOk"`
	Active         bool      `json:"active"`

	Products []CartProduct `json:"products"`
	Settings *CartSettings `json:"settings,omitempty"`
}

// CartProduct is one order line. The wire field for the product id is "id",
// matching the order payload the server expects.
type CartProduct struct {
	Cart    int `json:"-"`
	Product int `json:"id"`
	Amount  int `json:"amount"`
}

// CartSettings holds the delivery preferences for a cart. At most one row per
// cart.
type CartSettings struct {
	Cart         int    `json:"-"`
	DeliveryDate string `json:"deliveryDate,omitempty"`
	Reference    string `json:"reference,omitempty"`
	Comment      string `json:"comment,omitempty"`
}

// State derives the lifecycle state from the persisted flags.
func (c Cart) State() CartState {
	switch {
	case c.SendOk:
		return CartConfirmed
	case c.Send:
		// send was set but no acknowledgement arrived. CartSending is only
		// ever observed in memory while the remote call is in flight; on disk
		// this flag combination always means retry-pending.
		return CartRetryPending
	default:
		return CartDraft
	}
}
