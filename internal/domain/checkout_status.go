package domain

import "time"

type CheckoutStatus string

const (
	CheckoutStatusEmpty          CheckoutStatus = "EMPTY"
	CheckoutStatusSessionCreated CheckoutStatus = "SESSION_CREATED"
	CheckoutStatusConfirmed      CheckoutStatus = "CONFIRMED"
	CheckoutStatusOrderRecorded  CheckoutStatus = "ORDER_RECORDED"
	CheckoutStatusCartCleared    CheckoutStatus = "CART_CLEARED"
	CheckoutStatusFailed         CheckoutStatus = "FAILED"
)

var transitions = map[CheckoutStatus][]CheckoutStatus{
	CheckoutStatusSessionCreated: {CheckoutStatusConfirmed, CheckoutStatusFailed},
	CheckoutStatusConfirmed:      {CheckoutStatusOrderRecorded, CheckoutStatusFailed},
	CheckoutStatusOrderRecorded:  {CheckoutStatusCartCleared, CheckoutStatusFailed},
}

func (s CheckoutStatus) IsTerminal() bool {
	return s == CheckoutStatusEmpty || s == CheckoutStatusCartCleared || s == CheckoutStatusFailed
}

// String representation (for logging)
func (s CheckoutStatus) String() string {
	return string(s)
}

// CanTransitionTo reports whether a checkout in state from may move to state to.
func CanTransitionTo(from, to CheckoutStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckoutSession tracks a payment processor session opened for a user's cart.
type CheckoutSession struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Status      CheckoutStatus `json:"status"`
	AmountMinor int64          `json:"amount_minor"`
	Currency    string         `json:"currency"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}
