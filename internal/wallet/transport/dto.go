package transport

import (
	"time"

	"github.com/google/uuid"
)

// WithdrawRequest moves available balance out of the wallet.
type WithdrawRequest struct {
	AmountCents int64 `json:"amountCents" validate:"required,gt=0"`
}

// WalletResponse is the derived state of a freelancer's wallet.
type WalletResponse struct {
	AvailableCents      int64 `json:"availableCents"`
	LifetimeEarnedCents int64 `json:"lifetimeEarnedCents"`
	WithdrawnCents      int64 `json:"withdrawnCents"`
}

// EntryResponse is one ledger line.
type EntryResponse struct {
	ID            uuid.UUID `json:"id"`
	InvoiceNumber *string   `json:"invoiceNumber,omitempty"`
	Kind          string    `json:"kind"`
	AmountCents   int64     `json:"amountCents"`
	CreatedAt     time.Time `json:"createdAt"`
}
