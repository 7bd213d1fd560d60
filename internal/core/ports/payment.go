package ports

import (
	"context"
	"errors"
)

var (
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrBalanceOverflow     = errors.New("balance overflow")
)

// PaymentService moves value between accounts. Transfer is all-or-nothing:
// on error no balance has changed.
type PaymentService interface {
	Transfer(ctx context.Context, from, to string, amount uint64) error
	Deposit(ctx context.Context, account string, amount uint64) error
	Balance(ctx context.Context, account string) (uint64, error)
	Close()
}
