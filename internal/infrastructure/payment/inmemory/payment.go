package inmemorypayment

import (
	"context"
	"fmt"
	"sync"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
)

type paymentService struct {
	lock     sync.RWMutex
	balances map[string]uint64
}

func NewPaymentService() ports.PaymentService {
	return &paymentService{
		balances: make(map[string]uint64),
	}
}

func (s *paymentService) Transfer(_ context.Context, from, to string, amount uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	newFrom, ok := domain.SubUint64(s.balances[from], amount)
	if !ok {
		return fmt.Errorf(
			"%w: %s has %d, needs %d", ports.ErrInsufficientBalance, from, s.balances[from], amount,
		)
	}
	if from == to {
		return nil
	}
	newTo, ok := domain.AddUint64(s.balances[to], amount)
	if !ok {
		return fmt.Errorf("%w for %s", ports.ErrBalanceOverflow, to)
	}

	s.balances[from] = newFrom
	s.balances[to] = newTo
	return nil
}

func (s *paymentService) Deposit(_ context.Context, account string, amount uint64) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	balance, ok := domain.AddUint64(s.balances[account], amount)
	if !ok {
		return fmt.Errorf("%w for %s", ports.ErrBalanceOverflow, account)
	}
	s.balances[account] = balance
	return nil
}

func (s *paymentService) Balance(_ context.Context, account string) (uint64, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	return s.balances[account], nil
}

func (s *paymentService) Close() {}
