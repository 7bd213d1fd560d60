package redispayment

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/arkade-os/kittyd/internal/core/domain"
	"github.com/arkade-os/kittyd/internal/core/ports"
	"github.com/redis/go-redis/v9"
)

const balancesHashKey = "paymentStore:balances"

type paymentService struct {
	rdb          *redis.Client
	numOfRetries int
	retryDelay   time.Duration
}

func NewPaymentService(rdb *redis.Client, numOfRetries int) ports.PaymentService {
	if numOfRetries <= 0 {
		numOfRetries = 1
	}
	return &paymentService{
		rdb:          rdb,
		numOfRetries: numOfRetries,
		retryDelay:   10 * time.Millisecond,
	}
}

func (s *paymentService) Transfer(ctx context.Context, from, to string, amount uint64) error {
	var err error
	for range s.numOfRetries {
		err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			fromBalance, err := getBalance(ctx, tx, from)
			if err != nil {
				return err
			}
			newFrom, ok := domain.SubUint64(fromBalance, amount)
			if !ok {
				return fmt.Errorf(
					"%w: %s has %d, needs %d",
					ports.ErrInsufficientBalance, from, fromBalance, amount,
				)
			}
			if from == to {
				return nil
			}

			toBalance, err := getBalance(ctx, tx, to)
			if err != nil {
				return err
			}
			newTo, ok := domain.AddUint64(toBalance, amount)
			if !ok {
				return fmt.Errorf("%w for %s", ports.ErrBalanceOverflow, to)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(
					ctx, balancesHashKey,
					from, strconv.FormatUint(newFrom, 10),
					to, strconv.FormatUint(newTo, 10),
				)
				return nil
			})
			return err
		}, balancesHashKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf(
		"failed to transfer %d from %s to %s after max number of retries: %v",
		amount, from, to, err,
	)
}

func (s *paymentService) Deposit(ctx context.Context, account string, amount uint64) error {
	var err error
	for range s.numOfRetries {
		err = s.rdb.Watch(ctx, func(tx *redis.Tx) error {
			balance, err := getBalance(ctx, tx, account)
			if err != nil {
				return err
			}
			newBalance, ok := domain.AddUint64(balance, amount)
			if !ok {
				return fmt.Errorf("%w for %s", ports.ErrBalanceOverflow, account)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, balancesHashKey, account, strconv.FormatUint(newBalance, 10))
				return nil
			})
			return err
		}, balancesHashKey)
		if !errors.Is(err, redis.TxFailedErr) {
			return err
		}
		time.Sleep(s.retryDelay)
	}
	return fmt.Errorf(
		"failed to deposit %d to %s after max number of retries: %v", amount, account, err,
	)
}

func (s *paymentService) Balance(ctx context.Context, account string) (uint64, error) {
	return getBalance(ctx, s.rdb, account)
}

func (s *paymentService) Close() {
	// nolint
	s.rdb.Close()
}

type hashGetter interface {
	HGet(ctx context.Context, key, field string) *redis.StringCmd
}

func getBalance(ctx context.Context, rdb hashGetter, account string) (uint64, error) {
	balanceStr, err := rdb.HGet(ctx, balancesHashKey, account).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get balance of %s: %v", account, err)
	}
	balance, err := strconv.ParseUint(balanceStr, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("malformed balance in storage for %s: %v", account, err)
	}
	return balance, nil
}
