package service

import (
	"context"
	"math/big"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// LockAggregator sums locked liquidity across independent locker contracts.
// Sources are queried concurrently; a failing source contributes zero.
type LockAggregator struct {
	sources []domain.LiquidityLocker
	log     *logrus.Entry
}

func NewLockAggregator(log *logrus.Entry, sources ...domain.LiquidityLocker) *LockAggregator {
	return &LockAggregator{sources: sources, log: log}
}

// Sum never fails: per-source errors are logged and skipped.
func (a *LockAggregator) Sum(ctx context.Context, pair string) *big.Int {
	amounts := make([]*big.Int, len(a.sources))

	g, ctx := errgroup.WithContext(ctx)
	for i, src := range a.sources {
		g.Go(func() error {
			amount, err := src.LockedAmount(ctx, pair)
			if err != nil {
				a.log.WithError(err).WithFields(logrus.Fields{
					"locker": src.Name(),
					"pair":   pair,
				}).Warn("locker lookup failed, counting zero")
				return nil
			}
			amounts[i] = amount
			return nil
		})
	}
	_ = g.Wait()

	total := new(big.Int)
	for _, amount := range amounts {
		if amount != nil {
			total.Add(total, amount)
		}
	}
	return total
}
