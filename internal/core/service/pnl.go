package service

import (
	"context"
	"math"
	"math/big"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// PnLEngine reconstructs a cost basis from the trade ledger to evaluate a
// sale. The netting uses aggregate sold/bought counters rather than per-lot
// queues; interleaved histories are matched oldest-sold-first against each
// buy as it is walked.
type PnLEngine struct {
	ledger domain.TradeLedger
	log    *logrus.Entry
}

func NewPnLEngine(ledger domain.TradeLedger, log *logrus.Entry) *PnLEngine {
	return &PnLEngine{ledger: ledger, log: log}
}

// RealizedPnL evaluates a sale of sellingTokens base units that realized
// proceeds wei. excludeTxHash skips the sale's own just-appended ledger
// record so it does not net against the buys that funded it.
func (e *PnLEngine) RealizedPnL(ctx context.Context, discordUserID, tokenAddress string, proceeds, sellingTokens *big.Int, decimals uint8, excludeTxHash string) (*domain.PnLReport, error) {
	trades, err := e.ledger.TradesFor(ctx, discordUserID, tokenAddress)
	if err != nil {
		return nil, &domain.UpstreamError{Source: "trade ledger", Token: tokenAddress, Err: err}
	}

	var (
		sold       = new(big.Int)
		bought     = new(big.Int)
		boughtFull = new(big.Int)
		paidFull   = new(big.Int)
	)

	for _, t := range trades {
		if t.TxHash == excludeTxHash {
			continue
		}
		if t.Mode == domain.TradeModeSell {
			sold.Add(sold, t.TradeAmount)
		} else {
			paidFull.Add(paidFull, t.TradeAmount)
			boughtFull.Add(boughtFull, t.TradeResult)

			// Net earlier sales against this buy's acquired quantity first.
			if sold.Cmp(t.TradeResult) > 0 {
				sold.Sub(sold, t.TradeResult)
			} else {
				bought.Add(bought, new(big.Int).Sub(t.TradeResult, sold))
				sold.SetInt64(0)
			}
		}

		if bought.Cmp(sellingTokens) >= 0 {
			bought.Set(sellingTokens)
			break
		}
	}

	if bought.Sign() <= 0 {
		// Selling tokens never bought through the bot.
		return &domain.PnLReport{
			Amount:        new(big.Int).Set(proceeds),
			Percent:       math.Inf(1),
			CostBasis:     new(big.Int),
			MatchedTokens: new(big.Int),
		}, nil
	}

	// Prorate the full paid amount by whole-token quantity ratios, ceiling
	// each quantity before the divide/multiply.
	costBasis := new(big.Int).Div(paidFull, ceilWholeTokens(boughtFull, decimals))
	costBasis.Mul(costBasis, ceilWholeTokens(bought, decimals))

	var pnl *big.Int
	if bought.Cmp(sellingTokens) < 0 {
		// Part of the sale came from tokens acquired outside the bot; only
		// the matched share of the proceeds counts.
		profit := new(big.Int).Div(proceeds, ceilWholeTokens(sellingTokens, decimals))
		profit.Mul(profit, ceilWholeTokens(bought, decimals))
		pnl = profit.Sub(profit, costBasis)
	} else {
		pnl = new(big.Int).Sub(proceeds, costBasis)
	}

	percent := math.Inf(1)
	if costBasis.Sign() > 0 {
		pnlF, _ := new(big.Float).SetInt(pnl).Float64()
		basisF, _ := new(big.Float).SetInt(costBasis).Float64()
		percent = math.Round(pnlF / basisF * 100)
	}

	return &domain.PnLReport{
		Amount:        pnl,
		Percent:       percent,
		CostBasis:     costBasis,
		MatchedTokens: bought,
	}, nil
}

// ceilWholeTokens converts base units to whole tokens, rounding up. Zero in,
// zero out; any positive fraction rounds to at least one.
func ceilWholeTokens(v *big.Int, decimals uint8) *big.Int {
	unit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	q, r := new(big.Int).QuoRem(v, unit, new(big.Int))
	if r.Sign() > 0 {
		q.Add(q, big.NewInt(1))
	}
	return q
}
