package notify

import (
	"math/big"
	"time"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// Event kinds published on the bus. The presentation layer switches on Kind
// to pick the message template.
const (
	kindStage = "trade.stage"
	kindTrade = "trade.executed"
	kindPnL   = "trade.pnl"
)

type event struct {
	Kind   string      `json:"kind"`
	UserID string      `json:"userId,omitempty"`
	Stage  string      `json:"stage,omitempty"`
	Detail string      `json:"detail,omitempty"`
	Trade  *tradeEvent `json:"trade,omitempty"`
	PnL    *pnlEvent   `json:"pnl,omitempty"`
	At     int64       `json:"at"`
}

type tradeEvent struct {
	Mode        string `json:"mode"`
	Token       string `json:"tokenAddress"`
	Symbol      string `json:"tokenSymbol"`
	Wallet      string `json:"walletAddress"`
	TxHash      string `json:"txHash"`
	TradeAmount string `json:"tradeAmount"`
	TradeResult string `json:"tradeResult"`
	Sort        string `json:"sort"`
}

type pnlEvent struct {
	Amount    string  `json:"amount"`
	Percent   float64 `json:"percent"`
	CostBasis string  `json:"costBasis"`
}

func stageEvent(userID string, stage domain.Stage, detail string) event {
	return event{
		Kind:   kindStage,
		UserID: userID,
		Stage:  string(stage),
		Detail: detail,
		At:     time.Now().UnixMilli(),
	}
}

func executedEvent(rec *domain.TradeRecord) event {
	return event{
		Kind:   kindTrade,
		UserID: rec.DiscordUserID,
		Trade: &tradeEvent{
			Mode:        string(rec.Mode),
			Token:       rec.TokenAddress,
			Symbol:      rec.TokenSymbol,
			Wallet:      rec.WalletAddress,
			TxHash:      rec.TxHash,
			TradeAmount: bigString(rec.TradeAmount),
			TradeResult: bigString(rec.TradeResult),
			Sort:        string(rec.Sort),
		},
		At: time.Now().UnixMilli(),
	}
}

func pnlEventFor(rec *domain.TradeRecord, report *domain.PnLReport) event {
	ev := executedEvent(rec)
	ev.Kind = kindPnL
	ev.PnL = &pnlEvent{
		Amount:    bigString(report.Amount),
		Percent:   report.Percent,
		CostBasis: bigString(report.CostBasis),
	}
	return ev
}

func bigString(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}
