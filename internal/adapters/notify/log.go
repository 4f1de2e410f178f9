package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// LogNotifier writes events to the structured log. It is the fallback sink
// when no gateway or bus is configured, and doubles as the audit trail in
// front of the other sinks.
type LogNotifier struct {
	log *logrus.Logger
}

func NewLogNotifier(log *logrus.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Stage(_ context.Context, discordUserID string, stage domain.Stage, detail string) {
	n.log.WithFields(logrus.Fields{
		"user":  discordUserID,
		"stage": stage,
	}).Debug(detail)
}

func (n *LogNotifier) TradeExecuted(_ context.Context, rec *domain.TradeRecord) {
	n.log.WithFields(logrus.Fields{
		"user":   rec.DiscordUserID,
		"mode":   rec.Mode,
		"token":  rec.TokenAddress,
		"symbol": rec.TokenSymbol,
		"tx":     rec.TxHash,
		"amount": bigString(rec.TradeAmount),
		"result": bigString(rec.TradeResult),
	}).Info("trade executed")
}

func (n *LogNotifier) PnLComputed(_ context.Context, rec *domain.TradeRecord, report *domain.PnLReport) {
	n.log.WithFields(logrus.Fields{
		"user":    rec.DiscordUserID,
		"token":   rec.TokenAddress,
		"tx":      rec.TxHash,
		"pnl":     bigString(report.Amount),
		"percent": report.Percent,
	}).Info("pnl computed")
}
