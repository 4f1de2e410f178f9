package notify

import (
	"context"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// Fanout forwards each event to every configured sink.
type Fanout []domain.Notifier

func (f Fanout) Stage(ctx context.Context, discordUserID string, stage domain.Stage, detail string) {
	for _, n := range f {
		n.Stage(ctx, discordUserID, stage, detail)
	}
}

func (f Fanout) TradeExecuted(ctx context.Context, rec *domain.TradeRecord) {
	for _, n := range f {
		n.TradeExecuted(ctx, rec)
	}
}

func (f Fanout) PnLComputed(ctx context.Context, rec *domain.TradeRecord, report *domain.PnLReport) {
	for _, n := range f {
		n.PnLComputed(ctx, rec, report)
	}
}
