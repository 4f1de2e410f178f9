package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// SniperRepo persists per-user auto-buy settings.
type SniperRepo struct {
	col *mongo.Collection
}

type sniperDoc struct {
	DiscordID            string  `bson:"discordId"`
	IsSniping            bool    `bson:"isSniping"`
	BuyAmount            string  `bson:"buyAmount"`
	RequireVerified      bool    `bson:"requireVerified"`
	RequireHoneypotCheck bool    `bson:"requireHoneypotCheck"`
	RequireLiquidityLock bool    `bson:"requireLiquidityLock"`
	AllowPrevContracts   bool    `bson:"allowPrevContracts"`
	MinimumLiquidity     string  `bson:"minimumLiquidity"`
	MaximumBuyTax        float64 `bson:"maximumBuyTax"`
	MaximumSellTax       float64 `bson:"maximumSellTax"`
	TopHolderThreshold   int     `bson:"topHolderThreshold"`
	MinimumLockedLiq     string  `bson:"minimumLockedLiq"`
}

func bigOrZero(s string) *big.Int {
	if v, ok := new(big.Int).SetString(s, 10); ok {
		return v
	}
	return new(big.Int)
}

func strOrZero(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func sniperToDoc(discordID string, s *domain.AutoBuySettings) sniperDoc {
	return sniperDoc{
		DiscordID:            discordID,
		IsSniping:            s.Sniping,
		BuyAmount:            strOrZero(s.BuyAmount),
		RequireVerified:      s.RequireVerified,
		RequireHoneypotCheck: s.RequireHoneypotCheck,
		RequireLiquidityLock: s.RequireLiquidityLock,
		AllowPrevContracts:   s.AllowPrevContracts,
		MinimumLiquidity:     strOrZero(s.MinimumLiquidity),
		MaximumBuyTax:        s.MaximumBuyTax,
		MaximumSellTax:       s.MaximumSellTax,
		TopHolderThreshold:   s.TopHolderThreshold,
		MinimumLockedLiq:     strOrZero(s.MinimumLockedLiquidity),
	}
}

func (d sniperDoc) toDomain() *domain.AutoBuySettings {
	return &domain.AutoBuySettings{
		Sniping:                d.IsSniping,
		RequireVerified:        d.RequireVerified,
		RequireHoneypotCheck:   d.RequireHoneypotCheck,
		RequireLiquidityLock:   d.RequireLiquidityLock,
		AllowPrevContracts:     d.AllowPrevContracts,
		BuyAmount:              bigOrZero(d.BuyAmount),
		MinimumLiquidity:       bigOrZero(d.MinimumLiquidity),
		MaximumBuyTax:          d.MaximumBuyTax,
		MaximumSellTax:         d.MaximumSellTax,
		MinimumLockedLiquidity: bigOrZero(d.MinimumLockedLiq),
		TopHolderThreshold:     d.TopHolderThreshold,
	}
}

// Upsert writes a user's settings.
func (r *SniperRepo) Upsert(ctx context.Context, discordUserID string, s *domain.AutoBuySettings) error {
	filter := bson.M{"discordId": discordUserID}
	update := bson.M{"$set": sniperToDoc(discordUserID, s)}
	if _, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true)); err != nil {
		return fmt.Errorf("failed to upsert sniper settings for %s: %w", discordUserID, err)
	}
	return nil
}

// Fetch loads a user's settings, nil when none are stored.
func (r *SniperRepo) Fetch(ctx context.Context, discordUserID string) (*domain.AutoBuySettings, error) {
	var doc sniperDoc
	err := r.col.FindOne(ctx, bson.M{"discordId": discordUserID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sniper settings for %s: %w", discordUserID, err)
	}
	return doc.toDomain(), nil
}

// FetchAll loads every stored settings document keyed by Discord ID.
func (r *SniperRepo) FetchAll(ctx context.Context) (map[string]*domain.AutoBuySettings, error) {
	cursor, err := r.col.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sniper settings: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []sniperDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode sniper settings: %w", err)
	}

	all := make(map[string]*domain.AutoBuySettings, len(docs))
	for _, d := range docs {
		all[d.DiscordID] = d.toDomain()
	}
	return all, nil
}

// Remove deletes a user's settings.
func (r *SniperRepo) Remove(ctx context.Context, discordUserID string) error {
	if _, err := r.col.DeleteOne(ctx, bson.M{"discordId": discordUserID}); err != nil {
		return fmt.Errorf("failed to remove sniper settings for %s: %w", discordUserID, err)
	}
	return nil
}
