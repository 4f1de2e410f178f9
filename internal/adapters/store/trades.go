package store

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// TradeRepo is the append-only trade ledger.
type TradeRepo struct {
	col *mongo.Collection
}

type tradeDoc struct {
	DiscordID     string    `bson:"discordId"`
	WalletAddress string    `bson:"walletAddress"`
	TradeMode     string    `bson:"tradeMode"`
	TokenAddress  string    `bson:"tokenAddress"`
	TradeAmount   string    `bson:"tradeAmount"`
	Transaction   string    `bson:"transaction"`
	TradePrice    string    `bson:"tradePrice"`
	TradeAt       time.Time `bson:"tradeAt"`
	TokenSymbol   string    `bson:"tokenSymbol"`
	TokenDecimals uint8     `bson:"tokenDecimals"`
	TradeResult   string    `bson:"tradeResult"`
	TradeSort     string    `bson:"tradeSort"`
}

func tradeToDoc(rec *domain.TradeRecord) tradeDoc {
	doc := tradeDoc{
		DiscordID:     rec.DiscordUserID,
		WalletAddress: rec.WalletAddress,
		TradeMode:     string(rec.Mode),
		TokenAddress:  rec.TokenAddress,
		Transaction:   rec.TxHash,
		TradeAt:       rec.ExecutedAt,
		TokenSymbol:   rec.TokenSymbol,
		TokenDecimals: rec.TokenDecimals,
		TradeSort:     string(rec.Sort),
		TradeAmount:   "0",
		TradePrice:    "0",
		TradeResult:   "0",
	}
	if rec.TradeAmount != nil {
		doc.TradeAmount = rec.TradeAmount.String()
	}
	if rec.TradePrice != nil {
		doc.TradePrice = rec.TradePrice.String()
	}
	if rec.TradeResult != nil {
		doc.TradeResult = rec.TradeResult.String()
	}
	return doc
}

func (d tradeDoc) toDomain() domain.TradeRecord {
	rec := domain.TradeRecord{
		DiscordUserID: d.DiscordID,
		WalletAddress: d.WalletAddress,
		Mode:          domain.TradeMode(d.TradeMode),
		TokenAddress:  d.TokenAddress,
		TxHash:        d.Transaction,
		ExecutedAt:    d.TradeAt,
		TokenSymbol:   d.TokenSymbol,
		TokenDecimals: d.TokenDecimals,
		Sort:          domain.TradeSort(d.TradeSort),
	}
	rec.TradeAmount, _ = new(big.Int).SetString(d.TradeAmount, 10)
	rec.TradePrice, _ = new(big.Int).SetString(d.TradePrice, 10)
	rec.TradeResult, _ = new(big.Int).SetString(d.TradeResult, 10)
	return rec
}

// Append inserts a new immutable record.
func (r *TradeRepo) Append(ctx context.Context, rec *domain.TradeRecord) error {
	if _, err := r.col.InsertOne(ctx, tradeToDoc(rec)); err != nil {
		return fmt.Errorf("failed to append trade %s: %w", rec.TxHash, err)
	}
	return nil
}

// TradesFor returns a user's trades for one token, oldest first.
func (r *TradeRepo) TradesFor(ctx context.Context, discordUserID, tokenAddress string) ([]domain.TradeRecord, error) {
	filter := bson.M{"discordId": discordUserID, "tokenAddress": tokenAddress}
	cursor, err := r.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "tradeAt", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch trades for user %s, token %s: %w", discordUserID, tokenAddress, err)
	}
	defer cursor.Close(ctx)

	var docs []tradeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode trades for user %s: %w", discordUserID, err)
	}

	records := make([]domain.TradeRecord, 0, len(docs))
	for _, d := range docs {
		records = append(records, d.toDomain())
	}
	return records, nil
}

// FindByTx loads the record of one confirmed transaction, nil when absent.
func (r *TradeRepo) FindByTx(ctx context.Context, txHash string) (*domain.TradeRecord, error) {
	var doc tradeDoc
	err := r.col.FindOne(ctx, bson.M{"transaction": txHash}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find trade %s: %w", txHash, err)
	}
	rec := doc.toDomain()
	return &rec, nil
}
