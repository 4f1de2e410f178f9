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

// TokenRepo persists token records keyed by address.
type TokenRepo struct {
	col *mongo.Collection
}

type tokenDoc struct {
	TokenAddress   string  `bson:"tokenAddress"`
	Pair           string  `bson:"pair"`
	Symbol         string  `bson:"symbol"`
	Decimals       uint8   `bson:"decimals"`
	Honeypot       bool    `bson:"honeypot"`
	BuyTax         float64 `bson:"buyTax"`
	SellTax        float64 `bson:"sellTax"`
	TaxKnown       bool    `bson:"taxKnown"`
	Verified       bool    `bson:"verified"`
	SecurityScore  int     `bson:"securityScore"`
	Scored         bool    `bson:"scored"`
	CreatorAddress string  `bson:"creatorAddress,omitempty"`
	CreationBlock  uint64  `bson:"creationBlock,omitempty"`
	LockedLiq      string  `bson:"lockedLiquidity,omitempty"`
	UpdateAt       uint64  `bson:"updateAt"`
	UpdateFrom3rd  int64   `bson:"updateFrom3rdAt"`
}

func tokenToDoc(rec *domain.TokenRecord) tokenDoc {
	doc := tokenDoc{
		TokenAddress:   rec.Address,
		Pair:           rec.Pair,
		Symbol:         rec.Symbol,
		Decimals:       rec.Decimals,
		Honeypot:       rec.Honeypot,
		BuyTax:         rec.BuyTax,
		SellTax:        rec.SellTax,
		TaxKnown:       rec.TaxKnown,
		Verified:       rec.Verified,
		SecurityScore:  rec.SecurityScore,
		Scored:         rec.Scored,
		CreatorAddress: rec.CreatorAddress,
		CreationBlock:  rec.CreationBlock,
		UpdateAt:       rec.LastOnchainUpdateBlock,
		UpdateFrom3rd:  rec.LastThirdPartyUpdateAt,
	}
	if rec.LockedLiquidity != nil {
		doc.LockedLiq = rec.LockedLiquidity.String()
	}
	return doc
}

func (d tokenDoc) toDomain() *domain.TokenRecord {
	rec := &domain.TokenRecord{
		Address:                d.TokenAddress,
		Pair:                   d.Pair,
		Symbol:                 d.Symbol,
		Decimals:               d.Decimals,
		Honeypot:               d.Honeypot,
		BuyTax:                 d.BuyTax,
		SellTax:                d.SellTax,
		TaxKnown:               d.TaxKnown,
		Verified:               d.Verified,
		SecurityScore:          d.SecurityScore,
		Scored:                 d.Scored,
		CreatorAddress:         d.CreatorAddress,
		CreationBlock:          d.CreationBlock,
		CreatorResolved:        d.CreatorAddress != "",
		LastOnchainUpdateBlock: d.UpdateAt,
		LastThirdPartyUpdateAt: d.UpdateFrom3rd,
	}
	if d.LockedLiq != "" {
		if v, ok := new(big.Int).SetString(d.LockedLiq, 10); ok {
			rec.LockedLiquidity = v
		}
	}
	return rec
}

// Upsert writes the persistable slice of a record.
func (r *TokenRepo) Upsert(ctx context.Context, rec *domain.TokenRecord) error {
	filter := bson.M{"tokenAddress": rec.Address}
	update := bson.M{"$set": tokenToDoc(rec)}
	_, err := r.col.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert token %s: %w", rec.Address, err)
	}
	return nil
}

// Find loads a record by address, nil when unknown.
func (r *TokenRepo) Find(ctx context.Context, address string) (*domain.TokenRecord, error) {
	var doc tokenDoc
	err := r.col.FindOne(ctx, bson.M{"tokenAddress": address}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find token %s: %w", address, err)
	}
	return doc.toDomain(), nil
}
