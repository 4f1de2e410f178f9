// Package store implements the document-store persistence collaborators on
// MongoDB. Amount fields cross the wire as decimal strings so arbitrary-
// precision values survive the round trip.
package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const (
	tokenCollection   = "tokendata"
	tradeCollection   = "tradehistory"
	sniperCollection  = "snipersettings"
	accountCollection = "accounts"
)

// Store owns the Mongo client and hands out repositories.
type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

// Connect dials Mongo and verifies the connection with a ping.
func Connect(ctx context.Context, uri, database string) (*Store, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongo ping failed: %w", err)
	}

	return &Store{client: client, db: client.Database(database)}, nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Tokens returns the token-record repository.
func (s *Store) Tokens() *TokenRepo {
	return &TokenRepo{col: s.db.Collection(tokenCollection)}
}

// Trades returns the trade-ledger repository.
func (s *Store) Trades() *TradeRepo {
	return &TradeRepo{col: s.db.Collection(tradeCollection)}
}

// Snipers returns the auto-buy settings repository.
func (s *Store) Snipers() *SniperRepo {
	return &SniperRepo{col: s.db.Collection(sniperCollection)}
}

// Accounts returns the account repository used for referral resolution.
func (s *Store) Accounts() *AccountRepo {
	return &AccountRepo{col: s.db.Collection(accountCollection)}
}
