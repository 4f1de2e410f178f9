package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// AccountRepo reads the accounts collection maintained by the presentation
// layer. The core only needs it for referral resolution; wallet custody stays
// outside this module.
type AccountRepo struct {
	col *mongo.Collection
}

type accountDoc struct {
	DiscordID  string `bson:"discordId"`
	Inviter    string `bson:"inviter,omitempty"`
	InviteCode string `bson:"inviteCode,omitempty"`
}

// Inviter returns the user's inviter ID and that inviter's stored invite
// code. Both are empty when the user has no inviter; the code alone is empty
// when the inviter has no stored code.
func (r *AccountRepo) Inviter(ctx context.Context, discordUserID string) (string, string, error) {
	user, err := r.find(ctx, discordUserID)
	if err != nil {
		return "", "", err
	}
	if user == nil || user.Inviter == "" {
		return "", "", nil
	}

	inviter, err := r.find(ctx, user.Inviter)
	if err != nil {
		return "", "", err
	}
	if inviter == nil {
		return user.Inviter, "", nil
	}
	return user.Inviter, inviter.InviteCode, nil
}

func (r *AccountRepo) find(ctx context.Context, discordUserID string) (*accountDoc, error) {
	var doc accountDoc
	err := r.col.FindOne(ctx, bson.M{"discordId": discordUserID}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find account %s: %w", discordUserID, err)
	}
	return &doc, nil
}
