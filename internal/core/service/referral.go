package service

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// zeroInviteCode is the sentinel referral code meaning "no inviter".
const zeroInviteCode = "0x0000000000000000"

// ReferralService resolves the invite code credited on a trade: the inviter's
// stored code from the accounts collection first, then the swap contract's
// record for the inviter, then the all-zero sentinel.
type ReferralService struct {
	accounts domain.AccountDirectory
	codes    domain.ReferralCodeReader
	log      *logrus.Entry
}

func NewReferralService(accounts domain.AccountDirectory, codes domain.ReferralCodeReader, log *logrus.Entry) *ReferralService {
	return &ReferralService{accounts: accounts, codes: codes, log: log}
}

// InviterCode implements domain.ReferralResolver. A failed swap-contract read
// degrades to the sentinel: referral attribution is never worth failing a
// trade over.
func (r *ReferralService) InviterCode(ctx context.Context, discordUserID string) (string, error) {
	inviterID, code, err := r.accounts.Inviter(ctx, discordUserID)
	if err != nil {
		return "", err
	}
	if inviterID == "" {
		return zeroInviteCode, nil
	}
	if code != "" {
		return code, nil
	}

	code, err = r.codes.ReferralCode(ctx, inviterID)
	if err != nil {
		r.log.WithError(err).WithField("inviter", inviterID).Warn("swap contract code lookup failed")
		return zeroInviteCode, nil
	}
	if code == "" {
		return zeroInviteCode, nil
	}
	return code, nil
}
