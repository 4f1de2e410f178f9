package service

import (
	"context"
	"encoding/hex"
	"math/big"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

// denylistedSelectors are 4-byte function selectors of owner-controlled
// blacklist mechanics. A token whose bytecode contains any of them can freeze
// holders at will, so a match vetoes the score outright.
var denylistedSelectors = []string{
	"0x0ecb93c0", // addBlackList(address)
	"0xe4997dc5", // removeBlackList(address)
	"0xf9f92be4", // blacklist(address)
	"0xf3bdc228", // destroyBlackFunds(address)
	"0x59bf1abe", // getBlackListStatus(address)
}

var fiveEther = new(big.Int).Mul(big.NewInt(5), big.NewInt(1e18))

// SecurityScorer rates a token 0..4. One point per passed check; a denylisted
// selector in the deployed bytecode vetoes the whole score.
type SecurityScorer struct {
	chain domain.ChainReader
	log   *logrus.Entry
}

func NewSecurityScorer(chain domain.ChainReader, log *logrus.Entry) *SecurityScorer {
	return &SecurityScorer{chain: chain, log: log}
}

// Score returns (score, ok). ok is false when the bytecode veto fired; the
// returned score is then meaningless.
func (s *SecurityScorer) Score(ctx context.Context, token domain.TokenContract, ethLiquidity *big.Int, verified bool) (int, bool, error) {
	code, err := s.chain.Code(ctx, token.Address())
	if err != nil {
		return 0, false, &domain.UpstreamError{Source: "node", Token: token.Address(), Err: err}
	}

	bytecode := strings.ToLower(hex.EncodeToString(code))
	for _, selector := range denylistedSelectors {
		needle := strings.ToLower(strings.TrimPrefix(selector, "0x"))
		if strings.Contains(bytecode, needle) {
			s.log.WithFields(logrus.Fields{
				"token":    token.Address(),
				"selector": selector,
			}).Warn("denylisted selector found in bytecode")
			return 0, false, nil
		}
	}

	score := 0

	if ethLiquidity != nil && ethLiquidity.Cmp(fiveEther) >= 0 {
		score++
	}

	if capped, err := s.maxWalletWithinLimit(ctx, token); err != nil {
		s.log.WithError(err).WithField("token", token.Address()).Warn("max-wallet check failed")
	} else if capped {
		score++
	}

	// The veto scan above came up empty.
	score++

	if verified {
		score++
	}

	return score, true, nil
}

// maxWalletWithinLimit reports whether a discovered max-wallet cap is at most
// 2% of total supply. An absent getter counts as no cap, no point.
func (s *SecurityScorer) maxWalletWithinLimit(ctx context.Context, token domain.TokenContract) (bool, error) {
	limit, supported, err := token.MaxWalletLimit(ctx)
	if err != nil {
		return false, err
	}
	if !supported || limit == nil {
		return false, nil
	}

	totalSupply, err := token.TotalSupply(ctx)
	if err != nil {
		return false, err
	}
	if totalSupply.Sign() <= 0 {
		return false, nil
	}

	// limit/supply <= 2% without losing integer precision.
	lhs := new(big.Int).Mul(limit, big.NewInt(100))
	rhs := new(big.Int).Mul(totalSupply, big.NewInt(2))
	return lhs.Cmp(rhs) <= 0, nil
}
