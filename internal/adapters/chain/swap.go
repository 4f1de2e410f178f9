package chain

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
)

// SwapReader reads swap-contract state that needs no wallet: the referral
// codes the contract keeps per Discord ID.
type SwapReader struct {
	client       *Client
	swapContract common.Address
}

// NewSwapReader binds the swap contract address.
func NewSwapReader(client *Client, swapContract string) *SwapReader {
	return &SwapReader{
		client:       client,
		swapContract: common.HexToAddress(swapContract),
	}
}

// ReferralCode reads the user's code from the swap contract. An unregistered
// user resolves to the empty string.
func (s *SwapReader) ReferralCode(ctx context.Context, discordUserID string) (string, error) {
	data, err := swapABI.Pack("getReferralCode", discordUserID)
	if err != nil {
		return "", fmt.Errorf("failed to pack getReferralCode call: %w", err)
	}
	result, err := s.client.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &s.swapContract,
		Data: data,
	}, nil)
	if err != nil {
		return "", fmt.Errorf("failed to call getReferralCode: %w", err)
	}
	var code string
	if err := swapABI.UnpackIntoInterface(&code, "getReferralCode", result); err != nil {
		return "", fmt.Errorf("failed to unpack getReferralCode result: %w", err)
	}
	return code, nil
}
