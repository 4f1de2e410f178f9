package chain

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sirupsen/logrus"
)

var pairCreatedTopic = crypto.Keccak256Hash([]byte("PairCreated(address,address,address,uint256)"))

// PairWatcher polls the factory for PairCreated logs and reports the token
// side of every new WETH pair. Pairs without a WETH leg are skipped.
type PairWatcher struct {
	client  *Client
	factory common.Address
	weth    common.Address
	log     *logrus.Entry
}

// NewPairWatcher watches the given factory for new WETH pairs.
func NewPairWatcher(client *Client, factoryAddress, wethAddress string, log *logrus.Entry) *PairWatcher {
	return &PairWatcher{
		client:  client,
		factory: common.HexToAddress(factoryAddress),
		weth:    common.HexToAddress(wethAddress),
		log:     log,
	}
}

// Run blocks until ctx is canceled, invoking handle for every new token. The
// scan starts at the chain head at call time; handle runs on the watcher
// goroutine, so long handlers delay the next poll.
func (w *PairWatcher) Run(ctx context.Context, interval time.Duration, handle func(ctx context.Context, tokenAddress string)) {
	last := w.client.CurrentBlock()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			head := w.client.CurrentBlock()
			if head <= last {
				continue
			}
			for _, token := range w.scan(ctx, last+1, head) {
				handle(ctx, token)
			}
			last = head
		}
	}
}

func (w *PairWatcher) scan(ctx context.Context, from, to uint64) []string {
	logs, err := w.client.eth.FilterLogs(ctx, ethereum.FilterQuery{
		FromBlock: new(big.Int).SetUint64(from),
		ToBlock:   new(big.Int).SetUint64(to),
		Addresses: []common.Address{w.factory},
		Topics:    [][]common.Hash{{pairCreatedTopic}},
	})
	if err != nil {
		w.log.WithError(err).Debug("pair log scan failed")
		return nil
	}

	var tokens []string
	for _, entry := range logs {
		if len(entry.Topics) < 3 {
			continue
		}
		token0 := common.HexToAddress(entry.Topics[1].Hex())
		token1 := common.HexToAddress(entry.Topics[2].Hex())
		switch w.weth {
		case token0:
			tokens = append(tokens, token1.Hex())
		case token1:
			tokens = append(tokens, token0.Hex())
		}
	}
	return tokens
}
