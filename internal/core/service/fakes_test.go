package service

import (
	"context"
	"math/big"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/ksankkaaii/discord-bot-on-ethereum/internal/core/domain"
)

func testLog() *logrus.Entry {
	log := logrus.New()
	log.SetLevel(logrus.PanicLevel)
	return logrus.NewEntry(log)
}

func wei(v int64) *big.Int { return big.NewInt(v) }

func ether(v int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(v), big.NewInt(1e18))
}

type fakeContract struct {
	address     string
	symbol      string
	decimals    uint8
	totalSupply *big.Int
	balances    map[string]*big.Int
	maxWallet   *big.Int
	maxWalletOK bool

	symbolErr  error
	balanceErr error
}

func (f *fakeContract) Address() string { return f.address }

func (f *fakeContract) Symbol(context.Context) (string, error) {
	return f.symbol, f.symbolErr
}

func (f *fakeContract) Decimals(context.Context) (uint8, error) { return f.decimals, nil }

func (f *fakeContract) TotalSupply(context.Context) (*big.Int, error) {
	return f.totalSupply, nil
}

func (f *fakeContract) BalanceOf(_ context.Context, owner string) (*big.Int, error) {
	if f.balanceErr != nil {
		return nil, f.balanceErr
	}
	if b, ok := f.balances[owner]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (f *fakeContract) MaxWalletLimit(context.Context) (*big.Int, bool, error) {
	return f.maxWallet, f.maxWalletOK, nil
}

type fakeBinder struct {
	contract *fakeContract
	err      error
	binds    int
}

func (f *fakeBinder) Bind(string) (domain.TokenContract, error) {
	f.binds++
	if f.err != nil {
		return nil, f.err
	}
	return f.contract, nil
}

type fakeChain struct {
	block    uint64
	code     []byte
	codeErr  error
	balances map[string]*big.Int
	txCounts map[string]uint64
	txBlocks map[string]uint64
}

func (f *fakeChain) CurrentBlock() uint64 { return f.block }

func (f *fakeChain) Code(context.Context, string) ([]byte, error) {
	return f.code, f.codeErr
}

func (f *fakeChain) NativeBalance(_ context.Context, address string) (*big.Int, error) {
	if b, ok := f.balances[address]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (f *fakeChain) TransactionCount(_ context.Context, address string) (uint64, error) {
	return f.txCounts[address], nil
}

func (f *fakeChain) TransactionBlock(_ context.Context, txHash string) (uint64, error) {
	return f.txBlocks[txHash], nil
}

type fakeDex struct {
	pair      string
	liquidity *big.Int
	pairErr   error
	liqErr    error
	liqCalls  int
}

func (f *fakeDex) PairFor(context.Context, string) (string, error) {
	return f.pair, f.pairErr
}

func (f *fakeDex) NativeLiquidity(context.Context, string) (*big.Int, error) {
	f.liqCalls++
	return f.liquidity, f.liqErr
}

type fakeProber struct {
	probe *domain.HoneypotProbe
	err   error
	calls int
}

func (f *fakeProber) Probe(context.Context, string, string) (*domain.HoneypotProbe, error) {
	f.calls++
	return f.probe, f.err
}

type fakeExplorer struct {
	verified bool
	creation *domain.ContractCreation
	holders  []domain.TokenHolder

	creationErr error
	holdersErr  error

	creationCalls int
}

func (f *fakeExplorer) IsVerified(context.Context, string) (bool, error) {
	return f.verified, nil
}

func (f *fakeExplorer) ContractCreation(context.Context, string) (*domain.ContractCreation, error) {
	f.creationCalls++
	return f.creation, f.creationErr
}

func (f *fakeExplorer) TokenHolders(context.Context, string, int, int) ([]domain.TokenHolder, error) {
	return f.holders, f.holdersErr
}

type fakeOracle struct {
	usd float64
	err error
}

func (f *fakeOracle) EthUSD(context.Context) (float64, error) { return f.usd, f.err }

type fakeLocker struct {
	name   string
	amount *big.Int
	err    error
}

func (f *fakeLocker) Name() string { return f.name }

func (f *fakeLocker) LockedAmount(context.Context, string) (*big.Int, error) {
	return f.amount, f.err
}

type fakeTokenStore struct {
	mu      sync.Mutex
	upserts int
	err     error
}

func (f *fakeTokenStore) Upsert(context.Context, *domain.TokenRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upserts++
	return f.err
}

func (f *fakeTokenStore) Find(context.Context, string) (*domain.TokenRecord, error) {
	return nil, nil
}

type fakeLedger struct {
	trades   []domain.TradeRecord
	readErr  error
	appended []*domain.TradeRecord
}

func (f *fakeLedger) Append(_ context.Context, rec *domain.TradeRecord) error {
	f.appended = append(f.appended, rec)
	return nil
}

func (f *fakeLedger) TradesFor(context.Context, string, string) ([]domain.TradeRecord, error) {
	return f.trades, f.readErr
}

func (f *fakeLedger) FindByTx(_ context.Context, txHash string) (*domain.TradeRecord, error) {
	for i := range f.trades {
		if f.trades[i].TxHash == txHash {
			return &f.trades[i], nil
		}
	}
	return nil, nil
}

type fakeSniperStore struct {
	settings map[string]*domain.AutoBuySettings
}

func newFakeSniperStore() *fakeSniperStore {
	return &fakeSniperStore{settings: make(map[string]*domain.AutoBuySettings)}
}

func (f *fakeSniperStore) Upsert(_ context.Context, id string, s *domain.AutoBuySettings) error {
	f.settings[id] = s
	return nil
}

func (f *fakeSniperStore) Fetch(_ context.Context, id string) (*domain.AutoBuySettings, error) {
	return f.settings[id], nil
}

func (f *fakeSniperStore) FetchAll(context.Context) (map[string]*domain.AutoBuySettings, error) {
	return f.settings, nil
}

func (f *fakeSniperStore) Remove(_ context.Context, id string) error {
	delete(f.settings, id)
	return nil
}

type fakeReferral struct {
	code string
	err  error
}

func (f *fakeReferral) InviterCode(context.Context, string) (string, error) {
	return f.code, f.err
}

type fakeNotifier struct {
	mu     sync.Mutex
	stages []domain.Stage
	trades []*domain.TradeRecord
	pnls   []*domain.PnLReport
}

func (f *fakeNotifier) Stage(_ context.Context, _ string, stage domain.Stage, _ string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stages = append(f.stages, stage)
}

func (f *fakeNotifier) TradeExecuted(_ context.Context, rec *domain.TradeRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, rec)
}

func (f *fakeNotifier) PnLComputed(_ context.Context, _ *domain.TradeRecord, report *domain.PnLReport) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pnls = append(f.pnls, report)
}

type fakeAccount struct {
	address   string
	native    *big.Int
	tokens    map[string]*big.Int
	allowance *big.Int

	approveHash string
	estimate    uint64
	submitHash  string

	estimateErr error
	submitErr   error

	allowanceCalls int
	approveCalls   int
	estimateCalls  int
	submitCalls    int

	lastAmount   *big.Int
	lastGasLimit uint64
	lastSelling  bool

	// balance deltas applied after a submitted swap so the result stage sees
	// the post-trade state.
	nativeAfter *big.Int
	tokenAfter  *big.Int
	tokenAddr   string
}

func (f *fakeAccount) Address() string { return f.address }

func (f *fakeAccount) NativeBalance(context.Context) (*big.Int, error) {
	if f.submitCalls > 0 && f.nativeAfter != nil {
		return f.nativeAfter, nil
	}
	return f.native, nil
}

func (f *fakeAccount) TokenBalance(_ context.Context, token string) (*big.Int, error) {
	if f.submitCalls > 0 && f.tokenAfter != nil && token == f.tokenAddr {
		return f.tokenAfter, nil
	}
	if b, ok := f.tokens[token]; ok {
		return b, nil
	}
	return new(big.Int), nil
}

func (f *fakeAccount) Allowance(context.Context, string) (*big.Int, error) {
	f.allowanceCalls++
	if f.allowance == nil {
		return new(big.Int), nil
	}
	return f.allowance, nil
}

func (f *fakeAccount) Approve(context.Context, string) (string, error) {
	f.approveCalls++
	return f.approveHash, nil
}

func (f *fakeAccount) EstimateSwapGas(context.Context, bool, string, string, string, *big.Int) (uint64, error) {
	f.estimateCalls++
	return f.estimate, f.estimateErr
}

func (f *fakeAccount) SubmitSwap(_ context.Context, selling bool, _, _, _ string, amount *big.Int, gasLimit uint64) (string, error) {
	f.submitCalls++
	f.lastSelling = selling
	f.lastAmount = amount
	f.lastGasLimit = gasLimit
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return f.submitHash, nil
}

type fakeWaiter struct {
	receipt *domain.Receipt
	err     error
}

func (f *fakeWaiter) WaitMined(context.Context, string) (*domain.Receipt, error) {
	return f.receipt, f.err
}
