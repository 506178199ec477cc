package deploy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	chain "github.com/brojonat/stablemint/service/aptos"
	"github.com/brojonat/stablemint/service/db"
	natspkg "github.com/brojonat/stablemint/service/nats"
)

// fakeChain implements ChainClient and records the operations performed on
// it, in order.
type fakeChain struct {
	calls []string

	fundErr     error
	registerErr error
	mintErr     error
	transferErr error

	// failWaitOn makes WaitForTransaction report an on-chain abort for the
	// given transaction hash.
	failWaitOn string

	// balances maps owner address to balance; absent owners report a
	// missing coin store.
	balances map[string]uint64
}

func (f *fakeChain) Fund(ctx context.Context, address aptosgo.AccountAddress, amount uint64) error {
	if f.fundErr != nil {
		return f.fundErr
	}
	f.calls = append(f.calls, fmt.Sprintf("fund:%d", amount))
	return nil
}

func (f *fakeChain) RegisterCoin(ctx context.Context, sender *aptosgo.Account, coin chain.CoinType) (string, error) {
	if f.registerErr != nil {
		return "", f.registerErr
	}
	f.calls = append(f.calls, "register")
	return "0xregister", nil
}

func (f *fakeChain) MintCoin(ctx context.Context, minter *aptosgo.Account, coin chain.CoinType, receiver aptosgo.AccountAddress, amount uint64) (string, error) {
	if f.mintErr != nil {
		return "", f.mintErr
	}
	f.calls = append(f.calls, fmt.Sprintf("mint:%d", amount))
	return "0xmint", nil
}

func (f *fakeChain) TransferCoins(ctx context.Context, sender *aptosgo.Account, coin chain.CoinType, recipient aptosgo.AccountAddress, amount uint64) (string, error) {
	if f.transferErr != nil {
		return "", f.transferErr
	}
	f.calls = append(f.calls, fmt.Sprintf("transfer:%d", amount))
	return "0xtransfer", nil
}

func (f *fakeChain) Balance(ctx context.Context, coin chain.CoinType, owner aptosgo.AccountAddress) (uint64, error) {
	balance, ok := f.balances[owner.String()]
	if !ok {
		return 0, chain.ErrNoCoinStore
	}
	return balance, nil
}

func (f *fakeChain) WaitForTransaction(ctx context.Context, txnHash string) (*chain.TransactionResult, error) {
	f.calls = append(f.calls, "wait:"+txnHash)
	if txnHash == f.failWaitOn {
		result := &chain.TransactionResult{Hash: txnHash, Success: false, VMStatus: "Move abort"}
		return result, fmt.Errorf("transaction %s aborted on-chain: Move abort", txnHash)
	}
	return &chain.TransactionResult{Hash: txnHash, Success: true, VMStatus: "Executed successfully"}, nil
}

type fakeCompiler struct {
	dirs  []string
	named []map[string]string
	err   error
}

func (f *fakeCompiler) CompilePackage(ctx context.Context, packageDir string, namedAddresses map[string]string) error {
	if f.err != nil {
		return f.err
	}
	f.dirs = append(f.dirs, packageDir)
	f.named = append(f.named, namedAddresses)
	return nil
}

type fakePublisher struct {
	calls int
	err   error
}

func (f *fakePublisher) PublishPackage(ctx context.Context, sender *aptosgo.Account, packageDir string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.calls++
	return "0xpublish", nil
}

type fakeStore struct {
	events []db.RecordEventParams
	err    error
}

func (f *fakeStore) RecordEvent(ctx context.Context, params db.RecordEventParams) (*db.DeploymentEvent, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.events = append(f.events, params)
	return &db.DeploymentEvent{
		ID:        int64(len(f.events)),
		CoinType:  params.CoinType,
		Kind:      params.Kind,
		TxnHash:   params.TxnHash,
		Amount:    params.Amount,
		Recipient: params.Recipient,
		VMStatus:  params.VMStatus,
		Success:   params.Success,
	}, nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testParams(t *testing.T) Params {
	t.Helper()

	deployer, err := aptosgo.NewEd25519Account()
	require.NoError(t, err)
	recipient, err := aptosgo.NewEd25519Account()
	require.NoError(t, err)

	return Params{
		Deployer:            deployer,
		Recipient:           recipient.Address,
		PackageDir:          "/tmp/stable_coin",
		CoinModuleName:      "stable_coin1",
		CoinStructName:      "StableCoin1",
		MintAmount:          1_000_000,
		TransferAmount:      1_000_000,
		DeployerFundAmount:  20_000_000,
		RecipientFundAmount: 20_000_000_000,
	}
}

func eventKinds(events []db.RecordEventParams) []string {
	kinds := make([]string, len(events))
	for i, e := range events {
		kinds[i] = e.Kind
	}
	return kinds
}

func TestRun_HappyPath(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	chainClient := &fakeChain{
		balances: map[string]uint64{
			params.Deployer.Address.String(): 0,
			params.Recipient.String():        1_000_000,
		},
	}
	compiler := &fakeCompiler{}
	publisher := &fakePublisher{}
	store := &fakeStore{}
	events := natspkg.NewMockPublisher()

	deployer := NewDeployer(chainClient, compiler, publisher, store, events, testLogger())

	result, err := deployer.Run(ctx, params)
	require.NoError(t, err)

	assert.Equal(t, "0xpublish", result.PublishTxn)
	assert.Equal(t, "0xregister", result.RegisterTxn)
	assert.Equal(t, "0xmint", result.MintTxn)
	assert.Equal(t, "0xtransfer", result.TransferTxn)
	assert.Equal(t, uint64(0), result.DeployerBalance)
	assert.Equal(t, uint64(1_000_000), result.RecipientBalance)
	assert.Contains(t, result.CoinType, "::stable_coin1::StableCoin1")

	// Chain operations happen in the documented order, each waited on.
	assert.Equal(t, []string{
		"fund:20000000",
		"fund:20000000000",
		"wait:0xpublish",
		"register",
		"wait:0xregister",
		"mint:1000000",
		"wait:0xmint",
		"transfer:1000000",
		"wait:0xtransfer",
	}, chainClient.calls)

	// The package compiles with the deployer bound to the named address.
	require.Len(t, compiler.named, 1)
	assert.Equal(t, map[string]string{"StableCoin1": params.Deployer.Address.String()}, compiler.named[0])
	assert.Equal(t, 1, publisher.calls)

	// Each step is recorded and published.
	assert.Equal(t, []string{
		db.KindFund, db.KindFund, db.KindPublish, db.KindRegister, db.KindMint, db.KindTransfer,
	}, eventKinds(store.events))
	assert.Len(t, events.PublishedEvents(), 6)

	for _, event := range events.PublishedEvents() {
		assert.Equal(t, params.Deployer.Address.String(), event.DeployerAddress)
		assert.True(t, event.Success)
	}
}

func TestRun_SkipFund(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)
	params.SkipFund = true

	chainClient := &fakeChain{balances: map[string]uint64{}}
	store := &fakeStore{}

	deployer := NewDeployer(chainClient, &fakeCompiler{}, &fakePublisher{}, store, nil, testLogger())

	_, err := deployer.Run(ctx, params)
	require.NoError(t, err)

	assert.NotContains(t, chainClient.calls, "fund:20000000")
	assert.Equal(t, []string{
		db.KindPublish, db.KindRegister, db.KindMint, db.KindTransfer,
	}, eventKinds(store.events))
}

func TestRun_FundFailureAborts(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)

	chainClient := &fakeChain{fundErr: errors.New("faucet unavailable")}
	compiler := &fakeCompiler{}

	deployer := NewDeployer(chainClient, compiler, &fakePublisher{}, nil, nil, testLogger())

	_, err := deployer.Run(ctx, params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fund deployer")
	assert.Empty(t, compiler.dirs)
}

func TestRun_CompileFailureAborts(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)
	params.SkipFund = true

	chainClient := &fakeChain{}
	publisher := &fakePublisher{}

	deployer := NewDeployer(chainClient, &fakeCompiler{err: errors.New("unresolved address")}, publisher, nil, nil, testLogger())

	_, err := deployer.Run(ctx, params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile package")
	assert.Zero(t, publisher.calls)
	assert.Empty(t, chainClient.calls)
}

func TestRun_RegisterFailureAborts(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)
	params.SkipFund = true

	chainClient := &fakeChain{registerErr: errors.New("rejected")}
	store := &fakeStore{}

	deployer := NewDeployer(chainClient, &fakeCompiler{}, &fakePublisher{}, store, nil, testLogger())

	_, err := deployer.Run(ctx, params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "register coin")

	// The publish step completed and was recorded; no mint was attempted.
	assert.Equal(t, []string{db.KindPublish}, eventKinds(store.events))
	assert.NotContains(t, chainClient.calls, "mint:1000000")
}

func TestRun_OnChainAbortRecordsFailedStep(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)
	params.SkipFund = true

	chainClient := &fakeChain{failWaitOn: "0xmint"}
	store := &fakeStore{}

	deployer := NewDeployer(chainClient, &fakeCompiler{}, &fakePublisher{}, store, nil, testLogger())

	_, err := deployer.Run(ctx, params)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mint coin")

	// The failed step is still recorded so the ledger shows the abort.
	kinds := eventKinds(store.events)
	require.Equal(t, []string{db.KindPublish, db.KindRegister, db.KindMint}, kinds)
	mintEvent := store.events[2]
	assert.False(t, mintEvent.Success)
	require.NotNil(t, mintEvent.VMStatus)
	assert.Equal(t, "Move abort", *mintEvent.VMStatus)
}

func TestRun_LedgerFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)
	params.SkipFund = true

	chainClient := &fakeChain{balances: map[string]uint64{}}
	store := &fakeStore{err: errors.New("connection refused")}
	events := natspkg.NewMockPublisher()

	deployer := NewDeployer(chainClient, &fakeCompiler{}, &fakePublisher{}, store, events, testLogger())

	result, err := deployer.Run(ctx, params)
	require.NoError(t, err)
	assert.Equal(t, "0xtransfer", result.TransferTxn)

	// Events are still published from the locally built record.
	assert.Len(t, events.PublishedEvents(), 4)
}

func TestRun_EventPublishFailureDoesNotAbort(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)
	params.SkipFund = true

	chainClient := &fakeChain{balances: map[string]uint64{}}
	events := natspkg.NewMockPublisher()
	events.SetPublishError(errors.New("nats down"))

	deployer := NewDeployer(chainClient, &fakeCompiler{}, &fakePublisher{}, nil, events, testLogger())

	_, err := deployer.Run(ctx, params)
	require.NoError(t, err)
}

func TestRun_NilStoreAndEvents(t *testing.T) {
	ctx := context.Background()
	params := testParams(t)
	params.SkipFund = true

	chainClient := &fakeChain{balances: map[string]uint64{}}

	deployer := NewDeployer(chainClient, &fakeCompiler{}, &fakePublisher{}, nil, nil, testLogger())

	result, err := deployer.Run(ctx, params)
	require.NoError(t, err)

	// Accounts with no coin store read as zero balances.
	assert.Equal(t, uint64(0), result.DeployerBalance)
	assert.Equal(t, uint64(0), result.RecipientBalance)
}
