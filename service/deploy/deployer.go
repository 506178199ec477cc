// Package deploy runs the stablecoin deployment sequence: fund, compile,
// publish, register, mint, transfer. The steps are fixed and unconditional;
// a failed chain step aborts the run immediately.
package deploy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	chain "github.com/brojonat/stablemint/service/aptos"
	"github.com/brojonat/stablemint/service/db"
	natspkg "github.com/brojonat/stablemint/service/nats"
)

// ChainClient defines the chain operations needed by the deployer.
// This allows for easy mocking in tests.
type ChainClient interface {
	Fund(ctx context.Context, address aptosgo.AccountAddress, amount uint64) error
	RegisterCoin(ctx context.Context, sender *aptosgo.Account, coin chain.CoinType) (string, error)
	MintCoin(ctx context.Context, minter *aptosgo.Account, coin chain.CoinType, receiver aptosgo.AccountAddress, amount uint64) (string, error)
	TransferCoins(ctx context.Context, sender *aptosgo.Account, coin chain.CoinType, recipient aptosgo.AccountAddress, amount uint64) (string, error)
	Balance(ctx context.Context, coin chain.CoinType, owner aptosgo.AccountAddress) (uint64, error)
	WaitForTransaction(ctx context.Context, txnHash string) (*chain.TransactionResult, error)
}

// Compiler defines the Move toolchain operations needed by the deployer.
type Compiler interface {
	CompilePackage(ctx context.Context, packageDir string, namedAddresses map[string]string) error
}

// PackagePublisher defines the package publication operations needed by the deployer.
type PackagePublisher interface {
	PublishPackage(ctx context.Context, sender *aptosgo.Account, packageDir string) (string, error)
}

// LedgerStore defines the database operations needed by the deployer.
// This allows for easy mocking in tests.
type LedgerStore interface {
	RecordEvent(ctx context.Context, params db.RecordEventParams) (*db.DeploymentEvent, error)
}

// EventPublisher defines the NATS publishing operations needed by the deployer.
type EventPublisher interface {
	PublishDeployment(ctx context.Context, event *natspkg.DeploymentEvent) error
}

// Deployer holds the dependencies needed by the deployment sequence.
// All dependencies are explicit. The store and events may be nil, in which
// case ledger recording and event publishing are skipped.
type Deployer struct {
	chain     ChainClient
	compiler  Compiler
	publisher PackagePublisher
	store     LedgerStore
	events    EventPublisher
	logger    *slog.Logger
}

// NewDeployer creates a new Deployer instance with explicit dependencies.
// If store or events is nil, the corresponding recording is disabled.
func NewDeployer(
	chainClient ChainClient,
	compiler Compiler,
	publisher PackagePublisher,
	store LedgerStore,
	events EventPublisher,
	logger *slog.Logger,
) *Deployer {
	return &Deployer{
		chain:     chainClient,
		compiler:  compiler,
		publisher: publisher,
		store:     store,
		events:    events,
		logger:    logger,
	}
}

// Params contains the input parameters for a deployment run.
type Params struct {
	Deployer   *aptosgo.Account
	Recipient  aptosgo.AccountAddress
	PackageDir string

	// Coin identity; the struct name doubles as the Move named address
	// bound to the deployer at compile time.
	CoinModuleName string
	CoinStructName string

	MintAmount     uint64
	TransferAmount uint64

	SkipFund            bool
	DeployerFundAmount  uint64
	RecipientFundAmount uint64
}

// Result contains the outcome of a deployment run.
type Result struct {
	CoinType         string `json:"coin_type"`
	PublishTxn       string `json:"publish_txn"`
	RegisterTxn      string `json:"register_txn"`
	MintTxn          string `json:"mint_txn"`
	TransferTxn      string `json:"transfer_txn"`
	DeployerBalance  uint64 `json:"deployer_balance"`
	RecipientBalance uint64 `json:"recipient_balance"`
}

// Run executes the deployment sequence. Each chain submission is waited on
// before the next step; the first chain failure aborts the run. Ledger and
// event-publish failures are logged and do not abort: observability must not
// change chain outcomes.
func (d *Deployer) Run(ctx context.Context, params Params) (*Result, error) {
	coin := chain.CoinType{
		Address: params.Deployer.Address,
		Module:  params.CoinModuleName,
		Name:    params.CoinStructName,
	}
	deployerAddr := params.Deployer.Address.String()
	recipientAddr := params.Recipient.String()

	d.logger.InfoContext(ctx, "starting deployment",
		"coin", coin.String(),
		"deployer", deployerAddr,
		"recipient", recipientAddr,
		"package_dir", params.PackageDir,
	)

	result := &Result{CoinType: coin.String()}

	// Fund both accounts from the faucet.
	if params.SkipFund {
		d.logger.InfoContext(ctx, "skipping faucet funding")
	} else {
		if err := d.chain.Fund(ctx, params.Deployer.Address, params.DeployerFundAmount); err != nil {
			return nil, fmt.Errorf("fund deployer: %w", err)
		}
		d.recordStep(ctx, deployerAddr, db.RecordEventParams{
			CoinType:  coin.String(),
			Kind:      db.KindFund,
			Amount:    int64Ptr(int64(params.DeployerFundAmount)),
			Recipient: &deployerAddr,
			Success:   true,
		})

		if err := d.chain.Fund(ctx, params.Recipient, params.RecipientFundAmount); err != nil {
			return nil, fmt.Errorf("fund recipient: %w", err)
		}
		d.recordStep(ctx, deployerAddr, db.RecordEventParams{
			CoinType:  coin.String(),
			Kind:      db.KindFund,
			Amount:    int64Ptr(int64(params.RecipientFundAmount)),
			Recipient: &recipientAddr,
			Success:   true,
		})
	}

	// Compile the package with the deployer bound to the named address.
	namedAddresses := map[string]string{params.CoinStructName: deployerAddr}
	if err := d.compiler.CompilePackage(ctx, params.PackageDir, namedAddresses); err != nil {
		return nil, fmt.Errorf("compile package: %w", err)
	}

	// Publish the compiled package.
	publishTxn, err := d.publisher.PublishPackage(ctx, params.Deployer, params.PackageDir)
	if err != nil {
		return nil, fmt.Errorf("publish package: %w", err)
	}
	if err := d.waitAndRecord(ctx, coin, deployerAddr, db.KindPublish, publishTxn, nil, nil); err != nil {
		return nil, fmt.Errorf("publish package: %w", err)
	}
	result.PublishTxn = publishTxn

	// Register the deployer to hold the new coin.
	registerTxn, err := d.chain.RegisterCoin(ctx, params.Deployer, coin)
	if err != nil {
		return nil, fmt.Errorf("register coin: %w", err)
	}
	if err := d.waitAndRecord(ctx, coin, deployerAddr, db.KindRegister, registerTxn, nil, nil); err != nil {
		return nil, fmt.Errorf("register coin: %w", err)
	}
	result.RegisterTxn = registerTxn

	// Mint to the deployer.
	mintTxn, err := d.chain.MintCoin(ctx, params.Deployer, coin, params.Deployer.Address, params.MintAmount)
	if err != nil {
		return nil, fmt.Errorf("mint coin: %w", err)
	}
	if err := d.waitAndRecord(ctx, coin, deployerAddr, db.KindMint, mintTxn, int64Ptr(int64(params.MintAmount)), &deployerAddr); err != nil {
		return nil, fmt.Errorf("mint coin: %w", err)
	}
	result.MintTxn = mintTxn

	// Informational balance read between mint and transfer; a missing coin
	// store here is tolerated.
	if balance, err := d.balanceOrZero(ctx, coin, params.Deployer.Address); err != nil {
		d.logger.WarnContext(ctx, "failed to read deployer balance after mint", "error", err)
	} else {
		d.logger.InfoContext(ctx, "deployer balance after mint", "balance", balance)
	}

	// Transfer to the recipient.
	transferTxn, err := d.chain.TransferCoins(ctx, params.Deployer, coin, params.Recipient, params.TransferAmount)
	if err != nil {
		return nil, fmt.Errorf("transfer coins: %w", err)
	}
	if err := d.waitAndRecord(ctx, coin, deployerAddr, db.KindTransfer, transferTxn, int64Ptr(int64(params.TransferAmount)), &recipientAddr); err != nil {
		return nil, fmt.Errorf("transfer coins: %w", err)
	}
	result.TransferTxn = transferTxn

	// Final balances.
	deployerBalance, err := d.balanceOrZero(ctx, coin, params.Deployer.Address)
	if err != nil {
		return nil, fmt.Errorf("read deployer balance: %w", err)
	}
	recipientBalance, err := d.balanceOrZero(ctx, coin, params.Recipient)
	if err != nil {
		return nil, fmt.Errorf("read recipient balance: %w", err)
	}
	result.DeployerBalance = deployerBalance
	result.RecipientBalance = recipientBalance

	d.logger.InfoContext(ctx, "deployment complete",
		"coin", coin.String(),
		"deployer_balance", deployerBalance,
		"recipient_balance", recipientBalance,
	)
	return result, nil
}

// waitAndRecord waits for the transaction, then records the step outcome to
// the ledger and event stream. The step is recorded even when the
// transaction aborted on-chain, so failed deployments leave a trace.
func (d *Deployer) waitAndRecord(
	ctx context.Context,
	coin chain.CoinType,
	deployerAddr string,
	kind string,
	txnHash string,
	amount *int64,
	recipient *string,
) error {
	txnResult, err := d.chain.WaitForTransaction(ctx, txnHash)

	params := db.RecordEventParams{
		CoinType:  coin.String(),
		Kind:      kind,
		TxnHash:   &txnHash,
		Amount:    amount,
		Recipient: recipient,
	}
	if txnResult != nil {
		params.Success = txnResult.Success
		params.VMStatus = &txnResult.VMStatus
	}
	d.recordStep(ctx, deployerAddr, params)

	return err
}

// recordStep records a step to the ledger and publishes it to the event
// stream. Failures here are logged, not returned.
func (d *Deployer) recordStep(ctx context.Context, deployerAddr string, params db.RecordEventParams) {
	ledgerEvent := &db.DeploymentEvent{
		CoinType:  params.CoinType,
		Kind:      params.Kind,
		TxnHash:   params.TxnHash,
		Amount:    params.Amount,
		Recipient: params.Recipient,
		VMStatus:  params.VMStatus,
		Success:   params.Success,
	}

	if d.store != nil {
		recorded, err := d.store.RecordEvent(ctx, params)
		if err != nil {
			d.logger.ErrorContext(ctx, "failed to record deployment event",
				"kind", params.Kind,
				"error", err,
			)
		} else {
			ledgerEvent = recorded
		}
	}

	if d.events != nil {
		event := natspkg.FromLedgerEvent(ledgerEvent, deployerAddr)
		if err := d.events.PublishDeployment(ctx, event); err != nil {
			d.logger.ErrorContext(ctx, "failed to publish deployment event",
				"kind", params.Kind,
				"error", err,
			)
		}
	}
}

// balanceOrZero reads a coin balance, treating a missing coin store as zero.
func (d *Deployer) balanceOrZero(ctx context.Context, coin chain.CoinType, owner aptosgo.AccountAddress) (uint64, error) {
	balance, err := d.chain.Balance(ctx, coin, owner)
	if err != nil {
		if errors.Is(err, chain.ErrNoCoinStore) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

func int64Ptr(v int64) *int64 { return &v }
