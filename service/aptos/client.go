package aptos

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/api"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
)

// FullnodeAPI is an interface for the SDK operations we need.
// This allows us to mock the chain layer in tests without hitting real nodes.
type FullnodeAPI interface {
	Fund(address aptosgo.AccountAddress, amount uint64) error

	BuildSignAndSubmitTransaction(
		sender aptosgo.TransactionSigner,
		payload aptosgo.TransactionPayload,
		options ...any,
	) (*api.SubmitTransactionResponse, error)

	WaitForTransaction(txnHash string, options ...any) (*api.UserTransaction, error)

	AccountResource(
		address aptosgo.AccountAddress,
		resourceType string,
		ledgerVersion ...uint64,
	) (map[string]any, error)
}

// Client provides the coin operations the deployment flow needs.
// It wraps the fullnode API with domain-specific operations; all protocol
// work (signing, BCS, submission) is delegated to the SDK.
type Client struct {
	api    FullnodeAPI
	logger *slog.Logger
}

// NewClient creates a new chain client.
func NewClient(fullnode FullnodeAPI, logger *slog.Logger) *Client {
	return &Client{
		api:    fullnode,
		logger: logger,
	}
}

// Fund requests faucet funds for the given account.
func (c *Client) Fund(ctx context.Context, address aptosgo.AccountAddress, amount uint64) error {
	c.logger.DebugContext(ctx, "requesting faucet funds",
		"address", address.String(),
		"amount", amount,
	)

	if err := c.api.Fund(address, amount); err != nil {
		return fmt.Errorf("failed to fund account %s: %w", address.String(), err)
	}

	c.logger.InfoContext(ctx, "funded account",
		"address", address.String(),
		"amount", amount,
	)
	return nil
}

// RegisterCoin registers the sender account to hold the given coin.
// Calls 0x1::managed_coin::register with the coin as the type argument.
func (c *Client) RegisterCoin(ctx context.Context, sender *aptosgo.Account, coin CoinType) (string, error) {
	typeTag, err := coin.TypeTag()
	if err != nil {
		return "", err
	}

	hash, err := c.submitEntryFunction(sender, &aptosgo.EntryFunction{
		Module:   aptosgo.ModuleId{Address: aptosgo.AccountOne, Name: "managed_coin"},
		Function: "register",
		ArgTypes: []aptosgo.TypeTag{*typeTag},
		Args:     [][]byte{},
	})
	if err != nil {
		return "", fmt.Errorf("failed to register coin %s: %w", coin.String(), err)
	}

	c.logger.InfoContext(ctx, "submitted coin registration",
		"coin", coin.String(),
		"account", sender.Address.String(),
		"txn_hash", hash,
	)
	return hash, nil
}

// MintCoin mints new coin units to the receiver address.
// Calls 0x1::managed_coin::mint; the minter must hold the coin's
// mint capability, i.e. be the account that published the package.
func (c *Client) MintCoin(
	ctx context.Context,
	minter *aptosgo.Account,
	coin CoinType,
	receiver aptosgo.AccountAddress,
	amount uint64,
) (string, error) {
	typeTag, err := coin.TypeTag()
	if err != nil {
		return "", err
	}

	receiverArg, err := bcs.Serialize(&receiver)
	if err != nil {
		return "", fmt.Errorf("failed to serialize receiver address: %w", err)
	}
	amountArg, err := bcs.SerializeU64(amount)
	if err != nil {
		return "", fmt.Errorf("failed to serialize mint amount: %w", err)
	}

	hash, err := c.submitEntryFunction(minter, &aptosgo.EntryFunction{
		Module:   aptosgo.ModuleId{Address: aptosgo.AccountOne, Name: "managed_coin"},
		Function: "mint",
		ArgTypes: []aptosgo.TypeTag{*typeTag},
		Args:     [][]byte{receiverArg, amountArg},
	})
	if err != nil {
		return "", fmt.Errorf("failed to mint %d of %s: %w", amount, coin.String(), err)
	}

	c.logger.InfoContext(ctx, "submitted mint",
		"coin", coin.String(),
		"receiver", receiver.String(),
		"amount", amount,
		"txn_hash", hash,
	)
	return hash, nil
}

// TransferCoins moves coin units from the sender to the recipient.
// Calls 0x1::aptos_account::transfer_coins, which registers the recipient
// for the coin if needed.
func (c *Client) TransferCoins(
	ctx context.Context,
	sender *aptosgo.Account,
	coin CoinType,
	recipient aptosgo.AccountAddress,
	amount uint64,
) (string, error) {
	typeTag, err := coin.TypeTag()
	if err != nil {
		return "", err
	}

	recipientArg, err := bcs.Serialize(&recipient)
	if err != nil {
		return "", fmt.Errorf("failed to serialize recipient address: %w", err)
	}
	amountArg, err := bcs.SerializeU64(amount)
	if err != nil {
		return "", fmt.Errorf("failed to serialize transfer amount: %w", err)
	}

	hash, err := c.submitEntryFunction(sender, &aptosgo.EntryFunction{
		Module:   aptosgo.ModuleId{Address: aptosgo.AccountOne, Name: "aptos_account"},
		Function: "transfer_coins",
		ArgTypes: []aptosgo.TypeTag{*typeTag},
		Args:     [][]byte{recipientArg, amountArg},
	})
	if err != nil {
		return "", fmt.Errorf("failed to transfer %d of %s: %w", amount, coin.String(), err)
	}

	c.logger.InfoContext(ctx, "submitted transfer",
		"coin", coin.String(),
		"recipient", recipient.String(),
		"amount", amount,
		"txn_hash", hash,
	)
	return hash, nil
}

// Balance returns the owner's balance of the given coin, read from the
// account's CoinStore resource. Returns ErrNoCoinStore if the account was
// never registered for the coin.
func (c *Client) Balance(ctx context.Context, coin CoinType, owner aptosgo.AccountAddress) (uint64, error) {
	resourceType := coin.StoreResource()

	resource, err := c.api.AccountResource(owner, resourceType)
	if err != nil {
		// The fullnode reports a missing resource as a 404; surface that as
		// a typed condition so callers can treat "not registered" as zero.
		if strings.Contains(err.Error(), "404") || strings.Contains(err.Error(), "resource_not_found") {
			return 0, ErrNoCoinStore
		}
		return 0, fmt.Errorf("failed to read coin store %s for %s: %w", resourceType, owner.String(), err)
	}

	balance, err := parseCoinStoreBalance(resource)
	if err != nil {
		return 0, fmt.Errorf("failed to parse coin store %s for %s: %w", resourceType, owner.String(), err)
	}

	c.logger.DebugContext(ctx, "read coin balance",
		"coin", coin.String(),
		"owner", owner.String(),
		"balance", balance,
	)
	return balance, nil
}

// WaitForTransaction blocks until the transaction is executed and returns its
// outcome. A transaction that executed but aborted on-chain is an error.
func (c *Client) WaitForTransaction(ctx context.Context, txnHash string) (*TransactionResult, error) {
	c.logger.DebugContext(ctx, "waiting for transaction", "txn_hash", txnHash)

	txn, err := c.api.WaitForTransaction(txnHash)
	if err != nil {
		return nil, fmt.Errorf("failed waiting for transaction %s: %w", txnHash, err)
	}

	result := &TransactionResult{
		Hash:     txn.Hash,
		Success:  txn.Success,
		VMStatus: txn.VmStatus,
		GasUsed:  txn.GasUsed,
		Version:  txn.Version,
	}

	if !txn.Success {
		return result, fmt.Errorf("transaction %s aborted on-chain: %s", txnHash, txn.VmStatus)
	}

	c.logger.DebugContext(ctx, "transaction executed",
		"txn_hash", txnHash,
		"version", txn.Version,
		"gas_used", txn.GasUsed,
	)
	return result, nil
}

// submitEntryFunction signs and submits a single entry function call.
func (c *Client) submitEntryFunction(sender *aptosgo.Account, entry *aptosgo.EntryFunction) (string, error) {
	resp, err := c.api.BuildSignAndSubmitTransaction(sender, aptosgo.TransactionPayload{Payload: entry})
	if err != nil {
		return "", err
	}
	return resp.Hash, nil
}

// parseCoinStoreBalance digs the balance out of a CoinStore resource map.
// The resource shape is {"data": {"coin": {"value": "<u64 string>"}}}.
func parseCoinStoreBalance(resource map[string]any) (uint64, error) {
	data, ok := resource["data"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("resource has no data field")
	}
	coin, ok := data["coin"].(map[string]any)
	if !ok {
		return 0, fmt.Errorf("resource data has no coin field")
	}
	value, ok := coin["value"].(string)
	if !ok {
		return 0, fmt.Errorf("coin field has no string value")
	}
	balance, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid balance value %q: %w", value, err)
	}
	return balance, nil
}
