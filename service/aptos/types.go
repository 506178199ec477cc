package aptos

import (
	"errors"
	"fmt"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/crypto"
)

// ErrNoCoinStore indicates the account has no CoinStore resource for the
// requested coin, i.e. it was never registered or funded with it.
var ErrNoCoinStore = errors.New("account has no coin store for this coin")

// CoinType identifies a coin struct within a published Move package,
// e.g. 0xabc::stable_coin1::StableCoin1.
type CoinType struct {
	Address aptosgo.AccountAddress
	Module  string
	Name    string
}

// String renders the fully qualified Move type, suitable for type arguments
// and resource lookups.
func (ct CoinType) String() string {
	return fmt.Sprintf("%s::%s::%s", ct.Address.String(), ct.Module, ct.Name)
}

// TypeTag parses the coin type into an SDK type tag for entry function calls.
func (ct CoinType) TypeTag() (*aptosgo.TypeTag, error) {
	tag, err := aptosgo.ParseTypeTag(ct.String())
	if err != nil {
		return nil, fmt.Errorf("failed to parse coin type %q: %w", ct.String(), err)
	}
	return tag, nil
}

// StoreResource is the CoinStore resource type holding an account's balance
// of this coin.
func (ct CoinType) StoreResource() string {
	return fmt.Sprintf("0x1::coin::CoinStore<%s>", ct.String())
}

// TransactionResult captures the outcome of an executed transaction.
type TransactionResult struct {
	Hash     string `json:"hash"`
	Success  bool   `json:"success"`
	VMStatus string `json:"vm_status"`
	GasUsed  uint64 `json:"gas_used"`
	Version  uint64 `json:"version"`
}

// AccountFromPrivateKeyHex derives a full account from a hex-encoded ed25519
// private key, as stored in DEPLOYER_PRIVATE_KEY.
func AccountFromPrivateKeyHex(hexKey string) (*aptosgo.Account, error) {
	key := &crypto.Ed25519PrivateKey{}
	if err := key.FromHex(hexKey); err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	account, err := aptosgo.NewAccountFromSigner(key)
	if err != nil {
		return nil, fmt.Errorf("failed to derive account from private key: %w", err)
	}
	return account, nil
}

// ParseAddress parses an account address string, accepting both long and
// short (missing leading zeros) forms.
func ParseAddress(s string) (aptosgo.AccountAddress, error) {
	var address aptosgo.AccountAddress
	if err := address.ParseStringRelaxed(s); err != nil {
		return aptosgo.AccountAddress{}, fmt.Errorf("failed to parse address %q: %w", s, err)
	}
	return address, nil
}
