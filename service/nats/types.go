package nats

import (
	"time"

	"github.com/brojonat/stablemint/service/db"
)

// DeploymentEvent represents a deployment step published to NATS.
// This is published to the subject "deploys.{deployer_address}" in JetStream.
type DeploymentEvent struct {
	// Coin and step identifiers
	CoinType string `json:"coin_type"`
	Kind     string `json:"kind"` // fund, publish, register, mint, transfer

	// Deployer information
	DeployerAddress string `json:"deployer_address"`

	// Step details
	TxnHash   string `json:"txn_hash,omitempty"` // empty for faucet funding
	Amount    *int64 `json:"amount,omitempty"`
	Recipient string `json:"recipient,omitempty"`
	Success   bool   `json:"success"`
	VMStatus  string `json:"vm_status,omitempty"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromLedgerEvent converts a recorded ledger event to a DeploymentEvent for publishing.
func FromLedgerEvent(event *db.DeploymentEvent, deployerAddress string) *DeploymentEvent {
	out := &DeploymentEvent{
		CoinType:        event.CoinType,
		Kind:            event.Kind,
		DeployerAddress: deployerAddress,
		Amount:          event.Amount,
		Success:         event.Success,
		PublishedAt:     time.Now().UTC(),
	}

	// Convert optional string fields
	if event.TxnHash != nil {
		out.TxnHash = *event.TxnHash
	}
	if event.Recipient != nil {
		out.Recipient = *event.Recipient
	}
	if event.VMStatus != nil {
		out.VMStatus = *event.VMStatus
	}

	return out
}
