package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrEventNotFound indicates no ledger event matched the query.
var ErrEventNotFound = errors.New("deployment event not found")

// Event kinds, one per chain interaction in the deployment flow.
const (
	KindFund     = "fund"
	KindPublish  = "publish"
	KindRegister = "register"
	KindMint     = "mint"
	KindTransfer = "transfer"
)

// schema is applied idempotently by Migrate. The ledger is append-only;
// there are no updates or deletes.
const schema = `
CREATE TABLE IF NOT EXISTS deployment_events (
	id BIGSERIAL PRIMARY KEY,
	coin_type TEXT NOT NULL,
	kind TEXT NOT NULL,
	txn_hash TEXT,
	amount BIGINT,
	recipient TEXT,
	vm_status TEXT,
	success BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_deployment_events_coin_type
	ON deployment_events (coin_type, created_at DESC);

CREATE INDEX IF NOT EXISTS idx_deployment_events_txn_hash
	ON deployment_events (txn_hash);
`

// Store provides database operations for the deployment ledger.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the ledger schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("failed to migrate deployment ledger schema: %w", err)
	}
	return nil
}

// DeploymentEvent represents one recorded chain interaction.
type DeploymentEvent struct {
	ID        int64
	CoinType  string
	Kind      string
	TxnHash   *string // nil for faucet funding, which has no transaction hash
	Amount    *int64
	Recipient *string
	VMStatus  *string
	Success   bool
	CreatedAt time.Time
}

// RecordEventParams contains the parameters for recording a deployment event.
type RecordEventParams struct {
	CoinType  string
	Kind      string
	TxnHash   *string
	Amount    *int64
	Recipient *string
	VMStatus  *string
	Success   bool
}

// ListEventsParams contains filter and pagination parameters.
// An empty CoinType lists events for all coins.
type ListEventsParams struct {
	CoinType string
	Limit    int32
	Offset   int32
}

// RecordEvent appends a new event to the ledger.
func (s *Store) RecordEvent(ctx context.Context, params RecordEventParams) (*DeploymentEvent, error) {
	row := s.pool.QueryRow(ctx, `
		INSERT INTO deployment_events (coin_type, kind, txn_hash, amount, recipient, vm_status, success)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, coin_type, kind, txn_hash, amount, recipient, vm_status, success, created_at`,
		params.CoinType,
		params.Kind,
		pgtextFromStringPtr(params.TxnHash),
		pgint8FromInt64Ptr(params.Amount),
		pgtextFromStringPtr(params.Recipient),
		pgtextFromStringPtr(params.VMStatus),
		params.Success,
	)

	return scanEvent(row)
}

// GetEventByHash retrieves the event recorded for a transaction hash.
func (s *Store) GetEventByHash(ctx context.Context, txnHash string) (*DeploymentEvent, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, coin_type, kind, txn_hash, amount, recipient, vm_status, success, created_at
		FROM deployment_events
		WHERE txn_hash = $1
		ORDER BY created_at DESC
		LIMIT 1`,
		txnHash,
	)

	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		return nil, err
	}
	return event, nil
}

// ListEvents retrieves ledger events, newest first.
func (s *Store) ListEvents(ctx context.Context, params ListEventsParams) ([]*DeploymentEvent, error) {
	limit := params.Limit
	if limit <= 0 {
		limit = 50
	}

	var rows pgx.Rows
	var err error
	if params.CoinType != "" {
		rows, err = s.pool.Query(ctx, `
			SELECT id, coin_type, kind, txn_hash, amount, recipient, vm_status, success, created_at
			FROM deployment_events
			WHERE coin_type = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2 OFFSET $3`,
			params.CoinType, limit, params.Offset,
		)
	} else {
		rows, err = s.pool.Query(ctx, `
			SELECT id, coin_type, kind, txn_hash, amount, recipient, vm_status, success, created_at
			FROM deployment_events
			ORDER BY created_at DESC, id DESC
			LIMIT $1 OFFSET $2`,
			limit, params.Offset,
		)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	events := make([]*DeploymentEvent, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// scanEvent reads one event from a row, converting pg types to domain types.
func scanEvent(row pgx.Row) (*DeploymentEvent, error) {
	var event DeploymentEvent
	var txnHash, recipient, vmStatus pgtype.Text
	var amount pgtype.Int8
	var createdAt pgtype.Timestamptz

	err := row.Scan(
		&event.ID,
		&event.CoinType,
		&event.Kind,
		&txnHash,
		&amount,
		&recipient,
		&vmStatus,
		&event.Success,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	event.TxnHash = stringPtrFromPgtext(txnHash)
	event.Amount = int64PtrFromPgint8(amount)
	event.Recipient = stringPtrFromPgtext(recipient)
	event.VMStatus = stringPtrFromPgtext(vmStatus)
	event.CreatedAt = createdAt.Time
	return &event, nil
}

// Helper functions to convert between pg types and domain types

func pgtextFromStringPtr(s *string) pgtype.Text {
	if s == nil {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: *s, Valid: true}
}

func stringPtrFromPgtext(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func pgint8FromInt64Ptr(v *int64) pgtype.Int8 {
	if v == nil {
		return pgtype.Int8{Valid: false}
	}
	return pgtype.Int8{Int64: *v, Valid: true}
}

func int64PtrFromPgint8(v pgtype.Int8) *int64 {
	if !v.Valid {
		return nil
	}
	return &v.Int64
}
