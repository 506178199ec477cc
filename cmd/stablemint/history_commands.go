package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/brojonat/stablemint/service/db"
)

// newLedgerStore connects to the configured deployment ledger.
func newLedgerStore(ctx context.Context, databaseURL string) (*db.Store, *pgxpool.Pool, error) {
	if databaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required for history commands")
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}

	store := db.NewStore(pool)
	if err := store.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return store, pool, nil
}

// historyEventView is the JSON shape for ledger output.
type historyEventView struct {
	ID        int64   `json:"id"`
	CoinType  string  `json:"coin_type"`
	Kind      string  `json:"kind"`
	TxnHash   *string `json:"txn_hash,omitempty"`
	Amount    *int64  `json:"amount,omitempty"`
	Recipient *string `json:"recipient,omitempty"`
	VMStatus  *string `json:"vm_status,omitempty"`
	Success   bool    `json:"success"`
	CreatedAt string  `json:"created_at"`
}

func viewFromEvent(event *db.DeploymentEvent) historyEventView {
	return historyEventView{
		ID:        event.ID,
		CoinType:  event.CoinType,
		Kind:      event.Kind,
		TxnHash:   event.TxnHash,
		Amount:    event.Amount,
		Recipient: event.Recipient,
		VMStatus:  event.VMStatus,
		Success:   event.Success,
		CreatedAt: event.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
}

func historyListCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "List recorded deployment events, newest first",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "coin",
				Aliases: []string{"c"},
				Usage:   "Filter by fully qualified coin type",
			},
			&cli.IntFlag{
				Name:    "limit",
				Aliases: []string{"n"},
				Value:   50,
				Usage:   "Maximum number of events to return",
			},
			&cli.IntFlag{
				Name:  "offset",
				Usage: "Number of events to skip",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq filter applied to the JSON output",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			ctx := context.Background()

			store, pool, err := newLedgerStore(ctx, c.String("database-url"))
			if err != nil {
				return err
			}
			defer pool.Close()

			events, err := store.ListEvents(ctx, db.ListEventsParams{
				CoinType: c.String("coin"),
				Limit:    int32(c.Int("limit")),
				Offset:   int32(c.Int("offset")),
			})
			if err != nil {
				return fmt.Errorf("failed to list deployment events: %w", err)
			}

			views := make([]historyEventView, len(events))
			for i, event := range events {
				views[i] = viewFromEvent(event)
			}

			if c.Bool("json") || c.String("filter") != "" {
				return renderJSON(views, c.String("filter"))
			}

			if len(views) == 0 {
				fmt.Println("No deployment events recorded.")
				return nil
			}
			for _, v := range views {
				hash := "-"
				if v.TxnHash != nil {
					hash = *v.TxnHash
				}
				status := "ok"
				if !v.Success {
					status = "failed"
				}
				fmt.Printf("%s  %-9s %-6s %s  %s\n", v.CreatedAt, v.Kind, status, hash, v.CoinType)
			}
			return nil
		},
	}
}

func historyGetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "Show the ledger event for a transaction hash",
		ArgsUsage: "TXN_HASH",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "filter",
				Aliases: []string{"f"},
				Usage:   "jq filter applied to the JSON output",
			},
			&cli.StringFlag{
				Name:    "database-url",
				Usage:   "Database connection URL",
				EnvVars: []string{"DATABASE_URL"},
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("transaction hash is required")
			}

			ctx := context.Background()

			store, pool, err := newLedgerStore(ctx, c.String("database-url"))
			if err != nil {
				return err
			}
			defer pool.Close()

			event, err := store.GetEventByHash(ctx, c.Args().Get(0))
			if err != nil {
				return err
			}

			return renderJSON(viewFromEvent(event), c.String("filter"))
		},
	}
}
