package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	chain "github.com/brojonat/stablemint/service/aptos"
	"github.com/brojonat/stablemint/service/db"
	"github.com/brojonat/stablemint/service/deploy"
	"github.com/brojonat/stablemint/service/movecli"
	natspkg "github.com/brojonat/stablemint/service/nats"
)

func deployCommand() *cli.Command {
	return &cli.Command{
		Name:      "deploy",
		Usage:     "Run the full deployment sequence: fund, compile, publish, register, mint, transfer",
		ArgsUsage: "PACKAGE_DIR",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:    "mint-amount",
				Aliases: []string{"m"},
				Value:   1_000_000,
				Usage:   "Amount of coin units to mint to the deployer",
			},
			&cli.Uint64Flag{
				Name:    "transfer-amount",
				Aliases: []string{"t"},
				Value:   1_000_000,
				Usage:   "Amount of coin units to transfer to the recipient",
			},
			&cli.BoolFlag{
				Name:  "skip-fund",
				Usage: "Skip faucet funding (accounts must already exist on-chain)",
			},
			&cli.BoolFlag{
				Name:    "json",
				Aliases: []string{"j"},
				Usage:   "Output as JSON",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("package directory is required")
			}
			packageDir := c.Args().Get(0)

			env, err := newAppEnv()
			if err != nil {
				return err
			}

			deployerAccount, err := env.deployerAccount()
			if err != nil {
				return err
			}
			recipient, err := env.recipientAddress()
			if err != nil {
				return err
			}

			compiler, err := movecli.New(env.logger)
			if err != nil {
				return err
			}
			publisher := chain.NewPackagePublisher(
				env.chain, env.cfg.PackageBuildName, env.cfg.CoinModuleName, env.logger,
			)

			ctx := context.Background()

			// Ledger recording and event publishing are optional; the deploy
			// runs without them when not configured.
			var store deploy.LedgerStore
			if env.cfg.LedgerEnabled() {
				pool, err := pgxpool.New(ctx, env.cfg.DatabaseURL)
				if err != nil {
					return fmt.Errorf("failed to connect to database: %w", err)
				}
				defer pool.Close()

				ledger := db.NewStore(pool)
				if err := ledger.Migrate(ctx); err != nil {
					return err
				}
				store = ledger
			}

			var events deploy.EventPublisher
			if env.cfg.EventsEnabled() {
				pub, err := natspkg.NewPublisher(env.cfg.NATSURL, env.logger)
				if err != nil {
					return fmt.Errorf("failed to connect to NATS: %w", err)
				}
				defer pub.Close()
				events = pub
			}

			deployer := deploy.NewDeployer(env.chain, compiler, publisher, store, events, env.logger)

			result, err := deployer.Run(ctx, deploy.Params{
				Deployer:            deployerAccount,
				Recipient:           recipient,
				PackageDir:          packageDir,
				CoinModuleName:      env.cfg.CoinModuleName,
				CoinStructName:      env.cfg.CoinStructName,
				MintAmount:          c.Uint64("mint-amount"),
				TransferAmount:      c.Uint64("transfer-amount"),
				SkipFund:            c.Bool("skip-fund"),
				DeployerFundAmount:  env.cfg.DeployerFundAmount,
				RecipientFundAmount: env.cfg.RecipientFundAmount,
			})
			if err != nil {
				return err
			}

			if c.Bool("json") {
				return renderJSON(result, "")
			}

			fmt.Printf("✓ Deployment complete\n")
			fmt.Printf("  Coin:              %s\n", result.CoinType)
			fmt.Printf("  Publish txn:       %s\n", result.PublishTxn)
			fmt.Printf("  Register txn:      %s\n", result.RegisterTxn)
			fmt.Printf("  Mint txn:          %s\n", result.MintTxn)
			fmt.Printf("  Transfer txn:      %s\n", result.TransferTxn)
			fmt.Printf("  Deployer balance:  %d\n", result.DeployerBalance)
			fmt.Printf("  Recipient balance: %d\n", result.RecipientBalance)
			return nil
		},
	}
}

func fundCommand() *cli.Command {
	return &cli.Command{
		Name:      "fund",
		Usage:     "Request faucet funds for an account",
		ArgsUsage: "ADDRESS",
		Flags: []cli.Flag{
			&cli.Uint64Flag{
				Name:    "amount",
				Aliases: []string{"a"},
				Value:   20_000_000,
				Usage:   "Amount of octas to request",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("account address is required")
			}

			env, err := newAppEnv()
			if err != nil {
				return err
			}

			address, err := chain.ParseAddress(c.Args().Get(0))
			if err != nil {
				return err
			}

			amount := c.Uint64("amount")
			if err := env.chain.Fund(context.Background(), address, amount); err != nil {
				return err
			}

			fmt.Printf("✓ Funded %s with %d octas\n", address.String(), amount)
			return nil
		},
	}
}
