package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	"github.com/urfave/cli/v2"

	chain "github.com/brojonat/stablemint/service/aptos"
)

// parseAmount parses a positional coin amount argument.
func parseAmount(raw string) (uint64, error) {
	amount, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	return amount, nil
}

func coinRegisterCommand() *cli.Command {
	return &cli.Command{
		Name:  "register",
		Usage: "Register the deployer account to hold the coin",
		Action: func(c *cli.Context) error {
			env, err := newAppEnv()
			if err != nil {
				return err
			}

			deployerAccount, err := env.deployerAccount()
			if err != nil {
				return err
			}
			coin := env.coinType(deployerAccount.Address)

			ctx := context.Background()
			hash, err := env.chain.RegisterCoin(ctx, deployerAccount, coin)
			if err != nil {
				return err
			}
			if _, err := env.chain.WaitForTransaction(ctx, hash); err != nil {
				return err
			}

			fmt.Printf("✓ Registered %s for %s\n", coin.String(), deployerAccount.Address.String())
			fmt.Printf("  Txn: %s\n", hash)
			return nil
		},
	}
}

func coinMintCommand() *cli.Command {
	return &cli.Command{
		Name:      "mint",
		Usage:     "Mint coin units (the deployer holds the mint capability)",
		ArgsUsage: "AMOUNT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "receiver",
				Aliases: []string{"r"},
				Usage:   "Receiver address (defaults to the deployer)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("amount is required")
			}
			amount, err := parseAmount(c.Args().Get(0))
			if err != nil {
				return err
			}

			env, err := newAppEnv()
			if err != nil {
				return err
			}

			deployerAccount, err := env.deployerAccount()
			if err != nil {
				return err
			}

			receiver := deployerAccount.Address
			if raw := c.String("receiver"); raw != "" {
				receiver, err = chain.ParseAddress(raw)
				if err != nil {
					return err
				}
			}

			coin := env.coinType(deployerAccount.Address)

			ctx := context.Background()
			hash, err := env.chain.MintCoin(ctx, deployerAccount, coin, receiver, amount)
			if err != nil {
				return err
			}
			if _, err := env.chain.WaitForTransaction(ctx, hash); err != nil {
				return err
			}

			fmt.Printf("✓ Minted %d of %s to %s\n", amount, coin.String(), receiver.String())
			fmt.Printf("  Txn: %s\n", hash)
			return nil
		},
	}
}

func coinTransferCommand() *cli.Command {
	return &cli.Command{
		Name:      "transfer",
		Usage:     "Transfer coin units from the deployer",
		ArgsUsage: "AMOUNT",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "recipient",
				Aliases: []string{"r"},
				Usage:   "Recipient address (defaults to RECIPIENT_ADDRESS)",
			},
		},
		Action: func(c *cli.Context) error {
			if c.NArg() < 1 {
				return fmt.Errorf("amount is required")
			}
			amount, err := parseAmount(c.Args().Get(0))
			if err != nil {
				return err
			}

			env, err := newAppEnv()
			if err != nil {
				return err
			}

			deployerAccount, err := env.deployerAccount()
			if err != nil {
				return err
			}

			var recipient aptosgo.AccountAddress
			if raw := c.String("recipient"); raw != "" {
				recipient, err = chain.ParseAddress(raw)
			} else {
				recipient, err = env.recipientAddress()
			}
			if err != nil {
				return err
			}

			coin := env.coinType(deployerAccount.Address)

			ctx := context.Background()
			hash, err := env.chain.TransferCoins(ctx, deployerAccount, coin, recipient, amount)
			if err != nil {
				return err
			}
			if _, err := env.chain.WaitForTransaction(ctx, hash); err != nil {
				return err
			}

			fmt.Printf("✓ Transferred %d of %s to %s\n", amount, coin.String(), recipient.String())
			fmt.Printf("  Txn: %s\n", hash)
			return nil
		},
	}
}

func coinBalanceCommand() *cli.Command {
	return &cli.Command{
		Name:      "balance",
		Usage:     "Read an account's balance of the coin",
		ArgsUsage: "[ADDRESS]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "coin-address",
				Usage: "Publisher address of the coin (defaults to the deployer)",
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
		},
		Action: func(c *cli.Context) error {
			env, err := newAppEnv()
			if err != nil {
				return err
			}

			deployerAccount, err := env.deployerAccount()
			if err != nil {
				return err
			}

			owner := deployerAccount.Address
			if c.NArg() >= 1 {
				owner, err = chain.ParseAddress(c.Args().Get(0))
				if err != nil {
					return err
				}
			}

			coinAddress := deployerAccount.Address
			if raw := c.String("coin-address"); raw != "" {
				coinAddress, err = chain.ParseAddress(raw)
				if err != nil {
					return err
				}
			}
			coin := env.coinType(coinAddress)

			balance, err := env.chain.Balance(context.Background(), coin, owner)
			registered := true
			if err != nil {
				if !errors.Is(err, chain.ErrNoCoinStore) {
					return err
				}
				registered = false
			}

			if c.Bool("json") || c.String("filter") != "" {
				return renderJSON(map[string]any{
					"address":    owner.String(),
					"coin_type":  coin.String(),
					"balance":    balance,
					"registered": registered,
				}, c.String("filter"))
			}

			if !registered {
				fmt.Printf("%s has no coin store for %s\n", owner.String(), coin.String())
				return nil
			}
			fmt.Printf("%s balance of %s: %d\n", owner.String(), coin.String(), balance)
			return nil
		},
	}
}
