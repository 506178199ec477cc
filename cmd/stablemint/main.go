package main

import (
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	"github.com/urfave/cli/v2"

	chain "github.com/brojonat/stablemint/service/aptos"
	"github.com/brojonat/stablemint/service/config"
)

var (
	// Version information (set via ldflags during build)
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:  "stablemint",
		Usage: "Stablecoin deployment CLI for Aptos-compatible chains",
		Description: `A command-line tool for compiling, publishing, minting, and transferring
a managed stablecoin. All chain operations are delegated to the Aptos SDK and
the aptos CLI toolchain.

Credentials are read from DEPLOYER_PRIVATE_KEY and RECIPIENT_ADDRESS.`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		Commands: []*cli.Command{
			// The full fund/compile/publish/register/mint/transfer sequence
			deployCommand(),
			// Individual steps
			fundCommand(),
			compileCommand(),
			publishCommand(),
			{
				Name:  "coin",
				Usage: "Individual coin operations",
				Subcommands: []*cli.Command{
					coinRegisterCommand(),
					coinMintCommand(),
					coinTransferCommand(),
					coinBalanceCommand(),
				},
			},
			// Deployment ledger inspection
			{
				Name:  "history",
				Usage: "Deployment ledger inspection commands",
				Subcommands: []*cli.Command{
					historyListCommand(),
					historyGetCommand(),
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// setupLogger creates a JSON logger on stderr at the given level, so stdout
// stays clean for command output.
func setupLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

// appEnv bundles the per-command dependencies built from environment
// configuration.
type appEnv struct {
	cfg    *config.Config
	logger *slog.Logger
	chain  *chain.Client
}

// newAppEnv loads configuration and connects the chain client.
func newAppEnv() (*appEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := setupLogger(cfg.LogLevel)

	sdkClient, err := aptosgo.NewClient(aptosgo.NetworkConfig{
		Name:      "custom",
		NodeUrl:   cfg.NodeURL,
		FaucetUrl: cfg.FaucetURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create chain client: %w", err)
	}

	return &appEnv{
		cfg:    cfg,
		logger: logger,
		chain:  chain.NewClient(sdkClient, logger),
	}, nil
}

// deployerAccount derives the deployer account from the configured key.
func (e *appEnv) deployerAccount() (*aptosgo.Account, error) {
	return chain.AccountFromPrivateKeyHex(e.cfg.DeployerPrivateKey)
}

// recipientAddress parses the configured recipient address.
func (e *appEnv) recipientAddress() (aptosgo.AccountAddress, error) {
	return chain.ParseAddress(e.cfg.RecipientAddress)
}

// coinType builds the coin type for the configured module under the given
// publisher address.
func (e *appEnv) coinType(publisher aptosgo.AccountAddress) chain.CoinType {
	return chain.CoinType{
		Address: publisher,
		Module:  e.cfg.CoinModuleName,
		Name:    e.cfg.CoinStructName,
	}
}
