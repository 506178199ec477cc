package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v2"

	chain "github.com/brojonat/stablemint/service/aptos"
	"github.com/brojonat/stablemint/service/movecli"
)

func compileCommand() *cli.Command {
	return &cli.Command{
		Name:      "compile",
		Usage:     "Compile the Move package with the deployer bound to the named address",
		ArgsUsage: "PACKAGE_DIR",
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

			compiler, err := movecli.New(env.logger)
			if err != nil {
				return err
			}

			namedAddresses := map[string]string{
				env.cfg.CoinStructName: deployerAccount.Address.String(),
			}
			if err := compiler.CompilePackage(context.Background(), packageDir, namedAddresses); err != nil {
				return err
			}

			fmt.Printf("✓ Compiled package %s\n", packageDir)
			return nil
		},
	}
}

func publishCommand() *cli.Command {
	return &cli.Command{
		Name:      "publish",
		Usage:     "Publish previously compiled package artifacts under the deployer account",
		ArgsUsage: "PACKAGE_DIR",
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

			publisher := chain.NewPackagePublisher(
				env.chain, env.cfg.PackageBuildName, env.cfg.CoinModuleName, env.logger,
			)

			ctx := context.Background()
			hash, err := publisher.PublishPackage(ctx, deployerAccount, packageDir)
			if err != nil {
				return err
			}
			result, err := env.chain.WaitForTransaction(ctx, hash)
			if err != nil {
				return err
			}

			fmt.Printf("✓ Published package\n")
			fmt.Printf("  Txn:     %s\n", result.Hash)
			fmt.Printf("  Version: %d\n", result.Version)
			return nil
		},
	}
}
