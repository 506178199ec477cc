// Package movecli shells out to the aptos command-line tool for the Move
// build steps the SDK does not cover. It owns no compilation logic; it only
// assembles arguments and runs the external binary.
package movecli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"sort"
	"strings"
)

// BinaryName is the toolchain binary expected on PATH.
const BinaryName = "aptos"

// ErrCLINotFound indicates the aptos binary is not installed or not on PATH.
var ErrCLINotFound = errors.New("aptos CLI not found in PATH; see https://aptos.dev/tools/aptos-cli for install instructions")

// CLI runs Move toolchain commands via the aptos binary.
type CLI struct {
	binary string
	logger *slog.Logger
}

// New locates the aptos binary and returns a CLI wrapper around it.
// Returns ErrCLINotFound when the binary is not on PATH.
func New(logger *slog.Logger) (*CLI, error) {
	path, err := exec.LookPath(BinaryName)
	if err != nil {
		return nil, ErrCLINotFound
	}
	return &CLI{
		binary: path,
		logger: logger,
	}, nil
}

// Available reports whether the aptos binary is on PATH.
func Available() bool {
	_, err := exec.LookPath(BinaryName)
	return err == nil
}

// CompilePackage compiles the Move package at packageDir with metadata saved,
// substituting the given named addresses. The build output lands under
// packageDir/build/.
func (c *CLI) CompilePackage(ctx context.Context, packageDir string, namedAddresses map[string]string) error {
	args := compileArgs(packageDir, namedAddresses)

	c.logger.DebugContext(ctx, "running move compile",
		"binary", c.binary,
		"args", args,
	)

	cmd := exec.CommandContext(ctx, c.binary, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("aptos move compile failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	c.logger.InfoContext(ctx, "compiled move package",
		"package_dir", packageDir,
	)
	c.logger.DebugContext(ctx, "move compile output",
		"stdout", stdout.String(),
	)
	return nil
}

// compileArgs builds the argument list for `aptos move compile`. Named
// addresses are sorted so the command line is deterministic.
func compileArgs(packageDir string, namedAddresses map[string]string) []string {
	args := []string{"move", "compile", "--package-dir", packageDir, "--save-metadata"}

	if len(namedAddresses) > 0 {
		names := make([]string, 0, len(namedAddresses))
		for name := range namedAddresses {
			names = append(names, name)
		}
		sort.Strings(names)

		pairs := make([]string, 0, len(names))
		for _, name := range names {
			pairs = append(pairs, fmt.Sprintf("%s=%s", name, namedAddresses[name]))
		}
		args = append(args, "--named-addresses", strings.Join(pairs, ","))
	}

	return args
}
