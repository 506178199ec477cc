package aptos

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
)

// PackageArtifacts holds the compiled output of a Move package: the BCS
// package metadata and the bytecode of each module, as written by
// `aptos move compile --save-metadata`.
type PackageArtifacts struct {
	Metadata []byte
	Modules  [][]byte
}

// LoadPackageArtifacts reads the compiled artifacts for a single-module
// package from packageDir/build/<buildName>/.
func LoadPackageArtifacts(packageDir, buildName, moduleName string) (*PackageArtifacts, error) {
	buildDir := filepath.Join(packageDir, "build", buildName)

	metadataPath := filepath.Join(buildDir, "package-metadata.bcs")
	metadata, err := readArtifact(metadataPath)
	if err != nil {
		return nil, err
	}

	modulePath := filepath.Join(buildDir, "bytecode_modules", moduleName+".mv")
	module, err := readArtifact(modulePath)
	if err != nil {
		return nil, err
	}

	return &PackageArtifacts{
		Metadata: metadata,
		Modules:  [][]byte{module},
	}, nil
}

func readArtifact(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read package artifact %s: %w", path, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("package artifact %s is empty; was the package compiled with --save-metadata?", path)
	}
	return data, nil
}

// PackagePublisher submits compiled Move packages to the chain.
// Publication itself is a framework entry function
// (0x1::code::publish_package_txn); no module-format logic lives here.
type PackagePublisher struct {
	client     *Client
	buildName  string
	moduleName string
	logger     *slog.Logger
}

// NewPackagePublisher creates a publisher for packages whose build output
// lives under build/<buildName> and contains the module <moduleName>.
func NewPackagePublisher(client *Client, buildName, moduleName string, logger *slog.Logger) *PackagePublisher {
	return &PackagePublisher{
		client:     client,
		buildName:  buildName,
		moduleName: moduleName,
		logger:     logger,
	}
}

// PublishPackage loads the compiled artifacts from packageDir and publishes
// them under the sender's account. Returns the submitted transaction hash.
func (p *PackagePublisher) PublishPackage(ctx context.Context, sender *aptosgo.Account, packageDir string) (string, error) {
	artifacts, err := LoadPackageArtifacts(packageDir, p.buildName, p.moduleName)
	if err != nil {
		return "", err
	}
	return p.Publish(ctx, sender, artifacts)
}

// Publish submits already-loaded package artifacts under the sender's account.
func (p *PackagePublisher) Publish(ctx context.Context, sender *aptosgo.Account, artifacts *PackageArtifacts) (string, error) {
	metadataArg, err := bcs.SerializeBytes(artifacts.Metadata)
	if err != nil {
		return "", fmt.Errorf("failed to serialize package metadata: %w", err)
	}

	// The modules argument is a vector<vector<u8>>.
	var ser bcs.Serializer
	ser.Uleb128(uint32(len(artifacts.Modules)))
	for _, module := range artifacts.Modules {
		ser.WriteBytes(module)
	}
	if ser.Error() != nil {
		return "", fmt.Errorf("failed to serialize module bytecode: %w", ser.Error())
	}
	modulesArg := ser.ToBytes()

	hash, err := p.client.submitEntryFunction(sender, &aptosgo.EntryFunction{
		Module:   aptosgo.ModuleId{Address: aptosgo.AccountOne, Name: "code"},
		Function: "publish_package_txn",
		ArgTypes: []aptosgo.TypeTag{},
		Args:     [][]byte{metadataArg, modulesArg},
	})
	if err != nil {
		return "", fmt.Errorf("failed to publish package: %w", err)
	}

	p.logger.InfoContext(ctx, "submitted package publication",
		"publisher", sender.Address.String(),
		"modules", len(artifacts.Modules),
		"metadata_bytes", len(artifacts.Metadata),
		"txn_hash", hash,
	)
	return hash, nil
}
