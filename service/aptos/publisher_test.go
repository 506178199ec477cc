package aptos

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	aptosgo "github.com/aptos-labs/aptos-go-sdk"
	"github.com/aptos-labs/aptos-go-sdk/bcs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writePackageArtifacts lays out a fake compiled package under dir.
func writePackageArtifacts(t *testing.T, dir, buildName, moduleName string, metadata, module []byte) {
	t.Helper()

	buildDir := filepath.Join(dir, "build", buildName)
	require.NoError(t, os.MkdirAll(filepath.Join(buildDir, "bytecode_modules"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "package-metadata.bcs"), metadata, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "bytecode_modules", moduleName+".mv"), module, 0o644))
}

func TestLoadPackageArtifacts_Success(t *testing.T) {
	dir := t.TempDir()
	metadata := []byte{0x01, 0x02, 0x03}
	module := []byte{0xa1, 0xb2}
	writePackageArtifacts(t, dir, "Examples", "stable_coin1", metadata, module)

	artifacts, err := LoadPackageArtifacts(dir, "Examples", "stable_coin1")
	require.NoError(t, err)
	assert.Equal(t, metadata, artifacts.Metadata)
	require.Len(t, artifacts.Modules, 1)
	assert.Equal(t, module, artifacts.Modules[0])
}

func TestLoadPackageArtifacts_MissingBuildDir(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPackageArtifacts(dir, "Examples", "stable_coin1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read package artifact")
}

func TestLoadPackageArtifacts_EmptyMetadata(t *testing.T) {
	dir := t.TempDir()
	writePackageArtifacts(t, dir, "Examples", "stable_coin1", []byte{}, []byte{0x01})

	_, err := LoadPackageArtifacts(dir, "Examples", "stable_coin1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "is empty")
}

func TestLoadPackageArtifacts_MissingModule(t *testing.T) {
	dir := t.TempDir()
	buildDir := filepath.Join(dir, "build", "Examples")
	require.NoError(t, os.MkdirAll(buildDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(buildDir, "package-metadata.bcs"), []byte{0x01}, 0o644))

	_, err := LoadPackageArtifacts(dir, "Examples", "stable_coin1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stable_coin1.mv")
}

func TestPublish_SubmitsCodePublishPackageTxn(t *testing.T) {
	ctx := context.Background()
	mock := &mockFullnodeAPI{submitHash: "0xpub"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(mock, logger)
	publisher := NewPackagePublisher(client, "Examples", "stable_coin1", logger)

	sender, err := aptosgo.NewEd25519Account()
	require.NoError(t, err)

	metadata := []byte{0xde, 0xad}
	module := []byte{0xbe, 0xef}
	artifacts := &PackageArtifacts{Metadata: metadata, Modules: [][]byte{module}}

	hash, err := publisher.Publish(ctx, sender, artifacts)
	require.NoError(t, err)
	assert.Equal(t, "0xpub", hash)

	entry := lastEntryFunction(t, mock)
	assert.Equal(t, aptosgo.AccountOne, entry.Module.Address)
	assert.Equal(t, "code", entry.Module.Name)
	assert.Equal(t, "publish_package_txn", entry.Function)
	assert.Empty(t, entry.ArgTypes)
	require.Len(t, entry.Args, 2)

	wantMetadata, err := bcs.SerializeBytes(metadata)
	require.NoError(t, err)
	assert.Equal(t, wantMetadata, entry.Args[0])

	// Second arg is the module bytecode as vector<vector<u8>>.
	var ser bcs.Serializer
	ser.Uleb128(1)
	ser.WriteBytes(module)
	require.NoError(t, ser.Error())
	assert.Equal(t, ser.ToBytes(), entry.Args[1])
}

func TestPublishPackage_LoadsFromDisk(t *testing.T) {
	ctx := context.Background()
	mock := &mockFullnodeAPI{submitHash: "0xpub2"}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(mock, logger)
	publisher := NewPackagePublisher(client, "Examples", "stable_coin1", logger)

	sender, err := aptosgo.NewEd25519Account()
	require.NoError(t, err)

	dir := t.TempDir()
	writePackageArtifacts(t, dir, "Examples", "stable_coin1", []byte{0x01}, []byte{0x02})

	hash, err := publisher.PublishPackage(ctx, sender, dir)
	require.NoError(t, err)
	assert.Equal(t, "0xpub2", hash)
	assert.Len(t, mock.submitted, 1)
}

func TestPublishPackage_MissingArtifacts(t *testing.T) {
	ctx := context.Background()
	mock := &mockFullnodeAPI{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	client := NewClient(mock, logger)
	publisher := NewPackagePublisher(client, "Examples", "stable_coin1", logger)

	sender, err := aptosgo.NewEd25519Account()
	require.NoError(t, err)

	_, err = publisher.PublishPackage(ctx, sender, t.TempDir())
	require.Error(t, err)
	assert.Empty(t, mock.submitted)
}
