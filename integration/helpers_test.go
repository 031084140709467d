//go:build integration

package integration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/meigma/bale"
	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/rid"
)

// --- Registry Container Setup ---

var (
	registryOnce sync.Once
	registryAddr string
	registryErr  error
)

// getRegistry returns the shared registry address, starting the container if needed.
// The container is shared across all tests for performance.
func getRegistry(tb testing.TB) string {
	tb.Helper()

	if os.Getenv("SKIP_DOCKER_TESTS") == "1" {
		tb.Skip("SKIP_DOCKER_TESTS is set")
	}

	registryOnce.Do(func() {
		ctx := context.Background()
		registryAddr, registryErr = startRegistryContainer(ctx)
	})

	if registryErr != nil {
		tb.Fatalf("start registry container: %v", registryErr)
	}

	return registryAddr
}

// startRegistryContainer starts a registry:2 container and returns the host:port address.
func startRegistryContainer(ctx context.Context) (string, error) {
	req := testcontainers.ContainerRequest{
		Image:        "registry:2",
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor:   wait.ForHTTP("/v2/").WithPort("5000/tcp").WithStatusCodeMatcher(isOKStatus),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return "", fmt.Errorf("start registry container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("resolve registry host: %w", err)
	}

	port, err := container.MappedPort(ctx, "5000/tcp")
	if err != nil {
		return "", fmt.Errorf("resolve registry port: %w", err)
	}

	return fmt.Sprintf("%s:%s", host, port.Port()), nil
}

func isOKStatus(status int) bool {
	return status >= 200 && status < 300
}

// newTestClient creates a client configured for the local test registry.
func newTestClient(tb testing.TB, opts ...bale.Option) *bale.Client {
	tb.Helper()

	allOpts := append([]bale.Option{bale.WithPlainHTTP(true), bale.WithAnonymous()}, opts...)
	client, err := bale.NewClient(allOpts...)
	require.NoError(tb, err, "create test client")
	return client
}

// testRef generates a unique reference for a test to avoid collisions.
func testRef(registryAddr, testName string) string {
	return testRefWithTag(registryAddr, testName, "latest")
}

// testRefWithTag generates a reference with a specific tag.
func testRefWithTag(registryAddr, testName, tag string) string {
	return fmt.Sprintf("%s/test/%s:%s", registryAddr, testName, tag)
}

// --- Test Data ---

// baseResources is the resource tree of a small game pack.
var baseResources = map[string][]byte{
	"lang/menu_en_US.lang": []byte("menu.start=Start\nmenu.quit=Quit\n"),
	"textures/stone.png":   []byte("base-stone"),
	"textures/planks.png":  []byte("base-planks"),
	"sounds/click.ogg":     []byte("click"),
}

// modResources overrides part of baseResources.
var modResources = map[string][]byte{
	"lang/menu_de_DE.lang": []byte("menu.start=Los\n"),
	"textures/stone.png":   []byte("mod-stone"),
}

// writeResources writes files to a fresh resources directory.
func writeResources(tb testing.TB, files map[string][]byte) string {
	tb.Helper()
	dir := tb.TempDir()
	for path, content := range files {
		fullPath := filepath.Join(dir, path)
		require.NoError(tb, os.MkdirAll(filepath.Dir(fullPath), 0o755))
		require.NoError(tb, os.WriteFile(fullPath, content, 0o644))
	}
	return dir
}

// buildPack builds files into a pack directory named name.
func buildPack(tb testing.TB, name string, files map[string][]byte, opts ...pack.BuildOption) string {
	tb.Helper()
	resources, err := pack.CollectDir("game", writeResources(tb, files))
	require.NoError(tb, err)
	dir := filepath.Join(tb.TempDir(), name)
	_, err = pack.Build(context.Background(), dir, resources, opts...)
	require.NoError(tb, err)
	return dir
}

// assertResources verifies that p serves files under the "game" domain.
func assertResources(tb testing.TB, p interface {
	LoadResource(rid.ID) (*pack.RawResource, error)
}, files map[string][]byte) {
	tb.Helper()
	for path, want := range files {
		res, err := p.LoadResource(rid.MustParse("game:"+path, ""))
		require.NoError(tb, err, "LoadResource(%q)", path)
		require.Equal(tb, want, res.Bytes(), "content mismatch for %q", path)
	}
}
