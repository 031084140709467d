//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/meigma/bale"
	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/fragment"
	"github.com/meigma/bale/registry"
	"github.com/meigma/bale/rid"
)

// --- Push Operations ---

func TestPush_Basic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRef(registryAddr, "push-basic")
	desc, err := client.Push(ctx, ref, buildPack(t, "base", baseResources))
	require.NoError(t, err, "Push")
	assert.Equal(t, ocispec.MediaTypeImageManifest, desc.MediaType)

	manifest, err := client.Fetch(ctx, ref)
	require.NoError(t, err, "Fetch")
	assert.Equal(t, desc.Digest, manifest.Digest())
	assert.Equal(t, "base", manifest.PackID())
	assert.Len(t, manifest.ChunkDescriptors(), 3)
	assert.Equal(t, "4", manifest.Annotations()[registry.AnnotationResources])
}

func TestPush_WithTags(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRefWithTag(registryAddr, "push-tags", "v1")
	desc, err := client.Push(ctx, ref, buildPack(t, "base", baseResources),
		bale.PushWithTags("latest", "v1.0.0"),
	)
	require.NoError(t, err, "Push with tags")

	for _, tag := range []string{"v1", "latest", "v1.0.0"} {
		manifest, err := client.Fetch(ctx, testRefWithTag(registryAddr, "push-tags", tag))
		require.NoError(t, err, "Fetch %s", tag)
		assert.Equal(t, desc.Digest, manifest.Digest(), "tag %s", tag)
	}
}

func TestPush_WithAnnotations(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRef(registryAddr, "push-annotations")
	_, err := client.Push(ctx, ref, buildPack(t, "base", baseResources),
		bale.PushWithAnnotations(map[string]string{
			"org.opencontainers.image.source": "https://example.com/packs",
			ocispec.AnnotationCreated:         "2026-01-02T03:04:05Z",
		}),
		bale.PushWithPackID("vanilla"),
	)
	require.NoError(t, err)

	manifest, err := client.Fetch(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/packs", manifest.Annotations()["org.opencontainers.image.source"])
	assert.Equal(t, 2026, manifest.Created().Year())
	assert.Equal(t, "vanilla", manifest.PackID())
}

func TestBuildAndPush(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	src := writeResources(t, baseResources)
	ref := testRef(registryAddr, "build-and-push")
	_, err := client.BuildAndPush(ctx, ref, "game", src,
		bale.PushWithPackID("base"),
		bale.PushWithBuildOptions(pack.BuildWithIndexCompression(pack.CompressionZstd)),
	)
	require.NoError(t, err)

	p, err := client.Pull(ctx, ref, filepath.Join(t.TempDir(), "pulled"))
	require.NoError(t, err)
	assert.Equal(t, "base", p.ID())
	assertResources(t, p, baseResources)
}

// --- Pull Operations ---

func TestPull_Basic(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRef(registryAddr, "pull-basic")
	_, err := client.Push(ctx, ref, buildPack(t, "base", baseResources))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "pulled")
	p, err := client.Pull(ctx, ref, dest)
	require.NoError(t, err, "Pull")
	assert.Equal(t, "base", p.ID())
	assert.FileExists(t, filepath.Join(dest, pack.IndexFile))
	assertResources(t, p, baseResources)

	// Pulling again over the same directory replaces its files.
	p, err = client.Pull(ctx, ref, dest, bale.PullWithOpenOptions(pack.OpenWithID("again")))
	require.NoError(t, err)
	assert.Equal(t, "again", p.ID())
	assertResources(t, p, baseResources)
}

func TestPull_ByDigest(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRef(registryAddr, "pull-digest")
	desc, err := client.Push(ctx, ref, buildPack(t, "base", baseResources))
	require.NoError(t, err)

	digestRef := registryAddr + "/test/pull-digest@" + desc.Digest.String()
	p, err := client.Pull(ctx, digestRef, filepath.Join(t.TempDir(), "pulled"))
	require.NoError(t, err)
	assertResources(t, p, baseResources)
}

func TestPull_FragmentedChunk(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	dir := buildPack(t, "base", baseResources)
	chunk := filepath.Join(dir, pack.ChunkName(0))
	_, err := fragment.Fragment(ctx, chunk)
	require.NoError(t, err)
	require.NoError(t, os.Remove(chunk))

	ref := testRef(registryAddr, "pull-fragmented")
	_, err = client.Push(ctx, ref, dir)
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "pulled")
	p, err := client.Pull(ctx, ref, dest)
	require.NoError(t, err)
	assertResources(t, p, baseResources)
	assert.FileExists(t, filepath.Join(dest, pack.ChunkName(0)))
}

func TestPull_IntoStack(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	baseRef := testRef(registryAddr, "stack-base")
	modRef := testRef(registryAddr, "stack-mod")
	_, err := client.Push(ctx, baseRef, buildPack(t, "base", baseResources))
	require.NoError(t, err)
	_, err = client.Push(ctx, modRef, buildPack(t, "mod", modResources))
	require.NoError(t, err)

	root := t.TempDir()
	modDir, baseDir := filepath.Join(root, "mod"), filepath.Join(root, "base")
	_, err = client.Pull(ctx, modRef, modDir)
	require.NoError(t, err)
	_, err = client.Pull(ctx, baseRef, baseDir)
	require.NoError(t, err)

	stack, err := bale.OpenStack([]string{modDir, baseDir}, bale.StackWithDefaultDomain("game"))
	require.NoError(t, err)

	res, err := stack.LoadName("textures/stone.png")
	require.NoError(t, err)
	assert.Equal(t, "mod-stone", res.String())
	res, err = stack.LoadName("sounds/click.ogg")
	require.NoError(t, err)
	assert.Equal(t, "click", res.String())

	tr, err := stack.Translator(rid.From("game", "lang", "menu"))
	require.NoError(t, err)
	assert.Equal(t, "Los", tr.Translate(language.German, "menu.start"))
	assert.Equal(t, "Quit", tr.Translate(language.German, "menu.quit"))
}

// --- Fetch and Tag ---

func TestTag_CreateAlias(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRefWithTag(registryAddr, "tag-alias", "v1")
	desc, err := client.Push(ctx, ref, buildPack(t, "base", baseResources))
	require.NoError(t, err)

	require.NoError(t, client.Tag(ctx, ref, "stable"))
	manifest, err := client.Fetch(ctx, testRefWithTag(registryAddr, "tag-alias", "stable"))
	require.NoError(t, err)
	assert.Equal(t, desc.Digest, manifest.Digest())
}

func TestPackageLevelPushPull(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	opts := []bale.Option{bale.WithPlainHTTP(true), bale.WithAnonymous()}

	ref := testRef(registryAddr, "package-level")
	_, err := bale.Push(ctx, ref, buildPack(t, "base", baseResources), opts...)
	require.NoError(t, err)

	p, err := bale.Pull(ctx, ref, filepath.Join(t.TempDir(), "pulled"), opts...)
	require.NoError(t, err)
	assertResources(t, p, baseResources)
}

// --- Errors ---

func TestError_NotFound(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRef(registryAddr, "does-not-exist")
	_, err := client.Fetch(ctx, ref)
	require.ErrorIs(t, err, bale.ErrNotFound)

	_, err = client.Pull(ctx, ref, t.TempDir())
	require.ErrorIs(t, err, bale.ErrNotFound)

	err = client.Tag(ctx, ref, "other")
	require.ErrorIs(t, err, bale.ErrNotFound)
}

func TestError_InvalidReference(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)
	dir := buildPack(t, "base", baseResources)

	_, err := client.Push(ctx, registryAddr+"/test/no-tag", dir)
	require.ErrorIs(t, err, bale.ErrInvalidReference)

	_, err = client.Push(ctx, "not a valid ref", dir)
	require.ErrorIs(t, err, bale.ErrInvalidReference)

	_, err = client.Push(ctx, testRef(registryAddr, "bad-extra-tag"), dir, bale.PushWithTags("bad tag"))
	require.ErrorIs(t, err, bale.ErrInvalidReference)
}

func TestError_IndexTooLarge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	registryAddr := getRegistry(t)
	client := newTestClient(t)

	ref := testRef(registryAddr, "index-too-large")
	_, err := client.Push(ctx, ref, buildPack(t, "base", baseResources))
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "pulled")
	_, err = client.Pull(ctx, ref, dest, bale.PullWithMaxIndexSize(16))
	require.ErrorContains(t, err, "index blob too large")
	assert.NoFileExists(t, filepath.Join(dest, pack.IndexFile))
}
