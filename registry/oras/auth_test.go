package oras

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"oras.land/oras-go/v2/registry/remote/auth"
)

func TestStaticCredentials(t *testing.T) {
	t.Parallel()

	store := StaticCredentials("https://registry.example.com/v2/", "user", "pass")
	ctx := context.Background()

	cred, err := store.Get(ctx, "registry.example.com")
	require.NoError(t, err)
	assert.Equal(t, "user", cred.Username)
	assert.Equal(t, "pass", cred.Password)
	assert.Empty(t, cred.AccessToken)

	cred, err = store.Get(ctx, "other.example.com")
	require.NoError(t, err)
	assert.Equal(t, auth.EmptyCredential, cred)

	assert.ErrorIs(t, store.Put(ctx, "registry.example.com", auth.Credential{}), errReadOnlyStore)
	assert.ErrorIs(t, store.Delete(ctx, "registry.example.com"), errReadOnlyStore)
}

func TestStaticToken(t *testing.T) {
	t.Parallel()

	store := StaticToken("localhost:5000", "my-token")
	cred, err := store.Get(context.Background(), "localhost:5000")
	require.NoError(t, err)
	assert.Equal(t, "my-token", cred.AccessToken)
	assert.Empty(t, cred.Username)

	cred, err = store.Get(context.Background(), "localhost:5001")
	require.NoError(t, err)
	assert.Equal(t, auth.EmptyCredential, cred)
}

func TestStaticStoreDockerHub(t *testing.T) {
	t.Parallel()

	tests := []struct {
		store, query string
		match        bool
	}{
		{"docker.io", "docker.io", true},
		{"docker.io", "registry-1.docker.io", true},
		{"index.docker.io", "docker.io:443", true},
		{"docker.io", "ghcr.io", false},
		{"ghcr.io", "docker.io", false},
	}
	for _, tt := range tests {
		t.Run(tt.store+"->"+tt.query, func(t *testing.T) {
			t.Parallel()

			cred, err := StaticCredentials(tt.store, "u", "p").Get(context.Background(), tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.match, cred.Username == "u")
		})
	}
}

func TestHubAliasStore(t *testing.T) {
	t.Parallel()

	inner := &mapStore{creds: map[string]auth.Credential{
		"https://index.docker.io/v1/": {Username: "hub"},
		"ghcr.io":                     {Username: "gh"},
	}}
	store := &hubAliasStore{Store: inner}
	ctx := context.Background()

	cred, err := store.Get(ctx, "registry-1.docker.io")
	require.NoError(t, err)
	assert.Equal(t, "hub", cred.Username)

	cred, err = store.Get(ctx, "ghcr.io")
	require.NoError(t, err)
	assert.Equal(t, "gh", cred.Username)

	cred, err = store.Get(ctx, "quay.io")
	require.NoError(t, err)
	assert.Equal(t, auth.EmptyCredential, cred)
}

func TestHostHelpers(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "registry.example.com:5000", serverHost("https://registry.example.com:5000/v2/"))
	assert.Equal(t, "localhost", hostOnly("localhost:5000"))
	assert.Equal(t, "[::1]", hostOnly("[::1]:5000"))
	assert.Equal(t, "[::1", hostOnly("[::1"))
	assert.True(t, isDockerHub("docker.io:443"))
	assert.False(t, isDockerHub("example.com"))
}

type mapStore struct {
	creds map[string]auth.Credential
}

func (s *mapStore) Get(_ context.Context, server string) (auth.Credential, error) {
	return s.creds[server], nil
}

func (s *mapStore) Put(_ context.Context, server string, cred auth.Credential) error {
	s.creds[server] = cred
	return nil
}

func (s *mapStore) Delete(_ context.Context, server string) error {
	delete(s.creds, server)
	return nil
}
