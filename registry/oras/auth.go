package oras

import (
	"context"
	"errors"
	"slices"
	"strings"

	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/credentials"
)

// errReadOnlyStore is returned by the write methods of static stores.
var errReadOnlyStore = errors.New("oras: static credential store is read-only")

// dockerHubAliases are the server addresses Docker Hub credentials may be
// stored under.
var dockerHubAliases = []string{
	"https://index.docker.io/v1/",
	"index.docker.io",
	"registry-1.docker.io",
	"docker.io",
}

// DefaultCredentialStore returns a store backed by the Docker configuration
// and its credential helpers. Docker Hub lookups also try the hub's aliases.
func DefaultCredentialStore() (credentials.Store, error) {
	store, err := credentials.NewStoreFromDocker(credentials.StoreOptions{})
	if err != nil {
		return nil, err
	}
	return &hubAliasStore{Store: store}, nil
}

// StaticCredentials returns a read-only store holding a username and
// password for one registry.
func StaticCredentials(registry, username, password string) credentials.Store {
	return &staticStore{
		server: serverHost(registry),
		cred:   auth.Credential{Username: username, Password: password},
	}
}

// StaticToken returns a read-only store holding a bearer token for one
// registry.
func StaticToken(registry, token string) credentials.Store {
	return &staticStore{
		server: serverHost(registry),
		cred:   auth.Credential{AccessToken: token},
	}
}

type staticStore struct {
	server string
	cred   auth.Credential
}

func (s *staticStore) Get(_ context.Context, serverAddress string) (auth.Credential, error) {
	server := serverHost(serverAddress)
	if server == s.server || (isDockerHub(server) && isDockerHub(s.server)) {
		return s.cred, nil
	}
	return auth.EmptyCredential, nil
}

func (s *staticStore) Put(context.Context, string, auth.Credential) error {
	return errReadOnlyStore
}

func (s *staticStore) Delete(context.Context, string) error {
	return errReadOnlyStore
}

// hubAliasStore retries Docker Hub lookups under every alias of the hub.
type hubAliasStore struct {
	credentials.Store
}

func (s *hubAliasStore) Get(ctx context.Context, serverAddress string) (auth.Credential, error) {
	cred, err := s.Store.Get(ctx, serverAddress)
	if err == nil && !isEmptyCredential(cred) {
		return cred, nil
	}
	if isDockerHub(serverHost(serverAddress)) {
		for _, alias := range dockerHubAliases {
			if alias == serverAddress {
				continue
			}
			if c, aerr := s.Store.Get(ctx, alias); aerr == nil && !isEmptyCredential(c) {
				return c, nil
			}
		}
	}
	return cred, err
}

// isDockerHub reports whether hostport names Docker Hub, with or without a
// port.
func isDockerHub(hostport string) bool {
	return slices.Contains([]string{"docker.io", "registry-1.docker.io", "index.docker.io"}, hostOnly(hostport))
}

// hostOnly strips the port from host[:port]. Bracketed IPv6 hosts keep
// their brackets.
func hostOnly(hostport string) string {
	if strings.HasPrefix(hostport, "[") {
		if i := strings.LastIndex(hostport, "]"); i != -1 {
			return hostport[:i+1]
		}
		return hostport
	}
	if i := strings.LastIndex(hostport, ":"); i != -1 {
		return hostport[:i]
	}
	return hostport
}

// serverHost reduces a server address to host[:port], dropping any scheme
// and path.
func serverHost(addr string) string {
	addr = strings.TrimPrefix(addr, "http://")
	addr = strings.TrimPrefix(addr, "https://")
	addr, _, _ = strings.Cut(addr, "/")
	return addr
}

func isEmptyCredential(cred auth.Credential) bool {
	return cred.Username == "" && cred.Password == "" && cred.AccessToken == "" && cred.RefreshToken == ""
}
