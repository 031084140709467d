// Package oras connects pack publishing to remote OCI registries.
//
// Client turns references such as "registry.example.com/packs/base:v1" into
// authenticated oras-go repositories. Credentials come from a
// credentials.Store: the Docker configuration, a static username and
// password, or a static bearer token.
package oras
