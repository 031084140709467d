package registry

import "errors"

// Sentinel errors for registry operations.
var (
	// ErrNotFound is returned when a pack does not exist at the reference.
	ErrNotFound = errors.New("registry: not found")

	// ErrUnauthorized is returned when the registry rejects the credentials.
	ErrUnauthorized = errors.New("registry: unauthorized")

	// ErrForbidden is returned when the registry denies access.
	ErrForbidden = errors.New("registry: forbidden")

	// ErrInvalidReference is returned when a reference or tag is malformed.
	ErrInvalidReference = errors.New("registry: invalid reference")

	// ErrInvalidManifest is returned when a manifest is not a valid pack manifest.
	ErrInvalidManifest = errors.New("registry: invalid pack manifest")

	// ErrMissingIndex is returned when the manifest does not contain an index blob.
	ErrMissingIndex = errors.New("registry: missing index blob")

	// ErrDigestMismatch is returned when content does not match its expected digest.
	ErrDigestMismatch = errors.New("registry: digest mismatch")
)
