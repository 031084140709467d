package bale

import (
	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/registry"
	"github.com/meigma/bale/rid"
)

// Errors re-exported from rid and core.
var (
	// ErrInvalidID is returned when a resource id cannot be parsed.
	ErrInvalidID = rid.ErrInvalid

	// ErrFormat is returned for malformed packs and index records.
	ErrFormat = pack.ErrFormat

	// ErrResourceNotFound is matched by errors for resources no pack holds.
	ErrResourceNotFound = pack.ErrNotFound

	// ErrDigestMismatch is returned when resource bytes do not match their digest.
	ErrDigestMismatch = pack.ErrDigestMismatch

	// ErrTooManyChunks is returned when a build would need more chunk files
	// than an index can address.
	ErrTooManyChunks = pack.ErrTooManyChunks

	// ErrSizeOverflow is returned when a size value overflows.
	ErrSizeOverflow = pack.ErrSizeOverflow
)

// Errors re-exported from registry.
var (
	// ErrNotFound is returned when a pack does not exist at the reference.
	ErrNotFound = registry.ErrNotFound

	// ErrInvalidReference is returned when a reference string is malformed.
	ErrInvalidReference = registry.ErrInvalidReference

	// ErrInvalidManifest is returned when a manifest is not a valid pack manifest.
	ErrInvalidManifest = registry.ErrInvalidManifest

	// ErrMissingIndex is returned when the manifest does not contain an index blob.
	ErrMissingIndex = registry.ErrMissingIndex

	// ErrBlobDigestMismatch is returned when a pulled blob does not match its digest.
	ErrBlobDigestMismatch = registry.ErrDigestMismatch

	// ErrUnauthorized is returned when the registry rejects the credentials.
	ErrUnauthorized = registry.ErrUnauthorized
)
