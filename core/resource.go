package pack

import (
	"bytes"

	"github.com/meigma/bale/rid"
)

// RawResource holds the bytes of one loaded resource.
type RawResource struct {
	id     rid.ID
	packID string
	data   []byte
}

// ID returns the resource id.
func (r *RawResource) ID() rid.ID {
	return r.id
}

// PackID returns the id of the leaf pack that served the resource.
func (r *RawResource) PackID() string {
	return r.packID
}

// Len returns the resource size in bytes.
func (r *RawResource) Len() int {
	return len(r.data)
}

// Bytes returns the resource bytes. The slice must not be modified.
func (r *RawResource) Bytes() []byte {
	return r.data
}

// String returns the resource bytes as a string.
func (r *RawResource) String() string {
	return string(r.data)
}

// Reader returns a new reader over the resource bytes.
func (r *RawResource) Reader() *bytes.Reader {
	return bytes.NewReader(r.data)
}
