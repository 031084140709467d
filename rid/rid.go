// Package rid provides structured resource identifiers.
//
// An identifier addresses one packaged resource by domain, category, and
// identifier. Its canonical text form is "domain:category/identifier", where
// the category may itself contain slashes ("app:textures/blocks/stone").
package rid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalid is returned when an identifier is malformed.
var ErrInvalid = errors.New("rid: invalid resource id")

// ID identifies a resource. The zero value is not a valid identifier.
//
// ID is a comparable value type and may be used as a map key.
type ID struct {
	domain     string
	category   string
	identifier string
}

// From constructs an ID from its components without validation.
// Use Validate to check that the result can round-trip through Parse.
func From(domain, category, identifier string) ID {
	return ID{domain: domain, category: category, identifier: identifier}
}

// Parse parses "domain:category/identifier" or "category/identifier".
//
// When the domain is omitted, defaultDomain is used. An empty defaultDomain
// makes the domain mandatory.
func Parse(text, defaultDomain string) (ID, error) {
	domain := defaultDomain
	rest := text
	if i := strings.IndexByte(text, ':'); i >= 0 {
		domain, rest = text[:i], text[i+1:]
		if strings.IndexByte(rest, ':') >= 0 {
			return ID{}, fmt.Errorf("%w: %q has multiple colons", ErrInvalid, text)
		}
	}
	if domain == "" {
		return ID{}, fmt.Errorf("%w: %q has no domain", ErrInvalid, text)
	}

	slash := strings.LastIndexByte(rest, '/')
	if slash < 0 {
		return ID{}, fmt.Errorf("%w: %q has no category", ErrInvalid, text)
	}
	id := From(domain, rest[:slash], rest[slash+1:])
	if err := id.Validate(); err != nil {
		return ID{}, err
	}
	return id, nil
}

// MustParse is like Parse but panics on error. It is intended for
// identifiers known at compile time.
func MustParse(text, defaultDomain string) ID {
	id, err := Parse(text, defaultDomain)
	if err != nil {
		panic(err)
	}
	return id
}

// Domain returns the domain component.
func (id ID) Domain() string { return id.domain }

// Category returns the category component.
func (id ID) Category() string { return id.category }

// Identifier returns the identifier component.
func (id ID) Identifier() string { return id.identifier }

// IsZero reports whether id is the zero value.
func (id ID) IsZero() bool { return id == ID{} }

// String returns the canonical form "domain:category/identifier".
func (id ID) String() string {
	return id.domain + ":" + id.category + "/" + id.identifier
}

// WithIdentifier returns a copy of id with the identifier replaced.
func (id ID) WithIdentifier(identifier string) ID {
	id.identifier = identifier
	return id
}

// Validate reports whether id survives a String/Parse round trip.
func (id ID) Validate() error {
	switch {
	case id.domain == "":
		return fmt.Errorf("%w: empty domain", ErrInvalid)
	case id.category == "":
		return fmt.Errorf("%w: empty category in %q", ErrInvalid, id.String())
	case id.identifier == "":
		return fmt.Errorf("%w: empty identifier in %q", ErrInvalid, id.String())
	case strings.ContainsRune(id.domain, ':'),
		strings.ContainsRune(id.category, ':'),
		strings.ContainsRune(id.identifier, ':'):
		return fmt.Errorf("%w: %q contains a colon in a component", ErrInvalid, id.String())
	case strings.ContainsRune(id.domain, '/'), strings.ContainsRune(id.identifier, '/'):
		return fmt.Errorf("%w: %q contains a slash outside the category", ErrInvalid, id.String())
	case strings.HasPrefix(id.category, "/"),
		strings.HasSuffix(id.category, "/"),
		strings.Contains(id.category, "//"):
		return fmt.Errorf("%w: empty category segment in %q", ErrInvalid, id.String())
	}
	return nil
}

// Compare orders identifiers by domain, then category, then identifier.
// It returns -1, 0, or +1 like strings.Compare.
func Compare(a, b ID) int {
	if c := strings.Compare(a.domain, b.domain); c != 0 {
		return c
	}
	if c := strings.Compare(a.category, b.category); c != 0 {
		return c
	}
	return strings.Compare(a.identifier, b.identifier)
}
