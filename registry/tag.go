package registry

import (
	"context"
	"fmt"
)

// Tag points tag at the manifest named by reference, a tag or digest.
func (c *Client) Tag(ctx context.Context, reference, tag string) error {
	if err := validateTag(tag); err != nil {
		return err
	}
	m, err := c.Fetch(ctx, reference)
	if err != nil {
		return err
	}
	if err := c.target.Tag(ctx, m.Descriptor(), tag); err != nil {
		return fmt.Errorf("tag %q: %w", tag, mapOCIError(err))
	}
	c.log().Debug("tagged pack", "tag", tag, "digest", m.Digest().String())
	return nil
}
