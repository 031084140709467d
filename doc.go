// Package bale packs game resources into chunked, indexed packs and serves
// them from layered pack stacks.
//
// A pack directory holds an index file and a small number of chunk files.
// Resources are addressed by [rid.ID] values of the form
// "domain:category/identifier"; the builder stores every category of a
// domain in its own chunk so resources used together are read together.
// The low-level format lives in the [pack] package (import path core).
//
// # Quick Start
//
// Build a pack from a resource directory:
//
//	resources, err := pack.CollectDir("game", "./assets")
//	if err != nil {
//	    return err
//	}
//	_, err = pack.Build(ctx, "./packs/base", resources)
//
// Stack packs so that earlier directories override later ones:
//
//	s, err := bale.OpenStack([]string{"./packs/mods", "./packs/base"})
//	if err != nil {
//	    return err
//	}
//	res, err := s.Load(rid.MustParse("game:textures/stone.png", ""))
//
// # Registries
//
// Packs can be published to and fetched from OCI registries:
//
//	c, err := bale.NewClient(bale.WithDockerConfig())
//	if err != nil {
//	    return err
//	}
//	_, err = c.Push(ctx, "ghcr.io/myorg/packs/base:v1", "./packs/base")
//	p, err := c.Pull(ctx, "ghcr.io/myorg/packs/base:v1", "./cache/base")
package bale
