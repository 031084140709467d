package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/meigma/bale"
	pack "github.com/meigma/bale/core"
)

const (
	cfgPushTags        = "push.tag"
	cfgPushAnnotations = "push.annotation"
	cfgPushPackID      = "push.pack-id"
	cfgPullID          = "pull.id"
)

func (a *app) pushCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "push <pack-dir> <ref>",
		Short: "Publish a pack directory to an OCI registry",
		Long: `Push uploads the index and chunk files of pack-dir as an OCI artifact
and tags it. ref must include a tag, e.g. ghcr.io/org/packs/base:v1.`,
		Args: cobra.ExactArgs(2),
		RunE: a.runPush,
	}
	f := cmd.Flags()
	f.StringSliceP("tag", "t", nil, "additional tag; may be repeated")
	f.StringSlice("annotation", nil, "manifest annotation as key=value; may be repeated")
	f.String("pack-id", "", "pack id recorded in the manifest (default: directory name)")
	a.bind("push", f)
	return cmd
}

func (a *app) runPush(cmd *cobra.Command, args []string) error {
	dir, ref := args[0], args[1]
	annotations, err := parseAnnotations(a.v.GetStringSlice(cfgPushAnnotations))
	if err != nil {
		return err
	}
	c, err := a.client(ref)
	if err != nil {
		return err
	}
	opts := []bale.PushOption{
		bale.PushWithTags(a.v.GetStringSlice(cfgPushTags)...),
		bale.PushWithAnnotations(annotations),
	}
	if id := a.v.GetString(cfgPushPackID); id != "" {
		opts = append(opts, bale.PushWithPackID(id))
	}
	desc, err := c.Push(cmd.Context(), ref, dir, opts...)
	if err != nil {
		return err
	}
	cmd.Printf("pushed %s@%s\n", ref, desc.Digest)
	return nil
}

func (a *app) pullCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pull <ref> <pack-dir>",
		Short: "Download a pack from an OCI registry",
		Args:  cobra.ExactArgs(2),
		RunE:  a.runPull,
	}
	cmd.Flags().String("id", "", "open the pulled pack under this id")
	a.bind("pull", cmd.Flags())
	return cmd
}

func (a *app) runPull(cmd *cobra.Command, args []string) error {
	ref, dir := args[0], args[1]
	c, err := a.client(ref)
	if err != nil {
		return err
	}
	var opts []bale.PullOption
	if id := a.v.GetString(cfgPullID); id != "" {
		opts = append(opts, bale.PullWithOpenOptions(pack.OpenWithID(id)))
	}
	p, err := c.Pull(cmd.Context(), ref, dir, opts...)
	if err != nil {
		return err
	}
	cmd.Printf("pulled pack %s with %d resources to %s\n", p.ID(), p.Index().Len(), dir)
	return nil
}

// parseAnnotations splits key=value pairs.
func parseAnnotations(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid annotation %q: want key=value", kv)
		}
		out[k] = v
	}
	return out, nil
}
