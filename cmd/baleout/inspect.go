package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	pack "github.com/meigma/bale/core"
)

const cfgInspectFormat = "inspect.format"

// packInfo is the machine-readable description of a pack.
type packInfo struct {
	ID        string      `json:"id" yaml:"id"`
	Resources int         `json:"resources" yaml:"resources"`
	Chunks    int         `json:"chunks" yaml:"chunks"`
	Entries   []entryInfo `json:"entries" yaml:"entries"`
}

type entryInfo struct {
	ID     string `json:"id" yaml:"id"`
	Chunk  uint8  `json:"chunk" yaml:"chunk"`
	Offset uint64 `json:"offset" yaml:"offset"`
	Size   uint64 `json:"size" yaml:"size"`
	Digest string `json:"digest,omitempty" yaml:"digest,omitempty"`
}

func (a *app) inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect <pack-dir>",
		Short: "List the resources of a pack",
		Args:  cobra.ExactArgs(1),
		RunE:  a.runInspect,
	}
	cmd.Flags().StringP("format", "f", "text", "output format: text, yaml, or json")
	a.bind("inspect", cmd.Flags())
	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, args []string) error {
	p, err := pack.Open(args[0], pack.OpenWithPackOptions(pack.WithLogger(a.logger)))
	if err != nil {
		return err
	}
	info := describe(p)

	w := cmd.OutOrStdout()
	switch format := a.v.GetString(cfgInspectFormat); format {
	case "text", "":
		return writeText(w, info)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(info); err != nil {
			return err
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func describe(p *pack.Pack) packInfo {
	idx := p.Index()
	info := packInfo{
		ID:        p.ID(),
		Resources: idx.Len(),
		Chunks:    idx.FileCount(),
		Entries:   make([]entryInfo, 0, idx.Len()),
	}
	for _, id := range idx.IDs() {
		e, _ := idx.Lookup(id)
		info.Entries = append(info.Entries, entryInfo{
			ID:     id.String(),
			Chunk:  e.ChunkIndex,
			Offset: e.Offset,
			Size:   e.Size,
			Digest: e.Digest.String(),
		})
	}
	return info
}

func writeText(w io.Writer, info packInfo) error {
	fmt.Fprintf(w, "pack %s: %d resources in %d chunks\n", info.ID, info.Resources, info.Chunks)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tCHUNK\tOFFSET\tSIZE")
	for _, e := range info.Entries {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\n", e.ID, e.Chunk, e.Offset, e.Size)
	}
	return tw.Flush()
}
