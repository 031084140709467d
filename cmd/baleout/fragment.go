package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/meigma/bale/fragment"
	"github.com/meigma/bale/internal/fsutil"
)

const cfgFragmentRemove = "fragment.remove"

func (a *app) fragmentCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fragment <file>",
		Short: "Split a file into a fragment set",
		Long: `Fragment splits file into 20 MiB chunks stored in the sibling
directory <file>.frag together with a size record.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runFragment,
	}
	cmd.Flags().Bool("remove", false, "remove the source file after fragmenting")
	a.bind("fragment", cmd.Flags())
	return cmd
}

func (a *app) runFragment(cmd *cobra.Command, args []string) error {
	set, err := fragment.Fragment(cmd.Context(), args[0], fragment.WithLogger(a.logger))
	if err != nil {
		return err
	}
	if a.v.GetBool(cfgFragmentRemove) {
		if err := os.Remove(args[0]); err != nil {
			return err
		}
	}
	cmd.Printf("wrote %d chunks (%d bytes) to %s\n", len(set.Chunks), set.Size, set.Dir)
	return nil
}

func (a *app) defragmentCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "defragment <file> [output]",
		Short: "Reassemble a fragment set",
		Long: `Defragment reads the fragment set of file and writes the original
bytes to output, or to standard output when output is omitted or "-".`,
		Args: cobra.RangeArgs(1, 2),
		RunE: a.runDefragment,
	}
}

func (a *app) runDefragment(cmd *cobra.Command, args []string) error {
	r, err := fragment.Open(args[0], fragment.WithLogger(a.logger))
	if err != nil {
		return err
	}
	defer r.Close()

	if len(args) < 2 || args[1] == "-" {
		_, err := io.Copy(cmd.OutOrStdout(), r)
		return err
	}
	return writeOutput(args[1], r)
}

// writeOutput atomically replaces path with the contents of r.
func writeOutput(path string, r io.Reader) error {
	f, err := fsutil.CreateAtomic(path)
	if err != nil {
		return err
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Abort()
		return err
	}
	return f.Commit()
}
