package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/meigma/bale"
)

const (
	cfgGetPacks  = "get.pack"
	cfgGetOutput = "get.output"
)

func (a *app) getCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "get <id>",
		Short: "Print one resource from a stack of packs",
		Long: `Get resolves id against the packs given with --pack, in order, and
writes the first match. When no pack holds the resource, every pack's
reason is reported.`,
		Args: cobra.ExactArgs(1),
		RunE: a.runGet,
	}
	f := cmd.Flags()
	f.StringSliceP("pack", "p", nil, "pack directory; repeat to stack, highest priority first")
	f.StringP("output", "o", "", "write the resource to this file instead of stdout")
	a.bind("get", f)
	return cmd
}

func (a *app) runGet(cmd *cobra.Command, args []string) error {
	dirs := a.v.GetStringSlice(cfgGetPacks)
	if len(dirs) == 0 {
		return errors.New("get: at least one --pack is required")
	}
	s, err := bale.OpenStack(dirs,
		bale.StackWithDefaultDomain(a.v.GetString(cfgDomain)),
		bale.StackWithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	res, err := s.LoadName(args[0])
	if err != nil {
		return err
	}
	if out := a.v.GetString(cfgGetOutput); out != "" {
		return writeOutput(out, res.Reader())
	}
	_, err = cmd.OutOrStdout().Write(res.Bytes())
	return err
}
