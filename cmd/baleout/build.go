package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	pack "github.com/meigma/bale/core"
)

const (
	cfgBuildMaxChunkSize = "build.max-chunk-size"
	cfgBuildCompression  = "build.compression"
	cfgBuildDigests      = "build.digests"
	cfgBuildFragment     = "build.fragment-oversized"
)

func (a *app) buildCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build <resources-dir> <pack-dir>",
		Short: "Build a pack from a resources directory",
		Long: `Build collects every regular file under resources-dir as
domain:<directory>/<file name> and writes a pack to pack-dir. Resources that
share a domain and category are stored together in one chunk file.`,
		Args: cobra.ExactArgs(2),
		RunE: a.runBuild,
	}
	f := cmd.Flags()
	f.Uint64("max-chunk-size", 0, "pack consecutive groups into chunks of up to this many bytes (0: one chunk per group)")
	f.String("compression", pack.CompressionNone.String(), "index compression: none or zstd")
	f.Bool("digests", true, "record a sha256 digest per resource")
	f.Bool("fragment-oversized", false, "store chunks larger than the fragment size as fragment sets")
	a.bind("build", f)
	return cmd
}

func (a *app) runBuild(cmd *cobra.Command, args []string) error {
	domain := a.v.GetString(cfgDomain)
	if domain == "" {
		return errors.New("build: --domain is required")
	}
	compression, err := parseCompression(a.v.GetString(cfgBuildCompression))
	if err != nil {
		return err
	}

	resources, err := pack.CollectDir(domain, args[0])
	if err != nil {
		return err
	}
	res, err := pack.Build(cmd.Context(), args[1], resources,
		pack.BuildWithMaxChunkSize(a.v.GetUint64(cfgBuildMaxChunkSize)),
		pack.BuildWithIndexCompression(compression),
		pack.BuildWithDigests(a.v.GetBool(cfgBuildDigests)),
		pack.BuildWithFragmentOversized(a.v.GetBool(cfgBuildFragment)),
		pack.BuildWithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	cmd.Printf("built %d resources into %d chunks in %s\n", res.Index.Len(), len(res.ChunkFiles), args[1])
	return nil
}

func parseCompression(name string) (pack.Compression, error) {
	switch strings.ToLower(name) {
	case "", pack.CompressionNone.String():
		return pack.CompressionNone, nil
	case pack.CompressionZstd.String():
		return pack.CompressionZstd, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", name)
	}
}
