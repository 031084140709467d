package main

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/meigma/bale"
	"github.com/meigma/bale/registry/oras"
)

// EnvPrefix prefixes environment variables that override flags, e.g.
// BALEOUT_VERBOSE or BALEOUT_BUILD_MAX_CHUNK_SIZE.
const EnvPrefix = "BALEOUT"

// Global configuration keys.
const (
	cfgConfig     = "config"
	cfgVerbose    = "verbose"
	cfgDomain     = "domain"
	cfgPlainHTTP  = "plain-http"
	cfgAnonymous  = "anonymous"
	cfgUsername   = "username"
	cfgPassword   = "password"
	cfgUserAgent  = "user-agent"
	cfgDockerAuth = "docker-config"
)

// app carries state shared by all subcommands.
type app struct {
	v      *viper.Viper
	logger *slog.Logger
}

func newRootCommand() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "baleout",
		Short: "Build, inspect, and publish resource packs",
		Long: `baleout packs resource directories into chunked packs addressed by
resource ids of the form domain:category/identifier.

Every flag can also be set in a YAML file passed with --config or through
an environment variable: --verbose is BALEOUT_VERBOSE and the build flag
--max-chunk-size is BALEOUT_BUILD_MAX_CHUNK_SIZE.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.init,
	}

	pf := cmd.PersistentFlags()
	pf.String(cfgConfig, "", "YAML config file")
	pf.BoolP(cfgVerbose, "v", false, "enable debug logging")
	pf.String(cfgDomain, "", "resource domain for ids given without one")
	pf.Bool(cfgPlainHTTP, false, "use plain HTTP for registries")
	pf.Bool(cfgAnonymous, false, "ignore configured registry credentials")
	pf.String(cfgUsername, "", "registry username")
	pf.String(cfgPassword, "", "registry password")
	pf.String(cfgUserAgent, "", "User-Agent for registry requests")
	pf.Bool(cfgDockerAuth, true, "read credentials from the Docker config")
	a.bind("", pf)

	cmd.AddCommand(
		a.buildCommand(),
		a.fragmentCommand(),
		a.defragmentCommand(),
		a.getCommand(),
		a.inspectCommand(),
		a.pushCommand(),
		a.pullCommand(),
	)
	return cmd
}

// bind registers every flag in fs with viper under section.
func (a *app) bind(section string, fs *pflag.FlagSet) {
	fs.VisitAll(func(f *pflag.Flag) {
		key := f.Name
		if section != "" {
			key = section + "." + f.Name
		}
		_ = a.v.BindPFlag(key, f)
	})
}

// init loads the config file and environment and installs the logger.
func (a *app) init(cmd *cobra.Command, _ []string) error {
	a.v.SetEnvPrefix(EnvPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	a.v.AutomaticEnv()

	if file := a.v.GetString(cfgConfig); file != "" {
		a.v.SetConfigFile(file)
		a.v.SetConfigType("yaml")
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config: %w", err)
		}
	}

	level := slog.LevelInfo
	if a.v.GetBool(cfgVerbose) {
		level = slog.LevelDebug
	}
	a.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
	return nil
}

// client builds a client for ref from the global flags.
func (a *app) client(ref string) (*bale.Client, error) {
	opts := []bale.Option{
		bale.WithLogger(a.logger),
		bale.WithPlainHTTP(a.v.GetBool(cfgPlainHTTP)),
	}
	if ua := a.v.GetString(cfgUserAgent); ua != "" {
		opts = append(opts, bale.WithUserAgent(ua))
	}
	if a.v.GetBool(cfgDockerAuth) {
		opts = append(opts, bale.WithDockerConfig())
	}
	if user := a.v.GetString(cfgUsername); user != "" {
		r, err := oras.ParseReference(ref)
		if err != nil {
			return nil, err
		}
		opts = append(opts, bale.WithStaticCredentials(r.Registry, user, a.v.GetString(cfgPassword)))
	}
	if a.v.GetBool(cfgAnonymous) {
		opts = append(opts, bale.WithAnonymous())
	}
	return bale.NewClient(opts...)
}
