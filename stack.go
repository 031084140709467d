package bale

import (
	"fmt"
	"log/slog"
	"path/filepath"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/cache"
	"github.com/meigma/bale/lang"
	"github.com/meigma/bale/rid"
)

// Stack layers pack directories behind one cached composite pack.
//
// Layers are searched in the order they were given; the first layer that
// holds a resource wins. Loaded resources are kept in a bounded cache keyed
// by the composite id and resource id. A Stack is safe for concurrent use
// when its layers use a concurrency-safe retention policy (the default).
type Stack struct {
	root          *pack.Pack
	cache         *cache.Cache
	defaultDomain string
	logger        *slog.Logger
}

// OpenStack opens each directory in dirs as a leaf pack and stacks them.
//
// The first directory has the highest priority. An empty dirs yields a
// stack that finds nothing.
func OpenStack(dirs []string, opts ...StackOption) (*Stack, error) {
	cfg := stackConfig{id: DefaultStackID}
	for _, opt := range opts {
		opt(&cfg)
	}

	packOpts := []pack.Option{pack.WithLogger(cfg.logger)}
	layers := make([]*pack.Pack, 0, len(dirs))
	for _, dir := range dirs {
		openOpts := append([]pack.OpenOption{pack.OpenWithPackOptions(packOpts...)}, cfg.openOpts...)
		abs, err := filepath.Abs(dir)
		if err != nil {
			return nil, err
		}
		openOpts = append(openOpts, pack.OpenWithID(filepath.Base(abs)))
		p, err := pack.Open(dir, openOpts...)
		if err != nil {
			return nil, fmt.Errorf("open layer %s: %w", dir, err)
		}
		layers = append(layers, p)
	}

	c, err := cache.New(cfg.cacheSize,
		cache.WithNegative(cfg.negative),
		cache.WithRegisterer(cfg.registerer),
		cache.WithLogger(cfg.logger),
	)
	if err != nil {
		return nil, err
	}

	s := &Stack{
		root:          pack.NewComposite(cfg.id, layers, packOpts...),
		cache:         c,
		defaultDomain: cfg.defaultDomain,
		logger:        cfg.logger,
	}
	s.log().Info("opened stack", "id", cfg.id, "layers", len(layers))
	return s, nil
}

func (s *Stack) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// Load returns the resource id from the highest-priority layer holding it.
func (s *Stack) Load(id rid.ID) (*pack.RawResource, error) {
	return s.cache.Load(s.root, id)
}

// LoadResource is Load. It lets a Stack serve as a lang.Source.
func (s *Stack) LoadResource(id rid.ID) (*pack.RawResource, error) {
	return s.Load(id)
}

// LoadName parses name with the stack's default domain and loads it.
func (s *Stack) LoadName(name string) (*pack.RawResource, error) {
	id, err := rid.Parse(name, s.defaultDomain)
	if err != nil {
		return nil, err
	}
	return s.Load(id)
}

// Pack returns the composite pack behind the stack.
func (s *Stack) Pack() *pack.Pack {
	return s.root
}

// Cache returns the stack's resource cache.
func (s *Stack) Cache() *cache.Cache {
	return s.cache
}

// Translator returns a translator for the language resource id, reading its
// tables through the stack.
func (s *Stack) Translator(id rid.ID, opts ...lang.Option) (*lang.Translator, error) {
	opts = append([]lang.Option{lang.WithLogger(s.logger)}, opts...)
	return lang.New(s, id, opts...)
}
