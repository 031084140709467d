// Package lang resolves localized strings stored in packs.
//
// A language resource is a family of Java-properties files that share a
// base id. For the base id "app:lang/menu" the US English table lives at
// "app:lang/menu_en_US.lang" and the German table at
// "app:lang/menu_de_DE.lang". Tables are read as UTF-8 and values are taken
// literally; "${...}" is not expanded.
//
// The default table is loaded eagerly by New. Other locales are loaded the
// first time they are asked for. A key missing from a locale falls back to
// the default table, and a key missing from both resolves to itself.
package lang

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/magiconair/properties"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/language"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/rid"
)

// Suffix is the file extension of language tables.
const Suffix = ".lang"

// DefaultLocale is the locale of the table every lookup falls back to.
var DefaultLocale = language.AmericanEnglish

// Source loads resources. *pack.Pack satisfies it.
type Source interface {
	LoadResource(id rid.ID) (*pack.RawResource, error)
}

// Func translates key, formatting the result with args when any are given.
type Func func(key string, args ...any) string

// Translator serves the tables of one language resource. It is safe for
// concurrent use.
type Translator struct {
	id       rid.ID
	src      Source
	fallback language.Tag
	logger   *slog.Logger

	defaults map[string]string

	mu     sync.RWMutex
	tables map[language.Tag]map[string]string
	group  singleflight.Group
}

// Option configures a Translator.
type Option func(*Translator)

// WithDefaultLocale sets the locale of the fallback table.
// The default is DefaultLocale.
func WithDefaultLocale(tag language.Tag) Option {
	return func(t *Translator) {
		t.fallback = tag
	}
}

// WithLogger sets the logger for table loading events.
func WithLogger(logger *slog.Logger) Option {
	return func(t *Translator) {
		t.logger = logger
	}
}

func (t *Translator) log() *slog.Logger {
	if t.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return t.logger
}

// New loads the default table of the language resource id from src.
//
// It fails when the default table cannot be loaded or parsed.
func New(src Source, id rid.ID, opts ...Option) (*Translator, error) {
	t := &Translator{
		id:       id,
		src:      src,
		fallback: DefaultLocale,
		tables:   make(map[language.Tag]map[string]string),
	}
	for _, opt := range opts {
		opt(t)
	}
	defaults, err := t.load(t.fallback)
	if err != nil {
		return nil, err
	}
	t.defaults = defaults
	return t, nil
}

// LocalizedID returns the id of the table for tag, e.g. "menu_de_DE.lang"
// for the base identifier "menu". A tag without an explicit region uses the
// most likely one.
func LocalizedID(id rid.ID, tag language.Tag) rid.ID {
	base, _ := tag.Base()
	region, _ := tag.Region()
	return id.WithIdentifier(fmt.Sprintf("%s_%s_%s%s", id.Identifier(), base, region, Suffix))
}

// ID returns the base id of the language resource.
func (t *Translator) ID() rid.ID {
	return t.id
}

// Translate returns the text for key in the locale tag.
func (t *Translator) Translate(tag language.Tag, key string) string {
	if !sameLocale(tag, t.fallback) {
		if v, ok := t.table(tag)[key]; ok {
			return v
		}
	}
	if v, ok := t.defaults[key]; ok {
		return v
	}
	return key
}

// Tr translates key and formats the result with args when any are given.
func (t *Translator) Tr(tag language.Tag, key string, args ...any) string {
	text := t.Translate(tag, key)
	if len(args) == 0 {
		return text
	}
	return fmt.Sprintf(text, args...)
}

// Bind returns a Func fixed to the locale tag.
func (t *Translator) Bind(tag language.Tag) Func {
	return func(key string, args ...any) string {
		return t.Tr(tag, key, args...)
	}
}

// table returns the loaded table for tag. A missing table is remembered as
// empty; other failures are logged and retried on the next call. Concurrent
// first lookups of one locale share a single load, and no lock is held while
// it runs.
func (t *Translator) table(tag language.Tag) map[string]string {
	key := localeKey(tag)
	if m, ok := t.cached(key); ok {
		return m
	}

	v, _, _ := t.group.Do(key.String(), func() (any, error) {
		if m, ok := t.cached(key); ok {
			return m, nil
		}
		m, err := t.load(key)
		switch {
		case err == nil:
		case errors.Is(err, pack.ErrNotFound):
			t.log().Debug("language table missing", "id", LocalizedID(t.id, key).String(), "locale", key.String())
		default:
			t.log().Warn("language table unavailable", "id", LocalizedID(t.id, key).String(), "error", err)
			return map[string]string(nil), nil
		}
		t.mu.Lock()
		t.tables[key] = m
		t.mu.Unlock()
		return m, nil
	})
	m, _ := v.(map[string]string)
	return m
}

func (t *Translator) cached(key language.Tag) (map[string]string, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.tables[key]
	return m, ok
}

func (t *Translator) load(tag language.Tag) (map[string]string, error) {
	id := LocalizedID(t.id, tag)
	res, err := t.src.LoadResource(id)
	if err != nil {
		return nil, err
	}
	m, err := Parse(res.Bytes())
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", id, err)
	}
	t.log().Debug("language table loaded", "id", id.String(), "keys", len(m))
	return m, nil
}

// Parse decodes a language table.
func Parse(data []byte) (map[string]string, error) {
	l := &properties.Loader{Encoding: properties.UTF8, DisableExpansion: true}
	p, err := l.LoadBytes(data)
	if err != nil {
		return nil, err
	}
	return p.Map(), nil
}

// localeKey reduces tag to the language and region that select a table.
func localeKey(tag language.Tag) language.Tag {
	base, _ := tag.Base()
	region, _ := tag.Region()
	key, err := language.Compose(base, region)
	if err != nil {
		return tag
	}
	return key
}

func sameLocale(a, b language.Tag) bool {
	return localeKey(a) == localeKey(b)
}
