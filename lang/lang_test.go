package lang

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	pack "github.com/meigma/bale/core"
	"github.com/meigma/bale/internal/testutil"
	"github.com/meigma/bale/rid"
)

var menu = rid.MustParse("app:lang/menu", "")

// memSource serves resources from a map and counts loads.
type memSource struct {
	files map[string]string
	err   error
	loads atomic.Int64
}

func (s *memSource) LoadResource(id rid.ID) (*pack.RawResource, error) {
	s.loads.Add(1)
	if s.err != nil {
		return nil, &pack.LoadError{PackID: "mem", ID: id, Err: s.err}
	}
	data, ok := s.files[id.String()]
	if !ok {
		return nil, &pack.NotFoundError{ID: id, Reason: "not indexed"}
	}
	idx, err := pack.NewIndex(map[rid.ID]pack.Entry{id: {Size: uint64(len(data))}})
	if err != nil {
		return nil, err
	}
	return pack.NewLeaf("mem", idx, testutil.NewMemChunks([]byte(data))).LoadResource(id)
}

func newSource() *memSource {
	return &memSource{files: map[string]string{
		"app:lang/menu_en_US.lang": "menu.start=Start\nmenu.quit=Quit\nmenu.greet=Hello, %s!\nmenu.path=${HOME}/saves\n",
		"app:lang/menu_de_DE.lang": "# German\nmenu.start=Starten\nmenu.greet=Hallo, %s!\nmenu.umlaut=Schließen\n",
	}}
}

func TestLocalizedID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		tag  language.Tag
		want string
	}{
		{language.AmericanEnglish, "app:lang/menu_en_US.lang"},
		{language.MustParse("de-DE"), "app:lang/menu_de_DE.lang"},
		{language.German, "app:lang/menu_de_DE.lang"},
		{language.MustParse("pt-BR"), "app:lang/menu_pt_BR.lang"},
	}
	for _, tt := range tests {
		t.Run(tt.tag.String(), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, LocalizedID(menu, tt.tag).String())
		})
	}
}

func TestTranslate(t *testing.T) {
	t.Parallel()

	tr, err := New(newSource(), menu)
	require.NoError(t, err)
	de := language.MustParse("de-DE")

	assert.Equal(t, "Start", tr.Translate(language.AmericanEnglish, "menu.start"))
	assert.Equal(t, "Starten", tr.Translate(de, "menu.start"))
	assert.Equal(t, "Schließen", tr.Translate(de, "menu.umlaut"))
	// Missing locale keys fall back to the default table, then to the key.
	assert.Equal(t, "Quit", tr.Translate(de, "menu.quit"))
	assert.Equal(t, "menu.unknown", tr.Translate(de, "menu.unknown"))
	assert.Equal(t, "menu.umlaut", tr.Translate(language.AmericanEnglish, "menu.umlaut"))
	// Values are not expanded.
	assert.Equal(t, "${HOME}/saves", tr.Translate(language.AmericanEnglish, "menu.path"))
	assert.Equal(t, menu, tr.ID())
}

func TestTranslateMissingLocale(t *testing.T) {
	t.Parallel()

	src := newSource()
	tr, err := New(src, menu)
	require.NoError(t, err)
	fr := language.French

	for range 3 {
		assert.Equal(t, "Start", tr.Translate(fr, "menu.start"))
	}
	// Default table plus one attempt at the French table.
	assert.Equal(t, int64(2), src.loads.Load())
}

func TestTranslateCachesLocales(t *testing.T) {
	t.Parallel()

	src := newSource()
	tr, err := New(src, menu)
	require.NoError(t, err)

	for range 3 {
		tr.Translate(language.German, "menu.start")
		tr.Translate(language.MustParse("de-DE"), "menu.quit")
		tr.Translate(language.AmericanEnglish, "menu.start")
	}
	assert.Equal(t, int64(2), src.loads.Load())
}

func TestTranslateRetriesFailedLoads(t *testing.T) {
	t.Parallel()

	src := newSource()
	tr, err := New(src, menu)
	require.NoError(t, err)

	src.err = errors.New("disk on fire")
	assert.Equal(t, "Start", tr.Translate(language.German, "menu.start"))
	src.err = nil
	assert.Equal(t, "Starten", tr.Translate(language.German, "menu.start"))
}

// gatedSource blocks loads of one resource until release is closed.
type gatedSource struct {
	*memSource
	gated   string
	entered chan struct{}
	release chan struct{}
}

func (s *gatedSource) LoadResource(id rid.ID) (*pack.RawResource, error) {
	if id.String() == s.gated {
		close(s.entered)
		<-s.release
	}
	return s.memSource.LoadResource(id)
}

func TestTranslateSlowLocaleDoesNotBlockOthers(t *testing.T) {
	t.Parallel()

	src := &gatedSource{
		memSource: newSource(),
		gated:     "app:lang/menu_de_DE.lang",
		entered:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	src.files["app:lang/menu_fr_FR.lang"] = "menu.start=Commencer\n"
	tr, err := New(src, menu)
	require.NoError(t, err)

	done := make(chan string)
	go func() {
		done <- tr.Translate(language.German, "menu.start")
	}()
	<-src.entered

	assert.Equal(t, "Commencer", tr.Translate(language.French, "menu.start"))
	assert.Equal(t, "Quit", tr.Translate(language.French, "menu.quit"))
	assert.Equal(t, "Start", tr.Translate(language.AmericanEnglish, "menu.start"))

	close(src.release)
	assert.Equal(t, "Starten", <-done)
	assert.Equal(t, "Starten", tr.Translate(language.German, "menu.start"))
	assert.Equal(t, int64(3), src.loads.Load())
}

func TestTrAndBind(t *testing.T) {
	t.Parallel()

	tr, err := New(newSource(), menu)
	require.NoError(t, err)

	assert.Equal(t, "Hello, Ada!", tr.Tr(language.AmericanEnglish, "menu.greet", "Ada"))
	assert.Equal(t, "Hello, %s!", tr.Tr(language.AmericanEnglish, "menu.greet"))

	de := tr.Bind(language.German)
	assert.Equal(t, "Hallo, Ada!", de("menu.greet", "Ada"))
	assert.Equal(t, "Quit", de("menu.quit"))
}

func TestNewDefaultLocale(t *testing.T) {
	t.Parallel()

	tr, err := New(newSource(), menu, WithDefaultLocale(language.German))
	require.NoError(t, err)
	assert.Equal(t, "Starten", tr.Translate(language.French, "menu.start"))
	assert.Equal(t, "Quit", tr.Translate(language.AmericanEnglish, "menu.quit"))
}

func TestNewMissingDefault(t *testing.T) {
	t.Parallel()

	_, err := New(newSource(), rid.MustParse("app:lang/credits", ""))
	assert.ErrorIs(t, err, pack.ErrNotFound)
}

func TestNewMalformedDefault(t *testing.T) {
	t.Parallel()

	src := &memSource{files: map[string]string{"app:lang/menu_en_US.lang": "broken=\\u00"}}
	_, err := New(src, menu)
	require.Error(t, err)
	assert.ErrorContains(t, err, "parse app:lang/menu_en_US.lang")
}

func TestParse(t *testing.T) {
	t.Parallel()

	m, err := Parse([]byte("# comment\n! also a comment\na = one\nb:two\nc three\nd=multi \\\n  line\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "one", "b": "two", "c": "three", "d": "multi line"}, m)
}
