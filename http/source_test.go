package http_test

import (
	"context"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	pack "github.com/meigma/bale/core"
	balehttp "github.com/meigma/bale/http"
	"github.com/meigma/bale/internal/testutil"
	"github.com/meigma/bale/rid"
)

var files = map[string]string{
	"lang/en_US.lang":     "menu.start=Start\n",
	"textures/stone.png":  "stone-bytes",
	"textures/planks.png": "planks-bytes",
}

// servePack builds files into a pack and serves its parent directory.
// The pack is reachable at <server>/packs/base.
func servePack(t *testing.T, ranges *atomic.Int64) *httptest.Server {
	t.Helper()
	src := t.TempDir()
	testutil.WriteTree(t, src, files)
	resources, err := pack.CollectDir("game", src)
	if err != nil {
		t.Fatalf("CollectDir() error = %v", err)
	}
	root := t.TempDir()
	if _, err := pack.Build(context.Background(), filepath.Join(root, "base"), resources); err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	fileServer := nethttp.StripPrefix("/packs", nethttp.FileServer(nethttp.Dir(root)))
	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Header.Get("Range") != "" && ranges != nil {
			ranges.Add(1)
		}
		fileServer.ServeHTTP(w, r)
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOpen(t *testing.T) {
	t.Parallel()

	var ranges atomic.Int64
	server := servePack(t, &ranges)

	p, err := balehttp.Open(server.URL + "/packs/base/")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if p.ID() != "base" {
		t.Fatalf("ID() = %q, want %q", p.ID(), "base")
	}
	if p.Index().Len() != len(files) {
		t.Fatalf("Index().Len() = %d, want %d", p.Index().Len(), len(files))
	}

	for name, want := range files {
		res, err := p.LoadResource(rid.MustParse("game:"+name, ""))
		if err != nil {
			t.Fatalf("LoadResource(%q) error = %v", name, err)
		}
		if res.String() != want {
			t.Fatalf("LoadResource(%q) = %q, want %q", name, res.String(), want)
		}
	}
	if got := ranges.Load(); got != int64(len(files)) {
		t.Fatalf("range requests = %d, want %d", got, len(files))
	}

	_, err = p.LoadResource(rid.From("game", "textures", "dirt.png"))
	if !errors.Is(err, pack.ErrNotFound) {
		t.Fatalf("LoadResource(missing) error = %v, want ErrNotFound", err)
	}
}

func TestOpenOptions(t *testing.T) {
	t.Parallel()

	var sawHeader atomic.Bool
	server := servePack(t, nil)
	client := &nethttp.Client{Transport: roundTripFunc(func(r *nethttp.Request) (*nethttp.Response, error) {
		if r.Header.Get("Authorization") == "Bearer tok" {
			sawHeader.Store(true)
		}
		return nethttp.DefaultTransport.RoundTrip(r)
	})}

	p, err := balehttp.Open(server.URL+"/packs/base",
		balehttp.OpenWithID("remote"),
		balehttp.OpenWithSourceOptions(balehttp.WithClient(client), balehttp.WithHeader("Authorization", "Bearer tok")),
	)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if p.ID() != "remote" {
		t.Fatalf("ID() = %q, want %q", p.ID(), "remote")
	}
	if !sawHeader.Load() {
		t.Fatal("custom header was not sent")
	}

	_, err = balehttp.Open(server.URL+"/packs/base", balehttp.OpenWithMaxIndexSize(8))
	if !errors.Is(err, pack.ErrFormat) {
		t.Fatalf("Open() error = %v, want ErrFormat", err)
	}
}

func TestOpenMissing(t *testing.T) {
	t.Parallel()

	server := servePack(t, nil)
	_, err := balehttp.Open(server.URL + "/packs/missing")
	if !errors.Is(err, balehttp.ErrNotFound) {
		t.Fatalf("Open() error = %v, want ErrNotFound", err)
	}
}

func TestSourceRangeUnsupported(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		_, _ = w.Write([]byte("range unsupported"))
	}))
	t.Cleanup(server.Close)

	src := balehttp.NewSource(server.URL)
	if _, err := src.OpenRange(0, 2, 3); err == nil {
		t.Fatal("expected error")
	}

	rc, err := src.OpenChunk(0)
	if err != nil {
		t.Fatalf("OpenChunk() error = %v", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "range unsupported" {
		t.Fatalf("OpenChunk() got %q", data)
	}
}

func TestSourceOpenRange(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, pack.ChunkName(0)), []byte("hello world"), 0o600); err != nil {
		t.Fatal(err)
	}
	server := httptest.NewServer(nethttp.FileServer(nethttp.Dir(dir)))
	t.Cleanup(server.Close)

	src := balehttp.NewSource(server.URL + "/")
	rc, err := src.OpenRange(0, 6, 5)
	if err != nil {
		t.Fatalf("OpenRange() error = %v", err)
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if string(data) != "world" {
		t.Fatalf("OpenRange() got %q, want %q", data, "world")
	}

	rc, err = src.OpenRange(0, 0, 0)
	if err != nil {
		t.Fatalf("OpenRange(empty) error = %v", err)
	}
	rc.Close()

	if _, err := src.OpenRange(0, 64, 4); !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("OpenRange(past end) error = %v, want io.ErrUnexpectedEOF", err)
	}
	if _, err := src.OpenRange(1, 0, 4); !errors.Is(err, balehttp.ErrNotFound) {
		t.Fatalf("OpenRange(missing chunk) error = %v, want ErrNotFound", err)
	}
}

type roundTripFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripFunc) RoundTrip(r *nethttp.Request) (*nethttp.Response, error) {
	return f(r)
}
