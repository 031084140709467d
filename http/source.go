// Package http reads packs published on plain HTTP servers.
//
// A pack directory served as static files (the index file and chunk files
// 0..N-1 under one base URL) can be opened without downloading it. Resource
// reads use HTTP range requests, so the server must support them.
package http

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	nethttp "net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	pack "github.com/meigma/bale/core"
)

// ErrNotFound is returned when the server has no file at a pack URL.
var ErrNotFound = errors.New("http: pack file not found")

// Source reads the chunk files of a pack from a base URL.
// It satisfies pack.ChunkSource and pack.RangeSource.
type Source struct {
	base    string
	client  *nethttp.Client
	headers nethttp.Header
	logger  *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithClient sets the HTTP client used for requests.
func WithClient(client *nethttp.Client) Option {
	return func(s *Source) {
		s.client = client
	}
}

// WithHeaders sets additional headers on each request.
func WithHeaders(headers nethttp.Header) Option {
	return func(s *Source) {
		if headers == nil {
			return
		}
		s.headers = headers.Clone()
	}
}

// WithHeader sets a single header on each request.
func WithHeader(key, value string) Option {
	return func(s *Source) {
		if s.headers == nil {
			s.headers = make(nethttp.Header)
		}
		s.headers.Set(key, value)
	}
}

// WithLogger sets the logger for request events.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		s.logger = logger
	}
}

func (s *Source) log() *slog.Logger {
	if s.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.logger
}

// NewSource creates a Source for the pack directory at baseURL.
func NewSource(baseURL string, opts ...Option) *Source {
	s := &Source{
		base:   strings.TrimSuffix(baseURL, "/"),
		client: nethttp.DefaultClient,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.client == nil {
		s.client = nethttp.DefaultClient
	}
	return s
}

// FileURL returns the URL of name inside the pack directory.
func (s *Source) FileURL(name string) string {
	return s.base + "/" + name
}

// OpenChunk downloads chunk i.
func (s *Source) OpenChunk(i uint8) (io.ReadCloser, error) {
	resp, err := s.get(s.FileURL(pack.ChunkName(i)), "")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != nethttp.StatusOK {
		resp.Body.Close()
		return nil, statusError(resp)
	}
	return resp.Body, nil
}

// OpenRange returns a reader for length bytes of chunk i starting at offset.
func (s *Source) OpenRange(i uint8, offset, length int64) (io.ReadCloser, error) {
	if length < 0 {
		return nil, fmt.Errorf("read range length %d: negative length", length)
	}
	if offset < 0 {
		return nil, fmt.Errorf("read range %d: negative offset", offset)
	}
	if length == 0 {
		return io.NopCloser(bytes.NewReader(nil)), nil
	}

	end := offset + length - 1
	resp, err := s.get(s.FileURL(pack.ChunkName(i)), fmt.Sprintf("bytes=%d-%d", offset, end))
	if err != nil {
		return nil, err
	}

	switch resp.StatusCode {
	case nethttp.StatusPartialContent:
		// ok
	case nethttp.StatusRequestedRangeNotSatisfiable:
		resp.Body.Close()
		return nil, io.ErrUnexpectedEOF
	case nethttp.StatusOK:
		resp.Body.Close()
		return nil, errors.New("range requests not supported")
	default:
		resp.Body.Close()
		return nil, statusError(resp)
	}

	if crange := resp.Header.Get("Content-Range"); crange != "" {
		start, err := parseContentRangeStart(crange)
		if err != nil {
			resp.Body.Close()
			return nil, err
		}
		if start != offset {
			resp.Body.Close()
			return nil, fmt.Errorf("range response starts at %d, want %d", start, offset)
		}
	}
	s.log().Debug("range request", "chunk", i, "offset", offset, "length", length)

	return &rangeReadCloser{
		body:   resp.Body,
		reader: io.LimitReader(resp.Body, length),
	}, nil
}

// readIndex downloads the index file, failing when it exceeds limit bytes.
func (s *Source) readIndex(limit int64) ([]byte, error) {
	resp, err := s.get(s.FileURL(pack.IndexFile), "")
	if err != nil {
		return nil, err
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != nethttp.StatusOK {
		return nil, statusError(resp)
	}
	if resp.ContentLength > limit {
		return nil, fmt.Errorf("%w: index file exceeds %d bytes", pack.ErrFormat, limit)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read index file: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: index file exceeds %d bytes", pack.ErrFormat, limit)
	}
	return data, nil
}

func (s *Source) get(target, byteRange string) (*nethttp.Response, error) {
	req, err := nethttp.NewRequest(nethttp.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}
	for key, values := range s.headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}
	if req.Header.Get("Accept-Encoding") == "" {
		req.Header.Set("Accept-Encoding", "identity")
	}
	if byteRange != "" {
		req.Header.Set("Range", byteRange)
	}
	return s.client.Do(req)
}

func statusError(resp *nethttp.Response) error {
	if resp.StatusCode == nethttp.StatusNotFound {
		return fmt.Errorf("%w: %s", ErrNotFound, resp.Request.URL)
	}
	return fmt.Errorf("request %s failed: %s", resp.Request.URL, resp.Status)
}

type rangeReadCloser struct {
	body   io.ReadCloser
	reader io.Reader
}

func (r *rangeReadCloser) Read(p []byte) (int, error) {
	return r.reader.Read(p)
}

func (r *rangeReadCloser) Close() error {
	_, _ = io.Copy(io.Discard, r.body)
	return r.body.Close()
}

// parseContentRangeStart returns the first byte position of a
// "bytes start-end/size" header value.
func parseContentRangeStart(value string) (int64, error) {
	value = strings.TrimSpace(value)
	if !strings.HasPrefix(value, "bytes ") {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	span, _, ok := strings.Cut(strings.TrimPrefix(value, "bytes "), "/")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	first, _, ok := strings.Cut(span, "-")
	if !ok {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", value)
	}
	return start, nil
}

// packID derives a pack id from the last path segment of baseURL.
func packID(baseURL string) string {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil || u.Path == "" || u.Path == "/" {
		return baseURL
	}
	return path.Base(u.Path)
}
