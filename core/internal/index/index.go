package index

import (
	"bytes"
	"errors"
	"fmt"

	flatbuffers "github.com/google/flatbuffers/go"
	"github.com/klauspost/compress/zstd"

	"github.com/meigma/bale/core/internal/fb"
)

// Version is the index format version written by Encode.
const Version = 1

// DefaultMaxDecodedSize bounds the decompressed size of a zstd-framed index.
const DefaultMaxDecodedSize = 256 << 20

// zstdMagic prefixes every zstd frame.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// Record is one decoded index entry.
type Record struct {
	Domain     string
	Category   string
	Identifier string
	ChunkIndex uint8
	Offset     uint64
	Size       uint64
	Digest     string
}

// Encode serializes records to FlatBuffers format.
// Records are written in the order given.
func Encode(records []Record) []byte {
	builder := flatbuffers.NewBuilder(1024)

	// Build entries in reverse order (FlatBuffers requirement)
	offsets := make([]flatbuffers.UOffsetT, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		r := &records[i]

		domain := builder.CreateString(r.Domain)
		category := builder.CreateString(r.Category)
		identifier := builder.CreateString(r.Identifier)
		var digest flatbuffers.UOffsetT
		if r.Digest != "" {
			digest = builder.CreateString(r.Digest)
		}

		fb.EntryStart(builder)
		fb.EntryAddDomain(builder, domain)
		fb.EntryAddCategory(builder, category)
		fb.EntryAddIdentifier(builder, identifier)
		fb.EntryAddChunkIndex(builder, r.ChunkIndex)
		fb.EntryAddOffset(builder, r.Offset)
		fb.EntryAddSize(builder, r.Size)
		if digest != 0 {
			fb.EntryAddDigest(builder, digest)
		}
		offsets[i] = fb.EntryEnd(builder)
	}

	fb.IndexStartEntriesVector(builder, len(records))
	for i := len(offsets) - 1; i >= 0; i-- {
		builder.PrependUOffsetT(offsets[i])
	}
	entries := builder.EndVector(len(records))

	fb.IndexStart(builder)
	fb.IndexAddVersion(builder, Version)
	fb.IndexAddEntries(builder, entries)
	builder.Finish(fb.IndexEnd(builder))
	return builder.FinishedBytes()
}

// Compress wraps an encoded index in a single zstd frame.
func Compress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderConcurrency(1), zstd.WithEncoderLevel(zstd.SpeedBetterCompression))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// IsCompressed reports whether data starts with a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Decode parses an index produced by Encode, optionally zstd-framed.
//
// maxDecoded limits the decompressed size; zero uses DefaultMaxDecodedSize.
func Decode(data []byte, maxDecoded uint64) (records []Record, err error) {
	if IsCompressed(data) {
		if maxDecoded == 0 {
			maxDecoded = DefaultMaxDecodedSize
		}
		data, err = decompress(data, maxDecoded)
		if err != nil {
			return nil, err
		}
	}

	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("failed to parse index: %v", r)
		}
	}()
	if len(data) < flatbuffers.SizeUOffsetT {
		return nil, errors.New("index data too short")
	}

	root := fb.GetRootAsIndex(data, 0)
	if v := root.Version(); v != Version {
		return nil, fmt.Errorf("unsupported index version %d", v)
	}

	n := root.EntriesLength()
	records = make([]Record, 0, n)
	var e fb.Entry
	for i := range n {
		if !root.Entries(&e, i) {
			return nil, fmt.Errorf("missing entry %d", i)
		}
		records = append(records, Record{
			Domain:     string(e.Domain()),
			Category:   string(e.Category()),
			Identifier: string(e.Identifier()),
			ChunkIndex: e.ChunkIndex(),
			Offset:     e.Offset(),
			Size:       e.Size(),
			Digest:     string(e.Digest()),
		})
	}
	return records, nil
}

func decompress(data []byte, maxDecoded uint64) ([]byte, error) {
	dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1), zstd.WithDecoderMaxMemory(maxDecoded))
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}
	defer dec.Close()

	out, err := dec.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress index: %w", err)
	}
	return out, nil
}
