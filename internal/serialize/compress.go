// Package serialize holds the zstd envelope used for compressed plan payloads.
package serialize

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
)

// zstdMagic is the frame magic number that prefixes every zstd payload.
var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// DefaultMaxDecodedSize caps the decompressed size of a single payload.
const DefaultMaxDecodedSize = 256 << 20

// ErrTooLarge is returned when a payload would decompress past the configured cap.
var ErrTooLarge = errors.New("decompressed payload exceeds size limit")

// IsCompressed reports whether data starts with a zstd frame.
func IsCompressed(data []byte) bool {
	return bytes.HasPrefix(data, zstdMagic)
}

// Compressor wraps a reusable zstd encoder.
type Compressor struct {
	encoder *zstd.Encoder
}

// NewCompressor creates a compressor at SpeedDefault.
// Caller must call Close() when done.
func NewCompressor() (*Compressor, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	return &Compressor{encoder: encoder}, nil
}

// Compress returns data wrapped in a single zstd frame.
// Safe for concurrent use.
func (c *Compressor) Compress(data []byte) []byte {
	return c.encoder.EncodeAll(data, make([]byte, 0, len(data)/2+len(zstdMagic)))
}

func (c *Compressor) Close() error {
	if c.encoder != nil {
		return c.encoder.Close()
	}
	return nil
}

// Decompressor wraps a reusable zstd decoder with a memory cap.
type Decompressor struct {
	decoder *zstd.Decoder
	limit   uint64
}

// NewDecompressor creates a decompressor that refuses payloads larger than
// maxSize once decoded. Zero selects DefaultMaxDecodedSize.
func NewDecompressor(maxSize uint64) (*Decompressor, error) {
	if maxSize == 0 {
		maxSize = DefaultMaxDecodedSize
	}
	decoder, err := zstd.NewReader(nil,
		zstd.WithDecoderMaxMemory(maxSize),
		zstd.WithDecoderConcurrency(0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	return &Decompressor{decoder: decoder, limit: maxSize}, nil
}

// Decompress decodes a zstd payload. Oversized payloads return an error
// wrapping ErrTooLarge. Safe for concurrent use.
func (d *Decompressor) Decompress(compressed []byte) ([]byte, error) {
	out, err := d.decoder.DecodeAll(compressed, nil)
	if err != nil {
		if errors.Is(err, zstd.ErrDecoderSizeExceeded) || errors.Is(err, zstd.ErrWindowSizeExceeded) {
			return nil, fmt.Errorf("%w (limit %d bytes)", ErrTooLarge, d.limit)
		}
		return nil, fmt.Errorf("failed to decompress: %w", err)
	}
	return out, nil
}

func (d *Decompressor) Close() {
	if d.decoder != nil {
		d.decoder.Close()
	}
}
