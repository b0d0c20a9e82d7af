// Package exchange moves tables across the bridge boundary: the Arrow C data
// interface for zero-copy hand-off, Arrow IPC streams for the serialized path
// and JSON for small row or column payloads.
package exchange

import (
	"bytes"

	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/hugr-lab/planbridge/bridgeerr"
	"github.com/hugr-lab/planbridge/table"
)

// IPC body compression codecs.
const (
	CompressionNone = ""
	CompressionZstd = "zstd"
	CompressionLZ4  = "lz4"
)

// IPCOptions configures WriteIPC.
type IPCOptions struct {
	// Compression is CompressionNone, CompressionZstd or CompressionLZ4.
	Compression string
	Allocator   memory.Allocator
}

// ValidCompression reports whether name is a supported IPC codec.
func ValidCompression(name string) bool {
	switch name {
	case CompressionNone, CompressionZstd, CompressionLZ4:
		return true
	}
	return false
}

// WriteIPC serializes t as an Arrow IPC stream.
func WriteIPC(t *table.Table, opts IPCOptions) ([]byte, error) {
	if t == nil {
		return nil, bridgeerr.InvalidArgument("table is nil")
	}
	mem := opts.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	writerOpts := []ipc.Option{ipc.WithSchema(t.Schema()), ipc.WithAllocator(mem)}
	switch opts.Compression {
	case CompressionNone:
	case CompressionZstd:
		writerOpts = append(writerOpts, ipc.WithZstd())
	case CompressionLZ4:
		writerOpts = append(writerOpts, ipc.WithLZ4())
	default:
		return nil, bridgeerr.InvalidArgumentf("unknown IPC compression %q", opts.Compression)
	}

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, writerOpts...)
	if err := w.Write(t.Record()); err != nil {
		w.Close()
		return nil, bridgeerr.Wrap(bridgeerr.ArrowExportCode, err, "failed to write IPC batch")
	}
	if err := w.Close(); err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.ArrowExportCode, err, "failed to finish IPC stream")
	}
	return buf.Bytes(), nil
}

// ReadIPC decodes an Arrow IPC stream into a single-batch table. Compressed
// bodies are handled by the reader.
func ReadIPC(data []byte, mem memory.Allocator) (*table.Table, error) {
	if len(data) == 0 {
		return nil, bridgeerr.InvalidArgument("IPC payload is empty")
	}
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	rdr, err := ipc.NewReader(bytes.NewReader(data), ipc.WithAllocator(mem))
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.ArrowImportCode, err, "failed to open IPC stream")
	}
	defer rdr.Release()

	t, err := table.FromReader(mem, rdr)
	if err != nil {
		return nil, bridgeerr.Wrap(bridgeerr.ArrowImportCode, err, "failed to read IPC batches")
	}
	return t, nil
}
