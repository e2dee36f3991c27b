package asset

import (
	"archive/zip"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// The compression method used for bundle entries.
type Compression uint8

const (
	Store Compression = iota
	Deflate
	Zstd
	LZ4
)

// Zip method ids. zstd uses the id registered by WinZip; lz4 has no
// registered id so bundles use one from the unassigned range.
const (
	zipMethodZstd uint16 = zstd.ZipMethodWinZip
	zipMethodLZ4  uint16 = 0x4c34
)

func (c Compression) String() string {
	switch c {
	case Store:
		return "store"
	case Deflate:
		return "deflate"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	}
	return fmt.Sprintf("compression(%d)", uint8(c))
}

// Parse a compression name.
func ParseCompression(name string) (Compression, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "store", "none":
		return Store, nil
	case "deflate":
		return Deflate, nil
	case "zstd", "":
		return Zstd, nil
	case "lz4":
		return LZ4, nil
	}
	return Store, fmt.Errorf("%w: %q", ErrUnknownCompression, name)
}

// Get the zip method id for entries written with this compression.
func (c Compression) zipMethod() uint16 {
	switch c {
	case Deflate:
		return zip.Deflate
	case Zstd:
		return zipMethodZstd
	case LZ4:
		return zipMethodLZ4
	}
	return zip.Store
}

// Get a readable name for a zip method id.
func methodName(method uint16) string {
	switch method {
	case zip.Store:
		return Store.String()
	case zip.Deflate:
		return Deflate.String()
	case zipMethodZstd:
		return Zstd.String()
	case zipMethodLZ4:
		return LZ4.String()
	}
	return fmt.Sprintf("method(%d)", method)
}

func registerCompressors(zw *zip.Writer) {
	zw.RegisterCompressor(zipMethodZstd, zstd.ZipCompressor(zstd.WithEncoderLevel(zstd.SpeedBetterCompression)))
	zw.RegisterCompressor(zipMethodLZ4, func(w io.Writer) (io.WriteCloser, error) {
		return lz4.NewWriter(w), nil
	})
}

func registerDecompressors(zr *zip.Reader) {
	zr.RegisterDecompressor(zipMethodZstd, zstd.ZipDecompressor())
	zr.RegisterDecompressor(zipMethodLZ4, func(r io.Reader) io.ReadCloser {
		return io.NopCloser(lz4.NewReader(r))
	})
}
