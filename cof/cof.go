// Package cof implements the Container Object Format: the fixed framing
// every stored object is wrapped in on disk, independent of its kind.
// The layout (magic, version, type tag, flags, compression, a
// uvarint-prefixed payload, trailing CRC32) follows the same
// buffer-then-write, fixed-preamble-plus-variable-body shape the
// planfmt binary writer of the opal sibling repo uses, generalized from a
// single-purpose plan file to a per-object container that also carries
// a type tag and optional zstd compression.
package cof

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"io"

	"github.com/clawvcs/claw/clawerr"
	"github.com/klauspost/compress/zstd"
)

// Magic is the 4-byte container magic, "CLW1".
var Magic = [4]byte{'C', 'L', 'W', '1'}

// Version is the container format version.
const Version byte = 1

// Flags is a bitmask of optional container features.
type Flags byte

const (
	// FlagCompressed marks the payload as zstd-compressed.
	FlagCompressed Flags = 1 << 0
)

// Compression identifies the compression codec applied to the payload.
type Compression byte

const (
	CompressionNone Compression = 0
	CompressionZstd Compression = 1
)

// compressionThreshold is the minimum uncompressed payload size before
// zstd compression is attempted; below it the framing overhead of
// compression isn't worth paying.
const compressionThreshold = 64

var (
	encoderOnce  *zstd.Encoder
	decoderOnce  *zstd.Decoder
)

func init() {
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic(err)
	}
	encoderOnce = enc

	dec, err := zstd.NewReader(nil)
	if err != nil {
		panic(err)
	}
	decoderOnce = dec
}

// Write frames typeTag and payload into the Container Object Format and
// writes it to w. Payloads larger than compressionThreshold are
// zstd-compressed (level 3); smaller ones are stored raw, since the
// zstd frame overhead would net-grow them.
func Write(w io.Writer, typeTag byte, payload []byte) error {
	var buf bytes.Buffer
	buf.Write(Magic[:])
	buf.WriteByte(Version)
	buf.WriteByte(typeTag)

	compression := CompressionNone
	body := payload
	if len(payload) > compressionThreshold {
		compressed := encoderOnce.EncodeAll(payload, nil)
		compression = CompressionZstd
		body = compressed
	}

	var flags Flags
	if compression == CompressionZstd {
		flags |= FlagCompressed
	}
	buf.WriteByte(byte(flags))
	buf.WriteByte(byte(compression))

	lenBuf := make([]byte, binary.MaxVarintLen64)
	n := binary.PutUvarint(lenBuf, uint64(len(payload)))
	buf.Write(lenBuf[:n])

	buf.Write(body)

	crc := crc32.ChecksumIEEE(payload)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)
	buf.Write(crcBuf[:])

	_, err := w.Write(buf.Bytes())
	return err
}

// Frame is a decoded container: the type tag and the decompressed,
// checksum-verified payload.
type Frame struct {
	TypeTag byte
	Payload []byte
}

// Read parses one Container Object Format frame from b, returning the
// frame and the number of bytes consumed.
func Read(b []byte) (Frame, int, error) {
	const fixedPreambleLen = 4 + 1 + 1 + 1 + 1 // magic+version+type+flags+compression
	if len(b) < fixedPreambleLen {
		return Frame{}, 0, clawerr.ErrInvalidMagic
	}
	if !bytes.Equal(b[0:4], Magic[:]) {
		return Frame{}, 0, clawerr.ErrInvalidMagic
	}
	version := b[4]
	if version != Version {
		return Frame{}, 0, clawerr.ErrUnsupportedVersion
	}
	typeTag := b[5]
	flags := Flags(b[6])
	compression := Compression(b[7])

	rest := b[8:]
	uncompressedLen, n := binary.Uvarint(rest)
	if n <= 0 {
		return Frame{}, 0, clawerr.ErrDeserialization
	}
	rest = rest[n:]

	var body []byte
	var bodyFieldLen int // bytes occupied by the (possibly compressed) body field
	switch compression {
	case CompressionNone:
		if uint64(len(rest)) < uncompressedLen+4 {
			return Frame{}, 0, clawerr.ErrDeserialization
		}
		body = rest[:uncompressedLen]
		bodyFieldLen = int(uncompressedLen)
	case CompressionZstd:
		// The compressed body's length isn't framed explicitly; it runs
		// up to the trailing 4-byte CRC, so everything but the last 4
		// bytes of rest is the zstd frame.
		if len(rest) < 4 {
			return Frame{}, 0, clawerr.ErrDeserialization
		}
		bodyFieldLen = len(rest) - 4
		decompressed, err := decoderOnce.DecodeAll(rest[:bodyFieldLen], nil)
		if err != nil {
			return Frame{}, 0, clawerr.ErrDecompression
		}
		if uint64(len(decompressed)) != uncompressedLen {
			return Frame{}, 0, clawerr.ErrDecompression
		}
		body = decompressed
	default:
		return Frame{}, 0, clawerr.ErrCompression
	}

	rest = rest[bodyFieldLen:]
	if len(rest) < 4 {
		return Frame{}, 0, clawerr.ErrDeserialization
	}
	wantCrc := binary.LittleEndian.Uint32(rest[:4])
	consumed := fixedPreambleLen + n + bodyFieldLen + 4

	gotCrc := crc32.ChecksumIEEE(body)
	if gotCrc != wantCrc {
		return Frame{}, 0, clawerr.ErrCrc32Mismatch
	}

	_ = flags // currently redundant with compression; reserved for future bits
	return Frame{TypeTag: typeTag, Payload: body}, consumed, nil
}
