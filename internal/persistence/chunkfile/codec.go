// Package chunkfile stores one compressed file per chunk and defines the chunk
// codec shared by every backend.
package chunkfile

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"islecraft.ai/internal/sim/encoding"
	"islecraft.ai/internal/sim/world/terrain/tile"
)

const (
	Magic   = "ISLC"
	Version = 1

	headerLen = len(Magic) + 1 + 2
	// Upper bound on the decompressed RLE body; a 256x256 chunk of
	// alternating tiles stays well below it.
	maxBody = 1 << 20
)

var (
	ErrBadMagic   = errors.New("chunkfile: bad magic")
	ErrBadVersion = errors.New("chunkfile: unsupported version")
	ErrSize       = errors.New("chunkfile: chunk size mismatch")
)

var (
	encoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	decoder, _ = zstd.NewReader(nil, zstd.WithDecoderMaxMemory(maxBody))
)

// Encode serializes a row-major size*size chunk.
func Encode(size int, tiles []tile.Tile) ([]byte, error) {
	if size <= 0 || size > 0xFFFF {
		return nil, fmt.Errorf("%w: size %d", ErrSize, size)
	}
	if len(tiles) != size*size {
		return nil, fmt.Errorf("%w: %d tiles for size %d", ErrSize, len(tiles), size)
	}
	ids := make([]uint16, len(tiles))
	for i, t := range tiles {
		if !t.Valid() {
			return nil, fmt.Errorf("chunkfile: invalid tile %d at %d", uint8(t), i)
		}
		ids[i] = uint16(t)
	}
	body := encoding.AppendRLE(nil, ids)

	out := make([]byte, headerLen, headerLen+len(body)/2+16)
	copy(out, Magic)
	out[len(Magic)] = Version
	binary.LittleEndian.PutUint16(out[len(Magic)+1:], uint16(size))
	return encoder.EncodeAll(body, out), nil
}

// Decode parses data produced by Encode and checks it against the expected
// chunk size.
func Decode(data []byte, size int) ([]tile.Tile, error) {
	if len(data) < headerLen {
		return nil, fmt.Errorf("chunkfile: short header: %w", io.ErrUnexpectedEOF)
	}
	if !bytes.Equal(data[:len(Magic)], []byte(Magic)) {
		return nil, ErrBadMagic
	}
	if v := data[len(Magic)]; v != Version {
		return nil, fmt.Errorf("%w: %d", ErrBadVersion, v)
	}
	if got := int(binary.LittleEndian.Uint16(data[len(Magic)+1:])); got != size {
		return nil, fmt.Errorf("%w: file has %d, want %d", ErrSize, got, size)
	}
	body, err := decoder.DecodeAll(data[headerLen:], nil)
	if err != nil {
		return nil, fmt.Errorf("chunkfile: zstd: %w", err)
	}
	ids, err := encoding.DecodeRLEBytes(body, size*size)
	if err != nil {
		return nil, fmt.Errorf("chunkfile: %w", err)
	}
	if len(ids) != size*size {
		return nil, fmt.Errorf("%w: %d tiles, want %d", ErrSize, len(ids), size*size)
	}
	out := make([]tile.Tile, len(ids))
	for i, id := range ids {
		t := tile.Tile(id)
		if id > 0xFF || !t.Valid() {
			return nil, fmt.Errorf("chunkfile: invalid tile %d at %d", id, i)
		}
		out[i] = t
	}
	return out, nil
}
