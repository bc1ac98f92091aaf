// Package blp decodes Blizzard BLP textures (BLP1 as used by Warcraft III and
// BLP2) into standard library images. Only the top mip level is decoded.
package blp

import (
	"encoding/binary"
	"errors"
	"fmt"
)

var (
	ErrFormat      = errors.New("blp: invalid format")
	ErrUnsupported = errors.New("blp: unsupported encoding")
	ErrTruncated   = errors.New("blp: truncated data")
)

const (
	magicBLP1 = "BLP1"
	magicBLP2 = "BLP2"

	mipLevels   = 16
	paletteSize = 256 * 4

	blp1HeaderSize = 4 + 6*4 + 2*mipLevels*4
	blp2HeaderSize = 4 + 4 + 4 + 2*4 + 2*mipLevels*4

	// Sanity cap; Warcraft III textures never exceed this.
	maxDimension = 8192
)

type version int

const (
	versionBLP1 version = 1
	versionBLP2 version = 2
)

// BLP1 content kinds.
const (
	blp1JPEG    = 0
	blp1Palette = 1
)

// BLP2 encodings.
const (
	blp2Palette = 1
	blp2DXT     = 2
	blp2Raw     = 3
)

// BLP2 alpha encodings when the encoding is DXT.
const (
	alphaDXT1 = 0
	alphaDXT3 = 1
	alphaDXT5 = 7
)

type header struct {
	version       version
	content       uint32
	encoding      uint8
	alphaBits     uint32
	alphaEncoding uint8
	width         int
	height        int
	mipOffsets    [mipLevels]uint32
	mipSizes      [mipLevels]uint32
	// dataStart is the offset right after the fixed header.
	dataStart int
}

func parseHeader(data []byte) (header, error) {
	if len(data) < 4 {
		return header{}, ErrTruncated
	}
	switch string(data[:4]) {
	case magicBLP1:
		return parseBLP1Header(data)
	case magicBLP2:
		return parseBLP2Header(data)
	default:
		return header{}, fmt.Errorf("%w: bad magic %q", ErrFormat, data[:4])
	}
}

func parseBLP1Header(data []byte) (header, error) {
	if len(data) < blp1HeaderSize {
		return header{}, ErrTruncated
	}
	le := binary.LittleEndian
	h := header{
		version:   versionBLP1,
		content:   le.Uint32(data[4:8]),
		alphaBits: le.Uint32(data[8:12]),
		width:     int(le.Uint32(data[12:16])),
		height:    int(le.Uint32(data[16:20])),
		dataStart: blp1HeaderSize,
	}
	// data[20:24] is the picture type and data[24:28] the mipmap flag; neither
	// affects decoding of the top level.
	readMipTable(data[28:], &h)
	return h, h.validate()
}

func parseBLP2Header(data []byte) (header, error) {
	if len(data) < blp2HeaderSize {
		return header{}, ErrTruncated
	}
	le := binary.LittleEndian
	h := header{
		version:       versionBLP2,
		content:       le.Uint32(data[4:8]),
		encoding:      data[8],
		alphaBits:     uint32(data[9]),
		alphaEncoding: data[10],
		width:         int(le.Uint32(data[12:16])),
		height:        int(le.Uint32(data[16:20])),
		dataStart:     blp2HeaderSize,
	}
	readMipTable(data[20:], &h)
	return h, h.validate()
}

func readMipTable(table []byte, h *header) {
	le := binary.LittleEndian
	for i := 0; i < mipLevels; i++ {
		h.mipOffsets[i] = le.Uint32(table[i*4:])
		h.mipSizes[i] = le.Uint32(table[(mipLevels+i)*4:])
	}
}

func (h header) validate() error {
	if h.width <= 0 || h.height <= 0 || h.width > maxDimension || h.height > maxDimension {
		return fmt.Errorf("%w: dimensions %dx%d", ErrFormat, h.width, h.height)
	}
	switch h.alphaBits {
	case 0, 1, 4, 8:
	default:
		return fmt.Errorf("%w: alpha depth %d", ErrUnsupported, h.alphaBits)
	}
	return nil
}

// mip returns the bytes of the top mip level.
func (h header) mip(data []byte) ([]byte, error) {
	start := int64(h.mipOffsets[0])
	end := start + int64(h.mipSizes[0])
	if h.mipSizes[0] == 0 || start < int64(h.dataStart) || end > int64(len(data)) {
		return nil, fmt.Errorf("%w: mip 0 at %d+%d exceeds %d bytes", ErrTruncated, start, h.mipSizes[0], len(data))
	}
	return data[start:end], nil
}
