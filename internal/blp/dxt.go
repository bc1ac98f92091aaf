package blp

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
)

func decodeDXT(h header, mip []byte) (*image.NRGBA, error) {
	blockSize := 16
	if h.alphaEncoding == alphaDXT1 {
		blockSize = 8
	}
	bw := (h.width + 3) / 4
	bh := (h.height + 3) / 4
	if need := bw * bh * blockSize; len(mip) < need {
		return nil, fmt.Errorf("%w: dxt mip has %d bytes, need %d", ErrTruncated, len(mip), need)
	}

	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	var texels [16]color.NRGBA
	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			block := mip[(by*bw+bx)*blockSize:]
			switch h.alphaEncoding {
			case alphaDXT1:
				decodeColorBlock(block[:8], &texels, h.alphaBits > 0)
			case alphaDXT3:
				decodeColorBlock(block[8:16], &texels, false)
				applyExplicitAlpha(block[:8], &texels)
			case alphaDXT5:
				decodeColorBlock(block[8:16], &texels, false)
				applyInterpolatedAlpha(block[:8], &texels)
			default:
				return nil, fmt.Errorf("%w: dxt alpha encoding %d", ErrUnsupported, h.alphaEncoding)
			}
			for i, c := range texels {
				x := bx*4 + i%4
				y := by*4 + i/4
				if x >= h.width || y >= h.height {
					continue
				}
				img.SetNRGBA(x, y, c)
			}
		}
	}
	return img, nil
}

func rgb565(v uint16) color.NRGBA {
	r := uint8(v >> 11 & 0x1f)
	g := uint8(v >> 5 & 0x3f)
	b := uint8(v & 0x1f)
	return color.NRGBA{
		R: r<<3 | r>>2,
		G: g<<2 | g>>4,
		B: b<<3 | b>>2,
		A: 0xff,
	}
}

func mix(a, b color.NRGBA, wa, wb, div int) color.NRGBA {
	return color.NRGBA{
		R: uint8((int(a.R)*wa + int(b.R)*wb) / div),
		G: uint8((int(a.G)*wa + int(b.G)*wb) / div),
		B: uint8((int(a.B)*wa + int(b.B)*wb) / div),
		A: 0xff,
	}
}

// decodeColorBlock expands an 8-byte BC1 color block into 16 texels.
func decodeColorBlock(block []byte, out *[16]color.NRGBA, punchThrough bool) {
	le := binary.LittleEndian
	c0raw := le.Uint16(block[0:2])
	c1raw := le.Uint16(block[2:4])
	indices := le.Uint32(block[4:8])

	var palette [4]color.NRGBA
	palette[0] = rgb565(c0raw)
	palette[1] = rgb565(c1raw)
	if c0raw > c1raw {
		palette[2] = mix(palette[0], palette[1], 2, 1, 3)
		palette[3] = mix(palette[0], palette[1], 1, 2, 3)
	} else {
		palette[2] = mix(palette[0], palette[1], 1, 1, 2)
		palette[3] = color.NRGBA{A: 0xff}
		if punchThrough {
			palette[3].A = 0
		}
	}
	for i := 0; i < 16; i++ {
		out[i] = palette[indices>>(2*uint(i))&0x3]
	}
}

func applyExplicitAlpha(block []byte, out *[16]color.NRGBA) {
	bits := binary.LittleEndian.Uint64(block[:8])
	for i := 0; i < 16; i++ {
		out[i].A = uint8(bits>>(4*uint(i))&0x0f) * 0x11
	}
}

func applyInterpolatedAlpha(block []byte, out *[16]color.NRGBA) {
	a0 := int(block[0])
	a1 := int(block[1])
	var levels [8]uint8
	levels[0] = uint8(a0)
	levels[1] = uint8(a1)
	if a0 > a1 {
		for i := 1; i < 7; i++ {
			levels[i+1] = uint8(((7-i)*a0 + i*a1) / 7)
		}
	} else {
		for i := 1; i < 5; i++ {
			levels[i+1] = uint8(((5-i)*a0 + i*a1) / 5)
		}
		levels[6] = 0
		levels[7] = 0xff
	}
	var bits uint64
	for i := 0; i < 6; i++ {
		bits |= uint64(block[2+i]) << (8 * uint(i))
	}
	for i := 0; i < 16; i++ {
		out[i].A = levels[bits>>(3*uint(i))&0x7]
	}
}
