package blp

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"io"
)

func init() {
	image.RegisterFormat("blp", magicBLP1, Decode, DecodeConfig)
	image.RegisterFormat("blp", magicBLP2, Decode, DecodeConfig)
}

// Decode reads a BLP texture and returns its top mip level as *image.NRGBA.
func Decode(r io.Reader) (image.Image, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return DecodeBytes(data)
}

// DecodeConfig returns the dimensions of a BLP texture without decoding pixels.
func DecodeConfig(r io.Reader) (image.Config, error) {
	buf := make([]byte, blp1HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return image.Config{}, err
	}
	h, err := parseHeader(buf[:n])
	if err != nil {
		return image.Config{}, err
	}
	return image.Config{ColorModel: color.NRGBAModel, Width: h.width, Height: h.height}, nil
}

func DecodeBytes(data []byte) (*image.NRGBA, error) {
	h, err := parseHeader(data)
	if err != nil {
		return nil, err
	}
	switch h.version {
	case versionBLP1:
		return decodeBLP1(h, data)
	default:
		return decodeBLP2(h, data)
	}
}

func decodeBLP1(h header, data []byte) (*image.NRGBA, error) {
	switch h.content {
	case blp1JPEG:
		return decodeJPEGContent(h, data)
	case blp1Palette:
		palette, err := readPalette(data, h.dataStart)
		if err != nil {
			return nil, err
		}
		mip, err := h.mip(data)
		if err != nil {
			return nil, err
		}
		return decodePaletted(h, palette, mip)
	default:
		return nil, fmt.Errorf("%w: BLP1 content %d", ErrUnsupported, h.content)
	}
}

func decodeBLP2(h header, data []byte) (*image.NRGBA, error) {
	if h.content == blp1JPEG {
		return nil, fmt.Errorf("%w: BLP2 JPEG content", ErrUnsupported)
	}
	mip, err := h.mip(data)
	if err != nil {
		return nil, err
	}
	switch h.encoding {
	case blp2Palette:
		palette, err := readPalette(data, h.dataStart)
		if err != nil {
			return nil, err
		}
		return decodePaletted(h, palette, mip)
	case blp2DXT:
		return decodeDXT(h, mip)
	case blp2Raw:
		return decodeRawBGRA(h, mip)
	default:
		return nil, fmt.Errorf("%w: BLP2 encoding %d", ErrUnsupported, h.encoding)
	}
}

func readPalette(data []byte, offset int) ([256]color.NRGBA, error) {
	var palette [256]color.NRGBA
	if len(data) < offset+paletteSize {
		return palette, fmt.Errorf("%w: palette", ErrTruncated)
	}
	for i := range palette {
		entry := data[offset+i*4:]
		// Entries are stored BGRA; the palette alpha byte is unused.
		palette[i] = color.NRGBA{R: entry[2], G: entry[1], B: entry[0], A: 0xff}
	}
	return palette, nil
}

// decodePaletted handles 8-bit indices followed by a packed alpha plane.
func decodePaletted(h header, palette [256]color.NRGBA, mip []byte) (*image.NRGBA, error) {
	pixels := h.width * h.height
	alphaLen := (pixels*int(h.alphaBits) + 7) / 8
	if len(mip) < pixels+alphaLen {
		return nil, fmt.Errorf("%w: paletted mip has %d bytes, need %d", ErrTruncated, len(mip), pixels+alphaLen)
	}
	alpha := mip[pixels : pixels+alphaLen]
	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	for i := 0; i < pixels; i++ {
		c := palette[mip[i]]
		c.A = alphaAt(alpha, h.alphaBits, i)
		o := i * 4
		img.Pix[o] = c.R
		img.Pix[o+1] = c.G
		img.Pix[o+2] = c.B
		img.Pix[o+3] = c.A
	}
	return img, nil
}

func alphaAt(plane []byte, bits uint32, i int) uint8 {
	switch bits {
	case 1:
		if plane[i/8]&(1<<(uint(i)%8)) != 0 {
			return 0xff
		}
		return 0
	case 4:
		v := plane[i/2]
		if i%2 == 1 {
			v >>= 4
		}
		return (v & 0x0f) * 0x11
	case 8:
		return plane[i]
	default:
		return 0xff
	}
}

func decodeRawBGRA(h header, mip []byte) (*image.NRGBA, error) {
	need := h.width * h.height * 4
	if len(mip) < need {
		return nil, fmt.Errorf("%w: raw mip has %d bytes, need %d", ErrTruncated, len(mip), need)
	}
	img := image.NewNRGBA(image.Rect(0, 0, h.width, h.height))
	for o := 0; o < need; o += 4 {
		img.Pix[o] = mip[o+2]
		img.Pix[o+1] = mip[o+1]
		img.Pix[o+2] = mip[o]
		img.Pix[o+3] = mip[o+3]
	}
	return img, nil
}

// Info describes a texture header for diagnostics.
type Info struct {
	Version  int
	Encoding string
	Width    int
	Height   int
	Alpha    int
}

// Inspect parses only the header of a BLP file.
func Inspect(r io.Reader) (Info, error) {
	buf := make([]byte, blp1HeaderSize)
	n, err := io.ReadFull(r, buf)
	if err != nil && err != io.ErrUnexpectedEOF {
		return Info{}, err
	}
	h, err := parseHeader(buf[:n])
	if err != nil {
		return Info{}, err
	}
	return Info{
		Version:  int(h.version),
		Encoding: h.encodingName(),
		Width:    h.width,
		Height:   h.height,
		Alpha:    int(h.alphaBits),
	}, nil
}

func (h header) encodingName() string {
	if h.version == versionBLP1 {
		if h.content == blp1JPEG {
			return "jpeg"
		}
		return "palette"
	}
	switch h.encoding {
	case blp2Palette:
		return "palette"
	case blp2Raw:
		return "bgra"
	case blp2DXT:
		switch h.alphaEncoding {
		case alphaDXT3:
			return "dxt3"
		case alphaDXT5:
			return "dxt5"
		default:
			return "dxt1"
		}
	}
	return fmt.Sprintf("unknown(%d)", h.encoding)
}

func jpegHeader(data []byte, offset int) ([]byte, error) {
	if len(data) < offset+4 {
		return nil, fmt.Errorf("%w: jpeg header size", ErrTruncated)
	}
	size := int(binary.LittleEndian.Uint32(data[offset:]))
	start := offset + 4
	if size < 0 || start+size > len(data) {
		return nil, fmt.Errorf("%w: jpeg header of %d bytes", ErrTruncated, size)
	}
	return data[start : start+size], nil
}
