package blp

import (
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"io"
)

var ErrTooManyColors = errors.New("blp: image has more than 256 distinct colors")

// Encode writes img as a paletted BLP1 texture with an 8-bit alpha plane and a
// single mip level. Images with more than 256 distinct RGB values are rejected.
func Encode(w io.Writer, img image.Image) error {
	b := img.Bounds()
	width, height := b.Dx(), b.Dy()
	if width <= 0 || height <= 0 || width > maxDimension || height > maxDimension {
		return ErrFormat
	}

	pixels := width * height
	indices := make([]byte, pixels)
	alpha := make([]byte, pixels)
	palette := make([]color.NRGBA, 0, 256)
	lookup := map[[3]uint8]int{}
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			key := [3]uint8{c.R, c.G, c.B}
			idx, ok := lookup[key]
			if !ok {
				if len(palette) == 256 {
					return ErrTooManyColors
				}
				idx = len(palette)
				lookup[key] = idx
				palette = append(palette, c)
			}
			i := y*width + x
			indices[i] = byte(idx)
			alpha[i] = c.A
		}
	}

	le := binary.LittleEndian
	buf := make([]byte, blp1HeaderSize+paletteSize, blp1HeaderSize+paletteSize+2*pixels)
	copy(buf[0:4], magicBLP1)
	le.PutUint32(buf[4:8], blp1Palette)
	le.PutUint32(buf[8:12], 8)
	le.PutUint32(buf[12:16], uint32(width))
	le.PutUint32(buf[16:20], uint32(height))
	le.PutUint32(buf[20:24], 4) // picture type: palette with alpha plane
	le.PutUint32(buf[24:28], 0)
	le.PutUint32(buf[28:32], uint32(blp1HeaderSize+paletteSize))
	le.PutUint32(buf[28+mipLevels*4:], uint32(2*pixels))
	for i, c := range palette {
		entry := buf[blp1HeaderSize+i*4:]
		entry[0] = c.B
		entry[1] = c.G
		entry[2] = c.R
	}
	buf = append(buf, indices...)
	buf = append(buf, alpha...)
	_, err := w.Write(buf)
	return err
}
